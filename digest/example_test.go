package digest_test

import (
	"fmt"

	"github.com/colindev/httpauth/challenge"
	"github.com/colindev/httpauth/digest"
)

// Example walks the same exchange as the RFC 7616 MD5 worked example:
// a server sends a Digest challenge, and the client builds the
// Authorization header for a GET request.
func Example() {
	chs, err := challenge.Parse(`Digest realm="http-auth@example.org", qop="auth, auth-int", algorithm=MD5, nonce="7ypf/xlj9XXwfDPEoM4URrv/xwf94BcCAzFZH4GiTo0v", opaque="FQhe/qaU925kfnzjCev0ciny7QMkPqMAFRtzCUYo5tdS"`)
	if err != nil {
		fmt.Println(err)
		return
	}

	c, err := digest.NewClient(chs[0], digest.WithFixedCNonce("f2/wE4q74E6zIJEtWaHKaf5wv/H5QzzpXusqGemxURZJ"))
	if err != nil {
		fmt.Println(err)
		return
	}

	authz, err := c.Respond("GET", "/dir/index.html", "Mufasa", "Circle of Life", nil)
	if err != nil {
		fmt.Println(err)
		return
	}

	fmt.Println(authz)
	// Output: Digest username="Mufasa", realm="http-auth@example.org", nonce="7ypf/xlj9XXwfDPEoM4URrv/xwf94BcCAzFZH4GiTo0v", uri="/dir/index.html", response="8ca523f5e9506fed4657c9700eebdbec", algorithm=MD5, cnonce="f2/wE4q74E6zIJEtWaHKaf5wv/H5QzzpXusqGemxURZJ", opaque="FQhe/qaU925kfnzjCev0ciny7QMkPqMAFRtzCUYo5tdS", qop=auth, nc=00000001
}
