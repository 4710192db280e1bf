package digest

import (
	"crypto/md5"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"math"
	"strings"
)

// Respond computes the Authorization header value for one request,
// advancing the client's nc counter. The hash chain is grounded on
// the teacher's Challenge.Digest in authorization.go: a sequence of
// io.WriteString calls into a running hash.Hash, generalized from a
// single hardcoded md5.New() to whichever hash Algorithm selects.
func (c *Client) Respond(method, uri, username, password string, body []byte) (string, error) {
	if c.state == stateStale {
		return "", ErrClientStale
	}
	if c.qop == QOPAuthInt && body == nil {
		return "", ErrBodyRequired
	}
	if c.nc == math.MaxUint32 {
		return "", ErrNonceCountExhausted
	}

	newHash := hashFunc(c.algorithm)

	cnonce := ""
	if c.needsCNonce() {
		var err error
		cnonce, err = c.cnonce()
		if err != nil {
			return "", fmt.Errorf("digest: generating cnonce: %w", err)
		}
	}

	a1base := hashHex(newHash, username, c.realmDecoded, password)

	var ha1 string
	if c.algorithm.Sess() {
		ha1 = hashHex(newHash, a1base, c.nonceDecoded, cnonce)
	} else {
		if c.ha1Cache == "" {
			c.ha1Cache = a1base
		}
		ha1 = c.ha1Cache
	}

	var ha2 string
	if c.qop == QOPAuthInt {
		bodyHash := hashHex(newHash, string(body))
		ha2 = hashHex(newHash, method, uri, bodyHash)
	} else {
		ha2 = hashHex(newHash, method, uri)
	}

	nc := c.nc + 1
	ncHex := fmt.Sprintf("%08x", nc)

	var response string
	if c.qop != QOPNone {
		response = hashHex(newHash, ha1, c.nonceDecoded, ncHex, cnonce, c.qop.String(), ha2)
	} else {
		response = hashHex(newHash, ha1, c.nonceDecoded, ha2)
	}

	c.nc = nc
	c.state = stateActive

	emittedUser := username
	usernameStar := false
	if c.userhash {
		emittedUser = hashHex(newHash, username, c.realmDecoded)
	}
	if c.charset == UTF8 && !isASCII(username) {
		usernameStar = true
	}

	return c.serialize(emittedUser, usernameStar, uri, response, ncHex, cnonce), nil
}

func (c *Client) needsCNonce() bool {
	return c.qop != QOPNone || c.algorithm.Sess()
}

func (c *Client) cnonce() (string, error) {
	if c.fixedCNonce != nil {
		return *c.fixedCNonce, nil
	}
	buf := make([]byte, 16)
	if _, err := io.ReadFull(c.rnd, buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

func hashFunc(a Algorithm) func() hash.Hash {
	switch baseAlgorithm(a) {
	case SHA256:
		return sha256.New
	case SHA512_256:
		return sha512.New512_256
	default:
		return md5.New
	}
}

// hashHex hashes parts joined by ':', mirroring the teacher's pattern
// of writing each field and a literal ":" separator into a running
// hash.Hash, but generalized across an arbitrary number of fields so
// HA1, HA2 and response don't each need their own copy of the loop.
func hashHex(newHash func() hash.Hash, parts ...string) string {
	h := newHash()
	for i, p := range parts {
		if i > 0 {
			io.WriteString(h, ":")
		}
		io.WriteString(h, p)
	}
	return hex.EncodeToString(h.Sum(nil))
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] > 0x7f {
			return false
		}
	}
	return true
}

func (c *Client) serialize(username string, usernameStar bool, uri, response, nc, cnonce string) string {
	var b strings.Builder
	b.WriteString("Digest ")

	first := true
	sep := func() {
		if !first {
			b.WriteString(", ")
		}
		first = false
	}
	quoted := func(name, raw string) {
		sep()
		b.WriteString(name)
		b.WriteString(`="`)
		b.WriteString(raw)
		b.WriteString(`"`)
	}
	token := func(name, val string) {
		sep()
		b.WriteString(name)
		b.WriteString("=")
		b.WriteString(val)
	}

	if usernameStar {
		token("username*", "UTF-8''"+percentEncode(username))
	} else {
		quoted("username", quoteEscape(username))
	}
	quoted("realm", c.realmRaw)
	quoted("nonce", c.nonceRaw)
	quoted("uri", quoteEscape(uri))
	quoted("response", response)

	if c.explicitAlg {
		token("algorithm", c.algorithm.String())
	}

	if c.needsCNonce() {
		quoted("cnonce", quoteEscape(cnonce))
	}

	if c.hasOpaque {
		quoted("opaque", c.opaqueRaw)
	}

	if c.qop != QOPNone {
		token("qop", c.qop.String())
		token("nc", nc)
	}

	if c.userhash {
		token("userhash", "true")
	}

	return b.String()
}

// quoteEscape escapes '\\' and '"' with a preceding backslash, the
// quoted-string escaping rule applied to the username, uri and cnonce
// parameters. realm, nonce and opaque are re-emitted from their raw
// received form (escapes already intact), and response is hex.
func quoteEscape(s string) string {
	if !strings.ContainsAny(s, `\"`) {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '\\' || c == '"' {
			b.WriteByte('\\')
		}
		b.WriteByte(c)
	}
	return b.String()
}

// percentEncode implements the RFC 5987 ext-value encoding used for
// username* when a non-ASCII username must be emitted under a UTF-8
// charset challenge.
func percentEncode(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isAttrChar(c) {
			b.WriteByte(c)
		} else {
			fmt.Fprintf(&b, "%%%02X", c)
		}
	}
	return b.String()
}

func isAttrChar(b byte) bool {
	switch {
	case b >= '0' && b <= '9', b >= 'a' && b <= 'z', b >= 'A' && b <= 'Z':
		return true
	}
	return strings.IndexByte("!#$&+-.^_`|~", b) >= 0
}
