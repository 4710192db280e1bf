// Package basic implements the Basic authentication scheme, RFC 7617.
package basic

import (
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/colindev/httpauth/challenge"
)

// ErrInvalidCredentials is returned by Encode when username contains a
// ':' byte or either field contains a CTL byte (< 0x20 or 0x7F).
var ErrInvalidCredentials = errors.New("basic: invalid credentials")

// Encode builds the value of an Authorization header for the Basic
// scheme, grounded on the teacher's Challenge.Basic:
// fmt.Sprintf("%s:%s", ...) through base64.StdEncoding. Unlike the
// teacher, it validates the input alphabet per RFC 7617 §2 before
// encoding: username must not contain ':', and neither field may
// contain a control byte.
func Encode(username, password string) (string, error) {
	if err := validate(username, password); err != nil {
		return "", err
	}
	data := []byte(username + ":" + password)
	return "Basic " + base64.StdEncoding.EncodeToString(data), nil
}

func validate(username, password string) error {
	for i := 0; i < len(username); i++ {
		if username[i] == ':' {
			return fmt.Errorf("%w: username contains ':'", ErrInvalidCredentials)
		}
		if isCTL(username[i]) {
			return fmt.Errorf("%w: username contains a control byte", ErrInvalidCredentials)
		}
	}
	for i := 0; i < len(password); i++ {
		if isCTL(password[i]) {
			return fmt.Errorf("%w: password contains a control byte", ErrInvalidCredentials)
		}
	}
	return nil
}

func isCTL(b byte) bool { return b < 0x20 || b == 0x7f }

// Info is the subset of a received Basic challenge that the responder
// cares about: realm for display, and charset for informational
// purposes. All other parameters are ignored per spec.md §4.2.
type Info struct {
	Realm   string
	Charset string
}

// ParseChallenge extracts realm and charset from a parsed Basic
// challenge.
func ParseChallenge(c challenge.Challenge) Info {
	var info Info
	if v, ok := c.Get("realm"); ok {
		info.Realm = v.Decoded
	}
	if v, ok := c.Get("charset"); ok {
		info.Charset = v.Decoded
	}
	return info
}
