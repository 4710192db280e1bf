// Package httpauth is the convenience front-end over challenge and
// digest: it accepts a single header value, a slice of header values,
// or anything shaped like http.Header, and picks a client-supported
// scheme by caller preference.
//
// Grounded on the teacher's Authentication(rsp *http.Response), which
// walked rsp.Header[http.CanonicalHeaderKey("WWW-Authenticate")] and
// fed each value to parseChallenge. This package generalizes that
// coupling to any HeaderSource so a caller parsing Proxy-Authenticate,
// or a non-net/http transport entirely, can reuse the same selection
// logic.
package httpauth

import (
	"errors"
	"strings"

	"github.com/colindev/httpauth/basic"
	"github.com/colindev/httpauth/challenge"
	"github.com/colindev/httpauth/digest"
)

// ErrNoSupportedScheme is returned by SelectDigest when none of the
// challenges in the list match a scheme the caller asked for.
var ErrNoSupportedScheme = errors.New("httpauth: no supported scheme in challenge list")

// HeaderSource is satisfied by http.Header and anything else that can
// look up a header's values by canonical or non-canonical name.
type HeaderSource interface {
	Values(name string) []string
}

// ParseHeader parses a single WWW-Authenticate (or Proxy-Authenticate)
// header value into its challenge list.
func ParseHeader(value string) ([]challenge.Challenge, error) {
	return challenge.Parse(value)
}

// ParseHeaders parses and concatenates the challenge lists from every
// value in values, preserving order. A server may repeat the header;
// each repetition is itself a comma-separated challenge-list per RFC
// 7235 §4.1.
func ParseHeaders(values []string) ([]challenge.Challenge, error) {
	var all []challenge.Challenge
	for _, v := range values {
		chs, err := challenge.Parse(v)
		if err != nil {
			return nil, err
		}
		all = append(all, chs...)
	}
	return all, nil
}

// ParseFrom reads every value of the named header from h and parses
// the combined challenge list. The teacher's Authentication hardcoded
// "WWW-Authenticate"; here name is caller-supplied so the same logic
// serves Proxy-Authenticate too.
func ParseFrom(h HeaderSource, name string) ([]challenge.Challenge, error) {
	return ParseHeaders(h.Values(name))
}

// Preference lists scheme names in the order the caller wants them
// tried, e.g. Preference{"Digest", "Basic"}. Matching is
// case-insensitive.
type Preference []string

// Responder is satisfied by both *digest.Client and the Basic adapter
// Select returns, so a caller that doesn't care which scheme the
// server picked can build the Authorization header without a type
// switch. Basic responders ignore uri and body, since RFC 7617
// credentials aren't bound to either.
type Responder interface {
	Respond(method, uri, username, password string, body []byte) (string, error)
}

// basicResponder adapts basic.Encode to Responder. It holds no state:
// unlike digest.Client, a Basic response never depends on anything
// from the challenge beyond the scheme match itself (spec.md §4.2).
type basicResponder struct{}

func (basicResponder) Respond(_, _, username, password string, _ []byte) (string, error) {
	return basic.Encode(username, password)
}

// Select scans chs for the first challenge whose scheme matches pref,
// in pref's order, and returns a ready-to-respond Responder for it
// along with the matched challenge (so the caller can still read its
// realm, or check digest.StaleFlag when the match is Digest). This is
// the general selection entry point from spec.md §4.4: pref governs
// both Digest and Basic, not just Digest.
func Select(chs []challenge.Challenge, pref Preference, opts ...digest.Option) (Responder, challenge.Challenge, error) {
	for _, want := range pref {
		for _, ch := range chs {
			if !strings.EqualFold(ch.Scheme, want) {
				continue
			}
			switch {
			case strings.EqualFold(want, "Digest"):
				c, err := digest.NewClient(ch, opts...)
				if err != nil {
					continue
				}
				return c, ch, nil
			case strings.EqualFold(want, "Basic"):
				return basicResponder{}, ch, nil
			}
		}
	}
	return nil, challenge.Challenge{}, ErrNoSupportedScheme
}

// SelectDigest is Select narrowed to Digest: it scans chs for the
// first challenge whose scheme matches a "Digest" entry in pref, in
// pref's order, and returns the constructed *digest.Client directly
// rather than the Responder interface, for callers that specifically
// need digest.Client's extra methods (Stale, Domain) or want to reuse
// the client across several requests.
func SelectDigest(chs []challenge.Challenge, pref Preference, opts ...digest.Option) (*digest.Client, challenge.Challenge, error) {
	for _, want := range pref {
		if !strings.EqualFold(want, "Digest") {
			continue
		}
		for _, ch := range chs {
			if !strings.EqualFold(ch.Scheme, "Digest") {
				continue
			}
			c, err := digest.NewClient(ch, opts...)
			if err != nil {
				continue
			}
			return c, ch, nil
		}
	}
	return nil, challenge.Challenge{}, ErrNoSupportedScheme
}

// SelectBasic is Select narrowed to Basic: it scans chs for the first
// challenge whose scheme matches a "Basic" entry in pref, in pref's
// order, and returns a Responder wrapping basic.Encode.
func SelectBasic(chs []challenge.Challenge, pref Preference) (Responder, challenge.Challenge, error) {
	for _, want := range pref {
		if !strings.EqualFold(want, "Basic") {
			continue
		}
		for _, ch := range chs {
			if strings.EqualFold(ch.Scheme, "Basic") {
				return basicResponder{}, ch, nil
			}
		}
	}
	return nil, challenge.Challenge{}, ErrNoSupportedScheme
}
