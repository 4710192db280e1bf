// Package digest implements the client side of the Digest
// authentication scheme: RFC 7616, with RFC 2069 fallback when a
// challenge carries no qop.
//
// A Client is built once from a single Digest challenge and reused
// across requests to the same realm+nonce; the HA1/HA2/response hash
// chain and the nc sequencing are grounded on the teacher's
// Challenge.Digest in authorization.go, generalized from a single
// hardcoded MD5 to the five algorithm variants RFC 7616 added.
package digest

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/colindev/httpauth/challenge"
)

// Algorithm selects the hash function and the -sess key-derivation
// variant.
type Algorithm int

const (
	MD5 Algorithm = iota
	MD5Sess
	SHA256
	SHA256Sess
	SHA512_256
	SHA512_256Sess
)

func (a Algorithm) String() string {
	switch a {
	case MD5:
		return "MD5"
	case MD5Sess:
		return "MD5-sess"
	case SHA256:
		return "SHA-256"
	case SHA256Sess:
		return "SHA-256-sess"
	case SHA512_256:
		return "SHA-512-256"
	case SHA512_256Sess:
		return "SHA-512-256-sess"
	default:
		return "unknown"
	}
}

// Sess reports whether a is a "-sess" variant, which recomputes HA1
// with nonce and cnonce on every response instead of caching it.
func (a Algorithm) Sess() bool {
	switch a {
	case MD5Sess, SHA256Sess, SHA512_256Sess:
		return true
	default:
		return false
	}
}

func baseAlgorithm(a Algorithm) Algorithm {
	switch a {
	case MD5Sess:
		return MD5
	case SHA256Sess:
		return SHA256
	case SHA512_256Sess:
		return SHA512_256
	default:
		return a
	}
}

func parseAlgorithm(s string) (Algorithm, error) {
	switch strings.ToUpper(s) {
	case "", "MD5":
		return MD5, nil
	case "MD5-SESS":
		return MD5Sess, nil
	case "SHA-256":
		return SHA256, nil
	case "SHA-256-SESS":
		return SHA256Sess, nil
	case "SHA-512-256":
		return SHA512_256, nil
	case "SHA-512-256-SESS":
		return SHA512_256Sess, nil
	default:
		return 0, &UnsupportedAlgorithmError{Algorithm: s}
	}
}

// QOP is the negotiated quality of protection.
type QOP int

const (
	QOPNone QOP = iota
	QOPAuth
	QOPAuthInt
)

func (q QOP) String() string {
	switch q {
	case QOPAuth:
		return "auth"
	case QOPAuthInt:
		return "auth-int"
	default:
		return ""
	}
}

// Charset controls whether a non-ASCII username is emitted via the
// RFC 5987 username* extended form.
type Charset int

const (
	ISO88591 Charset = iota
	UTF8
)

// Errors reported at construction or emission time. See spec.md §7.
var (
	ErrBodyRequired        = errors.New("digest: auth-int requires a request body")
	ErrNonceCountExhausted = errors.New("digest: nonce count exhausted")
	ErrUnsupportedQop      = errors.New("digest: none of the server's qop options are supported")
	ErrClientStale         = errors.New("digest: client is stale; build a new client from a fresh challenge")
)

// MissingParameterError reports a required challenge parameter that
// was not present.
type MissingParameterError struct{ Name string }

func (e *MissingParameterError) Error() string {
	return fmt.Sprintf("digest: missing required parameter %q", e.Name)
}

// UnsupportedAlgorithmError reports an algorithm token this package
// does not implement.
type UnsupportedAlgorithmError struct{ Algorithm string }

func (e *UnsupportedAlgorithmError) Error() string {
	return fmt.Sprintf("digest: unsupported algorithm %q", e.Algorithm)
}

// UnsupportedCharsetError reports a charset token other than
// ISO-8859-1 or UTF-8.
type UnsupportedCharsetError struct{ Charset string }

func (e *UnsupportedCharsetError) Error() string {
	return fmt.Sprintf("digest: unsupported charset %q", e.Charset)
}

type clientState int

const (
	stateFresh clientState = iota
	stateActive
	stateStale
)

// Client is a per-realm+nonce Digest session: it holds the challenge
// fields needed on every response, the monotonic nc counter, and (for
// non-sess algorithms) the cached first-stage hash. It is not safe
// for concurrent use; spec.md §5 treats it as single-writer, the same
// way the teacher's session type guards its own shared caches but
// leaves per-Challenge.Digest calls unsynchronized.
type Client struct {
	realmDecoded  string
	realmRaw      string
	nonceDecoded  string
	nonceRaw      string
	opaqueRaw     string
	hasOpaque     bool
	domain        []string
	algorithm     Algorithm
	explicitAlg   bool
	qop           QOP
	userhash      bool
	charset       Charset
	nc            uint32
	ha1Cache      string
	rnd           io.Reader
	fixedCNonce   *string
	state         clientState
}

// Option configures optional Client behavior at construction time.
type Option func(*Client)

// WithRandom overrides the cnonce random source. Production callers
// should never need this; it exists for reproducible tests, the same
// seam the teacher exposes via Session.CNonce.
func WithRandom(r io.Reader) Option {
	return func(c *Client) { c.rnd = r }
}

// WithFixedCNonce pins cnonce to a literal string instead of
// generating one, for golden-vector tests whose expected response
// hash was computed against a specific published cnonce.
func WithFixedCNonce(cnonce string) Option {
	return func(c *Client) { c.fixedCNonce = &cnonce }
}

// NewClient builds a Client from one parsed Digest challenge.
func NewClient(ch challenge.Challenge, opts ...Option) (*Client, error) {
	if !strings.EqualFold(ch.Scheme, "Digest") {
		return nil, fmt.Errorf("digest: not a Digest challenge: scheme %q", ch.Scheme)
	}

	realm, ok := ch.Get("realm")
	if !ok {
		return nil, &MissingParameterError{Name: "realm"}
	}
	nonce, ok := ch.Get("nonce")
	if !ok {
		return nil, &MissingParameterError{Name: "nonce"}
	}

	algRaw := "MD5"
	explicitAlg := false
	if v, ok := ch.Get("algorithm"); ok {
		algRaw = v.Decoded
		explicitAlg = true
	}
	alg, err := parseAlgorithm(algRaw)
	if err != nil {
		return nil, err
	}

	qop := QOPNone
	if v, present := ch.Get("qop"); present {
		raw := strings.TrimSpace(v.Decoded)
		if raw != "" {
			var hasAuth, hasAuthInt bool
			for _, o := range strings.Split(v.Decoded, ",") {
				switch strings.TrimSpace(o) {
				case "auth":
					hasAuth = true
				case "auth-int":
					hasAuthInt = true
				}
			}
			switch {
			case hasAuth:
				qop = QOPAuth
			case hasAuthInt:
				qop = QOPAuthInt
			default:
				return nil, ErrUnsupportedQop
			}
		}
		// raw == "" leaves qop == QOPNone: RFC 2069 compatibility
		// fallback, per spec.md §9 open question (b).
	}

	userhash := false
	if v, ok := ch.Get("userhash"); ok {
		switch strings.ToLower(v.Decoded) {
		case "true":
			userhash = true
		case "false", "":
			userhash = false
		default:
			return nil, fmt.Errorf("digest: invalid userhash value %q", v.Decoded)
		}
	}

	charset := ISO88591
	if v, ok := ch.Get("charset"); ok {
		switch strings.ToUpper(v.Decoded) {
		case "ISO-8859-1":
			charset = ISO88591
		case "UTF-8":
			charset = UTF8
		default:
			return nil, &UnsupportedCharsetError{Charset: v.Decoded}
		}
	}

	var domain []string
	if v, ok := ch.Get("domain"); ok {
		domain = strings.Fields(v.Decoded)
	}

	var opaqueRaw string
	var hasOpaque bool
	if v, ok := ch.Get("opaque"); ok {
		opaqueRaw, hasOpaque = v.Raw, true
	}

	c := &Client{
		realmDecoded: realm.Decoded,
		realmRaw:     realm.Raw,
		nonceDecoded: nonce.Decoded,
		nonceRaw:     nonce.Raw,
		opaqueRaw:    opaqueRaw,
		hasOpaque:    hasOpaque,
		domain:       domain,
		algorithm:    alg,
		explicitAlg:  explicitAlg,
		qop:          qop,
		userhash:     userhash,
		charset:      charset,
		rnd:          rand.Reader,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// StaleFlag reports whether the challenge this client (or its
// successor) would be built from carries stale=true. It is read at
// parse time and is not retained on the Client itself: staleness is
// an external signal about a *different*, already-built client whose
// nonce has expired, per spec.md §3's lifecycle note.
func StaleFlag(ch challenge.Challenge) bool {
	v, ok := ch.Get("stale")
	return ok && strings.EqualFold(v.Decoded, "true")
}

// Domain returns the protection space domain list from the
// originating challenge, verbatim.
func (c *Client) Domain() []string { return c.domain }

// Stale reports whether MarkStale has been called on this client.
func (c *Client) Stale() bool { return c.state == stateStale }

// MarkStale transitions the client to its terminal Stale state.
// Respond refuses to emit further responses afterward; the caller
// must build a new Client from a fresh challenge. Nonce reuse across
// clients is forbidden by spec.md §3, so there is no "un-stale" path.
func (c *Client) MarkStale() { c.state = stateStale }
