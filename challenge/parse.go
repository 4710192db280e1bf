package challenge

import (
	"fmt"
	"strings"

	"github.com/colindev/httpauth/internal/traceutil"
)

// Parse parses the value of one WWW-Authenticate (or
// Proxy-Authenticate) header, or the comma-concatenation of several
// such values per RFC 7230 §3.2.2, into an ordered list of
// challenges. Empty input returns a nil slice and a nil error.
//
// Parse never panics: any byte sequence either yields a challenge
// list or a *ParseError.
func Parse(value string) ([]Challenge, error) {
	p := &parser{s: value}

	p.skipOWS()
	if p.atEnd() {
		return nil, nil
	}

	var out []Challenge
	for {
		ch, err := p.parseChallenge()
		if err != nil {
			return nil, err
		}
		out = append(out, ch)

		p.skipOWS()
		if p.atEnd() {
			return out, nil
		}
		if !p.consumeByte(',') {
			return nil, p.errorf("expected ',' between challenges, got %q", p.peek())
		}
		p.skipOWS()
		if p.atEnd() {
			return nil, p.errorf("trailing comma")
		}
	}
}

type parser struct {
	s   string
	pos int
}

func (p *parser) atEnd() bool { return p.pos >= len(p.s) }

func (p *parser) peek() byte {
	if p.atEnd() {
		return 0
	}
	return p.s[p.pos]
}

func (p *parser) consumeByte(b byte) bool {
	if !p.atEnd() && p.s[p.pos] == b {
		p.pos++
		return true
	}
	return false
}

func (p *parser) skipOWS() {
	for !p.atEnd() && isOWSByte(p.s[p.pos]) {
		p.pos++
	}
}

// skipBWS is identical to skipOWS; RFC 7230 gives it a separate name
// only to flag "bad whitespace" tolerated around '=' for leniency.
func (p *parser) skipBWS() { p.skipOWS() }

func (p *parser) errorf(format string, args ...any) error {
	return &ParseError{Offset: p.pos, Reason: fmt.Sprintf(format, args...)}
}

// fatalErr marks a parse failure that must never be reinterpreted as
// "this token actually starts the next challenge" — a duplicate
// auth-param name is a grammar violation in its own right, not an
// ambiguity to rewind past.
type fatalErr struct{ *ParseError }

func (p *parser) fatalf(format string, args ...any) error {
	return fatalErr{&ParseError{Offset: p.pos, Reason: fmt.Sprintf(format, args...)}}
}

// tryToken consumes the longest run of tchar bytes at the current
// position. ok is false if zero bytes matched, since a token requires
// at least one.
func (p *parser) tryToken() (tok string, ok bool) {
	start := p.pos
	for !p.atEnd() && isTchar(p.s[p.pos]) {
		p.pos++
	}
	if p.pos == start {
		return "", false
	}
	return p.s[start:p.pos], true
}

func (p *parser) parseChallenge() (Challenge, error) {
	traceutil.Trace("parseChallenge: start at %d", p.pos)

	name, ok := p.tryToken()
	if !ok {
		return Challenge{}, p.errorf("expected scheme token, got %q", p.peek())
	}
	ch := Challenge{Scheme: name}

	// A body is present only if the scheme is followed by whitespace
	// and that whitespace is not just the OWS before the next comma.
	if p.atEnd() || !isOWSByte(p.s[p.pos]) {
		return ch, nil
	}

	p.skipOWS()
	if p.atEnd() || p.s[p.pos] == ',' {
		return ch, nil
	}

	if err := p.parseChallengeBody(&ch); err != nil {
		return Challenge{}, err
	}
	return ch, nil
}

// parseChallengeBody resolves the token68-vs-auth-params ambiguity
// with the same savepoint-and-rewind strategy used between
// parameters: it speculatively parses the body as the first
// auth-param of a list, and falls back to token68 only if that fails.
// A token68 payload such as "dGVzdDp0ZXN0==" would otherwise look
// exactly like "dGVzdDp0ZXN0" "=" "=" to a shallow single-token
// lookahead.
func (p *parser) parseChallengeBody(ch *Challenge) error {
	save := p.pos

	err := p.parseOneAuthParam(ch)
	if err == nil {
		return p.continueAuthParams(ch)
	}
	if fe, ok := err.(fatalErr); ok {
		return fe.ParseError
	}

	p.pos = save
	return p.parseToken68(ch)
}

func (p *parser) parseToken68(ch *Challenge) error {
	start := p.pos
	for !p.atEnd() && isToken68(p.s[p.pos]) {
		p.pos++
	}
	if p.pos == start {
		return p.errorf("expected token68 or auth-param, got %q", p.peek())
	}
	for !p.atEnd() && p.s[p.pos] == '=' {
		p.pos++
	}
	ch.Token68 = p.s[start:p.pos]
	return nil
}

func (p *parser) continueAuthParams(ch *Challenge) error {
	for {
		beforeComma := p.pos
		p.skipOWS()
		if p.atEnd() || p.s[p.pos] != ',' {
			p.pos = beforeComma
			return nil
		}
		p.pos++
		p.skipOWS()

		if err := p.parseOneAuthParam(ch); err != nil {
			if fe, ok := err.(fatalErr); ok {
				return fe.ParseError
			}
			// Not a parameter after all: rewind to the comma and let
			// the challenge-list loop treat it as the next challenge.
			p.pos = beforeComma
			return nil
		}
	}
}

func (p *parser) parseOneAuthParam(ch *Challenge) error {
	name, ok := p.tryToken()
	if !ok {
		return p.errorf("expected auth-param name, got %q", p.peek())
	}

	p.skipBWS()
	if !p.consumeByte('=') {
		return p.errorf("expected '=' after auth-param %q, got %q", name, p.peek())
	}
	p.skipBWS()

	var value ParamValue
	var err error
	if !p.atEnd() && p.s[p.pos] == '"' {
		value, err = p.parseQuotedString()
		if err != nil {
			return err
		}
	} else {
		tok, ok := p.tryToken()
		if !ok {
			return p.errorf("expected token or quoted-string value for %q, got %q", name, p.peek())
		}
		value = ParamValue{Raw: tok, Decoded: tok}
	}

	lname := strings.ToLower(name)
	for _, existing := range ch.Params {
		if existing.Name == lname {
			return p.fatalf("duplicate auth-param %q", lname)
		}
	}
	ch.Params = append(ch.Params, Param{Name: lname, Value: value})
	return nil
}

// parseQuotedString consumes a quoted-string starting at the current
// '"'. Any "\X" denotes the literal byte X, exceeding the RFC 7230
// escapable set deliberately: real servers escape bytes the grammar
// doesn't require them to, and rejecting that breaks interop.
func (p *parser) parseQuotedString() (ParamValue, error) {
	openAt := p.pos
	p.pos++ // opening quote

	rawStart := p.pos
	var decoded strings.Builder

	for {
		if p.atEnd() {
			return ParamValue{}, p.errorf("unterminated quoted-string starting at %d", openAt)
		}
		c := p.s[p.pos]

		switch c {
		case '"':
			raw := p.s[rawStart:p.pos]
			p.pos++ // closing quote
			return ParamValue{Raw: raw, Decoded: decoded.String(), Quoted: true}, nil
		case '\\':
			if p.pos+1 >= len(p.s) {
				return ParamValue{}, p.errorf("dangling escape in quoted-string")
			}
			decoded.WriteByte(p.s[p.pos+1])
			p.pos += 2
		case '\r', '\n':
			return ParamValue{}, p.errorf("bare CR/LF in quoted-string")
		default:
			decoded.WriteByte(c)
			p.pos++
		}
	}
}
