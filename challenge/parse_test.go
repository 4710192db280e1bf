package challenge

import (
	"reflect"
	"testing"
)

type parseExpect struct {
	Name    string
	Input   string
	Parsed  []Challenge
	WantErr bool
}

var parseTests = []parseExpect{
	{
		Name:  "empty input",
		Input: "",
	},
	{
		Name:  "bare scheme",
		Input: "Basic",
		Parsed: []Challenge{
			{Scheme: "Basic"},
		},
	},
	{
		Name:  "basic realm",
		Input: `Basic realm="WallyWorld"`,
		Parsed: []Challenge{
			{Scheme: "Basic", Params: []Param{
				{Name: "realm", Value: ParamValue{Raw: "WallyWorld", Decoded: "WallyWorld", Quoted: true}},
			}},
		},
	},
	{
		Name: "digest with token qop list",
		Input: `Digest realm="testrealm@host.com", qop="auth,auth-int", ` +
			`nonce="dcd98b7102dd2f0e8b11d0f600bfb0c093", opaque="5ccc069c403ebaf9f0171e9517f40e41"`,
		Parsed: []Challenge{
			{Scheme: "Digest", Params: []Param{
				{Name: "realm", Value: ParamValue{Raw: "testrealm@host.com", Decoded: "testrealm@host.com", Quoted: true}},
				{Name: "qop", Value: ParamValue{Raw: "auth,auth-int", Decoded: "auth,auth-int", Quoted: true}},
				{Name: "nonce", Value: ParamValue{Raw: "dcd98b7102dd2f0e8b11d0f600bfb0c093", Decoded: "dcd98b7102dd2f0e8b11d0f600bfb0c093", Quoted: true}},
				{Name: "opaque", Value: ParamValue{Raw: "5ccc069c403ebaf9f0171e9517f40e41", Decoded: "5ccc069c403ebaf9f0171e9517f40e41", Quoted: true}},
			}},
		},
	},
	{
		Name:  "two schemes with escaped quote and unknown params",
		Input: `Newauth realm="apps", type=1, title="Login to \"apps\"", Basic realm="simple"`,
		Parsed: []Challenge{
			{Scheme: "Newauth", Params: []Param{
				{Name: "realm", Value: ParamValue{Raw: "apps", Decoded: "apps", Quoted: true}},
				{Name: "type", Value: ParamValue{Raw: "1", Decoded: "1"}},
				{Name: "title", Value: ParamValue{Raw: `Login to \"apps\"`, Decoded: `Login to "apps"`, Quoted: true}},
			}},
			{Scheme: "Basic", Params: []Param{
				{Name: "realm", Value: ParamValue{Raw: "simple", Decoded: "simple", Quoted: true}},
			}},
		},
	},
	{
		Name:  "token68 payload",
		Input: `Bearer dGVzdDp0ZXN0==`,
		Parsed: []Challenge{
			{Scheme: "Bearer", Token68: "dGVzdDp0ZXN0=="},
		},
	},
	{
		Name:  "empty quoted value is legal",
		Input: `Digest realm=""`,
		Parsed: []Challenge{
			{Scheme: "Digest", Params: []Param{
				{Name: "realm", Value: ParamValue{Raw: "", Decoded: "", Quoted: true}},
			}},
		},
	},
	{
		Name:    "unquoted empty value is illegal",
		Input:   `Digest realm=`,
		WantErr: true,
	},
	{
		Name:    "trailing comma",
		Input:   `Basic realm="x",`,
		WantErr: true,
	},
	{
		Name:    "whitespace only between challenges",
		Input:   `Basic realm="x" ,   `,
		WantErr: true,
	},
	{
		Name:    "duplicate parameter name rejects challenge",
		Input:   `Digest realm="a", realm="b"`,
		WantErr: true,
	},
	{
		Name:    "duplicate parameter name case insensitive",
		Input:   `Digest realm="a", Realm="b"`,
		WantErr: true,
	},
	{
		Name:    "unterminated quoted string",
		Input:   `Basic realm="unterminated`,
		WantErr: true,
	},
	{
		Name:    "bare newline in quoted string",
		Input:   "Basic realm=\"a\nb\"",
		WantErr: true,
	},
	{
		Name:  "scheme name case preserved, param name lowercased",
		Input: `DIGEST REALM="x"`,
		Parsed: []Challenge{
			{Scheme: "DIGEST", Params: []Param{
				{Name: "realm", Value: ParamValue{Raw: "x", Decoded: "x", Quoted: true}},
			}},
		},
	},
}

func TestParse(t *testing.T) {
	for _, tc := range parseTests {
		got, err := Parse(tc.Input)
		if tc.WantErr {
			if err == nil {
				t.Errorf("%s: expected error, got none (result: %#v)", tc.Name, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("%s: unexpected error: %v", tc.Name, err)
			continue
		}
		if tc.Parsed == nil {
			if len(got) != 0 {
				t.Errorf("%s: expected no challenges, got %#v", tc.Name, got)
			}
			continue
		}
		if !reflect.DeepEqual(got, tc.Parsed) {
			t.Errorf("%s: got %#v, want %#v", tc.Name, got, tc.Parsed)
		}
	}
}

func TestParseDuplicateKeysRejectChallenge(t *testing.T) {
	_, err := Parse(`Digest realm="a", nonce="n", realm="b"`)
	if err == nil {
		t.Fatal("expected duplicate-key parse error")
	}
	var perr *ParseError
	if !errorsAs(err, &perr) {
		t.Fatalf("expected *ParseError, got %T: %v", err, err)
	}
}

func errorsAs(err error, target **ParseError) bool {
	if pe, ok := err.(*ParseError); ok {
		*target = pe
		return true
	}
	return false
}

func TestParseIdempotentUnderReemission(t *testing.T) {
	chs, err := Parse(`Digest realm="r", nonce="n", qop="auth,auth-int"`)
	if err != nil {
		t.Fatal(err)
	}
	reemitted := reemit(chs)
	chs2, err := Parse(reemitted)
	if err != nil {
		t.Fatalf("reparsing canonical form: %v", err)
	}
	if !reflect.DeepEqual(chs, chs2) {
		t.Fatalf("not idempotent: %#v != %#v", chs, chs2)
	}
}

func reemit(chs []Challenge) string {
	var b []byte
	for i, c := range chs {
		if i > 0 {
			b = append(b, ", "...)
		}
		b = append(b, c.Scheme...)
		if c.HasToken68() {
			b = append(b, ' ')
			b = append(b, c.Token68...)
			continue
		}
		for j, p := range c.Params {
			if j == 0 {
				b = append(b, ' ')
			} else {
				b = append(b, ", "...)
			}
			b = append(b, p.Name...)
			b = append(b, '=')
			b = append(b, '"')
			b = append(b, p.Value.Raw...)
			b = append(b, '"')
		}
	}
	return string(b)
}
