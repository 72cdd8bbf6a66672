package acl

import (
	"errors"
	"strings"
	"testing"
)

func TestPresentEmptyShowsDefault(t *testing.T) {
	for _, in := range []string{"", "  ", "{}", "{ }"} {
		if got := Present(in); got != DefaultPolicy {
			t.Fatalf("%q: got %q", in, got)
		}
	}
}

func TestPresentFormatsJSONAndKeepsHuJSON(t *testing.T) {
	got := Present(`{"acls":[{"action":"accept"}]}`)
	want := "{\n  \"acls\": [\n    {\n      \"action\": \"accept\"\n    }\n  ]\n}"
	if got != want {
		t.Fatalf("got %q", got)
	}
	hujson := "{\n  // admins\n  \"acls\": []\n}"
	if Present(hujson) != hujson {
		t.Fatalf("hujson text should be shown unchanged")
	}
}

func TestParseReportsPosition(t *testing.T) {
	err := Parse("{\n  \"acls\": [\n  ,\n}")
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("expected ParseError, got %v", err)
	}
	if pe.Line != 3 {
		t.Fatalf("line: %d (%v)", pe.Line, pe)
	}
	if !strings.Contains(pe.Error(), "line 3") {
		t.Fatalf("message: %s", pe.Error())
	}
	if err := Parse(""); !errors.Is(err, ErrEmpty) {
		t.Fatalf("empty: %v", err)
	}
	if err := Parse(`{"a":1} x`); err == nil {
		t.Fatalf("trailing data accepted")
	}
}

func TestFormatAndCompact(t *testing.T) {
	out, err := Format(`{"groups":{"group:admin":["alice"]}}`)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "\n  \"groups\": {\n    \"group:admin\"") {
		t.Fatalf("format: %q", out)
	}
	c, err := Compact(out)
	if err != nil || c != `{"groups":{"group:admin":["alice"]}}` {
		t.Fatalf("compact: %q %v", c, err)
	}
	if _, err := Format("{"); err == nil {
		t.Fatalf("format should fail on malformed input")
	}
}

func TestValidateShape(t *testing.T) {
	if err := Validate(DefaultPolicy); err != nil {
		t.Fatalf("default policy: %v", err)
	}
	if err := Validate(`{"acls":[],"futureKey":true}`); err != nil {
		t.Fatalf("unknown keys must pass: %v", err)
	}
	if err := Validate(`{"acls":{}}`); err == nil || !strings.Contains(err.Error(), "acls") {
		t.Fatalf("acls object should fail: %v", err)
	}
	if err := Validate(`{"hosts":[]}`); err == nil {
		t.Fatalf("hosts array should fail")
	}
	if err := Validate(`[]`); err == nil {
		t.Fatalf("top-level array should fail")
	}
}

func TestPrepare(t *testing.T) {
	out, err := Prepare("{\n  \"acls\": []\n}")
	if err != nil || out != `{"acls":[]}` {
		t.Fatalf("prepare: %q %v", out, err)
	}
	if _, err := Prepare(`{"acls": [}`); err == nil {
		t.Fatalf("malformed policy prepared")
	}
}
