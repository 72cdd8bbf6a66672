package validate

import (
	"reflect"
	"testing"
	"time"
)

func TestName(t *testing.T) {
	if got, err := Name("  alice "); err != nil || got != "alice" {
		t.Fatalf("got %q, %v", got, err)
	}
	for _, v := range []string{"", "   ", "\t\n"} {
		if _, err := Name(v); err != ErrEmptyName {
			t.Fatalf("expected ErrEmptyName for %q, got %v", v, err)
		}
	}
}

func TestTags(t *testing.T) {
	got := Tags(" tag:web, tag:db,,tag:web ,  ")
	want := []string{"tag:web", "tag:db"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v want %v", got, want)
	}
	if got := Tags(""); len(got) != 0 {
		t.Fatalf("expected empty, got %v", got)
	}
}

func TestAddTag(t *testing.T) {
	tags := []string{"tag:a"}
	tags = AddTag(tags, " tag:b ")
	tags = AddTag(tags, "tag:a")
	tags = AddTag(tags, "  ")
	if !reflect.DeepEqual(tags, []string{"tag:a", "tag:b"}) {
		t.Fatalf("tags: %v", tags)
	}
}

func TestPrefix(t *testing.T) {
	if p, err := Prefix(" 10.0.0.0/24 "); err != nil || p != "10.0.0.0/24" {
		t.Fatalf("got %q, %v", p, err)
	}
	if p, err := Prefix("fd7a:115c:a1e0::/48"); err != nil || p != "fd7a:115c:a1e0::/48" {
		t.Fatalf("got %q, %v", p, err)
	}
	for _, v := range []string{"", "10.0.0.0", "10.0.0.0/33", "bad"} {
		if _, err := Prefix(v); err != ErrBadPrefix {
			t.Fatalf("expected ErrBadPrefix for %q, got %v", v, err)
		}
	}
}

func TestExpiration(t *testing.T) {
	if e, err := Expiration(""); err != nil || e != nil {
		t.Fatalf("blank: %v %v", e, err)
	}
	e, err := Expiration("2025-06-30")
	if err != nil {
		t.Fatalf("date: %v", err)
	}
	if !e.Equal(time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("date: %v", e)
	}
	e, err = Expiration("2025-06-30T08:15")
	if err != nil || e.Hour() != 8 || e.Minute() != 15 {
		t.Fatalf("datetime-local: %v %v", e, err)
	}
	if _, err := Expiration("30/06/2025"); err != ErrBadExpires {
		t.Fatalf("expected ErrBadExpires, got %v", err)
	}
}
