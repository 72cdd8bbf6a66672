package validate

import (
	"errors"
	"net/netip"
	"strings"
	"time"
)

var (
	ErrEmptyName  = errors.New("name must not be empty")
	ErrBadPrefix  = errors.New("invalid route prefix")
	ErrBadExpires = errors.New("invalid expiration date")
)

// Name trims s and rejects blank input.
func Name(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", ErrEmptyName
	}
	return s, nil
}

// Tags splits a comma separated list, trims each entry and drops blanks and
// duplicates, keeping first-seen order.
func Tags(raw string) []string {
	out := []string{}
	seen := map[string]bool{}
	for _, t := range strings.Split(raw, ",") {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

// AddTag appends tag (trimmed) unless it is blank or already present.
func AddTag(tags []string, tag string) []string {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return tags
	}
	for _, t := range tags {
		if t == tag {
			return tags
		}
	}
	return append(tags, tag)
}

// Prefix checks s is a CIDR prefix and returns its canonical form.
func Prefix(s string) (string, error) {
	p, err := netip.ParsePrefix(strings.TrimSpace(s))
	if err != nil {
		return "", ErrBadPrefix
	}
	return p.String(), nil
}

var expirationLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04",
	"2006-01-02",
}

// Expiration parses a date picker value. Blank input means no expiration.
func Expiration(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	for _, layout := range expirationLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return &t, nil
		}
	}
	return nil, ErrBadExpires
}
