// Package acl backs the policy editor. The policy is kept as raw JSON text;
// only syntax and the top-level shape are checked before it is sent upstream.
package acl

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// DefaultPolicy is shown when no policy is configured.
const DefaultPolicy = `{
  "groups": {},
  "hosts": {},
  "acls": [],
  "tests": []
}`

const indent = "  "

// schema checks the types of well-known top-level sections. Unknown fields
// are accepted so newer headscale policy keys pass through.
const schema = `{
  "type": "object",
  "properties": {
    "groups":        {"type": "object"},
    "hosts":         {"type": "object"},
    "tagOwners":     {"type": "object"},
    "autoApprovers": {"type": "object"},
    "acls":          {"type": "array"},
    "tests":         {"type": "array"},
    "ssh":           {"type": "array"}
  }
}`

var schemaLoader = gojsonschema.NewStringLoader(schema)

// ParseError locates a syntax error in the editor text.
type ParseError struct {
	Line   int
	Column int
	Msg    string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d, column %d: %s", e.Line, e.Column, e.Msg)
}

var ErrEmpty = errors.New("policy is empty")

// IsEmpty reports whether text is blank or an empty object.
func IsEmpty(text string) bool {
	var v map[string]any
	t := strings.TrimSpace(text)
	if t == "" {
		return true
	}
	return json.Unmarshal([]byte(t), &v) == nil && len(v) == 0
}

// Present returns the editor text for a stored policy: the default document
// when empty, re-indented JSON when it parses, otherwise the text unchanged
// (e.g. HuJSON with comments).
func Present(policy string) string {
	if IsEmpty(policy) {
		return DefaultPolicy
	}
	if out, err := Format(policy); err == nil {
		return out
	}
	return policy
}

// Parse checks JSON syntax.
func Parse(text string) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmpty
	}
	var v any
	if err := json.Unmarshal([]byte(text), &v); err != nil {
		return toParseError(text, err)
	}
	return nil
}

func toParseError(text string, err error) error {
	var syn *json.SyntaxError
	if !errors.As(err, &syn) {
		return err
	}
	line, col := position(text, int(syn.Offset))
	return &ParseError{Line: line, Column: col, Msg: syn.Error()}
}

// position converts a byte offset into a 1-based line and column.
func position(text string, offset int) (int, int) {
	if offset > len(text) {
		offset = len(text)
	}
	line, col := 1, 1
	for i := 0; i < offset; i++ {
		if text[i] == '\n' {
			line++
			col = 1
			continue
		}
		col++
	}
	// encoding/json reports the offset after the offending byte
	if col > 1 {
		col--
	}
	return line, col
}

// Format re-indents text with two spaces.
func Format(text string) (string, error) {
	if err := Parse(text); err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, []byte(strings.TrimSpace(text)), "", indent); err != nil {
		return "", toParseError(text, err)
	}
	return buf.String(), nil
}

// Compact is the form sent upstream.
func Compact(text string) (string, error) {
	if err := Parse(text); err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, []byte(text)); err != nil {
		return "", toParseError(text, err)
	}
	return buf.String(), nil
}

// Validate checks syntax and the top-level shape.
func Validate(text string) error {
	if err := Parse(text); err != nil {
		return err
	}
	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewStringLoader(text))
	if err != nil {
		return fmt.Errorf("validation error: %w", err)
	}
	if !result.Valid() {
		errs := []string{}
		for _, e := range result.Errors() {
			errs = append(errs, fmt.Sprintf("%s: %s", e.Field(), e.Description()))
		}
		return fmt.Errorf("policy validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// Prepare validates editor text and returns the compact document to submit.
func Prepare(text string) (string, error) {
	if err := Validate(text); err != nil {
		return "", err
	}
	return Compact(text)
}
