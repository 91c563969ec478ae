package output

import (
	"bytes"
	"encoding/json"
	"errors"
	"regexp"
	"strings"
	"testing"

	"pgregory.net/rapid"
)

var ansiPattern = regexp.MustCompile("\x1b\\[[0-9;]*m")

// fataler is satisfied by both *testing.T and *rapid.T.
type fataler interface {
	Helper()
	Fatalf(format string, args ...any)
}

func encodeCompact(t fataler, v any) []byte {
	t.Helper()
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	return buf.Bytes()
}

func encodeIndented(t fataler, v any, indent string) string {
	t.Helper()
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", indent)
	if err := enc.Encode(v); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	return strings.TrimSuffix(buf.String(), "\n")
}

type treeSample struct {
	Name   string         `json:"name"`
	Tags   []string       `json:"tags"`
	Empty  []int          `json:"empty"`
	Nested map[string]any `json:"nested"`
	Value  *float64       `json:"value"`
	OK     bool           `json:"ok"`
}

func TestWriteTree_MatchesIndentedJSON(t *testing.T) {
	pi := 3.25
	tests := []struct {
		name   string
		value  any
		indent string
	}{
		{name: "Empty list", value: []string{}, indent: "  "},
		{name: "Scalar", value: "plain", indent: "  "},
		{name: "Null", value: nil, indent: "  "},
		{name: "Struct", value: treeSample{
			Name:   "<doc & co>",
			Tags:   []string{"a", "b c"},
			Empty:  []int{},
			Nested: map[string]any{"z": 1, "a": []any{true, nil, map[string]any{}}},
			Value:  &pi,
		}, indent: "  "},
		{name: "Tab indent", value: []any{[]any{}, map[string]int{"x": -1}}, indent: "\t"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := WriteTree(&buf, encodeCompact(t, tt.value), PlainPalette(), tt.indent); err != nil {
				t.Fatalf("WriteTree: %v", err)
			}
			expected := encodeIndented(t, tt.value, tt.indent)
			if buf.String() != expected {
				t.Errorf("WriteTree() =\n%s\nexpected\n%s", buf.String(), expected)
			}
		})
	}
}

func TestWriteTree_ColorPalette(t *testing.T) {
	raw := encodeCompact(t, map[string]any{"key": "value", "n": 1, "b": false, "z": nil})

	var plain, colored bytes.Buffer
	if err := WriteTree(&plain, raw, PlainPalette(), "  "); err != nil {
		t.Fatalf("WriteTree plain: %v", err)
	}
	if err := WriteTree(&colored, raw, ColorPalette(), "  "); err != nil {
		t.Fatalf("WriteTree colored: %v", err)
	}

	if !ansiPattern.Match(colored.Bytes()) {
		t.Fatal("coloured tree carries no ANSI sequences")
	}
	if stripped := ansiPattern.ReplaceAllString(colored.String(), ""); stripped != plain.String() {
		t.Errorf("stripped coloured tree =\n%s\nexpected\n%s", stripped, plain.String())
	}
}

func TestWriteTree_InvalidJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteTree(&buf, []byte(`{"a":`), PlainPalette(), "  "); !errors.Is(err, ErrInvalidTree) {
		t.Error("WriteTree() accepted invalid JSON")
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestWriteTree_WriteError(t *testing.T) {
	if err := WriteTree(failingWriter{}, []byte(`[1,2]`), PlainPalette(), "  "); err == nil {
		t.Error("WriteTree() swallowed the write error")
	}
}

func TestRapidWriteTree_MatchesIndentedJSON(t *testing.T) {
	leaf := rapid.OneOf(
		rapid.Map(rapid.String(), func(s string) any { return s }),
		rapid.Map(rapid.Int64(), func(n int64) any { return n }),
		rapid.Map(rapid.Bool(), func(b bool) any { return b }),
		rapid.Just[any](nil),
	)
	list := rapid.Map(rapid.SliceOfN(leaf, 0, 4), func(v []any) any { return v })
	object := rapid.Map(rapid.MapOfN(rapid.String(), leaf, 0, 4), func(v map[string]any) any { return v })
	tree := rapid.SliceOfN(rapid.OneOf(leaf, list, object), 0, 6)

	rapid.Check(t, func(t *rapid.T) {
		v := tree.Draw(t, "tree")
		var buf bytes.Buffer
		if err := WriteTree(&buf, encodeCompact(t, v), PlainPalette(), "  "); err != nil {
			t.Fatalf("WriteTree: %v", err)
		}
		if expected := encodeIndented(t, v, "  "); buf.String() != expected {
			t.Fatalf("WriteTree() =\n%s\nexpected\n%s", buf.String(), expected)
		}
	})
}
