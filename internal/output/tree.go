package output

import (
	"bufio"
	"errors"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/tidwall/gjson"
)

// Palette styles the scalar tokens of a JSON tree. Punctuation and
// whitespace are never styled, so removing the styling of a coloured tree
// gives the plain tree.
type Palette struct {
	Key    func(string) string
	String func(string) string
	Number func(string) string
	Bool   func(string) string
	Null   func(string) string
}

func identity(s string) string { return s }

// PlainPalette leaves every token as it is.
func PlainPalette() Palette {
	return Palette{Key: identity, String: identity, Number: identity, Bool: identity, Null: identity}
}

// ColorPalette styles tokens with ANSI colours. Colours are always emitted,
// whatever fatih/color decided about the process's terminal.
func ColorPalette() Palette {
	style := func(attrs ...color.Attribute) func(string) string {
		c := color.New(attrs...)
		c.EnableColor()
		return func(s string) string { return c.Sprint(s) }
	}
	return Palette{
		Key:    style(color.FgBlue, color.Bold),
		String: style(color.FgGreen),
		Number: style(color.FgCyan),
		Bool:   style(color.FgYellow),
		Null:   style(color.FgMagenta),
	}
}

// ErrInvalidTree is returned by WriteTree for input that is not valid JSON.
var ErrInvalidTree = errors.New("invalid JSON document")

// WriteTree pretty-prints the JSON document raw, keeping key order. With the
// plain palette the output matches json.MarshalIndent(v, "", indent) for the
// value raw was encoded from, without a trailing newline.
func WriteTree(w io.Writer, raw []byte, palette Palette, indent string) error {
	if !gjson.ValidBytes(raw) {
		return ErrInvalidTree
	}
	tw := &treeWriter{w: bufio.NewWriter(w), palette: palette, indent: indent}
	tw.value(gjson.ParseBytes(raw), 0)
	return tw.w.Flush()
}

type treeWriter struct {
	w       *bufio.Writer
	palette Palette
	indent  string
}

func (t *treeWriter) value(v gjson.Result, depth int) {
	switch {
	case v.IsObject():
		t.container(v, depth, "{", "}", true)
	case v.IsArray():
		t.container(v, depth, "[", "]", false)
	default:
		t.scalar(v)
	}
}

func (t *treeWriter) container(v gjson.Result, depth int, open, end string, object bool) {
	empty := true
	v.ForEach(func(key, elem gjson.Result) bool {
		if empty {
			t.w.WriteString(open)
			empty = false
		} else {
			t.w.WriteString(",")
		}
		t.newline(depth + 1)
		if object {
			t.w.WriteString(t.palette.Key(key.Raw))
			t.w.WriteString(": ")
		}
		t.value(elem, depth+1)
		return true
	})
	if empty {
		t.w.WriteString(open + end)
		return
	}
	t.newline(depth)
	t.w.WriteString(end)
}

func (t *treeWriter) newline(depth int) {
	t.w.WriteString("\n")
	t.w.WriteString(strings.Repeat(t.indent, depth))
}

func (t *treeWriter) scalar(v gjson.Result) {
	switch v.Type {
	case gjson.String:
		t.w.WriteString(t.palette.String(v.Raw))
	case gjson.Number:
		t.w.WriteString(t.palette.Number(v.Raw))
	case gjson.True, gjson.False:
		t.w.WriteString(t.palette.Bool(v.Raw))
	default:
		t.w.WriteString(t.palette.Null(v.Raw))
	}
}
