// Package examine decodes a saved change history and renders every change
// as indented JSON, coloured when the destination is interactive.
package examine

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"

	"github.com/masmgr/amexamine/internal/automerge"
	"github.com/masmgr/amexamine/internal/output"
	"go.uber.org/zap"
)

// DefaultIndent is the indentation of rendered output.
const DefaultIndent = "  "

// Options configures an Examiner.
type Options struct {
	Logger *zap.SugaredLogger
	Indent string
}

// Examiner runs the ingest and render stages.
type Examiner struct {
	logger *zap.SugaredLogger
	indent string
}

// NewExaminer creates an Examiner, filling unset options with defaults.
func NewExaminer(opts Options) *Examiner {
	e := &Examiner{logger: opts.Logger, indent: opts.Indent}
	if e.logger == nil {
		e.logger = zap.NewNop().Sugar()
	}
	if e.indent == "" {
		e.indent = DefaultIndent
	}
	return e
}

// Result is the outcome of ingesting a buffer.
type Result struct {
	Document *automerge.Document
	Changes  []automerge.ExpandedChange
	Size     int
}

// Ingest reads r to the end, loads the buffer and decodes all of its changes
// in history order.
func (e *Examiner) Ingest(r io.Reader) (*Result, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, newError(KindRead, err)
	}
	return e.Load(data)
}

// Load is Ingest for a buffer already in memory.
func (e *Examiner) Load(data []byte) (*Result, error) {
	doc, err := automerge.Load(data)
	if err != nil {
		return nil, newError(KindDecode, err)
	}

	history := doc.Changes(nil)
	changes := make([]automerge.ExpandedChange, len(history))
	for i, c := range history {
		changes[i] = c.Decode()
	}

	e.logger.Debugw("Loaded change history",
		"bytes", len(data),
		"chunks", len(doc.Chunks()),
		"changes", len(changes),
	)
	if !doc.HeadsVerified() {
		e.logger.Warnw("Recorded heads do not match the reconstructed history")
	}
	if missing := doc.MissingDeps(); len(missing) > 0 {
		e.logger.Warnw("Changes with missing dependencies were skipped",
			"pending", len(doc.Pending()),
			"missing", len(missing),
		)
	}
	return &Result{Document: doc, Changes: changes, Size: len(data)}, nil
}

// Render writes changes to w. Interactive output is coloured and ends with a
// newline; plain output is uncoloured and does not.
func (e *Examiner) Render(w io.Writer, changes []automerge.ExpandedChange, interactive bool) error {
	if changes == nil {
		changes = []automerge.ExpandedChange{}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(changes); err != nil {
		return newError(KindRender, err)
	}

	palette := output.PlainPalette()
	if interactive {
		palette = output.ColorPalette()
	}
	if err := output.WriteTree(w, buf.Bytes(), palette, e.indent); err != nil {
		if errors.Is(err, output.ErrInvalidTree) {
			return newError(KindRender, err)
		}
		return newError(KindWrite, err)
	}
	if interactive {
		if _, err := io.WriteString(w, "\n"); err != nil {
			return newError(KindWrite, err)
		}
	}
	return nil
}

// Examine ingests r and renders its changes to w.
func (e *Examiner) Examine(r io.Reader, w io.Writer, interactive bool) error {
	res, err := e.Ingest(r)
	if err != nil {
		return err
	}
	return e.Render(w, res.Changes, interactive)
}

// Examine runs a default Examiner.
func Examine(r io.Reader, w io.Writer, interactive bool) error {
	return NewExaminer(Options{}).Examine(r, w, interactive)
}
