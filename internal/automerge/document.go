package automerge

import (
	"bytes"
	"fmt"
	"slices"
)

// Document is the change history reconstructed from a saved buffer. It is
// read-only: Load is the only way to populate one.
type Document struct {
	history       []*Change
	index         map[ChangeHash]int
	pending       []*Change
	pendingSet    map[ChangeHash]bool
	chunks        []ChunkInfo
	headsVerified bool
}

// Load parses a buffer holding any sequence of document, change and
// compressed change chunks. Changes are applied in order; a change whose
// dependencies have not been seen yet is held back until they arrive, and
// stays out of the history if they never do.
func Load(data []byte) (*Document, error) {
	if len(data) == 0 {
		return nil, ErrEmptyInput
	}

	d := &Document{
		index:         make(map[ChangeHash]int),
		pendingSet:    make(map[ChangeHash]bool),
		headsVerified: true,
	}
	for off := 0; off < len(data); {
		c, err := readChunk(data, off)
		if err != nil {
			return nil, fmt.Errorf("chunk at offset %d: %w", off, err)
		}

		var changes []*Change
		switch c.typ {
		case ChunkDocument:
			dc, err := parseDocumentChunk(c.data)
			if err != nil {
				return nil, fmt.Errorf("document chunk at offset %d: %w", off, err)
			}
			var verified bool
			if changes, verified, err = dc.reconstruct(); err != nil {
				return nil, fmt.Errorf("document chunk at offset %d: %w", off, err)
			}
			d.headsVerified = d.headsVerified && verified
		case ChunkChange, ChunkCompressed:
			raw := data[off : off+c.size]
			if c.typ == ChunkCompressed {
				raw, _ = encodeChunk(ChunkChange, c.data)
			}
			ch, err := parseChange(c.data, raw, hashChunk(ChunkChange, c.data))
			if err != nil {
				return nil, fmt.Errorf("%s chunk at offset %d: %w", c.typ, off, err)
			}
			changes = []*Change{ch}
		}

		d.chunks = append(d.chunks, ChunkInfo{Type: c.typ, Offset: off, Size: c.size, Changes: len(changes)})
		for _, ch := range changes {
			d.apply(ch)
		}
		off += c.size
	}
	return d, nil
}

func (d *Document) apply(c *Change) {
	if _, ok := d.index[c.hash]; ok || d.pendingSet[c.hash] {
		return
	}
	if !d.ready(c) {
		d.pending = append(d.pending, c)
		d.pendingSet[c.hash] = true
		return
	}
	d.push(c)

	for progress := true; progress; {
		progress = false
		for i := 0; i < len(d.pending); i++ {
			p := d.pending[i]
			if !d.ready(p) {
				continue
			}
			d.pending = slices.Delete(d.pending, i, i+1)
			delete(d.pendingSet, p.hash)
			d.push(p)
			progress = true
			i--
		}
	}
}

func (d *Document) ready(c *Change) bool {
	for _, dep := range c.deps {
		if _, ok := d.index[dep]; !ok {
			return false
		}
	}
	return true
}

func (d *Document) push(c *Change) {
	d.index[c.hash] = len(d.history)
	d.history = append(d.history, c)
}

// Changes returns the changes that are not in the causal past of have, in
// history order. With no hashes it returns the whole history. Unknown hashes
// are ignored.
func (d *Document) Changes(have []ChangeHash) []*Change {
	if len(have) == 0 {
		return slices.Clone(d.history)
	}

	seen := make([]bool, len(d.history))
	var stack []int
	for _, h := range have {
		if i, ok := d.index[h]; ok {
			stack = append(stack, i)
		}
	}
	for len(stack) > 0 {
		i := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[i] {
			continue
		}
		seen[i] = true
		for _, dep := range d.history[i].deps {
			stack = append(stack, d.index[dep])
		}
	}

	var out []*Change
	for i, c := range d.history {
		if !seen[i] {
			out = append(out, c)
		}
	}
	return out
}

// Change returns the change with the given hash.
func (d *Document) Change(h ChangeHash) (*Change, bool) {
	i, ok := d.index[h]
	if !ok {
		return nil, false
	}
	return d.history[i], true
}

// Heads returns the hashes of the changes no other change depends on, sorted.
func (d *Document) Heads() []ChangeHash {
	return headsOf(d.history)
}

// Actors returns the distinct authors of the history, sorted.
func (d *Document) Actors() []ActorID {
	var actors []ActorID
	for _, c := range d.history {
		actors = append(actors, c.actor)
	}
	slices.SortFunc(actors, func(a, b ActorID) int { return bytes.Compare(a, b) })
	return slices.CompactFunc(actors, func(a, b ActorID) bool { return bytes.Equal(a, b) })
}

// Chunks describes the chunks the buffer was made of, in order.
func (d *Document) Chunks() []ChunkInfo {
	return slices.Clone(d.chunks)
}

// Pending returns the changes held back because their dependencies are missing.
func (d *Document) Pending() []*Change {
	return slices.Clone(d.pending)
}

// MissingDeps returns the dependencies of pending changes that are absent
// from the buffer, sorted.
func (d *Document) MissingDeps() []ChangeHash {
	var missing []ChangeHash
	for _, c := range d.pending {
		for _, dep := range c.deps {
			if _, ok := d.index[dep]; !ok && !d.pendingSet[dep] {
				missing = append(missing, dep)
			}
		}
	}
	slices.SortFunc(missing, compareHashes)
	return slices.Compact(missing)
}

// HeadsVerified reports whether the heads recorded in every document chunk
// matched the heads recomputed from its reconstructed changes.
func (d *Document) HeadsVerified() bool {
	return d.headsVerified
}

// SaveChanges concatenates the change chunks of changes. Load accepts the
// result, whatever the order of changes.
func SaveChanges(changes []*Change) []byte {
	var buf []byte
	for _, c := range changes {
		buf = append(buf, c.raw...)
	}
	return buf
}
