package automerge

import (
	"fmt"
	"slices"
	"sort"
)

// docChunk is the columnar form of a saved document. Changes are stored as
// metadata rows and ops are stored once for the whole document, with
// successors instead of predecessors and without delete ops.
type docChunk struct {
	actors      actorTable
	heads       []ChangeHash
	changes     []docChange
	ops         []docOp
	headIndexes []uint64
}

type docChange struct {
	actor   uint64
	seq     uint64
	maxOp   uint64
	time    int64
	message string
	deps    []uint64
	extra   []byte
}

type docOp struct {
	id       OpID
	obj      OpID
	key      Key
	insert   bool
	action   Action
	value    ScalarValue
	succ     []OpID
	expand   bool
	markName *string
}

type opKey struct {
	actor   string
	counter uint64
}

func keyOf(id OpID) opKey {
	return opKey{actor: string(id.Actor), counter: id.Counter}
}

func parseDocumentChunk(data []byte) (*docChunk, error) {
	r := newReader(data)
	d := &docChunk{}

	nactors, err := r.uleb()
	if err != nil {
		return nil, fmt.Errorf("actors: %w", err)
	}
	if nactors > uint64(r.remaining()) {
		return nil, fmt.Errorf("actors: %w", ErrTruncated)
	}
	for i := uint64(0); i < nactors; i++ {
		a, err := r.prefixed()
		if err != nil {
			return nil, fmt.Errorf("actors: %w", err)
		}
		if len(a) == 0 {
			return nil, fmt.Errorf("actors: %w: empty actor id", ErrMalformed)
		}
		d.actors = append(d.actors, ActorID(a))
	}

	nheads, err := r.uleb()
	if err != nil {
		return nil, fmt.Errorf("heads: %w", err)
	}
	if nheads > uint64(r.remaining()/len(ChangeHash{})) {
		return nil, fmt.Errorf("heads: %w", ErrTruncated)
	}
	d.heads = make([]ChangeHash, nheads)
	for i := range d.heads {
		b, err := r.bytes(len(ChangeHash{}))
		if err != nil {
			return nil, fmt.Errorf("heads: %w", err)
		}
		copy(d.heads[i][:], b)
	}

	changeMetas, err := readColumnLayout(r)
	if err != nil {
		return nil, fmt.Errorf("change columns: %w", err)
	}
	opMetas, err := readColumnLayout(r)
	if err != nil {
		return nil, fmt.Errorf("op columns: %w", err)
	}
	changeCols, err := readColumns(r, changeMetas)
	if err != nil {
		return nil, fmt.Errorf("change columns: %w", err)
	}
	opCols, err := readColumns(r, opMetas)
	if err != nil {
		return nil, fmt.Errorf("op columns: %w", err)
	}

	if !r.done() {
		for range d.heads {
			idx, err := r.uleb()
			if err != nil {
				return nil, fmt.Errorf("head indexes: %w", err)
			}
			d.headIndexes = append(d.headIndexes, idx)
		}
		if !r.done() {
			return nil, fmt.Errorf("%w: %d trailing bytes in document chunk", ErrMalformed, r.remaining())
		}
	}

	if d.changes, err = decodeDocChanges(changeCols, d.actors); err != nil {
		return nil, fmt.Errorf("changes: %w", err)
	}
	if d.ops, err = decodeDocOps(opCols, d.actors); err != nil {
		return nil, fmt.Errorf("ops: %w", err)
	}
	return d, nil
}

func decodeDocChanges(cols columnSet, actors actorTable) ([]docChange, error) {
	actor := ulebDecoder(cols.reader(colChangeActor))
	seq := newDeltaDecoder(cols.reader(colChangeSeq))
	maxOp := newDeltaDecoder(cols.reader(colChangeMaxOp))
	tm := newDeltaDecoder(cols.reader(colChangeTime))
	msg := stringDecoder(cols.reader(colChangeMessage))
	depsGroup := ulebDecoder(cols.reader(colChangeDepsGroup))
	depsIndex := newDeltaDecoder(cols.reader(colChangeDepsIndex))
	extra := newValueDecoder(cols.reader(colChangeExtraMeta), cols.reader(colChangeExtraRaw))

	limit := cols.rowLimit()
	var out []docChange
	for !actor.done() {
		if uint64(len(out)) >= limit {
			return nil, fmt.Errorf("%w: more than %d changes", ErrMalformed, limit)
		}
		var c docChange
		var ok bool
		var err error

		if c.actor, ok, err = actor.next(); err != nil {
			return nil, err
		} else if !ok {
			return nil, fmt.Errorf("%w: change %d has no actor", ErrMalformed, len(out))
		}
		if _, err := actors.get(c.actor); err != nil {
			return nil, err
		}
		if c.seq, ok, err = seq.nextCounter(); err != nil {
			return nil, err
		} else if !ok {
			return nil, fmt.Errorf("%w: change %d has no seq", ErrMalformed, len(out))
		}
		if c.maxOp, ok, err = maxOp.nextCounter(); err != nil {
			return nil, err
		} else if !ok {
			return nil, fmt.Errorf("%w: change %d has no max op", ErrMalformed, len(out))
		}
		if c.time, _, err = tm.next(); err != nil {
			return nil, err
		}
		if c.message, _, err = msg.next(); err != nil {
			return nil, err
		}

		n, _, err := depsGroup.next()
		if err != nil {
			return nil, err
		}
		if n > uint64(len(out)) {
			return nil, fmt.Errorf("%w: change %d has %d deps but only %d earlier changes", ErrMalformed, len(out), n, len(out))
		}
		for i := uint64(0); i < n; i++ {
			dep, ok, err := depsIndex.nextCounter()
			if err != nil {
				return nil, err
			}
			if !ok {
				return nil, fmt.Errorf("%w: null dependency index", ErrMalformed)
			}
			c.deps = append(c.deps, dep)
		}

		ev, err := extra.next()
		if err != nil {
			return nil, err
		}
		switch ev.Type {
		case ValueNull:
		case ValueBytes:
			c.extra = ev.Bytes
		default:
			return nil, fmt.Errorf("%w: extra bytes stored as %s", ErrMalformed, ev.Datatype())
		}
		out = append(out, c)
	}
	return out, nil
}

func decodeDocOps(cols columnSet, actors actorTable) ([]docOp, error) {
	obj := &opIDDecoder{actor: ulebDecoder(cols.reader(colObjActor)), intCtr: ulebDecoder(cols.reader(colObjCounter))}
	keyActor := ulebDecoder(cols.reader(colKeyActor))
	keyCtr := newDeltaDecoder(cols.reader(colKeyCounter))
	keyStr := stringDecoder(cols.reader(colKeyString))
	id := &opIDDecoder{actor: ulebDecoder(cols.reader(colIDActor)), counter: newDeltaDecoder(cols.reader(colIDCounter))}
	insert := newBoolDecoder(cols.reader(colInsert))
	action := ulebDecoder(cols.reader(colAction))
	values := newValueDecoder(cols.reader(colValueMeta), cols.reader(colValueRaw))
	succGroup := ulebDecoder(cols.reader(colSuccGroup))
	succ := &opIDDecoder{actor: ulebDecoder(cols.reader(colSuccActor)), counter: newDeltaDecoder(cols.reader(colSuccCount))}
	expand := newBoolDecoder(cols.reader(colExpand))
	markName := stringDecoder(cols.reader(colMarkName))

	limit := cols.rowLimit()
	var ops []docOp
	for !action.done() {
		if uint64(len(ops)) >= limit {
			return nil, fmt.Errorf("%w: more than %d ops", ErrMalformed, limit)
		}
		a, ok, err := action.next()
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("%w: op %d has no action", ErrMalformed, len(ops))
		}
		op := docOp{action: Action(a)}

		if op.obj, _, err = obj.readOpID(actors); err != nil {
			return nil, err
		}
		if op.key, err = readKey(keyActor, keyCtr, keyStr, actors); err != nil {
			return nil, err
		}
		if op.id, ok, err = id.readOpID(actors); err != nil {
			return nil, err
		} else if !ok || op.id.Counter == 0 {
			return nil, fmt.Errorf("%w: op %d has no id", ErrMalformed, len(ops))
		}
		if op.insert, err = insert.next(); err != nil {
			return nil, err
		}
		if op.value, err = values.next(); err != nil {
			return nil, err
		}
		if op.succ, err = readOpIDGroup(succGroup, succ, actors, limit); err != nil {
			return nil, err
		}
		if op.expand, err = expand.next(); err != nil {
			return nil, err
		}
		name, ok, err := markName.next()
		if err != nil {
			return nil, err
		}
		if ok {
			op.markName = &name
		}
		ops = append(ops, op)
	}
	return ops, nil
}

// reconstruct rebuilds the changes of the document, in storage order. Delete
// ops are recovered from successors that name no stored op, and predecessors
// from the inverse of the successor lists. It also reports whether the
// recomputed heads match the heads recorded in the chunk.
func (d *docChunk) reconstruct() ([]*Change, bool, error) {
	byActor := make(map[string][]int)
	for i, c := range d.changes {
		a := string(d.actors[c.actor])
		if list := byActor[a]; len(list) > 0 && d.changes[list[len(list)-1]].maxOp > c.maxOp {
			return nil, false, fmt.Errorf("%w: change %d moves max op of actor %s backwards", ErrMalformed, i, d.actors[c.actor])
		}
		byActor[a] = append(byActor[a], i)
	}

	owner := func(id OpID) (int, error) {
		list := byActor[string(id.Actor)]
		j := sort.Search(len(list), func(j int) bool { return d.changes[list[j]].maxOp >= id.Counter })
		if j == len(list) {
			return 0, fmt.Errorf("%w: op %s belongs to no change", ErrMalformed, id)
		}
		return list[j], nil
	}

	stored := make(map[opKey]struct{}, len(d.ops))
	for _, op := range d.ops {
		k := keyOf(op.id)
		if _, dup := stored[k]; dup {
			return nil, false, fmt.Errorf("%w: duplicate op id %s", ErrMalformed, op.id)
		}
		stored[k] = struct{}{}
	}

	type idOp struct {
		id OpID
		op Op
	}
	perChange := make([][]idOp, len(d.changes))
	preds := make(map[opKey][]OpID)
	deletes := make(map[opKey]bool)

	for _, op := range d.ops {
		for _, s := range op.succ {
			k := keyOf(s)
			preds[k] = append(preds[k], op.id)
			if _, ok := stored[k]; ok || deletes[k] {
				continue
			}
			deletes[k] = true
			target := op.key
			if op.insert {
				target = ElemKey(op.id)
			}
			ci, err := owner(s)
			if err != nil {
				return nil, false, err
			}
			perChange[ci] = append(perChange[ci], idOp{id: s, op: Op{Obj: op.obj, Key: target, Action: ActionDelete}})
		}
		ci, err := owner(op.id)
		if err != nil {
			return nil, false, err
		}
		perChange[ci] = append(perChange[ci], idOp{id: op.id, op: Op{
			Obj:      op.obj,
			Key:      op.key,
			Insert:   op.insert,
			Action:   op.action,
			Value:    op.value,
			Expand:   op.expand,
			MarkName: op.markName,
		}})
	}

	changes := make([]*Change, len(d.changes))
	for i, meta := range d.changes {
		ops := perChange[i]
		slices.SortFunc(ops, func(a, b idOp) int { return compareOpIDs(a.id, b.id) })
		if uint64(len(ops)) > meta.maxOp {
			return nil, false, fmt.Errorf("%w: change %d has %d ops but max op %d", ErrMalformed, i, len(ops), meta.maxOp)
		}
		startOp := meta.maxOp - uint64(len(ops)) + 1

		out := make([]Op, len(ops))
		for j, o := range ops {
			if o.id.Counter != startOp+uint64(j) {
				return nil, false, fmt.Errorf("%w: change %d is missing op %d@%s", ErrMalformed, i, startOp+uint64(j), d.actors[meta.actor])
			}
			o.op.Pred = preds[keyOf(o.id)]
			out[j] = o.op
		}

		deps := make([]ChangeHash, 0, len(meta.deps))
		for _, idx := range meta.deps {
			if idx >= uint64(i) {
				return nil, false, fmt.Errorf("%w: change %d depends on change %d", ErrMalformed, i, idx)
			}
			deps = append(deps, changes[idx].hash)
		}

		c, err := EncodeChange(ChangeOptions{
			Actor:   d.actors[meta.actor],
			Seq:     meta.seq,
			StartOp: startOp,
			Time:    meta.time,
			Message: meta.message,
			Deps:    deps,
			Ops:     out,
			Extra:   meta.extra,
		})
		if err != nil {
			return nil, false, fmt.Errorf("change %d: %w", i, err)
		}
		changes[i] = c
	}

	return changes, headsMatch(d.heads, headsOf(changes)), nil
}

// headsOf returns the sorted hashes no other change depends on.
func headsOf(changes []*Change) []ChangeHash {
	depended := make(map[ChangeHash]bool)
	for _, c := range changes {
		for _, dep := range c.deps {
			depended[dep] = true
		}
	}
	var heads []ChangeHash
	for _, c := range changes {
		if !depended[c.hash] {
			heads = append(heads, c.hash)
		}
	}
	slices.SortFunc(heads, compareHashes)
	return heads
}

func headsMatch(stored, computed []ChangeHash) bool {
	s := slices.Clone(stored)
	slices.SortFunc(s, compareHashes)
	return slices.Equal(s, computed)
}
