package automerge

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"slices"
	"time"
)

// Change is one parsed change: its metadata and its operations. A Change is
// immutable once loaded.
type Change struct {
	hash    ChangeHash
	actor   ActorID
	seq     uint64
	startOp uint64
	time    int64
	message *string
	deps    []ChangeHash
	ops     []Op
	extra   []byte
	raw     []byte
}

func (c *Change) Hash() ChangeHash   { return c.hash }
func (c *Change) Actor() ActorID     { return c.actor }
func (c *Change) Seq() uint64        { return c.seq }
func (c *Change) StartOp() uint64    { return c.startOp }
func (c *Change) Ops() []Op          { return c.ops }
func (c *Change) Deps() []ChangeHash { return c.deps }
func (c *Change) Extra() []byte      { return c.extra }

// Time returns the change timestamp in milliseconds since the Unix epoch.
func (c *Change) Time() int64 { return c.time }

// Timestamp returns Time as a time.Time.
func (c *Change) Timestamp() time.Time { return time.UnixMilli(c.time) }

// Message returns the commit message, if the change has one.
func (c *Change) Message() (string, bool) {
	if c.message == nil {
		return "", false
	}
	return *c.message, true
}

// MaxOp returns the counter of the last operation of the change.
func (c *Change) MaxOp() uint64 {
	if len(c.ops) == 0 {
		if c.startOp == 0 {
			return 0
		}
		return c.startOp - 1
	}
	return c.startOp + uint64(len(c.ops)) - 1
}

// Bytes returns the uncompressed change chunk, header included.
func (c *Change) Bytes() []byte { return c.raw }

// ChangeOptions describes a change for EncodeChange.
type ChangeOptions struct {
	Actor   ActorID
	Seq     uint64
	StartOp uint64
	// Time is in milliseconds since the Unix epoch.
	Time    int64
	Message string
	Deps    []ChangeHash
	Ops     []Op
	Extra   []byte
}

// EncodeChange serializes opts as a change chunk and parses it back, so the
// returned change carries its hash and raw bytes.
func EncodeChange(opts ChangeOptions) (*Change, error) {
	data, err := encodeChangeData(opts)
	if err != nil {
		return nil, err
	}
	raw, hash := encodeChunk(ChunkChange, data)
	return parseChange(data, raw, hash)
}

func encodeChangeData(opts ChangeOptions) ([]byte, error) {
	if len(opts.Actor) == 0 {
		return nil, errors.New("encode change: empty actor id")
	}

	deps := slices.Clone(opts.Deps)
	slices.SortFunc(deps, compareHashes)
	deps = slices.Compact(deps)

	others := otherActors(opts.Actor, opts.Ops)
	index := map[string]uint64{string(opts.Actor): 0}
	for i, a := range others {
		index[string(a)] = uint64(i + 1)
	}

	var buf []byte
	buf = appendUleb(buf, uint64(len(deps)))
	for _, d := range deps {
		buf = append(buf, d[:]...)
	}
	buf = appendPrefixed(buf, opts.Actor)
	buf = appendUleb(buf, opts.Seq)
	buf = appendUleb(buf, opts.StartOp)
	buf = appendSleb(buf, opts.Time)
	buf = appendPrefixed(buf, []byte(opts.Message))
	buf = appendUleb(buf, uint64(len(others)))
	for _, a := range others {
		buf = appendPrefixed(buf, a)
	}

	cols, err := encodeChangeOps(opts.Ops, index)
	if err != nil {
		return nil, err
	}
	buf = appendColumns(buf, cols)
	return append(buf, opts.Extra...), nil
}

// otherActors lists the actors referenced by ops, other than the author, in
// lexicographic order.
func otherActors(author ActorID, ops []Op) []ActorID {
	var out []ActorID
	add := func(a ActorID) {
		if len(a) > 0 && !bytes.Equal(a, author) {
			out = append(out, a)
		}
	}
	for _, op := range ops {
		add(op.Obj.Actor)
		if op.Key.IsElem() {
			add(op.Key.Elem.Actor)
		}
		for _, p := range op.Pred {
			add(p.Actor)
		}
	}
	slices.SortFunc(out, func(a, b ActorID) int { return bytes.Compare(a, b) })
	return slices.CompactFunc(out, func(a, b ActorID) bool { return bytes.Equal(a, b) })
}

func encodeChangeOps(ops []Op, index map[string]uint64) ([]encodedColumn, error) {
	objActor, objCtr := ulebEncoder(), ulebEncoder()
	keyActor, keyCtr, keyStr := ulebEncoder(), newDeltaEncoder(), stringEncoder()
	insert := &boolEncoder{}
	action := ulebEncoder()
	values := newValueEncoder()
	predGroup := ulebEncoder()
	pred := newOpIDEncoder()
	expand := &boolEncoder{}
	markName := stringEncoder()
	hasMarks := false

	counter := func(id OpID) (int64, error) {
		if id.Counter > math.MaxInt64 {
			return 0, fmt.Errorf("encode change: counter %d out of range", id.Counter)
		}
		return int64(id.Counter), nil
	}

	for _, op := range ops {
		if op.Obj.IsZero() {
			objActor.appendNull()
			objCtr.appendNull()
		} else {
			objActor.append(index[string(op.Obj.Actor)])
			objCtr.append(op.Obj.Counter)
		}

		switch {
		case !op.Key.IsElem():
			keyActor.appendNull()
			keyCtr.appendNull()
			keyStr.append(op.Key.Prop)
		case op.Key.Elem.Counter == 0:
			keyActor.appendNull()
			keyCtr.append(0)
			keyStr.appendNull()
		default:
			c, err := counter(*op.Key.Elem)
			if err != nil {
				return nil, err
			}
			keyActor.append(index[string(op.Key.Elem.Actor)])
			keyCtr.append(c)
			keyStr.appendNull()
		}

		insert.append(op.Insert)
		action.append(uint64(op.Action))
		values.append(op.Value)

		preds := slices.Clone(op.Pred)
		slices.SortFunc(preds, compareOpIDs)
		predGroup.append(uint64(len(preds)))
		for _, p := range preds {
			c, err := counter(p)
			if err != nil {
				return nil, err
			}
			pred.actor.append(index[string(p.Actor)])
			pred.counter.append(c)
		}

		if op.Action == ActionMark {
			hasMarks = true
		}
		expand.append(op.Expand)
		if op.MarkName != nil {
			markName.append(*op.MarkName)
		} else {
			markName.appendNull()
		}
	}

	cols := []encodedColumn{
		{colObjActor, objActor.finish()},
		{colObjCounter, objCtr.finish()},
		{colKeyActor, keyActor.finish()},
		{colKeyCounter, keyCtr.finish()},
		{colKeyString, keyStr.finish()},
		{colInsert, insert.finish()},
		{colAction, action.finish()},
		{colValueMeta, values.meta.finish()},
		{colValueRaw, values.raw},
		{colPredGroup, predGroup.finish()},
		{colPredActor, pred.actor.finish()},
		{colPredCount, pred.counter.finish()},
	}
	if hasMarks {
		cols = append(cols,
			encodedColumn{colExpand, expand.finish()},
			encodedColumn{colMarkName, markName.finish()},
		)
	}
	return cols, nil
}

func parseChange(data, raw []byte, hash ChangeHash) (*Change, error) {
	r := newReader(data)

	ndeps, err := r.uleb()
	if err != nil {
		return nil, fmt.Errorf("deps: %w", err)
	}
	if ndeps > uint64(r.remaining()/len(ChangeHash{})) {
		return nil, fmt.Errorf("deps: %w", ErrTruncated)
	}
	deps := make([]ChangeHash, ndeps)
	for i := range deps {
		b, err := r.bytes(len(ChangeHash{}))
		if err != nil {
			return nil, fmt.Errorf("deps: %w", err)
		}
		copy(deps[i][:], b)
	}

	actor, err := r.prefixed()
	if err != nil {
		return nil, fmt.Errorf("actor: %w", err)
	}
	if len(actor) == 0 {
		return nil, fmt.Errorf("actor: %w: empty actor id", ErrMalformed)
	}
	seq, err := r.uleb()
	if err != nil {
		return nil, fmt.Errorf("seq: %w", err)
	}
	startOp, err := r.uleb()
	if err != nil {
		return nil, fmt.Errorf("start op: %w", err)
	}
	ts, err := r.sleb()
	if err != nil {
		return nil, fmt.Errorf("time: %w", err)
	}
	msg, err := r.str()
	if err != nil {
		return nil, fmt.Errorf("message: %w", err)
	}

	nothers, err := r.uleb()
	if err != nil {
		return nil, fmt.Errorf("actors: %w", err)
	}
	if nothers > uint64(r.remaining()) {
		return nil, fmt.Errorf("actors: %w", ErrTruncated)
	}
	actors := make(actorTable, 0, nothers+1)
	actors = append(actors, ActorID(actor))
	for i := uint64(0); i < nothers; i++ {
		a, err := r.prefixed()
		if err != nil {
			return nil, fmt.Errorf("actors: %w", err)
		}
		actors = append(actors, ActorID(a))
	}

	metas, err := readColumnLayout(r)
	if err != nil {
		return nil, fmt.Errorf("op columns: %w", err)
	}
	cols, err := readColumns(r, metas)
	if err != nil {
		return nil, fmt.Errorf("op columns: %w", err)
	}
	ops, err := decodeChangeOps(cols, actors)
	if err != nil {
		return nil, fmt.Errorf("ops: %w", err)
	}
	if len(ops) > 0 && startOp+uint64(len(ops))-1 < startOp {
		return nil, fmt.Errorf("ops: %w: op counters overflow", ErrMalformed)
	}

	c := &Change{
		hash:    hash,
		actor:   ActorID(actor),
		seq:     seq,
		startOp: startOp,
		time:    ts,
		deps:    deps,
		ops:     ops,
		extra:   r.rest(),
		raw:     raw,
	}
	if msg != "" {
		c.message = &msg
	}
	return c, nil
}

func decodeChangeOps(cols columnSet, actors actorTable) ([]Op, error) {
	obj := &opIDDecoder{actor: ulebDecoder(cols.reader(colObjActor)), intCtr: ulebDecoder(cols.reader(colObjCounter))}
	keyActor := ulebDecoder(cols.reader(colKeyActor))
	keyCtr := newDeltaDecoder(cols.reader(colKeyCounter))
	keyStr := stringDecoder(cols.reader(colKeyString))
	insert := newBoolDecoder(cols.reader(colInsert))
	action := ulebDecoder(cols.reader(colAction))
	values := newValueDecoder(cols.reader(colValueMeta), cols.reader(colValueRaw))
	predGroup := ulebDecoder(cols.reader(colPredGroup))
	pred := &opIDDecoder{actor: ulebDecoder(cols.reader(colPredActor)), counter: newDeltaDecoder(cols.reader(colPredCount))}
	expand := newBoolDecoder(cols.reader(colExpand))
	markName := stringDecoder(cols.reader(colMarkName))

	limit := cols.rowLimit()
	var ops []Op
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
		op := Op{Action: Action(a)}

		if op.Obj, _, err = obj.readOpID(actors); err != nil {
			return nil, err
		}
		if op.Key, err = readKey(keyActor, keyCtr, keyStr, actors); err != nil {
			return nil, err
		}
		if op.Insert, err = insert.next(); err != nil {
			return nil, err
		}
		if op.Value, err = values.next(); err != nil {
			return nil, err
		}
		if op.Pred, err = readOpIDGroup(predGroup, pred, actors, limit); err != nil {
			return nil, err
		}
		if op.Expand, err = expand.next(); err != nil {
			return nil, err
		}
		name, ok, err := markName.next()
		if err != nil {
			return nil, err
		}
		if ok {
			op.MarkName = &name
		}
		ops = append(ops, op)
	}
	return ops, nil
}

// readOpIDGroup reads a group count followed by that many op ids.
func readOpIDGroup(group *rleDecoder[uint64], ids *opIDDecoder, actors actorTable, limit uint64) ([]OpID, error) {
	n, _, err := group.next()
	if err != nil {
		return nil, err
	}
	if n > limit {
		return nil, fmt.Errorf("%w: group of %d ids", ErrMalformed, n)
	}
	out := make([]OpID, 0, min(n, 16))
	for i := uint64(0); i < n; i++ {
		id, ok, err := ids.readOpID(actors)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("%w: null id in group", ErrMalformed)
		}
		out = append(out, id)
	}
	return out, nil
}

func readKey(actor *rleDecoder[uint64], ctr *deltaDecoder, str *rleDecoder[string], actors actorTable) (Key, error) {
	a, aok, err := actor.next()
	if err != nil {
		return Key{}, err
	}
	c, cok, err := ctr.nextCounter()
	if err != nil {
		return Key{}, err
	}
	s, sok, err := str.next()
	if err != nil {
		return Key{}, err
	}
	switch {
	case sok && !aok && !cok:
		return PropKey(s), nil
	case sok:
		return Key{}, fmt.Errorf("%w: key is both a property and an element", ErrMalformed)
	case cok && !aok:
		if c != 0 {
			return Key{}, fmt.Errorf("%w: element counter %d without actor", ErrMalformed, c)
		}
		return HeadKey(), nil
	case cok:
		id, err := actors.get(a)
		if err != nil {
			return Key{}, err
		}
		return ElemKey(OpID{Counter: c, Actor: id}), nil
	default:
		return Key{}, fmt.Errorf("%w: op without key", ErrMalformed)
	}
}
