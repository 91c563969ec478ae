package automerge

import (
	"bytes"
	"slices"
	"testing"
)

var (
	actorA = ActorID{0xaa, 0xaa, 0xaa, 0xaa}
	actorB = ActorID{0xbb, 0xbb, 0xbb, 0xbb}
)

func oid(counter uint64, actor ActorID) OpID {
	return OpID{Counter: counter, Actor: actor}
}

func strPtr(s string) *string { return &s }

func mustChange(t testing.TB, opts ChangeOptions) *Change {
	t.Helper()
	c, err := EncodeChange(opts)
	if err != nil {
		t.Fatalf("EncodeChange: %v", err)
	}
	return c
}

func concat(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

// sampleHistory returns three changes: c1 by A, then c2 by A and c3 by B,
// both depending on c1. Together they cover list inserts and deletes,
// counters, text marks, messages and extra bytes.
func sampleHistory(t testing.TB) (c1, c2, c3 *Change) {
	t.Helper()
	list := oid(1, actorA)
	text := oid(6, actorB)

	c1 = mustChange(t, ChangeOptions{
		Actor:   actorA,
		Seq:     1,
		StartOp: 1,
		Time:    1_700_000_000_000,
		Message: "init",
		Ops: []Op{
			{Obj: OpID{}, Key: PropKey("todo"), Action: ActionMakeList},
			{Obj: list, Key: HeadKey(), Insert: true, Action: ActionSet, Value: StringValue("milk")},
			{Obj: list, Key: ElemKey(oid(2, actorA)), Insert: true, Action: ActionSet, Value: StringValue("eggs")},
			{Obj: OpID{}, Key: PropKey("count"), Action: ActionSet, Value: CounterValue(0)},
		},
	})
	c2 = mustChange(t, ChangeOptions{
		Actor:   actorA,
		Seq:     2,
		StartOp: 5,
		Time:    1_700_000_001_000,
		Deps:    []ChangeHash{c1.Hash()},
		Ops: []Op{
			{Obj: list, Key: ElemKey(oid(2, actorA)), Action: ActionDelete, Pred: []OpID{oid(2, actorA)}},
			{Obj: OpID{}, Key: PropKey("count"), Action: ActionIncrement, Value: IntValue(3), Pred: []OpID{oid(4, actorA)}},
		},
	})
	c3 = mustChange(t, ChangeOptions{
		Actor:   actorB,
		Seq:     1,
		StartOp: 5,
		Time:    1_700_000_002_000,
		Deps:    []ChangeHash{c1.Hash()},
		Extra:   []byte{0x01, 0x02},
		Ops: []Op{
			{Obj: OpID{}, Key: PropKey("title"), Action: ActionSet, Value: StringValue("groceries")},
			{Obj: OpID{}, Key: PropKey("notes"), Action: ActionMakeText},
			{Obj: text, Key: HeadKey(), Insert: true, Action: ActionSet, Value: StringValue("h")},
			{Obj: text, Key: ElemKey(oid(7, actorB)), Insert: true, Action: ActionMark, Value: BoolValue(true), Expand: true, MarkName: strPtr("bold")},
			{Obj: text, Key: ElemKey(oid(7, actorB)), Insert: true, Action: ActionMark},
		},
	})
	return c1, c2, c3
}

// saveDocument writes changes, which must be in causal order, as a single
// document chunk.
func saveDocument(t testing.TB, changes []*Change) []byte {
	t.Helper()
	return saveDocumentWithHeads(t, changes, headsOf(changes))
}

// saveDocumentWithHeads is saveDocument with the recorded heads overridden.
func saveDocumentWithHeads(t testing.TB, changes []*Change, heads []ChangeHash) []byte {
	t.Helper()

	var actors []ActorID
	for _, c := range changes {
		actors = append(actors, c.actor)
		for _, op := range c.ops {
			if !op.Obj.IsZero() {
				actors = append(actors, op.Obj.Actor)
			}
			if op.Key.IsElem() && op.Key.Elem.Counter != 0 {
				actors = append(actors, op.Key.Elem.Actor)
			}
			for _, p := range op.Pred {
				actors = append(actors, p.Actor)
			}
		}
	}
	slices.SortFunc(actors, func(a, b ActorID) int { return bytes.Compare(a, b) })
	actors = slices.CompactFunc(actors, func(a, b ActorID) bool { return bytes.Equal(a, b) })
	index := make(map[string]uint64, len(actors))
	for i, a := range actors {
		index[string(a)] = uint64(i)
	}

	position := make(map[ChangeHash]uint64, len(changes))
	for i, c := range changes {
		position[c.hash] = uint64(i)
	}

	chActor, chSeq, chMaxOp, chTime := ulebEncoder(), newDeltaEncoder(), newDeltaEncoder(), newDeltaEncoder()
	chMsg, chDepsGroup, chDepsIndex, chExtra := stringEncoder(), ulebEncoder(), newDeltaEncoder(), newValueEncoder()
	for _, c := range changes {
		chActor.append(index[string(c.actor)])
		chSeq.append(int64(c.seq))
		chMaxOp.append(int64(c.MaxOp()))
		chTime.append(c.time)
		if c.message != nil {
			chMsg.append(*c.message)
		} else {
			chMsg.appendNull()
		}
		chDepsGroup.append(uint64(len(c.deps)))
		for _, d := range c.deps {
			chDepsIndex.append(int64(position[d]))
		}
		if len(c.extra) > 0 {
			chExtra.append(BytesValue(c.extra))
		} else {
			chExtra.append(NullValue())
		}
	}
	changeCols := []encodedColumn{
		{colChangeActor, chActor.finish()},
		{colChangeSeq, chSeq.finish()},
		{colChangeMaxOp, chMaxOp.finish()},
		{colChangeTime, chTime.finish()},
		{colChangeMessage, chMsg.finish()},
		{colChangeDepsGroup, chDepsGroup.finish()},
		{colChangeDepsIndex, chDepsIndex.finish()},
		{colChangeExtraMeta, chExtra.meta.finish()},
		{colChangeExtraRaw, chExtra.raw},
	}

	succ := make(map[opKey][]OpID)
	for _, c := range changes {
		for j, op := range c.ops {
			opID := oid(c.startOp+uint64(j), c.actor)
			for _, p := range op.Pred {
				succ[keyOf(p)] = append(succ[keyOf(p)], opID)
			}
		}
	}

	objActor, objCtr := ulebEncoder(), ulebEncoder()
	keyActor, keyCtr, keyStr := ulebEncoder(), newDeltaEncoder(), stringEncoder()
	ids := newOpIDEncoder()
	insert, action, values := &boolEncoder{}, ulebEncoder(), newValueEncoder()
	succGroup, succIDs := ulebEncoder(), newOpIDEncoder()
	expand, markName := &boolEncoder{}, stringEncoder()
	hasMarks := false
	for _, c := range changes {
		for j, op := range c.ops {
			if op.Action == ActionDelete {
				continue
			}
			opID := oid(c.startOp+uint64(j), c.actor)
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
				keyActor.append(index[string(op.Key.Elem.Actor)])
				keyCtr.append(int64(op.Key.Elem.Counter))
				keyStr.appendNull()
			}
			ids.actor.append(index[string(opID.Actor)])
			ids.counter.append(int64(opID.Counter))
			insert.append(op.Insert)
			action.append(uint64(op.Action))
			values.append(op.Value)
			s := succ[keyOf(opID)]
			succGroup.append(uint64(len(s)))
			for _, sid := range s {
				succIDs.actor.append(index[string(sid.Actor)])
				succIDs.counter.append(int64(sid.Counter))
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
	}
	opCols := []encodedColumn{
		{colObjActor, objActor.finish()},
		{colObjCounter, objCtr.finish()},
		{colKeyActor, keyActor.finish()},
		{colKeyCounter, keyCtr.finish()},
		{colKeyString, keyStr.finish()},
		{colIDActor, ids.actor.finish()},
		{colIDCounter, ids.counter.finish()},
		{colInsert, insert.finish()},
		{colAction, action.finish()},
		{colValueMeta, values.meta.finish()},
		{colValueRaw, values.raw},
		{colSuccGroup, succGroup.finish()},
		{colSuccActor, succIDs.actor.finish()},
		{colSuccCount, succIDs.counter.finish()},
	}
	if hasMarks {
		opCols = append(opCols,
			encodedColumn{colExpand, expand.finish()},
			encodedColumn{colMarkName, markName.finish()},
		)
	}

	var data []byte
	data = appendUleb(data, uint64(len(actors)))
	for _, a := range actors {
		data = appendPrefixed(data, a)
	}
	data = appendUleb(data, uint64(len(heads)))
	for _, h := range heads {
		data = append(data, h[:]...)
	}
	data = appendColumnMeta(data, changeCols)
	data = appendColumnMeta(data, opCols)
	data = appendColumnData(data, changeCols)
	data = appendColumnData(data, opCols)
	for _, h := range heads {
		data = appendUleb(data, position[h])
	}

	raw, _ := encodeChunk(ChunkDocument, data)
	return raw
}

// compressChunk rewrites a change chunk as a compressed change chunk.
func compressChunk(t testing.TB, raw []byte) []byte {
	t.Helper()
	c, err := readChunk(raw, 0)
	if err != nil {
		t.Fatalf("readChunk: %v", err)
	}
	packed, err := deflate(c.data)
	if err != nil {
		t.Fatalf("deflate: %v", err)
	}
	hash := hashChunk(ChunkChange, c.data)
	out := append([]byte{}, magicBytes...)
	out = append(out, hash[:4]...)
	out = append(out, byte(ChunkCompressed))
	return appendPrefixed(out, packed)
}
