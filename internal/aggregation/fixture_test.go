package aggregation

import (
	"testing"
	"time"

	"github.com/masmgr/amexamine/internal/automerge"
)

var (
	actorA = automerge.ActorID{0x0a, 0x0a, 0x0a, 0x0a}
	actorB = automerge.ActorID{0x0b, 0x0b, 0x0b, 0x0b}

	baseTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
)

func mustChange(t testing.TB, opts automerge.ChangeOptions) *automerge.Change {
	t.Helper()
	c, err := automerge.EncodeChange(opts)
	if err != nil {
		t.Fatalf("EncodeChange: %v", err)
	}
	return c
}

// sampleChanges returns a1 and a2 by actor A and b1 by actor B. a2 and b1
// both depend on a1 only, so the document has two heads.
func sampleChanges(t testing.TB) (a1, a2, b1 *automerge.Change) {
	t.Helper()
	list := automerge.OpID{Counter: 2, Actor: actorA}

	a1 = mustChange(t, automerge.ChangeOptions{
		Actor:   actorA,
		Seq:     1,
		StartOp: 1,
		Time:    baseTime.UnixMilli(),
		Ops: []automerge.Op{
			{Key: automerge.PropKey("title"), Action: automerge.ActionSet, Value: automerge.StringValue("draft")},
			{Key: automerge.PropKey("items"), Action: automerge.ActionMakeList},
		},
	})
	a2 = mustChange(t, automerge.ChangeOptions{
		Actor:   actorA,
		Seq:     2,
		StartOp: 3,
		Time:    baseTime.Add(2 * time.Minute).UnixMilli(),
		Deps:    []automerge.ChangeHash{a1.Hash()},
		Ops: []automerge.Op{
			{Obj: list, Key: automerge.HeadKey(), Insert: true, Action: automerge.ActionSet, Value: automerge.StringValue("x")},
		},
	})
	b1 = mustChange(t, automerge.ChangeOptions{
		Actor:   actorB,
		Seq:     1,
		StartOp: 3,
		Time:    baseTime.Add(time.Minute).UnixMilli(),
		Deps:    []automerge.ChangeHash{a1.Hash()},
		Ops: []automerge.Op{
			{
				Key:    automerge.PropKey("title"),
				Action: automerge.ActionSet,
				Value:  automerge.StringValue("final"),
				Pred:   []automerge.OpID{{Counter: 1, Actor: actorA}},
			},
		},
	})
	return a1, a2, b1
}
