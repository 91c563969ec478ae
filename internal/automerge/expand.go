package automerge

import "encoding/hex"

// ExpandedChange is the decoded, human-inspectable form of a change. Field
// order is the serialization order.
type ExpandedChange struct {
	Ops        []ExpandedOp `json:"ops"`
	Actor      string       `json:"actor"`
	Hash       string       `json:"hash"`
	Seq        uint64       `json:"seq"`
	StartOp    uint64       `json:"startOp"`
	Time       int64        `json:"time"`
	Message    *string      `json:"message"`
	Deps       []string     `json:"deps"`
	ExtraBytes string       `json:"extraBytes"`
}

// ExpandedOp is the decoded form of an operation. Key is set for map
// operations and ElemID for list operations; Value is set for operations
// that carry one, even when the value is null.
type ExpandedOp struct {
	Action   string       `json:"action"`
	Obj      string       `json:"obj"`
	Key      *string      `json:"key,omitempty"`
	ElemID   *string      `json:"elemId,omitempty"`
	Insert   bool         `json:"insert"`
	Value    *ScalarValue `json:"value,omitempty"`
	Datatype string       `json:"datatype,omitempty"`
	Name     *string      `json:"name,omitempty"`
	Expand   *bool        `json:"expand,omitempty"`
	Pred     []string     `json:"pred"`
}

// Decode expands the change. It cannot fail: every field was validated when
// the change was parsed.
func (c *Change) Decode() ExpandedChange {
	ops := make([]ExpandedOp, len(c.ops))
	for i, op := range c.ops {
		ops[i] = expandOp(op)
	}
	deps := make([]string, len(c.deps))
	for i, d := range c.deps {
		deps[i] = d.String()
	}
	var msg *string
	if c.message != nil {
		m := *c.message
		msg = &m
	}
	return ExpandedChange{
		Ops:        ops,
		Actor:      c.actor.String(),
		Hash:       c.hash.String(),
		Seq:        c.seq,
		StartOp:    c.startOp,
		Time:       c.time,
		Message:    msg,
		Deps:       deps,
		ExtraBytes: hex.EncodeToString(c.extra),
	}
}

func expandOp(op Op) ExpandedOp {
	e := ExpandedOp{
		Action: op.ActionName(),
		Obj:    objString(op.Obj),
		Insert: op.Insert,
		Pred:   make([]string, len(op.Pred)),
	}
	if op.Key.IsElem() {
		elem := op.Key.elemString()
		e.ElemID = &elem
	} else {
		prop := op.Key.Prop
		e.Key = &prop
	}
	if op.hasValue() {
		v := op.Value
		e.Value = &v
		e.Datatype = v.Datatype()
	}
	if op.Action == ActionMark {
		expand := op.Expand
		e.Expand = &expand
		if op.MarkName != nil {
			name := *op.MarkName
			e.Name = &name
		}
	}
	for i, p := range op.Pred {
		e.Pred[i] = p.String()
	}
	return e
}
