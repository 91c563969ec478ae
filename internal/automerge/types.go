package automerge

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"strconv"
)

// ChangeHash is the SHA-256 hash identifying a change.
type ChangeHash [32]byte

// String returns the lowercase hex form of the hash.
func (h ChangeHash) String() string {
	return hex.EncodeToString(h[:])
}

// ParseChangeHash parses a 64-character hex string.
func ParseChangeHash(s string) (ChangeHash, error) {
	var h ChangeHash
	b, err := hex.DecodeString(s)
	if err != nil {
		return h, fmt.Errorf("invalid change hash %q: %w", s, err)
	}
	if len(b) != len(h) {
		return h, fmt.Errorf("invalid change hash %q: expected %d bytes, got %d", s, len(h), len(b))
	}
	copy(h[:], b)
	return h, nil
}

func compareHashes(a, b ChangeHash) int {
	return bytes.Compare(a[:], b[:])
}

// ActorID identifies the peer that authored a change.
type ActorID []byte

// String returns the lowercase hex form of the actor.
func (a ActorID) String() string {
	return hex.EncodeToString(a)
}

// OpID identifies an operation by its Lamport counter and actor.
// The zero OpID, used as an object id, denotes the root map.
type OpID struct {
	Counter uint64
	Actor   ActorID
}

// IsZero reports whether id is the root object / list head sentinel.
func (id OpID) IsZero() bool {
	return id.Counter == 0 && len(id.Actor) == 0
}

func (id OpID) String() string {
	return strconv.FormatUint(id.Counter, 10) + "@" + id.Actor.String()
}

// compareOpIDs orders ids by counter, then by actor bytes.
func compareOpIDs(a, b OpID) int {
	switch {
	case a.Counter < b.Counter:
		return -1
	case a.Counter > b.Counter:
		return 1
	}
	return bytes.Compare(a.Actor, b.Actor)
}

func objString(obj OpID) string {
	if obj.IsZero() {
		return "_root"
	}
	return obj.String()
}

// Key addresses a slot within an object: a property of a map, or an
// element of a list. A nil Elem means the key is the property Prop.
type Key struct {
	Prop string
	Elem *OpID
}

// PropKey returns a map key.
func PropKey(prop string) Key {
	return Key{Prop: prop}
}

// ElemKey returns a list element key. The zero OpID denotes the list head.
func ElemKey(id OpID) Key {
	return Key{Elem: &id}
}

// HeadKey returns the key of the list head, used by inserts at index 0.
func HeadKey() Key {
	return Key{Elem: &OpID{}}
}

// IsElem reports whether the key addresses a list element.
func (k Key) IsElem() bool {
	return k.Elem != nil
}

func (k Key) elemString() string {
	if k.Elem.Counter == 0 {
		return "_head"
	}
	return k.Elem.String()
}

// Action is the operation type code stored in the action column.
type Action uint64

const (
	ActionMakeMap   Action = 0
	ActionSet       Action = 1
	ActionMakeList  Action = 2
	ActionDelete    Action = 3
	ActionMakeText  Action = 4
	ActionIncrement Action = 5
	ActionMakeTable Action = 6
	ActionMark      Action = 7
)

// String returns the action name. Mark operations are named by Op.ActionName
// since begin and end share a code.
func (a Action) String() string {
	switch a {
	case ActionMakeMap:
		return "makeMap"
	case ActionSet:
		return "set"
	case ActionMakeList:
		return "makeList"
	case ActionDelete:
		return "del"
	case ActionMakeText:
		return "makeText"
	case ActionIncrement:
		return "inc"
	case ActionMakeTable:
		return "makeTable"
	case ActionMark:
		return "mark"
	default:
		return fmt.Sprintf("unknown(%d)", uint64(a))
	}
}

// Op is a single decoded operation of a change.
type Op struct {
	Obj      OpID
	Key      Key
	Insert   bool
	Action   Action
	Value    ScalarValue
	Pred     []OpID
	Expand   bool
	MarkName *string
}

// ActionName distinguishes markBegin from markEnd.
func (o Op) ActionName() string {
	if o.Action == ActionMark {
		if o.MarkName != nil {
			return "markBegin"
		}
		return "markEnd"
	}
	return o.Action.String()
}

// hasValue reports whether the value column carries a meaningful value for the op.
func (o Op) hasValue() bool {
	switch o.Action {
	case ActionSet, ActionIncrement:
		return true
	case ActionMark:
		return o.MarkName != nil
	case ActionMakeMap, ActionMakeList, ActionDelete, ActionMakeText, ActionMakeTable:
		return false
	default:
		return !o.Value.IsNull()
	}
}
