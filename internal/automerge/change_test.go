package automerge

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"pgregory.net/rapid"
)

func TestEncodeChange_ParsesBack(t *testing.T) {
	c1, _, c3 := sampleHistory(t)

	if c1.Actor().String() != "aaaaaaaa" {
		t.Errorf("Actor() = %s, expected aaaaaaaa", c1.Actor())
	}
	if c1.Seq() != 1 || c1.StartOp() != 1 || c1.MaxOp() != 4 {
		t.Errorf("seq/startOp/maxOp = %d/%d/%d, expected 1/1/4", c1.Seq(), c1.StartOp(), c1.MaxOp())
	}
	if msg, ok := c1.Message(); !ok || msg != "init" {
		t.Errorf("Message() = (%q, %v), expected (\"init\", true)", msg, ok)
	}
	if _, ok := c3.Message(); ok {
		t.Error("Message() reported a message for a change without one")
	}
	if got := c1.Timestamp().UnixMilli(); got != 1_700_000_000_000 {
		t.Errorf("Timestamp() = %d, expected 1700000000000", got)
	}
	if diff := cmp.Diff([]byte{0x01, 0x02}, c3.Extra()); diff != "" {
		t.Errorf("Extra() mismatch (-want +got):\n%s", diff)
	}

	expected := []Op{
		{Obj: OpID{}, Key: PropKey("todo"), Action: ActionMakeList},
		{Obj: oid(1, actorA), Key: HeadKey(), Insert: true, Action: ActionSet, Value: StringValue("milk")},
		{Obj: oid(1, actorA), Key: ElemKey(oid(2, actorA)), Insert: true, Action: ActionSet, Value: StringValue("eggs")},
		{Obj: OpID{}, Key: PropKey("count"), Action: ActionSet, Value: CounterValue(0)},
	}
	if diff := cmp.Diff(expected, c1.Ops(), cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("Ops() mismatch (-want +got):\n%s", diff)
	}
}

func TestEncodeChange_SortsAndDedupsDeps(t *testing.T) {
	c1, c2, _ := sampleHistory(t)
	c := mustChange(t, ChangeOptions{
		Actor: actorB,
		Seq:   1,
		Deps:  []ChangeHash{c2.Hash(), c1.Hash(), c2.Hash()},
	})

	expected := []ChangeHash{c1.Hash(), c2.Hash()}
	if compareHashes(c1.Hash(), c2.Hash()) > 0 {
		expected = []ChangeHash{c2.Hash(), c1.Hash()}
	}
	if diff := cmp.Diff(expected, c.Deps()); diff != "" {
		t.Errorf("Deps() mismatch (-want +got):\n%s", diff)
	}
}

func TestEncodeChange_IsDeterministic(t *testing.T) {
	a, _, _ := sampleHistory(t)
	b, _, _ := sampleHistory(t)
	if a.Hash() != b.Hash() {
		t.Errorf("hashes differ: %s vs %s", a.Hash(), b.Hash())
	}
}

func TestEncodeChange_EmptyActor(t *testing.T) {
	if _, err := EncodeChange(ChangeOptions{Seq: 1}); err == nil {
		t.Error("EncodeChange() with empty actor returned no error")
	}
}

func TestChange_Decode(t *testing.T) {
	_, _, c3 := sampleHistory(t)
	got := c3.Decode()

	expand := true
	noExpand := false
	bold := "bold"
	title, notes := "title", "notes"
	head, elem := "_head", "7@bbbbbbbb"
	str := StringValue("groceries")
	h := StringValue("h")
	yes := BoolValue(true)

	expected := []ExpandedOp{
		{Action: "set", Obj: "_root", Key: &title, Value: &str, Pred: []string{}},
		{Action: "makeText", Obj: "_root", Key: &notes, Pred: []string{}},
		{Action: "set", Obj: "6@bbbbbbbb", ElemID: &head, Insert: true, Value: &h, Pred: []string{}},
		{Action: "markBegin", Obj: "6@bbbbbbbb", ElemID: &elem, Insert: true, Value: &yes, Name: &bold, Expand: &expand, Pred: []string{}},
		{Action: "markEnd", Obj: "6@bbbbbbbb", ElemID: &elem, Insert: true, Expand: &noExpand, Pred: []string{}},
	}
	if diff := cmp.Diff(expected, got.Ops); diff != "" {
		t.Errorf("Ops mismatch (-want +got):\n%s", diff)
	}
	if got.Message != nil {
		t.Errorf("Message = %q, expected nil", *got.Message)
	}
	if got.ExtraBytes != "0102" {
		t.Errorf("ExtraBytes = %q, expected %q", got.ExtraBytes, "0102")
	}
}

func TestChange_DecodeJSON(t *testing.T) {
	c1, c2, _ := sampleHistory(t)

	data, err := json.Marshal(c2.Decode())
	if err != nil {
		t.Fatalf("json.Marshal: %v", err)
	}

	expected := `{"ops":[` +
		`{"action":"del","obj":"1@aaaaaaaa","elemId":"2@aaaaaaaa","insert":false,"pred":["2@aaaaaaaa"]},` +
		`{"action":"inc","obj":"_root","key":"count","insert":false,"value":3,"datatype":"int","pred":["4@aaaaaaaa"]}],` +
		`"actor":"aaaaaaaa","hash":"` + c2.Hash().String() + `","seq":2,"startOp":5,"time":1700000001000,` +
		`"message":null,"deps":["` + c1.Hash().String() + `"],"extraBytes":""}`
	if string(data) != expected {
		t.Errorf("JSON =\n%s\nexpected\n%s", data, expected)
	}
}

func TestScalarValue_MarshalJSON(t *testing.T) {
	tests := []struct {
		name     string
		value    ScalarValue
		expected string
	}{
		{name: "Null", value: NullValue(), expected: `null`},
		{name: "True", value: BoolValue(true), expected: `true`},
		{name: "Max uint", value: UintValue(math.MaxUint64), expected: `18446744073709551615`},
		{name: "Negative int", value: IntValue(-7), expected: `-7`},
		{name: "Float", value: FloatValue(1.5), expected: `1.5`},
		{name: "NaN", value: FloatValue(math.NaN()), expected: `"NaN"`},
		{name: "Positive infinity", value: FloatValue(math.Inf(1)), expected: `"+Inf"`},
		{name: "HTML is not escaped", value: StringValue("<a&b>"), expected: `"<a&b>"`},
		{name: "Bytes as hex", value: BytesValue([]byte{0xde, 0xad}), expected: `"dead"`},
		{name: "Timestamp", value: TimestampValue(1000), expected: `1000`},
		{name: "Unknown type", value: UnknownValue(12, []byte{0x01}), expected: `"01"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := tt.value.MarshalJSON()
			if err != nil {
				t.Fatalf("MarshalJSON: %v", err)
			}
			if string(result) != tt.expected {
				t.Errorf("MarshalJSON() = %s, expected %s", result, tt.expected)
			}
		})
	}
}

func TestScalarValue_Datatype(t *testing.T) {
	tests := []struct {
		value    ScalarValue
		expected string
	}{
		{value: NullValue(), expected: ""},
		{value: BoolValue(false), expected: ""},
		{value: StringValue("x"), expected: ""},
		{value: UintValue(1), expected: "uint"},
		{value: IntValue(1), expected: "int"},
		{value: FloatValue(1), expected: "float64"},
		{value: BytesValue(nil), expected: "bytes"},
		{value: CounterValue(1), expected: "counter"},
		{value: TimestampValue(1), expected: "timestamp"},
		{value: UnknownValue(11, nil), expected: "unknown(11)"},
	}

	for _, tt := range tests {
		if result := tt.value.Datatype(); result != tt.expected {
			t.Errorf("Datatype() of type %d = %q, expected %q", tt.value.Type, result, tt.expected)
		}
	}
}

func TestDecodeValue_Malformed(t *testing.T) {
	tests := []struct {
		name     string
		meta     uint64
		raw      []byte
		expected error
	}{
		{name: "Float of four bytes", meta: 4<<4 | uint64(ValueFloat), raw: []byte{0, 0, 0, 0}, expected: ErrMalformed},
		{name: "Uint with trailing bytes", meta: 2<<4 | uint64(ValueUint), raw: []byte{0x01, 0x01}, expected: ErrMalformed},
		{name: "True with payload", meta: 1<<4 | uint64(ValueTrue), raw: []byte{0x01}, expected: ErrMalformed},
		{name: "Invalid utf-8 string", meta: 1<<4 | uint64(ValueString), raw: []byte{0xff}, expected: ErrMalformed},
		{name: "Truncated int", meta: 1<<4 | uint64(ValueInt), raw: []byte{0x80}, expected: ErrTruncated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := decodeValue(tt.meta, tt.raw); !errors.Is(err, tt.expected) {
				t.Errorf("error = %v, expected %v", err, tt.expected)
			}
		})
	}
}

func TestParseChangeHash(t *testing.T) {
	_, c2, _ := sampleHistory(t)

	h, err := ParseChangeHash(c2.Hash().String())
	if err != nil {
		t.Fatalf("ParseChangeHash: %v", err)
	}
	if h != c2.Hash() {
		t.Errorf("ParseChangeHash() = %s, expected %s", h, c2.Hash())
	}

	for _, bad := range []string{"", "zz", "abcd"} {
		if _, err := ParseChangeHash(bad); err == nil {
			t.Errorf("ParseChangeHash(%q) returned no error", bad)
		}
	}
}

func TestRapidEncodeChange_RoundTrip(t *testing.T) {
	actors := []ActorID{actorA, actorB, {0xcc}}
	opGen := rapid.Custom(func(t *rapid.T) Op {
		op := Op{
			Key:    PropKey(rapid.StringMatching(`[a-z]{0,6}`).Draw(t, "prop")),
			Action: ActionSet,
			Value:  IntValue(rapid.Int64().Draw(t, "value")),
		}
		if rapid.Bool().Draw(t, "nested") {
			op.Obj = oid(rapid.Uint64Range(1, 100).Draw(t, "objCtr"), rapid.SampledFrom(actors).Draw(t, "objActor"))
		}
		if rapid.Bool().Draw(t, "elem") {
			op.Key = ElemKey(oid(rapid.Uint64Range(1, 100).Draw(t, "elemCtr"), rapid.SampledFrom(actors).Draw(t, "elemActor")))
			op.Insert = rapid.Bool().Draw(t, "insert")
		}
		n := rapid.IntRange(0, 3).Draw(t, "preds")
		for i := 0; i < n; i++ {
			op.Pred = append(op.Pred, oid(rapid.Uint64Range(1, 100).Draw(t, "predCtr"), rapid.SampledFrom(actors).Draw(t, "predActor")))
		}
		return op
	})

	rapid.Check(t, func(t *rapid.T) {
		opts := ChangeOptions{
			Actor:   rapid.SampledFrom(actors).Draw(t, "actor"),
			Seq:     rapid.Uint64Range(1, 1000).Draw(t, "seq"),
			StartOp: rapid.Uint64Range(1, 1000).Draw(t, "startOp"),
			Time:    rapid.Int64().Draw(t, "time"),
			Message: rapid.String().Draw(t, "message"),
			Ops:     rapid.SliceOfN(opGen, 0, 20).Draw(t, "ops"),
		}
		c, err := EncodeChange(opts)
		if err != nil {
			t.Fatalf("EncodeChange: %v", err)
		}

		doc, err := Load(c.Bytes())
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		got := doc.Changes(nil)
		if len(got) != 1 || got[0].Hash() != c.Hash() {
			t.Fatalf("loaded %d changes, expected the encoded one", len(got))
		}

		sortPreds := cmpopts.SortSlices(func(a, b OpID) bool { return compareOpIDs(a, b) < 0 })
		if diff := cmp.Diff(opts.Ops, got[0].Ops(), cmpopts.EquateEmpty(), sortPreds); diff != "" {
			t.Fatalf("ops mismatch (-want +got):\n%s", diff)
		}
	})
}
