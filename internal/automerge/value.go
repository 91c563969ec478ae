package automerge

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"unicode/utf8"
)

// ValueType is the type code stored in the low four bits of value metadata.
type ValueType uint8

const (
	ValueNull      ValueType = 0
	ValueFalse     ValueType = 1
	ValueTrue      ValueType = 2
	ValueUint      ValueType = 3
	ValueInt       ValueType = 4
	ValueFloat     ValueType = 5
	ValueString    ValueType = 6
	ValueBytes     ValueType = 7
	ValueCounter   ValueType = 8
	ValueTimestamp ValueType = 9
)

// ScalarValue is a primitive value carried by set, inc and mark operations.
// Int holds the payload of int, counter and timestamp values; Bytes holds the
// payload of bytes values and of type codes this package does not know.
type ScalarValue struct {
	Type  ValueType
	Uint  uint64
	Int   int64
	Float float64
	Str   string
	Bytes []byte
}

func NullValue() ScalarValue             { return ScalarValue{Type: ValueNull} }
func UintValue(v uint64) ScalarValue     { return ScalarValue{Type: ValueUint, Uint: v} }
func IntValue(v int64) ScalarValue       { return ScalarValue{Type: ValueInt, Int: v} }
func FloatValue(v float64) ScalarValue   { return ScalarValue{Type: ValueFloat, Float: v} }
func StringValue(v string) ScalarValue   { return ScalarValue{Type: ValueString, Str: v} }
func BytesValue(v []byte) ScalarValue    { return ScalarValue{Type: ValueBytes, Bytes: v} }
func CounterValue(v int64) ScalarValue   { return ScalarValue{Type: ValueCounter, Int: v} }
func TimestampValue(v int64) ScalarValue { return ScalarValue{Type: ValueTimestamp, Int: v} }

func BoolValue(v bool) ScalarValue {
	if v {
		return ScalarValue{Type: ValueTrue}
	}
	return ScalarValue{Type: ValueFalse}
}

// UnknownValue carries a value whose type code is reserved for future use.
func UnknownValue(code ValueType, raw []byte) ScalarValue {
	return ScalarValue{Type: code, Bytes: raw}
}

// IsNull reports whether the value is null.
func (v ScalarValue) IsNull() bool {
	return v.Type == ValueNull
}

// Datatype names the value's type where JSON alone would lose it.
// It returns "" for null, booleans and strings.
func (v ScalarValue) Datatype() string {
	switch v.Type {
	case ValueNull, ValueFalse, ValueTrue, ValueString:
		return ""
	case ValueUint:
		return "uint"
	case ValueInt:
		return "int"
	case ValueFloat:
		return "float64"
	case ValueBytes:
		return "bytes"
	case ValueCounter:
		return "counter"
	case ValueTimestamp:
		return "timestamp"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(v.Type))
	}
}

// MarshalJSON renders the value as a JSON scalar. Byte payloads render as hex
// and non-finite floats as strings, so marshalling never fails.
func (v ScalarValue) MarshalJSON() ([]byte, error) {
	switch v.Type {
	case ValueNull:
		return []byte("null"), nil
	case ValueFalse:
		return []byte("false"), nil
	case ValueTrue:
		return []byte("true"), nil
	case ValueUint:
		return strconv.AppendUint(nil, v.Uint, 10), nil
	case ValueInt, ValueCounter, ValueTimestamp:
		return strconv.AppendInt(nil, v.Int, 10), nil
	case ValueFloat:
		switch {
		case math.IsNaN(v.Float):
			return []byte(`"NaN"`), nil
		case math.IsInf(v.Float, 1):
			return []byte(`"+Inf"`), nil
		case math.IsInf(v.Float, -1):
			return []byte(`"-Inf"`), nil
		}
		return json.Marshal(v.Float)
	case ValueString:
		return marshalString(v.Str)
	default:
		return marshalString(hex.EncodeToString(v.Bytes))
	}
}

// marshalString quotes s without escaping HTML characters.
func marshalString(s string) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// encode returns the metadata word and raw bytes of the value column.
func (v ScalarValue) encode() (uint64, []byte) {
	var raw []byte
	switch v.Type {
	case ValueNull, ValueFalse, ValueTrue:
	case ValueUint:
		raw = appendUleb(nil, v.Uint)
	case ValueInt, ValueCounter, ValueTimestamp:
		raw = appendSleb(nil, v.Int)
	case ValueFloat:
		raw = binary.LittleEndian.AppendUint64(nil, math.Float64bits(v.Float))
	case ValueString:
		raw = []byte(v.Str)
	default:
		raw = v.Bytes
	}
	return uint64(len(raw))<<4 | uint64(v.Type&0x0f), raw
}

func decodeValue(meta uint64, raw []byte) (ScalarValue, error) {
	typ := ValueType(meta & 0x0f)
	exact := func(r *reader) error {
		if !r.done() {
			return fmt.Errorf("%w: trailing bytes in %s value", ErrMalformed, ScalarValue{Type: typ}.Datatype())
		}
		return nil
	}
	switch typ {
	case ValueNull, ValueFalse, ValueTrue:
		if len(raw) != 0 {
			return ScalarValue{}, fmt.Errorf("%w: value type %d carries %d bytes", ErrMalformed, typ, len(raw))
		}
		return ScalarValue{Type: typ}, nil
	case ValueUint:
		r := newReader(raw)
		u, err := r.uleb()
		if err != nil {
			return ScalarValue{}, err
		}
		return UintValue(u), exact(r)
	case ValueInt, ValueCounter, ValueTimestamp:
		r := newReader(raw)
		i, err := r.sleb()
		if err != nil {
			return ScalarValue{}, err
		}
		return ScalarValue{Type: typ, Int: i}, exact(r)
	case ValueFloat:
		if len(raw) != 8 {
			return ScalarValue{}, fmt.Errorf("%w: float value of %d bytes", ErrMalformed, len(raw))
		}
		return FloatValue(math.Float64frombits(binary.LittleEndian.Uint64(raw))), nil
	case ValueString:
		if !utf8.Valid(raw) {
			return ScalarValue{}, fmt.Errorf("%w: invalid utf-8 string value", ErrMalformed)
		}
		return StringValue(string(raw)), nil
	default:
		return ScalarValue{Type: typ, Bytes: raw}, nil
	}
}
