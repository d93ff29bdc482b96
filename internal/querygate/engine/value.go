package engine

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// Kind enumerates the shapes a marshalled cell can take.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	// KindComposite is a driver value with no scalar equivalent, carried as
	// its string rendering.
	KindComposite
)

func (k Kind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindComposite:
		return "composite"
	default:
		return "null"
	}
}

// Value is a database cell detached from driver types. Only the field that
// matches Kind is meaningful.
type Value struct {
	kind Kind
	b    bool
	i    int64
	f    float64
	s    string
}

func Null() Value              { return Value{} }
func Bool(b bool) Value        { return Value{kind: KindBool, b: b} }
func Int(i int64) Value        { return Value{kind: KindInt, i: i} }
func Float(f float64) Value    { return Value{kind: KindFloat, f: f} }
func String(s string) Value    { return Value{kind: KindString, s: s} }
func Composite(s string) Value { return Value{kind: KindComposite, s: s} }

func (v Value) Kind() Kind       { return v.kind }
func (v Value) IsNull() bool     { return v.kind == KindNull }
func (v Value) AsBool() bool     { return v.b }
func (v Value) AsInt() int64     { return v.i }
func (v Value) AsFloat() float64 { return v.f }

// AsString returns the payload of String and Composite values.
func (v Value) AsString() string { return v.s }

// Any returns the value as a plain Go value (nil, bool, int64, float64 or string).
func (v Value) Any() any {
	switch v.kind {
	case KindBool:
		return v.b
	case KindInt:
		return v.i
	case KindFloat:
		return v.f
	case KindString, KindComposite:
		return v.s
	default:
		return nil
	}
}

// Text renders the value for textual exports. Null renders as "".
func (v Value) Text() string {
	switch v.kind {
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case KindString, KindComposite:
		return v.s
	default:
		return ""
	}
}

func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Any())
}

// UnmarshalJSON restores a Value from its JSON form. JSON numbers without a
// fraction become Int; composites come back as String.
func (v *Value) UnmarshalJSON(data []byte) error {
	var raw any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	switch t := raw.(type) {
	case nil:
		*v = Null()
	case bool:
		*v = Bool(t)
	case json.Number:
		if i, err := t.Int64(); err == nil {
			*v = Int(i)
			return nil
		}
		f, err := t.Float64()
		if err != nil {
			return err
		}
		*v = Float(f)
	case string:
		*v = String(t)
	default:
		// arrays and objects never come out of MarshalJSON; keep their text
		*v = Composite(string(data))
	}
	return nil
}
