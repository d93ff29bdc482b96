package engine

import (
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// Decoder attempts to turn a scanned driver value into a Value. It reports
// false when it does not recognise src so the next decoder can try.
type Decoder func(src any) (Value, bool)

// DefaultDecoders is the fallback chain applied to every cell, first match
// wins: text, 32-bit integer, 64-bit integer, double, boolean, UUID, then
// temporal values rendered as composites.
var DefaultDecoders = []Decoder{
	DecodeString,
	DecodeInt32,
	DecodeInt64,
	DecodeFloat64,
	DecodeBool,
	DecodeUUID,
	DecodeTime,
}

// MarshalRow converts one scanned row into values aligned to columns.
// A cell no decoder accepts becomes Null rather than failing the row.
func MarshalRow(columns []string, raw []any, decoders ...Decoder) []Value {
	if len(decoders) == 0 {
		decoders = DefaultDecoders
	}
	out := make([]Value, len(columns))
	for i := range columns {
		if i >= len(raw) {
			out[i] = Null()
			continue
		}
		out[i] = decodeCell(raw[i], decoders)
	}
	return out
}

func decodeCell(src any, decoders []Decoder) Value {
	if src == nil {
		return Null()
	}
	for _, dec := range decoders {
		if v, ok := dec(src); ok {
			return v
		}
	}
	return Null()
}

// DecodeString accepts strings and valid UTF-8 byte slices. Drivers hand
// back text, NUMERIC and textual UUIDs as []byte.
func DecodeString(src any) (Value, bool) {
	switch t := src.(type) {
	case string:
		return String(t), true
	case []byte:
		if utf8.Valid(t) {
			return String(string(t)), true
		}
	}
	return Value{}, false
}

// DecodeInt32 accepts integers that fit in 32 bits.
func DecodeInt32(src any) (Value, bool) {
	switch t := src.(type) {
	case int8:
		return Int(int64(t)), true
	case int16:
		return Int(int64(t)), true
	case int32:
		return Int(int64(t)), true
	case uint8:
		return Int(int64(t)), true
	case uint16:
		return Int(int64(t)), true
	case int64:
		if t >= math.MinInt32 && t <= math.MaxInt32 {
			return Int(t), true
		}
	case int:
		if t >= math.MinInt32 && t <= math.MaxInt32 {
			return Int(int64(t)), true
		}
	}
	return Value{}, false
}

// DecodeInt64 accepts any integer representable as int64.
func DecodeInt64(src any) (Value, bool) {
	switch t := src.(type) {
	case int64:
		return Int(t), true
	case int:
		return Int(int64(t)), true
	case uint32:
		return Int(int64(t)), true
	case uint64:
		if t <= math.MaxInt64 {
			return Int(int64(t)), true
		}
	case uint:
		if uint64(t) <= math.MaxInt64 {
			return Int(int64(t)), true
		}
	}
	return Value{}, false
}

func DecodeFloat64(src any) (Value, bool) {
	switch t := src.(type) {
	case float64:
		return Float(t), true
	case float32:
		return Float(float64(t)), true
	}
	return Value{}, false
}

func DecodeBool(src any) (Value, bool) {
	if b, ok := src.(bool); ok {
		return Bool(b), true
	}
	return Value{}, false
}

// DecodeUUID accepts uuid.UUID and [16]byte values and renders them in
// canonical string form. Raw 16-byte slices only reach it after
// PromoteUUIDs has typed them from column metadata.
func DecodeUUID(src any) (Value, bool) {
	switch t := src.(type) {
	case uuid.UUID:
		return String(t.String()), true
	case [16]byte:
		return String(uuid.UUID(t).String()), true
	}
	return Value{}, false
}

// uuidTypeNames are database type names whose binary form is a UUID.
var uuidTypeNames = map[string]bool{
	"UUID":             true,
	"UNIQUEIDENTIFIER": true,
}

// IsUUIDType reports whether a driver's column type name carries UUIDs.
func IsUUIDType(name string) bool {
	return uuidTypeNames[strings.ToUpper(strings.TrimSpace(name))]
}

// PromoteUUIDs rewrites 16-byte slices in UUID-typed columns as uuid.UUID so
// DecodeUUID renders them. Other binary cells are left alone.
func PromoteUUIDs(raw []any, uuidCols []bool) {
	for i, isUUID := range uuidCols {
		if !isUUID || i >= len(raw) {
			continue
		}
		if b, ok := raw[i].([]byte); ok && len(b) == 16 && !utf8.Valid(b) {
			if id, err := uuid.FromBytes(b); err == nil {
				raw[i] = id
			}
		}
	}
}

// DecodeTime renders dates and timestamps as RFC 3339 composites.
func DecodeTime(src any) (Value, bool) {
	if ts, ok := src.(time.Time); ok {
		return Composite(ts.Format(time.RFC3339Nano)), true
	}
	return Value{}, false
}
