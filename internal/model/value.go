package model

import (
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"time"
	"unicode/utf16"
)

// Value is a sealed interface over the property value union.
//
// Scalars: Null, String, Int, Float, Bool.
// Point in time: Timestamp.
// Deferred relationship: Link.
// Nested: Array, Map.
//
// Only types in this package implement Value, so a type switch over the
// variants above is exhaustive.
type Value interface {
	sapValue() // Sealed - only these types implement it
}

// Null represents a JSON null.
type Null struct{}

func (Null) sapValue() {}

// MarshalJSON implements json.Marshaler for Null.
func (Null) MarshalJSON() ([]byte, error) {
	return []byte("null"), nil
}

// String is a string scalar.
type String string

func (String) sapValue() {}

// Int is an integer scalar.
type Int int64

func (Int) sapValue() {}

// Float is a non-integral number. NaN and infinities cannot be encoded.
type Float float64

func (Float) sapValue() {}

// Bool is a boolean scalar.
type Bool bool

func (Bool) sapValue() {}

// Array is an ordered sequence of values.
type Array []Value

func (Array) sapValue() {}

// MarshalJSON implements json.Marshaler for Array.
func (a Array) MarshalJSON() ([]byte, error) {
	return MarshalCanonical(a)
}

// Map is a string-keyed mapping of values. Keys are emitted in sorted order.
type Map map[string]Value

func (Map) sapValue() {}

// MarshalJSON implements json.Marshaler for Map with sorted keys.
func (m Map) MarshalJSON() ([]byte, error) {
	return MarshalCanonical(m)
}

// SortedKeys returns keys in UTF-16 code unit order (RFC 8785).
// Go's string comparison uses UTF-8 bytes, which orders some
// supplementary-plane characters differently.
func (m Map) SortedKeys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareKeysUTF16)
	return keys
}

func compareKeysUTF16(a, b string) int {
	a16 := utf16.Encode([]rune(a))
	b16 := utf16.Encode([]rune(b))
	n := min(len(a16), len(b16))
	for i := 0; i < n; i++ {
		if a16[i] != b16[i] {
			if a16[i] < b16[i] {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(a16) < len(b16):
		return -1
	case len(a16) > len(b16):
		return 1
	}
	return 0
}

// FromNative converts a decoded Go value into a Value.
//
// Accepted inputs are the shapes produced by encoding/json, yaml.v3 and
// hand-written provider code: nil, bool, string, the integer and float kinds,
// json.Number, time.Time, []any, []string, map[string]any, map[string]string,
// and any Value (returned unchanged). Integral float64 values stay Float;
// callers that want Int must pass an integer.
//
// A time.Time becomes a Timestamp via MakeTimestamp, so the zero time fails
// with INVALID_TIMESTAMP.
func FromNative(v any) (Value, error) {
	switch val := v.(type) {
	case nil:
		return Null{}, nil
	case Value:
		return val, nil
	case string:
		return String(val), nil
	case bool:
		return Bool(val), nil
	case int:
		return Int(val), nil
	case int8:
		return Int(val), nil
	case int16:
		return Int(val), nil
	case int32:
		return Int(val), nil
	case int64:
		return Int(val), nil
	case uint8:
		return Int(val), nil
	case uint16:
		return Int(val), nil
	case uint32:
		return Int(val), nil
	case uint:
		if uint64(val) > math.MaxInt64 {
			return nil, &Error{Code: ErrCodeUnsupportedValue, Message: fmt.Sprintf("integer out of range: %d", val)}
		}
		return Int(val), nil
	case uint64:
		if val > math.MaxInt64 {
			return nil, &Error{Code: ErrCodeUnsupportedValue, Message: fmt.Sprintf("integer out of range: %d", val)}
		}
		return Int(val), nil
	case float32:
		return Float(val), nil
	case float64:
		return Float(val), nil
	case json.Number:
		if n, err := val.Int64(); err == nil {
			return Int(n), nil
		}
		f, err := val.Float64()
		if err != nil {
			return nil, &Error{Code: ErrCodeUnsupportedValue, Message: fmt.Sprintf("invalid number %q", val.String())}
		}
		return Float(f), nil
	case time.Time:
		return MakeTimestamp(val)
	case []string:
		arr := make(Array, len(val))
		for i, s := range val {
			arr[i] = String(s)
		}
		return arr, nil
	case []any:
		arr := make(Array, len(val))
		for i, elem := range val {
			conv, err := FromNative(elem)
			if err != nil {
				return nil, fmt.Errorf("array[%d]: %w", i, err)
			}
			arr[i] = conv
		}
		return arr, nil
	case map[string]string:
		m := make(Map, len(val))
		for k, s := range val {
			m[k] = String(s)
		}
		return m, nil
	case map[string]any:
		m := make(Map, len(val))
		for k, elem := range val {
			conv, err := FromNative(elem)
			if err != nil {
				return nil, fmt.Errorf("map[%q]: %w", k, err)
			}
			m[k] = conv
		}
		return m, nil
	default:
		return nil, &Error{Code: ErrCodeUnsupportedValue, Message: fmt.Sprintf("unsupported type: %T", v)}
	}
}

// MustFromNative is like FromNative but panics on error.
// Use only in tests or with literal inputs known to be valid.
func MustFromNative(v any) Value {
	val, err := FromNative(v)
	if err != nil {
		panic(err)
	}
	return val
}
