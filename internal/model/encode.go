package model

import (
	"fmt"

	"golang.org/x/text/unicode/norm"
)

// EncodeValue maps a value to its canonical encoding.
//
//   - Scalars pass through; strings are NFC-normalized
//   - Timestamp becomes String("2025-06-06T14:03:00Z")
//   - Link becomes Map{"query": ..., "label": ...}
//   - Array and Map are encoded element by element
//
// EncodeValue is idempotent: encoding an encoded value returns an equal value.
// It fails for nil, a zero Timestamp, a Link with an empty part, map keys
// that are equal after NFC normalization, or a variant outside the union.
func EncodeValue(v Value) (Value, error) {
	switch val := v.(type) {
	case Null, Int, Bool:
		return val, nil
	case String:
		return String(norm.NFC.String(string(val))), nil
	case Float:
		return val, nil
	case Timestamp:
		if val.IsZero() {
			return nil, &Error{Code: ErrCodeInvalidTimestamp, Message: "zero timestamp"}
		}
		return String(val.String()), nil
	case Link:
		if _, err := MakeLink(val.Query, val.Label); err != nil {
			return nil, err
		}
		return Map{
			"query": String(norm.NFC.String(val.Query)),
			"label": String(norm.NFC.String(val.Label)),
		}, nil
	case Array:
		out := make(Array, len(val))
		for i, elem := range val {
			enc, err := EncodeValue(elem)
			if err != nil {
				return nil, fmt.Errorf("array[%d]: %w", i, err)
			}
			out[i] = enc
		}
		return out, nil
	case Map:
		out := make(Map, len(val))
		for k, elem := range val {
			enc, err := EncodeValue(elem)
			if err != nil {
				return nil, fmt.Errorf("map[%q]: %w", k, err)
			}
			key := norm.NFC.String(k)
			if _, dup := out[key]; dup {
				return nil, duplicateKey(key)
			}
			out[key] = enc
		}
		return out, nil
	case nil:
		return nil, &Error{Code: ErrCodeUnsupportedValue, Message: "nil value"}
	default:
		return nil, &Error{Code: ErrCodeUnsupportedValue, Message: fmt.Sprintf("unknown value type: %T", v)}
	}
}

// encodeProperties encodes every property of a bag into a fresh map.
func encodeProperties(props map[string]Value) (map[string]Value, error) {
	out := make(map[string]Value, len(props))
	for k, v := range props {
		enc, err := EncodeValue(v)
		if err != nil {
			return nil, &Error{Code: ErrCodeInvalidObject, Message: "property cannot be encoded", Field: k, Err: err}
		}
		key := norm.NFC.String(k)
		if _, dup := out[key]; dup {
			return nil, duplicateKey(key)
		}
		out[key] = enc
	}
	return out, nil
}

// duplicateKey reports two keys that are equal after NFC normalization.
func duplicateKey(key string) *Error {
	return invalidObject(key, "keys collide after unicode normalization")
}
