package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"golang.org/x/text/unicode/norm"
)

// MarshalCanonical produces canonical JSON (RFC 8785 key order) for values,
// objects and snapshots. It is the only serializer in this package: every
// MarshalJSON method delegates here, so the wire form and the digest input
// never drift apart.
//
// Differences from json.Marshal:
//  1. Map keys sorted by UTF-16 code units
//  2. No HTML escaping (<, >, & are emitted literally)
//  3. Strings are NFC normalized
//  4. Timestamps and Links use their canonical encodings
//  5. NaN and infinities are rejected
func MarshalCanonical(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeCanonical(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeCanonical(buf *bytes.Buffer, v any) error {
	switch val := v.(type) {
	case Null:
		buf.WriteString("null")
	case String:
		return writeCanonicalString(buf, string(val))
	case string:
		return writeCanonicalString(buf, val)
	case Int:
		buf.WriteString(strconv.FormatInt(int64(val), 10))
	case int64:
		buf.WriteString(strconv.FormatInt(val, 10))
	case int:
		buf.WriteString(strconv.Itoa(val))
	case Float:
		return writeCanonicalFloat(buf, float64(val))
	case Bool:
		buf.WriteString(strconv.FormatBool(bool(val)))
	case bool:
		buf.WriteString(strconv.FormatBool(val))
	case Timestamp:
		if val.IsZero() {
			return &Error{Code: ErrCodeInvalidTimestamp, Message: "zero timestamp"}
		}
		return writeCanonicalString(buf, val.String())
	case Link:
		return writeCanonicalMap(buf, Map{"query": String(val.Query), "label": String(val.Label)})
	case Array:
		buf.WriteByte('[')
		for i, elem := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeCanonical(buf, elem); err != nil {
				return fmt.Errorf("array[%d]: %w", i, err)
			}
		}
		buf.WriteByte(']')
	case []string:
		buf.WriteByte('[')
		for i, s := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeCanonicalString(buf, s); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case Map:
		return writeCanonicalMap(buf, val)
	case map[string]Value:
		return writeCanonicalMap(buf, Map(val))
	case Object:
		return writeCanonicalObject(buf, val)
	case []Object:
		buf.WriteByte('[')
		for i, obj := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeCanonicalObject(buf, obj); err != nil {
				return fmt.Errorf("objects[%d]: %w", i, err)
			}
		}
		buf.WriteByte(']')
	case nil:
		return &Error{Code: ErrCodeUnsupportedValue, Message: "nil value"}
	default:
		return &Error{Code: ErrCodeUnsupportedValue, Message: fmt.Sprintf("unsupported type for canonical JSON: %T", v)}
	}
	return nil
}

func writeCanonicalMap(buf *bytes.Buffer, m Map) error {
	buf.WriteByte('{')
	for i, k := range m.SortedKeys() {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeCanonicalString(buf, k); err != nil {
			return fmt.Errorf("key %q: %w", k, err)
		}
		buf.WriteByte(':')
		if err := writeCanonical(buf, m[k]); err != nil {
			return fmt.Errorf("value for key %q: %w", k, err)
		}
	}
	buf.WriteByte('}')
	return nil
}

// writeCanonicalObject emits an Object with its fixed keys in sorted order:
// id, properties, source, types.
func writeCanonicalObject(buf *bytes.Buffer, obj Object) error {
	buf.WriteString(`{"id":`)
	if err := writeCanonicalString(buf, obj.ID); err != nil {
		return err
	}
	buf.WriteString(`,"properties":`)
	props := obj.Properties
	if props == nil {
		props = map[string]Value{}
	}
	if err := writeCanonicalMap(buf, Map(props)); err != nil {
		return fmt.Errorf("object %q: %w", obj.ID, err)
	}
	buf.WriteString(`,"source":`)
	if err := writeCanonicalString(buf, obj.Source); err != nil {
		return err
	}
	buf.WriteString(`,"types":`)
	types := obj.Types
	if types == nil {
		types = []string{}
	}
	if err := writeCanonical(buf, types); err != nil {
		return err
	}
	buf.WriteByte('}')
	return nil
}

func writeCanonicalFloat(buf *bytes.Buffer, f float64) error {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return &Error{Code: ErrCodeUnsupportedValue, Message: fmt.Sprintf("cannot encode %v", f)}
	}
	b, err := json.Marshal(f)
	if err != nil {
		return err
	}
	buf.Write(b)
	return nil
}

// writeCanonicalString writes a JSON string: NFC normalized, no HTML
// escaping, and U+2028/U+2029 left literal.
func writeCanonicalString(buf *bytes.Buffer, s string) error {
	var tmp bytes.Buffer
	enc := json.NewEncoder(&tmp)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(norm.NFC.String(s)); err != nil {
		return err
	}
	out := bytes.TrimSuffix(tmp.Bytes(), []byte{'\n'})
	buf.Write(unescapeLineSeparators(out))
	return nil
}

// unescapeLineSeparators turns the \u2028 and \u2029 escapes emitted by
// encoding/json back into literal characters. An escape preceded by an odd
// run of backslashes is literal text ("\\u2028") and is left alone.
func unescapeLineSeparators(data []byte) []byte {
	if !bytes.Contains(data, []byte(`\u202`)) {
		return data
	}
	out := make([]byte, 0, len(data))
	backslashes := 0
	for i := 0; i < len(data); i++ {
		c := data[i]
		if c == '\\' && backslashes%2 == 0 && i+5 < len(data) &&
			data[i+1] == 'u' && data[i+2] == '2' && data[i+3] == '0' && data[i+4] == '2' &&
			(data[i+5] == '8' || data[i+5] == '9') {
			if data[i+5] == '8' {
				out = append(out, "\u2028"...)
			} else {
				out = append(out, "\u2029"...)
			}
			i += 5
			backslashes = 0
			continue
		}
		if c == '\\' {
			backslashes++
		} else {
			backslashes = 0
		}
		out = append(out, c)
	}
	return out
}
