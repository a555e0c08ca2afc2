package ir

import (
	"bytes"
	"encoding/json"
	"fmt"

	"golang.org/x/text/unicode/norm"
)

// MarshalCanonical produces RFC 8785 canonical JSON.
// It is the only encoding used for statement fingerprints.
//
// Differences from json.Marshal:
//  1. Object keys sorted by UTF-16 code units (not UTF-8 bytes)
//  2. No HTML escaping (< > & are NOT escaped)
//  3. Strings are NFC normalized
//  4. No floats (returns error)
func MarshalCanonical(v any) ([]byte, error) {
	return marshalCanonical(v)
}

func marshalCanonical(v any) ([]byte, error) {
	switch val := v.(type) {
	case nil, IRNull:
		return []byte("null"), nil
	case IRString:
		return marshalCanonicalString(string(val))
	case string:
		return marshalCanonicalString(val)
	case IRInt:
		return []byte(fmt.Sprintf("%d", val)), nil
	case int64, int:
		return []byte(fmt.Sprintf("%d", val)), nil
	case IRBool:
		return marshalBool(bool(val)), nil
	case bool:
		return marshalBool(val), nil
	case IRArray:
		return marshalCanonicalArray(val)
	case IRObject:
		return marshalCanonicalObject(val)
	case []any, map[string]any:
		irVal, err := FromGo(val)
		if err != nil {
			return nil, err
		}
		return marshalCanonical(irVal)
	case float64, float32:
		return nil, fmt.Errorf("floats are forbidden in canonical JSON: %v", val)
	default:
		return nil, fmt.Errorf("unsupported type for canonical JSON: %T", v)
	}
}

func marshalBool(b bool) []byte {
	if b {
		return []byte("true")
	}
	return []byte("false")
}

// marshalCanonicalString produces a canonical JSON string with NFC normalization.
// Only control characters, backslash and quote are escaped; U+2028 and U+2029
// stay literal.
func marshalCanonicalString(s string) ([]byte, error) {
	normalized := norm.NFC.String(s)

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(normalized); err != nil {
		return nil, err
	}

	// json.Encoder adds a trailing newline
	result := bytes.TrimSuffix(buf.Bytes(), []byte{'\n'})
	return unescapeLineSeparators(result), nil
}

// unescapeLineSeparators turns the \u2028 and \u2029 escapes emitted by
// encoding/json back into literal characters, leaving an escaped backslash
// followed by the text "u2028" untouched.
func unescapeLineSeparators(data []byte) []byte {
	if !bytes.Contains(data, []byte(`\u202`)) {
		return data
	}

	out := make([]byte, 0, len(data))
	for i := 0; i < len(data); i++ {
		if data[i] != '\\' {
			out = append(out, data[i])
			continue
		}
		if i+5 < len(data) && string(data[i+1:i+5]) == "u202" && (data[i+5] == '8' || data[i+5] == '9') {
			if data[i+5] == '8' {
				out = append(out, "\u2028"...)
			} else {
				out = append(out, "\u2029"...)
			}
			i += 5
			continue
		}
		// any other escape: copy backslash and the escaped byte verbatim
		out = append(out, data[i])
		if i+1 < len(data) {
			out = append(out, data[i+1])
			i++
		}
	}
	return out
}

// marshalCanonicalArray marshals an array to canonical JSON.
func marshalCanonicalArray(arr IRArray) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')

	for i, elem := range arr {
		if i > 0 {
			buf.WriteByte(',')
		}
		elemBytes, err := marshalCanonical(elem)
		if err != nil {
			return nil, fmt.Errorf("array[%d]: %w", i, err)
		}
		buf.Write(elemBytes)
	}

	buf.WriteByte(']')
	return buf.Bytes(), nil
}

// marshalCanonicalObject marshals an object to canonical JSON with RFC 8785 key ordering.
func marshalCanonicalObject(obj IRObject) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')

	for i, k := range obj.SortedKeys() {
		if i > 0 {
			buf.WriteByte(',')
		}

		keyBytes, err := marshalCanonicalString(k)
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", k, err)
		}
		buf.Write(keyBytes)
		buf.WriteByte(':')

		valBytes, err := marshalCanonical(obj[k])
		if err != nil {
			return nil, fmt.Errorf("value for key %q: %w", k, err)
		}
		buf.Write(valBytes)
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}
