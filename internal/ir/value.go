package ir

import (
	"fmt"
	"math"
	"slices"
	"strconv"
	"unicode/utf16"
)

// IRValue is a sealed interface representing constrained value types.
// Only IRNull, IRString, IRInt, IRBool, IRArray, and IRObject implement this.
// There is no float variant: level keys must compare exactly.
type IRValue interface {
	irValue() // Sealed - only these types implement it
}

// IRNull represents a SQL NULL / JSON null.
type IRNull struct{}

func (IRNull) irValue() {}

// IRString represents a string value.
type IRString string

func (IRString) irValue() {}

// IRInt represents an integer value. Always int64.
type IRInt int64

func (IRInt) irValue() {}

// IRBool represents a boolean value.
type IRBool bool

func (IRBool) irValue() {}

// IRArray represents an array of IRValue elements.
type IRArray []IRValue

func (IRArray) irValue() {}

// IRObject represents a map of string keys to IRValue elements.
// Use SortedKeys() for deterministic iteration.
type IRObject map[string]IRValue

func (IRObject) irValue() {}

// SortedKeys returns keys in RFC 8785 canonical order (UTF-16 code units).
func (obj IRObject) SortedKeys() []string {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareKeysRFC8785)
	return keys
}

// compareKeysRFC8785 compares strings using UTF-16 code unit ordering.
// Go's default string comparison uses UTF-8 which produces a different order
// for characters outside the BMP.
func compareKeysRFC8785(a, b string) int {
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

// ParseValue interprets a textual path element. Decimal integers become
// IRInt, everything else stays an IRString.
//
//	ParseValue("2012")  // IRInt(2012)
//	ParseValue("March") // IRString("March")
func ParseValue(s string) IRValue {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return IRInt(n)
	}
	return IRString(s)
}

// ParsePath applies ParseValue to every element.
func ParsePath(parts []string) []IRValue {
	path := make([]IRValue, len(parts))
	for i, p := range parts {
		path[i] = ParseValue(p)
	}
	return path
}

// Path converts Go values to a path of IRValues with FromGo.
func Path(values ...any) ([]IRValue, error) {
	path := make([]IRValue, len(values))
	for i, v := range values {
		iv, err := FromGo(v)
		if err != nil {
			return nil, fmt.Errorf("path element %d: %w", i, err)
		}
		path[i] = iv
	}
	return path, nil
}

// MustPath is like Path but panics on error.
// Use only in tests or with literal values.
func MustPath(values ...any) []IRValue {
	path, err := Path(values...)
	if err != nil {
		panic(err)
	}
	return path
}

// FromGo converts a Go value (as produced by encoding/json, yaml.v3 or a
// database/sql driver) into an IRValue.
//
// Integral floats are accepted and converted, since JSON decoding yields
// float64 for every number. Fractional floats are rejected.
func FromGo(v any) (IRValue, error) {
	switch val := v.(type) {
	case nil:
		return IRNull{}, nil
	case IRValue:
		return val, nil
	case string:
		return IRString(val), nil
	case []byte:
		return IRString(val), nil
	case bool:
		return IRBool(val), nil
	case int:
		return IRInt(val), nil
	case int8:
		return IRInt(val), nil
	case int16:
		return IRInt(val), nil
	case int32:
		return IRInt(val), nil
	case int64:
		return IRInt(val), nil
	case uint8:
		return IRInt(val), nil
	case uint16:
		return IRInt(val), nil
	case uint32:
		return IRInt(val), nil
	case uint64:
		if val > math.MaxInt64 {
			return nil, fmt.Errorf("integer out of int64 range: %d", val)
		}
		return IRInt(val), nil
	case float32:
		return fromFloat(float64(val))
	case float64:
		return fromFloat(val)
	case []any:
		arr := make(IRArray, len(val))
		for i, elem := range val {
			irElem, err := FromGo(elem)
			if err != nil {
				return nil, fmt.Errorf("array[%d]: %w", i, err)
			}
			arr[i] = irElem
		}
		return arr, nil
	case map[string]any:
		obj := make(IRObject, len(val))
		for k, elem := range val {
			irElem, err := FromGo(elem)
			if err != nil {
				return nil, fmt.Errorf("object[%q]: %w", k, err)
			}
			obj[k] = irElem
		}
		return obj, nil
	default:
		return nil, fmt.Errorf("unsupported type: %T", v)
	}
}

func fromFloat(f float64) (IRValue, error) {
	if f != math.Trunc(f) || math.IsInf(f, 0) || f > math.MaxInt64 || f < math.MinInt64 {
		return nil, fmt.Errorf("floats are not allowed as key values: %v", f)
	}
	return IRInt(int64(f)), nil
}

// ToGo converts a scalar IRValue to the Go type used as a SQL parameter.
// Arrays and objects cannot be bound as parameters.
func ToGo(v IRValue) (any, error) {
	switch val := v.(type) {
	case IRString:
		return string(val), nil
	case IRInt:
		return int64(val), nil
	case IRBool:
		return bool(val), nil
	case IRNull:
		return nil, nil
	case IRArray:
		return nil, fmt.Errorf("IRArray cannot be used as SQL parameter directly")
	case IRObject:
		return nil, fmt.Errorf("IRObject cannot be used as SQL parameter directly")
	default:
		return nil, fmt.Errorf("unsupported IRValue type for SQL parameter: %T", v)
	}
}

// Format renders a scalar value the way it appears in a cut string.
func Format(v IRValue) string {
	switch val := v.(type) {
	case IRString:
		return string(val)
	case IRInt:
		return strconv.FormatInt(int64(val), 10)
	case IRBool:
		return strconv.FormatBool(bool(val))
	case IRNull, nil:
		return ""
	default:
		return fmt.Sprintf("%v", val)
	}
}
