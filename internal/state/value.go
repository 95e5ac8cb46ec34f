package state

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"unicode/utf16"
)

// Value is a sealed interface representing constrained payload values.
// Only String, Int, Bool, Array, and Object implement it.
// NO floats and NO nulls - both break deterministic replay and hashing.
type Value interface {
	value() // Sealed - only these types implement it
}

// String represents a string payload value.
type String string

func (String) value() {}

// Int represents an integer payload value. Always int64, never float64.
type Int int64

func (Int) value() {}

// Bool represents a boolean payload value.
type Bool bool

func (Bool) value() {}

// Array represents an ordered list of payload values.
type Array []Value

func (Array) value() {}

// Object represents a map of string keys to payload values.
// Use SortedKeys() for deterministic iteration.
type Object map[string]Value

func (Object) value() {}

// SortedKeys returns keys in RFC 8785 canonical order (UTF-16 code units).
// CRITICAL: Go's sort.Strings uses UTF-8 which produces DIFFERENT order.
func (obj Object) SortedKeys() []string {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareKeysRFC8785)
	return keys
}

// compareKeysRFC8785 compares strings using UTF-16 code unit ordering as
// required by RFC 8785. Must use unicode/utf16.Encode for correct
// surrogate handling.
func compareKeysRFC8785(a, b string) int {
	a16 := utf16.Encode([]rune(a))
	b16 := utf16.Encode([]rune(b))

	minLen := min(len(a16), len(b16))
	for i := 0; i < minLen; i++ {
		if a16[i] != b16[i] {
			if a16[i] < b16[i] {
				return -1
			}
			return 1
		}
	}

	if len(a16) < len(b16) {
		return -1
	}
	if len(a16) > len(b16) {
		return 1
	}
	return 0
}

// MarshalJSON implements json.Marshaler for Object with RFC 8785 key
// ordering. NOTE: this is NOT canonical marshaling - it may HTML-escape.
// Use MarshalCanonical for hashing and golden traces.
func (obj Object) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')

	for i, k := range obj.SortedKeys() {
		if i > 0 {
			buf.WriteByte(',')
		}
		keyBytes, err := json.Marshal(k)
		if err != nil {
			return nil, fmt.Errorf("marshal key %q: %w", k, err)
		}
		buf.Write(keyBytes)
		buf.WriteByte(':')

		valBytes, err := MarshalValue(obj[k])
		if err != nil {
			return nil, fmt.Errorf("marshal value for key %q: %w", k, err)
		}
		buf.Write(valBytes)
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON implements json.Unmarshaler for Object.
func (obj *Object) UnmarshalJSON(data []byte) error {
	v, err := UnmarshalValue(data)
	if err != nil {
		return err
	}
	o, ok := v.(Object)
	if !ok {
		return fmt.Errorf("expected object, got %T", v)
	}
	*obj = o
	return nil
}

// MarshalValue marshals a Value to JSON bytes with deterministic key
// order. NOTE: not canonical - use MarshalCanonical for hashing.
func MarshalValue(v Value) ([]byte, error) {
	switch val := v.(type) {
	case String:
		return json.Marshal(string(val))
	case Int:
		return json.Marshal(int64(val))
	case Bool:
		return json.Marshal(bool(val))
	case Array:
		var buf bytes.Buffer
		buf.WriteByte('[')
		for i, elem := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			elemBytes, err := MarshalValue(elem)
			if err != nil {
				return nil, fmt.Errorf("array[%d]: %w", i, err)
			}
			buf.Write(elemBytes)
		}
		buf.WriteByte(']')
		return buf.Bytes(), nil
	case Object:
		return val.MarshalJSON()
	default:
		return nil, fmt.Errorf("unknown Value type: %T", v)
	}
}

// UnmarshalValue deserializes JSON into a Value with strict validation.
// CRITICAL: rejects floats AND null - only string/int/bool/array/object.
func UnmarshalValue(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}

	return ToValue(raw)
}

// ToValue recursively converts a decoded Go value to a Value.
// Rejects null and floats. YAML and JSON decoders both produce shapes
// this accepts (map[string]any, []any, json.Number, int, string, bool).
func ToValue(v any) (Value, error) {
	switch val := v.(type) {
	case nil:
		return nil, fmt.Errorf("null is forbidden in payload values: only string, int, bool, array, object allowed")
	case bool:
		return Bool(val), nil
	case string:
		return String(val), nil
	case int:
		return Int(val), nil
	case int64:
		return Int(val), nil
	case json.Number:
		s := string(val)
		if strings.ContainsAny(s, ".eE") {
			return nil, fmt.Errorf("floats are forbidden in payload values: %s", val)
		}
		n, err := val.Int64()
		if err != nil {
			return nil, fmt.Errorf("number out of int64 range: %s", val)
		}
		return Int(n), nil
	case float64:
		return nil, fmt.Errorf("floats are forbidden in payload values: %v", val)
	case []any:
		arr := make(Array, len(val))
		for i, elem := range val {
			converted, err := ToValue(elem)
			if err != nil {
				return nil, fmt.Errorf("array[%d]: %w", i, err)
			}
			arr[i] = converted
		}
		return arr, nil
	case map[string]any:
		obj := make(Object, len(val))
		for k, elem := range val {
			converted, err := ToValue(elem)
			if err != nil {
				return nil, fmt.Errorf("object[%q]: %w", k, err)
			}
			obj[k] = converted
		}
		return obj, nil
	default:
		return nil, fmt.Errorf("unsupported type: %T", v)
	}
}

// ToObject converts a decoded map (e.g. from YAML scenario args) to an
// Object with the same strict rules as ToValue.
func ToObject(m map[string]any) (Object, error) {
	obj := make(Object, len(m))
	for k, v := range m {
		converted, err := ToValue(v)
		if err != nil {
			return nil, fmt.Errorf("object[%q]: %w", k, err)
		}
		obj[k] = converted
	}
	return obj, nil
}

// Equal reports whether two Objects are deeply equal.
// Comparison goes through canonical bytes so ordering never matters.
func (obj Object) Equal(other Object) bool {
	a, err := MarshalCanonical(obj)
	if err != nil {
		return false
	}
	b, err := MarshalCanonical(other)
	if err != nil {
		return false
	}
	return bytes.Equal(a, b)
}

// Clone returns a deep copy of the object.
func (obj Object) Clone() Object {
	out := make(Object, len(obj))
	for k, v := range obj {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v Value) Value {
	switch val := v.(type) {
	case Array:
		out := make(Array, len(val))
		for i, elem := range val {
			out[i] = cloneValue(elem)
		}
		return out
	case Object:
		return val.Clone()
	default:
		// String, Int, Bool are value types
		return val
	}
}
