package record

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// Value is a sealed interface over the values a record field can hold.
// Only Empty, Null, String, Int, Float, Bool, Array and Object implement it.
type Value interface {
	recordValue()
}

// Empty marks a path that does not exist in the record.
// It never appears inside a decoded record, only as a lookup result.
type Empty struct{}

func (Empty) recordValue() {}

// Null is an explicit JSON null sent by the server.
type Null struct{}

func (Null) recordValue() {}

// MarshalJSON implements json.Marshaler for Null.
func (Null) MarshalJSON() ([]byte, error) {
	return []byte("null"), nil
}

// String is a text value.
type String string

func (String) recordValue() {}

// Int is an integral number.
type Int int64

func (Int) recordValue() {}

// Float is a number with a fractional part or exponent.
type Float float64

func (Float) recordValue() {}

// Bool is a boolean value.
type Bool bool

func (Bool) recordValue() {}

// Array is an ordered list of values.
type Array []Value

func (Array) recordValue() {}

// Object maps field names to values. Use SortedKeys for deterministic iteration.
type Object map[string]Value

func (Object) recordValue() {}

// SortedKeys returns the object's keys in byte order.
func (obj Object) SortedKeys() []string {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// IsEmpty reports whether v is the missing-path marker (or a nil interface).
func IsEmpty(v Value) bool {
	if v == nil {
		return true
	}
	_, ok := v.(Empty)
	return ok
}

// NativeType returns the type name used for renderer resolution when a
// column has no alias. Empty values report "" so callers fall through to
// the default renderer.
func NativeType(v Value) string {
	switch v.(type) {
	case String:
		return "string"
	case Int, Float:
		return "number"
	case Bool:
		return "boolean"
	case Array:
		return "list"
	case Object:
		return "object"
	case Null:
		return "null"
	default:
		return ""
	}
}

// Text returns a plain-text rendering of v, the universal raw display.
// Empty and Null render as "".
func Text(v Value) string {
	switch val := v.(type) {
	case nil, Empty, Null:
		return ""
	case String:
		return string(val)
	case Int:
		return strconv.FormatInt(int64(val), 10)
	case Float:
		return strconv.FormatFloat(float64(val), 'f', -1, 64)
	case Bool:
		return strconv.FormatBool(bool(val))
	case Array:
		parts := make([]string, len(val))
		for i, elem := range val {
			parts[i] = Text(elem)
		}
		return strings.Join(parts, ", ")
	case Object:
		b, err := MarshalCanonical(val)
		if err != nil {
			return ""
		}
		return string(b)
	default:
		return ""
	}
}

// FromAny converts decoded Go values (json, yaml or hand-built maps) into a
// Value. Unsupported types are reported as errors.
func FromAny(v any) (Value, error) {
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
	case int32:
		return Int(val), nil
	case int64:
		return Int(val), nil
	case uint64:
		return Int(int64(val)), nil
	case float32:
		return numberFromFloat(float64(val)), nil
	case float64:
		return numberFromFloat(val), nil
	case json.Number:
		return numberFromJSON(val)
	case []any:
		arr := make(Array, len(val))
		for i, elem := range val {
			conv, err := FromAny(elem)
			if err != nil {
				return nil, fmt.Errorf("array[%d]: %w", i, err)
			}
			arr[i] = conv
		}
		return arr, nil
	case map[string]any:
		obj := make(Object, len(val))
		for k, elem := range val {
			conv, err := FromAny(elem)
			if err != nil {
				return nil, fmt.Errorf("object[%q]: %w", k, err)
			}
			obj[k] = conv
		}
		return obj, nil
	default:
		return nil, fmt.Errorf("unsupported type: %T", v)
	}
}

// numberFromFloat keeps whole floats (as produced by encoding/json into any)
// as Int so ids compare equal regardless of the decoder used.
func numberFromFloat(f float64) Value {
	if f == float64(int64(f)) && f >= -1<<53 && f <= 1<<53 {
		return Int(int64(f))
	}
	return Float(f)
}

func numberFromJSON(n json.Number) (Value, error) {
	s := string(n)
	if !strings.ContainsAny(s, ".eE") {
		i, err := n.Int64()
		if err == nil {
			return Int(i), nil
		}
	}
	f, err := n.Float64()
	if err != nil {
		return nil, fmt.Errorf("invalid number %q: %w", s, err)
	}
	return Float(f), nil
}

// UnmarshalValue decodes a JSON document into a Value, keeping integers exact.
func UnmarshalValue(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	return FromAny(raw)
}

// MarshalValue encodes a Value as plain (non-canonical) JSON.
func MarshalValue(v Value) ([]byte, error) {
	switch val := v.(type) {
	case nil, Empty, Null:
		return []byte("null"), nil
	case String:
		return json.Marshal(string(val))
	case Int:
		return json.Marshal(int64(val))
	case Float:
		return json.Marshal(float64(val))
	case Bool:
		return json.Marshal(bool(val))
	case Array, Object:
		return MarshalCanonical(val)
	default:
		return nil, fmt.Errorf("unknown Value type: %T", v)
	}
}

// UnmarshalJSON implements json.Unmarshaler for Object.
func (obj *Object) UnmarshalJSON(data []byte) error {
	v, err := UnmarshalValue(data)
	if err != nil {
		return err
	}
	o, ok := v.(Object)
	if !ok {
		return fmt.Errorf("expected JSON object, got %s", NativeType(v))
	}
	*obj = o
	return nil
}

// MarshalJSON implements json.Marshaler for Object.
func (obj Object) MarshalJSON() ([]byte, error) {
	return MarshalCanonical(obj)
}

// MarshalJSON implements json.Marshaler for Array.
func (arr Array) MarshalJSON() ([]byte, error) {
	return MarshalCanonical(arr)
}

// MarshalJSON implements json.Marshaler for Empty; a missing value encodes as null.
func (Empty) MarshalJSON() ([]byte, error) {
	return []byte("null"), nil
}
