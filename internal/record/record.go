package record

import (
	"strconv"
	"strings"
)

// IDField is the record field that identifies a row.
const IDField = "id"

// Record is one server-supplied row. Fields are sparse; any path may be absent.
type Record struct {
	fields Object
}

// New wraps an Object as a Record. The object must not be mutated afterwards.
func New(fields Object) Record {
	if fields == nil {
		fields = Object{}
	}
	return Record{fields: fields}
}

// FromMap builds a Record from decoded Go values.
func FromMap(m map[string]any) (Record, error) {
	v, err := FromAny(m)
	if err != nil {
		return Record{}, err
	}
	return New(v.(Object)), nil
}

// Decode parses one JSON object into a Record.
func Decode(data []byte) (Record, error) {
	var obj Object
	if err := obj.UnmarshalJSON(data); err != nil {
		return Record{}, err
	}
	return New(obj), nil
}

// Fields returns the underlying object. Callers must treat it as read-only.
func (r Record) Fields() Object {
	return r.fields
}

// ID returns the row identifier as a string key, or "" when the record has none.
func (r Record) ID() string {
	return Key(r.fields[IDField])
}

// Key converts an id value into the string form used for selection sets and
// hydration matching, so Int(7) and String("7") address the same row.
func Key(v Value) string {
	switch val := v.(type) {
	case String:
		return string(val)
	case Int:
		return strconv.FormatInt(int64(val), 10)
	case Float:
		return strconv.FormatFloat(float64(val), 'f', -1, 64)
	default:
		return ""
	}
}

// Lookup resolves a dotted path such as "data.image" or "annotators.0.email".
// Numeric segments index into arrays. The empty path returns the whole record.
func (r Record) Lookup(path string) (Value, bool) {
	if path == "" {
		return r.fields, true
	}
	var cur Value = r.fields
	for _, seg := range strings.Split(path, ".") {
		switch node := cur.(type) {
		case Object:
			next, ok := node[seg]
			if !ok {
				return Empty{}, false
			}
			cur = next
		case Array:
			idx, err := strconv.Atoi(seg)
			if err != nil || idx < 0 || idx >= len(node) {
				return Empty{}, false
			}
			cur = node[idx]
		default:
			return Empty{}, false
		}
	}
	return cur, true
}

// Get is Lookup without the presence flag; missing paths yield Empty.
func (r Record) Get(path string) Value {
	v, _ := r.Lookup(path)
	return v
}

// Merge returns a new Record with other's top-level fields laid over r's.
func (r Record) Merge(other Record) Record {
	merged := make(Object, len(r.fields)+len(other.fields))
	for k, v := range r.fields {
		merged[k] = v
	}
	for k, v := range other.fields {
		merged[k] = v
	}
	return Record{fields: merged}
}

// Pick returns a new Record holding only the given top-level paths plus id.
// Nested paths keep their top-level field.
func (r Record) Pick(paths []string) Record {
	out := Object{}
	if id, ok := r.fields[IDField]; ok {
		out[IDField] = id
	}
	for _, p := range paths {
		top, _, _ := strings.Cut(p, ".")
		if v, ok := r.fields[top]; ok {
			out[top] = v
		}
	}
	return Record{fields: out}
}

// MarshalJSON implements json.Marshaler.
func (r Record) MarshalJSON() ([]byte, error) {
	return MarshalCanonical(r.fields)
}

// UnmarshalJSON implements json.Unmarshaler.
func (r *Record) UnmarshalJSON(data []byte) error {
	var obj Object
	if err := obj.UnmarshalJSON(data); err != nil {
		return err
	}
	r.fields = obj
	return nil
}
