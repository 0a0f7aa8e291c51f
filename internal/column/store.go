package column

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Store is an immutable, ordered set of column descriptors.
type Store struct {
	columns []Descriptor
	byID    map[string]int
	bySlot  map[Slot]int
}

// Normalize classifies a heterogeneous list of column definitions and builds
// a Store. Accepted entries:
//   - a bare string id ("title")
//   - a map with loosely named keys (id|name|field|key, title|label|header,
//     alias|type_hint, type|currentType, visible|hidden, sortable|orderable,
//     kind, path)
//   - a Descriptor or *Descriptor
//
// Optional fields never cause errors. Duplicate ids, duplicate slots and
// entries without an id are reported together as joined *ConfigError values.
func Normalize(inputs []any) (*Store, error) {
	s := &Store{
		columns: make([]Descriptor, 0, len(inputs)),
		byID:    make(map[string]int, len(inputs)),
		bySlot:  make(map[Slot]int),
	}

	var errs []error
	for i, in := range inputs {
		d, err := classify(in)
		if err != nil {
			errs = append(errs, &ConfigError{Code: ErrCodeInvalidColumn, Index: i, Message: err.Error()})
			continue
		}

		if prev, dup := s.byID[d.ID]; dup {
			errs = append(errs, &ConfigError{
				Code:     ErrCodeDuplicateID,
				Index:    i,
				ColumnID: d.ID,
				Message:  fmt.Sprintf("id already defined at index %d", prev),
			})
			continue
		}
		if slot := d.Slot(); slot != SlotNone {
			if prev, dup := s.bySlot[slot]; dup {
				errs = append(errs, &ConfigError{
					Code:     ErrCodeDuplicateSlot,
					Index:    i,
					ColumnID: d.ID,
					Message:  fmt.Sprintf("slot %q already taken by column %q", slot, s.columns[prev].ID),
				})
				continue
			}
			s.bySlot[slot] = len(s.columns)
		}

		s.byID[d.ID] = len(s.columns)
		s.columns = append(s.columns, d)
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return s, nil
}

// MustNormalize is Normalize for static definitions; it panics on error.
func MustNormalize(inputs ...any) *Store {
	s, err := Normalize(inputs)
	if err != nil {
		panic(err)
	}
	return s
}

// Get returns the column with the given id.
func (s *Store) Get(id string) (Descriptor, bool) {
	i, ok := s.byID[id]
	if !ok {
		return Descriptor{}, false
	}
	return s.columns[i], true
}

// VisibleOrdered returns visible columns in definition order.
func (s *Store) VisibleOrdered() []Descriptor {
	out := make([]Descriptor, 0, len(s.columns))
	for _, d := range s.columns {
		if d.Visible {
			out = append(out, d)
		}
	}
	return out
}

// FindBySlot returns the column occupying slot, if any.
func (s *Store) FindBySlot(slot Slot) (Descriptor, bool) {
	i, ok := s.bySlot[slot]
	if !ok {
		return Descriptor{}, false
	}
	return s.columns[i], true
}

// All returns every column, hidden ones included, in definition order.
func (s *Store) All() []Descriptor {
	out := make([]Descriptor, len(s.columns))
	copy(out, s.columns)
	return out
}

// Len returns the number of columns.
func (s *Store) Len() int {
	return len(s.columns)
}

// IsVisible reports whether id names a visible column.
func (s *Store) IsVisible(id string) bool {
	d, ok := s.Get(id)
	return ok && d.Visible
}

func classify(in any) (Descriptor, error) {
	var d Descriptor
	switch v := in.(type) {
	case string:
		d = Descriptor{ID: strings.TrimSpace(v), Visible: true, Sortable: true}
		if isControlID(d.ID) {
			d.Kind = KindControl
			d.Sortable = false
		}
	case Descriptor:
		d = v
	case *Descriptor:
		if v == nil {
			return Descriptor{}, errors.New("nil descriptor")
		}
		d = *v
	case map[string]any:
		var err error
		d, err = fromMap(v)
		if err != nil {
			return Descriptor{}, err
		}
	default:
		return Descriptor{}, fmt.Errorf("unsupported column definition type %T", in)
	}

	if d.ID == "" {
		return Descriptor{}, errors.New("column has no id")
	}
	if d.Title == "" {
		d.Title = DeriveTitle(d.ID)
	}
	return d, nil
}

func fromMap(m map[string]any) (Descriptor, error) {
	d := Descriptor{
		ID:        firstString(m, "id", "name", "field", "key"),
		Alias:     firstString(m, "alias", "type_hint"),
		Type:      firstString(m, "type", "currentType", "current_type"),
		Title:     firstString(m, "title", "label", "header"),
		FieldPath: firstString(m, "path"),
	}

	switch firstString(m, "kind") {
	case "control":
		d.Kind = KindControl
	case "data", "":
		if isControlID(d.ID) {
			d.Kind = KindControl
		}
	default:
		return Descriptor{}, fmt.Errorf("unknown kind %q", firstString(m, "kind"))
	}

	d.Visible = true
	if v, ok := firstBool(m, "visible"); ok {
		d.Visible = v
	} else if h, ok := firstBool(m, "hidden"); ok {
		d.Visible = !h
	}

	d.Sortable = d.Kind == KindData
	if v, ok := firstBool(m, "sortable", "orderable"); ok {
		d.Sortable = v
	}
	return d, nil
}

func firstString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		switch v := m[k].(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		case int:
			return strconv.Itoa(v)
		case int64:
			return strconv.FormatInt(v, 10)
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		}
	}
	return ""
}

func firstBool(m map[string]any, keys ...string) (bool, bool) {
	for _, k := range keys {
		switch v := m[k].(type) {
		case bool:
			return v, true
		case string:
			if b, err := strconv.ParseBool(v); err == nil {
				return b, true
			}
		}
	}
	return false, false
}
