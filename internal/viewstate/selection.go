package viewstate

import "slices"

// Selection tracks which rows are selected.
//
// With AllSelected false the id set lists the selected rows. With
// AllSelected true every row of the full remote result is selected except
// those listed. Toggling a single row never changes the mode.
//
// Selection is a value: every operation returns a new Selection and leaves
// the receiver untouched.
type Selection struct {
	ids         map[string]struct{}
	allSelected bool
}

// AllSelected reports whether the id set is an exclusion set.
func (s Selection) AllSelected() bool {
	return s.allSelected
}

// IDs returns the listed ids in sorted order.
func (s Selection) IDs() []string {
	out := make([]string, 0, len(s.ids))
	for id := range s.ids {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}

// IsSelected reports whether the row with id is effectively selected.
func (s Selection) IsSelected(id string) bool {
	_, listed := s.ids[id]
	return listed != s.allSelected
}

// Count returns how many rows are selected out of total remote rows.
func (s Selection) Count(total int) int {
	if !s.allSelected {
		return len(s.ids)
	}
	n := total - len(s.ids)
	if n < 0 {
		return 0
	}
	return n
}

// IsZero reports whether nothing is selected and the mode is inclusion.
func (s Selection) IsZero() bool {
	return !s.allSelected && len(s.ids) == 0
}

// Toggle flips membership of id in the set.
func (s Selection) Toggle(id string) Selection {
	ids := make(map[string]struct{}, len(s.ids)+1)
	for k := range s.ids {
		ids[k] = struct{}{}
	}
	if _, ok := ids[id]; ok {
		delete(ids, id)
	} else {
		ids[id] = struct{}{}
	}
	return Selection{ids: ids, allSelected: s.allSelected}
}

// SelectAll returns exclusion mode with nothing excluded.
func (s Selection) SelectAll() Selection {
	return Selection{allSelected: true}
}

// Clear returns inclusion mode with nothing included.
func (s Selection) Clear() Selection {
	return Selection{}
}
