package query

import (
	"cmp"
	"slices"
	"strings"

	"github.com/roach88/gridview/internal/record"
)

// Compare orders two values the way sources sort a column: missing and
// null first, then booleans, numbers, strings, and finally composite values
// by their canonical text.
func Compare(a, b record.Value) int {
	ra, rb := rank(a), rank(b)
	if ra != rb {
		return cmp.Compare(ra, rb)
	}
	switch ra {
	case 0:
		return 0
	case 1:
		return cmp.Compare(boolInt(a), boolInt(b))
	case 2:
		fa, _ := number(a)
		fb, _ := number(b)
		return cmp.Compare(fa, fb)
	default:
		return strings.Compare(record.Text(a), record.Text(b))
	}
}

func rank(v record.Value) int {
	switch v.(type) {
	case nil, record.Empty, record.Null:
		return 0
	case record.Bool:
		return 1
	case record.Int, record.Float:
		return 2
	case record.String:
		return 3
	default:
		return 4
	}
}

func boolInt(v record.Value) int {
	if b, ok := v.(record.Bool); ok && bool(b) {
		return 1
	}
	return 0
}

func number(v record.Value) (float64, bool) {
	switch n := v.(type) {
	case record.Int:
		return float64(n), true
	case record.Float:
		return float64(n), true
	default:
		return 0, false
	}
}

// Match reports whether rec satisfies every condition of f.
func (f Filter) Match(rec record.Record) bool {
	for _, c := range f.Conditions {
		if !c.Match(rec) {
			return false
		}
	}
	return true
}

// Match reports whether rec satisfies c. Unknown operators never match.
func (c Condition) Match(rec record.Record) bool {
	v := rec.Get(c.Field)
	switch c.Operator {
	case OpEmpty:
		return isBlank(v)
	case OpNotEmpty:
		return !isBlank(v)
	case OpEqual:
		return !isBlank(v) && Compare(v, c.Value) == 0
	case OpNotEqual:
		return isBlank(v) || Compare(v, c.Value) != 0
	case OpContains:
		return strings.Contains(strings.ToLower(record.Text(v)), strings.ToLower(record.Text(c.Value)))
	case OpGreater:
		return rank(v) == rank(c.Value) && Compare(v, c.Value) > 0
	case OpLess:
		return rank(v) == rank(c.Value) && Compare(v, c.Value) < 0
	default:
		return false
	}
}

func isBlank(v record.Value) bool {
	switch val := v.(type) {
	case nil, record.Empty, record.Null:
		return true
	case record.String:
		return val == ""
	case record.Array:
		return len(val) == 0
	default:
		return false
	}
}

// Apply evaluates p against an in-memory record set: ids, filter, ordering
// with an id tiebreaker, then the page window and the include list. It
// returns the page and the total number of matching records.
func Apply(records []record.Record, p ListParams) ([]record.Record, int) {
	var ids map[string]bool
	if len(p.IDs) > 0 {
		ids = make(map[string]bool, len(p.IDs))
		for _, id := range p.IDs {
			ids[id] = true
		}
	}

	matched := make([]record.Record, 0, len(records))
	for _, rec := range records {
		if ids != nil && !ids[rec.ID()] {
			continue
		}
		if p.Filter.Match(rec) {
			matched = append(matched, rec)
		}
	}

	slices.SortStableFunc(matched, func(a, b record.Record) int {
		if p.OrderField != "" {
			c := Compare(a.Get(p.OrderField), b.Get(p.OrderField))
			if p.OrderDirection == Desc {
				c = -c
			}
			if c != 0 {
				return c
			}
		}
		return Compare(a.Fields()[record.IDField], b.Fields()[record.IDField])
	})

	total := len(matched)
	start := min(p.Offset(), total)
	end := total
	if p.PageSize > 0 {
		end = min(start+p.PageSize, total)
	}
	page := matched[start:end]

	out := make([]record.Record, len(page))
	for i, rec := range page {
		if len(p.Include) > 0 {
			rec = rec.Pick(p.Include)
		}
		out[i] = rec
	}
	return out, total
}
