package viewstate

import (
	"fmt"
	"strings"

	"github.com/roach88/gridview/internal/query"
)

// Ordering is the active sort. An empty Field means server default order,
// in which case Direction carries no meaning.
type Ordering struct {
	Field     string
	Direction query.Direction
}

// IsZero reports whether no field is active.
func (o Ordering) IsZero() bool {
	return o.Field == ""
}

// String renders the ordering as the API does ("-field" for descending).
func (o Ordering) String() string {
	return query.FormatOrdering(o.Field, o.Direction)
}

// ParseOrderingString builds an Ordering from its API form.
func ParseOrderingString(s string) Ordering {
	field, dir := query.ParseOrdering(s)
	if field == "" {
		return Ordering{}
	}
	return Ordering{Field: field, Direction: dir}
}

// SortPolicy decides what a repeated SetOrdering call on the active field does.
type SortPolicy uint8

const (
	// SortPolicyExplicitToggle leaves the ordering unchanged when the active
	// field is set again. Direction changes only through ToggleDirection.
	SortPolicyExplicitToggle SortPolicy = iota

	// SortPolicyToggleOnRepeat flips the direction when the active field is
	// set again, like clicking a sort header twice.
	SortPolicyToggleOnRepeat
)

// String returns the policy name used in view definitions.
func (p SortPolicy) String() string {
	switch p {
	case SortPolicyToggleOnRepeat:
		return "toggle_on_repeat"
	default:
		return "explicit_toggle"
	}
}

// ParseSortPolicy accepts "explicit_toggle", "toggle_on_repeat" or "" (default).
func ParseSortPolicy(s string) (SortPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "explicit_toggle", "explicit":
		return SortPolicyExplicitToggle, nil
	case "toggle_on_repeat", "toggle":
		return SortPolicyToggleOnRepeat, nil
	default:
		return 0, fmt.Errorf("unknown sort policy %q", s)
	}
}

// next applies policy to a SetOrdering(field) request.
func (p SortPolicy) next(cur Ordering, field string) Ordering {
	switch {
	case field == "":
		return Ordering{}
	case field != cur.Field:
		return Ordering{Field: field, Direction: query.Asc}
	case p == SortPolicyToggleOnRepeat:
		return Ordering{Field: field, Direction: cur.Direction.Flip()}
	default:
		return cur
	}
}
