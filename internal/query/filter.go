package query

import (
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/gridview/internal/record"
)

// Operator is a filter comparison.
type Operator string

const (
	OpEqual    Operator = "equal"
	OpNotEqual Operator = "not_equal"
	OpContains Operator = "contains"
	OpGreater  Operator = "greater"
	OpLess     Operator = "less"
	OpEmpty    Operator = "empty"
	OpNotEmpty Operator = "not_empty"
)

// ValidOperators lists the operators every source must support.
var ValidOperators = map[Operator]bool{
	OpEqual:    true,
	OpNotEqual: true,
	OpContains: true,
	OpGreater:  true,
	OpLess:     true,
	OpEmpty:    true,
	OpNotEmpty: true,
}

// Condition compares one record path against a value.
type Condition struct {
	Field    string       `json:"field"`
	Operator Operator     `json:"operator"`
	Value    record.Value `json:"value,omitempty"`
}

// Filter is a conjunction of conditions. The zero Filter matches everything.
type Filter struct {
	Conditions []Condition `json:"conditions,omitempty"`
}

// IsZero reports whether the filter has no conditions.
func (f Filter) IsZero() bool {
	return len(f.Conditions) == 0
}

// And returns a new filter with c appended.
func (f Filter) And(c Condition) Filter {
	conds := make([]Condition, 0, len(f.Conditions)+1)
	conds = append(conds, f.Conditions...)
	return Filter{Conditions: append(conds, c)}
}

// Validate checks every condition.
func (f Filter) Validate() error {
	var errs []error
	for i, c := range f.Conditions {
		if c.Field == "" {
			errs = append(errs, fmt.Errorf("condition %d: field is required", i))
		}
		if !ValidOperators[c.Operator] {
			errs = append(errs, fmt.Errorf("condition %d: unknown operator %q", i, c.Operator))
			continue
		}
		if c.Operator != OpEmpty && c.Operator != OpNotEmpty && record.IsEmpty(c.Value) {
			errs = append(errs, fmt.Errorf("condition %d: operator %q needs a value", i, c.Operator))
		}
	}
	return errors.Join(errs...)
}

// ParseCondition parses the CLI shorthand "field=value", "field!=value",
// "field~value", "field>value", "field<value", "field?" (empty) and
// "field!?" (not empty). Numeric and boolean values are typed.
func ParseCondition(s string) (Condition, error) {
	s = strings.TrimSpace(s)
	switch {
	case strings.HasSuffix(s, "!?"):
		return Condition{Field: strings.TrimSuffix(s, "!?"), Operator: OpNotEmpty}, nil
	case strings.HasSuffix(s, "?"):
		return Condition{Field: strings.TrimSuffix(s, "?"), Operator: OpEmpty}, nil
	}
	for _, op := range []struct {
		token string
		op    Operator
	}{
		{"!=", OpNotEqual},
		{"=", OpEqual},
		{"~", OpContains},
		{">", OpGreater},
		{"<", OpLess},
	} {
		if field, value, found := strings.Cut(s, op.token); found {
			if field == "" {
				break
			}
			return Condition{Field: field, Operator: op.op, Value: parseScalar(value)}, nil
		}
	}
	return Condition{}, fmt.Errorf("invalid filter %q", s)
}

func parseScalar(s string) record.Value {
	if v, err := record.UnmarshalValue([]byte(s)); err == nil {
		switch v.(type) {
		case record.Int, record.Float, record.Bool:
			return v
		}
	}
	return record.String(s)
}

func (f Filter) toValue() record.Value {
	arr := make(record.Array, len(f.Conditions))
	for i, c := range f.Conditions {
		v := c.Value
		if v == nil {
			v = record.Null{}
		}
		arr[i] = record.Object{
			"field":    record.String(c.Field),
			"operator": record.String(string(c.Operator)),
			"value":    v,
		}
	}
	return arr
}

// MarshalCanonical returns the canonical JSON encoding of the filter's conditions.
func (f Filter) MarshalCanonical() ([]byte, error) {
	return record.MarshalCanonical(f.toValue())
}
