package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/gridview/internal/query"
	"github.com/roach88/gridview/internal/viewdef"
)

// Scenario defines one view scenario.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// View is the path of a view definition file, relative to the scenario
	// file. Exactly one of View and Definition is set.
	View string `yaml:"view,omitempty"`

	// Definition is an inline view definition.
	Definition *viewdef.Definition `yaml:"definition,omitempty"`

	// Records is the initial record set.
	Records RecordSet `yaml:"records"`

	// Source selects the record source: "memory" (default) or "sqlite".
	Source string `yaml:"source,omitempty"`

	// Steps are the operations to perform, in order.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final view.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// RecordSet describes the records a scenario starts with. The sources are
// concatenated: generated records first, then inline, then file records.
type RecordSet struct {
	// Generate creates n records {"id": i, "title": "task i", "n": i}.
	Generate int `yaml:"generate,omitempty"`

	// Inline records.
	Inline []map[string]any `yaml:"inline,omitempty"`

	// File is a JSON record file relative to the scenario file.
	File string `yaml:"file,omitempty"`
}

// Step is one operation with an optional expectation.
type Step struct {
	Op string `yaml:"op"`

	Page    int      `yaml:"page,omitempty"`
	Size    int      `yaml:"size,omitempty"`
	ID      string   `yaml:"id,omitempty"`
	IDs     []string `yaml:"ids,omitempty"`
	Column  string   `yaml:"column,omitempty"` // also the ordering for set_ordering
	Filter  []string `yaml:"filter,omitempty"` // shorthand conditions, "n>3"
	Calls   []int    `yaml:"calls,omitempty"`  // call indexes, in release order
	Status  int      `yaml:"status,omitempty"` // fail_next server status
	Message string   `yaml:"message,omitempty"`

	Expect *Expect `yaml:"expect,omitempty"`
}

// Expect checks the view after a step. Unset fields are not checked.
type Expect struct {
	// Error is a substring of the error the operation must return. When
	// empty the operation must succeed.
	Error string `yaml:"error,omitempty"`

	Status     string   `yaml:"status,omitempty"`
	Page       int      `yaml:"page,omitempty"`
	Total      *int     `yaml:"total,omitempty"`
	Rows       *int     `yaml:"rows,omitempty"`
	RowIDs     []string `yaml:"row_ids,omitempty"`
	Selected   *int     `yaml:"selected,omitempty"`
	Ordering   *string  `yaml:"ordering,omitempty"`
	FetchError string   `yaml:"fetch_error,omitempty"`
}

// Step operations.
const (
	OpReload          = "reload"
	OpRefresh         = "refresh"
	OpRetry           = "retry"
	OpSetOrdering     = "set_ordering"
	OpToggleDirection = "toggle_direction"
	OpSetPage         = "set_page"
	OpSetPageSize     = "set_page_size"
	OpSetFilter       = "set_filter"
	OpSelect          = "select"
	OpSelectAll       = "select_all"
	OpClearAll        = "clear_all"
	OpHighlight       = "highlight"
	OpRefreshRow      = "refresh_row"
	OpRefreshCell     = "refresh_cell"
	OpRemoveRecords   = "remove_records"
	OpFailNext        = "fail_next"
	OpGate            = "gate"
	OpRelease         = "release"
)

// Source kinds.
const (
	SourceMemory = "memory"
	SourceSQLite = "sqlite"
)

// memoryOnly lists operations that need the in-memory source.
var memoryOnly = map[string]bool{
	OpFailNext: true,
	OpGate:     true,
	OpRelease:  true,
}

// LoadScenario reads and parses a scenario YAML file. Relative view and
// record file paths are resolved against the scenario's directory.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	s, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}

	base := filepath.Dir(path)
	if s.View != "" && !filepath.IsAbs(s.View) {
		s.View = filepath.Join(base, s.View)
	}
	if s.Records.File != "" && !filepath.IsAbs(s.Records.File) {
		s.Records.File = filepath.Join(base, s.Records.File)
	}
	return s, nil
}

// ParseScenario parses scenario YAML with strict field validation. Paths
// are left as written.
func ParseScenario(data []byte) (*Scenario, error) {
	var s Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&s); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&s); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &s, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if (s.View == "") == (s.Definition == nil) {
		return fmt.Errorf("exactly one of view and definition is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}
	if s.Records.Generate < 0 {
		return fmt.Errorf("records.generate must be non-negative")
	}

	switch s.Source {
	case "", SourceMemory, SourceSQLite:
	default:
		return fmt.Errorf("unknown source %q", s.Source)
	}

	for i, step := range s.Steps {
		if err := validateStep(i, step, s.Source); err != nil {
			return err
		}
	}
	for i, a := range s.Assertions {
		if err := validateAssertion(i, &a); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(i int, step Step, source string) error {
	switch step.Op {
	case "":
		return fmt.Errorf("steps[%d]: op is required", i)
	case OpReload, OpRefresh, OpRetry, OpToggleDirection, OpSelectAll, OpClearAll, OpGate, OpFailNext:
	case OpSetOrdering, OpHighlight:
		// "" is meaningful for both: clear ordering, clear highlight
	case OpSetPage:
		if step.Page == 0 {
			return fmt.Errorf("steps[%d]: page is required for %s", i, step.Op)
		}
	case OpSetPageSize:
		if step.Size == 0 {
			return fmt.Errorf("steps[%d]: size is required for %s", i, step.Op)
		}
	case OpSetFilter:
		for j, c := range step.Filter {
			if _, err := query.ParseCondition(c); err != nil {
				return fmt.Errorf("steps[%d].filter[%d]: %w", i, j, err)
			}
		}
	case OpSelect, OpRefreshRow:
		if step.ID == "" {
			return fmt.Errorf("steps[%d]: id is required for %s", i, step.Op)
		}
	case OpRefreshCell:
		if step.ID == "" || step.Column == "" {
			return fmt.Errorf("steps[%d]: id and column are required for %s", i, step.Op)
		}
	case OpRemoveRecords:
		if len(step.IDs) == 0 {
			return fmt.Errorf("steps[%d]: ids are required for %s", i, step.Op)
		}
	case OpRelease:
		if len(step.Calls) == 0 {
			return fmt.Errorf("steps[%d]: calls are required for %s", i, step.Op)
		}
	default:
		return fmt.Errorf("steps[%d]: unknown op %q", i, step.Op)
	}

	if source == SourceSQLite && memoryOnly[step.Op] {
		return fmt.Errorf("steps[%d]: %s needs the memory source", i, step.Op)
	}
	return nil
}
