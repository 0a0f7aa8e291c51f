// Package viewdef loads table view definitions from CUE or YAML files and
// turns them into the column store and options a grid.View is built from.
package viewdef

import (
	"context"
	"errors"
	"fmt"

	"cuelang.org/go/cue/token"

	"github.com/roach88/gridview/internal/column"
	"github.com/roach88/gridview/internal/grid"
	"github.com/roach88/gridview/internal/remote"
	"github.com/roach88/gridview/internal/viewstate"
)

// Definition describes one table view.
type Definition struct {
	ID string `json:"id" yaml:"id"`
	// Columns is the heterogeneous column list accepted by column.Normalize.
	Columns         []any    `json:"columns" yaml:"columns"`
	PageSizes       []int    `json:"page_sizes,omitempty" yaml:"page_sizes,omitempty"`
	DefaultPageSize int      `json:"default_page_size,omitempty" yaml:"default_page_size,omitempty"`
	Ordering        string   `json:"ordering,omitempty" yaml:"ordering,omitempty"`
	SortPolicy      string   `json:"sort_policy,omitempty" yaml:"sort_policy,omitempty"`
	PrimaryFields   []string `json:"primary_fields,omitempty" yaml:"primary_fields,omitempty"`
	SecondaryFields []string `json:"secondary_fields,omitempty" yaml:"secondary_fields,omitempty"`

	// Envelope paths for the HTTP source; empty means the source defaults.
	ResultsPath string `json:"results_path,omitempty" yaml:"results_path,omitempty"`
	CountPath   string `json:"count_path,omitempty" yaml:"count_path,omitempty"`
}

// DefinitionError reports an invalid definition field, with its source
// position when the definition came from CUE.
type DefinitionError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *DefinitionError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks the definition, including its columns and state options.
// All problems are reported together.
func (d Definition) Validate() error {
	var errs []error
	if d.ID == "" {
		errs = append(errs, &DefinitionError{Field: "id", Message: "id is required"})
	}
	if len(d.Columns) == 0 {
		errs = append(errs, &DefinitionError{Field: "columns", Message: "at least one column is required"})
	}
	if _, err := viewstate.ParseSortPolicy(d.SortPolicy); err != nil {
		errs = append(errs, &DefinitionError{Field: "sort_policy", Message: err.Error()})
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	cols, err := d.ColumnStore()
	if err != nil {
		return err
	}
	opts, err := d.StateOptions()
	if err != nil {
		return err
	}
	if _, err := viewstate.New(cols, opts...); err != nil {
		return &DefinitionError{Field: "view", Message: err.Error()}
	}
	return nil
}

// ColumnStore normalizes the column list.
func (d Definition) ColumnStore() (*column.Store, error) {
	return column.Normalize(d.Columns)
}

// StateOptions returns the view state options the definition declares.
func (d Definition) StateOptions() ([]viewstate.Option, error) {
	policy, err := viewstate.ParseSortPolicy(d.SortPolicy)
	if err != nil {
		return nil, &DefinitionError{Field: "sort_policy", Message: err.Error()}
	}

	opts := []viewstate.Option{viewstate.WithSortPolicy(policy)}
	if len(d.PageSizes) > 0 {
		opts = append(opts, viewstate.WithPageSizes(d.PageSizes...))
	}
	if d.DefaultPageSize != 0 {
		opts = append(opts, viewstate.WithPageSize(d.DefaultPageSize))
	}
	if d.Ordering != "" {
		opts = append(opts, viewstate.WithOrdering(viewstate.ParseOrderingString(d.Ordering)))
	}
	if len(d.PrimaryFields) > 0 {
		opts = append(opts, viewstate.WithInclude(d.PrimaryFields...))
	}
	return opts, nil
}

// ViewOptions returns the grid options the definition declares.
func (d Definition) ViewOptions() ([]grid.Option, error) {
	stateOpts, err := d.StateOptions()
	if err != nil {
		return nil, err
	}
	opts := []grid.Option{grid.WithStateOptions(stateOpts...)}
	if len(d.SecondaryFields) > 0 {
		opts = append(opts, grid.WithSecondaryFields(d.SecondaryFields...))
	}
	return opts, nil
}

// NewView builds a view for the definition over source. extra options are
// applied after the definition's own.
func (d Definition) NewView(ctx context.Context, source remote.Source, extra ...grid.Option) (*grid.View, error) {
	cols, err := d.ColumnStore()
	if err != nil {
		return nil, err
	}
	opts, err := d.ViewOptions()
	if err != nil {
		return nil, err
	}
	return grid.New(ctx, d.ID, cols, source, append(opts, extra...)...)
}
