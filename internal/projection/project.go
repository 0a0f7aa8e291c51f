// Package projection turns a row and a column set into renderer-agnostic
// cell instructions.
//
// Projection is pure: it reads the record, the immutable column store and the
// immutable registry, and returns fresh values. Repeated calls with the same
// inputs return identical output.
package projection

import (
	"github.com/sourcegraph/conc/iter"

	"github.com/roach88/gridview/internal/celltype"
	"github.com/roach88/gridview/internal/column"
	"github.com/roach88/gridview/internal/record"
)

// Row is one record together with its view-level flags.
// The flags are independent of each other.
type Row struct {
	Record        record.Record
	IsSelected    bool
	IsHighlighted bool
	IsLoading     bool
	// LoadingField names the one column under async refresh, if any.
	LoadingField string
}

// ID returns the row identifier.
func (r Row) ID() string {
	return r.Record.ID()
}

// CellInstruction is the resolved description of what to display for one
// (row, column) pair. The core never paints; the UI layer does.
type CellInstruction struct {
	ColumnID   string              `json:"column_id"`
	Value      record.Value        `json:"value"`
	Capability celltype.Capability `json:"capability"`
	IsLoading  bool                `json:"is_loading,omitempty"`
}

// Project returns one instruction per visible column, in column order.
// Missing record paths produce record.Empty rather than an error.
func Project(row Row, columns *column.Store, registry *celltype.Registry) []CellInstruction {
	visible := columns.VisibleOrdered()
	out := make([]CellInstruction, len(visible))
	for i, col := range visible {
		out[i] = projectCell(row, col, registry)
	}
	return out
}

func projectCell(row Row, col column.Descriptor, registry *celltype.Registry) CellInstruction {
	var value record.Value = record.Empty{}
	if col.Kind == column.KindData {
		value = row.Record.Get(col.Path())
	}

	nativeType := col.Type
	if nativeType == "" {
		nativeType = record.NativeType(value)
	}

	return CellInstruction{
		ColumnID:   col.ID,
		Value:      value,
		Capability: registry.Resolve(aliasFor(col), nativeType),
		IsLoading:  row.LoadingField != "" && row.LoadingField == col.ID,
	}
}

// aliasFor picks the name tried first against the registry: the declared
// alias, the id for control columns, otherwise the record path.
func aliasFor(col column.Descriptor) string {
	switch {
	case col.Alias != "":
		return col.Alias
	case col.Kind == column.KindControl:
		return col.ID
	default:
		return col.Path()
	}
}

// ProjectPage projects every row of a page. Rows are projected concurrently;
// the column store and registry are shared read-only. Output order matches
// input order.
func ProjectPage(rows []Row, columns *column.Store, registry *celltype.Registry) [][]CellInstruction {
	return iter.Map(rows, func(r *Row) []CellInstruction {
		return Project(*r, columns, registry)
	})
}
