package grid

import (
	"github.com/roach88/gridview/internal/column"
	"github.com/roach88/gridview/internal/projection"
)

// Snapshot is a consistent, serializable copy of everything a renderer
// needs for one frame.
type Snapshot struct {
	View        string              `json:"view"`
	Status      Status              `json:"status"`
	State       string              `json:"state"`
	Error       string              `json:"error,omitempty"`
	Ordering    string              `json:"ordering"`
	Page        int                 `json:"page"`
	PageSize    int                 `json:"page_size"`
	LastPage    int                 `json:"last_page"`
	TotalItems  int                 `json:"total_items"`
	Selected    int                 `json:"selected"`
	AllSelected bool                `json:"all_selected"`
	SelectedIDs []string            `json:"selected_ids"`
	Columns     []column.Descriptor `json:"columns"`
	Rows        []RowSnapshot       `json:"rows"`
}

// RowSnapshot is one projected row.
type RowSnapshot struct {
	ID          string                       `json:"id"`
	Selected    bool                         `json:"selected,omitempty"`
	Highlighted bool                         `json:"highlighted,omitempty"`
	Loading     bool                         `json:"loading,omitempty"`
	Cells       []projection.CellInstruction `json:"cells"`
}

// Snapshot captures the view under one read lock.
func (v *View) Snapshot() Snapshot {
	v.mu.RLock()
	rows := v.rowsLocked()
	page := v.ctrl.Page()
	sel := v.ctrl.Selection()
	s := Snapshot{
		View:        v.id,
		Status:      v.statusLocked(),
		State:       v.ctrl.State().String(),
		Ordering:    v.ctrl.Ordering().String(),
		Page:        page.Index,
		PageSize:    page.Size,
		LastPage:    page.LastPage(),
		TotalItems:  page.TotalItems,
		Selected:    sel.Count(page.TotalItems),
		AllSelected: sel.AllSelected(),
		SelectedIDs: sel.IDs(),
		Columns:     v.columns.VisibleOrdered(),
	}
	if err := v.ctrl.Err(); err != nil {
		s.Error = err.Error()
	}
	v.mu.RUnlock()

	cells := projection.ProjectPage(rows, v.columns, v.registry)
	s.Rows = make([]RowSnapshot, len(rows))
	for i, r := range rows {
		s.Rows[i] = RowSnapshot{
			ID:          r.ID(),
			Selected:    r.IsSelected,
			Highlighted: r.IsHighlighted,
			Loading:     r.IsLoading,
			Cells:       cells[i],
		}
	}
	return s
}
