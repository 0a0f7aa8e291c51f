package projection

import (
	"strings"

	"github.com/roach88/gridview/internal/column"
	"github.com/roach88/gridview/internal/record"
)

// CardLayout assigns visible columns to the slots used by the card row:
// a select control, a source control, an id header, an image preview and
// everything else in definition order.
type CardLayout struct {
	Select *column.Descriptor
	Source *column.Descriptor
	ID     *column.Descriptor
	Image  *column.Descriptor
	Others []column.Descriptor
}

// Layout computes the card layout for a column set. Hidden columns are ignored.
func Layout(columns *column.Store) CardLayout {
	var l CardLayout
	slot := func(s column.Slot) *column.Descriptor {
		d, ok := columns.FindBySlot(s)
		if !ok || !d.Visible {
			return nil
		}
		return &d
	}
	l.Select = slot(column.SlotSelect)
	l.Source = slot(column.SlotSource)
	l.ID = slot(column.SlotID)
	l.Image = slot(column.SlotImage)

	for _, d := range columns.VisibleOrdered() {
		if d.Slot() == column.SlotNone {
			l.Others = append(l.Others, d)
		}
	}
	return l
}

// Format renders projected rows as a plain text table, one line per row with
// cells separated by " | ". Each cell is "capability:text"; loading cells
// show "capability:..." instead of their value.
func Format(columns *column.Store, page [][]CellInstruction) string {
	var b strings.Builder
	visible := columns.VisibleOrdered()
	for i, col := range visible {
		if i > 0 {
			b.WriteString(" | ")
		}
		b.WriteString(col.Title)
	}
	b.WriteByte('\n')

	for _, cells := range page {
		for i, cell := range cells {
			if i > 0 {
				b.WriteString(" | ")
			}
			b.WriteString(cell.Capability.String())
			b.WriteByte(':')
			if cell.IsLoading {
				b.WriteString("...")
				continue
			}
			b.WriteString(record.Text(cell.Value))
		}
		b.WriteByte('\n')
	}
	return b.String()
}
