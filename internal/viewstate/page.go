package viewstate

// DefaultPageSizes are the page sizes offered by the DataManager lists.
var DefaultPageSizes = []int{30, 50, 100}

// DefaultPageSize is used when a view does not choose one.
const DefaultPageSize = 30

// Page is the pagination window. Index is 1-based.
type Page struct {
	Index      int
	Size       int
	TotalItems int
}

// LastPage returns the last valid page index. An empty result still has
// one (empty) page.
func (p Page) LastPage() int {
	if p.Size <= 0 || p.TotalItems <= 0 {
		return 1
	}
	return (p.TotalItems + p.Size - 1) / p.Size
}

// Clamp returns i limited to [1, LastPage()].
func (p Page) Clamp(i int) int {
	if i < 1 {
		return 1
	}
	if last := p.LastPage(); i > last {
		return last
	}
	return i
}
