package projection

import (
	"fmt"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/gridview/internal/celltype"
	"github.com/roach88/gridview/internal/column"
	"github.com/roach88/gridview/internal/record"
)

func mustRecord(t *testing.T, js string) record.Record {
	t.Helper()
	r, err := record.Decode([]byte(js))
	require.NoError(t, err)
	return r
}

func dmColumns() *column.Store {
	return column.MustNormalize(
		map[string]any{"id": "select", "kind": "control"},
		"title",
		map[string]any{"id": "task:completed_at", "alias": "completed"},
		map[string]any{"id": "data.image", "alias": "image"},
	)
}

func TestProject_OneInstructionPerVisibleColumn(t *testing.T) {
	cols := column.MustNormalize(
		"id",
		map[string]any{"id": "secret", "visible": false},
		"title",
	)
	row := Row{Record: mustRecord(t, `{"id": 1, "title": "a", "secret": "x"}`)}

	cells := Project(row, cols, celltype.NewRegistry())

	require.Len(t, cells, 2)
	assert.Equal(t, "id", cells[0].ColumnID)
	assert.Equal(t, "title", cells[1].ColumnID)
}

func TestProject_MissingPathYieldsEmpty(t *testing.T) {
	row := Row{Record: mustRecord(t, `{"id": 1, "completed_at": null}`)}
	cols := column.MustNormalize("title", "completed_at")

	cells := Project(row, cols, celltype.NewRegistry())

	assert.Equal(t, record.Empty{}, cells[0].Value, "missing field is Empty")
	assert.Equal(t, record.Null{}, cells[1].Value, "null field stays Null")
}

func TestProject_UnknownAliasFallsBackToDefault(t *testing.T) {
	// Registry has no "completed" entry and the record has no value to introspect.
	row := Row{Record: mustRecord(t, `{"id": 1, "title": "cat"}`)}

	cells := Project(row, dmColumns(), celltype.NewRegistry())

	require.Len(t, cells, 4)
	assert.Equal(t, "task:completed_at", cells[2].ColumnID)
	assert.Equal(t, celltype.CapabilityRaw, cells[2].Capability)
	assert.Equal(t, record.Empty{}, cells[2].Value)
}

func TestProject_DeclaredTypeBeatsIntrospection(t *testing.T) {
	cols := column.MustNormalize(map[string]any{"id": "created_at", "type": "datetime"})
	row := Row{Record: mustRecord(t, `{"created_at": "2024-05-01T10:00:00Z"}`)}

	cells := Project(row, cols, celltype.NewRegistry())
	assert.Equal(t, celltype.CapabilityDate, cells[0].Capability)
}

func TestProject_ControlColumnsCarryEmptyValue(t *testing.T) {
	row := Row{Record: mustRecord(t, `{"id": 1, "select": "not a field"}`)}

	cells := Project(row, dmColumns(), celltype.NewRegistry())

	assert.Equal(t, record.Empty{}, cells[0].Value)
	assert.Equal(t, celltype.CapabilitySelector, cells[0].Capability)
}

func TestProject_LoadingFieldMarksExactlyOneCell(t *testing.T) {
	row := Row{
		Record:       mustRecord(t, `{"id": 1, "title": "cat", "data": {"image": "x.png"}}`),
		LoadingField: "data.image",
	}

	cells := Project(row, dmColumns(), celltype.NewRegistry())

	var loading []string
	for _, c := range cells {
		if c.IsLoading {
			loading = append(loading, c.ColumnID)
		}
	}
	assert.Equal(t, []string{"data.image"}, loading)
	assert.Equal(t, record.String("cat"), cells[1].Value, "other cells render normally")
}

func TestProject_Idempotent(t *testing.T) {
	cols := dmColumns()
	reg := celltype.NewRegistry()
	rows := []Row{
		{Record: mustRecord(t, `{"id": 1}`)},
		{Record: mustRecord(t, `{"id": 2, "title": "x", "completed_at": "2024-01-01"}`), IsSelected: true},
		{Record: mustRecord(t, `{"id": 3, "data": {"image": 5}}`), LoadingField: "title"},
	}

	for _, row := range rows {
		first := Project(row, cols, reg)
		for i := 0; i < 5; i++ {
			assert.Equal(t, first, Project(row, cols, reg))
		}
	}
}

func TestProjectPage_PreservesOrder(t *testing.T) {
	var rows []Row
	for i := 0; i < 200; i++ {
		rows = append(rows, Row{Record: mustRecord(t, fmt.Sprintf(`{"id": %d, "title": "row %d"}`, i, i))})
	}
	cols := dmColumns()
	reg := celltype.NewRegistry()

	page := ProjectPage(rows, cols, reg)

	require.Len(t, page, len(rows))
	for i, cells := range page {
		assert.Equal(t, Project(rows[i], cols, reg), cells)
	}
}

func TestLayout_AssignsSlots(t *testing.T) {
	cols := column.MustNormalize(
		"select",
		"show-source",
		"id",
		map[string]any{"id": "data.image", "alias": "image"},
		"completed_at",
		map[string]any{"id": "annotators", "hidden": true},
	)

	l := Layout(cols)

	require.NotNil(t, l.Select)
	require.NotNil(t, l.Source)
	require.NotNil(t, l.ID)
	require.NotNil(t, l.Image)
	assert.Equal(t, "data.image", l.Image.ID)
	require.Len(t, l.Others, 1)
	assert.Equal(t, "completed_at", l.Others[0].ID)
}

func TestFormat_Golden(t *testing.T) {
	rows := []Row{
		{Record: mustRecord(t, `{"id": 1, "title": "Cat", "completed_at": "2024-01-02", "data": {"image": "s3://a.png"}}`)},
		{Record: mustRecord(t, `{"id": 2, "title": "Dog", "data": {}}`), LoadingField: "title"},
		{Record: mustRecord(t, `{"id": 3, "title": 5, "completed_at": null}`)},
	}
	cols := dmColumns()

	out := Format(cols, ProjectPage(rows, cols, celltype.NewRegistry()))

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "mixed_page", []byte(out))
}
