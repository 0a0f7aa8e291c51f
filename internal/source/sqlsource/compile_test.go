package sqlsource

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/gridview/internal/query"
	"github.com/roach88/gridview/internal/record"
)

func TestCompile_DefaultOrder(t *testing.T) {
	stmt, err := Compile("tasks", query.ListParams{Page: 2, PageSize: 30})
	require.NoError(t, err)

	assert.Equal(t,
		"SELECT data FROM records WHERE view_id = ? ORDER BY seq ASC, id ASC COLLATE BINARY LIMIT ? OFFSET ?",
		stmt.Query)
	assert.Equal(t, []any{"tasks", 30, 30}, stmt.Args)
	assert.Equal(t, "SELECT COUNT(*) FROM records WHERE view_id = ?", stmt.CountQuery)
	assert.Equal(t, []any{"tasks"}, stmt.CountArgs)
}

func TestCompile_OrderingIsParameterized(t *testing.T) {
	stmt, err := Compile("tasks", query.ListParams{
		Page: 1, PageSize: 10, OrderField: "meta.score", OrderDirection: query.Desc,
	})
	require.NoError(t, err)

	assert.Contains(t, stmt.Query, "json_extract(data, ?) DESC, seq ASC, id ASC COLLATE BINARY")
	assert.NotContains(t, stmt.Query, "score", "field path must not be interpolated")
	assert.Equal(t, []any{"tasks", `$."meta"."score"`, `$."meta"."score"`, 10, 0}, stmt.Args)
}

func TestCompile_IDsAndFilter(t *testing.T) {
	f := query.Filter{}.
		And(query.Condition{Field: "title", Operator: query.OpContains, Value: record.String("Cat")}).
		And(query.Condition{Field: "n", Operator: query.OpGreater, Value: record.Int(3)})

	stmt, err := Compile("tasks", query.ListParams{Page: 1, PageSize: 5, IDs: []string{"1", "2"}, Filter: f})
	require.NoError(t, err)

	assert.Contains(t, stmt.Query, "id IN (?, ?)")
	assert.Contains(t, stmt.Query, "instr(lower(CAST(json_extract(data, ?) AS TEXT)), lower(?)) > 0")
	assert.NotContains(t, stmt.Query, "Cat")
	assert.Equal(t, []any{"tasks", "1", "2", `$."title"`, "Cat", `$."n"`, `$."n"`, int64(3)}, stmt.CountArgs)
	assert.Equal(t, append(stmt.CountArgs, 5, 0), stmt.Args)
}

func TestCompile_EmptyOperatorsBindPathOnly(t *testing.T) {
	f := query.Filter{}.And(query.Condition{Field: "annotators", Operator: query.OpEmpty})

	stmt, err := Compile("tasks", query.ListParams{Page: 1, PageSize: 5, Filter: f})
	require.NoError(t, err)

	assert.Len(t, stmt.CountArgs, 6)
	assert.Contains(t, stmt.CountQuery, "json_array_length")
}

func TestCompile_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		params query.ListParams
	}{
		{"zero page", query.ListParams{Page: 0, PageSize: 10}},
		{"zero page size", query.ListParams{Page: 1, PageSize: 0}},
		{"unknown operator", query.ListParams{Page: 1, PageSize: 10, Filter: query.Filter{}.And(
			query.Condition{Field: "n", Operator: "between", Value: record.Int(1)})}},
		{"composite value", query.ListParams{Page: 1, PageSize: 10, Filter: query.Filter{}.And(
			query.Condition{Field: "tags", Operator: query.OpEqual, Value: record.Array{record.String("a")}})}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compile("tasks", tt.params)
			assert.Error(t, err)
		})
	}
}

func TestJSONPath(t *testing.T) {
	assert.Equal(t, `$."title"`, jsonPath("title"))
	assert.Equal(t, `$."data"."image"`, jsonPath("data.image"))
	assert.Equal(t, `$."a\"b"`, jsonPath(`a"b`))
}
