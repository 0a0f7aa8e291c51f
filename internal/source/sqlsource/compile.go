package sqlsource

import (
	"fmt"
	"strings"

	"github.com/roach88/gridview/internal/query"
	"github.com/roach88/gridview/internal/record"
)

// Statement is a compiled page query and its matching count query. Both
// share the WHERE clause.
type Statement struct {
	Query      string
	Args       []any
	CountQuery string
	CountArgs  []any
}

// clause accumulates SQL text and its parameters in placeholder order.
type clause struct {
	sb   strings.Builder
	args []any
}

func (c *clause) write(sql string, args ...any) {
	c.sb.WriteString(sql)
	c.args = append(c.args, args...)
}

// Compile converts list params for a view into parameterized SQL over the
// records table.
//
// Every page query has a total order: the requested field (ranked by JSON
// type, then by value), then import order, then id. Field paths and values
// are always bound as parameters, never interpolated.
func Compile(viewID string, p query.ListParams) (Statement, error) {
	if err := p.Validate(); err != nil {
		return Statement{}, err
	}

	var where clause
	where.write(" WHERE view_id = ?", viewID)
	if len(p.IDs) > 0 {
		where.write(" AND id IN (" + placeholders(len(p.IDs)) + ")")
		for _, id := range p.IDs {
			where.args = append(where.args, id)
		}
	}
	for i, cond := range p.Filter.Conditions {
		sql, args, err := compileCondition(cond)
		if err != nil {
			return Statement{}, fmt.Errorf("condition %d: %w", i, err)
		}
		where.write(" AND "+sql, args...)
	}
	whereSQL := where.sb.String()

	var q clause
	q.write("SELECT data FROM records" + whereSQL)
	q.args = append(q.args, where.args...)
	q.write(" ORDER BY ")
	if p.OrderField != "" {
		dir := " ASC"
		if p.OrderDirection == query.Desc {
			dir = " DESC"
		}
		path := jsonPath(p.OrderField)
		q.write(typeRankSQL+dir+", ", path)
		q.write("json_extract(data, ?)"+dir+", ", path)
	}
	q.write("seq ASC, id ASC COLLATE BINARY")
	if p.PageSize > 0 {
		q.write(" LIMIT ? OFFSET ?", p.PageSize, p.Offset())
	}

	return Statement{
		Query:      q.sb.String(),
		Args:       q.args,
		CountQuery: "SELECT COUNT(*) FROM records" + whereSQL,
		CountArgs:  append([]any(nil), where.args...),
	}, nil
}

// typeRankSQL orders missing and null values first, then booleans, numbers,
// text and composite values, matching query.Compare.
const typeRankSQL = `CASE json_type(data, ?)` +
	` WHEN 'true' THEN 1 WHEN 'false' THEN 1` +
	` WHEN 'integer' THEN 2 WHEN 'real' THEN 2` +
	` WHEN 'text' THEN 3` +
	` WHEN 'array' THEN 4 WHEN 'object' THEN 4` +
	` ELSE 0 END`

// blankSQL is true for a missing, null, empty-string or empty-array field.
// It binds the path three times.
const blankSQL = `IFNULL(json_type(data, ?) = 'null'` +
	` OR (json_type(data, ?) = 'text' AND json_extract(data, ?) = '')` +
	` OR (json_type(data, ?) = 'array' AND json_array_length(data, ?) = 0), 1)`

func compileCondition(c query.Condition) (string, []any, error) {
	path := jsonPath(c.Field)
	blankArgs := []any{path, path, path, path, path}

	switch c.Operator {
	case query.OpEmpty:
		return "(" + blankSQL + ")", blankArgs, nil
	case query.OpNotEmpty:
		return "NOT (" + blankSQL + ")", blankArgs, nil
	case query.OpContains:
		return "instr(lower(CAST(json_extract(data, ?) AS TEXT)), lower(?)) > 0",
			[]any{path, record.Text(c.Value)}, nil
	}

	// a blank field never equals anything
	if s, ok := c.Value.(record.String); ok && s == "" {
		switch c.Operator {
		case query.OpEqual:
			return "0", nil, nil
		case query.OpNotEqual:
			return "1", nil, nil
		}
	}

	types, param, err := valueParam(c.Value)
	if err != nil {
		return "", nil, err
	}
	typed := "json_type(data, ?) IN (" + types + ") AND json_extract(data, ?) "

	switch c.Operator {
	case query.OpEqual:
		return "IFNULL(" + typed + "= ?, 0)", []any{path, path, param}, nil
	case query.OpNotEqual:
		return "NOT IFNULL(" + typed + "= ?, 0)", []any{path, path, param}, nil
	case query.OpGreater:
		return "IFNULL(" + typed + "> ?, 0)", []any{path, path, param}, nil
	case query.OpLess:
		return "IFNULL(" + typed + "< ?, 0)", []any{path, path, param}, nil
	default:
		return "", nil, fmt.Errorf("unsupported operator %q", c.Operator)
	}
}

// valueParam converts a condition value to a SQL parameter and the JSON
// types it may compare against. Composite values cannot be parameters.
func valueParam(v record.Value) (string, any, error) {
	switch val := v.(type) {
	case record.String:
		return "'text'", string(val), nil
	case record.Int:
		return "'integer', 'real'", int64(val), nil
	case record.Float:
		return "'integer', 'real'", float64(val), nil
	case record.Bool:
		return "'true', 'false'", bool(val), nil
	case nil, record.Empty, record.Null:
		return "", nil, fmt.Errorf("comparison needs a value")
	default:
		return "", nil, fmt.Errorf("%T cannot be used as SQL parameter", v)
	}
}

// jsonPath builds a quoted SQLite JSON path: "meta.score" -> $."meta"."score".
func jsonPath(field string) string {
	var sb strings.Builder
	sb.WriteString("$")
	for _, part := range strings.Split(field, ".") {
		sb.WriteString(`."`)
		sb.WriteString(strings.ReplaceAll(part, `"`, `\"`))
		sb.WriteString(`"`)
	}
	return sb.String()
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
