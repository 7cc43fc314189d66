// Package filtersql compiles task filters to parameterized SQL.
//
// Every statement carries an ORDER BY on the selected column so results are
// deterministic across backends. Values are always bound as parameters and
// never interpolated into the statement text.
package filtersql

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/molbuild/internal/filter"
	"github.com/roach88/molbuild/internal/mol"
)

// Dialect selects placeholder and collation syntax.
type Dialect int

const (
	// SQLite uses "?" placeholders and BINARY collation.
	SQLite Dialect = iota
	// Postgres uses "$n" placeholders and the "C" collation.
	Postgres
)

// String returns the dialect name.
func (d Dialect) String() string {
	switch d {
	case SQLite:
		return "sqlite"
	case Postgres:
		return "postgres"
	default:
		return fmt.Sprintf("Dialect(%d)", int(d))
	}
}

// Collate returns the byte-order collation clause for text columns.
func (d Dialect) Collate() string {
	if d == Postgres {
		return `COLLATE "C"`
	}
	return "COLLATE BINARY"
}

// Rebind rewrites "?" placeholders for the dialect. Statements in this
// module never contain literal question marks.
func (d Dialect) Rebind(query string) string {
	if d != Postgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

// Compiler turns filter predicates into SQL over the tasks table.
type Compiler struct {
	Dialect Dialect
	Table   string
}

// NewCompiler creates a compiler for the tasks table.
func NewCompiler(d Dialect) *Compiler {
	return &Compiler{Dialect: d, Table: "tasks"}
}

// SelectTasks compiles a query returning full task rows ordered by task id.
func (c *Compiler) SelectTasks(p filter.Predicate) (string, []any, error) {
	where, params, err := c.Where(p)
	if err != nil {
		return "", nil, err
	}
	sql := fmt.Sprintf("SELECT task_id, formula, state, last_updated, doc FROM %s WHERE %s ORDER BY task_id %s ASC",
		c.Table, where, c.Dialect.Collate())
	return c.Dialect.Rebind(sql), params, nil
}

// SelectDistinct compiles a query returning the distinct values of a text
// column among matching tasks, in byte order.
func (c *Compiler) SelectDistinct(field string, p filter.Predicate) (string, []any, error) {
	if !filter.IsStringField(field) {
		return "", nil, fmt.Errorf("distinct: unsupported field %q", field)
	}
	where, params, err := c.Where(p)
	if err != nil {
		return "", nil, err
	}
	sql := fmt.Sprintf("SELECT DISTINCT %s FROM %s WHERE %s ORDER BY %s %s ASC",
		field, c.Table, where, field, c.Dialect.Collate())
	return c.Dialect.Rebind(sql), params, nil
}

// Where compiles a predicate to a WHERE fragment with "?" placeholders.
func (c *Compiler) Where(p filter.Predicate) (string, []any, error) {
	if err := filter.Validate(p); err != nil {
		return "", nil, err
	}
	return compilePredicate(p)
}

func compilePredicate(p filter.Predicate) (string, []any, error) {
	switch pred := p.(type) {
	case nil:
		return "1 = 1", nil, nil
	case filter.Equals:
		return pred.Field + " = ?", []any{pred.Value}, nil
	case filter.In:
		if len(pred.Values) == 0 {
			return "1 = 0", nil, nil
		}
		marks := strings.TrimSuffix(strings.Repeat("?, ", len(pred.Values)), ", ")
		params := make([]any, len(pred.Values))
		for i, v := range pred.Values {
			params[i] = v
		}
		return fmt.Sprintf("%s IN (%s)", pred.Field, marks), params, nil
	case filter.After:
		// Stored timestamps are fixed-width UTC text, so text order is time order.
		return pred.Field + " > ?", []any{mol.FormatTime(pred.Time)}, nil
	case filter.And:
		if len(pred.Predicates) == 0 {
			return "1 = 1", nil, nil
		}
		parts := make([]string, 0, len(pred.Predicates))
		var params []any
		for _, inner := range pred.Predicates {
			sql, innerParams, err := compilePredicate(inner)
			if err != nil {
				return "", nil, err
			}
			parts = append(parts, "("+sql+")")
			params = append(params, innerParams...)
		}
		return strings.Join(parts, " AND "), params, nil
	default:
		return "", nil, fmt.Errorf("unsupported predicate type: %T", p)
	}
}
