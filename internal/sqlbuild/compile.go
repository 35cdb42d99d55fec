package sqlbuild

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrOffsetWithoutLimit is returned for a Select with Offset > 0 and no Limit.
var ErrOffsetWithoutLimit = errors.New("offset requires a limit")

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,254}$`)

// ValidIdentifier reports whether name can be used as a table or column name.
func ValidIdentifier(name string) bool {
	return identPattern.MatchString(name)
}

// QuoteIdent validates name and wraps it in double quotes.
func QuoteIdent(name string) (string, error) {
	if !ValidIdentifier(name) {
		return "", fmt.Errorf("invalid identifier %q", name)
	}
	return `"` + name + `"`, nil
}

// Compiler turns statements into (sql, params). The zero value is ready to use.
type Compiler struct{}

// Compile converts a statement to parameterized SQL.
// Returns (sql, params, error) tuple.
func (c Compiler) Compile(stmt Statement) (string, []any, error) {
	if stmt == nil {
		return "", nil, fmt.Errorf("cannot compile nil statement")
	}

	switch s := stmt.(type) {
	case Insert:
		return c.compileInsert(s)
	case *Insert:
		return c.compileInsert(*s)
	case Update:
		return c.compileUpdate(s)
	case *Update:
		return c.compileUpdate(*s)
	case Delete:
		return c.compileDelete(s)
	case *Delete:
		return c.compileDelete(*s)
	case Select:
		return c.compileSelect(s)
	case *Select:
		return c.compileSelect(*s)
	default:
		return "", nil, fmt.Errorf("unsupported statement type: %T", stmt)
	}
}

func (c Compiler) compileInsert(s Insert) (string, []any, error) {
	table, err := QuoteIdent(s.Table)
	if err != nil {
		return "", nil, fmt.Errorf("compile insert: %w", err)
	}
	if len(s.Values) == 0 {
		return "", nil, fmt.Errorf("compile insert into %s: no columns", table)
	}

	cols := make([]string, len(s.Values))
	marks := make([]string, len(s.Values))
	params := make([]any, len(s.Values))
	for i, col := range s.Values {
		name, err := QuoteIdent(col.Name)
		if err != nil {
			return "", nil, fmt.Errorf("compile insert into %s: %w", table, err)
		}
		cols[i] = name
		marks[i] = "?"
		params[i] = col.Value
	}

	sql := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		table,
		strings.Join(cols, ", "),
		strings.Join(marks, ", "))
	return sql, params, nil
}

func (c Compiler) compileUpdate(s Update) (string, []any, error) {
	table, err := QuoteIdent(s.Table)
	if err != nil {
		return "", nil, fmt.Errorf("compile update: %w", err)
	}
	if len(s.Values) == 0 {
		return "", nil, fmt.Errorf("compile update %s: no columns", table)
	}

	sets := make([]string, len(s.Values))
	params := make([]any, 0, len(s.Values)+len(s.Args))
	for i, col := range s.Values {
		name, err := QuoteIdent(col.Name)
		if err != nil {
			return "", nil, fmt.Errorf("compile update %s: %w", table, err)
		}
		sets[i] = name + " = ?"
		params = append(params, col.Value)
	}
	params = append(params, s.Args...)

	sql := fmt.Sprintf("UPDATE %s SET %s%s", table, strings.Join(sets, ", "), whereClause(s.Where))
	return sql, params, nil
}

func (c Compiler) compileDelete(s Delete) (string, []any, error) {
	table, err := QuoteIdent(s.Table)
	if err != nil {
		return "", nil, fmt.Errorf("compile delete: %w", err)
	}
	return fmt.Sprintf("DELETE FROM %s%s", table, whereClause(s.Where)), append([]any(nil), s.Args...), nil
}

func (c Compiler) compileSelect(s Select) (string, []any, error) {
	table, err := QuoteIdent(s.Table)
	if err != nil {
		return "", nil, fmt.Errorf("compile select: %w", err)
	}
	if s.Offset > 0 && s.Limit <= 0 {
		return "", nil, fmt.Errorf("compile select from %s: %w", table, ErrOffsetWithoutLimit)
	}

	projection := "*"
	if len(s.Columns) > 0 {
		cols := make([]string, len(s.Columns))
		for i, name := range s.Columns {
			quoted, err := QuoteIdent(name)
			if err != nil {
				return "", nil, fmt.Errorf("compile select from %s: %w", table, err)
			}
			cols[i] = quoted
		}
		projection = strings.Join(cols, ", ")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "SELECT %s FROM %s%s", projection, table, whereClause(s.Where))
	if s.OrderBy != "" {
		b.WriteString(" ORDER BY ")
		b.WriteString(s.OrderBy)
	}

	params := append([]any(nil), s.Args...)
	switch {
	case s.Limit > 0 && s.Offset > 0:
		// SQLite's positional form: LIMIT offset, count.
		b.WriteString(" LIMIT ?, ?")
		params = append(params, s.Offset, s.Limit)
	case s.Limit > 0:
		b.WriteString(" LIMIT ?")
		params = append(params, s.Limit)
	}

	return b.String(), params, nil
}

func whereClause(where string) string {
	if where == "" {
		return ""
	}
	return " WHERE " + where
}
