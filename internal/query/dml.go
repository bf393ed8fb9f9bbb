package query

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/mickamy/snapcdc/internal/ident"
)

// Dialect selects placeholder syntax.
type Dialect int

const (
	Postgres Dialect = iota // $1, $2, ...
	SQLite                  // ?
)

// Placeholder returns the n-th (1-based) bind placeholder.
func (d Dialect) Placeholder(n int) string {
	if d == SQLite {
		return "?"
	}
	return "$" + strconv.Itoa(n)
}

// Statement is a rendered DML statement and its bind arguments.
type Statement struct {
	SQL  string
	Args []any
}

var (
	errNoColumns   = errors.New("no columns")
	errNoPredicate = errors.New("refusing to write without a predicate")
)

// Insert renders a single-row INSERT into table (an already quoted
// identifier). Columns are written in sorted order.
func Insert(d Dialect, table string, values map[string]any) (Statement, error) {
	cols := sortedKeys(values)
	if len(cols) == 0 {
		return Statement{}, fmt.Errorf("insert into %s: %w", table, errNoColumns)
	}
	quoted := make([]string, len(cols))
	marks := make([]string, len(cols))
	args := make([]any, len(cols))
	for i, c := range cols {
		quoted[i] = ident.Quote(c)
		marks[i] = d.Placeholder(i + 1)
		args[i] = values[c]
	}
	q := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", table, strings.Join(quoted, ", "), strings.Join(marks, ", "))
	return Statement{SQL: q, Args: args}, nil
}

// Update renders an UPDATE setting set on rows matching where.
func Update(d Dialect, table string, set, where map[string]any) (Statement, error) {
	cols := sortedKeys(set)
	if len(cols) == 0 {
		return Statement{}, fmt.Errorf("update %s: %w", table, errNoColumns)
	}
	if len(where) == 0 {
		return Statement{}, fmt.Errorf("update %s: %w", table, errNoPredicate)
	}
	assigns := make([]string, len(cols))
	args := make([]any, 0, len(cols)+len(where))
	for i, c := range cols {
		args = append(args, set[c])
		assigns[i] = ident.Quote(c) + " = " + d.Placeholder(len(args))
	}
	cond, args := predicate(d, where, args)
	q := fmt.Sprintf("UPDATE %s SET %s WHERE %s", table, strings.Join(assigns, ", "), cond)
	return Statement{SQL: q, Args: args}, nil
}

// Delete renders a DELETE of rows matching where.
func Delete(d Dialect, table string, where map[string]any) (Statement, error) {
	if len(where) == 0 {
		return Statement{}, fmt.Errorf("delete from %s: %w", table, errNoPredicate)
	}
	cond, args := predicate(d, where, nil)
	return Statement{SQL: fmt.Sprintf("DELETE FROM %s WHERE %s", table, cond), Args: args}, nil
}

// predicate renders an AND of equality tests. nil compares with IS NULL and
// takes no bind argument.
func predicate(d Dialect, where map[string]any, args []any) (string, []any) {
	cols := sortedKeys(where)
	conds := make([]string, len(cols))
	for i, c := range cols {
		v := where[c]
		if v == nil {
			conds[i] = ident.Quote(c) + " IS NULL"
			continue
		}
		args = append(args, v)
		conds[i] = ident.Quote(c) + " = " + d.Placeholder(len(args))
	}
	return strings.Join(conds, " AND "), args
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
