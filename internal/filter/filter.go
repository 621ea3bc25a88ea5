// Package filter implements the SQL-style boolean expression language used
// to select CSV rows, e.g. `action = 'create' AND role != 'admin'`.
// Expressions are compiled once, before any row is read, so syntax errors
// surface immediately instead of silently filtering nothing.
package filter

import (
	"fmt"
	"sort"

	"mgapi/internal/model"
	"mgapi/pkg/utils"
)

// Filter is a compiled row predicate.
type Filter struct {
	root expr
	cols map[string]bool
}

// Compile parses a filter expression. An empty expression is an error;
// callers represent "no filter" with a nil *Filter.
func Compile(src string) (*Filter, error) {
	toks, err := tokenize(src)
	if err != nil {
		return nil, fmt.Errorf("filter syntax error: %w", err)
	}
	p := &parser{toks: toks, cols: make(map[string]bool)}
	root, err := p.parseExpr()
	if err != nil {
		return nil, fmt.Errorf("filter syntax error: %w", err)
	}
	if p.peek().kind != tokEOF {
		return nil, fmt.Errorf("filter syntax error: unexpected %q at position %d", p.peek().text, p.peek().pos)
	}
	return &Filter{root: root, cols: p.cols}, nil
}

// Matches evaluates the predicate against one row. A nil filter matches
// every row.
func (f *Filter) Matches(row model.Row) bool {
	if f == nil {
		return true
	}
	return f.root.eval(row)
}

// Columns returns the column names the expression references, sorted.
func (f *Filter) Columns() []string {
	if f == nil {
		return nil
	}
	cols := make([]string, 0, len(f.cols))
	for c := range f.cols {
		cols = append(cols, c)
	}
	sort.Strings(cols)
	return cols
}

// ---- expression tree ----

type expr interface {
	eval(row model.Row) bool
}

type andExpr struct{ left, right expr }

func (e andExpr) eval(row model.Row) bool { return e.left.eval(row) && e.right.eval(row) }

type orExpr struct{ left, right expr }

func (e orExpr) eval(row model.Row) bool { return e.left.eval(row) || e.right.eval(row) }

type notExpr struct{ inner expr }

func (e notExpr) eval(row model.Row) bool { return !e.inner.eval(row) }

// operand is either a column reference or a literal.
type operand struct {
	column bool
	text   string
}

func (o operand) value(row model.Row) string {
	if o.column {
		return row[o.text]
	}
	return o.text
}

type cmpExpr struct {
	left, right operand
	op          string
}

func (e cmpExpr) eval(row model.Row) bool {
	lv := e.left.value(row)
	rv := e.right.value(row)

	// Numeric comparison when both sides parse as numbers, string
	// comparison otherwise. Mirrors how CSV cells are dynamically typed.
	ln, lok := utils.Numeric(lv)
	rn, rok := utils.Numeric(rv)

	var cmp int
	if lok && rok {
		switch {
		case ln < rn:
			cmp = -1
		case ln > rn:
			cmp = 1
		}
	} else {
		switch {
		case lv < rv:
			cmp = -1
		case lv > rv:
			cmp = 1
		}
	}

	switch e.op {
	case "=", "==":
		return cmp == 0
	case "!=", "<>":
		return cmp != 0
	case "<":
		return cmp < 0
	case "<=":
		return cmp <= 0
	case ">":
		return cmp > 0
	case ">=":
		return cmp >= 0
	}
	return false
}
