package queryir

import (
	"fmt"

	"github.com/roach88/starcube/internal/ir"
)

// ValidationResult lists the structural problems of a query.
type ValidationResult struct {
	// IsValid is true when Errors is empty.
	IsValid bool

	// Errors describes each problem found, in traversal order.
	Errors []string
}

// Err returns the first problem as an error, or nil.
func (r ValidationResult) Err() error {
	if r.IsValid {
		return nil
	}
	if len(r.Errors) == 1 {
		return fmt.Errorf("invalid query: %s", r.Errors[0])
	}
	return fmt.Errorf("invalid query: %s (and %d more)", r.Errors[0], len(r.Errors)-1)
}

// Validate checks that a query is well formed before a backend compiles it:
//  1. every column references the fact table or a table joined earlier
//  2. field labels are present and unique
//  3. aggregates use known functions; COUNT(*) is the only argument-less one
//  4. in an aggregated select every plain column field is grouped
//  5. comparisons use known operators against non-NULL values
//  6. paging values are not negative
//
// Validate is a pure function with no side effects.
func Validate(query Query) ValidationResult {
	v := &validator{errors: []string{}}
	v.validateQuery(query)

	return ValidationResult{
		IsValid: len(v.errors) == 0,
		Errors:  v.errors,
	}
}

type validator struct {
	errors []string
	tables map[string]bool
}

func (v *validator) addError(format string, args ...any) {
	v.errors = append(v.errors, fmt.Sprintf(format, args...))
}

func (v *validator) validateQuery(q Query) {
	switch query := q.(type) {
	case nil:
		v.addError("nil query")
	case Select:
		v.validateSelect(query)
	case *Select:
		v.validateSelect(*query)
	case Count:
		v.validateCount(query)
	case *Count:
		v.validateCount(*query)
	default:
		v.addError("unknown query type: %T", q)
	}
}

func (v *validator) validateCount(c Count) {
	if c.Inner == nil {
		v.addError("count without inner select")
		return
	}
	v.validateSelect(*c.Inner)
}

func (v *validator) validateSelect(sel Select) {
	if sel.From.Name == "" {
		v.addError("select without FROM table")
	}
	v.tables = map[string]bool{sel.From.Identity(): true}

	for _, j := range sel.Joins {
		id := j.Table.Identity()
		if v.tables[id] {
			v.addError("table %q joined twice", id)
		}
		if !v.tables[j.Master.Table] {
			v.addError("join of %q references %q before it is joined", id, j.Master.Table)
		}
		if j.Detail.Table != id {
			v.addError("join of %q has detail column on %q", id, j.Detail.Table)
		}
		v.tables[id] = true
	}

	if len(sel.Fields) == 0 {
		v.addError("select without fields")
	}

	labels := make(map[string]bool, len(sel.Fields))
	aggregated := len(sel.GroupBy) > 0
	for _, f := range sel.Fields {
		if f.Label == "" {
			v.addError("field without label")
		} else if labels[f.Label] {
			v.addError("duplicate field label %q", f.Label)
		}
		labels[f.Label] = true
		v.validateExpr(f.Expr)
		if _, ok := f.Expr.(Aggregate); ok {
			aggregated = true
		}
	}

	grouped := make(map[Column]bool, len(sel.GroupBy))
	for _, e := range sel.GroupBy {
		v.validateExpr(e)
		if c, ok := e.(Column); ok {
			grouped[c] = true
		}
	}
	if aggregated {
		for _, f := range sel.Fields {
			if c, ok := f.Expr.(Column); ok && !grouped[c] {
				v.addError("field %q is neither aggregated nor grouped", f.Label)
			}
		}
	}

	for _, e := range sel.OrderBy {
		v.validateExpr(e)
	}

	if sel.Filter != nil {
		v.validatePredicate(sel.Filter)
	}

	if sel.Limit < 0 {
		v.addError("negative limit %d", sel.Limit)
	}
	if sel.Offset < 0 {
		v.addError("negative offset %d", sel.Offset)
	}
}

func (v *validator) validateExpr(e Expr) {
	switch expr := e.(type) {
	case nil:
		v.addError("nil expression")
	case Column:
		v.validateColumn(expr)
	case Aggregate:
		if !ValidFuncs[expr.Func] {
			v.addError("unknown aggregation function %q", expr.Func)
		}
		if expr.Arg == nil {
			if expr.Func != FuncCount {
				v.addError("%s requires an argument", expr.Func)
			}
			return
		}
		v.validateColumn(*expr.Arg)
	default:
		v.addError("unknown expression type: %T", e)
	}
}

func (v *validator) validateColumn(c Column) {
	if c.Name == "" {
		v.addError("column without name on %q", c.Table)
	}
	if !v.tables[c.Table] {
		v.addError("column %s.%s references unjoined table", c.Table, c.Name)
	}
}

func (v *validator) validatePredicate(p Predicate) {
	switch pred := p.(type) {
	case nil:
		v.addError("nil predicate")
	case Compare:
		v.validateCompare(pred)
	case *Compare:
		v.validateCompare(*pred)
	case And:
		for _, sub := range pred.Predicates {
			v.validatePredicate(sub)
		}
	case *And:
		v.validatePredicate(*pred)
	case Or:
		for _, sub := range pred.Predicates {
			v.validatePredicate(sub)
		}
	case *Or:
		v.validatePredicate(*pred)
	default:
		v.addError("unknown predicate type: %T", p)
	}
}

func (v *validator) validateCompare(c Compare) {
	v.validateColumn(c.Column)
	switch c.Op {
	case OpEq, OpLt, OpLe, OpGt, OpGe:
	default:
		v.addError("unknown operator %q", c.Op)
	}
	switch c.Value.(type) {
	case nil, ir.IRNull:
		v.addError("column %s.%s compared to NULL", c.Column.Table, c.Column.Name)
	case ir.IRArray, ir.IRObject:
		v.addError("column %s.%s compared to a composite value", c.Column.Table, c.Column.Name)
	}
}
