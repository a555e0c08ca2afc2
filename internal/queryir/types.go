package queryir

import "github.com/roach88/starcube/internal/ir"

// Query is a statement an executor can run.
//
// This is a sealed interface - only types in this package implement it.
//
// Query types:
//   - Select: fact table access with joins, filter, grouping and paging
//   - Count: number of rows a Select produces
type Query interface {
	queryNode()
}

// Expr is a value-producing expression in a select list, GROUP BY or ORDER BY.
//
// Expr types:
//   - Column: a physical column of the fact table or a joined table
//   - Aggregate: an aggregation function over a column, or COUNT(*)
type Expr interface {
	exprNode()
}

// Predicate is a filter condition.
//
// Predicate types:
//   - Compare: column <op> literal
//   - And: all predicates hold (empty = true)
//   - Or: any predicate holds (empty = false)
type Predicate interface {
	predicateNode()
}

// Table is a physical table. Alias is the identity the table is referenced
// by in columns; empty means the table name itself.
type Table struct {
	Schema string
	Name   string
	Alias  string
}

// Identity returns the name columns use to reference the table.
func (t Table) Identity() string {
	if t.Alias != "" {
		return t.Alias
	}
	return t.Name
}

// Column references a column through a table identity.
type Column struct {
	Table string // table identity (alias or table name)
	Name  string
}

func (Column) exprNode() {}

// Aggregation function names.
const (
	FuncSum           = "sum"
	FuncMin           = "min"
	FuncMax           = "max"
	FuncAvg           = "avg"
	FuncCount         = "count"
	FuncCountDistinct = "count_distinct"
)

// ValidFuncs lists every aggregation function a backend must support.
var ValidFuncs = map[string]bool{
	FuncSum:           true,
	FuncMin:           true,
	FuncMax:           true,
	FuncAvg:           true,
	FuncCount:         true,
	FuncCountDistinct: true,
}

// Aggregate applies an aggregation function. A nil Arg is only valid with
// FuncCount and means COUNT(*).
type Aggregate struct {
	Func string
	Arg  *Column
}

func (Aggregate) exprNode() {}

// CountAll returns COUNT(*).
func CountAll() Aggregate {
	return Aggregate{Func: FuncCount}
}

// Field is a labeled select-list entry. Labels become result row keys.
type Field struct {
	Expr  Expr
	Label string
}

// JoinKind selects inner or left outer joins.
type JoinKind int

const (
	InnerJoin JoinKind = iota
	LeftJoin
)

func (k JoinKind) String() string {
	if k == LeftJoin {
		return "LEFT JOIN"
	}
	return "JOIN"
}

// Join attaches Table with Master = Detail, where Detail is a column of
// Table and Master is a column of a previously joined table (or the fact).
type Join struct {
	Kind   JoinKind
	Table  Table
	Master Column
	Detail Column
}

// Select describes:
//
//	SELECT [DISTINCT] <fields> FROM <from> <joins> WHERE <filter>
//	GROUP BY <group by> ORDER BY <order by> LIMIT <limit> OFFSET <offset>
//
// Limit 0 means no limit. Joins must be listed masters first.
type Select struct {
	From     Table
	Joins    []Join
	Fields   []Field
	Filter   Predicate // nil = no filter
	Distinct bool
	GroupBy  []Expr
	OrderBy  []Expr
	Limit    int
	Offset   int
}

func (Select) queryNode() {}

// Count describes SELECT COUNT(*) over the rows of Inner. Inner's ordering
// and paging are ignored.
type Count struct {
	Inner *Select
	Label string
}

func (Count) queryNode() {}

// Op is a comparison operator.
type Op string

const (
	OpEq Op = "="
	OpLt Op = "<"
	OpLe Op = "<="
	OpGt Op = ">"
	OpGe Op = ">="
)

// Compare is column <op> value.
type Compare struct {
	Column Column
	Op     Op
	Value  ir.IRValue
}

func (Compare) predicateNode() {}

// And is a conjunction. An empty And is always true.
type And struct {
	Predicates []Predicate
}

func (And) predicateNode() {}

// Or is a disjunction. An empty Or is always false.
type Or struct {
	Predicates []Predicate
}

func (Or) predicateNode() {}

// Eq is shorthand for Compare{col, OpEq, value}.
func Eq(col Column, value ir.IRValue) Compare {
	return Compare{Column: col, Op: OpEq, Value: value}
}

// AllOf returns the conjunction of the non-nil predicates, collapsing
// trivial cases: none yields nil, one yields itself.
func AllOf(preds ...Predicate) Predicate {
	var kept []Predicate
	for _, p := range preds {
		if p != nil {
			kept = append(kept, p)
		}
	}
	switch len(kept) {
	case 0:
		return nil
	case 1:
		return kept[0]
	default:
		return And{Predicates: kept}
	}
}

// AnyOf returns the disjunction of the non-nil predicates. None yields an
// empty Or (always false), one yields itself.
func AnyOf(preds ...Predicate) Predicate {
	var kept []Predicate
	for _, p := range preds {
		if p != nil {
			kept = append(kept, p)
		}
	}
	switch len(kept) {
	case 0:
		return Or{}
	case 1:
		return kept[0]
	default:
		return Or{Predicates: kept}
	}
}
