package querysql

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/starcube/internal/ir"
	"github.com/roach88/starcube/internal/queryir"
)

// Statement is a compiled query: SQL text with ? placeholders and the
// parameter values in placeholder order.
type Statement struct {
	SQL    string
	Params []ir.IRValue
}

// Args converts the parameters to database/sql arguments.
func (s Statement) Args() ([]any, error) {
	if len(s.Params) == 0 {
		return nil, nil
	}
	args := make([]any, len(s.Params))
	for i, p := range s.Params {
		a, err := ir.ToGo(p)
		if err != nil {
			return nil, fmt.Errorf("param %d: %w", i, err)
		}
		args[i] = a
	}
	return args, nil
}

// ID returns the statement fingerprint.
func (s Statement) ID() (string, error) {
	return ir.StatementID(s.SQL, s.Params)
}

// SQLCompiler compiles queryir statements to parameterized SQL understood by
// both SQLite and DuckDB.
//
// Identifiers are always double-quoted so logical labels such as
// "date.year" survive as result column names. Values are never
// interpolated into SQL text.
type SQLCompiler struct{}

// NewSQLCompiler creates a new SQLCompiler.
func NewSQLCompiler() *SQLCompiler {
	return &SQLCompiler{}
}

// Compile converts a query to parameterized SQL.
// Returns (sql, params, error) tuple.
func (c *SQLCompiler) Compile(q queryir.Query) (string, []any, error) {
	stmt, err := c.CompileStatement(q)
	if err != nil {
		return "", nil, err
	}
	args, err := stmt.Args()
	if err != nil {
		return "", nil, err
	}
	return stmt.SQL, args, nil
}

// CompileStatement validates and compiles a query, keeping the parameters
// as IR values.
func (c *SQLCompiler) CompileStatement(q queryir.Query) (Statement, error) {
	if err := queryir.Validate(q).Err(); err != nil {
		return Statement{}, err
	}

	b := &builder{}
	switch query := q.(type) {
	case queryir.Select:
		b.selectStmt(query, true)
	case *queryir.Select:
		b.selectStmt(*query, true)
	case queryir.Count:
		b.countStmt(query)
	case *queryir.Count:
		b.countStmt(*query)
	default:
		return Statement{}, fmt.Errorf("unsupported query type: %T", q)
	}
	if b.err != nil {
		return Statement{}, b.err
	}
	return Statement{SQL: b.sb.String(), Params: b.params}, nil
}

// builder accumulates SQL text and parameters for one statement.
type builder struct {
	sb     strings.Builder
	params []ir.IRValue
	err    error
}

func (b *builder) write(parts ...string) {
	for _, p := range parts {
		b.sb.WriteString(p)
	}
}

func (b *builder) countStmt(q queryir.Count) {
	label := q.Label
	if label == "" {
		label = "count"
	}
	b.write("SELECT COUNT(*) AS ", quoteIdent(label), " FROM (")
	b.selectStmt(*q.Inner, false)
	b.write(") AS ", quoteIdent("_rows"))
}

// selectStmt emits a Select. Ordering and paging are emitted only when
// ordered is set; a grouped select without explicit ordering is ordered by
// its group keys.
func (b *builder) selectStmt(q queryir.Select, ordered bool) {
	b.write("SELECT ")
	if q.Distinct {
		b.write("DISTINCT ")
	}
	for i, f := range q.Fields {
		if i > 0 {
			b.write(", ")
		}
		b.expr(f.Expr)
		b.write(" AS ", quoteIdent(f.Label))
	}

	b.write(" FROM ", table(q.From))
	for _, j := range q.Joins {
		b.write(" ", j.Kind.String(), " ", table(j.Table), " ON ", column(j.Master), " = ", column(j.Detail))
	}

	if q.Filter != nil {
		b.write(" WHERE ")
		b.predicate(q.Filter, false)
	}

	if len(q.GroupBy) > 0 {
		b.write(" GROUP BY ")
		b.exprList(q.GroupBy)
	}

	if !ordered {
		return
	}

	orderBy := q.OrderBy
	if len(orderBy) == 0 {
		orderBy = q.GroupBy
	}
	if len(orderBy) > 0 {
		b.write(" ORDER BY ")
		b.exprList(orderBy)
	}

	if q.Limit > 0 {
		b.write(" LIMIT ", strconv.Itoa(q.Limit))
		if q.Offset > 0 {
			b.write(" OFFSET ", strconv.Itoa(q.Offset))
		}
	}
}

func (b *builder) exprList(exprs []queryir.Expr) {
	for i, e := range exprs {
		if i > 0 {
			b.write(", ")
		}
		b.expr(e)
	}
}

func (b *builder) expr(e queryir.Expr) {
	switch expr := e.(type) {
	case queryir.Column:
		b.write(column(expr))
	case queryir.Aggregate:
		b.aggregate(expr)
	default:
		b.fail(fmt.Errorf("unsupported expression type: %T", e))
	}
}

func (b *builder) aggregate(a queryir.Aggregate) {
	if a.Arg == nil {
		b.write("COUNT(*)")
		return
	}
	arg := column(*a.Arg)
	switch a.Func {
	case queryir.FuncSum:
		b.write("SUM(", arg, ")")
	case queryir.FuncMin:
		b.write("MIN(", arg, ")")
	case queryir.FuncMax:
		b.write("MAX(", arg, ")")
	case queryir.FuncAvg:
		b.write("AVG(", arg, ")")
	case queryir.FuncCount:
		b.write("COUNT(", arg, ")")
	case queryir.FuncCountDistinct:
		b.write("COUNT(DISTINCT ", arg, ")")
	default:
		b.fail(fmt.Errorf("unsupported aggregation function: %s", a.Func))
	}
}

// predicate emits p. nested wraps compound predicates in parentheses.
func (b *builder) predicate(p queryir.Predicate, nested bool) {
	switch pred := p.(type) {
	case queryir.Compare:
		b.compare(pred)
	case *queryir.Compare:
		b.compare(*pred)
	case queryir.And:
		b.compound(pred.Predicates, " AND ", "1 = 1", nested)
	case *queryir.And:
		b.compound(pred.Predicates, " AND ", "1 = 1", nested)
	case queryir.Or:
		b.compound(pred.Predicates, " OR ", "1 = 0", nested)
	case *queryir.Or:
		b.compound(pred.Predicates, " OR ", "1 = 0", nested)
	default:
		b.fail(fmt.Errorf("unsupported predicate type: %T", p))
	}
}

func (b *builder) compound(preds []queryir.Predicate, sep, empty string, nested bool) {
	switch len(preds) {
	case 0:
		b.write(empty)
		return
	case 1:
		b.predicate(preds[0], nested)
		return
	}
	if nested {
		b.write("(")
	}
	for i, p := range preds {
		if i > 0 {
			b.write(sep)
		}
		b.predicate(p, true)
	}
	if nested {
		b.write(")")
	}
}

// compare emits "column <op> ?". The value is always a parameter.
func (b *builder) compare(c queryir.Compare) {
	b.write(column(c.Column), " ", string(c.Op), " ?")
	b.params = append(b.params, c.Value)
}

func (b *builder) fail(err error) {
	if b.err == nil {
		b.err = err
	}
}

func table(t queryir.Table) string {
	name := quoteIdent(t.Name)
	if t.Schema != "" {
		name = quoteIdent(t.Schema) + "." + name
	}
	if t.Alias != "" && t.Alias != t.Name {
		name += " AS " + quoteIdent(t.Alias)
	}
	return name
}

func column(c queryir.Column) string {
	return quoteIdent(c.Table) + "." + quoteIdent(c.Name)
}

// quoteIdent double-quotes an identifier, doubling embedded quotes.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
