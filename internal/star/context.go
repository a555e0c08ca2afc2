package star

import (
	"slices"

	"github.com/roach88/starcube/internal/cube"
	"github.com/roach88/starcube/internal/ir"
	"github.com/roach88/starcube/internal/mapper"
	"github.com/roach88/starcube/internal/model"
	"github.com/roach88/starcube/internal/queryir"
)

// RecordCountLabel is the reserved aggregate counting fact rows.
const RecordCountLabel = "record_count"

// QueryContext builds statements for one cube in one locale. It holds no
// per-query state and is safe for concurrent use.
type QueryContext struct {
	mapper *mapper.Mapper
	cube   *model.Cube
	locale string
}

// NewQueryContext creates a context over a mapper. An empty locale uses the
// mapper's default.
func NewQueryContext(mp *mapper.Mapper, locale string) *QueryContext {
	return &QueryContext{mapper: mp, cube: mp.Cube(), locale: locale}
}

// Mapper returns the context's mapper.
func (qc *QueryContext) Mapper() *mapper.Mapper {
	return qc.mapper
}

func (qc *QueryContext) column(a *model.Attribute) queryir.Column {
	return qc.columnIn(a, qc.locale)
}

func (qc *QueryContext) columnIn(a *model.Attribute, locale string) queryir.Column {
	ref := qc.mapper.Physical(a, locale)
	return queryir.Column{Table: ref.Table, Name: ref.Column}
}

func (qc *QueryContext) field(a *model.Attribute) queryir.Field {
	return queryir.Field{Expr: qc.column(a), Label: qc.mapper.Logical(a)}
}

func (qc *QueryContext) factTable() queryir.Table {
	return queryir.Table{Schema: qc.mapper.Schema(), Name: qc.mapper.FactTable()}
}

func (qc *QueryContext) irJoin(j model.JoinSpec) queryir.Join {
	schema := j.Detail.Schema
	if schema == "" {
		schema = qc.mapper.Schema()
	}
	id := j.DetailIdentity()
	return queryir.Join{
		Table:  queryir.Table{Schema: schema, Name: j.Detail.Table, Alias: j.Alias},
		Master: queryir.Column{Table: j.Master.Table, Name: j.Master.Column},
		Detail: queryir.Column{Table: id, Name: j.Detail.Column},
	}
}

// joinsFor returns the joins needed to reach the tables of attrs.
func (qc *QueryContext) joinsFor(attrs []*model.Attribute) ([]queryir.Join, error) {
	specs, err := qc.mapper.RelevantJoins(qc.mapper.TablesForAttributes(attrs, qc.locale))
	if err != nil {
		return nil, err
	}
	joins := make([]queryir.Join, len(specs))
	for i, j := range specs {
		joins[i] = qc.irJoin(j)
	}
	return joins, nil
}

// DenormalizedStatement selects every fact attribute and every dimension
// attribute through all joins, ordered by the fact key. With expandLocales
// a localized attribute yields one column per locale labeled
// "<reference>.<locale>"; otherwise one column in the context locale.
func (qc *QueryContext) DenormalizedStatement(expandLocales bool) *queryir.Select {
	key := qc.cube.KeyAttribute()
	sel := &queryir.Select{
		From:    qc.factTable(),
		OrderBy: []queryir.Expr{qc.column(key)},
	}

	for _, a := range qc.cube.FactAttributes() {
		sel.Fields = append(sel.Fields, qc.field(a))
	}
	for _, d := range qc.cube.Dimensions {
		for _, a := range d.Attributes() {
			if expandLocales && a.IsLocalized() {
				for _, locale := range a.Locales {
					sel.Fields = append(sel.Fields, queryir.Field{
						Expr:  qc.columnIn(a, locale),
						Label: qc.mapper.Logical(a) + "." + locale,
					})
				}
				continue
			}
			sel.Fields = append(sel.Fields, qc.field(a))
		}
	}

	for _, j := range qc.mapper.Joins() {
		sel.Joins = append(sel.Joins, qc.irJoin(j))
	}
	return sel
}

// AggregationsForMeasure returns one aggregate per function of the measure,
// labeled "<measure>_<function>".
func (qc *QueryContext) AggregationsForMeasure(m *model.Measure) []queryir.Field {
	col := qc.column(m.Attribute)
	fields := make([]queryir.Field, len(m.Aggregations))
	for i, fn := range m.Aggregations {
		arg := col
		fields[i] = queryir.Field{
			Expr:  queryir.Aggregate{Func: fn, Arg: &arg},
			Label: m.Name + "_" + fn,
		}
	}
	return fields
}

// Condition translates the cell's cuts to a predicate (nil when the cell
// has no restricting cut) and returns the attributes the predicate reads.
func (qc *QueryContext) Condition(cell *cube.Cell) (queryir.Predicate, []*model.Attribute, error) {
	var (
		preds []queryir.Predicate
		attrs []*model.Attribute
	)
	for _, cut := range cell.Cuts() {
		_, hier, err := cube.ResolveHierarchy(cell.Cube(), cut)
		if err != nil {
			return nil, nil, err
		}
		pred, used := qc.cutPredicate(cut, hier)
		preds = append(preds, pred)
		attrs = append(attrs, used...)
	}
	return queryir.AllOf(preds...), attrs, nil
}

func (qc *QueryContext) cutPredicate(cut cube.Cut, hier *model.Hierarchy) (queryir.Predicate, []*model.Attribute) {
	keys := make([]queryir.Column, hier.Depth())
	for i, l := range hier.Levels {
		keys[i] = qc.column(l.Key)
	}

	var (
		pred  queryir.Predicate
		depth int
	)
	switch c := cut.(type) {
	case cube.PointCut:
		pred, depth = pointPredicate(keys, c.Path), len(c.Path)
	case cube.RangeCut:
		lower := boundPredicate(keys, c.From, queryir.OpGt, queryir.OpGe)
		upper := boundPredicate(keys, c.To, queryir.OpLt, queryir.OpLe)
		pred, depth = queryir.AllOf(lower, upper), max(len(c.From), len(c.To))
	case cube.SetCut:
		// An empty path is the whole hierarchy, so the union is too.
		if slices.ContainsFunc(c.Paths, func(p []ir.IRValue) bool { return len(p) == 0 }) {
			return nil, nil
		}
		points := make([]queryir.Predicate, 0, len(c.Paths))
		for _, p := range c.Paths {
			points = append(points, pointPredicate(keys, p))
			depth = max(depth, len(p))
		}
		pred = queryir.AnyOf(points...)
	}

	attrs := make([]*model.Attribute, 0, depth)
	for _, l := range hier.Levels[:depth] {
		attrs = append(attrs, l.Key)
	}
	return pred, attrs
}

// pointPredicate is key0 = p0 AND ... AND keyN = pN; nil for an empty path.
func pointPredicate(keys []queryir.Column, path []ir.IRValue) queryir.Predicate {
	preds := make([]queryir.Predicate, len(path))
	for i, v := range path {
		preds[i] = queryir.Eq(keys[i], v)
	}
	return queryir.AllOf(preds...)
}

// boundPredicate compares (key0..keyN) to path lexicographically:
//
//	OR_i (key0 = p0 AND ... AND key(i-1) = p(i-1) AND key(i) <strict> p(i))
//
// with <last> instead of <strict> at the final level. nil for an empty path.
func boundPredicate(keys []queryir.Column, path []ir.IRValue, strict, last queryir.Op) queryir.Predicate {
	if len(path) == 0 {
		return nil
	}
	alternatives := make([]queryir.Predicate, len(path))
	for i := range path {
		op := strict
		if i == len(path)-1 {
			op = last
		}
		conj := make([]queryir.Predicate, 0, i+1)
		for j := range i {
			conj = append(conj, queryir.Eq(keys[j], path[j]))
		}
		conj = append(conj, queryir.Compare{Column: keys[i], Op: op, Value: path[i]})
		alternatives[i] = queryir.AllOf(conj...)
	}
	return queryir.AnyOf(alternatives...)
}

// levelAttributes returns the attributes of the drilled levels, key first
// within each level.
func levelAttributes(drilldown []cube.DrilldownItem) []*model.Attribute {
	var attrs []*model.Attribute
	for _, item := range drilldown {
		for _, l := range item.Levels {
			attrs = append(attrs, l.Key)
			for _, a := range l.Attributes {
				if a != l.Key {
					attrs = append(attrs, a)
				}
			}
		}
	}
	return attrs
}

func keyAttributes(drilldown []cube.DrilldownItem) []*model.Attribute {
	var keys []*model.Attribute
	for _, item := range drilldown {
		for _, l := range item.Levels {
			keys = append(keys, l.Key)
		}
	}
	return keys
}

// AggregationStatement builds
//
//	SELECT <level attributes>, <aggregates>, COUNT(*) AS record_count
//	FROM fact <joins> WHERE <cell condition>
//	GROUP BY <level attributes> ORDER BY <level keys>
//
// joining only tables read by the drilled levels and the cell condition.
// Without drilldown the statement is the one-row summary.
func (qc *QueryContext) AggregationStatement(cell *cube.Cell, measures []*model.Measure, drilldown []cube.DrilldownItem) (*queryir.Select, error) {
	cond, condAttrs, err := qc.Condition(cell)
	if err != nil {
		return nil, err
	}

	levelAttrs := levelAttributes(drilldown)
	touched := append([]*model.Attribute{}, levelAttrs...)
	touched = append(touched, condAttrs...)
	for _, m := range measures {
		touched = append(touched, m.Attribute)
	}
	joins, err := qc.joinsFor(touched)
	if err != nil {
		return nil, err
	}

	sel := &queryir.Select{From: qc.factTable(), Joins: joins, Filter: cond}
	for _, a := range levelAttrs {
		f := qc.field(a)
		sel.Fields = append(sel.Fields, f)
		sel.GroupBy = append(sel.GroupBy, f.Expr)
	}
	for _, k := range keyAttributes(drilldown) {
		sel.OrderBy = append(sel.OrderBy, qc.column(k))
	}
	for _, m := range measures {
		sel.Fields = append(sel.Fields, qc.AggregationsForMeasure(m)...)
	}
	sel.Fields = append(sel.Fields, queryir.Field{Expr: queryir.CountAll(), Label: RecordCountLabel})

	return sel, nil
}

// MembersStatement selects the distinct members of the drilled levels
// within the cell, ordered by level keys.
func (qc *QueryContext) MembersStatement(cell *cube.Cell, item cube.DrilldownItem) (*queryir.Select, error) {
	cond, condAttrs, err := qc.Condition(cell)
	if err != nil {
		return nil, err
	}
	items := []cube.DrilldownItem{item}
	attrs := levelAttributes(items)
	joins, err := qc.joinsFor(append(append([]*model.Attribute{}, attrs...), condAttrs...))
	if err != nil {
		return nil, err
	}

	sel := &queryir.Select{From: qc.factTable(), Joins: joins, Filter: cond, Distinct: true}
	for _, a := range attrs {
		sel.Fields = append(sel.Fields, qc.field(a))
	}
	for _, k := range keyAttributes(items) {
		sel.OrderBy = append(sel.OrderBy, qc.column(k))
	}
	return sel, nil
}

// FactsStatement is the denormalized statement restricted to a cell.
func (qc *QueryContext) FactsStatement(cell *cube.Cell) (*queryir.Select, error) {
	cond, _, err := qc.Condition(cell)
	if err != nil {
		return nil, err
	}
	sel := qc.DenormalizedStatement(false)
	sel.Filter = cond
	return sel, nil
}

// FactStatement selects the denormalized row of one fact.
func (qc *QueryContext) FactStatement(key ir.IRValue) *queryir.Select {
	sel := qc.DenormalizedStatement(false)
	sel.Filter = queryir.Eq(qc.column(qc.cube.KeyAttribute()), key)
	sel.Limit = 1
	return sel
}
