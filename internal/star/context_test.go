package star

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/starcube/internal/cube"
	"github.com/roach88/starcube/internal/ir"
	"github.com/roach88/starcube/internal/mapper"
	"github.com/roach88/starcube/internal/queryir"
	"github.com/roach88/starcube/internal/testutil"
)

func salesContext(t *testing.T, locale string) *QueryContext {
	t.Helper()
	m := testutil.SalesModel(t)
	c, err := m.Cube("sales")
	require.NoError(t, err)
	mp, err := mapper.New(m, c)
	require.NoError(t, err)
	return NewQueryContext(mp, locale)
}

func labels(sel *queryir.Select) []string {
	out := make([]string, len(sel.Fields))
	for i, f := range sel.Fields {
		out[i] = f.Label
	}
	return out
}

func joinTables(sel *queryir.Select) []string {
	out := make([]string, len(sel.Joins))
	for i, j := range sel.Joins {
		out[i] = j.Table.Identity()
	}
	return out
}

func TestDenormalizedStatement(t *testing.T) {
	qc := salesContext(t, "")

	sel := qc.DenormalizedStatement(false)
	require.Len(t, sel.Fields, 18)
	assert.Equal(t, []string{
		"id", "amount", "discount", "fact_detail1", "fact_detail2",
		"date.year", "date.month", "date.month_name", "date.month_sname", "date.id", "date.day",
		"flag",
		"product.category", "product.category_name",
		"product.subcategory", "product.subcategory_name",
		"product.id", "product.product_name",
	}, labels(sel))
	assert.Equal(t, []string{"dim_date", "dim_product", "dim_category"}, joinTables(sel))
	assert.Equal(t, []queryir.Expr{queryir.Column{Table: "sales", Name: "id"}}, sel.OrderBy)
	assert.True(t, queryir.Validate(sel).IsValid)

	// Localized columns follow the context locale.
	assert.Contains(t, sel.Fields, queryir.Field{
		Expr:  queryir.Column{Table: "dim_category", Name: "category_name_en"},
		Label: "product.category_name",
	})
}

func TestDenormalizedStatementExpandLocales(t *testing.T) {
	qc := salesContext(t, "")

	sel := qc.DenormalizedStatement(true)
	require.Len(t, sel.Fields, 20)
	assert.Contains(t, labels(sel), "product.category_name.en")
	assert.Contains(t, labels(sel), "product.category_name.sk")
	assert.Contains(t, sel.Fields, queryir.Field{
		Expr:  queryir.Column{Table: "dim_category", Name: "subcategory_name_sk"},
		Label: "product.subcategory_name.sk",
	})
	assert.NotContains(t, labels(sel), "product.category_name")
}

func TestDenormalizedStatementLocale(t *testing.T) {
	qc := salesContext(t, "sk")

	sel := qc.DenormalizedStatement(false)
	assert.Contains(t, sel.Fields, queryir.Field{
		Expr:  queryir.Column{Table: "dim_category", Name: "category_name_sk"},
		Label: "product.category_name",
	})
}

func TestAggregationsForMeasure(t *testing.T) {
	qc := salesContext(t, "")
	c := qc.Mapper().Cube()

	amount, err := c.Measure("amount")
	require.NoError(t, err)
	fields := qc.AggregationsForMeasure(amount)
	require.Len(t, fields, 2)
	assert.Equal(t, "amount_sum", fields[0].Label)
	assert.Equal(t, "amount_min", fields[1].Label)

	col := queryir.Column{Table: "sales", Name: "amount"}
	assert.Equal(t, queryir.Aggregate{Func: queryir.FuncMin, Arg: &col}, fields[1].Expr)

	discount, err := c.Measure("discount")
	require.NoError(t, err)
	assert.Len(t, qc.AggregationsForMeasure(discount), 1)
}

func TestAggregationStatementJoinsOnlyWhatItReads(t *testing.T) {
	qc := salesContext(t, "")
	c := qc.Mapper().Cube()
	full := cube.MustCell(c)

	tests := []struct {
		name      string
		cell      *cube.Cell
		drilldown []string
		wantJoins []string
	}{
		{"summary", full, nil, []string{}},
		{"flat dimension", full, []string{"flag"}, []string{}},
		{"date", full, []string{"date"}, []string{"dim_date"}},
		{"snowflake", full, []string{"product:category"}, []string{"dim_product", "dim_category"}},
		{"product level", full, []string{"product:product"}, []string{"dim_product", "dim_category"}},
		{"cut only", cube.MustCell(c, cube.Point("date", 2012)), nil, []string{"dim_date"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items, err := cube.LevelsFromDrilldown(tt.cell, drilldown(t, tt.drilldown...))
			require.NoError(t, err)

			sel, err := qc.AggregationStatement(tt.cell, c.Measures, items)
			require.NoError(t, err)
			assert.Equal(t, tt.wantJoins, joinTables(sel))
			assert.True(t, queryir.Validate(sel).IsValid, queryir.Validate(sel).Errors)
		})
	}
}

func TestAggregationStatementShape(t *testing.T) {
	qc := salesContext(t, "")
	c := qc.Mapper().Cube()
	cl := cube.MustCell(c, cube.Point("date", 2012))

	items, err := cube.LevelsFromDrilldown(cl, drilldown(t, "date"))
	require.NoError(t, err)
	measures, err := c.MeasuresByName([]string{"discount"})
	require.NoError(t, err)

	sel, err := qc.AggregationStatement(cl, measures, items)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"date.year", "date.month", "date.month_name", "date.month_sname",
		"discount_sum", RecordCountLabel,
	}, labels(sel))
	assert.Len(t, sel.GroupBy, 4)
	assert.Equal(t, []queryir.Expr{
		queryir.Column{Table: "dim_date", Name: "year"},
		queryir.Column{Table: "dim_date", Name: "month"},
	}, sel.OrderBy)
	assert.NotNil(t, sel.Filter)
}

func TestCondition(t *testing.T) {
	qc := salesContext(t, "")
	c := qc.Mapper().Cube()
	year := queryir.Column{Table: "dim_date", Name: "year"}
	month := queryir.Column{Table: "dim_date", Name: "month"}

	t.Run("empty cell", func(t *testing.T) {
		pred, attrs, err := qc.Condition(cube.MustCell(c))
		require.NoError(t, err)
		assert.Nil(t, pred)
		assert.Empty(t, attrs)
	})

	t.Run("point", func(t *testing.T) {
		pred, attrs, err := qc.Condition(cube.MustCell(c, cube.Point("date", 2012, 3)))
		require.NoError(t, err)
		assert.Equal(t, queryir.And{Predicates: []queryir.Predicate{
			queryir.Eq(year, ir.IRInt(2012)),
			queryir.Eq(month, ir.IRInt(3)),
		}}, pred)
		require.Len(t, attrs, 2)
		assert.Equal(t, "date.month", attrs[1].Ref())
	})

	t.Run("range", func(t *testing.T) {
		cut := cube.RangeCut{Dim: "date", From: ir.MustPath(2012, 1), To: ir.MustPath(2012, 3)}
		pred, _, err := qc.Condition(cube.MustCell(c, cut))
		require.NoError(t, err)

		lower := queryir.Or{Predicates: []queryir.Predicate{
			queryir.Compare{Column: year, Op: queryir.OpGt, Value: ir.IRInt(2012)},
			queryir.And{Predicates: []queryir.Predicate{
				queryir.Eq(year, ir.IRInt(2012)),
				queryir.Compare{Column: month, Op: queryir.OpGe, Value: ir.IRInt(1)},
			}},
		}}
		upper := queryir.Or{Predicates: []queryir.Predicate{
			queryir.Compare{Column: year, Op: queryir.OpLt, Value: ir.IRInt(2012)},
			queryir.And{Predicates: []queryir.Predicate{
				queryir.Eq(year, ir.IRInt(2012)),
				queryir.Compare{Column: month, Op: queryir.OpLe, Value: ir.IRInt(3)},
			}},
		}}
		assert.Equal(t, queryir.And{Predicates: []queryir.Predicate{lower, upper}}, pred)
	})

	t.Run("open range", func(t *testing.T) {
		cut := cube.RangeCut{Dim: "date", To: ir.MustPath(2012)}
		pred, _, err := qc.Condition(cube.MustCell(c, cut))
		require.NoError(t, err)
		assert.Equal(t, queryir.Compare{Column: year, Op: queryir.OpLe, Value: ir.IRInt(2012)}, pred)
	})

	t.Run("set", func(t *testing.T) {
		cut := cube.SetCut{Dim: "date", Paths: [][]ir.IRValue{ir.MustPath(2012), ir.MustPath(2013)}}
		pred, _, err := qc.Condition(cube.MustCell(c, cut))
		require.NoError(t, err)
		assert.Equal(t, queryir.Or{Predicates: []queryir.Predicate{
			queryir.Eq(year, ir.IRInt(2012)),
			queryir.Eq(year, ir.IRInt(2013)),
		}}, pred)
	})

	t.Run("set with empty path", func(t *testing.T) {
		cut := cube.SetCut{Dim: "date", Paths: [][]ir.IRValue{ir.MustPath(2012), {}}}
		pred, attrs, err := qc.Condition(cube.MustCell(c, cut))
		require.NoError(t, err)
		assert.Nil(t, pred)
		assert.Empty(t, attrs)
	})
}

func TestMembersStatement(t *testing.T) {
	qc := salesContext(t, "")
	c := qc.Mapper().Cube()
	full := cube.MustCell(c)

	items, err := cube.LevelsFromDrilldown(full, drilldown(t, "product:subcategory"))
	require.NoError(t, err)

	sel, err := qc.MembersStatement(full, items[0])
	require.NoError(t, err)
	assert.True(t, sel.Distinct)
	assert.Equal(t, []string{
		"product.category", "product.category_name",
		"product.subcategory", "product.subcategory_name",
	}, labels(sel))
	assert.Len(t, sel.OrderBy, 2)
}

func TestFactStatement(t *testing.T) {
	qc := salesContext(t, "")

	sel := qc.FactStatement(ir.IRInt(1))
	assert.Equal(t, 1, sel.Limit)
	assert.Equal(t, queryir.Eq(queryir.Column{Table: "sales", Name: "id"}, ir.IRInt(1)), sel.Filter)
}
