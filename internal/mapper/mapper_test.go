package mapper

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/starcube/internal/model"
)

func testModel(t *testing.T, opts model.Options) (*model.Model, *model.Cube) {
	t.Helper()

	date := model.MustDimension("date", []*model.Level{
		model.MustLevel("year", nil, "", ""),
		model.MustLevel("month", []*model.Attribute{
			model.NewAttribute("month"), model.NewAttribute("month_name"),
		}, "", ""),
	}, nil, "")
	product := model.MustDimension("product", []*model.Level{
		model.MustLevel("category", []*model.Attribute{
			model.NewAttribute("category"), model.NewAttribute("category_name", "en", "sk"),
		}, "", ""),
		model.MustLevel("product", []*model.Attribute{
			model.NewAttribute("id"), model.NewAttribute("product_name"),
		}, "", ""),
	}, nil, "")
	flag := model.MustDimension("flag", nil, nil, "")

	cube := &model.Cube{
		Name:       "sales",
		Measures:   []*model.Measure{model.NewMeasure("amount", "sum", "min")},
		Details:    []*model.Attribute{model.NewAttribute("fact_detail1")},
		Dimensions: []*model.Dimension{date, product, flag},
		Joins: []model.JoinSpec{
			mustJoin(t, "sales.date_id", "dim_date.id", ""),
			mustJoin(t, "sales.product_id", "dim_product.id", ""),
			mustJoin(t, "dim_product.category_id", "dim_category.id", ""),
		},
		Mappings: map[string]string{
			"product.category":      "dim_category.id",
			"product.category_name": "dim_category.category_name",
		},
	}
	return &model.Model{Cubes: []*model.Cube{cube}, Options: opts}, cube
}

func mustJoin(t *testing.T, master, detail, alias string) model.JoinSpec {
	t.Helper()
	m, err := model.ParseTableColumn(master)
	require.NoError(t, err)
	d, err := model.ParseTableColumn(detail)
	require.NoError(t, err)
	return model.JoinSpec{Master: m, Detail: d, Alias: alias}
}

func attr(t *testing.T, c *model.Cube, ref string) *model.Attribute {
	t.Helper()
	a, err := c.Attribute(ref)
	require.NoError(t, err)
	return a
}

func salesOptions() model.Options {
	opts := model.DefaultOptions()
	opts.DimensionPrefix = "dim_"
	return opts
}

func TestPhysical_NamingConvention(t *testing.T) {
	m, c := testModel(t, salesOptions())
	mp, err := New(m, c)
	require.NoError(t, err)

	tests := []struct {
		ref  string
		want Reference
	}{
		{"id", Reference{Table: "sales", Column: "id"}},
		{"amount", Reference{Table: "sales", Column: "amount"}},
		{"fact_detail1", Reference{Table: "sales", Column: "fact_detail1"}},
		{"flag", Reference{Table: "sales", Column: "flag"}},
		{"date.year", Reference{Table: "dim_date", Column: "year"}},
		{"date.month_name", Reference{Table: "dim_date", Column: "month_name"}},
		{"product.category", Reference{Table: "dim_category", Column: "id"}},
		{"product.category_name", Reference{Table: "dim_category", Column: "category_name_en", Locale: "en"}},
		{"product.product_name", Reference{Table: "dim_product", Column: "product_name"}},
	}

	for _, tt := range tests {
		t.Run(tt.ref, func(t *testing.T) {
			var a *model.Attribute
			if tt.ref == "id" {
				a = c.KeyAttribute()
			} else {
				a = attr(t, c, tt.ref)
			}
			assert.Equal(t, tt.want, mp.Physical(a, ""))
		})
	}
}

func TestPhysical_Locales(t *testing.T) {
	m, c := testModel(t, salesOptions())
	mp, err := New(m, c)
	require.NoError(t, err)
	name := attr(t, c, "product.category_name")

	tests := []struct {
		locale string
		want   string
	}{
		{"", "category_name_en"},
		{"en", "category_name_en"},
		{"sk", "category_name_sk"},
		{"sk-SK", "category_name_sk"},
		{"de", "category_name_en"},
		{"not a locale", "category_name_en"},
	}
	for _, tt := range tests {
		t.Run(tt.locale, func(t *testing.T) {
			assert.Equal(t, tt.want, mp.Physical(name, tt.locale).Column)
		})
	}

	// Locales never apply to attributes without variants.
	assert.Equal(t, "year", mp.Physical(attr(t, c, "date.year"), "sk").Column)

	skMapper, err := New(m, c, WithLocale("sk"))
	require.NoError(t, err)
	assert.Equal(t, "sk", skMapper.Locale())
	assert.Equal(t, "category_name_sk", skMapper.Physical(name, "").Column)
	assert.Equal(t, "category_name_en", skMapper.Physical(name, "en").Column)
}

func TestPhysical_LocaleSpecificMapping(t *testing.T) {
	m, c := testModel(t, salesOptions())
	c.Mappings["product.category_name.sk"] = "slovak.nazov"

	mp, err := New(m, c)
	require.NoError(t, err)
	name := attr(t, c, "product.category_name")

	assert.Equal(t, Reference{Table: "slovak", Column: "nazov", Locale: "sk"}, mp.Physical(name, "sk"))
	assert.Equal(t, "category_name_en", mp.Physical(name, "en").Column)
}

func TestPhysical_Schema(t *testing.T) {
	opts := salesOptions()
	opts.Schema = "mart"
	m, c := testModel(t, opts)
	c.Mappings["date.year"] = "warehouse.calendar.yr"

	mp, err := New(m, c)
	require.NoError(t, err)

	assert.Equal(t, "mart", mp.Schema())
	assert.Equal(t, Reference{Schema: "mart", Table: "sales", Column: "amount"}, mp.Physical(attr(t, c, "amount"), ""))
	assert.Equal(t, Reference{Schema: "warehouse", Table: "calendar", Column: "yr"}, mp.Physical(attr(t, c, "date.year"), ""))
	assert.Equal(t, "warehouse.calendar.yr", mp.Physical(attr(t, c, "date.year"), "").String())
}

func TestLogical(t *testing.T) {
	m, c := testModel(t, salesOptions())
	mp, err := New(m, c)
	require.NoError(t, err)

	assert.Equal(t, "amount", mp.Logical(attr(t, c, "amount")))
	assert.Equal(t, "date.month", mp.Logical(attr(t, c, "date.month")))
	assert.Equal(t, "flag", mp.Logical(attr(t, c, "flag")))
	assert.True(t, mp.SimplifiesDimensionReferences())
}

func TestSimplificationOff(t *testing.T) {
	opts := salesOptions()
	opts.SimplifyDimensionReferences = false
	m, c := testModel(t, opts)
	mp, err := New(m, c)
	require.NoError(t, err)

	flag := attr(t, c, "flag")
	assert.Equal(t, "flag.flag", mp.Logical(flag))
	assert.Equal(t, Reference{Table: "dim_flag", Column: "flag"}, mp.Physical(flag, ""))
}

func TestFactPrefix(t *testing.T) {
	opts := salesOptions()
	opts.FactPrefix = "ft_"
	m, c := testModel(t, opts)
	c.Joins = nil

	mp, err := New(m, c)
	require.NoError(t, err)
	assert.Equal(t, "ft_sales", mp.FactTable())
	assert.Equal(t, "ft_sales", mp.Physical(attr(t, c, "amount"), "").Table)
}

func TestTablesForAttributes(t *testing.T) {
	m, c := testModel(t, salesOptions())
	mp, err := New(m, c)
	require.NoError(t, err)

	tables := mp.TablesForAttributes([]*model.Attribute{
		attr(t, c, "amount"),
		attr(t, c, "date.year"),
		attr(t, c, "date.month"),
		attr(t, c, "product.category_name"),
		attr(t, c, "flag"),
	}, "")
	assert.Equal(t, []string{"sales", "dim_date", "dim_category"}, tables)
}

func TestNew_InvalidMapping(t *testing.T) {
	m, c := testModel(t, salesOptions())
	c.Mappings["date.year"] = "year"

	_, err := New(m, c)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `mapping for "date.year"`)
}
