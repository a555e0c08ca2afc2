package compiler

import (
	"os"
	"path/filepath"
	"testing"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/starcube/internal/model"
)

const salesSource = `
options: {
	dimension_prefix: "dim_"
	locale:           "en"
}
dimensions: {
	date: {
		levels: [
			"year",
			{name: "month", attributes: ["month", "month_name", "month_sname"]},
			{name: "day", key: "id", label_attribute: "day", attributes: ["id", "day"]},
		]
	}
	product: {
		levels: [
			{name: "category", attributes: ["category", {name: "category_name", locales: ["en", "sk"]}]},
			{name: "product", attributes: ["id", "product_name"]},
		]
	}
	flag: {}
}
cubes: {
	sales: {
		measures: [{name: "amount", aggregations: ["sum", "min"]}, "discount"]
		details: ["fact_detail1", "fact_detail2"]
		dimensions: ["date", "flag", "product"]
		joins: [
			{master: "sales.date_id", detail: "dim_date.id"},
			{master: "sales.product_id", detail: "dim_product.id"},
			{master: "dim_product.category_id", detail: "dim_category.id"},
		]
		mappings: {
			"product.category":      "dim_category.id"
			"product.category_name": "dim_category.category_name"
		}
	}
}
`

func compileSource(t *testing.T, src string) (*model.Model, error) {
	t.Helper()
	return CompileModelBytes([]byte(src), "model.cue")
}

func TestCompileModelBasic(t *testing.T) {
	m, err := compileSource(t, salesSource)
	require.NoError(t, err)

	assert.Equal(t, "dim_", m.Options.DimensionPrefix)
	assert.Equal(t, "en", m.Options.Locale)
	assert.True(t, m.Options.SimplifyDimensionReferences)
	require.Len(t, m.Dimensions, 3)
	assert.Equal(t, "date", m.Dimensions[0].Name)
	assert.Equal(t, "flag", m.Dimensions[1].Name)
	assert.True(t, m.Dimensions[1].IsFlat())

	c, err := m.Cube("sales")
	require.NoError(t, err)
	assert.Equal(t, "sales", m.FactTable(c))
	require.Len(t, c.Measures, 2)
	assert.Equal(t, []string{"sum", "min"}, c.Measures[0].Aggregations)
	assert.Equal(t, []string{"sum"}, c.Measures[1].Aggregations)
	assert.Len(t, c.Details, 2)
	assert.Len(t, c.Joins, 3)
	assert.Equal(t, "dim_category.id", c.Mappings["product.category"])

	date, err := c.Dimension("date")
	require.NoError(t, err)
	assert.Same(t, m.Dimensions[0], date)
	day := date.Level("day")
	require.NotNil(t, day)
	assert.Equal(t, "id", day.Key.Name)
	assert.Equal(t, "day", day.Label.Name)
	assert.Equal(t, "month_name", date.Level("month").Label.Name)

	name, err := c.Attribute("product.category_name")
	require.NoError(t, err)
	assert.Equal(t, []string{"en", "sk"}, name.Locales)

	assert.Empty(t, ValidateModel(m))
}

func TestCompileModelHierarchies(t *testing.T) {
	m, err := compileSource(t, `
		dimensions: date: {
			levels: ["year", "quarter", "month", "week", "day"]
			hierarchies: [
				{name: "ymd", levels: ["year", "month", "day"]},
				{name: "ywd", levels: ["year", "week", "day"]},
			]
			default_hierarchy: "ywd"
		}
		cubes: cube: {dimensions: ["date"]}
	`)
	require.NoError(t, err)

	d := m.Dimensions[0]
	require.Len(t, d.Hierarchies, 2)
	assert.Equal(t, "ywd", d.DefaultHierarchy().Name)
	assert.Equal(t, 3, d.Hierarchy("ymd").Depth())
}

func TestCompileModelJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"options": {"fact_prefix": "ft_", "simplify_dimension_references": false},
		"dimensions": {"date": {"levels": ["year", "month"]}},
		"cubes": {"cube": {"dimensions": ["date"], "key": "fid"}}
	}`), 0o644))

	m, err := LoadModel(path)
	require.NoError(t, err)

	c, err := m.Cube("cube")
	require.NoError(t, err)
	assert.Equal(t, "ft_cube", m.FactTable(c))
	assert.Equal(t, "fid", c.KeyAttribute().Name)
	assert.False(t, m.Options.SimplifyDimensionReferences)
}

func TestLoadModelMissingFile(t *testing.T) {
	_, err := LoadModel(filepath.Join(t.TempDir(), "nope.cue"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read model")
}

func TestCompileModelErrors(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		wantErr string
	}{
		{
			name:    "no cubes",
			src:     `dimensions: date: {}`,
			wantErr: "at least one cube is required",
		},
		{
			name:    "unknown dimension",
			src:     `cubes: sales: dimensions: ["date"]`,
			wantErr: `unknown dimension "date"`,
		},
		{
			name: "unknown hierarchy level",
			src: `
				dimensions: date: {
					levels: ["year"]
					hierarchies: [{name: "ym", levels: ["year", "month"]}]
				}
				cubes: sales: {}
			`,
			wantErr: "dimensions.date",
		},
		{
			name:    "level key not an attribute",
			src:     `dimensions: date: levels: [{name: "day", key: "id", attributes: ["day"]}], cubes: sales: {}`,
			wantErr: "key attribute",
		},
		{
			name:    "missing measure name",
			src:     `cubes: sales: measures: [{aggregations: ["sum"]}]`,
			wantErr: "cubes.sales.measures[0].name",
		},
		{
			name:    "bad join reference",
			src:     `cubes: sales: joins: [{master: "sales", detail: "dim.id"}]`,
			wantErr: "invalid column reference",
		},
		{
			name:    "wrong type",
			src:     `options: locale: 1, cubes: sales: {}`,
			wantErr: "locale",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := compileSource(t, tt.src)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestCompileErrorPosition(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString("cubes: sales: {\n\tmeasures: [{aggregations: [\"sum\"]}]\n}\n", cue.Filename("sales.cue"))
	require.NoError(t, v.Err())

	_, err := CompileModel(v)
	require.Error(t, err)

	var ce *CompileError
	require.ErrorAs(t, err, &ce)
	assert.True(t, ce.Pos.IsValid())
	assert.Contains(t, err.Error(), "sales.cue:2:")
}

func TestCompileErrorWithoutPosition(t *testing.T) {
	err := &CompileError{Field: "cubes", Message: "missing"}
	assert.Equal(t, "cubes: missing", err.Error())
}
