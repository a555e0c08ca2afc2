package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dateDimension(t *testing.T) *Dimension {
	t.Helper()
	d, err := NewDimension("date",
		[]*Level{
			MustLevel("year", nil, "", ""),
			MustLevel("quarter", nil, "", ""),
			MustLevel("month", []*Attribute{NewAttribute("month"), NewAttribute("month_name"), NewAttribute("month_sname")}, "", ""),
			MustLevel("week", nil, "", ""),
			MustLevel("day", nil, "", ""),
		},
		[]HierarchySpec{
			{Name: "ymd", Levels: []string{"year", "month", "day"}},
			{Name: "yqmd", Levels: []string{"year", "quarter", "month", "day"}},
			{Name: "ywd", Levels: []string{"year", "week", "day"}},
		},
		"",
	)
	require.NoError(t, err)
	return d
}

func TestNewLevelDefaults(t *testing.T) {
	l := MustLevel("month", []*Attribute{NewAttribute("month"), NewAttribute("month_name")}, "", "")
	assert.Equal(t, "month", l.Key.Name)
	assert.Equal(t, "month_name", l.Label.Name)
	assert.True(t, l.HasDetails())

	single := MustLevel("year", nil, "", "")
	assert.Equal(t, "year", single.Key.Name)
	assert.Same(t, single.Key, single.Label)
	assert.False(t, single.HasDetails())

	surrogate := MustLevel("day", []*Attribute{NewAttribute("id"), NewAttribute("day")}, "id", "day")
	assert.Equal(t, "id", surrogate.Key.Name)
	assert.Equal(t, "day", surrogate.Label.Name)
}

func TestNewLevelUnknownKey(t *testing.T) {
	_, err := NewLevel("month", []*Attribute{NewAttribute("month")}, "id", "")
	require.Error(t, err)
	assert.True(t, IsModelError(err))
	assert.Contains(t, err.Error(), `key attribute "id"`)

	_, err = NewLevel("month", []*Attribute{NewAttribute("month")}, "", "name")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `label attribute "name"`)
}

func TestDimensionHierarchiesShareLevels(t *testing.T) {
	d := dateDimension(t)

	ymd := d.Hierarchy("ymd")
	yqmd := d.Hierarchy("yqmd")
	require.NotNil(t, ymd)
	require.NotNil(t, yqmd)

	assert.Same(t, ymd.Levels[1], yqmd.Levels[2], "month level must be shared")
	assert.Same(t, d.DefaultHierarchy(), ymd)
	assert.Same(t, d.Hierarchy(""), ymd)
	assert.Nil(t, d.Hierarchy("nope"))

	for _, a := range d.Attributes() {
		assert.Same(t, d, a.Dimension)
	}
	assert.Equal(t, "date.month_name", d.Attribute("month_name").Ref())
}

func TestDimensionExplicitDefaultHierarchy(t *testing.T) {
	d, err := NewDimension("date",
		[]*Level{MustLevel("year", nil, "", ""), MustLevel("week", nil, "", "")},
		[]HierarchySpec{{Name: "y", Levels: []string{"year"}}, {Name: "yw", Levels: []string{"year", "week"}}},
		"yw",
	)
	require.NoError(t, err)
	assert.Equal(t, "yw", d.DefaultHierarchy().Name)

	_, err = NewDimension("date", []*Level{MustLevel("year", nil, "", "")}, nil, "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `default hierarchy "missing"`)
}

func TestFlatDimension(t *testing.T) {
	d := MustDimension("flag", nil, nil, "")

	assert.True(t, d.IsFlat())
	assert.False(t, d.HasDetails())
	require.Len(t, d.Hierarchies, 1)
	assert.Equal(t, DefaultHierarchyName, d.DefaultHierarchy().Name)
	assert.Equal(t, "flag", d.Levels[0].Key.Name)
	assert.Equal(t, "flag.flag", d.Levels[0].Key.Ref())
}

func TestDimensionErrors(t *testing.T) {
	tests := []struct {
		name   string
		levels []*Level
		specs  []HierarchySpec
		want   string
	}{
		{
			name:   "unknown level",
			levels: []*Level{MustLevel("year", nil, "", "")},
			specs:  []HierarchySpec{{Name: "h", Levels: []string{"year", "month"}}},
			want:   `unknown level "month"`,
		},
		{
			name:   "duplicate level",
			levels: []*Level{MustLevel("year", nil, "", ""), MustLevel("year", nil, "", "")},
			want:   `duplicate level "year"`,
		},
		{
			name:   "duplicate hierarchy",
			levels: []*Level{MustLevel("year", nil, "", "")},
			specs:  []HierarchySpec{{Name: "h", Levels: []string{"year"}}, {Name: "h", Levels: []string{"year"}}},
			want:   `duplicate hierarchy "h"`,
		},
		{
			name:   "empty hierarchy",
			levels: []*Level{MustLevel("year", nil, "", "")},
			specs:  []HierarchySpec{{Name: "h"}},
			want:   "hierarchy has no levels",
		},
		{
			name:   "repeated level",
			levels: []*Level{MustLevel("year", nil, "", "")},
			specs:  []HierarchySpec{{Name: "h", Levels: []string{"year", "year"}}},
			want:   `level "year" listed twice`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewDimension("date", tt.levels, tt.specs, "")
			require.Error(t, err)
			assert.True(t, IsModelError(err))
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestHierarchyLevels(t *testing.T) {
	h := dateDimension(t).Hierarchy("yqmd")

	assert.Equal(t, 4, h.Depth())
	assert.Equal(t, 2, h.LevelIndex("month"))
	assert.Equal(t, -1, h.LevelIndex("week"))
	assert.Len(t, h.LevelsForDepth(2), 2)
	assert.Len(t, h.LevelsForDepth(10), 4)
	assert.Empty(t, h.LevelsForDepth(-1))
	assert.Equal(t, []string{"date.year", "date.quarter"}, KeyRefs(h.LevelsForDepth(2)))
}

func TestCubeLookups(t *testing.T) {
	date := dateDimension(t)
	flag := MustDimension("flag", nil, nil, "")
	c := &Cube{
		Name:       "sales",
		Measures:   []*Measure{NewMeasure("amount", "sum", "min"), NewMeasure("discount")},
		Details:    []*Attribute{NewAttribute("fact_detail1")},
		Dimensions: []*Dimension{date, flag},
	}

	d, err := c.Dimension("date")
	require.NoError(t, err)
	assert.Same(t, date, d)

	_, err = c.Dimension("product")
	require.Error(t, err)
	assert.True(t, IsModelError(err))
	assert.Equal(t, "dimension 'product': not found in cube 'sales'", err.Error())

	m, err := c.Measure("discount")
	require.NoError(t, err)
	assert.Equal(t, []string{"sum"}, m.Aggregations)

	all, err := c.MeasuresByName(nil)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = c.MeasuresByName([]string{"amount", "price"})
	require.Error(t, err)

	names := make([]string, 0)
	for _, a := range c.FactAttributes() {
		names = append(names, a.Name)
	}
	assert.Equal(t, []string{"id", "amount", "discount", "fact_detail1"}, names)

	a, err := c.Attribute("date.month_sname")
	require.NoError(t, err)
	assert.Equal(t, "date.month_sname", a.Ref())

	a, err = c.Attribute("amount")
	require.NoError(t, err)
	assert.Nil(t, a.Dimension)

	a, err = c.Attribute("flag")
	require.NoError(t, err)
	assert.Same(t, flag, a.Dimension)

	_, err = c.Attribute("date.nope")
	require.Error(t, err)
}

func TestParseTableColumn(t *testing.T) {
	tc, err := ParseTableColumn("dim_date.id")
	require.NoError(t, err)
	assert.Equal(t, TableColumn{Table: "dim_date", Column: "id"}, tc)

	tc, err = ParseTableColumn("mart.dim_date.id")
	require.NoError(t, err)
	assert.Equal(t, TableColumn{Schema: "mart", Table: "dim_date", Column: "id"}, tc)
	assert.Equal(t, "mart.dim_date.id", tc.String())

	for _, bad := range []string{"", "table", "a..b", "a.b.c.d"} {
		_, err := ParseTableColumn(bad)
		assert.Error(t, err, bad)
	}
}

func TestJoinSpecIdentity(t *testing.T) {
	j := JoinSpec{
		Master: TableColumn{Table: "sales", Column: "date_id"},
		Detail: TableColumn{Table: "dim_date", Column: "id"},
	}
	assert.Equal(t, "dim_date", j.DetailIdentity())

	j.Alias = "ship_date"
	assert.Equal(t, "ship_date", j.DetailIdentity())
	assert.Equal(t, "sales.date_id -> dim_date.id AS ship_date", j.String())
}

func TestModelFactTable(t *testing.T) {
	m := &Model{Options: Options{FactPrefix: "ft_"}}
	assert.Equal(t, "ft_cube", m.FactTable(&Cube{Name: "cube"}))
	assert.Equal(t, "sales", m.FactTable(&Cube{Name: "cube", Fact: "sales"}))

	m.Cubes = []*Cube{{Name: "cube"}}
	_, err := m.Cube("cube")
	require.NoError(t, err)
	_, err = m.Cube("other")
	assert.True(t, IsModelError(err))
}

func TestAttributeLocales(t *testing.T) {
	a := NewAttribute("category_name", "en", "sk")
	assert.True(t, a.IsLocalized())
	assert.Equal(t, "en", a.DefaultLocale())
	assert.True(t, a.HasLocale("sk"))
	assert.False(t, a.HasLocale("de"))
	assert.Equal(t, "category_name", a.Ref())

	plain := NewAttribute("amount")
	assert.False(t, plain.IsLocalized())
	assert.Equal(t, "", plain.DefaultLocale())
}
