package model

import (
	"fmt"
	"strings"
)

// DefaultFactKey is the fact table's primary key column unless overridden.
const DefaultFactKey = "id"

// ValidAggregations are the aggregation functions a measure may declare.
var ValidAggregations = map[string]bool{
	"sum":            true,
	"min":            true,
	"max":            true,
	"avg":            true,
	"count":          true,
	"count_distinct": true,
}

// Measure is a numeric fact attribute with its aggregation functions.
type Measure struct {
	*Attribute
	Aggregations []string
}

// NewMeasure creates a measure; no aggregations means "sum".
func NewMeasure(name string, aggregations ...string) *Measure {
	if len(aggregations) == 0 {
		aggregations = []string{"sum"}
	}
	return &Measure{Attribute: NewAttribute(name), Aggregations: aggregations}
}

// TableColumn addresses a physical column. Schema may be empty.
type TableColumn struct {
	Schema string
	Table  string
	Column string
}

// ParseTableColumn parses "table.column" or "schema.table.column".
func ParseTableColumn(s string) (TableColumn, error) {
	parts := strings.Split(s, ".")
	for _, p := range parts {
		if p == "" {
			return TableColumn{}, fmt.Errorf("invalid column reference %q", s)
		}
	}
	switch len(parts) {
	case 2:
		return TableColumn{Table: parts[0], Column: parts[1]}, nil
	case 3:
		return TableColumn{Schema: parts[0], Table: parts[1], Column: parts[2]}, nil
	default:
		return TableColumn{}, fmt.Errorf("invalid column reference %q: expected table.column or schema.table.column", s)
	}
}

func (tc TableColumn) String() string {
	if tc.Schema != "" {
		return tc.Schema + "." + tc.Table + "." + tc.Column
	}
	return tc.Table + "." + tc.Column
}

// JoinSpec declares master.column = detail.column. Alias names the joined
// detail when the same table is joined more than once.
type JoinSpec struct {
	Master TableColumn
	Detail TableColumn
	Alias  string
}

// DetailIdentity is the name the joined detail table is referenced by.
func (j JoinSpec) DetailIdentity() string {
	if j.Alias != "" {
		return j.Alias
	}
	return j.Detail.Table
}

func (j JoinSpec) String() string {
	s := j.Master.String() + " -> " + j.Detail.String()
	if j.Alias != "" {
		s += " AS " + j.Alias
	}
	return s
}

// Cube is an analytical fact table with its dimensions.
type Cube struct {
	Name       string
	Fact       string // physical fact table; empty means fact_prefix + Name
	Key        string // fact key column; empty means DefaultFactKey
	Measures   []*Measure
	Details    []*Attribute
	Dimensions []*Dimension
	Joins      []JoinSpec
	Mappings   map[string]string // logical reference -> "table.column"
}

// Dimension returns the named dimension of the cube.
func (c *Cube) Dimension(name string) (*Dimension, error) {
	for _, d := range c.Dimensions {
		if d.Name == name {
			return d, nil
		}
	}
	return nil, notFound("dimension", name, "cube '"+c.Name+"'")
}

// Measure returns the named measure of the cube.
func (c *Cube) Measure(name string) (*Measure, error) {
	for _, m := range c.Measures {
		if m.Name == name {
			return m, nil
		}
	}
	return nil, notFound("measure", name, "cube '"+c.Name+"'")
}

// MeasuresByName resolves measure names; no names means all measures.
func (c *Cube) MeasuresByName(names []string) ([]*Measure, error) {
	if len(names) == 0 {
		return c.Measures, nil
	}
	measures := make([]*Measure, 0, len(names))
	for _, name := range names {
		m, err := c.Measure(name)
		if err != nil {
			return nil, err
		}
		measures = append(measures, m)
	}
	return measures, nil
}

// KeyAttribute returns the fact key as a fact attribute.
func (c *Cube) KeyAttribute() *Attribute {
	key := c.Key
	if key == "" {
		key = DefaultFactKey
	}
	return NewAttribute(key)
}

// FactAttributes returns key, measures and details in that order.
func (c *Cube) FactAttributes() []*Attribute {
	attrs := []*Attribute{c.KeyAttribute()}
	for _, m := range c.Measures {
		attrs = append(attrs, m.Attribute)
	}
	return append(attrs, c.Details...)
}

// Attribute resolves a logical reference ("dim.attr", a flat dimension name,
// or a fact attribute name) to an attribute of the cube.
func (c *Cube) Attribute(ref string) (*Attribute, error) {
	if dimName, attrName, ok := strings.Cut(ref, "."); ok {
		d, err := c.Dimension(dimName)
		if err != nil {
			return nil, err
		}
		if a := d.Attribute(attrName); a != nil {
			return a, nil
		}
		return nil, notFound("attribute", ref, "dimension '"+dimName+"'")
	}
	for _, a := range c.FactAttributes() {
		if a.Name == ref {
			return a, nil
		}
	}
	if d, err := c.Dimension(ref); err == nil && d.IsFlat() && len(d.Levels[0].Attributes) == 1 {
		return d.Levels[0].Key, nil
	}
	return nil, notFound("attribute", ref, "cube '"+c.Name+"'")
}

func (c *Cube) String() string {
	return c.Name
}

// Options are model-wide naming conventions.
type Options struct {
	DimensionPrefix             string
	FactPrefix                  string
	Schema                      string
	SimplifyDimensionReferences bool
	Locale                      string
}

// DefaultOptions returns options with dimension reference simplification on.
func DefaultOptions() Options {
	return Options{SimplifyDimensionReferences: true}
}

// Model is a set of cubes sharing dimensions and naming options.
type Model struct {
	Cubes      []*Cube
	Dimensions []*Dimension
	Options    Options
}

// Cube returns the named cube.
func (m *Model) Cube(name string) (*Cube, error) {
	for _, c := range m.Cubes {
		if c.Name == name {
			return c, nil
		}
	}
	return nil, notFound("cube", name, "model")
}

// Dimension returns the named shared dimension.
func (m *Model) Dimension(name string) (*Dimension, error) {
	for _, d := range m.Dimensions {
		if d.Name == name {
			return d, nil
		}
	}
	return nil, notFound("dimension", name, "model")
}

// FactTable returns the physical fact table name of a cube.
func (m *Model) FactTable(c *Cube) string {
	if c.Fact != "" {
		return c.Fact
	}
	return m.Options.FactPrefix + c.Name
}
