package model

import "fmt"

// DefaultHierarchyName is used when a dimension declares no hierarchies.
const DefaultHierarchyName = "default"

// HierarchySpec names a hierarchy and its levels by name. It is the input
// form of Hierarchy before level names are resolved to shared *Level values.
type HierarchySpec struct {
	Name   string
	Levels []string
}

// Dimension is a named analytical axis with one or more hierarchies.
type Dimension struct {
	Name        string
	Levels      []*Level // declaration order
	Hierarchies []*Hierarchy

	defaultHierarchy *Hierarchy
}

// NewDimension builds a dimension, wiring back-pointers from levels and
// attributes. A dimension without levels becomes flat: one level and one
// attribute, both named after the dimension. A dimension without hierarchy
// specs gets a "default" hierarchy over all levels in declaration order.
// defaultHierarchy selects the default; empty means the first hierarchy.
func NewDimension(name string, levels []*Level, specs []HierarchySpec, defaultHierarchy string) (*Dimension, error) {
	if name == "" {
		return nil, &ModelError{Object: "dimension", Message: "name is required"}
	}
	if len(levels) == 0 {
		levels = []*Level{MustLevel(name, nil, "", "")}
	}

	d := &Dimension{Name: name, Levels: levels}
	seen := make(map[string]bool, len(levels))
	for _, l := range levels {
		if seen[l.Name] {
			return nil, &ModelError{Object: "dimension", Name: name,
				Message: fmt.Sprintf("duplicate level %q", l.Name)}
		}
		seen[l.Name] = true
		l.Dimension = d
		for _, a := range l.Attributes {
			a.Dimension = d
		}
	}

	if len(specs) == 0 {
		specs = []HierarchySpec{{Name: DefaultHierarchyName, Levels: levelNames(levels)}}
	}
	for _, spec := range specs {
		h, err := d.buildHierarchy(spec)
		if err != nil {
			return nil, err
		}
		d.Hierarchies = append(d.Hierarchies, h)
	}

	if defaultHierarchy == "" {
		d.defaultHierarchy = d.Hierarchies[0]
	} else if d.defaultHierarchy = d.Hierarchy(defaultHierarchy); d.defaultHierarchy == nil {
		return nil, &ModelError{Object: "dimension", Name: name,
			Message: fmt.Sprintf("default hierarchy %q is not defined", defaultHierarchy)}
	}

	return d, nil
}

// MustDimension is like NewDimension but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustDimension(name string, levels []*Level, specs []HierarchySpec, defaultHierarchy string) *Dimension {
	d, err := NewDimension(name, levels, specs, defaultHierarchy)
	if err != nil {
		panic(err)
	}
	return d
}

func (d *Dimension) buildHierarchy(spec HierarchySpec) (*Hierarchy, error) {
	if spec.Name == "" {
		return nil, &ModelError{Object: "dimension", Name: d.Name, Message: "hierarchy name is required"}
	}
	if d.Hierarchy(spec.Name) != nil {
		return nil, &ModelError{Object: "dimension", Name: d.Name,
			Message: fmt.Sprintf("duplicate hierarchy %q", spec.Name)}
	}
	if len(spec.Levels) == 0 {
		return nil, &ModelError{Object: "hierarchy", Name: d.Name + "@" + spec.Name, Message: "hierarchy has no levels"}
	}

	h := &Hierarchy{Name: spec.Name, Dimension: d}
	for _, name := range spec.Levels {
		l := d.Level(name)
		if l == nil {
			return nil, &ModelError{Object: "hierarchy", Name: d.Name + "@" + spec.Name,
				Message: fmt.Sprintf("unknown level %q", name)}
		}
		if h.LevelIndex(name) >= 0 {
			return nil, &ModelError{Object: "hierarchy", Name: d.Name + "@" + spec.Name,
				Message: fmt.Sprintf("level %q listed twice", name)}
		}
		h.Levels = append(h.Levels, l)
	}
	return h, nil
}

// Hierarchy returns the named hierarchy, or nil. An empty name returns the
// default hierarchy.
func (d *Dimension) Hierarchy(name string) *Hierarchy {
	if name == "" {
		return d.defaultHierarchy
	}
	for _, h := range d.Hierarchies {
		if h.Name == name {
			return h
		}
	}
	return nil
}

// DefaultHierarchy returns the dimension's default hierarchy.
func (d *Dimension) DefaultHierarchy() *Hierarchy {
	return d.defaultHierarchy
}

// Level returns the named level, or nil.
func (d *Dimension) Level(name string) *Level {
	for _, l := range d.Levels {
		if l.Name == name {
			return l
		}
	}
	return nil
}

// IsFlat reports whether the dimension has a single level.
func (d *Dimension) IsFlat() bool {
	return len(d.Levels) == 1
}

// HasDetails reports whether any level carries more than its key.
func (d *Dimension) HasDetails() bool {
	for _, l := range d.Levels {
		if l.HasDetails() {
			return true
		}
	}
	return false
}

// Attributes returns all attributes of all levels in declaration order.
func (d *Dimension) Attributes() []*Attribute {
	var attrs []*Attribute
	for _, l := range d.Levels {
		attrs = append(attrs, l.Attributes...)
	}
	return attrs
}

// Attribute returns the named attribute from any level, or nil.
func (d *Dimension) Attribute(name string) *Attribute {
	for _, l := range d.Levels {
		if a := l.Attribute(name); a != nil {
			return a
		}
	}
	return nil
}

func (d *Dimension) String() string {
	return d.Name
}

func levelNames(levels []*Level) []string {
	names := make([]string, len(levels))
	for i, l := range levels {
		names[i] = l.Name
	}
	return names
}
