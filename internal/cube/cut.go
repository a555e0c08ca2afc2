package cube

import (
	"github.com/roach88/starcube/internal/ir"
	"github.com/roach88/starcube/internal/model"
)

// Cut restricts one dimension through one of its hierarchies.
//
// This is a sealed interface - only types in this package implement it.
//
// Cut types:
//   - PointCut: members under a path from the hierarchy root
//   - RangeCut: members between two paths, lexicographically
//   - SetCut: members under any of several paths
type Cut interface {
	cutNode()

	// Dimension returns the restricted dimension's name.
	Dimension() string

	// Hierarchy returns the hierarchy name; "" means the default.
	Hierarchy() string

	String() string
}

// PointCut selects members under Path, e.g. [2012, 3] is March 2012.
// An empty path selects everything.
type PointCut struct {
	Dim  string
	Hier string
	Path []ir.IRValue
}

func (PointCut) cutNode() {}

func (c PointCut) Dimension() string { return c.Dim }
func (c PointCut) Hierarchy() string { return c.Hier }
func (c PointCut) String() string    { return FormatCut(c) }

// RangeCut selects members from From to To inclusive, comparing paths
// level by level. A nil bound is open.
type RangeCut struct {
	Dim  string
	Hier string
	From []ir.IRValue
	To   []ir.IRValue
}

func (RangeCut) cutNode() {}

func (c RangeCut) Dimension() string { return c.Dim }
func (c RangeCut) Hierarchy() string { return c.Hier }
func (c RangeCut) String() string    { return FormatCut(c) }

// SetCut selects the union of several point paths.
type SetCut struct {
	Dim   string
	Hier  string
	Paths [][]ir.IRValue
}

func (SetCut) cutNode() {}

func (c SetCut) Dimension() string { return c.Dim }
func (c SetCut) Hierarchy() string { return c.Hier }
func (c SetCut) String() string    { return FormatCut(c) }

// Point builds a PointCut on the default hierarchy from Go values.
// It panics on values that are not valid path elements (floats).
func Point(dimension string, path ...any) PointCut {
	return PointCut{Dim: dimension, Path: ir.MustPath(path...)}
}

// ResolveHierarchy finds the dimension and hierarchy a cut restricts.
func ResolveHierarchy(c *model.Cube, cut Cut) (*model.Dimension, *model.Hierarchy, error) {
	dim, err := c.Dimension(cut.Dimension())
	if err != nil {
		return nil, nil, err
	}
	h := dim.Hierarchy(cut.Hierarchy())
	if h == nil {
		return nil, nil, &HierarchyError{Dimension: dim.Name, Hierarchy: cut.Hierarchy(), Message: "unknown hierarchy"}
	}
	return dim, h, nil
}

// paths returns every path a cut carries, for depth checks.
func paths(cut Cut) [][]ir.IRValue {
	switch c := cut.(type) {
	case PointCut:
		return [][]ir.IRValue{c.Path}
	case RangeCut:
		return [][]ir.IRValue{c.From, c.To}
	case SetCut:
		return c.Paths
	default:
		return nil
	}
}

// validateCut checks the cut against the cube and returns its resolved
// hierarchy.
func validateCut(c *model.Cube, cut Cut) (*model.Hierarchy, error) {
	dim, h, err := ResolveHierarchy(c, cut)
	if err != nil {
		return nil, err
	}
	for _, p := range paths(cut) {
		if len(p) > h.Depth() {
			return nil, &HierarchyError{Dimension: dim.Name, Hierarchy: h.Name,
				Message: "path " + formatPath(p) + " is deeper than the hierarchy"}
		}
	}
	return h, nil
}

// normalize dereferences pointer cuts so type switches see values only.
func normalize(cut Cut) Cut {
	switch c := cut.(type) {
	case *PointCut:
		return *c
	case *RangeCut:
		return *c
	case *SetCut:
		return *c
	default:
		return cut
	}
}
