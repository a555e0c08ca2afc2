package cube

import (
	"fmt"
	"slices"

	"github.com/roach88/starcube/internal/model"
)

// Cell is a cube restricted by cuts. Cells are immutable.
type Cell struct {
	cube *model.Cube
	cuts []Cut
}

// NewCell validates the cuts against the cube. At most one cut per
// (dimension, hierarchy) is allowed; an empty hierarchy name is the
// dimension's default hierarchy.
func NewCell(c *model.Cube, cuts ...Cut) (*Cell, error) {
	cell := &Cell{cube: c, cuts: make([]Cut, 0, len(cuts))}
	seen := make(map[[2]string]bool, len(cuts))
	for _, cut := range cuts {
		if cut == nil {
			return nil, fmt.Errorf("nil cut")
		}
		cut = normalize(cut)
		h, err := validateCut(c, cut)
		if err != nil {
			return nil, err
		}
		key := [2]string{cut.Dimension(), h.Name}
		if seen[key] {
			return nil, fmt.Errorf("%w on dimension '%s' hierarchy '%s'", ErrDuplicateCut, key[0], key[1])
		}
		seen[key] = true
		cell.cuts = append(cell.cuts, cut)
	}
	return cell, nil
}

// MustCell is like NewCell but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustCell(c *model.Cube, cuts ...Cut) *Cell {
	cell, err := NewCell(c, cuts...)
	if err != nil {
		panic(err)
	}
	return cell
}

// Cube returns the cube the cell belongs to.
func (c *Cell) Cube() *model.Cube {
	return c.cube
}

// Cuts returns the cell's cuts in order.
func (c *Cell) Cuts() []Cut {
	return slices.Clone(c.cuts)
}

// IsEmpty reports whether the cell is the whole cube.
func (c *Cell) IsEmpty() bool {
	return len(c.cuts) == 0
}

// CutsFor returns the cuts on a dimension.
func (c *Cell) CutsFor(dimension string) []Cut {
	var cuts []Cut
	for _, cut := range c.cuts {
		if cut.Dimension() == dimension {
			cuts = append(cuts, cut)
		}
	}
	return cuts
}

// Slice returns a new cell with cut added, replacing any cut on the same
// dimension and hierarchy.
func (c *Cell) Slice(cut Cut) (*Cell, error) {
	if cut == nil {
		return nil, fmt.Errorf("nil cut")
	}
	cut = normalize(cut)
	h, err := validateCut(c.cube, cut)
	if err != nil {
		return nil, err
	}

	cuts := make([]Cut, 0, len(c.cuts)+1)
	replaced := false
	for _, existing := range c.cuts {
		_, eh, _ := ResolveHierarchy(c.cube, existing)
		if existing.Dimension() == cut.Dimension() && eh == h {
			cuts = append(cuts, cut)
			replaced = true
			continue
		}
		cuts = append(cuts, existing)
	}
	if !replaced {
		cuts = append(cuts, cut)
	}
	return &Cell{cube: c.cube, cuts: cuts}, nil
}

// Drop returns a new cell without any cut on dimension.
func (c *Cell) Drop(dimension string) *Cell {
	cuts := make([]Cut, 0, len(c.cuts))
	for _, cut := range c.cuts {
		if cut.Dimension() != dimension {
			cuts = append(cuts, cut)
		}
	}
	return &Cell{cube: c.cube, cuts: cuts}
}

// String formats the cuts in the textual cut syntax.
func (c *Cell) String() string {
	return FormatCuts(c.cuts)
}
