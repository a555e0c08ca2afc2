package cube

import (
	"fmt"

	"github.com/roach88/starcube/internal/model"
)

// DrilldownRequest asks to group by a dimension. Hierarchy and Level are
// optional: an empty hierarchy follows the cell's cut (else the default),
// an empty level means "one level below the cut".
type DrilldownRequest struct {
	Dimension string
	Hierarchy string
	Level     string
}

func (r DrilldownRequest) String() string {
	s := r.Dimension
	if r.Hierarchy != "" {
		s += "@" + r.Hierarchy
	}
	if r.Level != "" {
		s += ":" + r.Level
	}
	return s
}

// DrilldownItem is a resolved drilldown: the levels from the hierarchy root
// to the target level and the key reference of each. Keys are fully
// qualified ("flag.flag"); star.Browser renames them to the row labels of
// its mapper ("flag" for a simplified flat dimension).
type DrilldownItem struct {
	Dimension *model.Dimension
	Hierarchy *model.Hierarchy
	Levels    []*model.Level
	Keys      []string
}

// Last returns the deepest drilled level.
func (d DrilldownItem) Last() *model.Level {
	return d.Levels[len(d.Levels)-1]
}

// LevelsFromDrilldown resolves drilldown requests against a cell, one item
// per request in request order.
//
// The hierarchy is the request's, else that of the cell's cut on the
// dimension, else the default. A request naming a hierarchy other than the
// one the cell cuts through is a *HierarchyError, as is an implicit request
// on a dimension cut through two different hierarchies.
//
// An explicit level drills root..level. An implicit level drills one level
// below the depth of a point cut in the hierarchy (range and set cuts
// anchor nothing). A point cut already at the deepest level drills to the
// level above the deepest.
func LevelsFromDrilldown(cell *Cell, requests []DrilldownRequest) ([]DrilldownItem, error) {
	items := make([]DrilldownItem, 0, len(requests))
	seen := make(map[string]bool, len(requests))
	for _, req := range requests {
		if seen[req.Dimension] {
			return nil, fmt.Errorf("dimension '%s' drilled down more than once", req.Dimension)
		}
		seen[req.Dimension] = true
		item, err := resolveDrilldown(cell, req)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

func resolveDrilldown(cell *Cell, req DrilldownRequest) (DrilldownItem, error) {
	dim, err := cell.cube.Dimension(req.Dimension)
	if err != nil {
		return DrilldownItem{}, err
	}

	hier, err := drilldownHierarchy(cell, dim, req.Hierarchy)
	if err != nil {
		return DrilldownItem{}, err
	}

	var levels []*model.Level
	if req.Level != "" {
		idx := hier.LevelIndex(req.Level)
		if idx < 0 {
			return DrilldownItem{}, &HierarchyError{Dimension: dim.Name, Hierarchy: hier.Name,
				Message: "level '" + req.Level + "' is not in the hierarchy"}
		}
		levels = hier.LevelsForDepth(idx + 1)
	} else {
		depth := cutDepth(cell, dim, hier)
		if depth >= hier.Depth() {
			depth = max(hier.Depth()-2, 0)
		}
		levels = hier.LevelsForDepth(depth + 1)
	}

	return DrilldownItem{
		Dimension: dim,
		Hierarchy: hier,
		Levels:    levels,
		Keys:      model.KeyRefs(levels),
	}, nil
}

// drilldownHierarchy picks the hierarchy for a drilldown on dim and checks
// it against the cell's cuts on the dimension.
func drilldownHierarchy(cell *Cell, dim *model.Dimension, requested string) (*model.Hierarchy, error) {
	var cutHier *model.Hierarchy
	for _, cut := range cell.CutsFor(dim.Name) {
		h := dim.Hierarchy(cut.Hierarchy())
		if cutHier != nil && h != cutHier && requested == "" {
			return nil, &HierarchyError{Dimension: dim.Name,
				Message: "cell cuts through hierarchies '" + cutHier.Name + "' and '" + h.Name + "', drilldown is ambiguous"}
		}
		if requested != "" && h.Name != requested {
			return nil, &HierarchyError{Dimension: dim.Name, Hierarchy: requested,
				Message: "drilldown hierarchy differs from the cut hierarchy '" + h.Name + "'"}
		}
		cutHier = h
	}

	if requested != "" {
		h := dim.Hierarchy(requested)
		if h == nil {
			return nil, &HierarchyError{Dimension: dim.Name, Hierarchy: requested, Message: "unknown hierarchy"}
		}
		return h, nil
	}
	if cutHier != nil {
		return cutHier, nil
	}
	return dim.DefaultHierarchy(), nil
}

// cutDepth returns the path length of the cell's point cut on dim through
// hier, or 0.
func cutDepth(cell *Cell, dim *model.Dimension, hier *model.Hierarchy) int {
	for _, cut := range cell.CutsFor(dim.Name) {
		pc, ok := cut.(PointCut)
		if ok && dim.Hierarchy(pc.Hier) == hier {
			return len(pc.Path)
		}
	}
	return 0
}
