// Package cube holds the per-query view of a cube: cuts restricting
// dimensions, the cell they form, and the drilldown resolver deciding which
// hierarchy levels a query groups by.
//
// Cut is a sealed interface (PointCut, RangeCut, SetCut). Cells are
// immutable; Slice and Drop return new cells.
package cube
