package cube

import (
	"errors"
	"fmt"
)

// HierarchyError reports an incompatible, ambiguous or unknown hierarchy,
// an unknown level, or a path deeper than its hierarchy.
type HierarchyError struct {
	Dimension string
	Hierarchy string
	Message   string
}

func (e *HierarchyError) Error() string {
	if e.Hierarchy == "" {
		return fmt.Sprintf("dimension '%s': %s", e.Dimension, e.Message)
	}
	return fmt.Sprintf("dimension '%s' hierarchy '%s': %s", e.Dimension, e.Hierarchy, e.Message)
}

// IsHierarchyError checks if an error is (or wraps) a HierarchyError.
func IsHierarchyError(err error) bool {
	var he *HierarchyError
	return errors.As(err, &he)
}

// ErrDuplicateCut is returned when a cell would hold two cuts on the same
// dimension and hierarchy.
var ErrDuplicateCut = errors.New("duplicate cut")

// ParseError reports malformed cut or drilldown text.
type ParseError struct {
	Input   string
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %q: %s", e.Input, e.Message)
}
