package model

// Hierarchy is a named ordered sequence of levels within a dimension.
type Hierarchy struct {
	Name      string
	Levels    []*Level
	Dimension *Dimension
}

// Depth returns the number of levels.
func (h *Hierarchy) Depth() int {
	return len(h.Levels)
}

// LevelIndex returns the position of the named level, or -1.
func (h *Hierarchy) LevelIndex(name string) int {
	for i, l := range h.Levels {
		if l.Name == name {
			return i
		}
	}
	return -1
}

// LevelsForDepth returns the first depth levels. Depth is clamped to the
// hierarchy's size.
func (h *Hierarchy) LevelsForDepth(depth int) []*Level {
	depth = max(0, min(depth, len(h.Levels)))
	return h.Levels[:depth:depth]
}

// KeyRefs returns the fully qualified key references of the given levels.
func KeyRefs(levels []*Level) []string {
	keys := make([]string, len(levels))
	for i, l := range levels {
		keys[i] = l.Key.Ref()
	}
	return keys
}

func (h *Hierarchy) String() string {
	return h.Name
}
