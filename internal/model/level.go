package model

import "fmt"

// Level is one step of a hierarchy. Key identifies a member at this level
// (it may be a surrogate id distinct from the displayed value); Label is the
// attribute shown to users.
type Level struct {
	Name       string
	Key        *Attribute
	Label      *Attribute
	Attributes []*Attribute
	Dimension  *Dimension
}

// NewLevel creates a level from its attributes. key and label name
// attributes of the level; empty key defaults to the first attribute, empty
// label defaults to the second attribute when there is more than one and to
// the key otherwise. A level without attributes gets one attribute named
// after the level.
func NewLevel(name string, attrs []*Attribute, key, label string) (*Level, error) {
	if len(attrs) == 0 {
		attrs = []*Attribute{NewAttribute(name)}
	}

	l := &Level{Name: name, Attributes: attrs}

	if key == "" {
		l.Key = attrs[0]
	} else if l.Key = l.Attribute(key); l.Key == nil {
		return nil, &ModelError{Object: "level", Name: name,
			Message: fmt.Sprintf("key attribute %q is not an attribute of the level", key)}
	}

	switch {
	case label != "":
		if l.Label = l.Attribute(label); l.Label == nil {
			return nil, &ModelError{Object: "level", Name: name,
				Message: fmt.Sprintf("label attribute %q is not an attribute of the level", label)}
		}
	case len(attrs) > 1:
		l.Label = attrs[1]
	default:
		l.Label = l.Key
	}

	return l, nil
}

// MustLevel is like NewLevel but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustLevel(name string, attrs []*Attribute, key, label string) *Level {
	l, err := NewLevel(name, attrs, key, label)
	if err != nil {
		panic(err)
	}
	return l
}

// Attribute returns the level attribute with the given name, or nil.
func (l *Level) Attribute(name string) *Attribute {
	for _, a := range l.Attributes {
		if a.Name == name {
			return a
		}
	}
	return nil
}

// HasDetails reports whether the level carries attributes beyond its key.
func (l *Level) HasDetails() bool {
	return len(l.Attributes) > 1
}

func (l *Level) String() string {
	return l.Name
}
