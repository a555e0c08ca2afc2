package model

import "slices"

// Attribute is a named logical column. Fact attributes (measures, details,
// the fact key) have a nil Dimension.
type Attribute struct {
	Name      string
	Locales   []string // locale variants; first one is the default
	Dimension *Dimension
}

// NewAttribute creates an attribute with optional locale variants.
func NewAttribute(name string, locales ...string) *Attribute {
	return &Attribute{Name: name, Locales: locales}
}

// Ref returns the fully qualified logical reference: "dimension.attribute"
// for dimension attributes, the bare name for fact attributes.
func (a *Attribute) Ref() string {
	if a.Dimension == nil {
		return a.Name
	}
	return a.Dimension.Name + "." + a.Name
}

// IsLocalized reports whether the attribute has locale variants.
func (a *Attribute) IsLocalized() bool {
	return len(a.Locales) > 0
}

// DefaultLocale returns the first configured locale, or "".
func (a *Attribute) DefaultLocale() string {
	if len(a.Locales) == 0 {
		return ""
	}
	return a.Locales[0]
}

// HasLocale reports whether locale is one of the attribute's variants.
func (a *Attribute) HasLocale(locale string) bool {
	return slices.Contains(a.Locales, locale)
}
