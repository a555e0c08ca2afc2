package mapper

import (
	"fmt"

	"golang.org/x/text/language"

	"github.com/roach88/starcube/internal/model"
)

// Reference is a physical column. Table is the table identity a query
// uses: a join alias or the table name.
type Reference struct {
	Schema string
	Table  string
	Column string
	Locale string
}

func (r Reference) String() string {
	s := r.Table + "." + r.Column
	if r.Schema != "" {
		s = r.Schema + "." + s
	}
	return s
}

// Option configures a Mapper.
type Option func(*Mapper)

// WithLocale sets the locale used when Physical is called without one.
func WithLocale(locale string) Option {
	return func(m *Mapper) {
		m.locale = locale
	}
}

// Mapper maps logical attributes of one cube to physical columns. It is
// read-only after New and safe for concurrent use.
type Mapper struct {
	cube      *model.Cube
	options   model.Options
	factTable string
	locale    string

	mappings map[string]model.TableColumn
	joins    map[string]model.JoinSpec // detail identity -> join
	ordered  []model.JoinSpec          // every join, masters first
	matchers map[*model.Attribute]localeMatcher
}

type localeMatcher struct {
	matcher language.Matcher
	locales []string // parallel to the matcher's supported tags
}

// New builds a mapper for a cube of the model. The cube's mappings and
// joins are validated here: malformed mappings, duplicate join identities
// and join cycles are errors.
func New(m *model.Model, cube *model.Cube, opts ...Option) (*Mapper, error) {
	mp := &Mapper{
		cube:      cube,
		options:   m.Options,
		factTable: m.FactTable(cube),
		locale:    m.Options.Locale,
		mappings:  make(map[string]model.TableColumn, len(cube.Mappings)),
		matchers:  make(map[*model.Attribute]localeMatcher),
	}
	for _, opt := range opts {
		opt(mp)
	}

	for ref, target := range cube.Mappings {
		tc, err := model.ParseTableColumn(target)
		if err != nil {
			return nil, fmt.Errorf("mapping for %q: %w", ref, err)
		}
		mp.mappings[ref] = tc
	}

	if err := mp.collectJoins(cube.Joins); err != nil {
		return nil, err
	}

	for _, d := range cube.Dimensions {
		for _, a := range d.Attributes() {
			if a.IsLocalized() {
				mp.matchers[a] = newLocaleMatcher(a.Locales)
			}
		}
	}

	return mp, nil
}

func newLocaleMatcher(locales []string) localeMatcher {
	lm := localeMatcher{}
	var tags []language.Tag
	for _, l := range locales {
		tag, err := language.Parse(l)
		if err != nil {
			continue
		}
		tags = append(tags, tag)
		lm.locales = append(lm.locales, l)
	}
	if len(tags) > 0 {
		lm.matcher = language.NewMatcher(tags)
	}
	return lm
}

// Cube returns the mapped cube.
func (m *Mapper) Cube() *model.Cube {
	return m.cube
}

// FactTable returns the physical fact table name.
func (m *Mapper) FactTable() string {
	return m.factTable
}

// Schema returns the default database schema, or "".
func (m *Mapper) Schema() string {
	return m.options.Schema
}

// Locale returns the mapper's default locale, or "".
func (m *Mapper) Locale() string {
	return m.locale
}

// SimplifiesDimensionReferences reports whether flat dimensions are
// addressed by their bare name.
func (m *Mapper) SimplifiesDimensionReferences() bool {
	return m.options.SimplifyDimensionReferences
}

// isSimplified reports whether a is the single attribute of a flat
// dimension addressed by the bare dimension name.
func (m *Mapper) isSimplified(a *model.Attribute) bool {
	d := a.Dimension
	return m.options.SimplifyDimensionReferences && d != nil && d.IsFlat() && !d.HasDetails()
}

// Logical returns the reference an attribute is known by in results:
// "amount" for fact attributes, "date.year" for dimension attributes and
// "flag" for a simplified flat dimension.
func (m *Mapper) Logical(a *model.Attribute) string {
	if m.isSimplified(a) {
		return a.Dimension.Name
	}
	return a.Ref()
}

// ResolveLocale picks the locale variant of a used for the requested
// locale. Empty or unmatched locales fall back to the mapper's locale and
// then to the attribute's default locale. Non-localized attributes resolve
// to "".
func (m *Mapper) ResolveLocale(a *model.Attribute, locale string) string {
	if !a.IsLocalized() {
		return ""
	}
	for _, candidate := range []string{locale, m.locale} {
		if candidate == "" {
			continue
		}
		if a.HasLocale(candidate) {
			return candidate
		}
		if l, ok := m.matchLocale(a, candidate); ok {
			return l
		}
	}
	return a.DefaultLocale()
}

func (m *Mapper) matchLocale(a *model.Attribute, locale string) (string, bool) {
	lm, ok := m.matchers[a]
	if !ok || lm.matcher == nil {
		return "", false
	}
	tag, err := language.Parse(locale)
	if err != nil {
		return "", false
	}
	_, idx, conf := lm.matcher.Match(tag)
	if conf == language.No {
		return "", false
	}
	return lm.locales[idx], true
}

// Physical returns the physical column of an attribute in a locale.
func (m *Mapper) Physical(a *model.Attribute, locale string) Reference {
	locale = m.ResolveLocale(a, locale)
	logical := m.Logical(a)

	if locale != "" {
		if tc, ok := m.mappings[logical+"."+locale]; ok {
			return m.reference(tc, locale, false)
		}
	}
	if tc, ok := m.mappings[logical]; ok {
		return m.reference(tc, locale, true)
	}
	if logical != a.Ref() {
		if tc, ok := m.mappings[a.Ref()]; ok {
			return m.reference(tc, locale, true)
		}
	}

	ref := Reference{Schema: m.options.Schema, Column: a.Name, Locale: locale}
	switch {
	case a.Dimension == nil:
		ref.Table = m.factTable
	case m.isSimplified(a):
		ref.Table = m.factTable
		ref.Column = a.Dimension.Name
	default:
		ref.Table = m.options.DimensionPrefix + a.Dimension.Name
	}
	if locale != "" {
		ref.Column += "_" + locale
	}
	return ref
}

func (m *Mapper) reference(tc model.TableColumn, locale string, suffix bool) Reference {
	ref := Reference{Schema: tc.Schema, Table: tc.Table, Column: tc.Column, Locale: locale}
	if ref.Schema == "" {
		ref.Schema = m.options.Schema
	}
	if suffix && locale != "" {
		ref.Column += "_" + locale
	}
	return ref
}

// TablesForAttributes returns the distinct table identities the attributes
// live in, in first-seen order.
func (m *Mapper) TablesForAttributes(attrs []*model.Attribute, locale string) []string {
	seen := make(map[string]bool)
	var tables []string
	for _, a := range attrs {
		t := m.Physical(a, locale).Table
		if !seen[t] {
			seen[t] = true
			tables = append(tables, t)
		}
	}
	return tables
}
