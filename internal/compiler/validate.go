package compiler

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/text/language"

	"github.com/roach88/starcube/internal/mapper"
	"github.com/roach88/starcube/internal/model"
)

// Validation error codes (E100-E199)
const (
	ErrInvalidName        = "E101" // empty name or name containing separators
	ErrDuplicateName      = "E102" // duplicate cube/dimension/measure/detail name
	ErrInvalidAggregation = "E103" // unknown aggregation function
	ErrInvalidLocale      = "E104" // locale is not a BCP 47 tag
	ErrInvalidMapping     = "E105" // mapping for an unknown attribute
	ErrInvalidJoin        = "E106" // duplicate join, join cycle, join to the fact table or from an unjoined table
	ErrUnreachableTable   = "E107" // attribute table not reachable through joins
)

// ValidationError represents a model validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// identPattern matches names usable in logical references.
var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidateModel checks a compiled model. Returns all errors found (does not
// fail-fast).
func ValidateModel(m *model.Model) []ValidationError {
	var errs []ValidationError

	if m.Options.Locale != "" {
		errs = append(errs, validateLocale("options.locale", m.Options.Locale)...)
	}

	dimNames := make(map[string]bool)
	for _, d := range m.Dimensions {
		field := "dimensions." + d.Name
		errs = append(errs, validateName(field, d.Name)...)
		if dimNames[d.Name] {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("duplicate dimension name: %q", d.Name),
				Code:    ErrDuplicateName,
			})
		}
		dimNames[d.Name] = true
		errs = append(errs, validateDimension(field, d)...)
	}

	cubeNames := make(map[string]bool)
	for _, c := range m.Cubes {
		field := "cubes." + c.Name
		if cubeNames[c.Name] {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("duplicate cube name: %q", c.Name),
				Code:    ErrDuplicateName,
			})
		}
		cubeNames[c.Name] = true
		errs = append(errs, validateCube(field, m, c)...)
	}

	return errs
}

func validateDimension(field string, d *model.Dimension) []ValidationError {
	var errs []ValidationError

	attrNames := make(map[string]bool)
	for _, l := range d.Levels {
		errs = append(errs, validateName(field+".levels."+l.Name, l.Name)...)
		for _, a := range l.Attributes {
			afield := fmt.Sprintf("%s.levels.%s.attributes.%s", field, l.Name, a.Name)
			errs = append(errs, validateName(afield, a.Name)...)
			// The same attribute may be shared by levels only by pointer.
			if attrNames[a.Name] && d.Attribute(a.Name) != a {
				errs = append(errs, ValidationError{
					Field:   afield,
					Message: fmt.Sprintf("duplicate attribute name: %q", a.Name),
					Code:    ErrDuplicateName,
				})
			}
			attrNames[a.Name] = true
			for _, loc := range a.Locales {
				errs = append(errs, validateLocale(afield+".locales", loc)...)
			}
		}
	}

	return errs
}

func validateCube(field string, m *model.Model, c *model.Cube) []ValidationError {
	var errs []ValidationError

	errs = append(errs, validateName(field, c.Name)...)

	names := make(map[string]bool)
	addName := func(f, name string) {
		errs = append(errs, validateName(f, name)...)
		if names[name] {
			errs = append(errs, ValidationError{
				Field:   f,
				Message: fmt.Sprintf("duplicate attribute name: %q", name),
				Code:    ErrDuplicateName,
			})
		}
		names[name] = true
	}

	addName(field+".key", c.KeyAttribute().Name)
	for i, ms := range c.Measures {
		f := fmt.Sprintf("%s.measures[%d]", field, i)
		addName(f, ms.Name)
		for _, agg := range ms.Aggregations {
			if !model.ValidAggregations[agg] {
				errs = append(errs, ValidationError{
					Field:   f + ".aggregations",
					Message: fmt.Sprintf("unknown aggregation %q for measure %q", agg, ms.Name),
					Code:    ErrInvalidAggregation,
				})
			}
		}
	}
	for i, a := range c.Details {
		addName(fmt.Sprintf("%s.details[%d]", field, i), a.Name)
	}

	seenDims := make(map[string]bool)
	for _, d := range c.Dimensions {
		if seenDims[d.Name] {
			errs = append(errs, ValidationError{
				Field:   field + ".dimensions",
				Message: fmt.Sprintf("dimension %q listed twice", d.Name),
				Code:    ErrDuplicateName,
			})
		}
		seenDims[d.Name] = true
	}

	for ref := range c.Mappings {
		if !mappingResolves(c, ref) {
			errs = append(errs, ValidationError{
				Field:   field + ".mappings",
				Message: fmt.Sprintf("mapping for unknown attribute %q", ref),
				Code:    ErrInvalidMapping,
			})
		}
	}

	mp, err := mapper.New(m, c)
	if err != nil {
		return append(errs, ValidationError{
			Field:   field + ".joins",
			Message: err.Error(),
			Code:    ErrInvalidJoin,
		})
	}

	var attrs []*model.Attribute
	for _, d := range c.Dimensions {
		attrs = append(attrs, d.Attributes()...)
	}
	if _, err := mp.RelevantJoins(mp.TablesForAttributes(attrs, "")); err != nil {
		var unresolved *mapper.UnresolvedJoinError
		if errors.As(err, &unresolved) {
			errs = append(errs, ValidationError{
				Field:   field + ".joins",
				Message: err.Error(),
				Code:    ErrUnreachableTable,
			})
		} else {
			errs = append(errs, ValidationError{
				Field:   field + ".joins",
				Message: err.Error(),
				Code:    ErrInvalidJoin,
			})
		}
	}

	return errs
}

// mappingResolves reports whether a mapping key names a cube attribute,
// optionally followed by ".<locale>" for a localized attribute.
func mappingResolves(c *model.Cube, ref string) bool {
	if _, err := c.Attribute(ref); err == nil {
		return true
	}
	i := strings.LastIndex(ref, ".")
	if i < 0 {
		return false
	}
	a, err := c.Attribute(ref[:i])
	return err == nil && a.HasLocale(ref[i+1:])
}

func validateName(field, name string) []ValidationError {
	if identPattern.MatchString(name) {
		return nil
	}
	return []ValidationError{{
		Field:   field,
		Message: fmt.Sprintf("invalid name %q: use letters, digits and underscores", name),
		Code:    ErrInvalidName,
	}}
}

func validateLocale(field, locale string) []ValidationError {
	if _, err := language.Parse(locale); err == nil {
		return nil
	}
	return []ValidationError{{
		Field:   field,
		Message: fmt.Sprintf("invalid locale %q", locale),
		Code:    ErrInvalidLocale,
	}}
}
