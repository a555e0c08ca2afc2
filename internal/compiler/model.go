package compiler

import (
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/starcube/internal/model"
)

// LoadModel reads and compiles a model file. JSON files load through the
// same path since CUE is a superset of JSON.
func LoadModel(path string) (*model.Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model: %w", err)
	}
	return CompileModelBytes(data, path)
}

// CompileModelBytes compiles model source. filename is used in error
// positions only.
func CompileModelBytes(src []byte, filename string) (*model.Model, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(src, cue.Filename(filename))
	return CompileModel(v)
}

// CompileModel parses a CUE value into a Model.
//
// The value should be the model root, e.g.:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`dimensions: {...}, cubes: {...}`)
//	m, err := CompileModel(v)
func CompileModel(v cue.Value) (*model.Model, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	m := &model.Model{}

	opts, err := parseOptions(v)
	if err != nil {
		return nil, err
	}
	m.Options = opts

	m.Dimensions, err = parseDimensions(v)
	if err != nil {
		return nil, err
	}

	cubesVal := v.LookupPath(cue.ParsePath("cubes"))
	if !cubesVal.Exists() {
		return nil, &CompileError{
			Field:   "cubes",
			Message: "at least one cube is required",
			Pos:     v.Pos(),
		}
	}

	iter, err := cubesVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for iter.Next() {
		c, err := parseCube(iter.Label(), iter.Value(), m)
		if err != nil {
			return nil, err
		}
		m.Cubes = append(m.Cubes, c)
	}

	if len(m.Cubes) == 0 {
		return nil, &CompileError{
			Field:   "cubes",
			Message: "at least one cube is required",
			Pos:     cubesVal.Pos(),
		}
	}

	return m, nil
}

// parseOptions reads the optional options block on top of the defaults.
func parseOptions(v cue.Value) (model.Options, error) {
	opts := model.DefaultOptions()

	optVal := v.LookupPath(cue.ParsePath("options"))
	if !optVal.Exists() {
		return opts, nil
	}

	fields := map[string]*string{
		"dimension_prefix": &opts.DimensionPrefix,
		"fact_prefix":      &opts.FactPrefix,
		"schema":           &opts.Schema,
		"locale":           &opts.Locale,
	}
	for name, dst := range fields {
		s, err := optionalString(optVal, name)
		if err != nil {
			return opts, err
		}
		if s != "" {
			*dst = s
		}
	}

	simplify := optVal.LookupPath(cue.ParsePath("simplify_dimension_references"))
	if simplify.Exists() {
		b, err := simplify.Bool()
		if err != nil {
			return opts, formatCUEError(err)
		}
		opts.SimplifyDimensionReferences = b
	}

	return opts, nil
}

// parseDimensions compiles the shared dimensions in declaration order.
func parseDimensions(v cue.Value) ([]*model.Dimension, error) {
	var dims []*model.Dimension

	dimsVal := v.LookupPath(cue.ParsePath("dimensions"))
	if !dimsVal.Exists() {
		return dims, nil // cubes without dimensions are allowed
	}

	iter, err := dimsVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	for iter.Next() {
		d, err := parseDimension(iter.Label(), iter.Value())
		if err != nil {
			return nil, err
		}
		dims = append(dims, d)
	}

	return dims, nil
}

func parseDimension(name string, v cue.Value) (*model.Dimension, error) {
	field := "dimensions." + name

	var levels []*model.Level
	levelsVal := v.LookupPath(cue.ParsePath("levels"))
	if levelsVal.Exists() {
		iter, err := levelsVal.List()
		if err != nil {
			return nil, formatCUEError(err)
		}
		for i := 0; iter.Next(); i++ {
			l, err := parseLevel(fmt.Sprintf("%s.levels[%d]", field, i), iter.Value())
			if err != nil {
				return nil, err
			}
			levels = append(levels, l)
		}
	}

	var specs []model.HierarchySpec
	hierVal := v.LookupPath(cue.ParsePath("hierarchies"))
	if hierVal.Exists() {
		iter, err := hierVal.List()
		if err != nil {
			return nil, formatCUEError(err)
		}
		for iter.Next() {
			hv := iter.Value()
			hname, err := requiredString(hv, "name", field+".hierarchies")
			if err != nil {
				return nil, err
			}
			hlevels, err := stringList(hv.LookupPath(cue.ParsePath("levels")))
			if err != nil {
				return nil, err
			}
			specs = append(specs, model.HierarchySpec{Name: hname, Levels: hlevels})
		}
	}

	defaultHier, err := optionalString(v, "default_hierarchy")
	if err != nil {
		return nil, err
	}

	d, err := model.NewDimension(name, levels, specs, defaultHier)
	if err != nil {
		return nil, &CompileError{Field: field, Message: err.Error(), Pos: v.Pos()}
	}
	return d, nil
}

// parseLevel accepts either a bare level name or a level struct.
func parseLevel(field string, v cue.Value) (*model.Level, error) {
	if name, err := v.String(); err == nil {
		return model.NewLevel(name, nil, "", "")
	}

	name, err := requiredString(v, "name", field)
	if err != nil {
		return nil, err
	}

	var attrs []*model.Attribute
	attrsVal := v.LookupPath(cue.ParsePath("attributes"))
	if attrsVal.Exists() {
		attrs, err = parseAttributes(field+".attributes", attrsVal)
		if err != nil {
			return nil, err
		}
	}

	key, err := optionalString(v, "key")
	if err != nil {
		return nil, err
	}
	label, err := optionalString(v, "label_attribute")
	if err != nil {
		return nil, err
	}
	if label == "" {
		if label, err = optionalString(v, "label"); err != nil {
			return nil, err
		}
	}

	l, err := model.NewLevel(name, attrs, key, label)
	if err != nil {
		return nil, &CompileError{Field: field, Message: err.Error(), Pos: v.Pos()}
	}
	return l, nil
}

// parseAttributes accepts a list of names or {name, locales} structs.
func parseAttributes(field string, v cue.Value) ([]*model.Attribute, error) {
	var attrs []*model.Attribute

	iter, err := v.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for i := 0; iter.Next(); i++ {
		a, err := parseAttribute(fmt.Sprintf("%s[%d]", field, i), iter.Value())
		if err != nil {
			return nil, err
		}
		attrs = append(attrs, a)
	}
	return attrs, nil
}

func parseAttribute(field string, v cue.Value) (*model.Attribute, error) {
	if name, err := v.String(); err == nil {
		return model.NewAttribute(name), nil
	}

	name, err := requiredString(v, "name", field)
	if err != nil {
		return nil, err
	}
	locales, err := stringList(v.LookupPath(cue.ParsePath("locales")))
	if err != nil {
		return nil, err
	}
	return model.NewAttribute(name, locales...), nil
}

func parseCube(name string, v cue.Value, m *model.Model) (*model.Cube, error) {
	field := "cubes." + name
	c := &model.Cube{Name: name, Mappings: make(map[string]string)}

	var err error
	if c.Fact, err = optionalString(v, "fact"); err != nil {
		return nil, err
	}
	if c.Key, err = optionalString(v, "key"); err != nil {
		return nil, err
	}

	measuresVal := v.LookupPath(cue.ParsePath("measures"))
	if measuresVal.Exists() {
		iter, err := measuresVal.List()
		if err != nil {
			return nil, formatCUEError(err)
		}
		for i := 0; iter.Next(); i++ {
			ms, err := parseMeasure(fmt.Sprintf("%s.measures[%d]", field, i), iter.Value())
			if err != nil {
				return nil, err
			}
			c.Measures = append(c.Measures, ms)
		}
	}

	detailsVal := v.LookupPath(cue.ParsePath("details"))
	if detailsVal.Exists() {
		c.Details, err = parseAttributes(field+".details", detailsVal)
		if err != nil {
			return nil, err
		}
	}

	dimNames, err := stringList(v.LookupPath(cue.ParsePath("dimensions")))
	if err != nil {
		return nil, err
	}
	for _, dn := range dimNames {
		d, err := m.Dimension(dn)
		if err != nil {
			return nil, &CompileError{
				Field:   field + ".dimensions",
				Message: fmt.Sprintf("unknown dimension %q", dn),
				Pos:     v.Pos(),
			}
		}
		c.Dimensions = append(c.Dimensions, d)
	}

	joinsVal := v.LookupPath(cue.ParsePath("joins"))
	if joinsVal.Exists() {
		iter, err := joinsVal.List()
		if err != nil {
			return nil, formatCUEError(err)
		}
		for i := 0; iter.Next(); i++ {
			j, err := parseJoin(fmt.Sprintf("%s.joins[%d]", field, i), iter.Value())
			if err != nil {
				return nil, err
			}
			c.Joins = append(c.Joins, j)
		}
	}

	mappingsVal := v.LookupPath(cue.ParsePath("mappings"))
	if mappingsVal.Exists() {
		iter, err := mappingsVal.Fields()
		if err != nil {
			return nil, formatCUEError(err)
		}
		for iter.Next() {
			target, err := iter.Value().String()
			if err != nil {
				return nil, formatCUEError(err)
			}
			c.Mappings[iter.Label()] = target
		}
	}

	return c, nil
}

// parseMeasure accepts a bare name (sum only) or {name, aggregations}.
func parseMeasure(field string, v cue.Value) (*model.Measure, error) {
	if name, err := v.String(); err == nil {
		return model.NewMeasure(name), nil
	}

	name, err := requiredString(v, "name", field)
	if err != nil {
		return nil, err
	}
	aggs, err := stringList(v.LookupPath(cue.ParsePath("aggregations")))
	if err != nil {
		return nil, err
	}
	return model.NewMeasure(name, aggs...), nil
}

func parseJoin(field string, v cue.Value) (model.JoinSpec, error) {
	var j model.JoinSpec

	master, err := requiredString(v, "master", field)
	if err != nil {
		return j, err
	}
	detail, err := requiredString(v, "detail", field)
	if err != nil {
		return j, err
	}
	if j.Master, err = model.ParseTableColumn(master); err != nil {
		return j, &CompileError{Field: field + ".master", Message: err.Error(), Pos: v.Pos()}
	}
	if j.Detail, err = model.ParseTableColumn(detail); err != nil {
		return j, &CompileError{Field: field + ".detail", Message: err.Error(), Pos: v.Pos()}
	}
	if j.Alias, err = optionalString(v, "alias"); err != nil {
		return j, err
	}
	return j, nil
}

// requiredString reads a string field that must be present.
func requiredString(v cue.Value, name, field string) (string, error) {
	f := v.LookupPath(cue.ParsePath(name))
	if !f.Exists() {
		return "", &CompileError{
			Field:   field + "." + name,
			Message: name + " is required",
			Pos:     v.Pos(),
		}
	}
	s, err := f.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return s, nil
}

// optionalString reads a string field, returning "" when absent.
func optionalString(v cue.Value, name string) (string, error) {
	f := v.LookupPath(cue.ParsePath(name))
	if !f.Exists() {
		return "", nil
	}
	s, err := f.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return s, nil
}

// stringList reads a list of strings; a missing value is an empty list.
func stringList(v cue.Value) ([]string, error) {
	if !v.Exists() {
		return nil, nil
	}
	iter, err := v.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	var out []string
	for iter.Next() {
		s, err := iter.Value().String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		out = append(out, s)
	}
	return out, nil
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	first := errs[0]
	if positions := errors.Positions(first); len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: first.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
