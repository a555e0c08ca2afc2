package testutil

import (
	"embed"
	"testing"

	"github.com/roach88/starcube/internal/compiler"
	"github.com/roach88/starcube/internal/model"
)

//go:embed models/*.cue
var models embed.FS

// Model compiles one of the embedded fixture models ("sales" or
// "calendar") and fails the test on any compile or validation error.
func Model(t testing.TB, name string) *model.Model {
	t.Helper()

	path := "models/" + name + ".cue"
	src, err := models.ReadFile(path)
	if err != nil {
		t.Fatalf("fixture model %q: %v", name, err)
	}

	m, err := compiler.CompileModelBytes(src, path)
	if err != nil {
		t.Fatalf("compile fixture model %q: %v", name, err)
	}
	if errs := compiler.ValidateModel(m); len(errs) > 0 {
		t.Fatalf("fixture model %q is invalid: %v", name, errs)
	}
	return m
}

// ModelSource returns the source of an embedded fixture model.
func ModelSource(t testing.TB, name string) []byte {
	t.Helper()
	src, err := models.ReadFile("models/" + name + ".cue")
	if err != nil {
		t.Fatalf("fixture model %q: %v", name, err)
	}
	return src
}

// SalesModel is the snowflake sales model: cube "sales" with dimensions
// date, flag and product.
func SalesModel(t testing.TB) *model.Model {
	return Model(t, "sales")
}

// CalendarModel is the hierarchy model: cube "cube" with one date
// dimension and hierarchies ymd (default), yqmd and ywd.
func CalendarModel(t testing.TB) *model.Model {
	return Model(t, "calendar")
}
