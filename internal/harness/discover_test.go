package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiscoverScenarios_Directory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "nested"), 0755))
	for _, name := range []string{"b.yaml", "a.yml", "notes.md", "nested/c.YAML"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("name: x"), 0644))
	}

	paths, err := DiscoverScenarios(dir, "")
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "a.yml"),
		filepath.Join(dir, "b.yaml"),
		filepath.Join(dir, "nested", "c.YAML"),
	}, paths)
}

func TestDiscoverScenarios_File(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "s.yaml"), []byte("name: x"), 0644))

	paths, err := DiscoverScenarios("s.yaml", dir)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "s.yaml")}, paths)
}

func TestDiscoverScenarios_Missing(t *testing.T) {
	dir := t.TempDir()

	_, err := DiscoverScenarios("missing", dir)
	var nf *ScenarioNotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "missing", nf.Path)
	assert.Equal(t, filepath.Join(dir, "missing"), nf.ResolvedPath)
	assert.Contains(t, err.Error(), `scenario path "missing" does not exist`)
}
