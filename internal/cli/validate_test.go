package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateValidModel(t *testing.T) {
	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewValidateCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{shopModel})

	err := cmd.Execute()
	require.NoError(t, err)
	assert.Equal(t, "\u2713 Model valid: 1 cube(s), 2 dimension(s)\n", buf.String())
}

func TestValidateValidModelJSON(t *testing.T) {
	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "json"}
	cmd := NewValidateCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{salesModel})

	err := cmd.Execute()
	require.NoError(t, err)

	var resp struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.Data.Valid)
	assert.Equal(t, []string{"sales"}, resp.Data.Cubes)
	assert.ElementsMatch(t, []string{"date", "flag", "product"}, resp.Data.Dimensions)
}

func TestValidateNonExistentPath(t *testing.T) {
	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewValidateCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"/nonexistent/model.cue"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "E005") // ErrCodeNotFound
	assert.Contains(t, buf.String(), "not found")
}

func TestValidateEmptyDirectory(t *testing.T) {
	tmpDir := t.TempDir()

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewValidateCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{tmpDir})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "E003")
	assert.Contains(t, buf.String(), "no CUE files found")
}

func TestValidateSyntaxError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.cue")
	require.NoError(t, os.WriteFile(path, []byte("cubes: {"), 0644))

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewValidateCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{path})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "E004")
}

func TestValidateInvalidModel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "invalid.cue")
	src := `
options: dimension_prefix: "dim_"
dimensions: date: levels: ["year", "month"]
cubes: sales: {
	measures: [{name: "amount", aggregations: ["median"]}]
	dimensions: ["date"]
}
`
	require.NoError(t, os.WriteFile(path, []byte(src), 0644))

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewValidateCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{path})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	output := buf.String()
	assert.Contains(t, output, "\u2717 Validation failed")
	assert.Contains(t, output, "E103")
	assert.Contains(t, output, "E107")
}

func TestValidateInvalidModelJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "invalid.cue")
	src := `cubes: sales: mappings: {"price": "sales.price"}`
	require.NoError(t, os.WriteFile(path, []byte(src), 0644))

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "json"}
	cmd := NewValidateCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{path})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
		Error  *CLIError        `json:"error"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.False(t, resp.Data.Valid)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E105", resp.Error.Code)
}
