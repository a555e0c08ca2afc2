package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutputFormatter_JSONSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "json",
		Writer: buf,
	}

	data := map[string]string{"result": "success"}
	err := formatter.Success(data)
	require.NoError(t, err)

	var resp CLIResponse
	err = json.Unmarshal(buf.Bytes(), &resp)
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Status)
	assert.NotNil(t, resp.Data)
	assert.Nil(t, resp.Error)
}

func TestOutputFormatter_TraceID(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: buf}

	require.NoError(t, formatter.Success("first"))
	require.NoError(t, formatter.Success("second"))

	dec := json.NewDecoder(buf)
	var first, second CLIResponse
	require.NoError(t, dec.Decode(&first))
	require.NoError(t, dec.Decode(&second))

	id, err := uuid.Parse(first.TraceID)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), id.Version())
	assert.Equal(t, first.TraceID, second.TraceID, "one formatter, one trace")
}

func TestOutputFormatter_FixedTraceID(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: buf, TraceID: "trace-1"}

	require.NoError(t, formatter.Success(1))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "trace-1", resp.TraceID)
}

func TestOutputFormatter_JSONError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "json",
		Writer: buf,
	}

	err := formatter.Error("E008", "measure 'profit': not found in cube 'orders'", nil)
	require.NoError(t, err)

	var resp CLIResponse
	err = json.Unmarshal(buf.Bytes(), &resp)
	require.NoError(t, err)
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E008", resp.Error.Code)
	assert.Equal(t, "measure 'profit': not found in cube 'orders'", resp.Error.Message)
}

func TestOutputFormatter_TextSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "text",
		Writer: buf,
	}

	err := formatter.Success("Model valid")
	require.NoError(t, err)
	assert.Equal(t, "Model valid\n", buf.String())
}

func TestOutputFormatter_TextError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "text",
		Writer: buf,
	}

	err := formatter.Error("E005", "model not found: x.cue", map[string]string{"path": "x.cue"})
	require.NoError(t, err)
	assert.Equal(t, "Error [E005]: model not found: x.cue\n", buf.String())
}

func TestOutputFormatter_TextErrorVerbose(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format:  "text",
		Writer:  buf,
		Verbose: true,
	}

	err := formatter.Error("E005", "model not found: x.cue", "x.cue")
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Details: x.cue")
}

func TestOutputFormatter_Fail(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "text", Writer: buf}

	err := formatter.Fail(ExitCommandError, ErrCodeDatabase, "--db is required")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Equal(t, "E009: --db is required", err.Error())
	assert.Equal(t, "Error [E009]: --db is required\n", buf.String())
}

func TestOutputFormatter_VerboseLog(t *testing.T) {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}

	quiet := &OutputFormatter{Writer: out, ErrWriter: errOut}
	quiet.VerboseLog("loaded %d file(s)", 2)
	assert.Empty(t, out.String())
	assert.Empty(t, errOut.String())

	loud := &OutputFormatter{Writer: out, ErrWriter: errOut, Verbose: true}
	loud.VerboseLog("loaded %d file(s)", 2)
	assert.Empty(t, out.String(), "verbose output stays off stdout")
	assert.Equal(t, "loaded 2 file(s)\n", errOut.String())
}

func TestOutputFormatter_GetErrWriter(t *testing.T) {
	out := &bytes.Buffer{}
	formatter := &OutputFormatter{Writer: out}
	assert.Same(t, out, formatter.GetErrWriter())

	errOut := &bytes.Buffer{}
	formatter.ErrWriter = errOut
	assert.Same(t, errOut, formatter.GetErrWriter())
}

func TestOutputFormatter_Rows(t *testing.T) {
	t.Run("json empty", func(t *testing.T) {
		buf := &bytes.Buffer{}
		formatter := &OutputFormatter{Format: "json", Writer: buf}
		require.NoError(t, formatter.Rows(nil))

		var resp struct {
			Status string           `json:"status"`
			Data   []map[string]any `json:"data"`
		}
		require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
		assert.Equal(t, "ok", resp.Status)
		assert.NotNil(t, resp.Data)
		assert.Empty(t, resp.Data)
	})

	t.Run("text", func(t *testing.T) {
		buf := &bytes.Buffer{}
		formatter := &OutputFormatter{Format: "text", Writer: buf}
		require.NoError(t, formatter.Rows([]map[string]any{{"a": 1}}))
		assert.Equal(t, "a\n1\n", buf.String())
	})
}

func TestWriteTable(t *testing.T) {
	buf := &bytes.Buffer{}
	writeTable(buf, []map[string]any{
		{"store.country": "SK", "amount_sum": 60},
		{"store.country": "CZ", "amount_sum": 40, "note": nil},
	})

	assert.Equal(t,
		"amount_sum  note  store.country\n"+
			"60                SK\n"+
			"40                CZ\n",
		buf.String())
}

func TestWriteTableEmpty(t *testing.T) {
	buf := &bytes.Buffer{}
	writeTable(buf, nil)
	assert.Equal(t, "(no rows)\n", buf.String())
}

func TestExitError(t *testing.T) {
	t.Run("message only", func(t *testing.T) {
		err := NewExitError(ExitFailure, "2 scenario(s) failed")
		assert.Equal(t, "2 scenario(s) failed", err.Error())
		assert.Nil(t, err.Unwrap())
	})

	t.Run("wrapped", func(t *testing.T) {
		cause := errors.New("disk full")
		err := WrapExitError(ExitCommandError, "failed to write golden file", cause)
		assert.Equal(t, "failed to write golden file: disk full", err.Error())
		assert.ErrorIs(t, err, cause)
	})
}

func TestGetExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"exit failure", NewExitError(ExitFailure, "x"), ExitFailure},
		{"command error", NewExitError(ExitCommandError, "x"), ExitCommandError},
		{"wrapped exit error", fmt.Errorf("run: %w", NewExitError(ExitCommandError, "x")), ExitCommandError},
		{"plain error", errors.New("x"), ExitFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GetExitCode(tt.err))
		})
	}
}
