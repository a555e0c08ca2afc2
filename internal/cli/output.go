package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/google/uuid"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Test/validation failure (scenarios failed, invalid model, etc.)
	ExitCommandError = 2 // Command error (invalid paths, database not found, bad flags, etc.)
)

// ExitError represents an error with a specific exit code.
type ExitError struct {
	Code    int    // Exit code (use ExitFailure or ExitCommandError)
	Message string // Error message
	Err     error  // Underlying error (optional)
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates a new ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitFailure (1) if the error is not an ExitError.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // Separate writer for verbose/diagnostic output (defaults to Writer)
	Verbose   bool

	// TraceID correlates a JSON response with the command's log lines.
	// Set lazily to a UUIDv7.
	TraceID string
}

// CLIResponse is the standard JSON response format for CLI output.
type CLIResponse struct {
	Status  string    `json:"status"`             // "ok" or "error"
	Data    any       `json:"data,omitempty"`     // success payload
	Error   *CLIError `json:"error,omitempty"`    // error details
	TraceID string    `json:"trace_id,omitempty"` // trace correlation
}

// CLIError is the error structure for CLI responses.
type CLIError struct {
	Code    string `json:"code"`              // "E001", "E002", etc.
	Message string `json:"message"`           // human-readable message
	Details any    `json:"details,omitempty"` // additional context
}

// traceID returns the formatter's trace id, generating one on first use.
func (f *OutputFormatter) traceID() string {
	if f.TraceID == "" {
		f.TraceID = uuid.Must(uuid.NewV7()).String()
	}
	return f.TraceID
}

// Success outputs a successful result in the configured format.
func (f *OutputFormatter) Success(data any) error {
	if f.Format == "json" {
		return f.encode(CLIResponse{Status: "ok", Data: data, TraceID: f.traceID()})
	}

	fmt.Fprintln(f.Writer, data)
	return nil
}

// Error outputs an error in the configured format.
func (f *OutputFormatter) Error(code, message string, details any) error {
	if f.Format == "json" {
		return f.encode(CLIResponse{
			Status:  "error",
			Error:   &CLIError{Code: code, Message: message, Details: details},
			TraceID: f.traceID(),
		})
	}

	fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message)
	if f.Verbose && details != nil {
		fmt.Fprintf(f.Writer, "Details: %v\n", details)
	}
	return nil
}

// Fail outputs an error and returns it as an ExitError with the given
// exit code.
func (f *OutputFormatter) Fail(exitCode int, code, message string) error {
	_ = f.Error(code, message, nil)
	return NewExitError(exitCode, fmt.Sprintf("%s: %s", code, message))
}

// Rows outputs result rows: a JSON array or a tab-aligned table with one
// column per key, keys sorted.
func (f *OutputFormatter) Rows(rows []map[string]any) error {
	if f.Format == "json" {
		if rows == nil {
			rows = []map[string]any{}
		}
		return f.Success(rows)
	}
	writeTable(f.Writer, rows)
	return nil
}

func (f *OutputFormatter) encode(resp CLIResponse) error {
	encoder := json.NewEncoder(f.Writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(resp)
}

// VerboseLog outputs a message only if verbose mode is enabled.
// Uses ErrWriter if set, otherwise falls back to Writer.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if !f.Verbose {
		return
	}
	fmt.Fprintf(f.GetErrWriter(), format+"\n", args...)
}

// GetErrWriter returns the appropriate writer for diagnostic output.
// Returns ErrWriter if set, otherwise Writer.
func (f *OutputFormatter) GetErrWriter() io.Writer {
	if f.ErrWriter != nil {
		return f.ErrWriter
	}
	return f.Writer
}

// writeTable prints rows under a header of their sorted keys. Missing
// values and NULLs print as empty cells.
func writeTable(w io.Writer, rows []map[string]any) {
	if len(rows) == 0 {
		fmt.Fprintln(w, "(no rows)")
		return
	}

	seen := make(map[string]bool)
	var columns []string
	for _, row := range rows {
		for k := range row {
			if !seen[k] {
				seen[k] = true
				columns = append(columns, k)
			}
		}
	}
	sort.Strings(columns)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for i, c := range columns {
		if i > 0 {
			fmt.Fprint(tw, "\t")
		}
		fmt.Fprint(tw, c)
	}
	fmt.Fprintln(tw)
	for _, row := range rows {
		for i, c := range columns {
			if i > 0 {
				fmt.Fprint(tw, "\t")
			}
			if v := row[c]; v != nil {
				fmt.Fprint(tw, v)
			}
		}
		fmt.Fprintln(tw)
	}
	tw.Flush()
}
