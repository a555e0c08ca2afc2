package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/starcube/internal/compiler"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid      bool                       `json:"valid"`
	Cubes      []string                   `json:"cubes,omitempty"`
	Dimensions []string                   `json:"dimensions,omitempty"`
	Errors     []compiler.ValidationError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <model>",
		Short: "Validate a model",
		Long: `Load a CUE or JSON model (or a directory holding a CUE package) and check
names, aggregations, locales, mappings and that every attribute table is
reachable from the fact table through the cube's joins.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	res, err := LoadModel(path)
	if err != nil {
		code, msg := loadErrorCode(err)
		if code == ErrCodeLoadFailed {
			msg = err.Error()
		}
		return formatter.Fail(ExitCommandError, code, msg)
	}
	formatter.VerboseLog("Loaded %d model file(s) from %s", res.FileCount, path)

	result := ValidationResult{Valid: true}
	for _, c := range res.Model.Cubes {
		result.Cubes = append(result.Cubes, c.Name)
	}
	for _, d := range res.Model.Dimensions {
		result.Dimensions = append(result.Dimensions, d.Name)
	}

	if errs := compiler.ValidateModel(res.Model); len(errs) > 0 {
		result.Valid = false
		result.Errors = errs
		return outputValidationErrors(formatter, result)
	}

	if formatter.Format == "json" {
		return formatter.Success(result)
	}
	fmt.Fprintf(formatter.Writer, "\u2713 Model valid: %d cube(s), %d dimension(s)\n", len(result.Cubes), len(result.Dimensions))
	return nil
}

// outputValidationErrors outputs multiple validation errors.
func outputValidationErrors(formatter *OutputFormatter, result ValidationResult) error {
	errs := result.Errors
	if formatter.Format == "json" {
		if err := formatter.encode(CLIResponse{
			Status:  "error",
			Data:    result,
			Error:   &CLIError{Code: errs[0].Code, Message: errs[0].Message},
			TraceID: formatter.traceID(),
		}); err != nil {
			return err
		}
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
	}

	fmt.Fprintln(formatter.Writer, "\u2717 Validation failed")
	fmt.Fprintln(formatter.Writer)
	for _, err := range errs {
		fmt.Fprintf(formatter.Writer, "  %s %s: %s\n", err.Code, err.Field, err.Message)
	}

	// Validation failures = exit code 1 (test/validation failure)
	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
}
