package cli

import (
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the starcube CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "starcube",
		Short: "starcube - OLAP queries over star schemas",
		Long: `Plan and run aggregation queries over star and snowflake schemas.

A CUE model describes the cubes, dimensions and hierarchies; starcube turns
cells, cuts and drilldowns into SQL and runs it on SQLite or DuckDB.`,
		SilenceErrors: true, // main reports errors that commands did not print
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewSQLCommand(opts))
	cmd.AddCommand(NewAggregateCommand(opts))
	cmd.AddCommand(NewMembersCommand(opts))
	cmd.AddCommand(NewFactCommand(opts))
	cmd.AddCommand(NewFactsCommand(opts))
	cmd.AddCommand(NewDetailsCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}

// newLogger returns a Debug level text logger on w in verbose mode and a
// discarding logger otherwise.
func newLogger(opts *RootOptions, w io.Writer) *slog.Logger {
	if !opts.Verbose {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// newFormatter creates the output formatter of a command. Verbose output
// goes to stderr to avoid corrupting JSON.
func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
}
