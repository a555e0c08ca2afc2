package cli

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/starcube/internal/harness"
)

// TestOptions holds flags for the test command.
type TestOptions struct {
	*RootOptions
	Update bool   // regenerate golden files
	Filter string // scenario filter (glob pattern)
}

// ScenarioResult holds the result of a single scenario execution.
type ScenarioResult struct {
	Name   string   `json:"name"`
	Pass   bool     `json:"pass"`
	Errors []string `json:"errors,omitempty"`
}

// TestResult holds the overall test result.
type TestResult struct {
	Scenarios []ScenarioResult `json:"scenarios"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	Total     int              `json:"total"`
}

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "test <scenarios>",
		Short: "Run query scenarios",
		Long: `Run YAML query scenarios, each against a fresh in-memory database.

<scenarios> is a scenario file or a directory searched for .yaml and .yml
files. A scenario whose golden file exists (golden/<file>.golden next to the
scenario) must also reproduce its outputs exactly.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (invalid paths, etc.)

Examples:
  starcube test ./scenarios
  starcube test ./scenarios --filter "sales-*"
  starcube test ./scenarios --update
  starcube test ./scenarios --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTests(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Update, "update", false, "regenerate golden files")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter scenarios by glob pattern")

	return cmd
}

func runTests(opts *TestOptions, scenariosPath string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	paths, err := harness.DiscoverScenarios(scenariosPath, "")
	if err != nil {
		var nf *harness.ScenarioNotFoundError
		if errors.As(err, &nf) {
			return formatter.Fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("scenarios not found: %s", scenariosPath))
		}
		return formatter.Fail(ExitCommandError, ErrCodeScanError, fmt.Sprintf("failed to find scenarios: %v", err))
	}

	scenarioFiles, err := filterScenarios(paths, opts.Filter)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, err.Error())
	}

	if len(scenarioFiles) == 0 {
		if opts.Format == "json" {
			return outputTestJSON(cmd, TestResult{Scenarios: []ScenarioResult{}})
		}
		fmt.Fprintln(cmd.OutOrStdout(), "No scenarios found.")
		return nil
	}

	result := TestResult{
		Scenarios: make([]ScenarioResult, 0, len(scenarioFiles)),
		Total:     len(scenarioFiles),
	}
	for _, scenarioFile := range scenarioFiles {
		scenResult := runScenario(scenarioFile, opts, cmd)
		result.Scenarios = append(result.Scenarios, scenResult)
		if scenResult.Pass {
			result.Passed++
		} else {
			result.Failed++
		}
	}

	if opts.Format == "json" {
		return outputTestJSON(cmd, result)
	}
	return outputTestText(cmd, result)
}

// filterScenarios keeps the files whose base name without extension
// matches the glob pattern. An empty pattern keeps all files.
func filterScenarios(paths []string, filter string) ([]string, error) {
	if filter == "" {
		return paths, nil
	}
	var out []string
	for _, p := range paths {
		name := strings.TrimSuffix(filepath.Base(p), filepath.Ext(p))
		matched, err := filepath.Match(filter, name)
		if err != nil {
			return nil, fmt.Errorf("invalid filter pattern: %w", err)
		}
		if matched {
			out = append(out, p)
		}
	}
	return out, nil
}

// runScenario executes a single scenario and returns the result.
func runScenario(scenarioFile string, opts *TestOptions, cmd *cobra.Command) ScenarioResult {
	w := cmd.OutOrStdout()
	text := opts.Format != "json"

	fail := func(name string, errs ...string) ScenarioResult {
		if text {
			fmt.Fprintf(w, "\u2717 %s\n", name)
			for _, e := range errs {
				fmt.Fprintf(w, "  %s\n", e)
			}
		}
		return ScenarioResult{Name: name, Pass: false, Errors: errs}
	}

	scenario, err := harness.LoadScenario(scenarioFile)
	if err != nil {
		return fail(filepath.Base(scenarioFile), fmt.Sprintf("failed to load scenario: %v", err))
	}

	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr())
	result, err := harness.RunWithLogger(commandContext(cmd), scenario, logger)
	if err != nil {
		return fail(scenario.Name, fmt.Sprintf("execution failed: %v", err))
	}

	goldenPath := goldenFilePath(scenarioFile)
	if opts.Update {
		if err := updateGoldenFile(scenario, result, goldenPath); err != nil {
			return fail(scenario.Name, fmt.Sprintf("failed to update golden file: %v", err))
		}
		if text {
			fmt.Fprintf(w, "\u2713 %s (golden updated)\n", scenario.Name)
		}
		return ScenarioResult{Name: scenario.Name, Pass: true}
	}

	errs := result.Errors
	if _, err := os.Stat(goldenPath); err == nil {
		match, err := compareWithGolden(scenario, result, goldenPath)
		switch {
		case err != nil:
			errs = append(errs, fmt.Sprintf("golden comparison failed: %v", err))
		case !match:
			errs = append(errs, "outputs do not match golden file (run with --update to regenerate)")
		}
	}

	if len(errs) > 0 || !result.Pass {
		return fail(scenario.Name, errs...)
	}
	if text {
		fmt.Fprintf(w, "\u2713 %s\n", scenario.Name)
	}
	return ScenarioResult{Name: scenario.Name, Pass: true}
}

// goldenFilePath returns the path to the golden file for a scenario.
func goldenFilePath(scenarioFile string) string {
	dir := filepath.Dir(scenarioFile)
	base := filepath.Base(scenarioFile)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(dir, "golden", name+".golden")
}

// updateGoldenFile writes the current outputs as the golden file.
func updateGoldenFile(scenario *harness.Scenario, result *harness.Result, goldenPath string) error {
	if err := os.MkdirAll(filepath.Dir(goldenPath), 0755); err != nil {
		return fmt.Errorf("failed to create golden directory: %w", err)
	}

	data, err := harness.NewOutputSnapshot(scenario.Name, result).MarshalCanonical()
	if err != nil {
		return fmt.Errorf("failed to marshal outputs: %w", err)
	}
	if err := os.WriteFile(goldenPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write golden file: %w", err)
	}
	return nil
}

// compareWithGolden compares the result outputs against the golden file.
func compareWithGolden(scenario *harness.Scenario, result *harness.Result, goldenPath string) (bool, error) {
	goldenData, err := os.ReadFile(goldenPath)
	if err != nil {
		return false, fmt.Errorf("failed to read golden file: %w", err)
	}

	currentData, err := harness.NewOutputSnapshot(scenario.Name, result).MarshalCanonical()
	if err != nil {
		return false, fmt.Errorf("failed to marshal current outputs: %w", err)
	}
	return bytes.Equal(goldenData, currentData), nil
}

// outputTestJSON outputs the test result as JSON.
func outputTestJSON(cmd *cobra.Command, result TestResult) error {
	formatter := &OutputFormatter{Format: "json", Writer: cmd.OutOrStdout()}
	response := CLIResponse{Status: "ok", Data: result, TraceID: formatter.traceID()}
	if result.Failed > 0 {
		response.Status = "error"
		response.Error = &CLIError{
			Code:    "E_TEST_FAILED",
			Message: fmt.Sprintf("%d scenario(s) failed", result.Failed),
		}
	}

	if err := formatter.encode(response); err != nil {
		return err
	}
	if result.Failed > 0 {
		// Test failures = exit code 1
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", result.Failed))
	}
	return nil
}

// outputTestText outputs the test result as text.
func outputTestText(cmd *cobra.Command, result TestResult) error {
	w := cmd.OutOrStdout()

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Test Summary: %d passed, %d failed, %d total\n", result.Passed, result.Failed, result.Total)

	if result.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", result.Failed))
	}

	fmt.Fprintln(w, "\u2713 All scenarios passed")
	return nil
}
