package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/starcube/internal/ir"
)

// OutputSnapshot captures the outputs of a scenario execution.
// It is serialized with canonical JSON for deterministic comparison.
type OutputSnapshot struct {
	ScenarioName string         `json:"scenario_name"`
	Outputs      map[string]any `json:"outputs"`
	Statements   map[string]int `json:"statements"`
}

// NewOutputSnapshot builds the snapshot of a result. Statements counts
// the executed statements per query.
func NewOutputSnapshot(name string, result *Result) OutputSnapshot {
	s := OutputSnapshot{
		ScenarioName: name,
		Outputs:      result.Outputs,
		Statements:   make(map[string]int),
	}
	for query := range result.Outputs {
		s.Statements[query] = 0
	}
	for _, event := range result.Trace {
		s.Statements[event.Query]++
	}
	return s
}

// toCanonicalMap converts the snapshot to a map[string]any for canonical
// JSON serialization, since ir.MarshalCanonical only handles IR types and
// primitives.
func (s OutputSnapshot) toCanonicalMap() map[string]any {
	outputs := make(map[string]any, len(s.Outputs))
	for k, v := range s.Outputs {
		outputs[k] = normalizeValue(v)
	}
	statements := make(map[string]any, len(s.Statements))
	for k, n := range s.Statements {
		statements[k] = int64(n)
	}
	return map[string]any{
		"scenario_name": s.ScenarioName,
		"outputs":       outputs,
		"statements":    statements,
	}
}

// MarshalCanonical serializes the snapshot as RFC 8785 canonical JSON.
func (s OutputSnapshot) MarshalCanonical() ([]byte, error) {
	return ir.MarshalCanonical(s.toCanonicalMap())
}

// RunWithGolden executes a scenario and compares its outputs against a
// golden file stored in testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails. Test failure (via goldie)
// occurs if the outputs don't match the golden file.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares the outputs of an already executed scenario
// against a golden file.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	data, err := NewOutputSnapshot(scenarioName, result).MarshalCanonical()
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)
	return nil
}
