package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/starcube/internal/store"
)

// Scenario defines a query conformance scenario.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Model is the path of the CUE model file. Relative paths are resolved
	// against the scenario file's directory by LoadScenario.
	Model string `yaml:"model"`

	// Cube is the cube the queries browse.
	Cube string `yaml:"cube"`

	// Driver is the store driver, "sqlite3" when empty.
	Driver string `yaml:"driver,omitempty"`

	// Locale is passed to the browser for localized attributes.
	Locale string `yaml:"locale,omitempty"`

	// RequestID is the fixed request id. If empty, defaults to
	// "test-request-default".
	RequestID string `yaml:"request_id,omitempty"`

	// Schema is a SQL script creating the warehouse tables.
	Schema string `yaml:"schema"`

	// Tables lists rows to insert after the schema is created.
	Tables []TableData `yaml:"tables,omitempty"`

	// Queries run in order against the browser.
	Queries []QueryStep `yaml:"queries"`

	// Assertions validate the executed statements and the loaded tables.
	// Supported types: statement_contains, statement_count, table_row
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// TableData holds rows for one table.
type TableData struct {
	Name    string   `yaml:"name"`
	Columns []string `yaml:"columns"`
	Rows    [][]any  `yaml:"rows"`
}

// QueryStep is one browser call.
type QueryStep struct {
	// Name identifies the query in outputs and assertions.
	Name string `yaml:"name"`

	// Type is one of aggregate, members, facts, fact or details.
	Type string `yaml:"type"`

	// Cut is a cut string such as "date:2012,3|product:1-5". Empty means
	// the whole cube.
	Cut string `yaml:"cut,omitempty"`

	// Drilldown lists drilldown specs such as "date:ymd:month".
	Drilldown []string `yaml:"drilldown,omitempty"`

	// Measures restricts the aggregated measures.
	Measures []string `yaml:"measures,omitempty"`

	// Dimension and Depth select members for a members query.
	Dimension string `yaml:"dimension,omitempty"`
	Depth     int    `yaml:"depth,omitempty"`

	// Key is the fact key of a fact query.
	Key any `yaml:"key,omitempty"`

	Page     int `yaml:"page,omitempty"`
	PageSize int `yaml:"page_size,omitempty"`

	// Expect is checked against the query result. If nil, the query only
	// has to succeed.
	Expect *Expect `yaml:"expect,omitempty"`
}

// Expect specifies the expected result of a query.
type Expect struct {
	// Summary holds expected aggregates (subset match).
	Summary map[string]any `yaml:"summary,omitempty"`

	// Cells is the expected number of drilldown cells.
	Cells *int `yaml:"cells,omitempty"`

	// TotalCellCount is the expected number of cells regardless of paging.
	TotalCellCount *int `yaml:"total_cell_count,omitempty"`

	// Rows is the expected number of rows of members, facts or details.
	Rows *int `yaml:"rows,omitempty"`

	// First holds expected values of the first cell or row (subset match).
	First map[string]any `yaml:"first,omitempty"`

	// Nil expects a fact query to find no fact.
	Nil bool `yaml:"nil,omitempty"`

	// Error expects the query to fail with a message containing it.
	Error string `yaml:"error,omitempty"`
}

// Assertion validates the trace or a loaded table.
type Assertion struct {
	// Type specifies the assertion type:
	// - "statement_contains": a statement of Query contains SQL
	// - "statement_count": Query executed exactly Count statements
	// - "table_row": the row of Table matching Where has Expect values
	Type string `yaml:"type"`

	// Query is the query name (used by statement_contains, statement_count).
	// Empty matches statements of any query for statement_contains.
	Query string `yaml:"query,omitempty"`

	// SQL is the expected SQL fragment (used by statement_contains).
	SQL string `yaml:"sql,omitempty"`

	// Count is the expected number of statements (used by statement_count).
	Count int `yaml:"count,omitempty"`

	// Table, Where and Expect are used by table_row. Where must match
	// exactly one row; Expect is a subset match.
	Table  string         `yaml:"table,omitempty"`
	Where  map[string]any `yaml:"where,omitempty"`
	Expect map[string]any `yaml:"expect,omitempty"`
}

// Query type constants.
const (
	QueryAggregate = "aggregate"
	QueryMembers   = "members"
	QueryFacts     = "facts"
	QueryFact      = "fact"
	QueryDetails   = "details"
)

// Assertion type constants.
const (
	AssertStatementContains = "statement_contains"
	AssertStatementCount    = "statement_count"
	AssertTableRow          = "table_row"
)

// LoadScenario reads and parses a scenario YAML file, resolving the model
// path against the scenario file's directory.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	return LoadScenarioWithBasePath(path, filepath.Dir(path))
}

// LoadScenarioWithBasePath reads and parses a scenario YAML file,
// resolving a relative model path against basePath.
func LoadScenarioWithBasePath(path, basePath string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}

	// Resolve the model path BEFORE validation
	if scenario.Model != "" && !filepath.IsAbs(scenario.Model) && basePath != "" {
		scenario.Model = filepath.Join(basePath, scenario.Model)
	}

	if err := validateScenario(scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return scenario, nil
}

// ParseScenario decodes scenario YAML without validating it.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Model == "" {
		return fmt.Errorf("model is required")
	}
	if _, err := os.Stat(s.Model); os.IsNotExist(err) {
		return fmt.Errorf("model file not found: %s", s.Model)
	}
	if s.Cube == "" {
		return fmt.Errorf("cube is required")
	}
	switch s.Driver {
	case "", store.DriverSQLite, store.DriverDuckDB:
	default:
		return fmt.Errorf("unsupported driver %q", s.Driver)
	}
	if len(s.Queries) == 0 {
		return fmt.Errorf("queries list is required and must be non-empty")
	}

	for i, table := range s.Tables {
		if table.Name == "" {
			return fmt.Errorf("tables[%d]: name is required", i)
		}
		if len(table.Columns) == 0 {
			return fmt.Errorf("tables[%d]: columns list is required", i)
		}
		for j, row := range table.Rows {
			if len(row) != len(table.Columns) {
				return fmt.Errorf("tables[%d].rows[%d]: has %d values, want %d", i, j, len(row), len(table.Columns))
			}
		}
	}

	names := make(map[string]bool)
	for i, q := range s.Queries {
		if err := validateQuery(i, &q); err != nil {
			return err
		}
		if names[q.Name] {
			return fmt.Errorf("queries[%d]: duplicate name %q", i, q.Name)
		}
		names[q.Name] = true
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}
	return nil
}

// validateQuery validates a single query step based on its type.
func validateQuery(index int, q *QueryStep) error {
	if q.Name == "" {
		return fmt.Errorf("queries[%d]: name is required", index)
	}
	switch q.Type {
	case QueryAggregate, QueryFacts:
	case QueryMembers:
		if q.Dimension == "" {
			return fmt.Errorf("queries[%d]: dimension is required for members", index)
		}
	case QueryFact:
		if q.Key == nil {
			return fmt.Errorf("queries[%d]: key is required for fact", index)
		}
	case QueryDetails:
		if q.Cut == "" {
			return fmt.Errorf("queries[%d]: cut is required for details", index)
		}
	case "":
		return fmt.Errorf("queries[%d]: type is required", index)
	default:
		return fmt.Errorf("queries[%d]: unknown query type %q", index, q.Type)
	}
	if q.Page < 0 || q.PageSize < 0 {
		return fmt.Errorf("queries[%d]: page and page_size must be non-negative", index)
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertStatementContains:
		if a.SQL == "" {
			return fmt.Errorf("assertions[%d]: sql is required for statement_contains", index)
		}
	case AssertStatementCount:
		if a.Query == "" {
			return fmt.Errorf("assertions[%d]: query is required for statement_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for statement_count", index)
		}
	case AssertTableRow:
		if a.Table == "" {
			return fmt.Errorf("assertions[%d]: table is required for table_row", index)
		}
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for table_row", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
