package harness

// StatementEvent records one statement the browser executed.
type StatementEvent struct {
	Query  string `json:"query"`
	SQL    string `json:"sql"`
	Params []any  `json:"params"`
	Rows   int    `json:"rows"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true if every expect clause and assertion holds.
	Pass bool `json:"pass"`

	// Trace holds the executed statements grouped by query in scenario
	// order. Statements of one query are sorted by SQL since an
	// aggregation runs them concurrently.
	Trace []StatementEvent `json:"trace"`

	// Outputs maps query names to their normalized results.
	Outputs map[string]any `json:"outputs"`

	// Errors contains validation error messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:    true,
		Trace:   []StatementEvent{},
		Outputs: make(map[string]any),
		Errors:  []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddStatements appends the statements of one query to the trace.
func (r *Result) AddStatements(events []StatementEvent) {
	r.Trace = append(r.Trace, events...)
}

// StatementsFor returns the traced statements of a query.
func (r *Result) StatementsFor(query string) []StatementEvent {
	var out []StatementEvent
	for _, e := range r.Trace {
		if e.Query == query {
			out = append(out, e)
		}
	}
	return out
}
