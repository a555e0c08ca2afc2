package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/roach88/starcube/internal/compiler"
	"github.com/roach88/starcube/internal/cube"
	"github.com/roach88/starcube/internal/queryir"
	"github.com/roach88/starcube/internal/querysql"
	"github.com/roach88/starcube/internal/star"
	"github.com/roach88/starcube/internal/store"
	"github.com/roach88/starcube/internal/testutil"
)

// Harness is the scenario execution engine for one run.
type Harness struct {
	store   *store.Store
	browser *star.Browser
	exec    *recordingExecutor
	logger  *slog.Logger
}

// Run executes a scenario with logging discarded.
func Run(scenario *Scenario) (*Result, error) {
	return RunWithLogger(context.Background(), scenario, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// RunWithLogger executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database. Execution flow:
// 1. Open the store and load the schema and table rows
// 2. Load and validate the model
// 3. Run every query, checking its expect clause
// 4. Evaluate the assertions
//
// The returned error reports a scenario that could not be set up; query
// and assertion failures are recorded in the result.
func RunWithLogger(ctx context.Context, scenario *Scenario, logger *slog.Logger) (*Result, error) {
	st, err := store.Open(scenario.Driver, store.MemoryDSN)
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	if err := load(ctx, st, scenario); err != nil {
		return nil, err
	}

	m, err := compiler.LoadModel(scenario.Model)
	if err != nil {
		return nil, fmt.Errorf("failed to load model: %w", err)
	}
	if errs := compiler.ValidateModel(m); len(errs) > 0 {
		msgs := make([]string, len(errs))
		for i, e := range errs {
			msgs[i] = e.Error()
		}
		return nil, fmt.Errorf("invalid model: %s", strings.Join(msgs, "; "))
	}

	exec := &recordingExecutor{next: st, compiler: querysql.NewSQLCompiler()}
	browser, err := star.NewBrowser(m, scenario.Cube, exec,
		star.WithLogger(logger),
		star.WithLocale(scenario.Locale),
		star.WithRequestIDGenerator(testutil.NewFixedIDGenerator(scenario.RequestID)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create browser: %w", err)
	}

	h := &Harness{store: st, browser: browser, exec: exec, logger: logger}
	result := NewResult()
	for _, step := range scenario.Queries {
		h.runQuery(ctx, step, result)
	}

	actx := &AssertionContext{Store: st, Ctx: ctx}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(msg)
	}
	return result, nil
}

// load creates the schema and inserts the scenario's table rows.
func load(ctx context.Context, st *store.Store, scenario *Scenario) error {
	if strings.TrimSpace(scenario.Schema) != "" {
		if err := st.ExecScript(ctx, scenario.Schema); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	for _, table := range scenario.Tables {
		if err := st.InsertRows(ctx, table.Name, table.Columns, table.Rows); err != nil {
			return fmt.Errorf("failed to load table %s: %w", table.Name, err)
		}
	}
	return nil
}

// runQuery executes one query step, records its statements and output,
// and checks its expect clause.
func (h *Harness) runQuery(ctx context.Context, step QueryStep, result *Result) {
	h.exec.begin(step.Name)
	output, err := h.execute(ctx, step)
	result.AddStatements(h.exec.end())

	h.logger.Debug("query executed", "query", step.Name, "type", step.Type, "error", err)

	if err != nil {
		result.Outputs[step.Name] = map[string]any{"error": err.Error()}
		if step.Expect == nil || step.Expect.Error == "" {
			result.AddError(fmt.Sprintf("query %q: unexpected error: %v", step.Name, err))
			return
		}
		if !strings.Contains(err.Error(), step.Expect.Error) {
			result.AddError(fmt.Sprintf("query %q: expected error containing %q, got %q", step.Name, step.Expect.Error, err.Error()))
		}
		return
	}

	result.Outputs[step.Name] = output.normalized()
	if step.Expect == nil {
		return
	}
	if step.Expect.Error != "" {
		result.AddError(fmt.Sprintf("query %q: expected error containing %q, got success", step.Name, step.Expect.Error))
		return
	}
	for _, msg := range checkExpect(output, step.Expect) {
		result.AddError(fmt.Sprintf("query %q: %s", step.Name, msg))
	}
}

// queryOutput is the raw result of one query.
type queryOutput struct {
	aggregate *star.AggregationResult
	rows      []map[string]any
	found     bool // fact queries only
	isFact    bool
}

func (h *Harness) execute(ctx context.Context, step QueryStep) (*queryOutput, error) {
	cuts, err := cube.ParseCuts(step.Cut)
	if err != nil {
		return nil, err
	}
	cell, err := cube.NewCell(h.browser.Cube(), cuts...)
	if err != nil {
		return nil, err
	}

	switch step.Type {
	case QueryAggregate:
		drilldown, err := cube.ParseDrilldowns(step.Drilldown)
		if err != nil {
			return nil, err
		}
		agg, err := h.browser.Aggregate(ctx, cell, star.AggregateRequest{
			Measures:  step.Measures,
			Drilldown: drilldown,
			Page:      step.Page,
			PageSize:  step.PageSize,
		})
		if err != nil {
			return nil, err
		}
		return &queryOutput{aggregate: agg}, nil

	case QueryMembers:
		rows, err := h.browser.Members(ctx, cell, step.Dimension, step.Depth)
		if err != nil {
			return nil, err
		}
		return &queryOutput{rows: rows}, nil

	case QueryFacts:
		rows, err := h.browser.Facts(ctx, cell, step.Page, step.PageSize)
		if err != nil {
			return nil, err
		}
		return &queryOutput{rows: rows}, nil

	case QueryFact:
		row, err := h.browser.Fact(ctx, step.Key)
		if err != nil {
			return nil, err
		}
		out := &queryOutput{isFact: true, found: row != nil}
		if row != nil {
			out.rows = []map[string]any{row}
		}
		return out, nil

	case QueryDetails:
		details, err := h.browser.CellDetails(ctx, cell)
		if err != nil {
			return nil, err
		}
		out := &queryOutput{rows: []map[string]any{}}
		for _, d := range details {
			out.rows = append(out.rows, d...)
		}
		return out, nil
	}
	return nil, fmt.Errorf("unknown query type %q", step.Type)
}

// normalized converts the output to canonical-JSON-safe values.
func (o *queryOutput) normalized() any {
	switch {
	case o.aggregate != nil:
		out := map[string]any{"summary": normalizeValue(o.aggregate.Summary)}
		if o.aggregate.Cells != nil {
			out["cells"] = normalizeRows(o.aggregate.Cells)
			out["total_cell_count"] = int64(o.aggregate.TotalCellCount)
		}
		return out
	case o.isFact:
		if !o.found {
			return nil
		}
		return normalizeValue(o.rows[0])
	default:
		return normalizeRows(o.rows)
	}
}

// recordingExecutor passes statements to the store and records them for
// the current query.
type recordingExecutor struct {
	next     star.Executor
	compiler *querysql.SQLCompiler

	mu     sync.Mutex
	query  string
	events []StatementEvent
}

var _ star.Executor = (*recordingExecutor)(nil)

func (r *recordingExecutor) begin(query string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.query = query
	r.events = nil
}

// end returns the statements recorded since begin, sorted by SQL.
func (r *recordingExecutor) end() []StatementEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	events := r.events
	r.events = nil
	sort.SliceStable(events, func(i, j int) bool { return events[i].SQL < events[j].SQL })
	return events
}

func (r *recordingExecutor) Execute(ctx context.Context, q queryir.Query) ([]map[string]any, error) {
	sql, params, err := r.compiler.Compile(q)
	if err != nil {
		return nil, err
	}
	rows, err := r.next.Execute(ctx, q)

	r.mu.Lock()
	r.events = append(r.events, StatementEvent{Query: r.query, SQL: sql, Params: params, Rows: len(rows)})
	r.mu.Unlock()

	return rows, err
}
