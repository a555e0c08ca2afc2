package star

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/starcube/internal/cube"
	"github.com/roach88/starcube/internal/ir"
	"github.com/roach88/starcube/internal/mapper"
	"github.com/roach88/starcube/internal/model"
	"github.com/roach88/starcube/internal/queryir"
	"github.com/roach88/starcube/internal/querysql"
)

// Executor runs a statement and returns its rows keyed by field label.
// A Count returns one row with the count under its label.
type Executor interface {
	Execute(ctx context.Context, q queryir.Query) ([]map[string]any, error)
}

// Option configures a Browser.
type Option func(*Browser)

// WithLogger sets the logger statements are logged to at Debug level.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Browser) {
		b.logger = logger
	}
}

// WithLocale sets the locale for localized attributes.
func WithLocale(locale string) Option {
	return func(b *Browser) {
		b.locale = locale
	}
}

// WithRequestIDGenerator replaces the UUIDv7 request id generator.
func WithRequestIDGenerator(gen RequestIDGenerator) Option {
	return func(b *Browser) {
		b.ids = gen
	}
}

// Browser answers aggregation, member and detail queries for one cube.
// It is read-only after NewBrowser and safe for concurrent use.
type Browser struct {
	cube     *model.Cube
	mapper   *mapper.Mapper
	context  *QueryContext
	exec     Executor
	logger   *slog.Logger
	locale   string
	ids      RequestIDGenerator
	compiler *querysql.SQLCompiler
}

// NewBrowser creates a browser for the named cube. exec may be nil for a
// browser that only plans statements.
func NewBrowser(m *model.Model, cubeName string, exec Executor, opts ...Option) (*Browser, error) {
	c, err := m.Cube(cubeName)
	if err != nil {
		return nil, err
	}

	b := &Browser{
		cube:     c,
		exec:     exec,
		logger:   slog.Default(),
		ids:      UUIDv7Generator{},
		compiler: querysql.NewSQLCompiler(),
	}
	for _, opt := range opts {
		opt(b)
	}

	var mopts []mapper.Option
	if b.locale != "" {
		mopts = append(mopts, mapper.WithLocale(b.locale))
	}
	b.mapper, err = mapper.New(m, c, mopts...)
	if err != nil {
		return nil, fmt.Errorf("cube '%s': %w", c.Name, err)
	}
	b.context = NewQueryContext(b.mapper, b.locale)
	return b, nil
}

// Cube returns the browsed cube.
func (b *Browser) Cube() *model.Cube {
	return b.cube
}

// Context returns the browser's query context.
func (b *Browser) Context() *QueryContext {
	return b.context
}

// FullCube returns a cell without cuts.
func (b *Browser) FullCube() *cube.Cell {
	return cube.MustCell(b.cube)
}

// AggregateRequest selects measures and drilldown. No measures means all
// measures of the cube. PageSize > 0 pages the drilldown cells.
type AggregateRequest struct {
	Measures  []string
	Drilldown []cube.DrilldownRequest
	Page      int
	PageSize  int
}

// AggregationResult holds the summary and the drilldown cells.
type AggregationResult struct {
	// Summary has one entry per requested measure aggregate plus record_count.
	Summary map[string]any

	// Cells has one row per drilldown group: level attributes and aggregates.
	// Nil without drilldown.
	Cells []map[string]any

	// TotalCellCount is the number of groups regardless of paging.
	TotalCellCount int

	Measures  []string
	Drilldown []cube.DrilldownItem

	// Levels maps each drilled dimension to its drilled level names.
	Levels map[string][]string

	// StatementID fingerprints the summary statement.
	StatementID string
}

// Plan is the set of statements an aggregation runs.
type Plan struct {
	Summary   *queryir.Select
	Cells     *queryir.Select // nil without drilldown
	Count     *queryir.Count  // nil unless cells are paged
	Measures  []*model.Measure
	Drilldown []cube.DrilldownItem
}

// PlanAggregate builds the statements for an aggregation without running them.
func (b *Browser) PlanAggregate(cell *cube.Cell, req AggregateRequest) (*Plan, error) {
	if cell == nil {
		cell = b.FullCube()
	}
	if cell.Cube() != b.cube {
		return nil, fmt.Errorf("cell of cube '%s' used with browser of cube '%s'", cell.Cube().Name, b.cube.Name)
	}

	measures, err := b.cube.MeasuresByName(req.Measures)
	if err != nil {
		return nil, err
	}
	drilldown, err := b.levelsFromDrilldown(cell, req.Drilldown)
	if err != nil {
		return nil, err
	}

	plan := &Plan{Measures: measures, Drilldown: drilldown}
	if plan.Summary, err = b.context.AggregationStatement(cell, measures, nil); err != nil {
		return nil, fmt.Errorf("plan summary: %w", err)
	}
	if len(drilldown) == 0 {
		return plan, nil
	}

	if plan.Cells, err = b.context.AggregationStatement(cell, measures, drilldown); err != nil {
		return nil, fmt.Errorf("plan drilldown: %w", err)
	}
	if req.PageSize > 0 {
		grouped := *plan.Cells
		plan.Count = &queryir.Count{Inner: &grouped, Label: "count"}
		plan.Cells.Limit = req.PageSize
		plan.Cells.Offset = max(req.Page, 0) * req.PageSize
	}
	return plan, nil
}

// levelsFromDrilldown resolves drilldown requests with keys named the way
// result rows name them.
func (b *Browser) levelsFromDrilldown(cell *cube.Cell, reqs []cube.DrilldownRequest) ([]cube.DrilldownItem, error) {
	items, err := cube.LevelsFromDrilldown(cell, reqs)
	if err != nil {
		return nil, err
	}
	for i := range items {
		items[i].Keys = b.keyRefs(items[i].Levels)
	}
	return items, nil
}

func (b *Browser) keyRefs(levels []*model.Level) []string {
	keys := make([]string, len(levels))
	for i, l := range levels {
		keys[i] = b.mapper.Logical(l.Key)
	}
	return keys
}

// Aggregate computes the summary of a cell and, with drilldown, one row per
// group of the drilled levels. The summary, cells and count statements run
// concurrently; if any fails, Aggregate fails.
func (b *Browser) Aggregate(ctx context.Context, cell *cube.Cell, req AggregateRequest) (*AggregationResult, error) {
	plan, err := b.PlanAggregate(cell, req)
	if err != nil {
		return nil, err
	}

	requestID := b.ids.Generate()
	result := &AggregationResult{Drilldown: plan.Drilldown, Levels: make(map[string][]string)}
	for _, m := range plan.Measures {
		result.Measures = append(result.Measures, m.Name)
	}
	for _, item := range plan.Drilldown {
		for _, l := range item.Levels {
			result.Levels[item.Dimension.Name] = append(result.Levels[item.Dimension.Name], l.Name)
		}
	}
	if result.StatementID, err = b.statementID(plan.Summary); err != nil {
		return nil, err
	}

	var (
		summaryRows []map[string]any
		countRows   []map[string]any
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rows, err := b.execute(gctx, requestID, "summary", plan.Summary)
		summaryRows = rows
		return err
	})
	if plan.Cells != nil {
		g.Go(func() error {
			rows, err := b.execute(gctx, requestID, "cells", plan.Cells)
			result.Cells = rows
			return err
		})
	}
	if plan.Count != nil {
		g.Go(func() error {
			rows, err := b.execute(gctx, requestID, "count", plan.Count)
			countRows = rows
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result.Summary = make(map[string]any)
	if len(summaryRows) > 0 {
		for _, f := range plan.Summary.Fields {
			result.Summary[f.Label] = summaryRows[0][f.Label]
		}
	}

	switch {
	case plan.Count != nil:
		total, err := countValue(countRows, plan.Count.Label)
		if err != nil {
			return nil, err
		}
		result.TotalCellCount = total
	case plan.Cells != nil:
		if result.Cells == nil {
			result.Cells = []map[string]any{}
		}
		result.TotalCellCount = len(result.Cells)
	}

	return result, nil
}

// Facts returns the denormalized fact rows of a cell ordered by fact key.
// PageSize > 0 returns one page.
func (b *Browser) Facts(ctx context.Context, cell *cube.Cell, page, pageSize int) ([]map[string]any, error) {
	if cell == nil {
		cell = b.FullCube()
	}
	sel, err := b.context.FactsStatement(cell)
	if err != nil {
		return nil, err
	}
	if pageSize > 0 {
		sel.Limit = pageSize
		sel.Offset = max(page, 0) * pageSize
	}
	return b.execute(ctx, b.ids.Generate(), "facts", sel)
}

// Fact returns the denormalized row of one fact, or nil when no fact has
// the key.
func (b *Browser) Fact(ctx context.Context, key any) (map[string]any, error) {
	k, err := ir.FromGo(key)
	if err != nil {
		return nil, fmt.Errorf("fact key: %w", err)
	}
	rows, err := b.execute(ctx, b.ids.Generate(), "fact", b.context.FactStatement(k))
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

// Members returns the distinct members of the first depth levels of the
// dimension's hierarchy in the cell (all levels when depth <= 0). The
// hierarchy is the one the cell cuts the dimension through, else the
// default.
func (b *Browser) Members(ctx context.Context, cell *cube.Cell, dimension string, depth int) ([]map[string]any, error) {
	if cell == nil {
		cell = b.FullCube()
	}
	items, err := cube.LevelsFromDrilldown(cell, []cube.DrilldownRequest{{Dimension: dimension}})
	if err != nil {
		return nil, err
	}
	hier := items[0].Hierarchy
	if depth <= 0 || depth > hier.Depth() {
		depth = hier.Depth()
	}

	items, err = b.levelsFromDrilldown(cell, []cube.DrilldownRequest{{
		Dimension: dimension,
		Hierarchy: hier.Name,
		Level:     hier.Levels[depth-1].Name,
	}})
	if err != nil {
		return nil, err
	}

	sel, err := b.context.MembersStatement(cell, items[0])
	if err != nil {
		return nil, err
	}
	return b.execute(ctx, b.ids.Generate(), "members", sel)
}

// CutDetails describes the members on a point cut's path: one map per
// level with every level attribute plus "_key" and "_label". It returns nil
// for other cut types and when the path addresses no member.
func (b *Browser) CutDetails(ctx context.Context, cut cube.Cut) ([]map[string]any, error) {
	point, ok := cut.(cube.PointCut)
	if !ok {
		if p, isPtr := cut.(*cube.PointCut); isPtr {
			point, ok = *p, true
		}
	}
	if !ok || len(point.Path) == 0 {
		return nil, nil
	}

	cell, err := cube.NewCell(b.cube, point)
	if err != nil {
		return nil, err
	}
	_, hier, err := cube.ResolveHierarchy(b.cube, point)
	if err != nil {
		return nil, err
	}
	item := cube.DrilldownItem{Levels: hier.LevelsForDepth(len(point.Path))}
	item.Dimension, item.Hierarchy = hier.Dimension, hier
	item.Keys = b.keyRefs(item.Levels)

	sel, err := b.context.MembersStatement(cell, item)
	if err != nil {
		return nil, err
	}
	sel.Limit = 1

	rows, err := b.execute(ctx, b.ids.Generate(), "cut_details", sel)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	row := rows[0]

	details := make([]map[string]any, 0, len(item.Levels))
	for _, l := range item.Levels {
		d := make(map[string]any, len(l.Attributes)+2)
		for _, a := range l.Attributes {
			d[b.mapper.Logical(a)] = row[b.mapper.Logical(a)]
		}
		d["_key"] = row[b.mapper.Logical(l.Key)]
		d["_label"] = row[b.mapper.Logical(l.Label)]
		details = append(details, d)
	}
	return details, nil
}

// CellDetails returns CutDetails for every cut of the cell, in cut order.
func (b *Browser) CellDetails(ctx context.Context, cell *cube.Cell) ([][]map[string]any, error) {
	details := make([][]map[string]any, 0, len(cell.Cuts()))
	for _, cut := range cell.Cuts() {
		d, err := b.CutDetails(ctx, cut)
		if err != nil {
			return nil, err
		}
		details = append(details, d)
	}
	return details, nil
}

func (b *Browser) execute(ctx context.Context, requestID, kind string, q queryir.Query) ([]map[string]any, error) {
	if b.exec == nil {
		return nil, fmt.Errorf("%s: browser has no executor", kind)
	}

	if b.logger.Enabled(ctx, slog.LevelDebug) {
		stmt, err := b.compiler.CompileStatement(q)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", kind, err)
		}
		planID, _ := stmt.ID()
		b.logger.Debug("executing statement",
			"request_id", requestID,
			"plan_id", planID,
			"cube", b.cube.Name,
			"kind", kind,
			"sql", stmt.SQL,
		)
	}

	rows, err := b.exec.Execute(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", kind, err)
	}
	return rows, nil
}

func (b *Browser) statementID(q queryir.Query) (string, error) {
	stmt, err := b.compiler.CompileStatement(q)
	if err != nil {
		return "", err
	}
	return stmt.ID()
}

func countValue(rows []map[string]any, label string) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	v, err := ir.FromGo(rows[0][label])
	if err != nil {
		return 0, fmt.Errorf("count: %w", err)
	}
	n, ok := v.(ir.IRInt)
	if !ok {
		return 0, fmt.Errorf("count: unexpected value %v", rows[0][label])
	}
	return int(n), nil
}
