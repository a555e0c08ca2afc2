package star

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/starcube/internal/cube"
	"github.com/roach88/starcube/internal/queryir"
	"github.com/roach88/starcube/internal/store"
	"github.com/roach88/starcube/internal/testutil"
)

var drivers = []string{store.DriverSQLite, store.DriverDuckDB}

func salesBrowser(t *testing.T, driver string, opts ...Option) *Browser {
	t.Helper()
	b, err := NewBrowser(testutil.SalesModel(t), "sales", testutil.SalesStore(t, driver), opts...)
	require.NoError(t, err)
	return b
}

func calendarBrowser(t *testing.T) *Browser {
	t.Helper()
	b, err := NewBrowser(testutil.CalendarModel(t), "cube", testutil.CalendarStore(t, store.DriverSQLite))
	require.NoError(t, err)
	return b
}

func cell(t *testing.T, b *Browser, cuts ...cube.Cut) *cube.Cell {
	t.Helper()
	c, err := cube.NewCell(b.Cube(), cuts...)
	require.NoError(t, err)
	return c
}

func drilldown(t *testing.T, specs ...string) []cube.DrilldownRequest {
	t.Helper()
	reqs, err := cube.ParseDrilldowns(specs)
	require.NoError(t, err)
	return reqs
}

// fakeExecutor records statements and answers them from fn.
type fakeExecutor struct {
	fn func(q queryir.Query) ([]map[string]any, error)

	queries chan queryir.Query
}

func newFakeExecutor(fn func(q queryir.Query) ([]map[string]any, error)) *fakeExecutor {
	return &fakeExecutor{fn: fn, queries: make(chan queryir.Query, 16)}
}

func (f *fakeExecutor) Execute(_ context.Context, q queryir.Query) ([]map[string]any, error) {
	f.queries <- q
	return f.fn(q)
}

func (f *fakeExecutor) received() []queryir.Query {
	var qs []queryir.Query
	for {
		select {
		case q := <-f.queries:
			qs = append(qs, q)
		default:
			return qs
		}
	}
}
