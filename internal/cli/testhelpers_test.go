package cli

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/starcube/internal/store"
)

var (
	shopModel  = filepath.Join("..", "harness", "testdata", "models", "shop.cue")
	salesModel = filepath.Join("..", "testutil", "models", "sales.cue")
)

const shopSchema = `
CREATE TABLE dim_store (id INTEGER PRIMARY KEY, country TEXT, city TEXT);
CREATE TABLE orders (id INTEGER PRIMARY KEY, amount INTEGER, channel TEXT, store_id INTEGER);
`

// shopDB creates a SQLite file holding the shop model's tables.
func shopDB(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "shop.db")
	st, err := store.Open(store.DriverSQLite, path)
	require.NoError(t, err)
	defer st.Close()

	ctx := context.Background()
	require.NoError(t, st.ExecScript(ctx, shopSchema))
	require.NoError(t, st.InsertRows(ctx, "dim_store", []string{"id", "country", "city"}, [][]any{
		{1, "SK", "Bratislava"},
		{2, "SK", "Kosice"},
		{3, "CZ", "Praha"},
	}))
	require.NoError(t, st.InsertRows(ctx, "orders", []string{"id", "amount", "channel", "store_id"}, [][]any{
		{1, 10, "web", 1},
		{2, 20, "shop", 1},
		{3, 30, "web", 2},
		{4, 40, "web", 3},
	}))
	return path
}

// execute runs the root command with args and returns its stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	out := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}
