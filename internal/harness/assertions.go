package harness

import (
	"context"
	"fmt"
	"math"
	"reflect"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/roach88/starcube/internal/store"
)

// validIdentifier matches valid SQL identifiers (table/column names).
// Only allows alphanumeric and underscore, must start with letter or underscore.
var validIdentifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string           // Assertion type for categorization
	Expected string           // Human-readable expected outcome
	Actual   string           // Human-readable actual outcome
	Trace    []StatementEvent // Statements for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nStatements:\n")
		for i, event := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s: %s %v\n", i+1, event.Query, event.SQL, event.Params)
		}
	}

	return buf.String()
}

// assertStatementContains checks that a statement of the query (any query
// when none is named) contains the SQL fragment.
func assertStatementContains(trace []StatementEvent, assertion Assertion) error {
	for _, event := range trace {
		if assertion.Query != "" && event.Query != assertion.Query {
			continue
		}
		if strings.Contains(event.SQL, assertion.SQL) {
			return nil
		}
	}

	where := "any query"
	if assertion.Query != "" {
		where = "query " + assertion.Query
	}
	return &AssertionError{
		Type:     AssertStatementContains,
		Expected: fmt.Sprintf("statement of %s containing %q", where, assertion.SQL),
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

// assertStatementCount checks that the query executed exactly the
// specified number of statements.
func assertStatementCount(trace []StatementEvent, assertion Assertion) error {
	count := 0
	for _, event := range trace {
		if event.Query == assertion.Query {
			count++
		}
	}

	if count != assertion.Count {
		return &AssertionError{
			Type:     AssertStatementCount,
			Expected: fmt.Sprintf("%d statements for %s", assertion.Count, assertion.Query),
			Actual:   fmt.Sprintf("%d statements", count),
			Trace:    trace,
		}
	}
	return nil
}

// assertTableRow checks that the row of a table matching Where contains
// the expected values. Where must match exactly one row.
//
// Table and column names are validated against a whitelist pattern since
// identifiers cannot be parameterized.
func assertTableRow(ctx context.Context, st *store.Store, assertion Assertion) error {
	if !validIdentifier.MatchString(assertion.Table) {
		return fmt.Errorf("invalid table name %q: must match pattern %s", assertion.Table, validIdentifier.String())
	}

	whereSQL, whereArgs, err := buildWhereClause(assertion.Where)
	if err != nil {
		return err
	}

	query := fmt.Sprintf("SELECT * FROM %s", assertion.Table)
	if whereSQL != "" {
		query += " WHERE " + whereSQL
	}

	rows, err := st.QueryMaps(ctx, query, whereArgs...)
	if err != nil {
		return &AssertionError{
			Type:     AssertTableRow,
			Expected: fmt.Sprintf("query table %s", assertion.Table),
			Actual:   fmt.Sprintf("query error: %v", err),
		}
	}

	whereDesc := formatWhereClause(assertion.Where)
	switch len(rows) {
	case 0:
		return &AssertionError{
			Type:     AssertTableRow,
			Expected: fmt.Sprintf("row in %s where %s", assertion.Table, whereDesc),
			Actual:   "row not found",
		}
	case 1:
	default:
		return &AssertionError{
			Type:     AssertTableRow,
			Expected: fmt.Sprintf("exactly one row in %s where %s", assertion.Table, whereDesc),
			Actual:   fmt.Sprintf("%d rows matched (assertion is ambiguous)", len(rows)),
		}
	}

	if msg := matchSubset(rows[0], assertion.Expect); msg != "" {
		return &AssertionError{
			Type:     AssertTableRow,
			Expected: fmt.Sprintf("row in %s where %s with %v", assertion.Table, whereDesc, assertion.Expect),
			Actual:   msg,
		}
	}
	return nil
}

// buildWhereClause constructs a parameterized WHERE clause. Keys are
// sorted for determinism.
func buildWhereClause(where map[string]any) (string, []any, error) {
	if len(where) == 0 {
		return "", nil, nil
	}

	keys := sortedKeys(where)
	clauses := make([]string, 0, len(keys))
	args := make([]any, 0, len(keys))
	for _, key := range keys {
		if !validIdentifier.MatchString(key) {
			return "", nil, fmt.Errorf("invalid column name %q in where clause: must match pattern %s", key, validIdentifier.String())
		}
		clauses = append(clauses, fmt.Sprintf("%s = ?", key))
		args = append(args, where[key])
	}
	return strings.Join(clauses, " AND "), args, nil
}

// formatWhereClause creates a human-readable description of WHERE conditions.
func formatWhereClause(where map[string]any) string {
	if len(where) == 0 {
		return "(no conditions)"
	}
	keys := sortedKeys(where)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, where[k]))
	}
	return strings.Join(parts, " AND ")
}

// checkExpect compares a query output against an expect clause and
// returns one message per mismatch.
func checkExpect(out *queryOutput, expect *Expect) []string {
	var msgs []string

	if out.isFact {
		if expect.Nil && out.found {
			msgs = append(msgs, "expected no fact, found one")
		}
		if !expect.Nil && !out.found {
			msgs = append(msgs, "expected a fact, found none")
		}
	}

	rows := out.rows
	if out.aggregate != nil {
		rows = out.aggregate.Cells
		if msg := matchSubset(out.aggregate.Summary, expect.Summary); msg != "" {
			msgs = append(msgs, "summary: "+msg)
		}
		if expect.Cells != nil && len(out.aggregate.Cells) != *expect.Cells {
			msgs = append(msgs, fmt.Sprintf("expected %d cells, got %d", *expect.Cells, len(out.aggregate.Cells)))
		}
		if expect.TotalCellCount != nil && out.aggregate.TotalCellCount != *expect.TotalCellCount {
			msgs = append(msgs, fmt.Sprintf("expected total_cell_count %d, got %d", *expect.TotalCellCount, out.aggregate.TotalCellCount))
		}
	} else if expect.Summary != nil || expect.Cells != nil || expect.TotalCellCount != nil {
		msgs = append(msgs, "summary, cells and total_cell_count apply to aggregate queries only")
	}

	if expect.Rows != nil && out.aggregate == nil && len(rows) != *expect.Rows {
		msgs = append(msgs, fmt.Sprintf("expected %d rows, got %d", *expect.Rows, len(rows)))
	}

	if len(expect.First) > 0 {
		if len(rows) == 0 {
			msgs = append(msgs, "expected a first row, got none")
		} else if msg := matchSubset(rows[0], expect.First); msg != "" {
			msgs = append(msgs, "first: "+msg)
		}
	}
	return msgs
}

// matchSubset checks that actual contains every expected key with an
// equal value. Extra keys in actual are ignored. It returns "" on match.
func matchSubset(actual, expected map[string]any) string {
	for _, key := range sortedKeys(expected) {
		actualVal, exists := actual[key]
		if !exists {
			return fmt.Sprintf("field %q not present", key)
		}
		if !valuesEqual(expected[key], actualVal) {
			return fmt.Sprintf("field %q = %v (type %T), want %v (type %T)", key, actualVal, actualVal, expected[key], expected[key])
		}
	}
	return ""
}

// valuesEqual compares an expected value from scenario YAML with a value
// returned by the store. Both sides are normalized first, so int and int64
// compare equal and integral floats compare equal to integers.
func valuesEqual(expected, actual any) bool {
	return reflect.DeepEqual(normalizeValue(expected), normalizeValue(actual))
}

// normalizeValue converts a value to the types canonical JSON accepts:
// integers become int64, integral floats become int64, other floats and
// times become strings, and maps and slices are converted recursively.
func normalizeValue(v any) any {
	switch val := v.(type) {
	case nil, string, bool, int64:
		return val
	case int:
		return int64(val)
	case int8:
		return int64(val)
	case int16:
		return int64(val)
	case int32:
		return int64(val)
	case uint8:
		return int64(val)
	case uint16:
		return int64(val)
	case uint32:
		return int64(val)
	case uint64:
		if val <= math.MaxInt64 {
			return int64(val)
		}
		return strconv.FormatUint(val, 10)
	case float32:
		return normalizeFloat(float64(val))
	case float64:
		return normalizeFloat(val)
	case []byte:
		return string(val)
	case time.Time:
		return val.UTC().Format(time.RFC3339Nano)
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, e := range val {
			out[k] = normalizeValue(e)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, e := range val {
			out[i] = normalizeValue(e)
		}
		return out
	case []map[string]any:
		return normalizeRows(val)
	default:
		return fmt.Sprintf("%v", val)
	}
}

func normalizeFloat(f float64) any {
	if f == math.Trunc(f) && math.Abs(f) < 1<<53 {
		return int64(f)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

func normalizeRows(rows []map[string]any) []any {
	out := make([]any, len(rows))
	for i, row := range rows {
		out[i] = normalizeValue(row)
	}
	return out
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// AssertionContext provides database access for table_row assertions.
type AssertionContext struct {
	Store *store.Store
	Ctx   context.Context
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertStatementContains:
			err = assertStatementContains(result.Trace, assertion)
		case AssertStatementCount:
			err = assertStatementCount(result.Trace, assertion)
		case AssertTableRow:
			if actx == nil || actx.Store == nil {
				err = fmt.Errorf("assertion[%d]: table_row requires database context", i)
			} else {
				err = assertTableRow(actx.Ctx, actx.Store, assertion)
			}
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
