package store

import (
	"context"
	"fmt"
	"math/big"

	"github.com/roach88/starcube/internal/queryir"
	"github.com/roach88/starcube/internal/querysql"
)

// Execute compiles a planned query and returns its rows as maps keyed by
// column label. Rows keep the order the statement produces.
func (s *Store) Execute(ctx context.Context, q queryir.Query) ([]map[string]any, error) {
	query, args, err := querysql.NewSQLCompiler().Compile(q)
	if err != nil {
		return nil, fmt.Errorf("execute: %w", err)
	}
	return s.QueryMaps(ctx, query, args...)
}

// QueryMaps runs raw SQL and scans every row into a map keyed by column
// name.
func (s *Store) QueryMaps(ctx context.Context, query string, args ...any) ([]map[string]any, error) {
	rows, err := s.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("query columns: %w", err)
	}

	var result []map[string]any
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}

		row := make(map[string]any, len(columns))
		for i, col := range columns {
			row[col] = normalizeValue(values[i])
		}
		result = append(result, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	return result, nil
}

// normalizeValue maps driver-specific scan results onto the value kinds
// callers compare against: int64, float64, string, bool, time.Time and nil.
func normalizeValue(v any) any {
	switch x := v.(type) {
	case []byte:
		return string(x)
	case int:
		return int64(x)
	case int8:
		return int64(x)
	case int16:
		return int64(x)
	case int32:
		return int64(x)
	case uint8:
		return int64(x)
	case uint16:
		return int64(x)
	case uint32:
		return int64(x)
	case uint64:
		if x <= 1<<63-1 {
			return int64(x)
		}
		return x
	case float32:
		return float64(x)
	case *big.Int:
		if x == nil {
			return nil
		}
		if x.IsInt64() {
			return x.Int64()
		}
		return x.String()
	default:
		return v
	}
}
