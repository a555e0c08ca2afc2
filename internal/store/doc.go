// Package store runs planned queries against an embedded SQL database.
//
// A Store wraps a database/sql handle opened with one of two drivers:
//   - sqlite3: github.com/mattn/go-sqlite3, the default
//   - duckdb: github.com/duckdb/duckdb-go/v2, a columnar engine for larger facts
//
// Queries arrive as queryir values and are compiled by querysql, so the
// same statement runs unchanged on both engines. Result rows come back as
// maps keyed by column label with driver-specific values normalized:
// integers of every width become int64, DuckDB HUGEINT sums become int64
// when they fit, and byte slices become strings.
//
// # Database Configuration
//
// SQLite connections use:
//   - synchronous=NORMAL
//   - busy_timeout=5000
//   - foreign_keys=ON
//   - a single open connection, so ":memory:" databases stay shared
//
// File-backed SQLite databases also switch to WAL mode.
package store
