// Package querysql compiles queryir statements to parameterized SQL.
//
// The emitted subset (quoted identifiers, inner and left joins, GROUP BY,
// the six aggregation functions, LIMIT/OFFSET and ? placeholders) is shared
// by SQLite and DuckDB, so a single compiler serves both store drivers.
package querysql
