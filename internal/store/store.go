package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/duckdb/duckdb-go/v2"
	_ "github.com/mattn/go-sqlite3"
)

// Supported database/sql driver names.
const (
	DriverSQLite = "sqlite3"
	DriverDuckDB = "duckdb"
)

// MemoryDSN opens a private in-memory database with either driver.
const MemoryDSN = ":memory:"

// Store executes planned queries against a SQLite or DuckDB database.
type Store struct {
	db     *sql.DB
	driver string
}

// Open opens a database with the given driver and data source name.
// An empty driver selects SQLite.
func Open(driver, dsn string) (*Store, error) {
	if driver == "" {
		driver = DriverSQLite
	}

	switch driver {
	case DriverSQLite:
		return openSQLite(dsn)
	case DriverDuckDB:
		return openDuckDB(dsn)
	default:
		return nil, fmt.Errorf("unsupported driver %q (want %s or %s)", driver, DriverSQLite, DriverDuckDB)
	}
}

// OpenMemory opens a private in-memory SQLite database.
func OpenMemory() (*Store, error) {
	return Open(DriverSQLite, MemoryDSN)
}

func openSQLite(dsn string) (*Store, error) {
	if dsn == "" {
		dsn = MemoryDSN
	}

	db, err := sql.Open(DriverSQLite, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Every connection to ":memory:" is a separate database.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := applyPragmas(db, dsn != MemoryDSN); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	return &Store{db: db, driver: DriverSQLite}, nil
}

func openDuckDB(dsn string) (*Store, error) {
	if dsn == MemoryDSN {
		dsn = ""
	}

	db, err := sql.Open(DriverDuckDB, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return &Store{db: db, driver: DriverDuckDB}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB returns the underlying sql.DB for direct queries.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Driver returns the database/sql driver name the store was opened with.
func (s *Store) Driver() string {
	return s.driver
}

// Query executes raw SQL and returns the resulting rows.
// Callers are responsible for closing the returned rows.
func (s *Store) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return s.db.QueryContext(ctx, query, args...)
}

func applyPragmas(db *sql.DB, wal bool) error {
	pragmas := []string{
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	if wal {
		pragmas = append([]string{"PRAGMA journal_mode = WAL"}, pragmas...)
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

// verifyPragma checks that a SQLite pragma is set to the expected value.
func (s *Store) verifyPragma(name, expected string) error {
	var value string
	query := fmt.Sprintf("PRAGMA %s", name)
	if err := s.db.QueryRow(query).Scan(&value); err != nil {
		return fmt.Errorf("failed to query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}
