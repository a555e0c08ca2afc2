package store

import (
	"context"
	"fmt"
	"strings"
)

// ExecScript runs one or more SQL statements separated by semicolons.
// Used to create fixture schemas.
func (s *Store) ExecScript(ctx context.Context, script string) error {
	for _, stmt := range splitStatements(script) {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("exec script: %w", err)
		}
	}
	return nil
}

// InsertRows inserts rows into table inside a single transaction. Each row
// must carry one value per column.
func (s *Store) InsertRows(ctx context.Context, table string, columns []string, rows [][]any) error {
	if len(columns) == 0 {
		return fmt.Errorf("insert into %s: no columns", table)
	}
	if len(rows) == 0 {
		return nil
	}

	quoted := make([]string, len(columns))
	marks := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = quoteIdent(c)
		marks[i] = "?"
	}
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		quoteIdent(table), strings.Join(quoted, ", "), strings.Join(marks, ", "))

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("insert into %s: %w", table, err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("insert into %s: %w", table, err)
	}
	defer stmt.Close()

	for i, row := range rows {
		if len(row) != len(columns) {
			return fmt.Errorf("insert into %s: row %d has %d values, want %d", table, i, len(row), len(columns))
		}
		if _, err := stmt.ExecContext(ctx, row...); err != nil {
			return fmt.Errorf("insert into %s: row %d: %w", table, i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("insert into %s: commit: %w", table, err)
	}
	return nil
}

// splitStatements splits a script on semicolons outside quoted text and
// drops empty statements.
func splitStatements(script string) []string {
	var stmts []string
	var sb strings.Builder
	var quote rune

	for _, r := range script {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			}
		case r == '\'' || r == '"':
			quote = r
		case r == ';':
			if s := strings.TrimSpace(sb.String()); s != "" {
				stmts = append(stmts, s)
			}
			sb.Reset()
			continue
		}
		sb.WriteRune(r)
	}
	if s := strings.TrimSpace(sb.String()); s != "" {
		stmts = append(stmts, s)
	}
	return stmts
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
