package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/farxc/cuipo/internal/config"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

type UploadStore struct {
	db      *sqlx.DB
	catalog config.Catalog
}

// Replace drops table, recreates it with an id plus one TEXT column per name and
// bulk loads rows with COPY, all in one transaction.
func (us *UploadStore) Replace(ctx context.Context, table string, columns []string, rows [][]string) (int64, error) {
	if len(columns) == 0 {
		return 0, fmt.Errorf("table %s has no columns", table)
	}

	defs := []string{"id SERIAL PRIMARY KEY"}
	for _, c := range columns {
		defs = append(defs, pq.QuoteIdentifier(c)+" TEXT")
	}

	tx, err := us.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	qualified := us.catalog.Qualify(table)
	if _, err := tx.ExecContext(ctx, fmt.Sprintf(`DROP TABLE IF EXISTS %s`, qualified)); err != nil {
		return 0, fmt.Errorf("failed to drop table %s: %w", table, err)
	}
	if _, err := tx.ExecContext(ctx, fmt.Sprintf(`CREATE TABLE %s (%s)`, qualified, strings.Join(defs, ", "))); err != nil {
		return 0, fmt.Errorf("failed to create table %s: %w", table, err)
	}

	stmt, err := tx.PrepareContext(ctx, pq.CopyInSchema(us.catalog.Schema, table, columns...))
	if err != nil {
		return 0, fmt.Errorf("failed to prepare copy into %s: %w", table, err)
	}
	defer stmt.Close()

	for i, row := range rows {
		args := make([]any, len(columns))
		for j := range columns {
			if j < len(row) {
				args[j] = row[j]
			} else {
				args[j] = ""
			}
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return 0, fmt.Errorf("failed to copy row %d into %s: %w", i+1, table, err)
		}
	}
	if _, err := stmt.ExecContext(ctx); err != nil {
		return 0, fmt.Errorf("failed to flush copy into %s: %w", table, err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit upload of %s: %w", table, err)
	}
	return int64(len(rows)), nil
}
