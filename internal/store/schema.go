package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/farxc/cuipo/internal/config"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// workingTableDDL lists every working column. Source data arrives as text from
// spreadsheets, so only cantidad_producto is typed.
func workingTableDDL(table string) string {
	cols := []string{"id SERIAL PRIMARY KEY"}
	for _, c := range BaseColumns {
		cols = append(cols, pq.QuoteIdentifier(c)+" TEXT")
	}
	for _, c := range AmountColumns {
		cols = append(cols, pq.QuoteIdentifier(c)+" TEXT")
	}
	for _, c := range DerivedColumns {
		typ := "TEXT"
		if c.Type == IntegerColumn {
			typ = "INTEGER"
		}
		cols = append(cols, pq.QuoteIdentifier(c.Name)+" "+typ)
	}
	for _, c := range ValidatorFields {
		cols = append(cols, pq.QuoteIdentifier(c)+" TEXT")
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n\t%s\n)", table, strings.Join(cols, ",\n\t"))
}

func runsTableDDL(table string) string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id BIGSERIAL PRIMARY KEY,
	batch_id TEXT,
	stage INTEGER NOT NULL,
	name TEXT NOT NULL,
	status TEXT NOT NULL,
	steps JSONB NOT NULL DEFAULT '[]',
	error_kind TEXT,
	error TEXT,
	started_at TIMESTAMPTZ NOT NULL,
	finished_at TIMESTAMPTZ NOT NULL
)`, table)
}

// EnsureSchema creates the schema, the run ledger and the working table when they
// are missing. Existing tables are left as they are.
func EnsureSchema(ctx context.Context, db *sqlx.DB, catalog config.Catalog) error {
	stmts := []string{
		fmt.Sprintf(`CREATE SCHEMA IF NOT EXISTS %s`, pq.QuoteIdentifier(catalog.Schema)),
		runsTableDDL(catalog.Runs()),
		workingTableDDL(catalog.Working()),
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to ensure schema: %w", err)
		}
	}
	return nil
}
