package store

import (
	"context"
	"fmt"

	"github.com/farxc/cuipo/internal/config"
	"github.com/jmoiron/sqlx"
)

type TableStore struct {
	db      *sqlx.DB
	catalog config.Catalog
}

const tableExistsQuery = `SELECT EXISTS (
		SELECT 1 FROM information_schema.tables
		WHERE table_schema = $1 AND table_name = $2
	)`

func (ts *TableStore) Exists(ctx context.Context, table string) (bool, error) {
	var exists bool
	if err := ts.db.GetContext(ctx, &exists, tableExistsQuery, ts.catalog.Schema, table); err != nil {
		return false, fmt.Errorf("failed to check table %s: %w", table, err)
	}
	return exists, nil
}

// List returns the base tables of the schema.
func (ts *TableStore) List(ctx context.Context) ([]string, error) {
	query := `
	SELECT table_name
	FROM information_schema.tables
	WHERE table_schema = $1
		AND table_type = 'BASE TABLE'
	ORDER BY table_name`

	var tables []string
	if err := ts.db.SelectContext(ctx, &tables, query, ts.catalog.Schema); err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	return tables, nil
}

// ListExecution returns the tables an operator may pick as execution data: the
// working table, the snapshot source and any prefixed execution upload.
func (ts *TableStore) ListExecution(ctx context.Context) ([]string, error) {
	query := `
	SELECT table_name
	FROM information_schema.tables
	WHERE table_schema = $1
		AND (table_name = $2 OR table_name = $3 OR table_name LIKE $4)
	ORDER BY table_name`

	var tables []string
	err := ts.db.SelectContext(ctx, &tables, query,
		ts.catalog.Schema, ts.catalog.WorkingTable, ts.catalog.SnapshotTable, ts.catalog.ExecutionTablePrefix+"%")
	if err != nil {
		return nil, fmt.Errorf("failed to list execution tables: %w", err)
	}
	return tables, nil
}

// Rows returns every row of table. The name is checked against the schema before
// it is used in SQL.
func (ts *TableStore) Rows(ctx context.Context, table string) (*TableData, error) {
	return ts.rows(ctx, table, 0)
}

// Preview returns the first limit rows of table.
func (ts *TableStore) Preview(ctx context.Context, table string, limit int) (*TableData, error) {
	return ts.rows(ctx, table, limit)
}

func (ts *TableStore) rows(ctx context.Context, table string, limit int) (*TableData, error) {
	exists, err := ts.Exists(ctx, table)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrTableNotFound, table)
	}

	query := fmt.Sprintf(`SELECT * FROM %s`, ts.catalog.Qualify(table))
	if table == ts.catalog.WorkingTable {
		query += ` ORDER BY ` + workingOrder
	}
	if limit > 0 {
		query += fmt.Sprintf(` LIMIT %d`, limit)
	}

	rows, err := ts.db.QueryxContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query table %s: %w", table, err)
	}
	return scanRecords(rows)
}
