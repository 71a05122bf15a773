package store

import (
	"context"
	"fmt"

	"github.com/farxc/cuipo/internal/config"
	"github.com/jmoiron/sqlx"
)

type RunStore struct {
	db      *sqlx.DB
	catalog config.Catalog
}

func insertRunQuery(table string) string {
	return fmt.Sprintf(`INSERT INTO %s (
		batch_id,
		stage,
		name,
		status,
		steps,
		error_kind,
		error,
		started_at,
		finished_at
	) VALUES (
		:batch_id,
		:stage,
		:name,
		:status,
		:steps,
		:error_kind,
		:error,
		:started_at,
		:finished_at
	) RETURNING id`, table)
}

func insertRun(ctx context.Context, ext sqlx.ExtContext, table string, run *Run) error {
	rows, err := sqlx.NamedQueryContext(ctx, ext, insertRunQuery(table), run)
	if err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}
	defer rows.Close()

	if rows.Next() {
		if err := rows.Scan(&run.ID); err != nil {
			return fmt.Errorf("failed to scan run id: %w", err)
		}
	}
	return rows.Err()
}

func lastSuccessQuery(table string) string {
	return fmt.Sprintf(`SELECT COALESCE(MAX(id), 0) FROM %s WHERE stage = $1 AND status = $2`, table)
}

// Insert records a run outside any stage transaction, which is how failures are
// kept after the stage rolled back.
func (rs *RunStore) Insert(ctx context.Context, run *Run) error {
	return insertRun(ctx, rs.db, rs.catalog.Runs(), run)
}

func (rs *RunStore) Latest(ctx context.Context, limit int) ([]Run, error) {
	query := fmt.Sprintf(`
	SELECT id, batch_id, stage, name, status, steps, error_kind, error, started_at, finished_at
	FROM %s
	ORDER BY id DESC
	LIMIT $1`, rs.catalog.Runs())

	runs := []Run{}
	if err := rs.db.SelectContext(ctx, &runs, query, limit); err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	return runs, nil
}

// LastSuccess returns the ledger id of the latest successful run of stage, or 0.
func (rs *RunStore) LastSuccess(ctx context.Context, stage int) (int64, error) {
	var id int64
	if err := rs.db.GetContext(ctx, &id, lastSuccessQuery(rs.catalog.Runs()), stage, StatusSuccess); err != nil {
		return 0, fmt.Errorf("failed to query last success of stage %d: %w", stage, err)
	}
	return id, nil
}
