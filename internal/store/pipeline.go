package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/farxc/cuipo/internal/config"
	"github.com/farxc/cuipo/internal/cuipo"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// PipelineTx is the unit of work of one stage or snapshot load. Everything done
// through it commits or rolls back together.
type PipelineTx interface {
	Lock(ctx context.Context, key int64) error
	TableExists(ctx context.Context, table string) (bool, error)
	LastSuccess(ctx context.Context, stage int) (int64, error)
	CopyForward(ctx context.Context, cols []CopyColumn) (int64, error)
	LoadReference(ctx context.Context, ref config.Reference) ([]cuipo.Entry, error)
	LoadRows(ctx context.Context, cols []string) ([]Row, error)
	ApplyUpdates(ctx context.Context, cols []Column, updates []RowUpdate) (int64, error)
	ReloadWorking(ctx context.Context) (int64, error)
	RecordRun(ctx context.Context, run *Run) error
	Commit() error
	Rollback() error
}

type PipelineStore struct {
	db      *sqlx.DB
	catalog config.Catalog
}

func (ps *PipelineStore) Begin(ctx context.Context) (PipelineTx, error) {
	tx, err := ps.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return &stageTx{tx: tx, catalog: ps.catalog}, nil
}

type stageTx struct {
	tx      *sqlx.Tx
	catalog config.Catalog
}

func (st *stageTx) Commit() error   { return st.tx.Commit() }
func (st *stageTx) Rollback() error { return st.tx.Rollback() }

// Lock takes a transaction-scoped advisory lock, released on commit or rollback.
func (st *stageTx) Lock(ctx context.Context, key int64) error {
	if _, err := st.tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, key); err != nil {
		return fmt.Errorf("failed to acquire pipeline lock: %w", err)
	}
	return nil
}

func (st *stageTx) TableExists(ctx context.Context, table string) (bool, error) {
	var exists bool
	if err := st.tx.GetContext(ctx, &exists, tableExistsQuery, st.catalog.Schema, table); err != nil {
		return false, fmt.Errorf("failed to check table %s: %w", table, err)
	}
	return exists, nil
}

func (st *stageTx) LastSuccess(ctx context.Context, stage int) (int64, error) {
	var id int64
	if err := st.tx.GetContext(ctx, &id, lastSuccessQuery(st.catalog.Runs()), stage, StatusSuccess); err != nil {
		return 0, fmt.Errorf("failed to query last success of stage %d: %w", stage, err)
	}
	return id, nil
}

// CopyForward refreshes working columns from the snapshot source, touching only
// rows whose value differs.
func (st *stageTx) CopyForward(ctx context.Context, cols []CopyColumn) (int64, error) {
	if len(cols) == 0 {
		return 0, nil
	}

	sets := make([]string, len(cols))
	diffs := make([]string, len(cols))
	for i, c := range cols {
		dest := pq.QuoteIdentifier(c.Dest)
		src := "src." + pq.QuoteIdentifier(c.Source) + "::text"
		sets[i] = fmt.Sprintf("%s = %s", dest, src)
		diffs[i] = fmt.Sprintf("dest.%s IS DISTINCT FROM %s", dest, src)
	}

	query := fmt.Sprintf(`
	UPDATE %s AS dest
	SET %s
	FROM %s AS src
	WHERE dest.id = src.id
		AND (%s)`,
		st.catalog.Working(), strings.Join(sets, ", "), st.catalog.Snapshot(), strings.Join(diffs, " OR "))

	res, err := st.tx.ExecContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("failed to copy forward columns: %w", err)
	}
	return res.RowsAffected()
}

// LoadReference reads the key and value columns of a reference table as text,
// ordered by id so the first row of a duplicated key is the lowest id.
func (st *stageTx) LoadReference(ctx context.Context, ref config.Reference) ([]cuipo.Entry, error) {
	cols := []string{pq.QuoteIdentifier(ref.Key) + "::text"}
	for _, v := range ref.Values {
		cols = append(cols, pq.QuoteIdentifier(v)+"::text")
	}
	query := fmt.Sprintf(`SELECT id::bigint, %s FROM %s ORDER BY id`, strings.Join(cols, ", "), st.catalog.Qualify(ref.Table))

	rows, err := st.tx.QueryxContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to read reference %s: %w", ref.Table, err)
	}
	defer rows.Close()

	entries := []cuipo.Entry{}
	for rows.Next() {
		e := cuipo.Entry{Values: make([]sql.NullString, len(ref.Values))}
		dest := []any{&e.ID, &e.Key}
		for i := range e.Values {
			dest = append(dest, &e.Values[i])
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("failed to scan reference %s: %w", ref.Table, err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}
	return entries, nil
}

// LoadRows reads the given working columns, as text, for every row.
func (st *stageTx) LoadRows(ctx context.Context, cols []string) ([]Row, error) {
	exprs := []string{"id::bigint"}
	for _, c := range cols {
		exprs = append(exprs, pq.QuoteIdentifier(c)+"::text")
	}
	query := fmt.Sprintf(`SELECT %s FROM %s ORDER BY id`, strings.Join(exprs, ", "), st.catalog.Working())

	rows, err := st.tx.QueryxContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to read working rows: %w", err)
	}
	defer rows.Close()

	out := []Row{}
	for rows.Next() {
		var id int64
		values := make([]sql.NullString, len(cols))
		dest := []any{&id}
		for i := range values {
			dest = append(dest, &values[i])
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("failed to scan working row: %w", err)
		}
		r := Row{ID: id, Values: make(map[string]sql.NullString, len(cols))}
		for i, c := range cols {
			r.Values[c] = values[i]
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}
	return out, nil
}

// ApplyUpdates writes all updates in one statement joined on id. Rows whose
// stored values already match are skipped, so rerunning a stage reports zero.
func (st *stageTx) ApplyUpdates(ctx context.Context, cols []Column, updates []RowUpdate) (int64, error) {
	if len(updates) == 0 || len(cols) == 0 {
		return 0, nil
	}

	ids := make([]int64, len(updates))
	columns := make([][]sql.NullString, len(cols))
	for i := range columns {
		columns[i] = make([]sql.NullString, len(updates))
	}
	for r, u := range updates {
		if len(u.Values) != len(cols) {
			return 0, fmt.Errorf("update for row %d has %d values, want %d", u.ID, len(u.Values), len(cols))
		}
		ids[r] = u.ID
		for c, v := range u.Values {
			columns[c][r] = v
		}
	}

	args := []any{pq.Array(ids)}
	params := []string{"$1::bigint[]"}
	aliases := []string{"id"}
	sets := make([]string, len(cols))
	diffs := make([]string, len(cols))
	for i, c := range cols {
		name := pq.QuoteIdentifier(c.Name)
		args = append(args, pq.Array(columns[i]))
		params = append(params, fmt.Sprintf("$%d::%s[]", i+2, c.Type))
		aliases = append(aliases, name)
		sets[i] = fmt.Sprintf("%s = v.%s", name, name)
		diffs[i] = fmt.Sprintf("dest.%s::text IS DISTINCT FROM v.%s::text", name, name)
	}

	query := fmt.Sprintf(`
	UPDATE %s AS dest
	SET %s
	FROM unnest(%s) AS v(%s)
	WHERE dest.id = v.id
		AND (%s)`,
		st.catalog.Working(), strings.Join(sets, ", "), strings.Join(params, ", "),
		strings.Join(aliases, ", "), strings.Join(diffs, " OR "))

	res, err := st.tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to update working rows: %w", err)
	}
	return res.RowsAffected()
}

// ReloadWorking empties the working table and copies id, fondo and the amount
// columns from the snapshot source. Every derived column is left NULL.
func (st *stageTx) ReloadWorking(ctx context.Context) (int64, error) {
	truncate := fmt.Sprintf(`TRUNCATE TABLE %s RESTART IDENTITY`, st.catalog.Working())
	if _, err := st.tx.ExecContext(ctx, truncate); err != nil {
		return 0, fmt.Errorf("failed to truncate working table: %w", err)
	}

	cols := append([]string{"fondo"}, AmountColumns...)
	quoted := make([]string, len(cols))
	selects := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = pq.QuoteIdentifier(c)
		selects[i] = quoted[i] + "::text"
	}

	insert := fmt.Sprintf(`
	INSERT INTO %s (id, %s)
	SELECT id, %s
	FROM %s
	ORDER BY id`,
		st.catalog.Working(), strings.Join(quoted, ", "), strings.Join(selects, ", "), st.catalog.Snapshot())

	res, err := st.tx.ExecContext(ctx, insert)
	if err != nil {
		return 0, fmt.Errorf("failed to copy snapshot rows: %w", err)
	}
	return res.RowsAffected()
}

func (st *stageTx) RecordRun(ctx context.Context, run *Run) error {
	return insertRun(ctx, st.tx, st.catalog.Runs(), run)
}
