package pipeline

import (
	"context"
	"database/sql"
	"errors"
	"sort"

	"github.com/farxc/cuipo/internal/config"
	"github.com/farxc/cuipo/internal/cuipo"
	"github.com/farxc/cuipo/internal/store"
	"github.com/lib/pq"
)

type record map[string]sql.NullString

type memTable struct {
	columns []string
	rows    []record
}

// memDB is an in-memory stand-in for the schema a pipeline transaction sees.
type memDB struct {
	catalog config.Catalog
	tables  map[string]*memTable
	working map[int64]record
	runs    []store.Run
	locks   int
}

func newMemDB(c config.Catalog) *memDB {
	return &memDB{
		catalog: c,
		tables:  map[string]*memTable{c.WorkingTable: {}},
		working: map[int64]record{},
	}
}

func (db *memDB) addTable(name string, columns []string, rows ...record) {
	db.tables[name] = &memTable{columns: columns, rows: rows}
}

func (db *memDB) Begin(ctx context.Context) (store.PipelineTx, error) {
	tx := &memTx{db: db, working: map[int64]record{}, runs: append([]store.Run(nil), db.runs...)}
	for id, r := range db.working {
		tx.working[id] = cloneRecord(r)
	}
	return tx, nil
}

func (db *memDB) Insert(ctx context.Context, run *store.Run) error {
	run.ID = int64(len(db.runs) + 1)
	db.runs = append(db.runs, *run)
	return nil
}

func (db *memDB) Latest(ctx context.Context, limit int) ([]store.Run, error) {
	out := append([]store.Run(nil), db.runs...)
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (db *memDB) LastSuccess(ctx context.Context, stage int) (int64, error) {
	return lastSuccess(db.runs, stage), nil
}

func lastSuccess(runs []store.Run, stage int) int64 {
	var id int64
	for _, r := range runs {
		if r.Stage == stage && r.Status == store.StatusSuccess && r.ID > id {
			id = r.ID
		}
	}
	return id
}

func (db *memDB) storage() *store.Storage {
	return &store.Storage{Pipeline: db, Runs: db}
}

func (db *memDB) row(id int64) record {
	return db.working[id]
}

func cloneRecord(r record) record {
	out := make(record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

type memTx struct {
	db      *memDB
	working map[int64]record
	runs    []store.Run
	done    bool
}

func (tx *memTx) Lock(ctx context.Context, key int64) error {
	tx.db.locks++
	return nil
}

func (tx *memTx) TableExists(ctx context.Context, table string) (bool, error) {
	_, ok := tx.db.tables[table]
	return ok, nil
}

func (tx *memTx) LastSuccess(ctx context.Context, stage int) (int64, error) {
	return lastSuccess(tx.runs, stage), nil
}

func (tx *memTx) snapshotByID() map[int64]record {
	out := map[int64]record{}
	for _, r := range tx.db.tables[tx.db.catalog.SnapshotTable].rows {
		id, _ := parseID(r["id"])
		out[id] = r
	}
	return out
}

func (tx *memTx) CopyForward(ctx context.Context, cols []store.CopyColumn) (int64, error) {
	src := tx.snapshotByID()
	var n int64
	for id, dest := range tx.working {
		s, ok := src[id]
		if !ok {
			continue
		}
		changed := false
		for _, c := range cols {
			if dest[c.Dest] != s[c.Source] {
				dest[c.Dest] = s[c.Source]
				changed = true
			}
		}
		if changed {
			n++
		}
	}
	return n, nil
}

func hasColumn(t *memTable, col string) bool {
	for _, c := range t.columns {
		if c == col {
			return true
		}
	}
	return false
}

func (tx *memTx) LoadReference(ctx context.Context, ref config.Reference) ([]cuipo.Entry, error) {
	t, ok := tx.db.tables[ref.Table]
	if !ok {
		return nil, &pq.Error{Code: "42P01", Message: "relation does not exist", Table: ref.Table}
	}
	for _, c := range append([]string{ref.Key}, ref.Values...) {
		if !hasColumn(t, c) {
			return nil, &pq.Error{Code: "42703", Message: "column " + c + " does not exist", Table: ref.Table}
		}
	}

	var entries []cuipo.Entry
	for _, r := range t.rows {
		id, _ := parseID(r["id"])
		e := cuipo.Entry{ID: id, Key: r[ref.Key]}
		for _, v := range ref.Values {
			e.Values = append(e.Values, r[v])
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func (tx *memTx) LoadRows(ctx context.Context, cols []string) ([]store.Row, error) {
	ids := make([]int64, 0, len(tx.working))
	for id := range tx.working {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	rows := make([]store.Row, len(ids))
	for i, id := range ids {
		rows[i] = store.Row{ID: id, Values: map[string]sql.NullString{}}
		for _, c := range cols {
			rows[i].Values[c] = tx.working[id][c]
		}
	}
	return rows, nil
}

func (tx *memTx) ApplyUpdates(ctx context.Context, cols []store.Column, updates []store.RowUpdate) (int64, error) {
	var n int64
	for _, u := range updates {
		dest, ok := tx.working[u.ID]
		if !ok {
			continue
		}
		changed := false
		for i, c := range cols {
			if dest[c.Name] != u.Values[i] {
				dest[c.Name] = u.Values[i]
				changed = true
			}
		}
		if changed {
			n++
		}
	}
	return n, nil
}

func (tx *memTx) ReloadWorking(ctx context.Context) (int64, error) {
	tx.working = map[int64]record{}
	for id, s := range tx.snapshotByID() {
		r := record{"fondo": s["fondo"]}
		for _, a := range store.AmountColumns {
			r[a] = s[a]
		}
		tx.working[id] = r
	}
	return int64(len(tx.working)), nil
}

func (tx *memTx) RecordRun(ctx context.Context, run *store.Run) error {
	run.ID = int64(len(tx.runs) + 1)
	tx.runs = append(tx.runs, *run)
	return nil
}

func (tx *memTx) Commit() error {
	if tx.done {
		return sql.ErrTxDone
	}
	tx.done = true
	tx.db.working = tx.working
	tx.db.runs = tx.runs
	return nil
}

func (tx *memTx) Rollback() error {
	if tx.done {
		return sql.ErrTxDone
	}
	tx.done = true
	return nil
}

func parseID(v sql.NullString) (int64, error) {
	if !v.Valid {
		return 0, errors.New("null id")
	}
	var id int64
	for _, ch := range v.String {
		id = id*10 + int64(ch-'0')
	}
	return id, nil
}
