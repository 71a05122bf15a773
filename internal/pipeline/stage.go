package pipeline

import (
	"database/sql"
	"sort"

	"github.com/farxc/cuipo/internal/config"
	"github.com/farxc/cuipo/internal/cuipo"
	"github.com/farxc/cuipo/internal/store"
)

// Refs holds the reference lookups a stage asked for, by name.
type Refs map[string]*cuipo.Lookup

// Pass is one batched update within a stage. Rows rejected by Eligible are not
// written. Compute returns one value per entry of Writes.
type Pass struct {
	Name     string
	Writes   []store.Column
	Eligible func(store.Row) bool
	Compute  func(store.Row, Refs) ([]sql.NullString, error)
}

// Stage declares what a stage reads, writes and depends on. Passes run in order
// and later passes see the values written by earlier ones.
type Stage struct {
	Number      int
	Name        string
	DependsOn   []int
	CopyForward []store.CopyColumn
	Reads       []string
	References  map[string]config.Reference
	Passes      []Pass
}

// Writes lists every column the stage owns.
func (s Stage) Writes() []string {
	var out []string
	for _, p := range s.Passes {
		for _, c := range p.Writes {
			out = append(out, c.Name)
		}
	}
	return out
}

// columns is the read set plus the write set, so a pass can see earlier results.
func (s Stage) columns() []string {
	seen := map[string]bool{}
	var out []string
	for _, c := range append(append([]string{}, s.Reads...), s.Writes()...) {
		if !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	return out
}

// RequiredTables are checked before anything is read or written.
func (s Stage) RequiredTables(c config.Catalog) []string {
	tables := []string{c.WorkingTable}
	if len(s.CopyForward) > 0 {
		tables = append(tables, c.SnapshotTable)
	}
	seen := map[string]bool{}
	for _, t := range tables {
		seen[t] = true
	}
	for _, name := range sortedKeys(s.References) {
		t := s.References[name].Table
		if !seen[t] {
			seen[t] = true
			tables = append(tables, t)
		}
	}
	return tables
}

func null() sql.NullString { return sql.NullString{} }

func text(s string) sql.NullString { return sql.NullString{String: s, Valid: true} }

func present(r store.Row, col string) bool {
	v := r.Get(col)
	return v.Valid && cuipo.Trim(v.String) != ""
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
