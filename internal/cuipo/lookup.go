package cuipo

import (
	"database/sql"
	"sort"
)

// Entry is one reference-table row as read by the pipeline: its id, the lookup key
// and the value columns in catalog order.
type Entry struct {
	ID     int64
	Key    sql.NullString
	Values []sql.NullString
}

// Lookup is an exact trimmed-key index over a reference table. When a key repeats,
// the row with the lowest id wins.
type Lookup struct {
	rows map[string][]sql.NullString
}

func NewLookup(entries []Entry) *Lookup {
	sorted := make([]Entry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	l := &Lookup{rows: make(map[string][]sql.NullString, len(sorted))}
	for _, e := range sorted {
		if !e.Key.Valid {
			continue
		}
		k := Trim(e.Key.String)
		if _, seen := l.rows[k]; seen {
			continue
		}
		l.rows[k] = e.Values
	}
	return l
}

func (l *Lookup) Len() int {
	if l == nil {
		return 0
	}
	return len(l.rows)
}

// Has reports whether the trimmed key exists.
func (l *Lookup) Has(key string) bool {
	if l == nil {
		return false
	}
	_, ok := l.rows[Trim(key)]
	return ok
}

// Get returns the trimmed value of column col for key. ok is false when the key
// is absent or the matched value is NULL.
func (l *Lookup) Get(key string, col int) (string, bool) {
	v, ok := l.GetRaw(key, col)
	return Trim(v), ok
}

// GetRaw is Get without trimming the matched value.
func (l *Lookup) GetRaw(key string, col int) (string, bool) {
	if l == nil {
		return "", false
	}
	values, found := l.rows[Trim(key)]
	if !found || col < 0 || col >= len(values) || !values[col].Valid {
		return "", false
	}
	return values[col].String, true
}

// GetOr is Get with a default, the COALESCE of a correlated lookup.
func (l *Lookup) GetOr(key string, col int, def string) string {
	if v, ok := l.Get(key, col); ok {
		return v
	}
	return def
}

// GetNull treats a NULL key as a miss.
func (l *Lookup) GetNull(key sql.NullString, col int) (string, bool) {
	if !key.Valid {
		return "", false
	}
	return l.Get(key.String, col)
}
