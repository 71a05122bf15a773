package cuipo

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
)

func ns(s string) sql.NullString { return sql.NullString{String: s, Valid: true} }

func entry(id int64, key string, values ...string) Entry {
	e := Entry{ID: id, Key: ns(key)}
	for _, v := range values {
		e.Values = append(e.Values, ns(v))
	}
	return e
}

func TestLookupLowestIDWins(t *testing.T) {
	l := NewLookup([]Entry{
		entry(9, "A", "late"),
		entry(2, " A ", "early"),
		entry(5, "A", "middle"),
	})

	v, ok := l.Get("A", 0)
	assert.True(t, ok)
	assert.Equal(t, "early", v)
	assert.Equal(t, 1, l.Len())
}

func TestLookupTrimsKeysAndValues(t *testing.T) {
	l := NewLookup([]Entry{entry(1, "  10101 ", "  X  ")})

	v, ok := l.Get(" 10101", 0)
	assert.True(t, ok)
	assert.Equal(t, "X", v)
	assert.True(t, l.Has("10101   "))
}

func TestLookupOnlyTrimsSpaces(t *testing.T) {
	l := NewLookup([]Entry{entry(1, "\t10101", "X")})
	assert.False(t, l.Has("10101"))
}

func TestLookupNullValueIsMiss(t *testing.T) {
	l := NewLookup([]Entry{{ID: 1, Key: ns("K"), Values: []sql.NullString{{}}}})

	assert.True(t, l.Has("K"))
	_, ok := l.Get("K", 0)
	assert.False(t, ok)
	assert.Equal(t, "dflt", l.GetOr("K", 0, "dflt"))
}

func TestLookupSkipsNullKeys(t *testing.T) {
	l := NewLookup([]Entry{{ID: 1, Values: []sql.NullString{ns("X")}}})
	assert.Equal(t, 0, l.Len())
	assert.False(t, l.Has(""))
}

func TestLookupNilAndOutOfRange(t *testing.T) {
	var l *Lookup
	assert.False(t, l.Has("x"))
	assert.Equal(t, "d", l.GetOr("x", 0, "d"))

	l = NewLookup([]Entry{entry(1, "K", "V")})
	_, ok := l.Get("K", 3)
	assert.False(t, ok)

	_, ok = l.GetNull(sql.NullString{}, 0)
	assert.False(t, ok)
	v, ok := l.GetNull(ns("K"), 0)
	assert.True(t, ok)
	assert.Equal(t, "V", v)
}
