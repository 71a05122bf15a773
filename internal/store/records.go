package store

import (
	"fmt"

	"github.com/jmoiron/sqlx"
)

// scanRecords drains rows into Records. Text values arrive as []byte from lib/pq
// and are converted to strings so they encode as JSON strings.
func scanRecords(rows *sqlx.Rows) (*TableData, error) {
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read columns: %w", err)
	}

	data := &TableData{Columns: cols, Rows: []Record{}}
	for rows.Next() {
		rec := make(map[string]any, len(cols))
		if err := rows.MapScan(rec); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		for k, v := range rec {
			if b, ok := v.([]byte); ok {
				rec[k] = string(b)
			}
		}
		data.Rows = append(data.Rows, Record(rec))
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}
	return data, nil
}
