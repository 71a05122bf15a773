package store

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunStoreInsert(t *testing.T) {
	db, mock, cat := newMock(t)
	rs := &RunStore{db: db, catalog: cat}

	started := time.Date(2025, 3, 31, 8, 0, 0, 0, time.UTC)
	run := &Run{
		Stage:      5,
		Name:       "functional_area",
		Status:     StatusFailure,
		ErrorKind:  strPtr("data_shape"),
		Error:      strPtr("area_funcional: position 13 is not a digit"),
		StartedAt:  started,
		FinishedAt: started.Add(time.Second),
	}

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "sis_cuipo"."pipeline_runs"`)).
		WithArgs(nil, 5, "functional_area", StatusFailure, []byte("[]"), "data_shape",
			"area_funcional: position 13 is not a digit", started, started.Add(time.Second)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(3)))

	require.NoError(t, rs.Insert(context.Background(), run))
	assert.Equal(t, int64(3), run.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunStoreLatest(t *testing.T) {
	db, mock, cat := newMock(t)
	rs := &RunStore{db: db, catalog: cat}

	now := time.Now().UTC()
	mock.ExpectQuery(regexp.QuoteMeta(`ORDER BY id DESC LIMIT $1`)).WithArgs(10).
		WillReturnRows(sqlmock.NewRows([]string{"id", "batch_id", "stage", "name", "status", "steps", "error_kind", "error", "started_at", "finished_at"}).
			AddRow(int64(2), "b-1", 1, "fund_source", StatusSuccess, []byte(`[{"step":"fuente","rows":4}]`), nil, nil, now, now))

	runs, err := rs.Latest(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "b-1", *runs[0].BatchID)
	assert.Equal(t, StepCounts{{Step: "fuente", Rows: 4}}, runs[0].Steps)
	assert.Nil(t, runs[0].Error)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStepCountsValueAndScan(t *testing.T) {
	v, err := StepCounts(nil).Value()
	require.NoError(t, err)
	assert.Equal(t, []byte("[]"), v)

	var s StepCounts
	require.NoError(t, s.Scan(`[{"step":"copy_forward","rows":0}]`))
	assert.Equal(t, StepCounts{{Step: "copy_forward"}}, s)
	assert.Error(t, s.Scan(42))
}
