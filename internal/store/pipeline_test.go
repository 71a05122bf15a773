package store

import (
	"context"
	"database/sql"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/farxc/cuipo/internal/cuipo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func beginStageTx(t *testing.T) (PipelineTx, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, cat := newMock(t)
	mock.ExpectBegin()
	tx, err := (&PipelineStore{db: db, catalog: cat}).Begin(context.Background())
	require.NoError(t, err)
	return tx, mock
}

func TestStageTxLockAndTableExists(t *testing.T) {
	tx, mock := beginStageTx(t)

	mock.ExpectExec(regexp.QuoteMeta(`SELECT pg_advisory_xact_lock($1)`)).WithArgs(int64(42)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`information_schema.tables`).WithArgs("sis_cuipo", "fuentes_cuipo").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	require.NoError(t, tx.Lock(context.Background(), 42))
	ok, err := tx.TableExists(context.Background(), "fuentes_cuipo")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStageTxCopyForward(t *testing.T) {
	tx, mock := beginStageTx(t)

	mock.ExpectExec(regexp.QuoteMeta(`SET "pospre" = src."posicion_presupuestaria"::text`) +
		`(?s).*` + regexp.QuoteMeta(`FROM "sis_cuipo"."base_de_ejecucion_presupuestal_31032025" AS src`) +
		`(?s).*` + regexp.QuoteMeta(`dest."pospre" IS DISTINCT FROM src."posicion_presupuestaria"::text`)).
		WillReturnResult(sqlmock.NewResult(0, 4))

	n, err := tx.CopyForward(context.Background(), []CopyColumn{{Dest: "pospre", Source: "posicion_presupuestaria"}})
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)

	n, err = tx.CopyForward(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStageTxLoadReference(t *testing.T) {
	tx, mock := beginStageTx(t)
	ref := cuipoRef()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id::bigint, "cod"::text, "cod_cuipo"::text, "situacion_de_fondos"::text FROM "sis_cuipo"."fuentes_cuipo" ORDER BY id`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "cod", "cod_cuipo", "situacion_de_fondos"}).
			AddRow(int64(1), "10101", "1.2.1", "C").
			AddRow(int64(2), "20202", nil, "S"))

	entries, err := tx.LoadReference(context.Background(), ref)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, cuipo.Entry{
		ID:     2,
		Key:    sql.NullString{String: "20202", Valid: true},
		Values: []sql.NullString{{}, {String: "S", Valid: true}},
	}, entries[1])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStageTxLoadRows(t *testing.T) {
	tx, mock := beginStageTx(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id::bigint, "fondo"::text FROM "sis_cuipo"."cuipo_plantilla_distrito_2025_vf" ORDER BY id`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "fondo"}).AddRow(int64(1), "Totales").AddRow(int64(2), nil))

	rows, err := tx.LoadRows(context.Background(), []string{"fondo"})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Totales", rows[0].Get("fondo").String)
	assert.False(t, rows[1].Get("fondo").Valid)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStageTxApplyUpdates(t *testing.T) {
	tx, mock := beginStageTx(t)

	cols := []Column{{Name: "sector_cuipo", Type: TextColumn}, {Name: "cantidad_producto", Type: IntegerColumn}}
	updates := []RowUpdate{
		{ID: 1, Values: []sql.NullString{{String: "1901", Valid: true}, {String: "1", Valid: true}}},
		{ID: 2, Values: []sql.NullString{{String: "2201", Valid: true}, {}}},
	}

	mock.ExpectExec(regexp.QuoteMeta(`FROM unnest($1::bigint[], $2::text[], $3::integer[]) AS v(id, "sector_cuipo", "cantidad_producto")`)+
		`(?s).*`+regexp.QuoteMeta(`dest."cantidad_producto"::text IS DISTINCT FROM v."cantidad_producto"::text`)).
		WithArgs("{1,2}", `{"1901","2201"}`, `{"1",NULL}`).
		WillReturnResult(sqlmock.NewResult(0, 2))

	n, err := tx.ApplyUpdates(context.Background(), cols, updates)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	_, err = tx.ApplyUpdates(context.Background(), cols, []RowUpdate{{ID: 3, Values: []sql.NullString{{}}}})
	assert.Error(t, err)

	n, err = tx.ApplyUpdates(context.Background(), cols, nil)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStageTxReloadWorking(t *testing.T) {
	tx, mock := beginStageTx(t)

	mock.ExpectExec(regexp.QuoteMeta(`TRUNCATE TABLE "sis_cuipo"."cuipo_plantilla_distrito_2025_vf" RESTART IDENTITY`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "sis_cuipo"."cuipo_plantilla_distrito_2025_vf" (id, "fondo", "ppto_inicial"`) +
		`(?s).*` + regexp.QuoteMeta(`"_ejecucion"::text`) + `(?s).*ORDER BY id`).
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := tx.ReloadWorking(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStageTxRecordRunAndLastSuccess(t *testing.T) {
	tx, mock := beginStageTx(t)

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "sis_cuipo"."pipeline_runs"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(12)))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COALESCE(MAX(id), 0) FROM "sis_cuipo"."pipeline_runs" WHERE stage = $1 AND status = $2`)).
		WithArgs(0, StatusSuccess).
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow(int64(12)))
	mock.ExpectCommit()

	run := &Run{Stage: 0, Name: "snapshot", Status: StatusSuccess, Steps: StepCounts{{Step: "reload", Rows: 3}}}
	require.NoError(t, tx.RecordRun(context.Background(), run))
	assert.Equal(t, int64(12), run.ID)

	id, err := tx.LastSuccess(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, int64(12), id)

	require.NoError(t, tx.Commit())
	assert.NoError(t, mock.ExpectationsWereMet())
}
