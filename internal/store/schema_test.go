package store

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkingTableDDL(t *testing.T) {
	ddl := workingTableDDL(`"s"."w"`)
	assert.Contains(t, ddl, `"cantidad_producto" INTEGER`)
	assert.Contains(t, ddl, `"_ejecucion" TEXT`)
	assert.Contains(t, ddl, `"validador_del_producto" TEXT`)
	assert.Contains(t, ddl, "id SERIAL PRIMARY KEY")
}

func TestEnsureSchema(t *testing.T) {
	db, mock, cat := newMock(t)

	mock.ExpectExec(regexp.QuoteMeta(`CREATE SCHEMA IF NOT EXISTS "sis_cuipo"`)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(`CREATE TABLE IF NOT EXISTS "sis_cuipo"."pipeline_runs"`)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(`CREATE TABLE IF NOT EXISTS "sis_cuipo"."cuipo_plantilla_distrito_2025_vf"`)).WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, EnsureSchema(context.Background(), db, cat))
	assert.NoError(t, mock.ExpectationsWereMet())
}
