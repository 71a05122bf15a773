package store

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/farxc/cuipo/internal/config"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
)

func newMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, config.Catalog) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return sqlx.NewDb(db, "postgres"), mock, config.Default()
}

func strPtr(s string) *string { return &s }

func cuipoRef() config.Reference {
	return config.Default().Fuentes
}
