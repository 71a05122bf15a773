package store

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserGetByEmail(t *testing.T) {
	db, mock, cat := newMock(t)
	us := &UserStore{db: db, catalog: cat}

	mock.ExpectQuery(regexp.QuoteMeta(`FROM "sis_catastro_verificacion"."tbl_users" u`)).WithArgs("ana@example.org").
		WillReturnRows(sqlmock.NewRows([]string{"id_user", "name_user", "email_user", "id_role_user", "id_dependency_user", "rol_name", "user_secretaria_name", "id_programm_user"}).
			AddRow(int64(4), "Ana", "ana@example.org", int64(2), int64(9), "Consulta", "SECRETARÍA DE SALUD", "7"))

	u, err := us.GetByEmail(context.Background(), "ana@example.org")
	require.NoError(t, err)
	assert.Equal(t, "SECRETARÍA DE SALUD", u.DependencyName)
	assert.Equal(t, "7", *u.Program)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserGetByEmailNotFound(t *testing.T) {
	db, mock, cat := newMock(t)
	us := &UserStore{db: db, catalog: cat}

	mock.ExpectQuery(`tbl_users`).WillReturnRows(sqlmock.NewRows([]string{"id_user"}))

	_, err := us.GetByEmail(context.Background(), "ghost@example.org")
	assert.ErrorIs(t, err, ErrNotFound)
}
