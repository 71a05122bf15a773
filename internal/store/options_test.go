package store

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCPCOptionsMissingTable(t *testing.T) {
	db, mock, cat := newMock(t)
	o := &OptionsStore{db: db, catalog: cat}

	mock.ExpectQuery(`information_schema.tables`).WithArgs("sis_cuipo", "cpc").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	_, err := o.CPCOptions(context.Background(), "3")
	assert.ErrorIs(t, err, ErrTableNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCPCOptions(t *testing.T) {
	db, mock, cat := newMock(t)
	o := &OptionsStore{db: db, catalog: cat}

	mock.ExpectQuery(`information_schema.tables`).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectQuery(regexp.QuoteMeta(`WHERE TRIM("cpc") = $1`)).WithArgs("3").
		WillReturnRows(sqlmock.NewRows([]string{"option_label", "option_value"}).AddRow("3111", "3111"))

	opts, err := o.CPCOptions(context.Background(), "3")
	require.NoError(t, err)
	assert.Equal(t, []Option{{Label: "3111", Value: "3111"}}, opts)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductOptions(t *testing.T) {
	db, mock, cat := newMock(t)
	o := &OptionsStore{db: db, catalog: cat}

	mock.ExpectQuery(regexp.QuoteMeta(`FROM "sis_cuipo"."productos_por_proyecto" WHERE "codigo_sap" = $1`)).WithArgs("200123").
		WillReturnRows(sqlmock.NewRows([]string{"productos_del_proyecto", "cod_pdto_y_nombre"}).
			AddRow("1901001", "1901001 - Servicio").
			AddRow(nil, "1901002 - Otro"))

	opts, err := o.ProductOptions(context.Background(), "200123")
	require.NoError(t, err)
	assert.Equal(t, []ProductOption{
		{Value: "1901001 - Servicio", Label: "1901001 - Servicio", ProductoCodigo: "1901001"},
		{Value: "1901002 - Otro", Label: "1901002 - Otro"},
	}, opts)
	assert.NoError(t, mock.ExpectationsWereMet())
}
