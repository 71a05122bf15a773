package store

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/farxc/cuipo/internal/config"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

var AmountColumns = []string{
	"ppto_inicial", "reducciones", "adiciones", "creditos", "contracreditos",
	"total_ppto_actual", "disponibilidad", "compromiso", "factura", "pagos",
	"disponible_neto", "ejecucion", "_ejecucion",
}

var BaseColumns = []string{"fondo", "centro_gestor", "proyecto", "pospre", "area_funcional"}

// DerivedColumns lists the stage-owned columns of the working table.
var DerivedColumns = []Column{
	{"fuente", TextColumn}, {"vigencia_gasto", TextColumn}, {"fuente_cuipo", TextColumn}, {"situacion_de_fondos", TextColumn},
	{"seccion_ptal_cuipo", TextColumn}, {"secretaria", TextColumn}, {"tercero_cuipo", TextColumn},
	{"validacion_pospre", TextColumn}, {"pospre_cuipo", TextColumn}, {"tiene_cpc", TextColumn},
	{"bpin", TextColumn}, {"nombre_proyecto", TextColumn},
	{"sector_cuipo", TextColumn}, {"producto_ppal", TextColumn}, {"cantidad_producto", IntegerColumn}, {"producto_a_reportar", TextColumn},
	{"detalle_sectorial", TextColumn}, {"extrae_detalle_sectorial", TextColumn}, {"detalle_sectorial_prog_gasto", TextColumn},
}

// ValidatorFields are the only columns a row edit may touch.
var ValidatorFields = []string{
	"codigo_y_nombre_del_cpc", "cpc_cuipo", "validador_cpc",
	"codigo_y_nombre_del_producto_mga", "producto_cuipo", "validador_del_producto",
}

// workingOrder puts the totals row last.
const workingOrder = `CASE WHEN fondo = 'Totales' THEN 1 ELSE 0 END, id ASC`

func isValidatorField(name string) bool {
	for _, f := range ValidatorFields {
		if f == name {
			return true
		}
	}
	return false
}

type WorkingStore struct {
	db      *sqlx.DB
	catalog config.Catalog
}

// List returns the working table in canonical order. A non-empty secretaria
// restricts the result to that organisational unit, which excludes the totals row.
func (ws *WorkingStore) List(ctx context.Context, secretaria string) (*TableData, error) {
	query := fmt.Sprintf(`SELECT * FROM %s ORDER BY %s`, ws.catalog.Working(), workingOrder)
	args := []any{}
	if secretaria != "" {
		query = fmt.Sprintf(`SELECT * FROM %s WHERE TRIM(secretaria) = $1 ORDER BY %s`, ws.catalog.Working(), workingOrder)
		args = append(args, strings.TrimSpace(secretaria))
	}

	rows, err := ws.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query working rows: %w", err)
	}
	return scanRecords(rows)
}

// UpdateValidators sets only the supplied validator fields of row id. A nil value
// stores NULL.
func (ws *WorkingStore) UpdateValidators(ctx context.Context, id int64, fields map[string]*string) error {
	if len(fields) == 0 {
		return ErrNoFields
	}

	names := make([]string, 0, len(fields))
	for name := range fields {
		if !isValidatorField(name) {
			return fmt.Errorf("%w: %s", ErrUnknownField, name)
		}
		names = append(names, name)
	}
	sort.Strings(names)

	sets := make([]string, len(names))
	args := make([]any, 0, len(names)+1)
	for i, name := range names {
		sets[i] = fmt.Sprintf("%s = $%d", pq.QuoteIdentifier(name), i+1)
		args = append(args, fields[name])
	}
	args = append(args, id)

	query := fmt.Sprintf(`UPDATE %s SET %s WHERE id = $%d`, ws.catalog.Working(), strings.Join(sets, ", "), len(args))

	tx, err := ws.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update row %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit row update: %w", err)
	}
	return nil
}
