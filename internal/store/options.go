package store

import (
	"context"
	"fmt"

	"github.com/farxc/cuipo/internal/config"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

type OptionsStore struct {
	db      *sqlx.DB
	catalog config.Catalog
}

// CPCOptions lists the CPC classes whose cpc digit equals lastDigit.
func (o *OptionsStore) CPCOptions(ctx context.Context, lastDigit string) ([]Option, error) {
	ref := o.catalog.CPC

	var exists bool
	if err := o.db.GetContext(ctx, &exists, tableExistsQuery, o.catalog.Schema, ref.Table); err != nil {
		return nil, fmt.Errorf("failed to check table %s: %w", ref.Table, err)
	}
	if !exists {
		return nil, fmt.Errorf("%w: %s.%s", ErrTableNotFound, o.catalog.Schema, ref.Table)
	}

	value := pq.QuoteIdentifier(ref.Values[0])
	query := fmt.Sprintf(`
	SELECT
		TRIM(%[1]s) AS option_label,
		TRIM(%[1]s) AS option_value
	FROM %[2]s
	WHERE TRIM(%[3]s) = $1
	ORDER BY %[1]s`, value, o.catalog.Qualify(ref.Table), pq.QuoteIdentifier(ref.Key))

	options := []Option{}
	if err := o.db.SelectContext(ctx, &options, query, lastDigit); err != nil {
		return nil, fmt.Errorf("failed to query cpc options: %w", err)
	}
	return options, nil
}

// ProductOptions lists the MGA products registered for a SAP project code.
func (o *OptionsStore) ProductOptions(ctx context.Context, codigoSap string) ([]ProductOption, error) {
	ref := o.catalog.ProductosMGA
	query := fmt.Sprintf(`
	SELECT %[1]s::text, %[2]s::text
	FROM %[3]s
	WHERE %[4]s = $1
	ORDER BY %[2]s ASC`,
		pq.QuoteIdentifier(ref.Values[0]), pq.QuoteIdentifier(ref.Values[1]),
		o.catalog.Qualify(ref.Table), pq.QuoteIdentifier(ref.Key))

	rows, err := o.db.QueryxContext(ctx, query, codigoSap)
	if err != nil {
		return nil, fmt.Errorf("failed to query product options: %w", err)
	}
	defer rows.Close()

	options := []ProductOption{}
	for rows.Next() {
		var code, label *string
		if err := rows.Scan(&code, &label); err != nil {
			return nil, fmt.Errorf("failed to scan product option: %w", err)
		}
		opt := ProductOption{}
		if label != nil {
			opt.Value, opt.Label = *label, *label
		}
		if code != nil {
			opt.ProductoCodigo = *code
		}
		options = append(options, opt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}
	return options, nil
}
