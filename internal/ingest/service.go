package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/farxc/cuipo/internal/config"
	"github.com/farxc/cuipo/internal/logger"
	"github.com/farxc/cuipo/internal/store"
)

const (
	component   = "Ingest"
	previewRows = 10
)

var ErrReservedTable = errors.New("table name is reserved")

type Result struct {
	Table    string           `json:"table"`
	Inserted int64            `json:"inserted"`
	Columns  []string         `json:"columns"`
	Preview  *store.TableData `json:"preview"`
}

type Service struct {
	storage   *store.Storage
	catalog   config.Catalog
	appLogger *logger.Logger
}

func NewService(storage *store.Storage, catalog config.Catalog, appLogger *logger.Logger) *Service {
	return &Service{storage: storage, catalog: catalog, appLogger: appLogger}
}

// Ingest replaces the table named after filename with the file's first sheet.
// The working table and the run ledger cannot be overwritten this way.
func (s *Service) Ingest(ctx context.Context, filename string, r io.Reader) (*Result, error) {
	sheet, err := ReadFile(filename, r)
	if err != nil {
		return nil, err
	}
	if sheet.Table == s.catalog.WorkingTable || sheet.Table == s.catalog.RunsTable {
		return nil, fmt.Errorf("%w: %s", ErrReservedTable, sheet.Table)
	}

	s.appLogger.Info(component, "Loading file: name=%s table=%s columns=%d rows=%d",
		filename, sheet.Table, len(sheet.Columns), len(sheet.Rows))

	inserted, err := s.storage.Uploads.Replace(ctx, sheet.Table, sheet.Columns, sheet.Rows)
	if err != nil {
		return nil, fmt.Errorf("failed to store %s: %w", sheet.Table, err)
	}

	preview, err := s.storage.Tables.Preview(ctx, sheet.Table, previewRows)
	if err != nil {
		return nil, fmt.Errorf("failed to preview %s: %w", sheet.Table, err)
	}

	s.appLogger.Info(component, "Table replaced: table=%s inserted=%d", sheet.Table, inserted)
	return &Result{
		Table:    sheet.Table,
		Inserted: inserted,
		Columns:  sheet.Columns,
		Preview:  preview,
	}, nil
}
