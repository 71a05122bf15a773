package ingest

import (
	"fmt"
	"io"

	"github.com/farxc/cuipo/internal/store"
	"github.com/xuri/excelize/v2"
)

const exportSheet = "Ejecucion"

// WriteWorkbook writes data as a single-sheet XLSX workbook, header first.
func WriteWorkbook(w io.Writer, data *store.TableData) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	sw, err := f.NewStreamWriter(exportSheet)
	if err != nil {
		return fmt.Errorf("failed to open sheet writer: %w", err)
	}

	header := make([]interface{}, len(data.Columns))
	for i, c := range data.Columns {
		header[i] = c
	}
	if err := sw.SetRow("A1", header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for i, rec := range data.Rows {
		cells := make([]interface{}, len(data.Columns))
		for j, c := range data.Columns {
			cells[j] = rec[c]
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, cells); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+1, err)
		}
	}

	if err := sw.Flush(); err != nil {
		return fmt.Errorf("failed to flush sheet: %w", err)
	}
	_, err = f.WriteTo(w)
	return err
}
