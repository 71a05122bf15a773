package ingest

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported file format, expected .xlsx, .xlsm or .csv")
	ErrEmptySheet        = errors.New("file is empty or malformed")
)

// Sheet is an upload reduced to a table: normalised column names and trimmed
// text rows of the same width.
type Sheet struct {
	Table   string
	Columns []string
	Rows    [][]string
}

// ReadFile parses the first sheet of an XLSX/XLSM workbook or a CSV file.
func ReadFile(filename string, r io.Reader) (*Sheet, error) {
	table := TableName(filename)
	if table == "" {
		return nil, fmt.Errorf("file name %q does not yield a table name", filename)
	}

	var (
		records [][]string
		err     error
	)
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx", ".xlsm":
		records, err = readWorkbook(r)
	case ".csv":
		records, err = readCSV(r)
	default:
		return nil, ErrUnsupportedFormat
	}
	if err != nil {
		return nil, err
	}
	return buildSheet(table, records)
}

func readWorkbook(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrEmptySheet
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheets[0], err)
	}
	return rows, nil
}

// readCSV decodes Windows-1252 text and lets gota parse it. Header handling is
// done afterwards, so gota sees every line as data.
func readCSV(r io.Reader) ([][]string, error) {
	decoded, err := io.ReadAll(charmap.Windows1252.NewDecoder().Reader(r))
	if err != nil {
		return nil, fmt.Errorf("failed to decode csv: %w", err)
	}
	if len(bytes.TrimSpace(decoded)) == 0 {
		return nil, ErrEmptySheet
	}

	df := dataframe.ReadCSV(bytes.NewReader(decoded),
		dataframe.WithDelimiter(sniffDelimiter(decoded)),
		dataframe.WithLazyQuotes(true),
		dataframe.HasHeader(false),
		dataframe.DetectTypes(false),
		dataframe.NaNValues(nil),
	)
	if df.Error() != nil {
		return nil, fmt.Errorf("failed to parse csv: %w", df.Error())
	}

	records := df.Records()
	if len(records) < 2 {
		return nil, ErrEmptySheet
	}
	// The first record holds gota's generated column names.
	return records[1:], nil
}

// sniffDelimiter picks ';' or ',' from the first line.
func sniffDelimiter(data []byte) rune {
	line, _ := bufio.NewReader(bytes.NewReader(data)).ReadString('\n')
	if strings.Count(line, ";") > strings.Count(line, ",") {
		return ';'
	}
	return ','
}

func isPlaceholderHeader(h string) bool {
	return h == "" || strings.HasPrefix(strings.ToLower(h), "__empty")
}

// buildSheet takes the first record as header. Blank and placeholder headers are
// dropped with their column, repeated names get _2, _3 suffixes and rows without
// any value are skipped.
func buildSheet(table string, records [][]string) (*Sheet, error) {
	if len(records) == 0 {
		return nil, ErrEmptySheet
	}

	seen := map[string]int{"id": 1}
	var (
		keep    []int
		columns []string
	)
	for i, raw := range records[0] {
		h := strings.TrimSpace(raw)
		if isPlaceholderHeader(h) {
			continue
		}
		name := NormalizeName(h)
		if name == "" {
			continue
		}
		seen[name]++
		if n := seen[name]; n > 1 {
			base := name
			for name = base + "_" + strconv.Itoa(n); seen[name] > 0; name = base + "_" + strconv.Itoa(n) {
				n++
			}
			seen[base] = n
			seen[name]++
		}
		keep = append(keep, i)
		columns = append(columns, name)
	}
	if len(columns) == 0 {
		return nil, ErrEmptySheet
	}

	sheet := &Sheet{Table: table, Columns: columns}
	for _, rec := range records[1:] {
		row := make([]string, len(keep))
		empty := true
		for j, idx := range keep {
			if idx < len(rec) {
				row[j] = strings.TrimSpace(rec[idx])
			}
			if row[j] != "" {
				empty = false
			}
		}
		if !empty {
			sheet.Rows = append(sheet.Rows, row)
		}
	}
	if len(sheet.Rows) == 0 {
		return nil, ErrEmptySheet
	}
	return sheet, nil
}
