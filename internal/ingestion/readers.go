package ingestion

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"fundamentals-lab/internal/normalization"
)

// ReadRows loads raw rows from a source file, dispatching on extension.
// Supported formats: .xlsx, .csv, .json. Structural problems wrap
// normalization.ErrInputShape so callers can tell bad payloads from I/O
// failures.
func ReadRows(path string) ([]normalization.RawRow, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".xlsx":
		return readXLSX(path)
	case ".csv":
		return readCSV(path)
	case ".json":
		return readJSON(path)
	default:
		return nil, fmt.Errorf("%w: unsupported file extension %q", normalization.ErrInputShape, ext)
	}
}

// readXLSX reads the first sheet of a workbook. The first row is the header
// row; raw cell values are used so display formatting (thousand separators)
// never reaches the coercion layer.
func readXLSX(path string) ([]normalization.RawRow, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w: workbook has no sheets", normalization.ErrInputShape)
	}

	table, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheets[0], err)
	}
	return rowsFromTable(table), nil
}

func readCSV(path string) ([]normalization.RawRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	// Ragged exports are tolerated; short rows are padded in rowsFromTable.
	reader.FieldsPerRecord = -1
	table, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: parse csv: %v", normalization.ErrInputShape, err)
	}
	return rowsFromTable(table), nil
}

// readJSON accepts either a top-level array of records or an object with a
// rows array.
func readJSON(path string) ([]normalization.RawRow, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("open json: %w", err)
	}

	var payload any
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("%w: parse json: %v", normalization.ErrInputShape, err)
	}

	if obj, ok := payload.(map[string]any); ok {
		rows, ok := obj["rows"]
		if !ok {
			return nil, fmt.Errorf("%w: object payload has no rows array", normalization.ErrInputShape)
		}
		payload = rows
	}

	return normalization.RowsFromAny(payload)
}

// rowsFromTable converts a header row plus data rows into raw records.
// Short rows are padded so every header resolves; unnamed columns are
// skipped.
func rowsFromTable(table [][]string) []normalization.RawRow {
	if len(table) == 0 {
		return nil
	}

	headers := table[0]
	rows := make([]normalization.RawRow, 0, len(table)-1)
	for _, line := range table[1:] {
		row := make(normalization.RawRow, len(headers))
		for i, h := range headers {
			if strings.TrimSpace(h) == "" {
				continue
			}
			if i < len(line) {
				row[h] = line[i]
			} else {
				row[h] = ""
			}
		}
		rows = append(rows, row)
	}
	return rows
}
