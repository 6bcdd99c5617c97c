package dataprocessing

import (
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"demcli/pkg/contracts/domain"
)

// headerAliases maps the spreadsheet header spellings (lower-cased) onto the
// canonical field names. The operational sheets are hand-maintained, so the
// match is done on trimmed, lower-cased text rather than exact bytes.
var headerAliases = map[string]string{
	"cntrs original":           domain.FieldContainer,
	"po sap":                   domain.FieldPurchaseOrder,
	"arrival vessel":           domain.FieldVessel,
	"ata":                      domain.FieldDischargeDate,
	"free time":                domain.FieldFreeDays,
	"deadline return cntr":     domain.FieldEndOfFreeTime,
	"status cntr warehouse":    domain.FieldFinalStatus,
	"loading type":             domain.FieldLoadingType,
	"type of cargo":            domain.FieldCargoType,
	"shipowner":                domain.FieldShipowner,
	"actual depot return date": domain.FieldReturnDate,
	"status":                   domain.FieldDepotStatus,
}

// requiredFields must all be present in a header row for it to be accepted.
// Everything else is optional and defaulted downstream.
var requiredFields = []string{domain.FieldContainer}

// ColumnMap is the resolved header layout: canonical field name to zero-based
// column index.
type ColumnMap map[string]int

// ResolveHeaders matches a candidate header row against the known aliases.
// The second return is false when the row does not look like the header row
// (no container column).
func ResolveHeaders(row []string) (ColumnMap, bool) {
	columns := make(ColumnMap)
	for i, cell := range row {
		key := strings.ToLower(strings.TrimSpace(cell))
		if key == "" {
			continue
		}
		if field, ok := headerAliases[key]; ok {
			if _, taken := columns[field]; !taken {
				columns[field] = i
			}
		}
	}
	for _, field := range requiredFields {
		if _, ok := columns[field]; !ok {
			return nil, false
		}
	}
	return columns, true
}

// ReadWorkbook reads the first sheet of an XLSX stream and returns its rows
// keyed by canonical field names. Numeric-looking cells come back as float64
// so Excel date serials keep their numeric identity; everything else stays a
// trimmed string. Rows before the header row and fully empty rows are
// skipped.
func ReadWorkbook(r io.Reader, logger *slog.Logger) ([]domain.RawRow, error) {
	if logger == nil {
		logger = slog.Default()
	}

	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}

	// Scan sheets in order and take the first one with a recognizable header
	// row in its top rows. Operational files sometimes carry a cover sheet
	// before the data.
	for _, sheet := range sheets {
		rows, err := f.GetRows(sheet)
		if err != nil {
			logger.Warn("failed to read sheet, trying next",
				slog.String("sheet", sheet),
				slog.String("error", err.Error()))
			continue
		}

		headerIdx, columns := findHeaderRow(rows)
		if headerIdx < 0 {
			continue
		}

		logger.Info("resolved workbook layout",
			slog.String("sheet", sheet),
			slog.Int("header_row", headerIdx),
			slog.Int("columns", len(columns)),
			slog.Int("data_rows", len(rows)-headerIdx-1))

		return extractRows(rows[headerIdx+1:], columns), nil
	}

	return nil, fmt.Errorf("no sheet with a recognizable header row")
}

// ReadWorkbookFile is the file-path convenience wrapper around ReadWorkbook.
func ReadWorkbookFile(path string, logger *slog.Logger) ([]domain.RawRow, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook %s: %w", path, err)
	}
	defer f.Close()

	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			continue
		}
		if headerIdx, columns := findHeaderRow(rows); headerIdx >= 0 {
			return extractRows(rows[headerIdx+1:], columns), nil
		}
	}
	return nil, fmt.Errorf("no recognizable header row in %s", path)
}

// headerScanDepth limits how far down a sheet the header search goes.
const headerScanDepth = 10

func findHeaderRow(rows [][]string) (int, ColumnMap) {
	for i, row := range rows {
		if i >= headerScanDepth {
			break
		}
		if columns, ok := ResolveHeaders(row); ok {
			return i, columns
		}
	}
	return -1, nil
}

func extractRows(rows [][]string, columns ColumnMap) []domain.RawRow {
	out := make([]domain.RawRow, 0, len(rows))
	for _, row := range rows {
		raw := make(domain.RawRow, len(columns))
		for field, idx := range columns {
			if idx >= len(row) {
				continue
			}
			cell := strings.TrimSpace(row[idx])
			if cell == "" {
				continue
			}
			raw[field] = cellValue(cell)
		}
		if len(raw) == 0 {
			continue
		}
		out = append(out, raw)
	}
	return out
}

// cellValue keeps numeric cells numeric. GetRows hands every cell back as a
// string; date serials and day counts need to survive as numbers for the
// normalizer's type switch.
func cellValue(cell string) any {
	if f, err := strconv.ParseFloat(cell, 64); err == nil {
		return f
	}
	return cell
}
