package main

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"demcli/internal/config"
)

func writeWorkbook(t *testing.T, path string, dataRows ...[]any) {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)

	header := []any{"CNTRS ORIGINAL", "SHIPOWNER", "DEADLINE RETURN CNTR", "STATUS", "ACTUAL DEPOT RETURN DATE"}
	rows := append([][]any{header}, dataRows...)
	for i, row := range rows {
		for j, cell := range row {
			axis, err := excelize.CoordinatesToCellName(j+1, i+1)
			require.NoError(t, err)
			require.NoError(t, f.SetCellValue(sheet, axis, cell))
		}
	}

	require.NoError(t, f.SaveAs(path))
}

func TestRun(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "week.xlsx")
	out := filepath.Join(dir, "reports")
	writeWorkbook(t, in,
		[]any{"ABC1", "MSC", "2024-01-11", "", ""},
		[]any{"RET1", "COSCO", "2024-01-10", "ENTREGUE", "2024-01-15"},
	)

	cfg := config.Default()
	cfg.Paths.DataDir = dir

	err := run(in, out, "2024-01-25", cfg, slog.Default())
	require.NoError(t, err)

	for _, name := range []string{"containers.csv", "kpis.csv", "buckets.csv", "carriers.csv"} {
		_, err := os.Stat(filepath.Join(out, name))
		assert.NoError(t, err, name)
	}
}

func TestRun_InvalidAsOf(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "week.xlsx")
	writeWorkbook(t, in, []any{"ABC1", "MSC", "2024-01-11", "", ""})

	err := run(in, dir, "25/01/2024", config.Default(), slog.Default())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "as-of")
}

func TestRun_NoUsableRecords(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "empty.xlsx")
	writeWorkbook(t, in, []any{"(vazio)", "MSC", "2024-01-11", "", ""})

	err := run(in, dir, "2024-01-25", config.Default(), slog.Default())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no usable records")
}
