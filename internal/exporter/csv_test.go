package exporter

import (
	"encoding/csv"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"demcli/pkg/contracts/domain"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	// Strip the UTF-8 BOM before parsing.
	content := strings.TrimPrefix(string(data), "\xEF\xBB\xBF")
	rows, err := csv.NewReader(strings.NewReader(content)).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestWriteSimpleCSV(t *testing.T) {
	dir := t.TempDir()
	w := NewCSVWriter(dir, slog.Default())

	err := w.WriteSimpleCSV("out.csv",
		[]string{"A", "B"},
		[][]string{{"1", "x"}, {"2", "y"}})
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, "out.csv"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "\xEF\xBB\xBF"), "expected UTF-8 BOM")

	rows := readCSV(t, filepath.Join(dir, "out.csv"))
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"A", "B"}, rows[0])
	assert.Equal(t, []string{"2", "y"}, rows[2])
}

func TestWriteCSV_CreatesNestedDirectories(t *testing.T) {
	dir := t.TempDir()
	w := NewCSVWriter(dir, slog.Default())

	err := w.WriteCSV("reports/weekly/out.csv", WriteOptions{
		Headers: []string{"A"},
		Records: [][]string{{"1"}},
	})
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(dir, "reports", "weekly", "out.csv"))
	assert.NoError(t, err)
}

func TestWriteContainerReport(t *testing.T) {
	dir := t.TempDir()
	w := NewCSVWriter(dir, slog.Default())

	ret := day(2024, time.January, 15)
	records := []domain.ContainerRecord{
		{
			Container:     "ABC1",
			Vessel:        "MSC OSCAR",
			FreeDays:      5,
			EndOfFreeTime: day(2024, time.January, 11),
			Shipowner:     "MSC",
			DemurrageDays: 14,
			DemurrageCost: 1680,
		},
		{
			Container:     "RET1",
			EndOfFreeTime: day(2024, time.January, 10),
			ReturnDate:    &ret,
			Shipowner:     "COSCO",
			DemurrageDays: 5,
			DemurrageCost: 550,
		},
	}

	require.NoError(t, w.WriteContainerReport("containers.csv", records))

	rows := readCSV(t, filepath.Join(dir, "containers.csv"))
	require.Len(t, rows, 3)
	assert.Equal(t, recordHeaders, rows[0])

	assert.Equal(t, "ABC1", rows[1][0])
	assert.Equal(t, "2024-01-11", rows[1][5])
	assert.Equal(t, "", rows[1][6], "active container has no return date")
	assert.Equal(t, "1680.00", rows[1][12])

	assert.Equal(t, "RET1", rows[2][0])
	assert.Equal(t, "2024-01-15", rows[2][6])
	assert.Equal(t, "550.00", rows[2][12])
}

func TestWriteKPIReport(t *testing.T) {
	dir := t.TempDir()
	w := NewCSVWriter(dir, slog.Default())

	kpis := domain.KPISet{
		WithDemurrage:  2,
		ReturnedLate:   1,
		AtRisk15:       1,
		Attention30:    1,
		ReturnedOnTime: 3,
		TotalCost:      2880,
	}
	require.NoError(t, w.WriteKPIReport("kpis.csv", kpis))

	rows := readCSV(t, filepath.Join(dir, "kpis.csv"))
	require.Len(t, rows, 7)
	assert.Equal(t, []string{"with_demurrage", "2"}, rows[1])
	assert.Equal(t, []string{"total_cost", "2880.00"}, rows[6])
}

func TestWriteFullReport(t *testing.T) {
	dir := t.TempDir()
	w := NewCSVWriter(dir, slog.Default())

	records := []domain.ContainerRecord{
		{
			Container:     "ABC1",
			EndOfFreeTime: day(2024, time.January, 11),
			Shipowner:     "MSC",
			DemurrageDays: 14,
			DemurrageCost: 1680,
		},
	}

	require.NoError(t, w.WriteFullReport(records, day(2024, time.January, 25)))

	for _, name := range []string{"containers.csv", "kpis.csv", "buckets.csv", "carriers.csv"} {
		_, err := os.Stat(filepath.Join(dir, name))
		assert.NoError(t, err, name)
	}

	carriers := readCSV(t, filepath.Join(dir, "carriers.csv"))
	require.Len(t, carriers, 2)
	assert.Equal(t, []string{"MSC", "1", "1680.00"}, carriers[1])
}
