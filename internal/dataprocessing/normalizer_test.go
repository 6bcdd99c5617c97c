package dataprocessing

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"demcli/pkg/contracts/domain"
)

func testRates() domain.RateTable {
	return domain.DefaultRateTable()
}

func TestNormalizer_DemurrageForActiveContainer(t *testing.T) {
	n := NewNormalizer(slog.Default())
	today := day(2024, time.January, 25)

	rows := []domain.RawRow{
		{
			domain.FieldContainer:     "ABC1",
			domain.FieldShipowner:     "MSC",
			domain.FieldEndOfFreeTime: "2024-01-11",
		},
	}

	result := n.Normalize(rows, testRates(), today)
	require.Len(t, result.Records, 1)
	require.Empty(t, result.Dropped)

	rec := result.Records[0]
	assert.Equal(t, "ABC1", rec.Container)
	assert.Equal(t, 14, rec.DemurrageDays)
	assert.Equal(t, 1680.0, rec.DemurrageCost) // 14 days at the MSC rate
	assert.True(t, rec.Active())
	assert.False(t, rec.HasDateError)
}

func TestNormalizer_ReturnedContainerUsesReturnDate(t *testing.T) {
	n := NewNormalizer(slog.Default())
	today := day(2024, time.June, 1)

	rows := []domain.RawRow{
		{
			domain.FieldContainer:     "RET1",
			domain.FieldShipowner:     "COSCO",
			domain.FieldEndOfFreeTime: "2024-01-10",
			domain.FieldDepotStatus:   "ENTREGUE",
			domain.FieldReturnDate:    "2024-01-15",
		},
	}

	result := n.Normalize(rows, testRates(), today)
	require.Len(t, result.Records, 1)

	rec := result.Records[0]
	require.NotNil(t, rec.ReturnDate)
	assert.True(t, day(2024, time.January, 15).Equal(*rec.ReturnDate))
	// Days accrue against the return date, not today.
	assert.Equal(t, 5, rec.DemurrageDays)
	assert.Equal(t, 550.0, rec.DemurrageCost)
	assert.False(t, rec.Active())
}

func TestNormalizer_ReturnDateIgnoredWithoutDeliveredStatus(t *testing.T) {
	n := NewNormalizer(slog.Default())
	today := day(2024, time.January, 25)

	rows := []domain.RawRow{
		{
			domain.FieldContainer:     "DEP1",
			domain.FieldEndOfFreeTime: "2024-01-11",
			domain.FieldDepotStatus:   "EM TRANSITO",
			domain.FieldReturnDate:    "2024-01-15",
		},
	}

	result := n.Normalize(rows, testRates(), today)
	require.Len(t, result.Records, 1)
	assert.Nil(t, result.Records[0].ReturnDate)
	assert.Equal(t, 14, result.Records[0].DemurrageDays)
}

func TestNormalizer_DeliveredWithBadReturnDateStaysActive(t *testing.T) {
	n := NewNormalizer(slog.Default())
	today := day(2024, time.January, 25)

	rows := []domain.RawRow{
		{
			domain.FieldContainer:     "BAD1",
			domain.FieldEndOfFreeTime: "2024-01-11",
			domain.FieldDepotStatus:   "ENTREGUE",
			domain.FieldReturnDate:    "#N/A",
		},
	}

	result := n.Normalize(rows, testRates(), today)
	require.Len(t, result.Records, 1)
	require.Len(t, result.Degraded, 1)
	assert.Equal(t, ReasonBadReturnDate, result.Degraded[0].Reason)

	rec := result.Records[0]
	assert.Nil(t, rec.ReturnDate)
	assert.True(t, rec.Active())
	// Demurrage keeps accruing against today.
	assert.Equal(t, 14, rec.DemurrageDays)
}

func TestNormalizer_DeadlineDerivedFromDischargePlusFreeDays(t *testing.T) {
	n := NewNormalizer(slog.Default())
	today := day(2024, time.January, 25)

	rows := []domain.RawRow{
		{
			domain.FieldContainer:     "DRV1",
			domain.FieldDischargeDate: "2024-01-10",
			domain.FieldFreeDays:      float64(5),
		},
	}

	result := n.Normalize(rows, testRates(), today)
	require.Len(t, result.Records, 1)

	rec := result.Records[0]
	assert.True(t, day(2024, time.January, 15).Equal(rec.EndOfFreeTime))
	assert.Equal(t, 5, rec.FreeDays)
	assert.Equal(t, 10, rec.DemurrageDays)
}

func TestNormalizer_DropsRowsWithoutIdentityOrDeadline(t *testing.T) {
	n := NewNormalizer(slog.Default())
	today := day(2024, time.January, 25)

	rows := []domain.RawRow{
		{domain.FieldEndOfFreeTime: "2024-01-11"},
		{domain.FieldContainer: "(vazio)", domain.FieldEndOfFreeTime: "2024-01-11"},
		{domain.FieldContainer: "NODL1", domain.FieldFreeDays: float64(5)},
		{domain.FieldContainer: "OK1", domain.FieldEndOfFreeTime: "2024-01-11"},
	}

	result := n.Normalize(rows, testRates(), today)
	require.Len(t, result.Records, 1)
	assert.Equal(t, "OK1", result.Records[0].Container)

	require.Len(t, result.Dropped, 3)
	assert.Equal(t, ReasonMissingContainer, result.Dropped[0].Reason)
	assert.Equal(t, ReasonEmptySentinel, result.Dropped[1].Reason)
	assert.Equal(t, ReasonNoDeadline, result.Dropped[2].Reason)
}

func TestNormalizer_ExcelSerialDates(t *testing.T) {
	n := NewNormalizer(slog.Default())
	today := day(2024, time.January, 25)

	rows := []domain.RawRow{
		{
			domain.FieldContainer:     "SER1",
			domain.FieldEndOfFreeTime: float64(45302), // 2024-01-11
		},
	}

	result := n.Normalize(rows, testRates(), today)
	require.Len(t, result.Records, 1)
	assert.True(t, day(2024, time.January, 11).Equal(result.Records[0].EndOfFreeTime))
	assert.Equal(t, 14, result.Records[0].DemurrageDays)
}

func TestNormalizer_ImplausibleYearFlagsDateError(t *testing.T) {
	n := NewNormalizer(slog.Default())
	today := day(2024, time.January, 25)

	rows := []domain.RawRow{
		{
			domain.FieldContainer:     "OLD1",
			domain.FieldEndOfFreeTime: "01/01/1900",
		},
	}

	result := n.Normalize(rows, testRates(), today)
	require.Len(t, result.Records, 1)
	assert.True(t, result.Records[0].HasDateError)
}

func TestNormalizer_Defaults(t *testing.T) {
	n := NewNormalizer(slog.Default())
	today := day(2024, time.January, 25)

	rows := []domain.RawRow{
		{
			domain.FieldContainer:     "DEF1",
			domain.FieldEndOfFreeTime: "2024-02-01",
		},
	}

	result := n.Normalize(rows, testRates(), today)
	require.Len(t, result.Records, 1)

	rec := result.Records[0]
	assert.Equal(t, "", rec.PurchaseOrder)
	assert.Equal(t, "", rec.Vessel)
	assert.Equal(t, "IN-TRANSIT", rec.FinalStatus)
	assert.Equal(t, "N/A", rec.LoadingType)
	assert.Equal(t, "N/A", rec.CargoType)
	assert.Equal(t, "N/A", rec.Shipowner)
	assert.Equal(t, 0, rec.DemurrageDays)
	assert.Equal(t, 0.0, rec.DemurrageCost)
}

func TestNormalizer_UnknownCarrierUsesDefaultRate(t *testing.T) {
	n := NewNormalizer(slog.Default())
	today := day(2024, time.January, 25)

	rows := []domain.RawRow{
		{
			domain.FieldContainer:     "UNK1",
			domain.FieldShipowner:     "HAPAG",
			domain.FieldEndOfFreeTime: "2024-01-15",
		},
	}

	result := n.Normalize(rows, testRates(), today)
	require.Len(t, result.Records, 1)
	assert.Equal(t, 10, result.Records[0].DemurrageDays)
	assert.Equal(t, 1000.0, result.Records[0].DemurrageCost)
}

func TestRehydrate(t *testing.T) {
	discharge := day(1900, time.January, 1)
	records := []domain.ContainerRecord{
		{Container: "KEEP1", EndOfFreeTime: day(2024, time.January, 11)},
		{Container: "DROP1"}, // deadline lost in the round trip
		{Container: "FLAG1", EndOfFreeTime: day(2024, time.January, 11), DischargeDate: &discharge},
	}

	out := Rehydrate(records)
	require.Len(t, out, 2)
	assert.Equal(t, "KEEP1", out[0].Container)
	assert.False(t, out[0].HasDateError)
	assert.Equal(t, "FLAG1", out[1].Container)
	assert.True(t, out[1].HasDateError)
}
