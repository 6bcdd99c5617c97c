package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"demcli/pkg/contracts/domain"
)

// boardRecords builds a record set covering every board column relative to
// today = 2024-01-25.
func boardRecords() []domain.ContainerRecord {
	return []domain.ContainerRecord{
		// Active and already past the deadline, accruing.
		{Container: "OVR1", Shipowner: "MSC", EndOfFreeTime: day(2024, time.January, 11), DemurrageDays: 14, DemurrageCost: 1680},
		{Container: "OVR2", Shipowner: "MSC", EndOfFreeTime: day(2024, time.January, 20), DemurrageDays: 5, DemurrageCost: 600},
		// Deadline within 15 days.
		{Container: "HR1", Shipowner: "COSCO", EndOfFreeTime: day(2024, time.February, 5)},
		// Deadline within 30 days.
		{Container: "MR1", Shipowner: "COSCO", EndOfFreeTime: day(2024, time.February, 20)},
		// Far out.
		{Container: "SAFE1", Shipowner: "CSSC", EndOfFreeTime: day(2024, time.April, 1)},
		// Returned late and on time.
		{Container: "RL1", Shipowner: "MSC", EndOfFreeTime: day(2024, time.January, 1), ReturnDate: dayPtr(2024, time.January, 6), DemurrageDays: 5, DemurrageCost: 600},
		{Container: "ROT1", Shipowner: "MSC", EndOfFreeTime: day(2024, time.January, 10), ReturnDate: dayPtr(2024, time.January, 8)},
		// Broken dates.
		{Container: "ERR1", Shipowner: "MSC", EndOfFreeTime: day(1900, time.January, 1), DemurrageDays: 999, DemurrageCost: 99999, HasDateError: true},
	}
}

func TestCategorize(t *testing.T) {
	today := day(2024, time.January, 25)
	buckets := Categorize(boardRecords(), today)

	assert.Equal(t, []string{"OVR1", "OVR2"}, containerNames(buckets.Overdue))
	assert.Equal(t, []string{"HR1"}, containerNames(buckets.HighRisk))
	assert.Equal(t, []string{"MR1"}, containerNames(buckets.MediumRisk))
	assert.Equal(t, []string{"SAFE1"}, containerNames(buckets.Safe))
	assert.Equal(t, []string{"ERR1"}, containerNames(buckets.DateError))
}

func TestCategorize_ExcludesReturned(t *testing.T) {
	today := day(2024, time.January, 25)
	buckets := Categorize(boardRecords(), today)

	all := append(append(append(append([]domain.ContainerRecord{},
		buckets.DateError...), buckets.Overdue...), buckets.HighRisk...),
		append(buckets.MediumRisk, buckets.Safe...)...)
	for _, rec := range all {
		assert.NotContains(t, []string{"RL1", "ROT1"}, rec.Container)
	}
}

func TestCategorize_HorizonBoundaries(t *testing.T) {
	today := day(2024, time.January, 25)

	records := []domain.ContainerRecord{
		{Container: "YDAY", EndOfFreeTime: day(2024, time.January, 24)},     // already past: overdue
		{Container: "TODAY", EndOfFreeTime: day(2024, time.January, 25)},    // deadline today: still at risk
		{Container: "D15", EndOfFreeTime: day(2024, time.February, 9)},      // exactly 15: high risk
		{Container: "D16", EndOfFreeTime: day(2024, time.February, 10)},     // 16: medium
		{Container: "D30", EndOfFreeTime: day(2024, time.February, 24)},     // exactly 30: medium
		{Container: "D31", EndOfFreeTime: day(2024, time.February, 25)},     // 31: safe
	}

	buckets := Categorize(records, today)
	assert.Equal(t, []string{"YDAY"}, containerNames(buckets.Overdue))
	assert.Equal(t, []string{"TODAY", "D15"}, containerNames(buckets.HighRisk))
	assert.ElementsMatch(t, []string{"D16", "D30"}, containerNames(buckets.MediumRisk))
	assert.Equal(t, []string{"D31"}, containerNames(buckets.Safe))
}

func TestCategorize_DeadlineTodayIsHighRisk(t *testing.T) {
	today := day(2024, time.March, 10)
	records := []domain.ContainerRecord{
		{Container: "DUE", EndOfFreeTime: day(2024, time.March, 10)},
	}

	buckets := Categorize(records, today)
	assert.Empty(t, buckets.Overdue)
	assert.Equal(t, []string{"DUE"}, containerNames(buckets.HighRisk))
}

func TestCategorize_OverdueOrderedMostUrgentFirst(t *testing.T) {
	today := day(2024, time.June, 1)
	records := []domain.ContainerRecord{
		{Container: "SMALL", EndOfFreeTime: day(2024, time.May, 30), DemurrageDays: 2},
		{Container: "BIG", EndOfFreeTime: day(2024, time.May, 1), DemurrageDays: 31},
	}

	buckets := Categorize(records, today)
	require.Len(t, buckets.Overdue, 2)
	assert.Equal(t, "BIG", buckets.Overdue[0].Container)
}

func TestComputeKPIs(t *testing.T) {
	today := day(2024, time.January, 25)
	kpis := ComputeKPIs(boardRecords(), today)

	assert.Equal(t, 2, kpis.WithDemurrage)
	assert.Equal(t, 1, kpis.ReturnedLate)
	assert.Equal(t, 1, kpis.AtRisk15)
	assert.Equal(t, 1, kpis.Attention30)
	assert.Equal(t, 1, kpis.ReturnedOnTime)
	// ERR1's cost still counts; its date error only keeps it out of the
	// deadline-based counters.
	assert.Equal(t, 102879.0, kpis.TotalCost)
}

func TestComputeKPIs_DeadlineTodayIsAtRisk(t *testing.T) {
	today := day(2024, time.March, 10)
	kpis := ComputeKPIs([]domain.ContainerRecord{
		{Container: "DUE", EndOfFreeTime: day(2024, time.March, 10)},
	}, today)

	assert.Equal(t, 1, kpis.AtRisk15)
	assert.Equal(t, 0, kpis.WithDemurrage)
}

func TestComputeKPIs_DateErrorCostStillCounts(t *testing.T) {
	today := day(2024, time.January, 25)
	kpis := ComputeKPIs([]domain.ContainerRecord{
		{Container: "ERR1", EndOfFreeTime: day(1900, time.January, 1), DemurrageDays: 45000, DemurrageCost: 4500000, HasDateError: true},
		{Container: "RL1", EndOfFreeTime: day(2024, time.January, 1), ReturnDate: dayPtr(2024, time.January, 6), DemurrageDays: 5, DemurrageCost: 1000},
	}, today)

	assert.Equal(t, 4501000.0, kpis.TotalCost)
	assert.Equal(t, 1, kpis.ReturnedLate)
	assert.Equal(t, 0, kpis.WithDemurrage)
	assert.Equal(t, 0, kpis.AtRisk15)
}

func TestComputeKPIs_Empty(t *testing.T) {
	kpis := ComputeKPIs(nil, day(2024, time.January, 25))
	assert.Equal(t, domain.KPISet{}, kpis)
}

func TestComputeEfficiency(t *testing.T) {
	e := ComputeEfficiency(boardRecords())

	assert.Equal(t, 1, e.ReturnedOnTime)
	assert.Equal(t, 1, e.ReturnedLate)
	assert.Equal(t, 2, e.ActiveLate)
	assert.Equal(t, 3, e.ActiveOnTime)
	// Actual cost counts only returned containers; incurred adds active ones.
	assert.Equal(t, 600.0, e.ActualCost)
	assert.Equal(t, 2880.0, e.IncurredCost)
}
