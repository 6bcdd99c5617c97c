package analytics

import (
	"sort"
	"time"

	"demcli/pkg/contracts/domain"

	"demcli/internal/dataprocessing"
)

// Risk horizon boundaries in days until deadline.
const (
	highRiskHorizon   = 15
	mediumRiskHorizon = 30
)

// Categorize partitions the active records into the board columns. today must
// be a UTC midnight and is held fixed for the whole pass. Records flagged
// with a date error land only in the DateError column, sorted by container;
// the deadline columns are sorted most-urgent-first (demurrage days
// descending, then fewest days of margin left).
func Categorize(records []domain.ContainerRecord, today time.Time) domain.Buckets {
	var buckets domain.Buckets

	for _, rec := range records {
		if !rec.Active() {
			continue
		}
		if rec.HasDateError {
			buckets.DateError = append(buckets.DateError, rec)
			continue
		}

		daysLeft := dataprocessing.DaysUntil(today, rec.EndOfFreeTime)
		switch {
		case daysLeft < 0:
			buckets.Overdue = append(buckets.Overdue, rec)
		case daysLeft <= highRiskHorizon:
			buckets.HighRisk = append(buckets.HighRisk, rec)
		case daysLeft <= mediumRiskHorizon:
			buckets.MediumRisk = append(buckets.MediumRisk, rec)
		default:
			buckets.Safe = append(buckets.Safe, rec)
		}
	}

	sort.Slice(buckets.DateError, func(i, j int) bool {
		return lessFold(buckets.DateError[i].Container, buckets.DateError[j].Container)
	})
	for _, col := range [][]domain.ContainerRecord{buckets.Overdue, buckets.HighRisk, buckets.MediumRisk, buckets.Safe} {
		sortByUrgency(col)
	}
	return buckets
}

func sortByUrgency(records []domain.ContainerRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		if records[i].DemurrageDays != records[j].DemurrageDays {
			return records[i].DemurrageDays > records[j].DemurrageDays
		}
		return records[i].EndOfFreeTime.Before(records[j].EndOfFreeTime)
	})
}

// ComputeKPIs derives the headline counters. Total cost and the returned
// counts cover the whole input; records with date errors are left out only
// of the deadline-based counters, whose dates cannot be trusted.
func ComputeKPIs(records []domain.ContainerRecord, today time.Time) domain.KPISet {
	var kpis domain.KPISet

	for _, rec := range records {
		if rec.DemurrageDays > 0 {
			kpis.TotalCost += rec.DemurrageCost
			if !rec.Active() {
				kpis.ReturnedLate++
			} else if !rec.HasDateError {
				kpis.WithDemurrage++
			}
		} else if !rec.Active() {
			kpis.ReturnedOnTime++
		}

		if rec.HasDateError || !rec.Active() || rec.DemurrageDays > 0 {
			continue
		}
		daysLeft := dataprocessing.DaysUntil(today, rec.EndOfFreeTime)
		if daysLeft >= 0 && daysLeft <= highRiskHorizon {
			kpis.AtRisk15++
		} else if daysLeft > highRiskHorizon && daysLeft <= mediumRiskHorizon {
			kpis.Attention30++
		}
	}
	return kpis
}

// ComputeEfficiency splits the records into the four operational outcomes
// and the two cost views: ActualCost is what returned containers actually
// accrued, IncurredCost adds what the still-active late ones are accruing.
func ComputeEfficiency(records []domain.ContainerRecord) domain.EfficiencyBreakdown {
	var e domain.EfficiencyBreakdown

	for _, rec := range records {
		if rec.HasDateError {
			continue
		}
		switch {
		case !rec.Active() && rec.DemurrageDays > 0:
			e.ReturnedLate++
			e.ActualCost += rec.DemurrageCost
			e.IncurredCost += rec.DemurrageCost
		case !rec.Active():
			e.ReturnedOnTime++
		case rec.DemurrageDays > 0:
			e.ActiveLate++
			e.IncurredCost += rec.DemurrageCost
		default:
			e.ActiveOnTime++
		}
	}
	return e
}
