// Package analytics computes the dashboard views over a normalized record
// set: filtering, sorting, risk buckets, KPIs and per-carrier aggregates.
// Everything here is pure: records in, derived values out, no state.
package analytics

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"demcli/pkg/contracts/domain"
)

// Filter applies the criteria to records and returns the survivors in input
// order. An empty multi-select dimension restricts nothing; date bounds are
// inclusive, and a record without a discharge date fails any discharge bound.
// The free-text search runs last over the already-filtered rows.
func Filter(records []domain.ContainerRecord, criteria domain.FilterCriteria) []domain.ContainerRecord {
	if criteria.Empty() {
		out := make([]domain.ContainerRecord, len(records))
		copy(out, records)
		return out
	}

	out := make([]domain.ContainerRecord, 0, len(records))
	for _, rec := range records {
		if !matches(rec, criteria) {
			continue
		}
		out = append(out, rec)
	}

	if criteria.Search != "" {
		out = searchRecords(out, criteria.Search)
	}
	return out
}

func matches(rec domain.ContainerRecord, c domain.FilterCriteria) bool {
	if !inSet(rec.PurchaseOrder, c.PurchaseOrders) {
		return false
	}
	if !inSet(rec.Vessel, c.Vessels) {
		return false
	}
	if !inSet(rec.Container, c.Containers) {
		return false
	}
	if !inSet(rec.FinalStatus, c.FinalStatuses) {
		return false
	}
	if !inSet(rec.LoadingType, c.LoadingTypes) {
		return false
	}
	if !inSet(rec.CargoType, c.CargoTypes) {
		return false
	}
	if !inSet(rec.Shipowner, c.Shipowners) {
		return false
	}

	if c.DischargeFrom != nil || c.DischargeTo != nil {
		if rec.DischargeDate == nil {
			return false
		}
		if c.DischargeFrom != nil && rec.DischargeDate.Before(*c.DischargeFrom) {
			return false
		}
		if c.DischargeTo != nil && rec.DischargeDate.After(*c.DischargeTo) {
			return false
		}
	}
	if c.DeadlineFrom != nil && rec.EndOfFreeTime.Before(*c.DeadlineFrom) {
		return false
	}
	if c.DeadlineTo != nil && rec.EndOfFreeTime.After(*c.DeadlineTo) {
		return false
	}
	return true
}

func inSet(value string, set []string) bool {
	if len(set) == 0 {
		return true
	}
	for _, s := range set {
		if s == value {
			return true
		}
	}
	return false
}

// searchRecords keeps the records whose rendered field values contain the
// query, case-insensitively. Dates render as YYYY-MM-DD and the cost with
// two decimals, matching what the dashboard table shows.
func searchRecords(records []domain.ContainerRecord, query string) []domain.ContainerRecord {
	needle := strings.ToLower(strings.TrimSpace(query))
	if needle == "" {
		return records
	}

	out := make([]domain.ContainerRecord, 0, len(records))
	for _, rec := range records {
		if strings.Contains(searchText(rec), needle) {
			out = append(out, rec)
		}
	}
	return out
}

func searchText(rec domain.ContainerRecord) string {
	parts := []string{
		rec.Container,
		rec.PurchaseOrder,
		rec.Vessel,
		rec.FinalStatus,
		rec.LoadingType,
		rec.CargoType,
		rec.Shipowner,
		rec.EndOfFreeTime.Format("2006-01-02"),
		strconv.Itoa(rec.FreeDays),
		strconv.Itoa(rec.DemurrageDays),
		strconv.FormatFloat(rec.DemurrageCost, 'f', 2, 64),
	}
	if rec.DischargeDate != nil {
		parts = append(parts, rec.DischargeDate.Format("2006-01-02"))
	}
	if rec.ReturnDate != nil {
		parts = append(parts, rec.ReturnDate.Format("2006-01-02"))
	}
	return strings.ToLower(strings.Join(parts, " "))
}

// Sortable field names accepted by SortRecords.
const (
	SortByContainer     = "container"
	SortByPurchaseOrder = "purchase_order"
	SortByVessel        = "vessel"
	SortByDischargeDate = "discharge_date"
	SortByFreeDays      = "free_days"
	SortByEndOfFreeTime = "end_of_free_time"
	SortByReturnDate    = "return_date"
	SortByShipowner     = "shipowner"
	SortByDemurrageDays = "demurrage_days"
	SortByDemurrageCost = "demurrage_cost"
)

// SortRecords orders records by the named field, stably, so equal keys keep
// their relative input order. Unknown fields and SortNone leave the input
// order untouched. Records missing an optional date sort after those that
// have one regardless of direction.
func SortRecords(records []domain.ContainerRecord, field string, dir domain.SortDirection) {
	if dir != domain.SortAsc && dir != domain.SortDesc {
		return
	}

	switch field {
	case SortByDischargeDate:
		sortByOptionalDate(records, dir, func(r domain.ContainerRecord) *time.Time { return r.DischargeDate })
		return
	case SortByReturnDate:
		sortByOptionalDate(records, dir, func(r domain.ContainerRecord) *time.Time { return r.ReturnDate })
		return
	}

	less := lessFunc(field)
	if less == nil {
		return
	}
	sort.SliceStable(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if dir == domain.SortDesc {
			a, b = b, a
		}
		return less(a, b)
	})
}

// sortByOptionalDate keeps records without the date at the end whatever the
// direction; only the records that have one are ordered by it.
func sortByOptionalDate(records []domain.ContainerRecord, dir domain.SortDirection, key func(domain.ContainerRecord) *time.Time) {
	sort.SliceStable(records, func(i, j int) bool {
		a, b := key(records[i]), key(records[j])
		if a == nil || b == nil {
			return a != nil && b == nil
		}
		if dir == domain.SortDesc {
			return b.Before(*a)
		}
		return a.Before(*b)
	})
}

// lessFold orders strings case-insensitively, so "apple" sorts with "Apple"
// rather than after every uppercase value.
func lessFold(a, b string) bool {
	return strings.ToLower(a) < strings.ToLower(b)
}

func lessFunc(field string) func(a, b domain.ContainerRecord) bool {
	switch field {
	case SortByContainer:
		return func(a, b domain.ContainerRecord) bool { return lessFold(a.Container, b.Container) }
	case SortByPurchaseOrder:
		return func(a, b domain.ContainerRecord) bool { return lessFold(a.PurchaseOrder, b.PurchaseOrder) }
	case SortByVessel:
		return func(a, b domain.ContainerRecord) bool { return lessFold(a.Vessel, b.Vessel) }
	case SortByShipowner:
		return func(a, b domain.ContainerRecord) bool { return lessFold(a.Shipowner, b.Shipowner) }
	case SortByFreeDays:
		return func(a, b domain.ContainerRecord) bool { return a.FreeDays < b.FreeDays }
	case SortByDemurrageDays:
		return func(a, b domain.ContainerRecord) bool { return a.DemurrageDays < b.DemurrageDays }
	case SortByDemurrageCost:
		return func(a, b domain.ContainerRecord) bool { return a.DemurrageCost < b.DemurrageCost }
	case SortByEndOfFreeTime:
		return func(a, b domain.ContainerRecord) bool { return a.EndOfFreeTime.Before(b.EndOfFreeTime) }
	default:
		return nil
	}
}
