package domain

import (
	"time"
)

// Canonical field names produced by the header-resolution step. The
// normalizer only ever sees these keys; the raw spreadsheet headers are
// mapped onto them before normalization starts.
const (
	FieldContainer     = "container"
	FieldPurchaseOrder = "purchase_order"
	FieldVessel        = "vessel"
	FieldDischargeDate = "discharge_date"
	FieldFreeDays      = "free_days"
	FieldEndOfFreeTime = "end_of_free_time"
	FieldFinalStatus   = "final_status"
	FieldLoadingType   = "loading_type"
	FieldCargoType     = "cargo_type"
	FieldShipowner     = "shipowner"
	FieldReturnDate    = "return_date"
	FieldDepotStatus   = "depot_status"
)

// RawRow is a single spreadsheet row after header resolution. Values are
// whatever shape the cell carried: string, float64 (numeric cell, including
// Excel day-serials), time.Time, or nil.
type RawRow map[string]any

// ContainerRecord is the canonical per-container entity produced by
// normalization. EndOfFreeTime is always set; a row for which no deadline
// could be determined never becomes a record.
type ContainerRecord struct {
	Container     string     `json:"container" validate:"required"`
	PurchaseOrder string     `json:"purchase_order"`
	Vessel        string     `json:"vessel"`
	DischargeDate *time.Time `json:"discharge_date,omitempty"`
	FreeDays      int        `json:"free_days"`
	EndOfFreeTime time.Time  `json:"end_of_free_time"`
	ReturnDate    *time.Time `json:"return_date,omitempty"`
	FinalStatus   string     `json:"final_status"`
	LoadingType   string     `json:"loading_type"`
	CargoType     string     `json:"cargo_type"`
	Shipowner     string     `json:"shipowner"`
	DemurrageDays int        `json:"demurrage_days"`
	DemurrageCost float64    `json:"demurrage_cost"`
	HasDateError  bool       `json:"has_date_error"`
}

// Active reports whether the container is still out (no confirmed return).
func (r *ContainerRecord) Active() bool {
	return r.ReturnDate == nil
}

// PaidStatusMap tracks which containers have had their demurrage invoice
// settled. Keyed by container identity so it survives dataset replacement;
// entries for containers no longer present are left as orphans.
type PaidStatusMap map[string]bool

// Snapshot is an immutable capture of a full dataset plus its configuration,
// taken right before a new upload replaces the live data.
type Snapshot struct {
	Timestamp    time.Time         `json:"timestamp"`
	SourceName   string            `json:"source_name"`
	Records      []ContainerRecord `json:"records"`
	Rates        RateTable         `json:"rates"`
	PaidStatuses PaidStatusMap     `json:"paid_statuses"`
}

// SnapshotMeta is the listing form of a snapshot, without the record payload.
type SnapshotMeta struct {
	Timestamp   time.Time `json:"timestamp"`
	SourceName  string    `json:"source_name"`
	RecordCount int       `json:"record_count"`
}

// LiveState is the persisted live dataset: everything needed to restore the
// dashboard between runs. Dates round-trip as RFC 3339 strings and are
// re-validated on load.
type LiveState struct {
	Records      []ContainerRecord `json:"records"`
	Rates        RateTable         `json:"rates"`
	PaidStatuses PaidStatusMap     `json:"paid_statuses"`
	LastUpdate   string            `json:"last_update"`
	Language     string            `json:"language"`
}

// SortDirection controls record ordering in query responses.
type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
	SortNone SortDirection = "none"
)

// FilterCriteria is the multi-dimensional filter applied to a record set.
// An empty multi-select slice means "no restriction" for that dimension.
// Date bounds are inclusive; a nil bound is open.
type FilterCriteria struct {
	PurchaseOrders []string   `json:"purchase_orders,omitempty"`
	Vessels        []string   `json:"vessels,omitempty"`
	Containers     []string   `json:"containers,omitempty"`
	FinalStatuses  []string   `json:"final_statuses,omitempty"`
	LoadingTypes   []string   `json:"loading_types,omitempty"`
	CargoTypes     []string   `json:"cargo_types,omitempty"`
	Shipowners     []string   `json:"shipowners,omitempty"`
	DischargeFrom  *time.Time `json:"discharge_from,omitempty"`
	DischargeTo    *time.Time `json:"discharge_to,omitempty"`
	DeadlineFrom   *time.Time `json:"deadline_from,omitempty"`
	DeadlineTo     *time.Time `json:"deadline_to,omitempty"`
	Search         string     `json:"search,omitempty"`
}

// Empty reports whether the criteria restricts nothing.
func (c FilterCriteria) Empty() bool {
	return len(c.PurchaseOrders) == 0 && len(c.Vessels) == 0 &&
		len(c.Containers) == 0 && len(c.FinalStatuses) == 0 &&
		len(c.LoadingTypes) == 0 && len(c.CargoTypes) == 0 &&
		len(c.Shipowners) == 0 &&
		c.DischargeFrom == nil && c.DischargeTo == nil &&
		c.DeadlineFrom == nil && c.DeadlineTo == nil &&
		c.Search == ""
}

// KPISet holds the headline dashboard counters for a filtered record set.
type KPISet struct {
	WithDemurrage  int     `json:"with_demurrage"`
	ReturnedLate   int     `json:"returned_late"`
	AtRisk15       int     `json:"at_risk_15"`
	Attention30    int     `json:"attention_30"`
	ReturnedOnTime int     `json:"returned_on_time"`
	TotalCost      float64 `json:"total_cost"`
}

// Buckets partitions the active records into the dashboard board columns.
// Records flagged with a date error land only in DateError and are excluded
// from every deadline-based bucket.
type Buckets struct {
	DateError  []ContainerRecord `json:"date_error"`
	Overdue    []ContainerRecord `json:"overdue"`
	HighRisk   []ContainerRecord `json:"high_risk"`
	MediumRisk []ContainerRecord `json:"medium_risk"`
	Safe       []ContainerRecord `json:"safe"`
}

// CarrierMetric selects what AggregateByCarrier sums or averages.
type CarrierMetric string

const (
	MetricCost    CarrierMetric = "cost"
	MetricAvgDays CarrierMetric = "avg_days"
)

// CarrierAggregate is one bar of the per-shipowner charts. Count is the
// number of contributing records, kept for tooltip display.
type CarrierAggregate struct {
	Shipowner string  `json:"shipowner"`
	Value     float64 `json:"value"`
	Count     int     `json:"count"`
}

// EfficiencyBreakdown feeds the operational performance donut. Records with
// date errors are excluded from all four counts.
type EfficiencyBreakdown struct {
	ReturnedOnTime int     `json:"returned_on_time"`
	ReturnedLate   int     `json:"returned_late"`
	ActiveLate     int     `json:"active_late"`
	ActiveOnTime   int     `json:"active_on_time"`
	ActualCost     float64 `json:"actual_cost"`
	IncurredCost   float64 `json:"incurred_cost"`
}

// PaidSummary totals demurrage cost over returned-with-cost containers.
type PaidSummary struct {
	TotalCost   float64 `json:"total_cost"`
	PaidCost    float64 `json:"paid_cost"`
	PendingCost float64 `json:"pending_cost"`
}

// ProblemContainer is one entry of the top-problem list in InsightSummary.
type ProblemContainer struct {
	Container     string  `json:"container"`
	Shipowner     string  `json:"shipowner"`
	DemurrageDays int     `json:"demurrage_days"`
	DemurrageCost float64 `json:"demurrage_cost"`
}

// StatusBreakdown counts records by demurrage situation.
type StatusBreakdown struct {
	ActiveLate     int `json:"active_late"`
	ReturnedLate   int `json:"returned_late"`
	AtRiskNext15   int `json:"at_risk_next_15"`
	ReturnedOnTime int `json:"returned_on_time"`
}

// InsightSummary is the structured analysis feed: the raw material a
// narrative layer (out of scope here) would turn into prose.
type InsightSummary struct {
	TotalContainers   int                `json:"total_containers"`
	TotalCost         float64            `json:"total_cost"`
	Breakdown         StatusBreakdown    `json:"breakdown"`
	TopCarriersByCost []CarrierAggregate `json:"top_carriers_by_cost"`
	TopCarriersByDays []CarrierAggregate `json:"top_carriers_by_days"`
	TopProblems       []ProblemContainer `json:"top_problems"`
}
