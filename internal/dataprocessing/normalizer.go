package dataprocessing

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"demcli/pkg/contracts/domain"
)

// Sentinel tokens and fallback values carried over from the operational
// spreadsheet conventions.
const (
	emptyContainerToken = "(vazio)"
	deliveredToken      = "ENTREGUE"

	defaultFinalStatus = "IN-TRANSIT"
	defaultPlaceholder = "N/A"
)

// Drop and degrade reasons reported back to the caller so data-quality
// problems are visible instead of silently shrinking the record count.
const (
	ReasonMissingContainer = "missing container identity"
	ReasonEmptySentinel    = "container marked as empty"
	ReasonNoDeadline       = "no end of free time and no derivable deadline"
	ReasonRowPanic         = "unexpected row shape"
	ReasonBadReturnDate    = "delivered status with unparseable return date; kept as active"
)

// RowIssue describes a single row that was dropped or degraded during
// normalization.
type RowIssue struct {
	Index     int    `json:"index"`
	Container string `json:"container,omitempty"`
	Reason    string `json:"reason"`
}

// Result is the partial-success outcome of a normalization pass: the
// surviving records plus a report of everything that did not make it through
// cleanly.
type Result struct {
	Records  []domain.ContainerRecord `json:"records"`
	Dropped  []RowIssue               `json:"dropped,omitempty"`
	Degraded []RowIssue               `json:"degraded,omitempty"`
}

// Normalizer turns resolved raw rows into canonical container records.
type Normalizer struct {
	logger *slog.Logger
}

// NewNormalizer creates a normalizer. A nil logger falls back to the default.
func NewNormalizer(logger *slog.Logger) *Normalizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Normalizer{logger: logger.With(slog.String("component", "normalizer"))}
}

// Normalize processes rows one at a time against the given rate table.
// today must be a UTC midnight (see TodayUTC) and is held fixed for the
// whole pass. A malformed row is dropped with a warning, never a failure:
// a sheet with some bad rows still yields a usable dataset.
func (n *Normalizer) Normalize(rows []domain.RawRow, rates domain.RateTable, today time.Time) Result {
	result := Result{Records: make([]domain.ContainerRecord, 0, len(rows))}

	for i, row := range rows {
		record, issue := n.normalizeRow(i, row, rates, today)
		if issue != nil && issue.Reason == ReasonBadReturnDate {
			result.Degraded = append(result.Degraded, *issue)
			issue = nil
		}
		if issue != nil {
			if issue.Reason != ReasonMissingContainer && issue.Reason != ReasonEmptySentinel {
				n.logger.Warn("row dropped during normalization",
					slog.Int("row", issue.Index),
					slog.String("container", issue.Container),
					slog.String("reason", issue.Reason))
			}
			result.Dropped = append(result.Dropped, *issue)
			continue
		}
		result.Records = append(result.Records, *record)
	}

	n.logger.Info("normalization complete",
		slog.Int("rows_in", len(rows)),
		slog.Int("records_out", len(result.Records)),
		slog.Int("dropped", len(result.Dropped)),
		slog.Int("degraded", len(result.Degraded)))

	return result
}

// normalizeRow handles one row. The returned issue is non-nil when the row
// was dropped, or when it was kept but degraded (bad return date). A panic
// anywhere in the row is converted into a drop so one malformed row cannot
// abort the ingestion.
func (n *Normalizer) normalizeRow(index int, row domain.RawRow, rates domain.RateTable, today time.Time) (record *domain.ContainerRecord, issue *RowIssue) {
	container := CellString(row[domain.FieldContainer])

	defer func() {
		if r := recover(); r != nil {
			n.logger.Warn("panic while normalizing row",
				slog.Int("row", index),
				slog.String("container", container),
				slog.String("panic", fmt.Sprint(r)))
			record = nil
			issue = &RowIssue{Index: index, Container: container, Reason: ReasonRowPanic}
		}
	}()

	if container == "" {
		return nil, &RowIssue{Index: index, Reason: ReasonMissingContainer}
	}
	if strings.EqualFold(container, emptyContainerToken) {
		return nil, &RowIssue{Index: index, Container: container, Reason: ReasonEmptySentinel}
	}

	var dischargeDate *time.Time
	if d, ok := ParseCellDate(row[domain.FieldDischargeDate]); ok {
		dischargeDate = &d
	}
	freeDays, _ := ParseCellInt(row[domain.FieldFreeDays])
	if freeDays < 0 {
		freeDays = 0
	}

	// A record must have a deadline: either an explicit end of free time or
	// one derived from discharge date plus free days.
	endOfFreeTime, ok := ParseCellDate(row[domain.FieldEndOfFreeTime])
	if !ok {
		if dischargeDate == nil {
			return nil, &RowIssue{Index: index, Container: container, Reason: ReasonNoDeadline}
		}
		endOfFreeTime = dischargeDate.AddDate(0, 0, freeDays)
	}

	hasDateError := endOfFreeTime.Year() < minPlausibleYear
	if dischargeDate != nil && dischargeDate.Year() < minPlausibleYear {
		hasDateError = true
	}

	// A return date only counts when the depot reports the container as
	// delivered and the date itself parses. A delivered row with a broken
	// return date stays active; that degradation is reported, not fatal.
	var returnDate *time.Time
	depotStatus := strings.ToUpper(CellString(row[domain.FieldDepotStatus]))
	rawReturn, hasReturn := row[domain.FieldReturnDate]
	if depotStatus == deliveredToken && hasReturn && rawReturn != nil {
		if d, ok := ParseCellDate(rawReturn); ok {
			returnDate = &d
		} else {
			n.logger.Warn("delivered container has unparseable return date, treating as active",
				slog.Int("row", index),
				slog.String("container", container))
			issue = &RowIssue{Index: index, Container: container, Reason: ReasonBadReturnDate}
		}
	}

	effective := today
	if returnDate != nil {
		effective = *returnDate
	}
	demurrageDays := 0
	if effective.After(endOfFreeTime) {
		demurrageDays = DaysUntil(endOfFreeTime, effective)
	}

	shipowner := CellString(row[domain.FieldShipowner])
	if shipowner == "" {
		shipowner = defaultPlaceholder
	}

	record = &domain.ContainerRecord{
		Container:     container,
		PurchaseOrder: CellString(row[domain.FieldPurchaseOrder]),
		Vessel:        CellString(row[domain.FieldVessel]),
		DischargeDate: dischargeDate,
		FreeDays:      freeDays,
		EndOfFreeTime: endOfFreeTime,
		ReturnDate:    returnDate,
		FinalStatus:   stringOrDefault(row[domain.FieldFinalStatus], defaultFinalStatus),
		LoadingType:   stringOrDefault(row[domain.FieldLoadingType], defaultPlaceholder),
		CargoType:     stringOrDefault(row[domain.FieldCargoType], defaultPlaceholder),
		Shipowner:     shipowner,
		DemurrageDays: demurrageDays,
		DemurrageCost: float64(demurrageDays) * rates.RateFor(shipowner),
		HasDateError:  hasDateError,
	}
	return record, issue
}

func stringOrDefault(value any, fallback string) string {
	if s := CellString(value); s != "" {
		return s
	}
	return fallback
}

// Rehydrate re-validates records recovered from persisted JSON: a record
// whose deadline did not survive the round trip is discarded, and the
// implausible-year flag is recomputed from the revived dates.
func Rehydrate(records []domain.ContainerRecord) []domain.ContainerRecord {
	out := make([]domain.ContainerRecord, 0, len(records))
	for _, rec := range records {
		if rec.EndOfFreeTime.IsZero() {
			continue
		}
		rec.EndOfFreeTime = TodayUTC(rec.EndOfFreeTime)
		if rec.DischargeDate != nil {
			if rec.DischargeDate.IsZero() {
				rec.DischargeDate = nil
			} else {
				d := TodayUTC(*rec.DischargeDate)
				rec.DischargeDate = &d
			}
		}
		if rec.ReturnDate != nil {
			if rec.ReturnDate.IsZero() {
				rec.ReturnDate = nil
			} else {
				d := TodayUTC(*rec.ReturnDate)
				rec.ReturnDate = &d
			}
		}
		rec.HasDateError = rec.EndOfFreeTime.Year() < minPlausibleYear ||
			(rec.DischargeDate != nil && rec.DischargeDate.Year() < minPlausibleYear)
		out = append(out, rec)
	}
	return out
}
