package exporter

import (
	"time"

	"demcli/internal/analytics"
	"demcli/internal/dataprocessing"
	"demcli/pkg/contracts/domain"
)

const dateLayout = "2006-01-02"

// recordHeaders is the column order of the container report.
var recordHeaders = []string{
	"Container", "PurchaseOrder", "Vessel", "DischargeDate", "FreeDays",
	"EndOfFreeTime", "ReturnDate", "FinalStatus", "LoadingType",
	"CargoType", "Shipowner", "DemurrageDays", "DemurrageCost", "DateError",
}

// WriteContainerReport writes the normalized records to a CSV file.
func (w *CSVWriter) WriteContainerReport(filePath string, records []domain.ContainerRecord) error {
	rows := make([][]string, 0, len(records))
	for i := range records {
		r := &records[i]
		rows = append(rows, []string{
			r.Container,
			r.PurchaseOrder,
			r.Vessel,
			formatDate(r.DischargeDate),
			formatInt(int64(r.FreeDays)),
			r.EndOfFreeTime.Format(dateLayout),
			formatDate(r.ReturnDate),
			r.FinalStatus,
			r.LoadingType,
			r.CargoType,
			r.Shipowner,
			formatInt(int64(r.DemurrageDays)),
			formatFloat(r.DemurrageCost),
			formatBool(r.HasDateError),
		})
	}

	return w.WriteSimpleCSV(filePath, recordHeaders, rows)
}

// WriteKPIReport writes the headline indicators to a CSV file.
func (w *CSVWriter) WriteKPIReport(filePath string, kpis domain.KPISet) error {
	rows := [][]string{
		{"with_demurrage", formatInt(int64(kpis.WithDemurrage))},
		{"returned_late", formatInt(int64(kpis.ReturnedLate))},
		{"at_risk_15", formatInt(int64(kpis.AtRisk15))},
		{"attention_30", formatInt(int64(kpis.Attention30))},
		{"returned_on_time", formatInt(int64(kpis.ReturnedOnTime))},
		{"total_cost", formatFloat(kpis.TotalCost)},
	}

	return w.WriteSimpleCSV(filePath, []string{"Indicator", "Value"}, rows)
}

// WriteCarrierReport writes per-carrier aggregates to a CSV file.
func (w *CSVWriter) WriteCarrierReport(filePath string, aggregates []domain.CarrierAggregate) error {
	rows := make([][]string, 0, len(aggregates))
	for _, agg := range aggregates {
		rows = append(rows, []string{
			agg.Shipowner,
			formatInt(int64(agg.Count)),
			formatFloat(agg.Value),
		})
	}

	return w.WriteSimpleCSV(filePath, []string{"Shipowner", "Containers", "Value"}, rows)
}

// WriteDropReport writes the rows excluded during normalization.
func (w *CSVWriter) WriteDropReport(filePath string, issues []dataprocessing.RowIssue) error {
	rows := make([][]string, 0, len(issues))
	for _, issue := range issues {
		rows = append(rows, []string{
			formatInt(int64(issue.Index)),
			issue.Container,
			issue.Reason,
		})
	}

	return w.WriteSimpleCSV(filePath, []string{"Row", "Container", "Reason"}, rows)
}

// WriteBucketReport writes the risk board counts to a CSV file.
func (w *CSVWriter) WriteBucketReport(filePath string, buckets domain.Buckets) error {
	rows := [][]string{
		{"date_error", formatInt(int64(len(buckets.DateError)))},
		{"overdue", formatInt(int64(len(buckets.Overdue)))},
		{"high_risk", formatInt(int64(len(buckets.HighRisk)))},
		{"medium_risk", formatInt(int64(len(buckets.MediumRisk)))},
		{"safe", formatInt(int64(len(buckets.Safe)))},
	}

	return w.WriteSimpleCSV(filePath, []string{"Bucket", "Containers"}, rows)
}

// WriteFullReport writes the container report plus all derived summaries,
// evaluated at the given reference day.
func (w *CSVWriter) WriteFullReport(records []domain.ContainerRecord, today time.Time) error {
	if err := w.WriteContainerReport("containers.csv", records); err != nil {
		return err
	}
	if err := w.WriteKPIReport("kpis.csv", analytics.ComputeKPIs(records, today)); err != nil {
		return err
	}
	if err := w.WriteBucketReport("buckets.csv", analytics.Categorize(records, today)); err != nil {
		return err
	}
	return w.WriteCarrierReport("carriers.csv",
		analytics.AggregateByCarrier(records, domain.MetricCost))
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(dateLayout)
}
