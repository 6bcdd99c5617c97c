package http

import (
	"context"
	"io"
	"time"

	"demcli/internal/services"
	"demcli/pkg/contracts/domain"
)

// DashboardServiceInterface defines the operations the dashboard handler
// needs from the service layer.
type DashboardServiceInterface interface {
	Ingest(ctx context.Context, sourceName string, r io.Reader) (services.IngestReport, error)

	Query(criteria domain.FilterCriteria, sortField string, dir domain.SortDirection) []domain.ContainerRecord
	KPIs(criteria domain.FilterCriteria) domain.KPISet
	Buckets(criteria domain.FilterCriteria) domain.Buckets
	Carriers(criteria domain.FilterCriteria, metric domain.CarrierMetric) []domain.CarrierAggregate
	Efficiency(criteria domain.FilterCriteria) domain.EfficiencyBreakdown
	Insights(criteria domain.FilterCriteria) domain.InsightSummary

	Rates() domain.RateTable
	ReplaceRates(ctx context.Context, rates domain.RateTable) error

	SetPaid(ctx context.Context, container string, paid bool) error
	PaidStatuses() domain.PaidStatusMap
	PaidSummary() domain.PaidSummary

	History(ctx context.Context) ([]domain.SnapshotMeta, error)
	LoadSnapshot(ctx context.Context, ts time.Time) error
	ReturnToLive(ctx context.Context) error
	ViewingHistory() bool

	Clear(ctx context.Context) error
	Language() string
	SetLanguage(ctx context.Context, lang string) error
	LastUpdate() time.Time
	RecordCount() int
}
