package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"demcli/internal/analytics"
	"demcli/internal/dataprocessing"
	"demcli/internal/history"
	"demcli/pkg/contracts/domain"
)

// Notifier pushes state-change events to connected dashboard clients.
// Implemented by the websocket hub; a nil notifier disables pushes.
type Notifier interface {
	Publish(event string, payload any)
}

// Events published on state changes.
const (
	EventDataReplaced = "data:replaced"
	EventDataCleared  = "data:cleared"
	EventRatesUpdated = "rates:updated"
	EventPaidUpdated  = "paid:updated"
	EventViewChanged  = "view:changed"
)

// IngestReport summarizes one upload: what made it in and what did not.
type IngestReport struct {
	SourceName string                    `json:"source_name"`
	Timestamp  time.Time                 `json:"timestamp"`
	Records    int                       `json:"records"`
	Dropped    []dataprocessing.RowIssue `json:"dropped,omitempty"`
	Degraded   []dataprocessing.RowIssue `json:"degraded,omitempty"`
}

// DashboardService owns the live dataset and every derived view over it.
// All state mutations flow through here; reads take a snapshot of the
// records under the read lock so computations never race an upload.
type DashboardService struct {
	logger     *slog.Logger
	store      *history.Store
	normalizer *dataprocessing.Normalizer
	notifier   Notifier
	now        func() time.Time

	mu             sync.RWMutex
	records        []domain.ContainerRecord
	rates          domain.RateTable
	paid           domain.PaidStatusMap
	lastUpdate     time.Time
	language       string
	viewingHistory bool
}

// NewDashboardService creates the service with an empty dataset and default
// rates. Call LoadFromDisk afterwards to restore persisted state.
func NewDashboardService(store *history.Store, notifier Notifier, logger *slog.Logger) *DashboardService {
	if logger == nil {
		logger = slog.Default()
	}
	return &DashboardService{
		logger:     logger.With(slog.String("service", "dashboard")),
		store:      store,
		normalizer: dataprocessing.NewNormalizer(logger),
		notifier:   notifier,
		now:        time.Now,
		rates:      domain.DefaultRateTable(),
		paid:       domain.PaidStatusMap{},
		language:   "en",
	}
}

// LoadFromDisk restores the persisted live dataset, if any. Records are
// re-validated after the JSON round trip and costs recomputed against the
// restored rates.
func (s *DashboardService) LoadFromDisk(ctx context.Context) error {
	state, ok, err := s.store.LoadLive()
	if err != nil {
		return fmt.Errorf("load live state: %w", err)
	}
	if !ok {
		s.logger.InfoContext(ctx, "no persisted state, starting empty")
		return nil
	}

	records := dataprocessing.Rehydrate(state.Records)
	rates := state.Rates.Normalized()
	if rates.Validate() != nil {
		rates = domain.DefaultRateTable()
	}
	rates.RecomputeCosts(records)

	s.mu.Lock()
	s.records = records
	s.rates = rates
	s.paid = state.PaidStatuses
	if s.paid == nil {
		s.paid = domain.PaidStatusMap{}
	}
	if ts, err := time.Parse(time.RFC3339, state.LastUpdate); err == nil {
		s.lastUpdate = ts
	}
	if state.Language != "" {
		s.language = state.Language
	}
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "live state restored",
		slog.Int("records", len(records)),
		slog.Int("dropped_on_rehydrate", len(state.Records)-len(records)))
	return nil
}

// Ingest reads a workbook, normalizes it and atomically replaces the live
// dataset. The previous dataset is snapshotted first, so the replacement is
// reversible; a workbook yielding zero records is rejected and the live
// data stays untouched.
func (s *DashboardService) Ingest(ctx context.Context, sourceName string, r io.Reader) (IngestReport, error) {
	rows, err := dataprocessing.ReadWorkbook(r, s.logger)
	if err != nil {
		return IngestReport{}, fmt.Errorf("%w: %s", ErrInvalidWorkbook, err)
	}

	s.mu.Lock()
	rates := s.rates
	s.mu.Unlock()

	now := s.now().UTC()
	result := s.normalizer.Normalize(rows, rates, dataprocessing.TodayUTC(now))
	if len(result.Records) == 0 {
		return IngestReport{}, ErrEmptyWorkbook
	}

	s.mu.Lock()
	prev := domain.Snapshot{
		Timestamp:    now,
		SourceName:   sourceName,
		Records:      s.records,
		Rates:        s.rates,
		PaidStatuses: s.paid,
	}
	if s.viewingHistory {
		// The working view is a snapshot; the dataset being displaced is the
		// persisted live one.
		if state, ok, err := s.store.LoadLive(); err == nil && ok {
			prev.Records = state.Records
			prev.Rates = state.Rates
			prev.PaidStatuses = state.PaidStatuses
		}
	}
	if len(prev.Records) > 0 {
		if err := s.store.SaveSnapshot(prev); err != nil {
			s.mu.Unlock()
			return IngestReport{}, fmt.Errorf("snapshot previous dataset: %w", err)
		}
	}
	// Paid flags are keyed by container identity and survive the
	// replacement; entries for containers no longer present go stale but
	// are not pruned.
	s.records = result.Records
	s.lastUpdate = now
	s.viewingHistory = false
	s.mu.Unlock()

	if err := s.persistLive(ctx); err != nil {
		return IngestReport{}, err
	}
	s.publish(EventDataReplaced, map[string]any{"records": len(result.Records), "source": sourceName})

	s.logger.InfoContext(ctx, "dataset replaced",
		slog.String("source", sourceName),
		slog.Int("records", len(result.Records)),
		slog.Int("dropped", len(result.Dropped)),
		slog.Int("degraded", len(result.Degraded)))

	return IngestReport{
		SourceName: sourceName,
		Timestamp:  now,
		Records:    len(result.Records),
		Dropped:    result.Dropped,
		Degraded:   result.Degraded,
	}, nil
}

// Query returns the records matching the criteria, sorted as requested.
func (s *DashboardService) Query(criteria domain.FilterCriteria, sortField string, dir domain.SortDirection) []domain.ContainerRecord {
	records := analytics.Filter(s.recordsView(), criteria)
	analytics.SortRecords(records, sortField, dir)
	return records
}

// KPIs computes the headline counters over the filtered records.
func (s *DashboardService) KPIs(criteria domain.FilterCriteria) domain.KPISet {
	return analytics.ComputeKPIs(analytics.Filter(s.recordsView(), criteria), s.today())
}

// Buckets partitions the filtered active records into the board columns.
func (s *DashboardService) Buckets(criteria domain.FilterCriteria) domain.Buckets {
	return analytics.Categorize(analytics.Filter(s.recordsView(), criteria), s.today())
}

// Carriers ranks shipowners on the chosen metric over the filtered records.
func (s *DashboardService) Carriers(criteria domain.FilterCriteria, metric domain.CarrierMetric) []domain.CarrierAggregate {
	return analytics.AggregateByCarrier(analytics.Filter(s.recordsView(), criteria), metric)
}

// Efficiency computes the operational outcome breakdown.
func (s *DashboardService) Efficiency(criteria domain.FilterCriteria) domain.EfficiencyBreakdown {
	return analytics.ComputeEfficiency(analytics.Filter(s.recordsView(), criteria))
}

// Insights assembles the structured analysis feed.
func (s *DashboardService) Insights(criteria domain.FilterCriteria) domain.InsightSummary {
	records := analytics.Filter(s.recordsView(), criteria)
	return analytics.ComputeInsights(records, analytics.ComputeKPIs(records, s.today()))
}

// PaidSummary totals settled and pending demurrage cost.
func (s *DashboardService) PaidSummary() domain.PaidSummary {
	s.mu.RLock()
	records := s.records
	paid := s.paid
	s.mu.RUnlock()
	return analytics.ComputePaidSummary(records, paid)
}

// Rates returns the current rate table.
func (s *DashboardService) Rates() domain.RateTable {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rates
}

// ReplaceRates swaps in a new rate table and recomputes every record's cost.
// Demurrage days are untouched; only the money changes.
func (s *DashboardService) ReplaceRates(ctx context.Context, rates domain.RateTable) error {
	normalized := rates.Normalized()
	if err := normalized.Validate(); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidRates, err)
	}

	s.mu.Lock()
	s.rates = normalized
	records := make([]domain.ContainerRecord, len(s.records))
	copy(records, s.records)
	normalized.RecomputeCosts(records)
	s.records = records
	s.mu.Unlock()

	if err := s.persistLive(ctx); err != nil {
		return err
	}
	s.publish(EventRatesUpdated, normalized)
	s.logger.InfoContext(ctx, "rate table replaced", slog.Int("carriers", len(normalized.Rates)))
	return nil
}

// SetPaid marks a container's demurrage invoice settled or not.
func (s *DashboardService) SetPaid(ctx context.Context, container string, paid bool) error {
	s.mu.Lock()
	found := false
	for i := range s.records {
		if s.records[i].Container == container {
			found = true
			break
		}
	}
	if !found {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrContainerNotFound, container)
	}
	if paid {
		s.paid[container] = true
	} else {
		delete(s.paid, container)
	}
	s.mu.Unlock()

	if err := s.persistLive(ctx); err != nil {
		return err
	}
	s.publish(EventPaidUpdated, map[string]any{"container": container, "paid": paid})
	return nil
}

// PaidStatuses returns a copy of the settlement map.
func (s *DashboardService) PaidStatuses() domain.PaidStatusMap {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(domain.PaidStatusMap, len(s.paid))
	for k, v := range s.paid {
		out[k] = v
	}
	return out
}

// History lists the stored snapshots, newest first.
func (s *DashboardService) History(ctx context.Context) ([]domain.SnapshotMeta, error) {
	metas, err := s.store.List()
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	return metas, nil
}

// LoadSnapshot switches the working view to a stored snapshot. The live
// dataset on disk is untouched; ReturnToLive restores it.
func (s *DashboardService) LoadSnapshot(ctx context.Context, ts time.Time) error {
	snap, err := s.store.LoadSnapshot(ts)
	if err != nil {
		if errors.Is(err, history.ErrSnapshotNotFound) {
			return ErrSnapshotNotFound
		}
		return fmt.Errorf("load snapshot: %w", err)
	}

	records := dataprocessing.Rehydrate(snap.Records)
	rates := snap.Rates.Normalized()
	if rates.Validate() != nil {
		rates = domain.DefaultRateTable()
	}
	rates.RecomputeCosts(records)

	s.mu.Lock()
	s.records = records
	s.rates = rates
	s.paid = snap.PaidStatuses
	if s.paid == nil {
		s.paid = domain.PaidStatusMap{}
	}
	s.lastUpdate = snap.Timestamp
	s.viewingHistory = true
	s.mu.Unlock()

	s.publish(EventViewChanged, map[string]any{"viewing_history": true, "timestamp": snap.Timestamp})
	s.logger.InfoContext(ctx, "viewing snapshot",
		slog.Time("timestamp", snap.Timestamp),
		slog.Int("records", len(records)))
	return nil
}

// ReturnToLive leaves snapshot view and restores the persisted live dataset.
func (s *DashboardService) ReturnToLive(ctx context.Context) error {
	s.mu.Lock()
	wasViewing := s.viewingHistory
	s.viewingHistory = false
	s.records = nil
	s.paid = domain.PaidStatusMap{}
	s.rates = domain.DefaultRateTable()
	s.lastUpdate = time.Time{}
	s.mu.Unlock()

	if err := s.LoadFromDisk(ctx); err != nil {
		return err
	}
	if wasViewing {
		s.publish(EventViewChanged, map[string]any{"viewing_history": false})
	}
	return nil
}

// ViewingHistory reports whether the working view is a snapshot.
func (s *DashboardService) ViewingHistory() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.viewingHistory
}

// Clear wipes the live dataset, the snapshot history and the persisted files.
func (s *DashboardService) Clear(ctx context.Context) error {
	s.mu.Lock()
	s.records = nil
	s.paid = domain.PaidStatusMap{}
	s.rates = domain.DefaultRateTable()
	s.lastUpdate = time.Time{}
	s.viewingHistory = false
	s.mu.Unlock()

	if err := s.store.Clear(); err != nil {
		return fmt.Errorf("clear persisted state: %w", err)
	}
	s.publish(EventDataCleared, nil)
	s.logger.InfoContext(ctx, "all data cleared")
	return nil
}

// Language returns the persisted UI language preference.
func (s *DashboardService) Language() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.language
}

// SetLanguage stores the UI language preference.
func (s *DashboardService) SetLanguage(ctx context.Context, lang string) error {
	if lang == "" {
		return fmt.Errorf("%w: empty language", ErrInvalidInput)
	}
	s.mu.Lock()
	s.language = lang
	s.mu.Unlock()
	return s.persistLive(ctx)
}

// LastUpdate returns when the current dataset was loaded. Zero when empty.
func (s *DashboardService) LastUpdate() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastUpdate
}

// RecordCount returns the size of the working dataset.
func (s *DashboardService) RecordCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

func (s *DashboardService) recordsView() []domain.ContainerRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.records
}

func (s *DashboardService) today() time.Time {
	return dataprocessing.TodayUTC(s.now())
}

// persistLive writes the working state to disk unless a snapshot is being
// viewed: snapshot views must never overwrite the live file.
func (s *DashboardService) persistLive(ctx context.Context) error {
	s.mu.RLock()
	if s.viewingHistory {
		s.mu.RUnlock()
		return nil
	}
	state := domain.LiveState{
		Records:      s.records,
		Rates:        s.rates,
		PaidStatuses: s.paid,
		Language:     s.language,
	}
	if !s.lastUpdate.IsZero() {
		state.LastUpdate = s.lastUpdate.Format(time.RFC3339)
	}
	s.mu.RUnlock()

	if err := s.store.SaveLive(state); err != nil {
		return fmt.Errorf("persist live state: %w", err)
	}
	return nil
}

func (s *DashboardService) publish(event string, payload any) {
	if s.notifier == nil {
		return
	}
	s.notifier.Publish(event, payload)
}
