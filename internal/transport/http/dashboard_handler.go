package http

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "demcli/internal/errors"
	"demcli/internal/infrastructure"
	"demcli/internal/services"
	"demcli/pkg/contracts/domain"
)

// maxUploadSize caps workbook uploads at 32 MiB.
const maxUploadSize = 32 << 20

// DashboardHandler handles dataset, analytics and configuration requests
// with RFC 7807 compliance.
type DashboardHandler struct {
	service      DashboardServiceInterface
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
	metrics      *Metrics
}

// NewDashboardHandler creates a new dashboard handler with RFC 7807 error
// handling. metrics may be nil.
func NewDashboardHandler(service DashboardServiceInterface, logger *slog.Logger, errorHandler *apierrors.ErrorHandler, metrics *Metrics) *DashboardHandler {
	return &DashboardHandler{
		service:      service,
		logger:       logger.With(slog.String("component", "dashboard_handler")),
		errorHandler: errorHandler,
		metrics:      metrics,
	}
}

// Routes returns the dashboard routes with proper Chi patterns
func (h *DashboardHandler) Routes() chi.Router {
	r := chi.NewRouter()

	// Use render for consistent JSON responses
	r.Use(render.SetContentType(render.ContentTypeJSON))

	// Dataset lifecycle
	r.Route("/data", func(r chi.Router) {
		r.Post("/upload", h.UploadWorkbook)
		r.Post("/query", h.QueryRecords)
		r.Get("/status", h.GetStatus)
		r.Delete("/", h.ClearData)
	})

	// Derived views
	r.Route("/analytics", func(r chi.Router) {
		r.Post("/kpis", h.GetKPIs)
		r.Post("/buckets", h.GetBuckets)
		r.Post("/carriers", h.GetCarriers)
		r.Post("/efficiency", h.GetEfficiency)
		r.Post("/insights", h.GetInsights)
	})

	// Rate configuration
	r.Get("/rates", h.GetRates)
	r.Put("/rates", h.UpdateRates)

	// Settlement tracking
	r.Route("/paid", func(r chi.Router) {
		r.Get("/", h.GetPaidStatuses)
		r.Get("/summary", h.GetPaidSummary)
		r.Patch("/{container}", h.SetPaid)
	})

	// Snapshot history
	r.Route("/history", func(r chi.Router) {
		r.Get("/", h.GetHistory)
		r.Post("/{timestamp}/load", h.LoadSnapshot)
		r.Post("/return", h.ReturnToLive)
	})

	// Preferences
	r.Put("/language", h.SetLanguage)

	return r
}

// UploadWorkbook handles POST /api/data/upload: a multipart form with the
// workbook under the "file" field.
func (h *DashboardHandler) UploadWorkbook(w http.ResponseWriter, r *http.Request) {
	reqID := infrastructure.GetTraceID(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("file", "Multipart form with a workbook file is required"))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("file", "Workbook file is required"))
		return
	}
	defer file.Close()

	h.logger.InfoContext(r.Context(), "workbook upload",
		slog.String("request_id", reqID),
		slog.String("filename", header.Filename),
		slog.Int64("size", header.Size),
	)

	report, err := h.service.Ingest(r.Context(), header.Filename, file)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "upload failed",
			slog.String("error", err.Error()),
			slog.String("request_id", reqID),
		)
		if h.metrics != nil {
			h.metrics.RecordUpload("failure")
		}

		switch {
		case errors.Is(err, services.ErrInvalidWorkbook):
			h.errorHandler.HandleError(w, r, apierrors.WorkbookError(err))
		case errors.Is(err, services.ErrEmptyWorkbook):
			h.errorHandler.HandleError(w, r, apierrors.ErrEmptyWorkbook)
		default:
			h.errorHandler.HandleError(w, r, err)
		}
		return
	}

	if h.metrics != nil {
		h.metrics.RecordUpload("success")
		h.metrics.SetRecordCount(report.Records)
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   report,
		"count":  report.Records,
	})
}

// QueryRecords handles POST /api/data/query
func (h *DashboardHandler) QueryRecords(w http.ResponseWriter, r *http.Request) {
	var req QueryRequest
	if !h.decode(w, r, &req) {
		return
	}

	records := h.service.Query(req.Filters.ToCriteria(), req.SortField, req.Direction())

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   records,
		"count":  len(records),
	})
}

// GetStatus handles GET /api/data/status
func (h *DashboardHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	status := StatusResponse{
		Records:        h.service.RecordCount(),
		ViewingHistory: h.service.ViewingHistory(),
		Language:       h.service.Language(),
	}
	if last := h.service.LastUpdate(); !last.IsZero() {
		status.LastUpdate = last.Format(time.RFC3339)
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   status,
	})
}

// ClearData handles DELETE /api/data
func (h *DashboardHandler) ClearData(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Clear(r.Context()); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, map[string]interface{}{
		"status": "success",
	})
}

// GetKPIs handles POST /api/analytics/kpis
func (h *DashboardHandler) GetKPIs(w http.ResponseWriter, r *http.Request) {
	criteria, ok := h.decodeFilters(w, r)
	if !ok {
		return
	}
	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   h.service.KPIs(criteria),
	})
}

// GetBuckets handles POST /api/analytics/buckets
func (h *DashboardHandler) GetBuckets(w http.ResponseWriter, r *http.Request) {
	criteria, ok := h.decodeFilters(w, r)
	if !ok {
		return
	}
	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   h.service.Buckets(criteria),
	})
}

// GetCarriers handles POST /api/analytics/carriers?metric=cost|avg_days
func (h *DashboardHandler) GetCarriers(w http.ResponseWriter, r *http.Request) {
	metric := domain.MetricCost
	switch r.URL.Query().Get("metric") {
	case "", "cost":
	case "avg_days":
		metric = domain.MetricAvgDays
	default:
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("metric", "Metric must be cost or avg_days"))
		return
	}

	criteria, ok := h.decodeFilters(w, r)
	if !ok {
		return
	}

	aggregates := h.service.Carriers(criteria, metric)
	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   aggregates,
		"count":  len(aggregates),
	})
}

// GetEfficiency handles POST /api/analytics/efficiency
func (h *DashboardHandler) GetEfficiency(w http.ResponseWriter, r *http.Request) {
	criteria, ok := h.decodeFilters(w, r)
	if !ok {
		return
	}
	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   h.service.Efficiency(criteria),
	})
}

// GetInsights handles POST /api/analytics/insights
func (h *DashboardHandler) GetInsights(w http.ResponseWriter, r *http.Request) {
	criteria, ok := h.decodeFilters(w, r)
	if !ok {
		return
	}
	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   h.service.Insights(criteria),
	})
}

// GetRates handles GET /api/rates
func (h *DashboardHandler) GetRates(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   h.service.Rates(),
	})
}

// UpdateRates handles PUT /api/rates
func (h *DashboardHandler) UpdateRates(w http.ResponseWriter, r *http.Request) {
	var req RatesRequest
	if !h.decode(w, r, &req) {
		return
	}

	if err := h.service.ReplaceRates(r.Context(), req.ToTable()); err != nil {
		if errors.Is(err, services.ErrInvalidRates) {
			h.errorHandler.HandleError(w, r, apierrors.ErrValidation("rates", err.Error()))
			return
		}
		h.errorHandler.HandleError(w, r, err)
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   h.service.Rates(),
	})
}

// GetPaidStatuses handles GET /api/paid
func (h *DashboardHandler) GetPaidStatuses(w http.ResponseWriter, r *http.Request) {
	statuses := h.service.PaidStatuses()
	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   statuses,
		"count":  len(statuses),
	})
}

// GetPaidSummary handles GET /api/paid/summary
func (h *DashboardHandler) GetPaidSummary(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   h.service.PaidSummary(),
	})
}

// SetPaid handles PATCH /api/paid/{container}
func (h *DashboardHandler) SetPaid(w http.ResponseWriter, r *http.Request) {
	container := chi.URLParam(r, "container")
	if container == "" {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("container", "Container identifier is required"))
		return
	}

	var req PaidRequest
	if !h.decode(w, r, &req) {
		return
	}

	if err := h.service.SetPaid(r.Context(), container, req.Paid); err != nil {
		if errors.Is(err, services.ErrContainerNotFound) {
			h.errorHandler.HandleError(w, r, apierrors.ErrContainerNotFound)
			return
		}
		h.errorHandler.HandleError(w, r, err)
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   map[string]interface{}{"container": container, "paid": req.Paid},
	})
}

// GetHistory handles GET /api/history
func (h *DashboardHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	metas, err := h.service.History(r.Context())
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   metas,
		"count":  len(metas),
	})
}

// LoadSnapshot handles POST /api/history/{timestamp}/load. The timestamp is
// the snapshot's RFC 3339 identity from the history listing.
func (h *DashboardHandler) LoadSnapshot(w http.ResponseWriter, r *http.Request) {
	ts, err := time.Parse(time.RFC3339, chi.URLParam(r, "timestamp"))
	if err != nil {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("timestamp", "Timestamp must be RFC 3339"))
		return
	}

	if err := h.service.LoadSnapshot(r.Context(), ts); err != nil {
		if errors.Is(err, services.ErrSnapshotNotFound) {
			h.errorHandler.HandleError(w, r, apierrors.ErrSnapshotNotFound)
			return
		}
		h.errorHandler.HandleError(w, r, err)
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   map[string]interface{}{"viewing_history": true, "timestamp": ts},
	})
}

// ReturnToLive handles POST /api/history/return
func (h *DashboardHandler) ReturnToLive(w http.ResponseWriter, r *http.Request) {
	if err := h.service.ReturnToLive(r.Context()); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   map[string]interface{}{"viewing_history": false},
	})
}

// SetLanguage handles PUT /api/language
func (h *DashboardHandler) SetLanguage(w http.ResponseWriter, r *http.Request) {
	var req LanguageRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.service.SetLanguage(r.Context(), req.Language); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   map[string]interface{}{"language": req.Language},
	})
}

// decode reads and validates a JSON payload; on failure it responds with a
// validation problem and returns false.
func (h *DashboardHandler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := render.DecodeJSON(r.Body, v); err != nil {
		h.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(err))
		return false
	}
	if err := validatePayload(v); err != nil {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("body", err.Error()))
		return false
	}
	return true
}

// decodeFilters reads the optional analytics payload. An empty body means no
// filtering.
func (h *DashboardHandler) decodeFilters(w http.ResponseWriter, r *http.Request) (domain.FilterCriteria, bool) {
	var req AnalyticsRequest
	if r.Body == nil || r.ContentLength == 0 {
		return domain.FilterCriteria{}, true
	}
	if !h.decode(w, r, &req) {
		return domain.FilterCriteria{}, false
	}
	return req.Filters.ToCriteria(), true
}
