package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"demcli/internal/errors"
)

// ClientLogHandler replays log entries forwarded by the dashboard frontend
// into the server log, tagged with their browser origin.
type ClientLogHandler struct {
	logger *slog.Logger
}

// NewClientLogHandler creates the handler.
func NewClientLogHandler(logger *slog.Logger) *ClientLogHandler {
	return &ClientLogHandler{
		logger: logger.With(slog.String("component", "client_logs")),
	}
}

// ClientLogEntry is one browser-side log line.
type ClientLogEntry struct {
	Level   string         `json:"level"`
	Message string         `json:"message"`
	Source  string         `json:"source,omitempty"`
	Context map[string]any `json:"context,omitempty"`
}

var clientLogLevels = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

// Handle ingests one forwarded entry. An unknown level degrades to info
// rather than rejecting the entry; the browser must not lose logs over a
// level typo.
func (h *ClientLogHandler) Handle(w http.ResponseWriter, r *http.Request) {
	var entry ClientLogEntry
	if err := json.NewDecoder(r.Body).Decode(&entry); err != nil {
		errors.WriteError(w, errors.NewValidationError("request body must be a JSON log entry"))
		return
	}

	level, ok := clientLogLevels[entry.Level]
	if !ok {
		level = slog.LevelInfo
	}

	attrs := []slog.Attr{slog.String("origin", "browser")}
	if entry.Source != "" {
		attrs = append(attrs, slog.String("source", entry.Source))
	}
	if len(entry.Context) > 0 {
		attrs = append(attrs, slog.Any("context", entry.Context))
	}
	h.logger.LogAttrs(r.Context(), level, entry.Message, attrs...)

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
	})
}
