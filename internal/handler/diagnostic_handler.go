// Package handler exposes the client's diagnostic HTTP surface: liveness,
// Prometheus metrics, and a read-only view into the multipart registry for
// operators chasing a dangling upload.
package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/prn-tf/s3sig/internal/metrics"
	"github.com/prn-tf/s3sig/internal/registry"
)

// DiagnosticHandler serves operational endpoints alongside the signing
// client; it never touches S3 itself.
type DiagnosticHandler struct {
	registry registry.Store
	metrics  *metrics.Metrics
	logger   zerolog.Logger
}

// DiagnosticConfig contains configuration for DiagnosticHandler.
type DiagnosticConfig struct {
	Registry registry.Store
	Metrics  *metrics.Metrics
	Logger   zerolog.Logger
}

// NewDiagnosticHandler creates a new DiagnosticHandler.
func NewDiagnosticHandler(cfg DiagnosticConfig) *DiagnosticHandler {
	return &DiagnosticHandler{
		registry: cfg.Registry,
		metrics:  cfg.Metrics,
		logger:   cfg.Logger.With().Str("handler", "diagnostic").Logger(),
	}
}

// RegisterRoutes registers the diagnostic routes on r.
func (h *DiagnosticHandler) RegisterRoutes(r chi.Router) {
	r.Get("/healthz", h.handleHealthz)
	if h.metrics != nil {
		r.Handle("/metrics", h.metrics.Handler())
	}
	r.Get("/debug/uploads", h.handleListUploads)
	r.Get("/debug/uploads/{uploadId}", h.handleGetUpload)
}

func (h *DiagnosticHandler) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

// handleListUploads lists registry rows, optionally filtered by
// ?state=open|completed|aborted. Defaults to open, since that is the set an
// operator chasing a dangling upload cares about.
func (h *DiagnosticHandler) handleListUploads(w http.ResponseWriter, r *http.Request) {
	if h.registry == nil {
		writeJSONError(w, http.StatusServiceUnavailable, "registry not configured")
		return
	}

	state := registry.State(r.URL.Query().Get("state"))
	if state == "" {
		state = registry.StateOpen
	}

	records, err := h.registry.ListByState(r.Context(), state)
	if err != nil {
		h.logger.Error().Err(err).Str("state", string(state)).Msg("failed to list uploads")
		writeJSONError(w, http.StatusInternalServerError, "failed to list uploads")
		return
	}

	writeJSON(w, http.StatusOK, records)
}

func (h *DiagnosticHandler) handleGetUpload(w http.ResponseWriter, r *http.Request) {
	if h.registry == nil {
		writeJSONError(w, http.StatusServiceUnavailable, "registry not configured")
		return
	}

	uploadID := chi.URLParam(r, "uploadId")
	record, err := h.registry.Get(r.Context(), uploadID)
	if err != nil {
		if err == registry.ErrNotFound {
			writeJSONError(w, http.StatusNotFound, "upload not found")
			return
		}
		h.logger.Error().Err(err).Str("upload_id", uploadID).Msg("failed to get upload")
		writeJSONError(w, http.StatusInternalServerError, "failed to get upload")
		return
	}

	writeJSON(w, http.StatusOK, record)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
