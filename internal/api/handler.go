// Package api implements the soilicdd REST API. Every endpoint is stateless
// per request; the reference dataset is loaded once at startup.
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/soilicd/soilicd/internal/log"
	"github.com/soilicd/soilicd/pkg/deviation"
	"github.com/soilicd/soilicd/pkg/icd"
	"github.com/soilicd/soilicd/pkg/method"
	"github.com/soilicd/soilicd/pkg/scoring"
	"github.com/soilicd/soilicd/pkg/thresholds"
)

const maxBodyBytes = 1 << 20

// Options are the scoring options per mode.
type Options struct {
	Simulator  scoring.Options
	Validation scoring.Options
}

// Handler is the top-level API handler for the soilicd service.
type Handler struct {
	engine  *scoring.Engine
	opts    Options
	metrics *Metrics
}

// NewHandler creates a new API handler. metrics may be nil.
func NewHandler(engine *scoring.Engine, opts Options, metrics *Metrics) *Handler {
	return &Handler{engine: engine, opts: opts, metrics: metrics}
}

// RegisterRoutes registers all API routes on the given ServeMux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /v1/simulate", h.metrics.Instrument("simulate", h.handleSimulate))
	mux.HandleFunc("POST /v1/validate", h.metrics.Instrument("validate", h.handleValidate))
	mux.HandleFunc("POST /v1/alerts", h.metrics.Instrument("alerts", h.handleAlerts))

	mux.HandleFunc("GET /v1/methods/{crop}/{element}", h.metrics.Instrument("methods", h.handleMethod))
	mux.HandleFunc("GET /v1/bands/{table}", h.metrics.Instrument("bands", h.handleBands))
	mux.HandleFunc("GET /healthz", h.handleHealth)

	if h.metrics != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(h.metrics.registry, promhttp.HandlerOpts{}))
	}
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) handleMethod(w http.ResponseWriter, r *http.Request) {
	element, err := method.ParseElement(r.PathValue("element"))
	if err != nil {
		writeErr(w, err)
		return
	}
	col, err := h.engine.Methods.Select(r.PathValue("crop"), element)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, col)
}

func (h *Handler) handleBands(w http.ResponseWriter, r *http.Request) {
	table, err := thresholds.LookupBandTable(thresholds.BandTableID(r.PathValue("table")))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, table)
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, icd.ErrInsufficientData), errors.Is(err, deviation.ErrInsufficientData):
		return http.StatusUnprocessableEntity
	case errors.Is(err, method.ErrUnknownElement),
		errors.Is(err, method.ErrUnknownCropCategory),
		errors.Is(err, thresholds.ErrUnknownBandTable),
		errors.Is(err, scoring.ErrUnknownVariable),
		errors.Is(err, errBadValue):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func writeErr(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.Errorw("request failed", "error", err)
		writeError(w, status, "internal error")
		return
	}
	writeError(w, status, err.Error())
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
