// Package http provides the REST adapter for the telemetry portal.
package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/openclaw/portal/internal/service"
)

// Handlers holds the service dependencies for all HTTP endpoints.
type Handlers struct {
	Agg   *service.Aggregator
	Query *service.Query
}

// NewHandlers creates the handler set.
func NewHandlers(agg *service.Aggregator, query *service.Query) *Handlers {
	return &Handlers{Agg: agg, Query: query}
}

type ingestResponse struct {
	OK       bool `json:"ok"`
	Ingested int  `json:"ingested"`
	Snapshot any  `json:"snapshot"`
}

// HandleIngest accepts a single event, an array of events, or an object with
// an "events" array, folds them into the live state and appends them to the
// event log.
func (h *Handlers) HandleIngest(w http.ResponseWriter, r *http.Request) {
	data, ok := readBody(w, r)
	if !ok {
		return
	}

	batch, err := parseBatch(data)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}

	ingested, err := h.Agg.IngestBatch(r.Context(), batch)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to persist events")
		return
	}

	writeJSON(w, http.StatusOK, ingestResponse{
		OK:       true,
		Ingested: ingested,
		Snapshot: h.Query.Snapshot(),
	})
}

// HandleSnapshot returns the current aggregated view of all agents, jobs and
// sessions.
func (h *Handlers) HandleSnapshot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Query.Snapshot())
}

type historyResponse struct {
	Hours int `json:"hours"`
	Rows  any `json:"rows"`
}

// HandleHistory returns per-model hourly token usage for the requested
// window. A missing or non-numeric hours parameter defaults to 24.
func (h *Handlers) HandleHistory(w http.ResponseWriter, r *http.Request) {
	hours := service.DefaultHistoryHours
	if raw := r.URL.Query().Get("hours"); raw != "" {
		if f, err := strconv.ParseFloat(raw, 64); err == nil {
			hours = int(f)
		}
	}
	hours = min(max(hours, service.MinHistoryHours), service.MaxHistoryHours)

	rows, err := h.Query.History(r.Context(), hours)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to query history")
		return
	}

	writeJSON(w, http.StatusOK, historyResponse{Hours: hours, Rows: rows})
}

// HandleHealth reports liveness. Exempt from authorization.
func (h *Handlers) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":  true,
		"now": time.Now().UTC().Format("2006-01-02T15:04:05.000Z"),
	})
}
