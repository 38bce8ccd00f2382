package http

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
)

// maxBodyBytes is the ingestion body size limit.
const maxBodyBytes = 1 << 20

type errorResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to write JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{OK: false, Error: message})
}

// readBody reads the request body up to the size limit. An empty body is
// returned as "{}" so it ingests as a single bare event.
func readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	data, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
		} else {
			writeError(w, http.StatusBadRequest, "invalid request body")
		}
		return nil, false
	}
	if len(data) == 0 {
		data = []byte("{}")
	}
	return data, true
}

// parseBatch turns a request body into the list of raw event candidates.
// A JSON array is taken as-is, an object with an "events" array contributes
// that array, and any other object is a single event.
func parseBatch(data []byte) ([]any, error) {
	var parsed any
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, err
	}

	switch v := parsed.(type) {
	case []any:
		return v, nil
	case map[string]any:
		if events, ok := v["events"].([]any); ok {
			return events, nil
		}
		return []any{v}, nil
	default:
		return nil, errors.New("body must be an object or array")
	}
}
