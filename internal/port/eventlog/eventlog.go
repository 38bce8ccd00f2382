// Package eventlog defines the port for the durable append-only event log.
package eventlog

import (
	"context"

	"github.com/openclaw/portal/internal/domain/telemetry"
)

// Store is the durable, append-only log of canonical events. Rows are never
// updated or deleted in normal operation.
type Store interface {
	// Append inserts one canonical event.
	Append(ctx context.Context, ev telemetry.Event) error

	// History returns hour-bucketed, per-model usage sums for events within
	// the last hoursBack hours, ordered hour descending then combined
	// input+output usage descending.
	History(ctx context.Context, hoursBack int) ([]telemetry.HistoryRow, error)

	// LoadRecent returns the serialized payloads of up to limit most recent
	// events, newest first, for replay on startup.
	LoadRecent(ctx context.Context, limit int) ([][]byte, error)
}
