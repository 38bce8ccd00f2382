package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/openclaw/portal/internal/domain/telemetry"
	"github.com/openclaw/portal/internal/port/eventlog"
)

// replayLimit bounds how many log records are replayed on startup.
const replayLimit = 5000

// Recovery rebuilds the derived state on process start by replaying the
// durable log, falling back to a one-time seed file when the log is empty.
// Failures are logged and leave the service running with whatever state was
// recovered; they never prevent startup.
type Recovery struct {
	agg      *Aggregator
	log      eventlog.Store
	seedFile string
}

// NewRecovery creates a Recovery. seedFile may be empty to disable seeding.
func NewRecovery(agg *Aggregator, log eventlog.Store, seedFile string) *Recovery {
	return &Recovery{agg: agg, log: log, seedFile: seedFile}
}

// Run replays the most recent log records oldest-first (so last-write-wins
// fields settle on the true latest values) without re-appending them. When
// replay yields no agents, the seed file is ingested through the normal
// persisting path so its events join the durable log.
func (r *Recovery) Run(ctx context.Context) {
	payloads, err := r.log.LoadRecent(ctx, replayLimit)
	if err != nil {
		slog.Error("load events from durable log", "error", err)
	}

	skipped := 0
	for i := len(payloads) - 1; i >= 0; i-- {
		var raw telemetry.RawEvent
		if err := json.Unmarshal(payloads[i], &raw); err != nil || raw == nil {
			skipped++
			continue
		}
		if err := r.agg.Replay(ctx, raw); err != nil {
			skipped++
		}
	}
	if len(payloads) > 0 {
		slog.Info("restored events from durable log",
			"restored", len(payloads)-skipped, "skipped", skipped)
	}

	if r.agg.state.AgentCount() > 0 || r.seedFile == "" {
		return
	}
	if err := r.loadSeed(ctx); err != nil {
		slog.Error("seed load failed", "file", r.seedFile, "error", err)
	}
}

// loadSeed ingests the seed file's events through the persisting path.
// The file holds either a bare array of raw events or {"events": [...]}.
func (r *Recovery) loadSeed(ctx context.Context) error {
	data, err := os.ReadFile(r.seedFile)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read seed file: %w", err)
	}

	var parsed any
	if err := json.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("parse seed file: %w", err)
	}

	var items []any
	switch v := parsed.(type) {
	case []any:
		items = v
	case map[string]any:
		if evs, ok := v["events"].([]any); ok {
			items = evs
		}
	}
	if items == nil {
		return nil
	}

	count, err := r.agg.IngestBatch(ctx, items)
	if err != nil {
		return fmt.Errorf("ingest seed events: %w", err)
	}
	slog.Info("loaded seed events", "file", r.seedFile, "events", count)
	return nil
}
