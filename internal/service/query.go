package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/openclaw/portal/internal/domain/telemetry"
	"github.com/openclaw/portal/internal/port/cache"
	"github.com/openclaw/portal/internal/port/eventlog"
)

// History window bounds. Out-of-range requests are clamped, not rejected.
const (
	DefaultHistoryHours = 24
	MinHistoryHours     = 1
	MaxHistoryHours     = 168
)

// historyCacheTTL matches the dashboard poll interval; history rows are
// hour-granular so short staleness is invisible to consumers.
const historyCacheTTL = 15 * time.Second

// Query produces the snapshot and history views. Snapshots read the derived
// state only; history goes to the durable log, with a short-TTL cache and
// singleflight collapsing so concurrent dashboard polls share one log query.
type Query struct {
	state *State
	log   eventlog.Store
	cache cache.Cache
	group singleflight.Group
}

// NewQuery creates a Query over the given state and log. cache may be nil.
func NewQuery(state *State, log eventlog.Store, c cache.Cache) *Query {
	return &Query{state: state, log: log, cache: c}
}

// Snapshot returns the current derived state view. Never touches the log.
func (q *Query) Snapshot() telemetry.Snapshot {
	return q.state.Snapshot()
}

// History returns hour-bucketed per-model usage sums for the last hours
// hours, clamped to [MinHistoryHours, MaxHistoryHours].
func (q *Query) History(ctx context.Context, hours int) ([]telemetry.HistoryRow, error) {
	hours = min(max(hours, MinHistoryHours), MaxHistoryHours)
	key := "history:" + strconv.Itoa(hours)

	if q.cache != nil {
		if data, ok, err := q.cache.Get(ctx, key); err == nil && ok {
			var rows []telemetry.HistoryRow
			if err := json.Unmarshal(data, &rows); err == nil {
				return rows, nil
			}
		}
	}

	v, err, _ := q.group.Do(key, func() (any, error) {
		rows, err := q.log.History(ctx, hours)
		if err != nil {
			return nil, fmt.Errorf("history query: %w", err)
		}
		if rows == nil {
			rows = []telemetry.HistoryRow{}
		}
		if q.cache != nil {
			if data, err := json.Marshal(rows); err == nil {
				if err := q.cache.Set(ctx, key, data, historyCacheTTL); err != nil {
					slog.Warn("history cache set failed", "error", err)
				}
			}
		}
		return rows, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]telemetry.HistoryRow), nil
}
