package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/openclaw/portal/internal/domain/telemetry"
)

// EventLog implements eventlog.Store using PostgreSQL (append-only).
// Rows carry both the structured columns used by the history rollup and the
// full serialized event for exact replay.
type EventLog struct {
	pool *pgxpool.Pool
}

// NewEventLog creates an EventLog backed by the given connection pool.
func NewEventLog(pool *pgxpool.Pool) *EventLog {
	return &EventLog{pool: pool}
}

// Append inserts one canonical event into the telemetry_events table.
func (l *EventLog) Append(ctx context.Context, ev telemetry.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event payload: %w", err)
	}

	_, err = l.pool.Exec(ctx,
		`INSERT INTO telemetry_events (
		     ts, event_type, agent_id, model, host, status,
		     job_id, job_status, session_id, session_status,
		     input_tokens, output_tokens, cached_tokens, payload
		 ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		ev.Time(time.Now()), ev.Type,
		nullIfEmpty(ev.AgentID), nullIfEmpty(ev.Model), nullIfEmpty(ev.Host), nullIfEmpty(ev.Status),
		nullIfEmpty(ev.JobID), nullIfEmpty(ev.JobStatus), nullIfEmpty(ev.SessionID), nullIfEmpty(ev.SessionStatus),
		ev.Usage.InputTokens, ev.Usage.OutputTokens, ev.Usage.CachedTokens, payload)
	if err != nil {
		return fmt.Errorf("append event: %w", err)
	}
	return nil
}

// History returns hour-bucketed, per-model usage sums for events within the
// last hoursBack hours. Rows come back hour descending, then combined
// input+output usage descending, so consumers can take the top models per
// hour without re-sorting.
func (l *EventLog) History(ctx context.Context, hoursBack int) ([]telemetry.HistoryRow, error) {
	rows, err := l.pool.Query(ctx,
		`SELECT
		     TO_CHAR(date_trunc('hour', ts AT TIME ZONE 'UTC'), 'YYYY-MM-DD"T"HH24:00:00"Z"') AS hour,
		     COALESCE(model, 'unknown') AS model,
		     COALESCE(SUM(input_tokens), 0),
		     COALESCE(SUM(output_tokens), 0),
		     COALESCE(SUM(cached_tokens), 0)
		 FROM telemetry_events
		 WHERE ts >= NOW() - ($1 || ' hours')::interval
		 GROUP BY 1, 2
		 ORDER BY 1 DESC, (SUM(input_tokens) + SUM(output_tokens)) DESC`,
		fmt.Sprintf("%d", hoursBack))
	if err != nil {
		return nil, fmt.Errorf("history query: %w", err)
	}
	defer rows.Close()

	var result []telemetry.HistoryRow
	for rows.Next() {
		var hr telemetry.HistoryRow
		if err := rows.Scan(&hr.Hour, &hr.Model, &hr.InputTokens, &hr.OutputTokens, &hr.CachedTokens); err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		result = append(result, hr)
	}
	return result, rows.Err()
}

// LoadRecent returns the serialized payloads of up to limit most recent
// events, newest first.
func (l *EventLog) LoadRecent(ctx context.Context, limit int) ([][]byte, error) {
	rows, err := l.pool.Query(ctx,
		`SELECT payload FROM telemetry_events ORDER BY ts DESC, id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("load recent events: %w", err)
	}
	defer rows.Close()

	var payloads [][]byte
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan payload: %w", err)
		}
		payloads = append(payloads, payload)
	}
	return payloads, rows.Err()
}

// nullIfEmpty returns nil for empty strings (for nullable text columns).
func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
