package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	otelad "github.com/openclaw/portal/internal/adapter/otel"
	"github.com/openclaw/portal/internal/domain/telemetry"
	"github.com/openclaw/portal/internal/port/broadcast"
	"github.com/openclaw/portal/internal/port/eventlog"
	"github.com/openclaw/portal/internal/port/stream"
)

// EventBroadcastType is the WebSocket envelope type for ingested events.
const EventBroadcastType = "telemetry.event"

// EventStreamSubject is the NATS subject ingested events are published to.
const EventStreamSubject = "telemetry.events"

// Aggregator folds raw telemetry events into the derived state and appends
// them to the durable log. It is the sole writer of both. Hub, publisher and
// metrics are optional; nil disables the corresponding fan-out.
type Aggregator struct {
	state   *State
	log     eventlog.Store
	hub     broadcast.Broadcaster
	pub     stream.Publisher
	metrics *otelad.Metrics
	now     func() time.Time
}

// NewAggregator creates an Aggregator writing to the given state and log.
func NewAggregator(state *State, log eventlog.Store, hub broadcast.Broadcaster, pub stream.Publisher, metrics *otelad.Metrics) *Aggregator {
	return &Aggregator{
		state:   state,
		log:     log,
		hub:     hub,
		pub:     pub,
		metrics: metrics,
		now:     time.Now,
	}
}

// Ingest normalizes one raw event, applies it to the derived state, and
// appends it to the durable log. The in-memory projection advances even when
// the append fails; the returned error tells the producer to retry, and a
// restart rebuilds the projection from the log either way.
func (a *Aggregator) Ingest(ctx context.Context, raw telemetry.RawEvent) error {
	return a.ingest(ctx, raw, true)
}

// Replay applies an already-logged event to the derived state without
// re-appending it. Used exclusively by Recovery.
func (a *Aggregator) Replay(ctx context.Context, raw telemetry.RawEvent) error {
	return a.ingest(ctx, raw, false)
}

// IngestBatch ingests every element of items that is a non-null object and
// silently skips the rest. It returns the number ingested; on a persistence
// failure it stops and reports how many events made it in before the error.
func (a *Aggregator) IngestBatch(ctx context.Context, items []any) (int, error) {
	ingested := 0
	for _, item := range items {
		raw, ok := item.(map[string]any)
		if !ok {
			continue
		}
		if err := a.Ingest(ctx, telemetry.RawEvent(raw)); err != nil {
			return ingested, err
		}
		ingested++
	}
	if a.metrics != nil {
		a.metrics.BatchSize.Record(ctx, int64(ingested))
	}
	return ingested, nil
}

func (a *Aggregator) ingest(ctx context.Context, raw telemetry.RawEvent, persist bool) error {
	start := a.now()
	ev := telemetry.Normalize(raw, start)

	a.state.Fold(ev, start)

	if persist {
		if err := a.log.Append(ctx, ev); err != nil {
			if a.metrics != nil {
				a.metrics.IngestFailures.Add(ctx, 1)
			}
			return fmt.Errorf("append event: %w", err)
		}
		a.notify(ctx, ev)
	}

	if a.metrics != nil {
		a.metrics.EventsIngested.Add(ctx, 1)
		a.metrics.IngestDuration.Record(ctx, time.Since(start).Seconds())
	}
	return nil
}

// notify fans the event out to WebSocket clients and the NATS stream.
// Both paths are best-effort; failures are logged, never surfaced upstream.
func (a *Aggregator) notify(ctx context.Context, ev telemetry.Event) {
	if a.hub != nil {
		a.hub.BroadcastEvent(ctx, EventBroadcastType, ev)
	}
	if a.pub != nil {
		data, err := json.Marshal(ev)
		if err != nil {
			slog.Error("marshal event for stream", "error", err)
			return
		}
		if err := a.pub.Publish(ctx, EventStreamSubject, data); err != nil {
			slog.Error("publish event to stream", "subject", EventStreamSubject, "error", err)
		}
	}
}
