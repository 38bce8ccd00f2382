// Package otel provides the portal's OpenTelemetry metric instruments and
// HTTP instrumentation middleware.
package otel

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "openclaw-portal"

// Metrics holds all portal metric instruments.
type Metrics struct {
	EventsIngested metric.Int64Counter
	IngestFailures metric.Int64Counter
	IngestDuration metric.Float64Histogram
	BatchSize      metric.Int64Histogram
}

// NewMetrics creates all metric instruments on the global meter.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)
	m := &Metrics{}
	var err error

	m.EventsIngested, err = meter.Int64Counter("portal.events.ingested",
		metric.WithDescription("Number of telemetry events ingested"))
	if err != nil {
		return nil, err
	}

	m.IngestFailures, err = meter.Int64Counter("portal.events.failed",
		metric.WithDescription("Number of ingestions that failed to persist"))
	if err != nil {
		return nil, err
	}

	m.IngestDuration, err = meter.Float64Histogram("portal.ingest.duration_seconds",
		metric.WithDescription("Single-event ingest duration in seconds"))
	if err != nil {
		return nil, err
	}

	m.BatchSize, err = meter.Int64Histogram("portal.ingest.batch_size",
		metric.WithDescription("Events ingested per inbound batch"))
	if err != nil {
		return nil, err
	}

	return m, nil
}
