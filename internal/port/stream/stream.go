// Package stream defines the port for publishing ingested events to
// downstream consumers.
package stream

import "context"

// Publisher fans ingested canonical events out to external subscribers.
// Publishing is best-effort from the aggregator's point of view: a failed
// publish is logged, never surfaced to the producer.
type Publisher interface {
	Publish(ctx context.Context, subject string, data []byte) error
	Close() error
}
