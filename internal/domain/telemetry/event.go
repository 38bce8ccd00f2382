// Package telemetry defines the canonical telemetry event and the derived
// Agent/Job/Session projections maintained by the portal.
package telemetry

import (
	"strconv"
	"time"
)

// TimestampLayout is the wire format for event timestamps (UTC, millisecond
// precision), matching what the log forwarder emits.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// DefaultType is assigned to events that carry no type field.
const DefaultType = "heartbeat"

// RawEvent is a loosely-structured event as received at the ingestion
// boundary. Producers send strict JSON objects or flattened key=value pairs
// re-assembled by the forwarder; Normalize is the single chokepoint that turns
// either shape into an Event.
type RawEvent map[string]any

// Usage is a triple of non-negative token counters.
type Usage struct {
	InputTokens  int64 `json:"inputTokens"`
	OutputTokens int64 `json:"outputTokens"`
	CachedTokens int64 `json:"cachedTokens"`
}

// Add returns the pointwise sum of u and v.
func (u Usage) Add(v Usage) Usage {
	return Usage{
		InputTokens:  u.InputTokens + v.InputTokens,
		OutputTokens: u.OutputTokens + v.OutputTokens,
		CachedTokens: u.CachedTokens + v.CachedTokens,
	}
}

// Event is the canonical, fully-defaulted representation of one telemetry
// occurrence. Immutable once created. Identifier fields use the empty string
// as the absent marker and are omitted from JSON when unset.
type Event struct {
	Timestamp     string `json:"ts"`
	Type          string `json:"type"`
	AgentID       string `json:"agentId,omitempty"`
	Model         string `json:"model,omitempty"`
	Host          string `json:"host,omitempty"`
	Status        string `json:"status,omitempty"`
	JobID         string `json:"jobId,omitempty"`
	JobStatus     string `json:"jobStatus,omitempty"`
	SessionID     string `json:"sessionId,omitempty"`
	SessionStatus string `json:"sessionStatus,omitempty"`
	Usage         Usage  `json:"usage"`
}

// Time parses the event timestamp, falling back to the given default when the
// producer sent something unparseable.
func (e Event) Time(fallback time.Time) time.Time {
	if ts, err := time.Parse(time.RFC3339, e.Timestamp); err == nil {
		return ts
	}
	return fallback
}

// Normalize converts a raw event into a canonical Event. It is a total
// function: missing or malformed fields degrade to defaults rather than
// erroring, so a partial key=value line from the forwarder becomes a
// low-information heartbeat instead of being rejected. now supplies the
// ingestion time used when the producer omitted a timestamp.
func Normalize(raw RawEvent, now time.Time) Event {
	ev := Event{
		Timestamp:     stringField(raw["ts"]),
		Type:          stringField(raw["type"]),
		AgentID:       stringField(raw["agentId"]),
		Model:         stringField(raw["model"]),
		Host:          stringField(raw["host"]),
		Status:        stringField(raw["status"]),
		JobID:         stringField(raw["jobId"]),
		JobStatus:     stringField(raw["jobStatus"]),
		SessionID:     stringField(raw["sessionId"]),
		SessionStatus: stringField(raw["sessionStatus"]),
		Usage:         normalizeUsage(raw["usage"]),
	}

	if ev.Timestamp == "" {
		ev.Timestamp = now.UTC().Format(TimestampLayout)
	}
	if ev.Type == "" {
		ev.Type = DefaultType
	}

	return ev
}

// normalizeUsage coerces the usage sub-object into a Usage triple. Anything
// that is not an object yields the zero triple.
func normalizeUsage(v any) Usage {
	m, ok := v.(map[string]any)
	if !ok {
		return Usage{}
	}
	return Usage{
		InputTokens:  tokenCount(m["inputTokens"]),
		OutputTokens: tokenCount(m["outputTokens"]),
		CachedTokens: tokenCount(m["cachedTokens"]),
	}
}

// stringField coerces an untyped value into a string identifier. Numbers are
// formatted (loose producers send numeric IDs); everything else is absent.
func stringField(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(s, 10)
	case int:
		return strconv.Itoa(s)
	default:
		return ""
	}
}

// tokenCount coerces an untyped value into a non-negative token count.
// Invalid or negative input defaults to 0.
func tokenCount(v any) int64 {
	var n int64
	switch c := v.(type) {
	case float64:
		n = int64(c)
	case int64:
		n = c
	case int:
		n = int64(c)
	case string:
		parsed, err := strconv.ParseInt(c, 10, 64)
		if err != nil {
			return 0
		}
		n = parsed
	default:
		return 0
	}
	if n < 0 {
		return 0
	}
	return n
}
