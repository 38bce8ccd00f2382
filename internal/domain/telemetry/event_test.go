package telemetry

import (
	"encoding/json"
	"testing"
	"time"
)

var testNow = time.Date(2026, 2, 3, 10, 15, 0, 0, time.UTC)

func TestNormalizeDefaults(t *testing.T) {
	ev := Normalize(RawEvent{}, testNow)

	if ev.Timestamp != "2026-02-03T10:15:00.000Z" {
		t.Errorf("timestamp = %q, want ingestion time", ev.Timestamp)
	}
	if ev.Type != "heartbeat" {
		t.Errorf("type = %q, want heartbeat", ev.Type)
	}
	if ev.AgentID != "" || ev.JobID != "" || ev.SessionID != "" {
		t.Errorf("expected absent identifiers, got %+v", ev)
	}
	if ev.Usage != (Usage{}) {
		t.Errorf("usage = %+v, want zero triple", ev.Usage)
	}
}

func TestNormalizeFullEvent(t *testing.T) {
	raw := RawEvent{
		"ts":            "2026-02-03T09:00:00.000Z",
		"type":          "job.update",
		"agentId":       "a1",
		"model":         "claude",
		"host":          "worker-2",
		"status":        "busy",
		"jobId":         "j1",
		"jobStatus":     "running",
		"sessionId":     "s1",
		"sessionStatus": "active",
		"usage": map[string]any{
			"inputTokens":  float64(10),
			"outputTokens": float64(4),
			"cachedTokens": float64(1),
		},
	}

	ev := Normalize(raw, testNow)

	if ev.Timestamp != "2026-02-03T09:00:00.000Z" {
		t.Errorf("timestamp = %q, producer timestamp must win", ev.Timestamp)
	}
	if ev.Type != "job.update" || ev.AgentID != "a1" || ev.JobID != "j1" || ev.SessionID != "s1" {
		t.Errorf("unexpected canonical event: %+v", ev)
	}
	want := Usage{InputTokens: 10, OutputTokens: 4, CachedTokens: 1}
	if ev.Usage != want {
		t.Errorf("usage = %+v, want %+v", ev.Usage, want)
	}
}

// Normalizing the JSON round-trip of a canonical event must yield the same
// canonical fields, regardless of the ingestion clock on the second pass.
func TestNormalizeIdempotent(t *testing.T) {
	first := Normalize(RawEvent{
		"agentId": "a1",
		"model":   "claude",
		"usage":   map[string]any{"inputTokens": float64(7)},
	}, testNow)

	data, err := json.Marshal(first)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var raw RawEvent
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	second := Normalize(raw, testNow.Add(time.Hour))
	if first != second {
		t.Errorf("normalize not idempotent:\n first = %+v\nsecond = %+v", first, second)
	}
}

func TestTokenCount(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want int64
	}{
		{"float", float64(12), 12},
		{"int", 7, 7},
		{"numeric string", "42", 42},
		{"junk string", "abc", 0},
		{"negative", float64(-5), 0},
		{"bool", true, 0},
		{"missing", nil, 0},
		{"object", map[string]any{}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tokenCount(tt.in); got != tt.want {
				t.Errorf("tokenCount(%v) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}

func TestStringField(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
	}{
		{"string", "a1", "a1"},
		{"numeric id", float64(5), "5"},
		{"int id", 9, "9"},
		{"missing", nil, ""},
		{"array", []any{"x"}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := stringField(tt.in); got != tt.want {
				t.Errorf("stringField(%v) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalizeUsageNonObject(t *testing.T) {
	ev := Normalize(RawEvent{"usage": "lots"}, testNow)
	if ev.Usage != (Usage{}) {
		t.Errorf("usage = %+v, want zero triple for non-object usage", ev.Usage)
	}
}

func TestEventTime(t *testing.T) {
	ev := Event{Timestamp: "2026-02-03T09:00:00.000Z"}
	if got := ev.Time(testNow); !got.Equal(time.Date(2026, 2, 3, 9, 0, 0, 0, time.UTC)) {
		t.Errorf("Time = %v", got)
	}

	bad := Event{Timestamp: "not-a-time"}
	if got := bad.Time(testNow); !got.Equal(testNow) {
		t.Errorf("Time fallback = %v, want %v", got, testNow)
	}
}

func TestUsageAdd(t *testing.T) {
	a := Usage{InputTokens: 1, OutputTokens: 2, CachedTokens: 3}
	b := Usage{InputTokens: 10, OutputTokens: 20, CachedTokens: 30}
	want := Usage{InputTokens: 11, OutputTokens: 22, CachedTokens: 33}
	if got := a.Add(b); got != want {
		t.Errorf("Add = %+v, want %+v", got, want)
	}
}
