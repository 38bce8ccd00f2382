package telemetry

import (
	"encoding/json"
	"testing"
)

func TestAgentCreationDefaults(t *testing.T) {
	ev := Normalize(RawEvent{"agentId": "a1"}, testNow)
	a := NewAgent(ev)
	a.Apply(ev)

	if a.Model != "unknown" || a.Host != "local" || a.Status != "idle" {
		t.Errorf("creation defaults not applied: %+v", a)
	}
	if a.UpdatedAt != ev.Timestamp {
		t.Errorf("updatedAt = %q, want event timestamp %q", a.UpdatedAt, ev.Timestamp)
	}
}

func TestAgentApplyLastWriteWins(t *testing.T) {
	first := Normalize(RawEvent{
		"agentId": "a1", "model": "claude", "status": "busy",
		"usage": map[string]any{"inputTokens": float64(10)},
	}, testNow)
	second := Normalize(RawEvent{"agentId": "a1", "status": "idle"}, testNow)

	a := NewAgent(first)
	a.Apply(first)
	a.Apply(second)

	if a.Status != "idle" {
		t.Errorf("status = %q, want idle", a.Status)
	}
	// The second event carried no model; the prior value must survive.
	if a.Model != "claude" {
		t.Errorf("model = %q, want claude", a.Model)
	}
	if a.UsageTotal.InputTokens != 10 {
		t.Errorf("usageTotal.inputTokens = %d, want 10", a.UsageTotal.InputTokens)
	}
}

func TestAgentUsageAccumulatesMonotonically(t *testing.T) {
	a := NewAgent(Event{AgentID: "a1"})
	var want Usage
	for i := 0; i < 5; i++ {
		ev := Event{AgentID: "a1", Usage: Usage{InputTokens: int64(i), OutputTokens: 1}}
		a.Apply(ev)
		want = want.Add(ev.Usage)
	}
	if a.UsageTotal != want {
		t.Errorf("usageTotal = %+v, want sum of all applied events %+v", a.UsageTotal, want)
	}
}

func TestAgentUsageByModelMatchesTotal(t *testing.T) {
	a := NewAgent(Event{AgentID: "a1"})
	a.Apply(Event{AgentID: "a1", Model: "claude", Usage: Usage{InputTokens: 5}})
	a.Apply(Event{AgentID: "a1", Usage: Usage{OutputTokens: 3}})
	a.Apply(Event{AgentID: "a1", Model: "gpt", Usage: Usage{InputTokens: 2}})

	if len(a.UsageByModel) != 2 {
		t.Fatalf("usageByModel buckets = %d, want 2 (claude, gpt)", len(a.UsageByModel))
	}
	// Usage with no model on the event sticks to the current model.
	if got := a.UsageByModel["claude"]; got != (Usage{InputTokens: 5, OutputTokens: 3}) {
		t.Errorf("claude bucket = %+v", got)
	}

	var sum Usage
	for _, u := range a.UsageByModel {
		sum = sum.Add(u)
	}
	if sum != a.UsageTotal {
		t.Errorf("usageByModel sum %+v != usageTotal %+v", sum, a.UsageTotal)
	}
}

func TestJobStatusPrecedence(t *testing.T) {
	created := Event{JobID: "j1", Timestamp: "t0"}
	j := NewJob(created)
	j.Apply(created)

	if j.Status != "queued" {
		t.Errorf("status = %q, want creation default queued", j.Status)
	}

	j.Apply(Event{JobID: "j1", Status: "busy", Timestamp: "t1"})
	if j.Status != "busy" {
		t.Errorf("status = %q, agent status should apply when jobStatus absent", j.Status)
	}

	j.Apply(Event{JobID: "j1", Status: "busy", JobStatus: "running", Timestamp: "t2"})
	if j.Status != "running" {
		t.Errorf("status = %q, jobStatus must take precedence", j.Status)
	}

	if j.StartedAt != "t0" {
		t.Errorf("startedAt = %q, must never move after creation", j.StartedAt)
	}
	if j.UpdatedAt != "t2" {
		t.Errorf("updatedAt = %q, want t2", j.UpdatedAt)
	}
}

func TestJobSetsOnlyGrow(t *testing.T) {
	j := NewJob(Event{JobID: "j1"})
	events := []Event{
		{JobID: "j1", AgentID: "a1", SessionID: "s1"},
		{JobID: "j1", AgentID: "a2"},
		{JobID: "j1", AgentID: "a1"}, // duplicate
		{JobID: "j1"},                // no members at all
	}
	for _, ev := range events {
		j.Apply(ev)
	}

	if got := j.AgentIDs.Values(); len(got) != 2 || got[0] != "a1" || got[1] != "a2" {
		t.Errorf("agentIds = %v, want [a1 a2]", got)
	}
	if got := j.SessionIDs.Values(); len(got) != 1 || got[0] != "s1" {
		t.Errorf("sessionIds = %v, want [s1]", got)
	}
}

func TestSessionApply(t *testing.T) {
	created := Event{SessionID: "s1", Timestamp: "t0"}
	s := NewSession(created)
	s.Apply(created)

	if s.Status != "active" {
		t.Errorf("status = %q, want creation default active", s.Status)
	}

	// The agent-scoped status field must not leak into the session.
	s.Apply(Event{SessionID: "s1", Status: "busy", Timestamp: "t1"})
	if s.Status != "active" {
		t.Errorf("status = %q, agent status must not update sessions", s.Status)
	}

	s.Apply(Event{SessionID: "s1", SessionStatus: "closed", AgentID: "a1",
		Usage: Usage{CachedTokens: 4}, Timestamp: "t2"})
	if s.Status != "closed" {
		t.Errorf("status = %q, want closed", s.Status)
	}
	if s.UsageTotal.CachedTokens != 4 {
		t.Errorf("usageTotal = %+v", s.UsageTotal)
	}
	if s.CreatedAt != "t0" {
		t.Errorf("createdAt = %q, must never move", s.CreatedAt)
	}
	if !s.AgentIDs.Has("a1") {
		t.Error("agentIds missing a1")
	}
}

func TestStringSetJSON(t *testing.T) {
	var s StringSet
	s.Add("b")
	s.Add("a")
	s.Add("b")

	data, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `["b","a"]` {
		t.Errorf("marshal = %s, want insertion order without duplicates", data)
	}

	var back StringSet
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !back.Has("a") || !back.Has("b") || back.Len() != 2 {
		t.Errorf("round trip lost members: %v", back.Values())
	}
}

func TestStringSetEmptyMarshalsAsArray(t *testing.T) {
	data, err := json.Marshal(StringSet{})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != "[]" {
		t.Errorf("empty set = %s, want []", data)
	}
}
