package service

import (
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/openclaw/portal/internal/domain/telemetry"
)

// maxRecentEvents bounds the in-memory ring of recent canonical events.
const maxRecentEvents = 500

// snapshotRecentEvents is how many ring entries a snapshot exposes.
const snapshotRecentEvents = 50

// State is the in-memory derived view of all ingested telemetry: the
// Agent/Job/Session projections, the recent-events ring, and the last
// ingestion timestamp. Its lifecycle spans process start (populated by
// Recovery) to shutdown; the Aggregator is the sole writer, the query layer
// reads via Snapshot.
type State struct {
	mu          sync.RWMutex
	lastUpdated string
	agents      map[string]*telemetry.Agent
	agentIDs    []string
	jobs        map[string]*telemetry.Job
	jobIDs      []string
	sessions    map[string]*telemetry.Session
	sessionIDs  []string
	events      []telemetry.Event
}

// NewState creates an empty derived state.
func NewState() *State {
	return &State{
		agents:   make(map[string]*telemetry.Agent),
		jobs:     make(map[string]*telemetry.Job),
		sessions: make(map[string]*telemetry.Session),
	}
}

// Fold applies one canonical event to the derived state: the three upserts,
// the ring prepend with trim, and the last-updated stamp. The whole mutation
// is atomic to readers. Entities are stamped with the event's own timestamp
// while lastUpdated records the ingestion time, so out-of-order producers can
// move an entity's updatedAt behind lastUpdated; that asymmetry is kept as
// observed behavior.
func (s *State) Fold(ev telemetry.Event, ingestedAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.upsertAgent(ev)
	s.upsertJob(ev)
	s.upsertSession(ev)

	s.events = slices.Insert(s.events, 0, ev)
	if len(s.events) > maxRecentEvents {
		s.events = s.events[:maxRecentEvents]
	}

	s.lastUpdated = ingestedAt.UTC().Format(telemetry.TimestampLayout)
}

func (s *State) upsertAgent(ev telemetry.Event) {
	if ev.AgentID == "" {
		return
	}
	a, ok := s.agents[ev.AgentID]
	if !ok {
		a = telemetry.NewAgent(ev)
		s.agents[ev.AgentID] = a
		s.agentIDs = append(s.agentIDs, ev.AgentID)
	}
	a.Apply(ev)
}

func (s *State) upsertJob(ev telemetry.Event) {
	if ev.JobID == "" {
		return
	}
	j, ok := s.jobs[ev.JobID]
	if !ok {
		j = telemetry.NewJob(ev)
		s.jobs[ev.JobID] = j
		s.jobIDs = append(s.jobIDs, ev.JobID)
	}
	j.Apply(ev)
}

func (s *State) upsertSession(ev telemetry.Event) {
	if ev.SessionID == "" {
		return
	}
	sess, ok := s.sessions[ev.SessionID]
	if !ok {
		sess = telemetry.NewSession(ev)
		s.sessions[ev.SessionID] = sess
		s.sessionIDs = append(s.sessionIDs, ev.SessionID)
	}
	sess.Apply(ev)
}

// AgentCount returns the number of known agents. Used by Recovery to decide
// whether the replayed log produced any state.
func (s *State) AgentCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.agents)
}

// Snapshot assembles a point-in-time view of the derived state. All returned
// values are deep copies; callers can hold them across later ingestions.
func (s *State) Snapshot() telemetry.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := telemetry.Snapshot{
		LastUpdated: s.lastUpdated,
		ByModel:     make(map[string]telemetry.Usage),
		Agents:      make([]telemetry.Agent, 0, len(s.agentIDs)),
		Jobs:        make([]telemetry.Job, 0, len(s.jobIDs)),
		Sessions:    make([]telemetry.Session, 0, len(s.sessionIDs)),
		Counts: telemetry.Counts{
			Agents:   len(s.agents),
			Jobs:     len(s.jobs),
			Sessions: len(s.sessions),
		},
	}

	for _, id := range s.agentIDs {
		a := *s.agents[id]
		a.UsageByModel = maps.Clone(a.UsageByModel)
		snap.Agents = append(snap.Agents, a)

		snap.Totals = snap.Totals.Add(a.UsageTotal)
		for model, usage := range a.UsageByModel {
			snap.ByModel[model] = snap.ByModel[model].Add(usage)
		}
	}

	for _, id := range s.jobIDs {
		j := *s.jobs[id]
		j.AgentIDs = j.AgentIDs.Clone()
		j.SessionIDs = j.SessionIDs.Clone()
		snap.Jobs = append(snap.Jobs, j)
	}

	for _, id := range s.sessionIDs {
		sess := *s.sessions[id]
		sess.AgentIDs = sess.AgentIDs.Clone()
		snap.Sessions = append(snap.Sessions, sess)
	}

	n := min(len(s.events), snapshotRecentEvents)
	snap.RecentEvents = make([]telemetry.Event, n)
	copy(snap.RecentEvents, s.events)

	return snap
}
