package telemetry

// Creation defaults applied when the first event for an entity carries no
// value for the field.
const (
	DefaultModel         = "unknown"
	DefaultHost          = "local"
	DefaultAgentStatus   = "idle"
	DefaultJobStatus     = "queued"
	DefaultSessionStatus = "active"
)

// Agent is the mutable projection of one agent's telemetry. Descriptive
// fields are last-write-wins on non-empty values; usage only ever accumulates.
type Agent struct {
	AgentID      string           `json:"agentId"`
	Model        string           `json:"model"`
	Host         string           `json:"host"`
	Status       string           `json:"status"`
	JobID        string           `json:"jobId,omitempty"`
	SessionID    string           `json:"sessionId,omitempty"`
	UpdatedAt    string           `json:"updatedAt"`
	UsageTotal   Usage            `json:"usageTotal"`
	UsageByModel map[string]Usage `json:"usageByModel"`
}

// NewAgent creates the projection for an agent first seen in ev. The event's
// own fields are folded in via Apply by the caller.
func NewAgent(ev Event) *Agent {
	return &Agent{
		AgentID:      ev.AgentID,
		Model:        DefaultModel,
		Host:         DefaultHost,
		Status:       DefaultAgentStatus,
		UpdatedAt:    ev.Timestamp,
		UsageByModel: make(map[string]Usage),
	}
}

// Apply folds one event into the agent. The usage triple is attributed to the
// post-update model so an agent that switches models contributes to both
// buckets over its lifetime.
func (a *Agent) Apply(ev Event) {
	if ev.Model != "" {
		a.Model = ev.Model
	}
	if ev.Host != "" {
		a.Host = ev.Host
	}
	if ev.Status != "" {
		a.Status = ev.Status
	}
	if ev.JobID != "" {
		a.JobID = ev.JobID
	}
	if ev.SessionID != "" {
		a.SessionID = ev.SessionID
	}
	a.UpdatedAt = ev.Timestamp
	a.UsageTotal = a.UsageTotal.Add(ev.Usage)

	model := a.Model
	if model == "" {
		model = DefaultModel
	}
	if a.UsageByModel == nil {
		a.UsageByModel = make(map[string]Usage)
	}
	a.UsageByModel[model] = a.UsageByModel[model].Add(ev.Usage)
}

// Job is the mutable projection of one job. StartedAt is set at creation and
// never overwritten; the identifier sets only ever grow.
type Job struct {
	JobID      string    `json:"jobId"`
	Status     string    `json:"status"`
	StartedAt  string    `json:"startedAt"`
	UpdatedAt  string    `json:"updatedAt"`
	AgentIDs   StringSet `json:"agentIds"`
	SessionIDs StringSet `json:"sessionIds"`
}

// NewJob creates the projection for a job first seen in ev.
func NewJob(ev Event) *Job {
	return &Job{
		JobID:     ev.JobID,
		Status:    DefaultJobStatus,
		StartedAt: ev.Timestamp,
		UpdatedAt: ev.Timestamp,
	}
}

// Apply folds one event into the job. Status prefers the job-scoped field
// over the agent-scoped one.
func (j *Job) Apply(ev Event) {
	switch {
	case ev.JobStatus != "":
		j.Status = ev.JobStatus
	case ev.Status != "":
		j.Status = ev.Status
	}
	j.UpdatedAt = ev.Timestamp
	j.AgentIDs.Add(ev.AgentID)
	j.SessionIDs.Add(ev.SessionID)
}

// Session is the mutable projection of one session. CreatedAt is immutable;
// usage accumulates and the agent set only ever grows.
type Session struct {
	SessionID  string    `json:"sessionId"`
	Status     string    `json:"status"`
	CreatedAt  string    `json:"createdAt"`
	UpdatedAt  string    `json:"updatedAt"`
	UsageTotal Usage     `json:"usageTotal"`
	AgentIDs   StringSet `json:"agentIds"`
}

// NewSession creates the projection for a session first seen in ev.
func NewSession(ev Event) *Session {
	return &Session{
		SessionID: ev.SessionID,
		Status:    DefaultSessionStatus,
		CreatedAt: ev.Timestamp,
		UpdatedAt: ev.Timestamp,
	}
}

// Apply folds one event into the session. Unlike jobs, only the
// session-scoped status field updates the session.
func (s *Session) Apply(ev Event) {
	if ev.SessionStatus != "" {
		s.Status = ev.SessionStatus
	}
	s.UpdatedAt = ev.Timestamp
	s.UsageTotal = s.UsageTotal.Add(ev.Usage)
	s.AgentIDs.Add(ev.AgentID)
}
