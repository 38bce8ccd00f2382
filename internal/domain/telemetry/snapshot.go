package telemetry

// Counts holds the number of known entities of each kind.
type Counts struct {
	Agents   int `json:"agents"`
	Jobs     int `json:"jobs"`
	Sessions int `json:"sessions"`
}

// Snapshot is a point-in-time read of the derived state plus aggregate totals
// and recent activity. Field names match the wire contract consumed by the
// dashboard.
type Snapshot struct {
	LastUpdated  string           `json:"lastUpdated,omitempty"`
	Totals       Usage            `json:"totals"`
	Counts       Counts           `json:"counts"`
	ByModel      map[string]Usage `json:"byModel"`
	Agents       []Agent          `json:"agents"`
	Jobs         []Job            `json:"jobs"`
	Sessions     []Session        `json:"sessions"`
	RecentEvents []Event          `json:"recentEvents"`
}

// HistoryRow is one hour-bucketed, per-model usage sum from the durable log.
type HistoryRow struct {
	Hour         string `json:"hour"`
	Model        string `json:"model"`
	InputTokens  int64  `json:"inputTokens"`
	OutputTokens int64  `json:"outputTokens"`
	CachedTokens int64  `json:"cachedTokens"`
}
