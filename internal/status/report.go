package status

import "time"

// Outcome names used in reports. They mirror the synchronizer's outcomes.
const (
	OutcomeUpdated     = "updated"
	OutcomeNoSource    = "no_source"
	OutcomeFetchFailed = "fetch_failed"
	OutcomeEmptyBody   = "empty_body"
	OutcomeFailed      = "failed"
)

// Report is the serialized form of one synchronization run.
//
// Report is decoupled from the synchronizer's own result type so the JSON
// shape used by the admin API can evolve independently.
type Report struct {
	// RunID uniquely identifies the run in logs and events.
	RunID string `json:"run_id"`

	// Outcome is one of the Outcome* constants.
	Outcome string `json:"outcome"`

	// SourceURL is the URL that was fetched, empty when none was configured.
	SourceURL string `json:"source_url"`

	// StatusCode is the HTTP status returned by the source, zero if none.
	StatusCode int `json:"status_code"`

	// LatencyMs is the fetch latency in milliseconds.
	LatencyMs int64 `json:"latency_ms"`

	// Bytes is the size of the stored ping list, zero when nothing was written.
	Bytes int `json:"bytes"`

	// StartedAt is when the run began.
	StartedAt time.Time `json:"started_at"`

	// Error contains the cause for non-updated outcomes, nil otherwise.
	Error *string `json:"error"`
}

// Summary aggregates all runs seen by a [Tracker].
type Summary struct {
	Latest      *Report          `json:"latest"`
	TotalRuns   int64            `json:"total_runs"`
	Outcomes    map[string]int64 `json:"outcomes"`
	SuccessRate float64          `json:"success_rate"`
	LastSuccess *time.Time       `json:"last_success"`
	LastError   string           `json:"last_error"`
}
