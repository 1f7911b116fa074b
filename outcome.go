package pingsync

import (
	"errors"
	"time"
)

// Outcome describes what a synchronization run did.
//
// Outcome is a string type so it logs and serializes readably. Only
// [OutcomeUpdated] writes the ping list; every other outcome leaves the
// previously stored value untouched.
type Outcome string

const (
	// OutcomeUpdated indicates the ping list was fetched, expanded, and stored.
	OutcomeUpdated Outcome = "updated"

	// OutcomeNoSource indicates no source URL is configured (absent or blank).
	OutcomeNoSource Outcome = "no_source"

	// OutcomeFetchFailed indicates a transport error or a non-2xx response.
	OutcomeFetchFailed Outcome = "fetch_failed"

	// OutcomeEmptyBody indicates the source responded successfully with no body.
	OutcomeEmptyBody Outcome = "empty_body"

	// OutcomeFailed indicates a settings store or site identity error.
	OutcomeFailed Outcome = "failed"
)

// String returns the string representation of the outcome.
func (o Outcome) String() string {
	return string(o)
}

var (
	// ErrNoSource is the cause recorded for [OutcomeNoSource].
	ErrNoSource = errors.New("no ping list source url configured")

	// ErrEmptyBody is the cause recorded for [OutcomeEmptyBody].
	ErrEmptyBody = errors.New("ping list source returned an empty body")
)

// Result holds the outcome of one synchronization run.
//
// Result is returned by [Synchronizer.Synchronize], logged, counted in
// metrics, and passed to every callback registered with
// [WithResultCallback].
type Result struct {
	// RunID uniquely identifies the run. Coalesced concurrent callers
	// receive the same RunID.
	RunID string

	// Outcome is what the run did.
	Outcome Outcome

	// SourceURL is the URL read from the settings store.
	SourceURL string

	// StatusCode is the HTTP status code returned by the source.
	// Zero if no request was made or it failed before a response.
	StatusCode int

	// Latency is the time taken by the fetch.
	Latency time.Duration

	// Bytes is the size of the stored ping list. Zero unless updated.
	Bytes int

	// StartedAt is when the run began.
	StartedAt time.Time

	// Err is the cause for every outcome other than [OutcomeUpdated].
	Err error
}

// Updated reports whether the run wrote a new ping list.
func (r Result) Updated() bool {
	return r.Outcome == OutcomeUpdated
}
