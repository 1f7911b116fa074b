// Package pingsync keeps a site's ping list in step with a remotely
// maintained list of ping services.
//
// An operator stores a source URL in the site's settings. Each
// synchronization fetches that URL, replaces the placeholder tokens
// "#WEBSITE_URL#" and "#WEBSITE_NAME#" with the site's identity, and writes
// the result to the option the host platform reads its ping list from
// ("ping_sites" by default).
//
// # Quick Start
//
//	st := pingsync.NewMemoryStore()
//	s, _ := pingsync.New(
//	    pingsync.WithStore(st),
//	    pingsync.WithSite("https://example.org", "My Site"),
//	)
//	defer s.Close()
//
//	s.SaveSource(ctx, "https://lists.example.net/ping.txt")
//	res := s.Synchronize(ctx)
//	if !res.Updated() {
//	    slog.Warn("ping list unchanged", "outcome", res.Outcome, "error", res.Err)
//	}
//
// # Outcomes
//
// The stored ping list is only replaced by a successful, non-empty fetch.
// Every run produces a [Result] whose [Outcome] is one of:
//
//   - [OutcomeUpdated]: the list was fetched, expanded, and written
//   - [OutcomeNoSource]: no source URL is configured
//   - [OutcomeFetchFailed]: transport error or non-2xx response
//   - [OutcomeEmptyBody]: the source returned nothing
//   - [OutcomeFailed]: the settings store or site provider failed
//
// # Running continuously
//
// [Synchronizer.Start] runs a synchronization immediately and then on the
// interval set with [WithInterval], optionally serving a token-protected
// admin API (settings, manual sync, status, Server-Sent Events, and
// Prometheus metrics) on the port set with [WithAdminServer].
//
// # Architecture
//
// pingsync consists of several internal packages (under internal/):
//
//   - store: settings stores (in-memory, SQLite and Redis)
//   - fetcher: HTTP client with timeouts and body limits
//   - scheduler: periodic execution with panic recovery
//   - status: latest-run tracking and event fan-out
//   - metrics: Prometheus collectors
//   - server: admin HTTP API
package pingsync
