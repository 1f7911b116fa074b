// Package status tracks synchronization runs and fans them out to
// subscribers.
//
// This package is internal to pingsync. It keeps the most recent [Report],
// per-outcome counters, and a publish-subscribe channel set used by the admin
// API's event stream. Subscribers receive reports via buffered channels with
// non-blocking sends; slow subscribers miss reports rather than block a sync.
package status
