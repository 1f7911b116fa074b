// Package scheduler runs a job immediately and then on a fixed interval.
//
// This package is internal to pingsync and provides the periodic trigger for
// ping-list synchronization. [Scheduler] runs its job on a single goroutine,
// so runs never overlap; a job that outlasts the interval delays the next
// tick rather than running concurrently with itself.
package scheduler
