package status

import "sync"

const subscriberBuffer = 32

// Tracker defines the interface for recording and observing sync reports.
//
// Tracker implementations must be safe for concurrent access.
type Tracker interface {
	// Record stores a report, updates counters, and notifies subscribers.
	Record(report Report)

	// Summary returns a snapshot of counters and the latest report.
	Summary() Summary

	// Subscribe returns a channel that receives every recorded report.
	// Caller must call Unsubscribe when done to prevent resource leaks.
	Subscribe() <-chan Report

	// Unsubscribe removes a subscription and closes the channel.
	// Safe to call with a channel that was already unsubscribed.
	Unsubscribe(ch <-chan Report)
}

// MemoryTracker is an in-memory implementation of [Tracker].
type MemoryTracker struct {
	mu          sync.RWMutex
	latest      *Report
	total       int64
	outcomes    map[string]int64
	lastSuccess *Report
	lastError   string

	subMu       sync.RWMutex
	subscribers map[chan Report]struct{}
}

// NewMemoryTracker creates a new in-memory [Tracker].
func NewMemoryTracker() *MemoryTracker {
	return &MemoryTracker{
		outcomes:    make(map[string]int64),
		subscribers: make(map[chan Report]struct{}),
	}
}

// Record stores report as the latest run and notifies all subscribers.
func (m *MemoryTracker) Record(report Report) {
	m.mu.Lock()
	r := report
	m.latest = &r
	m.total++
	m.outcomes[report.Outcome]++
	if report.Outcome == OutcomeUpdated {
		m.lastSuccess = &r
	} else if report.Error != nil {
		m.lastError = *report.Error
	}
	m.mu.Unlock()

	m.notifySubscribers(report)
}

// Summary returns a snapshot of the tracker's state.
//
// The returned value shares no memory with the tracker.
func (m *MemoryTracker) Summary() Summary {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s := Summary{
		TotalRuns: m.total,
		Outcomes:  make(map[string]int64, len(m.outcomes)),
		LastError: m.lastError,
	}
	for k, v := range m.outcomes {
		s.Outcomes[k] = v
	}
	if m.latest != nil {
		latest := *m.latest
		s.Latest = &latest
	}
	if m.lastSuccess != nil {
		at := m.lastSuccess.StartedAt
		s.LastSuccess = &at
	}
	if m.total > 0 {
		s.SuccessRate = float64(m.outcomes[OutcomeUpdated]) / float64(m.total) * 100
	}
	return s
}

// Subscribe creates a new subscription.
//
// The returned channel is buffered. If the buffer fills, new reports are
// dropped for this subscriber.
func (m *MemoryTracker) Subscribe() <-chan Report {
	ch := make(chan Report, subscriberBuffer)

	m.subMu.Lock()
	m.subscribers[ch] = struct{}{}
	m.subMu.Unlock()

	return ch
}

// Unsubscribe removes a subscription and closes its channel.
func (m *MemoryTracker) Unsubscribe(ch <-chan Report) {
	m.subMu.Lock()
	defer m.subMu.Unlock()

	for subCh := range m.subscribers {
		if subCh == ch {
			delete(m.subscribers, subCh)
			close(subCh)
			break
		}
	}
}

func (m *MemoryTracker) notifySubscribers(report Report) {
	m.subMu.RLock()
	defer m.subMu.RUnlock()

	for ch := range m.subscribers {
		select {
		case ch <- report:
		default:
			// subscriber is slow, drop the report
		}
	}
}
