package status

import (
	"sync"
	"testing"
	"time"
)

func strPtr(s string) *string { return &s }

func TestNewMemoryTracker(t *testing.T) {
	tracker := NewMemoryTracker()

	s := tracker.Summary()
	if s.TotalRuns != 0 {
		t.Errorf("TotalRuns = %d, want 0", s.TotalRuns)
	}
	if s.Latest != nil {
		t.Errorf("Latest = %+v, want nil", s.Latest)
	}
	if s.SuccessRate != 0 {
		t.Errorf("SuccessRate = %v, want 0", s.SuccessRate)
	}
}

func TestMemoryTracker_RecordCounts(t *testing.T) {
	tracker := NewMemoryTracker()
	now := time.Now()

	tracker.Record(Report{RunID: "1", Outcome: OutcomeUpdated, StartedAt: now})
	tracker.Record(Report{RunID: "2", Outcome: OutcomeFetchFailed, Error: strPtr("request failed")})
	tracker.Record(Report{RunID: "3", Outcome: OutcomeEmptyBody, Error: strPtr("empty body")})
	tracker.Record(Report{RunID: "4", Outcome: OutcomeUpdated, StartedAt: now.Add(time.Minute)})

	s := tracker.Summary()
	if s.TotalRuns != 4 {
		t.Errorf("TotalRuns = %d, want 4", s.TotalRuns)
	}
	if s.Outcomes[OutcomeUpdated] != 2 {
		t.Errorf("Outcomes[updated] = %d, want 2", s.Outcomes[OutcomeUpdated])
	}
	if s.Outcomes[OutcomeFetchFailed] != 1 {
		t.Errorf("Outcomes[fetch_failed] = %d, want 1", s.Outcomes[OutcomeFetchFailed])
	}
	if s.SuccessRate != 50 {
		t.Errorf("SuccessRate = %v, want 50", s.SuccessRate)
	}
	if s.Latest == nil || s.Latest.RunID != "4" {
		t.Errorf("Latest = %+v, want run 4", s.Latest)
	}
	if s.LastSuccess == nil || !s.LastSuccess.Equal(now.Add(time.Minute)) {
		t.Errorf("LastSuccess = %v, want %v", s.LastSuccess, now.Add(time.Minute))
	}
	if s.LastError != "empty body" {
		t.Errorf("LastError = %q, want %q", s.LastError, "empty body")
	}
}

func TestMemoryTracker_SummaryIsCopy(t *testing.T) {
	tracker := NewMemoryTracker()
	tracker.Record(Report{RunID: "1", Outcome: OutcomeUpdated})

	s := tracker.Summary()
	s.Outcomes[OutcomeUpdated] = 99
	s.Latest.RunID = "mutated"

	again := tracker.Summary()
	if again.Outcomes[OutcomeUpdated] != 1 {
		t.Errorf("mutation leaked into tracker counters: %d", again.Outcomes[OutcomeUpdated])
	}
	if again.Latest.RunID != "1" {
		t.Errorf("mutation leaked into tracker latest: %q", again.Latest.RunID)
	}
}

func TestMemoryTracker_Subscribe(t *testing.T) {
	tracker := NewMemoryTracker()

	ch := tracker.Subscribe()
	go tracker.Record(Report{RunID: "abc", Outcome: OutcomeUpdated})

	select {
	case r := <-ch:
		if r.RunID != "abc" {
			t.Errorf("received RunID = %q, want %q", r.RunID, "abc")
		}
	case <-time.After(time.Second):
		t.Error("Subscribe() channel did not receive report")
	}
}

func TestMemoryTracker_Unsubscribe(t *testing.T) {
	tracker := NewMemoryTracker()

	ch := tracker.Subscribe()
	tracker.Unsubscribe(ch)
	tracker.Unsubscribe(ch) // second call is a no-op

	select {
	case _, ok := <-ch:
		if ok {
			t.Error("Unsubscribe() channel should be closed")
		}
	case <-time.After(100 * time.Millisecond):
		t.Error("Unsubscribe() channel should be closed immediately")
	}
}

func TestMemoryTracker_SlowSubscriberDoesNotBlock(t *testing.T) {
	tracker := NewMemoryTracker()
	_ = tracker.Subscribe() // never read

	done := make(chan struct{})
	go func() {
		for i := 0; i < subscriberBuffer*4; i++ {
			tracker.Record(Report{Outcome: OutcomeUpdated})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Error("Record() blocked on slow subscriber")
	}
}

func TestMemoryTracker_ConcurrentAccess(t *testing.T) {
	tracker := NewMemoryTracker()
	var wg sync.WaitGroup

	for i := 0; i < 10; i++ {
		wg.Add(3)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				tracker.Record(Report{Outcome: OutcomeUpdated})
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_ = tracker.Summary()
			}
		}()
		go func() {
			defer wg.Done()
			ch := tracker.Subscribe()
			time.Sleep(5 * time.Millisecond)
			tracker.Unsubscribe(ch)
		}()
	}

	wg.Wait()

	if got := tracker.Summary().TotalRuns; got != 500 {
		t.Errorf("TotalRuns = %d, want 500", got)
	}
}
