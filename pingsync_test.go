package pingsync

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jpalmerr/pingsync/internal/fetcher"
	"github.com/jpalmerr/pingsync/internal/store"
)

const testSource = "https://lists.example.net/ping.txt"

// brokenStore fails reads and/or writes on demand.
type brokenStore struct {
	*store.MemoryStore
	getErr error
	setErr error
}

func (b *brokenStore) Get(ctx context.Context, key string) (string, error) {
	if b.getErr != nil {
		return "", b.getErr
	}
	return b.MemoryStore.Get(ctx, key)
}

func (b *brokenStore) Set(ctx context.Context, key, value string) error {
	if b.setErr != nil {
		return b.setErr
	}
	return b.MemoryStore.Set(ctx, key, value)
}

func bodyFetcher(body string) Fetcher {
	return FetcherFunc(func(ctx context.Context, url string) (FetchResponse, error) {
		return FetchResponse{StatusCode: http.StatusOK, Body: []byte(body), Latency: time.Millisecond}, nil
	})
}

func newTestSynchronizer(t *testing.T, st SettingsStore, f Fetcher, opts ...Option) *Synchronizer {
	t.Helper()
	base := []Option{
		WithStore(st),
		WithFetcher(f),
		WithSite("https://example.org", "My Site!"),
	}
	s, err := New(append(base, opts...)...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return s
}

func seed(t *testing.T, st SettingsStore, key, value string) {
	t.Helper()
	if err := st.Set(context.Background(), key, value); err != nil {
		t.Fatalf("Set(%q) error = %v", key, err)
	}
}

func pingList(t *testing.T, st SettingsStore) (string, bool) {
	t.Helper()
	v, err := st.Get(context.Background(), DefaultPingListKey)
	if errors.Is(err, ErrSettingNotFound) {
		return "", false
	}
	if err != nil {
		t.Fatalf("Get(ping list) error = %v", err)
	}
	return v, true
}

func TestSynchronize_ExpandsTokens(t *testing.T) {
	st := store.NewMemoryStore()
	seed(t, st, DefaultPluginID+"-url", testSource)

	s := newTestSynchronizer(t, st, bodyFetcher("ping #WEBSITE_URL# named #WEBSITE_NAME#"))
	res := s.Synchronize(context.Background())

	if res.Outcome != OutcomeUpdated {
		t.Fatalf("Outcome = %v, want %v (err %v)", res.Outcome, OutcomeUpdated, res.Err)
	}
	want := "ping https://example.org named my-site"
	got, ok := pingList(t, st)
	if !ok || got != want {
		t.Errorf("ping list = %q, want %q", got, want)
	}
	if res.Bytes != len(want) {
		t.Errorf("Bytes = %d, want %d", res.Bytes, len(want))
	}
	if res.SourceURL != testSource {
		t.Errorf("SourceURL = %q, want %q", res.SourceURL, testSource)
	}
	if res.RunID == "" {
		t.Error("RunID should be set")
	}
	if res.Err != nil {
		t.Errorf("Err = %v, want nil", res.Err)
	}
}

func TestSynchronize_ReplacesEveryOccurrence(t *testing.T) {
	st := store.NewMemoryStore()
	seed(t, st, DefaultPluginID+"-url", testSource)

	body := "#WEBSITE_URL#\n#WEBSITE_URL#/#WEBSITE_NAME#\n#WEBSITE_NAME#"
	s := newTestSynchronizer(t, st, bodyFetcher(body))
	s.Synchronize(context.Background())

	want := "https://example.org\nhttps://example.org/my-site\nmy-site"
	if got, _ := pingList(t, st); got != want {
		t.Errorf("ping list = %q, want %q", got, want)
	}
}

func TestSynchronize_NameSlugifiesToEmpty(t *testing.T) {
	st := store.NewMemoryStore()
	seed(t, st, DefaultPluginID+"-url", testSource)

	s, err := New(
		WithStore(st),
		WithFetcher(bodyFetcher("a#WEBSITE_NAME#b")),
		WithSite("https://example.org", "!!!"),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	s.Synchronize(context.Background())

	if got, _ := pingList(t, st); got != "ab" {
		t.Errorf("ping list = %q, want %q", got, "ab")
	}
}

func TestSynchronize_NoWrite(t *testing.T) {
	const previous = "previous list"

	tests := []struct {
		name        string
		source      *string
		fetcher     Fetcher
		wantOutcome Outcome
		wantErr     error
	}{
		{
			name:        "source absent",
			source:      nil,
			fetcher:     bodyFetcher("new"),
			wantOutcome: OutcomeNoSource,
			wantErr:     ErrNoSource,
		},
		{
			name:        "source empty",
			source:      strPtr(""),
			fetcher:     bodyFetcher("new"),
			wantOutcome: OutcomeNoSource,
			wantErr:     ErrNoSource,
		},
		{
			name:        "source whitespace",
			source:      strPtr("  \t "),
			fetcher:     bodyFetcher("new"),
			wantOutcome: OutcomeNoSource,
			wantErr:     ErrNoSource,
		},
		{
			name:   "fetch error",
			source: strPtr(testSource),
			fetcher: FetcherFunc(func(ctx context.Context, url string) (FetchResponse, error) {
				return FetchResponse{}, errors.New("connection refused")
			}),
			wantOutcome: OutcomeFetchFailed,
		},
		{
			name:        "empty body",
			source:      strPtr(testSource),
			fetcher:     bodyFetcher(""),
			wantOutcome: OutcomeEmptyBody,
			wantErr:     ErrEmptyBody,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := store.NewMemoryStore()
			seed(t, st, DefaultPingListKey, previous)
			if tt.source != nil {
				seed(t, st, DefaultPluginID+"-url", *tt.source)
			}

			s := newTestSynchronizer(t, st, tt.fetcher)
			res := s.Synchronize(context.Background())

			if res.Outcome != tt.wantOutcome {
				t.Errorf("Outcome = %v, want %v", res.Outcome, tt.wantOutcome)
			}
			if res.Err == nil {
				t.Error("Err should be set")
			}
			if tt.wantErr != nil && !errors.Is(res.Err, tt.wantErr) {
				t.Errorf("Err = %v, want %v", res.Err, tt.wantErr)
			}
			if got, _ := pingList(t, st); got != previous {
				t.Errorf("ping list = %q, want unchanged %q", got, previous)
			}
		})
	}
}

func TestSynchronize_NoSourceDoesNotFetch(t *testing.T) {
	var calls atomic.Int32
	f := FetcherFunc(func(ctx context.Context, url string) (FetchResponse, error) {
		calls.Add(1)
		return FetchResponse{Body: []byte("x")}, nil
	})

	s := newTestSynchronizer(t, store.NewMemoryStore(), f)
	s.Synchronize(context.Background())

	if calls.Load() != 0 {
		t.Errorf("fetch calls = %d, want 0", calls.Load())
	}
}

func TestSynchronize_Non2xxIsFetchFailure(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte("#WEBSITE_URL# not found"))
	}))
	defer ts.Close()

	st := store.NewMemoryStore()
	seed(t, st, DefaultPluginID+"-url", ts.URL)

	s, err := New(WithStore(st), WithSite("https://example.org", "Site"))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer s.Close()

	res := s.Synchronize(context.Background())
	if res.Outcome != OutcomeFetchFailed {
		t.Fatalf("Outcome = %v, want %v", res.Outcome, OutcomeFetchFailed)
	}
	if res.StatusCode != http.StatusNotFound {
		t.Errorf("StatusCode = %d, want %d", res.StatusCode, http.StatusNotFound)
	}
	var se *fetcher.StatusError
	if !errors.As(res.Err, &se) {
		t.Errorf("Err = %v, want *fetcher.StatusError", res.Err)
	}
	if _, ok := pingList(t, st); ok {
		t.Error("ping list should not be written")
	}
}

func TestSynchronize_OversizedBodyKeepsPreviousList(t *testing.T) {
	// last line falls past the size limit and would be lost to truncation
	body := strings.Repeat("http://rpc.example.com/ping\n", (fetcher.DefaultMaxBodySize/28)+1) +
		"http://last.example/#WEBSITE_NAME#\n"
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(body))
	}))
	defer ts.Close()

	st := store.NewMemoryStore()
	seed(t, st, DefaultPluginID+"-url", ts.URL)
	seed(t, st, DefaultPingListKey, "previous-valid-list")

	s, err := New(WithStore(st), WithSite("https://example.org", "Site"))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer s.Close()

	res := s.Synchronize(context.Background())
	if res.Outcome != OutcomeFetchFailed {
		t.Fatalf("Outcome = %v, want %v", res.Outcome, OutcomeFetchFailed)
	}
	if !errors.Is(res.Err, fetcher.ErrBodyTooLarge) {
		t.Errorf("Err = %v, want fetcher.ErrBodyTooLarge", res.Err)
	}
	if got, _ := pingList(t, st); got != "previous-valid-list" {
		t.Errorf("ping list = %d bytes, want previous value kept", len(got))
	}
}

func TestSynchronize_DefaultFetcherEndToEnd(t *testing.T) {
	var gotUA string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		_, _ = w.Write([]byte("http://rpc.example.com/?site=#WEBSITE_URL#"))
	}))
	defer ts.Close()

	st := store.NewMemoryStore()
	seed(t, st, DefaultPluginID+"-url", ts.URL)

	s, err := New(
		WithStore(st),
		WithSite("https://example.org", "Site"),
		WithUserAgent("pingsync-test"),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer s.Close()

	res := s.Synchronize(context.Background())
	if !res.Updated() {
		t.Fatalf("Outcome = %v, err = %v", res.Outcome, res.Err)
	}
	if res.StatusCode != http.StatusOK {
		t.Errorf("StatusCode = %d, want 200", res.StatusCode)
	}
	if gotUA != "pingsync-test" {
		t.Errorf("User-Agent = %q, want %q", gotUA, "pingsync-test")
	}
	if got, _ := pingList(t, st); got != "http://rpc.example.com/?site=https://example.org" {
		t.Errorf("ping list = %q", got)
	}
}

func TestSynchronize_StoreErrors(t *testing.T) {
	t.Run("read", func(t *testing.T) {
		st := &brokenStore{MemoryStore: store.NewMemoryStore(), getErr: errors.New("disk gone")}
		s := newTestSynchronizer(t, st, bodyFetcher("x"))

		res := s.Synchronize(context.Background())
		if res.Outcome != OutcomeFailed {
			t.Errorf("Outcome = %v, want %v", res.Outcome, OutcomeFailed)
		}
	})

	t.Run("write", func(t *testing.T) {
		st := &brokenStore{MemoryStore: store.NewMemoryStore()}
		seed(t, st.MemoryStore, DefaultPluginID+"-url", testSource)
		st.setErr = errors.New("read-only")
		s := newTestSynchronizer(t, st, bodyFetcher("x"))

		res := s.Synchronize(context.Background())
		if res.Outcome != OutcomeFailed {
			t.Errorf("Outcome = %v, want %v", res.Outcome, OutcomeFailed)
		}
		if res.Bytes != 0 {
			t.Errorf("Bytes = %d, want 0", res.Bytes)
		}
	})
}

func TestSynchronize_SiteProviderError(t *testing.T) {
	st := store.NewMemoryStore()
	seed(t, st, DefaultPluginID+"-url", testSource)
	seed(t, st, DefaultPingListKey, "previous")

	s, err := New(
		WithStore(st),
		WithFetcher(bodyFetcher("x")),
		WithSiteProvider(StoreSite{}),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	res := s.Synchronize(context.Background())
	if res.Outcome != OutcomeFailed {
		t.Errorf("Outcome = %v, want %v", res.Outcome, OutcomeFailed)
	}
	if got, _ := pingList(t, st); got != "previous" {
		t.Errorf("ping list = %q, want unchanged", got)
	}
}

func TestSynchronize_LaterRunWins(t *testing.T) {
	st := store.NewMemoryStore()
	seed(t, st, DefaultPluginID+"-url", testSource)

	var n atomic.Int32
	f := FetcherFunc(func(ctx context.Context, url string) (FetchResponse, error) {
		if n.Add(1) == 1 {
			return FetchResponse{Body: []byte("first")}, nil
		}
		return FetchResponse{Body: []byte("second")}, nil
	})

	s := newTestSynchronizer(t, st, f)
	s.Synchronize(context.Background())
	s.Synchronize(context.Background())

	if got, _ := pingList(t, st); got != "second" {
		t.Errorf("ping list = %q, want %q", got, "second")
	}
}

func TestSynchronize_ConcurrentCallsCoalesce(t *testing.T) {
	st := store.NewMemoryStore()
	seed(t, st, DefaultPluginID+"-url", testSource)

	var calls atomic.Int32
	entered := make(chan struct{})
	release := make(chan struct{})
	f := FetcherFunc(func(ctx context.Context, url string) (FetchResponse, error) {
		if calls.Add(1) == 1 {
			close(entered)
		}
		<-release
		return FetchResponse{Body: []byte("list")}, nil
	})

	s := newTestSynchronizer(t, st, f)

	const callers = 5
	results := make([]Result, callers)
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		results[0] = s.Synchronize(context.Background())
	}()
	<-entered

	for i := 1; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = s.Synchronize(context.Background())
		}(i)
	}

	// give the waiting callers time to join the in-flight run
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if calls.Load() != 1 {
		t.Errorf("fetch calls = %d, want 1", calls.Load())
	}
	for i, r := range results {
		if r.RunID != results[0].RunID {
			t.Errorf("results[%d].RunID = %q, want %q", i, r.RunID, results[0].RunID)
		}
		if !r.Updated() {
			t.Errorf("results[%d].Outcome = %v, want updated", i, r.Outcome)
		}
	}
}

func TestSynchronize_CancelledCallerDoesNotAbortSharedRun(t *testing.T) {
	st := store.NewMemoryStore()
	seed(t, st, DefaultPluginID+"-url", testSource)

	entered := make(chan struct{})
	release := make(chan struct{})
	var fetchErr atomic.Value
	f := FetcherFunc(func(ctx context.Context, url string) (FetchResponse, error) {
		close(entered)
		<-release
		if err := ctx.Err(); err != nil {
			fetchErr.Store(err)
			return FetchResponse{}, err
		}
		return FetchResponse{StatusCode: http.StatusOK, Body: []byte("list")}, nil
	})

	s := newTestSynchronizer(t, st, f)

	ctx, cancel := context.WithCancel(context.Background())
	first := make(chan Result, 1)
	go func() { first <- s.Synchronize(ctx) }()
	<-entered

	second := make(chan Result, 1)
	go func() { second <- s.Synchronize(context.Background()) }()

	// give the second caller time to join the in-flight run
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case r := <-first:
		if r.Outcome != OutcomeFailed || !errors.Is(r.Err, context.Canceled) {
			t.Errorf("cancelled caller = (%v, %v), want (failed, context.Canceled)", r.Outcome, r.Err)
		}
	case <-time.After(time.Second):
		t.Fatal("cancelled caller did not return")
	}

	close(release)
	select {
	case r := <-second:
		if !r.Updated() {
			t.Errorf("joined caller Outcome = %v, err = %v, want updated", r.Outcome, r.Err)
		}
	case <-time.After(time.Second):
		t.Fatal("joined caller did not return")
	}

	if err := fetchErr.Load(); err != nil {
		t.Errorf("shared fetch saw cancellation: %v", err)
	}
	if got, _ := pingList(t, st); got != "list" {
		t.Errorf("ping list = %q, want %q", got, "list")
	}
}

func TestSynchronize_RecordsStatus(t *testing.T) {
	st := store.NewMemoryStore()
	s := newTestSynchronizer(t, st, bodyFetcher("x"))

	s.Synchronize(context.Background())
	seed(t, st, DefaultPluginID+"-url", testSource)
	s.Synchronize(context.Background())

	sum := s.tracker.Summary()
	if sum.TotalRuns != 2 {
		t.Errorf("TotalRuns = %d, want 2", sum.TotalRuns)
	}
	if sum.Outcomes["no_source"] != 1 || sum.Outcomes["updated"] != 1 {
		t.Errorf("Outcomes = %v", sum.Outcomes)
	}
	if sum.Latest == nil || sum.Latest.Outcome != "updated" {
		t.Errorf("Latest = %+v, want updated", sum.Latest)
	}
}

func TestSaveSource(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"plain", testSource, testSource},
		{"trimmed", "  " + testSource + "\n", testSource},
		{"tags stripped", "<b>" + testSource + "</b>", testSource},
		{"empty uses default", "", "https://default.example.com/list.txt"},
		{"blank uses default", " \t ", "https://default.example.com/list.txt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := store.NewMemoryStore()
			s := newTestSynchronizer(t, st, bodyFetcher("x"),
				WithDefaultSourceURL("https://default.example.com/list.txt"),
			)

			got, err := s.SaveSource(context.Background(), tt.raw)
			if err != nil {
				t.Fatalf("SaveSource() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("SaveSource() = %q, want %q", got, tt.want)
			}
			stored, err := s.SourceURL(context.Background())
			if err != nil {
				t.Fatalf("SourceURL() error = %v", err)
			}
			if stored != tt.want {
				t.Errorf("stored = %q, want %q", stored, tt.want)
			}
		})
	}
}

func TestSaveSource_StoreError(t *testing.T) {
	st := &brokenStore{MemoryStore: store.NewMemoryStore(), setErr: errors.New("read-only")}
	s := newTestSynchronizer(t, st, bodyFetcher("x"))

	if _, err := s.SaveSource(context.Background(), testSource); err == nil {
		t.Error("SaveSource() expected error, got nil")
	}
}

func TestPingList_NotFound(t *testing.T) {
	s := newTestSynchronizer(t, store.NewMemoryStore(), bodyFetcher("x"))

	_, err := s.PingList(context.Background())
	if !errors.Is(err, ErrSettingNotFound) {
		t.Errorf("PingList() error = %v, want ErrSettingNotFound", err)
	}
}

func strPtr(s string) *string { return &s }
