package pingsync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/jpalmerr/pingsync/internal/metrics"
	"github.com/jpalmerr/pingsync/internal/scheduler"
	"github.com/jpalmerr/pingsync/internal/server"
	"github.com/jpalmerr/pingsync/internal/status"
	"github.com/jpalmerr/pingsync/internal/store"
)

const (
	// DefaultPluginID is the identifier the source URL key is derived from.
	DefaultPluginID = "wp-ping-sites-updater"

	// DefaultPingListKey is the key the host platform reads its ping list from.
	DefaultPingListKey = "ping_sites"

	defaultInterval = 12 * time.Hour
)

// ErrSettingNotFound is returned by a [SettingsStore] for a key that was
// never set.
var ErrSettingNotFound = store.ErrNotFound

// SettingsStore is the key/value store holding the host's options.
//
// Get must return an error wrapping [ErrSettingNotFound] for absent keys.
// Implementations must be safe for concurrent use.
type SettingsStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
}

// NewMemoryStore returns an empty in-memory [SettingsStore].
func NewMemoryStore() SettingsStore {
	return store.NewMemoryStore()
}

// Synchronizer keeps the host's ping list in step with a remote source.
//
// A Synchronizer is created with [New] and is safe for concurrent use.
// Each call to [Synchronizer.Synchronize] reads the configured source URL,
// fetches it, substitutes the site tokens, and stores the result. Runs can
// be driven manually or periodically with [Synchronizer.Start].
//
//	s, err := pingsync.New(
//	    pingsync.WithStore(st),
//	    pingsync.WithSite("https://example.org", "My Site"),
//	)
//	if err != nil {
//	    slog.Error("failed to create synchronizer", "error", err)
//	    os.Exit(1)
//	}
//	defer s.Close()
//
//	res := s.Synchronize(ctx)
type Synchronizer struct {
	store         SettingsStore
	fetcher       Fetcher
	ownFetcher    *httpFetcher
	site          SiteProvider
	sourceKey     string
	pingListKey   string
	defaultSource string
	interval      time.Duration
	adminPort     int
	adminToken    string
	logger        *slog.Logger
	callbacks     []func(Result)

	metrics *metrics.Metrics
	tracker *status.MemoryTracker
	group   singleflight.Group
}

// New creates a [Synchronizer] with the given options.
//
// A site identity must be configured via [WithSite] or [WithSiteProvider].
// Other options have defaults:
//   - Store: in-memory
//   - Plugin ID: "wp-ping-sites-updater" (source key "wp-ping-sites-updater-url")
//   - Ping list key: "ping_sites"
//   - Fetch timeout: 30 seconds
//   - Interval: 12 hours
//
// Returns an error if no site is configured, if the source and ping list
// keys collide, or if any option is invalid.
func New(opts ...Option) (*Synchronizer, error) {
	cfg := &syncConfig{
		pluginID:     DefaultPluginID,
		pingListKey:  DefaultPingListKey,
		fetchTimeout: defaultFetchTimeout,
		interval:     defaultInterval,
	}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	if cfg.site == nil {
		return nil, errors.New("a site identity is required")
	}

	sourceKey := cfg.pluginID + "-url"
	if sourceKey == cfg.pingListKey {
		return nil, fmt.Errorf("ping list key %q collides with the source url key", cfg.pingListKey)
	}

	logger := cfg.logger
	if logger == nil {
		logger = slog.Default()
	}

	st := cfg.store
	if st == nil {
		st = store.NewMemoryStore()
	}

	s := &Synchronizer{
		store:         st,
		fetcher:       cfg.fetcher,
		site:          cfg.site,
		sourceKey:     sourceKey,
		pingListKey:   cfg.pingListKey,
		defaultSource: cfg.defaultSource,
		interval:      cfg.interval,
		adminPort:     cfg.adminPort,
		adminToken:    cfg.adminToken,
		logger:        logger,
		callbacks:     cfg.resultCallbacks,
		metrics:       metrics.New(),
		tracker:       status.NewMemoryTracker(),
	}

	if s.fetcher == nil {
		s.ownFetcher = newHTTPFetcher(cfg.fetchTimeout, cfg.userAgent, cfg.fetchHeaders)
		s.fetcher = s.ownFetcher
	}

	return s, nil
}

// Synchronize runs one synchronization and returns its result.
//
// Synchronize blocks until the fetch completes or times out. The ping list
// is written only when the source is configured, the fetch succeeds, and the
// body is non-empty; every other outcome leaves the stored value untouched.
//
// Concurrent calls are coalesced: while a run is in flight, other callers
// wait for it and receive the same [Result]. The shared run keeps the values
// of the starting caller's context but not its cancellation, so it is bounded
// by the fetch timeout rather than by any one caller. A caller whose context
// ends first stops waiting and gets an [OutcomeFailed] result carrying
// ctx.Err(); the shared run still completes and is recorded.
func (s *Synchronizer) Synchronize(ctx context.Context) Result {
	ch := s.group.DoChan("sync", func() (any, error) {
		return s.synchronize(context.WithoutCancel(ctx)), nil
	})
	select {
	case r := <-ch:
		return r.Val.(Result)
	case <-ctx.Done():
		return Result{
			Outcome:   OutcomeFailed,
			StartedAt: time.Now(),
			Err:       ctx.Err(),
		}
	}
}

func (s *Synchronizer) synchronize(ctx context.Context) Result {
	res := Result{
		RunID:     uuid.NewString(),
		StartedAt: time.Now(),
	}
	fetched := false

	finish := func(outcome Outcome, err error) Result {
		res.Outcome = outcome
		res.Err = err
		s.record(res, fetched)
		return res
	}

	source, err := s.store.Get(ctx, s.sourceKey)
	if errors.Is(err, ErrSettingNotFound) {
		return finish(OutcomeNoSource, ErrNoSource)
	}
	if err != nil {
		return finish(OutcomeFailed, fmt.Errorf("read source url: %w", err))
	}
	res.SourceURL = source
	if strings.TrimSpace(source) == "" {
		return finish(OutcomeNoSource, ErrNoSource)
	}

	resp, err := s.fetcher.Fetch(ctx, source)
	fetched = true
	res.StatusCode = resp.StatusCode
	res.Latency = resp.Latency
	if err != nil {
		return finish(OutcomeFetchFailed, fmt.Errorf("fetch %s: %w", source, err))
	}
	if len(resp.Body) == 0 {
		return finish(OutcomeEmptyBody, ErrEmptyBody)
	}

	site, err := s.site.Site(ctx)
	if err != nil {
		return finish(OutcomeFailed, fmt.Errorf("resolve site: %w", err))
	}

	list := ExpandTokens(string(resp.Body), site)
	if err := s.store.Set(ctx, s.pingListKey, list); err != nil {
		return finish(OutcomeFailed, fmt.Errorf("write %s: %w", s.pingListKey, err))
	}

	res.Bytes = len(list)
	return finish(OutcomeUpdated, nil)
}

// record publishes a finished run to the log, metrics, tracker, and callbacks.
func (s *Synchronizer) record(res Result, fetched bool) {
	logAttrs := []any{
		"run_id", res.RunID,
		"outcome", res.Outcome,
		"source_url", res.SourceURL,
		"status_code", res.StatusCode,
		"latency_ms", res.Latency.Milliseconds(),
	}
	if res.Updated() {
		s.logger.Info("ping list updated", append(logAttrs, "bytes", res.Bytes, "key", s.pingListKey)...)
	} else {
		s.logger.Warn("ping list not updated", append(logAttrs, "error", res.Err.Error())...)
	}

	s.metrics.ObserveSync(res.Outcome.String(), fetched, res.Latency, res.Bytes, res.StartedAt)
	s.tracker.Record(toReport(res))

	for _, cb := range s.callbacks {
		invokeCallbackSafe(cb, res, s.logger)
	}
}

// invokeCallbackSafe calls a result callback with panic recovery.
// Panics are logged but do not propagate.
func invokeCallbackSafe(cb func(Result), res Result, logger *slog.Logger) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("result callback panicked",
				"panic", r,
				"run_id", res.RunID,
			)
		}
	}()
	cb(res)
}

func toReport(res Result) status.Report {
	report := status.Report{
		RunID:      res.RunID,
		Outcome:    res.Outcome.String(),
		SourceURL:  res.SourceURL,
		StatusCode: res.StatusCode,
		LatencyMs:  res.Latency.Milliseconds(),
		Bytes:      res.Bytes,
		StartedAt:  res.StartedAt,
	}
	if res.Err != nil {
		msg := res.Err.Error()
		report.Error = &msg
	}
	return report
}

// SaveSource stores a new source URL and returns the stored value.
//
// The input is sanitized with [SanitizeTextField]. If nothing is left, the
// default set with [WithDefaultSourceURL] is stored instead. The value is
// not validated as a URL; an unusable value surfaces as
// [OutcomeFetchFailed] on the next run.
func (s *Synchronizer) SaveSource(ctx context.Context, raw string) (string, error) {
	value := SanitizeTextField(raw)
	if value == "" {
		value = s.defaultSource
	}
	if err := s.store.Set(ctx, s.sourceKey, value); err != nil {
		return "", fmt.Errorf("save source url: %w", err)
	}
	return value, nil
}

// SourceURL returns the stored source URL, or an error wrapping
// [ErrSettingNotFound] if none was ever saved.
func (s *Synchronizer) SourceURL(ctx context.Context) (string, error) {
	return s.store.Get(ctx, s.sourceKey)
}

// PingList returns the stored ping list, or an error wrapping
// [ErrSettingNotFound] if no run has updated it yet.
func (s *Synchronizer) PingList(ctx context.Context) (string, error) {
	return s.store.Get(ctx, s.pingListKey)
}

// SourceKey returns the settings key holding the source URL.
func (s *Synchronizer) SourceKey() string {
	return s.sourceKey
}

// PingListKey returns the settings key the ping list is written to.
func (s *Synchronizer) PingListKey() string {
	return s.pingListKey
}

// Interval returns the configured re-synchronization interval.
func (s *Synchronizer) Interval() time.Duration {
	return s.interval
}

// Close releases idle connections held by the default fetcher.
// Close is a no-op when a custom fetcher was supplied.
func (s *Synchronizer) Close() {
	if s.ownFetcher != nil {
		s.ownFetcher.close()
	}
}

// Start synchronizes periodically and serves the admin API if enabled.
//
// Start is a blocking call that runs until the provided context is cancelled.
// During execution:
//
//   - Synchronize runs immediately, then at the configured interval
//   - The admin API listens on the port set with [WithAdminServer], if any
//
// For signal handling, use [signal.NotifyContext]:
//
//	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
//	defer cancel()
//	s.Start(ctx)
//
// Returns nil on graceful shutdown. Returns an error if the admin server
// fails to start.
func (s *Synchronizer) Start(ctx context.Context) error {
	s.logger.Info("pingsync starting",
		"source_key", s.sourceKey,
		"ping_list_key", s.pingListKey,
		"interval", s.interval.String(),
	)

	if ctx.Err() != nil {
		return nil
	}

	sched := scheduler.New(func(ctx context.Context) {
		s.Synchronize(ctx)
	}, s.interval, s.logger)
	sched.Start(ctx)

	if s.adminPort > 0 {
		if s.adminToken == "" {
			s.logger.Warn("admin token is empty; protected routes will reject every request")
		}
		admin := server.NewServer(adminBackend{s}, s.tracker, s.metrics.Handler(), s.adminPort, s.adminToken, s.logger)
		if err := admin.Start(ctx); err != nil {
			sched.Stop()
			return fmt.Errorf("failed to start admin server: %w", err)
		}
		s.logger.Info("admin api available", "url", fmt.Sprintf("http://localhost:%d", s.adminPort))
	}

	<-ctx.Done()
	sched.Stop()
	s.logger.Info("pingsync stopped", "runs", sched.Runs())
	return nil
}

// adminBackend exposes a Synchronizer to the admin API.
type adminBackend struct {
	s *Synchronizer
}

func (a adminBackend) Settings(ctx context.Context) (server.Settings, error) {
	source, err := a.s.SourceURL(ctx)
	if err != nil && !errors.Is(err, ErrSettingNotFound) {
		return server.Settings{}, err
	}
	return server.Settings{
		SourceURL:   source,
		SourceKey:   a.s.sourceKey,
		PingListKey: a.s.pingListKey,
	}, nil
}

func (a adminBackend) SaveSource(ctx context.Context, raw string) (string, error) {
	return a.s.SaveSource(ctx, raw)
}

func (a adminBackend) PingList(ctx context.Context) (string, error) {
	return a.s.PingList(ctx)
}

func (a adminBackend) Sync(ctx context.Context) status.Report {
	return toReport(a.s.Synchronize(ctx))
}
