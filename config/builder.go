package config

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/jpalmerr/pingsync"
	"github.com/jpalmerr/pingsync/internal/store"
)

// OpenStore opens the settings store selected by cfg.Store.
//
// The returned close function is never nil and must be called when the
// store is no longer needed.
func OpenStore(ctx context.Context, cfg *Config) (pingsync.SettingsStore, func() error, error) {
	switch cfg.Store.Driver {
	case "", DriverMemory:
		return store.NewMemoryStore(), func() error { return nil }, nil
	case DriverSQLite:
		st, err := store.NewSQLiteStore(cfg.Store.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite store: %w", err)
		}
		return st, st.Close, nil
	case DriverRedis:
		st, err := store.NewRedisStore(ctx, store.RedisOptions{
			Addr:     cfg.Store.Addr,
			Password: cfg.Store.Password,
			DB:       cfg.Store.DB,
			Hash:     cfg.Store.Hash,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("open redis store: %w", err)
		}
		return st, st.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

// BuildOptions converts parsed configuration into SDK options backed by st.
func BuildOptions(cfg *Config, st pingsync.SettingsStore) []pingsync.Option {
	opts := []pingsync.Option{
		pingsync.WithStore(st),
		pingsync.WithPluginID(cfg.PluginID),
		pingsync.WithPingListKey(cfg.PingListKey),
		pingsync.WithDefaultSourceURL(cfg.DefaultSourceURL),
		pingsync.WithFetchTimeout(cfg.Fetch.Timeout.Duration()),
		pingsync.WithInterval(cfg.Interval.Duration()),
	}

	if cfg.Site.FromStore {
		fallback := pingsync.Site{URL: cfg.Site.URL, Name: cfg.Site.Name}
		opts = append(opts, pingsync.WithSiteProvider(pingsync.NewStoreSite(st, fallback)))
	} else {
		opts = append(opts, pingsync.WithSite(cfg.Site.URL, cfg.Site.Name))
	}

	if cfg.Fetch.UserAgent != "" {
		opts = append(opts, pingsync.WithUserAgent(cfg.Fetch.UserAgent))
	}
	if len(cfg.Fetch.Headers) > 0 {
		opts = append(opts, pingsync.WithFetchHeaders(mapToKeyValuePairs(cfg.Fetch.Headers)...))
	}

	if cfg.Admin.Enabled {
		opts = append(opts, pingsync.WithAdminServer(cfg.Admin.Port, cfg.Admin.Token))
	}

	return opts
}

// SeedSource stores cfg.SourceURL as the source URL if none is stored yet.
//
// It reports whether a value was written. An existing value, even an
// empty one saved through the admin API, is left alone.
func SeedSource(ctx context.Context, cfg *Config, s *pingsync.Synchronizer) (bool, error) {
	if cfg.SourceURL == "" {
		return false, nil
	}

	_, err := s.SourceURL(ctx)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, pingsync.ErrSettingNotFound) {
		return false, fmt.Errorf("read source url: %w", err)
	}

	if _, err := s.SaveSource(ctx, cfg.SourceURL); err != nil {
		return false, err
	}
	return true, nil
}

// mapToKeyValuePairs converts a map to a sorted slice of key-value pairs.
func mapToKeyValuePairs(m map[string]string) []string {
	// sort keys for deterministic ordering
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(m)*2)
	for _, k := range keys {
		pairs = append(pairs, k, m[k])
	}
	return pairs
}
