package pingsync

import (
	"errors"
	"log/slog"
	"time"
)

// syncConfig holds mutable state during Synchronizer construction.
type syncConfig struct {
	store           SettingsStore
	fetcher         Fetcher
	site            SiteProvider
	pluginID        string
	pingListKey     string
	defaultSource   string
	fetchTimeout    time.Duration
	userAgent       string
	fetchHeaders    map[string]string
	interval        time.Duration
	adminPort       int
	adminToken      string
	logger          *slog.Logger
	resultCallbacks []func(Result)
}

// Option is a function that configures a [Synchronizer] during construction.
//
// Options return an error if validation fails; [New] returns the first one.
type Option func(*syncConfig) error

// WithStore sets the settings store holding the source URL and ping list.
//
// Defaults to an in-memory store, which is only useful for tests and
// one-shot runs.
func WithStore(st SettingsStore) Option {
	return func(cfg *syncConfig) error {
		if st == nil {
			return errors.New("store cannot be nil")
		}
		cfg.store = st
		return nil
	}
}

// WithFetcher replaces the HTTP fetcher.
//
// When set, [WithFetchTimeout], [WithUserAgent], and [WithFetchHeaders] have
// no effect.
func WithFetcher(f Fetcher) Option {
	return func(cfg *syncConfig) error {
		if f == nil {
			return errors.New("fetcher cannot be nil")
		}
		cfg.fetcher = f
		return nil
	}
}

// WithSite sets a static site identity.
//
// Example:
//
//	s, err := pingsync.New(
//	    pingsync.WithSite("https://example.org", "My Site"),
//	)
func WithSite(url, name string) Option {
	return func(cfg *syncConfig) error {
		cfg.site = StaticSite{URL: url, Name: name}
		return nil
	}
}

// WithSiteProvider sets a dynamic source for the site identity, such as
// [StoreSite].
func WithSiteProvider(p SiteProvider) Option {
	return func(cfg *syncConfig) error {
		if p == nil {
			return errors.New("site provider cannot be nil")
		}
		cfg.site = p
		return nil
	}
}

// WithPluginID sets the identifier used to derive the source URL key
// ("<id>-url"). Defaults to "wp-ping-sites-updater".
func WithPluginID(id string) Option {
	return func(cfg *syncConfig) error {
		if id == "" {
			return errors.New("plugin id cannot be empty")
		}
		cfg.pluginID = id
		return nil
	}
}

// WithPingListKey sets the key the ping list is written to.
// Defaults to "ping_sites".
func WithPingListKey(key string) Option {
	return func(cfg *syncConfig) error {
		if key == "" {
			return errors.New("ping list key cannot be empty")
		}
		cfg.pingListKey = key
		return nil
	}
}

// WithDefaultSourceURL sets the URL stored by [Synchronizer.SaveSource] when
// the submitted value is empty.
func WithDefaultSourceURL(url string) Option {
	return func(cfg *syncConfig) error {
		cfg.defaultSource = url
		return nil
	}
}

// WithFetchTimeout sets the per-request timeout for the source fetch.
// Defaults to 30 seconds.
//
// Returns an error if the duration is zero or negative.
func WithFetchTimeout(d time.Duration) Option {
	return func(cfg *syncConfig) error {
		if d <= 0 {
			return errors.New("fetch timeout must be positive")
		}
		cfg.fetchTimeout = d
		return nil
	}
}

// WithUserAgent sets the User-Agent header sent to the source.
func WithUserAgent(ua string) Option {
	return func(cfg *syncConfig) error {
		cfg.userAgent = ua
		return nil
	}
}

// WithFetchHeaders sets extra headers sent to the source, given as
// alternating key/value pairs.
//
// Returns an error if an odd number of arguments is given.
func WithFetchHeaders(kv ...string) Option {
	return func(cfg *syncConfig) error {
		if len(kv)%2 != 0 {
			return errors.New("headers must be key/value pairs")
		}
		if cfg.fetchHeaders == nil {
			cfg.fetchHeaders = make(map[string]string, len(kv)/2)
		}
		for i := 0; i < len(kv); i += 2 {
			cfg.fetchHeaders[kv[i]] = kv[i+1]
		}
		return nil
	}
}

// WithInterval sets how often [Synchronizer.Start] re-synchronizes.
// Defaults to 12 hours.
//
// Returns an error if the duration is zero or negative.
func WithInterval(d time.Duration) Option {
	return func(cfg *syncConfig) error {
		if d <= 0 {
			return errors.New("interval must be positive")
		}
		cfg.interval = d
		return nil
	}
}

// WithAdminServer enables the admin API on port, protected by token.
//
// The admin API is only served by [Synchronizer.Start]. An empty token
// leaves the protected routes unusable.
//
// Returns an error if the port is outside the valid range (1-65535).
func WithAdminServer(port int, token string) Option {
	return func(cfg *syncConfig) error {
		if port < 1 || port > 65535 {
			return errors.New("port must be between 1 and 65535")
		}
		cfg.adminPort = port
		cfg.adminToken = token
		return nil
	}
}

// WithLogger sets a custom [slog.Logger]. Defaults to [slog.Default].
//
// Returns an error if the logger is nil.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *syncConfig) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		cfg.logger = logger
		return nil
	}
}

// WithResultCallback registers a function called after every run.
//
// Callbacks run synchronously, in registration order, at the end of every
// run whatever its outcome, so they also see runs that wrote nothing. Panics
// are recovered and logged. Nil callbacks are ignored.
//
// Example:
//
//	s, err := pingsync.New(
//	    pingsync.WithSite(url, name),
//	    pingsync.WithResultCallback(func(r pingsync.Result) {
//	        if r.Outcome == pingsync.OutcomeFetchFailed {
//	            alert(r.Err)
//	        }
//	    }),
//	)
func WithResultCallback(cb func(Result)) Option {
	return func(cfg *syncConfig) error {
		if cb == nil {
			return nil
		}
		cfg.resultCallbacks = append(cfg.resultCallbacks, cb)
		return nil
	}
}
