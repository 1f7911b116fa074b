// Package config provides YAML configuration parsing for pingsync.
//
// This package enables running pingsync as a standalone binary with a
// configuration file, as an alternative to the programmatic SDK approach.
//
// Example configuration:
//
//	site:
//	  url: https://example.org
//	  name: My Site
//
//	default_source_url: https://lists.example.net/ping.txt
//	interval: 12h
//
//	fetch:
//	  timeout: 30s
//	  user_agent: pingsync
//
//	store:
//	  driver: sqlite
//	  path: /var/lib/pingsync/settings.db
//
//	admin:
//	  enabled: true
//	  port: 8080
//	  token: ${PINGSYNC_ADMIN_TOKEN}
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// minInterval keeps a misconfigured interval from hammering the source.
const minInterval = 1 * time.Minute

// Store drivers.
const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
	DriverRedis  = "redis"
)

// Config is the root configuration structure for pingsync.
//
// It maps directly to the YAML configuration file structure.
// Use [Load] or [Parse] to create a Config from YAML.
type Config struct {
	// Site is the identity substituted into the ping list.
	Site SiteConfig `yaml:"site"`

	// PluginID derives the source URL key ("<id>-url").
	// Defaults to "wp-ping-sites-updater".
	PluginID string `yaml:"plugin_id"`

	// PingListKey is the key the ping list is written to.
	// Defaults to "ping_sites".
	PingListKey string `yaml:"ping_list_key"`

	// DefaultSourceURL is stored when a settings save submits an empty value.
	DefaultSourceURL string `yaml:"default_source_url"`

	// SourceURL seeds the source URL if the store has none yet.
	// An existing stored value is never overwritten.
	SourceURL string `yaml:"source_url"`

	// Fetch configures the HTTP request to the source.
	Fetch FetchConfig `yaml:"fetch"`

	// Interval is the time between synchronizations. Defaults to 12h.
	Interval Duration `yaml:"interval"`

	// Store selects the settings store.
	Store StoreConfig `yaml:"store"`

	// Admin configures the admin HTTP API.
	Admin AdminConfig `yaml:"admin"`
}

// SiteConfig is the site identity.
type SiteConfig struct {
	// URL is the site's base URL. Required unless FromStore is set.
	URL string `yaml:"url"`

	// Name is the site's display name.
	Name string `yaml:"name"`

	// FromStore reads the identity from the "siteurl" and "blogname" keys
	// of the settings store, using URL and Name as fallbacks.
	FromStore bool `yaml:"from_store"`
}

// FetchConfig configures source requests.
type FetchConfig struct {
	// Timeout is the per-request timeout. Defaults to 30s.
	Timeout Duration `yaml:"timeout"`

	// UserAgent is sent as the User-Agent header.
	UserAgent string `yaml:"user_agent"`

	// Headers are extra request headers. Values support environment
	// variable substitution.
	Headers map[string]string `yaml:"headers"`
}

// StoreConfig selects the settings store.
type StoreConfig struct {
	// Driver is "memory" (default), "sqlite", or "redis".
	Driver string `yaml:"driver"`

	// Path is the database file for the sqlite driver.
	Path string `yaml:"path"`

	// Addr is the host:port of the Redis server for the redis driver.
	Addr string `yaml:"addr"`

	// Password authenticates to Redis. Supports environment variable
	// substitution.
	Password string `yaml:"password"`

	// DB is the Redis database number.
	DB int `yaml:"db"`

	// Hash is the Redis hash holding the settings.
	// Defaults to "pingsync:settings".
	Hash string `yaml:"hash"`
}

// AdminConfig configures the admin HTTP API.
type AdminConfig struct {
	// Enabled turns the admin API on.
	Enabled bool `yaml:"enabled"`

	// Port is the listen port. Defaults to 8080.
	Port int `yaml:"port"`

	// Token is the bearer token required by protected routes.
	Token string `yaml:"token"`
}

// Duration wraps time.Duration for YAML unmarshalling.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}

	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}

	*d = Duration(parsed)
	return nil
}

// Duration returns the underlying time.Duration value.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns.
// Group 1: variable name
// Group 2: the ":-default" part (if present, indicates a default was specified)
// Group 3: the default value (may be empty for ${VAR:-})
var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(:-([^}]*))?\}`)

// expandEnvVars replaces ${VAR} and ${VAR:-default} patterns with environment values.
func expandEnvVars(s string) (string, error) {
	var firstErr error

	result := envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		if firstErr != nil {
			return match
		}

		sub := envVarPattern.FindStringSubmatch(match)
		if len(sub) < 2 {
			return match
		}

		name := sub[1]
		hasDefault := len(sub) > 2 && sub[2] != ""

		value, exists := os.LookupEnv(name)
		if !exists {
			if hasDefault {
				return sub[3]
			}
			firstErr = fmt.Errorf("environment variable %q is not set", name)
			return match
		}
		return value
	})

	if firstErr != nil {
		return "", firstErr
	}
	return result, nil
}

// Load reads and parses a YAML configuration file.
//
// Returns an error if the file cannot be read, parsed, or validated.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse parses YAML configuration data.
//
// Environment variables are expanded in the site, source URL, header,
// store, and admin token values. Defaults are applied for every
// optional field.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.expandAndValidate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.PluginID == "" {
		c.PluginID = "wp-ping-sites-updater"
	}
	if c.PingListKey == "" {
		c.PingListKey = "ping_sites"
	}
	if c.Fetch.Timeout == 0 {
		c.Fetch.Timeout = Duration(30 * time.Second)
	}
	if c.Interval == 0 {
		c.Interval = Duration(12 * time.Hour)
	}
	if c.Store.Driver == "" {
		c.Store.Driver = DriverMemory
	}
	if c.Admin.Port == 0 {
		c.Admin.Port = 8080
	}
}

// expandAndValidate expands environment variables and validates the config.
func (c *Config) expandAndValidate() error {
	expand := func(field string, v *string) error {
		expanded, err := expandEnvVars(*v)
		if err != nil {
			return fmt.Errorf("%s: %w", field, err)
		}
		*v = expanded
		return nil
	}

	for field, v := range map[string]*string{
		"site.url":           &c.Site.URL,
		"site.name":          &c.Site.Name,
		"source_url":         &c.SourceURL,
		"default_source_url": &c.DefaultSourceURL,
		"store.path":         &c.Store.Path,
		"store.addr":         &c.Store.Addr,
		"store.password":     &c.Store.Password,
		"admin.token":        &c.Admin.Token,
	} {
		if err := expand(field, v); err != nil {
			return err
		}
	}
	for k, v := range c.Fetch.Headers {
		if err := expand(fmt.Sprintf("fetch.headers[%s]", k), &v); err != nil {
			return err
		}
		c.Fetch.Headers[k] = v
	}

	if c.Site.URL == "" && !c.Site.FromStore {
		return errors.New("site.url is required unless site.from_store is set")
	}
	if c.Site.URL != "" {
		if err := validateHTTPURL("site.url", c.Site.URL); err != nil {
			return err
		}
	}
	if c.SourceURL != "" {
		if err := validateHTTPURL("source_url", c.SourceURL); err != nil {
			return err
		}
	}
	if c.DefaultSourceURL != "" {
		if err := validateHTTPURL("default_source_url", c.DefaultSourceURL); err != nil {
			return err
		}
	}

	if c.PluginID+"-url" == c.PingListKey {
		return fmt.Errorf("ping_list_key %q collides with the source url key", c.PingListKey)
	}

	if c.Fetch.Timeout.Duration() < time.Second {
		return fmt.Errorf("fetch.timeout must be at least 1s, got %s", c.Fetch.Timeout.Duration())
	}
	if c.Interval.Duration() < minInterval {
		return fmt.Errorf("interval must be at least %s, got %s", minInterval, c.Interval.Duration())
	}

	switch c.Store.Driver {
	case DriverMemory:
	case DriverSQLite:
		if c.Store.Path == "" {
			return errors.New("store.path is required for the sqlite driver")
		}
	case DriverRedis:
		if c.Store.Addr == "" {
			return errors.New("store.addr is required for the redis driver")
		}
		if c.Store.DB < 0 {
			return fmt.Errorf("store.db cannot be negative, got %d", c.Store.DB)
		}
	default:
		return fmt.Errorf("store.driver must be %q, %q, or %q, got %q",
			DriverMemory, DriverSQLite, DriverRedis, c.Store.Driver)
	}

	if c.Admin.Port < 1 || c.Admin.Port > 65535 {
		return fmt.Errorf("admin.port must be between 1 and 65535, got %d", c.Admin.Port)
	}

	return nil
}

func validateHTTPURL(field, raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s: invalid url: %w", field, err)
	}
	if u.Scheme == "" {
		return fmt.Errorf("%s: url must have a scheme (http:// or https://)", field)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%s: url scheme must be http or https, got %q", field, u.Scheme)
	}
	return nil
}
