package pingsync

import (
	"context"
	"errors"
	"fmt"
)

// Host option keys read by [StoreSite].
const (
	SiteURLKey  = "siteurl"
	SiteNameKey = "blogname"
)

// Site is the identity of the site a ping list is generated for.
type Site struct {
	// URL is the site's canonical base URL, e.g. "https://example.org".
	URL string

	// Name is the site's display name. It is slugified before substitution.
	Name string
}

// SiteProvider supplies the current site identity at sync time.
type SiteProvider interface {
	Site(ctx context.Context) (Site, error)
}

// StaticSite is a [SiteProvider] that always returns the same identity.
type StaticSite Site

// Site returns the static identity.
func (s StaticSite) Site(context.Context) (Site, error) {
	return Site(s), nil
}

// StoreSite is a [SiteProvider] that reads the host's own options.
//
// The base URL comes from [SiteURLKey] and the display name from
// [SiteNameKey]. A key that was never set falls back to the corresponding
// Fallback field.
type StoreSite struct {
	Store    SettingsStore
	Fallback Site
}

// NewStoreSite creates a [StoreSite] reading from st.
func NewStoreSite(st SettingsStore, fallback Site) StoreSite {
	return StoreSite{Store: st, Fallback: fallback}
}

// Site reads the identity from the settings store.
func (s StoreSite) Site(ctx context.Context) (Site, error) {
	if s.Store == nil {
		return Site{}, errors.New("store site: no settings store")
	}

	url, err := s.lookup(ctx, SiteURLKey, s.Fallback.URL)
	if err != nil {
		return Site{}, err
	}
	name, err := s.lookup(ctx, SiteNameKey, s.Fallback.Name)
	if err != nil {
		return Site{}, err
	}
	return Site{URL: url, Name: name}, nil
}

func (s StoreSite) lookup(ctx context.Context, key, fallback string) (string, error) {
	v, err := s.Store.Get(ctx, key)
	if errors.Is(err, ErrSettingNotFound) {
		return fallback, nil
	}
	if err != nil {
		return "", fmt.Errorf("read %s: %w", key, err)
	}
	return v, nil
}
