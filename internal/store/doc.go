// Package store provides key/value persistence for site settings.
//
// This package is internal to pingsync and holds the flat string options
// the synchronizer reads and writes: the configured source URL, the
// resulting ping list, and optionally the site identity.
//
// The main components are:
//
//   - [Store]: Interface defining Get and Set by string key
//   - [MemoryStore]: In-memory implementation, used by tests and the SDK default
//   - [SQLiteStore]: Persistent implementation backed by a SQLite file
//   - [RedisStore]: Shared implementation backed by a Redis hash
//
// Implementations return [ErrNotFound] for absent keys. An empty string is a
// valid stored value and is distinct from an absent key.
package store
