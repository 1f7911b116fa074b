// Package server provides the admin HTTP API for pingsync.
//
// This package is internal to pingsync and handles all HTTP concerns:
//
//   - Settings: read and save the ping-list source URL
//   - Sync: trigger a synchronization and read the stored ping list
//   - Status: counters, the latest report, and a Server-Sent Events stream
//   - Metrics: Prometheus exposition at "/metrics"
//
// Routes other than "/api/health" and "/metrics" require a bearer token.
// The server supports graceful shutdown via context cancellation, with a
// 5-second timeout for in-flight requests.
package server
