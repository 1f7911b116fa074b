// Package fetcher provides the HTTP client used to download ping-list
// documents.
//
// This package is internal to pingsync. [Client] performs a single blocking
// GET per call with a per-request timeout applied via context, a response
// size limit, and connection pooling. Any status outside 2xx is reported as
// a [*StatusError] so callers can treat transport failures and HTTP
// failures uniformly.
package fetcher
