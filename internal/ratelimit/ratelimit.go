// Package ratelimit provides a pluggable rate limiting interface.
//
// Robots on the field post logs and telemetry in tight loops; a stuck client
// can flood the ingestion endpoints. The in-memory token bucket
// (MemoryLimiter) bounds per-client request rates. The Limiter interface is
// the contract, so a shared backend can be substituted when the service runs
// on more than one instance.
package ratelimit

import "context"

// Limiter decides whether a request identified by key should be allowed.
// Implementations must be safe for concurrent use.
type Limiter interface {
	// Allow returns true if the request should proceed. The key is opaque;
	// callers construct it (ingestion uses the client IP). Returning an
	// error signals a limiter malfunction; callers should treat errors as
	// fail-open rather than blocking traffic.
	Allow(ctx context.Context, key string) (bool, error)

	// Close releases resources (cleanup goroutines, connections).
	Close() error
}

// NoopLimiter permits every request. Used when rate limiting is disabled.
type NoopLimiter struct{}

// Allow always returns true.
func (NoopLimiter) Allow(context.Context, string) (bool, error) { return true, nil }

// Close is a no-op.
func (NoopLimiter) Close() error { return nil }
