// Package store defines the byte-store abstraction backing the result cache.
//
// Implementations MUST be byte-for-byte transparent: Get must return exactly
// the same []byte that was previously passed to Set for a key (no prepended
// metadata, no re-encoding, no mutation). The keyspace "identify:<ns>:" is
// owned by the orchestrator; foreign writes under it may be treated as
// corruption by strict wire-format validation and deleted.
//
// The cache is a performance optimization, not a correctness dependency:
// the orchestrator survives any of these calls failing.
package store

import (
	"context"
	"time"
)

// Store is a minimal byte store with TTLs, safe for concurrent use.
// In-process implementations (BigCache, Ristretto) may silently drop
// writes under memory pressure; that is indistinguishable from an early
// eviction and equally harmless.
type Store interface {
	// Get returns (value, true, nil) on hit; (nil, false, nil) on miss.
	// If an IO/remote error happens, return (nil, false, err).
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores value with the given TTL. A TTL <= 0 means no expiry
	// (or the store's global window, for stores without per-entry TTL).
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Del removes a key (best-effort).
	Del(ctx context.Context, key string) error

	// Close releases resources.
	Close(ctx context.Context) error
}
