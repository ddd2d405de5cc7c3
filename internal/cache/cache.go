// Package cache is the shared key-value cache fronting the market-data
// providers. Values are UTF-8 JSON documents; expiry is time-based.
package cache

import (
	"context"
	"time"
)

// Store is a key-value store with per-entry TTL.
//
// Implementations must never fail a caller because the backing store is
// unreachable: Get reports a miss and Set becomes a no-op. Staleness is
// preferable to request failure here.
type Store interface {
	// Get returns the value for key, or false when the key is absent,
	// expired, or the backend cannot be reached.
	Get(ctx context.Context, key string) ([]byte, bool)
	// Set stores value under key for ttl, replacing any existing entry.
	// Empty values are never stored.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration)
}
