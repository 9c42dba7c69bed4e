// Package cache provides the best-effort JSON cache and the TTL-backed
// session-active marker. Cache failures are logged and swallowed: losing
// a cache entry must never fail a request or a live stream.
package cache

import (
	"context"
	"time"
)

// Well-known cache keys and prefixes.
const (
	KeyOAuthToken      = "gateway_oauth_token"
	KeyToolsList       = "gateway_tools_list"
	SessionKeyPrefix   = "session:"
	ActiveMarkerPrefix = "session_active:"
)

// Cache is a best-effort JSON key-value store with per-key TTLs.
type Cache interface {
	// Get unmarshals the value at key into dest. Returns false on a miss
	// or any backend error.
	Get(ctx context.Context, key string, dest any) bool

	// Set stores value under key with the given TTL. Errors are logged,
	// not returned.
	Set(ctx context.Context, key string, value any, ttl time.Duration)

	// Delete removes key. Deleting a missing key is a no-op.
	Delete(ctx context.Context, key string)

	// Exists reports whether key is present and unexpired.
	Exists(ctx context.Context, key string) bool

	// Close releases backend resources.
	Close() error
}

// SessionKey returns the cache key for a session's metadata.
func SessionKey(sessionID string) string {
	return SessionKeyPrefix + sessionID
}

// ActiveKey returns the cache key for a session's active marker.
func ActiveKey(sessionID string) string {
	return ActiveMarkerPrefix + sessionID
}
