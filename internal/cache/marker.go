package cache

import (
	"context"
	"time"
)

// ActiveMarker is the externally visible, TTL-bounded flag indicating a
// session currently has a live audio stream. Mark and Clear are idempotent:
// re-marking refreshes the TTL, clearing an absent marker is a no-op.
type ActiveMarker struct {
	cache Cache
	ttl   time.Duration
}

// NewActiveMarker creates a marker store with the given TTL per mark.
func NewActiveMarker(c Cache, ttl time.Duration) *ActiveMarker {
	return &ActiveMarker{cache: c, ttl: ttl}
}

// MarkActive flags the session as streaming.
func (m *ActiveMarker) MarkActive(ctx context.Context, sessionID string) {
	m.cache.Set(ctx, ActiveKey(sessionID), true, m.ttl)
}

// ClearActive removes the session's streaming flag.
func (m *ActiveMarker) ClearActive(ctx context.Context, sessionID string) {
	m.cache.Delete(ctx, ActiveKey(sessionID))
}

// IsActive reports whether the session's streaming flag is set.
func (m *ActiveMarker) IsActive(ctx context.Context, sessionID string) bool {
	return m.cache.Exists(ctx, ActiveKey(sessionID))
}
