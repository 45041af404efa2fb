package repository

import (
	"context"
	"time"
)

// StateStore abstracts ephemeral key-value state: OAuth2 state tokens,
// per-session provider markers and flash messages.
// Implementations: Redis (production) or in-memory (local dev / single instance).
// Get and Take return (nil, nil) for a missing or expired key.
type StateStore interface {
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Get(ctx context.Context, key string) ([]byte, error)
	// Take returns the value and removes the key in one step.
	Take(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}
