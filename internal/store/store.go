// Package store abstracts the key/value backend used for volatile auth
// state: the revoked-token blocklist, the audit cache and session snapshots.
// Two implementations exist, a Redis-backed one and an in-process simulator,
// and callers must not be able to tell them apart except for persistence
// across restarts.
package store

import (
	"context"
	"time"
)

// KV is the minimal capability set a conforming backend must implement.
type KV interface {
	// Set stores value under key. A positive ttl makes the key unreadable
	// once it elapses; ttl <= 0 persists the key and clears any existing
	// expiry.
	Set(ctx context.Context, key string, ttl time.Duration, value string) error
	// Get returns the value and true, or ("", false) when the key was never
	// set, was deleted, or has passed its TTL.
	Get(ctx context.Context, key string) (string, bool, error)
	Delete(ctx context.Context, key string) error
	// Keys returns all live keys matching pattern, where '*' is a wildcard.
	Keys(ctx context.Context, pattern string) ([]string, error)
	// LPush prepends values to the list at key, one at a time in argument
	// order, so the last argument ends up at the head. Returns the new
	// length.
	LPush(ctx context.Context, key string, values ...string) (int64, error)
	// LRange returns the inclusive range [start, stop]; stop = -1 means the
	// last element.
	LRange(ctx context.Context, key string, start, stop int64) ([]string, error)
	// Expire sets or clears the TTL of an existing key. Returns false when
	// the key is absent.
	Expire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Ping(ctx context.Context) error
	Close() error
}
