// Package kv defines the key-value store the enrichment caches are written to,
// along with an in-memory implementation for tests and a SQLite-backed one for
// durable use.
package kv

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by Get when a key is absent or has expired.
var ErrNotFound = errors.New("kv: key not found")

// Store is a string-keyed byte store with per-key expiry.
//
// Implementations must be safe for concurrent use and must treat an entry
// whose expiration has passed as absent.
type Store interface {
	// Get returns the stored value, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Put stores value under key, replacing any previous value.
	Put(ctx context.Context, key string, value []byte, opts PutOptions) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// List returns live keys matching opts.Prefix in lexical order.
	List(ctx context.Context, opts ListOptions) ([]string, error)
}

// PutOptions controls how a value is written.
type PutOptions struct {
	// ExpirationTTL is how long the entry lives. Zero means no expiry.
	ExpirationTTL time.Duration
}

// ListOptions filters a List call.
type ListOptions struct {
	Prefix string
	Limit  int // 0 means unlimited
}

// expiresAt converts a TTL into an absolute deadline. The zero time means the
// entry never expires.
func expiresAt(now time.Time, ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return now.Add(ttl)
}
