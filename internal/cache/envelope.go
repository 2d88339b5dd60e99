// Package cache wraps enrichment results in a timestamped envelope and moves
// them in and out of a kv.Store.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jfmyers9/crate/internal/kv"
)

// DefaultStaleRetention is how long a store keeps an envelope after it stops
// being fresh, so a later refresh can still merge with it.
const DefaultStaleRetention = 30 * 24 * time.Hour

// Envelope is the only structure persisted to the store.
type Envelope[T any] struct {
	Payload    T         `json:"payload"`
	FetchedAt  time.Time `json:"fetchedAt"`
	TTLSeconds int64     `json:"ttlSeconds"`
	IsMiss     bool      `json:"isMiss"`
}

// TTL returns the envelope's freshness window.
func (e *Envelope[T]) TTL() time.Duration {
	return time.Duration(e.TTLSeconds) * time.Second
}

// Fresh reports whether the envelope is still servable at now.
func (e *Envelope[T]) Fresh(now time.Time) bool {
	return now.Sub(e.FetchedAt) <= e.TTL()
}

// Policy holds a provider's two TTLs. Every envelope a provider writes uses
// exactly one of them.
type Policy struct {
	HitTTL  time.Duration
	MissTTL time.Duration
}

// TTLFor picks the hit or miss TTL.
func (p Policy) TTLFor(isMiss bool) time.Duration {
	if isMiss {
		return p.MissTTL
	}
	return p.HitTTL
}

// Codec reads and writes envelopes for one payload type.
type Codec[T any] struct {
	store     kv.Store
	policy    Policy
	retention time.Duration
	now       func() time.Time
}

// NewCodec creates a codec writing through store with the given TTL policy.
// retention <= 0 selects DefaultStaleRetention.
func NewCodec[T any](store kv.Store, policy Policy, retention time.Duration) *Codec[T] {
	if retention <= 0 {
		retention = DefaultStaleRetention
	}
	return &Codec[T]{
		store:     store,
		policy:    policy,
		retention: retention,
		now:       time.Now,
	}
}

// SetClock overrides the codec's clock.
func (c *Codec[T]) SetClock(now func() time.Time) {
	c.now = now
}

// Now returns the codec's current time.
func (c *Codec[T]) Now() time.Time {
	return c.now()
}

// Policy returns the codec's TTL policy.
func (c *Codec[T]) Policy() Policy {
	return c.policy
}

// Load returns the envelope stored under key, fresh or stale, or nil when
// the store holds nothing for it. Undecodable entries are treated as absent.
func (c *Codec[T]) Load(ctx context.Context, key string) (*Envelope[T], error) {
	raw, err := c.store.Get(ctx, key)
	if errors.Is(err, kv.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var env Envelope[T]
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, nil
	}
	return &env, nil
}

// Save wraps payload in a new envelope stamped now and writes it.
func (c *Codec[T]) Save(ctx context.Context, key string, payload T, isMiss bool) (*Envelope[T], error) {
	env := &Envelope[T]{
		Payload:    payload,
		FetchedAt:  c.now(),
		TTLSeconds: int64(c.policy.TTLFor(isMiss) / time.Second),
		IsMiss:     isMiss,
	}
	if err := c.Write(ctx, key, env); err != nil {
		return nil, err
	}
	return env, nil
}

// Write stores env as-is.
func (c *Codec[T]) Write(ctx context.Context, key string, env *Envelope[T]) error {
	raw, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to encode envelope for %q: %w", key, err)
	}

	opts := kv.PutOptions{ExpirationTTL: env.TTL() + c.retention}
	if err := c.store.Put(ctx, key, raw, opts); err != nil {
		return err
	}
	return nil
}
