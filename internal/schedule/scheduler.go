// Package schedule spaces outbound provider calls so each provider sees at
// most one dispatch per configured interval.
package schedule

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// Provider tags used by the enrichment services.
const (
	Deezer      = "deezer"
	MusicBrainz = "musicbrainz"
	LastFM      = "lastfm"
)

// DefaultIntervals are the minimum dispatch spacings per provider.
var DefaultIntervals = map[string]time.Duration{
	Deezer:      25 * time.Millisecond,   // 40 req/s
	MusicBrainz: 1000 * time.Millisecond, // 1 req/s
	LastFM:      200 * time.Millisecond,  // 5 req/s
}

// Gate spaces dispatches for a single provider. The interval between the
// starts of two operations dispatched through the same gate is never shorter
// than the gate's interval, no matter how many goroutines call it.
type Gate struct {
	interval   time.Duration
	limiter    *rate.Limiter
	dispatched atomic.Int64
}

// NewGate creates a gate with the given minimum interval.
func NewGate(interval time.Duration) *Gate {
	return &Gate{
		interval: interval,
		limiter:  rate.NewLimiter(rate.Every(interval), 1),
	}
}

// Interval returns the gate's minimum dispatch interval.
func (g *Gate) Interval() time.Duration {
	return g.interval
}

// Dispatched returns how many operations have passed the gate.
func (g *Gate) Dispatched() int64 {
	return g.dispatched.Load()
}

// Wait blocks until the caller may dispatch, then records the dispatch.
// A caller whose context ends while queued gives up its slot and returns
// without waiting for the callers ahead of it.
func (g *Gate) Wait(ctx context.Context) error {
	if err := g.limiter.Wait(ctx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return err
	}
	g.dispatched.Add(1)
	return nil
}

// Scheduler holds one gate per provider tag.
type Scheduler struct {
	mu              sync.Mutex
	gates           map[string]*Gate
	defaultInterval time.Duration
}

// New creates a scheduler with the given per-provider intervals. Providers
// not listed get defaultInterval.
func New(intervals map[string]time.Duration, defaultInterval time.Duration) *Scheduler {
	s := &Scheduler{
		gates:           make(map[string]*Gate, len(intervals)),
		defaultInterval: defaultInterval,
	}
	for provider, interval := range intervals {
		s.gates[provider] = NewGate(interval)
	}
	return s
}

// NewDefault creates a scheduler using DefaultIntervals.
func NewDefault() *Scheduler {
	return New(DefaultIntervals, time.Second)
}

// Gate returns the gate for provider, creating it on first use.
func (s *Scheduler) Gate(provider string) *Gate {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, ok := s.gates[provider]
	if !ok {
		g = NewGate(s.defaultInterval)
		s.gates[provider] = g
	}
	return g
}

// Do runs op once provider's gate admits it. op's result and error are
// returned unchanged; nothing is retried.
func Do[T any](ctx context.Context, s *Scheduler, provider string, op func(ctx context.Context) (T, error)) (T, error) {
	if err := s.Gate(provider).Wait(ctx); err != nil {
		var zero T
		return zero, err
	}
	return op(ctx)
}
