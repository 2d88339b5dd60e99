// Package enrich runs catalog and scrobble enrichment over a batch of
// tracks and assembles the combined result.
package enrich

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/jfmyers9/crate/internal/catalog"
	"github.com/jfmyers9/crate/internal/music"
	"github.com/jfmyers9/crate/internal/signals"
)

// Stages reported through Progress.
const (
	StageCatalog = "catalog"
	StageSignals = "signals"
	StageArtists = "artists"
)

// Progress reports how far a stage has got.
type Progress struct {
	Stage string
	Done  int
	Total int
}

// CatalogEnricher is the catalog half of the pipeline.
type CatalogEnricher interface {
	BatchEnrichTracks(ctx context.Context, tracks []music.Track, onProgress func(done, total int)) (map[string]catalog.Enrichment, error)
}

// SignalSource is the scrobble half of the pipeline.
type SignalSource interface {
	BatchGetSignals(ctx context.Context, refs []music.Ref, skipArtistInfo bool, onProgress func(done, total int)) (map[string]*signals.Signals, error)
	BatchGetArtistInfo(ctx context.Context, names []string, onProgress func(done, total int)) (map[string]*signals.ArtistInfo, error)
	UpdateCachedSignals(ctx context.Context, key string, sig *signals.Signals) error
}

// Options controls a run.
type Options struct {
	SkipCatalog bool
	SkipSignals bool
	SkipArtists bool

	// OnProgress, if set, receives progress from every stage. Calls are
	// serialized but may come from different goroutines.
	OnProgress func(Progress)
}

// Result is the outcome of a run. Catalog and Signals are keyed by track
// ID; Artists by lower-cased artist name.
type Result struct {
	RunID      string                         `json:"runId"`
	Catalog    map[string]catalog.Enrichment  `json:"catalog"`
	Signals    map[string]*signals.Signals    `json:"signals"`
	Artists    map[string]*signals.ArtistInfo `json:"artists"`
	Tags       []signals.TagCount             `json:"tags"`
	Popularity signals.Popularity             `json:"popularity"`
}

// Pipeline ties the catalog and signal services together.
type Pipeline struct {
	catalog CatalogEnricher
	signals SignalSource
	logger  zerolog.Logger
}

// New creates a pipeline. Either service may be nil, which skips its half.
func New(cat CatalogEnricher, sig SignalSource, logger zerolog.Logger) *Pipeline {
	return &Pipeline{
		catalog: cat,
		signals: sig,
		logger:  logger.With().Str("component", "pipeline").Logger(),
	}
}

// Run enriches tracks. Every track needs an ID; otherwise Run fails with
// catalog.ErrInvalidTrack before any lookup.
//
// The catalog and scrobble batches use different providers and run
// concurrently. The scrobble batch fetches tracks without artist info,
// then resolves each distinct artist once, attaches the result and writes
// the completed signals back to the cache.
func (p *Pipeline) Run(ctx context.Context, tracks []music.Track, opts Options) (*Result, error) {
	for i, t := range tracks {
		if t.ID == "" {
			return nil, fmt.Errorf("track %d: %w", i, catalog.ErrInvalidTrack)
		}
	}

	res := &Result{
		RunID:   uuid.NewString(),
		Catalog: make(map[string]catalog.Enrichment),
		Signals: make(map[string]*signals.Signals),
		Artists: make(map[string]*signals.ArtistInfo),
	}
	logger := p.logger.With().Str("run_id", res.RunID).Logger()
	report := newReporter(opts.OnProgress)
	start := time.Now()

	logger.Info().
		Int("tracks", len(tracks)).
		Bool("catalog", !opts.SkipCatalog && p.catalog != nil).
		Bool("signals", !opts.SkipSignals && p.signals != nil).
		Msg("Starting enrichment run")

	g, gctx := errgroup.WithContext(ctx)

	if !opts.SkipCatalog && p.catalog != nil {
		g.Go(func() error {
			m, err := p.catalog.BatchEnrichTracks(gctx, tracks, report(StageCatalog))
			if err != nil {
				return fmt.Errorf("catalog batch: %w", err)
			}
			res.Catalog = m
			return nil
		})
	}

	if !opts.SkipSignals && p.signals != nil {
		g.Go(func() error {
			return p.runSignals(gctx, tracks, opts, res, report)
		})
	}

	if err := g.Wait(); err != nil {
		logger.Error().Err(err).Msg("Enrichment run failed")
		return nil, err
	}

	logger.Info().
		Int("catalog", len(res.Catalog)).
		Int("signals", len(res.Signals)).
		Int("artists", len(res.Artists)).
		Dur("elapsed", time.Since(start)).
		Msg("Enrichment run complete")

	return res, nil
}

func (p *Pipeline) runSignals(ctx context.Context, tracks []music.Track, opts Options, res *Result, report func(string) func(int, int)) error {
	refs := make([]music.Ref, 0, len(tracks))
	for _, t := range tracks {
		refs = append(refs, t.Ref())
	}

	byKey, err := p.signals.BatchGetSignals(ctx, refs, true, report(StageSignals))
	if err != nil {
		return fmt.Errorf("signals batch: %w", err)
	}

	if !opts.SkipArtists {
		if err := p.attachArtists(ctx, tracks, byKey, res, report); err != nil {
			return err
		}
	}

	for _, t := range tracks {
		res.Signals[t.ID] = byKey[signals.GenerateCacheKey(t.Artist, t.Title)]
	}
	res.Tags = signals.AggregateTags(byKey)
	res.Popularity = signals.CalculateAveragePopularity(byKey)
	return nil
}

// attachArtists resolves artist info for every track with signals and
// persists the completed signals.
func (p *Pipeline) attachArtists(ctx context.Context, tracks []music.Track, byKey map[string]*signals.Signals, res *Result, report func(string) func(int, int)) error {
	names := make([]string, 0, len(tracks))
	for _, t := range tracks {
		sig := byKey[signals.GenerateCacheKey(t.Artist, t.Title)]
		if sig == nil {
			continue
		}
		names = append(names, artistName(sig, t))
	}

	artists, err := p.signals.BatchGetArtistInfo(ctx, names, report(StageArtists))
	if err != nil {
		return fmt.Errorf("artist batch: %w", err)
	}
	res.Artists = artists

	for _, t := range tracks {
		key := signals.GenerateCacheKey(t.Artist, t.Title)
		sig := byKey[key]
		if sig == nil || sig.ArtistInfo != nil {
			continue
		}
		info := artists[signals.ArtistKey(artistName(sig, t))]
		if info == nil {
			continue
		}
		sig.ArtistInfo = info
		if err := p.signals.UpdateCachedSignals(ctx, key, sig); err != nil {
			return fmt.Errorf("failed to update cached signals: %w", err)
		}
	}
	return nil
}

func artistName(sig *signals.Signals, t music.Track) string {
	if name := strings.TrimSpace(sig.CanonicalArtist); name != "" {
		return name
	}
	return t.Artist
}

// newReporter returns a factory of per-stage progress callbacks that
// forward to fn one at a time. A nil fn yields nil callbacks.
func newReporter(fn func(Progress)) func(stage string) func(done, total int) {
	var mu sync.Mutex
	return func(stage string) func(done, total int) {
		if fn == nil {
			return nil
		}
		return func(done, total int) {
			mu.Lock()
			defer mu.Unlock()
			fn(Progress{Stage: stage, Done: done, Total: total})
		}
	}
}
