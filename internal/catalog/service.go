package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/jfmyers9/crate/internal/cache"
	"github.com/jfmyers9/crate/internal/kv"
	"github.com/jfmyers9/crate/internal/music"
	"github.com/jfmyers9/crate/internal/schedule"
	"github.com/jfmyers9/crate/pkg/deezer"
)

// ErrInvalidTrack is returned for tracks that cannot be keyed.
var ErrInvalidTrack = errors.New("catalog: track has no ID")

// Default cache lifetimes.
const (
	DefaultHitTTL  = 90 * 24 * time.Hour
	DefaultMissTTL = 5 * time.Minute
)

// CatalogProvider looks tracks up by ISRC. It returns an error wrapping
// deezer.ErrNotFound when the catalog has no such track.
type CatalogProvider interface {
	GetTrackByISRC(ctx context.Context, isrc string) (*deezer.Track, error)
}

// IdentifierResolver finds an ISRC for a track known only by name.
type IdentifierResolver interface {
	ResolveISRC(ctx context.Context, artist, title string, durationMs int) (string, error)
}

// Config holds service settings.
type Config struct {
	HitTTL         time.Duration
	MissTTL        time.Duration
	StaleRetention time.Duration
}

// DefaultConfig returns the standard TTLs.
func DefaultConfig() Config {
	return Config{
		HitTTL:         DefaultHitTTL,
		MissTTL:        DefaultMissTTL,
		StaleRetention: cache.DefaultStaleRetention,
	}
}

// Service resolves tracks to catalog enrichments with read-through caching.
type Service struct {
	codec    *cache.Codec[Enrichment]
	catalog  CatalogProvider
	resolver IdentifierResolver
	sched    *schedule.Scheduler
	logger   zerolog.Logger
}

// New creates a catalog service. resolver may be nil, in which case tracks
// without a usable ISRC are recorded as misses.
func New(cfg Config, store kv.Store, catalog CatalogProvider, resolver IdentifierResolver, sched *schedule.Scheduler, logger zerolog.Logger) *Service {
	if cfg.HitTTL <= 0 {
		cfg.HitTTL = DefaultHitTTL
	}
	if cfg.MissTTL <= 0 {
		cfg.MissTTL = DefaultMissTTL
	}
	policy := cache.Policy{HitTTL: cfg.HitTTL, MissTTL: cfg.MissTTL}

	return &Service{
		codec:    cache.NewCodec[Enrichment](store, policy, cfg.StaleRetention),
		catalog:  catalog,
		resolver: resolver,
		sched:    sched,
		logger:   logger.With().Str("component", "catalog").Logger(),
	}
}

// SetClock overrides the clock used to stamp and age cache entries.
func (s *Service) SetClock(now func() time.Time) {
	s.codec.SetClock(now)
}

// EnrichTrack returns the catalog enrichment for track.
//
// A fresh cache entry is returned without any network call. A track the
// catalog does not know yields an all-nil Enrichment and no error. Upstream
// failures are returned after a short-lived miss is cached, unless a
// previous hit exists, which is left untouched.
func (s *Service) EnrichTrack(ctx context.Context, track music.Track) (Enrichment, error) {
	if track.ID == "" {
		return Enrichment{}, ErrInvalidTrack
	}

	key := CacheKey(track.ID)
	prev, err := s.codec.Load(ctx, key)
	if err != nil {
		return Enrichment{}, fmt.Errorf("failed to load %s: %w", key, err)
	}
	if prev != nil && prev.Fresh(s.codec.Now()) {
		return prev.Payload, nil
	}

	result, err := s.lookup(ctx, track)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Enrichment{}, ctxErr
		}

		s.logger.Warn().
			Err(err).
			Str("track_id", track.ID).
			Str("artist", track.Artist).
			Str("title", track.Title).
			Msg("Catalog lookup failed")

		if prev == nil || prev.IsMiss {
			if _, saveErr := s.codec.Save(ctx, key, Enrichment{}, true); saveErr != nil {
				return Enrichment{}, fmt.Errorf("failed to store %s: %w", key, saveErr)
			}
		}
		return Enrichment{}, fmt.Errorf("catalog lookup for %s: %w", track.ID, err)
	}

	merged := Merge(prev, result)
	if _, err := s.codec.Save(ctx, key, merged, merged.IsMiss()); err != nil {
		return Enrichment{}, fmt.Errorf("failed to store %s: %w", key, err)
	}

	s.logger.Debug().
		Str("track_id", track.ID).
		Str("source", string(merged.Source)).
		Bool("has_bpm", merged.BPM != nil).
		Msg("Track enriched")

	return merged, nil
}

// lookup does the uncached part of EnrichTrack: pick an identifier, then
// query the catalog.
func (s *Service) lookup(ctx context.Context, track music.Track) (Enrichment, error) {
	isrc := NormalizeISRC(track.ISRC)
	source := SourceCatalog

	if !isrcPattern.MatchString(isrc) {
		isrc = s.resolve(ctx, track)
		if isrc == "" {
			if err := ctx.Err(); err != nil {
				return Enrichment{}, err
			}
			return Enrichment{}, nil
		}
		source = SourceSecondary
	}

	dt, err := schedule.Do(ctx, s.sched, schedule.Deezer, func(ctx context.Context) (*deezer.Track, error) {
		return s.catalog.GetTrackByISRC(ctx, isrc)
	})
	if errors.Is(err, deezer.ErrNotFound) {
		return Enrichment{}, nil
	}
	if err != nil {
		return Enrichment{}, err
	}

	return fromCatalog(dt, source), nil
}

// resolve asks the identifier resolver for an ISRC. Any failure means no
// identifier.
func (s *Service) resolve(ctx context.Context, track music.Track) string {
	if s.resolver == nil || track.Artist == "" || track.Title == "" {
		return ""
	}

	isrc, err := schedule.Do(ctx, s.sched, schedule.MusicBrainz, func(ctx context.Context) (string, error) {
		return s.resolver.ResolveISRC(ctx, track.Artist, track.Title, track.DurationMs())
	})
	if err != nil {
		s.logger.Debug().
			Err(err).
			Str("track_id", track.ID).
			Msg("No identifier resolved")
		return ""
	}

	isrc = NormalizeISRC(isrc)
	if !isrcPattern.MatchString(isrc) {
		return ""
	}
	return isrc
}

func fromCatalog(dt *deezer.Track, source Source) Enrichment {
	e := Enrichment{Source: source}

	if bpm := dt.BPM; IsValidBPM(&bpm) {
		e.BPM = &bpm
	}
	if rank := dt.Rank; rank > 0 {
		e.Rank = &rank
	}
	if dt.Gain != nil {
		gain := *dt.Gain
		e.Gain = &gain
	}
	if date := dt.ReleaseDate; date != "" && date != "0000-00-00" {
		e.ReleaseDate = &date
	}
	return e
}

// BatchEnrichTracks enriches tracks one after another and returns one entry
// per track ID. Every track must have an ID; otherwise the call fails with
// ErrInvalidTrack before any lookup. A failure for a single track leaves an
// all-nil entry for it. onProgress, if non-nil, is called after each track.
func (s *Service) BatchEnrichTracks(ctx context.Context, tracks []music.Track, onProgress func(done, total int)) (map[string]Enrichment, error) {
	for i, t := range tracks {
		if t.ID == "" {
			return nil, fmt.Errorf("track %d: %w", i, ErrInvalidTrack)
		}
	}

	results := make(map[string]Enrichment, len(tracks))
	failed := 0
	for i, t := range tracks {
		e, err := s.EnrichTrack(ctx, t)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			failed++
			e = Enrichment{}
		}
		results[t.ID] = e

		if onProgress != nil {
			onProgress(i+1, len(tracks))
		}
	}

	s.logger.Info().
		Int("tracks", len(tracks)).
		Int("failed", failed).
		Msg("Catalog batch complete")

	return results, nil
}
