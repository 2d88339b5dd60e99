package signals

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/jfmyers9/crate/internal/cache"
	"github.com/jfmyers9/crate/internal/kv"
	"github.com/jfmyers9/crate/internal/music"
	"github.com/jfmyers9/crate/internal/schedule"
	"github.com/jfmyers9/crate/pkg/lastfm"
)

// Default cache lifetimes and lookup sizes.
const (
	DefaultHitTTL       = 7 * 24 * time.Hour
	DefaultMissTTL      = 5 * time.Minute
	DefaultSimilarLimit = 20
)

// Config holds service settings.
type Config struct {
	HitTTL         time.Duration
	MissTTL        time.Duration
	StaleRetention time.Duration
	SimilarLimit   int
}

// DefaultConfig returns the standard settings.
func DefaultConfig() Config {
	return Config{
		HitTTL:         DefaultHitTTL,
		MissTTL:        DefaultMissTTL,
		StaleRetention: cache.DefaultStaleRetention,
		SimilarLimit:   DefaultSimilarLimit,
	}
}

// Service fetches and caches track signals and artist info.
type Service struct {
	tracks   *cache.Codec[*Signals]
	artists  *cache.Codec[*ArtistInfo]
	provider Provider
	sched    *schedule.Scheduler
	similar  int
	logger   zerolog.Logger
}

// New creates a signals service.
func New(cfg Config, store kv.Store, provider Provider, sched *schedule.Scheduler, logger zerolog.Logger) *Service {
	if cfg.HitTTL <= 0 {
		cfg.HitTTL = DefaultHitTTL
	}
	if cfg.MissTTL <= 0 {
		cfg.MissTTL = DefaultMissTTL
	}
	if cfg.SimilarLimit <= 0 {
		cfg.SimilarLimit = DefaultSimilarLimit
	}
	policy := cache.Policy{HitTTL: cfg.HitTTL, MissTTL: cfg.MissTTL}

	return &Service{
		tracks:   cache.NewCodec[*Signals](store, policy, cfg.StaleRetention),
		artists:  cache.NewCodec[*ArtistInfo](store, policy, cfg.StaleRetention),
		provider: provider,
		sched:    sched,
		similar:  cfg.SimilarLimit,
		logger:   logger.With().Str("component", "signals").Logger(),
	}
}

// SetClock overrides the clock used to stamp and age cache entries.
func (s *Service) SetClock(now func() time.Time) {
	s.tracks.SetClock(now)
	s.artists.SetClock(now)
}

// GetTrackSignals returns the signals for ref, or nil when Last.fm does
// not know the track. A fresh cache entry is returned as stored, including
// a nil ArtistInfo if artist info was never attached. Unless
// skipArtistInfo is set, artist info is resolved and attached before the
// result is stored.
func (s *Service) GetTrackSignals(ctx context.Context, ref music.Ref, skipArtistInfo bool) (*Signals, error) {
	key := GenerateCacheKey(ref.Artist, ref.Title)

	prev, err := s.tracks.Load(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", key, err)
	}
	if prev != nil && prev.Fresh(s.tracks.Now()) {
		return prev.Payload, nil
	}

	info, err := schedule.Do(ctx, s.sched, schedule.LastFM, func(ctx context.Context) (*lastfm.TrackInfo, error) {
		return s.provider.TrackInfo(ctx, ref.Artist, ref.Title)
	})
	if lastfm.IsNotFound(err) {
		s.logger.Debug().
			Str("artist", ref.Artist).
			Str("title", ref.Title).
			Msg("Track not found on Last.fm")
		if _, err := s.tracks.Save(ctx, key, nil, true); err != nil {
			return nil, fmt.Errorf("failed to store %s: %w", key, err)
		}
		return nil, nil
	}
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		s.logger.Warn().
			Err(err).
			Str("artist", ref.Artist).
			Str("title", ref.Title).
			Msg("Track info lookup failed")
		if prev == nil || prev.IsMiss {
			if _, saveErr := s.tracks.Save(ctx, key, nil, true); saveErr != nil {
				return nil, fmt.Errorf("failed to store %s: %w", key, saveErr)
			}
		}
		return nil, fmt.Errorf("track info for %q by %q: %w", ref.Title, ref.Artist, err)
	}

	sig := &Signals{
		Listeners:       info.Listeners,
		Playcount:       info.Playcount,
		TopTags:         normalizeTags(info.TopTags),
		CanonicalArtist: firstNonEmpty(info.Artist, ref.Artist),
		CanonicalTrack:  firstNonEmpty(info.Name, ref.Title),
		Similar:         []SimilarTrack{},
	}
	if info.Album != nil {
		sig.Album = &Album{Title: info.Album.Title, Artist: info.Album.Artist}
	}

	similar, err := schedule.Do(ctx, s.sched, schedule.LastFM, func(ctx context.Context) ([]lastfm.SimilarTrack, error) {
		return s.provider.SimilarTracks(ctx, sig.CanonicalArtist, sig.CanonicalTrack, s.similar)
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		s.logger.Debug().
			Err(err).
			Str("artist", sig.CanonicalArtist).
			Str("title", sig.CanonicalTrack).
			Msg("Similar tracks lookup failed")
	}
	for _, st := range similar {
		sig.Similar = append(sig.Similar, SimilarTrack{Name: st.Name, Artist: st.Artist, Match: st.Match})
	}

	if !skipArtistInfo {
		artist, err := s.GetArtistInfo(ctx, sig.CanonicalArtist)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			s.logger.Debug().
				Err(err).
				Str("key", key).
				Str("artist", ref.Artist).
				Str("title", ref.Title).
				Msg("Artist info lookup failed, storing signals without it")
		} else {
			sig.ArtistInfo = artist
		}
	}

	if _, err := s.tracks.Save(ctx, key, sig, false); err != nil {
		return nil, fmt.Errorf("failed to store %s: %w", key, err)
	}
	return sig, nil
}

// GetArtistInfo returns artist info for name, or nil when Last.fm does not
// know the artist.
func (s *Service) GetArtistInfo(ctx context.Context, name string) (*ArtistInfo, error) {
	key := ArtistCacheKey(name)

	prev, err := s.artists.Load(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", key, err)
	}
	if prev != nil && prev.Fresh(s.artists.Now()) {
		return prev.Payload, nil
	}

	info, err := schedule.Do(ctx, s.sched, schedule.LastFM, func(ctx context.Context) (*lastfm.ArtistInfo, error) {
		return s.provider.ArtistInfo(ctx, name)
	})
	if lastfm.IsNotFound(err) {
		if _, err := s.artists.Save(ctx, key, nil, true); err != nil {
			return nil, fmt.Errorf("failed to store %s: %w", key, err)
		}
		return nil, nil
	}
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		s.logger.Warn().
			Err(err).
			Str("artist", name).
			Msg("Artist info lookup failed")
		if prev == nil || prev.IsMiss {
			if _, saveErr := s.artists.Save(ctx, key, nil, true); saveErr != nil {
				return nil, fmt.Errorf("failed to store %s: %w", key, saveErr)
			}
		}
		return nil, fmt.Errorf("artist info for %q: %w", name, err)
	}

	artist := &ArtistInfo{
		Name:      firstNonEmpty(info.Name, name),
		Tags:      append([]string{}, info.Tags...),
		Similar:   append([]string{}, info.Similar...),
		Listeners: info.Listeners,
	}
	if info.Bio != "" {
		bio := info.Bio
		artist.Bio = &bio
	}

	if _, err := s.artists.Save(ctx, key, artist, false); err != nil {
		return nil, fmt.Errorf("failed to store %s: %w", key, err)
	}
	return artist, nil
}

// BatchGetSignals fetches signals for each ref in turn. The result is keyed
// by GenerateCacheKey, so refs naming the same track collapse into one
// entry. A failed lookup leaves a nil entry. onProgress, if non-nil, is
// called after each unique track.
func (s *Service) BatchGetSignals(ctx context.Context, refs []music.Ref, skipArtistInfo bool, onProgress func(done, total int)) (map[string]*Signals, error) {
	type job struct {
		key string
		ref music.Ref
	}

	var jobs []job
	seen := make(map[string]bool, len(refs))
	for _, ref := range refs {
		key := GenerateCacheKey(ref.Artist, ref.Title)
		if seen[key] {
			continue
		}
		seen[key] = true
		jobs = append(jobs, job{key: key, ref: ref})
	}

	results := make(map[string]*Signals, len(jobs))
	for i, j := range jobs {
		sig, err := s.GetTrackSignals(ctx, j.ref, skipArtistInfo)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			sig = nil
		}
		results[j.key] = sig

		if onProgress != nil {
			onProgress(i+1, len(jobs))
		}
	}

	return results, nil
}

// BatchGetArtistInfo resolves each distinct artist once. Names are grouped
// by ArtistKey before any lookup and the result is keyed the same way.
// Failed or unknown artists map to nil. onProgress, if non-nil, is called
// after each unique artist, cached or fetched.
func (s *Service) BatchGetArtistInfo(ctx context.Context, names []string, onProgress func(done, total int)) (map[string]*ArtistInfo, error) {
	var unique []string
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		k := ArtistKey(name)
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		unique = append(unique, strings.TrimSpace(name))
	}

	results := make(map[string]*ArtistInfo, len(unique))
	for i, name := range unique {
		info, err := s.GetArtistInfo(ctx, name)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			info = nil
		}
		results[ArtistKey(name)] = info

		if onProgress != nil {
			onProgress(i+1, len(unique))
		}
	}

	return results, nil
}

// UpdateCachedSignals overwrites the stored signals under key. The
// original fetch time is kept when an entry exists, so the update does not
// extend its freshness.
func (s *Service) UpdateCachedSignals(ctx context.Context, key string, sig *Signals) error {
	prev, err := s.tracks.Load(ctx, key)
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", key, err)
	}

	isMiss := sig == nil
	env := &cache.Envelope[*Signals]{
		Payload:    sig,
		FetchedAt:  s.tracks.Now(),
		TTLSeconds: int64(s.tracks.Policy().TTLFor(isMiss) / time.Second),
		IsMiss:     isMiss,
	}
	if prev != nil {
		env.FetchedAt = prev.FetchedAt
	}

	if err := s.tracks.Write(ctx, key, env); err != nil {
		return fmt.Errorf("failed to store %s: %w", key, err)
	}
	return nil
}

// normalizeTags converts Last.fm tags to weighted tags. When Last.fm
// reports counts, weights are count divided by the largest count;
// otherwise every tag weighs 1.
func normalizeTags(in []lastfm.Tag) []Tag {
	maxCount := 0
	for _, t := range in {
		if t.Count > maxCount {
			maxCount = t.Count
		}
	}

	tags := make([]Tag, 0, len(in))
	for _, t := range in {
		w := 1.0
		if maxCount > 0 {
			w = float64(t.Count) / float64(maxCount)
		}
		tags = append(tags, Tag{Name: t.Name, Weight: w})
	}
	return tags
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
