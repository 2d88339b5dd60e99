package enrich

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jfmyers9/crate/internal/catalog"
	"github.com/jfmyers9/crate/internal/kv"
	"github.com/jfmyers9/crate/internal/music"
	"github.com/jfmyers9/crate/internal/schedule"
	"github.com/jfmyers9/crate/internal/signals"
	"github.com/jfmyers9/crate/pkg/deezer"
	"github.com/jfmyers9/crate/pkg/lastfm"
)

type fakeDeezer struct{}

func (fakeDeezer) GetTrackByISRC(ctx context.Context, isrc string) (*deezer.Track, error) {
	switch isrc {
	case "GBUM71029604":
		return &deezer.Track{ID: 1, BPM: 128, Rank: 500000, ReleaseDate: "2010-11-22"}, nil
	case "USUM70000001":
		return &deezer.Track{ID: 2, BPM: 95, Rank: 1000}, nil
	}
	return nil, deezer.ErrNotFound
}

type fakeLastFM struct {
	mu          sync.Mutex
	artistCalls map[string]int
}

func (f *fakeLastFM) TrackInfo(ctx context.Context, artist, title string) (*lastfm.TrackInfo, error) {
	switch strings.ToLower(title) {
	case "the flood":
		return &lastfm.TrackInfo{Name: "The Flood", Artist: "Take That", Listeners: 300, Playcount: 3000,
			TopTags: []lastfm.Tag{{Name: "pop", Count: 10}, {Name: "british", Count: 5}}}, nil
	case "patience":
		return &lastfm.TrackInfo{Name: "Patience", Artist: "Take That", Listeners: 100, Playcount: 1000,
			TopTags: []lastfm.Tag{{Name: "Pop", Count: 4}}}, nil
	}
	return nil, lastfm.ErrNotFound
}

func (f *fakeLastFM) SimilarTracks(ctx context.Context, artist, title string, limit int) ([]lastfm.SimilarTrack, error) {
	return nil, nil
}

func (f *fakeLastFM) ArtistInfo(ctx context.Context, artist string) (*lastfm.ArtistInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.artistCalls[strings.ToLower(artist)]++
	if strings.EqualFold(artist, "take that") {
		return &lastfm.ArtistInfo{Name: "Take That", Bio: "Boy band.", Listeners: 2000000}, nil
	}
	return nil, lastfm.ErrNotFound
}

type testEnv struct {
	pipeline *Pipeline
	signals  *signals.Service
	lastfm   *fakeLastFM
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store := kv.NewMemory()
	sched := schedule.New(nil, 0)
	fm := &fakeLastFM{artistCalls: map[string]int{}}

	cat := catalog.New(catalog.DefaultConfig(), store, fakeDeezer{}, nil, sched, zerolog.Nop())
	sig := signals.New(signals.DefaultConfig(), store, fm, sched, zerolog.Nop())

	return &testEnv{
		pipeline: New(cat, sig, zerolog.Nop()),
		signals:  sig,
		lastfm:   fm,
	}
}

var testTracks = []music.Track{
	{ID: "t1", Title: "The Flood", Artist: "Take That", ISRC: "GBUM71029604"},
	{ID: "t2", Title: "Patience", Artist: "take that", ISRC: "USUM70000001"},
	{ID: "t3", Title: "Unknown Song", Artist: "Nobody", ISRC: "bogus"},
	{ID: "t4", Title: "the flood", Artist: "TAKE THAT"},
}

func TestPipeline_Run(t *testing.T) {
	env := newTestEnv(t)

	var mu sync.Mutex
	stages := map[string]Progress{}
	res, err := env.pipeline.Run(context.Background(), testTracks, Options{
		OnProgress: func(p Progress) {
			mu.Lock()
			defer mu.Unlock()
			stages[p.Stage] = p
		},
	})
	if err != nil {
		t.Fatalf("Run() failed: %v", err)
	}

	if _, err := uuid.Parse(res.RunID); err != nil {
		t.Errorf("RunID %q is not a UUID: %v", res.RunID, err)
	}

	if len(res.Catalog) != 4 {
		t.Errorf("expected 4 catalog entries, got %d", len(res.Catalog))
	}
	if e := res.Catalog["t1"]; e.BPM == nil || *e.BPM != 128 || e.Source != catalog.SourceCatalog {
		t.Errorf("unexpected t1 enrichment: %+v", e)
	}
	if e := res.Catalog["t3"]; e.Source != catalog.SourceNone {
		t.Errorf("expected miss for t3, got %+v", e)
	}

	if len(res.Signals) != 4 {
		t.Fatalf("expected 4 signal entries, got %d", len(res.Signals))
	}
	if res.Signals["t3"] != nil {
		t.Errorf("expected nil signals for t3, got %+v", res.Signals["t3"])
	}
	if res.Signals["t1"] != res.Signals["t4"] {
		t.Error("t1 and t4 name the same track and should share signals")
	}
	if info := res.Signals["t2"].ArtistInfo; info == nil || info.Listeners != 2000000 {
		t.Errorf("expected artist info attached to t2, got %+v", info)
	}

	if len(res.Artists) != 1 || res.Artists["take that"] == nil {
		t.Errorf("unexpected artists: %+v", res.Artists)
	}
	if env.lastfm.artistCalls["take that"] != 1 {
		t.Errorf("expected one artist lookup, got %d", env.lastfm.artistCalls["take that"])
	}

	if len(res.Tags) == 0 || res.Tags[0] != (signals.TagCount{Tag: "pop", Count: 2}) {
		t.Errorf("unexpected tags: %+v", res.Tags)
	}
	if res.Popularity.AvgListeners != 200 || res.Popularity.AvgPlaycount != 2000 {
		t.Errorf("unexpected popularity: %+v", res.Popularity)
	}

	want := map[string]Progress{
		StageCatalog: {Stage: StageCatalog, Done: 4, Total: 4},
		StageSignals: {Stage: StageSignals, Done: 3, Total: 3},
		StageArtists: {Stage: StageArtists, Done: 1, Total: 1},
	}
	for stage, p := range want {
		if stages[stage] != p {
			t.Errorf("final %s progress = %+v, want %+v", stage, stages[stage], p)
		}
	}
}

func TestPipeline_PersistsAttachedArtistInfo(t *testing.T) {
	env := newTestEnv(t)

	if _, err := env.pipeline.Run(context.Background(), testTracks[:1], Options{SkipCatalog: true}); err != nil {
		t.Fatalf("Run() failed: %v", err)
	}

	sig, err := env.signals.GetTrackSignals(context.Background(), testTracks[0].Ref(), true)
	if err != nil {
		t.Fatalf("GetTrackSignals() failed: %v", err)
	}
	if sig == nil || sig.ArtistInfo == nil || sig.ArtistInfo.Name != "Take That" {
		t.Errorf("expected cached signals to carry artist info, got %+v", sig)
	}
}

func TestPipeline_SkipFlags(t *testing.T) {
	tests := []struct {
		name        string
		opts        Options
		wantCatalog bool
		wantSignals bool
		wantArtists bool
	}{
		{"skip catalog", Options{SkipCatalog: true}, false, true, true},
		{"skip signals", Options{SkipSignals: true}, true, false, false},
		{"skip artists", Options{SkipArtists: true}, true, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)

			res, err := env.pipeline.Run(context.Background(), testTracks, tt.opts)
			if err != nil {
				t.Fatalf("Run() failed: %v", err)
			}
			if got := len(res.Catalog) > 0; got != tt.wantCatalog {
				t.Errorf("catalog populated = %v, want %v", got, tt.wantCatalog)
			}
			if got := len(res.Signals) > 0; got != tt.wantSignals {
				t.Errorf("signals populated = %v, want %v", got, tt.wantSignals)
			}
			if got := len(res.Artists) > 0; got != tt.wantArtists {
				t.Errorf("artists populated = %v, want %v", got, tt.wantArtists)
			}
			if tt.opts.SkipArtists && res.Signals["t1"].ArtistInfo != nil {
				t.Error("artist info attached despite SkipArtists")
			}
		})
	}
}

func TestPipeline_InvalidTrack(t *testing.T) {
	env := newTestEnv(t)

	tracks := append([]music.Track{}, testTracks...)
	tracks = append(tracks, music.Track{Title: "No ID", Artist: "Take That"})

	_, err := env.pipeline.Run(context.Background(), tracks, Options{})
	if !errors.Is(err, catalog.ErrInvalidTrack) {
		t.Fatalf("expected ErrInvalidTrack, got %v", err)
	}
	if len(env.lastfm.artistCalls) != 0 {
		t.Error("no lookups should happen for invalid input")
	}
}

func TestPipeline_Cancelled(t *testing.T) {
	env := newTestEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := env.pipeline.Run(ctx, testTracks, Options{}); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

type recordingLogger struct {
	buf strings.Builder
}

func (r *recordingLogger) Write(p []byte) (int, error) {
	return r.buf.Write(p)
}

func TestNewLastFMLogger(t *testing.T) {
	var out recordingLogger
	logger := zerolog.New(&out).Level(zerolog.DebugLevel)

	NewLastFMLogger(logger).Debugf("lastfm: calling %s", "track.getInfo")

	got := out.buf.String()
	if !strings.Contains(got, "lastfm: calling track.getInfo") {
		t.Errorf("message not logged: %s", got)
	}
	if !strings.Contains(got, `"component":"lastfm"`) {
		t.Errorf("component field missing: %s", got)
	}
}
