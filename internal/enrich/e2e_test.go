package enrich

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/jfmyers9/crate/internal/catalog"
	"github.com/jfmyers9/crate/internal/kv"
	"github.com/jfmyers9/crate/internal/music"
	"github.com/jfmyers9/crate/internal/schedule"
	"github.com/jfmyers9/crate/internal/signals"
	"github.com/jfmyers9/crate/pkg/deezer"
	"github.com/jfmyers9/crate/pkg/lastfm"
	"github.com/jfmyers9/crate/pkg/musicbrainz"
)

// upstream fakes the Deezer, MusicBrainz and Last.fm HTTP APIs behind one
// server and counts requests per path prefix.
type upstream struct {
	mu    sync.Mutex
	calls map[string]int
}

func (u *upstream) count(name string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.calls[name]++
}

func (u *upstream) total() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	n := 0
	for _, c := range u.calls {
		n += c
	}
	return n
}

func (u *upstream) get(name string) int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.calls[name]
}

func (u *upstream) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/deezer/", func(w http.ResponseWriter, r *http.Request) {
		u.count("deezer")
		isrc := strings.TrimPrefix(r.URL.Path, "/deezer/track/isrc:")
		switch isrc {
		case "GBUM71029604":
			fmt.Fprint(w, `{"id":11,"title":"The Flood","isrc":"GBUM71029604","bpm":120,"rank":500000,"gain":-8.5,"release_date":"2010-11-15"}`)
		case "GBDUW0000059":
			fmt.Fprint(w, `{"id":12,"title":"One More Time","isrc":"GBDUW0000059","bpm":123,"rank":800000,"gain":-9.1,"release_date":"2000-11-13"}`)
		default:
			fmt.Fprint(w, `{"error":{"type":"DataException","message":"no data","code":800}}`)
		}
	})

	mux.HandleFunc("/mb/recording", func(w http.ResponseWriter, r *http.Request) {
		u.count("musicbrainz")
		if !strings.Contains(r.URL.Query().Get("query"), "One More Time") {
			fmt.Fprint(w, `{"count":0,"recordings":[]}`)
			return
		}
		fmt.Fprint(w, `{"count":2,"recordings":[
			{"id":"a","title":"One More Time","score":100,"length":320357,"isrcs":["gbduw0000059"]},
			{"id":"b","title":"One More Time (radio edit)","score":95,"length":225000,"isrcs":["GBDUW0000060"]}
		]}`)
	})

	mux.HandleFunc("/lastfm/", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("failed to parse form: %v", err)
		}
		method := r.FormValue("method")
		u.count(method)

		artist := strings.ToLower(r.FormValue("artist"))
		switch {
		case method == "track.getInfo" && artist == "take that":
			fmt.Fprint(w, `<lfm status="ok"><track><name>The Flood</name><listeners>300</listeners><playcount>3000</playcount>
				<artist><name>Take That</name></artist>
				<album><artist>Take That</artist><title>Progress</title></album>
				<toptags><tag><name>pop</name><count>100</count></tag><tag><name>british</name><count>50</count></tag></toptags>
				</track></lfm>`)
		case method == "track.getInfo" && artist == "daft punk":
			fmt.Fprint(w, `<lfm status="ok"><track><name>One More Time</name><listeners>1000</listeners><playcount>9000</playcount>
				<artist><name>Daft Punk</name></artist>
				<toptags><tag><name>House</name><count>80</count></tag></toptags>
				</track></lfm>`)
		case method == "track.getSimilar":
			fmt.Fprint(w, `<lfm status="ok"><similartracks></similartracks></lfm>`)
		case method == "artist.getInfo" && (artist == "take that" || artist == "daft punk"):
			fmt.Fprintf(w, `<lfm status="ok"><artist><name>%s</name><stats><listeners>2000000</listeners></stats>
				<bio><summary>Bio.</summary></bio><tags><tag><name>pop</name></tag></tags></artist></lfm>`, r.FormValue("artist"))
		default:
			fmt.Fprint(w, `<lfm status="failed"><error code="6">Not found</error></lfm>`)
		}
	})

	return mux
}

func newUpstreamPipeline(t *testing.T) (*Pipeline, *upstream) {
	t.Helper()

	up := &upstream{calls: map[string]int{}}
	server := httptest.NewServer(up.handler(t))
	t.Cleanup(server.Close)

	dz := deezer.NewClient(deezer.WithBaseURL(server.URL + "/deezer"))
	mb := musicbrainz.NewClient(musicbrainz.WithBaseURL(server.URL + "/mb"))
	fm, err := lastfm.NewClient(lastfm.Config{
		APIKey:  "test-api-key",
		BaseURL: server.URL + "/lastfm/",
		Logger:  NewLastFMLogger(zerolog.Nop()),
	})
	if err != nil {
		t.Fatalf("failed to create Last.fm client: %v", err)
	}

	store := kv.NewMemory()
	sched := schedule.New(map[string]time.Duration{
		schedule.Deezer:      time.Millisecond,
		schedule.MusicBrainz: time.Millisecond,
		schedule.LastFM:      time.Millisecond,
	}, 0)

	cat := catalog.New(catalog.DefaultConfig(), store, dz, mb, sched, zerolog.Nop())
	sig := signals.New(signals.DefaultConfig(), store, signals.NewLastFM(fm), sched, zerolog.Nop())

	return New(cat, sig, zerolog.Nop()), up
}

func TestPipeline_EndToEnd(t *testing.T) {
	p, up := newUpstreamPipeline(t)
	ctx := context.Background()

	tracks := []music.Track{
		{ID: "t1", Artist: "Take That", Title: "The Flood", ISRC: "GBUM71029604"},
		{ID: "t2", Artist: "Daft Punk", Title: "One More Time", Duration: 320 * time.Second},
		{ID: "t3", Artist: "Nobody", Title: "Nothing", ISRC: "USXXX0000001"},
	}

	res, err := p.Run(ctx, tracks, Options{})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	t.Run("catalog", func(t *testing.T) {
		t1 := res.Catalog["t1"]
		if t1.Source != catalog.SourceCatalog || t1.BPM == nil || *t1.BPM != 120 {
			t.Errorf("t1 = %+v, want deezer source with bpm 120", t1)
		}
		t2 := res.Catalog["t2"]
		if t2.Source != catalog.SourceSecondary || t2.BPM == nil || *t2.BPM != 123 {
			t.Errorf("t2 = %+v, want deezer-via-musicbrainz with bpm 123", t2)
		}
		if t2.ReleaseDate == nil || *t2.ReleaseDate != "2000-11-13" {
			t.Errorf("t2 release date = %v, want 2000-11-13", t2.ReleaseDate)
		}
		if !res.Catalog["t3"].IsMiss() {
			t.Errorf("t3 = %+v, want miss", res.Catalog["t3"])
		}
	})

	t.Run("signals", func(t *testing.T) {
		t1 := res.Signals["t1"]
		if t1 == nil {
			t.Fatal("expected signals for t1")
		}
		if t1.Album == nil || t1.Album.Title != "Progress" {
			t.Errorf("t1 album = %+v, want Progress", t1.Album)
		}
		if t1.ArtistInfo == nil || t1.ArtistInfo.Listeners != 2000000 {
			t.Errorf("t1 artist info = %+v, want attached", t1.ArtistInfo)
		}
		if res.Signals["t3"] != nil {
			t.Errorf("t3 signals = %+v, want nil", res.Signals["t3"])
		}
		if len(res.Artists) != 2 {
			t.Errorf("got %d artists, want 2", len(res.Artists))
		}
	})

	t.Run("aggregates", func(t *testing.T) {
		got := map[string]float64{}
		for _, tc := range res.Tags {
			got[tc.Tag] = tc.Count
		}
		want := map[string]float64{"pop": 1, "house": 1, "british": 0.5}
		if len(got) != len(want) {
			t.Fatalf("tags = %v, want %v", res.Tags, want)
		}
		for tag, w := range want {
			if got[tag] != w {
				t.Errorf("tag %q = %v, want %v", tag, got[tag], w)
			}
		}
		if res.Popularity.AvgListeners != 650 {
			t.Errorf("AvgListeners = %v, want 650", res.Popularity.AvgListeners)
		}
	})

	if n := up.get("musicbrainz"); n != 1 {
		t.Errorf("musicbrainz calls = %d, want 1", n)
	}
	if n := up.get("artist.getInfo"); n != 2 {
		t.Errorf("artist.getInfo calls = %d, want 2", n)
	}

	// Hits and misses are both cached, so a rerun stays local.
	before := up.total()
	again, err := p.Run(ctx, tracks, Options{})
	if err != nil {
		t.Fatalf("second Run() error = %v", err)
	}
	if after := up.total(); after != before {
		t.Errorf("second run made %d upstream calls, want 0", after-before)
	}
	if *again.Catalog["t2"].BPM != 123 || again.Signals["t1"].ArtistInfo == nil {
		t.Errorf("second run returned different data: %+v", again)
	}
}
