package catalog

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/jfmyers9/crate/internal/cache"
)

func floatPtr(v float64) *float64 { return &v }
func intPtr(v int) *int           { return &v }
func strPtr(v string) *string     { return &v }

func TestIsValidBPM(t *testing.T) {
	tests := []struct {
		name string
		bpm  *float64
		want bool
	}{
		{"nil", nil, false},
		{"below range", floatPtr(44), false},
		{"lower bound", floatPtr(45), true},
		{"typical", floatPtr(120), true},
		{"upper bound", floatPtr(220), true},
		{"above range", floatPtr(221), false},
		{"zero", floatPtr(0), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsValidBPM(tt.bpm); got != tt.want {
				t.Errorf("IsValidBPM() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsPlausibleISRC(t *testing.T) {
	tests := []struct {
		isrc string
		want bool
	}{
		{"GBUM71029604", true},
		{"gbum71029604", true},
		{"GB-UM7-10-29604", true},
		{"GB UM7 10 29604", true},
		{"", false},
		{"GBUM7102960", false},
		{"GBUM7102960X", false},
		{"12UM71029604", false},
	}

	for _, tt := range tests {
		if got := IsPlausibleISRC(tt.isrc); got != tt.want {
			t.Errorf("IsPlausibleISRC(%q) = %v, want %v", tt.isrc, got, tt.want)
		}
	}
}

func TestMerge(t *testing.T) {
	hit := Enrichment{
		BPM:         floatPtr(120),
		Rank:        intPtr(5000),
		Gain:        floatPtr(-8),
		ReleaseDate: strPtr("2010-01-01"),
		Source:      SourceCatalog,
	}
	staleHit := &cache.Envelope[Enrichment]{Payload: hit, FetchedAt: time.Unix(0, 0), TTLSeconds: 1}
	staleMiss := &cache.Envelope[Enrichment]{Payload: Enrichment{}, FetchedAt: time.Unix(0, 0), TTLSeconds: 1, IsMiss: true}

	t.Run("no previous", func(t *testing.T) {
		next := Enrichment{Rank: intPtr(1), Source: SourceCatalog}
		got := Merge(nil, next)
		if got.Rank == nil || *got.Rank != 1 || got.BPM != nil {
			t.Errorf("unexpected merge: %+v", got)
		}
	})

	t.Run("previous miss is replaced", func(t *testing.T) {
		got := Merge(staleMiss, Enrichment{})
		if got.Source != SourceNone || got.BPM != nil {
			t.Errorf("unexpected merge: %+v", got)
		}
	})

	t.Run("previous hit keeps fields the new result lacks", func(t *testing.T) {
		next := Enrichment{Rank: intPtr(9000), Source: SourceSecondary}
		got := Merge(staleHit, next)
		if got.BPM == nil || *got.BPM != 120 {
			t.Errorf("expected bpm 120 kept, got %v", got.BPM)
		}
		if *got.Rank != 9000 {
			t.Errorf("expected new rank 9000, got %d", *got.Rank)
		}
		if got.Source != SourceSecondary {
			t.Errorf("expected new source, got %q", got.Source)
		}
	})

	t.Run("previous hit survives an empty result", func(t *testing.T) {
		got := Merge(staleHit, Enrichment{})
		if got.Source != SourceCatalog || got.ReleaseDate == nil || *got.ReleaseDate != "2010-01-01" {
			t.Errorf("expected previous hit, got %+v", got)
		}
	})
}

func TestSourceJSON(t *testing.T) {
	data, err := json.Marshal(Enrichment{})
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	want := `{"bpm":null,"rank":null,"gain":null,"releaseDate":null,"source":null}`
	if string(data) != want {
		t.Errorf("got %s, want %s", data, want)
	}

	var e Enrichment
	if err := json.Unmarshal([]byte(`{"bpm":99.5,"source":"deezer-via-musicbrainz"}`), &e); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if e.Source != SourceSecondary || e.BPM == nil || *e.BPM != 99.5 {
		t.Errorf("unexpected decode: %+v", e)
	}

	if err := json.Unmarshal([]byte(`{"source":null}`), &e); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if e.Source != SourceNone {
		t.Errorf("expected SourceNone, got %q", e.Source)
	}
}
