package music

import (
	"context"
	"time"
)

// Track represents a track to enrich, identified by sparse metadata
type Track struct {
	ID       string        // Caller-assigned identifier, unique within a batch
	Title    string        // Track title
	Artist   string        // Primary artist name
	Album    string        // Album name, may be empty
	Duration time.Duration // Track duration, zero when unknown
	ISRC     string        // International Standard Recording Code, may be empty
}

// DurationMs returns the duration in whole milliseconds
func (t Track) DurationMs() int {
	return int(t.Duration / time.Millisecond)
}

// Ref returns the artist/title pair used for scrobble lookups
func (t Track) Ref() Ref {
	return Ref{Artist: t.Artist, Title: t.Title}
}

// Ref names a track by artist and title only
type Ref struct {
	Artist string
	Title  string
}

// Source defines the interface for reading a batch of tracks
type Source interface {
	// Tracks returns every track the source holds, in order
	Tracks(ctx context.Context) ([]Track, error)
}
