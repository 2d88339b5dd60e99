// Package signals gathers community listening data for tracks and artists
// from Last.fm and caches it.
package signals

// Tag is a community tag with its weight relative to the track's other
// tags. Weights are in (0, 1] when normalised from provider counts.
type Tag struct {
	Name   string  `json:"name"`
	Weight float64 `json:"weight"`
}

// SimilarTrack is a track Last.fm considers close to another.
type SimilarTrack struct {
	Name   string  `json:"name"`
	Artist string  `json:"artist"`
	Match  float64 `json:"match"`
}

// Album names the album a track appears on.
type Album struct {
	Title  string `json:"title"`
	Artist string `json:"artist"`
}

// ArtistInfo describes an artist.
type ArtistInfo struct {
	Name      string   `json:"name"`
	Bio       *string  `json:"bio"`
	Tags      []string `json:"tags"`
	Similar   []string `json:"similar"`
	Listeners int64    `json:"listeners"`
}

// Signals is everything known about one track.
type Signals struct {
	Listeners       int64          `json:"listeners"`
	Playcount       int64          `json:"playcount"`
	TopTags         []Tag          `json:"topTags"`
	CanonicalArtist string         `json:"canonicalArtist"`
	CanonicalTrack  string         `json:"canonicalTrack"`
	Similar         []SimilarTrack `json:"similar"`
	Album           *Album         `json:"album"`
	ArtistInfo      *ArtistInfo    `json:"artistInfo"`
}

// TagCount is one row of an aggregated tag summary.
type TagCount struct {
	Tag   string  `json:"tag"`
	Count float64 `json:"count"`
}

// Popularity holds mean listener and play counts over a set of tracks.
type Popularity struct {
	AvgListeners float64 `json:"avgListeners"`
	AvgPlaycount float64 `json:"avgPlaycount"`
}
