package lastfm

// Tag is a community tag. Count is zero when the endpoint does not report it.
type Tag struct {
	Name  string
	Count int
}

// Album identifies the album a track appears on.
type Album struct {
	Title  string
	Artist string
}

// TrackInfo is the response from track.getInfo.
//
// With autocorrect enabled, Artist and Name hold Last.fm's corrected
// spelling rather than the query.
type TrackInfo struct {
	Name      string
	Artist    string
	MBID      string
	URL       string
	Duration  int // milliseconds
	Listeners int64
	Playcount int64
	Album     *Album // nil when Last.fm has no album for the track
	TopTags   []Tag
}

// SimilarTrack is one entry from track.getSimilar.
type SimilarTrack struct {
	Name   string
	Artist string
	Match  float64 // 0 < Match <= 1
}

// ArtistInfo is the response from artist.getInfo.
type ArtistInfo struct {
	Name      string
	MBID      string
	URL       string
	Listeners int64
	Playcount int64
	Bio       string // summary, empty if Last.fm has none
	Tags      []string
	Similar   []string
}
