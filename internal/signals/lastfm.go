package signals

import (
	"context"

	"github.com/jfmyers9/crate/pkg/lastfm"
)

// Provider is the scrobble service the signals are read from. Not-found
// results must satisfy lastfm.IsNotFound.
type Provider interface {
	TrackInfo(ctx context.Context, artist, title string) (*lastfm.TrackInfo, error)
	SimilarTracks(ctx context.Context, artist, title string, limit int) ([]lastfm.SimilarTrack, error)
	ArtistInfo(ctx context.Context, artist string) (*lastfm.ArtistInfo, error)
}

// LastFM adapts a lastfm.Client to Provider, always asking Last.fm to
// autocorrect names.
type LastFM struct {
	client *lastfm.Client
}

// NewLastFM wraps client.
func NewLastFM(client *lastfm.Client) *LastFM {
	return &LastFM{client: client}
}

func (p *LastFM) TrackInfo(ctx context.Context, artist, title string) (*lastfm.TrackInfo, error) {
	return p.client.Track().GetInfo(ctx, artist, title, true)
}

func (p *LastFM) SimilarTracks(ctx context.Context, artist, title string, limit int) ([]lastfm.SimilarTrack, error) {
	return p.client.Track().GetSimilar(ctx, artist, title, limit)
}

func (p *LastFM) ArtistInfo(ctx context.Context, artist string) (*lastfm.ArtistInfo, error) {
	return p.client.Artist().GetInfo(ctx, artist, true)
}
