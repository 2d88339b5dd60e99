package lastfm

import (
	"context"
	"fmt"
	"strings"
)

// ArtistService provides artist lookups for the Last.fm API.
type ArtistService struct {
	client *Client
}

// GetInfo fetches the biography, tags, similar artists and listener count
// for an artist.
//
// Returns an error satisfying IsNotFound when Last.fm does not know the artist.
func (s *ArtistService) GetInfo(ctx context.Context, artist string, autocorrect bool) (*ArtistInfo, error) {
	params := map[string]string{
		"artist":      artist,
		"autocorrect": boolParam(autocorrect),
	}

	resp, err := s.client.call(ctx, "artist.getInfo", params)
	if err != nil {
		return nil, err
	}

	info, err := unmarshalArtistInfo(resp)
	if err != nil {
		return nil, fmt.Errorf("lastfm: failed to parse artist info response: %w", err)
	}
	if info.Name == "" {
		return nil, ErrNotFound
	}

	return info, nil
}

// artistInfoResponse represents the XML response from artist.getInfo.
type artistInfoResponse struct {
	Artist struct {
		Name  string `xml:"name"`
		MBID  string `xml:"mbid"`
		URL   string `xml:"url"`
		Stats struct {
			Listeners string `xml:"listeners"`
			Playcount string `xml:"playcount"`
		} `xml:"stats"`
		Similar []struct {
			Name string `xml:"name"`
		} `xml:"similar>artist"`
		Tags []xmlTag `xml:"tags>tag"`
		Bio  struct {
			Summary string `xml:"summary"`
		} `xml:"bio"`
	} `xml:"artist"`
}

// unmarshalArtistInfo parses the XML response from artist.getInfo.
func unmarshalArtistInfo(data []byte) (*ArtistInfo, error) {
	var resp artistInfoResponse
	if err := unmarshalInner(data, &resp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal artist info response: %w", err)
	}

	a := resp.Artist
	info := &ArtistInfo{
		Name:      strings.TrimSpace(a.Name),
		MBID:      a.MBID,
		URL:       a.URL,
		Listeners: parseInt(a.Stats.Listeners),
		Playcount: parseInt(a.Stats.Playcount),
		Bio:       strings.TrimSpace(a.Bio.Summary),
		Tags:      make([]string, 0, len(a.Tags)),
		Similar:   make([]string, 0, len(a.Similar)),
	}

	for _, t := range convertTags(a.Tags) {
		info.Tags = append(info.Tags, t.Name)
	}
	for _, s := range a.Similar {
		if name := strings.TrimSpace(s.Name); name != "" {
			info.Similar = append(info.Similar, name)
		}
	}

	return info, nil
}
