package lastfm

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// TrackService provides track lookups for the Last.fm API.
type TrackService struct {
	client *Client
}

// GetInfo fetches listener counts, top tags and album data for a track.
//
// When autocorrect is true Last.fm may substitute a corrected artist or
// track name; the returned TrackInfo carries the corrected names.
//
// Returns an error satisfying IsNotFound when Last.fm does not know the track.
//
// Example:
//
//	info, err := client.Track().GetInfo(ctx, "Queen", "Bohemian Rhapsody", true)
//	if lastfm.IsNotFound(err) {
//	    // no such track
//	}
func (s *TrackService) GetInfo(ctx context.Context, artist, track string, autocorrect bool) (*TrackInfo, error) {
	params := map[string]string{
		"artist":      artist,
		"track":       track,
		"autocorrect": boolParam(autocorrect),
	}

	resp, err := s.client.call(ctx, "track.getInfo", params)
	if err != nil {
		return nil, err
	}

	info, err := unmarshalTrackInfo(resp)
	if err != nil {
		return nil, fmt.Errorf("lastfm: failed to parse track info response: %w", err)
	}
	if info.Name == "" {
		return nil, ErrNotFound
	}

	return info, nil
}

// GetSimilar fetches tracks similar to the given one, ordered by match.
// A limit <= 0 lets Last.fm choose.
func (s *TrackService) GetSimilar(ctx context.Context, artist, track string, limit int) ([]SimilarTrack, error) {
	params := map[string]string{
		"artist":      artist,
		"track":       track,
		"autocorrect": "1",
	}
	if limit > 0 {
		params["limit"] = strconv.Itoa(limit)
	}

	resp, err := s.client.call(ctx, "track.getSimilar", params)
	if err != nil {
		return nil, err
	}

	similar, err := unmarshalSimilarTracks(resp)
	if err != nil {
		return nil, fmt.Errorf("lastfm: failed to parse similar tracks response: %w", err)
	}

	return similar, nil
}

// trackInfoResponse represents the XML response from track.getInfo.
type trackInfoResponse struct {
	Track struct {
		Name      string `xml:"name"`
		MBID      string `xml:"mbid"`
		URL       string `xml:"url"`
		Duration  string `xml:"duration"`
		Listeners string `xml:"listeners"`
		Playcount string `xml:"playcount"`
		Artist    struct {
			Name string `xml:"name"`
		} `xml:"artist"`
		Album *struct {
			Artist string `xml:"artist"`
			Title  string `xml:"title"`
		} `xml:"album"`
		TopTags []xmlTag `xml:"toptags>tag"`
	} `xml:"track"`
}

type xmlTag struct {
	Name  string `xml:"name"`
	Count string `xml:"count"`
}

// unmarshalTrackInfo parses the XML response from track.getInfo.
func unmarshalTrackInfo(data []byte) (*TrackInfo, error) {
	var resp trackInfoResponse
	if err := unmarshalInner(data, &resp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal track info response: %w", err)
	}

	t := resp.Track
	info := &TrackInfo{
		Name:      strings.TrimSpace(t.Name),
		Artist:    strings.TrimSpace(t.Artist.Name),
		MBID:      t.MBID,
		URL:       t.URL,
		Duration:  int(parseInt(t.Duration)),
		Listeners: parseInt(t.Listeners),
		Playcount: parseInt(t.Playcount),
		TopTags:   convertTags(t.TopTags),
	}

	if t.Album != nil && t.Album.Title != "" {
		info.Album = &Album{
			Title:  t.Album.Title,
			Artist: t.Album.Artist,
		}
	}

	return info, nil
}

// similarTracksResponse represents the XML response from track.getSimilar.
type similarTracksResponse struct {
	Tracks []struct {
		Name   string `xml:"name"`
		Match  string `xml:"match"`
		Artist struct {
			Name string `xml:"name"`
		} `xml:"artist"`
	} `xml:"similartracks>track"`
}

// unmarshalSimilarTracks parses the XML response from track.getSimilar.
func unmarshalSimilarTracks(data []byte) ([]SimilarTrack, error) {
	var resp similarTracksResponse
	if err := unmarshalInner(data, &resp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal similar tracks response: %w", err)
	}

	similar := make([]SimilarTrack, 0, len(resp.Tracks))
	for _, t := range resp.Tracks {
		match, _ := strconv.ParseFloat(strings.TrimSpace(t.Match), 64)
		if match <= 0 {
			continue
		}
		if match > 1 {
			match = 1
		}
		similar = append(similar, SimilarTrack{
			Name:   t.Name,
			Artist: t.Artist.Name,
			Match:  match,
		})
	}

	return similar, nil
}

func convertTags(in []xmlTag) []Tag {
	tags := make([]Tag, 0, len(in))
	for _, t := range in {
		name := strings.TrimSpace(t.Name)
		if name == "" {
			continue
		}
		tags = append(tags, Tag{Name: name, Count: int(parseInt(t.Count))})
	}
	return tags
}

func parseInt(s string) int64 {
	n, _ := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	return n
}

func boolParam(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
