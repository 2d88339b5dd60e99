// Package lastfm provides a read-only client for the Last.fm API 2.0.
//
// # Overview
//
// The client covers the metadata lookups needed to enrich a track library:
// track info, similar tracks and artist info. Every method takes a
// context.Context and makes exactly one HTTP request; pacing and retries
// are left to the caller.
//
// # Quick Start
//
//	client, err := lastfm.NewClient(lastfm.Config{
//	    APIKey: "your-api-key",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	info, err := client.Track().GetInfo(ctx, "Radiohead", "Reckoner", true)
//	similar, err := client.Track().GetSimilar(ctx, "Radiohead", "Reckoner", 10)
//	artist, err := client.Artist().GetInfo(ctx, "Radiohead", true)
//
// # Error Handling
//
// API failures are returned as *Error carrying the Last.fm error code.
// Use IsNotFound to tell an unknown track or artist apart from a failed
// request, and IsTemporary to spot rate limiting or an offline service:
//
//	info, err := client.Track().GetInfo(ctx, artist, title, true)
//	switch {
//	case lastfm.IsNotFound(err):
//	    // cache a miss
//	case lastfm.IsTemporary(err):
//	    // try again later
//	case err != nil:
//	    return err
//	}
//
// # Configuration
//
// HTTPClient, BaseURL (for testing), UserAgent and Logger are optional:
//
//	client, err := lastfm.NewClient(lastfm.Config{
//	    APIKey:     "your-api-key",
//	    HTTPClient: &http.Client{Timeout: 30 * time.Second},
//	    Logger:     myLogger, // Implements lastfm.Logger interface
//	})
//
// # Last.fm API Documentation
//
// https://www.last.fm/api
package lastfm
