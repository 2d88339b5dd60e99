package music

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

// fileTrack is the on-disk form of a Track. The ISRC may be given flat or
// nested under externalIds the way streaming APIs report it.
type fileTrack struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Name        string `json:"name"`
	Artist      string `json:"artist"`
	Album       string `json:"album"`
	DurationMs  int64  `json:"durationMs"`
	ISRC        string `json:"isrc"`
	ExternalIDs struct {
		ISRC string `json:"isrc"`
	} `json:"externalIds"`
}

func (f fileTrack) track() Track {
	t := Track{
		ID:       strings.TrimSpace(f.ID),
		Title:    strings.TrimSpace(f.Title),
		Artist:   strings.TrimSpace(f.Artist),
		Album:    strings.TrimSpace(f.Album),
		Duration: time.Duration(f.DurationMs) * time.Millisecond,
		ISRC:     strings.TrimSpace(f.ISRC),
	}
	if t.Title == "" {
		t.Title = strings.TrimSpace(f.Name)
	}
	if t.ISRC == "" {
		t.ISRC = strings.TrimSpace(f.ExternalIDs.ISRC)
	}
	return t
}

// FileSource reads tracks from a JSON file holding either an array of
// tracks or one track object per line.
type FileSource struct {
	Path string
}

// NewFileSource creates a source reading from path
func NewFileSource(path string) *FileSource {
	return &FileSource{Path: path}
}

// Tracks implements Source
func (s *FileSource) Tracks(ctx context.Context) ([]Track, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open track file: %w", err)
	}
	defer func() { _ = f.Close() }()

	tracks, err := ReadTracks(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.Path, err)
	}
	return tracks, nil
}

// ReadTracks decodes tracks from r. Input starting with '[' is read as a
// JSON array, anything else as JSON lines. Blank lines are skipped.
func ReadTracks(ctx context.Context, r io.Reader) ([]Track, error) {
	br := bufio.NewReader(r)

	first, err := peekNonSpace(br)
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read tracks: %w", err)
	}

	if first == '[' {
		var raw []fileTrack
		if err := json.NewDecoder(br).Decode(&raw); err != nil {
			return nil, fmt.Errorf("failed to decode track array: %w", err)
		}
		tracks := make([]Track, 0, len(raw))
		for _, f := range raw {
			tracks = append(tracks, f.track())
		}
		return tracks, nil
	}

	var tracks []Track
	scanner := bufio.NewScanner(br)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		b := bytes.TrimSpace(scanner.Bytes())
		if len(b) == 0 {
			continue
		}

		var f fileTrack
		if err := json.Unmarshal(b, &f); err != nil {
			return nil, fmt.Errorf("line %d: failed to decode track: %w", line, err)
		}
		tracks = append(tracks, f.track())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read tracks: %w", err)
	}

	return tracks, nil
}

// peekNonSpace discards leading whitespace and returns the next byte
// without consuming it.
func peekNonSpace(br *bufio.Reader) (byte, error) {
	for {
		b, err := br.ReadByte()
		if err != nil {
			return 0, err
		}
		switch b {
		case ' ', '\t', '\r', '\n':
			continue
		}
		if err := br.UnreadByte(); err != nil {
			return 0, err
		}
		return b, nil
	}
}
