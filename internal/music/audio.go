package music

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/dhowden/tag"
)

// audioExtensions are the file types DirSource reads tags from
var audioExtensions = map[string]bool{
	".mp3":  true,
	".m4a":  true,
	".mp4":  true,
	".flac": true,
	".ogg":  true,
}

// isrcTagKeys are the raw tag names formats use for the ISRC
var isrcTagKeys = []string{"TSRC", "ISRC", "isrc"}

// DirSource reads tracks from the embedded tags of audio files under a
// directory. Each track's ID is its slash-separated path relative to Root.
type DirSource struct {
	Root string
}

// NewDirSource creates a source reading audio files below root
func NewDirSource(root string) *DirSource {
	return &DirSource{Root: root}
}

// Tracks implements Source. Files are returned in path order. A file
// without readable tags falls back to an "Artist - Title" file name.
func (s *DirSource) Tracks(ctx context.Context) ([]Track, error) {
	var paths []string
	err := filepath.WalkDir(s.Root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if !d.IsDir() && audioExtensions[strings.ToLower(filepath.Ext(path))] {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", s.Root, err)
	}
	sort.Strings(paths)

	tracks := make([]Track, 0, len(paths))
	for _, path := range paths {
		rel, err := filepath.Rel(s.Root, path)
		if err != nil {
			return nil, err
		}

		t, err := ReadAudioFile(path)
		if err != nil {
			return nil, err
		}
		t.ID = filepath.ToSlash(rel)
		tracks = append(tracks, t)
	}
	return tracks, nil
}

// ReadAudioFile reads artist, title, album, ISRC and length from the tags
// of one audio file. The returned Track has no ID.
func ReadAudioFile(path string) (Track, error) {
	file, err := os.Open(path)
	if err != nil {
		return Track{}, fmt.Errorf("failed to open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	metadata, err := tag.ReadFrom(file)
	if err != nil {
		artist, title := parseFilename(path)
		return Track{Artist: artist, Title: title}, nil
	}

	t := Track{
		Title:  strings.TrimSpace(metadata.Title()),
		Artist: strings.TrimSpace(metadata.Artist()),
		Album:  strings.TrimSpace(metadata.Album()),
	}

	if raw := metadata.Raw(); raw != nil {
		for _, key := range isrcTagKeys {
			if v, ok := raw[key].(string); ok && strings.TrimSpace(v) != "" {
				t.ISRC = strings.TrimSpace(v)
				break
			}
		}
		// ID3 TLEN holds the length in milliseconds
		if v, ok := raw["TLEN"].(string); ok {
			if ms, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64); err == nil && ms > 0 {
				t.Duration = time.Duration(ms) * time.Millisecond
			}
		}
	}

	if t.Title == "" || t.Artist == "" {
		artist, title := parseFilename(path)
		if t.Artist == "" {
			t.Artist = artist
		}
		if t.Title == "" {
			t.Title = title
		}
	}

	return t, nil
}

// parseFilename splits "Artist - Title.ext" into its parts. Names without
// the separator are all title.
func parseFilename(path string) (artist, title string) {
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	if a, t, ok := strings.Cut(base, " - "); ok {
		return strings.TrimSpace(a), strings.TrimSpace(t)
	}
	return "", strings.TrimSpace(base)
}
