package music

import (
	"bytes"
	"context"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// id3v23 builds a minimal ID3v2.3 tag holding ISO-8859-1 text frames.
func id3v23(frames map[string]string) []byte {
	var body bytes.Buffer
	for _, id := range []string{"TIT2", "TPE1", "TALB", "TSRC", "TLEN"} {
		text, ok := frames[id]
		if !ok {
			continue
		}
		body.WriteString(id)
		_ = binary.Write(&body, binary.BigEndian, uint32(len(text)+1))
		body.Write([]byte{0, 0}) // flags
		body.WriteByte(0)        // encoding
		body.WriteString(text)
	}

	size := body.Len()
	header := []byte{'I', 'D', '3', 3, 0, 0,
		byte(size >> 21 & 0x7f), byte(size >> 14 & 0x7f), byte(size >> 7 & 0x7f), byte(size & 0x7f)}

	return append(header, body.Bytes()...)
}

func writeFile(t *testing.T, path string, data []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("failed to create dir: %v", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}

func TestReadAudioFile(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name string
		file string
		data []byte
		want Track
	}{
		{
			name: "id3 tags",
			file: "tagged.mp3",
			data: id3v23(map[string]string{
				"TIT2": "Windowlicker",
				"TPE1": "Aphex Twin",
				"TALB": "Windowlicker",
				"TSRC": "GBBPW9900051",
				"TLEN": "367000",
			}),
			want: Track{Title: "Windowlicker", Artist: "Aphex Twin", Album: "Windowlicker",
				ISRC: "GBBPW9900051", Duration: 367 * time.Second},
		},
		{
			name: "missing artist falls back to file name",
			file: "Boards of Canada - Roygbiv.mp3",
			data: id3v23(map[string]string{"TIT2": "Roygbiv"}),
			want: Track{Title: "Roygbiv", Artist: "Boards of Canada"},
		},
		{
			name: "untagged file",
			file: "Autechre - Gantz Graf.mp3",
			data: []byte("this is not an audio file at all"),
			want: Track{Title: "Gantz Graf", Artist: "Autechre"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.file)
			writeFile(t, path, tt.data)

			got, err := ReadAudioFile(path)
			if err != nil {
				t.Fatalf("ReadAudioFile() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("ReadAudioFile() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestDirSource(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "b", "Burial - Archangel.mp3"), []byte("not tagged, long enough to sniff"))
	writeFile(t, filepath.Join(dir, "a.mp3"), id3v23(map[string]string{"TIT2": "Xtal", "TPE1": "Aphex Twin"}))
	writeFile(t, filepath.Join(dir, "notes.txt"), []byte("ignored"))

	tracks, err := NewDirSource(dir).Tracks(context.Background())
	if err != nil {
		t.Fatalf("Tracks() error = %v", err)
	}

	want := []Track{
		{ID: "a.mp3", Title: "Xtal", Artist: "Aphex Twin"},
		{ID: "b/Burial - Archangel.mp3", Title: "Archangel", Artist: "Burial"},
	}
	if len(tracks) != len(want) {
		t.Fatalf("got %d tracks, want %d: %+v", len(tracks), len(want), tracks)
	}
	for i := range want {
		if tracks[i] != want[i] {
			t.Errorf("track %d = %+v, want %+v", i, tracks[i], want[i])
		}
	}
}

func TestDirSource_Cancelled(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.mp3"), id3v23(map[string]string{"TIT2": "Xtal"}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := NewDirSource(dir).Tracks(ctx); err == nil {
		t.Fatal("expected error for cancelled context")
	}
}
