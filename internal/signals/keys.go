package signals

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"golang.org/x/text/unicode/norm"
)

const (
	trackKeyPrefix  = "lastfm:"
	artistKeyPrefix = "lastfm-artist:"

	// keyHashBytes is how much of the digest ends up in the key.
	keyHashBytes = 16
)

// normalize trims, NFC-normalises and lower-cases s so that visually equal
// names share a key.
func normalize(s string) string {
	return strings.ToLower(norm.NFC.String(strings.TrimSpace(s)))
}

// GenerateCacheKey returns the store key for a track's signals.
func GenerateCacheKey(artist, title string) string {
	sum := sha256.Sum256([]byte(normalize(artist) + "\x00" + normalize(title)))
	return trackKeyPrefix + hex.EncodeToString(sum[:keyHashBytes])
}

// ArtistKey returns the lower-cased name artists are grouped under.
func ArtistKey(name string) string {
	return normalize(name)
}

// ArtistCacheKey returns the store key for an artist's info.
func ArtistCacheKey(name string) string {
	return artistKeyPrefix + ArtistKey(name)
}
