// Package catalog enriches tracks with tempo, popularity rank, loudness
// gain and release date from the Deezer catalog, caching results per track.
package catalog

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/jfmyers9/crate/internal/cache"
)

// BPM bounds. Values outside [MinBPM, MaxBPM] are discarded.
const (
	MinBPM = 45.0
	MaxBPM = 220.0
)

// Source records where an enrichment came from. The empty Source means the
// track is confirmed absent from the catalog and encodes as JSON null.
type Source string

const (
	SourceNone      Source = ""
	SourceCatalog   Source = "deezer"
	SourceSecondary Source = "deezer-via-musicbrainz"
)

// MarshalJSON encodes SourceNone as null.
func (s Source) MarshalJSON() ([]byte, error) {
	if s == SourceNone {
		return []byte("null"), nil
	}
	return json.Marshal(string(s))
}

// UnmarshalJSON accepts null as SourceNone.
func (s *Source) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*s = SourceNone
		return nil
	}
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	*s = Source(str)
	return nil
}

// Enrichment is the catalog data for one track. Nil fields are unknown.
type Enrichment struct {
	BPM         *float64 `json:"bpm"`
	Rank        *int     `json:"rank"`
	Gain        *float64 `json:"gain"`
	ReleaseDate *string  `json:"releaseDate"` // YYYY-MM-DD
	Source      Source   `json:"source"`
}

// IsMiss reports whether e records a confirmed absence.
func (e Enrichment) IsMiss() bool {
	return e.Source == SourceNone
}

// IsValidBPM reports whether bpm is present and inside [MinBPM, MaxBPM].
func IsValidBPM(bpm *float64) bool {
	return bpm != nil && *bpm >= MinBPM && *bpm <= MaxBPM
}

// Merge combines a previously cached envelope with a fresh lookup result.
//
// With no previous envelope, or a previous miss, next is returned as is.
// A previous hit is merged field by field: a non-nil field in next wins,
// otherwise the previous value is kept. Source follows the same rule.
func Merge(prev *cache.Envelope[Enrichment], next Enrichment) Enrichment {
	if prev == nil || prev.IsMiss {
		return next
	}

	old := prev.Payload
	merged := next
	if merged.BPM == nil {
		merged.BPM = old.BPM
	}
	if merged.Rank == nil {
		merged.Rank = old.Rank
	}
	if merged.Gain == nil {
		merged.Gain = old.Gain
	}
	if merged.ReleaseDate == nil {
		merged.ReleaseDate = old.ReleaseDate
	}
	if merged.Source == SourceNone {
		merged.Source = old.Source
	}
	return merged
}

var isrcPattern = regexp.MustCompile(`^[A-Z]{2}[A-Z0-9]{3}[0-9]{7}$`)

// NormalizeISRC upper-cases s and strips hyphens and spaces.
func NormalizeISRC(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	return strings.NewReplacer("-", "", " ", "").Replace(s)
}

// IsPlausibleISRC reports whether s, once normalised, has ISRC shape.
func IsPlausibleISRC(s string) bool {
	return isrcPattern.MatchString(NormalizeISRC(s))
}

// CacheKey returns the store key for a track's enrichment.
func CacheKey(trackID string) string {
	return "bpm:" + trackID
}
