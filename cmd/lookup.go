package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/jfmyers9/crate/internal/catalog"
	"github.com/jfmyers9/crate/internal/music"
	"github.com/jfmyers9/crate/internal/signals"
)

var (
	lookupArtist   string
	lookupTitle    string
	lookupISRC     string
	lookupID       string
	lookupDuration time.Duration
)

// lookupCmd represents the lookup command
var lookupCmd = &cobra.Command{
	Use:   "lookup",
	Short: "Look up a single track",
	Long: `Look up one track and print its catalog data and listening signals.

Without --isrc the ISRC is resolved through MusicBrainz, using --duration
to pick between candidate recordings. The answer is cached under --id,
which defaults to the ISRC or "artist - title".

Example:
  crate lookup --artist "Daft Punk" --title "One More Time" --duration 5m20s`,
	Args: cobra.NoArgs,
	RunE: runLookup,
}

func init() {
	rootCmd.AddCommand(lookupCmd)

	lookupCmd.Flags().StringVar(&lookupArtist, "artist", "", "Artist name")
	lookupCmd.Flags().StringVar(&lookupTitle, "title", "", "Track title")
	lookupCmd.Flags().StringVar(&lookupISRC, "isrc", "", "ISRC, skips MusicBrainz resolution")
	lookupCmd.Flags().StringVar(&lookupID, "id", "", "Cache id for the track")
	lookupCmd.Flags().DurationVar(&lookupDuration, "duration", 0, "Track length, used to match MusicBrainz recordings")
	_ = lookupCmd.MarkFlagRequired("artist")
	_ = lookupCmd.MarkFlagRequired("title")
}

type lookupResult struct {
	Catalog catalog.Enrichment `json:"catalog"`
	Signals *signals.Signals   `json:"signals"`
}

func runLookup(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	track := music.Track{
		ID:       lookupTrackID(lookupID, lookupISRC, lookupArtist, lookupTitle),
		Artist:   lookupArtist,
		Title:    lookupTitle,
		Duration: lookupDuration,
		ISRC:     lookupISRC,
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	var res lookupResult
	res.Catalog, err = a.catalog.EnrichTrack(ctx, track)
	if err != nil {
		return fmt.Errorf("catalog lookup failed: %w", err)
	}

	if a.signals != nil {
		res.Signals, err = a.signals.GetTrackSignals(ctx, track.Ref(), false)
		if err != nil {
			return fmt.Errorf("signals lookup failed: %w", err)
		}
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}

// lookupTrackID picks the cache id for an ad-hoc lookup.
func lookupTrackID(id, isrc, artist, title string) string {
	switch {
	case id != "":
		return id
	case isrc != "":
		return catalog.NormalizeISRC(isrc)
	default:
		return artist + " - " + title
	}
}
