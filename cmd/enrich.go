package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/jfmyers9/crate/internal/enrich"
)

var (
	enrichOut         string
	enrichFormat      string
	enrichSkipCatalog bool
	enrichSkipSignals bool
	enrichSkipArtists bool
	enrichQuiet       bool
)

// enrichCmd represents the enrich command
var enrichCmd = &cobra.Command{
	Use:   "enrich <tracks.json|dir>",
	Short: "Enrich a list of tracks",
	Long: `Enrich every track in a file with catalog data and listening signals.

The input is either a JSON array of tracks or one JSON track per line.
Each track needs an "id"; "artist", "title", "durationMs" and "isrc" are
used for lookups when present.

Given a directory, tracks are read from the tags of the audio files
(mp3, m4a, flac, ogg) below it and identified by their relative path.

The result is written as JSON (or YAML with --format yaml) to stdout, or
to the file given by --out.
It holds catalog data and signals keyed by track id, artist info keyed by
lower-cased artist name, aggregated tags and average popularity.

Interrupting the command stops outstanding lookups. Answers received so
far stay cached, so rerunning resumes where it left off.`,
	Args: cobra.ExactArgs(1),
	RunE: runEnrich,
}

func init() {
	rootCmd.AddCommand(enrichCmd)

	enrichCmd.Flags().StringVarP(&enrichOut, "out", "o", "", "Write the result to a file instead of stdout")
	enrichCmd.Flags().StringVarP(&enrichFormat, "format", "f", "json", "Output format (json, yaml)")
	enrichCmd.Flags().BoolVar(&enrichSkipCatalog, "skip-catalog", false, "Skip Deezer catalog enrichment")
	enrichCmd.Flags().BoolVar(&enrichSkipSignals, "skip-signals", false, "Skip Last.fm listening signals")
	enrichCmd.Flags().BoolVar(&enrichSkipArtists, "skip-artists", false, "Skip Last.fm artist info")
	enrichCmd.Flags().BoolVarP(&enrichQuiet, "quiet", "q", false, "Do not print progress to stderr")
}

func runEnrich(cmd *cobra.Command, args []string) error {
	if enrichFormat != "json" && enrichFormat != "yaml" {
		return fmt.Errorf("unknown output format %q", enrichFormat)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tracks, err := loadTracks(ctx, args[0])
	if err != nil {
		return err
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	opts := enrich.Options{
		SkipCatalog: enrichSkipCatalog,
		SkipSignals: enrichSkipSignals,
		SkipArtists: enrichSkipArtists,
	}
	if !enrichQuiet {
		opts.OnProgress = progressPrinter(cmd.ErrOrStderr())
	}

	res, err := a.pipeline.Run(ctx, tracks, opts)
	if err != nil {
		return fmt.Errorf("enrichment failed: %w", err)
	}

	return writeResult(cmd.OutOrStdout(), enrichOut, enrichFormat, res)
}

// progressPrinter prints a line as each stage finishes. Stages run
// concurrently, so intermediate counts are left to the debug log.
func progressPrinter(w io.Writer) func(enrich.Progress) {
	return func(p enrich.Progress) {
		if p.Done == p.Total {
			fmt.Fprintf(w, "%-8s %d/%d done\n", p.Stage, p.Done, p.Total)
		}
	}
}

// writeResult encodes res to path, or to stdout when path is empty.
// YAML output is converted from the JSON form so both share field names.
func writeResult(stdout io.Writer, path, format string, res *enrich.Result) error {
	w := stdout
	if path != "" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	if format == "yaml" {
		data, err := json.Marshal(res)
		if err != nil {
			return fmt.Errorf("failed to encode result: %w", err)
		}
		var doc any
		if err := json.Unmarshal(data, &doc); err != nil {
			return fmt.Errorf("failed to encode result: %w", err)
		}

		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("failed to write result: %w", err)
		}
		return enc.Close()
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		return fmt.Errorf("failed to write result: %w", err)
	}
	return nil
}
