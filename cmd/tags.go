package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"github.com/jfmyers9/crate/internal/enrich"
	"github.com/jfmyers9/crate/internal/signals"
)

var (
	tagsLimit int
	tagsWidth int
)

// tagsCmd represents the tags command
var tagsCmd = &cobra.Command{
	Use:   "tags <tracks.json|dir>",
	Short: "Summarise the Last.fm tags of a list of tracks",
	Long: `Fetch Last.fm signals for every track in a file or directory and print the
combined tag weights, heaviest first.

Tag names are padded or truncated to --width display columns, so the
table stays aligned for names in any script.`,
	Args: cobra.ExactArgs(1),
	RunE: runTags,
}

func init() {
	rootCmd.AddCommand(tagsCmd)

	tagsCmd.Flags().IntVarP(&tagsLimit, "limit", "n", 20, "Number of tags to show (0=all)")
	tagsCmd.Flags().IntVarP(&tagsWidth, "width", "w", 24, "Tag column width in display columns")
}

func runTags(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
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

	if a.signals == nil {
		return fmt.Errorf("Last.fm API key not configured. Run 'crate auth' first")
	}

	res, err := a.pipeline.Run(ctx, tracks, enrich.Options{SkipCatalog: true, SkipArtists: true})
	if err != nil {
		return fmt.Errorf("failed to fetch signals: %w", err)
	}

	renderTags(cmd.OutOrStdout(), res.Tags, tagsLimit, tagsWidth)
	return nil
}

// renderTags writes one "name  weight" row per tag.
func renderTags(w io.Writer, tags []signals.TagCount, limit, width int) {
	if len(tags) == 0 {
		fmt.Fprintln(w, "No tags found")
		return
	}
	if limit > 0 && len(tags) > limit {
		tags = tags[:limit]
	}
	for _, tc := range tags {
		fmt.Fprintf(w, "%s  %6.2f\n", padToWidth(tc.Tag, width), tc.Count)
	}
}

// padToWidth pads or truncates text to a fixed display width.
// Width is measured in display columns, accounting for Unicode characters.
// If width <= 0, returns text unchanged.
// If text is longer than width, truncates with "..." suffix.
// If text is shorter than width, pads with spaces.
func padToWidth(text string, width int) string {
	if width <= 0 {
		return text
	}

	currentWidth := runewidth.StringWidth(text)

	if currentWidth > width {
		ellipsis := "..."
		ellipsisWidth := runewidth.StringWidth(ellipsis)

		if width <= ellipsisWidth {
			return runewidth.Truncate(ellipsis, width, "")
		}

		// A wide rune may not fit exactly, leaving a column to pad
		result := runewidth.Truncate(text, width-ellipsisWidth, "") + ellipsis
		if resultWidth := runewidth.StringWidth(result); resultWidth < width {
			return result + strings.Repeat(" ", width-resultWidth)
		}
		return result
	} else if currentWidth < width {
		return text + strings.Repeat(" ", width-currentWidth)
	}

	return text
}
