package cmd

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jfmyers9/crate/internal/kv"
)

var (
	cacheListPrefix string
	cacheListLimit  int
)

// cacheCmd represents the cache command
var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and maintain the lookup cache",
	Long: `Inspect and maintain the SQLite lookup cache.

Keys are "bpm:<track id>" for catalog data, "lastfm:<hash>" for track
signals and "lastfm-artist:<name>" for artist info.`,
}

var cacheListCmd = &cobra.Command{
	Use:   "list",
	Short: "List cached keys",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := openStore()
		if err != nil {
			return err
		}
		defer sess.Close()
		store := sess.store

		keys, err := store.List(cmd.Context(), kv.ListOptions{Prefix: cacheListPrefix, Limit: cacheListLimit})
		if err != nil {
			return err
		}
		for _, k := range keys {
			fmt.Fprintln(cmd.OutOrStdout(), k)
		}
		return nil
	},
}

var cacheShowCmd = &cobra.Command{
	Use:   "show <key>",
	Short: "Print a cached entry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := openStore()
		if err != nil {
			return err
		}
		defer sess.Close()
		store := sess.store

		data, err := store.Get(cmd.Context(), args[0])
		if errors.Is(err, kv.ErrNotFound) {
			return fmt.Errorf("no cache entry for %q", args[0])
		}
		if err != nil {
			return err
		}

		var out bytes.Buffer
		if err := json.Indent(&out, data, "", "  "); err != nil {
			out.Reset()
			out.Write(data)
		}
		fmt.Fprintln(cmd.OutOrStdout(), out.String())
		return nil
	},
}

var cacheDeleteCmd = &cobra.Command{
	Use:   "delete <key>...",
	Short: "Delete cached entries",
	Long: `Delete cached entries so the next lookup goes to the network.

Deleting a key that is not cached is not an error.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := openStore()
		if err != nil {
			return err
		}
		defer sess.Close()
		store := sess.store

		for _, key := range args {
			if err := store.Delete(cmd.Context(), key); err != nil {
				return err
			}
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d key(s)\n", len(args))
		return nil
	},
}

var cachePurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Remove expired entries",
	Long: `Remove entries whose retention has passed.

Stale entries that are still within the retention window are kept so a
failed refresh can fall back on them.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := openStore()
		if err != nil {
			return err
		}
		defer sess.Close()
		store, logger := sess.store, sess.logger

		deleted, err := store.Purge(cmd.Context())
		if err != nil {
			return err
		}
		remaining, err := store.Count(cmd.Context())
		if err != nil {
			return err
		}

		logger.Info().Int64("deleted", deleted).Int("remaining", remaining).Msg("Purged cache")
		fmt.Fprintf(cmd.OutOrStdout(), "Purged %d expired entries, %d remaining\n", deleted, remaining)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cacheListCmd, cacheShowCmd, cacheDeleteCmd, cachePurgeCmd)

	cacheListCmd.Flags().StringVarP(&cacheListPrefix, "prefix", "p", "", "Only list keys with this prefix")
	cacheListCmd.Flags().IntVarP(&cacheListLimit, "limit", "n", 0, "Maximum number of keys (0=all)")
}
