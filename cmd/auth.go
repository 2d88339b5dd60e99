package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/jfmyers9/crate/internal/config"
	"github.com/jfmyers9/crate/pkg/lastfm"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Configure the Last.fm API key",
	Long: `Configure the Last.fm API key used for listening signals.

The key is checked against Last.fm before it is saved to
~/.config/crate/config.yaml. It can also be supplied through the
CRATE_LASTFM_API_KEY environment variable.

You can get an API key from: https://www.last.fm/api/account/create`,
	RunE: runAuth,
}

func init() {
	rootCmd.AddCommand(authCmd)
}

func runAuth(cmd *cobra.Command, args []string) error {
	reader := bufio.NewReader(os.Stdin)

	// Load existing config
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	fmt.Println("Last.fm API Key")
	fmt.Println("===============")
	fmt.Println()
	fmt.Println("You can get an API key from: https://www.last.fm/api/account/create")
	fmt.Println()

	if cfg.LastFM.APIKey != "" {
		fmt.Printf("Found existing API key: %s\n", cfg.LastFM.APIKey)
		fmt.Print("\nReplace it? [y/N]: ")
		response, err := reader.ReadString('\n')
		if err != nil {
			response = "n"
		}
		response = strings.TrimSpace(strings.ToLower(response))
		if response != "y" && response != "yes" {
			return nil
		}
	}

	fmt.Print("Enter your Last.fm API Key: ")
	apiKey, err := reader.ReadString('\n')
	if err != nil {
		return fmt.Errorf("failed to read API key: %w", err)
	}
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return fmt.Errorf("API key is required")
	}

	fmt.Println("\nChecking API key...")
	if err := checkAPIKey(cmd.Context(), apiKey); err != nil {
		return err
	}

	cfg.LastFM.APIKey = apiKey
	if err := cfg.Save(); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	fmt.Printf("\n✓ API key saved to %s/config.yaml\n", config.GetConfigDir())
	fmt.Println("\nYou can now use 'crate enrich' to fetch listening signals.")

	return nil
}

// checkAPIKey makes one artist lookup with the key. Last.fm rejects an
// unknown key with error 10.
func checkAPIKey(ctx context.Context, apiKey string) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := lastfm.NewClient(lastfm.Config{APIKey: apiKey})
	if err != nil {
		return err
	}

	_, err = client.Artist().GetInfo(ctx, "Cher", false)
	if err == nil || lastfm.IsNotFound(err) {
		return nil
	}

	var apiErr *lastfm.Error
	if errors.As(err, &apiErr) && apiErr.Code == lastfm.ErrCodeInvalidAPIKey {
		return fmt.Errorf("Last.fm rejected the API key")
	}
	return fmt.Errorf("failed to check API key: %w", err)
}
