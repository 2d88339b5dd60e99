package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/spf13/viper"

	"github.com/jfmyers9/crate/internal/schedule"
)

// Config holds application configuration
type Config struct {
	// Last.fm API credentials
	LastFM LastFMConfig

	// MusicBrainz requires an identifying User-Agent
	MusicBrainz MusicBrainzConfig

	// Persistent cache settings
	Cache CacheConfig

	// Minimum spacing between requests per provider
	Rate RateConfig

	// Timeout for a single upstream HTTP request
	HTTPTimeout time.Duration
}

// LastFMConfig holds Last.fm specific configuration
type LastFMConfig struct {
	APIKey string
}

// MusicBrainzConfig holds MusicBrainz specific configuration
type MusicBrainzConfig struct {
	UserAgent string
}

// CacheConfig holds cache store configuration
type CacheConfig struct {
	// Path to the SQLite cache database
	// Default: $XDG_CACHE_HOME/crate/cache.db
	Path string

	// How long entries are kept after they go stale
	StaleRetention time.Duration
}

// RateConfig holds per-provider dispatch intervals
type RateConfig struct {
	Deezer      time.Duration
	MusicBrainz time.Duration
	LastFM      time.Duration
}

// Intervals returns the intervals keyed by scheduler provider tag
func (r RateConfig) Intervals() map[string]time.Duration {
	return map[string]time.Duration{
		schedule.Deezer:      r.Deezer,
		schedule.MusicBrainz: r.MusicBrainz,
		schedule.LastFM:      r.LastFM,
	}
}

// Load reads configuration from file and environment
func Load() (*Config, error) {
	v := viper.New()

	// Set config name and paths
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	// Config file locations (in order of precedence)
	configDir := getConfigDir()
	v.AddConfigPath(configDir)
	v.AddConfigPath(".")

	// Set defaults
	v.SetDefault("cache.path", DefaultCachePath())
	v.SetDefault("cache.stale_retention", "720h")
	v.SetDefault("rate.deezer", schedule.DefaultIntervals[schedule.Deezer].String())
	v.SetDefault("rate.musicbrainz", schedule.DefaultIntervals[schedule.MusicBrainz].String())
	v.SetDefault("rate.lastfm", schedule.DefaultIntervals[schedule.LastFM].String())
	v.SetDefault("musicbrainz.user_agent", "crate/1.0 (https://github.com/jfmyers9/crate)")
	v.SetDefault("http.timeout", "30s")

	// Read config file (optional - don't fail if missing)
	_ = v.ReadInConfig()

	// Read from environment variables, e.g. CRATE_LASTFM_API_KEY
	v.SetEnvPrefix("CRATE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Map config to struct
	cfg := &Config{
		LastFM: LastFMConfig{
			APIKey: v.GetString("lastfm.api_key"),
		},
		MusicBrainz: MusicBrainzConfig{
			UserAgent: v.GetString("musicbrainz.user_agent"),
		},
		Cache: CacheConfig{
			Path:           v.GetString("cache.path"),
			StaleRetention: v.GetDuration("cache.stale_retention"),
		},
		Rate: RateConfig{
			Deezer:      v.GetDuration("rate.deezer"),
			MusicBrainz: v.GetDuration("rate.musicbrainz"),
			LastFM:      v.GetDuration("rate.lastfm"),
		},
		HTTPTimeout: v.GetDuration("http.timeout"),
	}

	return cfg, nil
}

// getConfigDir returns the configuration directory path
// Creates the directory if it doesn't exist
func getConfigDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	configDir := filepath.Join(homeDir, ".config", "crate")

	// Create config directory if it doesn't exist
	_ = os.MkdirAll(configDir, 0755)

	return configDir
}

// DefaultCachePath returns the cache database location under the XDG cache
// directory
func DefaultCachePath() string {
	return filepath.Join(xdg.CacheHome, "crate", "cache.db")
}

// GetConfigDir returns the configuration directory path (public helper)
func GetConfigDir() string {
	return getConfigDir()
}

// Save writes configuration to file
func (c *Config) Save() error {
	v := viper.New()

	// Set config file path
	configDir := getConfigDir()
	configFile := filepath.Join(configDir, "config.yaml")

	// Set values in viper
	v.Set("lastfm.api_key", c.LastFM.APIKey)
	v.Set("musicbrainz.user_agent", c.MusicBrainz.UserAgent)
	v.Set("cache.path", c.Cache.Path)
	v.Set("cache.stale_retention", c.Cache.StaleRetention.String())
	v.Set("rate.deezer", c.Rate.Deezer.String())
	v.Set("rate.musicbrainz", c.Rate.MusicBrainz.String())
	v.Set("rate.lastfm", c.Rate.LastFM.String())
	v.Set("http.timeout", c.HTTPTimeout.String())

	// Write to file
	return v.WriteConfigAs(configFile)
}
