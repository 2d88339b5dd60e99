package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Chdir(t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Cache.Path != DefaultCachePath() {
		t.Errorf("unexpected cache path %s", cfg.Cache.Path)
	}
	if cfg.Cache.StaleRetention != 30*24*time.Hour {
		t.Errorf("unexpected stale retention %v", cfg.Cache.StaleRetention)
	}
	if cfg.Rate.Deezer != 25*time.Millisecond || cfg.Rate.MusicBrainz != time.Second || cfg.Rate.LastFM != 200*time.Millisecond {
		t.Errorf("unexpected rates %+v", cfg.Rate)
	}
	if cfg.HTTPTimeout != 30*time.Second {
		t.Errorf("unexpected timeout %v", cfg.HTTPTimeout)
	}
	if cfg.LastFM.APIKey != "" {
		t.Errorf("expected no API key, got %s", cfg.LastFM.APIKey)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Chdir(t.TempDir())
	t.Setenv("CRATE_LASTFM_API_KEY", "env-key")
	t.Setenv("CRATE_RATE_MUSICBRAINZ", "2s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.LastFM.APIKey != "env-key" {
		t.Errorf("expected env-key, got %s", cfg.LastFM.APIKey)
	}
	if cfg.Rate.MusicBrainz != 2*time.Second {
		t.Errorf("expected 2s, got %v", cfg.Rate.MusicBrainz)
	}
}

func TestSaveAndLoad(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Chdir(t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	cfg.LastFM.APIKey = "saved-key"
	cfg.Rate.LastFM = 500 * time.Millisecond

	if err := cfg.Save(); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(home, ".config", "crate", "config.yaml")); err != nil {
		t.Fatalf("config file not written: %v", err)
	}

	loaded, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if loaded.LastFM.APIKey != "saved-key" {
		t.Errorf("expected saved-key, got %s", loaded.LastFM.APIKey)
	}
	if loaded.Rate.LastFM != 500*time.Millisecond {
		t.Errorf("expected 500ms, got %v", loaded.Rate.LastFM)
	}
}

func TestRateConfig_Intervals(t *testing.T) {
	r := RateConfig{Deezer: 1, MusicBrainz: 2, LastFM: 3}
	got := r.Intervals()
	if got["deezer"] != 1 || got["musicbrainz"] != 2 || got["lastfm"] != 3 {
		t.Errorf("unexpected intervals %v", got)
	}
}
