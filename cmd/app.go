package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/jfmyers9/crate/internal/catalog"
	"github.com/jfmyers9/crate/internal/config"
	"github.com/jfmyers9/crate/internal/enrich"
	"github.com/jfmyers9/crate/internal/kv"
	"github.com/jfmyers9/crate/internal/music"
	"github.com/jfmyers9/crate/internal/schedule"
	"github.com/jfmyers9/crate/internal/signals"
	"github.com/jfmyers9/crate/pkg/deezer"
	"github.com/jfmyers9/crate/pkg/lastfm"
	"github.com/jfmyers9/crate/pkg/musicbrainz"
)

// session is the configuration, logger and cache database every command
// starts from.
type session struct {
	cfg      *config.Config
	logger   zerolog.Logger
	store    *kv.SQLite
	closeLog func() error
}

// app holds the services a command needs. Signals is nil when no Last.fm
// API key is configured.
type app struct {
	*session
	catalog  *catalog.Service
	signals  *signals.Service
	pipeline *enrich.Pipeline
}

// openStore loads configuration and opens the cache database.
func openStore() (*session, error) {
	logger, closeLog := setupLogger(logFile, logLevel)

	fail := func(format string, err error) (*session, error) {
		_ = closeLog()
		return nil, fmt.Errorf(format, err)
	}

	cfg, err := config.Load()
	if err != nil {
		return fail("failed to load configuration: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Cache.Path), 0755); err != nil {
		return fail("failed to create cache directory: %w", err)
	}

	store, err := kv.OpenSQLite(cfg.Cache.Path)
	if err != nil {
		return fail("failed to open cache: %w", err)
	}

	logger.Debug().Str("path", cfg.Cache.Path).Msg("Opened cache")
	return &session{cfg: cfg, logger: logger, store: store, closeLog: closeLog}, nil
}

// Close releases the cache database and the log file.
func (s *session) Close() error {
	return errors.Join(s.store.Close(), s.closeLog())
}

// newApp wires the provider clients, the shared scheduler and both
// enrichment services around the cache database.
func newApp() (*app, error) {
	sess, err := openStore()
	if err != nil {
		return nil, err
	}
	cfg, store, logger := sess.cfg, sess.store, sess.logger

	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}
	sched := schedule.New(cfg.Rate.Intervals(), time.Second)

	dz := deezer.NewClient(
		deezer.WithHTTPClient(httpClient),
		deezer.WithLogger(logger),
	)
	mb := musicbrainz.NewClient(
		musicbrainz.WithHTTPClient(httpClient),
		musicbrainz.WithUserAgent(cfg.MusicBrainz.UserAgent),
		musicbrainz.WithLogger(logger),
	)

	catCfg := catalog.DefaultConfig()
	catCfg.StaleRetention = cfg.Cache.StaleRetention
	a := &app{
		session: sess,
		catalog: catalog.New(catCfg, store, dz, mb, sched, logger),
	}

	var sigSource enrich.SignalSource
	if cfg.LastFM.APIKey != "" {
		client, err := lastfm.NewClient(lastfm.Config{
			APIKey:     cfg.LastFM.APIKey,
			HTTPClient: httpClient,
			Logger:     enrich.NewLastFMLogger(logger),
		})
		if err != nil {
			_ = sess.Close()
			return nil, fmt.Errorf("failed to create Last.fm client: %w", err)
		}

		sigCfg := signals.DefaultConfig()
		sigCfg.StaleRetention = cfg.Cache.StaleRetention
		a.signals = signals.New(sigCfg, store, signals.NewLastFM(client), sched, logger)
		sigSource = a.signals
	} else {
		logger.Warn().Msg("Last.fm API key not configured, skipping listening signals. Run 'crate auth' to set one")
	}

	a.pipeline = enrich.New(a.catalog, sigSource, logger)
	return a, nil
}

// loadTracks reads tracks from a JSON track file, or from the tags of the
// audio files under path when it is a directory.
func loadTracks(ctx context.Context, path string) ([]music.Track, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	var src music.Source = music.NewFileSource(path)
	if info.IsDir() {
		src = music.NewDirSource(path)
	}
	return src.Tracks(ctx)
}
