package enrich

import (
	"github.com/rs/zerolog"

	"github.com/jfmyers9/crate/pkg/lastfm"
)

type lastfmLogger struct {
	logger zerolog.Logger
}

// NewLastFMLogger adapts a zerolog logger to lastfm.Logger.
func NewLastFMLogger(logger zerolog.Logger) lastfm.Logger {
	return lastfmLogger{logger: logger.With().Str("component", "lastfm").Logger()}
}

func (l lastfmLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug().Msgf(format, args...)
}
