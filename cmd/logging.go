package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// setupLogger builds the command logger. Logs go to logFile when set and to
// stderr otherwise, since stdout carries command output. The returned func
// closes the log file and is a no-op for stderr.
func setupLogger(logFile, logLevel string) (zerolog.Logger, func() error) {
	level, err := zerolog.ParseLevel(logLevel)
	if err != nil || logLevel == "" {
		level = zerolog.InfoLevel
	}

	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err == nil {
			logger := zerolog.New(f).Level(level).With().Timestamp().Logger()
			return logger, f.Close
		}
		fmt.Fprintf(os.Stderr, "Failed to open log file, logging to stderr: %v\n", err)
	}

	console := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	logger := zerolog.New(console).Level(level).With().Timestamp().Logger()
	return logger, func() error { return nil }
}
