package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/mbetts/melodiary/internal/config"
	"github.com/mbetts/melodiary/internal/fortune"
	"github.com/mbetts/melodiary/internal/journal"
	"github.com/mbetts/melodiary/internal/lyrics"
	"github.com/mbetts/melodiary/internal/store"
	"github.com/mbetts/melodiary/pkg/spotify"
)

// zerologAdapter lets the API client log through zerolog.
type zerologAdapter struct {
	logger zerolog.Logger
}

func (a zerologAdapter) Debugf(format string, args ...interface{}) {
	a.logger.Debug().Msgf(format, args...)
}

// newSpotifyClient builds the API client from configuration.
func newSpotifyClient(cfg *config.Config, logger zerolog.Logger) (*spotify.Client, error) {
	if cfg.Spotify.ClientID == "" {
		return nil, fmt.Errorf("Spotify client ID not configured. Set spotify.client_id in %s/config.yaml or MELODIARY_SPOTIFY_CLIENT_ID", config.GetConfigDir())
	}
	return spotify.NewClient(spotify.Config{
		ClientID:    cfg.Spotify.ClientID,
		RedirectURI: cfg.Spotify.RedirectURI,
		Logger:      zerologAdapter{logger: logger},
	})
}

// openStore opens the sqlite store at the configured path.
func openStore(cfg *config.Config) (*store.Store, error) {
	st, err := store.Open(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	return st, nil
}

// newJournal wires the lyrics fetcher and fortune generator into the
// journal service.
func newJournal(cfg *config.Config, st *store.Store, logger zerolog.Logger) *journal.Service {
	fetcher := lyrics.NewFetcher("", logger)
	generator := fortune.NewGenerator(fortune.Config{
		APIKey: cfg.OpenAI.APIKey,
		Model:  cfg.OpenAI.Model,
	}, logger)
	return journal.NewService(st, fetcher, generator, logger)
}

// setupLogger creates a logger with the specified configuration
func setupLogger(logFile, logLevel string) zerolog.Logger {
	// Parse log level
	level := zerolog.InfoLevel
	switch logLevel {
	case "debug":
		level = zerolog.DebugLevel
	case "info":
		level = zerolog.InfoLevel
	case "warn":
		level = zerolog.WarnLevel
	case "error":
		level = zerolog.ErrorLevel
	}

	// Set up output
	var output *os.File
	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open log file: %v\n", err)
			output = os.Stderr
		} else {
			output = f
		}
	} else {
		output = os.Stderr
	}

	// Create logger
	logger := zerolog.New(output).
		Level(level).
		With().
		Timestamp().
		Logger()

	// Use pretty console output if logging to stderr
	if output == os.Stderr {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	return logger
}
