package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/mbetts/melodiary/internal/config"
	"github.com/mbetts/melodiary/internal/daemon"
	"github.com/mbetts/melodiary/internal/web"
)

var (
	daemonLogFile  string
	daemonLogLevel string
	daemonNoWeb    bool
)

// daemonCmd represents the daemon command
var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run the refresh loop and local web page",
	Long: `Run the diary daemon.

The daemon will:
- Poll your Spotify recently-played feed every 30 seconds
- Keep the three most recent unique tracks up to date
- Generate (or reuse) today's fortune journal entry
- Refresh the access token automatically when it expires
- Serve the local web page and JSON API

If the refresh token is rejected the daemon stops and you must run
'melodiary auth' again.

The daemon runs in the foreground and logs to stderr by default.
Use the --log-file flag to log to a file.`,
	RunE: runDaemon,
}

func init() {
	rootCmd.AddCommand(daemonCmd)

	daemonCmd.Flags().StringVar(&daemonLogFile, "log-file", "", "Log file path (default: stderr)")
	daemonCmd.Flags().StringVar(&daemonLogLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	daemonCmd.Flags().BoolVar(&daemonNoWeb, "no-web", false, "Run the refresh loop without the web server")
}

func runDaemon(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := setupLogger(daemonLogFile, daemonLogLevel)

	client, err := newSpotifyClient(cfg, logger)
	if err != nil {
		return err
	}

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	if _, _, err := st.Tokens(cmd.Context()); err != nil {
		return fmt.Errorf("not logged in. Run 'melodiary auth' first")
	}

	journalSvc := newJournal(cfg, st, logger)

	refresher := daemon.NewRefresher(client, st, journalSvc, daemon.Config{
		Interval: time.Duration(cfg.PollInterval) * time.Second,
	}, logger)

	logger.Info().Str("version", version).Msg("Starting melodiary daemon")

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)

	updates := make(chan daemon.Update, 8)
	g.Go(func() error {
		defer cancel()
		err := refresher.Run(ctx, updates)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	// Drain updates so the refresher never blocks; the web handlers
	// read fresh state on demand.
	g.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				return nil
			case update := <-updates:
				if update.Err != nil {
					logger.Warn().Err(update.Err).Msg("Refresh problem")
				}
				if update.NowPlaying != nil {
					logger.Info().
						Str("track", update.NowPlaying.Name).
						Str("artists", update.NowPlaying.Artists).
						Msg("Now playing")
				}
			}
		}
	})

	if !daemonNoWeb {
		server := web.NewServer(web.ServerConfig{
			Addr:    cfg.ListenAddr,
			Client:  client,
			Store:   st,
			Journal: journalSvc,
			Logger:  logger,
		})
		g.Go(func() error {
			defer cancel()
			return server.Run(ctx)
		})
	}

	if err := g.Wait(); err != nil {
		if errors.Is(err, daemon.ErrDisconnected) {
			return fmt.Errorf("session disconnected. Run 'melodiary auth' to log in again")
		}
		return fmt.Errorf("daemon error: %w", err)
	}

	logger.Info().Msg("Daemon stopped")
	return nil
}
