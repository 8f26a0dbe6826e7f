package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/mbetts/melodiary/internal/config"
	"github.com/mbetts/melodiary/internal/store"
	"github.com/mbetts/melodiary/internal/web"
)

var authTimeout time.Duration

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Connect a Spotify account",
	Long: `Connect a Spotify account using the authorization code flow with PKCE.

This command starts the local web server, prints the login URL, and
waits for you to complete the authorization in your browser. Once the
callback lands, tokens are saved and the server shuts down.

Create an app at https://developer.spotify.com/dashboard and set its
redirect URI to the configured spotify.redirect_uri (default
http://127.0.0.1:8080/callback). No client secret is needed.`,
	RunE: runAuth,
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.Flags().DurationVar(&authTimeout, "timeout", 5*time.Minute, "How long to wait for the browser flow")
}

func runAuth(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := setupLogger("", "info")

	client, err := newSpotifyClient(cfg, logger)
	if err != nil {
		return err
	}

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	server := web.NewServer(web.ServerConfig{
		Addr:    cfg.ListenAddr,
		Client:  client,
		Store:   st,
		Journal: newJournal(cfg, st, logger),
		Logger:  logger,
	})

	ctx, cancel := context.WithTimeout(cmd.Context(), authTimeout)
	defer cancel()

	serverDone := make(chan error, 1)
	go func() { serverDone <- server.Run(ctx) }()

	fmt.Println("Spotify Authorization")
	fmt.Println("=====================")
	fmt.Println()
	fmt.Printf("Open this URL in your browser to log in:\n\n  http://%s/auth/login\n\n", cfg.ListenAddr)
	fmt.Println("Waiting for authorization...")

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("timed out waiting for authorization")
		case err := <-serverDone:
			if err != nil {
				return fmt.Errorf("web server failed: %w", err)
			}
			return fmt.Errorf("web server stopped before authorization completed")
		case <-ticker.C:
			_, _, err := st.Tokens(ctx)
			if errors.Is(err, store.ErrNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			cancel()
			<-serverDone
			fmt.Println()
			fmt.Println("Authorization complete. Tokens saved.")
			fmt.Println("Run 'melodiary now' or 'melodiary daemon' to start.")
			return nil
		}
	}
}
