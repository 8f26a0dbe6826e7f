package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mbetts/melodiary/internal/config"
)

// logoutCmd represents the logout command
var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Disconnect the Spotify account",
	Long:  `Remove the stored access and refresh tokens. Cached journal entries are kept.`,
	RunE:  runLogout,
}

func init() {
	rootCmd.AddCommand(logoutCmd)
}

func runLogout(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.ClearAuth(cmd.Context()); err != nil {
		return fmt.Errorf("failed to clear credentials: %w", err)
	}
	fmt.Println("Logged out.")
	return nil
}
