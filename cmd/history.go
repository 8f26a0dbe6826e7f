package cmd

import (
	"context"
	"fmt"
	"sort"
	"time"

	gloss "github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/mbetts/melodiary/internal/config"
	"github.com/mbetts/melodiary/internal/tracks"
)

// historyCmd represents the history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show the most-played tracks per day",
	Long: `Group the recently-played window by local calendar day and show
the top three tracks for each day, ranked by play count.`,
	RunE: runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)
}

var (
	dayStyle = gloss.NewStyle().Foreground(gloss.Color("#f9e2af")).Bold(true)
	rowStyle = gloss.NewStyle().Foreground(gloss.Color("#cdd6f4")).PaddingLeft(2)
)

func runHistory(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := setupLogger("", "error")

	client, err := newSpotifyClient(cfg, logger)
	if err != nil {
		return err
	}

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	accessToken, _, err := st.Tokens(ctx)
	if err != nil {
		return fmt.Errorf("not logged in. Run 'melodiary auth' first")
	}

	items, err := client.FetchRecentlyPlayed(ctx, accessToken, 50)
	if err != nil {
		return fmt.Errorf("failed to fetch play history: %w", err)
	}

	days := tracks.TopByLocalDay(items, 3, time.Local)
	if len(days) == 0 {
		return fmt.Errorf("no listening history found")
	}

	dates := make([]string, 0, len(days))
	for date := range days {
		dates = append(dates, date)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(dates)))

	for _, date := range dates {
		fmt.Println(dayStyle.Render(date))
		for i, track := range days[date] {
			fmt.Println(rowStyle.Render(fmt.Sprintf("%d. %s - %s", i+1, track.Artists, track.Name)))
		}
		fmt.Println()
	}
	return nil
}
