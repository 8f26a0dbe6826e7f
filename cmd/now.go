/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"text/template"
	"time"

	gloss "github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"github.com/mbetts/melodiary/internal/config"
	"github.com/mbetts/melodiary/internal/tracks"
)

// nowCmd represents the now command
var nowCmd = &cobra.Command{
	Use:   "now",
	Short: "Show your three current tracks and today's fortune",
	Long: `Fetch your recently played tracks and show the three most recent
unique songs together with today's journal entry.

With --format, each track is printed through a Go template instead of
the card view. Available fields: .Name, .Artists, .PlayedAt

Exit codes:
  0 - Tracks found
  1 - No listening history or not logged in`,
	RunE: runNow,
}

func init() {
	rootCmd.AddCommand(nowCmd)

	nowCmd.Flags().StringP("format", "f", "", "Output format template (overrides config)")
	nowCmd.Flags().IntP("width", "w", 0, "Fixed output width for template output (0=disabled)")
	nowCmd.Flags().Bool("no-fortune", false, "Skip journal generation, show tracks only")
}

var (
	cardStyle = gloss.NewStyle().
			Border(gloss.RoundedBorder()).
			BorderForeground(gloss.Color("#585b70")).
			Padding(0, 1).
			Width(36)
	titleStyle   = gloss.NewStyle().Foreground(gloss.Color("#89b4fa")).Bold(true)
	artistStyle  = gloss.NewStyle().Foreground(gloss.Color("#cdd6f4"))
	playedStyle  = gloss.NewStyle().Foreground(gloss.Color("#585b70"))
	fortuneStyle = gloss.NewStyle().
			Border(gloss.DoubleBorder()).
			BorderForeground(gloss.Color("#f9e2af")).
			Padding(0, 2).
			Width(76).
			Italic(true)
)

func runNow(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), 60*time.Second)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	formatFlag, _ := cmd.Flags().GetString("format")
	if formatFlag != "" {
		cfg.OutputFormat = formatFlag
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

	top := tracks.MostRecentUnique(items, 3)
	if len(top) == 0 {
		return fmt.Errorf("no listening history found")
	}

	// Template output for status bars and scripts.
	if cmd.Flags().Changed("format") {
		width, _ := cmd.Flags().GetInt("width")
		for _, track := range top {
			line, err := formatTrack(track, cfg.OutputFormat)
			if err != nil {
				return err
			}
			if width > 0 {
				line = padToWidth(line, width)
			}
			fmt.Println(line)
		}
		return nil
	}

	cards := make([]string, 0, len(top))
	for i, track := range top {
		label := "now playing"
		if i > 0 {
			label = track.PlayedAt.Local().Format("15:04")
		}
		card := cardStyle.Render(strings.Join([]string{
			titleStyle.Render(track.Name),
			artistStyle.Render(track.Artists),
			playedStyle.Render(label),
		}, "\n"))
		cards = append(cards, card)
	}
	fmt.Println(gloss.JoinHorizontal(gloss.Top, cards...))

	noFortune, _ := cmd.Flags().GetBool("no-fortune")
	if noFortune {
		return nil
	}

	journalSvc := newJournal(cfg, st, logger)
	message, err := journalSvc.GetOrGenerate(ctx, journalSvc.TodayISO(), top)
	if err != nil {
		logger.Warn().Err(err).Msg("Journal generation failed")
	}
	if message != "" {
		fmt.Println()
		fmt.Println(fortuneStyle.Render(message))
	}
	return nil
}

// formatTrack applies the template to the track data
func formatTrack(track tracks.Track, templateStr string) (string, error) {
	tmpl, err := template.New("output").Parse(templateStr)
	if err != nil {
		return "", fmt.Errorf("invalid template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, track); err != nil {
		return "", fmt.Errorf("template execution failed: %w", err)
	}

	return buf.String(), nil
}

// padToWidth pads or truncates text to a fixed display width.
// Width is measured in display columns, accounting for Unicode characters.
func padToWidth(text string, width int) string {
	if width <= 0 {
		return text
	}

	currentWidth := runewidth.StringWidth(text)
	if currentWidth > width {
		ellipsis := "..."
		ellipsisWidth := runewidth.StringWidth(ellipsis)
		if width <= ellipsisWidth {
			return runewidth.Truncate(ellipsis, width, "")
		}
		truncated := runewidth.Truncate(text, width-ellipsisWidth, "")
		result := truncated + ellipsis
		if got := runewidth.StringWidth(result); got < width {
			return result + strings.Repeat(" ", width-got)
		}
		return result
	}
	if currentWidth < width {
		return text + strings.Repeat(" ", width-currentWidth)
	}
	return text
}
