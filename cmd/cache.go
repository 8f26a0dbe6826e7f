package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mbetts/melodiary/internal/config"
)

// cacheCmd groups cache maintenance subcommands
var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the journal entry cache",
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete all cached journal entries",
	Long: `Delete every cached journal entry. The next refresh regenerates
today's entry from scratch. Tokens and settings are untouched.`,
	RunE: runCacheClear,
}

var cacheListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the days with cached journal entries",
	RunE:  runCacheList,
}

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cacheClearCmd)
	cacheCmd.AddCommand(cacheListCmd)
}

func runCacheClear(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	n, err := st.ClearJournal(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Printf("Cleared %d cached journal entries.\n", n)
	return nil
}

func runCacheList(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	dates, err := st.JournalDates(cmd.Context())
	if err != nil {
		return err
	}
	if len(dates) == 0 {
		fmt.Println("No cached journal entries.")
		return nil
	}
	for _, date := range dates {
		entry, err := st.JournalEntry(cmd.Context(), date)
		if err != nil {
			continue
		}
		fmt.Printf("%s  %s\n", date, entry.Message)
	}
	return nil
}
