/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>

*/
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "melodiary",
	Short: "A music diary for your Spotify listening",
	Long: `melodiary turns your Spotify listening into a daily music diary.

It polls your recently played tracks, picks the three most recent unique
songs, looks up their lyrics, and asks a language model for a short
fortune-cookie style journal entry, cached once per day.

Run 'melodiary auth' to connect a Spotify account, then 'melodiary now'
for a one-shot view or 'melodiary daemon' for the refresh loop plus the
local web page.`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
