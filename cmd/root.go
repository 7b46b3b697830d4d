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
	Use:   "spindle",
	Short: "Terminal playlist player",
	Long: `spindle is a terminal audio player for a fixed playlist.

It plays a curated track list with transport controls (play/pause, skip,
seek, volume), an animated waveform, and a toggleable playlist view.
Tracks are decoded on first play and their playback state is kept for
the whole session.

Use 'spindle play' to start the player, 'spindle tracks' to list the
playlist, and 'spindle history' to show recently played tracks.`,
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

func init() {
	// Global flags can be added here if needed
}
