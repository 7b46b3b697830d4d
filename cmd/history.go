package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spindleaudio/spindle/internal/config"
	"github.com/spindleaudio/spindle/internal/history"
)

var (
	historyCount   int
	historyDataDir string
)

// historyCmd represents the history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recently played tracks",
	Long: `Show recently played tracks, most recent first.

Plays are recorded when a track starts, not when it finishes.`,
	RunE: runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().IntVarP(&historyCount, "count", "n", 20, "Number of entries to show")
	historyCmd.Flags().StringVar(&historyDataDir, "data-dir", "", "Data directory (default: ~/.local/share/spindle)")
}

func runHistory(cmd *cobra.Command, args []string) error {
	dataDir := historyDataDir
	if dataDir == "" {
		dataDir = config.DataDir()
	}

	dbPath := filepath.Join(dataDir, "history.db")
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		fmt.Println("No play history yet.")
		return nil
	}

	store, err := history.New(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open history: %w", err)
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	entries, err := store.Recent(ctx, historyCount)
	if err != nil {
		return fmt.Errorf("failed to read history: %w", err)
	}

	if len(entries) == 0 {
		fmt.Println("No play history yet.")
		return nil
	}

	for _, e := range entries {
		line := e.StartedAt.Format("2006-01-02 15:04")
		if e.Number != "" {
			line += "  " + e.Number
		}
		line += "  " + e.Title
		if e.Artist != "" {
			line += "  (" + e.Artist + ")"
		}
		fmt.Println(line)
	}
	return nil
}
