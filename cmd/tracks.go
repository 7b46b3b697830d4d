/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"
	"github.com/spindleaudio/spindle/internal/config"
	"github.com/spindleaudio/spindle/internal/playlist"
)

// tracksCmd represents the tracks command
var tracksCmd = &cobra.Command{
	Use:   "tracks",
	Short: "List the playlist tracks",
	Long: `List the tracks of the configured playlist without starting playback.

The per-track output can be customized with a Go template. Available
fields: .Title, .File, .Number, .Model, .Designer, .Artist, .Note

Useful for status bars and scripts, e.g.:
  spindle tracks --format '{{.Number}} {{.Title}}' --width 30`,
	RunE: runTracks,
}

func init() {
	rootCmd.AddCommand(tracksCmd)

	// Add format flag to override the default table output
	tracksCmd.Flags().StringP("format", "f", "", "Per-track output format template")
	// Add width flag to set fixed output width
	tracksCmd.Flags().IntP("width", "w", 0, "Fixed output width per line (0=disabled)")
	tracksCmd.Flags().String("playlist", "", "Playlist manifest path (default: built-in playlist)")
}

func runTracks(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	playlistFlag, _ := cmd.Flags().GetString("playlist")
	if playlistFlag != "" {
		cfg.Playlist = playlistFlag
	}

	reg, err := loadRegistry(cfg)
	if err != nil {
		return err
	}

	formatFlag, _ := cmd.Flags().GetString("format")
	width, _ := cmd.Flags().GetInt("width")

	for i, track := range reg.All() {
		var line string
		if formatFlag != "" {
			line, err = formatTrack(track, formatFlag)
			if err != nil {
				return fmt.Errorf("failed to format output: %w", err)
			}
		} else {
			line = fmt.Sprintf("%2d  %-8s %s", i+1, track.Number, track.Title)
			if track.Artist != "" {
				line += "  (" + track.Artist + ")"
			}
		}
		if width > 0 {
			line = padToWidth(line, width)
		}
		fmt.Println(line)
	}
	return nil
}

// formatTrack applies the template to the track data
func formatTrack(track playlist.Track, templateStr string) (string, error) {
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
// If width <= 0, returns text unchanged.
// If text is longer than width, truncates with "..." suffix.
// If text is shorter than width, pads with spaces.
func padToWidth(text string, width int) string {
	if width <= 0 {
		return text // no padding requested
	}

	currentWidth := runewidth.StringWidth(text)

	if currentWidth > width {
		ellipsis := "..."
		ellipsisWidth := runewidth.StringWidth(ellipsis)

		if width <= ellipsisWidth {
			// If width is too small, just return ellipsis truncated to width
			return runewidth.Truncate(ellipsis, width, "")
		}

		// Truncate to (width - ellipsisWidth) and add ellipsis
		truncated := runewidth.Truncate(text, width-ellipsisWidth, "")
		result := truncated + ellipsis

		// Ensure we're exactly at the target width (in case truncate was imprecise)
		resultWidth := runewidth.StringWidth(result)
		if resultWidth < width {
			return result + strings.Repeat(" ", width-resultWidth)
		} else if resultWidth > width {
			return runewidth.Truncate(result, width, "")
		}
		return result
	} else if currentWidth < width {
		// Pad with spaces
		return text + strings.Repeat(" ", width-currentWidth)
	}

	return text // exactly the right width
}
