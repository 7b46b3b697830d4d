package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spindleaudio/spindle/internal/audio"
	"github.com/spindleaudio/spindle/internal/config"
	"github.com/spindleaudio/spindle/internal/history"
	"github.com/spindleaudio/spindle/internal/player"
	"github.com/spindleaudio/spindle/internal/playlist"
	"github.com/spindleaudio/spindle/internal/tui"
)

var (
	playLogFile  string
	playLogLevel string
	playDataDir  string
	playAudioDir string
	playPlaylist string
	playBuffered bool
)

// playCmd represents the play command
var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Start the playlist player",
	Long: `Start the terminal playlist player.

Controls:
- space: play/pause
- n/p: next/previous track (wraps at either end)
- left/right arrows: seek backward/forward (while playing)
- l: toggle the playlist panel
- v: toggle the volume panel, then +/- to adjust
- 1-9: jump to a track by number
- q: quit

Tracks are resolved against the audio directory by trying each
configured format in order. A track whose files are all missing stays
in the loading state; playback of the rest is unaffected.

The player logs to a file (the terminal belongs to the UI). Use
--log-file to choose where.`,
	RunE: runPlay,
}

func init() {
	rootCmd.AddCommand(playCmd)

	// Command-line flags
	playCmd.Flags().StringVar(&playLogFile, "log-file", "", "Log file path (default: <data-dir>/spindle.log)")
	playCmd.Flags().StringVar(&playLogLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	playCmd.Flags().StringVar(&playDataDir, "data-dir", "", "Data directory for play history (default: ~/.local/share/spindle)")
	playCmd.Flags().StringVar(&playAudioDir, "audio-dir", "", "Directory containing the track audio files")
	playCmd.Flags().StringVar(&playPlaylist, "playlist", "", "Playlist manifest path (default: built-in playlist)")
	playCmd.Flags().BoolVar(&playBuffered, "buffered", false, "Decode tracks fully into memory instead of streaming from disk")
}

func runPlay(cmd *cobra.Command, args []string) error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if playAudioDir != "" {
		cfg.AudioDir = playAudioDir
	}
	if playPlaylist != "" {
		cfg.Playlist = playPlaylist
	}
	if playBuffered {
		cfg.Streaming = false
	}

	// Determine data directory
	dataDir := playDataDir
	if dataDir == "" {
		dataDir = config.DataDir()
	}
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	// Set up logging
	logFile := playLogFile
	if logFile == "" {
		logFile = filepath.Join(dataDir, "spindle.log")
	}
	logger, closeLog, err := setupLogger(logFile, playLogLevel)
	if err != nil {
		return err
	}
	defer closeLog()

	logger.Info().
		Str("version", version).
		Str("audio_dir", cfg.AudioDir).
		Msg("Starting spindle")

	// Load the playlist
	reg, err := loadRegistry(cfg)
	if err != nil {
		return err
	}

	// Create audio engine
	engine, err := audio.NewEngine(audio.NewSpeakerOutput(), logger)
	if err != nil {
		return fmt.Errorf("failed to create audio engine: %w", err)
	}
	defer engine.Close()

	// Open play history. Failure is not fatal: playback works without it.
	store, err := history.New(filepath.Join(dataDir, "history.db"))
	if err != nil {
		logger.Warn().Err(err).Msg("Play history unavailable")
		store = nil
	} else {
		defer store.Close()
	}

	// Create TUI and transport controller
	app := tui.NewWithConfig(tui.Config{
		RefreshRate: time.Duration(cfg.RefreshRateMS) * time.Millisecond,
	})
	p := player.New(player.Config{
		AudioDir:  cfg.AudioDir,
		Streaming: cfg.Streaming,
	}, reg, player.EngineProvider{Engine: engine}, app, logger)
	app.SetController(p)
	defer p.Close()

	p.Volume(cfg.Volume)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if store != nil {
		p.OnTrackStart(func(index int, track playlist.Track) {
			// Record off the playback path
			go func() {
				if _, err := store.Record(ctx, track.Number, track.Title, track.Artist, time.Now()); err != nil {
					logger.Warn().Err(err).Msg("Failed to record play")
				}
			}()
		})

		if cfg.HistoryKeepDays > 0 {
			go func() {
				age := time.Duration(cfg.HistoryKeepDays) * 24 * time.Hour
				if deleted, err := store.Cleanup(ctx, age); err != nil {
					logger.Warn().Err(err).Msg("History cleanup failed")
				} else if deleted > 0 {
					logger.Info().Int64("deleted", deleted).Msg("Pruned old play history")
				}
			}()
		}
	}

	// Run TUI (blocks until quit or signal)
	if err := app.Run(ctx); err != nil {
		return fmt.Errorf("player error: %w", err)
	}

	logger.Info().Msg("Spindle stopped")
	return nil
}

// loadRegistry resolves the playlist manifest: an explicit path wins over
// the embedded default.
func loadRegistry(cfg *config.Config) (*playlist.Registry, error) {
	if cfg.Playlist != "" {
		reg, err := playlist.LoadFile(cfg.Playlist)
		if err != nil {
			return nil, fmt.Errorf("failed to load playlist: %w", err)
		}
		return reg, nil
	}
	return playlist.Default(), nil
}

// setupLogger creates a file-backed logger. The returned closer flushes the
// log file; callers must invoke it on shutdown.
func setupLogger(logFile, logLevel string) (zerolog.Logger, func(), error) {
	// Parse log level
	level := zerolog.InfoLevel
	switch logLevel {
	case "debug":
		level = zerolog.DebugLevel
	case "info":
		level = zerolog.InfoLevel
	case "warn":
		level = zerolog.WarnLevel
	case "error":
		level = zerolog.ErrorLevel
	}

	f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return zerolog.Logger{}, nil, fmt.Errorf("failed to open log file: %w", err)
	}

	logger := zerolog.New(f).
		Level(level).
		With().
		Timestamp().
		Logger()

	return logger, func() { _ = f.Close() }, nil
}
