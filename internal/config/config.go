package config

import (
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config holds application configuration
type Config struct {
	// AudioDir is the directory track file references resolve against
	AudioDir string

	// Playlist is the path to a playlist manifest; empty means the
	// embedded default playlist
	Playlist string

	// Volume is the startup master volume in [0,1]
	Volume float64

	// Streaming decodes tracks lazily from disk instead of buffering
	// them fully in memory
	Streaming bool

	// RefreshRateMS is the TUI refresh interval in milliseconds
	RefreshRateMS int

	// HistoryKeepDays is how long play history is retained
	HistoryKeepDays int
}

// Load reads configuration from file and environment
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")

	configDir := getConfigDir()
	v.AddConfigPath(configDir)
	v.AddConfigPath(".")

	v.SetDefault("audio_dir", defaultAudioDir())
	v.SetDefault("playlist", "")
	v.SetDefault("volume", 1.0)
	v.SetDefault("streaming", true)
	v.SetDefault("refresh_rate_ms", 250)
	v.SetDefault("history_keep_days", 90)

	// Config file is optional - don't fail if missing
	_ = v.ReadInConfig()

	v.SetEnvPrefix("SPINDLE")
	v.AutomaticEnv()

	cfg := &Config{
		AudioDir:        v.GetString("audio_dir"),
		Playlist:        v.GetString("playlist"),
		Volume:          v.GetFloat64("volume"),
		Streaming:       v.GetBool("streaming"),
		RefreshRateMS:   v.GetInt("refresh_rate_ms"),
		HistoryKeepDays: v.GetInt("history_keep_days"),
	}

	if cfg.Volume < 0 {
		cfg.Volume = 0
	}
	if cfg.Volume > 1 {
		cfg.Volume = 1
	}

	return cfg, nil
}

// getConfigDir returns the configuration directory path
// Creates the directory if it doesn't exist
func getConfigDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	configDir := filepath.Join(homeDir, ".config", "spindle")
	_ = os.MkdirAll(configDir, 0755)

	return configDir
}

// GetConfigDir returns the configuration directory path (public helper)
func GetConfigDir() string {
	return getConfigDir()
}

// DataDir returns the default data directory for state such as play history
func DataDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(homeDir, ".local", "share", "spindle")
}

func defaultAudioDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "audio"
	}
	return filepath.Join(homeDir, "Music", "spindle")
}

// Save writes configuration to file
func (c *Config) Save() error {
	v := viper.New()

	configDir := getConfigDir()
	configFile := filepath.Join(configDir, "config.yaml")

	v.Set("audio_dir", c.AudioDir)
	v.Set("playlist", c.Playlist)
	v.Set("volume", c.Volume)
	v.Set("streaming", c.Streaming)
	v.Set("refresh_rate_ms", c.RefreshRateMS)
	v.Set("history_keep_days", c.HistoryKeepDays)

	return v.WriteConfigAs(configFile)
}
