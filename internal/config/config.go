package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so YAML values like "15s" parse.
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses the value with time.ParseDuration.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("parsing duration %q: %w", s, err)
	}
	d.Duration = parsed
	return nil
}

// Config holds all application configuration.
type Config struct {
	Adapter         string       `yaml:"adapter"`
	Device          string       `yaml:"device"` // MAC address; empty means discover
	DiscoveryWindow Duration     `yaml:"discovery_window"`
	DataDir         string       `yaml:"data_dir"`
	LogLevel        string       `yaml:"log_level"`
	Media           MediaConfig  `yaml:"media"`
	Notifications   NotifyConfig `yaml:"notifications"`
}

// MediaConfig holds media bridging settings.
type MediaConfig struct {
	Enabled    bool    `yaml:"enabled"`
	VolumeStep float64 `yaml:"volume_step"`
}

// NotifyConfig holds notification forwarding settings.
type NotifyConfig struct {
	Enabled bool `yaml:"enabled"`
}

// DefaultConfigDir returns the default config directory path.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "bandmate")
}

// DefaultConfigPath returns the default config file path.
func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.yaml")
}

// Default returns a Config with sensible default values.
func Default() *Config {
	home, _ := os.UserHomeDir()
	dataDir := filepath.Join(home, ".local", "share", "bandmate")

	return &Config{
		Adapter:         "hci0",
		DiscoveryWindow: Duration{15 * time.Second},
		DataDir:         dataDir,
		LogLevel:        "info",
		Media: MediaConfig{
			Enabled:    true,
			VolumeStep: 0.05,
		},
		Notifications: NotifyConfig{
			Enabled: true,
		},
	}
}

// Load reads and parses a YAML config file. Missing fields are filled
// with defaults. Tilde (~) in data_dir is expanded to the user's home directory.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.DataDir = expandTilde(cfg.DataDir)

	return cfg, nil
}

// Validate checks the config for invalid values.
func (c *Config) Validate() error {
	if c.Adapter == "" {
		return fmt.Errorf("adapter must not be empty")
	}

	if c.DiscoveryWindow.Duration <= 0 {
		return fmt.Errorf("discovery_window must be > 0")
	}

	if c.DataDir == "" {
		return fmt.Errorf("data_dir must not be empty")
	}

	if c.Media.Enabled && (c.Media.VolumeStep <= 0 || c.Media.VolumeStep > 1) {
		return fmt.Errorf("media.volume_step must be in (0, 1], got %v", c.Media.VolumeStep)
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level must be debug, info, warn, or error, got %q", c.LogLevel)
	}

	return nil
}

// ParseLogLevel maps a config log level string to a slog.Level.
// Unknown values default to info.
func ParseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// expandTilde replaces a leading ~ with the user's home directory.
func expandTilde(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
