// Package config loads bridge settings from YAML.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/wippyai/pgp-bridge/codec"
	"github.com/wippyai/pgp-bridge/dispatch"
	"github.com/wippyai/pgp-bridge/engine"
	"github.com/wippyai/pgp-bridge/native"
	"github.com/wippyai/pgp-bridge/pinentry"
)

// EnvPath names the environment variable consulted when no path is given.
const EnvPath = "PGPBRIDGE_CONFIG"

// Config holds all bridge settings.
type Config struct {
	HomeDir        string        `yaml:"home_dir"`
	EnginePath     string        `yaml:"engine_path"`
	PinentryMode   string        `yaml:"pinentry_mode"`
	KeyringService string        `yaml:"keyring_service"`
	LogLevel       string        `yaml:"log_level"`
	InboxDir       string        `yaml:"inbox_dir"`
	LockTimeout    time.Duration `yaml:"lock_timeout"`
	Workers        int           `yaml:"workers"`
	QueueSize      int           `yaml:"queue_size"`
	Armor          bool          `yaml:"armor"`
	TextMode       bool          `yaml:"text_mode"`
	Offline        bool          `yaml:"offline"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		HomeDir:        engine.DefaultHomeDir(),
		PinentryMode:   "default",
		KeyringService: pinentry.DefaultService,
		LogLevel:       "info",
		LockTimeout:    engine.DefaultLockTimeout,
		Workers:        dispatch.DefaultWorkers,
		QueueSize:      dispatch.DefaultQueueSize,
	}
}

// DefaultPath returns ~/.pgpbridge/config.yaml, or "" when the home
// directory is unknown.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".pgpbridge", "config.yaml")
}

// Load reads settings from path. An empty path falls back to $PGPBRIDGE_CONFIG
// and then to DefaultPath. A missing file yields defaults; fields absent from
// the file keep their defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv(EnvPath)
	}
	if path == "" {
		path = DefaultPath()
	}
	if path == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate rejects settings the bridge cannot run with.
func (c *Config) Validate() error {
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	if c.QueueSize < 0 {
		return fmt.Errorf("queue_size must not be negative, got %d", c.QueueSize)
	}
	if c.LockTimeout < 0 {
		return fmt.Errorf("lock_timeout must not be negative, got %s", c.LockTimeout)
	}
	if _, err := c.Pinentry(); err != nil {
		return err
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

// Pinentry returns the configured pinentry mode.
func (c *Config) Pinentry() (native.PinentryMode, error) {
	if c.PinentryMode == "" {
		return native.PinentryDefault, nil
	}
	mode, err := codec.PinentryModes.Decode([]string{"pinentry_mode"}, c.PinentryMode)
	if err != nil {
		return 0, fmt.Errorf("unknown pinentry_mode %q", c.PinentryMode)
	}
	return mode, nil
}

// Level returns the configured log level.
func (c *Config) Level() (zapcore.Level, error) {
	if c.LogLevel == "" {
		return zapcore.InfoLevel, nil
	}
	lvl, err := zapcore.ParseLevel(c.LogLevel)
	if err != nil {
		return 0, fmt.Errorf("unknown log_level %q", c.LogLevel)
	}
	return lvl, nil
}

// EngineOptions converts the settings into engine options.
func (c *Config) EngineOptions() engine.Options {
	mode, _ := c.Pinentry()
	return engine.Options{
		HomeDir:        c.HomeDir,
		EnginePath:     c.EnginePath,
		KeyringService: c.KeyringService,
		LockTimeout:    c.LockTimeout,
		PinentryMode:   mode,
		Armor:          c.Armor,
		TextMode:       c.TextMode,
		Offline:        c.Offline,
	}
}
