// Package config loads rash's ambient configuration: global defaults
// for become/become_user/check_mode, logging, and the diff sink.
// Layered: built-in defaults, then ~/.rash/config.toml, then
// ./.rash/config.toml (project overrides global).
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// LogLevel specifies the logging verbosity.
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// LogFormat specifies the log output format.
type LogFormat string

const (
	LogFormatJSON LogFormat = "json"
	LogFormatText LogFormat = "text"
)

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  LogLevel  `toml:"level"`
	Format LogFormat `toml:"format"`
	File   string    `toml:"file"`
}

// DefaultsConfig holds the global task-attribute defaults applied by
// the task builder: become, become_user, check_mode.
type DefaultsConfig struct {
	Become     bool   `toml:"become"`
	BecomeUser string `toml:"become_user"`
	CheckMode  bool   `toml:"check_mode"`
}

// DiffConfig controls the diff sink: presentation only, never whether
// a module computes a diff.
type DiffConfig struct {
	Enabled bool `toml:"enabled"`
	Color   bool `toml:"color"`
}

// Config is rash's top-level configuration.
type Config struct {
	Version  string         `toml:"version"`
	Defaults DefaultsConfig `toml:"defaults"`
	Logging  LoggingConfig  `toml:"logging"`
	Diff     DiffConfig     `toml:"diff"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Version: "1",
		Defaults: DefaultsConfig{
			Become:     false,
			BecomeUser: "root",
			CheckMode:  false,
		},
		Logging: LoggingConfig{
			Level:  LogLevelInfo,
			Format: LogFormatText,
		},
		Diff: DiffConfig{
			Enabled: false,
			Color:   true,
		},
	}
}

// Load reads a single TOML config file, merging over Default(). A
// missing file is not an error: defaults are returned unchanged.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if _, err := toml.Decode(string(data), cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, nil
}

// LoadFromDir loads configuration from the standard locations:
// defaults -> ~/.rash/config.toml -> <dir>/.rash/config.toml, each
// layer overriding the previous.
func LoadFromDir(dir string) (*Config, error) {
	cfg := Default()

	if home, err := os.UserHomeDir(); err == nil {
		globalPath := filepath.Join(home, ".rash", "config.toml")
		if data, err := os.ReadFile(globalPath); err == nil {
			if _, err := toml.Decode(string(data), cfg); err != nil {
				return nil, fmt.Errorf("parsing global config: %w", err)
			}
		}
	}

	projectPath := filepath.Join(dir, ".rash", "config.toml")
	if data, err := os.ReadFile(projectPath); err == nil {
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return nil, fmt.Errorf("parsing project config: %w", err)
		}
	}

	return cfg, nil
}

// Validate checks that the configuration is well-formed.
func (c *Config) Validate() error {
	if c.Version == "" {
		return fmt.Errorf("config version is required")
	}
	switch c.Logging.Level {
	case LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError, "":
	default:
		return fmt.Errorf("invalid logging level: %s", c.Logging.Level)
	}
	return nil
}
