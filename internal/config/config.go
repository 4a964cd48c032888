// SPDX-License-Identifier: MPL-2.0

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/spf13/viper"

	"cardkit/internal/issue"
)

const (
	// AppName is the application name, also the config directory name.
	AppName = "cardkit"
	// ConfigFileName is the name of the user config file (without extension).
	ConfigFileName = "config"
	// ConfigFileExt is the user config file extension.
	ConfigFileExt = "json"
)

// Config is the user-level configuration. All fields are preferences; a
// missing config file yields defaults without error.
type Config struct {
	// LogLevel selects the console log verbosity: debug, info, warn, error.
	LogLevel string `mapstructure:"logLevel"`
	// Editor is the command used to open card content for editing.
	Editor string `mapstructure:"editor"`
	// DefaultProject is the project root opened when the working directory
	// is not inside a project.
	DefaultProject string `mapstructure:"defaultProject"`
}

// DefaultConfig returns the configuration used when no config file exists.
func DefaultConfig() *Config {
	return &Config{
		LogLevel: "info",
		Editor:   "",
	}
}

// ConfigDir returns the cardkit configuration directory using
// platform-specific conventions: Windows uses %APPDATA%, macOS uses
// ~/Library/Application Support, and Linux/others use $XDG_CONFIG_HOME
// (defaulting to ~/.config).
//
//nolint:revive // ConfigDir is more descriptive than Dir for external callers
func ConfigDir() (string, error) {
	var configDir string

	switch runtime.GOOS {
	case "windows":
		configDir = os.Getenv("APPDATA")
		if configDir == "" {
			configDir = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(home, "Library", "Application Support")
	default: // Linux and others
		configDir = os.Getenv("XDG_CONFIG_HOME")
		if configDir == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("failed to get home directory: %w", err)
			}
			configDir = filepath.Join(home, ".config")
		}
	}

	return filepath.Join(configDir, AppName), nil
}

// Load reads the user configuration. A custom path overrides the platform
// location; an empty path with no config file present returns defaults.
func Load(configFilePath string) (*Config, error) {
	v := viper.New()

	defaults := DefaultConfig()
	v.SetDefault("logLevel", defaults.LogLevel)
	v.SetDefault("editor", defaults.Editor)
	v.SetDefault("defaultProject", defaults.DefaultProject)

	path := configFilePath
	if path == "" {
		cfgDir, err := ConfigDir()
		if err != nil {
			return nil, err
		}
		path = filepath.Join(cfgDir, ConfigFileName+"."+ConfigFileExt)
		if !fileExists(path) {
			// No config file: defaults apply.
			cfg := *defaults
			return &cfg, nil
		}
	} else if !fileExists(path) {
		return nil, issue.NewErrorContext().
			WithOperation("load configuration").
			WithResource(path).
			WithSuggestion("Verify the file path is correct").
			WithSuggestion("Remove the flag to use the default configuration").
			Wrap(fmt.Errorf("config file not found: %s", path)).
			BuildError()
	}

	v.SetConfigFile(path)
	v.SetConfigType(ConfigFileExt)
	if err := v.ReadInConfig(); err != nil {
		return nil, issue.NewErrorContext().
			WithOperation("load configuration").
			WithResource(path).
			WithSuggestion("Check that the file contains valid JSON").
			WithSuggestion("Remove the file to fall back to defaults").
			Wrap(err).
			BuildError()
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := validateLogLevel(cfg.LogLevel); err != nil {
		return nil, issue.NewErrorContext().
			WithOperation("validate configuration").
			WithResource(path).
			WithSuggestion("Use one of: debug, info, warn, error").
			Wrap(err).
			BuildError()
	}
	return &cfg, nil
}

// Save writes the user configuration to the platform config location.
func Save(cfg *Config) error {
	cfgDir, err := ConfigDir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(cfgDir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	v := viper.New()
	v.Set("logLevel", cfg.LogLevel)
	v.Set("editor", cfg.Editor)
	v.Set("defaultProject", cfg.DefaultProject)

	path := filepath.Join(cfgDir, ConfigFileName+"."+ConfigFileExt)
	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func validateLogLevel(level string) error {
	switch level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("unknown log level %q", level)
	}
}

// fileExists checks if a file exists and is not a directory.
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return false
	}
	return err == nil && !info.IsDir()
}
