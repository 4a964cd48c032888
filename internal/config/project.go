// SPDX-License-Identifier: MPL-2.0

package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"cardkit/pkg/resname"
)

// ProjectConfigFile is the project marker document at the project root.
const ProjectConfigFile = "cardsConfig.json"

// ProjectConfig is the project's own configuration document. Its presence
// marks a directory as a project root.
type ProjectConfig struct {
	// Name is the human-readable project name.
	Name string `mapstructure:"name" json:"name"`
	// CardKeyPrefix is the prefix of generated card keys and of every local
	// resource name.
	CardKeyPrefix string `mapstructure:"cardKeyPrefix" json:"cardKeyPrefix"`
	// NextCardNumber is the counter for generated card keys.
	NextCardNumber int `mapstructure:"nextCardNumber" json:"nextCardNumber"`
}

// Validate checks the project configuration invariants.
func (p *ProjectConfig) Validate() error {
	if p.CardKeyPrefix == "" {
		return fmt.Errorf("project config is missing cardKeyPrefix")
	}
	if !resname.ValidIdentifier(p.CardKeyPrefix) {
		return fmt.Errorf("invalid card key prefix '%s'", p.CardKeyPrefix)
	}
	return nil
}

// LoadProject reads the project configuration from a project root.
func LoadProject(root string) (*ProjectConfig, error) {
	path := filepath.Join(root, ProjectConfigFile)
	if !fileExists(path) {
		return nil, fmt.Errorf("no project found at %s", root)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read project config: %w", err)
	}

	var cfg ProjectConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse project config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// FindProjectRoot walks from dir upward to the filesystem root looking for a
// directory holding cardsConfig.json.
func FindProjectRoot(dir string) (string, error) {
	current, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve directory: %w", err)
	}
	for {
		if fileExists(filepath.Join(current, ProjectConfigFile)) {
			return current, nil
		}
		parent := filepath.Dir(current)
		if parent == current {
			return "", fmt.Errorf("no project found in %s or any parent directory", dir)
		}
		current = parent
	}
}

// WriteProject writes a project configuration document, creating the root
// directory when needed. Used by project initialization.
func WriteProject(root string, cfg *ProjectConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return fmt.Errorf("failed to create project root: %w", err)
	}

	v := viper.New()
	v.Set("name", cfg.Name)
	v.Set("cardKeyPrefix", cfg.CardKeyPrefix)
	v.Set("nextCardNumber", cfg.NextCardNumber)
	if err := v.WriteConfigAs(filepath.Join(root, ProjectConfigFile)); err != nil {
		return fmt.Errorf("failed to write project config: %w", err)
	}
	return nil
}
