// SPDX-License-Identifier: MPL-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"

	"cardkit/internal/config"
	"cardkit/internal/issue"
	"cardkit/internal/project"
	"cardkit/pkg/resname"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"

	// verbose enables verbose error output.
	verbose bool
	// cfgFile allows specifying a custom config file.
	cfgFile string
	// projectDir overrides project root discovery.
	projectDir string

	// userConfig is the loaded user configuration, available to every verb.
	userConfig *config.Config

	// rootCmd represents the base command when called without any subcommands.
	rootCmd = &cobra.Command{
		Use:   "cardkit",
		Short: "Manage a card project's resources",
		Long: TitleStyle.Render("cardkit") + SubtitleStyle.Render(" - Manage a card project's resources") + `

cardkit keeps a project's card types, workflows, field types, link types,
templates, reports, graph models and views, and calculations consistent:
updates are validated against schemas, renames cascade into every artifact
that references the old name, and deletes are blocked while a resource is
still in use.

` + SubtitleStyle.Render("Quick Start:") + `
  1. Create a project with: cardkit init "My project" --prefix myproj
  2. Add resources with: cardkit create workflows/simple
  3. Inspect them with: cardkit list cardTypes

` + SubtitleStyle.Render("Examples:") + `
  cardkit create cardTypes/bug            Create a card type
  cardkit show cardTypes/bug              Print its content document
  cardkit rename cardTypes/bug defect     Rename it, cascading references
  cardkit module import ../shared shared  Import another project's resources
  cardkit watch                           Keep the cache fresh while editing`,
	}
)

func init() {
	cobra.OnInitialize(initRootConfig)

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose error output")
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/cardkit/config.json)")
	rootCmd.PersistentFlags().StringVarP(&projectDir, "project", "p", "", "project root (default is discovered from the working directory)")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(createCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(updateCmd)
	rootCmd.AddCommand(renameCmd)
	rootCmd.AddCommand(removeCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(cardCmd)
	rootCmd.AddCommand(moduleCmd)
	rootCmd.AddCommand(watchCmd)
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute runs the root command. It is called once from main.
func Execute() {
	if err := fang.Execute(
		context.Background(),
		rootCmd,
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		os.Exit(1)
	}
}

// initRootConfig loads the user configuration. A missing file falls back to
// defaults silently; a broken file is surfaced as a warning.
func initRootConfig() {
	path := cfgFile
	if path == "" {
		dir, err := config.ConfigDir()
		if err != nil {
			userConfig = config.DefaultConfig()
			return
		}
		path = filepath.Join(dir, config.ConfigFileName+"."+config.ConfigFileExt)
	}

	cfg, err := config.Load(path)
	if err != nil {
		if cfgFile != "" {
			fmt.Fprintln(os.Stderr, WarningStyle.Render("Warning: ")+formatErrorForDisplay(err, verbose))
		}
		cfg = config.DefaultConfig()
	}
	userConfig = cfg
}

// formatErrorForDisplay formats an error for user display. ActionableErrors
// carry their own suggestion-aware formatting.
func formatErrorForDisplay(err error, verboseMode bool) string {
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return ae.Format(verboseMode)
	}
	return err.Error()
}

// openProject locates and opens the project the command operates on:
// --project if given, otherwise the nearest ancestor of the working directory
// holding a project marker, otherwise the configured default project.
func openProject() (*project.Project, error) {
	root := projectDir
	if root == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve working directory: %w", err)
		}
		root, err = config.FindProjectRoot(cwd)
		if err != nil {
			if userConfig != nil && userConfig.DefaultProject != "" {
				root = userConfig.DefaultProject
			} else {
				return nil, err
			}
		}
	}
	return project.Open(root)
}

// parseResourceName parses a resource argument. A two-part "type/identifier"
// form is resolved against the project's own prefix.
func parseResourceName(p *project.Project, arg string) (resname.ResourceName, error) {
	if strings.Count(arg, "/") == 1 {
		arg = p.Config().CardKeyPrefix + "/" + arg
	}
	return resname.Parse(arg)
}
