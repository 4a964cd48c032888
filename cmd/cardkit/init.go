// SPDX-License-Identifier: MPL-2.0

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"cardkit/internal/project"
)

var (
	// initPrefix is the project's card key prefix.
	initPrefix string

	// initDir is the directory the project is created in.
	initDir string
)

// initCmd creates a new project skeleton.
var initCmd = &cobra.Command{
	Use:   "init <name>",
	Short: "Create a new project",
	Long: `Create a project skeleton: the configuration document, the card
root, and one directory per resource type.

The prefix becomes both the card key prefix (PROJ-1, PROJ-2, ...) and the
name prefix of every local resource.

Examples:
  cardkit init "My project" --prefix myproj
  cardkit init "My project" --prefix myproj --dir ./my-project`,
	Args: cobra.ExactArgs(1),
	RunE: runInit,
}

func init() {
	initCmd.Flags().StringVar(&initPrefix, "prefix", "", "card key prefix (required)")
	initCmd.Flags().StringVar(&initDir, "dir", ".", "directory to create the project in")
	_ = initCmd.MarkFlagRequired("prefix")
}

func runInit(cmd *cobra.Command, args []string) error {
	root := initDir
	if root == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("failed to resolve working directory: %w", err)
		}
		root = cwd
	}

	if err := project.Init(root, args[0], initPrefix); err != nil {
		return err
	}
	fmt.Printf("%s Created project %s in %s\n", successIcon,
		ResourceStyle.Render(args[0]), SubtitleStyle.Render(root))
	return nil
}
