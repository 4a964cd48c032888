// SPDX-License-Identifier: MPL-2.0

package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"cardkit/internal/watch"
)

var (
	// watchDebounce is the quiet period before a change batch is processed.
	watchDebounce time.Duration

	// watchIgnore adds glob patterns that never trigger processing.
	watchIgnore []string
)

// watchCmd keeps the resource cache coherent while files are edited.
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the project for resource changes",
	Long: `Watch the project's resource trees and card root, feeding every
change into the resource cache so later commands see a fresh view.

Runs until interrupted.

Examples:
  cardkit watch
  cardkit watch --debounce 1s --ignore "**/*.bak"`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", 0, "quiet period before processing a change batch")
	watchCmd.Flags().StringArrayVar(&watchIgnore, "ignore", nil, "glob patterns to ignore (repeatable)")
}

func runWatch(cmd *cobra.Command, args []string) error {
	p, err := openProject()
	if err != nil {
		return err
	}
	defer p.Close()

	w, err := watch.New(watch.Config{
		Root:     p.Root(),
		Ignore:   watchIgnore,
		Debounce: watchDebounce,
		OnChange: func(ctx context.Context, changed []string) error {
			for _, path := range changed {
				fmt.Printf("%s %s\n", infoIcon, path)
			}
			return p.OnWatchChange(changed)
		},
		Stderr: os.Stderr,
	})
	if err != nil {
		return err
	}

	fmt.Printf("%s Watching %s\n", infoIcon, SubtitleStyle.Render(p.Root()))
	return w.Run(cmd.Context())
}
