// SPDX-License-Identifier: MPL-2.0

package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// moduleCmd represents the module command group.
var moduleCmd = &cobra.Command{
	Use:   "module",
	Short: "Manage imported modules",
	Long: `Manage resource modules imported from other projects.

Imported resources keep their source project's prefix and are read-only:
they can be referenced by local card types, templates and calculations but
never updated, renamed or deleted in place.

Examples:
  cardkit module import ../shared-resources shared
  cardkit module list
  cardkit module remove shared`,
}

// moduleImportCmd imports another project's resources.
var moduleImportCmd = &cobra.Command{
	Use:   "import <path> <name>",
	Short: "Import a module",
	Long: `Copy the resource folders of another project into this project's
modules directory and register them under the given module name.

Examples:
  cardkit module import ../shared-resources shared`,
	Args: cobra.ExactArgs(2),
	RunE: runModuleImport,
}

// moduleRemoveCmd removes an imported module.
var moduleRemoveCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "Remove an imported module",
	Long: `Delete an imported module: its folder, its manifest record, and
every cached entry it contributed.

Examples:
  cardkit module remove shared`,
	Args: cobra.ExactArgs(1),
	RunE: runModuleRemove,
}

// moduleListCmd lists imported modules.
var moduleListCmd = &cobra.Command{
	Use:   "list",
	Short: "List imported modules",
	Long: `List the modules recorded in the project's module manifest.

Examples:
  cardkit module list`,
	RunE: runModuleList,
}

func init() {
	moduleCmd.AddCommand(moduleImportCmd)
	moduleCmd.AddCommand(moduleRemoveCmd)
	moduleCmd.AddCommand(moduleListCmd)
}

func runModuleImport(cmd *cobra.Command, args []string) error {
	p, err := openProject()
	if err != nil {
		return err
	}
	defer p.Close()

	src, name := args[0], args[1]
	if err := p.ImportModule(src, name); err != nil {
		return err
	}
	fmt.Printf("%s Imported module %s from %s\n", successIcon,
		ResourceStyle.Render(name), SubtitleStyle.Render(src))
	return nil
}

func runModuleRemove(cmd *cobra.Command, args []string) error {
	p, err := openProject()
	if err != nil {
		return err
	}
	defer p.Close()

	if err := p.RemoveModule(args[0]); err != nil {
		return err
	}
	fmt.Printf("%s Removed module %s\n", successIcon, ResourceStyle.Render(args[0]))
	return nil
}

func runModuleList(cmd *cobra.Command, args []string) error {
	p, err := openProject()
	if err != nil {
		return err
	}
	defer p.Close()

	modules, err := p.Modules()
	if err != nil {
		return err
	}
	if len(modules) == 0 {
		fmt.Printf("%s No modules imported\n", infoIcon)
		return nil
	}
	for _, name := range modules {
		fmt.Printf("%s %s\n", infoIcon, ResourceStyle.Render(name))
	}
	return nil
}
