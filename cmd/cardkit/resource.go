// SPDX-License-Identifier: MPL-2.0

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"cardkit/internal/registry"
	"cardkit/pkg/ops"
	"cardkit/pkg/resname"
)

var (
	// createContentFile is the JSON document for the new resource.
	createContentFile string

	// listFrom filters listed resources by origin.
	listFrom string
)

// createCmd creates a new local resource.
var createCmd = &cobra.Command{
	Use:   "create <type/identifier>",
	Short: "Create a resource",
	Long: `Create a new local resource of the given type.

Without --content the resource starts from the type's defaults. With
--content the given JSON document is validated against the type's schema
before anything is written.

Examples:
  cardkit create workflows/simple
  cardkit create cardTypes/bug --content bug.json`,
	Args: cobra.ExactArgs(1),
	RunE: runCreate,
}

// showCmd prints a resource's content document.
var showCmd = &cobra.Command{
	Use:   "show <type/identifier>",
	Short: "Show a resource's content",
	Long: `Print the content document of a resource as indented JSON.

Imported resources can be shown with their full name:
  cardkit show shared/workflows/simple

Examples:
  cardkit show cardTypes/bug`,
	Args: cobra.ExactArgs(1),
	RunE: runShow,
}

// listCmd lists resources of one type.
var listCmd = &cobra.Command{
	Use:   "list <type>",
	Short: "List resources of a type",
	Long: `List the resources of one type, local and imported.

Examples:
  cardkit list cardTypes
  cardkit list workflows --from local`,
	Args: cobra.ExactArgs(1),
	RunE: runList,
}

// updateCmd applies one operation to a resource property.
var updateCmd = &cobra.Command{
	Use:   "update <type/identifier> <key> <operation>",
	Short: "Update a resource property",
	Long: `Apply one operation to the named property of a resource.

The operation is a JSON document selecting the mutation by name:
  {"name": "change", "to": "A new description"}
  {"name": "add", "target": {"name": "Review", "category": "active"}}
  {"name": "rank", "target": "Review", "newIndex": 0}
  {"name": "remove", "target": "Review"}
  {"name": "replaceAll", "to": []}

Examples:
  cardkit update cardTypes/bug description '{"name": "change", "to": "A software defect"}'
  cardkit update workflows/simple states '{"name": "remove", "target": "Review"}'`,
	Args: cobra.ExactArgs(3),
	RunE: runUpdate,
}

// renameCmd renames a resource, cascading references.
var renameCmd = &cobra.Command{
	Use:   "rename <type/identifier> <new-identifier>",
	Short: "Rename a resource",
	Long: `Move a resource to a new identifier of the same type.

Every artifact that references the old name is rewritten: card metadata,
other resources, and calculation programs.

Examples:
  cardkit rename cardTypes/bug defect`,
	Args: cobra.ExactArgs(2),
	RunE: runRename,
}

// removeCmd deletes a resource unless it is in use.
var removeCmd = &cobra.Command{
	Use:   "remove <type/identifier>",
	Short: "Remove a resource",
	Long: `Delete a resource. Deletion is refused while any card or other
resource still references it; the error lists every blocking reference.

Examples:
  cardkit remove cardTypes/bug`,
	Args: cobra.ExactArgs(1),
	RunE: runRemove,
}

// validateCmd checks resources against their schemas.
var validateCmd = &cobra.Command{
	Use:   "validate [type/identifier]",
	Short: "Validate resources against their schemas",
	Long: `Validate a resource's current content against its schema, or every
local resource when no argument is given.

Examples:
  cardkit validate
  cardkit validate cardTypes/bug`,
	Args: cobra.MaximumNArgs(1),
	RunE: runValidate,
}

func init() {
	createCmd.Flags().StringVar(&createContentFile, "content", "", "JSON file holding the resource content")
	listCmd.Flags().StringVar(&listFrom, "from", "all", "origin filter: all, local or imported")
}

func runCreate(cmd *cobra.Command, args []string) error {
	p, err := openProject()
	if err != nil {
		return err
	}
	defer p.Close()

	name, err := parseResourceName(p, args[0])
	if err != nil {
		return err
	}

	var content json.RawMessage
	if createContentFile != "" {
		data, err := os.ReadFile(createContentFile)
		if err != nil {
			return fmt.Errorf("failed to read content file: %w", err)
		}
		content = data
	}

	if err := p.CreateResource(name, content); err != nil {
		return err
	}
	fmt.Printf("%s Created %s\n", successIcon, ResourceStyle.Render(name.String()))
	return nil
}

func runShow(cmd *cobra.Command, args []string) error {
	p, err := openProject()
	if err != nil {
		return err
	}
	defer p.Close()

	name, err := parseResourceName(p, args[0])
	if err != nil {
		return err
	}
	data, err := p.ResourceData(name)
	if err != nil {
		return err
	}

	var pretty map[string]any
	if err := json.Unmarshal(data, &pretty); err != nil {
		return fmt.Errorf("failed to decode resource '%s': %w", name, err)
	}
	out, err := json.MarshalIndent(pretty, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode resource '%s': %w", name, err)
	}
	fmt.Println(string(out))
	return nil
}

func runList(cmd *cobra.Command, args []string) error {
	typ := resname.ResourceType(args[0])
	if !typ.IsValid() {
		return fmt.Errorf("unknown resource type '%s'", args[0])
	}
	from, err := parseFrom(listFrom)
	if err != nil {
		return err
	}

	p, err := openProject()
	if err != nil {
		return err
	}
	defer p.Close()

	entries := p.ListResources(typ, from)
	if len(entries) == 0 {
		fmt.Printf("%s No %s found\n", infoIcon, typ)
		return nil
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name.String() < entries[j].Name.String()
	})
	for _, entry := range entries {
		origin := "local"
		if entry.Source == registry.SourceModule {
			origin = "module " + entry.Module
		}
		fmt.Printf("%s %s %s\n", infoIcon,
			ResourceStyle.Render(entry.Name.String()),
			SubtitleStyle.Render("("+origin+")"))
	}
	return nil
}

func parseFrom(s string) (registry.From, error) {
	switch s {
	case "all":
		return registry.FromAll, nil
	case "local":
		return registry.FromLocal, nil
	case "imported":
		return registry.FromImported, nil
	default:
		return registry.FromAll, fmt.Errorf("unknown origin filter '%s', expected all, local or imported", s)
	}
}

func runUpdate(cmd *cobra.Command, args []string) error {
	p, err := openProject()
	if err != nil {
		return err
	}
	defer p.Close()

	name, err := parseResourceName(p, args[0])
	if err != nil {
		return err
	}
	var op ops.Operation
	if err := json.Unmarshal([]byte(args[2]), &op); err != nil {
		return fmt.Errorf("invalid operation document: %w", err)
	}

	if err := p.UpdateResource(name, args[1], op); err != nil {
		return err
	}
	fmt.Printf("%s Updated %s of %s\n", successIcon, args[1], ResourceStyle.Render(name.String()))
	return nil
}

func runRename(cmd *cobra.Command, args []string) error {
	p, err := openProject()
	if err != nil {
		return err
	}
	defer p.Close()

	oldName, err := parseResourceName(p, args[0])
	if err != nil {
		return err
	}
	newName, err := resname.New(oldName.Prefix, oldName.Type, args[1])
	if err != nil {
		return err
	}

	if err := p.RenameResource(oldName, newName); err != nil {
		return err
	}
	fmt.Printf("%s Renamed %s to %s\n", successIcon,
		ResourceStyle.Render(oldName.String()), ResourceStyle.Render(newName.String()))
	return nil
}

func runRemove(cmd *cobra.Command, args []string) error {
	p, err := openProject()
	if err != nil {
		return err
	}
	defer p.Close()

	name, err := parseResourceName(p, args[0])
	if err != nil {
		return err
	}
	if err := p.RemoveResource(name); err != nil {
		return err
	}
	fmt.Printf("%s Removed %s\n", successIcon, ResourceStyle.Render(name.String()))
	return nil
}

func runValidate(cmd *cobra.Command, args []string) error {
	p, err := openProject()
	if err != nil {
		return err
	}
	defer p.Close()

	if len(args) == 1 {
		name, err := parseResourceName(p, args[0])
		if err != nil {
			return err
		}
		if err := p.ValidateResource(name); err != nil {
			return err
		}
		fmt.Printf("%s %s is valid\n", successIcon, ResourceStyle.Render(name.String()))
		return nil
	}

	failures := 0
	for _, typ := range resname.Types {
		for _, entry := range p.ListResources(typ, registry.FromLocal) {
			if err := p.ValidateResource(entry.Name); err != nil {
				failures++
				fmt.Printf("%s %s: %v\n", errorIcon, ResourceStyle.Render(entry.Name.String()), err)
				continue
			}
			fmt.Printf("%s %s\n", successIcon, ResourceStyle.Render(entry.Name.String()))
		}
	}
	if failures > 0 {
		return fmt.Errorf("%d resource(s) failed validation", failures)
	}
	return nil
}
