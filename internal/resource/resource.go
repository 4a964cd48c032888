// SPDX-License-Identifier: MPL-2.0

// Package resource implements the resource lifecycle: creation, operation-
// based updates, renames with cross-resource cascades, usage-blocked deletes
// and schema validation, over resources stored as single JSON files or as
// folders of allow-listed content files.
//
// The package follows a template-method layout: FileResource and
// FolderResource provide the storage mechanics and precondition checks, and
// each concrete resource type contributes its update-key dispatch, its extra
// usage references and its rename cascade.
package resource

import (
	"encoding/json"

	"github.com/charmbracelet/log"

	"cardkit/internal/card"
	"cardkit/internal/registry"
	"cardkit/pkg/ops"
	"cardkit/pkg/resname"
)

// Deps bundles the collaborators every resource needs. All of them are
// explicit constructor dependencies; nothing in this package reaches for
// global state.
type Deps struct {
	// Root is the project root directory.
	Root string
	// Prefix is the project's own prefix; resources with any other prefix
	// are imported and read-only.
	Prefix string
	// Registry is the existence index and instance arena.
	Registry *registry.Registry
	// Validator checks content against the embedded schemas.
	Validator ContentValidator
	// Cards is the project-wide card index.
	Cards *card.Store
	// Audit receives the resource audit events.
	Audit *log.Logger
}

// ContentValidator validates a content document against a schema id.
type ContentValidator interface {
	Validate(schemaID string, content []byte) error
}

// Resource is the lifecycle contract shared by every resource type.
type Resource interface {
	// Name returns the resource's current name.
	Name() resname.ResourceName
	// Show returns the loaded content document.
	Show() (any, error)
	// Data returns the content document as JSON.
	Data() (json.RawMessage, error)
	// Create writes a new resource. A nil content uses type defaults.
	Create(content json.RawMessage) error
	// Update applies one operation to the named property.
	Update(key string, op ops.Operation) error
	// Rename moves the resource to a new name and cascades the change into
	// dependent artifacts.
	Rename(newName resname.ResourceName) error
	// Delete removes the resource unless it is in use.
	Delete() error
	// Usage lists the card keys and resource references blocking deletion.
	// A nil card set scans the project's full card set.
	Usage(cards []card.Card) ([]string, error)
	// Validate checks content against the resource's schema; nil validates
	// the current content.
	Validate(content []byte) error
	// Migrate applies an idempotent, repeatable content transformation.
	Migrate(key string, op ops.Operation) error
}

// Audit event names. Every successful mutation logs exactly one event.
const (
	eventCreate = "resource_create"
	eventUpdate = "resource_update"
	eventRename = "resource_rename"
	eventDelete = "resource_delete"
)

// dedupe concatenates reference groups preserving order while dropping
// duplicates: cards first, then resources, then calculation files.
func dedupe(groups ...[]string) []string {
	seen := make(map[string]struct{})
	var result []string
	for _, group := range groups {
		for _, ref := range group {
			if _, ok := seen[ref]; ok {
				continue
			}
			seen[ref] = struct{}{}
			result = append(result, ref)
		}
	}
	return result
}
