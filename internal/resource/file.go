// SPDX-License-Identifier: MPL-2.0

package resource

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"cardkit/internal/card"
	"cardkit/internal/registry"
	"cardkit/pkg/ops"
	"cardkit/pkg/resname"
)

// schemaDescriptorFile is the descriptor shared by all resources of a type
// folder. It is written once with a create-if-absent flag and never
// overwritten.
const schemaDescriptorFile = ".schema"

// FileResource stores one resource as a single JSON file (or, for folder
// resources, a folder with a metadata file named after the identifier). It
// implements the shared lifecycle; concrete types embed it and contribute
// their update dispatch, usage references and rename cascades.
type FileResource[T Content] struct {
	deps       Deps
	name       resname.ResourceName
	schemaID   string
	newContent func() T
	// folder selects folder-backed storage: the backing path is a directory
	// holding <identifier>.json plus auxiliary content files.
	folder bool

	content T
	loaded  bool
}

// newFileResource wires the shared lifecycle state. newContent allocates a
// default content document for the concrete type.
func newFileResource[T Content](deps Deps, name resname.ResourceName, schemaID string, newContent func() T) FileResource[T] {
	return FileResource[T]{deps: deps, name: name, schemaID: schemaID, newContent: newContent}
}

// Name returns the resource's current name.
func (f *FileResource[T]) Name() resname.ResourceName { return f.name }

// SchemaID returns the fixed content schema identifier.
func (f *FileResource[T]) SchemaID() string { return f.schemaID }

// IsModule reports whether the resource is imported from a module. Module
// resources are read-only for every mutating operation.
func (f *FileResource[T]) IsModule() bool { return f.name.Prefix != f.deps.Prefix }

// typeDir returns the folder holding resources of this type for the
// resource's source.
func (f *FileResource[T]) typeDir() string {
	if f.IsModule() {
		return filepath.Join(f.deps.Root, registry.ModulesDir, f.name.Prefix, string(f.name.Type))
	}
	return filepath.Join(f.deps.Root, string(f.name.Type))
}

// backingPath is the file (or folder) that represents the resource on disk.
// The registry entry wins when present; otherwise the path is computed from
// the name, which supports two-phase create flows.
func (f *FileResource[T]) backingPath() string {
	if entry, ok := f.deps.Registry.EntryOf(f.name); ok {
		return entry.Path
	}
	if f.folder {
		return filepath.Join(f.typeDir(), f.name.Identifier)
	}
	return filepath.Join(f.typeDir(), f.name.Identifier+".json")
}

// metadataPath is the JSON content document location.
func (f *FileResource[T]) metadataPath() string {
	if f.folder {
		return filepath.Join(f.backingPath(), f.name.Identifier+".json")
	}
	return f.backingPath()
}

// Exists combines the registry lookup (fast path) with a filesystem check
// (authoritative after out-of-band changes). The registry is favored but
// never trusted exclusively.
func (f *FileResource[T]) Exists() bool {
	if f.deps.Registry.Exists(f.name) {
		return true
	}
	_, err := os.Stat(f.backingPath())
	return err == nil
}

// Load reads the content document, memoizing the result on the instance.
func (f *FileResource[T]) Load() (T, error) {
	if f.loaded {
		return f.content, nil
	}
	var zero T
	if !f.Exists() {
		return zero, fmt.Errorf("resource '%s' does not exist in the project", f.name)
	}
	data, err := os.ReadFile(f.metadataPath())
	if err != nil {
		return zero, fmt.Errorf("failed to read resource '%s': %w", f.name, err)
	}
	content := f.newContent()
	if err := json.Unmarshal(data, content); err != nil {
		return zero, fmt.Errorf("resource '%s' has malformed content: %w", f.name, err)
	}
	f.content = content
	f.loaded = true
	return f.content, nil
}

// Data returns the content document as JSON.
func (f *FileResource[T]) Data() (json.RawMessage, error) {
	content, err := f.Load()
	if err != nil {
		return nil, err
	}
	return json.Marshal(content)
}

// Show returns the loaded content document.
func (f *FileResource[T]) Show() (any, error) {
	return f.Load()
}

// Create writes a new resource. It fails when the name is already taken, the
// identifier is invalid, or the name belongs to a module.
func (f *FileResource[T]) Create(raw json.RawMessage) error {
	if f.IsModule() {
		return fmt.Errorf("cannot create resources into module '%s'", f.name.Prefix)
	}
	if !resname.ValidIdentifier(f.name.Identifier) {
		return fmt.Errorf("invalid identifier '%s'", f.name.Identifier)
	}
	if f.Exists() {
		return fmt.Errorf("resource '%s' already exists in the project", f.name)
	}

	content := f.newContent()
	if raw != nil {
		if err := json.Unmarshal(raw, content); err != nil {
			return fmt.Errorf("invalid content for resource '%s': %w", f.name, err)
		}
	}
	content.SetResourceName(f.name.String())

	data, err := json.Marshal(content)
	if err != nil {
		return fmt.Errorf("failed to encode resource '%s': %w", f.name, err)
	}
	if err := f.deps.Validator.Validate(f.schemaID, data); err != nil {
		return err
	}

	f.content = content
	f.loaded = true
	if err := f.write(); err != nil {
		return err
	}

	f.deps.Registry.Add(registry.Entry{
		Name:   f.name,
		Path:   f.backingPath(),
		Source: registry.SourceLocal,
	})
	f.deps.Audit.Info(eventCreate, "name", f.name.String())
	return nil
}

// update runs the shared update sequence: preconditions, the concrete
// mutation, post-update validation, persist, audit. The in-memory content is
// not rolled back when validation fails; callers must discard or re-read the
// instance after a failed update.
func (f *FileResource[T]) update(key string, op ops.Operation, mutate func(content T) error) error {
	if key == "" {
		return errors.New("empty update key")
	}
	if !f.Exists() {
		return fmt.Errorf("resource '%s' does not exist in the project", f.name)
	}
	if f.IsModule() {
		return fmt.Errorf("cannot update module resources")
	}

	content, err := f.Load()
	if err != nil {
		return err
	}
	if err := mutate(content); err != nil {
		return err
	}

	data, err := json.Marshal(content)
	if err != nil {
		return fmt.Errorf("failed to encode resource '%s': %w", f.name, err)
	}
	if err := f.deps.Validator.Validate(f.schemaID, data); err != nil {
		return fmt.Errorf("cannot apply operation '%s' to '%s': %w", op.Kind, key, err)
	}

	if err := f.write(); err != nil {
		return err
	}
	f.deps.Audit.Info(eventUpdate, "name", f.name.String(), "operation", string(op.Kind), "key", key)
	return nil
}

// rename performs the storage-level rename shared by every resource type:
// move the backing file or folder, keep content name and registry entries in
// sync, preserve the live instance. Concrete types call it from Rename before
// running their cascades.
func (f *FileResource[T]) rename(newName resname.ResourceName) error {
	if f.IsModule() {
		return fmt.Errorf("cannot rename module resources")
	}
	if !f.Exists() {
		return fmt.Errorf("resource '%s' does not exist in the project", f.name)
	}
	if newName.Prefix != f.deps.Prefix {
		return fmt.Errorf("resource prefix must be the project prefix '%s'", f.deps.Prefix)
	}
	if newName.Type != f.name.Type {
		return fmt.Errorf("cannot change resource type from '%s' to '%s'", f.name.Type, newName.Type)
	}
	if !resname.ValidIdentifier(newName.Identifier) {
		return fmt.Errorf("invalid identifier '%s'", newName.Identifier)
	}
	target := &FileResource[T]{deps: f.deps, name: newName, folder: f.folder}
	if target.Exists() {
		return fmt.Errorf("resource '%s' already exists in the project", newName)
	}

	// Load before the move so the content read uses the old path.
	content, err := f.Load()
	if err != nil {
		return err
	}

	oldName := f.name
	oldPath := f.backingPath()
	newPath := filepath.Join(f.typeDir(), newName.Identifier)
	if !f.folder {
		newPath += ".json"
	}

	if err := os.Rename(oldPath, newPath); err != nil {
		return fmt.Errorf("failed to rename resource '%s': %w", f.name, err)
	}
	if f.folder {
		oldMeta := filepath.Join(newPath, oldName.Identifier+".json")
		newMeta := filepath.Join(newPath, newName.Identifier+".json")
		if err := os.Rename(oldMeta, newMeta); err != nil {
			return fmt.Errorf("failed to rename resource metadata for '%s': %w", newName, err)
		}
	}

	if f.deps.Registry.Exists(oldName) {
		if err := f.deps.Registry.Move(oldName, newName, newPath); err != nil {
			return err
		}
	} else {
		// The resource existed only on disk (stale cache); register the new
		// name directly.
		f.deps.Registry.Add(registry.Entry{Name: newName, Path: newPath, Source: registry.SourceLocal})
	}
	f.name = newName
	content.SetResourceName(newName.String())
	if err := f.write(); err != nil {
		return err
	}

	f.deps.Audit.Info(eventRename, "from", oldName.String(), "to", newName.String())
	return nil
}

// Rename is the default rename without cascades; concrete types with
// dependent artifacts shadow it.
func (f *FileResource[T]) Rename(newName resname.ResourceName) error {
	return f.rename(newName)
}

// deleteWith removes the resource unless the given usage scan reports
// blocking references. Concrete types pass their own Usage so extended
// references participate in the check.
func (f *FileResource[T]) deleteWith(usage func(cards []card.Card) ([]string, error)) error {
	if f.IsModule() {
		return fmt.Errorf("cannot delete module resources")
	}
	if !f.Exists() {
		return fmt.Errorf("resource '%s' does not exist in the project", f.name)
	}
	using, err := usage(nil)
	if err != nil {
		return err
	}
	if len(using) > 0 {
		return fmt.Errorf("cannot delete resource '%s', it is in use by: %s",
			f.name, strings.Join(using, ", "))
	}

	path := f.backingPath()
	if f.folder {
		err = os.RemoveAll(path)
	} else {
		err = os.Remove(path)
	}
	if err != nil {
		return fmt.Errorf("failed to delete resource '%s': %w", f.name, err)
	}

	f.deps.Registry.Remove(f.name)
	f.deps.Audit.Info(eventDelete, "name", f.name.String())
	return nil
}

// Delete removes the resource using the base usage scan.
func (f *FileResource[T]) Delete() error {
	return f.deleteWith(f.Usage)
}

// Usage returns the sorted keys of cards whose serialized content references
// the resource's name. Concrete types extend this with resource-to-resource
// and calculation-file references.
func (f *FileResource[T]) Usage(cards []card.Card) ([]string, error) {
	if cards == nil {
		all, err := f.deps.Cards.Cards()
		if err != nil {
			return nil, err
		}
		cards = all
	}
	return card.KeysReferencing(cards, f.name.String()), nil
}

// Validate checks content against the resource's schema. A nil content
// validates the currently loaded document.
func (f *FileResource[T]) Validate(content []byte) error {
	if content == nil {
		data, err := f.Data()
		if err != nil {
			return err
		}
		content = data
	}
	return f.deps.Validator.Validate(f.schemaID, content)
}

// Migrate is a no-op at the base; concrete types needing idempotent,
// repeatable transformations shadow it.
func (f *FileResource[T]) Migrate(key string, op ops.Operation) error {
	return nil
}

// write persists the content document. It also writes the type folder's
// .schema descriptor once (create-if-absent), and detects content-name drift
// from the current filename, performing the file rename as part of the write
// rather than as a separate step.
func (f *FileResource[T]) write() error {
	content, err := f.Load()
	if err != nil {
		return err
	}

	// Content name drift: the document says a different name than the
	// current filename. Move the backing storage as part of this write.
	if contentName := content.ResourceName(); contentName != f.name.String() {
		parsed, err := resname.Parse(contentName)
		if err != nil {
			return fmt.Errorf("resource '%s' content carries invalid name '%s': %w", f.name, contentName, err)
		}
		oldName := f.name
		oldPath := f.backingPath()
		newPath := filepath.Join(f.typeDir(), parsed.Identifier)
		if !f.folder {
			newPath += ".json"
		}
		if err := os.Rename(oldPath, newPath); err != nil {
			return fmt.Errorf("failed to move resource '%s' to '%s': %w", oldName, parsed, err)
		}
		if f.folder {
			oldMeta := filepath.Join(newPath, oldName.Identifier+".json")
			newMeta := filepath.Join(newPath, parsed.Identifier+".json")
			if err := os.Rename(oldMeta, newMeta); err != nil {
				return fmt.Errorf("failed to move resource metadata for '%s': %w", parsed, err)
			}
		}
		if f.deps.Registry.Exists(oldName) {
			if err := f.deps.Registry.Move(oldName, parsed, newPath); err != nil {
				return err
			}
		}
		f.name = parsed
	}

	data, err := json.MarshalIndent(content, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode resource '%s': %w", f.name, err)
	}

	metaPath := f.metadataPath()
	if err := os.MkdirAll(filepath.Dir(metaPath), 0o755); err != nil {
		return fmt.Errorf("failed to create resource directory: %w", err)
	}
	if err := os.WriteFile(metaPath, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("failed to write resource '%s': %w", f.name, err)
	}

	return f.writeSchemaDescriptor()
}

// writeSchemaDescriptor writes the shared .schema file of the type folder.
// An existing descriptor is left untouched.
func (f *FileResource[T]) writeSchemaDescriptor() error {
	descriptor := fmt.Sprintf("{\n  \"id\": \"%s\",\n  \"version\": 1\n}\n", f.schemaID)
	path := filepath.Join(f.typeDir(), schemaDescriptorFile)
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if errors.Is(err, fs.ErrExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to write schema descriptor: %w", err)
	}
	defer file.Close()
	if _, err := file.WriteString(descriptor); err != nil {
		return fmt.Errorf("failed to write schema descriptor: %w", err)
	}
	return nil
}

// calculationFileRefs scans every local calculation resource folder for logic
// program files referencing the resource's name and returns their paths,
// relative to the project root.
func (f *FileResource[T]) calculationFileRefs() ([]string, error) {
	var refs []string
	for _, entry := range f.deps.Registry.Entries(resname.CalculationType, registry.FromLocal) {
		files, err := filesContaining(entry.Path, ".lp", f.name.String())
		if err != nil {
			return nil, err
		}
		for _, path := range files {
			rel, err := filepath.Rel(f.deps.Root, path)
			if err != nil {
				rel = path
			}
			refs = append(refs, rel)
		}
	}
	return refs, nil
}

// rewriteResourceFiles replaces references in the auxiliary files of every
// local resource of the given type. Each file is independent, so the
// rewrites run concurrently.
func (f *FileResource[T]) rewriteResourceFiles(typ resname.ResourceType, ext, oldRef, newRef string) error {
	var paths []string
	for _, entry := range f.deps.Registry.Entries(typ, registry.FromLocal) {
		files, err := filesContaining(entry.Path, ext, oldRef)
		if err != nil {
			return err
		}
		paths = append(paths, files...)
	}
	return rewriteFiles(paths, oldRef, newRef)
}

// filesContaining returns the paths of files under dir with the given
// extension whose contents include ref. A missing dir yields no matches.
func filesContaining(dir, ext, ref string) ([]string, error) {
	var matches []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ext) {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		if strings.Contains(string(data), ref) {
			matches = append(matches, path)
		}
		return nil
	})
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	return matches, nil
}
