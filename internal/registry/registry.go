// SPDX-License-Identifier: MPL-2.0

// Package registry tracks which resources exist and caches materialized
// resource instances. It keeps two arenas with distinct consistency rules:
// the existence index (name to metadata entry, cheap to rebuild wholesale by
// rescanning the project tree) and the instance arena (name to constructed
// resource object, expensive to build and identity-preserving across
// renames). The arena's keys are always a subset of the index's keys; every
// mutation of either map goes through this package so the invariant holds in
// one place.
package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/charmbracelet/log"

	"cardkit/pkg/resname"
)

// Source indicates where a resource entry came from.
type Source int

const (
	// SourceLocal marks a resource under the project's own tree.
	SourceLocal Source = iota
	// SourceModule marks a read-only resource imported from a module.
	SourceModule
)

// String returns a human-readable source name.
func (s Source) String() string {
	switch s {
	case SourceLocal:
		return "local"
	case SourceModule:
		return "module"
	default:
		return "unknown"
	}
}

// From selects which sources a read operation covers.
type From int

const (
	// FromAll includes local and imported resources.
	FromAll From = iota
	// FromLocal includes only the project's own resources.
	FromLocal
	// FromImported includes only module resources.
	FromImported
)

// String returns a human-readable policy name.
func (f From) String() string {
	switch f {
	case FromAll:
		return "all"
	case FromLocal:
		return "local"
	case FromImported:
		return "imported"
	default:
		return "unknown"
	}
}

// includes reports whether the policy covers the given source.
func (f From) includes(s Source) bool {
	switch f {
	case FromLocal:
		return s == SourceLocal
	case FromImported:
		return s == SourceModule
	default:
		return true
	}
}

// Entry is one existence-index record: a resource known to be on disk,
// independent of whether its content has been loaded.
type Entry struct {
	// Name is the canonical resource name.
	Name resname.ResourceName
	// Path is the absolute path of the backing file or folder.
	Path string
	// Source is local or module.
	Source Source
	// Module is the owning module name when Source is SourceModule.
	Module string
}

// Instance is a materialized resource object held in the instance arena.
// Concrete resource types implement it.
type Instance interface {
	Name() resname.ResourceName
}

// Factory constructs a resource instance for a name. Construction is allowed
// even before existence is confirmed (two-phase create flows depend on it);
// caching is not.
type Factory func(name resname.ResourceName) (Instance, error)

// ModulesDir is the project subdirectory holding imported modules.
const ModulesDir = "modules"

// Registry is the two-arena resource cache for one project. It assumes a
// single logical writer; the project layer serializes access.
type Registry struct {
	root    string
	prefix  string
	factory Factory
	logger  *log.Logger

	index map[string]Entry
	arena map[string]Instance
}

// New creates an empty registry for a project root and prefix. The factory
// materializes instances on demand; logger may not be nil.
func New(root, prefix string, factory Factory, logger *log.Logger) *Registry {
	return &Registry{
		root:    root,
		prefix:  prefix,
		factory: factory,
		logger:  logger,
		index:   make(map[string]Entry),
		arena:   make(map[string]Instance),
	}
}

// Collect runs a full scan of both local and module resources.
func (r *Registry) Collect() error {
	if err := r.CollectLocal(); err != nil {
		return err
	}
	return r.CollectModules("")
}

// CollectLocal enumerates every resource-type folder under the project root
// and registers each resource file or folder found there.
func (r *Registry) CollectLocal() error {
	for _, typ := range resname.Types {
		dir := filepath.Join(r.root, string(typ))
		if err := r.collectDir(dir, typ, r.prefix, SourceLocal, ""); err != nil {
			return err
		}
	}
	return nil
}

// CollectModules enumerates resources under modules/<name>/<type>/ for the
// given module, or for every module when name is empty.
func (r *Registry) CollectModules(name string) error {
	modulesDir := filepath.Join(r.root, ModulesDir)
	entries, err := os.ReadDir(modulesDir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read modules directory: %w", err)
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if name != "" && entry.Name() != name {
			continue
		}
		for _, typ := range resname.Types {
			dir := filepath.Join(modulesDir, entry.Name(), string(typ))
			if err := r.collectDir(dir, typ, entry.Name(), SourceModule, entry.Name()); err != nil {
				return err
			}
		}
	}
	return nil
}

// collectDir registers every resource file (stripped of its .json extension)
// and resource folder directly under dir.
func (r *Registry) collectDir(dir string, typ resname.ResourceType, prefix string, source Source, module string) error {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read resource directory %s: %w", dir, err)
	}

	for _, fsEntry := range entries {
		identifier := fsEntry.Name()
		if !fsEntry.IsDir() {
			if !strings.HasSuffix(identifier, ".json") {
				continue
			}
			identifier = strings.TrimSuffix(identifier, ".json")
		}
		name, err := resname.New(prefix, typ, identifier)
		if err != nil {
			r.logger.Debug("skipping entry with invalid resource name",
				"dir", dir, "entry", fsEntry.Name(), "error", err)
			continue
		}
		r.index[name.String()] = Entry{
			Name:   name,
			Path:   filepath.Join(dir, fsEntry.Name()),
			Source: source,
			Module: module,
		}
	}
	return nil
}

// Changed invalidates every local entry and rescans local resources. Live
// instances for names that no longer exist are dropped with their entries.
func (r *Registry) Changed() error {
	r.dropMatching(func(e Entry) bool { return e.Source == SourceLocal })
	return r.CollectLocal()
}

// ChangedModules invalidates entries of one module (or all modules when name
// is empty) and rescans them.
func (r *Registry) ChangedModules(name string) error {
	r.dropMatching(func(e Entry) bool {
		return e.Source == SourceModule && (name == "" || e.Module == name)
	})
	return r.CollectModules(name)
}

func (r *Registry) dropMatching(match func(Entry) bool) {
	for key, entry := range r.index {
		if match(entry) {
			delete(r.index, key)
			delete(r.arena, key)
		}
	}
}

// HandleFileSystemChange is the incremental update path driven by a
// filesystem watcher. It upserts the entry for the changed path and drops any
// cached instance so the next access re-reads from disk. Paths that do not
// map to a resource name are ignored.
func (r *Registry) HandleFileSystemChange(path string) {
	name, entry, ok := r.entryForPath(path)
	if !ok {
		r.logger.Debug("ignoring filesystem change outside resource tree", "path", path)
		return
	}
	r.index[name.String()] = entry
	delete(r.arena, name.String())
	r.logger.Debug("resource cache entry refreshed", "name", name.String())
}

// entryForPath converts a changed path into a resource name and entry. The
// path must be <root>/<type>/<id>[...] or <root>/modules/<mod>/<type>/<id>[...].
func (r *Registry) entryForPath(path string) (resname.ResourceName, Entry, bool) {
	rel, err := filepath.Rel(r.root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return resname.ResourceName{}, Entry{}, false
	}

	parts := strings.Split(filepath.ToSlash(rel), "/")
	prefix := r.prefix
	source := SourceLocal
	module := ""
	if parts[0] == ModulesDir {
		if len(parts) < 3 {
			return resname.ResourceName{}, Entry{}, false
		}
		module = parts[1]
		prefix = module
		source = SourceModule
		parts = parts[2:]
	}
	if len(parts) < 2 {
		return resname.ResourceName{}, Entry{}, false
	}

	typ := resname.ResourceType(parts[0])
	identifier := strings.TrimSuffix(parts[1], ".json")
	name, err := resname.New(prefix, typ, identifier)
	if err != nil {
		return resname.ResourceName{}, Entry{}, false
	}

	dir := filepath.Join(r.root, string(typ))
	if source == SourceModule {
		dir = filepath.Join(r.root, ModulesDir, module, string(typ))
	}
	// For a change inside a folder resource, parts[1] is the folder itself,
	// which is the backing path either way.
	backing := filepath.Join(dir, parts[1])
	return name, Entry{Name: name, Path: backing, Source: source, Module: module}, true
}

// Add registers a freshly created resource in the existence index.
func (r *Registry) Add(entry Entry) {
	r.index[entry.Name.String()] = entry
}

// EntryOf returns the existence-index record for a name.
func (r *Registry) EntryOf(name resname.ResourceName) (Entry, bool) {
	entry, ok := r.index[name.String()]
	return entry, ok
}

// Exists reports whether the index knows the name. Callers needing authority
// over out-of-band filesystem changes combine this with a direct stat.
func (r *Registry) Exists(name resname.ResourceName) bool {
	_, ok := r.index[name.String()]
	return ok
}

// Move transfers both the index entry and any live instance from oldName to
// newName, preserving instance identity so held references stay valid.
func (r *Registry) Move(oldName, newName resname.ResourceName, newPath string) error {
	entry, ok := r.index[oldName.String()]
	if !ok {
		return fmt.Errorf("resource '%s' does not exist in the project", oldName)
	}
	entry.Name = newName
	entry.Path = newPath
	delete(r.index, oldName.String())
	r.index[newName.String()] = entry

	if instance, ok := r.arena[oldName.String()]; ok {
		delete(r.arena, oldName.String())
		r.arena[newName.String()] = instance
	}
	return nil
}

// Invalidate drops a cached instance without touching the index.
func (r *Registry) Invalidate(name resname.ResourceName) {
	delete(r.arena, name.String())
}

// Remove deletes both the index entry and any cached instance.
func (r *Registry) Remove(name resname.ResourceName) {
	delete(r.index, name.String())
	delete(r.arena, name.String())
}

// ByName returns the instance for a name, constructing it through the factory
// when not cached. The fresh instance is only cached when the index confirms
// the resource's existence, so phantom instances for nonexistent resources
// are never retained.
func (r *Registry) ByName(name resname.ResourceName) (Instance, error) {
	key := name.String()
	if instance, ok := r.arena[key]; ok {
		return instance, nil
	}
	instance, err := r.factory(name)
	if err != nil {
		return nil, err
	}
	if _, exists := r.index[key]; exists {
		r.arena[key] = instance
	}
	return instance, nil
}

// Resources materializes every resource of the given type covered by the
// source policy, sorted by name.
func (r *Registry) Resources(typ resname.ResourceType, from From) ([]Instance, error) {
	var names []resname.ResourceName
	for _, entry := range r.index {
		if entry.Name.Type == typ && from.includes(entry.Source) {
			names = append(names, entry.Name)
		}
	}
	sort.Slice(names, func(i, j int) bool { return names[i].String() < names[j].String() })

	instances := make([]Instance, 0, len(names))
	for _, name := range names {
		instance, err := r.ByName(name)
		if err != nil {
			return nil, err
		}
		instances = append(instances, instance)
	}
	return instances, nil
}

// Entries returns the index records of the given type covered by the policy,
// sorted by name. It never materializes instances.
func (r *Registry) Entries(typ resname.ResourceType, from From) []Entry {
	var entries []Entry
	for _, entry := range r.index {
		if entry.Name.Type == typ && from.includes(entry.Source) {
			entries = append(entries, entry)
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name.String() < entries[j].Name.String()
	})
	return entries
}
