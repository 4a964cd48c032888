// SPDX-License-Identifier: MPL-2.0

package project

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/pelletier/go-toml/v2"

	"cardkit/internal/registry"
	"cardkit/pkg/resname"
)

// manifestFile records the imported modules under the state directory.
const manifestFile = "modules.toml"

// ModuleRecord is one imported module in the manifest.
type ModuleRecord struct {
	// Source is the path the module was imported from.
	Source string `toml:"source"`
	// ImportedAt is the import timestamp.
	ImportedAt time.Time `toml:"importedAt"`
}

type moduleManifest struct {
	Modules map[string]ModuleRecord `toml:"modules"`
}

func (p *Project) manifestPath() string {
	return filepath.Join(p.root, StateDir, manifestFile)
}

func (p *Project) readManifest() (moduleManifest, error) {
	var m moduleManifest
	data, err := os.ReadFile(p.manifestPath())
	if os.IsNotExist(err) {
		m.Modules = make(map[string]ModuleRecord)
		return m, nil
	}
	if err != nil {
		return m, fmt.Errorf("failed to read module manifest: %w", err)
	}
	if err := toml.Unmarshal(data, &m); err != nil {
		return m, fmt.Errorf("failed to parse module manifest: %w", err)
	}
	if m.Modules == nil {
		m.Modules = make(map[string]ModuleRecord)
	}
	return m, nil
}

func (p *Project) writeManifest(m moduleManifest) error {
	data, err := toml.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to encode module manifest: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(p.manifestPath()), 0o755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}
	if err := os.WriteFile(p.manifestPath(), data, 0o644); err != nil {
		return fmt.Errorf("failed to write module manifest: %w", err)
	}
	return nil
}

// Modules returns the imported module names, sorted.
func (p *Project) Modules() ([]string, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	m, err := p.readManifest()
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(m.Modules))
	for name := range m.Modules {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// ImportModule copies the resource folders of another project into
// modules/<name>/, records the module in the manifest, and registers its
// resources as read-only module entries.
func (p *Project) ImportModule(srcRoot, name string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !resname.ValidIdentifier(name) {
		return fmt.Errorf("invalid identifier '%s'", name)
	}
	manifest, err := p.readManifest()
	if err != nil {
		return err
	}
	if _, ok := manifest.Modules[name]; ok {
		return fmt.Errorf("module '%s' is already imported", name)
	}

	dest := filepath.Join(p.root, registry.ModulesDir, name)
	if _, err := os.Stat(dest); err == nil {
		return fmt.Errorf("module '%s' is already imported", name)
	}
	for _, typ := range resname.Types {
		srcDir := filepath.Join(srcRoot, string(typ))
		if _, err := os.Stat(srcDir); os.IsNotExist(err) {
			continue
		}
		if err := copyTree(srcDir, filepath.Join(dest, string(typ))); err != nil {
			return fmt.Errorf("failed to import module '%s': %w", name, err)
		}
	}

	if err := p.registry.CollectModules(name); err != nil {
		return err
	}

	manifest.Modules[name] = ModuleRecord{Source: srcRoot, ImportedAt: time.Now().UTC()}
	if err := p.writeManifest(manifest); err != nil {
		return err
	}
	p.audit.Info("module_import", "module", name, "source", srcRoot)
	return nil
}

// RemoveModule deletes an imported module: its folder, its manifest record,
// and every cache entry it contributed.
func (p *Project) RemoveModule(name string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	manifest, err := p.readManifest()
	if err != nil {
		return err
	}
	if _, ok := manifest.Modules[name]; !ok {
		return fmt.Errorf("module '%s' is not imported", name)
	}

	if err := os.RemoveAll(filepath.Join(p.root, registry.ModulesDir, name)); err != nil {
		return fmt.Errorf("failed to remove module '%s': %w", name, err)
	}
	// Rescanning after the folder is gone drops the module's entries and
	// instances.
	if err := p.registry.ChangedModules(name); err != nil {
		return err
	}

	delete(manifest.Modules, name)
	if err := p.writeManifest(manifest); err != nil {
		return err
	}
	p.audit.Info("module_remove", "module", name)
	return nil
}

// copyTree copies a directory tree of regular files.
func copyTree(src, dest string) error {
	return filepath.WalkDir(src, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dest, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		return copyFile(path, target)
	})
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
