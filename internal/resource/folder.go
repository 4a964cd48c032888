// SPDX-License-Identifier: MPL-2.0

package resource

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"golang.org/x/exp/maps"

	"cardkit/pkg/resname"
)

// FolderResource stores one resource as a directory holding the metadata
// document plus auxiliary content files from a fixed allow-list. Filenames in
// update operations may originate from user input, so every write is guarded
// against path traversal.
type FolderResource[T Content] struct {
	FileResource[T]
	// files maps each allow-listed filename to its logical property name used
	// by ContentData and UpdateContentFiles.
	files map[string]string
}

// newFolderResource wires folder-backed storage with the given filename
// allow-list.
func newFolderResource[T Content](deps Deps, name resname.ResourceName, schemaID string, newContent func() T, files map[string]string) FolderResource[T] {
	base := newFileResource(deps, name, schemaID, newContent)
	base.folder = true
	return FolderResource[T]{FileResource: base, files: files}
}

// UpdateFile writes one auxiliary content file. Three independent checks fail
// closed before any write: the resolved parent must be the resource's own
// folder, the resolved basename must equal the requested filename, and the
// filename must be allow-listed.
func (f *FolderResource[T]) UpdateFile(fileName string, content []byte) error {
	if !f.Exists() {
		return fmt.Errorf("resource '%s' does not exist in the project", f.name)
	}
	if f.IsModule() {
		return fmt.Errorf("cannot update module resources")
	}

	folder := f.backingPath()
	resolved := filepath.Clean(filepath.Join(folder, fileName))
	if filepath.Dir(resolved) != filepath.Clean(folder) {
		return fmt.Errorf("filename '%s' escapes the resource folder", fileName)
	}
	if filepath.Base(resolved) != fileName {
		return fmt.Errorf("filename '%s' contains path separators", fileName)
	}
	if _, ok := f.files[fileName]; !ok {
		return fmt.Errorf("filename '%s' is not a valid content file for %s resources",
			fileName, f.name.Type)
	}

	if err := os.WriteFile(resolved, content, 0o644); err != nil {
		return fmt.Errorf("failed to write content file '%s': %w", fileName, err)
	}
	f.deps.Audit.Info(eventUpdate, "name", f.name.String(), "file", fileName)
	return nil
}

// ShowFileNames lists the allow-listed content files present in the
// resource's folder, sorted.
func (f *FolderResource[T]) ShowFileNames() ([]string, error) {
	if !f.Exists() {
		return nil, fmt.Errorf("resource '%s' does not exist in the project", f.name)
	}
	var names []string
	for fileName := range f.files {
		if _, err := os.Stat(filepath.Join(f.backingPath(), fileName)); err == nil {
			names = append(names, fileName)
		}
	}
	sort.Strings(names)
	return names, nil
}

// ContentData reads every present allow-listed file back as a map of logical
// property name to file content. Together with UpdateContentFiles it forms a
// round trip over the allow-listed properties.
func (f *FolderResource[T]) ContentData() (map[string]string, error) {
	names, err := f.ShowFileNames()
	if err != nil {
		return nil, err
	}
	data := make(map[string]string, len(names))
	for _, fileName := range names {
		raw, err := os.ReadFile(filepath.Join(f.backingPath(), fileName))
		if err != nil {
			return nil, fmt.Errorf("failed to read content file '%s': %w", fileName, err)
		}
		data[f.files[fileName]] = string(raw)
	}
	return data, nil
}

// UpdateContentFiles writes content keyed by logical property name. Unknown
// properties fail before any file is written.
func (f *FolderResource[T]) UpdateContentFiles(content map[string]string) error {
	byProperty := make(map[string]string, len(f.files))
	for fileName, property := range f.files {
		byProperty[property] = fileName
	}
	properties := maps.Keys(content)
	sort.Strings(properties)
	for _, property := range properties {
		if _, ok := byProperty[property]; !ok {
			return fmt.Errorf("unknown content property '%s' for %s resources", property, f.name.Type)
		}
	}
	for _, property := range properties {
		if err := f.UpdateFile(byProperty[property], []byte(content[property])); err != nil {
			return err
		}
	}
	return nil
}
