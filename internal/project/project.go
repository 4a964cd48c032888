// SPDX-License-Identifier: MPL-2.0

package project

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/charmbracelet/log"

	"cardkit/internal/card"
	"cardkit/internal/config"
	"cardkit/internal/issue"
	"cardkit/internal/registry"
	"cardkit/internal/resource"
	"cardkit/pkg/ops"
	"cardkit/pkg/resname"
	"cardkit/pkg/schema"
)

const (
	// StateDir holds project-local state that is not resource content.
	StateDir = ".cards"
	// localStateDir holds state private to this checkout.
	localStateDir = "local"
	// auditLogFile receives the resource audit events as JSON lines.
	auditLogFile = "audit.jsonl"
)

// Project is one open card project. All resource mutations go through it;
// the embedded lock serializes writers so the registry never sees concurrent
// mutation.
type Project struct {
	mu sync.RWMutex

	root      string
	config    *config.ProjectConfig
	registry  *registry.Registry
	cards     *card.Store
	validator *schema.Validator
	audit     *log.Logger
	auditFile *os.File

	deps resource.Deps
}

// Open loads the project at root: its configuration, the embedded schemas,
// the audit log, and a fully collected resource registry.
func Open(root string) (*Project, error) {
	cfg, err := config.LoadProject(root)
	if err != nil {
		return nil, issue.WrapWithOperation(err, "load project")
	}

	validator, err := schema.NewValidator()
	if err != nil {
		return nil, fmt.Errorf("failed to load resource schemas: %w", err)
	}

	audit, auditFile, err := openAuditLog(root)
	if err != nil {
		return nil, err
	}

	p := &Project{
		root:      root,
		config:    cfg,
		cards:     card.NewStore(root),
		validator: validator,
		audit:     audit,
		auditFile: auditFile,
	}
	p.deps = resource.Deps{
		Root:      root,
		Prefix:    cfg.CardKeyPrefix,
		Validator: validator,
		Cards:     p.cards,
		Audit:     audit,
	}
	p.registry = registry.New(root, cfg.CardKeyPrefix, func(name resname.ResourceName) (registry.Instance, error) {
		return resource.New(p.deps, name)
	}, audit)
	p.deps.Registry = p.registry

	if err := p.registry.Collect(); err != nil {
		p.Close()
		return nil, err
	}
	return p, nil
}

// openAuditLog opens the append-only audit log under .cards/local and wraps
// it in a JSON-formatted logger.
func openAuditLog(root string) (*log.Logger, *os.File, error) {
	dir := filepath.Join(root, StateDir, localStateDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("failed to create audit log directory: %w", err)
	}
	f, err := os.OpenFile(filepath.Join(dir, auditLogFile), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open audit log: %w", err)
	}
	logger := log.NewWithOptions(f, log.Options{Formatter: log.JSONFormatter})
	return logger, f, nil
}

// Close releases the project's audit log handle.
func (p *Project) Close() error {
	if p.auditFile == nil {
		return nil
	}
	err := p.auditFile.Close()
	p.auditFile = nil
	return err
}

// Root returns the project root directory.
func (p *Project) Root() string { return p.root }

// Config returns the project configuration.
func (p *Project) Config() *config.ProjectConfig { return p.config }

// Registry exposes the resource registry for read-side consumers (the watch
// loop, listing verbs). Mutations still go through the Project methods.
func (p *Project) Registry() *registry.Registry { return p.registry }

// Cards returns the project's card store.
func (p *Project) Cards() *card.Store { return p.cards }

// Name builds a local resource name from a type and identifier.
func (p *Project) Name(typ resname.ResourceType, identifier string) (resname.ResourceName, error) {
	return resname.New(p.config.CardKeyPrefix, typ, identifier)
}

// resourceByName materializes the named resource through the registry so
// cascades and repeated lookups share one instance.
func (p *Project) resourceByName(name resname.ResourceName) (resource.Resource, error) {
	inst, err := p.registry.ByName(name)
	if err != nil {
		return nil, err
	}
	res, ok := inst.(resource.Resource)
	if !ok {
		return nil, fmt.Errorf("resource '%s' has no lifecycle implementation", name)
	}
	return res, nil
}

// CreateResource creates a new local resource. A nil content uses the type's
// defaults.
func (p *Project) CreateResource(name resname.ResourceName, content json.RawMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	res, err := resource.New(p.deps, name)
	if err != nil {
		return err
	}
	return res.Create(content)
}

// ShowResource returns the named resource's content document.
func (p *Project) ShowResource(name resname.ResourceName) (any, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	res, err := p.resourceByName(name)
	if err != nil {
		return nil, err
	}
	return res.Show()
}

// ResourceData returns the named resource's content document as JSON.
func (p *Project) ResourceData(name resname.ResourceName) (json.RawMessage, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	res, err := p.resourceByName(name)
	if err != nil {
		return nil, err
	}
	return res.Data()
}

// UpdateResource applies one operation to the named property of a resource.
func (p *Project) UpdateResource(name resname.ResourceName, key string, op ops.Operation) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	res, err := p.resourceByName(name)
	if err != nil {
		return err
	}
	if err := res.Update(key, op); err != nil {
		// A failed update may leave the arena instance ahead of disk.
		p.registry.Invalidate(name)
		return err
	}
	return nil
}

// RenameResource moves a resource to a new name and cascades the change into
// dependent artifacts.
func (p *Project) RenameResource(oldName, newName resname.ResourceName) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	res, err := p.resourceByName(oldName)
	if err != nil {
		return err
	}
	return res.Rename(newName)
}

// RemoveResource deletes a resource unless it is in use.
func (p *Project) RemoveResource(name resname.ResourceName) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	res, err := p.resourceByName(name)
	if err != nil {
		return err
	}
	return res.Delete()
}

// ResourceUsage lists the card keys and resource references that would block
// deleting the named resource.
func (p *Project) ResourceUsage(name resname.ResourceName) ([]string, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	res, err := p.resourceByName(name)
	if err != nil {
		return nil, err
	}
	return res.Usage(nil)
}

// ValidateResource checks the named resource's current content against its
// schema.
func (p *Project) ValidateResource(name resname.ResourceName) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	res, err := p.resourceByName(name)
	if err != nil {
		return err
	}
	return res.Validate(nil)
}

// MigrateResource applies an idempotent content transformation to the named
// resource.
func (p *Project) MigrateResource(name resname.ResourceName, key string, op ops.Operation) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	res, err := p.resourceByName(name)
	if err != nil {
		return err
	}
	return res.Migrate(key, op)
}

// ListResources returns the registry entries of one type, filtered by origin.
func (p *Project) ListResources(typ resname.ResourceType, from registry.From) []registry.Entry {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.registry.Entries(typ, from)
}

// OnWatchChange routes a batch of changed paths from the filesystem watcher
// into the registry's incremental update path.
func (p *Project) OnWatchChange(changed []string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, path := range changed {
		if !filepath.IsAbs(path) {
			path = filepath.Join(p.root, path)
		}
		p.registry.HandleFileSystemChange(path)
	}
	return nil
}

// CreateCard creates a project card with a generated key, advancing and
// persisting the project's card counter. An empty parentKey creates a
// top-level card; otherwise the new card nests under the parent.
func (p *Project) CreateCard(parentKey, title string, cardType resname.ResourceName) (card.Card, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.registry.Exists(cardType) {
		return card.Card{}, fmt.Errorf("resource '%s' does not exist in the project", cardType)
	}

	parentDir := filepath.Join(p.root, card.CardRootDir)
	if parentKey != "" {
		parent, err := p.projectCard(parentKey)
		if err != nil {
			return card.Card{}, err
		}
		parentDir = parent.Path
	}

	key := fmt.Sprintf("%s-%d", p.config.CardKeyPrefix, p.config.NextCardNumber)
	metadata := map[string]any{
		"title":    title,
		"cardType": cardType.String(),
	}
	c, err := p.cards.CreateCard(parentDir, key, metadata, "== "+title+"\n")
	if err != nil {
		return card.Card{}, err
	}

	p.config.NextCardNumber++
	if err := config.WriteProject(p.root, p.config); err != nil {
		return card.Card{}, err
	}
	p.audit.Info("card_create", "key", key, "cardType", cardType.String())
	return c, nil
}

func (p *Project) projectCard(key string) (card.Card, error) {
	cards, err := p.cards.ProjectCards()
	if err != nil {
		return card.Card{}, err
	}
	for _, c := range cards {
		if c.Key == key {
			return c, nil
		}
	}
	return card.Card{}, fmt.Errorf("card '%s' does not exist in the project", key)
}

// Init creates a project skeleton at root: the configuration document, the
// card root, the state directory and one directory per resource type.
func Init(root, name, prefix string) error {
	cfg := &config.ProjectConfig{Name: name, CardKeyPrefix: prefix, NextCardNumber: 1}
	if _, err := os.Stat(filepath.Join(root, config.ProjectConfigFile)); err == nil {
		return fmt.Errorf("a project already exists at %s", root)
	}
	if err := config.WriteProject(root, cfg); err != nil {
		return err
	}

	dirs := []string{
		filepath.Join(root, card.CardRootDir),
		filepath.Join(root, StateDir, localStateDir),
	}
	for _, typ := range resname.Types {
		dirs = append(dirs, filepath.Join(root, string(typ)))
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create project directory %s: %w", dir, err)
		}
	}
	return nil
}
