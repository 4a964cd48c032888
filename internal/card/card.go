// SPDX-License-Identifier: MPL-2.0

// Package card implements the project-wide card index consumed by resource
// usage scans and rename cascades. Cards live under the project's cardRoot
// (one directory per card holding index.json metadata and index.adoc
// content); template cards live under each template's "c" directory. The
// index is deliberately small: resources only need to enumerate cards and
// rewrite card metadata.
package card

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const (
	// CardRootDir is the project directory holding project cards.
	CardRootDir = "cardRoot"
	// TemplateCardsDir is the directory inside a template folder holding the
	// template's cards.
	TemplateCardsDir = "c"

	metadataFile = "index.json"
	contentFile  = "index.adoc"
)

// Card is one card: a key, its directory, JSON metadata and AsciiDoc content.
type Card struct {
	Key      string
	Path     string
	Metadata map[string]any
	Content  string
}

// Serialized returns the card's metadata and content as one string for
// reference scans. Usage detection is a substring search over this form, not
// a semantic reference graph.
func (c Card) Serialized() string {
	data, err := json.Marshal(c.Metadata)
	if err != nil {
		return c.Content
	}
	return string(data) + "\n" + c.Content
}

// Store reads and writes cards under a project root.
type Store struct {
	root string
}

// NewStore creates a card store for the given project root.
func NewStore(root string) *Store {
	return &Store{root: root}
}

// Cards returns every project card followed by every template card, sorted by
// key within each group.
func (s *Store) Cards() ([]Card, error) {
	project, err := s.cardsUnder(filepath.Join(s.root, CardRootDir))
	if err != nil {
		return nil, err
	}
	templates, err := s.templateCards()
	if err != nil {
		return nil, err
	}
	return append(project, templates...), nil
}

// ProjectCards returns the cards under cardRoot only.
func (s *Store) ProjectCards() ([]Card, error) {
	return s.cardsUnder(filepath.Join(s.root, CardRootDir))
}

// UpdateCardMetadata replaces a card's metadata document on disk.
func (s *Store) UpdateCardMetadata(c Card, metadata map[string]any) error {
	data, err := json.MarshalIndent(metadata, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode metadata for card %s: %w", c.Key, err)
	}
	path := filepath.Join(c.Path, metadataFile)
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("failed to write metadata for card %s: %w", c.Key, err)
	}
	return nil
}

// CreateCard writes a new card directory with metadata and content. Used by
// tests and by template instantiation.
func (s *Store) CreateCard(parentDir, key string, metadata map[string]any, content string) (Card, error) {
	dir := filepath.Join(parentDir, key)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Card{}, fmt.Errorf("failed to create card directory: %w", err)
	}
	c := Card{Key: key, Path: dir, Metadata: metadata, Content: content}
	if err := s.UpdateCardMetadata(c, metadata); err != nil {
		return Card{}, err
	}
	if err := os.WriteFile(filepath.Join(dir, contentFile), []byte(content), 0o644); err != nil {
		return Card{}, fmt.Errorf("failed to write content for card %s: %w", key, err)
	}
	return c, nil
}

// CardsIn returns the cards below an arbitrary directory, recursing into
// nested child-card directories. Template resources use it to enumerate their
// own cards.
func (s *Store) CardsIn(dir string) ([]Card, error) {
	return s.cardsUnder(dir)
}

// templateCards walks every template folder's card directory.
func (s *Store) templateCards() ([]Card, error) {
	templatesDir := filepath.Join(s.root, "templates")
	entries, err := os.ReadDir(templatesDir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read templates directory: %w", err)
	}

	var cards []Card
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		found, err := s.cardsUnder(filepath.Join(templatesDir, entry.Name(), TemplateCardsDir))
		if err != nil {
			return nil, err
		}
		cards = append(cards, found...)
	}
	return cards, nil
}

// cardsUnder reads every card directory below dir, recursing into nested
// child-card directories.
func (s *Store) cardsUnder(dir string) ([]Card, error) {
	var cards []Card

	var walk func(string) error
	walk = func(current string) error {
		entries, err := os.ReadDir(current)
		if err != nil {
			return fmt.Errorf("failed to read card directory %s: %w", current, err)
		}
		for _, entry := range entries {
			if !entry.IsDir() {
				continue
			}
			cardDir := filepath.Join(current, entry.Name())
			c, ok, err := s.readCard(cardDir, entry.Name())
			if err != nil {
				return err
			}
			if ok {
				cards = append(cards, c)
				// Children live under <card>/c/<child>.
				childDir := filepath.Join(cardDir, TemplateCardsDir)
				if _, err := os.Stat(childDir); err == nil {
					if err := walk(childDir); err != nil {
						return err
					}
				}
			}
		}
		return nil
	}

	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return nil, nil
	}
	if err := walk(dir); err != nil {
		return nil, err
	}

	sort.Slice(cards, func(i, j int) bool { return cards[i].Key < cards[j].Key })
	return cards, nil
}

// readCard loads one card directory. Directories without index.json are not
// cards and are skipped.
func (s *Store) readCard(dir, key string) (Card, bool, error) {
	metaPath := filepath.Join(dir, metadataFile)
	data, err := os.ReadFile(metaPath)
	if os.IsNotExist(err) {
		return Card{}, false, nil
	}
	if err != nil {
		return Card{}, false, fmt.Errorf("failed to read card metadata %s: %w", metaPath, err)
	}

	var metadata map[string]any
	if err := json.Unmarshal(data, &metadata); err != nil {
		return Card{}, false, fmt.Errorf("card %s has malformed metadata: %w", key, err)
	}

	content := ""
	if raw, err := os.ReadFile(filepath.Join(dir, contentFile)); err == nil {
		content = string(raw)
	}

	return Card{Key: key, Path: dir, Metadata: metadata, Content: content}, true, nil
}

// KeysReferencing returns the sorted keys of cards whose serialized form
// contains ref.
func KeysReferencing(cards []Card, ref string) []string {
	var keys []string
	for _, c := range cards {
		if strings.Contains(c.Serialized(), ref) {
			keys = append(keys, c.Key)
		}
	}
	sort.Strings(keys)
	return keys
}
