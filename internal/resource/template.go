// SPDX-License-Identifier: MPL-2.0

package resource

import (
	"fmt"
	"path/filepath"

	"cardkit/internal/card"
	"cardkit/pkg/ops"
	"cardkit/pkg/resname"
)

// Template is the template resource: a folder whose "c" directory holds the
// cards instantiated when the template is applied. The metadata document
// carries only the shared scalar properties; the template's substance is its
// card tree, managed through the card store.
type Template struct {
	FolderResource[*BaseContent]
}

var _ Resource = (*Template)(nil)

// NewTemplate constructs a template resource handle.
func NewTemplate(deps Deps, name resname.ResourceName) *Template {
	return &Template{newFolderResource(deps, name, "#Template", func() *BaseContent {
		return &BaseContent{}
	}, map[string]string{})}
}

// Update applies one operation to a template property.
func (r *Template) Update(key string, op ops.Operation) error {
	return r.update(key, op, func(c *BaseContent) error {
		if handled, err := applyBaseScalar(&c.Base, key, op); handled {
			return err
		}
		return fmt.Errorf("unknown property '%s' for templates", key)
	})
}

// Cards enumerates the template's own cards, including nested children.
func (r *Template) Cards() ([]card.Card, error) {
	if !r.Exists() {
		return nil, fmt.Errorf("resource '%s' does not exist in the project", r.name)
	}
	return r.deps.Cards.CardsIn(r.cardsDir())
}

// AddCard creates a new card inside the template. A non-empty parentKey nests
// the card under an existing template card.
func (r *Template) AddCard(parentKey, key, cardType string, metadata map[string]any, content string) (card.Card, error) {
	if !r.Exists() {
		return card.Card{}, fmt.Errorf("resource '%s' does not exist in the project", r.name)
	}
	if r.IsModule() {
		return card.Card{}, fmt.Errorf("cannot update module resources")
	}
	if _, err := resname.Parse(cardType); err != nil {
		return card.Card{}, err
	}

	parentDir := r.cardsDir()
	if parentKey != "" {
		parent, err := r.findCard(parentKey)
		if err != nil {
			return card.Card{}, err
		}
		parentDir = filepath.Join(parent.Path, card.TemplateCardsDir)
	}

	if metadata == nil {
		metadata = map[string]any{}
	}
	metadata["cardType"] = cardType
	created, err := r.deps.Cards.CreateCard(parentDir, key, metadata, content)
	if err != nil {
		return card.Card{}, err
	}
	r.deps.Audit.Info(eventUpdate, "name", r.name.String(), "card", key)
	return created, nil
}

// Delete removes the template and every card inside it unless project cards
// still reference the template.
func (r *Template) Delete() error {
	return r.deleteWith(r.Usage)
}

// Usage lists the project cards referencing this template. The template's own
// cards never block deletion; they are removed together with the folder.
func (r *Template) Usage(cards []card.Card) ([]string, error) {
	if cards == nil {
		project, err := r.deps.Cards.ProjectCards()
		if err != nil {
			return nil, err
		}
		cards = project
	}
	return card.KeysReferencing(cards, r.name.String()), nil
}

func (r *Template) cardsDir() string {
	return filepath.Join(r.backingPath(), card.TemplateCardsDir)
}

func (r *Template) findCard(key string) (card.Card, error) {
	cards, err := r.Cards()
	if err != nil {
		return card.Card{}, err
	}
	for _, c := range cards {
		if c.Key == key {
			return c, nil
		}
	}
	return card.Card{}, fmt.Errorf("card '%s' does not exist in template '%s'", key, r.name)
}
