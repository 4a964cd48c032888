// SPDX-License-Identifier: MPL-2.0

package resource

import (
	"fmt"

	"cardkit/internal/card"
	"cardkit/pkg/ops"
	"cardkit/pkg/resname"
)

// LinkType is the link type resource: a named, directed relation between
// cards, restricted to configured source and destination card types.
type LinkType struct {
	FileResource[*LinkTypeContent]
}

var _ Resource = (*LinkType)(nil)

// NewLinkType constructs a link type resource handle.
func NewLinkType(deps Deps, name resname.ResourceName) *LinkType {
	return &LinkType{newFileResource(deps, name, "#LinkType", func() *LinkTypeContent {
		return &LinkTypeContent{
			SourceCardTypes:      []string{},
			DestinationCardTypes: []string{},
		}
	})}
}

// Update applies one operation to a link type property.
func (r *LinkType) Update(key string, op ops.Operation) error {
	return r.update(key, op, func(c *LinkTypeContent) error {
		if handled, err := applyBaseScalar(&c.Base, key, op); handled {
			return err
		}
		switch key {
		case "outboundDisplayName":
			v, err := ops.ApplyScalar[string](op)
			if err != nil {
				return err
			}
			c.OutboundDisplayName = v
		case "inboundDisplayName":
			v, err := ops.ApplyScalar[string](op)
			if err != nil {
				return err
			}
			c.InboundDisplayName = v
		case "enableLinkDescription":
			v, err := ops.ApplyScalar[bool](op)
			if err != nil {
				return err
			}
			c.EnableLinkDescription = v
		case "sourceCardTypes":
			items, err := ops.Apply(c.SourceCardTypes, op)
			if err != nil {
				return err
			}
			c.SourceCardTypes = items
		case "destinationCardTypes":
			items, err := ops.Apply(c.DestinationCardTypes, op)
			if err != nil {
				return err
			}
			c.DestinationCardTypes = items
		default:
			return fmt.Errorf("unknown property '%s' for link types", key)
		}
		return nil
	})
}

// Usage lists referencing cards (card links carry the link type name in
// their metadata), then calculation files mentioning it.
func (r *LinkType) Usage(cards []card.Card) ([]string, error) {
	cardRefs, err := r.FileResource.Usage(cards)
	if err != nil {
		return nil, err
	}
	calcRefs, err := r.calculationFileRefs()
	if err != nil {
		return nil, err
	}
	return dedupe(cardRefs, calcRefs), nil
}

// Delete removes the link type unless the extended usage scan reports
// blocking references.
func (r *LinkType) Delete() error {
	return r.deleteWith(r.Usage)
}

// Rename moves the link type and rewrites references in calculation files.
func (r *LinkType) Rename(newName resname.ResourceName) error {
	oldRef := r.name.String()
	if err := r.rename(newName); err != nil {
		return err
	}
	newRef := r.name.String()

	return runCascade([]cascadeStep{
		{"calculations", func() error {
			return r.rewriteResourceFiles(resname.CalculationType, ".lp", oldRef, newRef)
		}},
	})
}

// replaceCardTypeRef rewrites one card type name in the source and
// destination lists. Card type renames call it as a cascade step.
func (r *LinkType) replaceCardTypeRef(oldRef, newRef string) error {
	content, err := r.Load()
	if err != nil {
		return err
	}
	changed := false
	for i, ct := range content.SourceCardTypes {
		if ct == oldRef {
			content.SourceCardTypes[i] = newRef
			changed = true
		}
	}
	for i, ct := range content.DestinationCardTypes {
		if ct == oldRef {
			content.DestinationCardTypes[i] = newRef
			changed = true
		}
	}
	if !changed {
		return nil
	}
	return r.write()
}
