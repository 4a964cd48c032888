// SPDX-License-Identifier: MPL-2.0

package resource

import (
	"fmt"

	"golang.org/x/exp/slices"

	"cardkit/internal/card"
	"cardkit/internal/registry"
	"cardkit/pkg/ops"
	"cardkit/pkg/resname"
)

// CardType is the card type resource. It references a workflow and a set of
// field types, and is the resource with the widest cascade surface: renaming
// a card type propagates into link types, calculation files and report
// templates, and swapping its workflow remaps the state of every card using
// the type.
type CardType struct {
	FileResource[*CardTypeContent]
}

var _ Resource = (*CardType)(nil)

// NewCardType constructs a card type resource handle. The resource may not
// exist yet; Create materializes it.
func NewCardType(deps Deps, name resname.ResourceName) *CardType {
	return &CardType{newFileResource(deps, name, "#CardType", func() *CardTypeContent {
		return &CardTypeContent{
			CustomFields:            []CustomField{},
			AlwaysVisibleFields:     []string{},
			OptionallyVisibleFields: []string{},
		}
	})}
}

// workflowSwap captures a pending workflow change that must remap card
// states after the content write succeeds.
type workflowSwap struct {
	mapping map[string]string
}

// Update applies one operation to a card type property.
func (r *CardType) Update(key string, op ops.Operation) error {
	var swap *workflowSwap
	err := r.update(key, op, func(c *CardTypeContent) error {
		if handled, err := applyBaseScalar(&c.Base, key, op); handled {
			return err
		}
		switch key {
		case "workflow":
			v, err := ops.ApplyScalar[string](op)
			if err != nil {
				return err
			}
			if _, err := resname.Parse(v); err != nil {
				return err
			}
			c.Workflow = v
			if len(op.MappingTable) > 0 {
				swap = &workflowSwap{mapping: op.MappingTable}
			}
		case "customFields":
			items, err := ops.Apply(c.CustomFields, op)
			if err != nil {
				return err
			}
			c.CustomFields = items
		case "alwaysVisibleFields":
			items, err := r.applyVisibleFields(c, c.AlwaysVisibleFields, op)
			if err != nil {
				return err
			}
			c.AlwaysVisibleFields = items
		case "optionallyVisibleFields":
			items, err := r.applyVisibleFields(c, c.OptionallyVisibleFields, op)
			if err != nil {
				return err
			}
			c.OptionallyVisibleFields = items
		default:
			return fmt.Errorf("unknown property '%s' for card types", key)
		}
		return nil
	})
	if err != nil {
		return err
	}
	if swap != nil {
		return r.remapCardStates(swap.mapping)
	}
	return nil
}

// applyVisibleFields guards the visible-field arrays: a field can only be
// made visible when it is one of the card type's custom fields.
func (r *CardType) applyVisibleFields(c *CardTypeContent, fields []string, op ops.Operation) ([]string, error) {
	if op.Kind == ops.Add {
		name, ok := targetName(op.Target)
		if !ok {
			return nil, fmt.Errorf("invalid target for add operation")
		}
		defined := slices.ContainsFunc(c.CustomFields, func(f CustomField) bool {
			return f.Name == name
		})
		if !defined {
			return nil, fmt.Errorf("field '%s' is not defined in card type '%s'", name, r.name)
		}
	}
	return ops.Apply(fields, op)
}

// remapCardStates rewrites the workflow state of every card using this card
// type through the operation's mapping table.
func (r *CardType) remapCardStates(mapping map[string]string) error {
	cards, err := r.deps.Cards.Cards()
	if err != nil {
		return err
	}
	for _, c := range cards {
		if c.Metadata["cardType"] != r.name.String() {
			continue
		}
		state, _ := c.Metadata["workflowState"].(string)
		mapped, ok := mapping[state]
		if !ok {
			return fmt.Errorf("workflow state '%s' of card %s has no mapping", state, c.Key)
		}
		c.Metadata["workflowState"] = mapped
		if err := r.deps.Cards.UpdateCardMetadata(c, c.Metadata); err != nil {
			return err
		}
	}
	return nil
}

// Usage lists the card keys whose content references this card type, then
// the link types using it as a source or destination, then calculation files
// mentioning it.
func (r *CardType) Usage(cards []card.Card) ([]string, error) {
	cardRefs, err := r.FileResource.Usage(cards)
	if err != nil {
		return nil, err
	}

	var resourceRefs []string
	linkTypes, err := r.deps.Registry.Resources(resname.LinkTypeType, registry.FromLocal)
	if err != nil {
		return nil, err
	}
	name := r.name.String()
	for _, instance := range linkTypes {
		lt, ok := instance.(*LinkType)
		if !ok {
			continue
		}
		content, err := lt.Load()
		if err != nil {
			return nil, err
		}
		if slices.Contains(content.SourceCardTypes, name) || slices.Contains(content.DestinationCardTypes, name) {
			resourceRefs = append(resourceRefs, lt.Name().String())
		}
	}

	calcRefs, err := r.calculationFileRefs()
	if err != nil {
		return nil, err
	}
	return dedupe(cardRefs, resourceRefs, calcRefs), nil
}

// Delete removes the card type unless the extended usage scan reports
// blocking references.
func (r *CardType) Delete() error {
	return r.deleteWith(r.Usage)
}

// Rename moves the card type and cascades the new name into dependent
// artifacts. The cascade has no rollback: a mid-cascade failure leaves the
// steps that already ran applied.
func (r *CardType) Rename(newName resname.ResourceName) error {
	oldRef := r.name.String()
	if err := r.rename(newName); err != nil {
		return err
	}
	newRef := r.name.String()

	return runCascade([]cascadeStep{
		{"link types", func() error {
			return r.renameInLinkTypes(oldRef, newRef)
		}},
		{"calculations", func() error {
			return r.rewriteResourceFiles(resname.CalculationType, ".lp", oldRef, newRef)
		}},
		{"report templates", func() error {
			if err := r.rewriteResourceFiles(resname.ReportType, ".hbs", oldRef, newRef); err != nil {
				return err
			}
			return r.rewriteResourceFiles(resname.GraphViewType, ".hbs", oldRef, newRef)
		}},
	})
}

// renameInLinkTypes updates every local link type referencing the old card
// type name.
func (r *CardType) renameInLinkTypes(oldRef, newRef string) error {
	linkTypes, err := r.deps.Registry.Resources(resname.LinkTypeType, registry.FromLocal)
	if err != nil {
		return err
	}
	for _, instance := range linkTypes {
		lt, ok := instance.(*LinkType)
		if !ok {
			continue
		}
		if err := lt.replaceCardTypeRef(oldRef, newRef); err != nil {
			return err
		}
	}
	return nil
}

// Migrate applies an operation idempotently: an operation that has already
// been applied (duplicate add, missing change or remove target) is a no-op.
func (r *CardType) Migrate(key string, op ops.Operation) error {
	err := r.Update(key, op)
	if err != nil && alreadyApplied(err) {
		return nil
	}
	return err
}
