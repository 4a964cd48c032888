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

// FieldType is the field type resource: a named, typed metadata field that
// card types reference through their customFields.
type FieldType struct {
	FileResource[*FieldTypeContent]
}

var _ Resource = (*FieldType)(nil)

// NewFieldType constructs a field type resource handle.
func NewFieldType(deps Deps, name resname.ResourceName) *FieldType {
	return &FieldType{newFileResource(deps, name, "#FieldType", func() *FieldTypeContent {
		return &FieldTypeContent{DataType: "shortText"}
	})}
}

// Update applies one operation to a field type property.
func (r *FieldType) Update(key string, op ops.Operation) error {
	return r.update(key, op, func(c *FieldTypeContent) error {
		if handled, err := applyBaseScalar(&c.Base, key, op); handled {
			return err
		}
		switch key {
		case "dataType":
			v, err := ops.ApplyScalar[string](op)
			if err != nil {
				return err
			}
			c.DataType = v
		case "enumValues":
			items, err := ops.Apply(c.EnumValues, op)
			if err != nil {
				return err
			}
			c.EnumValues = items
		default:
			return fmt.Errorf("unknown property '%s' for field types", key)
		}
		return nil
	})
}

// Usage lists referencing cards, then the card types using this field, then
// calculation files mentioning it.
func (r *FieldType) Usage(cards []card.Card) ([]string, error) {
	cardRefs, err := r.FileResource.Usage(cards)
	if err != nil {
		return nil, err
	}

	var resourceRefs []string
	cardTypes, err := r.deps.Registry.Resources(resname.CardTypeType, registry.FromLocal)
	if err != nil {
		return nil, err
	}
	name := r.name.String()
	for _, instance := range cardTypes {
		ct, ok := instance.(*CardType)
		if !ok {
			continue
		}
		content, err := ct.Load()
		if err != nil {
			return nil, err
		}
		uses := slices.ContainsFunc(content.CustomFields, func(f CustomField) bool { return f.Name == name }) ||
			slices.Contains(content.AlwaysVisibleFields, name) ||
			slices.Contains(content.OptionallyVisibleFields, name)
		if uses {
			resourceRefs = append(resourceRefs, ct.Name().String())
		}
	}

	calcRefs, err := r.calculationFileRefs()
	if err != nil {
		return nil, err
	}
	return dedupe(cardRefs, resourceRefs, calcRefs), nil
}

// Delete removes the field type unless the extended usage scan reports
// blocking references.
func (r *FieldType) Delete() error {
	return r.deleteWith(r.Usage)
}

// Rename moves the field type and rewrites references in every local card
// type, then in calculation files.
func (r *FieldType) Rename(newName resname.ResourceName) error {
	oldRef := r.name.String()
	if err := r.rename(newName); err != nil {
		return err
	}
	newRef := r.name.String()

	return runCascade([]cascadeStep{
		{"card types", func() error {
			cardTypes, err := r.deps.Registry.Resources(resname.CardTypeType, registry.FromLocal)
			if err != nil {
				return err
			}
			for _, instance := range cardTypes {
				ct, ok := instance.(*CardType)
				if !ok {
					continue
				}
				content, err := ct.Load()
				if err != nil {
					return err
				}
				changed := false
				for i, field := range content.CustomFields {
					if field.Name == oldRef {
						content.CustomFields[i].Name = newRef
						changed = true
					}
				}
				for i, field := range content.AlwaysVisibleFields {
					if field == oldRef {
						content.AlwaysVisibleFields[i] = newRef
						changed = true
					}
				}
				for i, field := range content.OptionallyVisibleFields {
					if field == oldRef {
						content.OptionallyVisibleFields[i] = newRef
						changed = true
					}
				}
				if !changed {
					continue
				}
				if err := ct.write(); err != nil {
					return err
				}
			}
			return nil
		}},
		{"calculations", func() error {
			return r.rewriteResourceFiles(resname.CalculationType, ".lp", oldRef, newRef)
		}},
	})
}
