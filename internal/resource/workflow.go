// SPDX-License-Identifier: MPL-2.0

package resource

import (
	"fmt"

	"cardkit/internal/card"
	"cardkit/internal/registry"
	"cardkit/pkg/ops"
	"cardkit/pkg/resname"
)

// Workflow is the workflow resource: a set of named states and the
// transitions between them.
type Workflow struct {
	FileResource[*WorkflowContent]
}

var _ Resource = (*Workflow)(nil)

// NewWorkflow constructs a workflow resource handle.
func NewWorkflow(deps Deps, name resname.ResourceName) *Workflow {
	return &Workflow{newFileResource(deps, name, "#Workflow", func() *WorkflowContent {
		return &WorkflowContent{
			States:      []WorkflowState{},
			Transitions: []WorkflowTransition{},
		}
	})}
}

// Update applies one operation to a workflow property.
func (r *Workflow) Update(key string, op ops.Operation) error {
	return r.update(key, op, func(c *WorkflowContent) error {
		if handled, err := applyBaseScalar(&c.Base, key, op); handled {
			return err
		}
		switch key {
		case "states":
			items, err := ops.Apply(c.States, op)
			if err != nil {
				return err
			}
			c.States = items
		case "transitions":
			items, err := ops.Apply(c.Transitions, op)
			if err != nil {
				return err
			}
			c.Transitions = items
		default:
			return fmt.Errorf("unknown property '%s' for workflows", key)
		}
		return nil
	})
}

// Usage lists referencing cards, then the card types bound to this workflow,
// then calculation files mentioning it.
func (r *Workflow) Usage(cards []card.Card) ([]string, error) {
	cardRefs, err := r.FileResource.Usage(cards)
	if err != nil {
		return nil, err
	}

	var resourceRefs []string
	cardTypes, err := r.deps.Registry.Resources(resname.CardTypeType, registry.FromLocal)
	if err != nil {
		return nil, err
	}
	for _, instance := range cardTypes {
		ct, ok := instance.(*CardType)
		if !ok {
			continue
		}
		content, err := ct.Load()
		if err != nil {
			return nil, err
		}
		if content.Workflow == r.name.String() {
			resourceRefs = append(resourceRefs, ct.Name().String())
		}
	}

	calcRefs, err := r.calculationFileRefs()
	if err != nil {
		return nil, err
	}
	return dedupe(cardRefs, resourceRefs, calcRefs), nil
}

// Delete removes the workflow unless the extended usage scan reports
// blocking references.
func (r *Workflow) Delete() error {
	return r.deleteWith(r.Usage)
}

// Rename moves the workflow and rewrites the binding in every local card
// type, then in calculation files.
func (r *Workflow) Rename(newName resname.ResourceName) error {
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
				if content.Workflow != oldRef {
					continue
				}
				content.Workflow = newRef
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
