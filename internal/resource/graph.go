// SPDX-License-Identifier: MPL-2.0

package resource

import (
	"fmt"

	"cardkit/internal/card"
	"cardkit/internal/registry"
	"cardkit/pkg/ops"
	"cardkit/pkg/resname"
)

// GraphModel is the graph model resource: a logic program describing the
// nodes and edges available to graph views.
type GraphModel struct {
	FolderResource[*BaseContent]
}

var _ Resource = (*GraphModel)(nil)

// NewGraphModel constructs a graph model resource handle.
func NewGraphModel(deps Deps, name resname.ResourceName) *GraphModel {
	return &GraphModel{newFolderResource(deps, name, "#GraphModel", func() *BaseContent {
		return &BaseContent{}
	}, map[string]string{"model.lp": "model"})}
}

// Update applies one operation to a graph model property.
func (r *GraphModel) Update(key string, op ops.Operation) error {
	return r.update(key, op, func(c *BaseContent) error {
		if handled, err := applyBaseScalar(&c.Base, key, op); handled {
			return err
		}
		return fmt.Errorf("unknown property '%s' for graph models", key)
	})
}

// Usage extends the card scan with graph views whose view program references
// this model.
func (r *GraphModel) Usage(cards []card.Card) ([]string, error) {
	cardRefs, err := r.FileResource.Usage(cards)
	if err != nil {
		return nil, err
	}

	return dedupe(cardRefs, r.referencingViews()), nil
}

// Delete removes the graph model unless the extended usage scan reports
// blocking references.
func (r *GraphModel) Delete() error {
	return r.deleteWith(r.Usage)
}

// Rename moves the graph model and rewrites the view programs referencing it.
func (r *GraphModel) Rename(newName resname.ResourceName) error {
	oldRef := r.name.String()
	if err := r.rename(newName); err != nil {
		return err
	}
	newRef := r.name.String()

	return runCascade([]cascadeStep{
		{"graph views", func() error {
			return r.rewriteResourceFiles(resname.GraphViewType, ".hbs", oldRef, newRef)
		}},
	})
}

// referencingViews returns the names of local graph views whose view program
// mentions this model. Scan failures are treated as no reference.
func (r *GraphModel) referencingViews() []string {
	var names []string
	for _, entry := range r.deps.Registry.Entries(resname.GraphViewType, registry.FromLocal) {
		files, err := filesContaining(entry.Path, ".hbs", r.name.String())
		if err != nil || len(files) == 0 {
			continue
		}
		names = append(names, entry.Name.String())
	}
	return names
}

// GraphView is the graph view resource: a Handlebars-templated logic program
// selecting and styling a subset of a graph model.
type GraphView struct {
	FolderResource[*BaseContent]
}

var _ Resource = (*GraphView)(nil)

// NewGraphView constructs a graph view resource handle.
func NewGraphView(deps Deps, name resname.ResourceName) *GraphView {
	return &GraphView{newFolderResource(deps, name, "#GraphView", func() *BaseContent {
		return &BaseContent{}
	}, map[string]string{"view.lp.hbs": "view"})}
}

// Update applies one operation to a graph view property.
func (r *GraphView) Update(key string, op ops.Operation) error {
	return r.update(key, op, func(c *BaseContent) error {
		if handled, err := applyBaseScalar(&c.Base, key, op); handled {
			return err
		}
		return fmt.Errorf("unknown property '%s' for graph views", key)
	})
}
