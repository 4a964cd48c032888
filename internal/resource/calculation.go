// SPDX-License-Identifier: MPL-2.0

package resource

import (
	"fmt"
	"path/filepath"
	"strings"

	"cardkit/internal/card"
	"cardkit/pkg/ops"
	"cardkit/pkg/resname"
)

// Calculation is the calculation resource: a logic program deriving
// calculated field values for cards.
type Calculation struct {
	FolderResource[*BaseContent]
}

var _ Resource = (*Calculation)(nil)

// NewCalculation constructs a calculation resource handle.
func NewCalculation(deps Deps, name resname.ResourceName) *Calculation {
	return &Calculation{newFolderResource(deps, name, "#Calculation", func() *BaseContent {
		return &BaseContent{}
	}, map[string]string{"calculation.lp": "calculation"})}
}

// Update applies one operation to a calculation property.
func (r *Calculation) Update(key string, op ops.Operation) error {
	return r.update(key, op, func(c *BaseContent) error {
		if handled, err := applyBaseScalar(&c.Base, key, op); handled {
			return err
		}
		return fmt.Errorf("unknown property '%s' for calculations", key)
	})
}

// Usage extends the card scan with card types whose calculated custom fields
// carry this calculation's name and with other calculation programs
// referencing it.
func (r *Calculation) Usage(cards []card.Card) ([]string, error) {
	cardRefs, err := r.FileResource.Usage(cards)
	if err != nil {
		return nil, err
	}
	calcRefs, err := r.calculationFileRefs()
	if err != nil {
		return nil, err
	}
	// A calculation naming itself inside its own program is not a blocking
	// reference.
	own := string(resname.CalculationType) + string(filepath.Separator) + r.name.Identifier
	others := calcRefs[:0]
	for _, ref := range calcRefs {
		if !strings.HasPrefix(ref, own+string(filepath.Separator)) {
			others = append(others, ref)
		}
	}
	return dedupe(cardRefs, others), nil
}

// Delete removes the calculation unless the extended usage scan reports
// blocking references.
func (r *Calculation) Delete() error {
	return r.deleteWith(r.Usage)
}

// Rename moves the calculation and rewrites other calculation programs
// importing it by name.
func (r *Calculation) Rename(newName resname.ResourceName) error {
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
