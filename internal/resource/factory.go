// SPDX-License-Identifier: MPL-2.0

package resource

import (
	"fmt"

	"cardkit/pkg/resname"
)

// New constructs the concrete resource for a name. The resource may not exist
// on disk yet; Create materializes it.
func New(deps Deps, name resname.ResourceName) (Resource, error) {
	switch name.Type {
	case resname.CalculationType:
		return NewCalculation(deps, name), nil
	case resname.CardTypeType:
		return NewCardType(deps, name), nil
	case resname.FieldTypeType:
		return NewFieldType(deps, name), nil
	case resname.GraphModelType:
		return NewGraphModel(deps, name), nil
	case resname.GraphViewType:
		return NewGraphView(deps, name), nil
	case resname.LinkTypeType:
		return NewLinkType(deps, name), nil
	case resname.ReportType:
		return NewReport(deps, name), nil
	case resname.TemplateType:
		return NewTemplate(deps, name), nil
	case resname.WorkflowType:
		return NewWorkflow(deps, name), nil
	default:
		return nil, fmt.Errorf("unknown resource type '%s'", name.Type)
	}
}
