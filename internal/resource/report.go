// SPDX-License-Identifier: MPL-2.0

package resource

import (
	"fmt"

	"cardkit/pkg/ops"
	"cardkit/pkg/resname"
)

// reportFiles maps the report folder's content files to their logical
// property names.
var reportFiles = map[string]string{
	"query.lp":             "query",
	"index.adoc.hbs":       "template",
	"parameterSchema.json": "parameters",
}

// Report is the report resource: a logic program query, a Handlebars
// document template and an optional parameter schema.
type Report struct {
	FolderResource[*BaseContent]
}

var _ Resource = (*Report)(nil)

// NewReport constructs a report resource handle.
func NewReport(deps Deps, name resname.ResourceName) *Report {
	return &Report{newFolderResource(deps, name, "#Report", func() *BaseContent {
		return &BaseContent{}
	}, reportFiles)}
}

// Update applies one operation to a report property. The report's content
// files are updated through UpdateFile, not through operations.
func (r *Report) Update(key string, op ops.Operation) error {
	return r.update(key, op, func(c *BaseContent) error {
		if handled, err := applyBaseScalar(&c.Base, key, op); handled {
			return err
		}
		return fmt.Errorf("unknown property '%s' for reports", key)
	})
}
