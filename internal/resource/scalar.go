// SPDX-License-Identifier: MPL-2.0

package resource

import (
	"encoding/json"
	"fmt"
	"strings"

	"cardkit/pkg/ops"
)

// alreadyApplied recognizes operation failures that mean the operation has
// been applied before: a duplicate add, or a change/remove whose target is
// gone. Migrate treats these as success.
func alreadyApplied(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "already exists in the collection") ||
		strings.Contains(msg, "cannot find target")
}

// applyBaseScalar handles the update keys shared by every resource type.
// It reports whether the key was one of them.
func applyBaseScalar(b *Base, key string, op ops.Operation) (bool, error) {
	switch key {
	case "displayName":
		v, err := ops.ApplyScalar[string](op)
		if err != nil {
			return true, err
		}
		b.DisplayName = v
	case "description":
		v, err := ops.ApplyScalar[string](op)
		if err != nil {
			return true, err
		}
		b.Description = v
	case "category":
		v, err := ops.ApplyScalar[string](op)
		if err != nil {
			return true, err
		}
		b.Category = v
	case "name":
		return true, fmt.Errorf("cannot update 'name' directly, rename the resource instead")
	default:
		return false, nil
	}
	return true, nil
}

// targetName extracts the element name from an operation target that is
// either a bare string or an object carrying a name property.
func targetName(raw json.RawMessage) (string, bool) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, true
	}
	var obj struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil && obj.Name != "" {
		return obj.Name, true
	}
	return "", false
}
