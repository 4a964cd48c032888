// SPDX-License-Identifier: MPL-2.0

package schema

import (
	_ "embed"
	"fmt"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
)

//go:embed resource_schemas.cue
var resourceSchemas string

// Validator checks resource content against the embedded CUE definitions.
type Validator struct {
	ctx     *cue.Context
	schemas cue.Value
}

// NewValidator compiles the embedded schema file. The returned validator is
// safe for concurrent reads.
func NewValidator() (*Validator, error) {
	ctx := cuecontext.New()
	schemas := ctx.CompileString(resourceSchemas, cue.Filename("resource_schemas.cue"))
	if schemas.Err() != nil {
		return nil, fmt.Errorf("internal error: failed to compile resource schemas: %w", schemas.Err())
	}
	return &Validator{ctx: ctx, schemas: schemas}, nil
}

// Validate unifies content (a JSON document) with the definition named by
// schemaID and returns an aggregated, path-prefixed error on any violation.
func (v *Validator) Validate(schemaID string, content []byte) error {
	def := v.schemas.LookupPath(cue.ParsePath(schemaID))
	if def.Err() != nil {
		return fmt.Errorf("unknown content schema '%s'", schemaID)
	}

	// JSON is a subset of CUE, so the content compiles directly.
	data := v.ctx.CompileBytes(content, cue.Filename("content.json"))
	if data.Err() != nil {
		return formatError(data.Err(), schemaID)
	}

	unified := def.Unify(data)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return formatError(err, schemaID)
	}
	return nil
}

// formatError flattens CUE errors into one message, prefixing each violation
// with a JSON path such as "customFields[0].name".
func formatError(err error, schemaID string) error {
	cueErrors := errors.Errors(err)
	if len(cueErrors) == 0 {
		return fmt.Errorf("invalid content for schema %s: %w", schemaID, err)
	}

	var lines []string
	for _, e := range cueErrors {
		pathStr := formatPath(errors.Path(e))
		msg := e.Error()
		// CUE sometimes repeats the path inside the message; strip it.
		if pathStr != "" && strings.HasPrefix(msg, pathStr) {
			msg = strings.TrimSpace(strings.TrimPrefix(strings.TrimPrefix(msg, pathStr), ":"))
		}
		if pathStr != "" {
			lines = append(lines, fmt.Sprintf("%s: %s", pathStr, msg))
		} else {
			lines = append(lines, msg)
		}
	}

	if len(lines) == 1 {
		return fmt.Errorf("invalid content for schema %s: %s", schemaID, lines[0])
	}
	return fmt.Errorf("invalid content for schema %s:\n  %s", schemaID, strings.Join(lines, "\n  "))
}

// formatPath converts a CUE error path to JSON-path notation; numeric path
// elements become array indices ("customFields[0].name").
func formatPath(path []string) string {
	var result strings.Builder
	for i, part := range path {
		isIndex := len(part) > 0
		for _, c := range part {
			if c < '0' || c > '9' {
				isIndex = false
				break
			}
		}
		switch {
		case isIndex && i > 0:
			result.WriteString("[")
			result.WriteString(part)
			result.WriteString("]")
		case i > 0:
			result.WriteString(".")
			result.WriteString(part)
		default:
			result.WriteString(part)
		}
	}
	return result.String()
}
