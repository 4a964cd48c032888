// SPDX-License-Identifier: MPL-2.0

// Package resname provides the ResourceName value type used to address every
// resource in a project: the string form "prefix/type/identifier", where
// prefix is the owning project or imported module, type is one of the fixed
// resource folder kinds, and identifier is a filesystem-safe name.
package resname

import (
	"fmt"
	"regexp"
	"strings"
)

// ResourceType is one of the fixed resource folder kinds. The value is also
// the on-disk folder name holding resources of that kind.
type ResourceType string

const (
	CalculationType ResourceType = "calculations"
	CardTypeType    ResourceType = "cardTypes"
	FieldTypeType   ResourceType = "fieldTypes"
	GraphModelType  ResourceType = "graphModels"
	GraphViewType   ResourceType = "graphViews"
	LinkTypeType    ResourceType = "linkTypes"
	ReportType      ResourceType = "reports"
	TemplateType    ResourceType = "templates"
	WorkflowType    ResourceType = "workflows"
)

// Types lists every resource folder kind in scan order.
var Types = []ResourceType{
	CalculationType,
	CardTypeType,
	FieldTypeType,
	GraphModelType,
	GraphViewType,
	LinkTypeType,
	ReportType,
	TemplateType,
	WorkflowType,
}

// IsValid reports whether t is a member of the fixed resource-type set.
func (t ResourceType) IsValid() bool {
	for _, known := range Types {
		if t == known {
			return true
		}
	}
	return false
}

// identifierPattern restricts identifiers (and prefixes) to names that are
// safe as file and folder names on every supported platform.
var identifierPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]*$`)

// ValidIdentifier reports whether s may be used as a resource identifier or
// a project/module prefix.
func ValidIdentifier(s string) bool {
	return identifierPattern.MatchString(s)
}

// ResourceName addresses a single resource.
type ResourceName struct {
	// Prefix identifies the owning project or imported module.
	Prefix string
	// Type is the resource folder kind.
	Type ResourceType
	// Identifier is the filesystem-safe resource name.
	Identifier string
}

// New builds a ResourceName and validates each component.
func New(prefix string, typ ResourceType, identifier string) (ResourceName, error) {
	n := ResourceName{Prefix: prefix, Type: typ, Identifier: identifier}
	if err := n.Validate(); err != nil {
		return ResourceName{}, err
	}
	return n, nil
}

// Parse converts the string form "prefix/type/identifier" to a ResourceName.
func Parse(s string) (ResourceName, error) {
	parts := strings.Split(s, "/")
	if len(parts) != 3 {
		return ResourceName{}, fmt.Errorf("resource name '%s' must have the form prefix/type/identifier", s)
	}
	return New(parts[0], ResourceType(parts[1]), parts[2])
}

// String returns the canonical string form, which is also the registry key.
func (n ResourceName) String() string {
	return n.Prefix + "/" + string(n.Type) + "/" + n.Identifier
}

// Validate checks every component of the name.
func (n ResourceName) Validate() error {
	if !ValidIdentifier(n.Prefix) {
		return fmt.Errorf("invalid resource prefix '%s'", n.Prefix)
	}
	if !n.Type.IsValid() {
		return fmt.Errorf("resource type '%s' is not a known resource type", n.Type)
	}
	if !ValidIdentifier(n.Identifier) {
		return fmt.Errorf("invalid resource identifier '%s'", n.Identifier)
	}
	return nil
}
