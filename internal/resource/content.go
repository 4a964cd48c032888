// SPDX-License-Identifier: MPL-2.0

package resource

// Content is implemented by every resource content document. The name field
// of the document must always equal the string form of the resource's current
// name; the lifecycle methods keep the two in sync.
type Content interface {
	ResourceName() string
	SetResourceName(name string)
}

// Base carries the properties shared by every resource content document.
type Base struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
	Description string `json:"description"`
	Category    string `json:"category,omitempty"`
}

// ResourceName returns the content's name field.
func (b *Base) ResourceName() string { return b.Name }

// SetResourceName sets the content's name field.
func (b *Base) SetResourceName(name string) { b.Name = name }

// CustomField is one entry of a card type's customFields array.
type CustomField struct {
	Name         string `json:"name"`
	DisplayName  string `json:"displayName,omitempty"`
	IsCalculated bool   `json:"isCalculated,omitempty"`
}

// CardTypeContent is the content document of a card type resource.
type CardTypeContent struct {
	Base
	Workflow                string        `json:"workflow"`
	CustomFields            []CustomField `json:"customFields"`
	AlwaysVisibleFields     []string      `json:"alwaysVisibleFields"`
	OptionallyVisibleFields []string      `json:"optionallyVisibleFields"`
}

// WorkflowState is one state of a workflow.
type WorkflowState struct {
	Name     string `json:"name"`
	Category string `json:"category,omitempty"`
}

// WorkflowTransition moves cards between workflow states.
type WorkflowTransition struct {
	Name      string   `json:"name"`
	FromState []string `json:"fromState"`
	ToState   string   `json:"toState"`
}

// WorkflowContent is the content document of a workflow resource.
type WorkflowContent struct {
	Base
	States      []WorkflowState      `json:"states"`
	Transitions []WorkflowTransition `json:"transitions"`
}

// EnumValue is one allowed value of an enum field type.
type EnumValue struct {
	EnumValue        string `json:"enumValue"`
	EnumDisplayValue string `json:"enumDisplayValue,omitempty"`
	EnumDescription  string `json:"enumDescription,omitempty"`
}

// FieldTypeContent is the content document of a field type resource.
type FieldTypeContent struct {
	Base
	DataType   string      `json:"dataType"`
	EnumValues []EnumValue `json:"enumValues,omitempty"`
}

// LinkTypeContent is the content document of a link type resource.
type LinkTypeContent struct {
	Base
	OutboundDisplayName   string   `json:"outboundDisplayName"`
	InboundDisplayName    string   `json:"inboundDisplayName"`
	SourceCardTypes       []string `json:"sourceCardTypes"`
	DestinationCardTypes  []string `json:"destinationCardTypes"`
	EnableLinkDescription bool     `json:"enableLinkDescription"`
}

// BaseContent is the content document of resources that carry only the shared
// properties (templates, reports, graph models, graph views, calculations).
type BaseContent struct {
	Base
}
