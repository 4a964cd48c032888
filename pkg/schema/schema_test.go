// SPDX-License-Identifier: MPL-2.0

package schema

import (
	"strings"
	"testing"
)

func newValidator(t *testing.T) *Validator {
	t.Helper()
	v, err := NewValidator()
	if err != nil {
		t.Fatalf("NewValidator: %v", err)
	}
	return v
}

func TestValidateCardType(t *testing.T) {
	v := newValidator(t)

	valid := `{
		"name": "proj/cardTypes/bug",
		"displayName": "Bug",
		"description": "",
		"workflow": "proj/workflows/simple",
		"customFields": [{"name": "proj/fieldTypes/severity"}],
		"alwaysVisibleFields": ["proj/fieldTypes/severity"],
		"optionallyVisibleFields": []
	}`
	if err := v.Validate("#CardType", []byte(valid)); err != nil {
		t.Fatalf("valid card type rejected: %v", err)
	}

	tests := []struct {
		name    string
		content string
		wantIn  string
	}{
		{
			name:    "missing workflow",
			content: `{"name": "proj/cardTypes/bug", "displayName": "", "description": "", "customFields": [], "alwaysVisibleFields": [], "optionallyVisibleFields": []}`,
			wantIn:  "workflow",
		},
		{
			name:    "malformed name",
			content: `{"name": "bug", "displayName": "", "description": "", "workflow": "proj/workflows/simple", "customFields": [], "alwaysVisibleFields": [], "optionallyVisibleFields": []}`,
			wantIn:  "name",
		},
		{
			name:    "unknown property",
			content: `{"name": "proj/cardTypes/bug", "displayName": "", "description": "", "workflow": "proj/workflows/simple", "customFields": [], "alwaysVisibleFields": [], "optionallyVisibleFields": [], "extra": 1}`,
			wantIn:  "extra",
		},
		{
			name:    "custom field with wrong type",
			content: `{"name": "proj/cardTypes/bug", "displayName": "", "description": "", "workflow": "proj/workflows/simple", "customFields": [{"name": 7}], "alwaysVisibleFields": [], "optionallyVisibleFields": []}`,
			wantIn:  "customFields[0].name",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate("#CardType", []byte(tt.content))
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantIn) {
				t.Errorf("error %q does not mention %q", err, tt.wantIn)
			}
		})
	}
}

func TestValidateWorkflow(t *testing.T) {
	v := newValidator(t)

	valid := `{
		"name": "proj/workflows/simple",
		"displayName": "Simple",
		"description": "",
		"states": [
			{"name": "Open", "category": "initial"},
			{"name": "Done", "category": "closed"}
		],
		"transitions": [
			{"name": "Close", "fromState": ["Open"], "toState": "Done"}
		]
	}`
	if err := v.Validate("#Workflow", []byte(valid)); err != nil {
		t.Fatalf("valid workflow rejected: %v", err)
	}

	invalid := `{
		"name": "proj/workflows/simple",
		"displayName": "",
		"description": "",
		"states": [{"name": "Open", "category": "middle"}],
		"transitions": []
	}`
	if err := v.Validate("#Workflow", []byte(invalid)); err == nil {
		t.Fatal("unknown state category should be rejected")
	}
}

func TestValidateFieldType(t *testing.T) {
	v := newValidator(t)

	valid := `{
		"name": "proj/fieldTypes/severity",
		"displayName": "Severity",
		"description": "",
		"dataType": "enum",
		"enumValues": [{"enumValue": "low"}, {"enumValue": "high"}]
	}`
	if err := v.Validate("#FieldType", []byte(valid)); err != nil {
		t.Fatalf("valid field type rejected: %v", err)
	}

	if err := v.Validate("#FieldType", []byte(`{"name": "proj/fieldTypes/severity", "displayName": "", "description": "", "dataType": "blob"}`)); err == nil {
		t.Fatal("unknown dataType should be rejected")
	}
}

func TestValidateUnknownSchema(t *testing.T) {
	v := newValidator(t)
	if err := v.Validate("#Widget", []byte(`{}`)); err == nil {
		t.Fatal("unknown schema id should fail")
	}
}

func TestValidateMalformedJSON(t *testing.T) {
	v := newValidator(t)
	if err := v.Validate("#Template", []byte(`{"name":`)); err == nil {
		t.Fatal("malformed JSON should fail")
	}
}
