// SPDX-License-Identifier: MPL-2.0

package resname

import "testing"

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    ResourceName
		wantErr bool
	}{
		{
			name:  "card type",
			input: "proj/cardTypes/bug",
			want:  ResourceName{Prefix: "proj", Type: CardTypeType, Identifier: "bug"},
		},
		{
			name:  "workflow with dashes",
			input: "base/workflows/default-flow",
			want:  ResourceName{Prefix: "base", Type: WorkflowType, Identifier: "default-flow"},
		},
		{
			name:    "missing component",
			input:   "proj/cardTypes",
			wantErr: true,
		},
		{
			name:    "too many components",
			input:   "proj/cardTypes/bug/extra",
			wantErr: true,
		},
		{
			name:    "unknown type",
			input:   "proj/gadgets/bug",
			wantErr: true,
		},
		{
			name:    "identifier with path separator is rejected by pattern",
			input:   "proj/cardTypes/..",
			wantErr: true,
		},
		{
			name:    "empty identifier",
			input:   "proj/cardTypes/",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Parse(%q) expected error, got %v", tt.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse(%q) unexpected error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("Parse(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestStringRoundTrip(t *testing.T) {
	inputs := []string{
		"proj/cardTypes/bug",
		"base/fieldTypes/severity",
		"mod/templates/sprint_review",
	}
	for _, in := range inputs {
		n, err := Parse(in)
		if err != nil {
			t.Fatalf("Parse(%q): %v", in, err)
		}
		if n.String() != in {
			t.Errorf("round trip: got %q, want %q", n.String(), in)
		}
	}
}

func TestValidIdentifier(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"bug", true},
		{"bug-2", true},
		{"Bug_Report", true},
		{"9lives", true},
		{"", false},
		{"-leading", false},
		{"_leading", false},
		{"has space", false},
		{"has/slash", false},
		{"has.dot", false},
		{"..", false},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ValidIdentifier(tt.input); got != tt.want {
				t.Errorf("ValidIdentifier(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestResourceTypeIsValid(t *testing.T) {
	for _, typ := range Types {
		if !typ.IsValid() {
			t.Errorf("%s should be valid", typ)
		}
	}
	if ResourceType("cards").IsValid() {
		t.Error("cards should not be a resource type")
	}
}
