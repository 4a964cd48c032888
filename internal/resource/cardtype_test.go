// SPDX-License-Identifier: MPL-2.0

package resource

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"cardkit/pkg/ops"
	"cardkit/pkg/resname"
)

func TestCardTypeCustomFieldsAndVisibility(t *testing.T) {
	deps := newTestDeps(t)
	createWorkflow(t, deps, "bug-flow", "Open", "Closed")
	ct := createCardType(t, deps, "bug", "proj/workflows/bug-flow")

	if err := ct.Update("customFields", addOp(`{"name": "proj/fieldTypes/severity"}`)); err != nil {
		t.Fatalf("add custom field: %v", err)
	}
	if err := ct.Update("alwaysVisibleFields", addOp(`"proj/fieldTypes/severity"`)); err != nil {
		t.Fatalf("add visible field: %v", err)
	}

	err := ct.Update("optionallyVisibleFields", addOp(`"proj/fieldTypes/priority"`))
	if err == nil || !strings.Contains(err.Error(),
		"field 'proj/fieldTypes/priority' is not defined in card type 'proj/cardTypes/bug'") {
		t.Fatalf("expected undefined field rejection, got %v", err)
	}

	content, loadErr := ct.Load()
	if loadErr != nil {
		t.Fatal(loadErr)
	}
	if len(content.CustomFields) != 1 || content.CustomFields[0].Name != "proj/fieldTypes/severity" {
		t.Fatalf("customFields = %+v", content.CustomFields)
	}
	if len(content.AlwaysVisibleFields) != 1 {
		t.Fatalf("alwaysVisibleFields = %v", content.AlwaysVisibleFields)
	}
}

func TestCardTypeUsageCoversCardsLinkTypesAndCalculations(t *testing.T) {
	deps := newTestDeps(t)
	createWorkflow(t, deps, "bug-flow", "Open")
	ct := createCardType(t, deps, "bug", "proj/workflows/bug-flow")

	createProjectCard(t, deps, "PROJ-7", map[string]any{"cardType": "proj/cardTypes/bug"})

	ltName, _ := resname.New(testPrefix, resname.LinkTypeType, "blocks")
	lt := NewLinkType(deps, ltName)
	if err := lt.Create(json.RawMessage(`{"sourceCardTypes": ["proj/cardTypes/bug"]}`)); err != nil {
		t.Fatalf("create link type: %v", err)
	}

	calcName, _ := resname.New(testPrefix, resname.CalculationType, "open-bugs")
	calc := NewCalculation(deps, calcName)
	if err := calc.Create(nil); err != nil {
		t.Fatal(err)
	}
	if err := calc.UpdateFile("calculation.lp", []byte("count(X) :- card(X, proj/cardTypes/bug).\n")); err != nil {
		t.Fatal(err)
	}

	using, err := ct.Usage(nil)
	if err != nil {
		t.Fatalf("Usage: %v", err)
	}
	joined := strings.Join(using, ", ")
	for _, want := range []string{"PROJ-7", "proj/linkTypes/blocks", "calculations/open-bugs/calculation.lp"} {
		if !strings.Contains(joined, want) {
			t.Fatalf("usage %q missing %q", joined, want)
		}
	}

	if err := ct.Delete(); err == nil || !strings.Contains(err.Error(), "cannot delete resource 'proj/cardTypes/bug', it is in use by:") {
		t.Fatalf("expected usage-blocked delete, got %v", err)
	}
}

func TestCardTypeRenameCascades(t *testing.T) {
	deps := newTestDeps(t)
	createWorkflow(t, deps, "bug-flow", "Open")
	ct := createCardType(t, deps, "bug", "proj/workflows/bug-flow")

	createProjectCard(t, deps, "PROJ-7", map[string]any{"cardType": "proj/cardTypes/bug"})

	ltName, _ := resname.New(testPrefix, resname.LinkTypeType, "blocks")
	lt := NewLinkType(deps, ltName)
	if err := lt.Create(json.RawMessage(`{"sourceCardTypes": ["proj/cardTypes/bug"], "destinationCardTypes": ["proj/cardTypes/bug"]}`)); err != nil {
		t.Fatal(err)
	}

	calcName, _ := resname.New(testPrefix, resname.CalculationType, "open-bugs")
	calc := NewCalculation(deps, calcName)
	if err := calc.Create(nil); err != nil {
		t.Fatal(err)
	}
	if err := calc.UpdateFile("calculation.lp", []byte("count(X) :- card(X, proj/cardTypes/bug).\n")); err != nil {
		t.Fatal(err)
	}

	report := createReport(t, deps, "bug-report")
	if err := report.UpdateFile("index.adoc.hbs", []byte("list of proj/cardTypes/bug\n")); err != nil {
		t.Fatal(err)
	}

	if err := ct.Rename(mustName(t, "proj/cardTypes/defect")); err != nil {
		t.Fatalf("Rename: %v", err)
	}

	ltContent, err := NewLinkType(deps, ltName).Load()
	if err != nil {
		t.Fatal(err)
	}
	if ltContent.SourceCardTypes[0] != "proj/cardTypes/defect" || ltContent.DestinationCardTypes[0] != "proj/cardTypes/defect" {
		t.Fatalf("link type not rewritten: %+v", ltContent)
	}

	calcData, err := os.ReadFile(filepath.Join(deps.Root, "calculations", "open-bugs", "calculation.lp"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(calcData), "proj/cardTypes/defect") {
		t.Fatalf("calculation not rewritten: %s", calcData)
	}

	reportData, err := os.ReadFile(filepath.Join(deps.Root, "reports", "bug-report", "index.adoc.hbs"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(reportData), "proj/cardTypes/defect") {
		t.Fatalf("report template not rewritten: %s", reportData)
	}

	// Cards keep their stored card type reference; only resources cascade.
	cards, err := deps.Cards.ProjectCards()
	if err != nil {
		t.Fatal(err)
	}
	if cards[0].Metadata["cardType"] != "proj/cardTypes/bug" {
		t.Fatalf("card metadata changed: %v", cards[0].Metadata)
	}
}

func TestWorkflowSwapRemapsCardStates(t *testing.T) {
	deps := newTestDeps(t)
	createWorkflow(t, deps, "bug-flow", "Open", "Closed")
	createWorkflow(t, deps, "task-flow", "New", "Done")
	ct := createCardType(t, deps, "bug", "proj/workflows/bug-flow")

	createProjectCard(t, deps, "PROJ-1", map[string]any{
		"cardType":      "proj/cardTypes/bug",
		"workflowState": "Open",
	})
	createProjectCard(t, deps, "PROJ-2", map[string]any{
		"cardType":      "proj/cardTypes/bug",
		"workflowState": "Closed",
	})

	op := ops.Operation{
		Kind:         ops.Change,
		To:           json.RawMessage(`"proj/workflows/task-flow"`),
		MappingTable: map[string]string{"Open": "New", "Closed": "Done"},
	}
	if err := ct.Update("workflow", op); err != nil {
		t.Fatalf("workflow swap: %v", err)
	}

	cards, err := deps.Cards.ProjectCards()
	if err != nil {
		t.Fatal(err)
	}
	states := map[string]string{}
	for _, c := range cards {
		states[c.Key], _ = c.Metadata["workflowState"].(string)
	}
	if states["PROJ-1"] != "New" || states["PROJ-2"] != "Done" {
		t.Fatalf("states = %v", states)
	}
}

func TestWorkflowSwapMissingMappingFails(t *testing.T) {
	deps := newTestDeps(t)
	createWorkflow(t, deps, "bug-flow", "Open", "Closed")
	createWorkflow(t, deps, "task-flow", "New")
	ct := createCardType(t, deps, "bug", "proj/workflows/bug-flow")

	createProjectCard(t, deps, "PROJ-1", map[string]any{
		"cardType":      "proj/cardTypes/bug",
		"workflowState": "Closed",
	})

	op := ops.Operation{
		Kind:         ops.Change,
		To:           json.RawMessage(`"proj/workflows/task-flow"`),
		MappingTable: map[string]string{"Open": "New"},
	}
	err := ct.Update("workflow", op)
	if err == nil || !strings.Contains(err.Error(), "workflow state 'Closed' of card PROJ-1 has no mapping") {
		t.Fatalf("expected missing mapping error, got %v", err)
	}
}

func TestCardTypeMigrateIsIdempotent(t *testing.T) {
	deps := newTestDeps(t)
	createWorkflow(t, deps, "bug-flow", "Open")
	ct := createCardType(t, deps, "bug", "proj/workflows/bug-flow")

	op := addOp(`{"name": "proj/fieldTypes/severity"}`)
	if err := ct.Migrate("customFields", op); err != nil {
		t.Fatalf("first migrate: %v", err)
	}
	if err := ct.Migrate("customFields", op); err != nil {
		t.Fatalf("second migrate should be a no-op: %v", err)
	}

	content, err := ct.Load()
	if err != nil {
		t.Fatal(err)
	}
	if len(content.CustomFields) != 1 {
		t.Fatalf("customFields = %+v", content.CustomFields)
	}
}

func TestWorkflowRenameRewritesCardTypes(t *testing.T) {
	deps := newTestDeps(t)
	wf := createWorkflow(t, deps, "bug-flow", "Open")
	createCardType(t, deps, "bug", "proj/workflows/bug-flow")

	if err := wf.Rename(mustName(t, "proj/workflows/defect-flow")); err != nil {
		t.Fatalf("Rename: %v", err)
	}

	instance, err := deps.Registry.ByName(mustName(t, "proj/cardTypes/bug"))
	if err != nil {
		t.Fatal(err)
	}
	content, err := instance.(*CardType).Load()
	if err != nil {
		t.Fatal(err)
	}
	if content.Workflow != "proj/workflows/defect-flow" {
		t.Fatalf("card type workflow = %s", content.Workflow)
	}
}

func TestFieldTypeRenameRewritesCardTypeReferences(t *testing.T) {
	deps := newTestDeps(t)
	createWorkflow(t, deps, "bug-flow", "Open")
	ct := createCardType(t, deps, "bug", "proj/workflows/bug-flow")

	ftName, _ := resname.New(testPrefix, resname.FieldTypeType, "severity")
	ft := NewFieldType(deps, ftName)
	if err := ft.Create(nil); err != nil {
		t.Fatal(err)
	}
	if err := ct.Update("customFields", addOp(`{"name": "proj/fieldTypes/severity"}`)); err != nil {
		t.Fatal(err)
	}
	if err := ct.Update("alwaysVisibleFields", addOp(`"proj/fieldTypes/severity"`)); err != nil {
		t.Fatal(err)
	}

	if err := ft.Rename(mustName(t, "proj/fieldTypes/impact")); err != nil {
		t.Fatalf("Rename: %v", err)
	}

	content, err := NewCardType(deps, ct.Name()).Load()
	if err != nil {
		t.Fatal(err)
	}
	if content.CustomFields[0].Name != "proj/fieldTypes/impact" {
		t.Fatalf("customFields = %+v", content.CustomFields)
	}
	if content.AlwaysVisibleFields[0] != "proj/fieldTypes/impact" {
		t.Fatalf("alwaysVisibleFields = %v", content.AlwaysVisibleFields)
	}
}

func TestFieldTypeDeleteBlockedByCardType(t *testing.T) {
	deps := newTestDeps(t)
	createWorkflow(t, deps, "bug-flow", "Open")
	ct := createCardType(t, deps, "bug", "proj/workflows/bug-flow")

	ftName, _ := resname.New(testPrefix, resname.FieldTypeType, "severity")
	ft := NewFieldType(deps, ftName)
	if err := ft.Create(nil); err != nil {
		t.Fatal(err)
	}
	if err := ct.Update("customFields", addOp(`{"name": "proj/fieldTypes/severity"}`)); err != nil {
		t.Fatal(err)
	}

	err := ft.Delete()
	if err == nil || !strings.Contains(err.Error(), "proj/cardTypes/bug") {
		t.Fatalf("expected card-type-blocked delete, got %v", err)
	}
}

func TestWorkflowDeleteBlockedByCardType(t *testing.T) {
	deps := newTestDeps(t)
	wf := createWorkflow(t, deps, "bug-flow", "Open")
	createCardType(t, deps, "bug", "proj/workflows/bug-flow")

	err := wf.Delete()
	if err == nil || !strings.Contains(err.Error(), "proj/cardTypes/bug") {
		t.Fatalf("expected card-type-blocked delete, got %v", err)
	}
}
