// SPDX-License-Identifier: MPL-2.0

package resource

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"cardkit/pkg/resname"
)

func createReport(t *testing.T, deps Deps, id string) *Report {
	t.Helper()
	name, _ := resname.New(testPrefix, resname.ReportType, id)
	r := NewReport(deps, name)
	if err := r.Create(nil); err != nil {
		t.Fatalf("create report %s: %v", id, err)
	}
	return r
}

func TestFolderCreateLayout(t *testing.T) {
	deps := newTestDeps(t)
	createReport(t, deps, "monthly")

	meta := filepath.Join(deps.Root, "reports", "monthly", "monthly.json")
	if _, err := os.Stat(meta); err != nil {
		t.Fatalf("metadata missing: %v", err)
	}
	if _, err := os.Stat(filepath.Join(deps.Root, "reports", ".schema")); err != nil {
		t.Fatalf("schema descriptor missing: %v", err)
	}
}

func TestContentFileRoundTrip(t *testing.T) {
	deps := newTestDeps(t)
	r := createReport(t, deps, "monthly")

	input := map[string]string{
		"query":    "result(X) :- card(X).\n",
		"template": "= Monthly report\n",
	}
	if err := r.UpdateContentFiles(input); err != nil {
		t.Fatalf("UpdateContentFiles: %v", err)
	}

	names, err := r.ShowFileNames()
	if err != nil {
		t.Fatalf("ShowFileNames: %v", err)
	}
	want := []string{"index.adoc.hbs", "query.lp"}
	if len(names) != len(want) || names[0] != want[0] || names[1] != want[1] {
		t.Fatalf("file names = %v", names)
	}

	data, err := r.ContentData()
	if err != nil {
		t.Fatalf("ContentData: %v", err)
	}
	for property, content := range input {
		if data[property] != content {
			t.Fatalf("property %s = %q", property, data[property])
		}
	}
}

func TestUpdateFileRejectsUnsafeNames(t *testing.T) {
	deps := newTestDeps(t)
	r := createReport(t, deps, "monthly")

	for _, fileName := range []string{"../evil.lp", "sub/query.lp", "/etc/query.lp"} {
		if err := r.UpdateFile(fileName, []byte("x")); err == nil {
			t.Fatalf("filename %q should be rejected", fileName)
		}
	}
}

func TestUpdateFileRejectsUnlistedNames(t *testing.T) {
	deps := newTestDeps(t)
	r := createReport(t, deps, "monthly")

	err := r.UpdateFile("notes.txt", []byte("x"))
	if err == nil || !strings.Contains(err.Error(), "not a valid content file") {
		t.Fatalf("expected allow-list rejection, got %v", err)
	}
}

func TestUnknownContentPropertyFailsBeforeWriting(t *testing.T) {
	deps := newTestDeps(t)
	r := createReport(t, deps, "monthly")

	err := r.UpdateContentFiles(map[string]string{"bogus": "x", "query": "q"})
	if err == nil || !strings.Contains(err.Error(), "unknown content property 'bogus'") {
		t.Fatalf("expected unknown property error, got %v", err)
	}
	if _, statErr := os.Stat(filepath.Join(deps.Root, "reports", "monthly", "query.lp")); !os.IsNotExist(statErr) {
		t.Fatal("no file may be written when any property is unknown")
	}
}

func TestFolderRenameMovesMetadataAndContent(t *testing.T) {
	deps := newTestDeps(t)
	r := createReport(t, deps, "monthly")
	if err := r.UpdateFile("query.lp", []byte("result(X).\n")); err != nil {
		t.Fatal(err)
	}

	if err := r.Rename(mustName(t, "proj/reports/quarterly")); err != nil {
		t.Fatalf("Rename: %v", err)
	}

	base := filepath.Join(deps.Root, "reports", "quarterly")
	if _, err := os.Stat(filepath.Join(base, "quarterly.json")); err != nil {
		t.Fatalf("renamed metadata missing: %v", err)
	}
	if _, err := os.Stat(filepath.Join(base, "query.lp")); err != nil {
		t.Fatalf("content file lost in rename: %v", err)
	}
	if _, err := os.Stat(filepath.Join(deps.Root, "reports", "monthly")); !os.IsNotExist(err) {
		t.Fatal("old folder should be gone")
	}
}

func TestFolderDeleteRemovesTree(t *testing.T) {
	deps := newTestDeps(t)
	r := createReport(t, deps, "monthly")
	if err := r.UpdateFile("query.lp", []byte("result(X).\n")); err != nil {
		t.Fatal(err)
	}

	if err := r.Delete(); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := os.Stat(filepath.Join(deps.Root, "reports", "monthly")); !os.IsNotExist(err) {
		t.Fatal("report folder should be removed")
	}
}

func TestGraphModelRenameRewritesViews(t *testing.T) {
	deps := newTestDeps(t)

	modelName, _ := resname.New(testPrefix, resname.GraphModelType, "metrics")
	model := NewGraphModel(deps, modelName)
	if err := model.Create(nil); err != nil {
		t.Fatal(err)
	}

	viewName, _ := resname.New(testPrefix, resname.GraphViewType, "burnup")
	view := NewGraphView(deps, viewName)
	if err := view.Create(nil); err != nil {
		t.Fatal(err)
	}
	if err := view.UpdateFile("view.lp.hbs", []byte("show(proj/graphModels/metrics).\n")); err != nil {
		t.Fatal(err)
	}

	if err := model.Rename(mustName(t, "proj/graphModels/velocity")); err != nil {
		t.Fatalf("Rename: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(deps.Root, "graphViews", "burnup", "view.lp.hbs"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "proj/graphModels/velocity") {
		t.Fatalf("view program not rewritten: %s", data)
	}
}

func TestGraphModelDeleteBlockedByView(t *testing.T) {
	deps := newTestDeps(t)

	modelName, _ := resname.New(testPrefix, resname.GraphModelType, "metrics")
	model := NewGraphModel(deps, modelName)
	if err := model.Create(nil); err != nil {
		t.Fatal(err)
	}

	viewName, _ := resname.New(testPrefix, resname.GraphViewType, "burnup")
	view := NewGraphView(deps, viewName)
	if err := view.Create(nil); err != nil {
		t.Fatal(err)
	}
	if err := view.UpdateFile("view.lp.hbs", []byte("show(proj/graphModels/metrics).\n")); err != nil {
		t.Fatal(err)
	}

	err := model.Delete()
	if err == nil || !strings.Contains(err.Error(), "proj/graphViews/burnup") {
		t.Fatalf("expected view-blocked delete, got %v", err)
	}
}

func TestCalculationRenameRewritesOtherPrograms(t *testing.T) {
	deps := newTestDeps(t)

	baseName, _ := resname.New(testPrefix, resname.CalculationType, "velocity")
	base := NewCalculation(deps, baseName)
	if err := base.Create(nil); err != nil {
		t.Fatal(err)
	}

	otherName, _ := resname.New(testPrefix, resname.CalculationType, "summary")
	other := NewCalculation(deps, otherName)
	if err := other.Create(nil); err != nil {
		t.Fatal(err)
	}
	if err := other.UpdateFile("calculation.lp", []byte("uses(proj/calculations/velocity).\n")); err != nil {
		t.Fatal(err)
	}

	if err := base.Rename(mustName(t, "proj/calculations/throughput")); err != nil {
		t.Fatalf("Rename: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(deps.Root, "calculations", "summary", "calculation.lp"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "proj/calculations/throughput") {
		t.Fatalf("calculation program not rewritten: %s", data)
	}
}

func TestCalculationSelfReferenceDoesNotBlockDelete(t *testing.T) {
	deps := newTestDeps(t)

	name, _ := resname.New(testPrefix, resname.CalculationType, "velocity")
	calc := NewCalculation(deps, name)
	if err := calc.Create(nil); err != nil {
		t.Fatal(err)
	}
	if err := calc.UpdateFile("calculation.lp", []byte("self(proj/calculations/velocity).\n")); err != nil {
		t.Fatal(err)
	}

	if err := calc.Delete(); err != nil {
		t.Fatalf("Delete: %v", err)
	}
}
