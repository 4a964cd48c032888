// SPDX-License-Identifier: MPL-2.0

package resource

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/log"

	"cardkit/internal/card"
	"cardkit/internal/registry"
	"cardkit/pkg/ops"
	"cardkit/pkg/resname"
	"cardkit/pkg/schema"
)

const testPrefix = "proj"

func newTestDeps(t *testing.T) Deps {
	t.Helper()
	root := t.TempDir()
	validator, err := schema.NewValidator()
	if err != nil {
		t.Fatalf("NewValidator: %v", err)
	}
	logger := log.New(io.Discard)
	deps := Deps{
		Root:      root,
		Prefix:    testPrefix,
		Validator: validator,
		Cards:     card.NewStore(root),
		Audit:     logger,
	}
	deps.Registry = registry.New(root, testPrefix, func(name resname.ResourceName) (registry.Instance, error) {
		return New(deps, name)
	}, logger)
	return deps
}

func mustName(t *testing.T, s string) resname.ResourceName {
	t.Helper()
	name, err := resname.Parse(s)
	if err != nil {
		t.Fatalf("Parse(%q): %v", s, err)
	}
	return name
}

func changeOp(to string) ops.Operation {
	return ops.Operation{Kind: ops.Change, To: json.RawMessage(to)}
}

func addOp(target string) ops.Operation {
	return ops.Operation{Kind: ops.Add, Target: json.RawMessage(target)}
}

func removeOp(target string) ops.Operation {
	return ops.Operation{Kind: ops.Remove, Target: json.RawMessage(target)}
}

func createWorkflow(t *testing.T, deps Deps, id string, states ...string) *Workflow {
	t.Helper()
	name, _ := resname.New(testPrefix, resname.WorkflowType, id)
	wf := NewWorkflow(deps, name)
	content := WorkflowContent{States: []WorkflowState{}, Transitions: []WorkflowTransition{}}
	content.Name = name.String()
	for _, state := range states {
		content.States = append(content.States, WorkflowState{Name: state})
	}
	raw, err := json.Marshal(content)
	if err != nil {
		t.Fatalf("marshal workflow content: %v", err)
	}
	if err := wf.Create(raw); err != nil {
		t.Fatalf("create workflow %s: %v", id, err)
	}
	return wf
}

func createCardType(t *testing.T, deps Deps, id, workflowRef string) *CardType {
	t.Helper()
	name, _ := resname.New(testPrefix, resname.CardTypeType, id)
	ct := NewCardType(deps, name)
	raw := json.RawMessage(fmt.Sprintf(`{"workflow": %q}`, workflowRef))
	if err := ct.Create(raw); err != nil {
		t.Fatalf("create card type %s: %v", id, err)
	}
	return ct
}

func createProjectCard(t *testing.T, deps Deps, key string, metadata map[string]any) card.Card {
	t.Helper()
	c, err := deps.Cards.CreateCard(filepath.Join(deps.Root, card.CardRootDir), key, metadata, "")
	if err != nil {
		t.Fatalf("create card %s: %v", key, err)
	}
	return c
}

// seedModuleResource writes a resource file directly under the modules tree
// and registers it, bypassing Create's prefix check.
func seedModuleResource(t *testing.T, deps Deps, module string, typ resname.ResourceType, id string, content string) resname.ResourceName {
	t.Helper()
	name := resname.ResourceName{Prefix: module, Type: typ, Identifier: id}
	dir := filepath.Join(deps.Root, registry.ModulesDir, module, string(typ))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir module dir: %v", err)
	}
	path := filepath.Join(dir, id+".json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write module resource: %v", err)
	}
	deps.Registry.Add(registry.Entry{Name: name, Path: path, Source: registry.SourceModule})
	return name
}
