// SPDX-License-Identifier: MPL-2.0

package card

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestCardsFindsProjectAndTemplateCards(t *testing.T) {
	root := t.TempDir()
	store := NewStore(root)

	if _, err := store.CreateCard(filepath.Join(root, CardRootDir), "proj_2", map[string]any{
		"cardType": "proj/cardTypes/bug",
	}, "== Second"); err != nil {
		t.Fatalf("CreateCard: %v", err)
	}
	if _, err := store.CreateCard(filepath.Join(root, CardRootDir), "proj_1", map[string]any{
		"cardType": "proj/cardTypes/task",
	}, "== First"); err != nil {
		t.Fatalf("CreateCard: %v", err)
	}
	tplCards := filepath.Join(root, "templates", "sprint", TemplateCardsDir)
	if _, err := store.CreateCard(tplCards, "tpl_1", map[string]any{
		"cardType": "proj/cardTypes/bug",
	}, ""); err != nil {
		t.Fatalf("CreateCard: %v", err)
	}

	cards, err := store.Cards()
	if err != nil {
		t.Fatalf("Cards: %v", err)
	}

	var keys []string
	for _, c := range cards {
		keys = append(keys, c.Key)
	}
	want := []string{"proj_1", "proj_2", "tpl_1"}
	if !reflect.DeepEqual(keys, want) {
		t.Errorf("keys = %v, want %v", keys, want)
	}
}

func TestCardsFindsNestedChildren(t *testing.T) {
	root := t.TempDir()
	store := NewStore(root)

	parent, err := store.CreateCard(filepath.Join(root, CardRootDir), "proj_1", map[string]any{}, "")
	if err != nil {
		t.Fatalf("CreateCard: %v", err)
	}
	if _, err := store.CreateCard(filepath.Join(parent.Path, TemplateCardsDir), "proj_2", map[string]any{}, ""); err != nil {
		t.Fatalf("CreateCard child: %v", err)
	}

	cards, err := store.Cards()
	if err != nil {
		t.Fatalf("Cards: %v", err)
	}
	if len(cards) != 2 {
		t.Fatalf("found %d cards, want 2", len(cards))
	}
}

func TestCardsSkipsNonCardDirectories(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, CardRootDir, "not-a-card"), 0o755); err != nil {
		t.Fatal(err)
	}

	cards, err := NewStore(root).Cards()
	if err != nil {
		t.Fatalf("Cards: %v", err)
	}
	if len(cards) != 0 {
		t.Errorf("found %d cards, want 0", len(cards))
	}
}

func TestUpdateCardMetadata(t *testing.T) {
	root := t.TempDir()
	store := NewStore(root)

	c, err := store.CreateCard(filepath.Join(root, CardRootDir), "proj_1", map[string]any{
		"workflowState": "Open",
	}, "")
	if err != nil {
		t.Fatalf("CreateCard: %v", err)
	}

	if err := store.UpdateCardMetadata(c, map[string]any{"workflowState": "Done"}); err != nil {
		t.Fatalf("UpdateCardMetadata: %v", err)
	}

	cards, err := store.Cards()
	if err != nil {
		t.Fatalf("Cards: %v", err)
	}
	if got := cards[0].Metadata["workflowState"]; got != "Done" {
		t.Errorf("workflowState = %v, want Done", got)
	}
}

func TestKeysReferencing(t *testing.T) {
	cards := []Card{
		{Key: "proj_2", Metadata: map[string]any{"cardType": "proj/cardTypes/bug"}},
		{Key: "proj_1", Content: "see proj/cardTypes/bug for details"},
		{Key: "proj_3", Metadata: map[string]any{"cardType": "proj/cardTypes/task"}},
	}

	got := KeysReferencing(cards, "proj/cardTypes/bug")
	want := []string{"proj_1", "proj_2"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("KeysReferencing = %v, want %v", got, want)
	}

	if refs := KeysReferencing(cards, "proj/cardTypes/story"); refs != nil {
		t.Errorf("expected no references, got %v", refs)
	}
}
