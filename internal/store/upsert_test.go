package store

import (
	"context"
	"encoding/json"
	"testing"
)

func TestUpsertSystemPattern_PreservesCreationTimestamp(t *testing.T) {
	ws := testWorkspace(t)
	ctx := context.Background()

	first, err := ws.UpsertSystemPattern(ctx, "cqrs", "split reads from writes", nil)
	if err != nil {
		t.Fatal(err)
	}
	advance()

	second, err := ws.UpsertSystemPattern(ctx, "cqrs", "split reads from writes, async projection", []string{"architecture"})
	if err != nil {
		t.Fatal(err)
	}

	if second.ID != first.ID {
		t.Errorf("expected upsert to reuse row %d, got %d", first.ID, second.ID)
	}
	if !second.TimestampCreated.Equal(first.TimestampCreated) {
		t.Errorf("creation timestamp changed: %v -> %v", first.TimestampCreated, second.TimestampCreated)
	}
	if !second.TimestampUpdated.After(first.TimestampUpdated) {
		t.Errorf("update timestamp did not advance: %v -> %v", first.TimestampUpdated, second.TimestampUpdated)
	}

	stored, err := ws.GetSystemPattern(ctx, first.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.Description != "split reads from writes, async projection" {
		t.Errorf("description not replaced: %q", stored.Description)
	}
	if len(stored.Tags) != 1 || stored.Tags[0] != "architecture" {
		t.Errorf("tags not replaced: %v", stored.Tags)
	}
}

func TestGetSystemPatterns_RecentlyUpdatedFirst(t *testing.T) {
	ws := testWorkspace(t)
	ctx := context.Background()

	if _, err := ws.UpsertSystemPattern(ctx, "saga", "distributed tx", nil); err != nil {
		t.Fatal(err)
	}
	advance()
	if _, err := ws.UpsertSystemPattern(ctx, "repository", "data access", nil); err != nil {
		t.Fatal(err)
	}
	advance()
	if _, err := ws.UpsertSystemPattern(ctx, "saga", "distributed tx with compensation", nil); err != nil {
		t.Fatal(err)
	}

	patterns, err := ws.GetSystemPatterns(ctx, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(patterns) != 2 {
		t.Fatalf("expected 2 patterns, got %d", len(patterns))
	}
	if patterns[0].Name != "saga" || patterns[1].Name != "repository" {
		t.Errorf("expected most recently updated first, got %q then %q", patterns[0].Name, patterns[1].Name)
	}
}

func TestUpsertCustomData_PreservesCreationTimestamp(t *testing.T) {
	ws := testWorkspace(t)
	ctx := context.Background()

	first, err := ws.UpsertCustomData(ctx, "glossary", "wal", json.RawMessage(`"write-ahead log"`), nil)
	if err != nil {
		t.Fatal(err)
	}
	advance()

	second, err := ws.UpsertCustomData(ctx, "glossary", "wal", json.RawMessage(`{"expansion":"write-ahead log"}`), nil)
	if err != nil {
		t.Fatal(err)
	}

	if second.ID != first.ID {
		t.Errorf("expected upsert to reuse row %d, got %d", first.ID, second.ID)
	}
	if !second.TimestampCreated.Equal(first.TimestampCreated) {
		t.Errorf("creation timestamp changed: %v -> %v", first.TimestampCreated, second.TimestampCreated)
	}
	if !second.TimestampUpdated.After(first.TimestampUpdated) {
		t.Errorf("update timestamp did not advance: %v -> %v", first.TimestampUpdated, second.TimestampUpdated)
	}

	stored, err := ws.GetCustomData(ctx, "glossary", "wal")
	if err != nil {
		t.Fatal(err)
	}
	var value map[string]string
	if err := json.Unmarshal(stored.Value, &value); err != nil {
		t.Fatal(err)
	}
	if value["expansion"] != "write-ahead log" {
		t.Errorf("value not replaced: %s", stored.Value)
	}
}

func TestUpsertCustomData_ReplacesTags(t *testing.T) {
	ws := testWorkspace(t)
	ctx := context.Background()

	if _, err := ws.UpsertCustomData(ctx, "glossary", "wal", json.RawMessage(`"v1"`), []string{"sqlite"}); err != nil {
		t.Fatal(err)
	}
	stored, err := ws.GetCustomData(ctx, "glossary", "wal")
	if err != nil {
		t.Fatal(err)
	}
	if len(stored.Tags) != 1 || stored.Tags[0] != "sqlite" {
		t.Errorf("tags not stored: %v", stored.Tags)
	}

	if _, err := ws.UpsertCustomData(ctx, "glossary", "wal", json.RawMessage(`"v2"`), nil); err != nil {
		t.Fatal(err)
	}
	stored, err = ws.GetCustomData(ctx, "glossary", "wal")
	if err != nil {
		t.Fatal(err)
	}
	if stored.Tags != nil {
		t.Errorf("upsert without tags must clear them, got %v", stored.Tags)
	}
}

func TestUpsertCustomData_SameKeyDifferentCategory(t *testing.T) {
	ws := testWorkspace(t)
	ctx := context.Background()

	if _, err := ws.UpsertCustomData(ctx, "glossary", "tag", json.RawMessage(`"a label"`), nil); err != nil {
		t.Fatal(err)
	}
	if _, err := ws.UpsertCustomData(ctx, "config", "tag", json.RawMessage(`"v2.1"`), nil); err != nil {
		t.Fatal(err)
	}

	items, err := ws.ListCustomData(ctx, "", nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 2 {
		t.Errorf("expected two rows across categories, got %d", len(items))
	}
}

func TestUpsertCustomData_RejectsInvalidJSON(t *testing.T) {
	ws := testWorkspace(t)

	if _, err := ws.UpsertCustomData(context.Background(), "glossary", "bad", json.RawMessage(`{broken`), nil); err == nil {
		t.Fatal("expected validation error for invalid JSON value")
	}
}

func TestDeleteCustomData(t *testing.T) {
	ws := testWorkspace(t)
	ctx := context.Background()

	if _, err := ws.UpsertCustomData(ctx, "glossary", "wal", json.RawMessage(`"write-ahead log"`), nil); err != nil {
		t.Fatal(err)
	}
	if err := ws.DeleteCustomData(ctx, "glossary", "wal"); err != nil {
		t.Fatal(err)
	}
	if err := ws.DeleteCustomData(ctx, "glossary", "wal"); err == nil {
		t.Fatal("expected not-found on second delete")
	}
}
