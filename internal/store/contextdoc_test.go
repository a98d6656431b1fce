package store

import (
	"context"
	"testing"
)

func TestContext_FreshWorkspaceIsEmpty(t *testing.T) {
	ws := testWorkspace(t)

	content, err := ws.GetContext(context.Background(), ProductContext)
	if err != nil {
		t.Fatal(err)
	}
	if len(content) != 0 {
		t.Errorf("expected empty product context, got %v", content)
	}
}

func TestContext_FirstWriteLogsNoHistory(t *testing.T) {
	ws := testWorkspace(t)
	ctx := context.Background()

	if _, err := ws.SetContext(ctx, ProductContext, map[string]any{"goal": "ship v1"}); err != nil {
		t.Fatal(err)
	}

	history, err := ws.GetContextHistory(ctx, ProductContext, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != 0 {
		t.Errorf("first write over empty content must not version, got %d entries", len(history))
	}
}

func TestContext_HistoryHoldsPriorState(t *testing.T) {
	ws := testWorkspace(t)
	ctx := context.Background()

	if _, err := ws.SetContext(ctx, ActiveContext, map[string]any{"focus": "parser"}); err != nil {
		t.Fatal(err)
	}
	if _, err := ws.SetContext(ctx, ActiveContext, map[string]any{"focus": "emitter"}); err != nil {
		t.Fatal(err)
	}

	history, err := ws.GetContextHistory(ctx, ActiveContext, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != 1 {
		t.Fatalf("two writes must produce exactly one history entry, got %d", len(history))
	}
	if history[0].Version != 1 {
		t.Errorf("expected version 1, got %d", history[0].Version)
	}
	if history[0].Content["focus"] != "parser" {
		t.Errorf("history must hold the prior state, got %v", history[0].Content)
	}
}

func TestContext_HistoryVersionsAscend(t *testing.T) {
	ws := testWorkspace(t)
	ctx := context.Background()

	for _, focus := range []string{"a", "b", "c", "d"} {
		if _, err := ws.SetContext(ctx, ActiveContext, map[string]any{"focus": focus}); err != nil {
			t.Fatal(err)
		}
	}

	history, err := ws.GetContextHistory(ctx, ActiveContext, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != 3 {
		t.Fatalf("expected 3 history entries, got %d", len(history))
	}
	// Newest first.
	for i, want := range []int64{3, 2, 1} {
		if history[i].Version != want {
			t.Errorf("entry %d: expected version %d, got %d", i, want, history[i].Version)
		}
	}
	if history[0].Content["focus"] != "c" {
		t.Errorf("newest entry must hold the most recent prior state, got %v", history[0].Content)
	}
}

func TestContext_PatchMergesAndDeletes(t *testing.T) {
	ws := testWorkspace(t)
	ctx := context.Background()

	if _, err := ws.SetContext(ctx, ProductContext, map[string]any{
		"goal":     "ship v1",
		"obsolete": "remove me",
	}); err != nil {
		t.Fatal(err)
	}

	merged, err := ws.PatchContext(ctx, ProductContext, map[string]any{
		"obsolete": DeleteSentinel,
		"owner":    "core team",
	})
	if err != nil {
		t.Fatal(err)
	}

	if merged["goal"] != "ship v1" {
		t.Errorf("patch must keep untouched keys, got %v", merged)
	}
	if _, ok := merged["obsolete"]; ok {
		t.Errorf("delete sentinel must remove the key, got %v", merged)
	}
	if merged["owner"] != "core team" {
		t.Errorf("patch must add new keys, got %v", merged)
	}

	stored, err := ws.GetContext(ctx, ProductContext)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := stored["obsolete"]; ok {
		t.Errorf("deleted key persisted: %v", stored)
	}
}

func TestContext_PatchRejectsEmpty(t *testing.T) {
	ws := testWorkspace(t)

	if _, err := ws.PatchContext(context.Background(), ProductContext, map[string]any{}); err == nil {
		t.Fatal("expected validation error for empty patch")
	}
}

func TestContext_KindsAreIndependent(t *testing.T) {
	ws := testWorkspace(t)
	ctx := context.Background()

	if _, err := ws.SetContext(ctx, ProductContext, map[string]any{"goal": "ship"}); err != nil {
		t.Fatal(err)
	}

	active, err := ws.GetContext(ctx, ActiveContext)
	if err != nil {
		t.Fatal(err)
	}
	if len(active) != 0 {
		t.Errorf("active context must stay empty, got %v", active)
	}
}
