package store

import (
	"context"
	"errors"
	"testing"

	bankerrors "github.com/membank-oss/membank/internal/errors"
)

func TestProgress_AddAndGet(t *testing.T) {
	ws := testWorkspace(t)
	ctx := context.Background()

	entry, err := ws.AddProgress(ctx, "TODO", "write the parser", nil)
	if err != nil {
		t.Fatal(err)
	}

	got, err := ws.GetProgress(ctx, entry.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != "TODO" || got.Description != "write the parser" {
		t.Errorf("unexpected entry: %+v", got)
	}
	if got.ParentID != nil {
		t.Errorf("expected no parent, got %v", *got.ParentID)
	}
}

func TestProgress_ParentMustExist(t *testing.T) {
	ws := testWorkspace(t)
	missing := int64(999)

	_, err := ws.AddProgress(context.Background(), "TODO", "orphan", &missing)
	if err == nil {
		t.Fatal("expected error for missing parent")
	}
	var be *bankerrors.BankError
	if !errors.As(err, &be) || be.Code != bankerrors.CodeNotFound {
		t.Errorf("expected not-found, got %v", err)
	}
}

func TestProgress_PartialUpdate(t *testing.T) {
	ws := testWorkspace(t)
	ctx := context.Background()

	entry, err := ws.AddProgress(ctx, "TODO", "write the parser", nil)
	if err != nil {
		t.Fatal(err)
	}
	advance()

	status := "DONE"
	updated, err := ws.UpdateProgress(ctx, entry.ID, ProgressUpdate{Status: &status})
	if err != nil {
		t.Fatal(err)
	}

	if updated.Status != "DONE" {
		t.Errorf("status not updated: %q", updated.Status)
	}
	if updated.Description != "write the parser" {
		t.Errorf("description must survive a partial update: %q", updated.Description)
	}
	if !updated.TimestampCreated.Equal(entry.TimestampCreated) {
		t.Errorf("creation timestamp changed: %v -> %v", entry.TimestampCreated, updated.TimestampCreated)
	}
	if !updated.TimestampUpdated.After(entry.TimestampUpdated) {
		t.Errorf("update timestamp did not advance")
	}
}

func TestProgress_UpdateRequiresFields(t *testing.T) {
	ws := testWorkspace(t)
	ctx := context.Background()

	entry, err := ws.AddProgress(ctx, "TODO", "task", nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := ws.UpdateProgress(ctx, entry.ID, ProgressUpdate{}); err == nil {
		t.Fatal("expected validation error for empty update")
	}
}

func TestProgress_SelfParentRejected(t *testing.T) {
	ws := testWorkspace(t)
	ctx := context.Background()

	entry, err := ws.AddProgress(ctx, "TODO", "task", nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := ws.UpdateProgress(ctx, entry.ID, ProgressUpdate{ParentID: &entry.ID}); err == nil {
		t.Fatal("expected validation error for self-parenting")
	}
}

func TestProgress_FilterByStatusAndParent(t *testing.T) {
	ws := testWorkspace(t)
	ctx := context.Background()

	parent, err := ws.AddProgress(ctx, "IN_PROGRESS", "epic", nil)
	if err != nil {
		t.Fatal(err)
	}
	advance()
	if _, err := ws.AddProgress(ctx, "TODO", "subtask a", &parent.ID); err != nil {
		t.Fatal(err)
	}
	advance()
	if _, err := ws.AddProgress(ctx, "DONE", "subtask b", &parent.ID); err != nil {
		t.Fatal(err)
	}

	todo, err := ws.GetProgressEntries(ctx, 0, "TODO", nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(todo) != 1 || todo[0].Description != "subtask a" {
		t.Errorf("unexpected TODO entries: %+v", todo)
	}

	children, err := ws.GetProgressEntries(ctx, 0, "", &parent.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(children) != 2 {
		t.Errorf("expected 2 children, got %d", len(children))
	}
}

func TestProgress_DeleteClearsChildParent(t *testing.T) {
	ws := testWorkspace(t)
	ctx := context.Background()

	parent, err := ws.AddProgress(ctx, "IN_PROGRESS", "epic", nil)
	if err != nil {
		t.Fatal(err)
	}
	child, err := ws.AddProgress(ctx, "TODO", "subtask", &parent.ID)
	if err != nil {
		t.Fatal(err)
	}

	if err := ws.DeleteProgress(ctx, parent.ID); err != nil {
		t.Fatal(err)
	}

	got, err := ws.GetProgress(ctx, child.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.ParentID != nil {
		t.Errorf("expected orphaned child to lose its parent, got %v", *got.ParentID)
	}
}
