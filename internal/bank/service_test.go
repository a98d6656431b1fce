package bank

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	bankerrors "github.com/membank-oss/membank/internal/errors"
	"github.com/membank-oss/membank/internal/store"
	"github.com/membank-oss/membank/internal/telemetry"
)

// keywordEmbedder maps texts mentioning "sqlite" and everything else
// to orthogonal vectors, enough to verify ranking end to end.
type keywordEmbedder struct {
	err error
}

func (e *keywordEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if e.err != nil {
		return nil, e.err
	}
	if strings.Contains(strings.ToLower(text), "sqlite") {
		return []float32{1, 0}, nil
	}
	return []float32{0, 1}, nil
}

func (e *keywordEmbedder) Dimensions() int { return 2 }

func testService(t *testing.T, embedder *keywordEmbedder) (*Service, string) {
	t.Helper()

	registry := store.NewRegistry("")
	t.Cleanup(func() { registry.Close() })

	logger := telemetry.NewLogger("error", "text")
	metrics := telemetry.NewMetrics()

	var svc *Service
	if embedder != nil {
		svc = New(registry, embedder, logger, metrics)
	} else {
		svc = New(registry, nil, logger, metrics)
	}
	return svc, t.TempDir()
}

func TestService_LogDecisionSyncsVector(t *testing.T) {
	svc, ws := testService(t, &keywordEmbedder{})
	ctx := context.Background()

	if _, err := svc.LogDecision(ctx, ws, "use sqlite for storage", "no server to run", "", nil); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.LogDecision(ctx, ws, "adopt structured logging", "", "", nil); err != nil {
		t.Fatal(err)
	}

	matches, err := svc.SearchSemantic(ctx, ws, "sqlite database", 5, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(matches))
	}
	if matches[0].Metadata["snippet"] != "Decision: use sqlite for storage - no server to run" {
		t.Errorf("expected the sqlite decision first, got %+v", matches[0])
	}
	if matches[0].Score <= matches[1].Score {
		t.Error("expected the matching decision to rank higher")
	}
}

func TestService_EmbedFailureNeverFailsWrite(t *testing.T) {
	svc, ws := testService(t, &keywordEmbedder{err: errors.New("provider down")})
	ctx := context.Background()

	decision, err := svc.LogDecision(ctx, ws, "use sqlite", "", "", nil)
	if err != nil {
		t.Fatalf("primary write must succeed despite embedding failure: %v", err)
	}
	if decision.ID == 0 {
		t.Error("expected a stored decision")
	}

	decisions, err := svc.GetDecisions(ctx, ws, 0, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(decisions) != 1 {
		t.Errorf("expected the decision in the store, got %d", len(decisions))
	}
}

func TestService_SemanticSearchWithoutProvider(t *testing.T) {
	svc, ws := testService(t, nil)

	_, err := svc.SearchSemantic(context.Background(), ws, "anything", 5, nil)
	if err == nil {
		t.Fatal("expected error without an embedding provider")
	}
	if bankerrors.AsCode(err) != bankerrors.CodeConfigInvalid {
		t.Errorf("expected config error, got %v", err)
	}
}

func TestService_WritesWorkWithoutProvider(t *testing.T) {
	svc, ws := testService(t, nil)
	ctx := context.Background()

	if _, err := svc.LogDecision(ctx, ws, "works offline", "", "", nil); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.AddProgress(ctx, ws, "TODO", "task", nil); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.UpsertSystemPattern(ctx, ws, "repository", "", nil); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.UpsertCustomData(ctx, ws, "glossary", "wal", json.RawMessage(`"log"`), nil); err != nil {
		t.Fatal(err)
	}
}

func TestService_DeleteRemovesVector(t *testing.T) {
	svc, ws := testService(t, &keywordEmbedder{})
	ctx := context.Background()

	decision, err := svc.LogDecision(ctx, ws, "use sqlite", "", "", nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := svc.DeleteDecision(ctx, ws, decision.ID); err != nil {
		t.Fatal(err)
	}

	matches, err := svc.SearchSemantic(ctx, ws, "sqlite", 5, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 0 {
		t.Errorf("deleted decision must leave the vector index, got %d matches", len(matches))
	}
}

func TestService_SemanticSearchFiltersTypes(t *testing.T) {
	svc, ws := testService(t, &keywordEmbedder{})
	ctx := context.Background()

	if _, err := svc.LogDecision(ctx, ws, "use sqlite", "", "", nil); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.AddProgress(ctx, ws, "TODO", "tune sqlite pragmas", nil); err != nil {
		t.Fatal(err)
	}

	matches, err := svc.SearchSemantic(ctx, ws, "sqlite", 5, []string{"progress_entry"})
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 1 || matches[0].ItemType != "progress_entry" {
		t.Errorf("type filter must apply, got %+v", matches)
	}
}

func TestService_UpdateContextRequiresExactlyOneMode(t *testing.T) {
	svc, ws := testService(t, nil)
	ctx := context.Background()

	if _, err := svc.UpdateContext(ctx, ws, store.ProductContext, nil, nil); err == nil {
		t.Error("expected error when neither content nor patch is given")
	}
	if _, err := svc.UpdateContext(ctx, ws, store.ProductContext,
		map[string]any{"a": 1}, map[string]any{"b": 2}); err == nil {
		t.Error("expected error when both content and patch are given")
	}

	content, err := svc.UpdateContext(ctx, ws, store.ProductContext, map[string]any{"goal": "v1"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if content["goal"] != "v1" {
		t.Errorf("unexpected content: %v", content)
	}

	patched, err := svc.UpdateContext(ctx, ws, store.ProductContext, nil, map[string]any{"owner": "core"})
	if err != nil {
		t.Fatal(err)
	}
	if patched["goal"] != "v1" || patched["owner"] != "core" {
		t.Errorf("unexpected patched content: %v", patched)
	}
}

func TestService_RecentActivityDefaults(t *testing.T) {
	svc, ws := testService(t, nil)
	ctx := context.Background()

	if _, err := svc.LogDecision(ctx, ws, "fresh decision", "", "", nil); err != nil {
		t.Fatal(err)
	}

	summary, err := svc.GetRecentActivity(ctx, ws, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(summary.Decisions) != 1 {
		t.Errorf("default 24h window must include a fresh decision, got %d", len(summary.Decisions))
	}
}

func TestService_UpdateProgressResyncs(t *testing.T) {
	svc, ws := testService(t, &keywordEmbedder{})
	ctx := context.Background()

	entry, err := svc.AddProgress(ctx, ws, "TODO", "investigate options", nil)
	if err != nil {
		t.Fatal(err)
	}

	desc := "switch to sqlite"
	if _, err := svc.UpdateProgress(ctx, ws, entry.ID, store.ProgressUpdate{Description: &desc}); err != nil {
		t.Fatal(err)
	}

	matches, err := svc.SearchSemantic(ctx, ws, "sqlite", 1, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 1 || matches[0].ItemType != "progress_entry" {
		t.Fatalf("expected the updated entry to match, got %+v", matches)
	}
	if snippet, _ := matches[0].Metadata["snippet"].(string); !strings.Contains(snippet, "switch to sqlite") {
		t.Errorf("vector metadata must reflect the updated text, got %q", snippet)
	}
}

func TestService_LinkAndFetchLinks(t *testing.T) {
	svc, ws := testService(t, nil)
	ctx := context.Background()

	d, err := svc.LogDecision(ctx, ws, "adopt sqlite", "", "", nil)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := svc.LinkItems(ctx, ws, store.ContextLink{
		SourceItemType:   "decision",
		SourceItemID:     "1",
		TargetItemType:   "system_pattern",
		TargetItemID:     "1",
		RelationshipType: "related_to",
	}); err != nil {
		t.Fatal(err)
	}

	links, err := svc.GetLinkedItems(ctx, ws, "decision", "1", "", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(links) != 1 {
		t.Errorf("expected 1 link for decision %d, got %d", d.ID, len(links))
	}
}
