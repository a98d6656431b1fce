package bank

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/membank-oss/membank/internal/embed"
	bankerrors "github.com/membank-oss/membank/internal/errors"
	"github.com/membank-oss/membank/internal/store"
	"github.com/membank-oss/membank/internal/telemetry"
	"github.com/membank-oss/membank/internal/vector"
	"github.com/membank-oss/membank/internal/vecsync"
)

// Service is the operation surface of the memory bank. Every method
// takes a workspace path; the store for it is opened on first use.
// Writes succeed or fail on the primary store alone; embedding sync
// runs after the fact and never changes the outcome.
type Service struct {
	stores   *store.Registry
	embedder embed.Embedder
	logger   *telemetry.Logger
	metrics  *telemetry.Metrics

	mu        sync.Mutex
	pipelines map[string]*vecsync.Pipeline
	vectors   map[string]*vector.Store
}

// New creates a service. embedder may be nil to run without semantic
// features.
func New(stores *store.Registry, embedder embed.Embedder, logger *telemetry.Logger, metrics *telemetry.Metrics) *Service {
	return &Service{
		stores:    stores,
		embedder:  embedder,
		logger:    logger,
		metrics:   metrics,
		pipelines: make(map[string]*vecsync.Pipeline),
		vectors:   make(map[string]*vector.Store),
	}
}

// workspace opens the store and the per-workspace sync pipeline.
func (s *Service) workspace(workspacePath string) (*store.Workspace, *vecsync.Pipeline, error) {
	ws, err := s.stores.Get(workspacePath)
	if err != nil {
		return nil, nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	pipe, ok := s.pipelines[ws.Root()]
	if !ok {
		vectors, err := vector.New(ws.DB())
		if err != nil {
			return nil, nil, err
		}
		s.vectors[ws.Root()] = vectors
		pipe = vecsync.New(s.embedder, vectors, s.logger, s.metrics)
		s.pipelines[ws.Root()] = pipe
	}
	return ws, pipe, nil
}

func (s *Service) vectorStore(workspacePath string) (*vector.Store, error) {
	ws, _, err := s.workspace(workspacePath)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.vectors[ws.Root()], nil
}

// LogDecision records a decision and syncs its embedding.
func (s *Service) LogDecision(ctx context.Context, workspace, summary, rationale, implementationDetails string, tags []string) (*store.Decision, error) {
	ws, pipe, err := s.workspace(workspace)
	if err != nil {
		return nil, err
	}

	decision, err := ws.LogDecision(ctx, summary, rationale, implementationDetails, tags)
	if err != nil {
		return nil, err
	}
	s.metrics.IncMutations()

	s.syncDecision(ctx, ws, pipe, decision.ID)
	return decision, nil
}

// GetDecisions lists decisions, newest first.
func (s *Service) GetDecisions(ctx context.Context, workspace string, limit int, filter *store.TagFilter) ([]store.Decision, error) {
	ws, _, err := s.workspace(workspace)
	if err != nil {
		return nil, err
	}
	return ws.GetDecisions(ctx, limit, filter)
}

// SearchDecisions runs a full-text search over decisions.
func (s *Service) SearchDecisions(ctx context.Context, workspace, query string, limit int) ([]store.Decision, error) {
	ws, _, err := s.workspace(workspace)
	if err != nil {
		return nil, err
	}
	return ws.SearchDecisions(ctx, query, limit)
}

// DeleteDecision removes a decision and, best-effort, its vector.
func (s *Service) DeleteDecision(ctx context.Context, workspace string, id int64) error {
	ws, pipe, err := s.workspace(workspace)
	if err != nil {
		return err
	}
	if err := ws.DeleteDecision(ctx, id); err != nil {
		return err
	}
	s.metrics.IncMutations()
	pipe.Remove(ctx, vecsync.TypeDecision, strconv.FormatInt(id, 10))
	return nil
}

// AddProgress records a progress entry and syncs its embedding.
func (s *Service) AddProgress(ctx context.Context, workspace, status, description string, parentID *int64) (*store.ProgressEntry, error) {
	ws, pipe, err := s.workspace(workspace)
	if err != nil {
		return nil, err
	}

	entry, err := ws.AddProgress(ctx, status, description, parentID)
	if err != nil {
		return nil, err
	}
	s.metrics.IncMutations()

	s.syncProgress(ctx, ws, pipe, entry.ID)
	return entry, nil
}

// UpdateProgress applies a partial update and re-syncs the embedding.
func (s *Service) UpdateProgress(ctx context.Context, workspace string, id int64, update store.ProgressUpdate) (*store.ProgressEntry, error) {
	ws, pipe, err := s.workspace(workspace)
	if err != nil {
		return nil, err
	}

	entry, err := ws.UpdateProgress(ctx, id, update)
	if err != nil {
		return nil, err
	}
	s.metrics.IncMutations()

	s.syncProgress(ctx, ws, pipe, entry.ID)
	return entry, nil
}

// GetProgressEntries lists progress entries, newest first.
func (s *Service) GetProgressEntries(ctx context.Context, workspace string, limit int, status string, parentID *int64) ([]store.ProgressEntry, error) {
	ws, _, err := s.workspace(workspace)
	if err != nil {
		return nil, err
	}
	return ws.GetProgressEntries(ctx, limit, status, parentID)
}

// DeleteProgress removes a progress entry and, best-effort, its vector.
func (s *Service) DeleteProgress(ctx context.Context, workspace string, id int64) error {
	ws, pipe, err := s.workspace(workspace)
	if err != nil {
		return err
	}
	if err := ws.DeleteProgress(ctx, id); err != nil {
		return err
	}
	s.metrics.IncMutations()
	pipe.Remove(ctx, vecsync.TypeProgressEntry, strconv.FormatInt(id, 10))
	return nil
}

// UpsertSystemPattern stores a pattern by name and syncs its embedding.
func (s *Service) UpsertSystemPattern(ctx context.Context, workspace, name, description string, tags []string) (*store.SystemPattern, error) {
	ws, pipe, err := s.workspace(workspace)
	if err != nil {
		return nil, err
	}

	pattern, err := ws.UpsertSystemPattern(ctx, name, description, tags)
	if err != nil {
		return nil, err
	}
	s.metrics.IncMutations()

	s.syncPattern(ctx, ws, pipe, pattern.ID)
	return pattern, nil
}

// GetSystemPatterns lists patterns, most recently updated first.
func (s *Service) GetSystemPatterns(ctx context.Context, workspace string, filter *store.TagFilter) ([]store.SystemPattern, error) {
	ws, _, err := s.workspace(workspace)
	if err != nil {
		return nil, err
	}
	return ws.GetSystemPatterns(ctx, filter)
}

// DeleteSystemPattern removes a pattern and, best-effort, its vector.
func (s *Service) DeleteSystemPattern(ctx context.Context, workspace string, id int64) error {
	ws, pipe, err := s.workspace(workspace)
	if err != nil {
		return err
	}
	if err := ws.DeleteSystemPattern(ctx, id); err != nil {
		return err
	}
	s.metrics.IncMutations()
	pipe.Remove(ctx, vecsync.TypeSystemPattern, strconv.FormatInt(id, 10))
	return nil
}

// UpsertCustomData stores a JSON value under (category, key) and syncs
// its embedding.
func (s *Service) UpsertCustomData(ctx context.Context, workspace, category, key string, value json.RawMessage, tags []string) (*store.CustomData, error) {
	ws, pipe, err := s.workspace(workspace)
	if err != nil {
		return nil, err
	}

	item, err := ws.UpsertCustomData(ctx, category, key, value, tags)
	if err != nil {
		return nil, err
	}
	s.metrics.IncMutations()

	s.syncCustomData(ctx, ws, pipe, item.ID)
	return item, nil
}

// GetCustomData fetches one value by category and key.
func (s *Service) GetCustomData(ctx context.Context, workspace, category, key string) (*store.CustomData, error) {
	ws, _, err := s.workspace(workspace)
	if err != nil {
		return nil, err
	}
	return ws.GetCustomData(ctx, category, key)
}

// ListCustomData lists values, all categories or one, optionally
// narrowed by a tag filter.
func (s *Service) ListCustomData(ctx context.Context, workspace, category string, filter *store.TagFilter) ([]store.CustomData, error) {
	ws, _, err := s.workspace(workspace)
	if err != nil {
		return nil, err
	}
	return ws.ListCustomData(ctx, category, filter)
}

// SearchCustomData runs a full-text search over custom data.
func (s *Service) SearchCustomData(ctx context.Context, workspace, query, category string, limit int) ([]store.CustomData, error) {
	ws, _, err := s.workspace(workspace)
	if err != nil {
		return nil, err
	}
	return ws.SearchCustomData(ctx, query, category, limit)
}

// DeleteCustomData removes one value and, best-effort, its vector.
func (s *Service) DeleteCustomData(ctx context.Context, workspace, category, key string) error {
	ws, pipe, err := s.workspace(workspace)
	if err != nil {
		return err
	}

	item, err := ws.GetCustomData(ctx, category, key)
	if err != nil {
		return err
	}
	if err := ws.DeleteCustomData(ctx, category, key); err != nil {
		return err
	}
	s.metrics.IncMutations()
	pipe.Remove(ctx, vecsync.TypeCustomData, strconv.FormatInt(item.ID, 10))
	return nil
}

// GetContext returns a context document.
func (s *Service) GetContext(ctx context.Context, workspace string, kind store.ContextKind) (map[string]any, error) {
	ws, _, err := s.workspace(workspace)
	if err != nil {
		return nil, err
	}
	return ws.GetContext(ctx, kind)
}

// UpdateContext replaces or patches a context document. Exactly one of
// content and patch must be given.
func (s *Service) UpdateContext(ctx context.Context, workspace string, kind store.ContextKind, content, patch map[string]any) (map[string]any, error) {
	if content != nil && patch != nil {
		return nil, bankerrors.New(bankerrors.CodeValidation,
			"provide either full content or a patch, not both")
	}
	if content == nil && patch == nil {
		return nil, bankerrors.New(bankerrors.CodeValidation,
			"provide full content or a patch")
	}

	ws, _, err := s.workspace(workspace)
	if err != nil {
		return nil, err
	}

	var result map[string]any
	if content != nil {
		result, err = ws.SetContext(ctx, kind, content)
	} else {
		result, err = ws.PatchContext(ctx, kind, patch)
	}
	if err != nil {
		return nil, err
	}
	s.metrics.IncMutations()
	return result, nil
}

// GetContextHistory lists prior versions of a context document.
func (s *Service) GetContextHistory(ctx context.Context, workspace string, kind store.ContextKind, limit int) ([]store.ContextHistoryEntry, error) {
	ws, _, err := s.workspace(workspace)
	if err != nil {
		return nil, err
	}
	return ws.GetContextHistory(ctx, kind, limit)
}

// GetRecentActivity summarizes workspace changes. hoursAgo <= 0
// defaults to 24 hours; limit <= 0 defaults to 5 per category.
func (s *Service) GetRecentActivity(ctx context.Context, workspace string, hoursAgo int, limit int) (*store.ActivitySummary, error) {
	ws, _, err := s.workspace(workspace)
	if err != nil {
		return nil, err
	}
	if hoursAgo <= 0 {
		hoursAgo = 24
	}
	since := time.Now().UTC().Add(-time.Duration(hoursAgo) * time.Hour)
	return ws.GetRecentActivity(ctx, since, limit)
}

// LinkItems relates two knowledge items.
func (s *Service) LinkItems(ctx context.Context, workspace string, link store.ContextLink) (*store.ContextLink, error) {
	ws, _, err := s.workspace(workspace)
	if err != nil {
		return nil, err
	}
	created, err := ws.LinkItems(ctx, link)
	if err != nil {
		return nil, err
	}
	s.metrics.IncMutations()
	return created, nil
}

// GetLinkedItems lists links touching one item.
func (s *Service) GetLinkedItems(ctx context.Context, workspace, itemType, itemID, relationship string, limit int) ([]store.ContextLink, error) {
	ws, _, err := s.workspace(workspace)
	if err != nil {
		return nil, err
	}
	return ws.GetLinkedItems(ctx, itemType, itemID, relationship, limit)
}

// SearchSemantic embeds the query and returns the nearest knowledge
// items. Requires an embedding provider.
func (s *Service) SearchSemantic(ctx context.Context, workspace, query string, topK int, itemTypes []string) ([]vector.Match, error) {
	if s.embedder == nil {
		return nil, bankerrors.New(bankerrors.CodeConfigInvalid,
			"semantic search requires an embedding provider").
			WithSuggestion("set embedding.provider to openai or local in membank.yaml")
	}
	if query == "" {
		return nil, bankerrors.New(bankerrors.CodeValidation, "search query is required")
	}

	vectors, err := s.vectorStore(workspace)
	if err != nil {
		return nil, err
	}

	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, bankerrors.Wrap(bankerrors.CodeProviderError, "failed to embed query", err)
	}
	return vectors.Search(ctx, vec, topK, itemTypes)
}

// Refetch before embedding: the row may have been deleted or replaced
// between the primary write and the sync. The freshly read state is
// what gets embedded; a vanished row is skipped with a warning.

func (s *Service) syncDecision(ctx context.Context, ws *store.Workspace, pipe *vecsync.Pipeline, id int64) {
	if !pipe.Enabled() {
		return
	}
	decision, err := ws.GetDecision(ctx, id)
	if err != nil {
		s.handleRefetchMiss(pipe, vecsync.TypeDecision, id, err)
		return
	}
	pipe.Sync(ctx, vecsync.DecisionItem(decision))
}

func (s *Service) syncProgress(ctx context.Context, ws *store.Workspace, pipe *vecsync.Pipeline, id int64) {
	if !pipe.Enabled() {
		return
	}
	entry, err := ws.GetProgress(ctx, id)
	if err != nil {
		s.handleRefetchMiss(pipe, vecsync.TypeProgressEntry, id, err)
		return
	}
	pipe.Sync(ctx, vecsync.ProgressItem(entry))
}

func (s *Service) syncPattern(ctx context.Context, ws *store.Workspace, pipe *vecsync.Pipeline, id int64) {
	if !pipe.Enabled() {
		return
	}
	pattern, err := ws.GetSystemPattern(ctx, id)
	if err != nil {
		s.handleRefetchMiss(pipe, vecsync.TypeSystemPattern, id, err)
		return
	}
	pipe.Sync(ctx, vecsync.PatternItem(pattern))
}

func (s *Service) syncCustomData(ctx context.Context, ws *store.Workspace, pipe *vecsync.Pipeline, id int64) {
	if !pipe.Enabled() {
		return
	}
	item, err := ws.GetCustomDataByID(ctx, id)
	if err != nil {
		s.handleRefetchMiss(pipe, vecsync.TypeCustomData, id, err)
		return
	}
	pipe.Sync(ctx, vecsync.CustomDataItem(item))
}

func (s *Service) handleRefetchMiss(pipe *vecsync.Pipeline, itemType string, id int64, err error) {
	var be *bankerrors.BankError
	if errors.As(err, &be) && be.Code == bankerrors.CodeNotFound {
		pipe.SkipMissing(itemType, strconv.FormatInt(id, 10))
		return
	}
	s.logger.Error("failed to refetch item for embedding sync",
		"item_type", itemType, "item_id", id, "error", err)
}
