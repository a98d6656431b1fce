package vecsync

import (
	"context"
	"time"

	"github.com/membank-oss/membank/internal/telemetry"
)

// Embedder turns text into a vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// VectorStore receives synced vectors.
type VectorStore interface {
	Upsert(ctx context.Context, itemType, itemID string, embedding []float32, metadata map[string]any) error
	Delete(ctx context.Context, itemType, itemID string) error
}

// Item is one knowledge item prepared for embedding.
type Item struct {
	Type             string
	ID               string
	Text             string
	Snippet          string
	TimestampCreated time.Time
	// ParentID is set for progress entries only. HasParentID marks the
	// field as present so a root entry still records an explicit null.
	ParentID    *int64
	HasParentID bool
}

// Pipeline keeps the vector index in step with primary writes. Every
// failure is absorbed: the primary mutation already succeeded and its
// outcome never changes because of embedding trouble. Degradation is
// visible in logs and metrics only.
type Pipeline struct {
	embedder Embedder
	vectors  VectorStore
	logger   *telemetry.Logger
	metrics  *telemetry.Metrics
}

// New creates a pipeline. A nil embedder disables sync; Sync and
// Remove become no-ops for upserts and best-effort deletes still run.
func New(embedder Embedder, vectors VectorStore, logger *telemetry.Logger, metrics *telemetry.Metrics) *Pipeline {
	return &Pipeline{
		embedder: embedder,
		vectors:  vectors,
		logger:   logger,
		metrics:  metrics,
	}
}

// Enabled reports whether vectors are being produced.
func (p *Pipeline) Enabled() bool {
	return p != nil && p.embedder != nil && p.vectors != nil
}

// Sync embeds one item and upserts its vector. Errors are logged and
// counted, never returned.
func (p *Pipeline) Sync(ctx context.Context, item Item) {
	if !p.Enabled() {
		return
	}
	if item.Text == "" {
		p.metrics.IncSyncSkipped()
		p.logger.Warn("skipping embedding sync for empty item text",
			"item_type", item.Type, "item_id", item.ID)
		return
	}

	p.metrics.IncEmbeddingsRequested()
	start := time.Now()
	vec, err := p.embedder.Embed(ctx, item.Text)
	p.metrics.RecordEmbedLatency(time.Since(start))
	if err != nil {
		p.metrics.IncEmbeddingsFailed()
		p.logger.Error("embedding failed, vector index is stale for this item",
			"item_type", item.Type, "item_id", item.ID, "error", err)
		return
	}

	if err := p.vectors.Upsert(ctx, item.Type, item.ID, vec, metadata(item)); err != nil {
		p.metrics.IncVectorUpsertsFailed()
		p.logger.Error("vector upsert failed",
			"item_type", item.Type, "item_id", item.ID, "error", err)
		return
	}
	p.metrics.IncVectorUpserts()
}

// SkipMissing records that a mutated item was gone by the time the
// pipeline looked at it.
func (p *Pipeline) SkipMissing(itemType, itemID string) {
	if !p.Enabled() {
		return
	}
	p.metrics.IncSyncSkipped()
	p.logger.Warn("item disappeared before embedding sync",
		"item_type", itemType, "item_id", itemID)
}

// Remove deletes the vector for one item. Errors are logged, never
// returned.
func (p *Pipeline) Remove(ctx context.Context, itemType, itemID string) {
	if p == nil || p.vectors == nil {
		return
	}
	if err := p.vectors.Delete(ctx, itemType, itemID); err != nil {
		p.logger.Error("vector delete failed",
			"item_type", itemType, "item_id", itemID, "error", err)
	}
}

const snippetLimit = 100

// Snippet truncates text for search result previews.
func Snippet(text string) string {
	runes := []rune(text)
	if len(runes) <= snippetLimit {
		return text
	}
	return string(runes[:snippetLimit])
}

func metadata(item Item) map[string]any {
	meta := map[string]any{
		"item_type":         item.Type,
		"item_id":           item.ID,
		"snippet":           item.Snippet,
		"timestamp_created": item.TimestampCreated.UTC().Format(time.RFC3339),
	}
	if item.HasParentID {
		if item.ParentID != nil {
			meta["parent_id"] = *item.ParentID
		} else {
			meta["parent_id"] = nil
		}
	}
	return meta
}
