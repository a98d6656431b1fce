package telemetry

import (
	"sync"
	"sync/atomic"
	"time"
)

// Metrics collects counters for the persistence and sync layers.
// Embedding degradation is observable only here and in logs, never in
// the status returned to callers.
type Metrics struct {
	mu sync.RWMutex

	// Counters
	Mutations           int64
	EmbeddingsRequested int64
	EmbeddingsFailed    int64
	VectorUpserts       int64
	VectorUpsertsFailed int64
	SyncSkipped         int64

	// Histogram (simplified)
	embedLatencies []time.Duration

	// Exporter (optional)
	exporter MetricsExporter
}

// NewMetrics creates a new metrics collector.
func NewMetrics() *Metrics {
	return &Metrics{
		embedLatencies: make([]time.Duration, 0, 1000),
	}
}

// SetExporter attaches an exporter that receives snapshots on Flush.
func (m *Metrics) SetExporter(e MetricsExporter) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.exporter = e
}

// IncMutations increments the primary-write counter.
func (m *Metrics) IncMutations() { atomic.AddInt64(&m.Mutations, 1) }

// IncEmbeddingsRequested increments the embedding-request counter.
func (m *Metrics) IncEmbeddingsRequested() { atomic.AddInt64(&m.EmbeddingsRequested, 1) }

// IncEmbeddingsFailed increments the embedding-failure counter.
func (m *Metrics) IncEmbeddingsFailed() { atomic.AddInt64(&m.EmbeddingsFailed, 1) }

// IncVectorUpserts increments the vector-store upsert counter.
func (m *Metrics) IncVectorUpserts() { atomic.AddInt64(&m.VectorUpserts, 1) }

// IncVectorUpsertsFailed increments the vector-store failure counter.
func (m *Metrics) IncVectorUpsertsFailed() { atomic.AddInt64(&m.VectorUpsertsFailed, 1) }

// IncSyncSkipped increments the pipeline-skip counter (not-found or
// refetch-absent mutations).
func (m *Metrics) IncSyncSkipped() { atomic.AddInt64(&m.SyncSkipped, 1) }

// RecordEmbedLatency records one embedding round-trip duration.
func (m *Metrics) RecordEmbedLatency(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.embedLatencies = append(m.embedLatencies, d)
}

// Snapshot returns a point-in-time view of all counters.
func (m *Metrics) Snapshot(event string) MetricsSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var avg time.Duration
	if len(m.embedLatencies) > 0 {
		var total time.Duration
		for _, d := range m.embedLatencies {
			total += d
		}
		avg = total / time.Duration(len(m.embedLatencies))
	}

	return MetricsSnapshot{
		Timestamp: time.Now(),
		Event:     event,
		Metrics: map[string]any{
			"mutations":             atomic.LoadInt64(&m.Mutations),
			"embeddings_requested":  atomic.LoadInt64(&m.EmbeddingsRequested),
			"embeddings_failed":     atomic.LoadInt64(&m.EmbeddingsFailed),
			"vector_upserts":        atomic.LoadInt64(&m.VectorUpserts),
			"vector_upserts_failed": atomic.LoadInt64(&m.VectorUpsertsFailed),
			"sync_skipped":          atomic.LoadInt64(&m.SyncSkipped),
			"embed_latency_avg_ms":  avg.Milliseconds(),
		},
	}
}

// Flush exports a snapshot if an exporter is attached.
func (m *Metrics) Flush(event string) error {
	m.mu.RLock()
	exporter := m.exporter
	m.mu.RUnlock()

	if exporter == nil {
		return nil
	}
	return exporter.Export(m.Snapshot(event))
}
