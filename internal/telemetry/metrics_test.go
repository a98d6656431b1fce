package telemetry

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestMetrics_Counters(t *testing.T) {
	m := NewMetrics()
	m.IncMutations()
	m.IncMutations()
	m.IncEmbeddingsRequested()
	m.IncEmbeddingsFailed()
	m.IncVectorUpserts()
	m.IncSyncSkipped()
	m.RecordEmbedLatency(10 * time.Millisecond)

	snap := m.Snapshot("test")
	if snap.Metrics["mutations"].(int64) != 2 {
		t.Errorf("expected 2 mutations, got %v", snap.Metrics["mutations"])
	}
	if snap.Metrics["embeddings_failed"].(int64) != 1 {
		t.Errorf("expected 1 failed embedding, got %v", snap.Metrics["embeddings_failed"])
	}
	if snap.Metrics["sync_skipped"].(int64) != 1 {
		t.Errorf("expected 1 skipped sync, got %v", snap.Metrics["sync_skipped"])
	}
}

func TestJSONFileExporter(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "metrics", "membank.jsonl")

	exporter, err := NewJSONFileExporter(path)
	if err != nil {
		t.Fatal(err)
	}

	m := NewMetrics()
	m.SetExporter(exporter)
	m.IncMutations()

	if err := m.Flush("sync.flush"); err != nil {
		t.Fatal(err)
	}
	if err := exporter.Close(); err != nil {
		t.Fatal(err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	if !scanner.Scan() {
		t.Fatal("expected one metrics line")
	}

	var snap MetricsSnapshot
	if err := json.Unmarshal(scanner.Bytes(), &snap); err != nil {
		t.Fatal(err)
	}
	if snap.Event != "sync.flush" {
		t.Errorf("expected event sync.flush, got %q", snap.Event)
	}
}
