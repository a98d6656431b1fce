package vector

import (
	"context"
	"database/sql"
	"math"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

func testStore(t *testing.T) *Store {
	t.Helper()

	db, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "vectors.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	s, err := New(db)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestStore_UpsertAndSearch(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	if err := s.Upsert(ctx, "decision", "1", []float32{1, 0, 0}, map[string]any{"snippet": "use sqlite"}); err != nil {
		t.Fatal(err)
	}
	if err := s.Upsert(ctx, "decision", "2", []float32{0, 1, 0}, nil); err != nil {
		t.Fatal(err)
	}
	if err := s.Upsert(ctx, "progress_entry", "1", []float32{0.9, 0.1, 0}, nil); err != nil {
		t.Fatal(err)
	}

	matches, err := s.Search(ctx, []float32{1, 0, 0}, 2, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(matches))
	}
	if matches[0].ItemType != "decision" || matches[0].ItemID != "1" {
		t.Errorf("expected exact match first, got %+v", matches[0])
	}
	if math.Abs(matches[0].Score-1.0) > 1e-6 {
		t.Errorf("expected score 1.0 for identical vector, got %f", matches[0].Score)
	}
	if matches[0].Metadata["snippet"] != "use sqlite" {
		t.Errorf("metadata lost: %+v", matches[0].Metadata)
	}
	if matches[1].Score >= matches[0].Score {
		t.Error("matches must be ordered by descending score")
	}
}

func TestStore_SearchFiltersByItemType(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	if err := s.Upsert(ctx, "decision", "1", []float32{1, 0}, nil); err != nil {
		t.Fatal(err)
	}
	if err := s.Upsert(ctx, "custom_data", "7", []float32{1, 0}, nil); err != nil {
		t.Fatal(err)
	}

	matches, err := s.Search(ctx, []float32{1, 0}, 10, []string{"custom_data"})
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 1 || matches[0].ItemType != "custom_data" {
		t.Errorf("type filter must apply, got %+v", matches)
	}
}

func TestStore_UpsertReplaces(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	if err := s.Upsert(ctx, "decision", "1", []float32{1, 0}, nil); err != nil {
		t.Fatal(err)
	}
	if err := s.Upsert(ctx, "decision", "1", []float32{0, 1}, nil); err != nil {
		t.Fatal(err)
	}

	n, err := s.Count(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("expected a single vector after replace, got %d", n)
	}

	matches, err := s.Search(ctx, []float32{0, 1}, 1, nil)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(matches[0].Score-1.0) > 1e-6 {
		t.Errorf("expected the replacement vector to match, got score %f", matches[0].Score)
	}
}

func TestStore_DeleteIsIdempotent(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	if err := s.Upsert(ctx, "decision", "1", []float32{1, 0}, nil); err != nil {
		t.Fatal(err)
	}
	if err := s.Delete(ctx, "decision", "1"); err != nil {
		t.Fatal(err)
	}
	if err := s.Delete(ctx, "decision", "1"); err != nil {
		t.Fatal(err)
	}

	n, err := s.Count(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("expected empty store, got %d vectors", n)
	}
}

func TestStore_SearchSkipsMismatchedDimensions(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	if err := s.Upsert(ctx, "decision", "1", []float32{1, 0, 0}, nil); err != nil {
		t.Fatal(err)
	}
	if err := s.Upsert(ctx, "decision", "2", []float32{1, 0}, nil); err != nil {
		t.Fatal(err)
	}

	matches, err := s.Search(ctx, []float32{1, 0, 0}, 10, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 1 || matches[0].ItemID != "1" {
		t.Errorf("vectors from another model must be skipped, got %+v", matches)
	}
}

func TestNormalize(t *testing.T) {
	out := normalize([]float32{3, 4})
	if math.Abs(float64(out[0])-0.6) > 1e-6 || math.Abs(float64(out[1])-0.8) > 1e-6 {
		t.Errorf("unexpected normalized vector: %v", out)
	}

	zero := normalize([]float32{0, 0})
	if zero[0] != 0 || zero[1] != 0 {
		t.Errorf("zero vector must pass through, got %v", zero)
	}
}

func TestVectorCodecRoundTrip(t *testing.T) {
	in := []float32{0.25, -1.5, 3.75}
	out, err := decodeVector(encodeVector(in), len(in))
	if err != nil {
		t.Fatal(err)
	}
	for i := range in {
		if in[i] != out[i] {
			t.Errorf("component %d: %f != %f", i, in[i], out[i])
		}
	}

	if _, err := decodeVector([]byte{1, 2, 3}, 1); err == nil {
		t.Error("expected error for truncated blob")
	}
}
