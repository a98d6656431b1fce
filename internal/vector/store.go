package vector

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"time"

	bankerrors "github.com/membank-oss/membank/internal/errors"
)

// Store is a vector index over knowledge items, kept in the same
// SQLite file as the primary store. Vectors are normalized on write so
// cosine similarity reduces to a dot product at query time.
type Store struct {
	db *sql.DB
}

// Match is one semantic search result.
type Match struct {
	ItemType string         `json:"item_type"`
	ItemID   string         `json:"item_id"`
	Score    float64        `json:"score"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// New prepares the vector table on the given handle.
func New(db *sql.DB) (*Store, error) {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS item_vectors (
		item_key TEXT PRIMARY KEY,
		item_type TEXT NOT NULL,
		item_id TEXT NOT NULL,
		dimensions INTEGER NOT NULL,
		embedding BLOB NOT NULL,
		metadata TEXT,
		timestamp DATETIME NOT NULL
	)`)
	if err != nil {
		return nil, bankerrors.Wrap(bankerrors.CodeStorageUnavailable, "failed to prepare vector table", err)
	}
	return &Store{db: db}, nil
}

func itemKey(itemType, itemID string) string {
	return itemType + ":" + itemID
}

// Upsert stores or replaces the vector for one item.
func (s *Store) Upsert(ctx context.Context, itemType, itemID string, embedding []float32, metadata map[string]any) error {
	if len(embedding) == 0 {
		return bankerrors.New(bankerrors.CodeValidation, "embedding cannot be empty")
	}

	normalized := normalize(embedding)
	blob := encodeVector(normalized)

	var metaVal any
	if metadata != nil {
		data, err := json.Marshal(metadata)
		if err != nil {
			return bankerrors.Wrap(bankerrors.CodeValidation, "failed to encode vector metadata", err)
		}
		metaVal = string(data)
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO item_vectors (item_key, item_type, item_id, dimensions, embedding, metadata, timestamp)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(item_key) DO UPDATE SET
			dimensions = excluded.dimensions,
			embedding = excluded.embedding,
			metadata = excluded.metadata,
			timestamp = excluded.timestamp`,
		itemKey(itemType, itemID), itemType, itemID,
		len(normalized), blob, metaVal, time.Now().UTC())
	if err != nil {
		return bankerrors.Wrap(bankerrors.CodeStorageUnavailable, "failed to upsert vector", err)
	}
	return nil
}

// Delete removes the vector for one item. Deleting an absent vector is
// not an error.
func (s *Store) Delete(ctx context.Context, itemType, itemID string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM item_vectors WHERE item_key = ?`, itemKey(itemType, itemID))
	if err != nil {
		return bankerrors.Wrap(bankerrors.CodeStorageUnavailable, "failed to delete vector", err)
	}
	return nil
}

// Count returns the number of stored vectors.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM item_vectors`).Scan(&n); err != nil {
		return 0, bankerrors.Wrap(bankerrors.CodeStorageUnavailable, "failed to count vectors", err)
	}
	return n, nil
}

// Search returns the topK items most similar to the query vector,
// optionally restricted to a set of item types. The scan is exact over
// all stored vectors.
func (s *Store) Search(ctx context.Context, query []float32, topK int, itemTypes []string) ([]Match, error) {
	if len(query) == 0 {
		return nil, bankerrors.New(bankerrors.CodeValidation, "query vector cannot be empty")
	}
	if topK <= 0 {
		topK = 5
	}
	q := normalize(query)

	sqlQuery := `SELECT item_type, item_id, dimensions, embedding, metadata FROM item_vectors`
	args := []any{}
	if len(itemTypes) > 0 {
		sqlQuery += ` WHERE item_type IN (` + placeholders(len(itemTypes)) + `)`
		for _, t := range itemTypes {
			args = append(args, t)
		}
	}

	rows, err := s.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, bankerrors.Wrap(bankerrors.CodeStorageUnavailable, "failed to scan vectors", err)
	}
	defer rows.Close()

	matches := []Match{}
	for rows.Next() {
		var itemType, itemID string
		var dims int
		var blob []byte
		var meta sql.NullString
		if err := rows.Scan(&itemType, &itemID, &dims, &blob, &meta); err != nil {
			return nil, bankerrors.Wrap(bankerrors.CodeStorageUnavailable, "failed to read vector", err)
		}
		if dims != len(q) {
			continue // written with a different embedding model
		}

		vec, err := decodeVector(blob, dims)
		if err != nil {
			continue
		}

		m := Match{ItemType: itemType, ItemID: itemID, Score: dot(q, vec)}
		if meta.Valid {
			_ = json.Unmarshal([]byte(meta.String), &m.Metadata)
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, bankerrors.Wrap(bankerrors.CodeStorageUnavailable, "failed to scan vectors", err)
	}

	sort.Slice(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

func encodeVector(vec []float32) []byte {
	buf := make([]byte, len(vec)*4)
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

func decodeVector(blob []byte, dims int) ([]float32, error) {
	if len(blob) != dims*4 {
		return nil, fmt.Errorf("vector blob is %d bytes, expected %d", len(blob), dims*4)
	}
	vec := make([]float32, dims)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[i*4:]))
	}
	return vec, nil
}

func normalize(vec []float32) []float32 {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	norm := math.Sqrt(sum)
	if norm == 0 {
		return vec
	}
	out := make([]float32, len(vec))
	for i, v := range vec {
		out[i] = float32(float64(v) / norm)
	}
	return out
}

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

func placeholders(n int) string {
	s := ""
	for i := 0; i < n; i++ {
		if i > 0 {
			s += ", "
		}
		s += "?"
	}
	return s
}
