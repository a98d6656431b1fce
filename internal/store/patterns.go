package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	bankerrors "github.com/membank-oss/membank/internal/errors"
)

// UpsertSystemPattern inserts a pattern or, when the name exists,
// replaces its description and tags. The creation timestamp of an
// existing pattern is preserved; only the update timestamp moves.
func (w *Workspace) UpsertSystemPattern(ctx context.Context, name, description string, tags []string) (*SystemPattern, error) {
	if name == "" {
		return nil, bankerrors.New(bankerrors.CodeValidation, "pattern name is required")
	}

	tagsVal, err := encodeTags(tags)
	if err != nil {
		return nil, bankerrors.Wrap(bankerrors.CodeValidation, "failed to encode tags", err)
	}

	now := time.Now().UTC()
	var p SystemPattern
	err = w.db.QueryRowContext(ctx,
		`INSERT INTO system_patterns (timestamp_created, timestamp_updated, name, description, tags)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET
			description = excluded.description,
			tags = excluded.tags,
			timestamp_updated = excluded.timestamp_updated
		 RETURNING id, timestamp_created, timestamp_updated`,
		now, now, name, description, tagsVal,
	).Scan(&p.ID, &p.TimestampCreated, &p.TimestampUpdated)
	if err != nil {
		return nil, bankerrors.Wrap(bankerrors.CodeStorageUnavailable, "failed to upsert system pattern", err)
	}

	p.Name = name
	p.Description = description
	p.Tags = tags
	return &p, nil
}

// GetSystemPattern fetches one pattern by id.
func (w *Workspace) GetSystemPattern(ctx context.Context, id int64) (*SystemPattern, error) {
	row := w.db.QueryRowContext(ctx,
		`SELECT id, timestamp_created, timestamp_updated, name, description, tags
		 FROM system_patterns WHERE id = ?`, id)

	p, err := scanPattern(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, bankerrors.Newf(bankerrors.CodeNotFound, "system pattern %d not found", id)
	}
	if err != nil {
		return nil, bankerrors.Wrap(bankerrors.CodeStorageUnavailable, "failed to read system pattern", err)
	}
	return p, nil
}

// GetSystemPatterns lists patterns most recently updated first,
// optionally narrowed by a tag filter.
func (w *Workspace) GetSystemPatterns(ctx context.Context, filter *TagFilter) ([]SystemPattern, error) {
	pred, args := tagPredicate("tags", filter)
	query := fmt.Sprintf(
		`SELECT id, timestamp_created, timestamp_updated, name, description, tags
		 FROM system_patterns WHERE %s ORDER BY timestamp_updated DESC, id DESC`, pred)

	rows, err := w.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, bankerrors.Wrap(bankerrors.CodeStorageUnavailable, "failed to list system patterns", err)
	}
	defer rows.Close()

	patterns := []SystemPattern{}
	for rows.Next() {
		p, err := scanPattern(rows)
		if err != nil {
			return nil, bankerrors.Wrap(bankerrors.CodeStorageUnavailable, "failed to read system pattern", err)
		}
		patterns = append(patterns, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, bankerrors.Wrap(bankerrors.CodeStorageUnavailable, "failed to list system patterns", err)
	}
	return patterns, nil
}

// DeleteSystemPattern removes a pattern by id.
func (w *Workspace) DeleteSystemPattern(ctx context.Context, id int64) error {
	res, err := w.db.ExecContext(ctx, `DELETE FROM system_patterns WHERE id = ?`, id)
	if err != nil {
		return bankerrors.Wrap(bankerrors.CodeStorageUnavailable, "failed to delete system pattern", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return bankerrors.Newf(bankerrors.CodeNotFound, "system pattern %d not found", id)
	}
	return nil
}

func scanPattern(row rowScanner) (*SystemPattern, error) {
	var p SystemPattern
	var description, tags sql.NullString
	if err := row.Scan(&p.ID, &p.TimestampCreated, &p.TimestampUpdated, &p.Name, &description, &tags); err != nil {
		return nil, err
	}
	p.Description = description.String
	if tags.Valid {
		p.Tags = decodeTags(&tags.String)
	}
	return &p, nil
}
