package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	bankerrors "github.com/membank-oss/membank/internal/errors"
)

// UpsertCustomData stores an arbitrary JSON value under (category,
// key), replacing the value and tags if the pair exists. Creation
// timestamps survive replacement.
func (w *Workspace) UpsertCustomData(ctx context.Context, category, key string, value json.RawMessage, tags []string) (*CustomData, error) {
	if category == "" {
		return nil, bankerrors.New(bankerrors.CodeValidation, "custom data category is required")
	}
	if key == "" {
		return nil, bankerrors.New(bankerrors.CodeValidation, "custom data key is required")
	}
	if !json.Valid(value) {
		return nil, bankerrors.New(bankerrors.CodeValidation, "custom data value must be valid JSON")
	}

	tagsVal, err := encodeTags(tags)
	if err != nil {
		return nil, bankerrors.Wrap(bankerrors.CodeValidation, "failed to encode tags", err)
	}

	now := time.Now().UTC()
	var d CustomData
	err = w.db.QueryRowContext(ctx,
		`INSERT INTO custom_data (timestamp_created, timestamp_updated, category, key, value, tags)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(category, key) DO UPDATE SET
			value = excluded.value,
			tags = excluded.tags,
			timestamp_updated = excluded.timestamp_updated
		 RETURNING id, timestamp_created, timestamp_updated`,
		now, now, category, key, string(value), tagsVal,
	).Scan(&d.ID, &d.TimestampCreated, &d.TimestampUpdated)
	if err != nil {
		return nil, bankerrors.Wrap(bankerrors.CodeStorageUnavailable, "failed to upsert custom data", err)
	}

	d.Category = category
	d.Key = key
	d.Value = value
	d.Tags = tags
	return &d, nil
}

// GetCustomData fetches one value by category and key.
func (w *Workspace) GetCustomData(ctx context.Context, category, key string) (*CustomData, error) {
	row := w.db.QueryRowContext(ctx,
		`SELECT id, timestamp_created, timestamp_updated, category, key, value, tags
		 FROM custom_data WHERE category = ? AND key = ?`, category, key)

	d, err := scanCustomData(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, bankerrors.Newf(bankerrors.CodeNotFound, "custom data %s/%s not found", category, key)
	}
	if err != nil {
		return nil, bankerrors.Wrap(bankerrors.CodeStorageUnavailable, "failed to read custom data", err)
	}
	return d, nil
}

// GetCustomDataByID fetches one value by row id.
func (w *Workspace) GetCustomDataByID(ctx context.Context, id int64) (*CustomData, error) {
	row := w.db.QueryRowContext(ctx,
		`SELECT id, timestamp_created, timestamp_updated, category, key, value, tags
		 FROM custom_data WHERE id = ?`, id)

	d, err := scanCustomData(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, bankerrors.Newf(bankerrors.CodeNotFound, "custom data %d not found", id)
	}
	if err != nil {
		return nil, bankerrors.Wrap(bankerrors.CodeStorageUnavailable, "failed to read custom data", err)
	}
	return d, nil
}

// ListCustomData lists values, all categories or one, optionally
// narrowed by a tag filter, ordered by category then key.
func (w *Workspace) ListCustomData(ctx context.Context, category string, filter *TagFilter) ([]CustomData, error) {
	pred, args := tagPredicate("tags", filter)
	query := `SELECT id, timestamp_created, timestamp_updated, category, key, value, tags
		 FROM custom_data WHERE ` + pred
	if category != "" {
		query += ` AND category = ?`
		args = append(args, category)
	}
	query += ` ORDER BY category, key`

	rows, err := w.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, bankerrors.Wrap(bankerrors.CodeStorageUnavailable, "failed to list custom data", err)
	}
	defer rows.Close()

	items := []CustomData{}
	for rows.Next() {
		d, err := scanCustomData(rows)
		if err != nil {
			return nil, bankerrors.Wrap(bankerrors.CodeStorageUnavailable, "failed to read custom data", err)
		}
		items = append(items, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, bankerrors.Wrap(bankerrors.CodeStorageUnavailable, "failed to list custom data", err)
	}
	return items, nil
}

// DeleteCustomData removes one value by category and key.
func (w *Workspace) DeleteCustomData(ctx context.Context, category, key string) error {
	res, err := w.db.ExecContext(ctx,
		`DELETE FROM custom_data WHERE category = ? AND key = ?`, category, key)
	if err != nil {
		return bankerrors.Wrap(bankerrors.CodeStorageUnavailable, "failed to delete custom data", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return bankerrors.Newf(bankerrors.CodeNotFound, "custom data %s/%s not found", category, key)
	}
	return nil
}

// SearchCustomData runs a full-text query over custom data values,
// optionally restricted to one category, best matches first.
func (w *Workspace) SearchCustomData(ctx context.Context, query, category string, limit int) ([]CustomData, error) {
	if query == "" {
		return nil, bankerrors.New(bankerrors.CodeValidation, "search query is required")
	}
	if limit <= 0 {
		limit = 10
	}

	sqlQuery := `SELECT c.id, c.timestamp_created, c.timestamp_updated, c.category, c.key, c.value, c.tags
		 FROM custom_data_fts f
		 JOIN custom_data c ON c.id = f.rowid
		 WHERE custom_data_fts MATCH ?`
	args := []any{ftsQuery(query)}
	if category != "" {
		sqlQuery += ` AND c.category = ?`
		args = append(args, category)
	}
	sqlQuery += ` ORDER BY f.rank LIMIT ?`
	args = append(args, limit)

	rows, err := w.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, bankerrors.Wrap(bankerrors.CodeStorageUnavailable, "failed to search custom data", err)
	}
	defer rows.Close()

	items := []CustomData{}
	for rows.Next() {
		d, err := scanCustomData(rows)
		if err != nil {
			return nil, bankerrors.Wrap(bankerrors.CodeStorageUnavailable, "failed to read custom data", err)
		}
		items = append(items, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, bankerrors.Wrap(bankerrors.CodeStorageUnavailable, "failed to search custom data", err)
	}
	return items, nil
}

func scanCustomData(row rowScanner) (*CustomData, error) {
	var d CustomData
	var value string
	var tags sql.NullString
	if err := row.Scan(&d.ID, &d.TimestampCreated, &d.TimestampUpdated, &d.Category, &d.Key, &value, &tags); err != nil {
		return nil, err
	}
	d.Value = json.RawMessage(value)
	if tags.Valid {
		d.Tags = decodeTags(&tags.String)
	}
	return &d, nil
}
