package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	bankerrors "github.com/membank-oss/membank/internal/errors"
)

// ProgressUpdate carries the fields of a partial progress update. Nil
// fields are left unchanged.
type ProgressUpdate struct {
	Status      *string
	Description *string
	ParentID    *int64
	ClearParent bool
}

// AddProgress appends a progress entry. parentID, when set, must refer
// to an existing entry.
func (w *Workspace) AddProgress(ctx context.Context, status, description string, parentID *int64) (*ProgressEntry, error) {
	if status == "" {
		return nil, bankerrors.New(bankerrors.CodeValidation, "progress status is required")
	}
	if description == "" {
		return nil, bankerrors.New(bankerrors.CodeValidation, "progress description is required")
	}
	if parentID != nil {
		if _, err := w.GetProgress(ctx, *parentID); err != nil {
			return nil, err
		}
	}

	now := time.Now().UTC()
	var id int64
	err := w.db.QueryRowContext(ctx,
		`INSERT INTO progress_entries (timestamp_created, timestamp_updated, status, description, parent_id)
		 VALUES (?, ?, ?, ?, ?) RETURNING id`,
		now, now, status, description, parentID,
	).Scan(&id)
	if err != nil {
		return nil, bankerrors.Wrap(bankerrors.CodeStorageUnavailable, "failed to add progress entry", err)
	}

	return &ProgressEntry{
		ID:               id,
		TimestampCreated: now,
		TimestampUpdated: now,
		Status:           status,
		Description:      description,
		ParentID:         parentID,
	}, nil
}

// GetProgress fetches one progress entry by id.
func (w *Workspace) GetProgress(ctx context.Context, id int64) (*ProgressEntry, error) {
	row := w.db.QueryRowContext(ctx,
		`SELECT id, timestamp_created, timestamp_updated, status, description, parent_id
		 FROM progress_entries WHERE id = ?`, id)

	p, err := scanProgress(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, bankerrors.Newf(bankerrors.CodeNotFound, "progress entry %d not found", id)
	}
	if err != nil {
		return nil, bankerrors.Wrap(bankerrors.CodeStorageUnavailable, "failed to read progress entry", err)
	}
	return p, nil
}

// GetProgressEntries lists entries newest-first by creation time,
// optionally restricted to one status or one parent. limit <= 0 means
// no limit.
func (w *Workspace) GetProgressEntries(ctx context.Context, limit int, status string, parentID *int64) ([]ProgressEntry, error) {
	conds := []string{"1 = 1"}
	args := []any{}
	if status != "" {
		conds = append(conds, "status = ?")
		args = append(args, status)
	}
	if parentID != nil {
		conds = append(conds, "parent_id = ?")
		args = append(args, *parentID)
	}

	query := `SELECT id, timestamp_created, timestamp_updated, status, description, parent_id
		 FROM progress_entries WHERE ` + strings.Join(conds, " AND ") +
		` ORDER BY timestamp_created DESC, id DESC`
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := w.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, bankerrors.Wrap(bankerrors.CodeStorageUnavailable, "failed to list progress entries", err)
	}
	defer rows.Close()

	entries := []ProgressEntry{}
	for rows.Next() {
		p, err := scanProgress(rows)
		if err != nil {
			return nil, bankerrors.Wrap(bankerrors.CodeStorageUnavailable, "failed to read progress entry", err)
		}
		entries = append(entries, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, bankerrors.Wrap(bankerrors.CodeStorageUnavailable, "failed to list progress entries", err)
	}
	return entries, nil
}

// UpdateProgress applies a partial update and bumps the update
// timestamp. At least one field must be set.
func (w *Workspace) UpdateProgress(ctx context.Context, id int64, update ProgressUpdate) (*ProgressEntry, error) {
	if update.Status == nil && update.Description == nil && update.ParentID == nil && !update.ClearParent {
		return nil, bankerrors.New(bankerrors.CodeValidation, "no progress fields to update")
	}
	if update.Status != nil && *update.Status == "" {
		return nil, bankerrors.New(bankerrors.CodeValidation, "progress status cannot be empty")
	}
	if update.Description != nil && *update.Description == "" {
		return nil, bankerrors.New(bankerrors.CodeValidation, "progress description cannot be empty")
	}
	if update.ParentID != nil {
		if *update.ParentID == id {
			return nil, bankerrors.New(bankerrors.CodeValidation, "progress entry cannot be its own parent")
		}
		if _, err := w.GetProgress(ctx, *update.ParentID); err != nil {
			return nil, err
		}
	}

	sets := []string{"timestamp_updated = ?"}
	args := []any{time.Now().UTC()}
	if update.Status != nil {
		sets = append(sets, "status = ?")
		args = append(args, *update.Status)
	}
	if update.Description != nil {
		sets = append(sets, "description = ?")
		args = append(args, *update.Description)
	}
	if update.ClearParent {
		sets = append(sets, "parent_id = NULL")
	} else if update.ParentID != nil {
		sets = append(sets, "parent_id = ?")
		args = append(args, *update.ParentID)
	}
	args = append(args, id)

	res, err := w.db.ExecContext(ctx,
		`UPDATE progress_entries SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return nil, bankerrors.Wrap(bankerrors.CodeStorageUnavailable, "failed to update progress entry", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, bankerrors.Newf(bankerrors.CodeNotFound, "progress entry %d not found", id)
	}

	return w.GetProgress(ctx, id)
}

// DeleteProgress removes a progress entry by id. Children of the
// deleted entry keep existing with their parent cleared.
func (w *Workspace) DeleteProgress(ctx context.Context, id int64) error {
	res, err := w.db.ExecContext(ctx, `DELETE FROM progress_entries WHERE id = ?`, id)
	if err != nil {
		return bankerrors.Wrap(bankerrors.CodeStorageUnavailable, "failed to delete progress entry", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return bankerrors.Newf(bankerrors.CodeNotFound, "progress entry %d not found", id)
	}
	return nil
}

func scanProgress(row rowScanner) (*ProgressEntry, error) {
	var p ProgressEntry
	var parent sql.NullInt64
	if err := row.Scan(&p.ID, &p.TimestampCreated, &p.TimestampUpdated, &p.Status, &p.Description, &parent); err != nil {
		return nil, err
	}
	if parent.Valid {
		p.ParentID = &parent.Int64
	}
	return &p, nil
}
