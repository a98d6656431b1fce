package store

import (
	"context"
	"encoding/json"
	"time"

	bankerrors "github.com/membank-oss/membank/internal/errors"
)

// ContextKind selects one of the two singleton context documents.
type ContextKind string

const (
	ProductContext ContextKind = "product_context"
	ActiveContext  ContextKind = "active_context"
)

// DeleteSentinel removes a key when it appears as a value in a
// context patch.
const DeleteSentinel = "__DELETE__"

func (k ContextKind) valid() bool {
	return k == ProductContext || k == ActiveContext
}

func (k ContextKind) historyTable() string {
	return string(k) + "_history"
}

// GetContext returns the current content of a context document. A
// never-written document is an empty map.
func (w *Workspace) GetContext(ctx context.Context, kind ContextKind) (map[string]any, error) {
	if !kind.valid() {
		return nil, bankerrors.Newf(bankerrors.CodeValidation, "unknown context kind %q", kind)
	}

	var raw string
	err := w.db.QueryRowContext(ctx,
		`SELECT content FROM `+string(kind)+` WHERE id = 1`).Scan(&raw)
	if err != nil {
		return nil, bankerrors.Wrap(bankerrors.CodeStorageUnavailable, "failed to read context", err)
	}

	content := map[string]any{}
	if err := json.Unmarshal([]byte(raw), &content); err != nil {
		return nil, bankerrors.Wrap(bankerrors.CodeStorageUnavailable, "stored context is not valid JSON", err)
	}
	return content, nil
}

// SetContext replaces a context document wholesale. The prior content
// is versioned into the history table unless it was empty.
func (w *Workspace) SetContext(ctx context.Context, kind ContextKind, content map[string]any) (map[string]any, error) {
	if !kind.valid() {
		return nil, bankerrors.Newf(bankerrors.CodeValidation, "unknown context kind %q", kind)
	}
	if content == nil {
		content = map[string]any{}
	}
	return w.writeContext(ctx, kind, content)
}

// PatchContext merges keys into a context document. A value equal to
// DeleteSentinel removes its key. The prior content is versioned into
// the history table unless it was empty.
func (w *Workspace) PatchContext(ctx context.Context, kind ContextKind, patch map[string]any) (map[string]any, error) {
	if !kind.valid() {
		return nil, bankerrors.Newf(bankerrors.CodeValidation, "unknown context kind %q", kind)
	}
	if len(patch) == 0 {
		return nil, bankerrors.New(bankerrors.CodeValidation, "context patch cannot be empty")
	}

	current, err := w.GetContext(ctx, kind)
	if err != nil {
		return nil, err
	}

	merged := make(map[string]any, len(current)+len(patch))
	for k, v := range current {
		merged[k] = v
	}
	for k, v := range patch {
		if s, ok := v.(string); ok && s == DeleteSentinel {
			delete(merged, k)
			continue
		}
		merged[k] = v
	}
	return w.writeContext(ctx, kind, merged)
}

// writeContext persists new content and versions the prior state. An
// empty prior document produces no history entry, so the first write
// to a fresh workspace leaves history empty.
func (w *Workspace) writeContext(ctx context.Context, kind ContextKind, content map[string]any) (map[string]any, error) {
	data, err := json.Marshal(content)
	if err != nil {
		return nil, bankerrors.Wrap(bankerrors.CodeValidation, "context content is not serializable", err)
	}

	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, bankerrors.Wrap(bankerrors.CodeStorageUnavailable, "failed to update context", err)
	}
	defer tx.Rollback()

	var prior string
	if err := tx.QueryRowContext(ctx,
		`SELECT content FROM `+string(kind)+` WHERE id = 1`).Scan(&prior); err != nil {
		return nil, bankerrors.Wrap(bankerrors.CodeStorageUnavailable, "failed to read context", err)
	}

	priorMap := map[string]any{}
	if err := json.Unmarshal([]byte(prior), &priorMap); err != nil {
		return nil, bankerrors.Wrap(bankerrors.CodeStorageUnavailable, "stored context is not valid JSON", err)
	}

	if len(priorMap) > 0 {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO `+kind.historyTable()+` (timestamp, version, content)
			 VALUES (?, (SELECT COALESCE(MAX(version), 0) + 1 FROM `+kind.historyTable()+`), ?)`,
			time.Now().UTC(), prior)
		if err != nil {
			return nil, bankerrors.Wrap(bankerrors.CodeStorageUnavailable, "failed to version context", err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE `+string(kind)+` SET content = ? WHERE id = 1`, string(data)); err != nil {
		return nil, bankerrors.Wrap(bankerrors.CodeStorageUnavailable, "failed to update context", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, bankerrors.Wrap(bankerrors.CodeStorageUnavailable, "failed to update context", err)
	}
	return content, nil
}

// GetContextHistory lists prior versions of a context document,
// newest-first. limit <= 0 means no limit.
func (w *Workspace) GetContextHistory(ctx context.Context, kind ContextKind, limit int) ([]ContextHistoryEntry, error) {
	if !kind.valid() {
		return nil, bankerrors.Newf(bankerrors.CodeValidation, "unknown context kind %q", kind)
	}

	query := `SELECT id, timestamp, version, content FROM ` + kind.historyTable() +
		` ORDER BY version DESC`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := w.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, bankerrors.Wrap(bankerrors.CodeStorageUnavailable, "failed to read context history", err)
	}
	defer rows.Close()

	entries := []ContextHistoryEntry{}
	for rows.Next() {
		var e ContextHistoryEntry
		var raw string
		if err := rows.Scan(&e.ID, &e.Timestamp, &e.Version, &raw); err != nil {
			return nil, bankerrors.Wrap(bankerrors.CodeStorageUnavailable, "failed to read context history", err)
		}
		e.Content = map[string]any{}
		if err := json.Unmarshal([]byte(raw), &e.Content); err != nil {
			return nil, bankerrors.Wrap(bankerrors.CodeStorageUnavailable, "stored context history is not valid JSON", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, bankerrors.Wrap(bankerrors.CodeStorageUnavailable, "failed to read context history", err)
	}
	return entries, nil
}

// LastContextChange returns the timestamp of the most recent versioned
// change to a context document, or nil when history is empty.
func (w *Workspace) LastContextChange(ctx context.Context, kind ContextKind) (*ContextHistoryEntry, error) {
	entries, err := w.GetContextHistory(ctx, kind, 1)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, nil
	}
	return &entries[0], nil
}
