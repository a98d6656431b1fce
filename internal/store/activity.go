package store

import (
	"context"
	"fmt"
	"time"

	bankerrors "github.com/membank-oss/membank/internal/errors"
)

// ActivitySummary aggregates what changed in a workspace since a
// cutoff. Slices are always non-nil so callers can serialize them as
// empty arrays rather than null.
type ActivitySummary struct {
	Since                time.Time            `json:"since"`
	Decisions            []Decision           `json:"recent_decisions"`
	ProgressEntries      []ProgressEntry      `json:"recent_progress"`
	SystemPatterns       []SystemPattern      `json:"recent_patterns"`
	CustomData           []CustomData         `json:"recent_custom_data"`
	ProductContextChange *ContextHistoryEntry `json:"product_context_change,omitempty"`
	ActiveContextChange  *ContextHistoryEntry `json:"active_context_change,omitempty"`
	Notes                []string             `json:"notes"`
}

// GetRecentActivity collects items touched since the cutoff, newest
// first, at most limit per category. Decisions and progress entries
// count by creation time; patterns and custom data count by last
// update, so an old identity re-logged reappears in the window.
func (w *Workspace) GetRecentActivity(ctx context.Context, since time.Time, limit int) (*ActivitySummary, error) {
	if limit <= 0 {
		limit = 5
	}
	since = since.UTC()

	summary := &ActivitySummary{
		Since:           since,
		Decisions:       []Decision{},
		ProgressEntries: []ProgressEntry{},
		SystemPatterns:  []SystemPattern{},
		CustomData:      []CustomData{},
		Notes:           []string{},
	}

	rows, err := w.db.QueryContext(ctx,
		`SELECT id, timestamp_created, timestamp_updated, summary, rationale, implementation_details, tags
		 FROM decisions
		 WHERE timestamp_created >= ? AND (tags IS NULL OR json_valid(tags))
		 ORDER BY timestamp_created DESC, id DESC LIMIT ?`, since, limit)
	if err != nil {
		return nil, bankerrors.Wrap(bankerrors.CodeStorageUnavailable, "failed to collect recent decisions", err)
	}
	for rows.Next() {
		d, err := scanDecision(rows)
		if err != nil {
			rows.Close()
			return nil, bankerrors.Wrap(bankerrors.CodeStorageUnavailable, "failed to collect recent decisions", err)
		}
		summary.Decisions = append(summary.Decisions, *d)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, bankerrors.Wrap(bankerrors.CodeStorageUnavailable, "failed to collect recent decisions", err)
	}
	rows.Close()

	rows, err = w.db.QueryContext(ctx,
		`SELECT id, timestamp_created, timestamp_updated, status, description, parent_id
		 FROM progress_entries
		 WHERE timestamp_created >= ?
		 ORDER BY timestamp_created DESC, id DESC LIMIT ?`, since, limit)
	if err != nil {
		return nil, bankerrors.Wrap(bankerrors.CodeStorageUnavailable, "failed to collect recent progress", err)
	}
	for rows.Next() {
		p, err := scanProgress(rows)
		if err != nil {
			rows.Close()
			return nil, bankerrors.Wrap(bankerrors.CodeStorageUnavailable, "failed to collect recent progress", err)
		}
		summary.ProgressEntries = append(summary.ProgressEntries, *p)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, bankerrors.Wrap(bankerrors.CodeStorageUnavailable, "failed to collect recent progress", err)
	}
	rows.Close()

	rows, err = w.db.QueryContext(ctx,
		`SELECT id, timestamp_created, timestamp_updated, name, description, tags
		 FROM system_patterns
		 WHERE timestamp_updated >= ? AND (tags IS NULL OR json_valid(tags))
		 ORDER BY timestamp_updated DESC, id DESC LIMIT ?`, since, limit)
	if err != nil {
		return nil, bankerrors.Wrap(bankerrors.CodeStorageUnavailable, "failed to collect recent patterns", err)
	}
	for rows.Next() {
		p, err := scanPattern(rows)
		if err != nil {
			rows.Close()
			return nil, bankerrors.Wrap(bankerrors.CodeStorageUnavailable, "failed to collect recent patterns", err)
		}
		summary.SystemPatterns = append(summary.SystemPatterns, *p)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, bankerrors.Wrap(bankerrors.CodeStorageUnavailable, "failed to collect recent patterns", err)
	}
	rows.Close()

	rows, err = w.db.QueryContext(ctx,
		`SELECT id, timestamp_created, timestamp_updated, category, key, value, tags
		 FROM custom_data
		 WHERE timestamp_updated >= ? AND (tags IS NULL OR json_valid(tags))
		 ORDER BY timestamp_updated DESC, id DESC LIMIT ?`, since, limit)
	if err != nil {
		return nil, bankerrors.Wrap(bankerrors.CodeStorageUnavailable, "failed to collect recent custom data", err)
	}
	for rows.Next() {
		d, err := scanCustomData(rows)
		if err != nil {
			rows.Close()
			return nil, bankerrors.Wrap(bankerrors.CodeStorageUnavailable, "failed to collect recent custom data", err)
		}
		summary.CustomData = append(summary.CustomData, *d)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, bankerrors.Wrap(bankerrors.CodeStorageUnavailable, "failed to collect recent custom data", err)
	}
	rows.Close()

	// Context documents have no update timestamp of their own; the
	// newest history entry marks the last change.
	if change, err := w.LastContextChange(ctx, ProductContext); err != nil {
		return nil, err
	} else if change != nil && !change.Timestamp.Before(since) {
		summary.ProductContextChange = change
	}
	if change, err := w.LastContextChange(ctx, ActiveContext); err != nil {
		return nil, err
	} else if change != nil && !change.Timestamp.Before(since) {
		summary.ActiveContextChange = change
	}

	for _, c := range []struct {
		name  string
		empty bool
	}{
		{"decisions", len(summary.Decisions) == 0},
		{"progress entries", len(summary.ProgressEntries) == 0},
		{"system patterns", len(summary.SystemPatterns) == 0},
		{"custom data", len(summary.CustomData) == 0},
	} {
		if c.empty {
			summary.Notes = append(summary.Notes,
				fmt.Sprintf("no %s in the requested window", c.name))
		}
	}

	return summary, nil
}
