package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	bankerrors "github.com/membank-oss/membank/internal/errors"
)

// LogDecision appends a decision and returns the stored row.
func (w *Workspace) LogDecision(ctx context.Context, summary, rationale, implementationDetails string, tags []string) (*Decision, error) {
	if summary == "" {
		return nil, bankerrors.New(bankerrors.CodeValidation, "decision summary is required")
	}

	tagsVal, err := encodeTags(tags)
	if err != nil {
		return nil, bankerrors.Wrap(bankerrors.CodeValidation, "failed to encode tags", err)
	}

	now := time.Now().UTC()
	var id int64
	err = w.db.QueryRowContext(ctx,
		`INSERT INTO decisions (timestamp_created, timestamp_updated, summary, rationale, implementation_details, tags)
		 VALUES (?, ?, ?, ?, ?, ?) RETURNING id`,
		now, now, summary, rationale, implementationDetails, tagsVal,
	).Scan(&id)
	if err != nil {
		return nil, bankerrors.Wrap(bankerrors.CodeStorageUnavailable, "failed to log decision", err)
	}

	return &Decision{
		ID:                    id,
		TimestampCreated:      now,
		TimestampUpdated:      now,
		Summary:               summary,
		Rationale:             rationale,
		ImplementationDetails: implementationDetails,
		Tags:                  tags,
	}, nil
}

// GetDecision fetches one decision by id.
func (w *Workspace) GetDecision(ctx context.Context, id int64) (*Decision, error) {
	row := w.db.QueryRowContext(ctx,
		`SELECT id, timestamp_created, timestamp_updated, summary, rationale, implementation_details, tags
		 FROM decisions WHERE id = ?`, id)

	d, err := scanDecision(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, bankerrors.Newf(bankerrors.CodeNotFound, "decision %d not found", id)
	}
	if err != nil {
		return nil, bankerrors.Wrap(bankerrors.CodeStorageUnavailable, "failed to read decision", err)
	}
	return d, nil
}

// GetDecisions lists decisions newest-first, optionally narrowed by a
// tag filter. limit <= 0 means no limit.
func (w *Workspace) GetDecisions(ctx context.Context, limit int, filter *TagFilter) ([]Decision, error) {
	pred, args := tagPredicate("tags", filter)
	query := fmt.Sprintf(
		`SELECT id, timestamp_created, timestamp_updated, summary, rationale, implementation_details, tags
		 FROM decisions WHERE %s ORDER BY timestamp_created DESC, id DESC`, pred)
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := w.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, bankerrors.Wrap(bankerrors.CodeStorageUnavailable, "failed to list decisions", err)
	}
	defer rows.Close()

	decisions := []Decision{}
	for rows.Next() {
		d, err := scanDecision(rows)
		if err != nil {
			return nil, bankerrors.Wrap(bankerrors.CodeStorageUnavailable, "failed to read decision", err)
		}
		decisions = append(decisions, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, bankerrors.Wrap(bankerrors.CodeStorageUnavailable, "failed to list decisions", err)
	}
	return decisions, nil
}

// DeleteDecision removes a decision by id.
func (w *Workspace) DeleteDecision(ctx context.Context, id int64) error {
	res, err := w.db.ExecContext(ctx, `DELETE FROM decisions WHERE id = ?`, id)
	if err != nil {
		return bankerrors.Wrap(bankerrors.CodeStorageUnavailable, "failed to delete decision", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return bankerrors.Newf(bankerrors.CodeNotFound, "decision %d not found", id)
	}
	return nil
}

// SearchDecisions runs a full-text query over summaries, rationale,
// implementation details and tags, best matches first.
func (w *Workspace) SearchDecisions(ctx context.Context, query string, limit int) ([]Decision, error) {
	if query == "" {
		return nil, bankerrors.New(bankerrors.CodeValidation, "search query is required")
	}
	if limit <= 0 {
		limit = 10
	}

	rows, err := w.db.QueryContext(ctx,
		`SELECT d.id, d.timestamp_created, d.timestamp_updated, d.summary, d.rationale, d.implementation_details, d.tags
		 FROM decisions_fts f
		 JOIN decisions d ON d.id = f.rowid
		 WHERE decisions_fts MATCH ?
		 ORDER BY f.rank LIMIT ?`, ftsQuery(query), limit)
	if err != nil {
		return nil, bankerrors.Wrap(bankerrors.CodeStorageUnavailable, "failed to search decisions", err)
	}
	defer rows.Close()

	decisions := []Decision{}
	for rows.Next() {
		d, err := scanDecision(rows)
		if err != nil {
			return nil, bankerrors.Wrap(bankerrors.CodeStorageUnavailable, "failed to read decision", err)
		}
		decisions = append(decisions, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, bankerrors.Wrap(bankerrors.CodeStorageUnavailable, "failed to search decisions", err)
	}
	return decisions, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDecision(row rowScanner) (*Decision, error) {
	var d Decision
	var rationale, details, tags sql.NullString
	if err := row.Scan(&d.ID, &d.TimestampCreated, &d.TimestampUpdated, &d.Summary, &rationale, &details, &tags); err != nil {
		return nil, err
	}
	d.Rationale = rationale.String
	d.ImplementationDetails = details.String
	if tags.Valid {
		d.Tags = decodeTags(&tags.String)
	}
	return &d, nil
}
