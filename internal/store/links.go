package store

import (
	"context"
	"time"

	bankerrors "github.com/membank-oss/membank/internal/errors"
)

// LinkItems records a directed relationship between two knowledge
// items, for example a decision that a progress entry implements.
func (w *Workspace) LinkItems(ctx context.Context, link ContextLink) (*ContextLink, error) {
	if link.SourceItemType == "" || link.SourceItemID == "" {
		return nil, bankerrors.New(bankerrors.CodeValidation, "link source type and id are required")
	}
	if link.TargetItemType == "" || link.TargetItemID == "" {
		return nil, bankerrors.New(bankerrors.CodeValidation, "link target type and id are required")
	}
	if link.RelationshipType == "" {
		return nil, bankerrors.New(bankerrors.CodeValidation, "link relationship type is required")
	}

	now := time.Now().UTC()
	var id int64
	err := w.db.QueryRowContext(ctx,
		`INSERT INTO context_links
			(timestamp, source_item_type, source_item_id, target_item_type, target_item_id, relationship_type, description)
		 VALUES (?, ?, ?, ?, ?, ?, ?) RETURNING id`,
		now, link.SourceItemType, link.SourceItemID,
		link.TargetItemType, link.TargetItemID,
		link.RelationshipType, link.Description,
	).Scan(&id)
	if err != nil {
		return nil, bankerrors.Wrap(bankerrors.CodeStorageUnavailable, "failed to link items", err)
	}

	link.ID = id
	link.Timestamp = now
	return &link, nil
}

// GetLinkedItems lists links touching the given item in either
// direction, optionally restricted to one relationship type. limit <=
// 0 means no limit.
func (w *Workspace) GetLinkedItems(ctx context.Context, itemType, itemID, relationship string, limit int) ([]ContextLink, error) {
	if itemType == "" || itemID == "" {
		return nil, bankerrors.New(bankerrors.CodeValidation, "item type and id are required")
	}

	query := `SELECT id, timestamp, source_item_type, source_item_id, target_item_type, target_item_id, relationship_type, description
		 FROM context_links
		 WHERE ((source_item_type = ? AND source_item_id = ?) OR (target_item_type = ? AND target_item_id = ?))`
	args := []any{itemType, itemID, itemType, itemID}
	if relationship != "" {
		query += ` AND relationship_type = ?`
		args = append(args, relationship)
	}
	query += ` ORDER BY timestamp DESC, id DESC`
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := w.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, bankerrors.Wrap(bankerrors.CodeStorageUnavailable, "failed to list links", err)
	}
	defer rows.Close()

	links := []ContextLink{}
	for rows.Next() {
		var l ContextLink
		var description *string
		if err := rows.Scan(&l.ID, &l.Timestamp, &l.SourceItemType, &l.SourceItemID,
			&l.TargetItemType, &l.TargetItemID, &l.RelationshipType, &description); err != nil {
			return nil, bankerrors.Wrap(bankerrors.CodeStorageUnavailable, "failed to read link", err)
		}
		if description != nil {
			l.Description = *description
		}
		links = append(links, l)
	}
	if err := rows.Err(); err != nil {
		return nil, bankerrors.Wrap(bankerrors.CodeStorageUnavailable, "failed to list links", err)
	}
	return links, nil
}
