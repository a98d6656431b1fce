package vecsync

import (
	"strconv"

	"github.com/membank-oss/membank/internal/store"
)

// Item type names as stored in the vector index and used in links.
const (
	TypeDecision      = "decision"
	TypeProgressEntry = "progress_entry"
	TypeSystemPattern = "system_pattern"
	TypeCustomData    = "custom_data"
)

// DecisionItem prepares a decision for embedding.
func DecisionItem(d *store.Decision) Item {
	text := "Decision: " + d.Summary
	if d.Rationale != "" {
		text += " - " + d.Rationale
	}
	return Item{
		Type:             TypeDecision,
		ID:               strconv.FormatInt(d.ID, 10),
		Text:             text,
		Snippet:          Snippet(text),
		TimestampCreated: d.TimestampCreated,
	}
}

// ProgressItem prepares a progress entry for embedding.
func ProgressItem(p *store.ProgressEntry) Item {
	text := "Progress: " + p.Status + " - " + p.Description
	return Item{
		Type:             TypeProgressEntry,
		ID:               strconv.FormatInt(p.ID, 10),
		Text:             text,
		Snippet:          Snippet(text),
		TimestampCreated: p.TimestampCreated,
		ParentID:         p.ParentID,
		HasParentID:      true,
	}
}

// PatternItem prepares a system pattern for embedding.
func PatternItem(p *store.SystemPattern) Item {
	text := "Pattern: " + p.Name
	if p.Description != "" {
		text += " - " + p.Description
	}
	return Item{
		Type:             TypeSystemPattern,
		ID:               strconv.FormatInt(p.ID, 10),
		Text:             text,
		Snippet:          Snippet(text),
		TimestampCreated: p.TimestampCreated,
	}
}

// CustomDataItem prepares a custom data value for embedding. The raw
// JSON value is embedded as-is.
func CustomDataItem(d *store.CustomData) Item {
	text := "Custom: " + d.Category + "/" + d.Key + " - " + string(d.Value)
	return Item{
		Type:             TypeCustomData,
		ID:               strconv.FormatInt(d.ID, 10),
		Text:             text,
		Snippet:          Snippet(text),
		TimestampCreated: d.TimestampCreated,
	}
}
