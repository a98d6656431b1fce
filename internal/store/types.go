package store

import (
	"encoding/json"
	"time"
)

// Decision is a logged architectural or implementation decision.
type Decision struct {
	ID                    int64     `json:"id"`
	TimestampCreated      time.Time `json:"timestamp_created"`
	TimestampUpdated      time.Time `json:"timestamp_updated"`
	Summary               string    `json:"summary"`
	Rationale             string    `json:"rationale,omitempty"`
	ImplementationDetails string    `json:"implementation_details,omitempty"`
	Tags                  []string  `json:"tags,omitempty"`
}

// ProgressEntry is a task or status entry, optionally parented to
// another entry to form a subtask tree.
type ProgressEntry struct {
	ID               int64     `json:"id"`
	TimestampCreated time.Time `json:"timestamp_created"`
	TimestampUpdated time.Time `json:"timestamp_updated"`
	Status           string    `json:"status"`
	Description      string    `json:"description"`
	ParentID         *int64    `json:"parent_id,omitempty"`
}

// SystemPattern is a named reusable pattern. Name is the upsert key.
type SystemPattern struct {
	ID               int64     `json:"id"`
	TimestampCreated time.Time `json:"timestamp_created"`
	TimestampUpdated time.Time `json:"timestamp_updated"`
	Name             string    `json:"name"`
	Description      string    `json:"description,omitempty"`
	Tags             []string  `json:"tags,omitempty"`
}

// CustomData is an arbitrary JSON value stored under (category, key).
type CustomData struct {
	ID               int64           `json:"id"`
	TimestampCreated time.Time       `json:"timestamp_created"`
	TimestampUpdated time.Time       `json:"timestamp_updated"`
	Category         string          `json:"category"`
	Key              string          `json:"key"`
	Value            json.RawMessage `json:"value"`
	Tags             []string        `json:"tags,omitempty"`
}

// ContextHistoryEntry is a prior version of a context document.
type ContextHistoryEntry struct {
	ID        int64          `json:"id"`
	Timestamp time.Time      `json:"timestamp"`
	Version   int64          `json:"version"`
	Content   map[string]any `json:"content"`
}

// ContextLink relates two knowledge items.
type ContextLink struct {
	ID               int64     `json:"id"`
	Timestamp        time.Time `json:"timestamp"`
	SourceItemType   string    `json:"source_item_type"`
	SourceItemID     string    `json:"source_item_id"`
	TargetItemType   string    `json:"target_item_type"`
	TargetItemID     string    `json:"target_item_id"`
	RelationshipType string    `json:"relationship_type"`
	Description      string    `json:"description,omitempty"`
}

// encodeTags serializes tags for storage. A nil or empty slice is
// stored as SQL NULL so untagged items stay distinguishable from
// items tagged with an empty list.
func encodeTags(tags []string) (any, error) {
	if len(tags) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(tags)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// decodeTags parses a stored tags column. Queries filter on json_valid
// so malformed rows are not expected here; anything unparseable decodes
// to nil.
func decodeTags(raw *string) []string {
	if raw == nil || *raw == "" {
		return nil
	}
	var tags []string
	if err := json.Unmarshal([]byte(*raw), &tags); err != nil {
		return nil
	}
	return tags
}
