package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/membank-oss/membank/internal/bank"
	"github.com/membank-oss/membank/internal/session"
	"github.com/membank-oss/membank/internal/store"
)

// ToolDef describes an MCP tool for tools/list.
type ToolDef struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"inputSchema"`
}

func workspaceProp() map[string]any {
	return map[string]any{
		"type":        "string",
		"description": "Workspace path; defaults to the session's active workspace",
	}
}

func tagFilterProps() map[string]any {
	return map[string]any{
		"tags_filter_include_any": map[string]any{
			"type": "array", "items": map[string]any{"type": "string"},
			"description": "Match items carrying at least one of these tags",
		},
		"tags_filter_include_all": map[string]any{
			"type": "array", "items": map[string]any{"type": "string"},
			"description": "Match items carrying every one of these tags",
		},
	}
}

func withWorkspace(props map[string]any) map[string]any {
	props["workspace"] = workspaceProp()
	return props
}

// AllTools returns the full set of memory bank tool definitions.
func AllTools() []ToolDef {
	return []ToolDef{
		{
			Name:        "set_active_workspace",
			Description: "Pin this session to a workspace so later calls can omit it",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"workspace": map[string]any{"type": "string", "description": "Workspace path"},
				},
				"required": []string{"workspace"},
			},
		},
		{
			Name:        "get_product_context",
			Description: "Get the long-lived project description document",
			InputSchema: map[string]any{
				"type":       "object",
				"properties": withWorkspace(map[string]any{}),
			},
		},
		{
			Name:        "update_product_context",
			Description: "Replace or patch the product context; in a patch the value \"__DELETE__\" removes its key",
			InputSchema: map[string]any{
				"type": "object",
				"properties": withWorkspace(map[string]any{
					"content":       map[string]any{"type": "object", "description": "Full replacement content"},
					"patch_content": map[string]any{"type": "object", "description": "Keys to merge into the current content"},
				}),
			},
		},
		{
			Name:        "get_active_context",
			Description: "Get the current working focus document",
			InputSchema: map[string]any{
				"type":       "object",
				"properties": withWorkspace(map[string]any{}),
			},
		},
		{
			Name:        "update_active_context",
			Description: "Replace or patch the active context; in a patch the value \"__DELETE__\" removes its key",
			InputSchema: map[string]any{
				"type": "object",
				"properties": withWorkspace(map[string]any{
					"content":       map[string]any{"type": "object", "description": "Full replacement content"},
					"patch_content": map[string]any{"type": "object", "description": "Keys to merge into the current content"},
				}),
			},
		},
		{
			Name:        "get_context_history",
			Description: "List prior versions of a context document, newest first",
			InputSchema: map[string]any{
				"type": "object",
				"properties": withWorkspace(map[string]any{
					"context_type": map[string]any{"type": "string", "enum": []string{"product", "active"}},
					"limit":        map[string]any{"type": "integer"},
				}),
				"required": []string{"context_type"},
			},
		},
		{
			Name:        "log_decision",
			Description: "Record an architectural or implementation decision",
			InputSchema: map[string]any{
				"type": "object",
				"properties": withWorkspace(map[string]any{
					"summary":                map[string]any{"type": "string"},
					"rationale":              map[string]any{"type": "string"},
					"implementation_details": map[string]any{"type": "string"},
					"tags":                   map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
				}),
				"required": []string{"summary"},
			},
		},
		{
			Name:        "get_decisions",
			Description: "List decisions, newest first, optionally filtered by tags",
			InputSchema: map[string]any{
				"type": "object",
				"properties": withWorkspace(mergeProps(map[string]any{
					"limit": map[string]any{"type": "integer"},
				}, tagFilterProps())),
			},
		},
		{
			Name:        "search_decisions_fts",
			Description: "Full-text search across decision summaries, rationale, details and tags",
			InputSchema: map[string]any{
				"type": "object",
				"properties": withWorkspace(map[string]any{
					"query_term": map[string]any{"type": "string"},
					"limit":      map[string]any{"type": "integer"},
				}),
				"required": []string{"query_term"},
			},
		},
		{
			Name:        "delete_decision_by_id",
			Description: "Delete a decision and its search vector",
			InputSchema: map[string]any{
				"type": "object",
				"properties": withWorkspace(map[string]any{
					"decision_id": map[string]any{"type": "integer"},
				}),
				"required": []string{"decision_id"},
			},
		},
		{
			Name:        "log_progress",
			Description: "Record a progress entry, optionally under a parent entry",
			InputSchema: map[string]any{
				"type": "object",
				"properties": withWorkspace(map[string]any{
					"status":      map[string]any{"type": "string", "description": "e.g. TODO, IN_PROGRESS, DONE"},
					"description": map[string]any{"type": "string"},
					"parent_id":   map[string]any{"type": "integer"},
				}),
				"required": []string{"status", "description"},
			},
		},
		{
			Name:        "get_progress",
			Description: "List progress entries, newest first, optionally by status or parent",
			InputSchema: map[string]any{
				"type": "object",
				"properties": withWorkspace(map[string]any{
					"status_filter":    map[string]any{"type": "string"},
					"parent_id_filter": map[string]any{"type": "integer"},
					"limit":            map[string]any{"type": "integer"},
				}),
			},
		},
		{
			Name:        "update_progress",
			Description: "Update fields of a progress entry; omitted fields keep their value",
			InputSchema: map[string]any{
				"type": "object",
				"properties": withWorkspace(map[string]any{
					"progress_id": map[string]any{"type": "integer"},
					"status":      map[string]any{"type": "string"},
					"description": map[string]any{"type": "string"},
					"parent_id":   map[string]any{"type": "integer"},
				}),
				"required": []string{"progress_id"},
			},
		},
		{
			Name:        "delete_progress_by_id",
			Description: "Delete a progress entry and its search vector",
			InputSchema: map[string]any{
				"type": "object",
				"properties": withWorkspace(map[string]any{
					"progress_id": map[string]any{"type": "integer"},
				}),
				"required": []string{"progress_id"},
			},
		},
		{
			Name:        "log_system_pattern",
			Description: "Store a named pattern; logging an existing name replaces its description and tags",
			InputSchema: map[string]any{
				"type": "object",
				"properties": withWorkspace(map[string]any{
					"name":        map[string]any{"type": "string"},
					"description": map[string]any{"type": "string"},
					"tags":        map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
				}),
				"required": []string{"name"},
			},
		},
		{
			Name:        "get_system_patterns",
			Description: "List system patterns, optionally filtered by tags",
			InputSchema: map[string]any{
				"type":       "object",
				"properties": withWorkspace(tagFilterProps()),
			},
		},
		{
			Name:        "delete_system_pattern_by_id",
			Description: "Delete a system pattern and its search vector",
			InputSchema: map[string]any{
				"type": "object",
				"properties": withWorkspace(map[string]any{
					"pattern_id": map[string]any{"type": "integer"},
				}),
				"required": []string{"pattern_id"},
			},
		},
		{
			Name:        "log_custom_data",
			Description: "Store a JSON value under a category and key; an existing pair is replaced",
			InputSchema: map[string]any{
				"type": "object",
				"properties": withWorkspace(map[string]any{
					"category": map[string]any{"type": "string"},
					"key":      map[string]any{"type": "string"},
					"value":    map[string]any{"description": "Any JSON value"},
					"tags":     map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
				}),
				"required": []string{"category", "key", "value"},
			},
		},
		{
			Name:        "get_custom_data",
			Description: "Get custom data: one value by category and key, or list a category or everything, optionally filtered by tags",
			InputSchema: map[string]any{
				"type": "object",
				"properties": withWorkspace(mergeProps(map[string]any{
					"category": map[string]any{"type": "string"},
					"key":      map[string]any{"type": "string"},
				}, tagFilterProps())),
			},
		},
		{
			Name:        "delete_custom_data",
			Description: "Delete one custom data value and its search vector",
			InputSchema: map[string]any{
				"type": "object",
				"properties": withWorkspace(map[string]any{
					"category": map[string]any{"type": "string"},
					"key":      map[string]any{"type": "string"},
				}),
				"required": []string{"category", "key"},
			},
		},
		{
			Name:        "search_custom_data_value_fts",
			Description: "Full-text search across custom data values, optionally in one category",
			InputSchema: map[string]any{
				"type": "object",
				"properties": withWorkspace(map[string]any{
					"query_term":      map[string]any{"type": "string"},
					"category_filter": map[string]any{"type": "string"},
					"limit":           map[string]any{"type": "integer"},
				}),
				"required": []string{"query_term"},
			},
		},
		{
			Name:        "get_recent_activity_summary",
			Description: "Summarize workspace changes in a recent time window",
			InputSchema: map[string]any{
				"type": "object",
				"properties": withWorkspace(map[string]any{
					"hours_ago":      map[string]any{"type": "integer", "description": "Window size in hours, default 24"},
					"limit_per_type": map[string]any{"type": "integer", "description": "Max items per category, default 5"},
				}),
			},
		},
		{
			Name:        "semantic_search",
			Description: "Find knowledge items by meaning rather than exact words",
			InputSchema: map[string]any{
				"type": "object",
				"properties": withWorkspace(map[string]any{
					"query_text": map[string]any{"type": "string"},
					"top_k":      map[string]any{"type": "integer", "description": "Max results, default 5"},
					"filter_item_types": map[string]any{
						"type": "array", "items": map[string]any{"type": "string"},
						"description": "Restrict to item types: decision, progress_entry, system_pattern, custom_data",
					},
				}),
				"required": []string{"query_text"},
			},
		},
		{
			Name:        "link_items",
			Description: "Relate two knowledge items, e.g. a progress entry that implements a decision",
			InputSchema: map[string]any{
				"type": "object",
				"properties": withWorkspace(map[string]any{
					"source_item_type":  map[string]any{"type": "string"},
					"source_item_id":    map[string]any{"type": "string"},
					"target_item_type":  map[string]any{"type": "string"},
					"target_item_id":    map[string]any{"type": "string"},
					"relationship_type": map[string]any{"type": "string"},
					"description":       map[string]any{"type": "string"},
				}),
				"required": []string{"source_item_type", "source_item_id", "target_item_type", "target_item_id", "relationship_type"},
			},
		},
		{
			Name:        "get_linked_items",
			Description: "List links touching one knowledge item, in either direction",
			InputSchema: map[string]any{
				"type": "object",
				"properties": withWorkspace(map[string]any{
					"item_type":                map[string]any{"type": "string"},
					"item_id":                  map[string]any{"type": "string"},
					"relationship_type_filter": map[string]any{"type": "string"},
					"limit":                    map[string]any{"type": "integer"},
				}),
				"required": []string{"item_type", "item_id"},
			},
		},
	}
}

func mergeProps(dst map[string]any, src map[string]any) map[string]any {
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

// ToolHandler dispatches tool calls to the memory bank service.
type ToolHandler struct {
	service  *bank.Service
	sessions *session.Registry
	session  *session.State
}

// NewToolHandler creates a handler bound to one client session.
func NewToolHandler(service *bank.Service, sessions *session.Registry, sess *session.State) *ToolHandler {
	return &ToolHandler{service: service, sessions: sessions, session: sess}
}

// Call dispatches a tool call by name with the given arguments.
func (h *ToolHandler) Call(ctx context.Context, name string, args json.RawMessage) (any, error) {
	switch name {
	case "set_active_workspace":
		return h.setActiveWorkspace(args)
	case "get_product_context":
		return h.getContext(ctx, args, store.ProductContext)
	case "update_product_context":
		return h.updateContext(ctx, args, store.ProductContext)
	case "get_active_context":
		return h.getContext(ctx, args, store.ActiveContext)
	case "update_active_context":
		return h.updateContext(ctx, args, store.ActiveContext)
	case "get_context_history":
		return h.getContextHistory(ctx, args)
	case "log_decision":
		return h.logDecision(ctx, args)
	case "get_decisions":
		return h.getDecisions(ctx, args)
	case "search_decisions_fts":
		return h.searchDecisions(ctx, args)
	case "delete_decision_by_id":
		return h.deleteDecision(ctx, args)
	case "log_progress":
		return h.logProgress(ctx, args)
	case "get_progress":
		return h.getProgress(ctx, args)
	case "update_progress":
		return h.updateProgress(ctx, args)
	case "delete_progress_by_id":
		return h.deleteProgress(ctx, args)
	case "log_system_pattern":
		return h.logSystemPattern(ctx, args)
	case "get_system_patterns":
		return h.getSystemPatterns(ctx, args)
	case "delete_system_pattern_by_id":
		return h.deleteSystemPattern(ctx, args)
	case "log_custom_data":
		return h.logCustomData(ctx, args)
	case "get_custom_data":
		return h.getCustomData(ctx, args)
	case "delete_custom_data":
		return h.deleteCustomData(ctx, args)
	case "search_custom_data_value_fts":
		return h.searchCustomData(ctx, args)
	case "get_recent_activity_summary":
		return h.getRecentActivity(ctx, args)
	case "semantic_search":
		return h.semanticSearch(ctx, args)
	case "link_items":
		return h.linkItems(ctx, args)
	case "get_linked_items":
		return h.getLinkedItems(ctx, args)
	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

type workspaceArgs struct {
	Workspace string `json:"workspace"`
}

func (h *ToolHandler) resolve(override string) string {
	return h.sessions.Resolve(h.session, override)
}

func (h *ToolHandler) setActiveWorkspace(args json.RawMessage) (any, error) {
	var params workspaceArgs
	if err := json.Unmarshal(args, &params); err != nil {
		return nil, fmt.Errorf("parse args: %w", err)
	}
	if params.Workspace == "" {
		return nil, fmt.Errorf("workspace is required")
	}

	h.session.SetWorkspace(params.Workspace)
	return map[string]string{"active_workspace": params.Workspace}, nil
}

func (h *ToolHandler) getContext(ctx context.Context, args json.RawMessage, kind store.ContextKind) (any, error) {
	var params workspaceArgs
	if len(args) > 0 {
		if err := json.Unmarshal(args, &params); err != nil {
			return nil, fmt.Errorf("parse args: %w", err)
		}
	}
	return h.service.GetContext(ctx, h.resolve(params.Workspace), kind)
}

func (h *ToolHandler) updateContext(ctx context.Context, args json.RawMessage, kind store.ContextKind) (any, error) {
	var params struct {
		workspaceArgs
		Content      map[string]any `json:"content"`
		PatchContent map[string]any `json:"patch_content"`
	}
	if err := json.Unmarshal(args, &params); err != nil {
		return nil, fmt.Errorf("parse args: %w", err)
	}
	return h.service.UpdateContext(ctx, h.resolve(params.Workspace), kind, params.Content, params.PatchContent)
}

func (h *ToolHandler) getContextHistory(ctx context.Context, args json.RawMessage) (any, error) {
	var params struct {
		workspaceArgs
		ContextType string `json:"context_type"`
		Limit       int    `json:"limit"`
	}
	if err := json.Unmarshal(args, &params); err != nil {
		return nil, fmt.Errorf("parse args: %w", err)
	}

	var kind store.ContextKind
	switch params.ContextType {
	case "product":
		kind = store.ProductContext
	case "active":
		kind = store.ActiveContext
	default:
		return nil, fmt.Errorf("context_type must be product or active")
	}
	return h.service.GetContextHistory(ctx, h.resolve(params.Workspace), kind, params.Limit)
}

func (h *ToolHandler) logDecision(ctx context.Context, args json.RawMessage) (any, error) {
	var params struct {
		workspaceArgs
		Summary               string   `json:"summary"`
		Rationale             string   `json:"rationale"`
		ImplementationDetails string   `json:"implementation_details"`
		Tags                  []string `json:"tags"`
	}
	if err := json.Unmarshal(args, &params); err != nil {
		return nil, fmt.Errorf("parse args: %w", err)
	}
	return h.service.LogDecision(ctx, h.resolve(params.Workspace),
		params.Summary, params.Rationale, params.ImplementationDetails, params.Tags)
}

func tagFilter(anyTags, allTags []string) (*store.TagFilter, error) {
	if anyTags == nil && allTags == nil {
		return nil, nil
	}
	if anyTags != nil && allTags != nil {
		return nil, fmt.Errorf("provide tags_filter_include_any or tags_filter_include_all, not both")
	}
	return &store.TagFilter{Any: anyTags, All: allTags}, nil
}

func (h *ToolHandler) getDecisions(ctx context.Context, args json.RawMessage) (any, error) {
	var params struct {
		workspaceArgs
		Limit   int      `json:"limit"`
		AnyTags []string `json:"tags_filter_include_any"`
		AllTags []string `json:"tags_filter_include_all"`
	}
	if len(args) > 0 {
		if err := json.Unmarshal(args, &params); err != nil {
			return nil, fmt.Errorf("parse args: %w", err)
		}
	}

	filter, err := tagFilter(params.AnyTags, params.AllTags)
	if err != nil {
		return nil, err
	}
	return h.service.GetDecisions(ctx, h.resolve(params.Workspace), params.Limit, filter)
}

func (h *ToolHandler) searchDecisions(ctx context.Context, args json.RawMessage) (any, error) {
	var params struct {
		workspaceArgs
		QueryTerm string `json:"query_term"`
		Limit     int    `json:"limit"`
	}
	if err := json.Unmarshal(args, &params); err != nil {
		return nil, fmt.Errorf("parse args: %w", err)
	}
	return h.service.SearchDecisions(ctx, h.resolve(params.Workspace), params.QueryTerm, params.Limit)
}

func (h *ToolHandler) deleteDecision(ctx context.Context, args json.RawMessage) (any, error) {
	var params struct {
		workspaceArgs
		DecisionID int64 `json:"decision_id"`
	}
	if err := json.Unmarshal(args, &params); err != nil {
		return nil, fmt.Errorf("parse args: %w", err)
	}
	if err := h.service.DeleteDecision(ctx, h.resolve(params.Workspace), params.DecisionID); err != nil {
		return nil, err
	}
	return map[string]any{"deleted": true, "decision_id": params.DecisionID}, nil
}

func (h *ToolHandler) logProgress(ctx context.Context, args json.RawMessage) (any, error) {
	var params struct {
		workspaceArgs
		Status      string `json:"status"`
		Description string `json:"description"`
		ParentID    *int64 `json:"parent_id"`
	}
	if err := json.Unmarshal(args, &params); err != nil {
		return nil, fmt.Errorf("parse args: %w", err)
	}
	return h.service.AddProgress(ctx, h.resolve(params.Workspace),
		params.Status, params.Description, params.ParentID)
}

func (h *ToolHandler) getProgress(ctx context.Context, args json.RawMessage) (any, error) {
	var params struct {
		workspaceArgs
		StatusFilter   string `json:"status_filter"`
		ParentIDFilter *int64 `json:"parent_id_filter"`
		Limit          int    `json:"limit"`
	}
	if len(args) > 0 {
		if err := json.Unmarshal(args, &params); err != nil {
			return nil, fmt.Errorf("parse args: %w", err)
		}
	}
	return h.service.GetProgressEntries(ctx, h.resolve(params.Workspace),
		params.Limit, params.StatusFilter, params.ParentIDFilter)
}

func (h *ToolHandler) updateProgress(ctx context.Context, args json.RawMessage) (any, error) {
	var params struct {
		workspaceArgs
		ProgressID  int64   `json:"progress_id"`
		Status      *string `json:"status"`
		Description *string `json:"description"`
		ParentID    *int64  `json:"parent_id"`
	}
	if err := json.Unmarshal(args, &params); err != nil {
		return nil, fmt.Errorf("parse args: %w", err)
	}
	return h.service.UpdateProgress(ctx, h.resolve(params.Workspace), params.ProgressID,
		store.ProgressUpdate{
			Status:      params.Status,
			Description: params.Description,
			ParentID:    params.ParentID,
		})
}

func (h *ToolHandler) deleteProgress(ctx context.Context, args json.RawMessage) (any, error) {
	var params struct {
		workspaceArgs
		ProgressID int64 `json:"progress_id"`
	}
	if err := json.Unmarshal(args, &params); err != nil {
		return nil, fmt.Errorf("parse args: %w", err)
	}
	if err := h.service.DeleteProgress(ctx, h.resolve(params.Workspace), params.ProgressID); err != nil {
		return nil, err
	}
	return map[string]any{"deleted": true, "progress_id": params.ProgressID}, nil
}

func (h *ToolHandler) logSystemPattern(ctx context.Context, args json.RawMessage) (any, error) {
	var params struct {
		workspaceArgs
		Name        string   `json:"name"`
		Description string   `json:"description"`
		Tags        []string `json:"tags"`
	}
	if err := json.Unmarshal(args, &params); err != nil {
		return nil, fmt.Errorf("parse args: %w", err)
	}
	return h.service.UpsertSystemPattern(ctx, h.resolve(params.Workspace),
		params.Name, params.Description, params.Tags)
}

func (h *ToolHandler) getSystemPatterns(ctx context.Context, args json.RawMessage) (any, error) {
	var params struct {
		workspaceArgs
		AnyTags []string `json:"tags_filter_include_any"`
		AllTags []string `json:"tags_filter_include_all"`
	}
	if len(args) > 0 {
		if err := json.Unmarshal(args, &params); err != nil {
			return nil, fmt.Errorf("parse args: %w", err)
		}
	}

	filter, err := tagFilter(params.AnyTags, params.AllTags)
	if err != nil {
		return nil, err
	}
	return h.service.GetSystemPatterns(ctx, h.resolve(params.Workspace), filter)
}

func (h *ToolHandler) deleteSystemPattern(ctx context.Context, args json.RawMessage) (any, error) {
	var params struct {
		workspaceArgs
		PatternID int64 `json:"pattern_id"`
	}
	if err := json.Unmarshal(args, &params); err != nil {
		return nil, fmt.Errorf("parse args: %w", err)
	}
	if err := h.service.DeleteSystemPattern(ctx, h.resolve(params.Workspace), params.PatternID); err != nil {
		return nil, err
	}
	return map[string]any{"deleted": true, "pattern_id": params.PatternID}, nil
}

func (h *ToolHandler) logCustomData(ctx context.Context, args json.RawMessage) (any, error) {
	var params struct {
		workspaceArgs
		Category string          `json:"category"`
		Key      string          `json:"key"`
		Value    json.RawMessage `json:"value"`
		Tags     []string        `json:"tags"`
	}
	if err := json.Unmarshal(args, &params); err != nil {
		return nil, fmt.Errorf("parse args: %w", err)
	}
	return h.service.UpsertCustomData(ctx, h.resolve(params.Workspace),
		params.Category, params.Key, params.Value, params.Tags)
}

func (h *ToolHandler) getCustomData(ctx context.Context, args json.RawMessage) (any, error) {
	var params struct {
		workspaceArgs
		Category string   `json:"category"`
		Key      string   `json:"key"`
		AnyTags  []string `json:"tags_filter_include_any"`
		AllTags  []string `json:"tags_filter_include_all"`
	}
	if len(args) > 0 {
		if err := json.Unmarshal(args, &params); err != nil {
			return nil, fmt.Errorf("parse args: %w", err)
		}
	}

	workspace := h.resolve(params.Workspace)
	if params.Key != "" {
		if params.Category == "" {
			return nil, fmt.Errorf("category is required when key is given")
		}
		if params.AnyTags != nil || params.AllTags != nil {
			return nil, fmt.Errorf("tag filters do not apply to a single-key lookup")
		}
		return h.service.GetCustomData(ctx, workspace, params.Category, params.Key)
	}

	filter, err := tagFilter(params.AnyTags, params.AllTags)
	if err != nil {
		return nil, err
	}
	return h.service.ListCustomData(ctx, workspace, params.Category, filter)
}

func (h *ToolHandler) deleteCustomData(ctx context.Context, args json.RawMessage) (any, error) {
	var params struct {
		workspaceArgs
		Category string `json:"category"`
		Key      string `json:"key"`
	}
	if err := json.Unmarshal(args, &params); err != nil {
		return nil, fmt.Errorf("parse args: %w", err)
	}
	if err := h.service.DeleteCustomData(ctx, h.resolve(params.Workspace), params.Category, params.Key); err != nil {
		return nil, err
	}
	return map[string]any{"deleted": true, "category": params.Category, "key": params.Key}, nil
}

func (h *ToolHandler) searchCustomData(ctx context.Context, args json.RawMessage) (any, error) {
	var params struct {
		workspaceArgs
		QueryTerm      string `json:"query_term"`
		CategoryFilter string `json:"category_filter"`
		Limit          int    `json:"limit"`
	}
	if err := json.Unmarshal(args, &params); err != nil {
		return nil, fmt.Errorf("parse args: %w", err)
	}
	return h.service.SearchCustomData(ctx, h.resolve(params.Workspace),
		params.QueryTerm, params.CategoryFilter, params.Limit)
}

func (h *ToolHandler) getRecentActivity(ctx context.Context, args json.RawMessage) (any, error) {
	var params struct {
		workspaceArgs
		HoursAgo     int `json:"hours_ago"`
		LimitPerType int `json:"limit_per_type"`
	}
	if len(args) > 0 {
		if err := json.Unmarshal(args, &params); err != nil {
			return nil, fmt.Errorf("parse args: %w", err)
		}
	}
	return h.service.GetRecentActivity(ctx, h.resolve(params.Workspace),
		params.HoursAgo, params.LimitPerType)
}

func (h *ToolHandler) semanticSearch(ctx context.Context, args json.RawMessage) (any, error) {
	var params struct {
		workspaceArgs
		QueryText       string   `json:"query_text"`
		TopK            int      `json:"top_k"`
		FilterItemTypes []string `json:"filter_item_types"`
	}
	if err := json.Unmarshal(args, &params); err != nil {
		return nil, fmt.Errorf("parse args: %w", err)
	}

	matches, err := h.service.SearchSemantic(ctx, h.resolve(params.Workspace),
		params.QueryText, params.TopK, params.FilterItemTypes)
	if err != nil {
		return nil, err
	}
	return map[string]any{"matches": matches, "count": len(matches)}, nil
}

func (h *ToolHandler) linkItems(ctx context.Context, args json.RawMessage) (any, error) {
	var params struct {
		workspaceArgs
		SourceItemType   string `json:"source_item_type"`
		SourceItemID     string `json:"source_item_id"`
		TargetItemType   string `json:"target_item_type"`
		TargetItemID     string `json:"target_item_id"`
		RelationshipType string `json:"relationship_type"`
		Description      string `json:"description"`
	}
	if err := json.Unmarshal(args, &params); err != nil {
		return nil, fmt.Errorf("parse args: %w", err)
	}
	return h.service.LinkItems(ctx, h.resolve(params.Workspace), store.ContextLink{
		SourceItemType:   params.SourceItemType,
		SourceItemID:     params.SourceItemID,
		TargetItemType:   params.TargetItemType,
		TargetItemID:     params.TargetItemID,
		RelationshipType: params.RelationshipType,
		Description:      params.Description,
	})
}

func (h *ToolHandler) getLinkedItems(ctx context.Context, args json.RawMessage) (any, error) {
	var params struct {
		workspaceArgs
		ItemType               string `json:"item_type"`
		ItemID                 string `json:"item_id"`
		RelationshipTypeFilter string `json:"relationship_type_filter"`
		Limit                  int    `json:"limit"`
	}
	if err := json.Unmarshal(args, &params); err != nil {
		return nil, fmt.Errorf("parse args: %w", err)
	}
	return h.service.GetLinkedItems(ctx, h.resolve(params.Workspace),
		params.ItemType, params.ItemID, params.RelationshipTypeFilter, params.Limit)
}
