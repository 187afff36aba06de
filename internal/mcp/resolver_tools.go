package mcp

import (
	"context"
	"fmt"

	"fieldvault-mcp-server/internal/resolve"
)

// QueryMatchesTool is the on-demand resolution path used by the side panel.
type QueryMatchesTool struct {
	resolver *resolve.Coordinator
}

func (t *QueryMatchesTool) Name() string { return "query-matches" }
func (t *QueryMatchesTool) Description() string {
	return `Resolve which stored entries apply to a tab's current context.

Runs a full resolution against the cached entry snapshot: the unordered
match set, ranked quick slots (max 10), grouped floating-menu sections,
and whether predictive field tracking is worthwhile on this page.

A tab with no reported context yields an empty result, not an error.

Returns: {tab_id, result: {matches, quick_slots, sections, predictive_tracking_needed}}.`
}
func (t *QueryMatchesTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"tab_id": map[string]interface{}{"type": "string", "description": "Tab to resolve"},
		},
		"required": []string{"tab_id"},
	}
}
func (t *QueryMatchesTool) Execute(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	tabID := getStringArg(args, "tab_id")
	if tabID == "" {
		return nil, fmt.Errorf("tab_id is required")
	}
	result, err := t.resolver.Query(ctx, tabID)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"tab_id": tabID, "result": result}, nil
}

// ReportPageTool lets collaborators without the CDP feed report navigations.
type ReportPageTool struct {
	resolver *resolve.Coordinator
}

func (t *ReportPageTool) Name() string { return "report-page" }
func (t *ReportPageTool) Description() string {
	return `Report that a tab finished navigating to a URL.

Updates the tab's page context (preserving a known field selector when
origin and pathname are unchanged) and triggers a resolve + publish cycle.

Returns: {tab_id, status}.`
}
func (t *ReportPageTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"tab_id": map[string]interface{}{"type": "string", "description": "Navigated tab"},
			"url":    map[string]interface{}{"type": "string", "description": "New location"},
		},
		"required": []string{"tab_id", "url"},
	}
}
func (t *ReportPageTool) Execute(_ context.Context, args map[string]interface{}) (interface{}, error) {
	tabID := getStringArg(args, "tab_id")
	url := getStringArg(args, "url")
	if tabID == "" || url == "" {
		return nil, fmt.Errorf("tab_id and url are required")
	}
	t.resolver.OnTabNavigated(tabID, url)
	return map[string]interface{}{"tab_id": tabID, "status": "reported"}, nil
}

// ReportFieldTool reports a field hover/focus with its full page context.
type ReportFieldTool struct {
	resolver *resolve.Coordinator
}

func (t *ReportFieldTool) Name() string { return "report-field" }
func (t *ReportFieldTool) Description() string {
	return `Report a field interaction (hover or focus) in a tab.

Replaces the tab's page context wholesale, including the field selector.
Identical consecutive selectors are deduplicated before any resolution
work, so calling this at high frequency is safe.

Returns: {tab_id, status}.`
}
func (t *ReportFieldTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"tab_id":   map[string]interface{}{"type": "string", "description": "Tab containing the field"},
			"url":      map[string]interface{}{"type": "string", "description": "Current location"},
			"selector": map[string]interface{}{"type": "string", "description": "Stable structural selector of the field"},
		},
		"required": []string{"tab_id", "url", "selector"},
	}
}
func (t *ReportFieldTool) Execute(_ context.Context, args map[string]interface{}) (interface{}, error) {
	tabID := getStringArg(args, "tab_id")
	url := getStringArg(args, "url")
	selector := getStringArg(args, "selector")
	if tabID == "" || url == "" || selector == "" {
		return nil, fmt.Errorf("tab_id, url and selector are required")
	}

	pc := resolve.ContextFromURL(url)
	pc.Selector = selector
	t.resolver.OnFieldInteraction(tabID, pc)
	return map[string]interface{}{"tab_id": tabID, "status": "reported"}, nil
}

type CloseTabTool struct {
	resolver *resolve.Coordinator
}

func (t *CloseTabTool) Name() string { return "close-tab" }
func (t *CloseTabTool) Description() string {
	return `Discard a closed tab's context and cached results.

Returns: {tab_id, status}.`
}
func (t *CloseTabTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"tab_id": map[string]interface{}{"type": "string", "description": "Closed tab"},
		},
		"required": []string{"tab_id"},
	}
}
func (t *CloseTabTool) Execute(_ context.Context, args map[string]interface{}) (interface{}, error) {
	tabID := getStringArg(args, "tab_id")
	if tabID == "" {
		return nil, fmt.Errorf("tab_id is required")
	}
	t.resolver.OnTabClosed(tabID)
	return map[string]interface{}{"tab_id": tabID, "status": "closed"}, nil
}

// GetQuickSlotsTool serves the compact context-menu view from the last
// published resolution, without forcing a fresh resolve.
type GetQuickSlotsTool struct {
	resolver *resolve.Coordinator
}

func (t *GetQuickSlotsTool) Name() string { return "get-quick-slots" }
func (t *GetQuickSlotsTool) Description() string {
	return `Read the last published quick slots for a tab.

Serves the cached result of the most recent resolve + publish cycle; use
query-matches when a fresh resolution is required.

Returns: {tab_id, quick_slots: [{entry, title}]}.`
}
func (t *GetQuickSlotsTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"tab_id": map[string]interface{}{"type": "string", "description": "Tab to read"},
		},
		"required": []string{"tab_id"},
	}
}
func (t *GetQuickSlotsTool) Execute(_ context.Context, args map[string]interface{}) (interface{}, error) {
	tabID := getStringArg(args, "tab_id")
	if tabID == "" {
		return nil, fmt.Errorf("tab_id is required")
	}
	result, ok := t.resolver.LastResult(tabID)
	if !ok {
		return map[string]interface{}{"tab_id": tabID, "quick_slots": []resolve.QuickSlot{}}, nil
	}
	return map[string]interface{}{"tab_id": tabID, "quick_slots": result.QuickSlots}, nil
}
