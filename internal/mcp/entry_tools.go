package mcp

import (
	"context"
	"fmt"

	"fieldvault-mcp-server/internal/entry"
	"fieldvault-mcp-server/internal/shortcut"

	"gopkg.in/yaml.v3"
)

type ListEntriesTool struct {
	store *entry.Store
}

func (t *ListEntriesTool) Name() string { return "list-entries" }
func (t *ListEntriesTool) Description() string {
	return `List every stored entry with its context type and key.

WHEN TO USE:
- Rendering the side panel's full entry list
- Finding an entry id before save-entry or delete-entry

Returns: Array of {id, value, label, context_type, context_key, shortcut, order, created_at}.`
}
func (t *ListEntriesTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type":       "object",
		"properties": map[string]interface{}{},
	}
}
func (t *ListEntriesTool) Execute(_ context.Context, _ map[string]interface{}) (interface{}, error) {
	entries, err := t.store.List()
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"entries": entries, "count": len(entries)}, nil
}

type SaveEntryTool struct {
	store *entry.Store
}

func (t *SaveEntryTool) Name() string { return "save-entry" }
func (t *SaveEntryTool) Description() string {
	return `Create or update a stored entry.

Omit "id" to create; pass an existing id to update in place.

CONTEXT TYPES:
- fieldOnly:  context_key is a selector, or origin|pathname|selector
- url:        context_key is an exact URL
- domain:     context_key is an exact origin (scheme://host)
- all:        matches everywhere, context_key ignored
- urlPattern: context_key is a glob over the URL (or a selector composite)

Shortcuts are normalized (e.g. "Shift + Ctrl+K" -> "ctrl+shift+k") and must
be unique across entries; a collision fails the call.

Returns: {entry} as stored.`
}
func (t *SaveEntryTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"id":           map[string]interface{}{"type": "string", "description": "Entry id to update; omit to create"},
			"value":        map[string]interface{}{"type": "string", "description": "Text payload applied into a field"},
			"label":        map[string]interface{}{"type": "string", "description": "Optional display override"},
			"context_type": map[string]interface{}{"type": "string", "description": "fieldOnly | url | domain | all | urlPattern"},
			"context_key":  map[string]interface{}{"type": "string", "description": "Strategy-specific key"},
			"shortcut":     map[string]interface{}{"type": "string", "description": "Optional key combo, e.g. ctrl+shift+1"},
			"order":        map[string]interface{}{"type": "integer", "description": "Optional explicit sort position"},
		},
		"required": []string{"value", "context_type"},
	}
}
func (t *SaveEntryTool) Execute(_ context.Context, args map[string]interface{}) (interface{}, error) {
	e := entry.Entry{
		ID:          getStringArg(args, "id"),
		Value:       getStringArg(args, "value"),
		Label:       getStringArg(args, "label"),
		ContextType: entry.ContextType(getStringArg(args, "context_type")),
		ContextKey:  getStringArg(args, "context_key"),
	}
	if raw := getStringArg(args, "shortcut"); raw != "" {
		normalized, err := shortcut.Normalize(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid shortcut %q: %w", raw, err)
		}
		e.Shortcut = normalized
	}
	if order, ok := getInt64Arg(args, "order"); ok {
		e.Order = &order
	}

	saved, err := t.store.Save(e)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"entry": saved}, nil
}

type DeleteEntryTool struct {
	store *entry.Store
}

func (t *DeleteEntryTool) Name() string { return "delete-entry" }
func (t *DeleteEntryTool) Description() string {
	return `Delete a stored entry by id.

Deletion invalidates the resolver cache; every tab's matches are
re-resolved and re-published automatically.

Returns: {deleted: id}.`
}
func (t *DeleteEntryTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"id": map[string]interface{}{"type": "string", "description": "Entry id to delete"},
		},
		"required": []string{"id"},
	}
}
func (t *DeleteEntryTool) Execute(_ context.Context, args map[string]interface{}) (interface{}, error) {
	id := getStringArg(args, "id")
	if id == "" {
		return nil, fmt.Errorf("id is required")
	}
	if err := t.store.Delete(id); err != nil {
		return nil, err
	}
	return map[string]interface{}{"deleted": id}, nil
}

// ExportEntriesTool serializes the collection to YAML for backup or
// transfer to another machine.
type ExportEntriesTool struct {
	store *entry.Store
}

func (t *ExportEntriesTool) Name() string { return "export-entries" }
func (t *ExportEntriesTool) Description() string {
	return `Export all stored entries as a YAML document.

The output round-trips through import-entries unchanged.

Returns: {yaml, count}.`
}
func (t *ExportEntriesTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type":       "object",
		"properties": map[string]interface{}{},
	}
}
func (t *ExportEntriesTool) Execute(_ context.Context, _ map[string]interface{}) (interface{}, error) {
	entries, err := t.store.List()
	if err != nil {
		return nil, err
	}
	out, err := yaml.Marshal(entries)
	if err != nil {
		return nil, fmt.Errorf("encode entries: %w", err)
	}
	return map[string]interface{}{"yaml": string(out), "count": len(entries)}, nil
}

// ImportEntriesTool loads entries from a YAML document produced by
// export-entries or written by hand.
type ImportEntriesTool struct {
	store *entry.Store
}

func (t *ImportEntriesTool) Name() string { return "import-entries" }
func (t *ImportEntriesTool) Description() string {
	return `Import entries from a YAML document.

Entries with ids replace existing rows; entries without ids are created.
A shortcut collision fails the whole batch before anything is written.

Returns: {imported}.`
}
func (t *ImportEntriesTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"yaml": map[string]interface{}{"type": "string", "description": "YAML array of entries"},
		},
		"required": []string{"yaml"},
	}
}
func (t *ImportEntriesTool) Execute(_ context.Context, args map[string]interface{}) (interface{}, error) {
	raw := getStringArg(args, "yaml")
	if raw == "" {
		return nil, fmt.Errorf("yaml is required")
	}

	var entries []entry.Entry
	if err := yaml.Unmarshal([]byte(raw), &entries); err != nil {
		return nil, fmt.Errorf("parse entries: %w", err)
	}
	for i := range entries {
		if entries[i].Shortcut != "" {
			normalized, err := shortcut.Normalize(entries[i].Shortcut)
			if err != nil {
				return nil, fmt.Errorf("invalid shortcut %q: %w", entries[i].Shortcut, err)
			}
			entries[i].Shortcut = normalized
		}
	}

	count, err := t.store.Import(entries)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"imported": count}, nil
}
