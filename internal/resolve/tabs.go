package resolve

import "sync"

// TabTracker keeps the last-known PageContext per tab. Contexts are never
// shared across tabs; entries are the only cross-tab data.
type TabTracker struct {
	mu   sync.RWMutex
	tabs map[string]PageContext
}

// NewTabTracker returns an empty tracker.
func NewTabTracker() *TabTracker {
	return &TabTracker{tabs: make(map[string]PageContext)}
}

// SetFromNavigation installs a fresh context derived from the URL alone.
// When the new origin and pathname equal the prior ones for the tab the
// existing selector is preserved: hash changes and SPA re-renders must not
// erase an already-known field.
func (t *TabTracker) SetFromNavigation(tabID, rawURL string) PageContext {
	pc := ContextFromURL(rawURL)

	t.mu.Lock()
	defer t.mu.Unlock()
	if prior, ok := t.tabs[tabID]; ok {
		if prior.Origin == pc.Origin && prior.Pathname == pc.Pathname {
			pc.Selector = prior.Selector
		}
	}
	t.tabs[tabID] = pc
	return pc
}

// SetFromInteraction replaces the tab's context wholesale with a complete
// report that includes the field selector.
func (t *TabTracker) SetFromInteraction(tabID string, pc PageContext) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.tabs[tabID] = pc
}

// Get returns the tab's context when known.
func (t *TabTracker) Get(tabID string) (PageContext, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	pc, ok := t.tabs[tabID]
	return pc, ok
}

// Remove discards a tab's context on closure.
func (t *TabTracker) Remove(tabID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.tabs, tabID)
}

// TabIDs returns the tracked tab identifiers.
func (t *TabTracker) TabIDs() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	ids := make([]string, 0, len(t.tabs))
	for id := range t.tabs {
		ids = append(ids, id)
	}
	return ids
}
