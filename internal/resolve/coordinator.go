package resolve

import (
	"context"
	"errors"
	"log"
	"sync"

	"fieldvault-mcp-server/internal/entry"
)

// ErrStopped indicates the coordinator event loop is no longer running.
var ErrStopped = errors.New("resolver stopped")

// Event is the closed set of inbound signals the coordinator handles. Each
// variant corresponds to one collaborator-facing operation; dispatch is an
// exhaustive type switch instead of string comparison.
type Event interface{ isEvent() }

// EntriesChanged reports a mutation of the durable entry collection.
type EntriesChanged struct{ Entries []entry.Entry }

// TabNavigated reports a completed navigation in a tab.
type TabNavigated struct {
	TabID string
	URL   string
}

// FieldInteraction reports a field hover/focus with a complete page context.
type FieldInteraction struct {
	TabID   string
	Context PageContext
}

// TabClosed reports a tab closure.
type TabClosed struct{ TabID string }

type explicitQuery struct {
	tabID string
	reply chan Result
}

func (EntriesChanged) isEvent()   {}
func (TabNavigated) isEvent()     {}
func (FieldInteraction) isEvent() {}
func (TabClosed) isEvent()        {}
func (explicitQuery) isEvent()    {}

// Publisher receives freshly computed resolutions for a tab. Implementations
// fan the result out to presentation collaborators (quick slots to the
// context menu, sections to the floating menu, the full result to the side
// panel).
type Publisher interface {
	PublishResolution(tabID string, result Result)
}

// Tracer is the minimal interface the coordinator needs from the decision
// recorder.
type Tracer interface {
	Log(eventType, tabID string, data interface{})
}

// Coordinator owns all mutable resolver state: the entry cache, the per-tab
// context map, and the last published result per tab. Every mutation flows
// through its single event loop, so handlers never race each other; a
// storage invalidation is visible to any resolution enqueued after it.
type Coordinator struct {
	cache     *Cache
	tabs      *TabTracker
	publisher Publisher
	trace     Tracer

	events chan Event
	// done is closed when the Run loop exits; queries fail fast with
	// ErrStopped instead of waiting on a reply that will never come.
	done chan struct{}

	mu   sync.RWMutex
	last map[string]Result
}

// NewCoordinator wires the resolver state. publisher and trace may be nil.
func NewCoordinator(publisher Publisher, trace Tracer) *Coordinator {
	return &Coordinator{
		cache:     NewCache(),
		tabs:      NewTabTracker(),
		publisher: publisher,
		trace:     trace,
		events:    make(chan Event, 64),
		done:      make(chan struct{}),
		last:      make(map[string]Result),
	}
}

// SetPublisher installs the publish target. Call before Run starts; the
// MCP server is constructed after the coordinator it serves.
func (c *Coordinator) SetPublisher(p Publisher) {
	c.publisher = p
}

// Run processes events until the context is cancelled. Exactly one Run loop
// may be active per coordinator.
func (c *Coordinator) Run(ctx context.Context) {
	defer close(c.done)
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-c.events:
			c.handle(ev)
		}
	}
}

// OnEntriesChanged enqueues a durable-storage mutation signal.
func (c *Coordinator) OnEntriesChanged(entries []entry.Entry) {
	c.events <- EntriesChanged{Entries: entries}
}

// OnTabNavigated enqueues a completed navigation.
func (c *Coordinator) OnTabNavigated(tabID, url string) {
	c.events <- TabNavigated{TabID: tabID, URL: url}
}

// OnFieldInteraction enqueues a field hover/focus report.
func (c *Coordinator) OnFieldInteraction(tabID string, pc PageContext) {
	c.events <- FieldInteraction{TabID: tabID, Context: pc}
}

// OnTabClosed enqueues a tab closure.
func (c *Coordinator) OnTabClosed(tabID string) {
	c.events <- TabClosed{TabID: tabID}
}

// Query resolves the tab's current context on demand and returns the full
// result. A tab with no known context yields an empty result; a stopped
// coordinator returns ErrStopped.
func (c *Coordinator) Query(ctx context.Context, tabID string) (Result, error) {
	reply := make(chan Result, 1)
	select {
	case c.events <- explicitQuery{tabID: tabID, reply: reply}:
	case <-c.done:
		return Result{}, ErrStopped
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
	select {
	case result := <-reply:
		return result, nil
	case <-c.done:
		return Result{}, ErrStopped
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

// LastResult returns the most recently published result for a tab.
func (c *Coordinator) LastResult(tabID string) (Result, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	result, ok := c.last[tabID]
	return result, ok
}

// CacheValid reports whether an entry snapshot has been installed.
func (c *Coordinator) CacheValid() bool {
	return c.cache.Valid()
}

func (c *Coordinator) handle(ev Event) {
	switch ev := ev.(type) {
	case EntriesChanged:
		c.cache.Invalidate(ev.Entries)
		c.record("entries_changed", "", map[string]interface{}{"count": len(ev.Entries)})
		// Presentation is re-broadcast for every tab after an
		// invalidation so no tab keeps serving the pre-change snapshot.
		for _, tabID := range c.tabs.TabIDs() {
			if pc, ok := c.tabs.Get(tabID); ok {
				c.resolveAndPublish(tabID, pc)
			}
		}

	case TabNavigated:
		pc := c.tabs.SetFromNavigation(ev.TabID, ev.URL)
		c.record("tab_navigated", ev.TabID, map[string]interface{}{"url": ev.URL})
		c.resolveAndPublish(ev.TabID, pc)

	case FieldInteraction:
		// Identical consecutive selectors short-circuit before any
		// resolution work; this bounds work under rapid mouse movement.
		if prior, ok := c.tabs.Get(ev.TabID); ok {
			if prior.Selector != "" && prior.Selector == ev.Context.Selector {
				return
			}
		}
		c.tabs.SetFromInteraction(ev.TabID, ev.Context)
		c.record("field_interaction", ev.TabID, map[string]interface{}{"selector": ev.Context.Selector})
		c.resolveAndPublish(ev.TabID, ev.Context)

	case TabClosed:
		c.tabs.Remove(ev.TabID)
		c.mu.Lock()
		delete(c.last, ev.TabID)
		c.mu.Unlock()
		c.record("tab_closed", ev.TabID, nil)

	case explicitQuery:
		pc, ok := c.tabs.Get(ev.tabID)
		if !ok {
			ev.reply <- Result{}
			return
		}
		ev.reply <- Resolve(pc, c.cache.Get())

	default:
		log.Printf("resolver: unhandled event %T", ev)
	}
}

func (c *Coordinator) resolveAndPublish(tabID string, pc PageContext) {
	result := Resolve(pc, c.cache.Get())

	c.mu.Lock()
	c.last[tabID] = result
	c.mu.Unlock()

	c.record("resolution", tabID, map[string]interface{}{
		"matches":             len(result.Matches),
		"quick_slots":         len(result.QuickSlots),
		"predictive_tracking": result.PredictiveTrackingNeeded,
	})
	if c.publisher != nil {
		c.publisher.PublishResolution(tabID, result)
	}
}

func (c *Coordinator) record(eventType, tabID string, data interface{}) {
	if c.trace != nil {
		c.trace.Log(eventType, tabID, data)
	}
}
