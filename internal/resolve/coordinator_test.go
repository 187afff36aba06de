package resolve

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"fieldvault-mcp-server/internal/entry"
)

// fakePublisher records every published resolution.
type fakePublisher struct {
	mu      sync.Mutex
	results []publishedResult
}

type publishedResult struct {
	tabID  string
	result Result
}

func (p *fakePublisher) PublishResolution(tabID string, result Result) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.results = append(p.results, publishedResult{tabID: tabID, result: result})
}

func (p *fakePublisher) all() []publishedResult {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]publishedResult(nil), p.results...)
}

// fakeTracer records event types seen by the decision trace.
type fakeTracer struct {
	mu    sync.Mutex
	types []string
}

func (tr *fakeTracer) Log(eventType, tabID string, data interface{}) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	tr.types = append(tr.types, eventType)
}

func startCoordinator(t *testing.T, pub Publisher, trace Tracer) *Coordinator {
	t.Helper()
	c := NewCoordinator(pub, trace)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go c.Run(ctx)
	return c
}

// drain waits until every previously enqueued event has been handled by
// issuing a query, which travels the same channel.
func drain(t *testing.T, c *Coordinator) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := c.Query(ctx, "drain-barrier"); err != nil {
		t.Fatalf("drain query failed: %v", err)
	}
}

func TestCoordinatorNavigationPublishes(t *testing.T) {
	pub := &fakePublisher{}
	c := startCoordinator(t, pub, nil)

	c.OnEntriesChanged([]entry.Entry{
		{ID: "d", ContextType: entry.ContextDomain, ContextKey: "https://a.com"},
	})
	c.OnTabNavigated("tab-1", "https://a.com/login")
	drain(t, c)

	published := pub.all()
	if len(published) != 1 {
		t.Fatalf("expected 1 publication, got %d", len(published))
	}
	if published[0].tabID != "tab-1" {
		t.Fatalf("published to %s, want tab-1", published[0].tabID)
	}
	if len(published[0].result.Matches) != 1 || published[0].result.Matches[0].ID != "d" {
		t.Fatalf("published matches = %v", published[0].result.Matches)
	}

	last, ok := c.LastResult("tab-1")
	if !ok || len(last.Matches) != 1 {
		t.Fatalf("LastResult = %+v, ok=%v", last, ok)
	}
}

func TestCoordinatorEntriesChangedRepublishesAllTabs(t *testing.T) {
	pub := &fakePublisher{}
	c := startCoordinator(t, pub, nil)

	c.OnEntriesChanged(nil)
	c.OnTabNavigated("tab-1", "https://a.com/")
	c.OnTabNavigated("tab-2", "https://b.com/")
	drain(t, c)
	before := len(pub.all())

	c.OnEntriesChanged([]entry.Entry{
		{ID: "everywhere", ContextType: entry.ContextAll},
	})
	drain(t, c)

	published := pub.all()[before:]
	if len(published) != 2 {
		t.Fatalf("expected re-publication for both tabs, got %d", len(published))
	}
	seen := map[string]int{}
	for _, p := range published {
		seen[p.tabID] = len(p.result.Matches)
	}
	if seen["tab-1"] != 1 || seen["tab-2"] != 1 {
		t.Fatalf("stale results after invalidation: %v", seen)
	}
}

func TestCoordinatorFieldInteractionDebounce(t *testing.T) {
	pub := &fakePublisher{}
	c := startCoordinator(t, pub, nil)

	c.OnEntriesChanged(nil)
	pc := pageCtx("https://a.com/login", "#user")
	c.OnFieldInteraction("tab-1", pc)
	c.OnFieldInteraction("tab-1", pc)
	c.OnFieldInteraction("tab-1", pc)
	drain(t, c)

	if got := len(pub.all()); got != 1 {
		t.Fatalf("identical selectors should publish once, got %d", got)
	}

	// A different selector is not debounced.
	c.OnFieldInteraction("tab-1", pageCtx("https://a.com/login", "#pass"))
	drain(t, c)
	if got := len(pub.all()); got != 2 {
		t.Fatalf("new selector should publish, got %d publications", got)
	}

	// Returning to the first selector publishes again: only consecutive
	// duplicates are collapsed.
	c.OnFieldInteraction("tab-1", pc)
	drain(t, c)
	if got := len(pub.all()); got != 3 {
		t.Fatalf("revisited selector should publish, got %d publications", got)
	}
}

func TestCoordinatorTabClosed(t *testing.T) {
	pub := &fakePublisher{}
	c := startCoordinator(t, pub, nil)

	c.OnEntriesChanged(nil)
	c.OnTabNavigated("tab-1", "https://a.com/")
	c.OnTabClosed("tab-1")
	drain(t, c)

	if _, ok := c.LastResult("tab-1"); ok {
		t.Fatalf("closed tab should have no retained result")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	result, err := c.Query(ctx, "tab-1")
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(result.Matches) != 0 {
		t.Fatalf("closed tab should resolve empty, got %v", result.Matches)
	}
}

func TestCoordinatorQuery(t *testing.T) {
	c := startCoordinator(t, nil, nil)

	c.OnEntriesChanged([]entry.Entry{
		{ID: "u", ContextType: entry.ContextURL, ContextKey: "https://a.com/login"},
	})
	c.OnTabNavigated("tab-1", "https://a.com/login")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	result, err := c.Query(ctx, "tab-1")
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(result.Matches) != 1 || result.Matches[0].ID != "u" {
		t.Fatalf("Query matches = %v", result.Matches)
	}

	// Unknown tab resolves empty instead of erroring.
	result, err = c.Query(ctx, "never-seen")
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(result.Matches) != 0 {
		t.Fatalf("unknown tab should resolve empty")
	}
}

func TestCoordinatorQueryAfterStop(t *testing.T) {
	c := NewCoordinator(nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	go c.Run(ctx)

	cancel()
	<-c.done

	if _, err := c.Query(context.Background(), "tab-1"); !errors.Is(err, ErrStopped) {
		t.Fatalf("expected ErrStopped, got %v", err)
	}
}

func TestCoordinatorQueryCancelled(t *testing.T) {
	c := NewCoordinator(nil, nil) // no Run loop: the queue never drains

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := c.Query(ctx, "tab-1"); err == nil {
		t.Fatalf("cancelled query should fail")
	}
}

func TestCoordinatorCacheValid(t *testing.T) {
	c := startCoordinator(t, nil, nil)
	if c.CacheValid() {
		t.Fatalf("cache should start invalid")
	}
	c.OnEntriesChanged(nil)
	drain(t, c)
	if !c.CacheValid() {
		t.Fatalf("cache should be valid after the first snapshot")
	}
}

func TestCoordinatorTracing(t *testing.T) {
	trace := &fakeTracer{}
	c := startCoordinator(t, nil, trace)

	c.OnEntriesChanged(nil)
	c.OnTabNavigated("tab-1", "https://a.com/")
	c.OnTabClosed("tab-1")
	drain(t, c)

	trace.mu.Lock()
	defer trace.mu.Unlock()
	seen := map[string]bool{}
	for _, et := range trace.types {
		seen[et] = true
	}
	for _, want := range []string{"entries_changed", "tab_navigated", "resolution", "tab_closed"} {
		if !seen[want] {
			t.Fatalf("trace missing %q, saw %v", want, trace.types)
		}
	}
}
