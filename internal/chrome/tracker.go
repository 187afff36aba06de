// Package chrome feeds live tab events from a running Chrome into the
// resolver: navigations, field interactions, and tab closures, observed
// over CDP via Rod.
package chrome

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"fieldvault-mcp-server/internal/config"
	"fieldvault-mcp-server/internal/resolve"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// EventSink is the minimal interface the tracker needs from the resolver.
type EventSink interface {
	OnTabNavigated(tabID, url string)
	OnFieldInteraction(tabID string, pc resolve.PageContext)
	OnTabClosed(tabID string)
}

// Tracker attaches to a Chrome instance and mirrors its tabs into the sink.
type Tracker struct {
	cfg  config.BrowserConfig
	sink EventSink

	mu      sync.Mutex
	browser *rod.Browser
	pages   map[proto.TargetTargetID]*rod.Page
}

// NewTracker creates a tracker bound to the given sink.
func NewTracker(cfg config.BrowserConfig, sink EventSink) *Tracker {
	return &Tracker{
		cfg:   cfg,
		sink:  sink,
		pages: make(map[proto.TargetTargetID]*rod.Page),
	}
}

// Start connects to the configured debugger endpoint and begins streaming
// tab events. Existing tabs are reported immediately; new tabs are picked
// up as Chrome announces them.
func (t *Tracker) Start(ctx context.Context) error {
	if t.cfg.DebuggerURL == "" {
		return errors.New("browser.debugger_url is required for the tab feed")
	}

	browser := rod.New().ControlURL(t.cfg.DebuggerURL).Context(ctx)
	connectErr := make(chan error, 1)
	go func() { connectErr <- browser.Connect() }()
	select {
	case err := <-connectErr:
		if err != nil {
			return fmt.Errorf("connect to chrome: %w", err)
		}
	case <-time.After(t.cfg.AttachTimeout()):
		return fmt.Errorf("connect to chrome: no response from %s within %s", t.cfg.DebuggerURL, t.cfg.AttachTimeout())
	case <-ctx.Done():
		return ctx.Err()
	}
	t.mu.Lock()
	t.browser = browser
	t.mu.Unlock()

	pages, err := browser.Pages()
	if err != nil {
		return fmt.Errorf("list pages: %w", err)
	}
	for _, page := range pages {
		t.trackPage(ctx, page)
	}

	go browser.EachEvent(
		func(ev *proto.TargetTargetCreated) {
			if ev.TargetInfo.Type != proto.TargetTargetInfoTypePage {
				return
			}
			page, err := browser.PageFromTarget(ev.TargetInfo.TargetID)
			if err != nil {
				log.Printf("attach to new tab %s: %v", ev.TargetInfo.TargetID, err)
				return
			}
			t.trackPage(ctx, page)
		},
		func(ev *proto.TargetTargetDestroyed) {
			t.mu.Lock()
			_, known := t.pages[ev.TargetID]
			delete(t.pages, ev.TargetID)
			t.mu.Unlock()
			if known {
				t.sink.OnTabClosed(string(ev.TargetID))
			}
		},
	)()

	log.Printf("chrome tab feed connected at %s", t.cfg.DebuggerURL)
	return nil
}

// Shutdown detaches from the browser, leaving it running: the Chrome we
// attached to belongs to the user. No CDP command is issued; the connection
// and event goroutines are torn down by context cancellation.
func (t *Tracker) Shutdown() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pages = make(map[proto.TargetTargetID]*rod.Page)
	t.browser = nil
	return nil
}

func (t *Tracker) trackPage(ctx context.Context, page *rod.Page) {
	tabID := string(page.TargetID)

	t.mu.Lock()
	if _, dup := t.pages[page.TargetID]; dup {
		t.mu.Unlock()
		return
	}
	t.pages[page.TargetID] = page
	t.mu.Unlock()

	// Report where the tab already is.
	if info, err := page.Info(); err == nil && info.URL != "" {
		t.sink.OnTabNavigated(tabID, info.URL)
	}

	waitNav := page.Context(ctx).EachEvent(func(ev *proto.PageFrameNavigated) {
		if ev.Frame.ParentID != "" {
			// Sub-frame navigations do not move the tab.
			return
		}
		t.sink.OnTabNavigated(tabID, ev.Frame.URL)
	})
	go waitNav()

	go t.pollFieldEvents(ctx, tabID, page)
}

// pollFieldEvents installs the in-page interaction hook and drains its
// buffer on a fixed cadence. The hook is re-applied every tick because a
// navigation discards the previous document's listeners; the guard flag
// makes re-application a no-op on an already-hooked document.
func (t *Tracker) pollFieldEvents(ctx context.Context, tabID string, page *rod.Page) {
	ticker := time.NewTicker(t.cfg.FieldPollInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.mu.Lock()
			_, alive := t.pages[page.TargetID]
			t.mu.Unlock()
			if !alive {
				return
			}

			_, _ = page.Context(ctx).Evaluate(&rod.EvalOptions{
				JS:           fieldHookJS,
				ByValue:      true,
				AwaitPromise: true,
			})

			res, err := page.Context(ctx).Evaluate(&rod.EvalOptions{
				JS: `
				() => {
					const buf = Array.isArray(window.__fieldvaultFields) ? window.__fieldvaultFields : [];
					window.__fieldvaultFields = [];
					return buf;
				}
				`,
				ByValue:      true,
				AwaitPromise: true,
			})
			if err != nil || res == nil || res.Value.Nil() {
				continue
			}
			raw, err := res.Value.MarshalJSON()
			if err != nil {
				continue
			}
			var events []struct {
				Selector string `json:"selector"`
				URL      string `json:"url"`
			}
			if err := json.Unmarshal(raw, &events); err != nil {
				continue
			}

			for _, ev := range events {
				if ev.Selector == "" {
					continue
				}
				pc := resolve.ContextFromURL(ev.URL)
				pc.Selector = ev.Selector
				t.sink.OnFieldInteraction(tabID, pc)
			}
		}
	}
}

// fieldHookJS installs focus and hover listeners that compute a stable
// structural selector for form fields and buffer reports for the poller.
const fieldHookJS = `
() => {
	const w = window;
	if (w.__fieldvaultHooked) return true;
	w.__fieldvaultHooked = true;
	w.__fieldvaultFields = [];

	const selectorFor = (el) => {
		if (!el || !el.tagName) return '';
		if (el.id) return '#' + el.id;
		const tag = el.tagName.toLowerCase();
		if (el.name) return tag + '[name="' + el.name + '"]';

		const parts = [];
		let node = el;
		while (node && node.tagName && parts.length < 5) {
			if (node.id) {
				parts.unshift('#' + node.id);
				break;
			}
			let part = node.tagName.toLowerCase();
			const parent = node.parentElement;
			if (parent) {
				const peers = Array.from(parent.children).filter(c => c.tagName === node.tagName);
				if (peers.length > 1) part += ':nth-of-type(' + (peers.indexOf(node) + 1) + ')';
			}
			parts.unshift(part);
			node = parent;
		}
		return parts.join(' > ');
	};

	const isField = (el) => {
		if (!el || !el.tagName) return false;
		const tag = el.tagName;
		return tag === 'INPUT' || tag === 'TEXTAREA' || tag === 'SELECT' || el.isContentEditable === true;
	};

	const report = (el) => {
		try {
			if (!isField(el)) return;
			const sel = selectorFor(el);
			if (!sel) return;
			w.__fieldvaultFields.push({ selector: sel, url: location.href, ts: Date.now() });
		} catch (e) {}
	};

	document.addEventListener('focusin', (ev) => report(ev.target), true);
	document.addEventListener('mouseover', (ev) => report(ev.target), true);
	return true;
}
`
