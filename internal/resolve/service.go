package resolve

import (
	"fmt"

	"fieldvault-mcp-server/internal/entry"
)

const (
	// QuickSlotCap bounds the compact presentation list.
	QuickSlotCap = 10
	// SectionCap bounds each broad section of the floating menu. Field
	// entries are the primary, expected-to-be-few matches and stay
	// uncapped; broader categories need a visible ceiling.
	SectionCap = 5
	// titleLimit is the rune budget for a slot title before the ellipsis.
	titleLimit = 32
)

// QuickSlot is one ranked match with its presentation title.
type QuickSlot struct {
	Entry entry.Entry `json:"entry"`
	Title string      `json:"title"`
}

// Sections groups matches by category for the floating menu.
type Sections struct {
	Field  []entry.Entry `json:"field"`
	URL    []entry.Entry `json:"url"`
	Domain []entry.Entry `json:"domain"`
	Custom []entry.Entry `json:"custom"`
	All    []entry.Entry `json:"all"`
}

// Result is the ranked and grouped output of one resolution. It is
// ephemeral: recomputed on demand and never persisted.
type Result struct {
	Matches    []entry.Entry `json:"matches"`
	QuickSlots []QuickSlot   `json:"quick_slots"`
	Sections   Sections      `json:"sections"`
	// PredictiveTrackingNeeded tells the presentation layer whether field-
	// level interaction events are worth subscribing to on this page.
	PredictiveTrackingNeeded bool `json:"predictive_tracking_needed"`
}

// Resolve computes the full match set for a page context against an entry
// snapshot. An absent context yields an empty result, not an error.
func Resolve(pc PageContext, entries []entry.Entry) Result {
	if pc.IsZero() {
		return Result{}
	}

	var matches []entry.Entry
	for i := range entries {
		if Matches(&entries[i], pc) {
			matches = append(matches, entries[i])
		}
	}

	predictive := false
	for i := range entries {
		if Reachable(&entries[i], pc) {
			predictive = true
			break
		}
	}

	ranked := RankBySpecificity(matches)
	return Result{
		Matches:                  matches,
		QuickSlots:               buildQuickSlots(ranked),
		Sections:                 buildSections(ranked),
		PredictiveTrackingNeeded: predictive,
	}
}

func buildQuickSlots(ranked []entry.Entry) []QuickSlot {
	n := len(ranked)
	if n > QuickSlotCap {
		n = QuickSlotCap
	}
	slots := make([]QuickSlot, 0, n)
	for _, e := range ranked[:n] {
		slots = append(slots, QuickSlot{Entry: e, Title: SlotTitle(e)})
	}
	return slots
}

// SlotTitle renders an entry's presentation title: the label when set, else
// the quoted value (quoted "(empty value)" when both are empty), truncated
// to 32 runes with an ellipsis and suffixed with the shortcut when one is
// assigned.
func SlotTitle(e entry.Entry) string {
	title := e.Label
	if title == "" {
		if e.Value == "" {
			title = `"(empty value)"`
		} else {
			title = fmt.Sprintf("%q", e.Value)
		}
	}
	runes := []rune(title)
	if len(runes) > titleLimit {
		title = string(runes[:titleLimit]) + "…"
	}
	if e.Shortcut != "" {
		title += " (" + e.Shortcut + ")"
	}
	return title
}

// buildSections groups ranked matches. "Field" collects fieldOnly entries
// plus urlPattern entries whose key structurally names a selector: those
// target this exact field rather than the page broadly. Remaining
// urlPattern matches land in "custom".
func buildSections(ranked []entry.Entry) Sections {
	var s Sections
	for _, e := range ranked {
		switch e.ContextType {
		case entry.ContextFieldOnly:
			s.Field = append(s.Field, e)
		case entry.ContextURL:
			s.URL = appendCapped(s.URL, e)
		case entry.ContextDomain:
			s.Domain = appendCapped(s.Domain, e)
		case entry.ContextAll:
			s.All = appendCapped(s.All, e)
		case entry.ContextURLPattern:
			if e.ParsedKey().CarriesSelector() {
				s.Field = append(s.Field, e)
			} else {
				s.Custom = appendCapped(s.Custom, e)
			}
		}
	}
	return s
}

func appendCapped(list []entry.Entry, e entry.Entry) []entry.Entry {
	if len(list) >= SectionCap {
		return list
	}
	return append(list, e)
}
