// Package resolve implements the context-resolution engine: deciding which
// stored entries apply to a tab's current page and field, ranking them, and
// keeping that answer fresh under high-frequency browser events.
package resolve

import "net/url"

// PageContext is the situational key a resolution is computed against. One
// lives per tab; navigation replaces it wholesale and field interactions
// update the selector component.
type PageContext struct {
	URL      string `json:"url"`
	Origin   string `json:"origin"`
	Pathname string `json:"pathname"`
	// Selector is a stable structural locator for the focused field, empty
	// when no field is relevant.
	Selector string `json:"selector,omitempty"`
}

// IsZero reports whether no page context is known.
func (pc PageContext) IsZero() bool {
	return pc.URL == "" && pc.Origin == "" && pc.Pathname == "" && pc.Selector == ""
}

// ContextFromURL derives a selector-less PageContext from a raw URL. An
// unparseable URL yields a context carrying only the raw string, which can
// still satisfy exact-URL entries.
func ContextFromURL(raw string) PageContext {
	pc := PageContext{URL: raw}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" {
		return pc
	}
	pc.Origin = u.Scheme + "://" + u.Host
	pc.Pathname = u.Path
	if pc.Pathname == "" {
		pc.Pathname = "/"
	}
	return pc
}
