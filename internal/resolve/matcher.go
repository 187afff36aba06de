package resolve

import "fieldvault-mcp-server/internal/entry"

// Matches reports whether a stored entry applies to the given page context.
// It is pure and total: malformed keys and pattern failures degrade to
// non-match, never to an error.
func Matches(e *entry.Entry, pc PageContext) bool {
	if pc.IsZero() {
		return e.ContextType == entry.ContextAll
	}

	key := e.ParsedKey()
	switch e.ContextType {
	case entry.ContextAll:
		return true
	case entry.ContextURL:
		return key.Kind == entry.KindExactURL && key.Literal == pc.URL
	case entry.ContextDomain:
		return key.Kind == entry.KindExactOrigin && key.Literal == pc.Origin
	case entry.ContextFieldOnly:
		return matchesFieldKey(key, pc)
	case entry.ContextURLPattern:
		return matchesPatternKey(key, pc)
	default:
		return false
	}
}

// matchesFieldKey requires a focused field. Bare keys compare against the
// selector alone; composite keys must hold on all three segments; keys that
// look composite but do not split cleanly fall back to exact equality
// against the literal origin|pathname|selector concatenation (compatibility
// with hand-edited data).
func matchesFieldKey(key *entry.Key, pc PageContext) bool {
	if pc.Selector == "" {
		return false
	}
	switch key.Kind {
	case entry.KindBareSelector:
		return key.MatchesSelector(pc.Selector)
	case entry.KindTriple:
		return key.MatchesTriple(pc.Origin, pc.Pathname, pc.Selector)
	case entry.KindLegacyExact:
		return key.Literal == pc.Origin+"|"+pc.Pathname+"|"+pc.Selector
	default:
		return false
	}
}

// matchesPatternKey evaluates urlPattern entries in priority order: a
// composite key with a known selector uses the three-segment rule (origin
// globs allowed), a bare key with a known selector matches the selector,
// and everything else is a glob over the full URL.
func matchesPatternKey(key *entry.Key, pc PageContext) bool {
	if pc.Selector != "" {
		switch key.Kind {
		case entry.KindTriple:
			return key.MatchesTriple(pc.Origin, pc.Pathname, pc.Selector)
		case entry.KindBareSelector:
			return key.MatchesSelector(pc.Selector)
		}
	}
	return key.MatchesURL(pc.URL)
}

// Reachable reports whether an entry could still match a field on this page
// once a selector becomes known. Only fieldOnly and urlPattern entries with
// selector-bearing keys participate; the selector slot itself is not
// checked because it is unknown before the first interaction.
func Reachable(e *entry.Entry, pc PageContext) bool {
	if pc.IsZero() {
		return false
	}
	switch e.ContextType {
	case entry.ContextFieldOnly, entry.ContextURLPattern:
		return e.ParsedKey().ReachableOn(pc.Origin, pc.Pathname)
	default:
		return false
	}
}
