package entry

import (
	"regexp"
	"strings"
)

// KeyKind tags the structured interpretation of a context key.
type KeyKind int

const (
	// KindNever matches nothing (missing or unusable key).
	KindNever KeyKind = iota
	// KindAlways matches every page context ("all" entries).
	KindAlways
	// KindExactURL matches on full-URL string equality.
	KindExactURL
	// KindExactOrigin matches on origin string equality.
	KindExactOrigin
	// KindBareSelector matches the key against the field selector only.
	KindBareSelector
	// KindTriple matches an origin|pathname|selector composite.
	KindTriple
	// KindLegacyExact is the compatibility path for composite keys that do
	// not split into three parts: the raw key is compared against the
	// literal origin|pathname|selector concatenation of the page context.
	KindLegacyExact
	// KindURLGlob matches the key as a glob over the full URL.
	KindURLGlob
)

// segment is one piece of a composite key with its optional compiled glob.
type segment struct {
	raw string
	re  *regexp.Regexp
}

func newSegment(raw string) segment {
	s := segment{raw: raw}
	if strings.ContainsAny(raw, "*?") {
		s.re = compileGlob(raw)
	}
	return s
}

// matchLoose implements the empty / "*" / exact / glob rule used for
// pathname and selector segments.
func (s segment) matchLoose(v string) bool {
	if s.raw == "" || s.raw == "*" {
		return true
	}
	if s.raw == v {
		return true
	}
	return s.re != nil && s.re.MatchString(v)
}

// matchStrict requires exact equality or an explicit glob hit; empty never
// matches. Used for origin segments of urlPattern composites.
func (s segment) matchStrict(v string) bool {
	if s.raw != "" && s.raw == v {
		return true
	}
	return s.re != nil && s.re.MatchString(v)
}

// Key is the parse-once structured form of an entry's context key.
type Key struct {
	Kind    KeyKind
	Literal string

	origin segment
	path   segment
	sel    segment
	// originExact requires byte equality on the origin segment (fieldOnly
	// composites do not accept origin wildcards).
	originExact bool

	// urlGlob is the whole-key glob interpretation used by urlPattern
	// entries when no field selector is known yet.
	urlGlob *regexp.Regexp
}

// Compile parses a raw context key into its structured form for the given
// strategy. It is total: malformed input degrades to the most conservative
// interpretation and never produces an error.
func Compile(ct ContextType, raw string) *Key {
	switch ct {
	case ContextAll:
		return &Key{Kind: KindAlways, Literal: raw}
	case ContextURL:
		if raw == "" {
			return &Key{Kind: KindNever}
		}
		return &Key{Kind: KindExactURL, Literal: raw}
	case ContextDomain:
		if raw == "" {
			return &Key{Kind: KindNever}
		}
		return &Key{Kind: KindExactOrigin, Literal: raw}
	case ContextFieldOnly:
		return compileFieldKey(raw)
	case ContextURLPattern:
		return compilePatternKey(raw)
	default:
		return &Key{Kind: KindNever, Literal: raw}
	}
}

func compileFieldKey(raw string) *Key {
	if raw == "" {
		return &Key{Kind: KindNever}
	}
	if !strings.Contains(raw, "|") && !strings.Contains(raw, "://") {
		return &Key{Kind: KindBareSelector, Literal: raw, sel: newSegment(raw)}
	}
	parts := strings.Split(raw, "|")
	if len(parts) != 3 {
		return &Key{Kind: KindLegacyExact, Literal: raw}
	}
	return &Key{
		Kind:        KindTriple,
		Literal:     raw,
		origin:      newSegment(parts[0]),
		path:        newSegment(parts[1]),
		sel:         newSegment(parts[2]),
		originExact: true,
	}
}

func compilePatternKey(raw string) *Key {
	if raw == "" {
		return &Key{Kind: KindNever}
	}
	glob := compileGlob(raw)
	if parts := strings.Split(raw, "|"); len(parts) == 3 {
		return &Key{
			Kind:    KindTriple,
			Literal: raw,
			origin:  newSegment(parts[0]),
			path:    newSegment(parts[1]),
			sel:     newSegment(parts[2]),
			urlGlob: glob,
		}
	}
	if !strings.Contains(raw, "|") && !strings.Contains(raw, "://") {
		return &Key{Kind: KindBareSelector, Literal: raw, sel: newSegment(raw), urlGlob: glob}
	}
	return &Key{Kind: KindURLGlob, Literal: raw, urlGlob: glob}
}

// MatchesSelector applies the bare-selector rule: exact equality, or a glob
// hit when the key carries wildcard characters.
func (k *Key) MatchesSelector(selector string) bool {
	if k.Kind != KindBareSelector || selector == "" {
		return false
	}
	if k.Literal == selector {
		return true
	}
	return k.sel.re != nil && k.sel.re.MatchString(selector)
}

// MatchesTriple applies the origin|pathname|selector composite rule. All
// three segments must hold.
func (k *Key) MatchesTriple(origin, pathname, selector string) bool {
	if k.Kind != KindTriple || selector == "" {
		return false
	}
	if k.originExact {
		if k.origin.raw != origin {
			return false
		}
	} else if !k.origin.matchStrict(origin) {
		return false
	}
	return k.path.matchLoose(pathname) && k.sel.matchLoose(selector)
}

// MatchesURL applies the whole-key glob interpretation against a full URL.
func (k *Key) MatchesURL(url string) bool {
	if url == "" || k.urlGlob == nil {
		return false
	}
	return k.urlGlob.MatchString(url)
}

// CarriesSelector reports whether the key structurally names a field: a
// bare selector, or a three-part composite with a selector slot.
func (k *Key) CarriesSelector() bool {
	return k.Kind == KindBareSelector || k.Kind == KindTriple
}

// ReachableOn reports whether a field on the given origin+pathname could
// still match once a selector becomes known. The selector slot is
// deliberately ignored: it is unknown before the first field interaction.
func (k *Key) ReachableOn(origin, pathname string) bool {
	switch k.Kind {
	case KindBareSelector:
		return true
	case KindTriple:
		if k.originExact {
			if k.origin.raw != origin {
				return false
			}
		} else if !k.origin.matchStrict(origin) {
			return false
		}
		return k.path.matchLoose(pathname)
	default:
		return false
	}
}

// compileGlob turns a glob into an anchored regexp: every regex
// metacharacter except '*' and '?' is escaped, '*' becomes '.*' and '?'
// becomes '.'. A compilation failure yields nil, which callers treat as
// non-matching.
func compileGlob(pattern string) *regexp.Regexp {
	quoted := regexp.QuoteMeta(pattern)
	quoted = strings.ReplaceAll(quoted, `\*`, `.*`)
	quoted = strings.ReplaceAll(quoted, `\?`, `.`)
	re, err := regexp.Compile("^" + quoted + "$")
	if err != nil {
		return nil
	}
	return re
}
