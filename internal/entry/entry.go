package entry

import "time"

// ContextType selects the matching strategy for a stored entry.
type ContextType string

const (
	ContextFieldOnly  ContextType = "fieldOnly"
	ContextURL        ContextType = "url"
	ContextDomain     ContextType = "domain"
	ContextAll        ContextType = "all"
	ContextURLPattern ContextType = "urlPattern"
)

// Entry is a stored field value plus the context it applies to.
type Entry struct {
	ID          string      `json:"id" yaml:"id"`
	Value       string      `json:"value" yaml:"value"`
	Label       string      `json:"label,omitempty" yaml:"label,omitempty"`
	ContextType ContextType `json:"context_type" yaml:"context_type"`
	ContextKey  string      `json:"context_key,omitempty" yaml:"context_key,omitempty"`
	Shortcut    string      `json:"shortcut,omitempty" yaml:"shortcut,omitempty"`
	// Order, when set, takes precedence over CreatedAt for stable ranking.
	Order     *int64 `json:"order,omitempty" yaml:"order,omitempty"`
	CreatedAt int64  `json:"created_at" yaml:"created_at"`

	// Key is the context key parsed into its structured form. The store
	// populates it once per load so matching never re-parses strings.
	Key *Key `json:"-" yaml:"-"`
}

// SortKey returns the tie-break value used by specificity ranking.
func (e Entry) SortKey() int64 {
	if e.Order != nil {
		return *e.Order
	}
	return e.CreatedAt
}

// ParsedKey returns the structured key, compiling it on demand when the
// entry was built outside the store.
func (e *Entry) ParsedKey() *Key {
	if e.Key == nil {
		e.Key = Compile(e.ContextType, e.ContextKey)
	}
	return e.Key
}

// NowMillis is the creation timestamp format used across the store.
func NowMillis() int64 {
	return time.Now().UnixMilli()
}

// KnownType reports whether ct is one of the five supported strategies.
func KnownType(ct ContextType) bool {
	switch ct {
	case ContextFieldOnly, ContextURL, ContextDomain, ContextAll, ContextURLPattern:
		return true
	}
	return false
}
