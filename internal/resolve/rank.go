package resolve

import (
	"sort"

	"fieldvault-mcp-server/internal/entry"
)

// rankUnknown sorts entries with an unrecognized context type last.
const rankUnknown = 5

// specificityRank orders context types narrowest first.
func specificityRank(ct entry.ContextType) int {
	switch ct {
	case entry.ContextFieldOnly:
		return 0
	case entry.ContextURL:
		return 1
	case entry.ContextDomain:
		return 2
	case entry.ContextAll:
		return 3
	case entry.ContextURLPattern:
		return 4
	default:
		return rankUnknown
	}
}

// RankBySpecificity sorts entries into presentation order: specificity rank
// ascending, then the user sequence (order when present, else createdAt)
// ascending. The sort is stable so equal keys keep their relative order and
// repeated calls produce identical output.
func RankBySpecificity(entries []entry.Entry) []entry.Entry {
	ranked := append([]entry.Entry(nil), entries...)
	sort.SliceStable(ranked, func(i, j int) bool {
		ri, rj := specificityRank(ranked[i].ContextType), specificityRank(ranked[j].ContextType)
		if ri != rj {
			return ri < rj
		}
		return ranked[i].SortKey() < ranked[j].SortKey()
	})
	return ranked
}
