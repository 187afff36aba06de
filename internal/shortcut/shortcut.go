// Package shortcut normalizes user-supplied key-combo strings into the
// canonical form stored on entries, so collision checks compare like with
// like regardless of how the combo was typed.
package shortcut

import (
	"errors"
	"regexp"
	"sort"
	"strings"
)

// ErrEmpty indicates the combo had no base key after normalization.
var ErrEmpty = errors.New("shortcut has no base key")

// modifierOrder fixes the canonical modifier sequence.
var modifierOrder = map[string]int{
	"ctrl":  0,
	"alt":   1,
	"shift": 2,
	"meta":  3,
}

var aliasPattern = regexp.MustCompile(`^(control|cmd|command|win|super|option|opt)$`)

// aliases maps common spellings onto canonical modifier names.
func canonicalModifier(tok string) string {
	if !aliasPattern.MatchString(tok) {
		return tok
	}
	switch tok {
	case "control":
		return "ctrl"
	case "cmd", "command", "win", "super":
		return "meta"
	case "option", "opt":
		return "alt"
	}
	return tok
}

// Normalize canonicalizes a key combo: lowercase, modifiers deduped and in
// ctrl/alt/shift/meta order, exactly one base key last, joined with '+'.
// Examples: "Shift + Ctrl+K" -> "ctrl+shift+k", "Cmd-Enter" -> "meta+enter".
func Normalize(combo string) (string, error) {
	split := func(r rune) bool { return r == '+' || r == '-' || r == ' ' }
	tokens := strings.FieldsFunc(strings.ToLower(strings.TrimSpace(combo)), split)
	if len(tokens) == 0 {
		return "", ErrEmpty
	}

	seen := make(map[string]struct{}, len(tokens))
	mods := make([]string, 0, 3)
	base := ""
	for _, tok := range tokens {
		tok = canonicalModifier(tok)
		if _, isMod := modifierOrder[tok]; isMod {
			if _, dup := seen[tok]; dup {
				continue
			}
			seen[tok] = struct{}{}
			mods = append(mods, tok)
			continue
		}
		// Last non-modifier token wins as the base key.
		base = tok
	}
	if base == "" {
		return "", ErrEmpty
	}

	sort.Slice(mods, func(i, j int) bool {
		return modifierOrder[mods[i]] < modifierOrder[mods[j]]
	})
	return strings.Join(append(mods, base), "+"), nil
}
