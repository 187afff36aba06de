package entry

import "testing"

func TestCompileKinds(t *testing.T) {
	tests := []struct {
		name string
		ct   ContextType
		raw  string
		want KeyKind
	}{
		{name: "all ignores key", ct: ContextAll, raw: "", want: KindAlways},
		{name: "url exact", ct: ContextURL, raw: "https://a.com/x", want: KindExactURL},
		{name: "url missing key never matches", ct: ContextURL, raw: "", want: KindNever},
		{name: "domain exact", ct: ContextDomain, raw: "https://a.com", want: KindExactOrigin},
		{name: "field bare selector", ct: ContextFieldOnly, raw: "#login-input", want: KindBareSelector},
		{name: "field triple", ct: ContextFieldOnly, raw: "https://a.com|/login|#q", want: KindTriple},
		{name: "field malformed composite", ct: ContextFieldOnly, raw: "https://a.com|#q", want: KindLegacyExact},
		{name: "field missing key", ct: ContextFieldOnly, raw: "", want: KindNever},
		{name: "pattern url glob", ct: ContextURLPattern, raw: "https://a.com/*", want: KindURLGlob},
		{name: "pattern bare selector", ct: ContextURLPattern, raw: "#q", want: KindBareSelector},
		{name: "pattern triple", ct: ContextURLPattern, raw: "*://a.com|*|#q", want: KindTriple},
		{name: "unknown type", ct: ContextType("bogus"), raw: "x", want: KindNever},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Compile(tt.ct, tt.raw)
			if got.Kind != tt.want {
				t.Fatalf("Compile(%s, %q).Kind = %d, want %d", tt.ct, tt.raw, got.Kind, tt.want)
			}
		})
	}
}

func TestGlobCompilation(t *testing.T) {
	tests := []struct {
		pattern string
		input   string
		want    bool
	}{
		{"*://*.example.com/*", "https://sub.example.com/path", true},
		{"*://*.example.com/*", "https://example.org/path", false},
		{"https://a.com/?", "https://a.com/x", true},
		{"https://a.com/?", "https://a.com/xy", false},
		// Regex metacharacters in the pattern are literal.
		{"https://a.com/p.q", "https://a.com/pXq", false},
		{"https://a.com/p.q", "https://a.com/p.q", true},
		// Anchored: a partial hit is not a match.
		{"example.com", "https://example.com/", false},
	}

	for _, tt := range tests {
		t.Run(tt.pattern+"~"+tt.input, func(t *testing.T) {
			re := compileGlob(tt.pattern)
			if re == nil {
				t.Fatalf("compileGlob(%q) returned nil", tt.pattern)
			}
			if got := re.MatchString(tt.input); got != tt.want {
				t.Fatalf("glob %q on %q = %v, want %v", tt.pattern, tt.input, got, tt.want)
			}
		})
	}
}

func TestKeyMatchesSelector(t *testing.T) {
	key := Compile(ContextFieldOnly, "#login-input")
	if !key.MatchesSelector("#login-input") {
		t.Fatalf("exact selector should match")
	}
	if key.MatchesSelector("#other-input") {
		t.Fatalf("different selector should not match")
	}
	if key.MatchesSelector("") {
		t.Fatalf("empty selector should not match")
	}

	glob := Compile(ContextFieldOnly, "#login-*")
	if !glob.MatchesSelector("#login-input") {
		t.Fatalf("glob selector should match")
	}
	if glob.MatchesSelector("#signup-input") {
		t.Fatalf("glob selector should not match unrelated selector")
	}
}

func TestKeyMatchesTriple(t *testing.T) {
	tests := []struct {
		name     string
		ct       ContextType
		raw      string
		origin   string
		path     string
		selector string
		want     bool
	}{
		{"wildcard pathname", ContextFieldOnly, "https://a.com|*|#q", "https://a.com", "/anything", "#q", true},
		{"empty pathname segment", ContextFieldOnly, "https://a.com||#q", "https://a.com", "/x", "#q", true},
		{"wrong origin", ContextFieldOnly, "https://a.com|*|#q", "https://b.com", "/x", "#q", false},
		{"fieldOnly origin never globs", ContextFieldOnly, "*://a.com|*|#q", "https://a.com", "/x", "#q", false},
		{"pattern origin glob", ContextURLPattern, "*://a.com|*|#q", "https://a.com", "/x", "#q", true},
		{"pattern origin glob miss", ContextURLPattern, "*://a.com|*|#q", "https://b.org", "/x", "#q", false},
		{"pathname glob", ContextFieldOnly, "https://a.com|/users/*|#q", "https://a.com", "/users/42", "#q", true},
		{"pathname glob miss", ContextFieldOnly, "https://a.com|/users/*|#q", "https://a.com", "/items/42", "#q", false},
		{"selector glob", ContextFieldOnly, "https://a.com|*|#field-*", "https://a.com", "/", "#field-9", true},
		{"no selector no match", ContextFieldOnly, "https://a.com|*|#q", "https://a.com", "/", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key := Compile(tt.ct, tt.raw)
			if got := key.MatchesTriple(tt.origin, tt.path, tt.selector); got != tt.want {
				t.Fatalf("MatchesTriple = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestKeyReachableOn(t *testing.T) {
	bare := Compile(ContextFieldOnly, "#q")
	if !bare.ReachableOn("https://anywhere.com", "/any") {
		t.Fatalf("bare selector keys are always reachable")
	}

	triple := Compile(ContextFieldOnly, "https://a.com|/login|#q")
	if !triple.ReachableOn("https://a.com", "/login") {
		t.Fatalf("matching origin+path should be reachable")
	}
	if triple.ReachableOn("https://a.com", "/other") {
		t.Fatalf("wrong path should not be reachable")
	}
	if triple.ReachableOn("https://b.com", "/login") {
		t.Fatalf("wrong origin should not be reachable")
	}

	urlGlob := Compile(ContextURLPattern, "https://a.com/*")
	if urlGlob.ReachableOn("https://a.com", "/x") {
		t.Fatalf("pure URL globs do not target a field")
	}
}

func TestEntrySortKey(t *testing.T) {
	order := int64(3)
	withOrder := Entry{Order: &order, CreatedAt: 100}
	if withOrder.SortKey() != 3 {
		t.Fatalf("order should take precedence, got %d", withOrder.SortKey())
	}
	withoutOrder := Entry{CreatedAt: 100}
	if withoutOrder.SortKey() != 100 {
		t.Fatalf("createdAt fallback broken, got %d", withoutOrder.SortKey())
	}
}
