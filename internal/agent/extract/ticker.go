// Package extract resolves stock symbols and calendar dates from free text.
package extract

import (
	"maps"
	"regexp"
	"slices"
	"strings"
)

var (
	sigilRe = regexp.MustCompile(`\$([A-Za-z]{1,5})\b`)
	upperRe = regexp.MustCompile(`\b[A-Z]{1,5}\b`)
)

// Words that match the bare uppercase pattern in ordinary English.
var skipBare = map[string]struct{}{
	"I": {},
	"A": {},
}

var defaultAliases = map[string]string{
	"apple":     "AAPL",
	"microsoft": "MSFT",
	"google":    "GOOGL",
	"alphabet":  "GOOGL",
	"tesla":     "TSLA",
	"amazon":    "AMZN",
	"meta":      "META",
	"facebook":  "META",
	"nvidia":    "NVDA",
	"netflix":   "NFLX",
}

// Symbols is an immutable known-symbol set plus a company alias table.
// The zero value resolves only bare uppercase tokens.
type Symbols struct {
	known   map[string]struct{}
	aliases map[string]string
	aliasRe *regexp.Regexp
	knownRe *regexp.Regexp
}

// DefaultSymbols returns the built-in alias table. Every aliased symbol is known.
func DefaultSymbols() *Symbols {
	known := make([]string, 0, len(defaultAliases))
	for _, sym := range defaultAliases {
		known = append(known, sym)
	}
	return NewSymbols(known, defaultAliases)
}

// NewSymbols builds a table from known symbols and an alias→symbol map.
func NewSymbols(known []string, aliases map[string]string) *Symbols {
	s := &Symbols{
		known:   make(map[string]struct{}, len(known)),
		aliases: make(map[string]string, len(aliases)),
	}
	for name, sym := range aliases {
		name = strings.ToLower(strings.TrimSpace(name))
		sym = strings.ToUpper(strings.TrimSpace(sym))
		if name == "" || sym == "" {
			continue
		}
		s.aliases[name] = sym
		s.known[sym] = struct{}{}
	}
	for _, sym := range known {
		sym = strings.ToUpper(strings.TrimSpace(sym))
		if sym == "" {
			continue
		}
		s.known[sym] = struct{}{}
	}
	s.aliasRe = buildAliasRe(s)
	s.knownRe = buildKnownRe(s)
	return s
}

// WithKnown returns a copy of s that also knows the given symbols.
func (s *Symbols) WithKnown(symbols ...string) *Symbols {
	known := slices.Collect(maps.Keys(s.known))
	return NewSymbols(append(known, symbols...), s.aliases)
}

// Known reports whether sym is in the known set or is an alias target.
func (s *Symbols) Known(sym string) bool {
	_, ok := s.known[strings.ToUpper(sym)]
	return ok
}

// Ticker returns the first symbol found in text, or "" when none matches.
//
// Resolution order: a $-prefixed known symbol, then whichever comes first of
// a company alias (any case) or an uppercase known symbol, then any bare 1-5
// letter uppercase token. Known symbols never match in lowercase, so listed
// tickers that are also English words ("on", "low", "all") stay words.
func (s *Symbols) Ticker(text string) string {
	for _, m := range sigilRe.FindAllStringSubmatch(text, -1) {
		if sym := s.lookup(m[1]); sym != "" {
			return sym
		}
	}

	if sym := s.firstMention(text); sym != "" {
		return sym
	}

	for _, tok := range upperRe.FindAllString(text, -1) {
		if _, skip := skipBare[tok]; skip {
			continue
		}
		return tok
	}
	return ""
}

func (s *Symbols) lookup(token string) string {
	low := strings.ToLower(token)
	if sym, ok := s.aliases[low]; ok {
		return sym
	}
	up := strings.ToUpper(token)
	if _, ok := s.known[up]; ok {
		return up
	}
	return ""
}

// firstMention returns the leftmost alias or uppercase known symbol.
func (s *Symbols) firstMention(text string) string {
	best, sym := -1, ""
	if s.aliasRe != nil {
		if loc := s.aliasRe.FindStringIndex(text); loc != nil {
			best, sym = loc[0], s.aliases[strings.ToLower(text[loc[0]:loc[1]])]
		}
	}
	if s.knownRe != nil {
		if loc := s.knownRe.FindStringIndex(text); loc != nil && (best < 0 || loc[0] < best) {
			sym = text[loc[0]:loc[1]]
		}
	}
	return sym
}

// buildAliasRe compiles one case-insensitive alternation over the alias
// names. Longer names are tried first.
func buildAliasRe(s *Symbols) *regexp.Regexp {
	names := make([]string, 0, len(s.aliases))
	for name := range s.aliases {
		names = append(names, name)
	}
	return alternation(`(?i)`, names)
}

// buildKnownRe matches known symbols written in uppercase only.
func buildKnownRe(s *Symbols) *regexp.Regexp {
	syms := make([]string, 0, len(s.known))
	for sym := range s.known {
		if _, skip := skipBare[sym]; skip {
			continue
		}
		syms = append(syms, sym)
	}
	return alternation(``, syms)
}

func alternation(flags string, words []string) *regexp.Regexp {
	if len(words) == 0 {
		return nil
	}
	quoted := make([]string, len(words))
	for i, w := range words {
		quoted[i] = regexp.QuoteMeta(w)
	}
	slices.SortFunc(quoted, func(a, b string) int {
		if len(a) != len(b) {
			return len(b) - len(a)
		}
		return strings.Compare(a, b)
	})
	quoted = slices.Compact(quoted)
	return regexp.MustCompile(flags + `\b(?:` + strings.Join(quoted, "|") + `)\b`)
}
