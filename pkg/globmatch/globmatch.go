// Package globmatch implements the audit engine's path-glob contract: `*`
// matches within a single `/`-delimited segment, `**` crosses segments, `?`
// matches a single character, and backslash-escaped glob metacharacters are
// literal.
package globmatch

import "github.com/gobwas/glob"

// Matcher compiles a glob pattern once for repeated matching.
type Matcher struct {
	g glob.Glob
}

// Compile builds a Matcher for pattern using '/' as the only segment
// separator, so '*' cannot cross path boundaries but '**' can.
func Compile(pattern string) (Matcher, error) {
	g, err := glob.Compile(pattern, '/')
	if err != nil {
		return Matcher{}, err
	}
	return Matcher{g: g}, nil
}

// Match reports whether s matches the compiled pattern.
func (m Matcher) Match(s string) bool {
	if m.g == nil {
		return false
	}
	return m.g.Match(s)
}

// MatchAny compiles and tests pattern against s in one call, ignoring
// patterns that fail to compile.
func MatchAny(patterns []string, s string) bool {
	for _, p := range patterns {
		m, err := Compile(p)
		if err != nil {
			continue
		}
		if m.Match(s) {
			return true
		}
	}
	return false
}
