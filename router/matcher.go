package router

import (
	"fmt"
	"regexp"
	"strings"
)

// matcherKind distinguishes the three path-matcher flavors spec.md §3
// names for a Route Node: a literal path segment, a regex carrying
// named captures, and an open (capture-less) regex used purely as a
// prefix gate.
type matcherKind int

const (
	kindLiteral matcherKind = iota
	kindRegexNamed
	kindRegexOpen
)

// PathMatcher decides whether (and how much of) a remaining URL path a
// Route Node consumes, and what named captures it contributes.
type PathMatcher struct {
	kind    matcherKind
	literal string
	re      *regexp.Regexp
}

// Literal builds an exact-segment matcher. The segment must consume a
// whole path component: "/wiki" matches "/wiki" and "/wiki/Home" (the
// remainder "/Home" is left for child nodes) but not "/wikis".
func Literal(segment string) *PathMatcher {
	return &PathMatcher{kind: kindLiteral, literal: segment}
}

// Regex builds a matcher from pattern, anchored at the start of the
// remaining path if the caller didn't already anchor it. Named groups
// ("(?P<name>...)") become path-parameter captures; a pattern with no
// named groups is an "open" regex used only as a prefix gate.
func Regex(pattern string) (*PathMatcher, error) {
	if !strings.HasPrefix(pattern, "^") {
		pattern = "^" + pattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("router: invalid regex pattern %q: %w", pattern, err)
	}
	kind := kindRegexOpen
	for _, name := range re.SubexpNames() {
		if name != "" {
			kind = kindRegexNamed
			break
		}
	}
	return &PathMatcher{kind: kind, re: re}, nil
}

// MustRegex is Regex, panicking on an invalid pattern — for use at
// route-registration time, the same place httprouter-style builders
// panic on a malformed route.
func MustRegex(pattern string) *PathMatcher {
	m, err := Regex(pattern)
	if err != nil {
		panic(err)
	}
	return m
}

// specificity ranks matchers for the tie-break rule spec.md §4.5
// describes: "literal > regex with captures > open regex" at the same
// depth. Higher sorts first.
func (m *PathMatcher) specificity() int {
	switch m.kind {
	case kindLiteral:
		return 2
	case kindRegexNamed:
		return 1
	default:
		return 0
	}
}

// match reports whether remaining is consumed by m, how many bytes were
// consumed, and any named captures contributed. Consumption always
// starts at a path-segment boundary: a literal or regex match must be
// followed by "/" or end-of-string in remaining, never mid-segment.
func (m *PathMatcher) match(remaining string) (ok bool, consumed int, captures map[string]string) {
	switch m.kind {
	case kindLiteral:
		if !strings.HasPrefix(remaining, m.literal) {
			return false, 0, nil
		}
		n := len(m.literal)
		if n < len(remaining) && remaining[n] != '/' {
			return false, 0, nil
		}
		return true, n, nil
	default:
		loc := m.re.FindStringSubmatchIndex(remaining)
		if loc == nil || loc[0] != 0 {
			return false, 0, nil
		}
		n := loc[1]
		if n < len(remaining) && remaining[n] != '/' {
			return false, 0, nil
		}
		names := m.re.SubexpNames()
		var caps map[string]string
		for i := 1; i*2 < len(loc); i++ {
			if names[i] == "" || loc[i*2] < 0 {
				continue
			}
			caps = ensureMap(caps)
			caps[names[i]] = remaining[loc[i*2]:loc[i*2+1]]
		}
		return true, n, caps
	}
}

func ensureMap(m map[string]string) map[string]string {
	if m == nil {
		return make(map[string]string)
	}
	return m
}
