package analytics

import (
	"regexp"
	"strings"
)

// partialMatcher matches contact names and numbers typed in filter boxes.
type partialMatcher struct {
	pattern string
	re      *regexp.Regexp
}

func newPartialMatcher(pattern string) partialMatcher {
	pattern = strings.TrimSpace(pattern)
	m := partialMatcher{pattern: strings.ToLower(pattern)}
	if strings.Contains(pattern, "*") {
		expr := strings.ReplaceAll(regexp.QuoteMeta(pattern), `\*`, ".*?")
		m.re = regexp.MustCompile("(?i)" + expr)
	}
	return m
}

func (m partialMatcher) match(text string) bool {
	if m.pattern == "" {
		return true
	}
	if m.re != nil {
		return m.re.MatchString(text)
	}
	return strings.Contains(strings.ToLower(text), m.pattern)
}

// MatchPartial reports whether text contains pattern, ignoring case. A "*"
// in pattern matches any run of characters. An empty pattern matches
// everything.
func MatchPartial(text, pattern string) bool {
	return newPartialMatcher(pattern).match(text)
}
