package memory

import (
	"regexp"
	"strings"
)

// dateKeywords trigger relative dates in recalled memory. Matching is by
// substring, so "birthday" and "sometime" also count.
var dateKeywords = []string{"when", "day", "date", "time", "today", "yesterday"}

// ShouldIncludeDates reports whether query asks about when something happened.
func ShouldIncludeDates(query string) bool {
	q := strings.ToLower(query)
	for _, kw := range dateKeywords {
		if strings.Contains(q, kw) {
			return true
		}
	}
	return false
}

// NameRegistry recognizes configured third parties in a query as whole
// words, ignoring case.
type NameRegistry struct {
	names   []string
	pattern *regexp.Regexp
}

// NewNameRegistry builds a registry. Blank names are ignored.
func NewNameRegistry(names ...string) *NameRegistry {
	r := &NameRegistry{}
	quoted := make([]string, 0, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		r.names = append(r.names, n)
		quoted = append(quoted, regexp.QuoteMeta(n))
	}
	if len(quoted) > 0 {
		r.pattern = regexp.MustCompile(`(?i)\b(` + strings.Join(quoted, "|") + `)\b`)
	}
	return r
}

// Names returns the registered names.
func (r *NameRegistry) Names() []string {
	if r == nil {
		return nil
	}
	return append([]string(nil), r.names...)
}

// Matches reports whether query mentions any registered name.
func (r *NameRegistry) Matches(query string) bool {
	return r != nil && r.pattern != nil && r.pattern.MatchString(query)
}

// Mentioned returns the registered names found in query, in registry order.
func (r *NameRegistry) Mentioned(query string) []string {
	if !r.Matches(query) {
		return nil
	}

	found := map[string]bool{}
	for _, m := range r.pattern.FindAllString(query, -1) {
		found[strings.ToLower(m)] = true
	}

	var out []string
	for _, n := range r.names {
		if found[strings.ToLower(n)] {
			out = append(out, n)
		}
	}
	return out
}

// MentionsNamedParty reports whether query names any of names.
func MentionsNamedParty(query string, names []string) bool {
	return NewNameRegistry(names...).Matches(query)
}
