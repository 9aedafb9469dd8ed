package utils

import (
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
)

// cases.Caser is stateful, so each call builds its own.
func fold(s string) string {
	return cases.Fold().String(s)
}

// ServiceKey reduces a service name or id to the form used for catalog
// lookups: case folded, with everything except letters and digits removed.
// "Women's Health", "womens_health" and "WomensHealth" share one key.
func ServiceKey(name string) string {
	folded := fold(strings.TrimSpace(name))
	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range folded {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// SplitServiceList splits a delimited list of service names as found in
// registry columns ("Cardiology; Audiology", "Pensions,HomelessAssistance").
// Blank entries are dropped and the order of first appearance is kept.
func SplitServiceList(raw string) []string {
	parts := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ';' || r == '|' || r == '\n'
	})
	seen := make(map[string]struct{}, len(parts))
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		k := ServiceKey(p)
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, p)
	}
	return out
}

// CollapseWhitespace trims s and folds internal whitespace runs to one space.
func CollapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// SortedSet returns the distinct non-empty values of in, sorted.
func SortedSet(in []string) []string {
	set := make(map[string]struct{}, len(in))
	for _, v := range in {
		if v == "" {
			continue
		}
		set[v] = struct{}{}
	}
	out := make([]string, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
