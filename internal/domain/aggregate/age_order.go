package aggregate

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var firstNumber = regexp.MustCompile(`\d+`)

// bracketLowerBound returns the youngest age covered by an age-group label,
// e.g. "20 to 29 Years" -> 20, "19 and younger" -> 0, "90+" -> 90. The second
// return value is false when the label carries no usable bound ("Unknown").
func bracketLowerBound(label string) (int, bool) {
	l := strings.ToLower(strings.TrimSpace(label))
	if strings.HasPrefix(l, "<") || strings.HasPrefix(l, "under") ||
		strings.Contains(l, "younger") || strings.Contains(l, "less than") {
		return 0, true
	}
	m := firstNumber.FindString(l)
	if m == "" {
		return 0, false
	}
	n, err := strconv.Atoi(m)
	if err != nil {
		return 0, false
	}
	return n, true
}

// SortAgeGroups returns a copy of groups ordered youngest to oldest. Labels
// without a recognisable bracket are placed last, alphabetically.
func SortAgeGroups(groups []string) []string {
	out := make([]string, len(groups))
	copy(out, groups)
	sort.SliceStable(out, func(i, j int) bool {
		bi, oki := bracketLowerBound(out[i])
		bj, okj := bracketLowerBound(out[j])
		switch {
		case oki && okj:
			if bi != bj {
				return bi < bj
			}
			return out[i] < out[j]
		case oki != okj:
			return oki
		default:
			return out[i] < out[j]
		}
	})
	return out
}
