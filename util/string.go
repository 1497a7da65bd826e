package util

import (
	"sort"
	"strings"

	xset "github.com/xtgo/set"
)

// SortedUnique sorts names and drops duplicates. The input slice is reused.
func SortedUnique(names []string) []string {
	data := sort.StringSlice(names)
	sort.Sort(data)
	n := xset.Uniq(data)
	return names[:n]
}

// SnakeCase lowers an identifier like `PPar` or `NameBag` into `p_par` / `name_bag`,
// which is how relation names are spelled in emitted programs
func SnakeCase(s string) string {
	sb := strings.Builder{}
	runes := []rune(s)
	for i, r := range runes {
		isUpper := r >= 'A' && r <= 'Z'
		if isUpper {
			if i > 0 && runes[i-1] != '_' {
				prevLower := runes[i-1] >= 'a' && runes[i-1] <= 'z'
				nextLower := i+1 < len(runes) && runes[i+1] >= 'a' && runes[i+1] <= 'z'
				if prevLower || nextLower {
					sb.WriteRune('_')
				}
			}
			sb.WriteRune(r - 'A' + 'a')
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}
