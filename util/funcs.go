package util

import (
	"slices"
)

// SortedKeys returns the keys of m in ascending order, so that callers
// iterating over maps produce reproducible output
func SortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
