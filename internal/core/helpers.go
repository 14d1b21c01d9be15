package core

import (
	"sort"
	"strings"
)

// sortedKeys returns the keys of m in ascending order.
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// splitValues splits a comma-separated list, trims each entry and drops blanks.
func splitValues(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// normalizeHeader lowercases and trims a CSV header cell for matching.
func normalizeHeader(h string) string {
	return strings.ToLower(strings.TrimSpace(h))
}
