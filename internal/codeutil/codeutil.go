// Package codeutil holds small string helpers shared by the config and
// binding-generation packages.
package codeutil

import "strings"

// JoinByPipe joins regex patterns into a single alternation. Empty entries
// are dropped; an empty input yields an empty string, which callers treat
// as "match nothing".
func JoinByPipe(patterns []string) string {
	kept := make([]string, 0, len(patterns))
	for _, p := range patterns {
		if strings.TrimSpace(p) == "" {
			continue
		}
		kept = append(kept, p)
	}
	return strings.Join(kept, "|")
}

// MergeUnique appends the entries of each list in order, skipping duplicates.
func MergeUnique(lists ...[]string) []string {
	seen := map[string]bool{}
	var out []string
	for _, list := range lists {
		for _, s := range list {
			if seen[s] {
				continue
			}
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

// SnakeCase converts a camel or Pascal case identifier to snake_case.
// Runs of upper-case letters are kept together (NVClone -> nv_clone).
func SnakeCase(name string) string {
	var b strings.Builder
	for i, r := range name {
		if r >= 'A' && r <= 'Z' {
			prevLower := i > 0 && name[i-1] >= 'a' && name[i-1] <= 'z'
			nextLower := i+1 < len(name) && name[i+1] >= 'a' && name[i+1] <= 'z'
			if i > 0 && name[i-1] != '_' && (prevLower || (nextLower && name[i-1] >= 'A' && name[i-1] <= 'Z')) {
				b.WriteByte('_')
			}
			b.WriteRune(r - 'A' + 'a')
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
