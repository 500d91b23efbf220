package matching

import "strings"

// TagOverlap counts the interest tags two profiles share. Tags are lowercased
// and trimmed before comparison so "Vegan" and " vegan " count as equal.
// Empty or missing tags on either side yield 0.
func TagOverlap(tags1, tags2 []string) int {
	if len(tags1) == 0 || len(tags2) == 0 {
		return 0
	}

	seen := make(map[string]bool, len(tags1))
	for _, tag := range tags1 {
		if t := normalizeTag(tag); t != "" {
			seen[t] = true
		}
	}

	// Count each shared tag once even if the second list repeats it
	overlap := 0
	for _, tag := range tags2 {
		t := normalizeTag(tag)
		if t != "" && seen[t] {
			overlap++
			delete(seen, t)
		}
	}

	return overlap
}

func normalizeTag(tag string) string {
	return strings.ToLower(strings.TrimSpace(tag))
}
