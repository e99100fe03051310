package catalog

import "unicode"

// Name quality thresholds. Upstream export tooling occasionally emits rows
// with control characters or symbol soup in place of a name; those rows are
// presumed corrupt and dropped before they reach the catalog.
const (
	minNameLength       = 2
	maxSpecialCharRatio = 0.2
)

// suspicious byte sequences seen in corrupted KBOB exports
var corruptPatterns = []string{"*a", "+I", `\+I`}

// nameIsUsable reports whether a record name survives the quality filter:
// at least 2 characters, at most 20% special characters, at least one letter.
func nameIsUsable(name string) bool {
	runes := []rune(name)
	if len(runes) < minNameLength {
		return false
	}

	special := 0
	hasAlpha := false
	for _, r := range runes {
		if r < 32 || r == '¤' || r == '¶' || r == '`' || r == '^' {
			special++
		}
		if unicode.IsLetter(r) {
			hasAlpha = true
		}
	}
	if !hasAlpha {
		return false
	}
	if float64(special) > float64(len(runes))*maxSpecialCharRatio {
		return false
	}

	for _, pattern := range corruptPatterns {
		if containsPattern(name, pattern) {
			return false
		}
	}
	return true
}

func containsPattern(s, pattern string) bool {
	for i := 0; i+len(pattern) <= len(s); i++ {
		if s[i:i+len(pattern)] == pattern {
			return true
		}
	}
	return false
}

// filterRecords applies the name quality filter uniformly after per-format
// parsing. Rows without a resolvable carbon value never get this far; each
// reader drops them while it still knows whether the field was present.
func filterRecords(records []MaterialRecord) []MaterialRecord {
	kept := records[:0]
	for _, rec := range records {
		if !nameIsUsable(rec.Name) {
			continue
		}
		kept = append(kept, rec)
	}
	return kept
}
