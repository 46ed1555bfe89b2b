package store

import "strings"

// normalizeUsername strips an optional leading '@' and lower-cases for
// case-insensitive lookups (spec §3.1).
func normalizeUsername(username string) string {
	return strings.ToLower(strings.TrimPrefix(username, "@"))
}

// normalizePhone strips every non-digit character (spec §3.1).
func normalizePhone(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
