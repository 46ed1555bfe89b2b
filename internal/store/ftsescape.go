package store

import "strings"

// escapeFTSQuery neutralizes FTS5 query-syntax characters so that each
// token of a user-supplied search string is matched as a literal quoted
// phrase, never as an operator (spec §4.1 "FTS escaping"). Each
// whitespace-separated token is wrapped in double quotes; embedded
// double quotes are doubled per FTS5's own escaping convention, which
// also renders hyphen, asterisk and parentheses inert since they lose
// their special meaning inside a quoted string.
func escapeFTSQuery(query string) string {
	fields := strings.Fields(query)
	if len(fields) == 0 {
		return `""`
	}
	quoted := make([]string, len(fields))
	for i, f := range fields {
		quoted[i] = `"` + strings.ReplaceAll(f, `"`, `""`) + `"`
	}
	return strings.Join(quoted, " ")
}
