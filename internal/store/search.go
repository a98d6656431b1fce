package store

import "strings"

// ftsQuery turns free-form user input into an FTS5 query. Each term is
// quoted so punctuation in the input cannot change the query grammar;
// multiple terms are implicitly AND-ed.
func ftsQuery(input string) string {
	terms := strings.Fields(input)
	quoted := make([]string, 0, len(terms))
	for _, t := range terms {
		t = strings.ReplaceAll(t, `"`, `""`)
		quoted = append(quoted, `"`+t+`"`)
	}
	return strings.Join(quoted, " ")
}
