package store

import "strings"

// TagFilter narrows list queries by tag membership. A nil slice means
// the mode is absent; a non-nil empty slice matches nothing. Any and
// All are mutually exclusive.
type TagFilter struct {
	Any []string // match items carrying at least one of these tags
	All []string // match items carrying every one of these tags
}

// active reports whether either mode is present.
func (f *TagFilter) active() bool {
	return f != nil && (f.Any != nil || f.All != nil)
}

// tagPredicate builds the WHERE fragment for the tags column of the
// given table. Rows with malformed tag JSON are excluded from every
// result set, filtered or not; untagged rows (NULL tags) appear only
// in unfiltered queries.
func tagPredicate(column string, f *TagFilter) (string, []any) {
	if !f.active() {
		return "(" + column + " IS NULL OR json_valid(" + column + "))", nil
	}

	if f.Any != nil {
		if len(f.Any) == 0 {
			return "1 = 0", nil
		}
		pred := column + " IS NOT NULL AND json_valid(" + column + ") AND EXISTS (" +
			"SELECT 1 FROM json_each(" + column + ") WHERE json_each.value IN (" +
			placeholders(len(f.Any)) + "))"
		return "(" + pred + ")", anyArgs(f.Any)
	}

	all := dedupe(f.All)
	if len(all) == 0 {
		return "1 = 0", nil
	}
	pred := column + " IS NOT NULL AND json_valid(" + column + ") AND (" +
		"SELECT COUNT(DISTINCT json_each.value) FROM json_each(" + column + ") " +
		"WHERE json_each.value IN (" + placeholders(len(all)) + ")) = ?"
	args := anyArgs(all)
	args = append(args, len(all))
	return "(" + pred + ")", args
}

func dedupe(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func anyArgs(values []string) []any {
	args := make([]any, len(values))
	for i, v := range values {
		args[i] = v
	}
	return args
}
