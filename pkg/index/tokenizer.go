package index

import (
	"strconv"
	"strings"
)

// tokenize splits a "text" field's value into lowercase terms on
// whitespace, stripping simple punctuation (see DESIGN.md's
// standard-library justification for why no analyzer library is used
// here); it exists only to distinguish "text" (tokenized) from "string"
// (untokenized) field type mapping.
func tokenize(s string) []string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '_')
	})
	return fields
}

// normalizeQueryTerm reformats a "field:value" query literal to the same
// canonical string termForValue would have produced at index time, so that
// e.g. "price:1.50" matches a postings term written as "1.5". Non-numeric
// kinds and unparseable literals pass the value through unchanged.
func normalizeQueryTerm(kind FieldKind, value string) string {
	switch kind {
	case KindInt64:
		if n, err := strconv.ParseInt(value, 10, 64); err == nil {
			return strconv.FormatInt(n, 10)
		}
	case KindFloat64:
		if n, err := strconv.ParseFloat(value, 64); err == nil {
			return strconv.FormatFloat(n, 'g', -1, 64)
		}
	}
	return value
}

// termForValue renders a scalar JSON-decoded value to its canonical term
// string for the given field kind. ok is false if the value is the wrong
// shape for kind (treated as a skip, not a FieldTypeErr, since apply-time
// projection errors must not abort apply).
func termForValue(kind FieldKind, v interface{}) ([]string, bool) {
	switch kind {
	case KindInt64:
		switch n := v.(type) {
		case float64:
			return []string{strconv.FormatInt(int64(n), 10)}, true
		case int64:
			return []string{strconv.FormatInt(n, 10)}, true
		}
		return nil, false
	case KindFloat64:
		if n, ok := v.(float64); ok {
			return []string{strconv.FormatFloat(n, 'g', -1, 64)}, true
		}
		return nil, false
	case KindStringKeyword:
		if s, ok := v.(string); ok {
			return []string{s}, true
		}
		return nil, false
	case KindTextTokenized:
		if s, ok := v.(string); ok {
			return tokenize(s), true
		}
		return nil, false
	default:
		return nil, false
	}
}
