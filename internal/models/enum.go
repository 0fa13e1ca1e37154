package models

import "strings"

// canonical folds casing and '-', '_' or space separators into UPPER_SNAKE
// form so "under review", "Under-Review" and "under_review" compare equal.
func canonical(raw string) string {
	parts := strings.FieldsFunc(strings.TrimSpace(raw), func(r rune) bool {
		return r == ' ' || r == '-' || r == '_'
	})
	return strings.ToUpper(strings.Join(parts, "_"))
}
