package models

import (
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// NameLess returns a case-insensitive Vietnamese ordering for display names.
// The returned func holds a collator and must not be shared across goroutines.
func NameLess() func(a, b string) bool {
	c := collate.New(language.Vietnamese, collate.IgnoreCase)
	return func(a, b string) bool {
		return c.CompareString(a, b) < 0
	}
}
