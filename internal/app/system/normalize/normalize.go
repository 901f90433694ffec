// Package normalize provides helper functions for consistent string normalization
// across the application. Use these helpers instead of scattered strings.ToLower
// and strings.TrimSpace calls to ensure consistent behavior.
package normalize

import (
	"html"
	"strings"

	"github.com/dalemusser/userz/internal/app/system/personname"
	"github.com/dalemusser/waffle/pantry/text"
	"github.com/microcosm-cc/bluemonday"
)

// strict strips all markup; name fields are plain text.
var strict = bluemonday.StrictPolicy()

// Email normalizes an email address by trimming whitespace and converting to lowercase.
// This is the canonical way to normalize emails before storage or comparison.
func Email(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Name normalizes a free-text name by trimming whitespace.
// Use Key() for case-insensitive comparison keys.
func Name(s string) string {
	return strings.TrimSpace(s)
}

// Username trims whitespace. Case is preserved for display; lookups go
// through Key().
func Username(s string) string {
	return strings.TrimSpace(s)
}

// Key returns the lowercase, diacritics-stripped form used for
// case-insensitive lookups and sorting.
func Key(s string) string {
	return text.Fold(strings.TrimSpace(s))
}

// NamePart strips any markup from a single name field and collapses
// internal whitespace runs to one space. Entities left behind by the
// sanitizer are decoded so "O'Brien" survives unchanged.
func NamePart(s string) string {
	s = html.UnescapeString(strict.Sanitize(s))
	return strings.Join(strings.Fields(s), " ")
}

// Parts applies NamePart to every field of p.
func Parts(p personname.Parts) personname.Parts {
	return personname.Parts{
		First:  NamePart(p.First),
		Middle: NamePart(p.Middle),
		Last:   NamePart(p.Last),
		Suffix: NamePart(p.Suffix),
	}
}
