// internal/app/system/personname/parse.go
package personname

import (
	"strings"
	"unicode/utf8"
)

// Parse splits free text into name parts using positional rules:
//
//   - the first token is the first name;
//   - a middle name is taken only when it leaves a last name that is not
//     immediately followed by a lone short final token, i.e. with four or
//     more tokens, or three tokens whose last one is longer than
//     MaxSuffixLen characters;
//   - the token after the first (or after the middle) is the last name;
//   - the token after the last name becomes the suffix only if it is the
//     final token and at most MaxSuffixLen characters long.
//
// Tokens past those positions are dropped. A single trailing "." is removed
// from the middle name so that "M." is stored as "M".
func Parse(fullName string) Parts {
	toks := strings.Fields(fullName)
	n := len(toks)

	var p Parts
	if n == 0 {
		return p
	}
	p.First = toks[0]
	if n == 1 {
		return p
	}

	lastAt := 1
	if n >= 4 || (n == 3 && !isSuffixToken(toks[2])) {
		p.Middle = strings.TrimSuffix(toks[1], ".")
		lastAt = 2
	}
	p.Last = toks[lastAt]

	if sfx := lastAt + 1; sfx == n-1 && isSuffixToken(toks[sfx]) {
		p.Suffix = toks[sfx]
	}
	return p
}

func isSuffixToken(tok string) bool {
	n := utf8.RuneCountInString(tok)
	return n >= 1 && n <= MaxSuffixLen
}

// MergeUnclaimedFields returns existing with each empty field filled from
// parsed. Non-empty fields of existing are never overwritten.
func MergeUnclaimedFields(existing, parsed Parts) Parts {
	out := existing
	if out.First == "" {
		out.First = parsed.First
	}
	if out.Middle == "" {
		out.Middle = parsed.Middle
	}
	if out.Last == "" {
		out.Last = parsed.Last
	}
	if out.Suffix == "" {
		out.Suffix = parsed.Suffix
	}
	return out
}

// Decompose fills an unclaimed record from free text. If parts already has
// a middle name, last name or suffix it is returned unchanged.
func Decompose(fullName string, parts Parts) Parts {
	if parts.Claimed() {
		return parts
	}
	return MergeUnclaimedFields(parts, Parse(fullName))
}
