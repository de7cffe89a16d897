// Package slugs provides the canonical slugification helpers used across weft.
//
// There are three strategies:
//   - Normalize: lookup keys for titles and basenames in the reference index.
//     Lowercase, whitespace runs collapsed to "-", everything outside [a-z0-9-] dropped.
//   - HeadingSlug: fragment IDs for markdown headings, built on gosimple/slug.
//   - FileSlug: filesystem-friendly names for renamed files.
package slugs

import (
	"strings"
	"unicode"

	goslug "github.com/gosimple/slug"
	"github.com/gosimple/unidecode"
)

// Normalize converts a title or basename to its index key.
//
// Normalize is total and idempotent: Normalize(Normalize(s)) == Normalize(s).
// Empty or whitespace-only input yields "".
func Normalize(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if !isASCII(s) {
		s = unidecode.Unidecode(s)
	}
	s = strings.ToLower(s)

	var b strings.Builder
	b.Grow(len(s))
	pendingDash := false
	for _, r := range s {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'):
			if pendingDash && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingDash = false
			b.WriteRune(r)
		case r == '-' || unicode.IsSpace(r):
			pendingDash = true
		}
	}
	return b.String()
}

// HeadingSlug converts heading text (or a heading anchor as written in a
// reference) to a fragment ID.
func HeadingSlug(text string) string {
	text = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(text), "#"))
	s := goslug.Make(text)
	if s == "" {
		// gosimple/slug drops text it cannot transliterate; fall back to the index key.
		return Normalize(text)
	}
	return s
}

// FileSlug converts a title to a filesystem-friendly basename (no extension).
func FileSlug(title string) string {
	title = strings.TrimSuffix(strings.TrimSpace(title), ".md")
	s := goslug.Make(title)
	if s == "" {
		s = strings.ToLower(strings.ReplaceAll(title, " ", "-"))
	}
	return s
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return false
		}
	}
	return true
}
