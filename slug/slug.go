// Package slug turns display titles into URL-safe identifiers for catalog pages.
package slug

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	whitespaceRun = regexp.MustCompile(`[\s\v\p{Z}\x{feff}]+`)
	disallowed    = regexp.MustCompile(`[^a-z0-9-]`)
)

// Slugify lower-cases the title, strips diacritics, replaces whitespace runs with a
// single hyphen and removes anything outside [a-z0-9-].
//
//	Slugify("Paris em Alta")       // "paris-em-alta"
//	Slugify("Fernando de Noronha") // "fernando-de-noronha"
//	Slugify("São João!")           // "sao-joao"
func Slugify(title string) string {
	if title == "" {
		return ""
	}

	stripMarks := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)))
	stripped, _, err := transform.String(stripMarks, strings.ToLower(title))
	if err != nil {
		stripped = strings.ToLower(title)
	}

	hyphenated := whitespaceRun.ReplaceAllString(stripped, "-")
	return disallowed.ReplaceAllString(hyphenated, "")
}
