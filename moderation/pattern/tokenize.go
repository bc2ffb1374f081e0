package pattern

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var nonTokenChars = regexp.MustCompile(`[^\pL\pN\s]+`)

// Splits free-form chat text in to lower-case tokens, with unicode
// normalization and accent folding, so that lexicon matching is whole-word
// and insensitive to case, punctuation, and diacritics ("Móvil!!" matches
// "movil").
func tokenize(text string) []string {
	// the transform chain carries state, so it must be re-built per call
	normFunc := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	bare := strings.ToLower(nonTokenChars.ReplaceAllString(text, " "))
	folded, _, err := transform.String(normFunc, bare)
	if err != nil {
		// accent folding is best-effort; the un-folded form still tokenizes
		folded = bare
	}
	return strings.Fields(folded)
}

// Same folding as tokenize, but preserving token boundaries as single spaces
// so multi-word lexicon phrases can be matched on the joined form.
func normalizePhrase(text string) string {
	return strings.Join(tokenize(text), " ")
}
