// Stateless lexical checks for outbound chat messages: an exemption list for
// common short greetings, phone-number-like digit patterns, and a prohibited
// term lexicon. No I/O, no state; safe to call on any string.
package pattern

import (
	"regexp"
	"strings"
)

type Category string

const (
	CategoryPhoneNumber  Category = "phone-number"
	CategoryContactExfil Category = "contact-exfiltration"
	CategorySolicitation Category = "commercial-solicitation"
	CategoryIllegalGoods Category = "illegal-goods"
)

type Result struct {
	Matched  bool
	Category Category
	Term     string
}

// Short greetings and acknowledgements which bypass all further checks. These
// dominate chat traffic, and skipping them early keeps them away from the
// downstream checks entirely.
var exemptTokens = map[string]bool{
	"ok": true, "okay": true, "k": true, "vale": true, "va": true,
	"si": true, "no": true, "ya": true, "uy": true,
	"hola": true, "hello": true, "hi": true, "hey": true, "buenas": true,
	"adios": true, "bye": true, "chao": true, "hasta": true, "luego": true,
	"gracias": true, "thanks": true, "thx": true, "ty": true, "denada": true,
	"lol": true, "lmao": true, "xd": true, "uwu": true,
	"claro": true, "genial": true, "guay": true, "wow": true,
}

// collapses laughter variants: jaja, jajaja, jeje, hahaha, jiji...
var laughterPattern = regexp.MustCompile(`^(?:ja|je|ji|ha|he|hi){2,}[jh]?$`)

func isExemptToken(tok string) bool {
	return exemptTokens[tok] || laughterPattern.MatchString(tok)
}

// Phone-number-like digit sequences. Spanish national numbers are 9 digits;
// also matched: international prefixes and separator-grouped runs.
var phonePatterns = []*regexp.Regexp{
	// bare 9+ digit run, eg 912345678
	regexp.MustCompile(`(?:^|[^\d])(\d{9,12})(?:[^\d]|$)`),
	// international prefix with optional grouping, eg +34 612 34 56 78
	regexp.MustCompile(`\+\d{1,3}[\s.\-]?\d{2,4}(?:[\s.\-]?\d{2,4}){1,4}`),
	// separator-grouped national runs, eg 612-345-678 or (91) 234 56 78
	regexp.MustCompile(`\(?\d{2,3}\)?(?:[\s.\-]\d{2,3}){2,4}`),
}

// Prohibited single-token terms, whole-word matched on the folded token
// stream. Kept deliberately small; fuzzier matching belongs to the external
// classifiers, not this list.
var lexiconTokens = map[string]Category{
	"whatsapp":   CategoryContactExfil,
	"wasap":      CategoryContactExfil,
	"telegram":   CategoryContactExfil,
	"discord":    CategoryContactExfil,
	"snapchat":   CategoryContactExfil,
	"onlyfans":   CategorySolicitation,
	"bizum":      CategorySolicitation,
	"paypal":     CategorySolicitation,
	"crypto":     CategorySolicitation,
	"seguidores": CategorySolicitation,
	"followers":  CategorySolicitation,
	"marihuana":  CategoryIllegalGoods,
	"cocaina":    CategoryIllegalGoods,
	"mdma":       CategoryIllegalGoods,
	"armas":      CategoryIllegalGoods,
}

// Multi-word phrases, matched on the folded phrase form.
var lexiconPhrases = map[string]Category{
	"agregame al whats":    CategoryContactExfil,
	"add me on whats":      CategoryContactExfil,
	"pasame tu numero":     CategoryContactExfil,
	"dame tu numero":       CategoryContactExfil,
	"escribeme al privado": CategoryContactExfil,
	"compra ahora":         CategorySolicitation,
	"buy now":              CategorySolicitation,
	"gana dinero":          CategorySolicitation,
	"free followers":       CategorySolicitation,
	"vendo maria":          CategoryIllegalGoods,
}

// Runs the exemption list, the phone patterns, and the lexicon, in that
// order, short-circuiting on the first hit. Always returns a result for any
// input, including empty.
func Check(text string) Result {
	tokens := tokenize(text)
	if len(tokens) == 0 {
		return Result{}
	}

	// exemptions only apply to short messages; "ok" buried in a longer
	// solicitation should not shield it
	if len(tokens) <= 3 {
		exempt := true
		for _, tok := range tokens {
			if !isExemptToken(tok) {
				exempt = false
				break
			}
		}
		if exempt {
			return Result{}
		}
	}

	for _, re := range phonePatterns {
		if m := re.FindString(text); m != "" {
			return Result{Matched: true, Category: CategoryPhoneNumber, Term: strings.TrimSpace(m)}
		}
	}

	for _, tok := range tokens {
		if cat, ok := lexiconTokens[tok]; ok {
			return Result{Matched: true, Category: cat, Term: tok}
		}
		// de-pluralize ("whatsapps", "cryptos")
		if trimmed := strings.TrimSuffix(tok, "s"); trimmed != tok {
			if cat, ok := lexiconTokens[trimmed]; ok {
				return Result{Matched: true, Category: cat, Term: trimmed}
			}
		}
	}
	phrase := " " + normalizePhrase(text) + " "
	for p, cat := range lexiconPhrases {
		if strings.Contains(phrase, " "+p+" ") {
			return Result{Matched: true, Category: cat, Term: p}
		}
	}

	return Result{}
}
