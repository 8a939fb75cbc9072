package service

import (
	"math"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var unitCanonical = map[string]string{
	"lts":    "l",
	"lt":     "l",
	"litro":  "l",
	"litros": "l",
	"l":      "l",
	"ml":     "ml",
	"g":      "g",
	"kg":     "kg",
}

var (
	whitespaceRe   = regexp.MustCompile(`\s+`)
	unitInTextRe   = regexp.MustCompile(`(\d+(?:[\.,]\d+)?)\s*(lts|lt|litros|litro|l|kg|g|ml)\b`)
	unitTokenRe    = regexp.MustCompile(`\b(\d+(?:[\.,]\d+)?)(l|kg|g|ml)\b`)
	unitTokenOnly  = regexp.MustCompile(`^(\d+(?:\.\d+)?)(l|kg|g|ml)$`)
	numericTokenRe = regexp.MustCompile(`^\d+(?:[\.,]\d+)?x?$`)
	nonAlnumRe     = regexp.MustCompile(`[^a-z0-9]+`)
)

// stopwords are articles and prepositions dropped before translation and
// scoring.
var stopwords = map[string]struct{}{
	"de": {}, "da": {}, "do": {}, "das": {}, "dos": {},
	"a": {}, "o": {}, "as": {}, "os": {},
	"um": {}, "uma": {}, "uns": {}, "umas": {},
}

// calabresaVariants covers plural/regional spellings of the lone token
// that must rewrite to the canonical two-word product name.
var calabresaVariants = map[string]struct{}{
	"calabresa": {}, "calabresas": {}, "calabrasa": {}, "calabrasas": {}, "calabrezas": {},
}

func collapseWhitespace(s string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
}

// normalizeUnitsInText canonicalizes quantity+unit pairs in place, so
// "2 lts", "2l" and "2 litros" all become "2l".
func normalizeUnitsInText(text string) string {
	s := strings.ToLower(strings.TrimSpace(text))
	if s == "" {
		return s
	}
	return unitInTextRe.ReplaceAllStringFunc(s, func(m string) string {
		parts := unitInTextRe.FindStringSubmatch(m)
		unit := parts[2]
		if canon, ok := unitCanonical[unit]; ok {
			unit = canon
		}
		return parts[1] + unit
	})
}

// extractUnitToken pulls the desired "2l"-style token out of a query, or
// returns "" when the query names no quantity+unit.
func extractUnitToken(query string) string {
	m := unitTokenRe.FindStringSubmatch(strings.ToLower(query))
	if m == nil {
		return ""
	}
	return strings.ReplaceAll(m[1], ",", ".") + m[2]
}

// textHasUnit reports whether text contains the exact quantity+unit pair,
// tolerating whitespace between number and unit.
func textHasUnit(text, unitToken string) bool {
	if text == "" || unitToken == "" {
		return false
	}
	m := unitTokenOnly.FindStringSubmatch(unitToken)
	if m == nil {
		return false
	}
	re, err := regexp.Compile(`(?i)\b` + regexp.QuoteMeta(m[1]) + `\s*` + regexp.QuoteMeta(m[2]) + `\b`)
	if err != nil {
		return false
	}
	return re.MatchString(text)
}

// stripAccents removes combining marks: "açúcar" -> "acucar".
func stripAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// applyTermTranslations rewrites a query through the synonym map after
// dropping stopwords. A lone content token from the calabresa family
// short-circuits to the canonical product name.
func applyTermTranslations(query string, translations map[string]string) string {
	q := strings.TrimSpace(query)
	if q == "" {
		return q
	}

	tokens := strings.Split(strings.ToLower(q), " ")
	cleaned := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if t == "" {
			continue
		}
		if _, drop := stopwords[t]; drop {
			continue
		}
		cleaned = append(cleaned, t)
	}

	content := make([]string, 0, len(cleaned))
	for _, t := range cleaned {
		if !numericTokenRe.MatchString(t) {
			content = append(content, t)
		}
	}
	if len(content) == 1 {
		if _, ok := calabresaVariants[content[0]]; ok {
			return "linguica calabresa"
		}
	}

	if len(translations) == 0 {
		if out := strings.Join(cleaned, " "); out != "" {
			return out
		}
		return q
	}

	replaced := make([]string, len(cleaned))
	for i, t := range cleaned {
		if tr, ok := translations[t]; ok {
			replaced[i] = tr
		} else {
			replaced[i] = t
		}
	}
	if out := strings.TrimSpace(strings.Join(replaced, " ")); out != "" {
		return out
	}
	return q
}

// tokenizeForMatch lowercases, folds accents, strips punctuation and
// drops stopwords (plus the conjunction "e") for scoring.
func tokenizeForMatch(text string) []string {
	t := stripAccents(strings.ToLower(text))
	t = nonAlnumRe.ReplaceAllString(t, " ")
	var out []string
	for _, tok := range strings.Fields(t) {
		if _, drop := stopwords[tok]; drop || tok == "e" {
			continue
		}
		out = append(out, tok)
	}
	return out
}

// scoreMatch blends token overlap against name+category (0.6) with a
// similarity ratio between the full normalized query and the name (0.4).
func scoreMatch(query, name, category string) float64 {
	qTokens := tokenizeForMatch(normalizeUnitsInText(query))
	if len(qTokens) == 0 {
		return 0
	}
	nameTokens := tokenizeForMatch(name)
	categoryTokens := tokenizeForMatch(category)

	candidate := make(map[string]struct{}, len(nameTokens)+len(categoryTokens))
	for _, t := range nameTokens {
		candidate[t] = struct{}{}
	}
	for _, t := range categoryTokens {
		candidate[t] = struct{}{}
	}

	qSet := make(map[string]struct{}, len(qTokens))
	for _, t := range qTokens {
		qSet[t] = struct{}{}
	}
	var hit int
	for t := range qSet {
		if _, ok := candidate[t]; ok {
			hit++
		}
	}
	overlap := float64(hit) / float64(len(qSet))

	nameNorm := strings.Join(nameTokens, " ")
	if nameNorm == "" {
		return round4(overlap)
	}
	ratio := similarityRatio(strings.Join(qTokens, " "), nameNorm)
	return round4(0.6*overlap + 0.4*ratio)
}

func round4(f float64) float64 {
	return math.Round(f*10000) / 10000
}

// similarityRatio is 2*M/T over the lengths of both strings, where M is
// the total size of the matching blocks found by recursively locating the
// longest common substring (SequenceMatcher semantics, no junk
// heuristic).
func similarityRatio(a, b string) float64 {
	if len(a)+len(b) == 0 {
		return 0
	}
	matched := matchingTotal([]byte(a), []byte(b))
	return float64(2*matched) / float64(len(a)+len(b))
}

func matchingTotal(a, b []byte) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	ai, bi, size := longestMatch(a, b)
	if size == 0 {
		return 0
	}
	return size +
		matchingTotal(a[:ai], b[:bi]) +
		matchingTotal(a[ai+size:], b[bi+size:])
}

func longestMatch(a, b []byte) (int, int, int) {
	bestA, bestB, bestSize := 0, 0, 0
	// lengths[j] holds the match length ending at a[i-1], b[j-1].
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				cur[j] = prev[j-1] + 1
				if cur[j] > bestSize {
					bestSize = cur[j]
					bestA = i - cur[j]
					bestB = j - cur[j]
				}
			} else {
				cur[j] = 0
			}
		}
		prev, cur = cur, prev
	}
	return bestA, bestB, bestSize
}
