package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeUnitsInText(t *testing.T) {
	cases := map[string]string{
		"2 lts coca cola":   "2l coca cola",
		"2l coca cola":      "2l coca cola",
		"2 litros de coca":  "2l de coca",
		"coca 2 LITROS":     "coca 2l",
		"1,5 lt guarana":    "1,5l guarana",
		"500 ml suco":       "500ml suco",
		"5 kg arroz":        "5kg arroz",
		"200 g presunto":    "200g presunto",
		"arroz sem unidade": "arroz sem unidade",
	}
	for in, want := range cases {
		assert.Equal(t, want, normalizeUnitsInText(in), "input %q", in)
	}
}

func TestExtractUnitToken(t *testing.T) {
	assert.Equal(t, "2l", extractUnitToken("2l coca cola"))
	assert.Equal(t, "1.5l", extractUnitToken("guarana 1,5l gelado"))
	assert.Equal(t, "500ml", extractUnitToken("500ml suco"))
	assert.Equal(t, "", extractUnitToken("coca cola"))
	assert.Equal(t, "", extractUnitToken(""))
}

func TestTextHasUnit(t *testing.T) {
	assert.True(t, textHasUnit("Coca-Cola 2L", "2l"))
	assert.True(t, textHasUnit("Coca-Cola 2 L retornavel", "2l"))
	assert.False(t, textHasUnit("Coca-Cola 350ml", "2l"))
	assert.False(t, textHasUnit("Coca-Cola 12l", "2l"))
	assert.False(t, textHasUnit("", "2l"))
	assert.False(t, textHasUnit("Coca-Cola 2L", ""))
}

func TestStripAccents(t *testing.T) {
	assert.Equal(t, "acucar cristal", stripAccents("açúcar cristal"))
	assert.Equal(t, "linguica", stripAccents("linguiça"))
	assert.Equal(t, "cafe", stripAccents("café"))
	assert.Equal(t, "arroz", stripAccents("arroz"))
}

func TestApplyTermTranslationsDropsStopwords(t *testing.T) {
	out := applyTermTranslations("um pacote de arroz", nil)
	assert.Equal(t, "pacote arroz", out)
}

func TestApplyTermTranslationsSynonyms(t *testing.T) {
	translations := map[string]string{"refri": "refrigerante"}
	assert.Equal(t, "refrigerante 2l", applyTermTranslations("refri 2l", translations))
	assert.Equal(t, "arroz", applyTermTranslations("arroz", translations))
}

func TestApplyTermTranslationsCalabresaRewrite(t *testing.T) {
	for _, q := range []string{"calabresa", "calabresas", "calabrasa", "1 calabresa", "2x calabresa"} {
		assert.Equal(t, "linguica calabresa", applyTermTranslations(q, nil), "query %q", q)
	}
	// Two content tokens keep the original wording.
	assert.Equal(t, "pizza calabresa", applyTermTranslations("pizza calabresa", nil))
}

func TestTokenizeForMatch(t *testing.T) {
	assert.Equal(t, []string{"linguica", "calabresa"}, tokenizeForMatch("Linguiça Calabresa"))
	assert.Equal(t, []string{"arroz", "feijao"}, tokenizeForMatch("arroz e feijão"))
	assert.Equal(t, []string{"coca", "cola", "2l"}, tokenizeForMatch("Coca-Cola 2L"))
	assert.Empty(t, tokenizeForMatch("de da do"))
}

func TestScoreMatch(t *testing.T) {
	// All query tokens present in the name: high score, well past the
	// acceptance threshold.
	score := scoreMatch("coca cola 2l", "Coca-Cola 2L", "Bebidas")
	assert.GreaterOrEqual(t, score, 0.9)

	// No token overlap stays well below the acceptance threshold even
	// with incidental character-level similarity.
	assert.Less(t, scoreMatch("arroz", "Detergente Neutro", "Limpeza"), matchOKThreshold)

	// Category tokens count toward overlap.
	withCategory := scoreMatch("bebidas", "Guarana Antarctica", "Bebidas")
	withoutCategory := scoreMatch("bebidas", "Guarana Antarctica", "")
	assert.Greater(t, withCategory, withoutCategory)
}

func TestScoreMatchAccentInsensitive(t *testing.T) {
	plain := scoreMatch("linguica calabresa", "Linguiça Calabresa", "")
	accented := scoreMatch("linguiça calabresa", "Linguiça Calabresa", "")
	assert.Equal(t, plain, accented)
	assert.GreaterOrEqual(t, plain, matchOKThreshold)
}

func TestSimilarityRatio(t *testing.T) {
	assert.Equal(t, 1.0, similarityRatio("abc", "abc"))
	assert.Equal(t, 0.0, similarityRatio("abc", "xyz"))
	assert.Equal(t, 0.0, similarityRatio("", ""))

	// Same blocks as difflib: "abcd" vs "bcde" share "bcd".
	assert.InDelta(t, 0.75, similarityRatio("abcd", "bcde"), 1e-9)
}

func TestCollapseWhitespace(t *testing.T) {
	assert.Equal(t, "coca cola 2l", collapseWhitespace("  coca   cola\t2l  "))
	assert.Equal(t, "", collapseWhitespace("   "))
}
