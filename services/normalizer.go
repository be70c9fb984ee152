package services

import (
	"strings"
	"unicode"

	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var ligatures = strings.NewReplacer(
	"ﬁ", "fi",
	"ﬂ", "fl",
	"ﬀ", "ff",
	"ﬃ", "ffi",
	"ﬄ", "ffl",
	"ﬆ", "st",
	"œ", "oe",
	"æ", "ae",
)

// TextNormalizer bereitet Titel und Abstract für das Keyword-Scoring auf.
type TextNormalizer struct{}

// NewTextNormalizer erstellt einen TextNormalizer.
func NewTextNormalizer() *TextNormalizer {
	return &TextNormalizer{}
}

// maxFoldRounds begrenzt die Wiederholungen von Kleinschreibung und NFKC.
// Praktisch ist der Text nach zwei Runden stabil.
const maxFoldRounds = 8

// Clean wandelt in Kleinbuchstaben um, ersetzt Satz- und Sonderzeichen durch
// Leerzeichen und fasst Leerraum zusammen. Clean(Clean(x)) == Clean(x).
func (tn *TextNormalizer) Clean(s string) string {
	s = tn.fold(s)
	s = strings.Map(func(r rune) rune {
		if unicode.IsPunct(r) || unicode.IsSymbol(r) {
			return ' '
		}
		return r
	}, s)
	return strings.Join(strings.Fields(s), " ")
}

// fold wiederholt Kleinschreibung, Ligaturen und NFKC bis zum Fixpunkt.
// Kleinschreibung kann nicht-normalisierte Folgen erzeugen und NFKC Großbuchstaben (ℌ -> H).
func (tn *TextNormalizer) fold(s string) string {
	for range maxFoldRounds {
		next := tn.normalizeUnicodeAndLigatures(strings.ToLower(s))
		if next == s {
			break
		}
		s = next
	}
	return s
}

// normalizeUnicodeAndLigatures ersetzt gängige Ligaturen und führt NFKC-Normalisierung durch
func (tn *TextNormalizer) normalizeUnicodeAndLigatures(s string) string {
	s = ligatures.Replace(s)
	normalized, _, err := transform.String(transform.Chain(norm.NFKC), s)
	if err != nil {
		return s
	}
	return normalized
}
