package identity

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Scorer rates how well a spoken name matches a directory contact name.
// Scores are in [0,1] and must be deterministic for the same inputs.
type Scorer interface {
	Score(query, candidate string) float64
}

// TokenScorer is the default scorer. It folds diacritics, lowercases and
// tokenizes both names, then combines token-set overlap with a containment
// bonus so that a first name alone still matches a full directory name.
type TokenScorer struct{}

// NewTokenScorer creates a new TokenScorer
func NewTokenScorer() *TokenScorer {
	return &TokenScorer{}
}

var foldTransformer = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Fold removes diacritic marks so "Müller" and "Mueller"-free "Muller"
// compare equal
func Fold(s string) string {
	folded, _, err := transform.String(foldTransformer, s)
	if err != nil {
		return s
	}
	return folded
}

func tokenize(s string) []string {
	s = strings.ToLower(Fold(s))
	return strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// Score implements Scorer
func (ts *TokenScorer) Score(query, candidate string) float64 {
	qTokens := tokenize(query)
	cTokens := tokenize(candidate)
	if len(qTokens) == 0 || len(cTokens) == 0 {
		return 0
	}

	if strings.Join(qTokens, " ") == strings.Join(cTokens, " ") {
		return 1
	}

	matched := 0
	cSet := make(map[string]bool, len(cTokens))
	for _, t := range cTokens {
		cSet[t] = true
	}
	qAllContained := true
	for _, t := range qTokens {
		if cSet[t] || prefixMatch(t, cTokens) {
			matched++
		} else {
			qAllContained = false
		}
	}

	union := len(qTokens) + len(cTokens) - matched
	jaccard := float64(matched) / float64(union)

	// a query fully contained in the candidate ("Julia" in "Julia Weber")
	// is a strong match even though the token overlap alone is weak
	if qAllContained {
		contained := 0.85 + 0.15*jaccard
		if contained > jaccard {
			return contained
		}
	}

	return jaccard
}

// prefixMatch accepts token pairs where one is a 3+ char prefix of the
// other, covering clipped transcriptions like "Jul" for "Julia"
func prefixMatch(token string, candidates []string) bool {
	if len(token) < 3 {
		return false
	}
	for _, c := range candidates {
		if len(c) >= 3 && (strings.HasPrefix(c, token) || strings.HasPrefix(token, c)) {
			return true
		}
	}
	return false
}
