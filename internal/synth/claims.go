package synth

import (
	"sort"
	"strings"
	"unicode"
)

// stopwords excluded from claim keys so grouping keys carry only
// meaningful terms
var stopwords = map[string]bool{
	"a": true, "an": true, "the": true, "is": true, "are": true,
	"was": true, "were": true, "be": true, "been": true, "being": true,
	"of": true, "in": true, "on": true, "at": true, "to": true,
	"for": true, "with": true, "by": true, "that": true, "this": true,
	"it": true, "its": true, "as": true, "than": true, "and": true,
	"or": true, "but": true, "has": true, "have": true, "had": true,
	"do": true, "does": true, "did": true, "will": true, "would": true,
	"can": true, "could": true, "should": true, "according": true,
	"very": true, "much": true, "also": true,
}

// negation tokens flip a claim's polarity and are dropped from the key
var negations = map[string]bool{
	"not": true, "never": true, "no": true, "cannot": true,
	"isnt": true, "arent": true, "doesnt": true, "dont": true,
	"wasnt": true, "werent": true, "wont": true, "without": true,
}

// antonyms normalize opposing comparatives to one canonical term with
// a polarity flip, so "X is slower than Y" groups against
// "X is faster than Y" as a contradiction
var antonyms = map[string]string{
	"slower":  "faster",
	"worse":   "better",
	"fewer":   "more",
	"smaller": "larger",
	"weaker":  "stronger",
	"older":   "newer",
}

// ClaimKey reduces claim text to a canonical grouping key and reports
// whether normalization flipped the claim's polarity. The key is the
// sorted set of significant tokens, so word order does not matter.
func ClaimKey(text string) (key string, negated bool) {
	tokens := tokenize(text)

	flips := 0
	var kept []string
	seen := make(map[string]bool)
	for _, tok := range tokens {
		if negations[tok] {
			flips++
			continue
		}
		if canonical, ok := antonyms[tok]; ok {
			flips++
			tok = canonical
		}
		if stopwords[tok] || seen[tok] {
			continue
		}
		seen[tok] = true
		kept = append(kept, tok)
	}

	sort.Strings(kept)
	return strings.Join(kept, " "), flips%2 == 1
}

// tokenize lowercases and strips everything but letters and digits
func tokenize(text string) []string {
	var tokens []string
	var current strings.Builder
	flush := func() {
		if current.Len() > 0 {
			tokens = append(tokens, current.String())
			current.Reset()
		}
	}
	for _, r := range strings.ToLower(text) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			current.WriteRune(r)
		case r == '\'' || r == '’':
			// contractions stay one token so "isn't" matches "isnt"
		default:
			flush()
		}
	}
	flush()
	return tokens
}

// KeysMatch reports whether two grouping keys refer to the same
// finding, by equality or near-duplicate token overlap
func KeysMatch(a, b string) bool {
	if a == b {
		return true
	}
	return jaccard(keyTokens(a), keyTokens(b)) >= nearDuplicateThreshold
}

// keyTokens splits a grouping key back into its token set
func keyTokens(key string) map[string]bool {
	set := make(map[string]bool)
	for _, tok := range strings.Fields(key) {
		set[tok] = true
	}
	return set
}

// jaccard measures token-set overlap between two keys
func jaccard(a, b map[string]bool) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	inter := 0
	for tok := range a {
		if b[tok] {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}
