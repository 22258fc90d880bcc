package comparator

import (
	"sort"
	"strings"

	"github.com/blackcoderx/mcpwatch/internal/baseline"
)

// actionVerbs, conditionKeywords, and outputKeywords are the fixed
// vocabularies scanned for when building an assertion fingerprint (spec
// Glossary: "Assertion fingerprint").
var actionVerbs = map[string]bool{
	"returns": true, "return": true, "accepts": true, "accept": true,
	"rejects": true, "reject": true, "validates": true, "validate": true,
	"throws": true, "throw": true, "escapes": true, "escape": true,
	"sanitizes": true, "sanitize": true, "allows": true, "allow": true,
	"denies": true, "deny": true, "fails": true, "fail": true,
	"succeeds": true, "succeed": true, "caches": true, "cache": true,
	"retries": true, "retry": true, "times out": true, "limits": true,
	"limit": true, "truncates": true, "truncate": true,
}

var conditionKeywords = map[string]bool{
	"when": true, "if": true, "unless": true, "empty": true,
	"invalid": true, "missing": true, "null": true, "too": true,
	"many": true, "concurrent": true, "duplicate": true, "large": true,
	"negative": true, "oversized": true, "malformed": true,
}

var outputKeywords = map[string]bool{
	"error": true, "success": true, "warning": true, "json": true,
	"text": true, "array": true, "object": true, "code": true,
	"message": true, "status": true, "schema": true, "field": true,
}

var stopWords = map[string]bool{
	"a": true, "an": true, "the": true, "and": true, "or": true,
	"of": true, "to": true, "in": true, "on": true, "for": true,
	"with": true, "is": true, "are": true, "this": true, "it": true,
	"its": true, "that": true,
}

func tokenize(s string) []string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !(r >= 'a' && r <= 'z') && !(r >= '0' && r <= '9')
	})
	return fields
}

func matchedFrom(tokens []string, vocab map[string]bool) []string {
	seen := map[string]bool{}
	var out []string
	for _, tok := range tokens {
		if vocab[tok] && !seen[tok] {
			seen[tok] = true
			out = append(out, tok)
		}
	}
	sort.Strings(out)
	return out
}

// Fingerprint builds the colon-joined, lexicographically sorted tuple
// (tool, aspect, action verbs, condition keywords, output keywords)
// extracted from a's free text, used by the Phase 3 assertion diff to
// group semantically equivalent assertions across prose changes.
func Fingerprint(a baseline.BehavioralAssertion) string {
	tokens := tokenize(a.Assertion)

	parts := []string{
		a.Tool,
		string(a.Aspect),
		strings.Join(matchedFrom(tokens, actionVerbs), "+"),
		strings.Join(matchedFrom(tokens, conditionKeywords), "+"),
		strings.Join(matchedFrom(tokens, outputKeywords), "+"),
	}
	return strings.Join(parts, ":")
}

// keywordSet returns a's meaningful (non-stopword) tokens as a set, used
// for the Jaccard description-similarity factor.
func keywordSet(s string) map[string]bool {
	set := map[string]bool{}
	for _, tok := range tokenize(s) {
		if !stopWords[tok] {
			set[tok] = true
		}
	}
	return set
}

// jaccardSimilarity computes |A∩B| / |A∪B| over two assertions' keyword
// sets; two empty sets are defined as perfectly similar.
func jaccardSimilarity(a, b string) float64 {
	setA := keywordSet(a)
	setB := keywordSet(b)
	if len(setA) == 0 && len(setB) == 0 {
		return 1
	}

	intersection := 0
	for tok := range setA {
		if setB[tok] {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 1
	}
	return float64(intersection) / float64(union)
}
