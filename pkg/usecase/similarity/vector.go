package similarity

import (
	"math"
	"regexp"
	"strings"
)

// Cosine returns the cosine similarity of a and b. Empty, mismatched or
// zero-norm vectors have similarity 0.
func Cosine(a, b []float64) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}

	sim := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	// rounding may push identical vectors slightly outside [-1,1]
	return math.Max(-1, math.Min(1, sim))
}

// nonWord matches runs outside letters, digits, marks and underscore in any
// script. `\W` is ASCII-only in Go.
var nonWord = regexp.MustCompile(`[^\p{L}\p{N}\p{M}_]+`)

// Tokenize lower-cases text and splits it on non-word characters.
func Tokenize(text string) []string {
	parts := nonWord.Split(strings.ToLower(text), -1)
	tokens := parts[:0]
	for _, p := range parts {
		if p != "" {
			tokens = append(tokens, p)
		}
	}
	return tokens
}

func tokenSet(texts []string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, text := range texts {
		for _, tok := range Tokenize(text) {
			set[tok] = struct{}{}
		}
	}
	return set
}

// Jaccard returns |a∩b| / |a∪b|, or 0 when either set is empty.
func Jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	inter := 0
	for k := range a {
		if _, ok := b[k]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}

// BagOfWords builds term-frequency vectors for a and b aligned over the union
// of their vocabularies.
func BagOfWords(a, b string) ([]float64, []float64) {
	ta, tb := Tokenize(a), Tokenize(b)

	index := make(map[string]int)
	for _, tok := range ta {
		if _, ok := index[tok]; !ok {
			index[tok] = len(index)
		}
	}
	for _, tok := range tb {
		if _, ok := index[tok]; !ok {
			index[tok] = len(index)
		}
	}
	if len(index) == 0 {
		return nil, nil
	}

	va := make([]float64, len(index))
	vb := make([]float64, len(index))
	for _, tok := range ta {
		va[index[tok]]++
	}
	for _, tok := range tb {
		vb[index[tok]]++
	}
	return va, vb
}

func isZero(v []float64) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}
