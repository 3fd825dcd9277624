// Package similarity scores lexical overlap between a query and a candidate text.
package similarity

import (
	"math"
	"strings"
)

// Scorer computes the Ochiai coefficient (cosine over boolean term presence).
type Scorer struct{}

// NewScorer returns a lexical scorer.
func NewScorer() Scorer { return Scorer{} }

// Score implements domain.Scorer.
func (Scorer) Score(query, candidate string) float64 { return Score(query, candidate) }

// Score returns |A∩B| / sqrt(|A||B|) over the lower-cased whitespace token sets
// of query and candidate. Either set empty yields 0.
func Score(query, candidate string) float64 {
	a := TokenSet(query)
	b := TokenSet(candidate)
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	// iterate the smaller set
	small, large := a, b
	if len(small) > len(large) {
		small, large = large, small
	}
	inter := 0
	for t := range small {
		if _, ok := large[t]; ok {
			inter++
		}
	}
	if inter == len(a) && inter == len(b) {
		return 1
	}
	return float64(inter) / math.Sqrt(float64(len(a))*float64(len(b)))
}

// TokenSet lower-cases s and collapses its whitespace-delimited words into a set.
func TokenSet(s string) map[string]struct{} {
	fields := strings.Fields(strings.ToLower(s))
	m := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		m[f] = struct{}{}
	}
	return m
}
