package embedding

import (
	"hash/fnv"
	"math"
	"strings"
)

// DefaultDimension is the vector size used when none is configured.
const DefaultDimension = 512

// HashingVectorizer maps the set of words in a text onto a fixed number of
// buckets (feature hashing). It is purely lexical: two texts are close only
// when they share words.
//
// Bucket 0 is reserved and is set only for texts without any word, so that
// every vector can be normalized.
type HashingVectorizer struct {
	dimension int
	stopwords map[string]struct{}
}

// NewHashingVectorizer creates a vectorizer with the given dimension (at least 2).
func NewHashingVectorizer(dimension int) *HashingVectorizer {
	if dimension < 2 {
		dimension = DefaultDimension
	}
	return &HashingVectorizer{
		dimension: dimension,
		stopwords: Stopwords(),
	}
}

// Name returns the identifier of this vectorizer.
func (h *HashingVectorizer) Name() string { return "hashing" }

// Dimension returns the vector size.
func (h *HashingVectorizer) Dimension() int { return h.dimension }

// Terms returns the distinct non-stopword words of text, lower-cased.
func (h *HashingVectorizer) Terms(text string) []string {
	fields := strings.Fields(strings.ToLower(text))
	seen := make(map[string]struct{}, len(fields))
	out := fields[:0]
	for _, f := range fields {
		if _, isStop := h.stopwords[f]; isStop {
			continue
		}
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	return out
}

// Vectorize returns the L2-normalized boolean term vector of text.
func (h *HashingVectorizer) Vectorize(text string) []float32 {
	vec := make([]float32, h.dimension)
	terms := h.Terms(text)
	if len(terms) == 0 {
		vec[0] = 1
		return vec
	}
	for _, t := range terms {
		vec[h.bucket(t)]++
	}
	// L2 normalize
	norm := 0.0
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	norm = math.Sqrt(norm)
	for i := range vec {
		vec[i] = float32(float64(vec[i]) / norm)
	}
	return vec
}

// Empty reports whether text has no indexable words.
func (h *HashingVectorizer) Empty(text string) bool { return len(h.Terms(text)) == 0 }

func (h *HashingVectorizer) bucket(term string) int {
	f := fnv.New32a()
	_, _ = f.Write([]byte(term))
	return 1 + int(f.Sum32()%uint32(h.dimension-1))
}

// Stopwords returns a fresh set of common English function words.
func Stopwords() map[string]struct{} {
	words := []string{
		"a", "an", "the", "and", "or", "but", "if", "then", "else", "for", "to", "of", "in", "on", "at", "by", "with", "as", "is", "are", "was", "were", "be", "been", "being", "it", "this", "that", "these", "those", "from", "up", "down", "over", "under", "again", "further", "than", "so", "such", "into", "about", "between", "through", "during", "before", "after", "above", "below", "out", "off", "own", "same", "too", "very", "can", "will", "just", "don", "should", "now",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}
