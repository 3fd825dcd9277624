package embedding

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func norm(v []float32) float64 {
	s := 0.0
	for _, x := range v {
		s += float64(x) * float64(x)
	}
	return math.Sqrt(s)
}

func dot(a, b []float32) float64 {
	s := 0.0
	for i := range a {
		s += float64(a[i]) * float64(b[i])
	}
	return s
}

func TestHashingVectorizerNormalized(t *testing.T) {
	h := NewHashingVectorizer(64)
	assert.Equal(t, 64, h.Dimension())
	for _, text := range []string{"The chief betrayed his people", "", "the of and", "sea sea sea"} {
		v := h.Vectorize(text)
		require.Len(t, v, 64)
		assert.InDelta(t, 1.0, norm(v), 1e-6, "text %q", text)
	}
}

func TestHashingVectorizerLexicalOverlap(t *testing.T) {
	h := NewHashingVectorizer(DefaultDimension)
	q := h.Vectorize("betrayal chief")
	v1 := h.Vectorize("The chief betrayed his people")
	same := h.Vectorize("CHIEF betrayal")

	assert.Greater(t, dot(q, v1), 0.0)
	assert.InDelta(t, 1.0, dot(q, same), 1e-6)
}

func TestHashingVectorizerTerms(t *testing.T) {
	h := NewHashingVectorizer(16)
	assert.Equal(t, []string{"chief", "betrayed"}, h.Terms("The Chief chief betrayed"))
	assert.True(t, h.Empty("the and of"))
	assert.False(t, h.Empty("sea"))
}

func TestSmallDimensionFallsBack(t *testing.T) {
	assert.Equal(t, DefaultDimension, NewHashingVectorizer(1).Dimension())
}

func TestFuncAdapter(t *testing.T) {
	h := NewHashingVectorizer(8)
	fn := Func(h)
	v, err := fn(context.Background(), "sea")
	require.NoError(t, err)
	assert.Equal(t, h.Vectorize("sea"), v)
}
