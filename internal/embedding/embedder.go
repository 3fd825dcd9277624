package embedding

import "context"

// Vectorizer converts free text into a fixed-size numeric vector.
// Vectors are L2-normalized so a dot product is their cosine similarity.
type Vectorizer interface {
	Name() string
	Dimension() int
	Vectorize(text string) []float32
}

// Func adapts a Vectorizer to the embedding-function shape used by the
// embedded and remote document indexes.
func Func(v Vectorizer) func(ctx context.Context, text string) ([]float32, error) {
	return func(_ context.Context, text string) ([]float32, error) {
		return v.Vectorize(text), nil
	}
}
