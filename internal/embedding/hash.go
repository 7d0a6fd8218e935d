package embedding

import (
	"context"
	"math"
	"strings"
	"unicode"
)

// HashEmbedder generates deterministic dense vectors without a model. Each
// word seeds a pseudo-random direction and a text is the normalised sum of its
// words, so texts sharing words land close together. Used offline and in tests.
type HashEmbedder struct {
	dimensions int
}

// NewHashEmbedder creates a HashEmbedder with the given vector size.
func NewHashEmbedder(dimensions int) *HashEmbedder {
	return &HashEmbedder{dimensions: dimensions}
}

func (h *HashEmbedder) EmbedDense(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, h.dimensions)
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, word := range words {
		seed := uint64(hashWord(word))
		for i := range vec {
			// LCG step, mapped to [-1, 1]
			seed = seed*6364136223846793005 + 1442695040888963407
			vec[i] += float32(int64(seed)) / float32(math.MaxInt64)
		}
	}
	return normalize(vec), nil
}

func (h *HashEmbedder) Dimensions() int {
	return h.dimensions
}

func normalize(vec []float32) []float32 {
	var norm float64
	for _, v := range vec {
		norm += float64(v * v)
	}
	if norm == 0 {
		return vec
	}
	n := float32(math.Sqrt(norm))
	for i := range vec {
		vec[i] /= n
	}
	return vec
}
