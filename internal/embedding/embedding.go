// Package embedding turns text into the dense and sparse vectors stored in
// long-term memory.
package embedding

import (
	"context"
	"fmt"
)

// DenseEmbedder produces a fixed-length semantic vector for a text.
type DenseEmbedder interface {
	EmbedDense(ctx context.Context, text string) ([]float32, error)
	Dimensions() int
}

// SparseEncoder produces a term-weighted vector for a text.
type SparseEncoder interface {
	EncodeSparse(ctx context.Context, text string) (SparseVector, error)
}

// Provider computes both vector spaces for a text.
type Provider interface {
	Embed(ctx context.Context, text string) (Vectors, error)
}

// Vectors holds the dense and sparse representation of one text.
type Vectors struct {
	Dense  []float32
	Sparse SparseVector
}

// Hybrid combines a dense embedder and a sparse encoder. Both vectors are
// computed from the same input in a single call.
type Hybrid struct {
	dense  DenseEmbedder
	sparse SparseEncoder
}

// NewHybrid creates a Provider from a dense embedder and a sparse encoder.
func NewHybrid(dense DenseEmbedder, sparse SparseEncoder) *Hybrid {
	return &Hybrid{dense: dense, sparse: sparse}
}

func (h *Hybrid) Embed(ctx context.Context, text string) (Vectors, error) {
	dense, err := h.dense.EmbedDense(ctx, text)
	if err != nil {
		return Vectors{}, fmt.Errorf("dense embedding: %w", err)
	}
	sparse, err := h.sparse.EncodeSparse(ctx, text)
	if err != nil {
		return Vectors{}, fmt.Errorf("sparse encoding: %w", err)
	}
	return Vectors{Dense: dense, Sparse: sparse}, nil
}

// Dimensions returns the dense vector size.
func (h *Hybrid) Dimensions() int {
	return h.dense.Dimensions()
}
