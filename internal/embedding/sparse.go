package embedding

import (
	"context"
	"hash/fnv"
	"log/slog"
	"math"
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/pkoukk/tiktoken-go"
)

// SparseDimensions is the size of the token-id space shared by all tokenizers.
// cl100k_base ids fit below it and hashed words are folded into it.
const SparseDimensions = 1 << 20

// bm25K1 controls term-frequency saturation.
const bm25K1 = 1.2

// SparseVector maps token ids to weights. Indices are sorted ascending and unique.
type SparseVector struct {
	Indices []uint32  `json:"indices"`
	Values  []float32 `json:"values"`
}

// NewSparseVector builds a SparseVector from an id to weight map, dropping zero weights.
func NewSparseVector(weights map[uint32]float32) SparseVector {
	idx := make([]uint32, 0, len(weights))
	for id, w := range weights {
		if w != 0 {
			idx = append(idx, id)
		}
	}
	sort.Slice(idx, func(i, j int) bool { return idx[i] < idx[j] })

	vals := make([]float32, len(idx))
	for i, id := range idx {
		vals[i] = weights[id]
	}
	return SparseVector{Indices: idx, Values: vals}
}

// Len returns the number of non-zero entries.
func (v SparseVector) Len() int {
	return len(v.Indices)
}

// Dot returns the inner product of two sparse vectors.
func (v SparseVector) Dot(o SparseVector) float32 {
	var sum float32
	i, j := 0, 0
	for i < len(v.Indices) && j < len(o.Indices) {
		switch {
		case v.Indices[i] == o.Indices[j]:
			sum += v.Values[i] * o.Values[j]
			i++
			j++
		case v.Indices[i] < o.Indices[j]:
			i++
		default:
			j++
		}
	}
	return sum
}

// Map returns the vector as a map keyed by int32 ids, the form pgvector expects.
func (v SparseVector) Map() map[int32]float32 {
	m := make(map[int32]float32, len(v.Indices))
	for i, id := range v.Indices {
		m[int32(id)] = v.Values[i]
	}
	return m
}

// Tokenizer splits text into token ids in [0, SparseDimensions).
type Tokenizer interface {
	Tokens(text string) []uint32
}

// TermWeighter encodes text as saturated term frequencies over a Tokenizer,
// L2-normalised so that inner products are comparable across documents.
type TermWeighter struct {
	tok Tokenizer
}

// NewTermWeighter creates a SparseEncoder over the given tokenizer.
func NewTermWeighter(tok Tokenizer) *TermWeighter {
	return &TermWeighter{tok: tok}
}

func (w *TermWeighter) EncodeSparse(_ context.Context, text string) (SparseVector, error) {
	tf := make(map[uint32]float32)
	for _, id := range w.tok.Tokens(text) {
		tf[id]++
	}

	var norm float64
	for id, f := range tf {
		weight := f * (bm25K1 + 1) / (f + bm25K1)
		tf[id] = weight
		norm += float64(weight * weight)
	}
	if norm > 0 {
		n := float32(math.Sqrt(norm))
		for id := range tf {
			tf[id] /= n
		}
	}
	return NewSparseVector(tf), nil
}

// WordTokenizer lowercases text, splits on non-alphanumerics and hashes each
// word into the sparse id space. It needs no vocabulary download.
type WordTokenizer struct{}

func (WordTokenizer) Tokens(text string) []uint32 {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	ids := make([]uint32, 0, len(words))
	for _, word := range words {
		ids = append(ids, hashWord(word)%SparseDimensions)
	}
	return ids
}

func hashWord(word string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(word))
	return h.Sum32()
}

// TiktokenTokenizer uses the cl100k_base BPE vocabulary. The encoding is
// loaded lazily on first use.
type TiktokenTokenizer struct {
	once sync.Once
	enc  *tiktoken.Tiktoken
	err  error
}

// NewTiktokenTokenizer creates a tokenizer over cl100k_base.
func NewTiktokenTokenizer() *TiktokenTokenizer {
	return &TiktokenTokenizer{}
}

// Load forces the vocabulary to load and reports any error.
func (t *TiktokenTokenizer) Load() error {
	t.once.Do(func() {
		t.enc, t.err = tiktoken.GetEncoding("cl100k_base")
		if t.err != nil {
			slog.Warn("embedding: cl100k_base unavailable, falling back to word tokens", "error", t.err)
		}
	})
	return t.err
}

func (t *TiktokenTokenizer) Tokens(text string) []uint32 {
	if err := t.Load(); err != nil {
		return WordTokenizer{}.Tokens(text)
	}
	raw := t.enc.Encode(strings.ToLower(text), nil, nil)
	ids := make([]uint32, 0, len(raw))
	for _, id := range raw {
		ids = append(ids, uint32(id)%SparseDimensions)
	}
	return ids
}
