package memory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/aiox-platform/contextflow/internal/embedding"
)

// DefaultLimit is used when a retrieval asks for a non-positive number of results.
const DefaultLimit = 5

// Index is a vector store holding dense and sparse vectors for the same record
// side by side. Implementations return ErrNotFound for missing ids and leave
// other error classification to LongTermMemory.
type Index interface {
	Upsert(ctx context.Context, rec Record) error
	QueryDense(ctx context.Context, vec []float32, limit int, filter Filter) ([]ScoredRecord, error)
	QuerySparse(ctx context.Context, vec embedding.SparseVector, limit int, filter Filter) ([]ScoredRecord, error)
	Get(ctx context.Context, id string) (*Record, error)
	Delete(ctx context.Context, id string) error
	DeleteByFilter(ctx context.Context, filter Filter) (int64, error)
	List(ctx context.Context, filter Filter, offset, limit int) ([]Record, error)
	Count(ctx context.Context, filter Filter) (int64, error)
}

// LongTermOptions tunes hybrid retrieval.
type LongTermOptions struct {
	RRFK           int
	PrefetchWindow int
}

// LongTermMemory stores knowledge with dense and sparse embeddings and
// retrieves it with rank fusion over both.
type LongTermMemory struct {
	index    Index
	embedder embedding.Provider
	opts     LongTermOptions
}

// NewLongTermMemory creates a LongTermMemory. Zero options fall back to k=60 and a window of 20.
func NewLongTermMemory(index Index, embedder embedding.Provider, opts LongTermOptions) *LongTermMemory {
	if opts.RRFK <= 0 {
		opts.RRFK = 60
	}
	if opts.PrefetchWindow <= 0 {
		opts.PrefetchWindow = 20
	}
	return &LongTermMemory{index: index, embedder: embedder, opts: opts}
}

// Insert embeds text once and writes the record with both vectors in a single upsert.
func (m *LongTermMemory) Insert(ctx context.Context, text string, metadata map[string]string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyText
	}

	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generating record id: %w", err)
	}

	vecs, err := m.embedder.Embed(ctx, text)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrEmbedding, err)
	}

	meta := make(map[string]string, len(metadata))
	for k, v := range metadata {
		meta[k] = v
	}
	if topics, ok := meta[TopicsKey]; ok {
		meta[TopicsKey] = strings.Join(SplitTopics(topics), ",")
	}

	rec := Record{
		ID:        id.String(),
		Text:      text,
		Dense:     vecs.Dense,
		Sparse:    vecs.Sparse,
		Metadata:  meta,
		CreatedAt: time.Now().UTC(),
	}
	if err := m.index.Upsert(ctx, rec); err != nil {
		return "", fmt.Errorf("%w: upserting %s: %w", ErrIndexWrite, rec.ID, err)
	}
	return rec.ID, nil
}

// Retrieve returns up to limit records ranked by fused dense and sparse relevance.
// An index with no matches yields an empty, non-nil slice.
func (m *LongTermMemory) Retrieve(ctx context.Context, query string, limit int, filter Filter) ([]ScoredRecord, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyText
	}
	if limit <= 0 {
		limit = DefaultLimit
	}

	vecs, err := m.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEmbedding, err)
	}

	window := max(limit, m.opts.PrefetchWindow)

	var dense, sparse []ScoredRecord
	g, gctx := errgroup.WithContext(ctx)
	// a zero query vector has no direction to rank by
	if !isZero(vecs.Dense) {
		g.Go(func() error {
			var err error
			dense, err = m.index.QueryDense(gctx, vecs.Dense, window, filter)
			if err != nil {
				return fmt.Errorf("dense query: %w", err)
			}
			return nil
		})
	}
	if vecs.Sparse.Len() > 0 {
		g.Go(func() error {
			var err error
			sparse, err = m.index.QuerySparse(gctx, vecs.Sparse, window, filter)
			if err != nil {
				return fmt.Errorf("sparse query: %w", err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrQuery, err)
	}

	return FuseRRF(m.opts.RRFK, limit, dense, sparse), nil
}

// Get fetches a single record.
func (m *LongTermMemory) Get(ctx context.Context, id string) (*Record, error) {
	rec, err := m.index.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrQuery, err)
	}
	return rec, nil
}

// Delete removes one record by id.
func (m *LongTermMemory) Delete(ctx context.Context, id string) error {
	if err := m.index.Delete(ctx, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return err
		}
		return fmt.Errorf("%w: deleting %s: %w", ErrIndexWrite, id, err)
	}
	return nil
}

// DeleteByMetadata removes every record matching filter and returns how many went.
func (m *LongTermMemory) DeleteByMetadata(ctx context.Context, filter Filter) (int64, error) {
	if filter.Empty() {
		return 0, ErrEmptyFilter
	}
	n, err := m.index.DeleteByFilter(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrIndexWrite, err)
	}
	return n, nil
}

// List returns one page of records matching filter, oldest first, with the total match count.
func (m *LongTermMemory) List(ctx context.Context, filter Filter, page, pageSize int) ([]Record, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}

	recs, err := m.index.List(ctx, filter, (page-1)*pageSize, pageSize)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: listing: %w", ErrQuery, err)
	}
	total, err := m.index.Count(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: counting: %w", ErrQuery, err)
	}
	return recs, total, nil
}

func isZero(vec []float32) bool {
	for _, v := range vec {
		if v != 0 {
			return false
		}
	}
	return true
}
