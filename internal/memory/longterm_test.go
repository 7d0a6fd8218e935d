package memory

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aiox-platform/contextflow/internal/embedding"
)

// sliceIndex is a brute-force Index for tests.
type sliceIndex struct {
	mu         sync.Mutex
	records    []Record
	failQuery  error
	failWrite  error
	denseLimit int
}

func (s *sliceIndex) Upsert(_ context.Context, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWrite != nil {
		return s.failWrite
	}
	for i := range s.records {
		if s.records[i].ID == rec.ID {
			s.records[i] = rec
			return nil
		}
	}
	s.records = append(s.records, rec)
	return nil
}

func (s *sliceIndex) rank(limit int, filter Filter, score func(Record) float64, keep func(float64) bool) []ScoredRecord {
	out := []ScoredRecord{}
	for _, r := range s.records {
		if !filter.Matches(r.Metadata) {
			continue
		}
		sc := score(r)
		if keep(sc) {
			out = append(out, ScoredRecord{Record: r, Score: sc})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].ID < out[j].ID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (s *sliceIndex) QueryDense(_ context.Context, vec []float32, limit int, filter Filter) ([]ScoredRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failQuery != nil {
		return nil, s.failQuery
	}
	s.denseLimit = limit
	return s.rank(limit, filter, func(r Record) float64 {
		var dot float32
		for i := range vec {
			dot += vec[i] * r.Dense[i]
		}
		return float64(dot)
	}, func(float64) bool { return true }), nil
}

func (s *sliceIndex) QuerySparse(_ context.Context, vec embedding.SparseVector, limit int, filter Filter) ([]ScoredRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failQuery != nil {
		return nil, s.failQuery
	}
	return s.rank(limit, filter, func(r Record) float64 {
		return float64(vec.Dot(r.Sparse))
	}, func(sc float64) bool { return sc > 0 }), nil
}

func (s *sliceIndex) Get(_ context.Context, id string) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.records {
		if r.ID == id {
			return &r, nil
		}
	}
	return nil, ErrNotFound
}

func (s *sliceIndex) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, r := range s.records {
		if r.ID == id {
			s.records = append(s.records[:i], s.records[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func (s *sliceIndex) DeleteByFilter(_ context.Context, filter Filter) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.records[:0]
	var n int64
	for _, r := range s.records {
		if filter.Matches(r.Metadata) {
			n++
			continue
		}
		kept = append(kept, r)
	}
	s.records = kept
	return n, nil
}

func (s *sliceIndex) List(_ context.Context, filter Filter, offset, limit int) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []Record{}
	for _, r := range s.records {
		if filter.Matches(r.Metadata) {
			out = append(out, r)
		}
	}
	if offset >= len(out) {
		return []Record{}, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *sliceIndex) Count(ctx context.Context, filter Filter) (int64, error) {
	recs, err := s.List(ctx, filter, 0, len(s.records)+1)
	return int64(len(recs)), err
}

func testEmbedder() embedding.Provider {
	return embedding.NewHybrid(embedding.NewHashEmbedder(64), embedding.NewTermWeighter(embedding.WordTokenizer{}))
}

type failingProvider struct{}

func (failingProvider) Embed(context.Context, string) (embedding.Vectors, error) {
	return embedding.Vectors{}, errors.New("provider down")
}

func newTestLTM(idx Index) *LongTermMemory {
	return NewLongTermMemory(idx, testEmbedder(), LongTermOptions{})
}

func TestLongTermMemory_InsertStoresBothVectors(t *testing.T) {
	idx := &sliceIndex{}
	ltm := newTestLTM(idx)

	id, err := ltm.Insert(context.Background(), "aspirin dosage guidance", map[string]string{"user_id": "u1"})
	require.NoError(t, err)
	require.Len(t, idx.records, 1)

	rec := idx.records[0]
	assert.Equal(t, id, rec.ID)
	assert.Len(t, rec.Dense, 64)
	assert.Equal(t, 3, rec.Sparse.Len())
	assert.Equal(t, "u1", rec.Metadata["user_id"])
	assert.False(t, rec.CreatedAt.IsZero())
}

func TestLongTermMemory_IDsAreTimeOrdered(t *testing.T) {
	ltm := newTestLTM(&sliceIndex{})
	ctx := context.Background()

	first, err := ltm.Insert(ctx, "first", nil)
	require.NoError(t, err)
	second, err := ltm.Insert(ctx, "second", nil)
	require.NoError(t, err)
	assert.Less(t, first, second)
}

func TestLongTermMemory_InsertErrors(t *testing.T) {
	ctx := context.Background()

	_, err := newTestLTM(&sliceIndex{}).Insert(ctx, "   ", nil)
	assert.ErrorIs(t, err, ErrEmptyText)

	_, err = NewLongTermMemory(&sliceIndex{}, failingProvider{}, LongTermOptions{}).Insert(ctx, "text", nil)
	assert.ErrorIs(t, err, ErrEmbedding)

	_, err = newTestLTM(&sliceIndex{failWrite: errors.New("disk full")}).Insert(ctx, "text", nil)
	assert.ErrorIs(t, err, ErrIndexWrite)
}

func TestLongTermMemory_RetrieveEmptyIndex(t *testing.T) {
	got, err := newTestLTM(&sliceIndex{}).Retrieve(context.Background(), "anything at all", 5, nil)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestLongTermMemory_RetrieveSelf(t *testing.T) {
	ltm := newTestLTM(&sliceIndex{})
	ctx := context.Background()

	texts := []string{
		"Patient presents with persistent cough and fever",
		"Quarterly earnings beat analyst expectations",
		"Copyright infringement claims against generative models",
	}
	ids := make([]string, len(texts))
	for i, txt := range texts {
		id, err := ltm.Insert(ctx, txt, nil)
		require.NoError(t, err)
		ids[i] = id
	}

	for i, txt := range texts {
		got, err := ltm.Retrieve(ctx, txt, 1, nil)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, ids[i], got[0].ID)
	}
}

func TestLongTermMemory_FilterIsolatesUsers(t *testing.T) {
	ltm := newTestLTM(&sliceIndex{})
	ctx := context.Background()

	_, err := ltm.Insert(ctx, "alice portfolio holds tech stocks", map[string]string{"user_id": "alice"})
	require.NoError(t, err)
	_, err = ltm.Insert(ctx, "bob portfolio holds tech stocks", map[string]string{"user_id": "bob"})
	require.NoError(t, err)

	got, err := ltm.Retrieve(ctx, "portfolio tech stocks", 10, Filter{"user_id": "alice"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "alice", got[0].Metadata["user_id"])
}

func TestLongTermMemory_PrefetchWindow(t *testing.T) {
	idx := &sliceIndex{}
	ltm := NewLongTermMemory(idx, testEmbedder(), LongTermOptions{PrefetchWindow: 7})
	ctx := context.Background()

	_, err := ltm.Retrieve(ctx, "query", 3, nil)
	require.NoError(t, err)
	assert.Equal(t, 7, idx.denseLimit)

	_, err = ltm.Retrieve(ctx, "query", 12, nil)
	require.NoError(t, err)
	assert.Equal(t, 12, idx.denseLimit)
}

func TestLongTermMemory_RetrieveErrors(t *testing.T) {
	ctx := context.Background()

	_, err := NewLongTermMemory(&sliceIndex{}, failingProvider{}, LongTermOptions{}).Retrieve(ctx, "q", 5, nil)
	assert.ErrorIs(t, err, ErrEmbedding)

	_, err = newTestLTM(&sliceIndex{failQuery: errors.New("timeout")}).Retrieve(ctx, "q", 5, nil)
	assert.ErrorIs(t, err, ErrQuery)

	_, err = newTestLTM(&sliceIndex{}).Retrieve(ctx, "", 5, nil)
	assert.ErrorIs(t, err, ErrEmptyText)
}

func TestLongTermMemory_Delete(t *testing.T) {
	ltm := newTestLTM(&sliceIndex{})
	ctx := context.Background()

	id, err := ltm.Insert(ctx, "temporary note", nil)
	require.NoError(t, err)
	require.NoError(t, ltm.Delete(ctx, id))
	assert.ErrorIs(t, ltm.Delete(ctx, id), ErrNotFound)

	_, err = ltm.Get(ctx, id)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLongTermMemory_DeleteByMetadata(t *testing.T) {
	ltm := newTestLTM(&sliceIndex{})
	ctx := context.Background()

	for _, u := range []string{"a", "a", "b"} {
		_, err := ltm.Insert(ctx, "note for "+u, map[string]string{"user_id": u})
		require.NoError(t, err)
	}

	_, err := ltm.DeleteByMetadata(ctx, nil)
	assert.ErrorIs(t, err, ErrEmptyFilter)

	n, err := ltm.DeleteByMetadata(ctx, Filter{"user_id": "a"})
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	recs, total, err := ltm.List(ctx, nil, 1, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, "b", recs[0].Metadata["user_id"])
}

func TestLongTermMemory_ListPages(t *testing.T) {
	ltm := newTestLTM(&sliceIndex{})
	ctx := context.Background()

	for _, txt := range []string{"one", "two", "three"} {
		_, err := ltm.Insert(ctx, txt, nil)
		require.NoError(t, err)
	}

	page, total, err := ltm.List(ctx, nil, 2, 2)
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	require.Len(t, page, 1)
	assert.Equal(t, "three", page[0].Text)
}
