// Package chromem is an in-process memory.Index backed by chromem-go.
//
// chromem ranks dense vectors. Sparse vectors and creation times ride along in
// reserved metadata keys, and a side map of records serves sparse ranking,
// listing and counting. Opening a persistent chromem database restores the
// side map from the stored documents.
package chromem

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	chromemgo "github.com/philippgille/chromem-go"

	"github.com/aiox-platform/contextflow/internal/embedding"
	"github.com/aiox-platform/contextflow/internal/memory"
)

const (
	sparseKey  = "_sparse"
	createdKey = "_created_at"
)

// ErrReservedKey rejects metadata that would collide with the keys the store
// keeps its own data under.
var ErrReservedKey = errors.New("metadata key is reserved")

// Store implements memory.Index.
type Store struct {
	mu      sync.RWMutex
	col     *chromemgo.Collection
	records map[string]memory.Record
}

// Open returns a Store over the named collection of db, loading any documents
// already present. dims is the dense vector size used to probe for them.
func Open(ctx context.Context, db *chromemgo.DB, collection string, dims int) (*Store, error) {
	col, err := db.GetOrCreateCollection(collection, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("opening collection %s: %w", collection, err)
	}

	s := &Store{col: col, records: make(map[string]memory.Record)}
	if n := col.Count(); n > 0 {
		probe := make([]float32, dims)
		probe[0] = 1
		docs, err := col.QueryEmbedding(ctx, probe, n, nil, nil)
		if err != nil {
			return nil, fmt.Errorf("loading collection %s: %w", collection, err)
		}
		for _, d := range docs {
			rec, err := fromDocument(d.ID, d.Content, d.Embedding, d.Metadata)
			if err != nil {
				return nil, err
			}
			s.records[rec.ID] = rec
		}
	}
	return s, nil
}

// New returns a Store over a fresh in-memory database.
func New(collection string) (*Store, error) {
	return Open(context.Background(), chromemgo.NewDB(), collection, 1)
}

func (s *Store) Upsert(ctx context.Context, rec memory.Record) error {
	if isZero(rec.Dense) {
		return errors.New("dense vector has no direction")
	}

	meta := make(map[string]string, len(rec.Metadata)+2)
	for k, v := range rec.Metadata {
		if k == sparseKey || k == createdKey {
			return fmt.Errorf("%w: %s", ErrReservedKey, k)
		}
		meta[k] = v
	}
	meta[sparseKey] = encodeSparse(rec.Sparse)
	meta[createdKey] = rec.CreatedAt.UTC().Format(time.RFC3339Nano)

	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.col.AddDocument(ctx, chromemgo.Document{
		ID:        rec.ID,
		Metadata:  meta,
		Embedding: rec.Dense,
		Content:   rec.Text,
	})
	if err != nil {
		return fmt.Errorf("adding document: %w", err)
	}
	s.records[rec.ID] = rec
	return nil
}

func (s *Store) QueryDense(ctx context.Context, vec []float32, limit int, filter memory.Filter) ([]memory.ScoredRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	exact := filter.Exact()
	matching, candidates := 0, 0
	for _, r := range s.records {
		if exact.Matches(r.Metadata) {
			candidates++
			if filter.Matches(r.Metadata) {
				matching++
			}
		}
	}
	results := []memory.ScoredRecord{}
	if matching == 0 || limit <= 0 {
		return results, nil
	}

	// chromem's where clause is exact-only, so a topic condition is applied
	// after ranking every exact candidate.
	n := min(limit, matching)
	if len(filter.AnyTopics()) > 0 {
		n = candidates
	}
	var where map[string]string
	if len(exact) > 0 {
		where = exact
	}
	docs, err := s.col.QueryEmbedding(ctx, vec, n, where, nil)
	if err != nil {
		return nil, fmt.Errorf("querying collection: %w", err)
	}

	for _, d := range docs {
		rec, ok := s.records[d.ID]
		if !ok || !filter.Matches(rec.Metadata) {
			continue
		}
		results = append(results, memory.ScoredRecord{Record: rec, Score: float64(d.Similarity)})
	}
	sortScored(results)
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// QuerySparse ranks by inner product and keeps only records sharing a term with vec.
func (s *Store) QuerySparse(_ context.Context, vec embedding.SparseVector, limit int, filter memory.Filter) ([]memory.ScoredRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	results := []memory.ScoredRecord{}
	for _, r := range s.records {
		if !filter.Matches(r.Metadata) {
			continue
		}
		if score := vec.Dot(r.Sparse); score > 0 {
			results = append(results, memory.ScoredRecord{Record: r, Score: float64(score)})
		}
	}
	sortScored(results)
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func (s *Store) Get(_ context.Context, id string) (*memory.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[id]
	if !ok {
		return nil, memory.ErrNotFound
	}
	return &rec, nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[id]; !ok {
		return memory.ErrNotFound
	}
	if err := s.col.Delete(ctx, nil, nil, id); err != nil {
		return fmt.Errorf("deleting document: %w", err)
	}
	delete(s.records, id)
	return nil
}

func (s *Store) DeleteByFilter(ctx context.Context, filter memory.Filter) (int64, error) {
	if filter.Empty() {
		return 0, memory.ErrEmptyFilter
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var ids []string
	for id, r := range s.records {
		if filter.Matches(r.Metadata) {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return 0, nil
	}
	if err := s.col.Delete(ctx, nil, nil, ids...); err != nil {
		return 0, fmt.Errorf("deleting documents: %w", err)
	}
	for _, id := range ids {
		delete(s.records, id)
	}
	return int64(len(ids)), nil
}

func (s *Store) List(_ context.Context, filter memory.Filter, offset, limit int) ([]memory.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := s.matching(filter)
	if offset >= len(all) {
		return []memory.Record{}, nil
	}
	all = all[offset:]
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (s *Store) Count(_ context.Context, filter memory.Filter) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.matching(filter))), nil
}

// matching returns records passing filter, oldest first. Callers hold the lock.
func (s *Store) matching(filter memory.Filter) []memory.Record {
	out := []memory.Record{}
	for _, r := range s.records {
		if filter.Matches(r.Metadata) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func sortScored(rs []memory.ScoredRecord) {
	sort.Slice(rs, func(i, j int) bool {
		if rs[i].Score != rs[j].Score {
			return rs[i].Score > rs[j].Score
		}
		return rs[i].ID < rs[j].ID
	})
}

func fromDocument(id, content string, dense []float32, meta map[string]string) (memory.Record, error) {
	sparse, err := decodeSparse(meta[sparseKey])
	if err != nil {
		return memory.Record{}, fmt.Errorf("decoding sparse vector of %s: %w", id, err)
	}
	created, _ := time.Parse(time.RFC3339Nano, meta[createdKey])

	userMeta := make(map[string]string, len(meta))
	for k, v := range meta {
		if k != sparseKey && k != createdKey {
			userMeta[k] = v
		}
	}
	return memory.Record{
		ID:        id,
		Text:      content,
		Dense:     dense,
		Sparse:    sparse,
		Metadata:  userMeta,
		CreatedAt: created,
	}, nil
}

// encodeSparse renders a sparse vector as "index:weight" pairs.
func encodeSparse(v embedding.SparseVector) string {
	var b strings.Builder
	for i, idx := range v.Indices {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatUint(uint64(idx), 10))
		b.WriteByte(':')
		b.WriteString(strconv.FormatFloat(float64(v.Values[i]), 'g', -1, 32))
	}
	return b.String()
}

func decodeSparse(s string) (embedding.SparseVector, error) {
	weights := make(map[uint32]float32)
	if s == "" {
		return embedding.NewSparseVector(weights), nil
	}
	for _, pair := range strings.Split(s, ",") {
		idx, val, ok := strings.Cut(pair, ":")
		if !ok {
			return embedding.SparseVector{}, fmt.Errorf("malformed pair %q", pair)
		}
		i, err := strconv.ParseUint(idx, 10, 32)
		if err != nil {
			return embedding.SparseVector{}, err
		}
		f, err := strconv.ParseFloat(val, 32)
		if err != nil {
			return embedding.SparseVector{}, err
		}
		weights[uint32(i)] = float32(f)
	}
	return embedding.NewSparseVector(weights), nil
}

func isZero(vec []float32) bool {
	for _, v := range vec {
		if v != 0 {
			return false
		}
	}
	return true
}
