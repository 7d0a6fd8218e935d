package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"

	"github.com/aiox-platform/contextflow/internal/embedding"
)

// PostgresIndex implements Index on a pgvector table. Dense and sparse vectors
// share a row, so a single upsert writes both atomically.
type PostgresIndex struct {
	pool       *pgxpool.Pool
	collection string
}

// NewPostgresIndex creates an index scoped to one collection of memory_records.
func NewPostgresIndex(pool *pgxpool.Pool, collection string) *PostgresIndex {
	return &PostgresIndex{pool: pool, collection: collection}
}

// filterArgs splits a filter into the jsonb containment document for exact
// keys and the topic array for the match-any condition.
func filterArgs(filter Filter) (string, []string, error) {
	topics := filter.AnyTopics()
	if topics == nil {
		topics = []string{}
	}
	exact := filter.Exact()
	if len(exact) == 0 {
		return `{}`, topics, nil
	}
	b, err := json.Marshal(exact)
	if err != nil {
		return "", nil, fmt.Errorf("encoding filter: %w", err)
	}
	return string(b), topics, nil
}

// topicsClause matches rows sharing any topic with the array parameter; an
// empty array matches everything.
func topicsClause(param int) string {
	p := fmt.Sprintf("$%d::text[]", param)
	return fmt.Sprintf("(cardinality(%s) = 0 OR string_to_array(metadata->>'topics', ',') && %s)", p, p)
}

func (r *PostgresIndex) Upsert(ctx context.Context, rec Record) error {
	id, err := uuid.Parse(rec.ID)
	if err != nil {
		return fmt.Errorf("parsing record id: %w", err)
	}
	meta, err := json.Marshal(rec.Metadata)
	if err != nil {
		return fmt.Errorf("marshaling metadata: %w", err)
	}
	if rec.Metadata == nil {
		meta = []byte(`{}`)
	}

	sparse := pgvector.NewSparseVectorFromMap(rec.Sparse.Map(), embedding.SparseDimensions)
	_, err = r.pool.Exec(ctx,
		`INSERT INTO memory_records (id, collection, content, dense, sparse, metadata, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (id) DO UPDATE
		 SET content = EXCLUDED.content, dense = EXCLUDED.dense, sparse = EXCLUDED.sparse,
		     metadata = EXCLUDED.metadata`,
		id, r.collection, rec.Text, pgvector.NewVector(rec.Dense), sparse, meta, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("upserting record: %w", err)
	}
	return nil
}

func (r *PostgresIndex) QueryDense(ctx context.Context, vec []float32, limit int, filter Filter) ([]ScoredRecord, error) {
	f, topics, err := filterArgs(filter)
	if err != nil {
		return nil, err
	}
	rows, err := r.pool.Query(ctx,
		`SELECT id, content, metadata, created_at, 1 - (dense <=> $1) AS similarity
		 FROM memory_records
		 WHERE collection = $2 AND metadata @> $3::jsonb AND `+topicsClause(5)+`
		 ORDER BY dense <=> $1, id
		 LIMIT $4`,
		pgvector.NewVector(vec), r.collection, f, limit, topics,
	)
	if err != nil {
		return nil, fmt.Errorf("dense search: %w", err)
	}
	return collectScored(rows, false)
}

// QuerySparse ranks by inner product. pgvector's <#> operator returns the
// negated inner product, so only rows with a negative distance share any terms.
func (r *PostgresIndex) QuerySparse(ctx context.Context, vec embedding.SparseVector, limit int, filter Filter) ([]ScoredRecord, error) {
	f, topics, err := filterArgs(filter)
	if err != nil {
		return nil, err
	}
	rows, err := r.pool.Query(ctx,
		`SELECT id, content, metadata, created_at, sparse <#> $1 AS distance
		 FROM memory_records
		 WHERE collection = $2 AND metadata @> $3::jsonb AND (sparse <#> $1) < 0 AND `+topicsClause(5)+`
		 ORDER BY distance, id
		 LIMIT $4`,
		pgvector.NewSparseVectorFromMap(vec.Map(), embedding.SparseDimensions), r.collection, f, limit, topics,
	)
	if err != nil {
		return nil, fmt.Errorf("sparse search: %w", err)
	}
	return collectScored(rows, true)
}

func collectScored(rows pgx.Rows, negate bool) ([]ScoredRecord, error) {
	defer rows.Close()

	results := []ScoredRecord{}
	for rows.Next() {
		var sr ScoredRecord
		if err := scanRecord(rows, &sr.Record, &sr.Score); err != nil {
			return nil, err
		}
		if negate {
			sr.Score = -sr.Score
		}
		results = append(results, sr)
	}
	return results, rows.Err()
}

func scanRecord(row pgx.Row, rec *Record, extra ...any) error {
	var (
		id        uuid.UUID
		meta      []byte
		createdAt time.Time
	)
	dest := append([]any{&id, &rec.Text, &meta, &createdAt}, extra...)
	if err := row.Scan(dest...); err != nil {
		return err
	}
	rec.ID = id.String()
	rec.CreatedAt = createdAt
	if err := json.Unmarshal(meta, &rec.Metadata); err != nil {
		return fmt.Errorf("decoding metadata of %s: %w", rec.ID, err)
	}
	return nil
}

func (r *PostgresIndex) Get(ctx context.Context, id string) (*Record, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrNotFound
	}
	var rec Record
	err = scanRecord(r.pool.QueryRow(ctx,
		`SELECT id, content, metadata, created_at
		 FROM memory_records
		 WHERE id = $1 AND collection = $2`,
		uid, r.collection,
	), &rec)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting record: %w", err)
	}
	return &rec, nil
}

func (r *PostgresIndex) Delete(ctx context.Context, id string) error {
	uid, err := uuid.Parse(id)
	if err != nil {
		return ErrNotFound
	}
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM memory_records WHERE id = $1 AND collection = $2`,
		uid, r.collection,
	)
	if err != nil {
		return fmt.Errorf("deleting record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresIndex) DeleteByFilter(ctx context.Context, filter Filter) (int64, error) {
	if filter.Empty() {
		return 0, ErrEmptyFilter
	}
	f, topics, err := filterArgs(filter)
	if err != nil {
		return 0, err
	}
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM memory_records WHERE collection = $1 AND metadata @> $2::jsonb AND `+topicsClause(3),
		r.collection, f, topics,
	)
	if err != nil {
		return 0, fmt.Errorf("deleting records by filter: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *PostgresIndex) List(ctx context.Context, filter Filter, offset, limit int) ([]Record, error) {
	f, topics, err := filterArgs(filter)
	if err != nil {
		return nil, err
	}
	rows, err := r.pool.Query(ctx,
		`SELECT id, content, metadata, created_at
		 FROM memory_records
		 WHERE collection = $1 AND metadata @> $2::jsonb AND `+topicsClause(5)+`
		 ORDER BY created_at, id
		 LIMIT $3 OFFSET $4`,
		r.collection, f, limit, offset, topics,
	)
	if err != nil {
		return nil, fmt.Errorf("listing records: %w", err)
	}
	defer rows.Close()

	records := []Record{}
	for rows.Next() {
		var rec Record
		if err := scanRecord(rows, &rec); err != nil {
			return nil, fmt.Errorf("scanning record: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (r *PostgresIndex) Count(ctx context.Context, filter Filter) (int64, error) {
	f, topics, err := filterArgs(filter)
	if err != nil {
		return 0, err
	}
	var count int64
	err = r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM memory_records WHERE collection = $1 AND metadata @> $2::jsonb AND `+topicsClause(3),
		r.collection, f, topics,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting records: %w", err)
	}
	return count, nil
}
