package embedding

import (
	"context"
	"fmt"

	"github.com/dgraph-io/ristretto"

	"github.com/aiox-platform/contextflow/internal/metrics"
)

// CachedProvider memoises Embed results by exact text. Identical texts always
// produce identical vectors, so caching never breaks dense/sparse consistency.
type CachedProvider struct {
	next  Provider
	cache *ristretto.Cache
}

// NewCachedProvider wraps next with an in-process cache holding up to maxItems texts.
func NewCachedProvider(next Provider, maxItems int64) (*CachedProvider, error) {
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: maxItems * 10,
		MaxCost:     maxItems,
		BufferItems: 64,
		// cost counts entries, not bytes
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, fmt.Errorf("creating embedding cache: %w", err)
	}
	return &CachedProvider{next: next, cache: cache}, nil
}

func (c *CachedProvider) Embed(ctx context.Context, text string) (Vectors, error) {
	if v, ok := c.cache.Get(text); ok {
		metrics.EmbeddingCacheTotal.WithLabelValues("hit").Inc()
		return v.(Vectors), nil
	}
	metrics.EmbeddingCacheTotal.WithLabelValues("miss").Inc()

	vecs, err := c.next.Embed(ctx, text)
	if err != nil {
		return Vectors{}, err
	}
	c.cache.Set(text, vecs, 1)
	return vecs, nil
}

// Wait blocks until pending cache writes are applied.
func (c *CachedProvider) Wait() {
	c.cache.Wait()
}

// Close releases the cache goroutines.
func (c *CachedProvider) Close() {
	c.cache.Close()
}
