// Package app assembles the memory stack, models and logger from config. Both
// binaries share it.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	chromemgo "github.com/philippgille/chromem-go"
	"github.com/redis/go-redis/v9"

	"github.com/aiox-platform/contextflow/internal/config"
	"github.com/aiox-platform/contextflow/internal/database"
	"github.com/aiox-platform/contextflow/internal/embedding"
	"github.com/aiox-platform/contextflow/internal/llm"
	"github.com/aiox-platform/contextflow/internal/memory"
	"github.com/aiox-platform/contextflow/internal/memory/store/chromem"
	iredis "github.com/aiox-platform/contextflow/internal/redis"
)

// SetupLogger installs the default slog logger.
func SetupLogger(cfg config.LogConfig) {
	var handler slog.Handler

	opts := &slog.HandlerOptions{}
	switch cfg.Level {
	case "debug":
		opts.Level = slog.LevelDebug
	case "warn":
		opts.Level = slog.LevelWarn
	case "error":
		opts.Level = slog.LevelError
	default:
		opts.Level = slog.LevelInfo
	}

	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	slog.SetDefault(slog.New(handler))
}

// NewEmbedder builds the cached hybrid embedder. The returned closer stops the cache.
func NewEmbedder(cfg config.EmbeddingConfig, openAIKey string) (embedding.Provider, func(), error) {
	var dense embedding.DenseEmbedder
	switch cfg.Provider {
	case "openai":
		dense = embedding.NewOpenAIEmbedder(openAIKey, cfg.Model, cfg.Dimensions)
	case "hash":
		dense = embedding.NewHashEmbedder(cfg.Dimensions)
	default:
		return nil, nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
	}

	var tok embedding.Tokenizer = embedding.WordTokenizer{}
	if cfg.SparseTokenizer == "tiktoken" {
		tok = embedding.NewTiktokenTokenizer()
	}

	hybrid := embedding.NewHybrid(dense, embedding.NewTermWeighter(tok))
	if cfg.CacheSize <= 0 {
		return hybrid, func() {}, nil
	}
	cached, err := embedding.NewCachedProvider(hybrid, cfg.CacheSize)
	if err != nil {
		return nil, nil, err
	}
	return cached, cached.Close, nil
}

// NewModel builds the chat model for the configured provider.
func NewModel(cfg config.LLMConfig) (llm.Model, error) {
	key := cfg.OpenAIAPIKey
	if cfg.Provider == "anthropic" {
		key = cfg.AnthropicAPIKey
	}
	return llm.New(llm.Options{
		Provider:    cfg.Provider,
		Model:       cfg.Model,
		APIKey:      key,
		MaxTokens:   cfg.MaxTokens,
		Temperature: cfg.Temperature,
	})
}

// Stack is an assembled memory layer and the resources behind it.
type Stack struct {
	Memory *memory.Service
	Redis  *redis.Client
	// Pool is nil for the embedded backend.
	Pool *pgxpool.Pool

	closers []func()
}

// Close releases everything the stack opened, in reverse order.
func (s *Stack) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

// Ping checks the short-term store and, for the postgres backend, the database.
func (s *Stack) Ping(ctx context.Context) error {
	err := s.Memory.Ping(ctx)
	if s.Pool != nil {
		if dbErr := database.HealthCheck(ctx, s.Pool); dbErr != nil {
			err = errors.Join(err, fmt.Errorf("postgres: %w", dbErr))
		}
	}
	return err
}

// Open connects Redis and the configured long-term backend and returns the
// memory façade over them.
func Open(ctx context.Context, cfg *config.Config) (_ *Stack, err error) {
	s := &Stack{}
	defer func() {
		if err != nil {
			s.Close()
		}
	}()

	s.Redis, err = iredis.NewClient(ctx, cfg.Redis)
	if err != nil {
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}
	s.closers = append(s.closers, func() { _ = s.Redis.Close() })

	embedder, closeEmbedder, err := NewEmbedder(cfg.Embedding, cfg.LLM.OpenAIAPIKey)
	if err != nil {
		return nil, err
	}
	s.closers = append(s.closers, closeEmbedder)

	index, err := s.openIndex(ctx, cfg)
	if err != nil {
		return nil, err
	}

	ltm := memory.NewLongTermMemory(index, embedder, memory.LongTermOptions{
		RRFK:           cfg.Memory.RRFK,
		PrefetchWindow: cfg.Memory.PrefetchWindow,
	})
	s.Memory = memory.NewService(memory.NewShortTermStore(s.Redis), ltm, memory.Config{
		ShortTermTTL: cfg.Memory.ShortTermTTL,
		MaxTurns:     cfg.Memory.MaxTurns,
	})
	return s, nil
}

func (s *Stack) openIndex(ctx context.Context, cfg *config.Config) (memory.Index, error) {
	switch cfg.Memory.Backend {
	case "postgres":
		pool, err := database.NewPostgresPool(ctx, cfg.DB)
		if err != nil {
			return nil, fmt.Errorf("connecting to postgres: %w", err)
		}
		s.Pool = pool
		s.closers = append(s.closers, pool.Close)
		return memory.NewPostgresIndex(pool, cfg.Memory.Collection), nil

	case "embedded":
		db := chromemgo.NewDB()
		if cfg.Memory.EmbeddedPath != "" {
			var err error
			db, err = chromemgo.NewPersistentDB(cfg.Memory.EmbeddedPath, true)
			if err != nil {
				return nil, fmt.Errorf("opening embedded store %s: %w", cfg.Memory.EmbeddedPath, err)
			}
		}
		store, err := chromem.Open(ctx, db, cfg.Memory.Collection, cfg.Embedding.Dimensions)
		if err != nil {
			return nil, err
		}
		slog.Info("using embedded long-term memory", "path", cfg.Memory.EmbeddedPath)
		return store, nil

	default:
		return nil, fmt.Errorf("unknown memory backend %q", cfg.Memory.Backend)
	}
}
