package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/dotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	Server    ServerConfig
	GRPC      GRPCConfig
	DB        DBConfig
	Redis     RedisConfig
	NATS      NATSConfig
	XMPP      XMPPConfig
	JWT       JWTConfig
	Log       LogConfig
	Memory    MemoryConfig
	Embedding EmbeddingConfig
	LLM       LLMConfig
	Workflow  WorkflowConfig
	CORS      CORSConfig
	RateLimit RateLimitConfig
}

type ServerConfig struct {
	Host string
	Port int
}

type GRPCConfig struct {
	Host string
	Port int
}

func (c GRPCConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type DBConfig struct {
	Host           string
	Port           int
	User           string
	Password       string
	Name           string
	SSLMode        string
	MaxConns       int32
	MigrationsPath string
}

func (c DBConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode)
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type NATSConfig struct {
	Enabled bool
	URL     string
}

type XMPPConfig struct {
	Enabled         bool
	Host            string
	Port            int
	ComponentName   string
	ComponentSecret string
	AllowedDomains  []string
}

func (c XMPPConfig) ComponentAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type JWTConfig struct {
	Secret string
	Issuer string
	Expiry time.Duration
}

type LogConfig struct {
	Level  string
	Format string
}

// MemoryConfig configures the hybrid memory layer.
type MemoryConfig struct {
	Backend          string // "postgres" or "embedded"
	Collection       string
	EmbeddedPath     string // chromem persistence directory; empty keeps it in memory
	ShortTermTTL     time.Duration
	MaxTurns         int
	RRFK             int
	PrefetchWindow   int
	KnowledgeResults int
}

type EmbeddingConfig struct {
	Provider        string // "openai" or "hash"
	Model           string
	Dimensions      int
	SparseTokenizer string // "tiktoken" or "word"
	CacheSize       int64
}

type LLMConfig struct {
	Provider        string // "openai", "anthropic" or "echo"
	Model           string
	MaxTokens       int
	Temperature     float64
	OpenAIAPIKey    string
	AnthropicAPIKey string
}

type WorkflowConfig struct {
	StepTimeout time.Duration
	UserID      string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type RateLimitConfig struct {
	Requests  int
	WindowSec int
}

func Load() (*Config, error) {
	k := koanf.New(".")

	// Load .env file if it exists (ignore error if missing)
	_ = k.Load(file.Provider(".env"), dotenv.Parser())

	// Load environment variables (override .env)
	err := k.Load(env.Provider("", ".", func(s string) string {
		return strings.ToLower(strings.ReplaceAll(s, "_", "."))
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("loading env vars: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Host: k.String("server.host"),
			Port: k.Int("server.port"),
		},
		GRPC: GRPCConfig{
			Host: k.String("grpc.host"),
			Port: k.Int("grpc.port"),
		},
		DB: DBConfig{
			Host:           k.String("db.host"),
			Port:           k.Int("db.port"),
			User:           k.String("db.user"),
			Password:       k.String("db.password"),
			Name:           k.String("db.name"),
			SSLMode:        k.String("db.sslmode"),
			MaxConns:       int32(k.Int("db.max.conns")),
			MigrationsPath: k.String("db.migrations.path"),
		},
		Redis: RedisConfig{
			Host:     k.String("redis.host"),
			Port:     k.Int("redis.port"),
			Password: k.String("redis.password"),
			DB:       k.Int("redis.db"),
		},
		NATS: NATSConfig{
			Enabled: k.Bool("nats.enabled"),
			URL:     k.String("nats.url"),
		},
		XMPP: XMPPConfig{
			Enabled:         k.Bool("xmpp.enabled"),
			Host:            k.String("xmpp.host"),
			Port:            k.Int("xmpp.port"),
			ComponentName:   k.String("xmpp.component.name"),
			ComponentSecret: k.String("xmpp.component.secret"),
			AllowedDomains:  splitList(k.String("xmpp.allowed.domains")),
		},
		JWT: JWTConfig{
			Secret: k.String("jwt.secret"),
			Issuer: k.String("jwt.issuer"),
		},
		Log: LogConfig{
			Level:  k.String("log.level"),
			Format: k.String("log.format"),
		},
		Memory: MemoryConfig{
			Backend:          k.String("memory.backend"),
			Collection:       k.String("memory.collection"),
			EmbeddedPath:     k.String("memory.embedded.path"),
			MaxTurns:         k.Int("memory.max.turns"),
			RRFK:             k.Int("memory.rrf.k"),
			PrefetchWindow:   k.Int("memory.prefetch.window"),
			KnowledgeResults: k.Int("memory.knowledge.results"),
		},
		Embedding: EmbeddingConfig{
			Provider:        k.String("embedding.provider"),
			Model:           k.String("embedding.model"),
			Dimensions:      k.Int("embedding.dimensions"),
			SparseTokenizer: k.String("embedding.sparse.tokenizer"),
			CacheSize:       k.Int64("embedding.cache.size"),
		},
		LLM: LLMConfig{
			Provider:        k.String("llm.provider"),
			Model:           k.String("llm.model"),
			MaxTokens:       k.Int("llm.max.tokens"),
			Temperature:     k.Float64("llm.temperature"),
			OpenAIAPIKey:    k.String("openai.api.key"),
			AnthropicAPIKey: k.String("anthropic.api.key"),
		},
		Workflow: WorkflowConfig{
			UserID: k.String("workflow.user.id"),
		},
		CORS: CORSConfig{
			AllowedOrigins: splitList(k.String("cors.allowed.origins")),
		},
		RateLimit: RateLimitConfig{
			Requests:  k.Int("ratelimit.requests"),
			WindowSec: k.Int("ratelimit.window.sec"),
		},
	}

	applyDefaults(cfg)

	// Parse durations
	cfg.JWT.Expiry, err = parseDuration(k.String("jwt.expiry"), "24h")
	if err != nil {
		return nil, fmt.Errorf("parsing jwt expiry: %w", err)
	}
	cfg.Memory.ShortTermTTL, err = parseDuration(k.String("memory.stm.ttl"), "60s")
	if err != nil {
		return nil, fmt.Errorf("parsing memory stm ttl: %w", err)
	}
	cfg.Workflow.StepTimeout, err = parseDuration(k.String("workflow.step.timeout"), "120s")
	if err != nil {
		return nil, fmt.Errorf("parsing workflow step timeout: %w", err)
	}

	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.GRPC.Host == "" {
		cfg.GRPC.Host = "0.0.0.0"
	}
	if cfg.GRPC.Port == 0 {
		cfg.GRPC.Port = 50051
	}
	if cfg.DB.Host == "" {
		cfg.DB.Host = "localhost"
	}
	if cfg.DB.Port == 0 {
		cfg.DB.Port = 5432
	}
	if cfg.DB.User == "" {
		cfg.DB.User = "contextflow"
	}
	if cfg.DB.Name == "" {
		cfg.DB.Name = "contextflow"
	}
	if cfg.DB.SSLMode == "" {
		cfg.DB.SSLMode = "disable"
	}
	if cfg.DB.MaxConns == 0 {
		cfg.DB.MaxConns = 25
	}
	if cfg.DB.MigrationsPath == "" {
		cfg.DB.MigrationsPath = "migrations"
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.NATS.URL == "" {
		cfg.NATS.URL = "nats://localhost:4222"
	}
	if cfg.XMPP.Host == "" {
		cfg.XMPP.Host = "localhost"
	}
	if cfg.XMPP.Port == 0 {
		cfg.XMPP.Port = 5275
	}
	if cfg.XMPP.ComponentName == "" {
		cfg.XMPP.ComponentName = "agents.contextflow.local"
	}
	if cfg.JWT.Issuer == "" {
		cfg.JWT.Issuer = "contextflow"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
	if cfg.Memory.Backend == "" {
		cfg.Memory.Backend = "postgres"
	}
	if cfg.Memory.Collection == "" {
		cfg.Memory.Collection = "long_term_memory"
	}
	if cfg.Memory.MaxTurns == 0 {
		cfg.Memory.MaxTurns = 20
	}
	if cfg.Memory.RRFK == 0 {
		cfg.Memory.RRFK = 60
	}
	if cfg.Memory.PrefetchWindow == 0 {
		cfg.Memory.PrefetchWindow = 20
	}
	if cfg.Memory.KnowledgeResults == 0 {
		cfg.Memory.KnowledgeResults = 5
	}
	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = "openai"
	}
	if cfg.Embedding.Model == "" {
		cfg.Embedding.Model = "text-embedding-3-small"
	}
	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = 384
	}
	if cfg.Embedding.SparseTokenizer == "" {
		cfg.Embedding.SparseTokenizer = "tiktoken"
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 10_000
	}
	if cfg.LLM.Provider == "" {
		cfg.LLM.Provider = "openai"
	}
	if cfg.LLM.Model == "" {
		switch cfg.LLM.Provider {
		case "anthropic":
			cfg.LLM.Model = "claude-3-5-haiku-latest"
		default:
			cfg.LLM.Model = "gpt-4o-mini"
		}
	}
	if cfg.LLM.MaxTokens == 0 {
		cfg.LLM.MaxTokens = 2048
	}
	if cfg.Workflow.UserID == "" {
		cfg.Workflow.UserID = "7f3a9c2e8b1d4f6a"
	}
	if cfg.RateLimit.Requests == 0 {
		cfg.RateLimit.Requests = 60
	}
	if cfg.RateLimit.WindowSec == 0 {
		cfg.RateLimit.WindowSec = 60
	}
}

func parseDuration(s, def string) (time.Duration, error) {
	if s == "" {
		s = def
	}
	return time.ParseDuration(s)
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
