package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// Validate checks Config for problems that would break API startup.
// It collects all errors into a single joined error.
func (c *Config) Validate() error {
	errs := c.serverErrors()
	errs = append(errs, c.runtimeErrors()...)
	return joinErrors(errs)
}

// ValidateRuntime checks only what local workflow and memory commands need:
// backends, providers and tuning. Listener ports and the JWT secret are skipped.
func (c *Config) ValidateRuntime() error {
	return joinErrors(c.runtimeErrors())
}

func joinErrors(errs []string) error {
	if len(errs) > 0 {
		return errors.New("config validation failed:\n  " + strings.Join(errs, "\n  "))
	}
	return nil
}

func (c *Config) serverErrors() []string {
	var errs []string

	if len(c.JWT.Secret) < 32 {
		errs = append(errs, "JWT_SECRET must be at least 32 characters")
	}

	// Port ranges
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("SERVER_PORT must be 1-65535, got %d", c.Server.Port))
	}
	if c.GRPC.Port < 1 || c.GRPC.Port > 65535 {
		errs = append(errs, fmt.Sprintf("GRPC_PORT must be 1-65535, got %d", c.GRPC.Port))
	}
	if c.XMPP.Enabled {
		if !c.NATS.Enabled {
			errs = append(errs, "XMPP_ENABLED requires NATS_ENABLED")
		}
		if c.XMPP.ComponentSecret == "" {
			errs = append(errs, "XMPP_COMPONENT_SECRET is required when XMPP is enabled")
		}
	}
	return errs
}

func (c *Config) runtimeErrors() []string {
	var errs []string

	if c.Redis.Port < 1 || c.Redis.Port > 65535 {
		errs = append(errs, fmt.Sprintf("REDIS_PORT must be 1-65535, got %d", c.Redis.Port))
	}

	switch c.Memory.Backend {
	case "postgres":
		if c.DB.Password == "" {
			errs = append(errs, "DB_PASSWORD is required for the postgres memory backend")
		}
		if c.DB.Port < 1 || c.DB.Port > 65535 {
			errs = append(errs, fmt.Sprintf("DB_PORT must be 1-65535, got %d", c.DB.Port))
		}
	case "embedded":
	default:
		errs = append(errs, fmt.Sprintf("MEMORY_BACKEND must be postgres or embedded, got %q", c.Memory.Backend))
	}

	if c.Memory.ShortTermTTL <= 0 {
		errs = append(errs, "MEMORY_STM_TTL must be positive")
	}
	if c.Memory.RRFK < 1 {
		errs = append(errs, fmt.Sprintf("MEMORY_RRF_K must be positive, got %d", c.Memory.RRFK))
	}
	if c.Memory.PrefetchWindow < 1 {
		errs = append(errs, fmt.Sprintf("MEMORY_PREFETCH_WINDOW must be positive, got %d", c.Memory.PrefetchWindow))
	}

	switch c.Embedding.Provider {
	case "openai":
		if c.LLM.OpenAIAPIKey == "" {
			errs = append(errs, "OPENAI_API_KEY is required for the openai embedding provider")
		}
	case "hash":
		slog.Warn("EMBEDDING_PROVIDER=hash produces lexical-only dense vectors")
	default:
		errs = append(errs, fmt.Sprintf("EMBEDDING_PROVIDER must be openai or hash, got %q", c.Embedding.Provider))
	}
	if c.Embedding.Dimensions < 1 {
		errs = append(errs, "EMBEDDING_DIMENSIONS must be positive")
	}
	switch c.Embedding.SparseTokenizer {
	case "tiktoken", "word":
	default:
		errs = append(errs, fmt.Sprintf("EMBEDDING_SPARSE_TOKENIZER must be tiktoken or word, got %q", c.Embedding.SparseTokenizer))
	}

	switch c.LLM.Provider {
	case "openai":
		if c.LLM.OpenAIAPIKey == "" {
			errs = append(errs, "OPENAI_API_KEY is required for the openai llm provider")
		}
	case "anthropic":
		if c.LLM.AnthropicAPIKey == "" {
			errs = append(errs, "ANTHROPIC_API_KEY is required for the anthropic llm provider")
		}
	case "echo":
	default:
		errs = append(errs, fmt.Sprintf("LLM_PROVIDER must be openai, anthropic or echo, got %q", c.LLM.Provider))
	}

	if c.Workflow.StepTimeout <= 0 {
		errs = append(errs, "WORKFLOW_STEP_TIMEOUT must be positive")
	}

	return errs
}
