package memory

import (
	"encoding/json"
	"time"
)

// Config holds facade-level settings. It is built from config.MemoryConfig at startup.
type Config struct {
	ShortTermTTL time.Duration
	MaxTurns     int
}

// AgentConfig holds per-agent memory settings, usually declared as JSON in the catalog.
type AgentConfig struct {
	Enabled          bool `json:"enabled"`
	ShortTermEnabled bool `json:"short_term_enabled"`
	LongTermEnabled  bool `json:"long_term_enabled"`
	MaxRecentTurns   int  `json:"max_recent_turns"`
	MaxKnowledge     int  `json:"max_knowledge"`
	// ScopeToUser restricts knowledge retrieval to records tagged with the run's user_id.
	ScopeToUser bool `json:"scope_to_user"`
}

// DefaultAgentConfig returns an AgentConfig with sensible defaults.
func DefaultAgentConfig() AgentConfig {
	return AgentConfig{
		Enabled:          true,
		ShortTermEnabled: true,
		LongTermEnabled:  true,
		MaxRecentTurns:   10,
		MaxKnowledge:     5,
		ScopeToUser:      true,
	}
}

// ParseConfig parses an agent memory JSON document into AgentConfig.
// Returns defaults on nil, empty, or invalid input. Partial JSON is merged over defaults.
func ParseConfig(data []byte) AgentConfig {
	cfg := DefaultAgentConfig()
	if len(data) == 0 {
		return cfg
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return cfg
	}
	if len(raw) == 0 {
		return cfg
	}

	// Unmarshal over defaults so only provided fields are overwritten
	_ = json.Unmarshal(data, &cfg)
	return cfg
}
