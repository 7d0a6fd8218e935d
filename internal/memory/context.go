package memory

import "time"

// Turn is a single message in the short-term conversation history.
type Turn struct {
	Role      string    `json:"role"` // "user", "assistant" or "system"
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// ContextPayload is the memory context handed to an agent before it calls its model.
type ContextPayload struct {
	RecentTurns      []Turn           `json:"recent_turns"`
	RelevantMemories []RelevantMemory `json:"relevant_memories"`
}

// Empty reports whether neither section carries anything.
func (p *ContextPayload) Empty() bool {
	return len(p.RecentTurns) == 0 && len(p.RelevantMemories) == 0
}

// RelevantMemory is a long-term record returned from hybrid retrieval.
type RelevantMemory struct {
	ID       string            `json:"id"`
	Content  string            `json:"content"`
	Metadata map[string]string `json:"metadata,omitempty"`
	Score    float64           `json:"score"`
}
