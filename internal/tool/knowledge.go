package tool

import (
	"context"
	"fmt"
	"strings"

	"github.com/aiox-platform/contextflow/internal/memory"
)

// Recaller is the slice of the memory service KnowledgeSearch needs.
type Recaller interface {
	RecallKnowledge(ctx context.Context, query string, limit int, filter memory.Filter) ([]memory.ScoredRecord, error)
}

// KnowledgeSearch looks up long-term memory for the calling user.
type KnowledgeSearch struct {
	memory Recaller
	limit  int
}

// NewKnowledgeSearch creates a KnowledgeSearch returning up to limit records.
func NewKnowledgeSearch(mem Recaller, limit int) *KnowledgeSearch {
	if limit <= 0 {
		limit = memory.DefaultLimit
	}
	return &KnowledgeSearch{memory: mem, limit: limit}
}

func (k *KnowledgeSearch) Name() string { return "knowledge_search" }

func (k *KnowledgeSearch) Description() string {
	return "Searches the user's long-term memory for related past findings."
}

func (k *KnowledgeSearch) Invoke(ctx context.Context, in Input) (string, error) {
	var filter memory.Filter
	if in.UserID != "" {
		filter = memory.Filter{memory.UserKey: in.UserID}
	}
	records, err := k.memory.RecallKnowledge(ctx, in.Query, k.limit, filter)
	if err != nil {
		return "", fmt.Errorf("knowledge search: %w", err)
	}
	if len(records) == 0 {
		return "No stored knowledge matched.", nil
	}

	var b strings.Builder
	for i, rec := range records {
		fmt.Fprintf(&b, "%d. [%.4f] %s\n", i+1, rec.Score, rec.Text)
	}
	return strings.TrimRight(b.String(), "\n"), nil
}
