package memory

import (
	"slices"
	"strings"
	"time"

	"github.com/aiox-platform/contextflow/internal/embedding"
)

// TopicsKey holds a comma-separated topic list in record metadata.
const TopicsKey = "topics"

// Filter matches string metadata. Every key is an exact AND-match except
// TopicsKey, whose value is a comma-separated list matching records that carry
// any of those topics.
type Filter map[string]string

// SplitTopics parses a comma-separated topic list, trimming blanks and
// dropping duplicates.
func SplitTopics(s string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, t := range strings.Split(s, ",") {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

// Exact returns the filter without its topic condition.
func (f Filter) Exact() Filter {
	if _, ok := f[TopicsKey]; !ok {
		return f
	}
	out := make(Filter, len(f))
	for k, v := range f {
		if k != TopicsKey {
			out[k] = v
		}
	}
	return out
}

// AnyTopics returns the topics of the match-any condition, if any.
func (f Filter) AnyTopics() []string {
	return SplitTopics(f[TopicsKey])
}

// Empty reports whether the filter constrains nothing.
func (f Filter) Empty() bool {
	return len(f.Exact()) == 0 && len(f.AnyTopics()) == 0
}

// Matches reports whether metadata passes every exact pair and, when a topic
// condition is set, shares at least one topic with it.
func (f Filter) Matches(metadata map[string]string) bool {
	for k, v := range f.Exact() {
		if got, ok := metadata[k]; !ok || got != v {
			return false
		}
	}
	want := f.AnyTopics()
	if len(want) == 0 {
		return true
	}
	for _, t := range SplitTopics(metadata[TopicsKey]) {
		if slices.Contains(want, t) {
			return true
		}
	}
	return false
}

// Record is a unit of long-term knowledge. Dense and sparse vectors are always
// derived from Text in a single embedding call.
type Record struct {
	ID        string                 `json:"id"`
	Text      string                 `json:"text"`
	Dense     []float32              `json:"-"`
	Sparse    embedding.SparseVector `json:"-"`
	Metadata  map[string]string      `json:"metadata"`
	CreatedAt time.Time              `json:"created_at"`
}

// ScoredRecord is a Record with a ranking score. Backends fill Score with their
// native similarity; FuseRRF replaces it with the fused score.
type ScoredRecord struct {
	Record
	Score float64 `json:"score"`
}

// LearnRequest is used by the API to store a piece of knowledge.
type LearnRequest struct {
	Text     string            `json:"text" validate:"required,min=1"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// SearchRequest is used by the API to run a hybrid search.
type SearchRequest struct {
	Query  string            `json:"query" validate:"required,min=1"`
	Limit  int               `json:"limit,omitempty" validate:"omitempty,min=1,max=100"`
	Filter map[string]string `json:"filter,omitempty"`
}

// TurnRequest is used by the API to append a turn to a session.
type TurnRequest struct {
	Role    string `json:"role" validate:"required,oneof=user assistant system"`
	Content string `json:"content" validate:"required"`
}

// ForgetRequest is used by the API to delete knowledge by metadata.
type ForgetRequest struct {
	Filter map[string]string `json:"filter" validate:"required,min=1"`
}

// ForgetResult reports how many records a filtered delete removed.
type ForgetResult struct {
	Deleted int64 `json:"deleted"`
}
