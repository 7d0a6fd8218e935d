package memory

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aiox-platform/contextflow/internal/metrics"
)

// Service is the single entry point agents use for memory. It pairs the
// session-scoped short-term store with long-term hybrid retrieval.
type Service struct {
	shortTerm *ShortTermStore
	longTerm  *LongTermMemory
	cfg       Config
}

// NewService creates a new memory service.
func NewService(shortTerm *ShortTermStore, longTerm *LongTermMemory, cfg Config) *Service {
	if cfg.ShortTermTTL <= 0 {
		cfg.ShortTermTTL = 60 * time.Second
	}
	return &Service{
		shortTerm: shortTerm,
		longTerm:  longTerm,
		cfg:       cfg,
	}
}

// WithShortTermTTL returns a copy of the service that writes turns with a different TTL.
func (s *Service) WithShortTermTTL(ttl time.Duration) *Service {
	cp := *s
	if ttl > 0 {
		cp.cfg.ShortTermTTL = ttl
	}
	return &cp
}

// observe is deferred with a pointer to the named error result so it sees the final value.
func observe(op string, start time.Time, err *error) {
	status := "ok"
	if *err != nil {
		status = "error"
	}
	metrics.MemoryOpsTotal.WithLabelValues(op, status).Inc()
	metrics.MemoryOpDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

// RememberTurn appends a message to the session history and refreshes its expiry.
func (s *Service) RememberTurn(ctx context.Context, sessionKey, role, content string) (err error) {
	defer observe("remember_turn", time.Now(), &err)
	turn := Turn{Role: role, Content: content, Timestamp: time.Now().UTC()}
	return s.shortTerm.AppendTurn(ctx, sessionKey, turn, s.cfg.MaxTurns, s.cfg.ShortTermTTL)
}

// RecallContext returns the session history oldest first. Expired or unknown
// sessions yield an empty slice.
func (s *Service) RecallContext(ctx context.Context, sessionKey string) (turns []Turn, err error) {
	defer observe("recall_context", time.Now(), &err)
	return s.shortTerm.Turns(ctx, sessionKey, s.cfg.MaxTurns)
}

// ClearSession drops everything stored for a session.
func (s *Service) ClearSession(ctx context.Context, sessionKey string) (err error) {
	defer observe("clear_session", time.Now(), &err)
	return s.shortTerm.Clear(ctx, sessionKey)
}

// Learn stores text as long-term knowledge.
func (s *Service) Learn(ctx context.Context, text string, metadata map[string]string) (id string, err error) {
	defer observe("learn", time.Now(), &err)
	return s.longTerm.Insert(ctx, text, metadata)
}

// RecallKnowledge runs hybrid retrieval over long-term knowledge.
func (s *Service) RecallKnowledge(ctx context.Context, query string, limit int, filter Filter) (recs []ScoredRecord, err error) {
	defer observe("recall_knowledge", time.Now(), &err)
	return s.longTerm.Retrieve(ctx, query, limit, filter)
}

// GetKnowledge fetches one long-term record.
func (s *Service) GetKnowledge(ctx context.Context, id string) (rec *Record, err error) {
	defer observe("get_knowledge", time.Now(), &err)
	return s.longTerm.Get(ctx, id)
}

// Forget deletes one long-term record.
func (s *Service) Forget(ctx context.Context, id string) (err error) {
	defer observe("forget", time.Now(), &err)
	return s.longTerm.Delete(ctx, id)
}

// ForgetWhere deletes every long-term record matching filter.
func (s *Service) ForgetWhere(ctx context.Context, filter Filter) (n int64, err error) {
	defer observe("forget_where", time.Now(), &err)
	return s.longTerm.DeleteByMetadata(ctx, filter)
}

// ListKnowledge pages through long-term records matching filter.
func (s *Service) ListKnowledge(ctx context.Context, filter Filter, page, pageSize int) (recs []Record, total int64, err error) {
	defer observe("list_knowledge", time.Now(), &err)
	return s.longTerm.List(ctx, filter, page, pageSize)
}

// BuildContext gathers recent turns and relevant knowledge for an agent call.
// A failing backend is logged and its section left empty, so an agent keeps
// working on an empty context rather than failing the step.
func (s *Service) BuildContext(ctx context.Context, sessionKey, query string, cfg AgentConfig, filter Filter) (*ContextPayload, error) {
	payload := &ContextPayload{}
	if !cfg.Enabled {
		return payload, nil
	}

	// Short-term: recent conversation turns
	if cfg.ShortTermEnabled && s.shortTerm != nil && sessionKey != "" {
		turns, err := s.RecallContext(ctx, sessionKey)
		if err != nil {
			slog.Warn("memory: failed to recall short-term context", "error", err, "session", sessionKey)
		} else {
			if cfg.MaxRecentTurns > 0 && len(turns) > cfg.MaxRecentTurns {
				turns = turns[len(turns)-cfg.MaxRecentTurns:]
			}
			payload.RecentTurns = turns
		}
	}

	// Long-term: hybrid retrieval over knowledge
	if cfg.LongTermEnabled && s.longTerm != nil && query != "" {
		recs, err := s.RecallKnowledge(ctx, query, cfg.MaxKnowledge, filter)
		if err != nil {
			slog.Warn("memory: failed to recall long-term knowledge", "error", err, "session", sessionKey)
		} else {
			for _, r := range recs {
				payload.RelevantMemories = append(payload.RelevantMemories, RelevantMemory{
					ID:       r.ID,
					Content:  r.Text,
					Metadata: r.Metadata,
					Score:    r.Score,
				})
			}
		}
	}

	return payload, nil
}

// Ping reports whether the short-term backend answers.
func (s *Service) Ping(ctx context.Context) error {
	if s.shortTerm == nil {
		return fmt.Errorf("short-term store not configured")
	}
	return s.shortTerm.Ping(ctx)
}
