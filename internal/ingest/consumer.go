// Package ingest learns knowledge published to the NATS knowledge stream.
package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/aiox-platform/contextflow/internal/memory"
	"github.com/aiox-platform/contextflow/internal/metrics"
	inats "github.com/aiox-platform/contextflow/internal/nats"
)

const (
	consumerName = "knowledge-ingest"
	retryDelay   = 5 * time.Second
	// SourceKey marks records that arrived through the stream.
	SourceKey = "source"
)

// ErrInvalidEvent marks events that can never be learned.
var ErrInvalidEvent = errors.New("invalid knowledge event")

// Learner stores text in long-term memory.
type Learner interface {
	Learn(ctx context.Context, text string, metadata map[string]string) (string, error)
}

// Consumer listens on the knowledge subject and writes each event to long-term memory.
type Consumer struct {
	learner     Learner
	consumerMgr *inats.ConsumerManager
}

// NewConsumer creates a new knowledge ingest Consumer.
func NewConsumer(learner Learner, consumerMgr *inats.ConsumerManager) *Consumer {
	return &Consumer{
		learner:     learner,
		consumerMgr: consumerMgr,
	}
}

// Start begins the consume loop. Blocks until ctx is cancelled.
func (c *Consumer) Start(ctx context.Context) error {
	consumer, err := c.consumerMgr.EnsureConsumer(ctx, inats.StreamKnowledge, consumerName, inats.SubjectKnowledgeIngest, time.Minute)
	if err != nil {
		return err
	}
	return inats.FetchLoop(ctx, consumer, consumerName, c.handleMessage)
}

func (c *Consumer) handleMessage(ctx context.Context, msg jetstream.Msg) {
	id, err := c.Process(ctx, msg.Data())
	switch {
	case err == nil:
		metrics.KnowledgeIngestedTotal.WithLabelValues("ok").Inc()
		_ = msg.Ack()
		slog.Debug("ingest: learned event", "record_id", id)
	case errors.Is(err, ErrInvalidEvent), errors.Is(err, memory.ErrEmptyText):
		metrics.KnowledgeIngestedTotal.WithLabelValues("rejected").Inc()
		slog.Warn("ingest: dropping event", "error", err)
		_ = msg.Term()
	default:
		metrics.KnowledgeIngestedTotal.WithLabelValues("retry").Inc()
		slog.Error("ingest: learning event", "error", err)
		_ = msg.NakWithDelay(retryDelay)
	}
}

// Process decodes one event and learns it. It returns the new record id.
func (c *Consumer) Process(ctx context.Context, data []byte) (string, error) {
	var ev inats.KnowledgeEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidEvent, err)
	}
	if strings.TrimSpace(ev.UserID) == "" {
		return "", fmt.Errorf("%w: missing user_id", ErrInvalidEvent)
	}
	return c.learner.Learn(ctx, ev.Text, RecordMetadata(ev))
}

// RecordMetadata is the metadata an event is stored with. The event's user
// always wins over a user_id smuggled into its metadata.
func RecordMetadata(ev inats.KnowledgeEvent) map[string]string {
	meta := make(map[string]string, len(ev.Metadata)+3)
	for k, v := range ev.Metadata {
		meta[k] = v
	}
	meta[memory.UserKey] = ev.UserID
	meta[SourceKey] = "stream"
	if ev.ID != "" {
		meta["event_id"] = ev.ID
	}
	return meta
}
