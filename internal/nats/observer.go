package nats

import (
	"context"
	"log/slog"
	"time"

	"github.com/aiox-platform/contextflow/internal/workflow"
)

const eventPublishTimeout = 2 * time.Second

// EventObserver streams workflow events to JetStream. Publish failures are
// logged and never affect the run.
type EventObserver struct {
	publisher *Publisher
}

// NewEventObserver creates an EventObserver.
func NewEventObserver(publisher *Publisher) *EventObserver {
	return &EventObserver{publisher: publisher}
}

func (o *EventObserver) OnEvent(e workflow.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), eventPublishTimeout)
	defer cancel()
	if err := o.publisher.PublishWorkflowEvent(ctx, e); err != nil {
		slog.Warn("publishing workflow event", "error", err, "workflow", e.Workflow, "event", e.Type)
	}
}
