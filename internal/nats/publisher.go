package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/aiox-platform/contextflow/internal/workflow"
)

// Publisher provides typed methods for publishing events to NATS JetStream.
type Publisher struct {
	js jetstream.JetStream
}

// NewPublisher creates a new Publisher.
func NewPublisher(js jetstream.JetStream) *Publisher {
	return &Publisher{js: js}
}

// PublishKnowledge queues a text for ingestion into long-term memory.
func (p *Publisher) PublishKnowledge(ctx context.Context, ev KnowledgeEvent) error {
	return p.publish(ctx, SubjectKnowledgeIngest, ev, jetstream.WithMsgID(ev.ID))
}

// PublishInboundMessage publishes an inbound chat message for orchestrator processing.
func (p *Publisher) PublishInboundMessage(ctx context.Context, msg InboundMessage) error {
	return p.publish(ctx, SubjectInboundMessage, msg)
}

// PublishOutboundMessage publishes an outbound message for XMPP delivery.
func (p *Publisher) PublishOutboundMessage(ctx context.Context, msg OutboundMessage) error {
	return p.publish(ctx, SubjectOutboundMessage, msg)
}

// PublishWorkflowEvent publishes a workflow progress event.
func (p *Publisher) PublishWorkflowEvent(ctx context.Context, ev workflow.Event) error {
	return p.publish(ctx, WorkflowEventSubject(ev.Workflow), ev)
}

// WorkflowEventSubject is the subject events of the named workflow go to.
func WorkflowEventSubject(name string) string {
	token := strings.Map(func(r rune) rune {
		switch r {
		case '.', '*', '>', ' ', '\t':
			return '_'
		}
		return r
	}, name)
	if token == "" {
		token = "unknown"
	}
	return SubjectWorkflowEventPrefix + "." + token
}

func (p *Publisher) publish(ctx context.Context, subject string, data any, opts ...jetstream.PublishOpt) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshaling event for %s: %w", subject, err)
	}
	_, err = p.js.Publish(ctx, subject, payload, opts...)
	if err != nil {
		return fmt.Errorf("publishing to %s: %w", subject, err)
	}
	return nil
}
