package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go/jetstream"

	inats "github.com/aiox-platform/contextflow/internal/nats"
	"github.com/aiox-platform/contextflow/internal/workflow"
)

const consumerName = "orchestrator"

// Builder returns a ready-to-run workflow by name.
type Builder func(name string) (*workflow.Workflow, error)

// OutboundPublisher sends replies back to chat.
type OutboundPublisher interface {
	PublishOutboundMessage(ctx context.Context, msg inats.OutboundMessage) error
}

// Orchestrator consumes inbound chat messages, routes each to a workflow,
// runs it and publishes the answer as an outbound message.
type Orchestrator struct {
	publisher   OutboundPublisher
	consumerMgr *inats.ConsumerManager
	validator   *Validator
	router      *Router
	build       Builder
	runTimeout  time.Duration
}

// NewOrchestrator creates a new Orchestrator. runTimeout bounds a whole workflow run.
func NewOrchestrator(
	publisher OutboundPublisher,
	consumerMgr *inats.ConsumerManager,
	validator *Validator,
	router *Router,
	build Builder,
	runTimeout time.Duration,
) *Orchestrator {
	return &Orchestrator{
		publisher:   publisher,
		consumerMgr: consumerMgr,
		validator:   validator,
		router:      router,
		build:       build,
		runTimeout:  runTimeout,
	}
}

// Start begins the orchestrator event loop.
func (o *Orchestrator) Start(ctx context.Context) error {
	consumer, err := o.consumerMgr.EnsureConsumer(ctx, inats.StreamChat, consumerName, inats.SubjectInboundMessage, o.runTimeout+time.Minute)
	if err != nil {
		return err
	}
	return inats.FetchLoop(ctx, consumer, consumerName, o.processMessage)
}

func (o *Orchestrator) processMessage(ctx context.Context, msg jetstream.Msg) {
	var inbound inats.InboundMessage
	if err := json.Unmarshal(msg.Data(), &inbound); err != nil {
		slog.Error("unmarshaling inbound message", "error", err)
		_ = msg.Term()
		return
	}
	o.Handle(ctx, inbound)
	_ = msg.Ack()
}

// Handle answers one inbound message. Every outcome, including failures, is
// reported back to the sender.
func (o *Orchestrator) Handle(ctx context.Context, inbound inats.InboundMessage) {
	slog.Debug("orchestrator processing message",
		"id", inbound.ID,
		"from", inbound.FromJID,
		"to", inbound.ToJID,
	)

	route, err := o.router.Route(inbound)
	if err != nil {
		slog.Warn("routing failed", "error", err, "to_jid", inbound.ToJID)
		o.reply(ctx, inbound, inbound.ToJID, "Error: unknown workflow")
		return
	}

	if err := o.validator.Validate(route, inbound.Body); err != nil {
		slog.Warn("validation failed", "error", err, "workflow", route.Workflow, "from", inbound.FromJID)
		o.reply(ctx, inbound, route.WorkflowJID, "Error: message not accepted")
		return
	}

	wf, err := o.build(route.Workflow)
	if err != nil {
		slog.Error("building workflow", "error", err, "workflow", route.Workflow)
		o.reply(ctx, inbound, route.WorkflowJID, "Error: workflow unavailable")
		return
	}

	runCtx, cancel := context.WithTimeout(ctx, o.runTimeout)
	defer cancel()

	res, err := wf.Run(runCtx, workflow.RunInput{
		Input:      inbound.Body,
		SessionKey: route.SessionKey,
		UserID:     route.UserID,
	})
	if err != nil {
		slog.Warn("workflow run failed", "error", err, "workflow", route.Workflow)
		o.reply(ctx, inbound, route.WorkflowJID, "Error: "+failureText(err))
		return
	}

	o.reply(ctx, inbound, route.WorkflowJID, res.Content)
}

func failureText(err error) string {
	var sf *workflow.StepFailure
	if errors.As(err, &sf) {
		if sf.Timeout() {
			return "step " + sf.Step + " timed out"
		}
		return "step " + sf.Step + " failed"
	}
	return "workflow failed"
}

func (o *Orchestrator) reply(ctx context.Context, inbound inats.InboundMessage, from, body string) {
	outbound := inats.OutboundMessage{
		ID:        uuid.New().String(),
		ToJID:     inbound.FromJID,
		FromJID:   from,
		Body:      body,
		InReplyTo: inbound.ID,
	}
	if err := o.publisher.PublishOutboundMessage(ctx, outbound); err != nil {
		slog.Error("publishing outbound message", "error", err)
	}
}
