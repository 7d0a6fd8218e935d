package workflow

import (
	"log/slog"
	"time"
)

// Event types.
const (
	EventWorkflowStarted   = "workflow_started"
	EventWorkflowCompleted = "workflow_completed"
	EventWorkflowFailed    = "workflow_failed"
	EventStepStarted       = "step_started"
	EventStepCompleted     = "step_completed"
	EventStepFailed        = "step_failed"
	EventStepSkipped       = "step_skipped"
)

// Event describes progress of a run.
type Event struct {
	Type       string        `json:"type"`
	Workflow   string        `json:"workflow"`
	Step       string        `json:"step,omitempty"`
	SessionKey string        `json:"session_key,omitempty"`
	Content    string        `json:"content,omitempty"`
	Error      string        `json:"error,omitempty"`
	Duration   time.Duration `json:"duration,omitempty"`
	Timestamp  time.Time     `json:"timestamp"`
}

// Observer receives run events. Implementations must be safe for concurrent use
// because parallel branches emit from their own goroutines.
type Observer interface {
	OnEvent(Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

func (f ObserverFunc) OnEvent(e Event) { f(e) }

// NopObserver drops every event.
type NopObserver struct{}

func (NopObserver) OnEvent(Event) {}

// LogObserver writes events to slog.
type LogObserver struct{}

func (LogObserver) OnEvent(e Event) {
	attrs := []any{"workflow", e.Workflow, "event", e.Type}
	if e.Step != "" {
		attrs = append(attrs, "step", e.Step)
	}
	if e.Duration > 0 {
		attrs = append(attrs, "duration", e.Duration)
	}
	switch e.Type {
	case EventStepFailed, EventWorkflowFailed:
		slog.Warn("workflow event", append(attrs, "error", e.Error)...)
	case EventWorkflowStarted, EventWorkflowCompleted:
		slog.Info("workflow event", attrs...)
	default:
		slog.Debug("workflow event", attrs...)
	}
}

// Observers fans events out to several observers.
type Observers []Observer

func (o Observers) OnEvent(e Event) {
	for _, obs := range o {
		obs.OnEvent(e)
	}
}
