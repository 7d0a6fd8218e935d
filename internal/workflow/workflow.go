package workflow

import (
	"context"
	"log/slog"
	"time"

	"github.com/aiox-platform/contextflow/internal/metrics"
)

// RunInput starts a workflow run.
type RunInput struct {
	Input      string `json:"input" validate:"required,min=1"`
	SessionKey string `json:"session_key,omitempty"`
	UserID     string `json:"user_id,omitempty"`
}

// RunResult is a completed run.
type RunResult struct {
	Workflow string            `json:"workflow"`
	Content  string            `json:"content"`
	Outputs  map[string]string `json:"outputs"`
	Duration time.Duration     `json:"duration"`
}

// Workflow is a named root node plus run hooks.
type Workflow struct {
	Name        string
	Description string
	Root        Node
	Observer    Observer
	// OnComplete runs after a successful run, e.g. to learn the final output.
	// Its error is logged and does not fail the run.
	OnComplete func(ctx context.Context, in RunInput, res *RunResult) error
}

// WithObserver returns a copy of w that also reports to obs.
func (w *Workflow) WithObserver(obs Observer) *Workflow {
	cp := *w
	if cp.Observer == nil {
		cp.Observer = obs
	} else {
		cp.Observer = Observers{cp.Observer, obs}
	}
	return &cp
}

// Run executes the workflow.
func (w *Workflow) Run(ctx context.Context, in RunInput) (*RunResult, error) {
	if in.SessionKey == "" {
		in.SessionKey = in.UserID
	}
	state := NewState(w.Name, in, w.Observer)
	start := time.Now()

	state.emit(Event{Type: EventWorkflowStarted})
	res, err := w.Root.Execute(ctx, state)
	elapsed := time.Since(start)
	if err != nil {
		metrics.WorkflowRunsTotal.WithLabelValues(w.Name, "failed").Inc()
		state.emit(Event{Type: EventWorkflowFailed, Error: err.Error(), Duration: elapsed})
		return nil, err
	}

	metrics.WorkflowRunsTotal.WithLabelValues(w.Name, "completed").Inc()
	state.emit(Event{Type: EventWorkflowCompleted, Content: res.Content, Duration: elapsed})

	result := &RunResult{
		Workflow: w.Name,
		Content:  res.Content,
		Outputs:  state.Outputs(),
		Duration: elapsed,
	}
	if w.OnComplete != nil {
		if err := w.OnComplete(ctx, in, result); err != nil {
			slog.Warn("workflow completion hook failed", "workflow", w.Name, "error", err)
		}
	}
	return result, nil
}
