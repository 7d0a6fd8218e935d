package workflow

import (
	"context"
	"time"

	"github.com/aiox-platform/contextflow/internal/metrics"
)

// Step runs one agent with optional input and output transforms.
type Step struct {
	StepName string
	Agent    Agent
	// InputTransform builds the prompt. When nil the prompt is state.Previous.
	InputTransform func(*State) string
	// OutputTransform post-processes the agent output.
	OutputTransform func(string) string
	// Timeout bounds the agent call; zero means no bound beyond ctx.
	Timeout time.Duration
}

// NewStep creates a Step with a timeout.
func NewStep(name string, agent Agent, timeout time.Duration) *Step {
	return &Step{StepName: name, Agent: agent, Timeout: timeout}
}

// WithInput sets the input transform.
func (s *Step) WithInput(fn func(*State) string) *Step {
	s.InputTransform = fn
	return s
}

// WithOutput sets the output transform.
func (s *Step) WithOutput(fn func(string) string) *Step {
	s.OutputTransform = fn
	return s
}

func (s *Step) Name() string { return s.StepName }

type stepResult struct {
	out string
	err error
}

// Execute runs the agent under the step timeout. An agent that ignores its
// context is abandoned at the deadline; its late result is discarded.
func (s *Step) Execute(ctx context.Context, state *State) (Result, error) {
	prompt := state.Previous
	if s.InputTransform != nil {
		prompt = s.InputTransform(state)
	}

	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}

	start := time.Now()
	state.emit(Event{Type: EventStepStarted, Step: s.StepName})

	done := make(chan stepResult, 1)
	go func() {
		out, err := s.Agent.Run(ctx, Request{
			Prompt:     prompt,
			Input:      state.Input,
			SessionKey: state.SessionKey,
			UserID:     state.UserID,
			Step:       s.StepName,
		})
		done <- stepResult{out: out, err: err}
	}()

	var res stepResult
	select {
	case res = <-done:
	case <-ctx.Done():
		res = stepResult{err: ctx.Err()}
	}

	elapsed := time.Since(start)
	if res.err != nil {
		metrics.StepDuration.WithLabelValues(s.StepName, "error").Observe(elapsed.Seconds())
		state.emit(Event{Type: EventStepFailed, Step: s.StepName, Error: res.err.Error(), Duration: elapsed})
		return Result{}, &StepFailure{Step: s.StepName, Err: res.err}
	}

	out := res.out
	if s.OutputTransform != nil {
		out = s.OutputTransform(out)
	}
	state.SetOutput(s.StepName, out)

	metrics.StepDuration.WithLabelValues(s.StepName, "ok").Observe(elapsed.Seconds())
	state.emit(Event{Type: EventStepCompleted, Step: s.StepName, Content: out, Duration: elapsed})
	return Result{Node: s.StepName, Content: out}, nil
}
