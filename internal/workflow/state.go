// Package workflow composes agents into Sequential, Conditional and Parallel
// pipelines. A run starts from one State. Each Parallel branch works on its own
// branch State with a private Previous; the per-step output map and the
// observer are shared across branches, and the map is guarded by a mutex.
package workflow

import (
	"context"
	"sync"
	"time"
)

// Request is what a step hands its agent.
type Request struct {
	// Prompt is the step input after transforms.
	Prompt string
	// Input is the original workflow input.
	Input      string
	SessionKey string
	UserID     string
	Step       string
}

// Agent is anything a Step can run.
type Agent interface {
	Name() string
	Run(ctx context.Context, req Request) (string, error)
}

// AgentFunc adapts a function to Agent.
type AgentFunc struct {
	AgentName string
	Fn        func(ctx context.Context, req Request) (string, error)
}

func (a AgentFunc) Name() string { return a.AgentName }

func (a AgentFunc) Run(ctx context.Context, req Request) (string, error) {
	return a.Fn(ctx, req)
}

// Result is the output of a node.
type Result struct {
	Node    string
	Content string
}

// Node is a unit of a workflow: a step or a composite of nodes.
type Node interface {
	Name() string
	Execute(ctx context.Context, state *State) (Result, error)
}

// stepOutputs is the run-wide output map shared by every branch.
type stepOutputs struct {
	mu sync.Mutex
	m  map[string]string
}

// State is the per-run context handed to every node.
type State struct {
	Workflow   string
	Input      string
	SessionKey string
	UserID     string
	// Previous is the output of the last completed node; it starts as Input.
	Previous string

	observer Observer
	outputs  *stepOutputs
}

// NewState creates the state for one run.
func NewState(workflow string, in RunInput, observer Observer) *State {
	if observer == nil {
		observer = NopObserver{}
	}
	return &State{
		Workflow:   workflow,
		Input:      in.Input,
		SessionKey: in.SessionKey,
		UserID:     in.UserID,
		Previous:   in.Input,
		observer:   observer,
		outputs:    &stepOutputs{m: make(map[string]string)},
	}
}

// branch returns a State for one concurrent branch. Writes to its Previous
// stay inside the branch; outputs and events still reach the run.
func (s *State) branch() *State {
	return &State{
		Workflow:   s.Workflow,
		Input:      s.Input,
		SessionKey: s.SessionKey,
		UserID:     s.UserID,
		Previous:   s.Previous,
		observer:   s.observer,
		outputs:    s.outputs,
	}
}

// SetOutput records a step's output.
func (s *State) SetOutput(step, content string) {
	s.outputs.mu.Lock()
	defer s.outputs.mu.Unlock()
	s.outputs.m[step] = content
}

// Output returns a recorded step output.
func (s *State) Output(step string) (string, bool) {
	s.outputs.mu.Lock()
	defer s.outputs.mu.Unlock()
	out, ok := s.outputs.m[step]
	return out, ok
}

// Outputs returns a copy of every recorded step output.
func (s *State) Outputs() map[string]string {
	s.outputs.mu.Lock()
	defer s.outputs.mu.Unlock()
	cp := make(map[string]string, len(s.outputs.m))
	for k, v := range s.outputs.m {
		cp[k] = v
	}
	return cp
}

func (s *State) emit(e Event) {
	e.Workflow = s.Workflow
	e.SessionKey = s.SessionKey
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	s.observer.OnEvent(e)
}
