package workflow

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

// echoAgent returns a fixed reply and counts invocations.
type echoAgent struct {
	name  string
	reply string
	err   error
	calls atomic.Int32

	mu      sync.Mutex
	prompts []string
}

func newEcho(name, reply string) *echoAgent {
	return &echoAgent{name: name, reply: reply}
}

func (a *echoAgent) Name() string { return a.name }

func (a *echoAgent) Run(_ context.Context, req Request) (string, error) {
	a.calls.Add(1)
	a.mu.Lock()
	a.prompts = append(a.prompts, req.Prompt)
	a.mu.Unlock()
	if a.err != nil {
		return "", a.err
	}
	return a.reply, nil
}

func (a *echoAgent) lastPrompt() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.prompts) == 0 {
		return ""
	}
	return a.prompts[len(a.prompts)-1]
}

// stuckAgent blocks until released and ignores its context.
type stuckAgent struct {
	name    string
	release chan struct{}
}

func (a *stuckAgent) Name() string { return a.name }

func (a *stuckAgent) Run(context.Context, Request) (string, error) {
	<-a.release
	return "too late", nil
}

var errBoom = errors.New("boom")

// recorder collects events.
type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) OnEvent(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type
	}
	return out
}

func (r *recorder) stepsOf(typ string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, e := range r.events {
		if e.Type == typ {
			out = append(out, e.Step)
		}
	}
	return out
}

func newTestState(input string, obs Observer) *State {
	return NewState("test", RunInput{Input: input, SessionKey: "s1", UserID: "u1"}, obs)
}
