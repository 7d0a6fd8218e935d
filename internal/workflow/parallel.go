package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
)

// Outcome is one parallel branch's result or failure.
type Outcome struct {
	Node    string
	Content string
	Err     error
}

// Failed reports whether the branch failed.
func (o Outcome) Failed() bool { return o.Err != nil }

// Aggregator merges branch outcomes into the Parallel node's output.
type Aggregator func(ctx context.Context, state *State, outcomes []Outcome) (string, error)

// Parallel runs every node in its own goroutine and waits for all of them. A
// failing branch does not cancel its siblings; each branch's result or error
// is captured in order and handed to the aggregator.
type Parallel struct {
	name      string
	aggregate Aggregator
	nodes     []Node
}

// NewParallel creates a Parallel node. A nil aggregator uses DefaultAggregator.
func NewParallel(name string, aggregate Aggregator, nodes ...Node) *Parallel {
	if aggregate == nil {
		aggregate = DefaultAggregator
	}
	return &Parallel{name: name, aggregate: aggregate, nodes: nodes}
}

func (p *Parallel) Name() string { return p.name }

func (p *Parallel) Execute(ctx context.Context, state *State) (Result, error) {
	outcomes := make([]Outcome, len(p.nodes))

	var wg sync.WaitGroup
	for i, node := range p.nodes {
		wg.Add(1)
		go func(i int, n Node, bs *State) {
			defer wg.Done()
			res, err := n.Execute(ctx, bs)
			outcomes[i] = Outcome{Node: n.Name(), Content: res.Content, Err: err}
		}(i, node, state.branch())
	}
	wg.Wait()

	out, err := p.aggregate(ctx, state, outcomes)
	if err != nil {
		return Result{}, &StepFailure{Step: p.name, Err: err}
	}
	return Result{Node: p.name, Content: out}, nil
}

// FormatOutcomes renders successes under "## name" headings followed by a
// list of failed branches.
func FormatOutcomes(outcomes []Outcome) string {
	var sections, failures []string
	for _, o := range outcomes {
		if o.Failed() {
			failures = append(failures, fmt.Sprintf("- %s: %v", o.Node, o.Err))
			continue
		}
		sections = append(sections, "## "+o.Node+"\n\n"+o.Content)
	}
	if len(failures) > 0 {
		sections = append(sections, "## Failed branches\n\n"+strings.Join(failures, "\n"))
	}
	return strings.Join(sections, "\n\n")
}

func allFailed(outcomes []Outcome) error {
	errs := make([]error, 0, len(outcomes))
	for _, o := range outcomes {
		if !o.Failed() {
			return nil
		}
		errs = append(errs, o.Err)
	}
	return fmt.Errorf("%w: %w", ErrAllBranchesFailed, errors.Join(errs...))
}

// DefaultAggregator concatenates successful branches and lists failures. It
// fails only when every branch failed.
func DefaultAggregator(_ context.Context, _ *State, outcomes []Outcome) (string, error) {
	if err := allFailed(outcomes); err != nil {
		return "", err
	}
	return FormatOutcomes(outcomes), nil
}

// AgentAggregator hands all branch outcomes to a lead agent for synthesis.
func AgentAggregator(lead Agent, instructions string) Aggregator {
	return func(ctx context.Context, state *State, outcomes []Outcome) (string, error) {
		if err := allFailed(outcomes); err != nil {
			return "", err
		}

		var b strings.Builder
		if instructions != "" {
			b.WriteString(instructions)
			b.WriteString("\n\n")
		}
		b.WriteString("<task>\n")
		b.WriteString(state.Previous)
		b.WriteString("\n</task>\n\n<member_findings>\n")
		b.WriteString(FormatOutcomes(outcomes))
		b.WriteString("\n</member_findings>")

		out, err := lead.Run(ctx, Request{
			Prompt:     b.String(),
			Input:      state.Input,
			SessionKey: state.SessionKey,
			UserID:     state.UserID,
			Step:       lead.Name(),
		})
		if err != nil {
			return "", &StepFailure{Step: lead.Name(), Err: err}
		}
		return out, nil
	}
}
