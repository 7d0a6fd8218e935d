package workflow

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParallel_TimedOutBranchDoesNotCancelSiblings(t *testing.T) {
	stuck := &stuckAgent{name: "statutes", release: make(chan struct{})}
	defer close(stuck.release)

	var captured []Outcome
	capture := func(_ context.Context, _ *State, outcomes []Outcome) (string, error) {
		captured = outcomes
		return DefaultAggregator(context.Background(), nil, outcomes)
	}

	p := NewParallel("research", capture,
		NewStep("case_law", newEcho("case_law", "precedents"), time.Second),
		NewStep("statutes", stuck, 20*time.Millisecond),
		NewStep("regulations", newEcho("regulations", "rules"), time.Second),
	)

	res, err := p.Execute(context.Background(), newTestState("query", nil))
	require.NoError(t, err)

	require.Len(t, captured, 3)
	assert.Equal(t, "case_law", captured[0].Node)
	assert.False(t, captured[0].Failed())
	assert.True(t, captured[1].Failed())
	assert.ErrorIs(t, captured[1].Err, context.DeadlineExceeded)
	assert.False(t, captured[2].Failed())

	assert.Contains(t, res.Content, "## case_law\n\nprecedents")
	assert.Contains(t, res.Content, "## regulations\n\nrules")
	assert.Contains(t, res.Content, "## Failed branches")
	assert.Contains(t, res.Content, "- statutes:")
}

func TestParallel_AllFailed(t *testing.T) {
	a := newEcho("a", "")
	a.err = errBoom
	b := newEcho("b", "")
	b.err = errors.New("other")

	_, err := NewParallel("team", nil, NewStep("a", a, 0), NewStep("b", b, 0)).
		Execute(context.Background(), newTestState("x", nil))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAllBranchesFailed)
	assert.ErrorIs(t, err, errBoom)

	var sf *StepFailure
	require.True(t, errors.As(err, &sf))
	assert.Equal(t, "team", sf.Step)
}

func TestParallel_RunsConcurrently(t *testing.T) {
	started := make(chan struct{}, 2)
	barrier := make(chan struct{})
	branch := func(name string) Node {
		return NewStep(name, AgentFunc{AgentName: name, Fn: func(ctx context.Context, _ Request) (string, error) {
			started <- struct{}{}
			select {
			case <-barrier:
				return name, nil
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}}, time.Second)
	}

	go func() {
		<-started
		<-started
		close(barrier)
	}()

	res, err := NewParallel("p", nil, branch("x"), branch("y")).
		Execute(context.Background(), newTestState("in", nil))
	require.NoError(t, err)
	assert.Equal(t, "## x\n\nx\n\n## y\n\ny", res.Content)
}

func TestAgentAggregator_SynthesisesFindings(t *testing.T) {
	lead := newEcho("lead", "synthesis")
	state := newTestState("case", nil)
	state.Previous = "prepared case"

	agg := AgentAggregator(lead, "Combine the findings.")
	out, err := agg(context.Background(), state, []Outcome{
		{Node: "guidelines", Content: "G"},
		{Node: "literature", Err: errBoom},
	})
	require.NoError(t, err)
	assert.Equal(t, "synthesis", out)

	prompt := lead.lastPrompt()
	assert.True(t, strings.HasPrefix(prompt, "Combine the findings."))
	assert.Contains(t, prompt, "prepared case")
	assert.Contains(t, prompt, "## guidelines\n\nG")
	assert.Contains(t, prompt, "- literature: boom")
}

func TestAgentAggregator_LeadFailure(t *testing.T) {
	lead := newEcho("lead", "")
	lead.err = errBoom

	_, err := AgentAggregator(lead, "")(context.Background(), newTestState("x", nil),
		[]Outcome{{Node: "a", Content: "A"}})

	var sf *StepFailure
	require.True(t, errors.As(err, &sf))
	assert.Equal(t, "lead", sf.Step)
}

func TestParallel_NestedSequencesKeepTheirOwnInput(t *testing.T) {
	for i := 0; i < 50; i++ {
		caseLaw := newEcho("case_law", "precedent notes")
		caseSummary := newEcho("case_summary", "case summary")
		statutes := newEcho("statutes", "statute notes")
		statuteSummary := newEcho("statute_summary", "statute summary")

		p := NewParallel("research", nil,
			NewSequential("cases", NewStep("case_law", caseLaw, time.Second), NewStep("case_summary", caseSummary, time.Second)),
			NewSequential("laws", NewStep("statutes", statutes, time.Second), NewStep("statute_summary", statuteSummary, time.Second)),
		)

		state := newTestState("liability question", nil)
		res, err := p.Execute(context.Background(), state)
		require.NoError(t, err)

		assert.Equal(t, "liability question", caseLaw.lastPrompt())
		assert.Equal(t, "liability question", statutes.lastPrompt())
		assert.Equal(t, "precedent notes", caseSummary.lastPrompt())
		assert.Equal(t, "statute notes", statuteSummary.lastPrompt())
		assert.Equal(t, "liability question", state.Previous)
		assert.Contains(t, res.Content, "## cases\n\ncase summary")
		assert.Contains(t, res.Content, "## laws\n\nstatute summary")

		outs := state.Outputs()
		assert.Equal(t, "precedent notes", outs["case_law"])
		assert.Equal(t, "statute summary", outs["statute_summary"])
	}
}

func TestParallel_FailureInsideNestedBranchIsOwnedByParallel(t *testing.T) {
	bad := newEcho("drafting", "")
	bad.err = errBoom

	_, err := NewParallel("team", nil,
		NewSequential("only", NewStep("drafting", bad, time.Second)),
	).Execute(context.Background(), newTestState("x", nil))
	require.Error(t, err)

	var sf *StepFailure
	require.True(t, errors.As(err, &sf))
	assert.Equal(t, "team", sf.Step)
	assert.ErrorIs(t, err, errBoom)
}
