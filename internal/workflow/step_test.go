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

func TestStep_DefaultPromptIsPrevious(t *testing.T) {
	agent := newEcho("a", "out")
	state := newTestState("hello", nil)

	res, err := NewStep("a", agent, 0).Execute(context.Background(), state)
	require.NoError(t, err)
	assert.Equal(t, "out", res.Content)
	assert.Equal(t, "hello", agent.lastPrompt())

	out, ok := state.Output("a")
	assert.True(t, ok)
	assert.Equal(t, "out", out)
}

func TestStep_Transforms(t *testing.T) {
	agent := newEcho("a", "raw")
	step := NewStep("a", agent, 0).
		WithInput(func(s *State) string { return "<case>" + s.Input + "</case>" }).
		WithOutput(strings.ToUpper)

	res, err := step.Execute(context.Background(), newTestState("x", nil))
	require.NoError(t, err)
	assert.Equal(t, "<case>x</case>", agent.lastPrompt())
	assert.Equal(t, "RAW", res.Content)
}

func TestStep_AgentError(t *testing.T) {
	agent := newEcho("a", "")
	agent.err = errBoom
	rec := &recorder{}

	_, err := NewStep("a", agent, 0).Execute(context.Background(), newTestState("x", rec))
	require.Error(t, err)

	var sf *StepFailure
	require.True(t, errors.As(err, &sf))
	assert.Equal(t, "a", sf.Step)
	assert.ErrorIs(t, err, errBoom)
	assert.False(t, sf.Timeout())
	assert.Equal(t, []string{EventStepStarted, EventStepFailed}, rec.types())
}

func TestStep_TimeoutAbandonsStuckAgent(t *testing.T) {
	agent := &stuckAgent{name: "slow", release: make(chan struct{})}
	defer close(agent.release)

	start := time.Now()
	_, err := NewStep("slow", agent, 20*time.Millisecond).Execute(context.Background(), newTestState("x", nil))
	require.Error(t, err)
	assert.Less(t, time.Since(start), time.Second)

	var sf *StepFailure
	require.True(t, errors.As(err, &sf))
	assert.True(t, sf.Timeout())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
