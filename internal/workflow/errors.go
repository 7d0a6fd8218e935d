package workflow

import (
	"context"
	"errors"
	"fmt"
)

// ErrAllBranchesFailed is returned by aggregators when no parallel branch succeeded.
var ErrAllBranchesFailed = errors.New("all parallel branches failed")

// StepFailure reports which step failed and why.
type StepFailure struct {
	Step string
	Err  error
}

func (e *StepFailure) Error() string {
	return fmt.Sprintf("step %q failed: %v", e.Step, e.Err)
}

func (e *StepFailure) Unwrap() error {
	return e.Err
}

// Timeout reports whether the step ran out of time.
func (e *StepFailure) Timeout() bool {
	return errors.Is(e.Err, context.DeadlineExceeded)
}

// asStepFailure keeps an existing StepFailure and wraps anything else for node.
func asStepFailure(node string, err error) error {
	var sf *StepFailure
	if errors.As(err, &sf) {
		return err
	}
	return &StepFailure{Step: node, Err: err}
}
