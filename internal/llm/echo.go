package llm

import (
	"context"
	"strings"
)

// EchoModel answers offline by restating the last user message. It keeps the
// CLI and tests runnable without an API key.
type EchoModel struct{}

func (EchoModel) Generate(_ context.Context, req Request) (*Response, error) {
	var last string
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role == RoleUser {
			last = req.Messages[i].Content
			break
		}
	}
	last = strings.TrimSpace(last)
	if last == "" {
		return nil, ErrEmptyResponse
	}
	return &Response{Content: "[echo] " + last, Model: "echo"}, nil
}
