// Package llm wraps chat-completion providers behind one small interface.
package llm

import (
	"context"
	"errors"
	"fmt"
)

// Roles of a chat message.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ErrEmptyResponse is returned when a provider answers without text.
var ErrEmptyResponse = errors.New("model returned no text")

// Message is one chat turn.
type Message struct {
	Role    string
	Content string
}

// Request is a single generation call.
type Request struct {
	System   string
	Messages []Message
}

// Usage counts tokens spent on a call, when the provider reports it.
type Usage struct {
	InputTokens  int64
	OutputTokens int64
}

// Response is a model answer.
type Response struct {
	Content string
	Model   string
	Usage   Usage
}

// Model generates a reply for a conversation.
type Model interface {
	Generate(ctx context.Context, req Request) (*Response, error)
}

// Options configure a provider-backed model.
type Options struct {
	Provider    string
	Model       string
	APIKey      string
	MaxTokens   int
	Temperature float64
}

// New builds the model for opts.Provider.
func New(opts Options) (Model, error) {
	switch opts.Provider {
	case "openai":
		return NewOpenAIModel(opts), nil
	case "anthropic":
		return NewAnthropicModel(opts), nil
	case "echo", "":
		return EchoModel{}, nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", opts.Provider)
	}
}
