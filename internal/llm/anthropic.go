package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const defaultAnthropicMaxTokens = 2048

// AnthropicModel calls the Messages API.
type AnthropicModel struct {
	client *anthropic.Client
	opts   Options
}

// NewAnthropicModel creates an Anthropic chat model.
func NewAnthropicModel(opts Options, reqOpts ...option.RequestOption) *AnthropicModel {
	if opts.APIKey != "" {
		reqOpts = append([]option.RequestOption{option.WithAPIKey(opts.APIKey)}, reqOpts...)
	}
	client := anthropic.NewClient(reqOpts...)
	return &AnthropicModel{client: &client, opts: opts}
}

func (m *AnthropicModel) Generate(ctx context.Context, req Request) (*Response, error) {
	messages := make([]anthropic.MessageParam, 0, len(req.Messages))
	for _, msg := range req.Messages {
		block := anthropic.NewTextBlock(msg.Content)
		if msg.Role == RoleAssistant {
			messages = append(messages, anthropic.NewAssistantMessage(block))
		} else {
			messages = append(messages, anthropic.NewUserMessage(block))
		}
	}

	maxTokens := int64(m.opts.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = defaultAnthropicMaxTokens
	}
	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(m.opts.Model),
		MaxTokens:   maxTokens,
		Messages:    messages,
		Temperature: anthropic.Float(m.opts.Temperature),
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}

	resp, err := m.client.Messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("anthropic messages: %w", err)
	}

	var b strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			b.WriteString(block.AsText().Text)
		}
	}
	if b.Len() == 0 {
		return nil, fmt.Errorf("anthropic messages: %w", ErrEmptyResponse)
	}

	return &Response{
		Content: b.String(),
		Model:   string(resp.Model),
		Usage: Usage{
			InputTokens:  resp.Usage.InputTokens,
			OutputTokens: resp.Usage.OutputTokens,
		},
	}, nil
}
