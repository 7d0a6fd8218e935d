package llm

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAIModel calls the chat completions API.
type OpenAIModel struct {
	client *openai.Client
	opts   Options
}

// NewOpenAIModel creates an OpenAI chat model. Extra request options (base URL,
// retries) are passed to the client.
func NewOpenAIModel(opts Options, reqOpts ...option.RequestOption) *OpenAIModel {
	if opts.APIKey != "" {
		reqOpts = append([]option.RequestOption{option.WithAPIKey(opts.APIKey)}, reqOpts...)
	}
	client := openai.NewClient(reqOpts...)
	return &OpenAIModel{client: &client, opts: opts}
}

func (m *OpenAIModel) Generate(ctx context.Context, req Request) (*Response, error) {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Messages)+1)
	if req.System != "" {
		messages = append(messages, openai.SystemMessage(req.System))
	}
	for _, msg := range req.Messages {
		switch msg.Role {
		case RoleAssistant:
			messages = append(messages, openai.AssistantMessage(msg.Content))
		default:
			messages = append(messages, openai.UserMessage(msg.Content))
		}
	}

	params := openai.ChatCompletionNewParams{
		Messages:    messages,
		Model:       openai.ChatModel(m.opts.Model),
		Temperature: openai.Float(m.opts.Temperature),
	}
	if m.opts.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(m.opts.MaxTokens))
	}

	resp, err := m.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai chat completion: %w", err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return nil, fmt.Errorf("openai chat completion: %w", ErrEmptyResponse)
	}

	return &Response{
		Content: resp.Choices[0].Message.Content,
		Model:   resp.Model,
		Usage: Usage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
		},
	}, nil
}
