package generate

import (
	"context"
	"errors"
	"fmt"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/gaurav-prasanna/gtmkit/core"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "gpt-4o"

// ErrMissingAPIKey is returned when the openai provider has no API key.
var ErrMissingAPIKey = errors.New("openai api key missing; set generation.api_key or OPENAI_API_KEY")

// OpenAICompleter implements core.Completer with openai-go chat completions.
type OpenAICompleter struct {
	client openai.Client
	model  string
}

// NewOpenAICompleter creates a completer. baseURL may be empty.
func NewOpenAICompleter(apiKey, model, baseURL string) (*OpenAICompleter, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	if model == "" {
		model = DefaultModel
	}
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &OpenAICompleter{client: openai.NewClient(opts...), model: model}, nil
}

func (o *OpenAICompleter) Name() string  { return "openai" }
func (o *OpenAICompleter) Model() string { return o.model }

// Complete sends one chat completion. A "length" finish reason marks the
// completion as truncated.
func (o *OpenAICompleter) Complete(ctx context.Context, req core.CompletionRequest) (*core.Completion, error) {
	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(o.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(req.Instructions),
			openai.UserMessage(req.Input),
		},
	}
	if req.MaxOutputTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(req.MaxOutputTokens))
	}

	resp, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("openai: empty choices")
	}
	choice := resp.Choices[0]
	reason := string(choice.FinishReason)
	return &core.Completion{
		Text:         choice.Message.Content,
		FinishReason: reason,
		ResponseID:   resp.ID,
		Truncated:    reason == "length",
	}, nil
}
