package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// OpenAI wraps the OpenAI SDK.
type OpenAI struct {
	client *openai.Client
	model  openai.ChatModel
}

// NewOpenAI returns a client for apiKey. Without a key every call fails with
// ErrClientNotInitialised.
func NewOpenAI(apiKey, model string) *OpenAI {
	if apiKey == "" {
		return &OpenAI{}
	}
	if model == "" {
		model = openai.ChatModelGPT4oMini
	}
	client := openai.NewClient(option.WithAPIKey(apiKey))
	return &OpenAI{
		client: &client,
		model:  openai.ChatModel(model),
	}
}

// Complete sends one system and one user message and returns the reply.
func (c *OpenAI) Complete(ctx context.Context, req Request) (string, error) {
	if err := validate(req); err != nil {
		return "", err
	}
	if c.client == nil {
		return "", ErrClientNotInitialised
	}

	params := openai.ChatCompletionNewParams{
		Model: c.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			{
				OfSystem: &openai.ChatCompletionSystemMessageParam{
					Content: openai.ChatCompletionSystemMessageParamContentUnion{
						OfString: openai.String(systemContent(req)),
					},
				},
			},
			{
				OfUser: &openai.ChatCompletionUserMessageParam{
					Content: openai.ChatCompletionUserMessageParamContentUnion{
						OfString: openai.String(userContent(req)),
					},
				},
			},
		},
		Temperature: openai.Float(req.Temperature),
	}
	if req.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(req.MaxTokens))
	}

	ctx, cancel := context.WithTimeout(ctx, timeout(req))
	defer cancel()

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", classifyOpenAIError(err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyCompletion
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func classifyOpenAIError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode == http.StatusTooManyRequests {
			return fmt.Errorf("%w: status %d", ErrRateLimited, apiErr.StatusCode)
		}
		return fmt.Errorf("%w: status %d", ErrUnavailable, apiErr.StatusCode)
	}
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}
