package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	goopenai "github.com/sashabaranov/go-openai"
)

const (
	// geminiBaseURL is Gemini's OpenAI-compatible endpoint.
	geminiBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai"
	// minGeminiTemperature stands in for zero, which go-openai omits from the
	// request body.
	minGeminiTemperature = 0.01
)

// Gemini calls Google's Gemini models through the OpenAI-compatible API.
type Gemini struct {
	client *goopenai.Client
	model  string
}

// NewGemini returns a client for apiKey. Without a key every call fails with
// ErrClientNotInitialised.
func NewGemini(apiKey, model string) *Gemini {
	if apiKey == "" {
		return &Gemini{}
	}
	if model == "" {
		model = "gemini-1.5-flash"
	}
	cfg := goopenai.DefaultConfig(apiKey)
	cfg.BaseURL = geminiBaseURL
	return &Gemini{
		client: goopenai.NewClientWithConfig(cfg),
		model:  model,
	}
}

// Complete sends one system and one user message and returns the reply.
func (c *Gemini) Complete(ctx context.Context, req Request) (string, error) {
	if err := validate(req); err != nil {
		return "", err
	}
	if c.client == nil {
		return "", ErrClientNotInitialised
	}

	ctx, cancel := context.WithTimeout(ctx, timeout(req))
	defer cancel()

	resp, err := c.client.CreateChatCompletion(ctx, c.chatRequest(req))
	if err != nil {
		return "", classifyGeminiError(err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyCompletion
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func (c *Gemini) chatRequest(req Request) goopenai.ChatCompletionRequest {
	temperature := float32(req.Temperature)
	if temperature <= 0 {
		temperature = minGeminiTemperature
	}
	return goopenai.ChatCompletionRequest{
		Model: c.model,
		Messages: []goopenai.ChatCompletionMessage{
			{Role: goopenai.ChatMessageRoleSystem, Content: systemContent(req)},
			{Role: goopenai.ChatMessageRoleUser, Content: userContent(req)},
		},
		Temperature: temperature,
		MaxTokens:   req.MaxTokens,
	}
}

func classifyGeminiError(err error) error {
	status := 0
	var apiErr *goopenai.APIError
	var reqErr *goopenai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	default:
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if status == http.StatusTooManyRequests {
		return fmt.Errorf("%w: status %d", ErrRateLimited, status)
	}
	return fmt.Errorf("%w: status %d", ErrUnavailable, status)
}
