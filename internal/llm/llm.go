// Package llm talks to the external completion service used for chat,
// document summaries and insights.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pathakanu/healthGenie/internal/config"
)

var (
	// ErrClientNotInitialised is returned when no API key was configured.
	ErrClientNotInitialised = errors.New("ai backend is not configured")
	// ErrRateLimited is returned when the backend answered 429.
	ErrRateLimited = errors.New("ai backend rate limited the request")
	// ErrUnavailable covers every other failed call.
	ErrUnavailable = errors.New("ai backend unavailable")
	// ErrEmptyPrompt is returned for blank prompts; no call is made.
	ErrEmptyPrompt = errors.New("prompt cannot be empty")
	// ErrEmptyCompletion is returned when the backend sent no choices.
	ErrEmptyCompletion = errors.New("no completion received")
)

const defaultTimeout = 30 * time.Second

// Request is one completion call.
type Request struct {
	System      string
	Context     string
	Prompt      string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

// Client produces a single text completion.
type Client interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// New returns the backend selected by cfg.LLMProvider.
func New(cfg *config.Config) (Client, error) {
	switch cfg.LLMProvider {
	case "", "openai":
		return NewOpenAI(cfg.OpenAIAPIKey, cfg.OpenAIModel), nil
	case "gemini":
		return NewGemini(cfg.GeminiAPIKey, cfg.GeminiModel), nil
	default:
		return nil, fmt.Errorf("llm: unknown LLM_PROVIDER %q", cfg.LLMProvider)
	}
}

func validate(req Request) error {
	if strings.TrimSpace(req.Prompt) == "" {
		return ErrEmptyPrompt
	}
	return nil
}

func systemContent(req Request) string {
	if strings.TrimSpace(req.System) == "" {
		return SystemPrompt
	}
	return req.System
}

func userContent(req Request) string {
	prompt := strings.TrimSpace(req.Prompt)
	context := strings.TrimSpace(req.Context)
	if context == "" {
		return prompt
	}
	return fmt.Sprintf("Context: %s\n\nUser query: %s", context, prompt)
}

func timeout(req Request) time.Duration {
	if req.Timeout <= 0 {
		return defaultTimeout
	}
	return req.Timeout
}
