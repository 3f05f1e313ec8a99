// Package llm wraps the external text-understanding service behind a small
// client interface shared by the policy classifier and the bot engine.
package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/googleai"
)

// Client is the minimal surface the pipeline needs from a language model
type Client interface {
	GenerateResponse(ctx context.Context, prompt string) (string, error)
}

// ErrDisabled is returned by the disabled client; callers treat it like any
// other service failure and take their fallback path.
var ErrDisabled = errors.New("llm: no provider configured")

// Config for the Google AI backed client
type Config struct {
	APIKey    string
	ModelName string
	MaxTokens int
}

// GoogleAIClient implements Client using langchain's Google AI provider
type GoogleAIClient struct {
	llm       llms.Model
	modelName string
}

// NewGoogleAI initializes the Google AI client. The API key is required;
// model and token limit fall back to safe defaults.
func NewGoogleAI(ctx context.Context, cfg Config) (*GoogleAIClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	modelName := cfg.ModelName
	if modelName == "" {
		modelName = "gemini-1.5-flash"
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 2048
	}

	opts := []googleai.Option{
		googleai.WithAPIKey(cfg.APIKey),
		googleai.WithDefaultModel(modelName),
		googleai.WithDefaultMaxTokens(maxTokens),
	}

	model, err := googleai.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize LLM: %w", err)
	}

	return &GoogleAIClient{llm: model, modelName: modelName}, nil
}

// GenerateResponse sends a single prompt and returns the raw completion
func (c *GoogleAIClient) GenerateResponse(ctx context.Context, prompt string) (string, error) {
	response, err := llms.GenerateFromSinglePrompt(ctx, c.llm, prompt)
	if err != nil {
		return "", fmt.Errorf("LLM call failed: %w", err)
	}
	return response, nil
}

// ModelName returns the configured model identifier
func (c *GoogleAIClient) ModelName() string {
	return c.modelName
}

// Disabled returns a client that fails every call. Used when no API key is
// configured so the pipeline still runs on its fallback paths.
func Disabled() Client {
	return disabledClient{}
}

type disabledClient struct{}

func (disabledClient) GenerateResponse(context.Context, string) (string, error) {
	return "", ErrDisabled
}
