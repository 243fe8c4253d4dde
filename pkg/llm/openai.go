package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/snow-ghost/codeassist/core"
	"github.com/snow-ghost/codeassist/pkg/limiter"
)

// GeminiOpenAIBaseURL is Google's OpenAI-compatible endpoint.
const GeminiOpenAIBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai/"

// OpenAIGenerator completes prompts through an OpenAI-compatible chat API.
type OpenAIGenerator struct {
	client      *openai.Client
	backend     string
	model       string
	temperature float32
	maxTokens   int
}

// OpenAIOptions configures an OpenAIGenerator.
type OpenAIOptions struct {
	Backend     string // label for metrics, "openai" when empty
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float32
	MaxTokens   int
}

// NewOpenAIGenerator creates a generator for any OpenAI-compatible endpoint.
func NewOpenAIGenerator(opts OpenAIOptions) *OpenAIGenerator {
	config := openai.DefaultConfig(opts.APIKey)
	if opts.BaseURL != "" {
		config.BaseURL = opts.BaseURL
	}
	backend := opts.Backend
	if backend == "" {
		backend = "openai"
	}

	return &OpenAIGenerator{
		client:      openai.NewClientWithConfig(config),
		backend:     backend,
		model:       opts.Model,
		temperature: opts.Temperature,
		maxTokens:   opts.MaxTokens,
	}
}

func (g *OpenAIGenerator) Backend() string { return g.backend }
func (g *OpenAIGenerator) Model() string   { return g.model }

// Complete sends prompt as a single user message.
func (g *OpenAIGenerator) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: g.temperature,
		MaxTokens:   g.maxTokens,
	})
	if err != nil {
		return "", translateOpenAIError(err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%s chat completion: %w", g.backend, core.ErrEmptyResponse)
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", fmt.Errorf("%s chat completion: %w", g.backend, core.ErrEmptyResponse)
	}
	return text, nil
}

// translateOpenAIError maps SDK errors onto limiter.HTTPError so retries and
// quota detection work the same for every backend.
func translateOpenAIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode != 0 {
		return fmt.Errorf("openai chat completion failed: %w",
			limiter.NewHTTPError(apiErr.HTTPStatusCode, apiErr.Message, ""))
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode != 0 {
		msg := ""
		if reqErr.Err != nil {
			msg = reqErr.Err.Error()
		}
		return fmt.Errorf("openai chat completion failed: %w",
			limiter.NewHTTPError(reqErr.HTTPStatusCode, msg, ""))
	}

	return fmt.Errorf("openai chat completion failed: %w", err)
}
