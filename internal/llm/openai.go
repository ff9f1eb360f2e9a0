package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel/attribute"

	"github.com/kjstillabower/weather-chat-service/internal/observability"
)

// DefaultOpenAIModel is used when Config.Model is empty.
const DefaultOpenAIModel = "gpt-4o-mini"

// OpenAIGenerator generates replies with the OpenAI chat completions API or
// any endpoint compatible with it (Config.BaseURL).
type OpenAIGenerator struct {
	api         *openai.Client
	model       string
	timeout     time.Duration
	temperature float32
}

// NewOpenAIGenerator creates an OpenAI client for cfg.
func NewOpenAIGenerator(cfg Config) *OpenAIGenerator {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		clientCfg.BaseURL = base
	}
	model := cfg.Model
	if model == "" {
		model = DefaultOpenAIModel
	}
	return &OpenAIGenerator{
		api:         openai.NewClientWithConfig(clientCfg),
		model:       model,
		timeout:     cfg.Timeout,
		temperature: cfg.Temperature,
	}
}

// Generate sends prompt as a single user message and returns the first choice.
func (g *OpenAIGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	ctx, span := observability.StartSpan(ctx, "generation.openai", attribute.String("llm.model", g.model))
	defer span.End()
	start := time.Now()

	ctx, cancel := withTimeout(ctx, g.timeout)
	defer cancel()

	resp, err := g.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: g.temperature,
	})
	if err != nil {
		observability.RecordUpstreamCall(observability.CollaboratorGeneration, "error", time.Since(start).Seconds())
		span.RecordError(err)
		return "", fmt.Errorf("openai completion: %w", err)
	}
	observability.RecordUpstreamCall(observability.CollaboratorGeneration, "success", time.Since(start).Seconds())

	if len(resp.Choices) == 0 {
		span.RecordError(ErrEmptyReply)
		return "", fmt.Errorf("%w: no completion choices", ErrEmptyReply)
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", ErrEmptyReply
	}
	return text, nil
}

// Model returns the chat completion model name.
func (g *OpenAIGenerator) Model() string {
	return g.model
}
