package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"google.golang.org/genai"

	"github.com/kjstillabower/weather-chat-service/internal/observability"
)

// DefaultGeminiModel is used when Config.Model is empty.
const DefaultGeminiModel = "gemini-1.5-flash"

// GeminiGenerator generates replies with Google's Gemini API.
type GeminiGenerator struct {
	client      *genai.Client
	model       string
	timeout     time.Duration
	temperature float32
}

// NewGeminiGenerator creates a Gemini client for cfg.
func NewGeminiGenerator(ctx context.Context, cfg Config) (*GeminiGenerator, error) {
	model := cfg.Model
	if model == "" {
		model = DefaultGeminiModel
	}

	clientCfg := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	return &GeminiGenerator{
		client:      client,
		model:       model,
		timeout:     cfg.Timeout,
		temperature: cfg.Temperature,
	}, nil
}

// Generate sends prompt as a single user turn and returns the trimmed text.
func (g *GeminiGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	ctx, span := observability.StartSpan(ctx, "generation.gemini", attribute.String("llm.model", g.model))
	defer span.End()
	start := time.Now()

	ctx, cancel := withTimeout(ctx, g.timeout)
	defer cancel()

	var genCfg *genai.GenerateContentConfig
	if g.temperature > 0 {
		genCfg = &genai.GenerateContentConfig{Temperature: genai.Ptr(g.temperature)}
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), genCfg)
	if err != nil {
		observability.RecordUpstreamCall(observability.CollaboratorGeneration, "error", time.Since(start).Seconds())
		span.RecordError(err)
		return "", fmt.Errorf("GenAI generate failed: %w", err)
	}
	observability.RecordUpstreamCall(observability.CollaboratorGeneration, "success", time.Since(start).Seconds())

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		span.RecordError(ErrEmptyReply)
		return "", ErrEmptyReply
	}
	return text, nil
}

// Model returns the Gemini model name.
func (g *GeminiGenerator) Model() string {
	return g.model
}
