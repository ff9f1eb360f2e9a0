// Package llm adapts third-party text-generation services to a single
// Generator interface used to phrase chat replies.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Supported providers.
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

var (
	// ErrNoCredential is returned by NewGenerator when the provider has no API key.
	ErrNoCredential = errors.New("generator API key not configured")
	// ErrUnknownProvider is returned for a provider name NewGenerator does not know.
	ErrUnknownProvider = errors.New("unknown generator provider")
	// ErrEmptyReply is returned when the provider answers with no text.
	ErrEmptyReply = errors.New("empty generated reply")
)

// Generator produces text for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
	Model() string
}

// Config selects and configures a Generator. It is built once from the
// service configuration and passed to NewGenerator.
type Config struct {
	Provider    string
	APIKey      string
	Model       string
	BaseURL     string
	Timeout     time.Duration
	Temperature float32
}

// NewGenerator builds the Generator for cfg.Provider. A missing API key yields
// ErrNoCredential so callers can run with chat disabled.
func NewGenerator(ctx context.Context, cfg Config) (Generator, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("%w: provider %s", ErrNoCredential, cfg.Provider)
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case ProviderGemini, "":
		return NewGeminiGenerator(ctx, cfg)
	case ProviderOpenAI:
		return NewOpenAIGenerator(cfg), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, cfg.Provider)
	}
}

// withTimeout applies timeout to ctx unless ctx already carries an earlier deadline.
func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	if dl, ok := ctx.Deadline(); ok && time.Until(dl) < timeout {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}
