//go:build integration
// +build integration

package testhelpers

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/kjstillabower/weather-chat-service/internal/client"
	"github.com/kjstillabower/weather-chat-service/internal/llm"
	"github.com/kjstillabower/weather-chat-service/internal/service"
)

// IntegrationTestConfig holds configuration for integration tests.
type IntegrationTestConfig struct {
	GeoAPIURL      string
	ForecastAPIURL string
	LLMProvider    string
	LLMAPIKey      string
	// PublicIP is geolocated by the live tests.
	PublicIP string
}

// GetIntegrationConfig loads integration test configuration from environment.
// Skips under -short since the live collaborators need network access.
func GetIntegrationConfig(t *testing.T) IntegrationTestConfig {
	if testing.Short() {
		t.Skip("short mode, skipping live integration test")
	}
	cfg := IntegrationTestConfig{
		GeoAPIURL:      envOr("GEO_API_URL", "http://ip-api.com/json"),
		ForecastAPIURL: envOr("FORECAST_API_URL", "https://api.open-meteo.com/v1/forecast"),
		LLMProvider:    envOr("LLM_PROVIDER", llm.ProviderGemini),
		PublicIP:       envOr("INTEGRATION_PUBLIC_IP", "8.8.8.8"),
	}
	switch cfg.LLMProvider {
	case llm.ProviderOpenAI:
		cfg.LLMAPIKey = os.Getenv("OPENAI_API_KEY")
	default:
		cfg.LLMAPIKey = os.Getenv("GEMINI_API_KEY")
	}
	return cfg
}

// StaticGenerator answers every prompt with Reply. Used when no live key is set.
type StaticGenerator struct {
	Reply string
}

func (g StaticGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	return g.Reply, nil
}

func (g StaticGenerator) Model() string { return "static" }

// SetupIntegrationService creates a ChatService over the live geolocation and
// forecast collaborators. The generator is live when an API key is configured
// and a StaticGenerator otherwise.
func SetupIntegrationService(t *testing.T, cfg IntegrationTestConfig) *service.ChatService {
	geo := client.NewIPAPIClient(cfg.GeoAPIURL, 8*time.Second, "UTC")
	forecasts := client.NewOpenMeteoClient(cfg.ForecastAPIURL, 15*time.Second, 16)

	var gen llm.Generator = StaticGenerator{Reply: "integration reply"}
	if cfg.LLMAPIKey != "" {
		live, err := llm.NewGenerator(context.Background(), llm.Config{
			Provider: cfg.LLMProvider,
			APIKey:   cfg.LLMAPIKey,
			Timeout:  20 * time.Second,
		})
		if err != nil {
			t.Fatalf("NewGenerator() error = %v", err)
		}
		gen = live
		t.Logf("using live %s generator", cfg.LLMProvider)
	}
	return service.NewChatService(geo, forecasts, gen, service.Options{})
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
