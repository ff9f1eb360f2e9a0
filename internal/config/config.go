package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds service configuration loaded from YAML and env. It is built
// once at startup and passed explicitly to the components that need it.
type Config struct {
	ServerPort string

	GeoAPIURL          string
	GeoAPITimeout      time.Duration
	GeoDefaultTimezone string

	ForecastAPIURL     string
	ForecastAPITimeout time.Duration
	ForecastWindowDays int

	LLMProvider    string // "gemini" or "openai"
	LLMAPIKey      string // empty disables chat
	LLMModel       string
	LLMBaseURL     string
	LLMTimeout     time.Duration
	LLMTemperature float32

	ChatPersona      string
	ChatFallback     string
	MessageMaxLength int

	RequestTimeout time.Duration

	CORSAllowedOrigins []string

	HealthWindow      time.Duration
	HealthErrorPct    int
	HealthMinRequests int

	ShutdownTimeout               time.Duration
	ShutdownInFlightTimeout       time.Duration
	ShutdownInFlightCheckInterval time.Duration

	TracingZipkinURL string
}

// ChatEnabled reports whether a generator credential is configured.
func (c *Config) ChatEnabled() bool {
	return c.LLMAPIKey != ""
}

type fileConfig struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`

	GeoAPI struct {
		URL             string `yaml:"url"`
		Timeout         string `yaml:"timeout"`
		DefaultTimezone string `yaml:"default_timezone"`
	} `yaml:"geo_api"`

	ForecastAPI struct {
		URL        string `yaml:"url"`
		Timeout    string `yaml:"timeout"`
		WindowDays int    `yaml:"window_days"`
	} `yaml:"forecast_api"`

	LLM struct {
		Provider    string   `yaml:"provider"`
		Model       string   `yaml:"model"`
		BaseURL     string   `yaml:"base_url"`
		Timeout     string   `yaml:"timeout"`
		Temperature *float32 `yaml:"temperature"`
	} `yaml:"llm"`

	Chat struct {
		Persona          string `yaml:"persona"`
		FallbackReply    string `yaml:"fallback_reply"`
		MessageMaxLength int    `yaml:"message_max_length"`
	} `yaml:"chat"`

	Request struct {
		Timeout string `yaml:"timeout"`
	} `yaml:"request"`

	CORS struct {
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"cors"`

	Health struct {
		Window      string `yaml:"window"`
		ErrorPct    int    `yaml:"error_pct"`
		MinRequests int    `yaml:"min_requests"`
	} `yaml:"health"`

	Shutdown struct {
		Timeout               string `yaml:"timeout"`
		InFlightTimeout       string `yaml:"in_flight_timeout"`
		InFlightCheckInterval string `yaml:"in_flight_check_interval"`
	} `yaml:"shutdown"`

	Tracing struct {
		ZipkinURL string `yaml:"zipkin_url"`
	} `yaml:"tracing"`
}

type secretsFile struct {
	GeminiAPIKey string `yaml:"gemini_api_key"`
	OpenAIAPIKey string `yaml:"openai_api_key"`
}

// DefaultFallbackReply is sent in place of a generated reply when generation fails.
const DefaultFallbackReply = "Sorry, I couldn't put a reply together right now. Please try again in a moment."

// Load reads configuration from config/{ENV_NAME}.yaml (default dev) and config/secrets.yaml.
// The generator key comes from GEMINI_API_KEY / OPENAI_API_KEY (per provider) or the secrets
// file; a missing key is not an error, it leaves chat disabled. Call from project root.
func Load() (*Config, error) {
	env := os.Getenv("ENV_NAME")
	if env == "" {
		env = "dev"
	}

	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("config: get working directory: %w", err)
	}
	configPath := filepath.Join(cwd, "config", env+".yaml")
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", configPath)
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	cfg := &Config{}

	cfg.ServerPort = strings.TrimSpace(os.Getenv("PORT"))
	if cfg.ServerPort == "" {
		cfg.ServerPort = fc.Server.Port
	}
	if cfg.ServerPort == "" {
		cfg.ServerPort = "8080"
	}

	cfg.GeoAPIURL = fc.GeoAPI.URL
	if cfg.GeoAPIURL == "" {
		cfg.GeoAPIURL = "http://ip-api.com/json"
	}
	cfg.GeoAPITimeout = parseDurationOrZero(fc.GeoAPI.Timeout, 8*time.Second)
	cfg.GeoDefaultTimezone = strings.TrimSpace(fc.GeoAPI.DefaultTimezone)
	if cfg.GeoDefaultTimezone == "" {
		cfg.GeoDefaultTimezone = "Africa/Cairo"
	}

	cfg.ForecastAPIURL = fc.ForecastAPI.URL
	if cfg.ForecastAPIURL == "" {
		cfg.ForecastAPIURL = "https://api.open-meteo.com/v1/forecast"
	}
	cfg.ForecastAPITimeout = parseDurationOrZero(fc.ForecastAPI.Timeout, 15*time.Second)
	cfg.ForecastWindowDays = fc.ForecastAPI.WindowDays
	if cfg.ForecastWindowDays == 0 {
		cfg.ForecastWindowDays = 16
	}

	cfg.LLMProvider = strings.TrimSpace(strings.ToLower(os.Getenv("LLM_PROVIDER")))
	if cfg.LLMProvider == "" {
		cfg.LLMProvider = strings.TrimSpace(strings.ToLower(fc.LLM.Provider))
	}
	if cfg.LLMProvider == "" {
		cfg.LLMProvider = "gemini"
	}
	cfg.LLMModel = strings.TrimSpace(fc.LLM.Model)
	cfg.LLMBaseURL = strings.TrimSpace(fc.LLM.BaseURL)
	cfg.LLMTimeout = parseDurationOrZero(fc.LLM.Timeout, 20*time.Second)
	cfg.LLMTemperature = 0.7
	if fc.LLM.Temperature != nil {
		cfg.LLMTemperature = *fc.LLM.Temperature
	}
	cfg.LLMAPIKey, err = loadAPIKey(cwd, cfg.LLMProvider)
	if err != nil {
		return nil, err
	}

	cfg.ChatPersona = strings.TrimSpace(fc.Chat.Persona)
	cfg.ChatFallback = strings.TrimSpace(fc.Chat.FallbackReply)
	if cfg.ChatFallback == "" {
		cfg.ChatFallback = DefaultFallbackReply
	}
	cfg.MessageMaxLength = fc.Chat.MessageMaxLength
	if cfg.MessageMaxLength <= 0 {
		cfg.MessageMaxLength = 2000
	}

	cfg.RequestTimeout = parseDuration(fc.Request.Timeout, 45*time.Second)

	cfg.CORSAllowedOrigins = fc.CORS.AllowedOrigins
	if len(cfg.CORSAllowedOrigins) == 0 {
		cfg.CORSAllowedOrigins = []string{"*"}
	}

	cfg.HealthWindow = parseDuration(fc.Health.Window, 60*time.Second)
	cfg.HealthErrorPct = fc.Health.ErrorPct
	if cfg.HealthErrorPct <= 0 {
		cfg.HealthErrorPct = 50
	}
	cfg.HealthMinRequests = fc.Health.MinRequests
	if cfg.HealthMinRequests <= 0 {
		cfg.HealthMinRequests = 5
	}

	cfg.ShutdownTimeout = parseDuration(fc.Shutdown.Timeout, 30*time.Second)
	cfg.ShutdownInFlightTimeout = parseDuration(fc.Shutdown.InFlightTimeout, 25*time.Second)
	cfg.ShutdownInFlightCheckInterval = parseDuration(fc.Shutdown.InFlightCheckInterval, 100*time.Millisecond)

	cfg.TracingZipkinURL = strings.TrimSpace(os.Getenv("ZIPKIN_URL"))
	if cfg.TracingZipkinURL == "" {
		cfg.TracingZipkinURL = strings.TrimSpace(fc.Tracing.ZipkinURL)
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadAPIKey returns the generator key for provider from env, then config/secrets.yaml.
// A missing key returns "" without error.
func loadAPIKey(cwd, provider string) (string, error) {
	envVar := "GEMINI_API_KEY"
	if provider == "openai" {
		envVar = "OPENAI_API_KEY"
	}
	if key := strings.TrimSpace(os.Getenv(envVar)); key != "" {
		return key, nil
	}

	secretsPath := filepath.Join(cwd, "config", "secrets.yaml")
	secretsData, err := os.ReadFile(secretsPath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("read secrets file: %w", err)
	}
	var sec secretsFile
	if err := yaml.Unmarshal(secretsData, &sec); err != nil {
		return "", fmt.Errorf("parse secrets file: %w", err)
	}
	if provider == "openai" {
		return strings.TrimSpace(sec.OpenAIAPIKey), nil
	}
	return strings.TrimSpace(sec.GeminiAPIKey), nil
}

// parseDuration parses a duration string and returns defaultVal if parsing fails or result is <= 0.
// Used for parsing duration fields from YAML config with safe fallback to defaults.
func parseDuration(s string, defaultVal time.Duration) time.Duration {
	d := parseDurationOrZero(s, defaultVal)
	if d <= 0 {
		return defaultVal
	}
	return d
}

// parseDurationOrZero parses a duration string, returning defaultVal on empty string or parse error.
// Returns zero or negative durations as-is (caller should handle fallback).
func parseDurationOrZero(s string, defaultVal time.Duration) time.Duration {
	s = strings.TrimSpace(s)
	if s == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return defaultVal
	}
	return d
}

// validate performs post-load validation of configuration values.
// Collaborator timeouts must be positive and the request timeout must cover all
// three sequential calls; it is raised automatically when it does not.
func validate(cfg *Config) error {
	if cfg.GeoAPITimeout <= 0 {
		return fmt.Errorf("geo_api.timeout must be positive")
	}
	if cfg.ForecastAPITimeout <= 0 {
		return fmt.Errorf("forecast_api.timeout must be positive")
	}
	if cfg.LLMTimeout <= 0 {
		return fmt.Errorf("llm.timeout must be positive")
	}
	if cfg.ForecastWindowDays < 0 {
		return fmt.Errorf("forecast_api.window_days must not be negative, got %d", cfg.ForecastWindowDays)
	}
	if _, err := strconv.Atoi(cfg.ServerPort); err != nil {
		return fmt.Errorf("server.port must be numeric, got %q", cfg.ServerPort)
	}
	switch cfg.LLMProvider {
	case "gemini", "openai":
		// valid
	default:
		return fmt.Errorf("llm.provider must be gemini or openai, got %q", cfg.LLMProvider)
	}
	if cfg.HealthErrorPct > 100 {
		return fmt.Errorf("health.error_pct must be at most 100, got %d", cfg.HealthErrorPct)
	}
	minRequest := cfg.GeoAPITimeout + cfg.ForecastAPITimeout + cfg.LLMTimeout
	if cfg.RequestTimeout <= minRequest {
		cfg.RequestTimeout = minRequest + time.Second
	}
	return nil
}
