// Package service sequences a chat request through geolocation, forecast
// formatting and text generation.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/kjstillabower/weather-chat-service/internal/client"
	"github.com/kjstillabower/weather-chat-service/internal/config"
	"github.com/kjstillabower/weather-chat-service/internal/forecast"
	"github.com/kjstillabower/weather-chat-service/internal/llm"
	"github.com/kjstillabower/weather-chat-service/internal/models"
	"github.com/kjstillabower/weather-chat-service/internal/observability"
	"github.com/kjstillabower/weather-chat-service/internal/validation"
)

// ReplyType is the type field of every chat reply.
const ReplyType = "chat"

var (
	// ErrValidation wraps message validation failures.
	ErrValidation = errors.New("invalid message")
	// ErrLocationUnresolved means the caller's IP could not be geolocated.
	ErrLocationUnresolved = errors.New("cannot determine location")
	// ErrForecastUnavailable means the forecast lookup failed or returned nothing.
	ErrForecastUnavailable = errors.New("no weather data")
	// ErrChatDisabled means no generator is configured.
	ErrChatDisabled = errors.New("chat is disabled")
)

// Chat outcome labels, used for metrics and health tracking.
const (
	OutcomeSuccess    = "success"
	OutcomeFallback   = "fallback"
	OutcomeValidation = "validation"
	OutcomeLocation   = "location"
	OutcomeForecast   = "forecast"
	OutcomeDisabled   = "disabled"
	OutcomeInternal   = "internal"
)

// ChatRequest is one inbound chat message with the caller's resolved IP.
type ChatRequest struct {
	Message  string
	ClientIP string
}

// ChatResult is the reply plus whether the fallback text replaced a generated one.
type ChatResult struct {
	models.ChatReply
	Fallback bool `json:"-"`
}

// Options tunes a ChatService. Zero values fall back to defaults.
type Options struct {
	Persona          string
	FallbackReply    string
	MessageMaxLength int
	// Now is the clock used to pick "today"; nil means time.Now.
	Now func() time.Time
}

// ChatService answers chat messages with weather-aware replies.
type ChatService struct {
	geo       client.GeoClient
	forecasts client.ForecastClient
	generator llm.Generator
	persona   string
	fallback  string
	maxLen    int
	now       func() time.Time
}

// NewChatService creates a ChatService. generator may be nil, in which case
// Chat returns ErrChatDisabled.
func NewChatService(geo client.GeoClient, forecasts client.ForecastClient, generator llm.Generator, opts Options) *ChatService {
	s := &ChatService{
		geo:       geo,
		forecasts: forecasts,
		generator: generator,
		persona:   opts.Persona,
		fallback:  opts.FallbackReply,
		maxLen:    opts.MessageMaxLength,
		now:       opts.Now,
	}
	if s.fallback == "" {
		s.fallback = config.DefaultFallbackReply
	}
	if s.maxLen <= 0 {
		s.maxLen = 2000
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Enabled reports whether a generator is configured.
func (s *ChatService) Enabled() bool {
	return s.generator != nil
}

// FallbackReply returns the text sent when generation fails.
func (s *ChatService) FallbackReply() string {
	return s.fallback
}

// Chat validates the message, locates the caller, fetches and formats the
// forecast, and asks the generator for a reply. A generation failure is not an
// error: the fallback text is returned with Fallback set.
func (s *ChatService) Chat(ctx context.Context, req ChatRequest) (ChatResult, error) {
	ctx, span := observability.StartSpan(ctx, "chat.request", attribute.String("client.ip", req.ClientIP))
	defer span.End()

	res, outcome, err := s.chat(ctx, req)
	observability.RecordChatOutcome(outcome)
	span.SetAttributes(attribute.String("chat.outcome", outcome))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return res, err
}

func (s *ChatService) chat(ctx context.Context, req ChatRequest) (ChatResult, string, error) {
	logger := observability.LoggerFromContext(ctx)

	if !s.Enabled() {
		return ChatResult{}, OutcomeDisabled, ErrChatDisabled
	}

	message, err := validation.ValidateMessage(req.Message, s.maxLen)
	if err != nil {
		return ChatResult{}, OutcomeValidation, fmt.Errorf("%w: %w", ErrValidation, err)
	}

	loc, err := s.geo.Locate(ctx, req.ClientIP)
	if err != nil {
		logger.Warn("geolocation failed",
			zap.String("ip", req.ClientIP),
			zap.String("category", string(client.CategorizeError(err))),
			zap.Error(err),
		)
		return ChatResult{}, OutcomeLocation, fmt.Errorf("%w: %w", ErrLocationUnresolved, err)
	}

	today := s.today(loc.Timezone)
	days, err := s.forecasts.DailyForecast(ctx, loc, today)
	if err != nil {
		logger.Warn("forecast lookup failed",
			zap.String("city", loc.City),
			zap.String("category", string(client.CategorizeError(err))),
			zap.Error(err),
		)
		return ChatResult{}, OutcomeForecast, fmt.Errorf("%w: %w", ErrForecastUnavailable, err)
	}

	block := forecast.Block(forecast.Format(days, today))
	prompt := llm.BuildPrompt(s.persona, loc.City, block, message)

	reply := models.ChatReply{City: loc.City, Type: ReplyType}
	text, err := s.generator.Generate(ctx, prompt)
	if err != nil {
		observability.GenerationFallbacksTotal.Inc()
		observability.RecordUpstreamError(observability.CollaboratorGeneration, string(client.CategorizeError(err)))
		logger.Warn("generation failed, sending fallback reply",
			zap.String("model", s.generator.Model()),
			zap.Error(err),
		)
		reply.Reply = s.fallback
		return ChatResult{ChatReply: reply, Fallback: true}, OutcomeFallback, nil
	}

	reply.Reply = text
	logger.Debug("chat answered",
		zap.String("city", loc.City),
		zap.Int("forecast_days", len(days)),
	)
	return ChatResult{ChatReply: reply}, OutcomeSuccess, nil
}

// today returns the current time in the named zone, or UTC if the zone is unknown.
func (s *ChatService) today(timezone string) time.Time {
	zone, err := time.LoadLocation(timezone)
	if err != nil || timezone == "" {
		zone = time.UTC
	}
	return s.now().In(zone)
}

// Outcome maps a Chat error to its outcome label.
func Outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.Is(err, ErrValidation):
		return OutcomeValidation
	case errors.Is(err, ErrLocationUnresolved):
		return OutcomeLocation
	case errors.Is(err, ErrForecastUnavailable):
		return OutcomeForecast
	case errors.Is(err, ErrChatDisabled):
		return OutcomeDisabled
	default:
		return OutcomeInternal
	}
}
