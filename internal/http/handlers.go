package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kjstillabower/weather-chat-service/internal/clientip"
	"github.com/kjstillabower/weather-chat-service/internal/lifecycle"
	"github.com/kjstillabower/weather-chat-service/internal/observability"
	"github.com/kjstillabower/weather-chat-service/internal/service"
	"github.com/kjstillabower/weather-chat-service/internal/traffic"
	"github.com/kjstillabower/weather-chat-service/internal/validation"
)

// maxBodyBytes bounds the POST /api/chat request body.
const maxBodyBytes = 64 << 10

// Error texts returned in {"error": ...} bodies.
const (
	msgMalformedBody  = "request body must be JSON with a message field"
	msgMessageEmpty   = "message is required"
	msgMessageTooLong = "message is too long"
	msgMessageInvalid = "message contains invalid characters"
	msgNoLocation     = "cannot determine your location"
	msgNoWeather      = "no weather data available"
	msgChatDisabled   = "chat is disabled: generator API key is not configured"
	msgInternal       = "internal error"
)

// HealthConfig holds the error-rate thresholds for the health handler.
type HealthConfig struct {
	Window   time.Duration
	ErrorPct int
	// MinRequests is the smallest window sample that can mark the service degraded.
	MinRequests int
	Version     string
}

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	chat             *service.ChatService
	outcomes         *traffic.Tracker
	state            *lifecycle.State
	healthConfig     HealthConfig
	logger           *zap.Logger
	healthStatusMu   sync.Mutex
	healthStatusPrev string
}

// NewHandler returns a new Handler.
func NewHandler(
	chat *service.ChatService,
	outcomes *traffic.Tracker,
	state *lifecycle.State,
	healthConfig HealthConfig,
	logger *zap.Logger,
) *Handler {
	if healthConfig.Window <= 0 {
		healthConfig.Window = time.Minute
	}
	if healthConfig.Version == "" {
		healthConfig.Version = "dev"
	}
	return &Handler{
		chat:         chat,
		outcomes:     outcomes,
		state:        state,
		healthConfig: healthConfig,
		logger:       logger,
	}
}

type chatRequest struct {
	Message *string `json:"message"`
}

// PostChat handles POST /api/chat.
func (h *Handler) PostChat(w http.ResponseWriter, r *http.Request) {
	// Disabled wins over body errors: the endpoint cannot serve any request.
	if !h.chat.Enabled() {
		observability.RecordChatOutcome(service.OutcomeDisabled)
		writeServiceError(w, r, service.ErrChatDisabled)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var body chatRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		observability.LoggerFromContext(r.Context()).Debug("malformed chat body", zap.Error(err))
		writeError(w, http.StatusBadRequest, msgMalformedBody)
		return
	}
	message := ""
	if body.Message != nil {
		message = *body.Message
	}

	ip := clientip.FromRequest(r)
	result, err := h.chat.Chat(r.Context(), service.ChatRequest{Message: message, ClientIP: ip})
	h.recordOutcome(result, err)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result.ChatReply)
}

// recordOutcome feeds the health tracker. Client mistakes and the disabled
// state are not upstream failures and are left out.
func (h *Handler) recordOutcome(result service.ChatResult, err error) {
	if h.outcomes == nil {
		return
	}
	switch service.Outcome(err) {
	case service.OutcomeSuccess:
		if result.Fallback {
			h.outcomes.RecordFallback()
		} else {
			h.outcomes.RecordSuccess()
		}
	case service.OutcomeLocation, service.OutcomeForecast, service.OutcomeInternal:
		h.outcomes.RecordError()
	}
}

// GetRoot handles GET /, a liveness message naming the chat endpoint.
func (h *Handler) GetRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"message":  "Weather chat service is running",
		"endpoint": "/api/chat",
	})
}

// healthResult holds the computed health status and metadata for logging.
type healthResult struct {
	status     string
	statusCode int
	reason     string
}

// GetHealth handles GET /health.
func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	result := h.computeHealthStatus()

	h.healthStatusMu.Lock()
	prev := h.healthStatusPrev
	if prev != "" && prev != result.status {
		h.logger.Info("health status transition",
			zap.String("previous_status", prev),
			zap.String("current_status", result.status),
			zap.String("reason", result.reason))
	}
	h.healthStatusPrev = result.status
	h.healthStatusMu.Unlock()

	checks := map[string]string{
		"generator": "configured",
		"upstream":  "healthy",
	}
	if !h.chat.Enabled() {
		checks["generator"] = "disabled"
	}
	if result.reason == "error_rate_breach" {
		checks["upstream"] = "unhealthy"
	}

	resp := map[string]interface{}{
		"status":    result.status,
		"service":   observability.ServiceName,
		"version":   h.healthConfig.Version,
		"checks":    checks,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	if h.outcomes != nil {
		errs, total := h.outcomes.ErrorRate(h.healthConfig.Window)
		resp["window"] = map[string]interface{}{
			"length":    h.healthConfig.Window.String(),
			"requests":  total,
			"errors":    errs,
			"fallbacks": h.outcomes.FallbackCount(h.healthConfig.Window),
		}
	}
	if h.state != nil {
		resp["uptime"] = h.state.Uptime().Truncate(time.Second).String()
	}
	writeJSON(w, result.statusCode, resp)
}

// computeHealthStatus evaluates conditions in priority order:
// shutting-down > degraded (error rate) > healthy. A disabled generator is
// reported in checks but does not fail the probe.
func (h *Handler) computeHealthStatus() healthResult {
	if h.state != nil && h.state.IsShuttingDown() {
		return healthResult{"shutting-down", http.StatusServiceUnavailable, "signal"}
	}
	if h.outcomes != nil && h.healthConfig.ErrorPct > 0 {
		errs, total := h.outcomes.ErrorRate(h.healthConfig.Window)
		if total > 0 && total >= h.healthConfig.MinRequests {
			pct := float64(errs) * 100 / float64(total)
			if pct >= float64(h.healthConfig.ErrorPct) {
				return healthResult{"degraded", http.StatusServiceUnavailable, "error_rate_breach"}
			}
		}
	}
	return healthResult{"healthy", http.StatusOK, ""}
}

// writeJSON writes a JSON response with the specified HTTP status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes {"error": message}. The correlation ID travels in the response header.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeServiceError maps a ChatService error to its status code and message.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status, message := statusForError(err)
	logger := observability.LoggerFromContext(r.Context())
	if status == http.StatusInternalServerError {
		logger.Error("chat request failed", zap.Int("status", status), zap.Error(err))
	} else {
		logger.Debug("chat request rejected", zap.Int("status", status), zap.Error(err))
	}
	writeError(w, status, message)
}

func statusForError(err error) (int, string) {
	switch {
	case errors.Is(err, validation.ErrMessageEmpty):
		return http.StatusBadRequest, msgMessageEmpty
	case errors.Is(err, validation.ErrMessageTooLong):
		return http.StatusBadRequest, msgMessageTooLong
	case errors.Is(err, service.ErrValidation):
		return http.StatusBadRequest, msgMessageInvalid
	case errors.Is(err, service.ErrLocationUnresolved):
		return http.StatusBadRequest, msgNoLocation
	case errors.Is(err, service.ErrForecastUnavailable):
		return http.StatusInternalServerError, msgNoWeather
	case errors.Is(err, service.ErrChatDisabled):
		return http.StatusServiceUnavailable, msgChatDisabled
	default:
		return http.StatusInternalServerError, msgInternal
	}
}
