package http

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/kjstillabower/weather-chat-service/internal/observability"
)

// RouterConfig holds the settings NewRouter needs beyond the handler.
type RouterConfig struct {
	RequestTimeout     time.Duration
	CORSAllowedOrigins []string
	// InFlight, when set, counts requests for graceful shutdown.
	InFlight *InFlightTracker
}

// NewRouter wires the routes and middleware chain:
// in-flight > CORS > correlation ID > metrics > (timeout on /api) > handler.
func NewRouter(h *Handler, cfg RouterConfig, logger *zap.Logger) http.Handler {
	router := mux.NewRouter()
	router.Use(CorrelationIDMiddleware(logger))
	router.Use(MetricsMiddleware)
	router.HandleFunc("/", h.GetRoot).Methods(http.MethodGet)
	router.HandleFunc("/health", h.GetHealth).Methods(http.MethodGet)
	router.Handle("/metrics", observability.MetricsHandler()).Methods(http.MethodGet)

	api := router.PathPrefix("/api").Subrouter()
	if cfg.RequestTimeout > 0 {
		api.Use(TimeoutMiddleware(cfg.RequestTimeout))
	}
	api.HandleFunc("/chat", h.PostChat).Methods(http.MethodPost)

	handler := CORS(cfg.CORSAllowedOrigins, router)
	if cfg.InFlight != nil {
		handler = cfg.InFlight.Middleware(handler)
	}
	return handler
}
