package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kjstillabower/weather-chat-service/internal/client"
	"github.com/kjstillabower/weather-chat-service/internal/config"
	httphandler "github.com/kjstillabower/weather-chat-service/internal/http"
	"github.com/kjstillabower/weather-chat-service/internal/lifecycle"
	"github.com/kjstillabower/weather-chat-service/internal/llm"
	"github.com/kjstillabower/weather-chat-service/internal/observability"
	"github.com/kjstillabower/weather-chat-service/internal/service"
	"github.com/kjstillabower/weather-chat-service/internal/traffic"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP chat service (default)",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	logger, err := observability.NewLogger()
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		logger.Error("config", zap.Error(err))
		return err
	}
	logger.Info("config loaded",
		zap.String("port", cfg.ServerPort),
		zap.String("llm_provider", cfg.LLMProvider),
		zap.Bool("chat_key_present", cfg.ChatEnabled()),
		zap.Duration("request_timeout", cfg.RequestTimeout),
	)

	if err := observability.InitTracing(observability.ServiceName, version, cfg.TracingZipkinURL); err != nil {
		logger.Warn("tracing disabled", zap.Error(err))
	} else if cfg.TracingZipkinURL != "" {
		logger.Info("tracing enabled", zap.String("zipkin_url", cfg.TracingZipkinURL))
	}

	geo := client.NewIPAPIClient(cfg.GeoAPIURL, cfg.GeoAPITimeout, cfg.GeoDefaultTimezone)
	forecasts := client.NewOpenMeteoClient(cfg.ForecastAPIURL, cfg.ForecastAPITimeout, cfg.ForecastWindowDays)

	generator, err := llm.NewGenerator(cmd.Context(), llm.Config{
		Provider:    cfg.LLMProvider,
		APIKey:      cfg.LLMAPIKey,
		Model:       cfg.LLMModel,
		BaseURL:     cfg.LLMBaseURL,
		Timeout:     cfg.LLMTimeout,
		Temperature: cfg.LLMTemperature,
	})
	switch {
	case errors.Is(err, llm.ErrNoCredential):
		logger.Warn("generator API key not configured; chat is disabled", zap.String("provider", cfg.LLMProvider))
		generator = nil
	case err != nil:
		logger.Error("generator", zap.Error(err))
		return err
	default:
		logger.Info("generator ready", zap.String("provider", cfg.LLMProvider), zap.String("model", generator.Model()))
	}

	chat := service.NewChatService(geo, forecasts, generator, service.Options{
		Persona:          cfg.ChatPersona,
		FallbackReply:    cfg.ChatFallback,
		MessageMaxLength: cfg.MessageMaxLength,
	})

	state := lifecycle.New()
	inFlight := &httphandler.InFlightTracker{}
	handler := httphandler.NewHandler(chat, traffic.NewTracker(nil), state, httphandler.HealthConfig{
		Window:      cfg.HealthWindow,
		ErrorPct:    cfg.HealthErrorPct,
		MinRequests: cfg.HealthMinRequests,
		Version:     version,
	}, logger)
	router := httphandler.NewRouter(handler, httphandler.RouterConfig{
		RequestTimeout:     cfg.RequestTimeout,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		InFlight:           inFlight,
	}, logger)

	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      cfg.RequestTimeout + 5*time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("server starting", zap.String("addr", srv.Addr), zap.Bool("chat_enabled", chat.Enabled()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	select {
	case <-ctx.Done():
	case err, ok := <-serveErr:
		if ok {
			logger.Error("server", zap.Error(err))
			return err
		}
	}
	stop()

	logger.Info("graceful shutdown triggered")
	state.SetShuttingDown(true)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}

	logger.Info("waiting for in-flight requests", zap.Int64("count", inFlight.Count()))
	waitCtx, waitCancel := context.WithTimeout(context.Background(), cfg.ShutdownInFlightTimeout)
	defer waitCancel()
	if err := inFlight.WaitForZero(waitCtx, cfg.ShutdownInFlightCheckInterval); err != nil {
		logger.Warn("in-flight requests not completed", zap.Error(err), zap.Int64("remaining", inFlight.Count()))
	}

	if err := observability.FlushTelemetry(context.Background(), logger); err != nil {
		logger.Error("telemetry flush", zap.Error(err))
	}
	logger.Info("shutdown complete")
	return nil
}
