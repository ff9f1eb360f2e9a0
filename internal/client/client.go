// Package client holds the outbound collaborators: IP geolocation and daily
// forecast lookups over HTTP.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/kjstillabower/weather-chat-service/internal/observability"
)

var (
	ErrInvalidAPIKey    = errors.New("invalid API key")
	ErrLocationNotFound = errors.New("location not found")
	ErrUpstreamFailure  = errors.New("upstream failure")
	ErrRateLimited      = errors.New("rate limited")
	ErrNoForecastData   = errors.New("no forecast data")
)

// maxResponseBytes bounds how much of an upstream body is read.
const maxResponseBytes = 1 << 20

// jsonGetter performs GET requests against one collaborator and decodes JSON bodies.
type jsonGetter struct {
	collaborator string
	timeout      time.Duration
	client       *http.Client
}

func newJSONGetter(collaborator string, timeout time.Duration) jsonGetter {
	return jsonGetter{
		collaborator: collaborator,
		timeout:      timeout,
		client:       &http.Client{Timeout: timeout},
	}
}

// get issues req (built by the caller's request builder) with the per-call
// timeout applied, records metrics and a span, and decodes a 2xx body into out.
func (g jsonGetter) get(ctx context.Context, spanName, reqURL string, out interface{}, attrs ...attribute.KeyValue) error {
	ctx, span := observability.StartSpan(ctx, spanName, append(attrs, attribute.String("collaborator", g.collaborator))...)
	defer span.End()

	err := g.do(ctx, reqURL, out)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		observability.RecordUpstreamError(g.collaborator, string(CategorizeError(err)))
	}
	return err
}

func (g jsonGetter) do(ctx context.Context, reqURL string, out interface{}) error {
	start := time.Now()

	reqCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, reqURL, nil)
	if err != nil {
		observability.RecordUpstreamCall(g.collaborator, "error", time.Since(start).Seconds())
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if corrID := observability.CorrelationID(ctx); corrID != "" {
		req.Header.Set("X-Correlation-ID", corrID)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		observability.RecordUpstreamCall(g.collaborator, "error", time.Since(start).Seconds())
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return fmt.Errorf("request timeout: %w", err)
		}
		return fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	observability.RecordUpstreamCall(g.collaborator, statusLabel(resp.StatusCode), time.Since(start).Seconds())

	if err := handleErrorResponse(resp); err != nil {
		return err
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("read response body: %w", err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	return nil
}

func handleErrorResponse(resp *http.Response) error {
	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: HTTP %d", ErrInvalidAPIKey, resp.StatusCode)
	case http.StatusNotFound:
		return fmt.Errorf("%w", ErrLocationNotFound)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w", ErrRateLimited)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: HTTP %d", ErrUpstreamFailure, resp.StatusCode)
	}

	return nil
}

func statusLabel(statusCode int) string {
	if statusCode >= 200 && statusCode < 300 {
		return "success"
	}
	if statusCode == 429 {
		return "rate_limited"
	}
	if statusCode >= 400 && statusCode < 500 {
		return "client_error"
	}
	if statusCode >= 500 {
		return "server_error"
	}
	return "error"
}
