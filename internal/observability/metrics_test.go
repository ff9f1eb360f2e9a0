package observability

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// TestMetrics_Usable verifies that all Prometheus metrics can be used without
// panic, ensuring label dimensions match usage across client, http and service packages.
func TestMetrics_Usable(t *testing.T) {
	HTTPRequestsTotal.WithLabelValues("POST", "/api/chat", "2xx").Inc()
	HTTPRequestDuration.WithLabelValues("POST", "/api/chat").Observe(0.01)
	RecordUpstreamCall(CollaboratorGeolocation, "success", 0.1)
	RecordUpstreamCall(CollaboratorForecast, "server_error", 0.2)
	RecordUpstreamError(CollaboratorGeneration, "timeout")
	RecordChatOutcome("ok")
	GenerationFallbacksTotal.Inc()
	ForecastDaysReturned.Observe(17)
}

// TestMetricsHandler_ServesPrometheusFormat verifies that MetricsHandler serves
// Prometheus text exposition format with correct HTTP status and metric output.
func TestMetricsHandler_ServesPrometheusFormat(t *testing.T) {
	HTTPRequestsTotal.WithLabelValues("GET", "/", "2xx").Inc()
	RecordChatOutcome("degraded")

	handler := MetricsHandler()
	req := httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("MetricsHandler status = %d, want 200", w.Code)
	}
	body := w.Body.String()
	for _, name := range []string{"httpRequestsTotal", "chatRequestsTotal"} {
		if !strings.Contains(body, name) {
			t.Errorf("MetricsHandler response missing %s", name)
		}
	}
}
