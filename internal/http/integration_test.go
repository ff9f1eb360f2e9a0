//go:build integration
// +build integration

package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kjstillabower/weather-chat-service/internal/lifecycle"
	"github.com/kjstillabower/weather-chat-service/internal/models"
	"github.com/kjstillabower/weather-chat-service/internal/observability"
	testhelpers "github.com/kjstillabower/weather-chat-service/internal/testhelpers"
	"github.com/kjstillabower/weather-chat-service/internal/traffic"
)

var testLogger *zap.Logger

func init() {
	var err error
	testLogger, err = observability.NewLogger()
	if err != nil {
		panic(err)
	}
}

// setupIntegrationServer starts the full router over live collaborators.
func setupIntegrationServer(t *testing.T) (*httptest.Server, testhelpers.IntegrationTestConfig) {
	cfg := testhelpers.GetIntegrationConfig(t)
	chat := testhelpers.SetupIntegrationService(t, cfg)
	handler := NewHandler(chat, traffic.NewTracker(nil), lifecycle.New(), HealthConfig{Window: time.Minute, ErrorPct: 50, MinRequests: 5}, testLogger)
	srv := httptest.NewServer(NewRouter(handler, RouterConfig{RequestTimeout: 45 * time.Second, InFlight: &InFlightTracker{}}, testLogger))
	t.Cleanup(srv.Close)
	return srv, cfg
}

func TestIntegration_PostChat_LiveCollaborators(t *testing.T) {
	srv, cfg := setupIntegrationServer(t)

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/api/chat", strings.NewReader(`{"message":"What should I wear this week?"}`))
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Forwarded-For", "192.168.1.10, "+cfg.PublicIP)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("POST /api/chat: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var reply models.ChatReply
	if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if reply.City == "" || reply.Reply == "" || reply.Type != "chat" {
		t.Errorf("reply = %+v, want city, reply and type chat", reply)
	}
}

func TestIntegration_PostChat_PrivateOnlyAddress(t *testing.T) {
	srv, _ := setupIntegrationServer(t)

	// The test server's peer is 127.0.0.1, which ip-api cannot geolocate.
	resp, err := http.Post(srv.URL+"/api/chat", "application/json", strings.NewReader(`{"message":"hi"}`))
	if err != nil {
		t.Fatalf("POST /api/chat: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 for unresolvable location", resp.StatusCode)
	}
}

func TestIntegration_GetHealthAndMetrics(t *testing.T) {
	srv, _ := setupIntegrationServer(t)

	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("/health status = %d, want 200", resp.StatusCode)
	}

	resp, err = http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("/metrics status = %d, want 200", resp.StatusCode)
	}
}
