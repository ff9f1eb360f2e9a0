package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kjstillabower/weather-chat-service/internal/models"
)

var cairo = models.Location{City: "Cairo", Latitude: 30.0444, Longitude: 31.2357, Timezone: "Africa/Cairo"}

func TestForecastRequest_URL(t *testing.T) {
	start := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	got, err := ForecastRequest{
		Latitude:  30.0444,
		Longitude: 31.2357,
		Timezone:  "Africa/Cairo",
		StartDate: start,
		EndDate:   start.AddDate(0, 0, 16),
	}.URL("https://api.open-meteo.com/v1/forecast")
	if err != nil {
		t.Fatalf("URL() error = %v", err)
	}
	want := "https://api.open-meteo.com/v1/forecast?daily=temperature_2m_max%2Ctemperature_2m_min%2Cprecipitation_sum" +
		"&end_date=2024-03-21&latitude=30.0444&longitude=31.2357&start_date=2024-03-05&timezone=Africa%2FCairo"
	if got != want {
		t.Errorf("URL() =\n%s\nwant\n%s", got, want)
	}
}

func TestOpenMeteoClient_DailyForecast_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("start_date") != "2024-03-05" || q.Get("end_date") != "2024-03-21" {
			t.Errorf("window = %s..%s, want 2024-03-05..2024-03-21", q.Get("start_date"), q.Get("end_date"))
		}
		if q.Get("timezone") != "Africa/Cairo" {
			t.Errorf("timezone = %q", q.Get("timezone"))
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"daily":{
			"time":["2024-03-05","2024-03-06","2024-03-07"],
			"temperature_2m_max":[21.3,25.0,null],
			"temperature_2m_min":[18.9,15.0,12.0],
			"precipitation_sum":[0.0,3.5,0.2]}}`))
	}))
	defer server.Close()

	c := NewOpenMeteoClient(server.URL, 2*time.Second, 16)
	start := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	days, err := c.DailyForecast(context.Background(), cairo, start)
	if err != nil {
		t.Fatalf("DailyForecast() error = %v", err)
	}
	if len(days) != 3 {
		t.Fatalf("len(days) = %d, want 3", len(days))
	}
	if days[0].TempMax != 21.3 || days[0].TempMin != 18.9 || days[0].Precipitation != 0 {
		t.Errorf("days[0] = %+v", days[0])
	}
	if days[1].Precipitation != 3.5 {
		t.Errorf("days[1].Precipitation = %v, want 3.5", days[1].Precipitation)
	}
	if days[2].TempMax != 0 {
		t.Errorf("days[2].TempMax = %v, want 0 for null", days[2].TempMax)
	}
	if !days[1].Date.Equal(start.AddDate(0, 0, 1)) {
		t.Errorf("days[1].Date = %v, want %v", days[1].Date, start.AddDate(0, 0, 1))
	}
}

func TestOpenMeteoClient_DailyForecast_ShortestArrayWins(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"daily":{
			"time":["2024-03-05","2024-03-06","2024-03-07"],
			"temperature_2m_max":[20,21,22],
			"temperature_2m_min":[10,11],
			"precipitation_sum":[0,0,0]}}`))
	}))
	defer server.Close()

	c := NewOpenMeteoClient(server.URL, 2*time.Second, 16)
	days, err := c.DailyForecast(context.Background(), cairo, time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("DailyForecast() error = %v", err)
	}
	if len(days) != 2 {
		t.Errorf("len(days) = %d, want 2", len(days))
	}
}

func TestOpenMeteoClient_DailyForecast_Errors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		wantErr error
	}{
		{
			name: "bad request",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte(`{"error":true,"reason":"Parameter 'end_date' is out of allowed range"}`))
			},
			wantErr: ErrUpstreamFailure,
		},
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusServiceUnavailable)
			},
			wantErr: ErrUpstreamFailure,
		},
		{
			name: "no daily block",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"latitude":30}`))
			},
			wantErr: ErrNoForecastData,
		},
		{
			name: "empty series",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"daily":{"time":[],"temperature_2m_max":[],"temperature_2m_min":[],"precipitation_sum":[]}}`))
			},
			wantErr: ErrNoForecastData,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			c := NewOpenMeteoClient(server.URL, 2*time.Second, 16)
			_, err := c.DailyForecast(context.Background(), cairo, time.Now())
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("DailyForecast() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
