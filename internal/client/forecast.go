package client

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/kjstillabower/weather-chat-service/internal/models"
	"github.com/kjstillabower/weather-chat-service/internal/observability"
)

// ForecastClient returns a chronologically ordered daily forecast starting at start.
type ForecastClient interface {
	DailyForecast(ctx context.Context, loc models.Location, start time.Time) ([]models.DailyForecast, error)
}

const dateLayout = "2006-01-02"

const dailyVariables = "temperature_2m_max,temperature_2m_min,precipitation_sum"

// ForecastRequest is the typed request for the Open-Meteo forecast endpoint.
type ForecastRequest struct {
	Latitude  float64
	Longitude float64
	Timezone  string
	StartDate time.Time
	EndDate   time.Time
}

// URL renders the request against baseURL, e.g. https://api.open-meteo.com/v1/forecast.
func (r ForecastRequest) URL(baseURL string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid API URL: %w", err)
	}
	params := url.Values{}
	params.Set("latitude", strconv.FormatFloat(r.Latitude, 'f', -1, 64))
	params.Set("longitude", strconv.FormatFloat(r.Longitude, 'f', -1, 64))
	params.Set("daily", dailyVariables)
	params.Set("start_date", r.StartDate.Format(dateLayout))
	params.Set("end_date", r.EndDate.Format(dateLayout))
	params.Set("timezone", r.Timezone)
	u.RawQuery = params.Encode()
	return u.String(), nil
}

// OpenMeteoClient implements ForecastClient against api.open-meteo.com.
type OpenMeteoClient struct {
	apiURL     string
	windowDays int
	getter     jsonGetter
}

// NewOpenMeteoClient returns a client requesting windowDays days past the start date.
func NewOpenMeteoClient(apiURL string, timeout time.Duration, windowDays int) *OpenMeteoClient {
	return &OpenMeteoClient{
		apiURL:     apiURL,
		windowDays: windowDays,
		getter:     newJSONGetter(observability.CollaboratorForecast, timeout),
	}
}

type openMeteoResponse struct {
	Daily *struct {
		Time             []string   `json:"time"`
		TemperatureMax   []*float64 `json:"temperature_2m_max"`
		TemperatureMin   []*float64 `json:"temperature_2m_min"`
		PrecipitationSum []*float64 `json:"precipitation_sum"`
	} `json:"daily"`
}

// DailyForecast fetches the forecast window for loc. The parallel daily arrays
// are zipped by index; the shortest array bounds the result and null values
// read as zero. An empty series yields ErrNoForecastData.
func (c *OpenMeteoClient) DailyForecast(ctx context.Context, loc models.Location, start time.Time) ([]models.DailyForecast, error) {
	reqURL, err := ForecastRequest{
		Latitude:  loc.Latitude,
		Longitude: loc.Longitude,
		Timezone:  loc.Timezone,
		StartDate: start,
		EndDate:   start.AddDate(0, 0, c.windowDays),
	}.URL(c.apiURL)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	var resp openMeteoResponse
	err = c.getter.get(ctx, "forecast.daily", reqURL, &resp,
		attribute.Float64("geo.latitude", loc.Latitude),
		attribute.Float64("geo.longitude", loc.Longitude),
		attribute.String("geo.timezone", loc.Timezone),
	)
	if err != nil {
		return nil, err
	}
	if resp.Daily == nil {
		return nil, fmt.Errorf("%w: response has no daily block", ErrNoForecastData)
	}

	d := resp.Daily
	n := min(len(d.Time), len(d.TemperatureMax), len(d.TemperatureMin), len(d.PrecipitationSum))
	if n == 0 {
		return nil, ErrNoForecastData
	}

	days := make([]models.DailyForecast, n)
	for i := 0; i < n; i++ {
		date, err := time.ParseInLocation(dateLayout, d.Time[i], start.Location())
		if err != nil {
			date = start.AddDate(0, 0, i)
		}
		days[i] = models.DailyForecast{
			Date:          date,
			TempMax:       valueOrZero(d.TemperatureMax[i]),
			TempMin:       valueOrZero(d.TemperatureMin[i]),
			Precipitation: valueOrZero(d.PrecipitationSum[i]),
		}
	}
	observability.ForecastDaysReturned.Observe(float64(n))
	return days, nil
}

func valueOrZero(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
