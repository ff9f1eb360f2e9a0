package client

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/kjstillabower/weather-chat-service/internal/models"
	"github.com/kjstillabower/weather-chat-service/internal/observability"
)

// UnknownCity is used when the provider resolves coordinates but no city name.
const UnknownCity = "Unknown"

// GeoClient resolves an IP address to an approximate location.
type GeoClient interface {
	Locate(ctx context.Context, ip string) (models.Location, error)
}

// GeoRequest is the typed request for the ip-api.com JSON endpoint.
type GeoRequest struct {
	IP     string
	Fields []string
}

// URL renders the request against baseURL, e.g. http://ip-api.com/json.
func (r GeoRequest) URL(baseURL string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid API URL: %w", err)
	}
	u = u.JoinPath(r.IP)
	params := url.Values{}
	params.Set("fields", strings.Join(r.Fields, ","))
	u.RawQuery = params.Encode()
	return u.String(), nil
}

var geoFields = []string{"status", "message", "city", "lat", "lon", "timezone"}

// IPAPIClient implements GeoClient against ip-api.com.
type IPAPIClient struct {
	apiURL          string
	defaultTimezone string
	getter          jsonGetter
}

// NewIPAPIClient returns a client for apiURL. defaultTimezone fills in a
// missing timezone in the provider's answer.
func NewIPAPIClient(apiURL string, timeout time.Duration, defaultTimezone string) *IPAPIClient {
	return &IPAPIClient{
		apiURL:          apiURL,
		defaultTimezone: defaultTimezone,
		getter:          newJSONGetter(observability.CollaboratorGeolocation, timeout),
	}
}

type ipAPIResponse struct {
	Status   string   `json:"status"`
	Message  string   `json:"message"`
	City     string   `json:"city"`
	Lat      *float64 `json:"lat"`
	Lon      *float64 `json:"lon"`
	Timezone string   `json:"timezone"`
}

// Locate returns the location of ip. A provider "fail" status or missing
// coordinates yield ErrLocationNotFound.
func (c *IPAPIClient) Locate(ctx context.Context, ip string) (models.Location, error) {
	// ip becomes a path segment, so anything that is not an address stays local.
	if net.ParseIP(ip) == nil {
		return models.Location{}, fmt.Errorf("%w: invalid IP %q", ErrLocationNotFound, ip)
	}

	reqURL, err := GeoRequest{IP: ip, Fields: geoFields}.URL(c.apiURL)
	if err != nil {
		return models.Location{}, fmt.Errorf("build request: %w", err)
	}

	var resp ipAPIResponse
	if err := c.getter.get(ctx, "geolocation.locate", reqURL, &resp, attribute.String("client.ip", ip)); err != nil {
		return models.Location{}, err
	}

	if resp.Status != "" && resp.Status != "success" {
		msg := resp.Message
		if msg == "" {
			msg = resp.Status
		}
		return models.Location{}, fmt.Errorf("%w: %s", ErrLocationNotFound, msg)
	}
	if resp.Lat == nil || resp.Lon == nil {
		return models.Location{}, fmt.Errorf("%w: missing coordinates", ErrLocationNotFound)
	}

	loc := models.Location{
		City:      strings.TrimSpace(resp.City),
		Latitude:  *resp.Lat,
		Longitude: *resp.Lon,
		Timezone:  strings.TrimSpace(resp.Timezone),
	}
	if loc.City == "" {
		loc.City = UnknownCity
	}
	if loc.Timezone == "" {
		loc.Timezone = c.defaultTimezone
	}
	return loc, nil
}
