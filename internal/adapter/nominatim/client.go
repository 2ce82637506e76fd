// Package nominatim implements domain.Geocoder against the OpenStreetMap
// Nominatim API, with decorators enforcing the usage policy (one request
// per interval) and per-run result caching.
package nominatim

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/lavorimap/roadworks-etl/internal/domain"
	"github.com/lavorimap/roadworks-etl/internal/observability"
)

// Client implements domain.Geocoder using the Nominatim HTTP API.
type Client struct {
	baseURL     string
	userAgent   string
	countryCode string
	httpClient  *http.Client
	metrics     *observability.Metrics
	logger      *slog.Logger
}

// NewClient creates a Nominatim client. The User-Agent is mandatory under
// the Nominatim usage policy; requests without one are rejected upstream.
func NewClient(baseURL, userAgent string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		baseURL:     baseURL,
		userAgent:   userAgent,
		countryCode: "it",
		httpClient:  &http.Client{Timeout: timeout},
		metrics:     metrics,
		logger:      logger,
	}
}

// searchResult is one entry of a /search response. Nominatim encodes
// coordinates as strings.
type searchResult struct {
	Lat string `json:"lat"`
	Lon string `json:"lon"`
}

// reverseResult is a /reverse response.
type reverseResult struct {
	Error   string `json:"error"`
	Address struct {
		Province     string `json:"province"`
		County       string `json:"county"`
		City         string `json:"city"`
		Town         string `json:"town"`
		Village      string `json:"village"`
		Municipality string `json:"municipality"`
	} `json:"address"`
}

// Forward resolves a free-text place query to coordinates.
// Returns (nil, nil) when Nominatim has no match.
func (c *Client) Forward(ctx context.Context, query string) (*domain.Geo, error) {
	params := url.Values{
		"q":            {query},
		"format":       {"jsonv2"},
		"limit":        {"1"},
		"countrycodes": {c.countryCode},
	}

	start := time.Now()
	body, err := c.get(ctx, c.baseURL+"/search?"+params.Encode())
	c.metrics.GeocodeAPIDuration.WithLabelValues("forward").Observe(time.Since(start).Seconds())
	if err != nil {
		c.metrics.GeocodeRequests.WithLabelValues("forward", "error").Inc()
		return nil, fmt.Errorf("forward geocode %q: %w", query, err)
	}

	var results []searchResult
	if err := json.Unmarshal(body, &results); err != nil {
		c.metrics.GeocodeRequests.WithLabelValues("forward", "error").Inc()
		return nil, fmt.Errorf("forward geocode %q: decode response: %w", query, err)
	}
	if len(results) == 0 {
		c.metrics.GeocodeRequests.WithLabelValues("forward", "empty").Inc()
		return nil, nil
	}

	lat, errLat := strconv.ParseFloat(results[0].Lat, 64)
	lon, errLon := strconv.ParseFloat(results[0].Lon, 64)
	if errLat != nil || errLon != nil {
		c.metrics.GeocodeRequests.WithLabelValues("forward", "error").Inc()
		return nil, fmt.Errorf("forward geocode %q: malformed coordinates %q,%q", query, results[0].Lat, results[0].Lon)
	}

	c.metrics.GeocodeRequests.WithLabelValues("forward", "success").Inc()
	return &domain.Geo{Lat: lat, Lon: lon}, nil
}

// Reverse resolves coordinates to administrative address components.
// Returns (nil, nil) when the point matches nothing (open sea, etc).
func (c *Client) Reverse(ctx context.Context, g domain.Geo) (*domain.Address, error) {
	params := url.Values{
		"lat":    {strconv.FormatFloat(g.Lat, 'f', 6, 64)},
		"lon":    {strconv.FormatFloat(g.Lon, 'f', 6, 64)},
		"format": {"jsonv2"},
	}

	start := time.Now()
	body, err := c.get(ctx, c.baseURL+"/reverse?"+params.Encode())
	c.metrics.GeocodeAPIDuration.WithLabelValues("reverse").Observe(time.Since(start).Seconds())
	if err != nil {
		c.metrics.GeocodeRequests.WithLabelValues("reverse", "error").Inc()
		return nil, fmt.Errorf("reverse geocode %.4f,%.4f: %w", g.Lat, g.Lon, err)
	}

	var result reverseResult
	if err := json.Unmarshal(body, &result); err != nil {
		c.metrics.GeocodeRequests.WithLabelValues("reverse", "error").Inc()
		return nil, fmt.Errorf("reverse geocode %.4f,%.4f: decode response: %w", g.Lat, g.Lon, err)
	}
	// Nominatim reports "Unable to geocode" as a 200 with an error field.
	if result.Error != "" {
		c.metrics.GeocodeRequests.WithLabelValues("reverse", "empty").Inc()
		return nil, nil
	}

	c.metrics.GeocodeRequests.WithLabelValues("reverse", "success").Inc()
	return &domain.Address{
		Province: result.Address.Province,
		County:   result.Address.County,
		City:     firstNonEmpty(result.Address.City, result.Address.Town, result.Address.Village, result.Address.Municipality),
	}, nil
}

func (c *Client) get(ctx context.Context, fullURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return nil, fmt.Errorf("nominatim API error: status %d: %s", resp.StatusCode, snippet)
	}
	return io.ReadAll(resp.Body)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
