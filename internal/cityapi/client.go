// Package cityapi implements the read-only client for the city open-data
// API that feeds trigger evaluation. The core treats the payload shape as
// an external contract: sections absent upstream stay absent in the
// returned Snapshot.
package cityapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"citypulse/internal/metrics"
)

// Client queries the city open-data API.
type Client struct {
	baseURL     string
	apiKey      string
	client      *http.Client
	rateLimiter *RateLimiter
}

// Option configures the Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.client = hc
	}
}

// WithRateLimiter injects a rate limiter. When set, every API call goes
// through Wait() first.
func WithRateLimiter(r *RateLimiter) Option {
	return func(c *Client) {
		c.rateLimiter = r
	}
}

// New creates a city open-data API client.
func New(baseURL, apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// cityDataResponse mirrors the upstream citydata endpoint. Every section
// is optional; absent sections are simply not forwarded.
type cityDataResponse struct {
	Weather      *Weather         `json:"weather"`
	AirQuality   *AirQuality      `json:"air_quality"`
	BikeStations []BikeStation    `json:"bike_stations"`
	Congestion   []CongestionArea `json:"congestion"`
	Emergency    []EmergencyAlert `json:"emergency"`
}

// CityData fetches the live sensor snapshot anchored to the reference
// coordinate. The returned Snapshot contains only the sections the
// upstream had data for.
func (c *Client) CityData(ctx context.Context, lat, lng float64) (Snapshot, error) {
	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(lat, 'f', 6, 64))
	q.Set("lng", strconv.FormatFloat(lng, 'f', 6, 64))

	var resp cityDataResponse
	if err := c.get(ctx, "/v1/citydata", q, &resp); err != nil {
		return nil, fmt.Errorf("fetching city data: %w", err)
	}

	snap := Snapshot{}
	if resp.Weather != nil {
		snap[KeyWeather] = *resp.Weather
	}
	if resp.AirQuality != nil {
		snap[KeyAirQuality] = *resp.AirQuality
	}
	if len(resp.BikeStations) > 0 {
		snap[KeyBikeStations] = resp.BikeStations
	}
	if len(resp.Congestion) > 0 {
		snap[KeyCongestion] = resp.Congestion
	}
	if len(resp.Emergency) > 0 {
		snap[KeyEmergency] = resp.Emergency
	}
	return snap, nil
}

type culturalEventsResponse struct {
	Events []CulturalEvent `json:"events"`
	Total  int             `json:"total"`
}

// CulturalEvents fetches one page of upcoming event listings.
func (c *Client) CulturalEvents(ctx context.Context, page, size int) ([]CulturalEvent, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("size", strconv.Itoa(size))

	var resp culturalEventsResponse
	if err := c.get(ctx, "/v1/events", q, &resp); err != nil {
		return nil, fmt.Errorf("fetching cultural events: %w", err)
	}
	return resp.Events, nil
}

func (c *Client) get(ctx context.Context, path string, q url.Values, out any) error {
	if c.rateLimiter != nil {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return err
		}
		metrics.CityAPIDailyUsage.Set(float64(c.rateLimiter.DailyCount()))
		metrics.CityAPIDailyRemaining.Set(float64(c.rateLimiter.Remaining()))
	}

	u, err := url.Parse(c.baseURL + path)
	if err != nil {
		return fmt.Errorf("building request URL: %w", err)
	}
	if c.apiKey != "" {
		q.Set("key", c.apiKey)
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), http.NoBody)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	metrics.CityAPICallsTotal.Inc()

	resp, err := c.client.Do(req)
	if err != nil {
		metrics.CityAPIErrorsTotal.Inc()
		return fmt.Errorf("calling city API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		metrics.CityAPIErrorsTotal.Inc()
		body, readErr := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if readErr != nil {
			return fmt.Errorf("city API returned %d (body unreadable)", resp.StatusCode)
		}
		return fmt.Errorf("city API returned %d: %s", resp.StatusCode, body)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		metrics.CityAPIErrorsTotal.Inc()
		return fmt.Errorf("decoding city API response: %w", err)
	}
	return nil
}
