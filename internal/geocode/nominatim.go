package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"golang.org/x/time/rate"

	"airmon/internal/geo"
)

// ErrNotFound means the geocoder returned an empty result set for the query.
var ErrNotFound = errors.New("geocode: place not found")

// Client resolves free-text place names against a Nominatim-compatible
// search endpoint. Nominatim's usage policy caps anonymous clients at one
// request per second, so the limiter default should stay at 1.
type Client struct {
	baseURL   string
	userAgent string
	http      *http.Client
	limiter   *rate.Limiter
	logger    *slog.Logger
}

func NewClient(baseURL, userAgent string, httpClient *http.Client, rps float64, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:   baseURL,
		userAgent: userAgent,
		http:      httpClient,
		limiter:   rate.NewLimiter(rate.Limit(rps), 1),
		logger:    logger,
	}
}

type searchResult struct {
	Lat string `json:"lat"`
	Lon string `json:"lon"`
}

// Resolve geocodes a free-text query. Only the first result is used; an
// empty result set is reported as ErrNotFound.
func (c *Client) Resolve(ctx context.Context, query string) (geo.Coordinate, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return geo.Coordinate{}, fmt.Errorf("rate limit wait: %w", err)
	}

	q := url.Values{}
	q.Set("q", query)
	q.Set("format", "json")
	q.Set("limit", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search?"+q.Encode(), nil)
	if err != nil {
		return geo.Coordinate{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return geo.Coordinate{}, fmt.Errorf("geocode %q: %w", query, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.logger.Error("close response body", "error", err)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return geo.Coordinate{}, fmt.Errorf("geocode %q: unexpected status %d: %s", query, resp.StatusCode, body)
	}

	var results []searchResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return geo.Coordinate{}, fmt.Errorf("geocode %q: decode: %w", query, err)
	}
	if len(results) == 0 {
		return geo.Coordinate{}, fmt.Errorf("geocode %q: %w", query, ErrNotFound)
	}

	lat, err := strconv.ParseFloat(results[0].Lat, 64)
	if err != nil {
		return geo.Coordinate{}, fmt.Errorf("geocode %q: parse lat %q: %w", query, results[0].Lat, err)
	}
	lon, err := strconv.ParseFloat(results[0].Lon, 64)
	if err != nil {
		return geo.Coordinate{}, fmt.Errorf("geocode %q: parse lon %q: %w", query, results[0].Lon, err)
	}

	c.logger.Debug("place resolved", "query", query, "lat", lat, "lon", lon)
	return geo.Coordinate{Lat: lat, Lon: lon}, nil
}
