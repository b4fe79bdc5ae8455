package gios

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"golang.org/x/time/rate"
)

// Client talks to the GIOS air-quality REST API. All requests share one
// http.Client and are throttled by a single limiter so concurrent sensor
// fetches cannot hammer the provider.
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

// FindAllStations fetches the full station directory.
func (c *Client) FindAllStations(ctx context.Context) ([]Station, error) {
	var records []stationRecord
	if err := c.getJSON(ctx, c.baseURL+"/station/findAll", &records); err != nil {
		return nil, fmt.Errorf("find all stations: %w", err)
	}

	out := make([]Station, 0, len(records))
	for _, rec := range records {
		lat, err := strconv.ParseFloat(rec.GegrLat, 64)
		if err != nil {
			return nil, fmt.Errorf("station %d: parse gegrLat %q: %w", rec.ID, rec.GegrLat, err)
		}
		lon, err := strconv.ParseFloat(rec.GegrLon, 64)
		if err != nil {
			return nil, fmt.Errorf("station %d: parse gegrLon %q: %w", rec.ID, rec.GegrLon, err)
		}

		s := Station{
			ID:   rec.ID,
			Name: rec.StationName,
			Lat:  lat,
			Lon:  lon,
		}
		if rec.City != nil {
			s.City = rec.City.Name
		}
		if rec.AddressStreet != nil {
			s.Address = *rec.AddressStreet
		}
		out = append(out, s)
	}
	return out, nil
}

// StationSensors fetches the sensors available at one station.
func (c *Client) StationSensors(ctx context.Context, stationID int) ([]Sensor, error) {
	url := fmt.Sprintf("%s/station/sensors/%d", c.baseURL, stationID)

	var records []sensorRecord
	if err := c.getJSON(ctx, url, &records); err != nil {
		return nil, fmt.Errorf("sensors for station %d: %w", stationID, err)
	}

	out := make([]Sensor, 0, len(records))
	for _, rec := range records {
		out = append(out, Sensor{ID: rec.ID, ParamName: rec.Param.ParamName})
	}
	return out, nil
}

// SensorData fetches the reading series for one sensor, newest first.
func (c *Client) SensorData(ctx context.Context, sensorID int) (SensorData, error) {
	url := fmt.Sprintf("%s/data/getData/%d", c.baseURL, sensorID)

	var data SensorData
	if err := c.getJSON(ctx, url, &data); err != nil {
		return SensorData{}, fmt.Errorf("data for sensor %d: %w", sensorID, err)
	}
	c.logger.Debug("sensor data fetched", "sensor_id", sensorID, "points", len(data.Values))
	return data, nil
}

func (c *Client) getJSON(ctx context.Context, url string, v any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("get %s: %w", url, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.logger.Error("close response body", "url", url, "error", err)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("get %s: unexpected status %d: %s", url, resp.StatusCode, body)
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode %s: %w", url, err)
	}
	return nil
}
