package sensors

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"airmon/internal/gios"
)

// Sensor is one measurable parameter at the currently selected station.
type Sensor struct {
	ID        int    `json:"sensorId"`
	ParamName string `json:"paramName"`
}

// Lister fetches the sensors available at a station.
type Lister interface {
	StationSensors(ctx context.Context, stationID int) ([]gios.Sensor, error)
}

// Registry holds the sensor list for the currently selected station. The
// list is replaced wholesale on every station change, never merged.
type Registry struct {
	lister Lister
	logger *slog.Logger

	mu        sync.RWMutex
	stationID int
	sensors   []Sensor
}

func NewRegistry(lister Lister, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{lister: lister, logger: logger}
}

// LoadForStation replaces the registry content with the sensors of the
// given station. On failure the prior list is left untouched.
func (r *Registry) LoadForStation(ctx context.Context, stationID int) ([]Sensor, error) {
	records, err := r.lister.StationSensors(ctx, stationID)
	if err != nil {
		return nil, fmt.Errorf("load sensors: %w", err)
	}

	loaded := make([]Sensor, 0, len(records))
	for _, rec := range records {
		loaded = append(loaded, Sensor{ID: rec.ID, ParamName: rec.ParamName})
	}

	r.mu.Lock()
	r.stationID = stationID
	r.sensors = loaded
	r.mu.Unlock()

	r.logger.Info("sensors loaded", "station_id", stationID, "sensors", len(loaded))

	out := make([]Sensor, len(loaded))
	copy(out, loaded)
	return out, nil
}

// All returns a copy of the current sensor list.
func (r *Registry) All() []Sensor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Sensor, len(r.sensors))
	copy(out, r.sensors)
	return out
}

// StationID reports which station the registry currently describes.
func (r *Registry) StationID() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.stationID
}

// Get returns the sensor with the given ID from the current station.
func (r *Registry) Get(id int) (Sensor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, s := range r.sensors {
		if s.ID == id {
			return s, true
		}
	}
	return Sensor{}, false
}
