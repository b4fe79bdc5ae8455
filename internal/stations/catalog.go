package stations

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"airmon/internal/geo"
	"airmon/internal/gios"
)

// ErrNotFound means matching was attempted against an empty (or not yet
// loaded) catalog.
var ErrNotFound = errors.New("stations: no stations loaded")

// Station is a monitoring site from the provider directory. Searched marks
// membership in the most recent search result set.
type Station struct {
	ID       int     `json:"id"`
	Name     string  `json:"name"`
	City     string  `json:"city"`
	Address  string  `json:"address"`
	Lat      float64 `json:"lat"`
	Lon      float64 `json:"lon"`
	Searched bool    `json:"searched"`
}

// Coordinate returns the station position.
func (s Station) Coordinate() geo.Coordinate {
	return geo.Coordinate{Lat: s.Lat, Lon: s.Lon}
}

// Match is the outcome of a city search. When no station matched the city
// exactly, Stations holds the single nearest station and Recentered is set
// with its coordinate as the new map reference point.
type Match struct {
	Stations   []Station
	Center     geo.Coordinate
	Recentered bool
}

// Directory lists all known stations from the provider.
type Directory interface {
	FindAllStations(ctx context.Context) ([]gios.Station, error)
}

// Catalog holds the full station set and answers exact-city and
// nearest-neighbor queries against it.
type Catalog struct {
	directory Directory
	logger    *slog.Logger

	mu       sync.RWMutex
	stations []Station
}

func NewCatalog(directory Directory, logger *slog.Logger) *Catalog {
	if logger == nil {
		logger = slog.Default()
	}
	return &Catalog{directory: directory, logger: logger}
}

// LoadAll replaces the station set with the provider directory. It is a full
// replacement, never incremental; duplicate IDs keep the first occurrence.
func (c *Catalog) LoadAll(ctx context.Context) error {
	records, err := c.directory.FindAllStations(ctx)
	if err != nil {
		return fmt.Errorf("load stations: %w", err)
	}

	seen := make(map[int]bool, len(records))
	loaded := make([]Station, 0, len(records))
	for _, rec := range records {
		if seen[rec.ID] {
			continue
		}
		seen[rec.ID] = true
		loaded = append(loaded, Station{
			ID:      rec.ID,
			Name:    rec.Name,
			City:    rec.City,
			Address: rec.Address,
			Lat:     rec.Lat,
			Lon:     rec.Lon,
		})
	}

	c.mu.Lock()
	c.stations = loaded
	c.mu.Unlock()

	c.logger.Info("station catalog loaded", "stations", len(loaded))
	return nil
}

// All returns a copy of the catalog, flags included.
func (c *Catalog) All() []Station {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]Station, len(c.stations))
	copy(out, c.stations)
	return out
}

// Get returns the station with the given ID.
func (c *Catalog) Get(id int) (Station, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, s := range c.stations {
		if s.ID == id {
			return s, true
		}
	}
	return Station{}, false
}

// Len reports the number of cataloged stations.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.stations)
}

// MatchByCity finds stations for a searched city. Stations whose normalized
// city name equals the normalized query form the result set; with no exact
// match the single nearest station to coord is returned and the match center
// moves to that station. The Searched flags of the whole catalog are updated
// as one batch: previous flags are cleared, result-set flags are set.
func (c *Catalog) MatchByCity(coord geo.Coordinate, cityName string) (Match, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.stations) == 0 {
		return Match{}, ErrNotFound
	}

	for i := range c.stations {
		c.stations[i].Searched = false
	}

	want := normalizeCity(cityName)
	var matched []Station
	for i := range c.stations {
		if normalizeCity(c.stations[i].City) == want {
			c.stations[i].Searched = true
			matched = append(matched, c.stations[i])
		}
	}

	if len(matched) > 0 {
		return Match{Stations: matched, Center: coord}, nil
	}

	// No station in the searched city; fall back to the nearest one.
	// Ties keep the first station encountered in catalog order.
	nearest := 0
	minDist := geo.Distance(coord, c.stations[0].Coordinate())
	for i := 1; i < len(c.stations); i++ {
		if d := geo.Distance(coord, c.stations[i].Coordinate()); d < minDist {
			minDist = d
			nearest = i
		}
	}

	c.stations[nearest].Searched = true
	c.logger.Info("no station in searched city, using nearest",
		"city", cityName,
		"station", c.stations[nearest].Name,
		"station_city", c.stations[nearest].City,
		"distance_m", minDist,
	)

	return Match{
		Stations:   []Station{c.stations[nearest]},
		Center:     c.stations[nearest].Coordinate(),
		Recentered: true,
	}, nil
}

// normalizeCity lowercases and collapses all whitespace runs to single
// spaces, so "  Nowy   Sacz " and "nowy sacz" compare equal.
func normalizeCity(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
