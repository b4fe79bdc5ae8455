// Package archive persists explicit station snapshots as JSON files and
// keeps a small sqlite index of what was saved where.
package archive

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"airmon/internal/sensors"
	"airmon/internal/series"
	"airmon/internal/stations"
)

// Measurement is one archived sample. A null value stays null.
type Measurement struct {
	Date  string   `json:"date"`
	Value *float64 `json:"value"`
}

// SensorSeries is one sensor's archived series, newest first.
type SensorSeries struct {
	SensorID     int           `json:"sensorId"`
	ParamName    string        `json:"paramName"`
	Measurements []Measurement `json:"measurements"`
}

// Snapshot is the file schema for one saved station.
type Snapshot struct {
	StationID   int            `json:"stationId"`
	StationName string         `json:"stationName"`
	CityName    string         `json:"cityName"`
	Address     string         `json:"address"`
	Latitude    float64        `json:"latitude"`
	Longitude   float64        `json:"longitude"`
	SaveDate    string         `json:"saveDate"`
	Sensors     []SensorSeries `json:"sensors"`
}

// NewSnapshot assembles a snapshot of the given station from the current
// sensor list and stored series. Sensors with no stored series are included
// with empty measurements so the saved file records the full sensor set.
func NewSnapshot(station stations.Station, sensorList []sensors.Sensor, data map[int]series.Series, now time.Time) Snapshot {
	snap := Snapshot{
		StationID:   station.ID,
		StationName: station.Name,
		CityName:    station.City,
		Address:     station.Address,
		Latitude:    station.Lat,
		Longitude:   station.Lon,
		SaveDate:    now.Format(time.RFC3339),
	}
	for _, sen := range sensorList {
		ss := SensorSeries{SensorID: sen.ID, ParamName: sen.ParamName}
		for _, sample := range data[sen.ID] {
			ss.Measurements = append(ss.Measurements, Measurement{
				Date:  sample.Date,
				Value: sample.Value,
			})
		}
		snap.Sensors = append(snap.Sensors, ss)
	}
	return snap
}

// Filename returns the snapshot's file name, derived from the station id
// and the save wall-clock time.
func Filename(stationID int, now time.Time) string {
	return fmt.Sprintf("station_%d_%s.json", stationID, now.Format("20060102_150405"))
}

// Save writes the snapshot under dir and returns the full path written.
// A failure reports the attempted path and leaves nothing else changed.
func Save(dir string, snap Snapshot, now time.Time) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create archive dir %s: %w", dir, err)
	}
	path := filepath.Join(dir, Filename(snap.StationID, now))
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode snapshot for %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write snapshot %s: %w", path, err)
	}
	return path, nil
}

// Load reads a snapshot file written by Save.
func Load(path string) (Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Snapshot{}, fmt.Errorf("read snapshot %s: %w", path, err)
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("decode snapshot %s: %w", path, err)
	}
	return snap, nil
}

// SeriesBySensor converts the archived measurements back into store form,
// keyed by sensor id, for wholesale replacement of the live series.
func (s Snapshot) SeriesBySensor() map[int]series.Series {
	out := make(map[int]series.Series, len(s.Sensors))
	for _, ss := range s.Sensors {
		sr := make(series.Series, 0, len(ss.Measurements))
		for _, m := range ss.Measurements {
			sr = append(sr, series.Sample{Date: m.Date, Value: m.Value})
		}
		out[ss.SensorID] = sr
	}
	return out
}
