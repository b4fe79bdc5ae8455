// Package app wires the provider clients, catalog, registry, store and
// archive into one explicitly constructed object and drives the
// search-fetch-chart flow. Nothing here is a singleton; every component is
// passed in at construction time.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"airmon/internal/archive"
	"airmon/internal/chart"
	"airmon/internal/config"
	"airmon/internal/db"
	"airmon/internal/geocode"
	"airmon/internal/gios"
	"airmon/internal/sensors"
	"airmon/internal/series"
	"airmon/internal/stations"
	"airmon/internal/stats"
)

// Options selects what one invocation does.
type Options struct {
	City      string   // city to search for
	Params    []string // parameter name filter, empty means all
	OutPath   string   // chart PNG destination
	Save      bool     // archive a snapshot after fetching
	LoadPath  string   // replay an archived snapshot instead of fetching
	ListSaved bool     // print the snapshot index and exit
}

// App holds every long-lived component of one process.
type App struct {
	cfg      config.Config
	logger   *slog.Logger
	out      io.Writer
	geocoder *geocode.Client
	provider *gios.Client
	catalog  *stations.Catalog
	registry *sensors.Registry
	store    *series.Store
	dbConn   *sql.DB
	index    archive.Index
}

// New builds the full component graph. The sqlite snapshot index is opened
// lazily by the operations that need it, so plain fetch runs never touch
// the database file.
func New(cfg config.Config, logger *slog.Logger) *App {
	if logger == nil {
		logger = slog.Default()
	}
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}
	provider := gios.NewClient(cfg.GiosBaseURL, cfg.UserAgent, httpClient, cfg.GiosRPS, logger)

	return &App{
		cfg:      cfg,
		logger:   logger,
		out:      os.Stdout,
		geocoder: geocode.NewClient(cfg.NominatimBaseURL, cfg.UserAgent, httpClient, cfg.NominatimRPS, logger),
		provider: provider,
		catalog:  stations.NewCatalog(provider, logger),
		registry: sensors.NewRegistry(provider, logger),
		store:    series.NewStore(provider, logger),
	}
}

// SetOutput redirects the human-readable report (stats table, saved paths).
func (a *App) SetOutput(w io.Writer) { a.out = w }

// Close releases the store's worker and the index database.
func (a *App) Close() {
	a.store.Close()
	if err := db.Close(a.dbConn); err != nil {
		a.logger.Error("db close", "error", err)
	}
}

func (a *App) openIndex() (archive.Index, error) {
	if a.index != nil {
		return a.index, nil
	}
	var (
		conn *sql.DB
		err  error
	)
	if a.cfg.LogLevel == slog.LevelDebug {
		conn, err = db.OpenTraced(a.cfg, a.logger)
	} else {
		conn, err = db.Open(a.cfg)
	}
	if err != nil {
		return nil, err
	}
	idx, err := archive.NewIndex(conn)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	a.dbConn = conn
	a.index = idx
	return idx, nil
}

// Run executes one invocation end to end.
func (a *App) Run(ctx context.Context, opts Options) error {
	a.logger.Info("config loaded",
		"appEnv", a.cfg.AppEnv,
		"logLevel", a.cfg.LogLevel.String(),
		"giosBaseURL", a.cfg.GiosBaseURL,
		"nominatimBaseURL", a.cfg.NominatimBaseURL,
		"archiveDir", a.cfg.ArchiveDir,
	)

	if opts.ListSaved {
		return a.listSaved()
	}
	if opts.LoadPath != "" {
		return a.replaySnapshot(opts)
	}
	return a.fetchAndReport(ctx, opts)
}

// fetchAndReport is the live flow: resolve the city, pick a station, fetch
// every selected sensor concurrently and emit chart plus statistics.
func (a *App) fetchAndReport(ctx context.Context, opts Options) error {
	if strings.TrimSpace(opts.City) == "" {
		return errors.New("no city given")
	}

	if err := a.catalog.LoadAll(ctx); err != nil {
		return fmt.Errorf("load station catalog: %w", err)
	}
	a.logger.Info("station catalog loaded", "stations", a.catalog.Len())

	center, err := a.geocoder.Resolve(ctx, opts.City)
	if err != nil {
		return fmt.Errorf("resolve city %q: %w", opts.City, err)
	}

	match, err := a.catalog.MatchByCity(center, opts.City)
	if err != nil {
		return fmt.Errorf("match stations for %q: %w", opts.City, err)
	}
	if match.Recentered {
		a.logger.Info("no station in city, using nearest",
			"station", match.Stations[0].Name,
			"lat", match.Center.Lat, "lon", match.Center.Lon)
	} else {
		a.logger.Info("stations matched", "count", len(match.Stations))
	}

	station := match.Stations[0]
	sensorList, err := a.registry.LoadForStation(ctx, station.ID)
	if err != nil {
		return fmt.Errorf("load sensors for station %d: %w", station.ID, err)
	}

	selected := selectSensors(sensorList, opts.Params)
	if len(selected) == 0 {
		return fmt.Errorf("station %q has no sensors matching %v", station.Name, opts.Params)
	}

	// All selected sensors fetch concurrently; completions land on the
	// store's owner goroutine. A failed fetch clears that one sensor and
	// is reported, the rest of the run continues.
	futures := make(map[int]<-chan error, len(selected))
	for _, sen := range selected {
		futures[sen.ID] = a.store.Fetch(ctx, sen.ID)
	}
	for _, sen := range selected {
		if err := <-futures[sen.ID]; err != nil {
			a.logger.Warn("sensor fetch failed",
				"sensor", sen.ID, "param", sen.ParamName, "error", err)
		}
	}

	return a.report(station, selected, opts)
}

// replaySnapshot loads an archived file back into the store and reports
// from it, no network involved.
func (a *App) replaySnapshot(opts Options) error {
	snap, err := archive.Load(opts.LoadPath)
	if err != nil {
		return err
	}
	a.store.ReplaceAll(snap.SeriesBySensor())
	a.logger.Info("snapshot loaded",
		"path", opts.LoadPath, "station", snap.StationName, "savedAt", snap.SaveDate)

	station := stations.Station{
		ID:      snap.StationID,
		Name:    snap.StationName,
		City:    snap.CityName,
		Address: snap.Address,
		Lat:     snap.Latitude,
		Lon:     snap.Longitude,
	}
	sensorList := make([]sensors.Sensor, 0, len(snap.Sensors))
	for _, ss := range snap.Sensors {
		sensorList = append(sensorList, sensors.Sensor{ID: ss.SensorID, ParamName: ss.ParamName})
	}
	selected := selectSensors(sensorList, opts.Params)
	if len(selected) == 0 {
		return fmt.Errorf("snapshot has no sensors matching %v", opts.Params)
	}

	// Saving a replayed snapshot would just duplicate the file.
	opts.Save = false
	return a.report(station, selected, opts)
}

// report renders the chart PNG and prints the statistics table, then
// optionally archives a snapshot.
func (a *App) report(station stations.Station, selected []sensors.Sensor, opts Options) error {
	data := a.store.Snapshot()

	selection := make([]int, 0, len(selected))
	labels := make(map[int]string, len(selected))
	for _, sen := range selected {
		selection = append(selection, sen.ID)
		labels[sen.ID] = sen.ParamName
	}

	p := chart.Project(selection, data)
	if err := a.writeChart(p, labels, opts.OutPath); err != nil {
		return err
	}

	fmt.Fprintf(a.out, "%s (%s)\n", station.Name, station.City)
	tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "PARAM\tLATEST\tMEAN\tMIN\tMAX")
	for _, sen := range selected {
		sum := stats.Summarize(data[sen.ID])
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", sen.ParamName, sum.Latest, sum.Mean, sum.Min, sum.Max)
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("write stats table: %w", err)
	}

	if opts.Save {
		return a.saveSnapshot(station, selected, data)
	}
	return nil
}

func (a *App) writeChart(p chart.Projection, labels map[int]string, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create chart file %s: %w", path, err)
	}
	if err := chart.Render(f, p, labels, a.cfg.ChartWidth, a.cfg.ChartHeight); err != nil {
		_ = f.Close()
		return fmt.Errorf("render chart to %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close chart file %s: %w", path, err)
	}
	a.logger.Info("chart written", "path", path)
	return nil
}

func (a *App) saveSnapshot(station stations.Station, selected []sensors.Sensor, data map[int]series.Series) error {
	now := time.Now()
	snap := archive.NewSnapshot(station, selected, data, now)
	path, err := archive.Save(a.cfg.ArchiveDir, snap, now)
	if err != nil {
		return err
	}

	idx, err := a.openIndex()
	if err != nil {
		return fmt.Errorf("open snapshot index: %w", err)
	}
	rec, err := idx.Add(archive.Record{
		StationID:   station.ID,
		StationName: station.Name,
		CityName:    station.City,
		FilePath:    path,
		SaveDate:    snap.SaveDate,
	})
	if err != nil {
		return err
	}
	a.logger.Info("snapshot saved", "path", path, "id", rec.ID)
	fmt.Fprintf(a.out, "saved %s\n", path)
	return nil
}

func (a *App) listSaved() error {
	idx, err := a.openIndex()
	if err != nil {
		return fmt.Errorf("open snapshot index: %w", err)
	}
	recs, err := idx.List()
	if err != nil {
		return err
	}
	if len(recs) == 0 {
		fmt.Fprintln(a.out, "no saved snapshots")
		return nil
	}
	tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SAVED\tSTATION\tCITY\tFILE")
	for _, rec := range recs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", rec.SaveDate, rec.StationName, rec.CityName, rec.FilePath)
	}
	return tw.Flush()
}

// selectSensors filters the station's sensors by the requested parameter
// names (case-insensitive). An empty filter keeps everything; order follows
// the station's sensor list either way.
func selectSensors(all []sensors.Sensor, params []string) []sensors.Sensor {
	if len(params) == 0 {
		return all
	}
	want := make(map[string]bool, len(params))
	for _, p := range params {
		want[strings.ToLower(strings.TrimSpace(p))] = true
	}
	var out []sensors.Sensor
	for _, sen := range all {
		if want[strings.ToLower(sen.ParamName)] {
			out = append(out, sen)
		}
	}
	return out
}
