package stations

import (
	"context"
	"errors"
	"testing"

	"airmon/internal/geo"
	"airmon/internal/gios"
)

type fakeDirectory struct {
	stations []gios.Station
	err      error
}

func (f *fakeDirectory) FindAllStations(ctx context.Context) ([]gios.Station, error) {
	return f.stations, f.err
}

var testStations = []gios.Station{
	{ID: 1, Name: "Warszawa-Marszalkowska", City: "Warszawa", Lat: 52.23, Lon: 21.01},
	{ID: 2, Name: "Krakow-Bujaka", City: "Krakow", Lat: 50.06, Lon: 19.94},
	{ID: 3, Name: "Warszawa-Targowek", City: "Warszawa", Lat: 52.29, Lon: 21.04},
}

func loadedCatalog(t *testing.T, ss []gios.Station) *Catalog {
	t.Helper()
	c := NewCatalog(&fakeDirectory{stations: ss}, nil)
	if err := c.LoadAll(context.Background()); err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	return c
}

func TestLoadAll_FullReplacement(t *testing.T) {
	dir := &fakeDirectory{stations: testStations}
	c := NewCatalog(dir, nil)

	if err := c.LoadAll(context.Background()); err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	if c.Len() != 3 {
		t.Fatalf("Len = %d, want 3", c.Len())
	}

	dir.stations = testStations[:1]
	if err := c.LoadAll(context.Background()); err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	if c.Len() != 1 {
		t.Errorf("Len after reload = %d, want 1 (replace, not merge)", c.Len())
	}
}

func TestLoadAll_DuplicateIDsKeepFirst(t *testing.T) {
	c := loadedCatalog(t, []gios.Station{
		{ID: 7, Name: "First", City: "A"},
		{ID: 7, Name: "Second", City: "B"},
	})

	if c.Len() != 1 {
		t.Fatalf("Len = %d, want 1", c.Len())
	}
	s, ok := c.Get(7)
	if !ok || s.Name != "First" {
		t.Errorf("Get(7) = %+v, want the first occurrence", s)
	}
}

func TestLoadAll_Error(t *testing.T) {
	c := NewCatalog(&fakeDirectory{err: errors.New("connection refused")}, nil)
	if err := c.LoadAll(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if c.Len() != 0 {
		t.Errorf("Len = %d after failed load, want 0", c.Len())
	}
}

func TestMatchByCity_ExactMatch(t *testing.T) {
	c := loadedCatalog(t, testStations)
	warsaw := geo.Coordinate{Lat: 52.2297, Lon: 21.0122}

	m, err := c.MatchByCity(warsaw, "Warszawa")
	if err != nil {
		t.Fatalf("MatchByCity: %v", err)
	}
	if len(m.Stations) != 2 {
		t.Fatalf("got %d stations, want 2", len(m.Stations))
	}
	for _, s := range m.Stations {
		if s.City != "Warszawa" {
			t.Errorf("matched station in city %q", s.City)
		}
		if !s.Searched {
			t.Errorf("station %d not flagged searched", s.ID)
		}
	}
	if m.Recentered {
		t.Error("exact match must not recenter")
	}
	if m.Center != warsaw {
		t.Errorf("Center = %+v, want query coordinate", m.Center)
	}

	// Flag batch visible through All: ids 1 and 3 set, id 2 clear.
	for _, s := range c.All() {
		want := s.City == "Warszawa"
		if s.Searched != want {
			t.Errorf("station %d Searched = %v, want %v", s.ID, s.Searched, want)
		}
	}
}

func TestMatchByCity_CaseAndWhitespace(t *testing.T) {
	c := loadedCatalog(t, []gios.Station{
		{ID: 5, Name: "NS", City: "Nowy Sacz", Lat: 49.62, Lon: 20.71},
	})

	for _, query := range []string{"nowy sacz", "NOWY SACZ", "  Nowy   Sacz "} {
		m, err := c.MatchByCity(geo.Coordinate{}, query)
		if err != nil {
			t.Fatalf("MatchByCity(%q): %v", query, err)
		}
		if len(m.Stations) != 1 || m.Stations[0].ID != 5 {
			t.Errorf("MatchByCity(%q) = %+v, want station 5", query, m.Stations)
		}
	}
}

func TestMatchByCity_NearestFallback(t *testing.T) {
	c := loadedCatalog(t, testStations)
	nearKrakow := geo.Coordinate{Lat: 50.05, Lon: 19.95}

	m, err := c.MatchByCity(nearKrakow, "Wieliczka")
	if err != nil {
		t.Fatalf("MatchByCity: %v", err)
	}
	if len(m.Stations) != 1 {
		t.Fatalf("got %d stations, want exactly 1", len(m.Stations))
	}
	got := m.Stations[0]
	if got.ID != 2 {
		t.Errorf("nearest station = %d, want 2", got.ID)
	}
	if !got.Searched {
		t.Error("fallback station not flagged searched")
	}
	if !m.Recentered {
		t.Error("fallback must recenter")
	}
	if m.Center != got.Coordinate() {
		t.Errorf("Center = %+v, want station coordinate %+v", m.Center, got.Coordinate())
	}

	// The fallback station's distance is minimal over the whole catalog.
	dGot := geo.Distance(nearKrakow, got.Coordinate())
	for _, s := range c.All() {
		if d := geo.Distance(nearKrakow, s.Coordinate()); d < dGot {
			t.Errorf("station %d is closer (%v < %v)", s.ID, d, dGot)
		}
	}
}

func TestMatchByCity_ClearsPreviousFlags(t *testing.T) {
	c := loadedCatalog(t, testStations)

	if _, err := c.MatchByCity(geo.Coordinate{Lat: 52.23, Lon: 21.01}, "Warszawa"); err != nil {
		t.Fatalf("first match: %v", err)
	}
	if _, err := c.MatchByCity(geo.Coordinate{Lat: 50.06, Lon: 19.94}, "Krakow"); err != nil {
		t.Fatalf("second match: %v", err)
	}

	for _, s := range c.All() {
		want := s.ID == 2
		if s.Searched != want {
			t.Errorf("station %d Searched = %v after new search, want %v", s.ID, s.Searched, want)
		}
	}
}

func TestMatchByCity_EmptyCatalog(t *testing.T) {
	c := NewCatalog(&fakeDirectory{}, nil)
	_, err := c.MatchByCity(geo.Coordinate{}, "Warszawa")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestMatchByCity_WarszawaScenario(t *testing.T) {
	c := loadedCatalog(t, []gios.Station{
		{ID: 1, City: "Warszawa", Lat: 52.23, Lon: 21.01},
		{ID: 2, City: "Krakow", Lat: 50.06, Lon: 19.94},
	})

	m, err := c.MatchByCity(geo.Coordinate{Lat: 52.23, Lon: 21.01}, "Warszawa")
	if err != nil {
		t.Fatalf("MatchByCity: %v", err)
	}
	if len(m.Stations) != 1 || m.Stations[0].ID != 1 || !m.Stations[0].Searched {
		t.Errorf("match = %+v, want station 1 flagged", m.Stations)
	}
	for _, s := range c.All() {
		if s.ID == 2 && s.Searched {
			t.Error("station 2 must stay unflagged")
		}
	}
}
