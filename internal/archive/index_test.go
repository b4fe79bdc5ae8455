package archive

import (
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

func setupIndex(t *testing.T) Index {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("close db: %v", err)
		}
	})
	idx, err := NewIndex(db)
	if err != nil {
		t.Fatalf("NewIndex: %v", err)
	}
	return idx
}

func TestIndex_AddAssignsID(t *testing.T) {
	idx := setupIndex(t)

	rec, err := idx.Add(Record{
		StationID:   530,
		StationName: "Warszawa-Targowek",
		CityName:    "Warszawa",
		FilePath:    "/archive/station_530_20250115_130207.json",
		SaveDate:    "2025-01-15T13:02:07Z",
	})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if rec.ID == "" {
		t.Error("Add should assign an id")
	}
}

func TestIndex_ListNewestFirst(t *testing.T) {
	idx := setupIndex(t)

	older := Record{StationID: 530, StationName: "A", CityName: "Warszawa",
		FilePath: "/archive/a.json", SaveDate: "2025-01-14T10:00:00Z"}
	newer := Record{StationID: 117, StationName: "B", CityName: "Krakow",
		FilePath: "/archive/b.json", SaveDate: "2025-01-15T10:00:00Z"}

	if _, err := idx.Add(older); err != nil {
		t.Fatalf("Add older: %v", err)
	}
	if _, err := idx.Add(newer); err != nil {
		t.Fatalf("Add newer: %v", err)
	}

	recs, err := idx.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("got %d records, want 2", len(recs))
	}
	if recs[0].StationID != 117 || recs[1].StationID != 530 {
		t.Errorf("order = %d, %d; want newest save first", recs[0].StationID, recs[1].StationID)
	}
	if recs[0].FilePath != "/archive/b.json" {
		t.Errorf("FilePath = %q", recs[0].FilePath)
	}
}

func TestIndex_DuplicateIDRejected(t *testing.T) {
	idx := setupIndex(t)

	rec := Record{ID: "fixed", StationID: 1, StationName: "A", CityName: "X",
		FilePath: "/archive/a.json", SaveDate: "2025-01-15T10:00:00Z"}
	if _, err := idx.Add(rec); err != nil {
		t.Fatalf("first Add: %v", err)
	}
	if _, err := idx.Add(rec); err == nil {
		t.Fatal("second Add with same id should fail")
	}
}

func TestIndex_EmptyList(t *testing.T) {
	idx := setupIndex(t)
	recs, err := idx.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(recs) != 0 {
		t.Errorf("got %d records, want 0", len(recs))
	}
}
