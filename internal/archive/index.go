package archive

import (
	"database/sql"
	_ "embed"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
)

//go:embed sql/schema.sql
var schemaSQL string

//go:embed sql/insert-snapshot.sql
var insertSnapshotSQL string

//go:embed sql/list-snapshots.sql
var listSnapshotsSQL string

// Record is one row of the snapshot index.
type Record struct {
	ID          string
	StationID   int
	StationName string
	CityName    string
	FilePath    string
	SaveDate    string
}

type Index interface {
	Add(rec Record) (Record, error)
	List() ([]Record, error)
}

type indexImpl struct {
	db *sql.DB
}

// NewIndex applies the schema and returns the snapshot index over db.
func NewIndex(db *sql.DB) (Index, error) {
	if _, err := db.Exec(schemaSQL); err != nil {
		return nil, fmt.Errorf("apply snapshot index schema: %w", err)
	}
	return &indexImpl{db: db}, nil
}

// Add records a saved snapshot. A missing ID gets a fresh uuid; the filled
// record is returned.
func (i *indexImpl) Add(rec Record) (Record, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	_, err := i.db.Exec(insertSnapshotSQL,
		rec.ID, rec.StationID, rec.StationName, rec.CityName, rec.FilePath, rec.SaveDate)
	if err != nil {
		return Record{}, fmt.Errorf("index snapshot %s: %w", rec.FilePath, err)
	}
	return rec, nil
}

// List returns all indexed snapshots, most recent save first.
func (i *indexImpl) List() ([]Record, error) {
	rows, err := i.db.Query(listSnapshotsSQL)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("close snapshot rows", "error", err)
		}
	}()
	var out []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.ID, &rec.StationID, &rec.StationName, &rec.CityName, &rec.FilePath, &rec.SaveDate); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
