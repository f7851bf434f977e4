package repositories

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"strings"
)

// Initialize the SQLite database schema.
func InitSchema(db *sql.DB) error {
	if db == nil {
		return errors.New("init schema: DB is nil")
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("init schema: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	createWaypointsQuery := `
	CREATE TABLE IF NOT EXISTS waypoints (
		name TEXT PRIMARY KEY,
		x REAL NOT NULL,
		y REAL NOT NULL
	);
	`

	createDeliveryRunsQuery := `
	CREATE TABLE IF NOT EXISTS delivery_runs (
        run_id TEXT PRIMARY KEY,
        summary TEXT NOT NULL,
        total_distance REAL NOT NULL,
        total_stops INTEGER NOT NULL,
        stops_completed INTEGER NOT NULL,
        status TEXT NOT NULL,
        started_at TEXT NOT NULL,
        finished_at TEXT NOT NULL
    );
	`

	createIndexQuery := `
	CREATE INDEX IF NOT EXISTS idx_delivery_runs_finished_at
    ON delivery_runs(finished_at);
	`

	statements := []string{
		createWaypointsQuery,
		createDeliveryRunsQuery,
		createIndexQuery,
	}

	for i, stmt := range statements {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("init schema: exec statement #%d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("init schema: commit tx: %w", err)
	}

	return nil
}

type WaypointSeed struct {
	Name string  `json:"name"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
}

// Read and validate a waypoint seed file.
func LoadSeedFile(jsonPath string) ([]WaypointSeed, error) {
	bytes, err := os.ReadFile(jsonPath)
	if err != nil {
		return nil, fmt.Errorf("load seed: read %q: %w", jsonPath, err)
	}

	var data []WaypointSeed
	if err := json.Unmarshal(bytes, &data); err != nil {
		return nil, fmt.Errorf("load seed: parse json: %w", err)
	}

	rows := make([]WaypointSeed, 0, len(data))
	for i, item := range data {
		name := strings.TrimSpace(item.Name)
		if name == "" {
			return nil, fmt.Errorf("load seed: item at index %d: name cannot be empty", i+1)
		}

		if math.IsNaN(item.X) || math.IsNaN(item.Y) {
			return nil, fmt.Errorf("load seed: waypoint %q: coordinates cannot be NaN", name)
		}
		rows = append(rows, WaypointSeed{Name: name, X: item.X, Y: item.Y})
	}
	return rows, nil
}

// Populate the database with waypoint data from a JSON file.
func SeedFromJSON(db *sql.DB, jsonPath string) error {
	rows, err := LoadSeedFile(jsonPath)
	if err != nil {
		return fmt.Errorf("seed waypoints: %w", err)
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("seed waypoints: begin tx: %w", err)
	}
	defer tx.Rollback()

	query := `
	INSERT OR REPLACE INTO waypoints (
		name,
		x,
		y
	)
	VALUES (?, ?, ?);
	`
	stmt, err := tx.Prepare(query)
	if err != nil {
		return fmt.Errorf("seed waypoints: prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, w := range rows {
		if _, err := stmt.Exec(w.Name, w.X, w.Y); err != nil {
			return fmt.Errorf("seed waypoints: insert waypoint %q: %w", w.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("seed waypoints: commit tx: %w", err)
	}

	return nil
}
