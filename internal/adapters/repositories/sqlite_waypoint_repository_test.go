package repositories

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"drone-delivery-service/internal/ports"

	_ "modernc.org/sqlite"
)

const seedJSON = `[
	{"name": "origin", "x": 0, "y": 0},
	{"name": "Steve_Biko_Pretoria", "x": 50, "y": 75},
	{"name": "Tygerberg_CapeTown", "x": 10, "y": 90}
]`

func seededRepo(t *testing.T) *SqliteWaypointRepository {
	t.Helper()
	dir := t.TempDir()

	db, err := sql.Open("sqlite", filepath.Join(dir, "waypoints_test.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := InitSchema(db); err != nil {
		t.Fatalf("init schema: %v", err)
	}

	seedPath := filepath.Join(dir, "waypoints.json")
	if err := os.WriteFile(seedPath, []byte(seedJSON), 0o644); err != nil {
		t.Fatalf("write seed file: %v", err)
	}
	if err := SeedFromJSON(db, seedPath); err != nil {
		t.Fatalf("seed from json: %v", err)
	}

	return NewSqliteWaypointRepository(db)
}

func TestSqliteListWaypointsKeepsSeedOrder(t *testing.T) {
	repo := seededRepo(t)

	waypoints, err := repo.ListWaypoints(context.Background())
	if err != nil {
		t.Fatalf("ListWaypoints() = %v", err)
	}
	if len(waypoints) != 3 {
		t.Fatalf("len(waypoints) = %d, want 3", len(waypoints))
	}
	if waypoints[0].Name != "origin" {
		t.Fatalf("waypoints[0] = %q, want origin first", waypoints[0].Name)
	}
	if waypoints[1].Name != "Steve_Biko_Pretoria" || waypoints[1].X != 50 || waypoints[1].Y != 75 {
		t.Fatalf("waypoints[1] = %+v, want Steve_Biko_Pretoria at (50, 75)", waypoints[1])
	}
}

func TestSqliteGetByNameMissing(t *testing.T) {
	repo := seededRepo(t)

	_, err := repo.GetByName(context.Background(), "Nowhere_General")
	if !errors.Is(err, ports.ErrWaypointNotFound) {
		t.Fatalf("GetByName() error = %v, want ErrWaypointNotFound", err)
	}
}

func TestSqliteGetByNamesKeepsRequestOrder(t *testing.T) {
	repo := seededRepo(t)

	waypoints, err := repo.GetByNames(context.Background(), []string{"Tygerberg_CapeTown", "Steve_Biko_Pretoria"})
	if err != nil {
		t.Fatalf("GetByNames() = %v", err)
	}
	if len(waypoints) != 2 {
		t.Fatalf("len(waypoints) = %d, want 2", len(waypoints))
	}
	if waypoints[0].Name != "Tygerberg_CapeTown" || waypoints[1].Name != "Steve_Biko_Pretoria" {
		t.Fatalf("order = [%s %s], want request order", waypoints[0].Name, waypoints[1].Name)
	}

	if _, err := repo.GetByNames(context.Background(), []string{"Tygerberg_CapeTown", "Nowhere_General"}); !errors.Is(err, ports.ErrWaypointNotFound) {
		t.Fatalf("GetByNames() with unknown name = %v, want ErrWaypointNotFound", err)
	}
}

func TestSeedFromJSONRejectsBlankName(t *testing.T) {
	dir := t.TempDir()
	db, err := sql.Open("sqlite", filepath.Join(dir, "bad_seed.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := InitSchema(db); err != nil {
		t.Fatalf("init schema: %v", err)
	}

	seedPath := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(seedPath, []byte(`[{"name": "  ", "x": 1, "y": 2}]`), 0o644); err != nil {
		t.Fatalf("write seed file: %v", err)
	}
	if err := SeedFromJSON(db, seedPath); err == nil {
		t.Fatal("expected error for blank waypoint name")
	}
}
