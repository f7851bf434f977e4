package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"drone-delivery-service/internal/domain"
	"drone-delivery-service/internal/ports"
)

// SQLite-backed implementation of the WaypointRepository port.
type SqliteWaypointRepository struct{ DB *sql.DB }

func NewSqliteWaypointRepository(db *sql.DB) *SqliteWaypointRepository {
	return &SqliteWaypointRepository{DB: db}
}

// Return all registered waypoints in seed order, origin first.
func (s *SqliteWaypointRepository) ListWaypoints(ctx context.Context) ([]domain.Waypoint, error) {
	if s.DB == nil {
		return nil, errors.New("sqlite waypoint repository: DB is nil")
	}

	query := `
	SELECT
		name,
		x,
		y
	FROM waypoints
	ORDER BY rowid;
	`
	rows, err := s.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list waypoints: query waypoints table: %w", err)
	}
	defer rows.Close()

	waypoints := make([]domain.Waypoint, 0, 32)
	for rows.Next() {
		var w domain.Waypoint
		err := rows.Scan(&w.Name, &w.X, &w.Y)
		if err != nil {
			return nil, fmt.Errorf("list waypoints: scan row: %w", err)
		}
		waypoints = append(waypoints, w)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list waypoints: row iteration: %w", err)
	}

	return waypoints, nil
}

// Look up a single waypoint by its exact name.
func (s *SqliteWaypointRepository) GetByName(ctx context.Context, name string) (domain.Waypoint, error) {
	if s.DB == nil {
		return domain.Waypoint{}, errors.New("sqlite waypoint repository: DB is nil")
	}

	query := `
	SELECT
		name,
		x,
		y
	FROM waypoints
	WHERE name = ?;
	`
	var w domain.Waypoint
	err := s.DB.QueryRowContext(ctx, query, name).Scan(&w.Name, &w.X, &w.Y)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Waypoint{}, fmt.Errorf("get waypoint %q: %w", name, ports.ErrWaypointNotFound)
	}
	if err != nil {
		return domain.Waypoint{}, fmt.Errorf("get waypoint %q: %w", name, err)
	}

	return w, nil
}

// Resolve names to waypoints, keeping the requested order.
func (s *SqliteWaypointRepository) GetByNames(ctx context.Context, names []string) ([]domain.Waypoint, error) {
	waypoints := make([]domain.Waypoint, 0, len(names))
	for _, name := range names {
		w, err := s.GetByName(ctx, name)
		if err != nil {
			return nil, err
		}
		waypoints = append(waypoints, w)
	}
	return waypoints, nil
}
