package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"drone-delivery-service/internal/domain"
	"drone-delivery-service/internal/ports"
)

// SQLWaypointRepository is a Postgres-backed implementation of the
// WaypointRepository port for shared deployments. Rows keep a seed order
// column so listings match the seed file, like the rowid ordering of the
// sqlite adapter.
type SQLWaypointRepository struct {
	DB *sql.DB
}

func NewSQLWaypointRepository(db *sql.DB) *SQLWaypointRepository {
	return &SQLWaypointRepository{DB: db}
}

// EnsureSchema creates the waypoints table when missing.
func (r *SQLWaypointRepository) EnsureSchema(ctx context.Context) error {
	if r.DB == nil {
		return errors.New("waypoint repository: db is nil")
	}

	q := `
	CREATE TABLE IF NOT EXISTS waypoints (
		name TEXT PRIMARY KEY,
		x DOUBLE PRECISION NOT NULL,
		y DOUBLE PRECISION NOT NULL,
		seed_order INTEGER NOT NULL
	);
	`
	if _, err := r.DB.ExecContext(ctx, q); err != nil {
		return fmt.Errorf("ensure waypoint schema: %w", err)
	}

	return nil
}

// UpsertWaypoints writes the seed rows, replacing existing entries by name.
func (r *SQLWaypointRepository) UpsertWaypoints(ctx context.Context, seeds []WaypointSeed) error {
	if r.DB == nil {
		return errors.New("waypoint repository: db is nil")
	}

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("upsert waypoints: begin tx: %w", err)
	}
	defer tx.Rollback()

	q := `
	INSERT INTO waypoints (name, x, y, seed_order)
	VALUES ($1, $2, $3, $4)
	ON CONFLICT (name) DO UPDATE
	SET x = EXCLUDED.x,
		y = EXCLUDED.y,
		seed_order = EXCLUDED.seed_order;
	`
	stmt, err := tx.PrepareContext(ctx, q)
	if err != nil {
		return fmt.Errorf("upsert waypoints: prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, s := range seeds {
		if _, err := stmt.ExecContext(ctx, s.Name, s.X, s.Y, i); err != nil {
			return fmt.Errorf("upsert waypoints: insert waypoint %q: %w", s.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("upsert waypoints: commit tx: %w", err)
	}

	return nil
}

// Return all waypoints in seed order.
func (r *SQLWaypointRepository) ListWaypoints(ctx context.Context) ([]domain.Waypoint, error) {
	if r.DB == nil {
		return nil, errors.New("waypoint repository: db is nil")
	}

	q := `
	SELECT name, x, y
	FROM waypoints
	ORDER BY seed_order;
	`
	rows, err := r.DB.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list waypoints: query waypoints table: %w", err)
	}
	defer rows.Close()

	var waypoints []domain.Waypoint
	for rows.Next() {
		var w domain.Waypoint
		if err := rows.Scan(&w.Name, &w.X, &w.Y); err != nil {
			return nil, fmt.Errorf("list waypoints: scan row: %w", err)
		}
		waypoints = append(waypoints, w)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list waypoints: row iteration: %w", err)
	}

	return waypoints, nil
}

func (r *SQLWaypointRepository) GetByName(ctx context.Context, name string) (domain.Waypoint, error) {
	if r.DB == nil {
		return domain.Waypoint{}, errors.New("waypoint repository: db is nil")
	}

	q := `
	SELECT name, x, y
	FROM waypoints
	WHERE name = $1;
	`
	var w domain.Waypoint
	err := r.DB.QueryRowContext(ctx, q, name).Scan(&w.Name, &w.X, &w.Y)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Waypoint{}, fmt.Errorf("get waypoint %q: %w", name, ports.ErrWaypointNotFound)
	}
	if err != nil {
		return domain.Waypoint{}, fmt.Errorf("get waypoint %q: %w", name, err)
	}

	return w, nil
}

// GetByNames resolves the requested names, preserving the request order.
func (r *SQLWaypointRepository) GetByNames(ctx context.Context, names []string) ([]domain.Waypoint, error) {
	out := make([]domain.Waypoint, 0, len(names))
	for _, name := range names {
		w, err := r.GetByName(ctx, name)
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, nil
}
