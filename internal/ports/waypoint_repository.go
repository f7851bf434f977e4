package ports

import (
	"context"
	"errors"

	"drone-delivery-service/internal/domain"
)

// Reported when a requested waypoint name is not registered.
var ErrWaypointNotFound = errors.New("waypoint not found")

// Port: a boundary for retrieving delivery waypoints from a data source.
type WaypointRepository interface {
	// Retrieve all registered waypoints, origin included.
	ListWaypoints(ctx context.Context) ([]domain.Waypoint, error)
	// Look up a single waypoint by its exact name.
	GetByName(ctx context.Context, name string) (domain.Waypoint, error)
	// Resolve names to waypoints, preserving the requested order. Any
	// unknown name fails the whole lookup.
	GetByNames(ctx context.Context, names []string) ([]domain.Waypoint, error)
}
