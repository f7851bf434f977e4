package repositories

import (
	"context"
	"fmt"

	"drone-delivery-service/internal/domain"
	"drone-delivery-service/internal/ports"
)

// In-memory implementation of the WaypointRepository port. Used by tests
// and the dev registry mode, where no database file is wanted.
type MemoryWaypointRepository struct {
	byName map[string]domain.Waypoint
	order  []string
}

func NewMemoryWaypointRepository(waypoints []domain.Waypoint) *MemoryWaypointRepository {
	r := &MemoryWaypointRepository{
		byName: make(map[string]domain.Waypoint, len(waypoints)),
		order:  make([]string, 0, len(waypoints)),
	}
	for _, w := range waypoints {
		if _, ok := r.byName[w.Name]; !ok {
			r.order = append(r.order, w.Name)
		}
		r.byName[w.Name] = w
	}
	return r
}

// Return all waypoints in registration order.
func (r *MemoryWaypointRepository) ListWaypoints(ctx context.Context) ([]domain.Waypoint, error) {
	out := make([]domain.Waypoint, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.byName[name])
	}
	return out, nil
}

func (r *MemoryWaypointRepository) GetByName(ctx context.Context, name string) (domain.Waypoint, error) {
	w, ok := r.byName[name]
	if !ok {
		return domain.Waypoint{}, fmt.Errorf("get waypoint %q: %w", name, ports.ErrWaypointNotFound)
	}
	return w, nil
}

func (r *MemoryWaypointRepository) GetByNames(ctx context.Context, names []string) ([]domain.Waypoint, error) {
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
