package services

import (
	"context"
	"fmt"
	"math"
	"strings"

	"drone-delivery-service/internal/domain"
	"drone-delivery-service/internal/platform/obs"
	"drone-delivery-service/internal/ports"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type DeliveryPlanRequest struct {
	SelectedNames []string
	Origin        domain.Waypoint
	Optimizer     OptimizerConfig
}

type optimizeRun struct {
	path     *domain.Path
	distance float64
}

// Resolve the selected waypoint names and produce the best route plan the
// optimizer finds across the configured number of runs. The plan starts at
// the origin, visits every destination once and ends back at the origin.
func OptimizeDelivery(
	ctx context.Context,
	repo ports.WaypointRepository,
	req DeliveryPlanRequest,
	logger *zap.Logger,
) (plan *domain.RoutePlan, err error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	defer obs.Time(ctx, logger, "optimize_delivery")(&err)

	names := dedupeNames(req.SelectedNames, req.Origin.Name)
	if len(names) < 2 {
		return nil, fmt.Errorf("optimize delivery: %w", ErrTooFewDestinations)
	}

	destinations, err := repo.GetByNames(ctx, names)
	if err != nil {
		return nil, fmt.Errorf("optimize delivery: resolve destinations: %w", err)
	}

	cfg := req.Optimizer.withDefaults()
	runs := make([]optimizeRun, cfg.Runs)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(5)
	for i := range runs {
		g.Go(func() error {
			runCfg := cfg
			if runCfg.Seed != 0 {
				runCfg.Seed += uint64(i)
			}

			opt, err := NewRouteOptimizer(req.Origin, destinations, runCfg, logger)
			if err != nil {
				return fmt.Errorf("run %d: %w", i+1, err)
			}
			path, err := opt.Optimize(gctx)
			if err != nil {
				return fmt.Errorf("run %d: %w", i+1, err)
			}

			runs[i] = optimizeRun{path: path, distance: opt.CompleteDistance(path)}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("optimize delivery: %w", err)
	}

	best := runs[0]
	for _, r := range runs[1:] {
		if r.distance < best.distance {
			best = r
		}
	}

	plan = buildRoutePlan(req.Origin, best.path, best.distance)
	logger.Info("route optimized",
		zap.Int("destinations", len(destinations)),
		zap.Int("runs", cfg.Runs),
		zap.Float64("distance", plan.TotalDistance),
	)
	return plan, nil
}

// Number the stops origin-first, destinations in visiting order, then the
// return to the origin.
func buildRoutePlan(origin domain.Waypoint, path *domain.Path, distance float64) *domain.RoutePlan {
	ordered := path.Stops()

	stops := make([]domain.RouteStop, 0, len(ordered)+2)
	stops = append(stops, domain.RouteStop{Seq: 1, Name: origin.Name, X: origin.X, Y: origin.Y})
	for i, w := range ordered {
		stops = append(stops, domain.RouteStop{Seq: i + 2, Name: w.Name, X: w.X, Y: w.Y})
	}
	stops = append(stops, domain.RouteStop{
		Seq:  len(ordered) + 2,
		Name: domain.ReturnStopName(origin.Name),
		X:    origin.X,
		Y:    origin.Y,
	})

	names := make([]string, 0, len(ordered)+2)
	names = append(names, origin.Name)
	for _, w := range ordered {
		names = append(names, w.Name)
	}
	names = append(names, origin.Name)

	return &domain.RoutePlan{
		Stops:         stops,
		TotalDistance: math.Round(distance*100) / 100,
		Summary:       strings.Join(names, " -> "),
	}
}

// Trim, drop empties and the origin itself, and keep the first occurrence
// of each name.
func dedupeNames(selected []string, origin string) []string {
	seen := make(map[string]struct{}, len(selected))
	names := make([]string, 0, len(selected))
	for _, raw := range selected {
		name := strings.TrimSpace(raw)
		if name == "" || name == origin {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	return names
}
