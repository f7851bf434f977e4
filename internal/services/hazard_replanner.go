package services

import (
	"math"
	"strings"

	"drone-delivery-service/internal/domain"

	"go.uber.org/zap"
)

// Tunables for hazard-aware replanning. Zero values fall back to the
// planner defaults.
type ReplannerConfig struct {
	// Clearance added to a hazard's radius when judging a leg unsafe.
	HazardBuffer float64
	// Cost multiplier applied to unsafe legs. They stay eligible, just
	// expensive.
	PenaltyFactor  float64
	IterationLimit int
}

func (c ReplannerConfig) withDefaults() ReplannerConfig {
	if c.HazardBuffer <= 0 {
		c.HazardBuffer = 1.5
	}
	if c.PenaltyFactor <= 0 {
		c.PenaltyFactor = 10
	}
	if c.IterationLimit <= 0 {
		c.IterationLimit = 100
	}
	return c
}

// Greedy nearest-next planner that routes from a live position through the
// remaining waypoints and home to the goal, penalizing legs that pass close
// to known hazards.
type HazardReplanner struct {
	goal    domain.Waypoint
	hazards []domain.Hazard
	cfg     ReplannerConfig
	logger  *zap.Logger

	bestDistance  float64
	iterations    int
	nodesExplored int
	exhausted     bool
}

func NewHazardReplanner(goal domain.Waypoint, hazards []domain.Hazard, cfg ReplannerConfig, logger *zap.Logger) *HazardReplanner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HazardReplanner{
		goal:         goal,
		hazards:      append([]domain.Hazard(nil), hazards...),
		cfg:          cfg.withDefaults(),
		logger:       logger,
		bestDistance: math.Inf(1),
	}
}

// Plan a visiting order over remaining, starting from start and ending at
// the goal. On the first step the first waypoint of the incoming remaining
// ordering can be skipped (excludeFirst) so an interrupted leg is not
// immediately retried; it is still taken when it is the only option left.
// Ties between equally cheap candidates keep the earliest in remaining
// order. Exhausting the iteration limit is not fatal: the partial order is
// kept and the leg home is appended regardless, penalized like any other.
func (r *HazardReplanner) FindPath(remaining []domain.Waypoint, start domain.Position, excludeFirst bool) []domain.Waypoint {
	unvisited := append([]domain.Waypoint(nil), remaining...)

	skipName := ""
	skipFirst := excludeFirst && len(remaining) > 0
	if skipFirst {
		skipName = remaining[0].Name
	}

	current := start
	order := make([]domain.Waypoint, 0, len(remaining)+1)
	total := 0.0

	r.iterations = 0
	r.nodesExplored = 0

	for len(unvisited) > 0 && r.iterations < r.cfg.IterationLimit {
		r.iterations++
		r.logger.Debug("planning step",
			zap.Int("iteration", r.iterations),
			zap.Int("remaining", len(unvisited)),
		)

		bestIdx := -1
		bestCost := math.Inf(1)

		for i, w := range unvisited {
			r.nodesExplored++
			if r.iterations == 1 && skipFirst && w.Name == skipName {
				r.logger.Debug("skipping interrupted leg target on first step", zap.String("waypoint", w.Name))
				continue
			}
			cost := r.legCost(current, w.Position())
			if cost < bestCost {
				bestCost = cost
				bestIdx = i
			}
		}

		// Every candidate was excluded: the interrupted target is all that
		// is left, so it has to be taken after all.
		if bestIdx < 0 {
			if r.iterations != 1 || !skipFirst {
				break
			}
			for i, w := range unvisited {
				if w.Name == skipName {
					bestIdx = i
					bestCost = r.legCost(current, w.Position())
					break
				}
			}
			if bestIdx < 0 {
				break
			}
			r.logger.Debug("no alternative next stop, taking the interrupted target", zap.String("waypoint", skipName))
		}

		next := unvisited[bestIdx]
		unvisited = append(unvisited[:bestIdx], unvisited[bestIdx+1:]...)
		order = append(order, next)
		total += bestCost
		current = next.Position()

		r.logger.Debug("next stop selected",
			zap.String("waypoint", next.Name),
			zap.Float64("cost", bestCost),
		)
	}

	r.exhausted = len(unvisited) > 0
	if r.exhausted {
		r.logger.Warn("iteration limit reached before visiting every waypoint",
			zap.Int("iterations", r.iterations),
			zap.Int("unvisited", len(unvisited)),
		)
	}

	total += r.legCost(current, r.goal.Position())
	order = append(order, r.goal)

	r.bestDistance = total
	return order
}

// Total penalized cost of the last planned path.
func (r *HazardReplanner) BestDistance() float64 { return r.bestDistance }

// Selection steps taken by the last planning pass.
func (r *HazardReplanner) Iterations() int { return r.iterations }

// Candidate evaluations performed by the last planning pass.
func (r *HazardReplanner) NodesExplored() int { return r.nodesExplored }

// Whether the last planning pass ran out of iterations with waypoints still
// unvisited.
func (r *HazardReplanner) Exhausted() bool { return r.exhausted }

// Penalized cost of travelling a -> b.
func (r *HazardReplanner) legCost(a, b domain.Position) float64 {
	cost := a.DistanceTo(b)
	if !r.isSafeLeg(a, b) {
		cost *= r.cfg.PenaltyFactor
	}
	return cost
}

// Whether the leg a -> b keeps every hazard at a safe distance.
func (r *HazardReplanner) isSafeLeg(a, b domain.Position) bool {
	for _, h := range r.hazards {
		clearance := segmentClearance(a, b, h)
		required := h.ClearanceRadius() + r.cfg.HazardBuffer
		if clearance < required {
			r.logger.Debug("leg unsafe",
				zap.String("hazard", h.Name()),
				zap.Float64("clearance", clearance),
				zap.Float64("required", required),
			)
			if strings.Contains(string(h.Kind), "storm") {
				r.logger.Warn("leg would pass directly through the storm")
			}
			return false
		}
	}
	return true
}

// Distance from the hazard center to the closest point of the segment a-b.
// The projection parameter is clamped to the segment, so endpoints count.
func segmentClearance(a, b domain.Position, h domain.Hazard) float64 {
	length := a.DistanceTo(b)
	if length == 0 {
		return a.DistanceTo(h.Center())
	}

	t := ((h.X-a.X)*(b.X-a.X) + (h.Y-a.Y)*(b.Y-a.Y)) / (length * length)
	t = math.Max(0, math.Min(1, t))

	closest := domain.Position{X: a.X + t*(b.X-a.X), Y: a.Y + t*(b.Y-a.Y)}
	return closest.DistanceTo(h.Center())
}
