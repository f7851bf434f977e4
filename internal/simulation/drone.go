package simulation

import (
	"math"

	"drone-delivery-service/internal/domain"

	"go.uber.org/zap"
)

const (
	defaultDroneName  = "Delivery Drone"
	defaultDroneSpeed = 1.0

	// Hazards are sensed when their size-adjusted distance drops to this.
	detectionRange = 1.0
	// Closer than this to the target counts as arrival.
	arrivalRadius = 0.1
	// Minimum movement before the position history records a new entry.
	minRecordDistance = 0.5
	historyLimit      = 10
)

// A delivery drone moving stop to stop along an assigned route. It senses
// hazards and keeps a short trail of recent positions so a safe point to
// back off to is always known. Not safe for concurrent use; the Runner
// serializes access.
type Drone struct {
	name  string
	speed float64

	x, y      float64
	route     []domain.RouteStop
	stopIndex int

	moving         bool
	complete       bool
	hazardDetected bool

	history []domain.Position
	logger  *zap.Logger
}

func NewDrone(name string, speed float64, start domain.Position, logger *zap.Logger) *Drone {
	if name == "" {
		name = defaultDroneName
	}
	if speed <= 0 {
		speed = defaultDroneSpeed
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Drone{
		name:   name,
		speed:  speed,
		x:      start.X,
		y:      start.Y,
		logger: logger.With(zap.String("drone", name)),
	}
}

// Assign a new route. The first stop must be the drone's current position;
// assignment never teleports. Progress and history reset, the hazard flag is
// left alone so rerouting stays in control of clearing it.
func (d *Drone) SetRoute(stops []domain.RouteStop) {
	d.route = append([]domain.RouteStop(nil), stops...)
	d.stopIndex = 0
	d.moving = false
	d.complete = false
	d.history = []domain.Position{{X: d.x, Y: d.y}}
}

// Check whether any hazard is within sensing range, updating the detection
// flag. An empty hazard list reports false without touching the flag.
func (d *Drone) DetectHazards(hazards []domain.Hazard) bool {
	if len(hazards) == 0 {
		return false
	}

	pos := domain.Position{X: d.x, Y: d.y}
	for _, h := range hazards {
		if h.AdjustedDistance(pos) <= detectionRange {
			if !d.hazardDetected {
				d.hazardDetected = true
				prev := d.PreviousPosition()
				d.logger.Warn("hazard detected",
					zap.Float64("x", d.x),
					zap.Float64("y", d.y),
					zap.Float64("safe_x", prev.X),
					zap.Float64("safe_y", prev.Y),
				)
			}
			return true
		}
	}

	d.hazardDetected = false
	return false
}

// Advance one step toward the next stop. Returns true once the final stop is
// reached. A paused drone (moving false) does not advance.
func (d *Drone) MoveToNextStop(hazards []domain.Hazard) bool {
	if d.stopIndex+1 >= len(d.route) {
		d.logger.Warn("no next stop available",
			zap.Int("stop_index", d.stopIndex),
			zap.Int("route_stops", len(d.route)),
		)
		d.complete = true
		d.moving = false
		return true
	}

	if len(hazards) != 0 {
		d.DetectHazards(hazards)
	}

	if !d.moving {
		return false
	}

	next := d.route[d.stopIndex+1]
	dx := next.X - d.x
	dy := next.Y - d.y
	dist := math.Hypot(dx, dy)

	if dist < arrivalRadius {
		d.recordPosition(false)
		d.x, d.y = next.X, next.Y
		d.stopIndex++
		d.recordPosition(true)
		d.logger.Info("reached stop",
			zap.Int("stop", d.stopIndex),
			zap.String("name", next.Name),
		)

		if d.stopIndex >= len(d.route)-1 {
			d.logger.Info("reached final destination")
			d.complete = true
			d.moving = false
			return true
		}
		return false
	}

	step := math.Min(d.speed, dist)
	d.x += dx / dist * step
	d.y += dy / dist * step
	if step >= minRecordDistance {
		d.recordPosition(false)
	}
	return false
}

// Record the current position unless it is within minRecordDistance of the
// last entry. Arrivals force an entry regardless.
func (d *Drone) recordPosition(force bool) bool {
	pos := domain.Position{X: d.x, Y: d.y}
	if force || len(d.history) == 0 {
		d.pushHistory(pos)
		return true
	}
	if d.history[len(d.history)-1].DistanceTo(pos) >= minRecordDistance {
		d.pushHistory(pos)
		return true
	}
	return false
}

func (d *Drone) pushHistory(p domain.Position) {
	d.history = append(d.history, p)
	if len(d.history) > historyLimit {
		d.history = d.history[1:]
	}
}

// The last recorded position before the current one, used to back off to
// safety. Falls back to the newest entry, then to the current position.
func (d *Drone) PreviousPosition() domain.Position {
	n := len(d.history)
	switch {
	case n > 1:
		return d.history[n-2]
	case n == 1:
		return d.history[0]
	}
	return domain.Position{X: d.x, Y: d.y}
}

func (d *Drone) Position() domain.Position {
	return domain.Position{X: d.x, Y: d.y}
}

func (d *Drone) Name() string { return d.name }

func (d *Drone) StopIndex() int { return d.stopIndex }

func (d *Drone) Moving() bool { return d.moving }

func (d *Drone) Complete() bool { return d.complete }

func (d *Drone) HazardDetected() bool { return d.hazardDetected }

// The assigned route, copied.
func (d *Drone) Route() []domain.RouteStop {
	return append([]domain.RouteStop(nil), d.route...)
}
