package domain

import "math"

// A named destination on the 2-D delivery grid.
// Waypoints come from the registry and are immutable planning data.
type Waypoint struct {
	Name string
	X    float64
	Y    float64
}

// Euclidean distance to another waypoint.
func (w Waypoint) DistanceTo(other Waypoint) float64 {
	return math.Hypot(other.X-w.X, other.Y-w.Y)
}

// The waypoint's location stripped of its identity.
func (w Waypoint) Position() Position { return Position{X: w.X, Y: w.Y} }
