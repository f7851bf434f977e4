package domain

import "math"

// A transient 2-D point with no registry identity, such as the drone's live
// location or the start of a replanned leg. Keeping it nameless means it can
// never collide with a registry waypoint in unvisited-set logic.
type Position struct {
	X float64
	Y float64
}

// Return the position as [x, y] for external API compatibility.
func (p Position) CoordsToList() []float64 { return []float64{p.X, p.Y} }

// Euclidean distance to another position.
func (p Position) DistanceTo(other Position) float64 {
	return math.Hypot(other.X-p.X, other.Y-p.Y)
}

// Euclidean distance to a waypoint.
func (p Position) DistanceToWaypoint(w Waypoint) float64 {
	return math.Hypot(w.X-p.X, w.Y-p.Y)
}
