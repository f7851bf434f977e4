package domain

import "fmt"

// Represents a single numbered stop in a delivery route.
// Seq starts at 1 for the origin; the final return stop reuses the origin
// coordinates under a "<origin> (return)" name.
type RouteStop struct {
	Seq  int
	Name string
	X    float64
	Y    float64
}

func (s RouteStop) Waypoint() Waypoint { return Waypoint{Name: s.Name, X: s.X, Y: s.Y} }
func (s RouteStop) Position() Position { return Position{X: s.X, Y: s.Y} }

// Display name for the return stop of a route starting at origin.
func ReturnStopName(origin string) string { return fmt.Sprintf("%s (return)", origin) }

// Represents the planned delivery route for a single drone.
// A RoutePlan is the output of the route optimizer and describes the ordered
// sequence of stops (both origin legs included), along with the total
// travelled distance. It is immutable planning data and contains no side
// effects.
type RoutePlan struct {
	Stops         []RouteStop
	TotalDistance float64
	Summary       string
}

// The externally reported shape of the active route: the live stop list plus
// the hazards currently on the map. Reporting only, never a planning input.
type DisplayRoute struct {
	Stops   []RouteStop
	Hazards []Hazard
}

// One recorded stop arrival during a delivery run.
type Arrival struct {
	Stop      int
	Name      string
	ArrivedAt string
	Elapsed   string
}
