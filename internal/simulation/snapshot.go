package simulation

import "drone-delivery-service/internal/domain"

// Lifecycle state of a delivery run as reported to clients.
type Status string

const (
	StatusIdle           Status = "idle"
	StatusInProgress     Status = "in_progress"
	StatusPaused         Status = "paused"
	StatusRerouting      Status = "rerouting"
	StatusHazardDetected Status = "hazard_detected"
	StatusCompleted      Status = "completed"
)

// Point-in-time view of a delivery run. Safe to hand out: slices are copies.
type Snapshot struct {
	RunID          string
	Status         Status
	Progress       float64
	Location       domain.Position
	NextStop       string
	StopsCompleted int
	TotalStops     int
	HazardDetected bool
	Elapsed        string
	ETA            string
	Arrivals       []domain.Arrival
	Route          domain.DisplayRoute
	Paused         bool
	Rerouting      bool
}
