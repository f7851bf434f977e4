package dto

import (
	"time"

	"drone-delivery-service/internal/domain"
	"drone-delivery-service/internal/ports"
	"drone-delivery-service/internal/simulation"
)

type OptimizeRequest struct {
	SelectedWaypoints []string `json:"selected_waypoints"`
}

// Optional safe position to continue from. Both coordinates must be set
// for the position to be used.
type ResumeRequest struct {
	X *float64 `json:"x"`
	Y *float64 `json:"y"`
}

type OptimizeResponse struct {
	Success      bool             `json:"success"`
	Distance     float64          `json:"distance"`
	RouteString  string           `json:"route_string"`
	RouteDetails []RouteStopEntry `json:"route_details"`
}

// One numbered stop as shown on the map. Key casing follows the
// frontend's route table.
type RouteStopEntry struct {
	Seq  int     `json:"Seq"`
	Name string  `json:"Name"`
	X    float64 `json:"X"`
	Y    float64 `json:"Y"`
}

// A weather zone entry appended to the displayed route.
type HazardEntry struct {
	Type        string  `json:"type"`
	HazardType  string  `json:"hazard_type"`
	Intensity   string  `json:"intensity"`
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	Width       float64 `json:"width"`
	Height      float64 `json:"height"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
}

type ArrivalEntry struct {
	Stop    int    `json:"stop"`
	Name    string `json:"name"`
	Time    string `json:"time"`
	Elapsed string `json:"elapsed"`
}

// Live delivery state as served by the status endpoint and pushed over
// the event stream. Route mixes stop and hazard entries, stops first;
// active hazards are additionally listed on their own key.
type StatusResponse struct {
	RunID               string         `json:"run_id"`
	Status              string         `json:"status"`
	Progress            float64        `json:"progress"`
	CurrentLocation     []float64      `json:"current_location"`
	NextStop            *string        `json:"next_stop"`
	StopsCompleted      int            `json:"stops_completed"`
	TotalStops          int            `json:"total_stops"`
	HazardDetected      bool           `json:"hazard_detected"`
	ElapsedTime         string         `json:"elapsed_time"`
	History             []ArrivalEntry `json:"history"`
	EstimatedCompletion string         `json:"estimated_completion"`
	Route               []any          `json:"route"`
	Hazards             []HazardEntry  `json:"hazards"`
	IsPaused            bool           `json:"is_paused"`
	IsRerouting         bool           `json:"is_rerouting"`
}

type ControlResponse struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Status  *StatusResponse `json:"status,omitempty"`
}

type DeliveryRunEntry struct {
	RunID          string    `json:"run_id"`
	Summary        string    `json:"summary"`
	TotalDistance  float64   `json:"total_distance"`
	TotalStops     int       `json:"total_stops"`
	StopsCompleted int       `json:"stops_completed"`
	Status         string    `json:"status"`
	StartedAt      time.Time `json:"started_at"`
	FinishedAt     time.Time `json:"finished_at"`
}

type ListDeliveriesResponse struct {
	Deliveries []DeliveryRunEntry `json:"deliveries"`
}

// Convert route stops to their wire form.
func RouteStops(stops []domain.RouteStop) []RouteStopEntry {
	entries := make([]RouteStopEntry, 0, len(stops))
	for _, s := range stops {
		entries = append(entries, RouteStopEntry{Seq: s.Seq, Name: s.Name, X: s.X, Y: s.Y})
	}
	return entries
}

func hazardEntry(h domain.Hazard) HazardEntry {
	return HazardEntry{
		Type:        "weatherHazard",
		HazardType:  string(h.Kind),
		Intensity:   string(h.Severity),
		X:           h.X,
		Y:           h.Y,
		Width:       h.Width,
		Height:      h.Height,
		Name:        h.Name(),
		Description: h.Description(),
	}
}

// Map a simulation snapshot to its wire form.
func FromSnapshot(s simulation.Snapshot) StatusResponse {
	var next *string
	if s.NextStop != "" {
		n := s.NextStop
		next = &n
	}

	history := make([]ArrivalEntry, 0, len(s.Arrivals))
	for _, a := range s.Arrivals {
		history = append(history, ArrivalEntry{Stop: a.Stop, Name: a.Name, Time: a.ArrivedAt, Elapsed: a.Elapsed})
	}

	hazards := make([]HazardEntry, 0, len(s.Route.Hazards))
	for _, h := range s.Route.Hazards {
		hazards = append(hazards, hazardEntry(h))
	}

	route := make([]any, 0, len(s.Route.Stops)+len(hazards))
	for _, entry := range RouteStops(s.Route.Stops) {
		route = append(route, entry)
	}
	for _, h := range hazards {
		route = append(route, h)
	}

	return StatusResponse{
		RunID:               s.RunID,
		Status:              string(s.Status),
		Progress:            s.Progress,
		CurrentLocation:     s.Location.CoordsToList(),
		NextStop:            next,
		StopsCompleted:      s.StopsCompleted,
		TotalStops:          s.TotalStops,
		HazardDetected:      s.HazardDetected,
		ElapsedTime:         s.Elapsed,
		History:             history,
		EstimatedCompletion: s.ETA,
		Route:               route,
		Hazards:             hazards,
		IsPaused:            s.Paused,
		IsRerouting:         s.Rerouting,
	}
}

// Map an archived run to its wire form.
func FromDeliveryRecord(rec ports.DeliveryRecord) DeliveryRunEntry {
	return DeliveryRunEntry{
		RunID:          rec.RunID,
		Summary:        rec.Summary,
		TotalDistance:  rec.TotalDistance,
		TotalStops:     rec.TotalStops,
		StopsCompleted: rec.StopsCompleted,
		Status:         rec.Status,
		StartedAt:      rec.StartedAt,
		FinishedAt:     rec.FinishedAt,
	}
}
