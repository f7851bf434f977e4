package dto

type WaypointResponse struct {
	Name string  `json:"name"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
}

type ListWaypointsResponse struct {
	Waypoints []WaypointResponse `json:"waypoints"`
}
