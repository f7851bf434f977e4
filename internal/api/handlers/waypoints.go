package handlers

import (
	"net/http"

	"drone-delivery-service/internal/api/dto"
	"drone-delivery-service/internal/ports"

	"go.uber.org/zap"
)

// WaypointHandler exposes read-only waypoint retrieval endpoints.
type WaypointHandler struct {
	Repo   ports.WaypointRepository
	Logger *zap.Logger
}

func (h *WaypointHandler) List(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	waypoints, err := h.Repo.ListWaypoints(r.Context())
	if err != nil {
		h.Logger.Error("list waypoints failed", zap.Error(err))
		writeError(w, r, http.StatusInternalServerError, "internal server error")
		return
	}

	res := dto.ListWaypointsResponse{
		Waypoints: make([]dto.WaypointResponse, 0, len(waypoints)),
	}
	for _, wp := range waypoints {
		res.Waypoints = append(res.Waypoints, dto.WaypointResponse{
			Name: wp.Name,
			X:    wp.X,
			Y:    wp.Y,
		})
	}

	writeJSON(w, r, http.StatusOK, res)
}
