package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"drone-delivery-service/internal/api/dto"
	"drone-delivery-service/internal/domain"
	"drone-delivery-service/internal/ports"
	"drone-delivery-service/internal/services"
	"drone-delivery-service/internal/simulation"

	"go.uber.org/zap"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
)

// DeliveryHandler exposes route optimization and live delivery control
// endpoints. All state lives in the session.
type DeliveryHandler struct {
	Repo      ports.WaypointRepository
	Session   *DeliverySession
	Origin    string
	Optimizer services.OptimizerConfig
	Logger    *zap.Logger
}

// Optimize computes the best visiting order over the selected hospitals
// and stores the plan for the next delivery start.
func (h *DeliveryHandler) Optimize(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req dto.OptimizeRequest

	dec := json.NewDecoder(r.Body)
	defer r.Body.Close()
	dec.DisallowUnknownFields()

	if err := dec.Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid json body")
		return
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		writeError(w, r, http.StatusBadRequest, "body must contain only one JSON object")
		return
	}

	origin, err := h.Repo.GetByName(r.Context(), h.Origin)
	if err != nil {
		h.Logger.Error("resolve origin failed", zap.String("origin", h.Origin), zap.Error(err))
		writeError(w, r, http.StatusInternalServerError, "internal server error")
		return
	}

	svcReq := services.DeliveryPlanRequest{
		SelectedNames: req.SelectedWaypoints,
		Origin:        origin,
		Optimizer:     h.Optimizer,
	}

	plan, err := services.OptimizeDelivery(r.Context(), h.Repo, svcReq, h.Logger)
	switch {
	case errors.Is(err, services.ErrTooFewDestinations):
		writeError(w, r, http.StatusBadRequest, "Please select at least 2 hospitals")
		return
	case errors.Is(err, ports.ErrWaypointNotFound):
		writeError(w, r, http.StatusBadRequest, "One or more selected hospitals are not registered")
		return
	case err != nil:
		h.Logger.Error("optimize delivery failed", zap.Error(err))
		writeError(w, r, http.StatusInternalServerError, "internal server error")
		return
	}

	h.Session.SetPlan(plan)

	writeJSON(w, r, http.StatusOK, dto.OptimizeResponse{
		Success:      true,
		Distance:     plan.TotalDistance,
		RouteString:  plan.Summary,
		RouteDetails: dto.RouteStops(plan.Stops),
	})
}

// Start launches a delivery over the most recently optimized route.
func (h *DeliveryHandler) Start(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	snap, err := h.Session.Start()
	if errors.Is(err, ErrNoPlan) {
		writeError(w, r, http.StatusConflict, "No route available. Please optimize a route first.")
		return
	}
	if err != nil {
		h.Logger.Error("start delivery failed", zap.Error(err))
		writeError(w, r, http.StatusInternalServerError, "internal server error")
		return
	}

	status := dto.FromSnapshot(snap)
	writeJSON(w, r, http.StatusOK, dto.ControlResponse{
		Success: true,
		Message: "Delivery started",
		Status:  &status,
	})
}

func (h *DeliveryHandler) Pause(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	snap, err := h.Session.Pause()
	if errors.Is(err, simulation.ErrInvalidTransition) {
		writeError(w, r, http.StatusConflict, err.Error())
		return
	}
	if err != nil {
		h.Logger.Error("pause delivery failed", zap.Error(err))
		writeError(w, r, http.StatusInternalServerError, "internal server error")
		return
	}

	status := dto.FromSnapshot(snap)
	writeJSON(w, r, http.StatusOK, dto.ControlResponse{
		Success: true,
		Message: "Delivery paused",
		Status:  &status,
	})
}

// Resume continues a paused delivery, optionally from a caller-supplied
// safe position instead of the recorded one.
func (h *DeliveryHandler) Resume(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req dto.ResumeRequest
	dec := json.NewDecoder(r.Body)
	defer r.Body.Close()
	if err := dec.Decode(&req); err != nil && err != io.EOF {
		writeError(w, r, http.StatusBadRequest, "invalid json body")
		return
	}
	var pos *domain.Position
	if req.X != nil && req.Y != nil {
		pos = &domain.Position{X: *req.X, Y: *req.Y}
	}

	snap, err := h.Session.Resume(pos)
	if errors.Is(err, simulation.ErrInvalidTransition) {
		writeError(w, r, http.StatusConflict, err.Error())
		return
	}
	if err != nil {
		h.Logger.Error("resume delivery failed", zap.Error(err))
		writeError(w, r, http.StatusInternalServerError, "internal server error")
		return
	}

	status := dto.FromSnapshot(snap)
	writeJSON(w, r, http.StatusOK, dto.ControlResponse{
		Success: true,
		Message: "Delivery continued",
		Status:  &status,
	})
}

// Reroute forces a replan from the drone's current position.
func (h *DeliveryHandler) Reroute(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	n, err := h.Session.Reroute()
	switch {
	case errors.Is(err, simulation.ErrNoStopsRemaining):
		writeJSON(w, r, http.StatusOK, dto.ControlResponse{
			Success: true,
			Message: "No remaining hospitals to visit",
		})
	case errors.Is(err, simulation.ErrInvalidTransition):
		writeError(w, r, http.StatusConflict, err.Error())
	case err != nil:
		h.Logger.Error("force reroute failed", zap.Error(err))
		writeError(w, r, http.StatusInternalServerError, "internal server error")
	default:
		writeJSON(w, r, http.StatusOK, dto.ControlResponse{
			Success: true,
			Message: fmt.Sprintf("Rerouted with %d stops", n),
		})
	}
}

// Stop ends the active run. Stopping an idle session is not an error.
func (h *DeliveryHandler) Stop(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	h.Session.Stop()

	writeJSON(w, r, http.StatusOK, dto.ControlResponse{
		Success: true,
		Message: "Delivery stopped",
	})
}

func (h *DeliveryHandler) Status(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	writeJSON(w, r, http.StatusOK, dto.FromSnapshot(h.Session.Status()))
}

// ListDeliveries returns archived runs, newest first.
func (h *DeliveryHandler) ListDeliveries(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	limit := defaultHistoryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, r, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		if n > maxHistoryLimit {
			n = maxHistoryLimit
		}
		limit = n
	}

	records, err := h.Session.History(r.Context(), limit)
	if err != nil {
		h.Logger.Error("list deliveries failed", zap.Error(err))
		writeError(w, r, http.StatusInternalServerError, "internal server error")
		return
	}

	res := dto.ListDeliveriesResponse{
		Deliveries: make([]dto.DeliveryRunEntry, 0, len(records)),
	}
	for _, rec := range records {
		res.Deliveries = append(res.Deliveries, dto.FromDeliveryRecord(rec))
	}

	writeJSON(w, r, http.StatusOK, res)
}
