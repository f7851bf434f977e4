package handlers

import (
	"net/http"
	"testing"

	"drone-delivery-service/internal/adapters/repositories"
	"drone-delivery-service/internal/api/dto"
	"drone-delivery-service/internal/domain"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap/zaptest"
)

func TestWaypointListKeepsRegistrationOrder(t *testing.T) {
	repo := repositories.NewMemoryWaypointRepository([]domain.Waypoint{
		{Name: "origin", X: 0, Y: 0},
		{Name: "Steve_Biko_Pretoria", X: 50, Y: 75},
		{Name: "Tygerberg_CapeTown", X: 10, Y: 90},
	})
	h := &WaypointHandler{Repo: repo, Logger: zaptest.NewLogger(t)}

	w := doRequest(h.List, http.MethodGet, "/waypoints", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	res := decodeJSON[dto.ListWaypointsResponse](t, w)
	want := dto.ListWaypointsResponse{Waypoints: []dto.WaypointResponse{
		{Name: "origin", X: 0, Y: 0},
		{Name: "Steve_Biko_Pretoria", X: 50, Y: 75},
		{Name: "Tygerberg_CapeTown", X: 10, Y: 90},
	}}
	if diff := cmp.Diff(want, res); diff != "" {
		t.Fatalf("waypoints mismatch (-want +got):\n%s", diff)
	}
}

func TestWaypointListRejectsPost(t *testing.T) {
	repo := repositories.NewMemoryWaypointRepository(nil)
	h := &WaypointHandler{Repo: repo, Logger: zaptest.NewLogger(t)}

	w := doRequest(h.List, http.MethodPost, "/waypoints", "{}")
	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", w.Code)
	}
	if allow := w.Header().Get("Allow"); allow != http.MethodGet {
		t.Fatalf("Allow = %q, want GET", allow)
	}
}

func TestHealthEndpoint(t *testing.T) {
	w := doRequest(Health, http.MethodGet, "/health", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	res := decodeJSON[map[string]string](t, w)
	if res["status"] != "ok" {
		t.Fatalf("status field = %q, want ok", res["status"])
	}
}
