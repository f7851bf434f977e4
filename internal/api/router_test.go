package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"drone-delivery-service/internal/adapters/repositories"
	"drone-delivery-service/internal/adapters/stream"
	"drone-delivery-service/internal/api/handlers"
	"drone-delivery-service/internal/domain"
	"drone-delivery-service/internal/services"
	"drone-delivery-service/internal/simulation"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

func testRouter(t *testing.T, streamHandler http.Handler) http.Handler {
	t.Helper()

	repo := repositories.NewMemoryWaypointRepository([]domain.Waypoint{
		{Name: "origin", X: 0, Y: 0},
		{Name: "Alpha_Hospital", X: 30, Y: 0},
		{Name: "Bravo_Hospital", X: 30, Y: 30},
	})
	session := handlers.NewDeliverySession(simulation.RunnerConfig{
		TickInterval: time.Millisecond,
		DroneSpeed:   50,
	}, nil, nil, zap.NewNop())
	t.Cleanup(session.Stop)

	return NewRouter(repo, session, streamHandler, Config{
		Origin: "origin",
		Optimizer: services.OptimizerConfig{
			PopulationSize: 20,
			Generations:    10,
			Runs:           1,
			Seed:           7,
		},
	}, zap.NewNop())
}

func TestRouterServesCoreEndpoints(t *testing.T) {
	router := testRouter(t, nil)

	cases := []struct {
		method string
		path   string
		want   int
	}{
		{http.MethodGet, "/health", http.StatusOK},
		{http.MethodGet, "/waypoints", http.StatusOK},
		{http.MethodGet, "/delivery/status", http.StatusOK},
		{http.MethodPost, "/delivery/stop", http.StatusOK},
		{http.MethodGet, "/deliveries", http.StatusOK},
		{http.MethodGet, "/nowhere", http.StatusNotFound},
	}
	for _, tc := range cases {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(tc.method, tc.path, nil))
		if w.Code != tc.want {
			t.Errorf("%s %s = %d, want %d", tc.method, tc.path, w.Code, tc.want)
		}
	}
}

func TestControlEndpointsAreRateLimited(t *testing.T) {
	router := testRouter(t, nil)

	var ok, limited int
	for i := 0; i < 100; i++ {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/delivery/stop", nil))
		switch w.Code {
		case http.StatusOK:
			ok++
		case http.StatusTooManyRequests:
			limited++
			if w.Header().Get("Retry-After") != "1" {
				t.Fatalf("Retry-After = %q, want 1", w.Header().Get("Retry-After"))
			}
		default:
			t.Fatalf("request %d returned %d", i, w.Code)
		}
	}
	if ok < defaultControlBurst {
		t.Fatalf("allowed = %d, want at least the burst of %d", ok, defaultControlBurst)
	}
	if limited == 0 {
		t.Fatal("no request was rate limited")
	}

	// Status reads bypass the limiter.
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/delivery/status", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status after limiting = %d, want 200", w.Code)
	}
}

// The logging wrapper must hand the underlying connection to the websocket
// upgrade or the stream endpoint breaks.
func TestStreamUpgradeThroughLoggingMiddleware(t *testing.T) {
	hub := stream.NewHub(zap.NewNop())
	defer hub.Close()

	srv := httptest.NewServer(testRouter(t, http.HandlerFunc(hub.HandleStream)))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/delivery/stream"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", url, err)
	}
	defer conn.Close()
	if resp.StatusCode != http.StatusSwitchingProtocols {
		t.Fatalf("handshake status = %d, want 101", resp.StatusCode)
	}

	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount() != 1 {
		if time.Now().After(deadline) {
			t.Fatalf("client count = %d, want 1", hub.ClientCount())
		}
		time.Sleep(2 * time.Millisecond)
	}

	hub.Broadcast(stream.EventDroneUpdate, map[string]any{"progress": 25.0})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, payload, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read broadcast: %v", err)
	}
	var msg struct {
		Event string `json:"event"`
	}
	if err := json.Unmarshal(payload, &msg); err != nil {
		t.Fatalf("unmarshal %q: %v", payload, err)
	}
	if msg.Event != stream.EventDroneUpdate {
		t.Fatalf("event = %q, want %q", msg.Event, stream.EventDroneUpdate)
	}
}
