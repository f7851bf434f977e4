package stream

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"
)

func waitFor(t *testing.T, timeout time.Duration, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func dialHub(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", wsURL, err)
	}
	return conn
}

func TestHubBroadcastReachesClient(t *testing.T) {
	defer goleak.VerifyNone(t)

	hub := NewHub(zaptest.NewLogger(t))
	srv := httptest.NewServer(http.HandlerFunc(hub.HandleStream))
	defer srv.Close()

	conn := dialHub(t, srv)
	defer conn.Close()

	waitFor(t, time.Second, "client registration", func() bool {
		return hub.ClientCount() == 1
	})

	hub.Broadcast("drone_update", map[string]any{"progress": 50.0})

	conn.SetReadDeadline(time.Now().Add(time.Second))
	_, payload, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read broadcast: %v", err)
	}

	var msg envelope
	if err := json.Unmarshal(payload, &msg); err != nil {
		t.Fatalf("unmarshal broadcast: %v", err)
	}
	if msg.Event != "drone_update" {
		t.Fatalf("event = %q, want %q", msg.Event, "drone_update")
	}
	data, ok := msg.Data.(map[string]any)
	if !ok {
		t.Fatalf("data = %T, want object", msg.Data)
	}
	if got := data["progress"]; got != 50.0 {
		t.Fatalf("progress = %v, want 50", got)
	}

	conn.Close()
	waitFor(t, time.Second, "client removal", func() bool {
		return hub.ClientCount() == 0
	})
}

func TestHubBroadcastWithoutClients(t *testing.T) {
	hub := NewHub(zaptest.NewLogger(t))
	hub.Broadcast("drone_update", map[string]any{"progress": 0.0})
	if n := hub.ClientCount(); n != 0 {
		t.Fatalf("ClientCount() = %d, want 0", n)
	}
}

func TestHubCloseDisconnectsClients(t *testing.T) {
	defer goleak.VerifyNone(t)

	hub := NewHub(zaptest.NewLogger(t))
	srv := httptest.NewServer(http.HandlerFunc(hub.HandleStream))
	defer srv.Close()

	conn := dialHub(t, srv)
	defer conn.Close()

	waitFor(t, time.Second, "client registration", func() bool {
		return hub.ClientCount() == 1
	})

	hub.Close()

	if n := hub.ClientCount(); n != 0 {
		t.Fatalf("ClientCount() after Close = %d, want 0", n)
	}

	conn.SetReadDeadline(time.Now().Add(time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Fatal("expected read to fail after hub close")
	}

	late := dialHub(t, srv)
	defer late.Close()
	late.SetReadDeadline(time.Now().Add(time.Second))
	if _, _, err := late.ReadMessage(); err == nil {
		t.Fatal("expected connection after Close to be rejected")
	}
	if n := hub.ClientCount(); n != 0 {
		t.Fatalf("ClientCount() = %d, want 0", n)
	}
}
