package hub

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	gorilla "github.com/gorilla/websocket"
)

// serve runs h behind a fiber app on a loopback port and returns the
// websocket URL of the hub route.
func serve(t *testing.T, h *Hub) string {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	go h.Run(ctx)

	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	app.Get("/ws", h.Handler())

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	go app.Listener(ln)

	t.Cleanup(func() {
		cancel()
		app.Shutdown()
	})
	return "ws://" + ln.Addr().String() + "/ws"
}

func dial(t *testing.T, url string) *gorilla.Conn {
	t.Helper()
	ws, _, err := gorilla.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", url, err)
	}
	t.Cleanup(func() { ws.Close() })
	return ws
}

func waitForClients(t *testing.T, h *Hub, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for h.ClientCount() != n {
		if time.Now().After(deadline) {
			t.Fatalf("ClientCount() = %d, want %d", h.ClientCount(), n)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func readText(t *testing.T, ws *gorilla.Conn) string {
	t.Helper()
	ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := ws.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	return string(data)
}

func TestNewHub(t *testing.T) {
	h := New("telemetry", nil)
	if h.ClientCount() != 0 {
		t.Error("ClientCount should be 0 initially")
	}
	if h.IsRunning() {
		t.Error("hub should not be running before Run")
	}
}

func TestBroadcastReachesClients(t *testing.T) {
	h := New("telemetry", nil)
	url := serve(t, h)

	a := dial(t, url)
	b := dial(t, url)
	waitForClients(t, h, 2)

	if err := h.BroadcastJSON("EstimatedState", map[string]any{"depth": 2.5}); err != nil {
		t.Fatal(err)
	}
	for _, ws := range []*gorilla.Conn{a, b} {
		if got := readText(t, ws); got != `{"depth":2.5}` {
			t.Errorf("got %s", got)
		}
	}
}

func TestTopicFilter(t *testing.T) {
	h := New("telemetry", nil)
	url := serve(t, h)

	ws := dial(t, url+"?messages=Voltage")
	waitForClients(t, h, 1)

	h.Broadcast(NewMessage("EstimatedState", []byte(`{"skip":true}`)))
	h.Broadcast(NewMessage("Voltage", []byte(`{"value":24.1}`)))

	if got := readText(t, ws); got != `{"value":24.1}` {
		t.Errorf("filtered viewer got %s", got)
	}
}

func TestClientDisconnect(t *testing.T) {
	h := New("telemetry", nil)
	url := serve(t, h)

	ws := dial(t, url)
	waitForClients(t, h, 1)
	ws.Close()
	waitForClients(t, h, 0)
}

func TestParseTopics(t *testing.T) {
	if ParseTopics("") != nil {
		t.Error("empty filter should mean every topic")
	}
	if ParseTopics(" , ") != nil {
		t.Error("blank filter should mean every topic")
	}
	got := ParseTopics("EstimatedState, Voltage")
	if len(got) != 2 || !got["EstimatedState"] || !got["Voltage"] {
		t.Errorf("ParseTopics() = %v", got)
	}
}
