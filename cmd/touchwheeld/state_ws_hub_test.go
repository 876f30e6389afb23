package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"touchwheel"
)

// Hub tests construct Clients with a nil websocket.Conn; the hub guards every
// conn.Close() against nil, so no network I/O is needed.

// newTestHub returns a hub with small buffers for deterministic tests.
func newTestHub(t *testing.T, sendBuf int, broadcastBuf int) *Hub {
	t.Helper()
	return NewHub(slog.Default(), HubConfig{
		SendBuf:      sendBuf,
		BroadcastBuf: broadcastBuf,
	})
}

func newTestClient(hub *Hub, name string, buf int) *Client {
	return &Client{
		hub:        hub,
		send:       make(chan []byte, buf),
		remoteAddr: name,
		logger:     slog.Default(),
	}
}

func registerClient(t *testing.T, hub *Hub, c *Client) {
	t.Helper()
	hub.register <- c
	waitUntil(t, 500*time.Millisecond, func() bool {
		hub.mu.Lock()
		defer hub.mu.Unlock()
		_, ok := hub.clients[c]
		return ok
	}, c.remoteAddr+" not registered in time")
}

func startHub(t *testing.T, hub *Hub) (context.CancelFunc, <-chan struct{}) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		hub.Run(ctx)
	}()
	return cancel, done
}

func TestHub_BroadcastDeliveredToAllClients(t *testing.T) {
	hub := newTestHub(t, 4, 8)
	cancel, done := startHub(t, hub)
	defer cancel()

	c1 := newTestClient(hub, "c1", 4)
	c2 := newTestClient(hub, "c2", 4)
	registerClient(t, hub, c1)
	registerClient(t, hub, c2)

	if n := hub.Clients(); n != 2 {
		t.Fatalf("Clients() = %d, want 2", n)
	}

	msg := []byte(`{"type":"event","data":{"event":{"type":"dial","delta":-1},"position":-1}}`)

	// BroadcastBytes may drop under scheduling pressure; feed the loop directly.
	hub.broadcast <- msg

	for _, c := range []*Client{c1, c2} {
		select {
		case got := <-c.send:
			if string(got) != string(msg) {
				t.Fatalf("%s got %q, want %q", c.remoteAddr, got, msg)
			}
		case <-time.After(500 * time.Millisecond):
			t.Fatalf("timeout waiting for %s to receive broadcast", c.remoteAddr)
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("timeout waiting for hub to stop")
	}
	if n := hub.Clients(); n != 0 {
		t.Fatalf("Clients() after stop = %d, want 0", n)
	}
}

func TestHub_SlowClientDisconnectedOnFullSendBuffer(t *testing.T) {
	hub := newTestHub(t, 1, 8)
	cancel, _ := startHub(t, hub)
	defer cancel()

	slow := newTestClient(hub, "slow", 1)
	fast := newTestClient(hub, "fast", 8)
	registerClient(t, hub, slow)
	registerClient(t, hub, fast)

	slow.send <- []byte(`"already queued"`)

	msg := []byte(`{"type":"event","data":{"event":{"type":"press","zone":"up"},"position":0}}`)
	hub.broadcast <- msg

	select {
	case got := <-fast.send:
		if string(got) != string(msg) {
			t.Fatalf("fast client got %q, want %q", got, msg)
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatalf("timeout waiting for fast client to receive broadcast")
	}

	// drain the pre-filled message, then expect the channel to be closed
	select {
	case <-slow.send:
	default:
	}
	waitUntil(t, 750*time.Millisecond, func() bool {
		select {
		case _, ok := <-slow.send:
			return !ok
		default:
			return false
		}
	}, "expected slow send channel to be closed")
}

func TestRunBroadcaster_EventsImmediateReadingsCoalesced(t *testing.T) {
	hub := newTestHub(t, 16, 16)
	cancel, _ := startHub(t, hub)
	defer cancel()

	c := newTestClient(hub, "ui", 16)
	registerClient(t, hub, c)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()
	src := make(chan WheelBroadcast, 16)
	go RunBroadcaster(ctx, hub, src, slog.Default())

	now := time.Now()
	for i := 0; i < 5; i++ {
		src <- BroadcastReading{Snapshot: touchwheel.Snapshot{Threshold: float64(i)}, At: now}
	}

	// Only the latest reading of the burst is delivered.
	got := recvEnvelope(t, c)
	if got.Type != msgTypeReading {
		t.Fatalf("type = %q, want %q", got.Type, msgTypeReading)
	}
	var snap touchwheel.Snapshot
	if err := json.Unmarshal(got.Data, &snap); err != nil {
		t.Fatalf("unmarshal reading: %v", err)
	}
	if snap.Threshold != 4 {
		t.Fatalf("coalesced reading threshold = %v, want 4", snap.Threshold)
	}

	// A pending reading goes out before the event that follows it.
	src <- BroadcastReading{Snapshot: touchwheel.Snapshot{Threshold: 9}, At: now}
	src <- BroadcastEvent{Event: touchwheel.Event{Kind: touchwheel.EventPress, Zone: touchwheel.ZoneLeft}, Session: "s1", At: now}

	if got := recvEnvelope(t, c); got.Type != msgTypeReading {
		t.Fatalf("first type = %q, want reading", got.Type)
	}
	got = recvEnvelope(t, c)
	if got.Type != msgTypeEvent || got.Session != "s1" {
		t.Fatalf("second envelope = %+v", got)
	}
	var data struct {
		Event    touchwheel.Event `json:"event"`
		Position int              `json:"position"`
	}
	if err := json.Unmarshal(got.Data, &data); err != nil {
		t.Fatalf("unmarshal event: %v", err)
	}
	if data.Event.Kind != touchwheel.EventPress || data.Event.Zone != touchwheel.ZoneLeft {
		t.Fatalf("event = %v", data.Event)
	}
}

func TestServer_StatusInitOnConnect(t *testing.T) {
	requests := make(chan Request, 1)
	srv := NewServer(slog.Default(), requests, ServerConfig{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go srv.Hub().Run(ctx)

	// stand-in for the poll loop
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case req := <-requests:
				if r, ok := req.(RequestStatus); ok {
					r.Reply <- StatusSnapshot{Source: sourceMock, Session: "abc", Position: 3}
				}
			}
		}
	}()

	mux := http.NewServeMux()
	srv.Register(mux, defaultWSPath)
	ts := httptest.NewServer(mux)
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + defaultWSPath
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var env wireEnvelope
	if err := conn.ReadJSON(&env); err != nil {
		t.Fatalf("read status_init: %v", err)
	}
	if env.Type != msgTypeStatusInit || env.Session != "abc" {
		t.Fatalf("envelope = %+v", env)
	}
	var st StatusSnapshot
	if err := json.Unmarshal(env.Data, &st); err != nil {
		t.Fatalf("unmarshal status: %v", err)
	}
	if st.Source != sourceMock || st.Position != 3 {
		t.Fatalf("status = %+v", st)
	}
}

// wireEnvelope decodes envelope with the payload left raw.
type wireEnvelope struct {
	Type    string          `json:"type"`
	Session string          `json:"session"`
	Data    json.RawMessage `json:"data"`
}

func recvEnvelope(t *testing.T, c *Client) wireEnvelope {
	t.Helper()
	select {
	case msg := <-c.send:
		var env wireEnvelope
		if err := json.Unmarshal(msg, &env); err != nil {
			t.Fatalf("unmarshal %q: %v", msg, err)
		}
		return env
	case <-time.After(time.Second):
		t.Fatalf("timeout waiting for broadcast")
	}
	return wireEnvelope{}
}

func waitUntil(t *testing.T, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timeout: %s", msg)
}
