package events

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"tradewinds-engine/internal/model"
)

// fakeTokens is a static token source for tests.
type fakeTokens struct {
	token  string
	authed bool
}

func (f *fakeTokens) Token() string         { return f.token }
func (f *fakeTokens) IsAuthenticated() bool { return f.authed }

var upgrader = websocket.Upgrader{}

// newTestSocket starts a websocket server that hands each accepted
// connection to serve.
func newTestSocket(t *testing.T, serve func(conn *websocket.Conn)) (*httptest.Server, string) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		serve(conn)
	}))
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	return srv, wsURL
}

func testChannelConfig(url string) Config {
	return Config{
		URL:                 url,
		HandshakeTimeout:    2 * time.Second,
		HeartbeatInterval:   20 * time.Millisecond,
		BackgroundHeartbeat: time.Second,
		LocationThrottle:    time.Second,
		MaxReconnectTries:   5,
		MaxReconnectDelay:   30 * time.Second,
		EventBufferSize:     10,
	}
}

func waitForState(t *testing.T, c *Channel, want ConnectionState) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if c.State() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("State() = %s, want %s", c.State(), want)
}

func TestReconnectDelay(t *testing.T) {
	maxDelay := 30 * time.Second
	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{1, time.Second},
		{2, 4 * time.Second},
		{3, 9 * time.Second},
		{5, 25 * time.Second},
		{6, 30 * time.Second},
		{10, 30 * time.Second},
	}
	for _, tt := range tests {
		if got := ReconnectDelay(tt.attempt, maxDelay); got != tt.want {
			t.Errorf("ReconnectDelay(%d) = %s, want %s", tt.attempt, got, tt.want)
		}
	}
}

func TestConnectDeliversDecodedEvents(t *testing.T) {
	srv, wsURL := newTestSocket(t, func(conn *websocket.Conn) {
		defer conn.Close()
		// Drain client frames so writes never block.
		go func() {
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()
		conn.WriteJSON(map[string]any{
			"event":   "priceUpdate",
			"payload": map[string]any{"itemName": "Silk Bolt", "newPrice": 6100},
		})
		time.Sleep(time.Second)
	})
	defer srv.Close()

	c := NewChannel(testChannelConfig(wsURL), &fakeTokens{token: "tok", authed: true})
	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer c.Disconnect()
	waitForState(t, c, StateConnected)

	select {
	case event := <-c.Events():
		update, ok := event.(model.PriceUpdateEvent)
		if !ok {
			t.Fatalf("event = %T, want PriceUpdateEvent", event)
		}
		if update.NewPrice != 6100 {
			t.Errorf("NewPrice = %d, want 6100", update.NewPrice)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no event delivered")
	}
}

func TestMalformedFramesAreDroppedNotFatal(t *testing.T) {
	srv, wsURL := newTestSocket(t, func(conn *websocket.Conn) {
		defer conn.Close()
		go func() {
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()
		// Malformed first, valid second; the channel must survive the first.
		conn.WriteJSON(map[string]any{"event": "priceUpdate", "payload": map[string]any{"newPrice": 0}})
		conn.WriteJSON(map[string]any{
			"event":   "systemMessage",
			"payload": map[string]any{"message": "maintenance at dawn"},
		})
		time.Sleep(time.Second)
	})
	defer srv.Close()

	c := NewChannel(testChannelConfig(wsURL), &fakeTokens{token: "tok", authed: true})
	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer c.Disconnect()

	select {
	case event := <-c.Events():
		if _, ok := event.(model.SystemMessageEvent); !ok {
			t.Errorf("event = %T, want SystemMessageEvent (malformed frame dropped)", event)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("valid event after malformed frame never arrived")
	}
}

func TestHeartbeatMeasuresLatency(t *testing.T) {
	srv, wsURL := newTestSocket(t, func(conn *websocket.Conn) {
		defer conn.Close()
		for {
			var frame struct {
				Event   string          `json:"event"`
				Payload json.RawMessage `json:"payload"`
			}
			if err := conn.ReadJSON(&frame); err != nil {
				return
			}
			if frame.Event == "ping" {
				conn.WriteJSON(map[string]any{"event": "pong", "payload": map[string]any{}})
			}
		}
	})
	defer srv.Close()

	c := NewChannel(testChannelConfig(wsURL), &fakeTokens{token: "tok", authed: true})
	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer c.Disconnect()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if c.Latency() > 0 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Error("Latency() never measured after heartbeats")
}

func TestUpdateLocationThrottles(t *testing.T) {
	var locationFrames int32
	srv, wsURL := newTestSocket(t, func(conn *websocket.Conn) {
		defer conn.Close()
		for {
			var frame struct {
				Event string `json:"event"`
			}
			if err := conn.ReadJSON(&frame); err != nil {
				return
			}
			if frame.Event == "updateLocation" {
				atomic.AddInt32(&locationFrames, 1)
			}
		}
	})
	defer srv.Close()

	cfg := testChannelConfig(wsURL)
	cfg.HeartbeatInterval = time.Minute // keep pings out of the frame count
	c := NewChannel(cfg, &fakeTokens{token: "tok", authed: true})
	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer c.Disconnect()
	waitForState(t, c, StateConnected)

	for i := 0; i < 5; i++ {
		if err := c.UpdateLocation(41.0+float64(i), 28.9); err != nil {
			t.Fatalf("UpdateLocation() error = %v", err)
		}
	}

	time.Sleep(100 * time.Millisecond)
	if got := atomic.LoadInt32(&locationFrames); got != 1 {
		t.Errorf("location frames sent = %d, want 1 (throttled)", got)
	}
}

func TestDisconnectIsDeliberate(t *testing.T) {
	srv, wsURL := newTestSocket(t, func(conn *websocket.Conn) {
		defer conn.Close()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})
	defer srv.Close()

	c := NewChannel(testChannelConfig(wsURL), &fakeTokens{token: "tok", authed: true})
	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	waitForState(t, c, StateConnected)

	c.Disconnect()
	waitForState(t, c, StateDisconnected)

	// No reconnect cycle may start after a deliberate disconnect.
	time.Sleep(100 * time.Millisecond)
	if got := c.State(); got != StateDisconnected {
		t.Errorf("State() = %s after deliberate disconnect, want disconnected", got)
	}
}

func TestDropWithSessionSchedulesReconnect(t *testing.T) {
	srv, wsURL := newTestSocket(t, func(conn *websocket.Conn) {
		conn.Close() // drop immediately
	})
	defer srv.Close()

	c := NewChannel(testChannelConfig(wsURL), &fakeTokens{token: "tok", authed: true})
	_ = c.Connect(context.Background())
	waitForState(t, c, StateReconnecting)
	c.Disconnect()
}

func TestReconnectCeilingParksChannelFailed(t *testing.T) {
	c := NewChannel(testChannelConfig("ws://localhost:1"), &fakeTokens{token: "tok", authed: true})

	c.mu.Lock()
	defer c.mu.Unlock()

	for attempt := 1; attempt <= c.cfg.MaxReconnectTries; attempt++ {
		c.scheduleReconnect()
		c.stopReconnectTimer() // the armed dial is not under test
		if got := c.state; got != StateReconnecting {
			t.Fatalf("state after attempt %d = %s, want reconnecting", attempt, got)
		}
	}

	c.scheduleReconnect()
	if got := c.state; got != StateFailed {
		t.Errorf("state after exhausting %d attempts = %s, want failed", c.cfg.MaxReconnectTries, got)
	}
}

func TestDropWithoutSessionStaysDisconnected(t *testing.T) {
	srv, wsURL := newTestSocket(t, func(conn *websocket.Conn) {
		conn.Close() // drop immediately
	})
	defer srv.Close()

	c := NewChannel(testChannelConfig(wsURL), &fakeTokens{authed: false})
	_ = c.Connect(context.Background())
	waitForState(t, c, StateDisconnected)
}

func TestFeedIsBounded(t *testing.T) {
	c := NewChannel(testChannelConfig("ws://localhost:1"), &fakeTokens{})

	for i := 0; i < 15; i++ {
		c.recordFeed("systemMessage", fmt.Sprintf("entry %d", i))
	}

	feed := c.Feed()
	if len(feed) != 10 {
		t.Fatalf("len(Feed()) = %d, want 10", len(feed))
	}
	if feed[0].Summary != "entry 5" {
		t.Errorf("oldest entry = %q, want %q (oldest-first eviction)", feed[0].Summary, "entry 5")
	}
}
