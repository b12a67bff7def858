// Package events owns the persistent bidirectional event connection:
// connect/disconnect, reconnection with capped quadratic backoff, heartbeat
// with round-trip tracking, inbound event decoding, and throttled outbound
// location updates. It never mutates domain state; decoded events are
// handed to the economy controller, which is the sole writer.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"tradewinds-engine/internal/model"
)

// TokenSource is the channel's read-only view of the session token. The
// request layer owns the token; the channel only reads it.
type TokenSource interface {
	Token() string
	IsAuthenticated() bool
}

// Config holds event channel settings.
type Config struct {
	URL                 string
	HandshakeTimeout    time.Duration
	HeartbeatInterval   time.Duration
	BackgroundHeartbeat time.Duration
	LocationThrottle    time.Duration
	MaxReconnectTries   int
	MaxReconnectDelay   time.Duration
	EventBufferSize     int
	DecodeStrict        bool
}

// FeedEntry is one row of the bounded real-time event feed shown to the UI.
type FeedEntry struct {
	Event   string    `json:"event"`
	Summary string    `json:"summary"`
	At      time.Time `json:"at"`
}

// Channel is the persistent event connection.
type Channel struct {
	cfg    Config
	tokens TokenSource

	mu             sync.RWMutex
	state          ConnectionState
	conn           *websocket.Conn
	done           chan struct{}
	deliberate     bool
	background     bool
	attempts       int
	reconnectTimer *time.Timer

	lastPingAt     time.Time
	latency        time.Duration
	lastLocationAt time.Time

	feed   []FeedEntry
	nearby []model.AreaPlayer

	writeMu sync.Mutex

	events chan model.DomainEvent
	states chan ConnectionState

	// OnAuthFailure fires when an inbound error event indicates an
	// authentication failure; wired to the request layer's teardown path.
	OnAuthFailure func()
}

// NewChannel creates an event channel. Connect must be called separately.
func NewChannel(cfg Config, tokens TokenSource) *Channel {
	if cfg.EventBufferSize <= 0 {
		cfg.EventBufferSize = 10
	}
	return &Channel{
		cfg:    cfg,
		tokens: tokens,
		state:  StateDisconnected,
		events: make(chan model.DomainEvent, 64),
		states: make(chan ConnectionState, 16),
	}
}

// Events returns the stream of decoded domain events.
func (c *Channel) Events() <-chan model.DomainEvent {
	return c.events
}

// StateChanges returns a stream of connection state transitions.
func (c *Channel) StateChanges() <-chan ConnectionState {
	return c.states
}

// State returns the current connection state.
func (c *Channel) State() ConnectionState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Latency returns the last measured heartbeat round trip.
func (c *Channel) Latency() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.latency
}

// Feed returns a copy of the bounded real-time event feed.
func (c *Channel) Feed() []FeedEntry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]FeedEntry(nil), c.feed...)
}

// NearbyPlayers returns a copy of the bounded nearby-player list.
func (c *Channel) NearbyPlayers() []model.AreaPlayer {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]model.AreaPlayer(nil), c.nearby...)
}

// setState transitions the connection state and notifies listeners.
// Callers must hold c.mu.
func (c *Channel) setState(next ConnectionState) {
	if c.state == next {
		return
	}
	log.Printf("[EventChannel] %s -> %s", c.state, next)
	c.state = next
	select {
	case c.states <- next:
	default:
		// Listener is behind; the latest state is readable via State().
	}
}

// Connect establishes the connection. Resets any prior reconnect cycle.
func (c *Channel) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.state == StateConnected || c.state == StateConnecting {
		c.mu.Unlock()
		return nil
	}
	c.deliberate = false
	c.attempts = 0
	c.stopReconnectTimer()
	c.mu.Unlock()

	return c.dial(ctx)
}

// dial performs one connection attempt and starts the per-connection
// goroutines on success.
func (c *Channel) dial(ctx context.Context) error {
	c.mu.Lock()
	c.setState(StateConnecting)
	c.mu.Unlock()

	dialer := websocket.Dialer{HandshakeTimeout: c.cfg.HandshakeTimeout}
	header := http.Header{}
	if token := c.tokens.Token(); token != "" {
		header.Set("Authorization", "Bearer "+token)
	}

	conn, _, err := dialer.DialContext(ctx, c.cfg.URL, header)
	if err != nil {
		c.mu.Lock()
		c.setState(StateError)
		authenticated := c.tokens.IsAuthenticated()
		if authenticated && !c.deliberate {
			c.scheduleReconnect()
		} else {
			c.setState(StateDisconnected)
		}
		c.mu.Unlock()
		return fmt.Errorf("failed to connect event channel: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.done = make(chan struct{})
	c.attempts = 0
	c.setState(StateConnected)
	done := c.done
	c.mu.Unlock()

	go c.readLoop(conn, done)
	go c.heartbeatLoop(done)

	// Prime the server-side projections for this session.
	if err := c.Send("requestInitialData", nil); err != nil {
		log.Printf("[EventChannel] failed to request initial data: %v", err)
	}

	return nil
}

// Disconnect closes the connection deliberately; no reconnect follows.
func (c *Channel) Disconnect() {
	c.mu.Lock()
	c.deliberate = true
	c.stopReconnectTimer()
	conn := c.conn
	if conn == nil {
		c.setState(StateDisconnected)
		c.mu.Unlock()
		return
	}
	c.setState(StateDisconnecting)
	c.mu.Unlock()

	c.writeMu.Lock()
	_ = conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	c.writeMu.Unlock()
	_ = conn.Close()
}

// readLoop consumes inbound frames until the connection drops.
func (c *Channel) readLoop(conn *websocket.Conn, done chan struct{}) {
	for {
		var frame wireEvent
		if err := conn.ReadJSON(&frame); err != nil {
			c.handleDrop(conn, done, err)
			return
		}
		c.dispatch(frame)
	}
}

// handleDrop finalizes a closed connection and decides whether to
// reconnect.
func (c *Channel) handleDrop(conn *websocket.Conn, done chan struct{}, cause error) {
	_ = conn.Close()

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != conn {
		return // a newer connection already took over
	}
	c.conn = nil
	close(done)

	if c.deliberate {
		c.setState(StateDisconnected)
		return
	}

	log.Printf("[EventChannel] Connection dropped: %v", cause)
	if c.tokens.IsAuthenticated() {
		c.scheduleReconnect()
	} else {
		c.setState(StateDisconnected)
	}
}

// scheduleReconnect arms the next reconnect attempt with quadratic backoff
// capped at MaxReconnectDelay. Exhausting the retry ceiling parks the
// channel in the failed state until Connect or Foreground is called.
// Callers must hold c.mu.
func (c *Channel) scheduleReconnect() {
	c.attempts++
	if c.attempts > c.cfg.MaxReconnectTries {
		log.Printf("[EventChannel] Reconnect ceiling reached after %d attempts", c.cfg.MaxReconnectTries)
		c.setState(StateFailed)
		return
	}

	c.setState(StateReconnecting)
	delay := ReconnectDelay(c.attempts, c.cfg.MaxReconnectDelay)
	log.Printf("[EventChannel] Reconnect attempt %d/%d in %s", c.attempts, c.cfg.MaxReconnectTries, delay)

	c.stopReconnectTimer()
	c.reconnectTimer = time.AfterFunc(delay, func() {
		ctx, cancel := context.WithTimeout(context.Background(), c.cfg.HandshakeTimeout)
		defer cancel()
		if err := c.dial(ctx); err != nil {
			log.Printf("[EventChannel] Reconnect failed: %v", err)
		}
	})
}

// stopReconnectTimer cancels a pending reconnect attempt. Callers must
// hold c.mu.
func (c *Channel) stopReconnectTimer() {
	if c.reconnectTimer != nil {
		c.reconnectTimer.Stop()
		c.reconnectTimer = nil
	}
}

// ReconnectDelay returns min(attempt^2 seconds, maxDelay).
func ReconnectDelay(attempt int, maxDelay time.Duration) time.Duration {
	delay := time.Duration(attempt*attempt) * time.Second
	if delay > maxDelay {
		delay = maxDelay
	}
	return delay
}

// heartbeatLoop sends pings at the foreground or background cadence until
// the connection ends. Toggling background restarts the loop's ticker.
func (c *Channel) heartbeatLoop(done chan struct{}) {
	for {
		c.mu.RLock()
		interval := c.cfg.HeartbeatInterval
		if c.background {
			interval = c.cfg.BackgroundHeartbeat
		}
		c.mu.RUnlock()

		ticker := time.NewTicker(interval)
		select {
		case <-done:
			ticker.Stop()
			return
		case <-ticker.C:
			ticker.Stop()
			c.sendPing()
		}
	}
}

// sendPing emits a heartbeat and records the send time for RTT tracking.
func (c *Channel) sendPing() {
	c.mu.Lock()
	c.lastPingAt = time.Now()
	c.mu.Unlock()

	if err := c.Send("ping", map[string]int64{"timestamp": time.Now().UnixMilli()}); err != nil {
		log.Printf("[EventChannel] heartbeat send failed: %v", err)
	}
}

// dispatch decodes one inbound frame and routes it. Malformed payloads are
// dropped, never fatal.
func (c *Channel) dispatch(frame wireEvent) {
	event, err := decodeEvent(frame.Event, frame.Payload, c.cfg.DecodeStrict)
	if err != nil {
		log.Printf("[EventChannel] Dropping malformed event: %v", err)
		return
	}

	switch e := event.(type) {
	case pongEvent:
		c.mu.Lock()
		if !c.lastPingAt.IsZero() {
			c.latency = time.Since(c.lastPingAt)
		}
		c.mu.Unlock()
		return

	case errorEvent:
		if isAuthFailure(e.Message) {
			log.Printf("[EventChannel] Server reports auth failure: %s", e.Message)
			if c.OnAuthFailure != nil {
				c.OnAuthFailure()
			}
			return
		}
		c.recordFeed("error", e.Message)
		return

	case model.PlayersInAreaEvent:
		c.mu.Lock()
		c.nearby = e.Players
		if len(c.nearby) > c.cfg.EventBufferSize {
			c.nearby = c.nearby[len(c.nearby)-c.cfg.EventBufferSize:]
		}
		c.mu.Unlock()

	case model.PlayerPresenceEvent:
		if e.Joined {
			c.recordFeed(e.EventName(), e.Username+" entered the area")
		} else {
			c.recordFeed(e.EventName(), e.Username+" left the area")
		}

	case model.TradeNotificationEvent:
		c.recordFeed(e.EventName(), fmt.Sprintf("%s traded %s for %d", e.PlayerName, e.ItemName, e.Price))

	case model.MarketAlertEvent:
		c.recordFeed(e.EventName(), e.Message)

	case model.SystemMessageEvent:
		c.recordFeed(e.EventName(), e.Message)
	}

	select {
	case c.events <- event:
	default:
		log.Printf("[EventChannel] Event buffer full, dropping %s", event.EventName())
	}
}

// recordFeed appends to the bounded event feed, evicting oldest-first.
func (c *Channel) recordFeed(event, summary string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.feed = append(c.feed, FeedEntry{Event: event, Summary: summary, At: time.Now()})
	if len(c.feed) > c.cfg.EventBufferSize {
		c.feed = c.feed[len(c.feed)-c.cfg.EventBufferSize:]
	}
}

// isAuthFailure matches server error messages that mean the session is no
// longer valid.
func isAuthFailure(message string) bool {
	msg := strings.ToLower(message)
	for _, marker := range []string{"auth", "unauthorized", "token", "session expired"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// Send writes a named event to the socket.
func (c *Channel) Send(eventName string, payload any) error {
	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()
	if conn == nil {
		return fmt.Errorf("event channel is not connected")
	}

	var raw json.RawMessage
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to encode %s payload: %w", eventName, err)
		}
		raw = data
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := conn.WriteJSON(wireEvent{Event: eventName, Payload: raw}); err != nil {
		return fmt.Errorf("failed to send %s: %w", eventName, err)
	}
	return nil
}

// UpdateLocation sends a location update, throttled so rapid position
// changes do not flood the socket. The first send is never suppressed.
func (c *Channel) UpdateLocation(lat, lng float64) error {
	c.mu.Lock()
	if !c.lastLocationAt.IsZero() && time.Since(c.lastLocationAt) < c.cfg.LocationThrottle {
		c.mu.Unlock()
		return nil
	}
	c.lastLocationAt = time.Now()
	c.mu.Unlock()

	return c.Send("updateLocation", map[string]any{
		"lat":       lat,
		"lng":       lng,
		"timestamp": time.Now().UnixMilli(),
	})
}

// JoinRoom subscribes to a district room.
func (c *Channel) JoinRoom(room string) error {
	return c.Send("joinRoom", map[string]string{"room": room})
}

// LeaveRoom unsubscribes from a district room.
func (c *Channel) LeaveRoom(room string) error {
	return c.Send("leaveRoom", map[string]string{"room": room})
}

// TradeRequest proposes a live trade to another player.
func (c *Channel) TradeRequest(targetPlayerID, itemID string) error {
	return c.Send("tradeRequest", map[string]string{
		"targetPlayerId": targetPlayerID,
		"itemId":         itemID,
	})
}

// Background switches the heartbeat to its low-frequency cadence and
// cancels any pending reconnect attempt.
func (c *Channel) Background() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.background = true
	c.stopReconnectTimer()
}

// Foreground restores the full heartbeat cadence. If the connection was
// lost while backgrounded, a fresh reconnect cycle starts.
func (c *Channel) Foreground() {
	c.mu.Lock()
	c.background = false
	connected := c.state == StateConnected
	authenticated := c.tokens.IsAuthenticated()
	if !connected && authenticated {
		c.attempts = 0
		c.deliberate = false
	}
	c.mu.Unlock()

	if !connected && authenticated {
		ctx, cancel := context.WithTimeout(context.Background(), c.cfg.HandshakeTimeout)
		defer cancel()
		if err := c.dial(ctx); err != nil {
			log.Printf("[EventChannel] Foreground reconnect failed: %v", err)
		}
	}
}
