// Package realtime owns the push channel to the marketplace backend: one
// WebSocket connection per client instance, scoped to the lifetime of the
// view that constructed it. There is no reconnection logic; a dropped
// connection stops delivering events until the owning view builds a new
// client.
package realtime

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"fieldcart/internal/domain"
	"fieldcart/internal/metrics"
)

// Frame is the wire format of the realtime channel: an event name plus a
// JSON payload.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Event names on the realtime channel.
const (
	EventJoinRoom   = "join-room"
	EventJoinedRoom = "joined-room"
	EventNewMessage = "new-message"
)

type joinPayload struct {
	ChatID string `json:"chatId"`
}

type messagePayload struct {
	ChatID  string         `json:"chatId"`
	Message domain.Message `json:"message"`
}

// MessageHandler receives a freshly pushed message together with the
// conversation it belongs to.
type MessageHandler func(conversationID string, msg domain.Message)

// Client manages a single realtime connection. Writes are serialized through
// the send channel so only one goroutine touches the connection's write side.
type Client struct {
	mu     sync.Mutex
	conn   *websocket.Conn
	send   chan Frame
	quit   chan struct{}
	closed bool

	// dispatchMu is read-held for the duration of every handler invocation;
	// Close takes the write side so it cannot return while a handler runs.
	dispatchMu sync.RWMutex
	pumpDone   chan struct{}

	onMessage MessageHandler
	onJoined  func(conversationID string)

	token string
	log   zerolog.Logger
}

func NewClient(token string, log zerolog.Logger) *Client {
	return &Client{
		send:     make(chan Frame, 64),
		quit:     make(chan struct{}),
		pumpDone: make(chan struct{}),
		token:    token,
		log:      log.With().Str("component", "realtime").Logger(),
	}
}

// OnNewMessage registers the handler invoked for each pushed message.
// Register before Connect; the handler runs on the read goroutine.
func (c *Client) OnNewMessage(h MessageHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onMessage = h
}

// OnJoinedRoom registers the handler for the join acknowledgement.
func (c *Client) OnJoinedRoom(h func(conversationID string)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onJoined = h
}

// Connect opens the realtime connection. It is idempotent per client
// instance: a second call on a live connection is a no-op, so a view can
// never hold two simultaneous connections.
func (c *Client) Connect(endpointURL string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return fmt.Errorf("realtime client is closed")
	}
	if c.conn != nil {
		return nil
	}

	var header http.Header
	if c.token != "" {
		header = http.Header{"Authorization": []string{"Bearer " + c.token}}
	}
	conn, _, err := websocket.DefaultDialer.Dial(endpointURL, header)
	if err != nil {
		return fmt.Errorf("dial %s: %w", endpointURL, err)
	}
	c.conn = conn
	metrics.RealtimeConnects.Inc()
	c.log.Debug().Str("endpoint", endpointURL).Msg("connected")

	go c.readPump(conn)
	go c.writePump(conn)
	return nil
}

// JoinRoom announces interest in a conversation's events. Switching
// conversations re-joins the new room; no leave is ever sent for the old
// one, mirroring the backend's room semantics.
func (c *Client) JoinRoom(conversationID string) error {
	c.mu.Lock()
	if c.closed || c.conn == nil {
		c.mu.Unlock()
		return fmt.Errorf("realtime client is not connected")
	}
	c.mu.Unlock()

	data, err := json.Marshal(joinPayload{ChatID: conversationID})
	if err != nil {
		return fmt.Errorf("encode join payload: %w", err)
	}
	select {
	case c.send <- Frame{Event: EventJoinRoom, Data: data}:
		return nil
	case <-c.quit:
		return fmt.Errorf("realtime client is closed")
	case <-c.pumpDone:
		return fmt.Errorf("realtime connection is down")
	}
}

// Close tears the connection down. After Close returns, no handler fires and
// no handler is still running, even for a frame that was already in flight.
// Close is safe to call from every teardown path and may be called more than
// once, but never from inside a handler.
func (c *Client) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	conn := c.conn
	close(c.quit)
	c.mu.Unlock()

	// Wait out any dispatch that already passed the closed check.
	c.dispatchMu.Lock()
	c.dispatchMu.Unlock()

	if conn != nil {
		_ = conn.Close()
	}
	c.log.Debug().Msg("closed")
}

func (c *Client) readPump(conn *websocket.Conn) {
	defer conn.Close()
	for {
		var f Frame
		if err := conn.ReadJSON(&f); err != nil {
			c.mu.Lock()
			closed := c.closed
			c.mu.Unlock()
			if !closed {
				c.log.Warn().Err(err).Msg("realtime connection dropped")
			}
			return
		}
		c.dispatch(f)
	}
}

func (c *Client) writePump(conn *websocket.Conn) {
	defer close(c.pumpDone)
	for {
		select {
		case f := <-c.send:
			if err := conn.WriteJSON(f); err != nil {
				c.log.Warn().Err(err).Msg("realtime write failed")
				return
			}
		case <-c.quit:
			return
		}
	}
}

func (c *Client) dispatch(f Frame) {
	c.dispatchMu.RLock()
	defer c.dispatchMu.RUnlock()

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	onMessage := c.onMessage
	onJoined := c.onJoined
	c.mu.Unlock()

	switch f.Event {
	case EventNewMessage:
		var p messagePayload
		if err := json.Unmarshal(f.Data, &p); err != nil {
			c.log.Warn().Err(err).Msg("malformed new-message payload")
			return
		}
		if onMessage != nil {
			onMessage(p.ChatID, p.Message)
		}
	case EventJoinedRoom:
		var p joinPayload
		if err := json.Unmarshal(f.Data, &p); err != nil {
			c.log.Warn().Err(err).Msg("malformed joined-room payload")
			return
		}
		c.log.Debug().Str("chat_id", p.ChatID).Msg("joined room")
		if onJoined != nil {
			onJoined(p.ChatID)
		}
	default:
		c.log.Debug().Str("event", f.Event).Msg("ignoring unknown event")
	}
}
