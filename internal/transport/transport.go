// Package transport provides the websocket client connection used by chat
// sessions. One physical connection per client process; it outlives individual
// sessions, but carries at most one room subscription at a time.
package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"maternity-chat/internal/models"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
	eventBuffer    = 64
)

var (
	// ErrSessionActive is returned by Subscribe while another room
	// subscription is still attached.
	ErrSessionActive = errors.New("transport: a room subscription is already active")
	// ErrClosed is returned once the connection is gone.
	ErrClosed = errors.New("transport: connection closed")
)

// Conn is a realtime channel connection. Safe for concurrent use.
type Conn struct {
	ws      *websocket.Conn
	writeMu sync.Mutex

	mu  sync.Mutex
	sub chan models.Envelope

	closed    chan struct{}
	closeOnce sync.Once
}

// Dial opens a websocket connection to the gateway and starts its read and
// keepalive loops.
func Dial(ctx context.Context, url string) (*Conn, error) {
	ws, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	c := &Conn{ws: ws, closed: make(chan struct{})}
	go c.readLoop()
	go c.pingLoop()
	return c, nil
}

// Emit sends one event to the gateway.
func (c *Conn) Emit(event string, payload any) error {
	select {
	case <-c.closed:
		return ErrClosed
	default:
	}
	env, err := models.NewEnvelope(event, payload)
	if err != nil {
		return err
	}
	data, err := json.Marshal(env)
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("emit %s: %w", event, err)
	}
	return nil
}

// Subscribe attaches the single room subscription and returns its event
// channel plus a detach function. The channel is closed when the connection
// dies; detaching does not close it.
func (c *Conn) Subscribe() (<-chan models.Envelope, func(), error) {
	select {
	case <-c.closed:
		return nil, nil, ErrClosed
	default:
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sub != nil {
		return nil, nil, ErrSessionActive
	}
	ch := make(chan models.Envelope, eventBuffer)
	c.sub = ch
	detach := func() {
		c.mu.Lock()
		if c.sub == ch {
			c.sub = nil
		}
		c.mu.Unlock()
	}
	return ch, detach, nil
}

// Close shuts the connection down. Idempotent.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		close(c.closed)
		c.writeMu.Lock()
		c.ws.SetWriteDeadline(time.Now().Add(writeWait))
		_ = c.ws.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		c.writeMu.Unlock()
		_ = c.ws.Close()
	})
	return nil
}

// readLoop is the sole sender on (and closer of) the subscription channel.
func (c *Conn) readLoop() {
	defer func() {
		c.Close()
		c.mu.Lock()
		if c.sub != nil {
			close(c.sub)
			c.sub = nil
		}
		c.mu.Unlock()
	}()

	c.ws.SetReadLimit(maxMessageSize)
	c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Printf("transport read: %v", err)
			}
			return
		}
		var env models.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			log.Printf("transport: dropping malformed frame: %v", err)
			continue
		}
		c.mu.Lock()
		sub := c.sub
		c.mu.Unlock()
		if sub == nil {
			continue
		}
		select {
		case sub <- env:
		default:
			log.Printf("transport: subscriber backlog full, dropping %s", env.Event)
		}
	}
}

func (c *Conn) pingLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-c.closed:
			return
		case <-ticker.C:
			c.writeMu.Lock()
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			err := c.ws.WriteMessage(websocket.PingMessage, nil)
			c.writeMu.Unlock()
			if err != nil {
				c.Close()
				return
			}
		}
	}
}
