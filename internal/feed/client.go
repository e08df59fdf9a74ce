// Package feed is the admin side of the order channel: it connects, registers
// as an admin listener and turns order updates into events.
package feed

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"restaurant-admin-backend/config"
	"restaurant-admin-backend/internal/metrics"
)

var ErrClosed = errors.New("feed client closed")

// Client holds one connection to the order channel. It does not reconnect.
type Client struct {
	cfg    config.FeedConfig
	dialer *websocket.Dialer
	rec    metrics.Recorder
	events chan OrderEvent

	mu        sync.Mutex
	conn      *websocket.Conn
	closed    bool
	closeOnce sync.Once
}

// NewClient creates a client for the configured channel.
func NewClient(cfg config.FeedConfig, rec metrics.Recorder) *Client {
	if rec == nil {
		rec = metrics.Nop{}
	}
	return &Client{
		cfg: cfg,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: cfg.HandshakeTimeout,
		},
		rec:    rec,
		events: make(chan OrderEvent, 64),
	}
}

// Events delivers order events in arrival order. It is closed when Run returns.
func (c *Client) Events() <-chan OrderEvent {
	return c.events
}

// Run connects, registers and reads until the connection drops or ctx is
// cancelled. Cancellation is not an error.
func (c *Client) Run(ctx context.Context) error {
	defer close(c.events)

	if !c.cfg.Enabled {
		log.Println("Feed is disabled. Not starting.")
		return nil
	}

	conn, err := c.connect(ctx)
	if err != nil {
		return err
	}
	log.Printf("Connected to order feed %s", c.cfg.URL)

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			c.Close()
		case <-done:
		}
	}()
	go c.keepAlive(conn, done)

	err = c.readLoop(ctx, conn)
	c.Close()
	if ctx.Err() != nil {
		log.Println("Feed client shutting down.")
		return nil
	}
	log.Printf("Order feed connection ended: %v", err)
	return err
}

func (c *Client) connect(ctx context.Context) (*websocket.Conn, error) {
	header := http.Header{}
	for k, v := range c.cfg.Headers {
		header.Set(k, v)
	}

	conn, resp, err := c.dialer.DialContext(ctx, c.cfg.URL, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial feed %s: status %d: %w", c.cfg.URL, resp.StatusCode, err)
		}
		return nil, fmt.Errorf("dial feed %s: %w", c.cfg.URL, err)
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		conn.Close()
		return nil, ErrClosed
	}
	c.conn = conn
	c.mu.Unlock()

	conn.SetWriteDeadline(time.Now().Add(c.writeWait()))
	if err := conn.WriteJSON(map[string]string{"type": TypeRegisterAdmin}); err != nil {
		c.Close()
		return nil, fmt.Errorf("register admin: %w", err)
	}
	return conn, nil
}

func (c *Client) readLoop(ctx context.Context, conn *websocket.Conn) error {
	if c.cfg.ReadLimitBytes > 0 {
		conn.SetReadLimit(c.cfg.ReadLimitBytes)
	}
	pongWait := c.pongWait()
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		conn.SetReadDeadline(time.Now().Add(pongWait))
		if msgType != websocket.TextMessage && msgType != websocket.BinaryMessage {
			continue
		}
		c.handle(ctx, data)
	}
}

// handle never fails; bad frames are logged and counted.
func (c *Client) handle(ctx context.Context, data []byte) {
	c.rec.IncCounter(metrics.FeedMessages, 1)

	msg, err := Decode(data)
	if err != nil {
		c.rec.IncCounter(metrics.FeedParseFailures, 1)
		log.Printf("Error parsing feed message: %v", err)
		return
	}
	if msg.Type != TypeAdminOrderUpdate {
		return
	}

	select {
	case c.events <- msg.Event(time.Now().UTC()):
	case <-ctx.Done():
	}
}

func (c *Client) keepAlive(conn *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(c.pongWait() * 9 / 10)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(c.writeWait())); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}

// Close releases the connection. It is safe to call more than once.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		conn := c.conn
		c.mu.Unlock()
		if conn == nil {
			return
		}
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		err = conn.Close()
	})
	return err
}

func (c *Client) pongWait() time.Duration {
	if c.cfg.PongWait > 0 {
		return c.cfg.PongWait
	}
	return 60 * time.Second
}

func (c *Client) writeWait() time.Duration {
	return 10 * time.Second
}
