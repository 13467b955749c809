// Package server manages individual WebSocket clients, handling read/write
// pumps, rate limiting, and lifecycle control for each connection.
package server

import (
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	sendBufferSize = 256
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second
	writeWait      = 10 * time.Second
)

// endpoint is the side of a hub a client talks to from its pumps.
type endpoint interface {
	submit(msg inbound)
	leave(c *Client)
}

// Client is one live websocket connection belonging to exactly one hub.
// The closed flag is its liveness marker; it is only read and written
// under the owning Registry's lock.
type Client struct {
	id             uuid.UUID
	conn           *websocket.Conn
	send           chan []byte
	hub            endpoint
	addr           string
	closed         bool
	maxMessageSize int64
	rateLimiter    *rateLimiter
	rateLimit      RateLimitConfig
	log            *slog.Logger
	dropOnce       sync.Once
}

// NewClient creates a Client for conn. The client's send channel is
// buffered so a hub broadcast never waits on a slow socket.
func NewClient(conn *websocket.Conn, hub endpoint, addr string, cfg Config, log *slog.Logger) *Client {
	if conn != nil {
		conn.SetReadLimit(cfg.MaxMessageSize)
	}
	if log == nil {
		log = slog.Default()
	}

	id := uuid.New()
	return &Client{
		id:             id,
		conn:           conn,
		send:           make(chan []byte, sendBufferSize),
		hub:            hub,
		addr:           addr,
		maxMessageSize: cfg.MaxMessageSize,
		rateLimiter:    newRateLimiter(cfg.RateLimit.Burst, cfg.RateLimit.RefillInterval),
		rateLimit:      cfg.RateLimit,
		log:            log.With("conn", id.String(), "addr", addr),
	}
}

// ID returns the connection identifier used in logs.
func (c *Client) ID() uuid.UUID {
	return c.id
}

// GetSendChan returns the client's outgoing frame queue.
func (c *Client) GetSendChan() <-chan []byte {
	return c.send
}

// drop closes the underlying socket once. The read pump then fails and
// the client leaves its hub through the normal close path.
func (c *Client) drop() {
	c.dropOnce.Do(func() {
		if c.conn == nil {
			return
		}
		if err := c.conn.Close(); err != nil && !isExpectedCloseError(err) {
			c.log.Warn("error closing connection", "error", err)
		}
	})
}

func (c *Client) setupReadConnection() {
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.log.Warn("error setting initial read deadline", "error", err)
	}
	c.conn.SetPongHandler(func(string) error {
		if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
			c.log.Warn("error setting read deadline in pong handler", "error", err)
		}
		return nil
	})
}

// handleReadError logs the read failure at a level matching how expected
// it is. Every read error ends the connection.
func (c *Client) handleReadError(err error) {
	switch {
	case errors.Is(err, websocket.ErrReadLimit):
		c.log.Warn("frame exceeded maximum size", "limit", c.maxMessageSize)
	case websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseNoStatusReceived):
		c.log.Info("client disconnected", "reason", err)
	case errors.Is(err, io.EOF) || isExpectedCloseError(err):
		c.log.Info("connection closed", "reason", err)
	case websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure):
		c.log.Warn("unexpected websocket close", "error", err)
	default:
		c.log.Warn("websocket read error", "error", err)
	}
}

func (c *Client) checkRateLimit() bool {
	if c.rateLimiter != nil && !c.rateLimiter.allow() {
		c.log.Warn("rate limit exceeded, discarding frame",
			"burst", c.rateLimit.Burst, "interval", c.rateLimit.RefillInterval)
		return false
	}
	return true
}

func (c *Client) readPump() {
	defer func() {
		c.hub.leave(c)
		c.drop()
	}()

	c.setupReadConnection()

	for {
		msgType, payload, err := c.conn.ReadMessage()
		if err != nil {
			c.handleReadError(err)
			return
		}

		if msgType != websocket.TextMessage {
			c.log.Warn("ignoring non-text frame", "type", msgType)
			continue
		}

		if !c.checkRateLimit() {
			continue
		}

		c.hub.submit(inbound{client: c, payload: payload})
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.drop()
	}()

	for c.processWriteEvent(ticker) {
	}
}

// processWriteEvent waits for the next write event and returns false when the
// pump should stop processing.
func (c *Client) processWriteEvent(ticker *time.Ticker) bool {
	select {
	case message, ok := <-c.send:
		return c.handleMessage(message, ok)
	case <-ticker.C:
		return c.handlePing()
	}
}

// handleMessage writes one frame, or a close frame once the hub has
// closed the send channel. Each payload is its own text frame.
func (c *Client) handleMessage(message []byte, ok bool) bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.log.Warn("error setting write deadline", "error", err)
		return false
	}

	if !ok {
		if err := c.conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil && !isExpectedCloseError(err) {
			c.log.Warn("error writing close frame", "error", err)
		}
		return false
	}

	if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
		if !isExpectedCloseError(err) {
			c.log.Warn("error writing frame", "error", err)
		}
		return false
	}
	return true
}

func (c *Client) handlePing() bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.log.Warn("error setting write deadline for ping", "error", err)
		return false
	}
	if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
		if !isExpectedCloseError(err) {
			c.log.Warn("error writing ping", "error", err)
		}
		return false
	}
	return true
}
