// Package server exposes HTTP handlers, including the two WebSocket
// upgrades, the login lookup, and health checks.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/Tyrowin/gocollab/internal/storage"
)

const healthText = "gocollab server is running"

// UserFinder resolves a login to a persisted user.
type UserFinder interface {
	FindUser(ctx context.Context, name, email string) (storage.User, error)
}

// Handlers holds what the HTTP endpoints dispatch to.
type Handlers struct {
	chat     Hub
	document Hub
	users    UserFinder
	upgrader websocket.Upgrader
	log      *slog.Logger
}

// NewHandlers builds the endpoint handlers. Both WebSocket upgrades are
// gated by origins.
func NewHandlers(chat, document Hub, users UserFinder, origins *originPolicy, log *slog.Logger) *Handlers {
	return &Handlers{
		chat:     chat,
		document: document,
		users:    users,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     origins.checkOrigin,
		},
		log: log,
	}
}

// Chat upgrades to the chat hub. A plain GET without an upgrade gets the
// health text instead.
func (h *Handlers) Chat(c *gin.Context) {
	if !websocket.IsWebSocketUpgrade(c.Request) {
		c.String(http.StatusOK, healthText)
		return
	}
	h.upgrade(c, h.chat)
}

// Document upgrades to the document hub.
func (h *Handlers) Document(c *gin.Context) {
	h.upgrade(c, h.document)
}

func (h *Handlers) upgrade(c *gin.Context, hub Hub) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade has already written the error response.
		h.log.Warn("websocket upgrade failed", "path", c.Request.URL.Path, "addr", c.ClientIP(), "error", err)
		return
	}
	hub.Connect(conn, c.Request.RemoteAddr)
}

type loginRequest struct {
	Name  string `json:"name" binding:"required"`
	Email string `json:"email" binding:"required"`
}

// Login looks up the user by name and email. A match answers 201 with
// the user record, no match answers 404 with no body.
func (h *Handlers) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name and email are required"})
		return
	}

	user, err := h.users.FindUser(c.Request.Context(), req.Name, req.Email)
	switch {
	case errors.Is(err, storage.ErrUserNotFound):
		c.Status(http.StatusNotFound)
	case err != nil:
		h.log.Error("login lookup failed", "error", err)
		c.Status(http.StatusInternalServerError)
	default:
		c.JSON(http.StatusCreated, gin.H{"user": user})
	}
}

// Health reports liveness and per-hub connection counts.
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"connections": gin.H{
			chatHubName:     h.chat.Connections(),
			documentHubName: h.document.Connections(),
		},
	})
}
