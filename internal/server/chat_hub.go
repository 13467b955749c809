package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Tyrowin/gocollab/internal/protocol"
	"github.com/Tyrowin/gocollab/internal/storage"
)

// ChatHub relays chat messages: every accepted message is appended to
// the history, queued for persistence and broadcast to all connections,
// its sender included.
type ChatHub struct {
	core     *hubCore
	messages *storage.MessageLog

	// history is the authoritative log; storage mirrors it.
	historyMu sync.RWMutex
	history   []protocol.ChatMessage
}

// NewChatHub builds a chat hub seeded with the persisted history. A
// history that cannot be loaded is logged and the hub starts empty.
func NewChatHub(ctx context.Context, messages *storage.MessageLog, cfg Config, metrics *Metrics, log *slog.Logger) *ChatHub {
	core := newHubCore(chatHubName, cfg, metrics, log)

	history, err := messages.LoadAll(ctx)
	if err != nil {
		core.log.Error("failed to load chat history, starting empty", "error", err)
		history = nil
	}

	return &ChatHub{
		core:     core,
		messages: messages,
		history:  history,
	}
}

// Run starts the hub's event loop; call it in its own goroutine.
func (h *ChatHub) Run() {
	h.core.run(h)
}

// Connect registers conn with the hub.
func (h *ChatHub) Connect(conn *websocket.Conn, addr string) *Client {
	return h.core.connect(conn, addr)
}

// Shutdown closes every connection and flushes queued persistence.
func (h *ChatHub) Shutdown(timeout time.Duration) error {
	return h.core.shutdown(timeout)
}

// Connections returns the number of live chat connections.
func (h *ChatHub) Connections() int {
	return h.core.Connections()
}

// History returns a copy of the messages processed so far, in order.
func (h *ChatHub) History() []protocol.ChatMessage {
	h.historyMu.RLock()
	defer h.historyMu.RUnlock()

	out := make([]protocol.ChatMessage, len(h.history))
	copy(out, h.history)
	return out
}

// onOpen replays the history to the new connection only.
func (h *ChatHub) onOpen(c *Client) {
	h.historyMu.RLock()
	if len(h.history) == 0 {
		h.historyMu.RUnlock()
		return
	}
	payload, err := json.Marshal(h.history)
	h.historyMu.RUnlock()

	if err != nil {
		h.core.log.Error("failed to encode chat history", "error", err)
		return
	}
	h.core.registry.SendTo(c, payload)
}

func (h *ChatHub) onFrame(c *Client, payload []byte) {
	msg, err := protocol.DecodeChatMessage(payload)
	if err != nil {
		h.core.metrics.protocolErrors.Inc()
		c.log.Warn("dropping invalid chat frame", "error", err)
		return
	}
	if msg.Timestamp == "" {
		msg.Timestamp = protocol.Now()
	}

	h.historyMu.Lock()
	h.history = append(h.history, msg)
	h.historyMu.Unlock()

	h.core.persist.enqueue("chat message", func(ctx context.Context) error {
		return h.messages.Append(ctx, msg)
	})

	out, err := json.Marshal(msg)
	if err != nil {
		h.core.log.Error("failed to encode chat message", "error", err)
		return
	}
	h.core.broadcast(out)
}

var _ Hub = (*ChatHub)(nil)
