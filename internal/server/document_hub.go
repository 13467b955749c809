package server

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Tyrowin/gocollab/internal/document"
	"github.com/Tyrowin/gocollab/internal/protocol"
	"github.com/Tyrowin/gocollab/internal/storage"
)

// DocumentHub owns the shared document. UPDATE replaces it outright,
// JOIN and LEAVE edit the presence set; every mutation is queued for
// persistence and its result broadcast to all document connections.
//
// Closing a connection does not remove its user from the presence set;
// only an explicit LEAVE does.
type DocumentHub struct {
	core  *hubCore
	store *storage.DocumentStore

	stateMu sync.RWMutex
	state   document.State
}

// NewDocumentHub builds a document hub seeded from store. If the stored
// document cannot be read the hub logs it and starts from the default.
func NewDocumentHub(ctx context.Context, store *storage.DocumentStore, cfg Config, metrics *Metrics, log *slog.Logger) *DocumentHub {
	core := newHubCore(documentHubName, cfg, metrics, log)

	state, err := store.Load(ctx)
	if err != nil {
		core.log.Error("failed to load document, starting from default", "error", err)
	}

	return &DocumentHub{
		core:  core,
		store: store,
		state: state,
	}
}

// Run starts the hub's event loop; call it in its own goroutine.
func (h *DocumentHub) Run() {
	h.core.run(h)
}

// Connect registers conn with the hub.
func (h *DocumentHub) Connect(conn *websocket.Conn, addr string) *Client {
	return h.core.connect(conn, addr)
}

// Shutdown closes every connection and flushes queued persistence.
func (h *DocumentHub) Shutdown(timeout time.Duration) error {
	return h.core.shutdown(timeout)
}

// Connections returns the number of live document connections.
func (h *DocumentHub) Connections() int {
	return h.core.Connections()
}

// Snapshot returns a copy of the current document.
func (h *DocumentHub) Snapshot() document.State {
	h.stateMu.RLock()
	defer h.stateMu.RUnlock()
	return h.state.Clone()
}

// onOpen pushes the full document to the new connection only.
func (h *DocumentHub) onOpen(c *Client) {
	payload, err := protocol.EncodeInitialState(h.Snapshot())
	if err != nil {
		h.core.log.Error("failed to encode initial state", "error", err)
		return
	}
	h.core.registry.SendTo(c, payload)
}

func (h *DocumentHub) onFrame(c *Client, payload []byte) {
	event, err := protocol.DecodeEvent(payload)
	if errors.Is(err, protocol.ErrUnknownEvent) {
		c.log.Debug("ignoring unknown document event", "error", err)
		return
	}
	if err != nil {
		h.core.metrics.protocolErrors.Inc()
		c.log.Warn("dropping invalid document frame", "error", err)
		return
	}

	switch e := event.(type) {
	case protocol.Update:
		h.applyUpdate(e)
	case protocol.Join:
		h.applyPresence(func(st *document.State) { st.Join(e.User) })
	case protocol.Leave:
		h.applyPresence(func(st *document.State) { st.Leave(e.User) })
	}
}

func (h *DocumentHub) applyUpdate(e protocol.Update) {
	editedAt := e.Timestamp
	if editedAt == "" {
		editedAt = protocol.Now()
	}

	snapshot := h.mutate(func(st *document.State) {
		st.Update(e.Content, e.Editor, editedAt)
	})

	payload, err := protocol.EncodeDocumentUpdate(snapshot)
	if err != nil {
		h.core.log.Error("failed to encode document update", "error", err)
		return
	}
	h.core.broadcast(payload)
}

// applyPresence persists and broadcasts the presence set even when the
// change was a no-op, so every client converges on the same membership
// view.
func (h *DocumentHub) applyPresence(change func(st *document.State)) {
	snapshot := h.mutate(change)

	payload, err := protocol.EncodeUsersUpdate(snapshot.Users())
	if err != nil {
		h.core.log.Error("failed to encode users update", "error", err)
		return
	}
	h.core.broadcast(payload)
}

// mutate applies change under the state lock, queues a save of the
// result and returns it.
func (h *DocumentHub) mutate(change func(st *document.State)) document.State {
	h.stateMu.Lock()
	change(&h.state)
	snapshot := h.state.Clone()
	h.stateMu.Unlock()

	h.core.persist.enqueue("document", func(ctx context.Context) error {
		return h.store.Save(ctx, snapshot)
	})
	return snapshot
}

var _ Hub = (*DocumentHub)(nil)
