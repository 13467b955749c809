package server

import (
	"log/slog"
	"sync"
)

// Registry is the set of live connections of one hub. Register and
// Unregister come from the hub loop; Broadcast and SendTo may be called
// from anywhere.
type Registry struct {
	clients map[*Client]struct{}
	mutex   sync.RWMutex
	log     *slog.Logger
}

// NewRegistry returns an empty registry.
func NewRegistry(log *slog.Logger) *Registry {
	if log == nil {
		log = slog.Default()
	}
	return &Registry{
		clients: make(map[*Client]struct{}),
		log:     log,
	}
}

// Register adds c and marks it live.
func (r *Registry) Register(c *Client) int {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	c.closed = false
	r.clients[c] = struct{}{}
	return len(r.clients)
}

// Unregister removes c, marks it closed and closes its send channel so
// the write pump finishes. Removing an absent client is a no-op; the
// return value reports whether c was present.
func (r *Registry) Unregister(c *Client) bool {
	r.mutex.Lock()
	if _, ok := r.clients[c]; !ok {
		r.mutex.Unlock()
		return false
	}
	delete(r.clients, c)
	c.closed = true
	r.mutex.Unlock()

	// Close the channel after releasing the lock
	close(c.send)
	return true
}

// Contains reports whether c is registered and live.
func (r *Registry) Contains(c *Client) bool {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	_, ok := r.clients[c]
	return ok && !c.closed
}

// Len returns the number of registered clients.
func (r *Registry) Len() int {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return len(r.clients)
}

// Snapshot returns the registered clients in no particular order.
func (r *Registry) Snapshot() []*Client {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	clients := make([]*Client, 0, len(r.clients))
	for client := range r.clients {
		clients = append(clients, client)
	}
	return clients
}

// SendTo queues payload for c alone.
func (r *Registry) SendTo(c *Client, payload []byte) bool {
	return r.safeSend(c, payload)
}

// Broadcast queues payload for every live client accepted by keep (all
// of them when keep is nil) and returns how many took it. Clients that
// closed meanwhile are passed over. A client whose queue is full is
// dropped; its removal happens on its own close path.
//
// Each client queue is FIFO, so successive Broadcast calls from one
// goroutine reach every receiver in the same relative order.
func (r *Registry) Broadcast(payload []byte, keep func(*Client) bool) int {
	delivered := 0
	for _, client := range r.Snapshot() {
		if keep != nil && !keep(client) {
			continue
		}
		if r.safeSend(client, payload) {
			delivered++
		}
	}
	return delivered
}

func (r *Registry) safeSend(client *Client, payload []byte) bool {
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error("recovered from panic in safeSend", "panic", rec)
		}
	}()

	// Hold the lock during the entire send operation to prevent racing Unregister's close
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	if _, exists := r.clients[client]; !exists || client.closed {
		return false
	}

	select {
	case client.send <- payload:
		return true
	default:
		client.log.Warn("send buffer full, dropping slow client")
		go client.drop()
		return false
	}
}

// CloseAll closes every socket and unregisters every client. Used on
// shutdown, when the hub loop is no longer around to process leaves.
func (r *Registry) CloseAll() int {
	clients := r.Snapshot()
	for _, client := range clients {
		client.drop()
	}
	for _, client := range clients {
		r.Unregister(client)
	}
	return len(clients)
}
