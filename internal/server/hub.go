// Package server coordinates client registration, frame dispatch, and
// connection cleanup for the gocollab WebSocket hubs.
package server

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Hub is what the HTTP layer needs from the chat and document hubs.
type Hub interface {
	Connect(conn *websocket.Conn, addr string) *Client
	Run()
	Shutdown(timeout time.Duration) error
	Connections() int
}

// frameHandler is the hub-specific half of the event loop.
type frameHandler interface {
	// onOpen runs after c is registered and before its pumps start.
	onOpen(c *Client)
	// onFrame runs for every frame read from a live c.
	onFrame(c *Client, payload []byte)
}

// hubCore owns the connection lifecycle shared by both hubs. All
// register, unregister and inbound events are handled one at a time by
// run, so the frameHandler never sees two callbacks concurrently.
type hubCore struct {
	name     string
	cfg      Config
	registry *Registry
	register chan registration
	inbound  chan inbound
	persist  *persistQueue
	metrics  hubMetrics
	log      *slog.Logger
	wg       sync.WaitGroup
	ctx      context.Context
	cancel   context.CancelFunc
	done     chan struct{}
	stateMu  sync.Mutex
	running  bool
	stopped  bool

	// startPumps launches a registered client's read and write pumps.
	startPumps func(c *Client)
}

// registration hands a new client to the loop; done is closed once the
// client is registered and its initial frames are queued.
type registration struct {
	client *Client
	done   chan struct{}
}

func newHubCore(name string, cfg Config, metrics *Metrics, log *slog.Logger) *hubCore {
	if log == nil {
		log = slog.Default()
	}
	if metrics == nil {
		metrics = NewMetrics()
	}
	log = log.With("hub", name)
	hm := metrics.forHub(name)

	ctx, cancel := context.WithCancel(context.Background())
	h := &hubCore{
		name:     name,
		cfg:      cfg,
		registry: NewRegistry(log),
		register: make(chan registration),
		inbound:  make(chan inbound, sendBufferSize),
		persist:  newPersistQueue(cfg.PersistQueueSize, hm.persistFailures, log),
		metrics:  hm,
		log:      log,
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	h.startPumps = h.runPumps
	return h
}

// connect wraps conn in a Client and hands it to the loop. It returns
// once the client is registered and counted, with its pumps started.
func (h *hubCore) connect(conn *websocket.Conn, addr string) *Client {
	client := NewClient(conn, h, addr, h.cfg, h.log)
	reg := registration{client: client, done: make(chan struct{})}
	select {
	case h.register <- reg:
		<-reg.done
	case <-h.ctx.Done():
		client.drop()
	}
	return client
}

func (h *hubCore) submit(msg inbound) {
	select {
	case h.inbound <- msg:
	case <-h.ctx.Done():
	}
}

// leave travels on the inbound queue so every frame a client read
// before closing is handled before its unregistration.
func (h *hubCore) leave(c *Client) {
	h.submit(inbound{client: c, closed: true})
}

// run is the hub's event loop. It returns after Shutdown.
func (h *hubCore) run(handler frameHandler) {
	h.stateMu.Lock()
	if h.stopped || h.running {
		h.stateMu.Unlock()
		return
	}
	h.running = true
	h.stateMu.Unlock()
	defer close(h.done)

	for {
		if h.ctx.Err() != nil {
			h.shutdownClients()
			return
		}

		select {
		case <-h.ctx.Done():
			h.shutdownClients()
			return

		case reg := <-h.register:
			h.openClient(reg.client, handler)
			close(reg.done)

		case msg := <-h.inbound:
			if msg.closed {
				h.closeClient(msg.client)
				continue
			}
			// Frames from a client that was already dropped are discarded.
			if !h.registry.Contains(msg.client) {
				continue
			}
			handler.onFrame(msg.client, msg.payload)
		}
	}
}

func (h *hubCore) openClient(client *Client, handler frameHandler) {
	total := h.registry.Register(client)
	h.metrics.connections.Inc()
	h.log.Info("client registered", "conn", client.id.String(), "addr", client.addr, "total", total)

	handler.onOpen(client)
	h.startPumps(client)
}

func (h *hubCore) runPumps(client *Client) {
	h.wg.Add(2)
	go func() {
		defer h.wg.Done()
		client.writePump()
	}()
	go func() {
		defer h.wg.Done()
		client.readPump()
	}()
}

func (h *hubCore) closeClient(client *Client) {
	if !h.registry.Unregister(client) {
		return
	}
	h.metrics.connections.Dec()
	h.log.Info("client unregistered", "conn", client.id.String(), "addr", client.addr, "total", h.registry.Len())
}

// broadcast fans payload out to every live connection, sender included.
func (h *hubCore) broadcast(payload []byte) int {
	delivered := h.registry.Broadcast(payload, nil)
	h.metrics.broadcasts.Inc()
	h.log.Debug("broadcast", "receivers", delivered)
	return delivered
}

func (h *hubCore) shutdownClients() {
	closed := h.registry.CloseAll()
	h.metrics.connections.Sub(float64(closed))
	h.log.Info("closed client connections", "count", closed)
}

// shutdown stops the loop, waits for pumps up to timeout, then drains
// pending persistence.
func (h *hubCore) shutdown(timeout time.Duration) error {
	h.log.Info("initiating hub shutdown")

	h.stateMu.Lock()
	h.stopped = true
	running := h.running
	h.stateMu.Unlock()

	h.cancel()
	if running {
		<-h.done
	} else {
		h.shutdownClients()
	}

	waited := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(waited)
	}()

	var err error
	select {
	case <-waited:
	case <-time.After(timeout):
		h.log.Warn("hub shutdown timeout reached, some goroutines may still be running")
		err = context.DeadlineExceeded
	}

	h.persist.close()
	if err == nil {
		h.log.Info("hub shutdown completed")
	}
	return err
}

// Connections returns the number of registered clients.
func (h *hubCore) Connections() int {
	return h.registry.Len()
}
