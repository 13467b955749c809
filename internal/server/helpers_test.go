package server

import (
	"io"
	"log/slog"
	"testing"
	"time"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// testConfig is the default config with a rate limit loose enough that
// tests never trip it.
func testConfig() Config {
	cfg := defaultConfig()
	cfg.RateLimit = RateLimitConfig{Burst: 1000, RefillInterval: time.Second}
	return cfg
}

// socketless replaces a hub's pump launcher for clients built without a
// websocket; tests drive them through send and recv instead.
func socketless(*Client) {}

func newTestClient(t *testing.T) *Client {
	t.Helper()
	return NewClient(nil, nil, "test", testConfig(), discardLogger())
}

// recv returns the next frame queued for c.
func recv(t *testing.T, c *Client) []byte {
	t.Helper()
	select {
	case payload, ok := <-c.GetSendChan():
		if !ok {
			t.Fatal("send channel closed")
		}
		return payload
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for frame")
		return nil
	}
}

// expectNothing fails if a frame is queued for c within a short window.
func expectNothing(t *testing.T, c *Client) {
	t.Helper()
	select {
	case payload := <-c.GetSendChan():
		t.Fatalf("unexpected frame %s", payload)
	case <-time.After(100 * time.Millisecond):
	}
}

// send queues payload as if c's read pump had read it.
func send(c *Client, payload string) {
	c.hub.submit(inbound{client: c, payload: []byte(payload)})
}
