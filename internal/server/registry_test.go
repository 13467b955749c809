package server

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestRegistryRegisterUnregister verifies membership bookkeeping and that
// unregistering closes the client's send channel exactly once.
func TestRegistryRegisterUnregister(t *testing.T) {
	r := NewRegistry(discardLogger())
	a, b := newTestClient(t), newTestClient(t)

	assert.Equal(t, 1, r.Register(a))
	assert.Equal(t, 2, r.Register(b))
	assert.True(t, r.Contains(a))
	assert.Equal(t, 2, r.Len())

	require.True(t, r.Unregister(a))
	assert.False(t, r.Contains(a))
	assert.Equal(t, 1, r.Len())

	_, open := <-a.GetSendChan()
	assert.False(t, open, "send channel should be closed")

	assert.False(t, r.Unregister(a), "second unregister is a no-op")
}

// TestRegistryBroadcast verifies every registered client receives the
// payload and the keep filter is honoured.
func TestRegistryBroadcast(t *testing.T) {
	r := NewRegistry(discardLogger())
	a, b, c := newTestClient(t), newTestClient(t), newTestClient(t)
	r.Register(a)
	r.Register(b)
	r.Register(c)

	assert.Equal(t, 3, r.Broadcast([]byte("all"), nil))
	for _, client := range []*Client{a, b, c} {
		assert.Equal(t, "all", string(<-client.GetSendChan()))
	}

	delivered := r.Broadcast([]byte("not-b"), func(client *Client) bool { return client != b })
	assert.Equal(t, 2, delivered)
	assert.Equal(t, "not-b", string(<-a.GetSendChan()))
	assert.Equal(t, "not-b", string(<-c.GetSendChan()))
	assert.Empty(t, b.GetSendChan())
}

// TestRegistryBroadcastPreservesOrder verifies successive broadcasts
// arrive at every receiver in the order they were made.
func TestRegistryBroadcastPreservesOrder(t *testing.T) {
	r := NewRegistry(discardLogger())
	clients := []*Client{newTestClient(t), newTestClient(t)}
	for _, c := range clients {
		r.Register(c)
	}

	for _, p := range []string{"1", "2", "3"} {
		r.Broadcast([]byte(p), nil)
	}
	for _, c := range clients {
		assert.Equal(t, "1", string(<-c.GetSendChan()))
		assert.Equal(t, "2", string(<-c.GetSendChan()))
		assert.Equal(t, "3", string(<-c.GetSendChan()))
	}
}

// TestRegistrySendToUnregistered verifies sends to a removed client are
// skipped rather than panicking on its closed channel.
func TestRegistrySendToUnregistered(t *testing.T) {
	r := NewRegistry(discardLogger())
	a := newTestClient(t)
	r.Register(a)
	r.Unregister(a)

	assert.False(t, r.SendTo(a, []byte("late")))
	assert.Equal(t, 0, r.Broadcast([]byte("late"), nil))
}

// TestRegistrySlowClient verifies a client with a full queue is passed
// over without blocking the others.
func TestRegistrySlowClient(t *testing.T) {
	r := NewRegistry(discardLogger())
	slow, fast := newTestClient(t), newTestClient(t)
	r.Register(slow)
	r.Register(fast)

	for i := 0; i < sendBufferSize; i++ {
		require.True(t, r.SendTo(slow, []byte("fill")))
	}

	assert.Equal(t, 1, r.Broadcast([]byte("next"), nil))
	assert.Equal(t, "next", string(<-fast.GetSendChan()))
}

// TestRegistryConcurrentBroadcastAndUnregister exercises the send/close
// race under the race detector.
func TestRegistryConcurrentBroadcastAndUnregister(t *testing.T) {
	r := NewRegistry(discardLogger())
	clients := make([]*Client, 20)
	for i := range clients {
		clients[i] = newTestClient(t)
		r.Register(clients[i])
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			r.Broadcast([]byte("x"), nil)
		}
	}()
	go func() {
		defer wg.Done()
		for _, c := range clients {
			r.Unregister(c)
		}
	}()
	wg.Wait()

	assert.Equal(t, 0, r.Len())
}

// TestRegistryCloseAll verifies shutdown empties the registry.
func TestRegistryCloseAll(t *testing.T) {
	r := NewRegistry(discardLogger())
	r.Register(newTestClient(t))
	r.Register(newTestClient(t))

	assert.Equal(t, 2, r.CloseAll())
	assert.Equal(t, 0, r.Len())
}
