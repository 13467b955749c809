package server

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/Tyrowin/gocollab/internal/protocol"
	"github.com/Tyrowin/gocollab/internal/storage"
	"github.com/Tyrowin/gocollab/internal/storage/mocks"
)

func newFileStore(t *testing.T) storage.Store {
	t.Helper()
	store, err := storage.NewFileStore(t.TempDir())
	require.NoError(t, err)
	return store
}

func startChatHub(t *testing.T, store storage.Store) (*ChatHub, *Metrics) {
	t.Helper()
	metrics := NewMetrics()
	hub := NewChatHub(context.Background(), storage.NewMessageLog(store), testConfig(), metrics, discardLogger())
	hub.core.startPumps = socketless
	go hub.Run()
	t.Cleanup(func() { _ = hub.Shutdown(time.Second) })
	return hub, metrics
}

func decodeChat(t *testing.T, payload []byte) protocol.ChatMessage {
	t.Helper()
	var msg protocol.ChatMessage
	require.NoError(t, json.Unmarshal(payload, &msg))
	return msg
}

// TestChatHubEchoesToEveryone verifies a message reaches all connections,
// its sender included, unchanged.
func TestChatHubEchoesToEveryone(t *testing.T) {
	hub, _ := startChatHub(t, newFileStore(t))
	a := hub.Connect(nil, "a")
	b := hub.Connect(nil, "b")

	send(a, `{"author":"ann","content":"hi","timestamp":"2024-01-01T00:00:00.000Z"}`)

	want := protocol.ChatMessage{Author: "ann", Content: "hi", Timestamp: "2024-01-01T00:00:00.000Z"}
	assert.Equal(t, want, decodeChat(t, recv(t, a)))
	assert.Equal(t, want, decodeChat(t, recv(t, b)))
}

// TestChatHubFillsMissingTimestamp verifies the server stamps messages
// that arrive without one.
func TestChatHubFillsMissingTimestamp(t *testing.T) {
	hub, _ := startChatHub(t, newFileStore(t))
	a := hub.Connect(nil, "a")

	send(a, `{"author":"ann","content":"hi"}`)

	got := decodeChat(t, recv(t, a))
	_, err := time.Parse(protocol.TimeLayout, got.Timestamp)
	assert.NoError(t, err)
}

// TestChatHubOrdering verifies every connection sees messages in the
// order the hub processed them, whichever connection sent them.
func TestChatHubOrdering(t *testing.T) {
	hub, _ := startChatHub(t, newFileStore(t))
	clients := []*Client{hub.Connect(nil, "a"), hub.Connect(nil, "b"), hub.Connect(nil, "c")}

	const n = 30
	for i := 0; i < n; i++ {
		send(clients[i%len(clients)], fmt.Sprintf(`{"author":"u%d","content":"%d"}`, i%len(clients), i))
	}

	for _, c := range clients {
		for i := 0; i < n; i++ {
			assert.Equal(t, fmt.Sprint(i), decodeChat(t, recv(t, c)).Content)
		}
	}
	assert.Len(t, hub.History(), n)
}

// TestChatHubReplaysHistory verifies a late joiner first receives exactly
// the messages processed before it, then live traffic.
func TestChatHubReplaysHistory(t *testing.T) {
	hub, _ := startChatHub(t, newFileStore(t))
	a := hub.Connect(nil, "a")

	for i := 0; i < 3; i++ {
		send(a, fmt.Sprintf(`{"author":"ann","content":"m%d"}`, i))
		recv(t, a)
	}

	late := hub.Connect(nil, "late")
	var replay []protocol.ChatMessage
	require.NoError(t, json.Unmarshal(recv(t, late), &replay))
	require.Len(t, replay, 3)
	for i, msg := range replay {
		assert.Equal(t, fmt.Sprintf("m%d", i), msg.Content)
	}

	send(a, `{"author":"ann","content":"live"}`)
	assert.Equal(t, "live", decodeChat(t, recv(t, late)).Content)
}

// TestChatHubNoReplayWhenEmpty verifies nothing is sent on connect while
// the history is empty.
func TestChatHubNoReplayWhenEmpty(t *testing.T) {
	hub, _ := startChatHub(t, newFileStore(t))
	a := hub.Connect(nil, "a")

	expectNothing(t, a)
}

// TestChatHubDropsInvalidFrames verifies undecodable frames are neither
// broadcast nor stored, are counted, and do not affect later frames.
func TestChatHubDropsInvalidFrames(t *testing.T) {
	hub, metrics := startChatHub(t, newFileStore(t))
	a := hub.Connect(nil, "a")

	send(a, `not json`)
	send(a, `{"content":"no author"}`)
	send(a, `["array"]`)
	expectNothing(t, a)

	send(a, `{"author":"ann","content":"ok"}`)
	assert.Equal(t, "ok", decodeChat(t, recv(t, a)).Content)

	assert.Len(t, hub.History(), 1)
	assert.Equal(t, 3.0, testutil.ToFloat64(metrics.protocolErrors.WithLabelValues(chatHubName)))
}

// TestChatHubPersistsAndReloads verifies messages survive a restart in
// the order they were processed.
func TestChatHubPersistsAndReloads(t *testing.T) {
	store := newFileStore(t)
	hub, _ := startChatHub(t, store)
	a := hub.Connect(nil, "a")

	for i := 0; i < 5; i++ {
		send(a, fmt.Sprintf(`{"author":"ann","content":"m%d"}`, i))
		recv(t, a)
	}
	require.NoError(t, hub.Shutdown(time.Second))

	stored, err := storage.NewMessageLog(store).LoadAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, hub.History(), stored)

	restarted, _ := startChatHub(t, store)
	late := restarted.Connect(nil, "late")
	var replay []protocol.ChatMessage
	require.NoError(t, json.Unmarshal(recv(t, late), &replay))
	assert.Equal(t, stored, replay)
}

// TestChatHubToleratesStorageFailure verifies broadcast proceeds when
// storage is down and the failure is counted.
func TestChatHubToleratesStorageFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockStore(ctrl)
	store.EXPECT().Get(gomock.Any(), storage.MessagesKey).Return(nil, storage.ErrUnavailable).AnyTimes()

	hub, metrics := startChatHub(t, store)
	a := hub.Connect(nil, "a")
	b := hub.Connect(nil, "b")

	send(a, `{"author":"ann","content":"still delivered"}`)
	assert.Equal(t, "still delivered", decodeChat(t, recv(t, a)).Content)
	assert.Equal(t, "still delivered", decodeChat(t, recv(t, b)).Content)

	require.NoError(t, hub.Shutdown(time.Second))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.persistFailures.WithLabelValues(chatHubName)))
}

// TestChatHubCloseStopsDelivery verifies a closed connection is removed
// and the others keep receiving.
func TestChatHubCloseStopsDelivery(t *testing.T) {
	hub, metrics := startChatHub(t, newFileStore(t))
	a := hub.Connect(nil, "a")
	b := hub.Connect(nil, "b")
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.connections.WithLabelValues(chatHubName)))

	b.hub.leave(b)
	assert.Eventually(t, func() bool { return hub.Connections() == 1 }, time.Second, 10*time.Millisecond)

	send(a, `{"author":"ann","content":"after"}`)
	assert.Equal(t, "after", decodeChat(t, recv(t, a)).Content)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.connections.WithLabelValues(chatHubName)))
}

// TestChatHubConnectReturnsRegistered verifies Connect does not return
// until the connection is counted by Connections and the gauge.
func TestChatHubConnectReturnsRegistered(t *testing.T) {
	hub, metrics := startChatHub(t, newFileStore(t))

	for i := 1; i <= 50; i++ {
		hub.Connect(nil, fmt.Sprint(i))
		require.Equal(t, i, hub.Connections())
		require.Equal(t, float64(i), testutil.ToFloat64(metrics.connections.WithLabelValues(chatHubName)))
	}
}
