// Package testhelpers provides common utilities for exercising the gocollab
// server over real HTTP and WebSocket connections in tests.
package testhelpers

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// TestOrigin is an origin the default configuration allows.
const TestOrigin = "http://localhost:8000"

// ReadTimeout bounds every helper read so a missing frame fails the test
// instead of hanging it.
const ReadTimeout = 2 * time.Second

// WebSocketURL turns an httptest server URL plus path into a ws:// URL.
func WebSocketURL(server *httptest.Server, path string) string {
	return "ws" + strings.TrimPrefix(server.URL, "http") + path
}

// ConnectWebSocket dials url with an allowed Origin header.
func ConnectWebSocket(url string) (*websocket.Conn, error) {
	return ConnectWebSocketWithOrigin(url, TestOrigin)
}

// ConnectWebSocketWithOrigin dials url sending origin, or no Origin
// header when origin is empty. The handshake response is returned so
// rejected upgrades can be asserted on.
func ConnectWebSocketWithOrigin(url, origin string) (*websocket.Conn, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: 5 * time.Second,
	}

	headers := http.Header{}
	if origin != "" {
		headers.Set("Origin", origin)
	}

	conn, resp, err := dialer.Dial(url, headers)
	if resp != nil {
		_ = resp.Body.Close()
	}
	return conn, err
}

// MustConnect dials url and registers the connection to be closed at the
// end of the test.
func MustConnect(t *testing.T, url string) *websocket.Conn {
	t.Helper()

	conn, err := ConnectWebSocket(url)
	if err != nil {
		t.Fatalf("Failed to connect to %s: %v", url, err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// SendJSON writes v as one text frame.
func SendJSON(t *testing.T, conn *websocket.Conn, v any) {
	t.Helper()
	if err := conn.WriteJSON(v); err != nil {
		t.Fatalf("Failed to write frame: %v", err)
	}
}

// SendRaw writes data as one text frame.
func SendRaw(t *testing.T, conn *websocket.Conn, data string) {
	t.Helper()
	if err := conn.WriteMessage(websocket.TextMessage, []byte(data)); err != nil {
		t.Fatalf("Failed to write frame: %v", err)
	}
}

// ReadFrame reads the next text frame within ReadTimeout.
func ReadFrame(t *testing.T, conn *websocket.Conn) []byte {
	t.Helper()
	if err := conn.SetReadDeadline(time.Now().Add(ReadTimeout)); err != nil {
		t.Fatalf("Failed to set read deadline: %v", err)
	}
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("Failed to read frame: %v", err)
	}
	return data
}

// ReadJSON reads the next frame into v.
func ReadJSON(t *testing.T, conn *websocket.Conn, v any) {
	t.Helper()
	data := ReadFrame(t, conn)
	if err := json.Unmarshal(data, v); err != nil {
		t.Fatalf("Failed to decode frame %s: %v", data, err)
	}
}

// ExpectNoMessage fails the test if a frame arrives within timeout.
// A timed-out read is permanent in gorilla/websocket, so conn cannot be
// read from afterwards; call it only as the last read on conn.
func ExpectNoMessage(t *testing.T, conn *websocket.Conn, timeout time.Duration) {
	t.Helper()
	if err := conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		t.Fatalf("Failed to set read deadline: %v", err)
	}
	_, data, err := conn.ReadMessage()
	if err == nil {
		t.Fatalf("Expected no message, but received %s", data)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return
	}
	if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		return
	}
	t.Fatalf("Unexpected error while waiting for absence of message: %v", err)
}

// ExpectClosed fails the test unless the server closes conn within timeout.
func ExpectClosed(t *testing.T, conn *websocket.Conn, timeout time.Duration) {
	t.Helper()
	if err := conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		t.Fatalf("Failed to set read deadline: %v", err)
	}
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				t.Fatalf("Connection was not closed within %v", timeout)
			}
			return
		}
	}
}

// CloseWebSocket sends a normal close frame and closes the connection.
func CloseWebSocket(conn *websocket.Conn) error {
	err := conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	if err != nil {
		return err
	}
	return conn.Close()
}
