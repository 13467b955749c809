// Package server defines shared payload types and utility helpers that
// are reused across client and hub logic.
package server

import "strings"

// Hub names, used as log and metric labels.
const (
	chatHubName     = "chat"
	documentHubName = "document"
)

// inbound is a frame read from a connection, or its close notice,
// queued for its hub's loop.
type inbound struct {
	client  *Client
	payload []byte
	closed  bool
}

// isExpectedCloseError checks if an error is expected during connection closure.
func isExpectedCloseError(err error) bool {
	if err == nil {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "use of closed network connection") ||
		strings.Contains(errStr, "websocket: close sent") ||
		strings.Contains(errStr, "broken pipe")
}
