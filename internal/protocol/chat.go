// Package protocol defines the JSON frames exchanged over the chat and
// document websocket endpoints, and the decoding rules applied at the
// connection boundary.
package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// TimeLayout is the ISO-8601 layout browsers emit from Date.toISOString.
const TimeLayout = "2006-01-02T15:04:05.000Z07:00"

var (
	// ErrMalformed is returned when a frame is not valid JSON or lacks
	// the fields its shape requires.
	ErrMalformed = errors.New("protocol: malformed payload")
	// ErrUnknownEvent is returned for document frames whose type tag is
	// not one of the client-to-server events.
	ErrUnknownEvent = errors.New("protocol: unknown event type")
)

// Now returns the current time formatted with TimeLayout in UTC.
func Now() string {
	return FormatTime(time.Now())
}

// FormatTime formats t with TimeLayout in UTC.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// ChatMessage is a single chat line. The same shape travels in both
// directions and is what the message log persists.
type ChatMessage struct {
	Author    string `json:"author"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
}

// DecodeChatMessage parses a chat frame. The frame must be a JSON object
// carrying author and content; a missing timestamp is left empty for the
// caller to fill.
func DecodeChatMessage(raw []byte) (ChatMessage, error) {
	if !isObject(raw) {
		return ChatMessage{}, fmt.Errorf("%w: chat frame is not an object", ErrMalformed)
	}

	var wire struct {
		Author    *string `json:"author"`
		Content   *string `json:"content"`
		Timestamp string  `json:"timestamp"`
	}
	if err := json.Unmarshal(raw, &wire); err != nil {
		return ChatMessage{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if wire.Author == nil || wire.Content == nil {
		return ChatMessage{}, fmt.Errorf("%w: chat frame needs author and content", ErrMalformed)
	}

	return ChatMessage{
		Author:    *wire.Author,
		Content:   *wire.Content,
		Timestamp: wire.Timestamp,
	}, nil
}

func isObject(raw []byte) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '{'
}
