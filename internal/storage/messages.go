package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/Tyrowin/gocollab/internal/protocol"
)

// User is a persisted login identity.
type User struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type messagesBlob struct {
	Messages []protocol.ChatMessage `json:"messages"`
	Users    []User                 `json:"users"`
}

// MessageLog is the append-only chat history. It shares its blob with
// the user list, so every write is a read-modify-write of the whole
// blob; mu serializes those so concurrent appends cannot drop each
// other.
type MessageLog struct {
	store Store
	mu    sync.Mutex
}

// NewMessageLog returns a log backed by store.
func NewMessageLog(store Store) *MessageLog {
	return &MessageLog{store: store}
}

// EnsureDefaults writes an empty {messages, users} blob when none exists.
func (l *MessageLog) EnsureDefaults(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	_, err := l.store.Get(ctx, MessagesKey)
	if err == nil {
		return nil
	}
	if !errors.Is(err, ErrNotFound) {
		return err
	}
	return l.writeLocked(ctx, messagesBlob{})
}

// LoadAll returns every stored message in append order, or an empty
// slice when nothing has been written yet.
func (l *MessageLog) LoadAll(ctx context.Context) ([]protocol.ChatMessage, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	blob, err := l.readLocked(ctx)
	if err != nil {
		return nil, err
	}
	return blob.Messages, nil
}

// Append adds msg to the end of the log and persists the whole blob.
func (l *MessageLog) Append(ctx context.Context, msg protocol.ChatMessage) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	blob, err := l.readLocked(ctx)
	if err != nil {
		return fmt.Errorf("append message: %w", err)
	}
	blob.Messages = append(blob.Messages, msg)
	if err := l.writeLocked(ctx, blob); err != nil {
		return fmt.Errorf("append message: %w", err)
	}
	return nil
}

// Users returns the persisted user list.
func (l *MessageLog) Users(ctx context.Context) ([]User, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	blob, err := l.readLocked(ctx)
	if err != nil {
		return nil, err
	}
	return blob.Users, nil
}

// AddUser appends u to the user list. If a user with the same email is
// already there nothing is written and ErrUserExists is returned.
func (l *MessageLog) AddUser(ctx context.Context, u User) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	blob, err := l.readLocked(ctx)
	if err != nil {
		return fmt.Errorf("add user: %w", err)
	}
	for _, existing := range blob.Users {
		if sameEmail(existing.Email, u.Email) {
			return fmt.Errorf("%w: %s", ErrUserExists, u.Email)
		}
	}
	blob.Users = append(blob.Users, u)
	return l.writeLocked(ctx, blob)
}

func (l *MessageLog) readLocked(ctx context.Context) (messagesBlob, error) {
	raw, err := l.store.Get(ctx, MessagesKey)
	if errors.Is(err, ErrNotFound) {
		return messagesBlob{Messages: []protocol.ChatMessage{}, Users: []User{}}, nil
	}
	if err != nil {
		return messagesBlob{}, err
	}

	var blob messagesBlob
	if err := json.Unmarshal(raw, &blob); err != nil {
		return messagesBlob{}, fmt.Errorf("%w: %s: %v", ErrCorrupt, MessagesKey, err)
	}
	if blob.Messages == nil {
		blob.Messages = []protocol.ChatMessage{}
	}
	if blob.Users == nil {
		blob.Users = []User{}
	}
	return blob, nil
}

func (l *MessageLog) writeLocked(ctx context.Context, blob messagesBlob) error {
	if blob.Messages == nil {
		blob.Messages = []protocol.ChatMessage{}
	}
	if blob.Users == nil {
		blob.Users = []User{}
	}
	raw, err := json.MarshalIndent(blob, "", "  ")
	if err != nil {
		return err
	}
	return l.store.Put(ctx, MessagesKey, raw)
}
