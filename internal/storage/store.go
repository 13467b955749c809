//go:generate go run go.uber.org/mock/mockgen -source=store.go -destination=mocks/mock_store.go -package=mocks

// Package storage persists the chat log, the user list and the shared
// document as whole JSON blobs behind a small key-value Store.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
)

// Blob keys.
const (
	MessagesKey = "messages"
	DocumentKey = "document"
)

// Driver names accepted by Open.
const (
	DriverFile   = "file"
	DriverBadger = "badger"
	DriverRedis  = "redis"
)

var (
	// ErrNotFound is returned by Store.Get when the key has never been
	// written.
	ErrNotFound = errors.New("storage: key not found")
	// ErrUnavailable wraps backend failures that leave the store unusable.
	ErrUnavailable = errors.New("storage: backend unavailable")
	// ErrCorrupt is returned when a stored blob cannot be decoded.
	ErrCorrupt = errors.New("storage: malformed blob")
	// ErrUnknownDriver is returned by Open for an unrecognized driver.
	ErrUnknownDriver = errors.New("storage: unknown driver")
)

// Store reads and replaces whole blobs by key. Put must be atomic: a
// concurrent or later Get sees either the old or the new value, never a
// partial write.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Close() error
}

// Options selects and configures a Store backend.
type Options struct {
	Driver        string
	DataDir       string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// Open builds the Store named by opts.Driver. An empty driver means file.
func Open(ctx context.Context, opts Options) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(opts.Driver)) {
	case "", DriverFile:
		return NewFileStore(opts.DataDir)
	case DriverBadger:
		return OpenBadgerStore(opts.DataDir)
	case DriverRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     opts.RedisAddr,
			Password: opts.RedisPassword,
			DB:       opts.RedisDB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("%w: redis ping %s: %v", ErrUnavailable, opts.RedisAddr, err)
		}
		return NewRedisStore(client), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, opts.Driver)
	}
}
