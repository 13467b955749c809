package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/Tyrowin/gocollab/internal/document"
)

// DocumentStore mirrors the shared document to its own blob.
type DocumentStore struct {
	store   Store
	welcome string
	mu      sync.Mutex
}

// NewDocumentStore returns a document mirror; welcome is the content
// used when no document has been stored yet.
func NewDocumentStore(store Store, welcome string) *DocumentStore {
	return &DocumentStore{store: store, welcome: welcome}
}

// Load returns the stored document. When none exists the default
// document is written and returned. When the stored blob is unreadable
// the default document is returned together with the error, so callers
// can keep running on it.
func (d *DocumentStore) Load(ctx context.Context) (document.State, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	st, err := d.readLocked(ctx)
	if errors.Is(err, ErrNotFound) {
		return st, d.saveLocked(ctx, st)
	}
	return st, err
}

// Read is Load without the write: a missing document yields the default
// and nothing is stored.
func (d *DocumentStore) Read(ctx context.Context) (document.State, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	st, err := d.readLocked(ctx)
	if errors.Is(err, ErrNotFound) {
		return st, nil
	}
	return st, err
}

// readLocked returns the default document alongside any error.
func (d *DocumentStore) readLocked(ctx context.Context) (document.State, error) {
	raw, err := d.store.Get(ctx, DocumentKey)
	if err != nil {
		return document.New(d.welcome), err
	}

	var st document.State
	if err := json.Unmarshal(raw, &st); err != nil {
		return document.New(d.welcome), fmt.Errorf("%w: %s: %v", ErrCorrupt, DocumentKey, err)
	}
	st.Normalize()
	return st, nil
}

// Save replaces the stored document with st.
func (d *DocumentStore) Save(ctx context.Context, st document.State) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.saveLocked(ctx, st)
}

func (d *DocumentStore) saveLocked(ctx context.Context, st document.State) error {
	st.Normalize()
	raw, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}
	if err := d.store.Put(ctx, DocumentKey, raw); err != nil {
		return fmt.Errorf("save document: %w", err)
	}
	return nil
}
