// Package cache holds the list snapshots each session keeps between page
// visits so tables render from the last successful fetch while a new one runs.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
)

// ErrMiss is returned by Store.Get when the key is absent or expired.
var ErrMiss = errors.New("cache miss")

// Store is a byte-oriented key/value store with per-key expiry.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	DeletePrefix(ctx context.Context, prefix string) error
}

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// MemoryStore keeps entries in process memory. A zero TTL never expires.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

func (m *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	entry, ok := m.entries[key]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrMiss
	}
	if !entry.expiresAt.IsZero() && !m.now().Before(entry.expiresAt) {
		m.mu.Lock()
		delete(m.entries, key)
		m.mu.Unlock()
		return nil, ErrMiss
	}
	value := make([]byte, len(entry.value))
	copy(value, entry.value)
	return value, nil
}

func (m *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	entry := memoryEntry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		entry.expiresAt = m.now().Add(ttl)
	}
	m.mu.Lock()
	m.entries[key] = entry
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.entries, key)
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) DeletePrefix(_ context.Context, prefix string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key := range m.entries {
		if strings.HasPrefix(key, prefix) {
			delete(m.entries, key)
		}
	}
	return nil
}

// Sweep drops expired entries and reports how many were removed.
func (m *MemoryStore) Sweep(_ context.Context) (int, error) {
	now := m.now()
	removed := 0
	m.mu.Lock()
	defer m.mu.Unlock()
	for key, entry := range m.entries {
		if !entry.expiresAt.IsZero() && !now.Before(entry.expiresAt) {
			delete(m.entries, key)
			removed++
		}
	}
	return removed, nil
}

// Namespace scopes a Store to one owner (a session) so the owner's entries can
// be dropped together on teardown.
type Namespace struct {
	store  Store
	prefix string
	ttl    time.Duration
}

func NewNamespace(store Store, owner string, ttl time.Duration) Namespace {
	return Namespace{store: store, prefix: "list:" + owner + ":", ttl: ttl}
}

func (n Namespace) key(name string) string {
	return n.prefix + name
}

// LoadJSON decodes the entry named name into dst. It reports false on a miss.
func (n Namespace) LoadJSON(ctx context.Context, name string, dst any) (bool, error) {
	if n.store == nil {
		return false, nil
	}
	raw, err := n.store.Get(ctx, n.key(name))
	if errors.Is(err, ErrMiss) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("cache get %s: %w", name, err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, fmt.Errorf("cache decode %s: %w", name, err)
	}
	return true, nil
}

func (n Namespace) StoreJSON(ctx context.Context, name string, value any) error {
	if n.store == nil {
		return nil
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache encode %s: %w", name, err)
	}
	if err := n.store.Set(ctx, n.key(name), raw, n.ttl); err != nil {
		return fmt.Errorf("cache set %s: %w", name, err)
	}
	return nil
}

// Clear removes every entry in the namespace.
func (n Namespace) Clear(ctx context.Context) error {
	if n.store == nil {
		return nil
	}
	return n.store.DeletePrefix(ctx, n.prefix)
}
