package session

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/blake2b"
)

// ErrNotFound is returned when a session ID has no stored record.
var ErrNotFound = errors.New("session not found")

// Record is the persisted part of a session.
type Record struct {
	Token     string    `json:"token"`
	Username  string    `json:"username,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Store persists session records between requests.
type Store interface {
	Load(ctx context.Context, id string) (Record, error)
	Save(ctx context.Context, id string, record Record) error
	Delete(ctx context.Context, id string) error
	// Sweep removes expired records and returns the number removed. Stores
	// that expire records natively return zero.
	Sweep(ctx context.Context, now time.Time) (int, error)
}

// MemoryStore keeps sessions in process memory; they do not survive a restart.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]Record
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]Record),
		now:     time.Now,
	}
}

func (m *MemoryStore) Load(_ context.Context, id string) (Record, error) {
	m.mu.RLock()
	record, ok := m.records[id]
	m.mu.RUnlock()
	if !ok {
		return Record{}, ErrNotFound
	}
	if !record.ExpiresAt.IsZero() && m.now().After(record.ExpiresAt) {
		m.mu.Lock()
		delete(m.records, id)
		m.mu.Unlock()
		return Record{}, ErrNotFound
	}
	return record, nil
}

func (m *MemoryStore) Save(_ context.Context, id string, record Record) error {
	m.mu.Lock()
	m.records[id] = record
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	delete(m.records, id)
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Sweep(_ context.Context, now time.Time) (int, error) {
	removed := 0
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, record := range m.records {
		if !record.ExpiresAt.IsZero() && now.After(record.ExpiresAt) {
			delete(m.records, id)
			removed++
		}
	}
	return removed, nil
}

// RedisClient is the subset of go-redis client methods used by RedisStore.
type RedisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// RedisStore keeps sessions in Redis with the record's expiry as key TTL.
// Keys hold a digest of the session ID, never the ID itself.
type RedisStore struct {
	client RedisClient
	prefix string
	now    func() time.Time
}

func NewRedisStore(client RedisClient, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix + "session:", now: time.Now}
}

func (r *RedisStore) Load(ctx context.Context, id string) (Record, error) {
	raw, err := r.client.Get(ctx, r.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("load session: %w", err)
	}
	var record Record
	if err := json.Unmarshal(raw, &record); err != nil {
		return Record{}, fmt.Errorf("decode session: %w", err)
	}
	return record, nil
}

func (r *RedisStore) Save(ctx context.Context, id string, record Record) error {
	raw, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	var ttl time.Duration
	if !record.ExpiresAt.IsZero() {
		ttl = record.ExpiresAt.Sub(r.now())
		if ttl <= 0 {
			return r.Delete(ctx, id)
		}
	}
	if err := r.client.Set(ctx, r.key(id), raw, ttl).Err(); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (r *RedisStore) Delete(ctx context.Context, id string) error {
	if err := r.client.Del(ctx, r.key(id)).Err(); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (r *RedisStore) key(id string) string {
	return r.prefix + RedisKey(id)
}

// RedisKey is the digest a session ID is stored under.
func RedisKey(id string) string {
	sum := blake2b.Sum256([]byte(id))
	return hex.EncodeToString(sum[:16])
}

func (r *RedisStore) Sweep(context.Context, time.Time) (int, error) {
	return 0, nil
}
