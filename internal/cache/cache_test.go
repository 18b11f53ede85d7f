package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type row struct {
	ID     string `json:"_id"`
	Status string `json:"status"`
}

func newTestRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisStore(client, "test:"), mr
}

func TestMemoryStoreExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	store := NewMemoryStore()
	store.now = func() time.Time { return now }

	if err := store.Set(ctx, "k", []byte("v"), time.Minute); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := store.Set(ctx, "forever", []byte("v"), 0); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	value, err := store.Get(ctx, "k")
	if err != nil || string(value) != "v" {
		t.Fatalf("expected hit, got %q, %v", value, err)
	}

	now = now.Add(2 * time.Minute)
	if _, err := store.Get(ctx, "k"); !errors.Is(err, ErrMiss) {
		t.Fatalf("expected miss after expiry, got %v", err)
	}
	removed, err := store.Sweep(ctx)
	if err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}
	if removed != 0 {
		t.Fatalf("expected expired key to be gone already, removed %d", removed)
	}
	if _, err := store.Get(ctx, "forever"); err != nil {
		t.Fatalf("expected zero ttl entry to persist, got %v", err)
	}
}

func TestNamespaceRoundTripAndClear(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	first := NewNamespace(store, "sess-a", time.Hour)
	second := NewNamespace(store, "sess-b", time.Hour)

	rows := []row{{ID: "b1", Status: "pending"}}
	if err := first.StoreJSON(ctx, "bookings", rows); err != nil {
		t.Fatalf("StoreJSON failed: %v", err)
	}
	if err := second.StoreJSON(ctx, "bookings", rows); err != nil {
		t.Fatalf("StoreJSON failed: %v", err)
	}

	var loaded []row
	ok, err := first.LoadJSON(ctx, "bookings", &loaded)
	if err != nil || !ok {
		t.Fatalf("expected hit, got ok=%t err=%v", ok, err)
	}
	if len(loaded) != 1 || loaded[0] != rows[0] {
		t.Fatalf("unexpected rows: %+v", loaded)
	}

	if err := first.Clear(ctx); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	ok, err = first.LoadJSON(ctx, "bookings", &loaded)
	if err != nil || ok {
		t.Fatalf("expected miss after clear, got ok=%t err=%v", ok, err)
	}
	ok, err = second.LoadJSON(ctx, "bookings", &loaded)
	if err != nil || !ok {
		t.Fatalf("expected other namespace to survive, got ok=%t err=%v", ok, err)
	}
}

func TestRedisStoreGetSetDelete(t *testing.T) {
	ctx := context.Background()
	store, mr := newTestRedisStore(t)

	if err := store.Set(ctx, "mykey", []byte("myvalue"), time.Hour); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if !mr.Exists("test:mykey") {
		t.Fatalf("expected prefixed key in redis, got keys: %v", mr.Keys())
	}
	if ttl := mr.TTL("test:mykey"); ttl <= 0 {
		t.Errorf("expected positive TTL, got %v", ttl)
	}

	value, err := store.Get(ctx, "mykey")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(value) != "myvalue" {
		t.Errorf("expected %q, got %q", "myvalue", value)
	}

	if err := store.Delete(ctx, "mykey"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := store.Get(ctx, "mykey"); !errors.Is(err, ErrMiss) {
		t.Fatalf("expected ErrMiss after delete, got %v", err)
	}
}

func TestRedisStoreDeletePrefix(t *testing.T) {
	ctx := context.Background()
	store, mr := newTestRedisStore(t)
	ns := NewNamespace(store, "sess-a", time.Hour)

	for _, name := range []string{"bookings", "insurance", "requests"} {
		if err := ns.StoreJSON(ctx, name, []row{{ID: name}}); err != nil {
			t.Fatalf("StoreJSON failed: %v", err)
		}
	}
	if err := store.Set(ctx, "list:sess-b:bookings", []byte("[]"), 0); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	if err := ns.Clear(ctx); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	keys := mr.Keys()
	if len(keys) != 1 || keys[0] != "test:list:sess-b:bookings" {
		t.Fatalf("expected only the other session's key, got %v", keys)
	}
}

func TestRedisStoreDeletePrefixMatchesLiterally(t *testing.T) {
	ctx := context.Background()
	store, mr := newTestRedisStore(t)

	for _, key := range []string{"list:*:bookings", "list:abc:bookings", "list:a?c:bookings"} {
		if err := store.Set(ctx, key, []byte("[]"), 0); err != nil {
			t.Fatalf("Set %s failed: %v", key, err)
		}
	}

	if err := store.DeletePrefix(ctx, "list:*:"); err != nil {
		t.Fatalf("DeletePrefix failed: %v", err)
	}
	keys := mr.Keys()
	if len(keys) != 2 || keys[0] != "test:list:a?c:bookings" || keys[1] != "test:list:abc:bookings" {
		t.Fatalf("expected only the literal prefix to be removed, got %v", keys)
	}
}
