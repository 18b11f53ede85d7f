package db

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	database, err := New(filepath.Join(t.TempDir(), "journal.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = database.Close() })
	return database
}

func TestRecordAndListStatusChanges(t *testing.T) {
	ctx := context.Background()
	database := openTestDB(t)
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	first, err := database.RecordStatusChange(ctx, StatusChange{
		Resource: "bookings", RecordID: "b1", FromStatus: "pending", ToStatus: "confirmed",
		Committed: false, Actor: "admin", Error: "HTTP 500: boom", CreatedAt: base,
	})
	if err != nil {
		t.Fatalf("record first: %v", err)
	}
	if first.ID == "" {
		t.Fatal("expected generated ID")
	}
	if _, err := database.RecordStatusChange(ctx, StatusChange{
		Resource: "insurance", RecordID: "i1", FromStatus: "new", ToStatus: "contacted",
		Committed: true, Actor: "admin", CreatedAt: base.Add(time.Minute),
	}); err != nil {
		t.Fatalf("record second: %v", err)
	}

	changes, err := database.RecentStatusChanges(ctx, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(changes) != 2 {
		t.Fatalf("expected 2 changes, got %d", len(changes))
	}
	if changes[0].RecordID != "i1" || !changes[0].Committed {
		t.Fatalf("expected newest committed change first, got %+v", changes[0])
	}
	if changes[1].RecordID != "b1" || changes[1].Committed || changes[1].Error != "HTTP 500: boom" {
		t.Fatalf("unexpected rolled back change: %+v", changes[1])
	}
	if !changes[1].CreatedAt.Equal(base) {
		t.Fatalf("expected created_at %v, got %v", base, changes[1].CreatedAt)
	}

	limited, err := database.RecentStatusChanges(ctx, 1)
	if err != nil {
		t.Fatalf("list limited: %v", err)
	}
	if len(limited) != 1 || limited[0].RecordID != "i1" {
		t.Fatalf("unexpected limited result: %+v", limited)
	}
}

func TestPruneStatusChanges(t *testing.T) {
	ctx := context.Background()
	database := openTestDB(t)
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	for i, age := range []time.Duration{200 * 24 * time.Hour, 100 * 24 * time.Hour, time.Hour} {
		if _, err := database.RecordStatusChange(ctx, StatusChange{
			Resource: "bookings", RecordID: string(rune('a' + i)), FromStatus: "pending", ToStatus: "completed",
			Committed: true, CreatedAt: now.Add(-age),
		}); err != nil {
			t.Fatalf("record %d: %v", i, err)
		}
	}

	removed, err := database.PruneStatusChanges(ctx, now.Add(-90*24*time.Hour))
	if err != nil {
		t.Fatalf("prune: %v", err)
	}
	if removed != 2 {
		t.Fatalf("expected 2 removed, got %d", removed)
	}

	remaining, err := database.RecentStatusChanges(ctx, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(remaining) != 1 || remaining[0].RecordID != "c" {
		t.Fatalf("unexpected remaining changes: %+v", remaining)
	}
}

func TestWithDSNParam(t *testing.T) {
	tests := []struct {
		dsn  string
		want string
	}{
		{dsn: "file.db", want: "file.db?_busy_timeout=5000"},
		{dsn: "file.db?mode=rwc", want: "file.db?mode=rwc&_busy_timeout=5000"},
		{dsn: "file.db?_busy_timeout=100", want: "file.db?_busy_timeout=100"},
	}
	for _, test := range tests {
		if got := withDSNParam(test.dsn, "_busy_timeout", "5000"); got != test.want {
			t.Fatalf("withDSNParam(%q) = %q, want %q", test.dsn, got, test.want)
		}
	}
}
