package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// StatusChange is one attempted status edit made from the dashboard.
type StatusChange struct {
	ID         string
	Resource   string
	RecordID   string
	FromStatus string
	ToStatus   string
	// Committed is false when the backend rejected the write and the row was
	// rolled back.
	Committed bool
	Actor     string
	Error     string
	CreatedAt time.Time
}

// RecordStatusChange appends change to the journal, assigning an ID and
// timestamp when they are empty.
func (db *DB) RecordStatusChange(ctx context.Context, change StatusChange) (StatusChange, error) {
	if change.ID == "" {
		change.ID = uuid.NewString()
	}
	if change.CreatedAt.IsZero() {
		change.CreatedAt = time.Now()
	}
	change.CreatedAt = change.CreatedAt.UTC()

	_, err := db.ExecContext(ctx, `
		INSERT INTO status_changes (id, resource, record_id, from_status, to_status, committed, actor, error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		change.ID, change.Resource, change.RecordID, change.FromStatus, change.ToStatus,
		change.Committed, change.Actor, change.Error, change.CreatedAt,
	)
	if err != nil {
		return StatusChange{}, fmt.Errorf("insert status change: %w", err)
	}
	return change, nil
}

// RecentStatusChanges returns up to limit journal entries, newest first.
func (db *DB) RecentStatusChanges(ctx context.Context, limit int) ([]StatusChange, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.QueryContext(ctx, `
		SELECT id, resource, record_id, from_status, to_status, committed, actor, error, created_at
		FROM status_changes
		ORDER BY created_at DESC, id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query status changes: %w", err)
	}
	defer rows.Close()

	changes := []StatusChange{}
	for rows.Next() {
		var change StatusChange
		if err := rows.Scan(
			&change.ID, &change.Resource, &change.RecordID, &change.FromStatus, &change.ToStatus,
			&change.Committed, &change.Actor, &change.Error, &change.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan status change: %w", err)
		}
		changes = append(changes, change)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate status changes: %w", err)
	}
	return changes, nil
}

// PruneStatusChanges deletes entries created before cutoff and returns how
// many were removed.
func (db *DB) PruneStatusChanges(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := db.ExecContext(ctx, `DELETE FROM status_changes WHERE created_at < ?`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("prune status changes: %w", err)
	}
	removed, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prune status changes: %w", err)
	}
	return removed, nil
}
