package repository

import (
	"context"
	"fmt"

	"pmsboard/internal/model"
)

// EventStore is the durable append-only record of notification and
// announcement events. Implementations must assign monotonically increasing
// ids and serialize concurrent mutation.
type EventStore interface {
	// Insert appends the event, filling in ID and CreatedAt.
	Insert(ctx context.Context, evt *model.Event) error
	// UnreadForUser returns unread events for the recipient, most recent
	// first (created_at desc, id desc).
	UnreadForUser(ctx context.Context, userID int64) ([]model.Event, error)
	// MarkRead flips is_read only when the event belongs to userID.
	// Already-read, missing, and foreign events are a no-op.
	MarkRead(ctx context.Context, eventID, userID int64) error
	// LatestAnnouncement returns the most recent announcement, or nil when
	// none exist.
	LatestAnnouncement(ctx context.Context) (*model.Event, error)
	// RecentAnnouncements returns up to limit announcements, most recent first.
	RecentAnnouncements(ctx context.Context, limit int) ([]model.Event, error)
	// Ping reports whether the backing persistence is reachable.
	Ping(ctx context.Context) error
}

// StorageError wraps a failure of the backing persistence. Callers of
// Notify/Announce receive it unwrapped via errors.As.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("event store: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}
