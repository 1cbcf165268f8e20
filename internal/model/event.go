package model

import (
	"fmt"
	"time"
)

// Kind discriminates the two event variants carried by the core.
type Kind string

const (
	KindNotification Kind = "notification"
	KindAnnouncement Kind = "announcement"
)

// TopicAnnouncements is the shared broadcast channel every viewer listens on.
const TopicAnnouncements = "announcements"

// UserTopic returns the per-user channel name.
func UserTopic(userID int64) string {
	return fmt.Sprintf("user:%d", userID)
}

// Event is a single row of the append-only event store.
// Everything except IsRead is immutable once stored.
type Event struct {
	ID          int64
	Kind        Kind
	RecipientID *int64 // nil for broadcast announcements
	SenderID    *int64 // set for announcements
	Topic       string
	Message     string
	Link        string
	IsRead      bool
	CreatedAt   time.Time
}
