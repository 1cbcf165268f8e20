package model

import "time"

// NotificationPayload is pushed on a user's private topic.
type NotificationPayload struct {
	ID        int64     `json:"id"`
	Message   string    `json:"message"`
	Link      string    `json:"link,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// AnnouncementPayload is pushed on the shared announcements topic.
type AnnouncementPayload struct {
	ID        int64     `json:"id"`
	Sender    int64     `json:"sender"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Envelope is the tagged variant written to subscriber connections.
// Exactly one of the payload pointers is set, matching Kind.
type Envelope struct {
	Kind         Kind                 `json:"kind"`
	Notification *NotificationPayload `json:"notification,omitempty"`
	Announcement *AnnouncementPayload `json:"announcement,omitempty"`
}

// Envelope builds the push payload for an already-stored event.
func (e *Event) Envelope() Envelope {
	switch e.Kind {
	case KindAnnouncement:
		var sender int64
		if e.SenderID != nil {
			sender = *e.SenderID
		}
		return Envelope{
			Kind: KindAnnouncement,
			Announcement: &AnnouncementPayload{
				ID:        e.ID,
				Sender:    sender,
				Content:   e.Message,
				CreatedAt: e.CreatedAt,
			},
		}
	default:
		return Envelope{
			Kind: KindNotification,
			Notification: &NotificationPayload{
				ID:        e.ID,
				Message:   e.Message,
				Link:      e.Link,
				CreatedAt: e.CreatedAt,
			},
		}
	}
}
