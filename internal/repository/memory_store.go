package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"pmsboard/internal/model"
)

// MemoryEventStore keeps events in process memory. It backs local development
// when no database is configured and carries the same ordering and
// idempotency contract as the Postgres store.
type MemoryEventStore struct {
	mu     sync.Mutex
	nextID int64
	events []model.Event
}

func NewMemoryEventStore() *MemoryEventStore {
	return &MemoryEventStore{nextID: 1}
}

func (s *MemoryEventStore) Insert(_ context.Context, evt *model.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	evt.ID = s.nextID
	s.nextID++
	evt.CreatedAt = time.Now()
	evt.IsRead = false

	s.events = append(s.events, *evt)
	return nil
}

func (s *MemoryEventStore) UnreadForUser(_ context.Context, userID int64) ([]model.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	unread := []model.Event{}
	for _, e := range s.events {
		if e.RecipientID != nil && *e.RecipientID == userID && !e.IsRead {
			unread = append(unread, e)
		}
	}
	sortNewestFirst(unread)
	return unread, nil
}

func (s *MemoryEventStore) MarkRead(_ context.Context, eventID, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.events {
		e := &s.events[i]
		if e.ID == eventID && e.RecipientID != nil && *e.RecipientID == userID {
			e.IsRead = true
			return nil
		}
	}
	// Missing or foreign-owned: no-op, same as the SQL store.
	return nil
}

func (s *MemoryEventStore) LatestAnnouncement(_ context.Context) (*model.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var latest *model.Event
	for i := range s.events {
		e := &s.events[i]
		if e.Topic != model.TopicAnnouncements {
			continue
		}
		if latest == nil || newer(e, latest) {
			latest = e
		}
	}
	if latest == nil {
		return nil, nil
	}
	out := *latest
	return &out, nil
}

func (s *MemoryEventStore) RecentAnnouncements(_ context.Context, limit int) ([]model.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	anns := []model.Event{}
	for _, e := range s.events {
		if e.Topic == model.TopicAnnouncements {
			anns = append(anns, e)
		}
	}
	sortNewestFirst(anns)
	if limit > 0 && len(anns) > limit {
		anns = anns[:limit]
	}
	return anns, nil
}

func (s *MemoryEventStore) Ping(_ context.Context) error {
	return nil
}

// newer reports whether a sorts before b: created_at desc, id desc.
func newer(a, b *model.Event) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID > b.ID
}

func sortNewestFirst(events []model.Event) {
	sort.SliceStable(events, func(i, j int) bool {
		return newer(&events[i], &events[j])
	})
}
