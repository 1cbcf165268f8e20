package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"go.uber.org/zap"

	"pmsboard/internal/model"
	"pmsboard/internal/repository"
)

// recordingPublisher captures everything published.
type recordingPublisher struct {
	mu        sync.Mutex
	published []publishedEnvelope
}

type publishedEnvelope struct {
	topic string
	env   model.Envelope
}

func (p *recordingPublisher) Publish(_ context.Context, topic string, env model.Envelope) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.published = append(p.published, publishedEnvelope{topic: topic, env: env})
}

func (p *recordingPublisher) all() []publishedEnvelope {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]publishedEnvelope, len(p.published))
	copy(out, p.published)
	return out
}

// droppingPublisher simulates a broker whose pushes all fail; per the
// best-effort contract it reports nothing to the caller.
type droppingPublisher struct{}

func (droppingPublisher) Publish(context.Context, string, model.Envelope) {}

// failingStore refuses every write.
type failingStore struct {
	repository.EventStore
}

func (failingStore) Insert(context.Context, *model.Event) error {
	return &repository.StorageError{Op: "insert", Err: errors.New("connection refused")}
}

func TestNotifyStoresThenPublishes(t *testing.T) {
	store := repository.NewMemoryEventStore()
	pub := &recordingPublisher{}
	notifier := NewNotifier(store, pub, zap.NewNop())

	evt, err := notifier.Notify(context.Background(), 5, "Assigned to Project X", "/projects/9")
	if err != nil {
		t.Fatalf("notify failed: %v", err)
	}
	if evt.ID == 0 {
		t.Fatal("expected the stored event id to be assigned")
	}

	published := pub.all()
	if len(published) != 1 {
		t.Fatalf("expected 1 publish, got %d", len(published))
	}
	if published[0].topic != "user:5" {
		t.Errorf("expected topic user:5, got %q", published[0].topic)
	}
	env := published[0].env
	if env.Kind != model.KindNotification || env.Notification == nil {
		t.Fatalf("expected notification envelope, got %+v", env)
	}
	if env.Notification.ID != evt.ID {
		t.Errorf("published id %d does not match stored id %d", env.Notification.ID, evt.ID)
	}
	if env.Notification.Message != "Assigned to Project X" || env.Notification.Link != "/projects/9" {
		t.Errorf("unexpected payload: %+v", env.Notification)
	}
}

func TestNotifyStorageErrorPropagatesAndSkipsPublish(t *testing.T) {
	pub := &recordingPublisher{}
	notifier := NewNotifier(failingStore{}, pub, zap.NewNop())

	_, err := notifier.Notify(context.Background(), 1, "hello", "")
	if err == nil {
		t.Fatal("expected an error when the store is down")
	}

	var storageErr *repository.StorageError
	if !errors.As(err, &storageErr) {
		t.Fatalf("expected StorageError, got %T: %v", err, err)
	}
	if len(pub.all()) != 0 {
		t.Fatal("publish must be skipped when the append fails")
	}
}

func TestNotifySurvivesPublishFailure(t *testing.T) {
	store := repository.NewMemoryEventStore()
	notifier := NewNotifier(store, droppingPublisher{}, zap.NewNop())

	evt, err := notifier.Notify(context.Background(), 7, "hi", "")
	if err != nil {
		t.Fatalf("notify must not fail on a dropped push: %v", err)
	}

	// The event is queryable even though the live push went nowhere.
	unread, err := store.UnreadForUser(context.Background(), 7)
	if err != nil {
		t.Fatalf("unread query failed: %v", err)
	}
	if len(unread) != 1 || unread[0].ID != evt.ID || unread[0].Message != "hi" {
		t.Fatalf("expected the stored event to be pollable, got %+v", unread)
	}
}

func TestAnnouncePublishesOnSharedTopic(t *testing.T) {
	store := repository.NewMemoryEventStore()
	pub := &recordingPublisher{}
	notifier := NewNotifier(store, pub, zap.NewNop())

	evt, err := notifier.Announce(context.Background(), 1, "Test")
	if err != nil {
		t.Fatalf("announce failed: %v", err)
	}

	published := pub.all()
	if len(published) != 1 {
		t.Fatalf("expected 1 publish, got %d", len(published))
	}
	if published[0].topic != model.TopicAnnouncements {
		t.Errorf("expected topic %q, got %q", model.TopicAnnouncements, published[0].topic)
	}
	env := published[0].env
	if env.Kind != model.KindAnnouncement || env.Announcement == nil {
		t.Fatalf("expected announcement envelope, got %+v", env)
	}
	if env.Announcement.Content != "Test" {
		t.Errorf("expected content %q, got %q", "Test", env.Announcement.Content)
	}
	if env.Announcement.Sender != 1 {
		t.Errorf("expected sender 1, got %d", env.Announcement.Sender)
	}
	if evt.RecipientID != nil {
		t.Error("announcements must not carry a recipient")
	}
}

func TestAnnounceLatestReflectsNewest(t *testing.T) {
	store := repository.NewMemoryEventStore()
	notifier := NewNotifier(store, droppingPublisher{}, zap.NewNop())

	if _, err := notifier.Announce(context.Background(), 1, "Holiday Monday"); err != nil {
		t.Fatalf("announce failed: %v", err)
	}
	if _, err := notifier.Announce(context.Background(), 1, "Office closed"); err != nil {
		t.Fatalf("announce failed: %v", err)
	}

	latest, err := store.LatestAnnouncement(context.Background())
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if latest == nil || latest.Message != "Office closed" {
		t.Fatalf("expected %q, got %+v", "Office closed", latest)
	}
}
