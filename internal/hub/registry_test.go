package hub

import (
	"fmt"
	"sync"
	"testing"

	"pmsboard/internal/model"
)

// fakeSubscriber records delivered envelopes and can be told to fail.
type fakeSubscriber struct {
	id   string
	fail error

	mu       sync.Mutex
	received []model.Envelope
}

func newFakeSubscriber(id string) *fakeSubscriber {
	return &fakeSubscriber{id: id}
}

func (f *fakeSubscriber) ID() string { return f.id }

func (f *fakeSubscriber) Deliver(env model.Envelope) error {
	if f.fail != nil {
		return f.fail
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.received = append(f.received, env)
	return nil
}

func (f *fakeSubscriber) envelopes() []model.Envelope {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.Envelope, len(f.received))
	copy(out, f.received)
	return out
}

func TestSubscribeIdempotent(t *testing.T) {
	r := NewRegistry()
	sub := newFakeSubscriber("a")

	r.Subscribe("announcements", sub)
	r.Subscribe("announcements", sub)

	if got := r.SubscriberCount("announcements"); got != 1 {
		t.Fatalf("expected 1 subscriber after double subscribe, got %d", got)
	}
}

func TestUnsubscribeAbsentIsNoop(t *testing.T) {
	r := NewRegistry()
	sub := newFakeSubscriber("a")

	r.Unsubscribe("announcements", sub)

	if got := r.SubscriberCount("announcements"); got != 0 {
		t.Fatalf("expected 0 subscribers, got %d", got)
	}
}

func TestUnsubscribeAllRemovesEveryTopic(t *testing.T) {
	r := NewRegistry()
	sub := newFakeSubscriber("a")
	other := newFakeSubscriber("b")

	r.Subscribe("announcements", sub)
	r.Subscribe("user:1", sub)
	r.Subscribe("announcements", other)

	r.UnsubscribeAll(sub)
	// A second teardown pass must be harmless.
	r.UnsubscribeAll(sub)

	if got := r.SubscriberCount("user:1"); got != 0 {
		t.Errorf("expected user:1 to be empty, got %d", got)
	}
	if got := r.SubscriberCount("announcements"); got != 1 {
		t.Errorf("expected other subscriber to remain, got %d", got)
	}
}

func TestSubscribersOfReturnsSnapshot(t *testing.T) {
	r := NewRegistry()
	sub := newFakeSubscriber("a")
	r.Subscribe("announcements", sub)

	snapshot := r.SubscribersOf("announcements")
	r.UnsubscribeAll(sub)

	// The snapshot taken before the unsubscribe is unaffected.
	if len(snapshot) != 1 {
		t.Fatalf("expected snapshot of 1, got %d", len(snapshot))
	}
	if got := r.SubscriberCount("announcements"); got != 0 {
		t.Fatalf("expected registry to be empty, got %d", got)
	}
}

func TestRegistryConcurrentMutation(t *testing.T) {
	r := NewRegistry()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			sub := newFakeSubscriber(fmt.Sprintf("sub-%d", n))
			topic := fmt.Sprintf("user:%d", n%5)
			r.Subscribe(topic, sub)
			r.SubscribersOf(topic)
			if n%2 == 0 {
				r.Unsubscribe(topic, sub)
			} else {
				r.UnsubscribeAll(sub)
			}
		}(i)
	}
	wg.Wait()

	for i := 0; i < 5; i++ {
		if got := r.SubscriberCount(fmt.Sprintf("user:%d", i)); got != 0 {
			t.Errorf("topic user:%d leaked %d subscribers", i, got)
		}
	}
}
