package hub

import (
	"sync"

	"pmsboard/internal/model"
)

// Subscriber is a live connection handle. Deliver must not block: it either
// queues the envelope or reports why it could not.
type Subscriber interface {
	ID() string
	Deliver(env model.Envelope) error
}

// Registry owns the topic -> subscriber mapping. It is the only shared
// mutable state of the fan-out path and serializes all mutation internally.
// One instance is constructed at startup and injected where needed; there is
// no package-level registry.
type Registry struct {
	mu     sync.RWMutex
	topics map[string]map[string]Subscriber
}

func NewRegistry() *Registry {
	return &Registry{
		topics: make(map[string]map[string]Subscriber),
	}
}

// Subscribe registers the subscriber under topic. Re-subscribing the same
// handle is a no-op.
func (r *Registry) Subscribe(topic string, sub Subscriber) {
	r.mu.Lock()
	defer r.mu.Unlock()

	subs, ok := r.topics[topic]
	if !ok {
		subs = make(map[string]Subscriber)
		r.topics[topic] = subs
	}
	subs[sub.ID()] = sub
}

// Unsubscribe removes the subscriber from topic. Absent handles are a no-op.
func (r *Registry) Unsubscribe(topic string, sub Subscriber) {
	r.mu.Lock()
	defer r.mu.Unlock()

	subs, ok := r.topics[topic]
	if !ok {
		return
	}
	delete(subs, sub.ID())
	if len(subs) == 0 {
		delete(r.topics, topic)
	}
}

// UnsubscribeAll removes the subscriber from every topic. Called on
// connection teardown; safe to call more than once.
func (r *Registry) UnsubscribeAll(sub Subscriber) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := sub.ID()
	for topic, subs := range r.topics {
		delete(subs, id)
		if len(subs) == 0 {
			delete(r.topics, topic)
		}
	}
}

// SubscribersOf returns a snapshot of the current subscribers. Iterating the
// result never observes concurrent subscribe/unsubscribe.
func (r *Registry) SubscribersOf(topic string) []Subscriber {
	r.mu.RLock()
	defer r.mu.RUnlock()

	subs := r.topics[topic]
	snapshot := make([]Subscriber, 0, len(subs))
	for _, s := range subs {
		snapshot = append(snapshot, s)
	}
	return snapshot
}

// SubscriberCount reports how many handles listen on topic.
func (r *Registry) SubscriberCount(topic string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.topics[topic])
}
