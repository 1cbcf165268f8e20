package hub

import (
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
)

type fakeTransport struct {
	mu         sync.Mutex
	writes     []any
	writeErr   error
	closeCount int
	wrote      chan struct{}
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{wrote: make(chan struct{}, 64)}
}

func (f *fakeTransport) WriteJSON(v any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return f.writeErr
	}
	f.writes = append(f.writes, v)
	select {
	case f.wrote <- struct{}{}:
	default:
	}
	return nil
}

func (f *fakeTransport) Ping() error { return nil }

func (f *fakeTransport) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closeCount++
	return nil
}

func (f *fakeTransport) closes() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closeCount
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestConnDeliverReachesTransport(t *testing.T) {
	registry := NewRegistry()
	ft := newFakeTransport()
	conn := NewConn(ft, registry, zap.NewNop())
	conn.Subscribe("user:1")
	defer conn.Close()

	go conn.WritePump(time.Hour)

	if err := conn.Deliver(notificationEnvelope(1, "hi")); err != nil {
		t.Fatalf("deliver failed: %v", err)
	}

	select {
	case <-ft.wrote:
	case <-time.After(2 * time.Second):
		t.Fatal("envelope never reached the transport")
	}
}

func TestConnWriteFailureTearsDown(t *testing.T) {
	registry := NewRegistry()
	ft := newFakeTransport()
	ft.writeErr = errors.New("broken pipe")

	conn := NewConn(ft, registry, zap.NewNop())
	conn.Subscribe("user:1", "announcements")

	go conn.WritePump(time.Hour)

	if err := conn.Deliver(notificationEnvelope(1, "hi")); err != nil {
		t.Fatalf("deliver failed: %v", err)
	}

	// The failed write must unregister the handle from every topic.
	waitFor(t, func() bool {
		return registry.SubscriberCount("user:1") == 0 &&
			registry.SubscriberCount("announcements") == 0
	})

	waitFor(t, func() bool {
		return errors.Is(conn.Deliver(notificationEnvelope(2, "late")), ErrConnClosed)
	})
}

func TestConnCloseIdempotent(t *testing.T) {
	registry := NewRegistry()
	ft := newFakeTransport()
	conn := NewConn(ft, registry, zap.NewNop())
	conn.Subscribe("announcements")

	conn.Close()
	conn.Close()

	if got := registry.SubscriberCount("announcements"); got != 0 {
		t.Errorf("expected registry cleanup, %d subscribers left", got)
	}
	if got := ft.closes(); got != 1 {
		t.Errorf("expected exactly one transport close, got %d", got)
	}
	if err := conn.Deliver(notificationEnvelope(1, "x")); !errors.Is(err, ErrConnClosed) {
		t.Errorf("expected ErrConnClosed after close, got %v", err)
	}
}

func TestConnQueueFullDropsWithoutBlocking(t *testing.T) {
	registry := NewRegistry()
	ft := newFakeTransport()
	conn := NewConn(ft, registry, zap.NewNop())
	defer conn.Close()

	// No write pump running: the outbound queue fills up and further
	// deliveries are rejected instead of blocking the broker.
	var full bool
	for i := 0; i < outboundQueueSize+1; i++ {
		if err := conn.Deliver(notificationEnvelope(int64(i), "x")); err != nil {
			if !errors.Is(err, ErrQueueFull) {
				t.Fatalf("expected ErrQueueFull, got %v", err)
			}
			full = true
		}
	}
	if !full {
		t.Fatal("expected the outbound queue to fill up")
	}
}
