package hub

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"
)

type testWriter struct {
	mu     sync.Mutex
	writes [][]byte
	fail   bool
	closed bool
}

func (w *testWriter) Write(message []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.writes = append(w.writes, message)
	if w.fail {
		return errors.New("test")
	}
	return nil
}

func (w *testWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	return nil
}

func (w *testWriter) count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.writes)
}

func (w *testWriter) last() []byte {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.writes) == 0 {
		return nil
	}
	return w.writes[len(w.writes)-1]
}

func TestHub_RegisterBroadcastUnregister(t *testing.T) {
	h := New()
	w1 := &testWriter{}
	c1 := &Connection{Viewer: "u", Writer: w1}

	h.Register(c1)
	h.Broadcast("u", []byte("x"))
	h.Broadcast("other", []byte("x"))
	if w1.count() != 1 {
		t.Fatalf("expected 1 write, got %d", w1.count())
	}

	h.Unregister(c1)
	h.Broadcast("u", []byte("x"))
	if w1.count() != 1 {
		t.Fatalf("expected no more writes, got %d", w1.count())
	}
	if h.Len() != 0 {
		t.Fatalf("expected empty hub, got %d", h.Len())
	}
}

func TestHub_PublishReachesEveryViewer(t *testing.T) {
	h := New()
	w1, w2 := &testWriter{}, &testWriter{}
	h.Register(&Connection{Viewer: "a", Writer: w1})
	h.Register(&Connection{Viewer: "b", Writer: w2})

	h.Publish([]byte("x"))
	if w1.count() != 1 || w2.count() != 1 {
		t.Fatalf("expected one write each, got %d and %d", w1.count(), w2.count())
	}
}

func TestHub_RemovesFailedConnections(t *testing.T) {
	h := New()
	w1 := &testWriter{fail: true}
	h.Register(&Connection{Viewer: "u", Writer: w1})

	h.Publish([]byte("x"))
	h.Publish([]byte("x"))
	if w1.count() != 1 {
		t.Fatalf("expected only 1 write before removal, got %d", w1.count())
	}
	if !w1.closed {
		t.Fatalf("expected failed connection closed")
	}
}

type fakeSource struct {
	mu    sync.Mutex
	fn    func(string)
	views map[string]any
}

func (s *fakeSource) Subscribe(fn func(name string)) func() {
	s.mu.Lock()
	s.fn = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		s.fn = nil
		s.mu.Unlock()
	}
}

func (s *fakeSource) View(name string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.views[name]
	return v, ok
}

func (s *fakeSource) emit(name string) bool {
	s.mu.Lock()
	fn := s.fn
	s.mu.Unlock()
	if fn == nil {
		return false
	}
	fn(name)
	return true
}

func TestFeed_PublishesStoreUpdates(t *testing.T) {
	h := New()
	w := &testWriter{}
	h.Register(&Connection{Viewer: "u", Writer: w})
	src := &fakeSource{views: map[string]any{"apps": map[string]any{"status": "populated"}}}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- NewFeed(h, src, nil).Run(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for !src.emit("apps") {
		if time.Now().After(deadline) {
			t.Fatalf("feed never subscribed")
		}
		time.Sleep(5 * time.Millisecond)
	}
	for w.count() == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("expected an update")
		}
		time.Sleep(5 * time.Millisecond)
	}

	var msg struct {
		Type  string         `json:"type"`
		Event string         `json:"event"`
		Body  map[string]any `json:"body"`
	}
	if err := json.Unmarshal(w.last(), &msg); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if msg.Type != "update" || msg.Event != "apps" || msg.Body["status"] != "populated" {
		t.Fatalf("unexpected message: %+v", msg)
	}

	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if src.emit("apps") {
		t.Fatalf("expected listener removed after Run returned")
	}
}

func TestUpdate_UnknownStore(t *testing.T) {
	msg, err := Update(&fakeSource{}, "nope")
	if err != nil || msg != nil {
		t.Fatalf("expected nothing for unknown store, got %q, %v", msg, err)
	}
}
