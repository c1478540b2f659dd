package hub

import (
	"context"
	"encoding/json"
	"sort"
	"sync"

	"go.uber.org/zap"
)

// Message is the frame a viewer receives.
type Message struct {
	Type  string `json:"type"`
	Event string `json:"event,omitempty"`
	Body  any    `json:"body,omitempty"`
}

// Source is the set of stores the feed mirrors.
type Source interface {
	Subscribe(fn func(name string)) func()
	View(name string) (any, bool)
}

// Feed publishes the latest view of every store that emitted change.
// Change notifications arrive on the dispatch goroutine, so they are only
// recorded there; encoding and socket writes happen in Run.
type Feed struct {
	hub    *Hub
	src    Source
	logger *zap.Logger

	mu     sync.Mutex
	dirty  map[string]struct{}
	signal chan struct{}
}

func NewFeed(h *Hub, src Source, logger *zap.Logger) *Feed {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Feed{
		hub:    h,
		src:    src,
		logger: logger,
		dirty:  make(map[string]struct{}),
		signal: make(chan struct{}, 1),
	}
}

// Update encodes the current view of the named store.
func Update(src Source, name string) ([]byte, error) {
	view, ok := src.View(name)
	if !ok {
		return nil, nil
	}
	return json.Marshal(Message{Type: "update", Event: name, Body: view})
}

func (f *Feed) changed(name string) {
	f.mu.Lock()
	f.dirty[name] = struct{}{}
	f.mu.Unlock()

	select {
	case f.signal <- struct{}{}:
	default:
	}
}

func (f *Feed) take() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	names := make([]string, 0, len(f.dirty))
	for name := range f.dirty {
		names = append(names, name)
	}
	f.dirty = make(map[string]struct{})
	sort.Strings(names)
	return names
}

// Run forwards store changes to the hub until ctx is done.
func (f *Feed) Run(ctx context.Context) error {
	unsubscribe := f.src.Subscribe(f.changed)
	defer unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-f.signal:
			for _, name := range f.take() {
				msg, err := Update(f.src, name)
				if err != nil {
					f.logger.Error("encode store update", zap.String("store", name), zap.Error(err))
					continue
				}
				if msg != nil {
					f.hub.Publish(msg)
				}
			}
		}
	}
}
