// Package store holds the console state. Every store registers one callback
// with the dispatcher and only mutates its state from inside that callback;
// views read through the accessors and subscribe to change notifications.
package store

import (
	"sort"
	"time"

	"dashboard-console/internal/action"
	"dashboard-console/internal/flux"
	"dashboard-console/internal/model"
)

type Status string

const (
	StatusIdle      Status = "idle"
	StatusLoading   Status = "loading"
	StatusPopulated Status = "populated"
	StatusErrored   Status = "errored"
)

type emitter struct {
	changes flux.Subject
}

func (e *emitter) AddChangeListener(fn func()) flux.ListenerID {
	return e.changes.Subscribe(fn)
}

func (e *emitter) RemoveChangeListener(id flux.ListenerID) bool {
	return e.changes.Unsubscribe(id)
}

func (e *emitter) emitChange() {
	e.changes.Notify()
}

// generations remembers the newest request generation seen per operation.
// Callers hold the owning store's lock.
type generations map[action.Type]uint64

// current records request generations and reports whether an outcome
// belongs to the newest request of its operation.
func (g generations) current(a action.Action) bool {
	if a.Generation == 0 {
		return true
	}
	key := a.Type.Request()
	if a.Type.IsRequest() {
		if a.Generation > g[key] {
			g[key] = a.Generation
		}
		return true
	}
	return a.Generation >= g[key]
}

func response[T any](a action.Action) (T, bool) {
	v, ok := a.Response.(T)
	return v, ok
}

func copyErrors(items []model.ErrorItem) []model.ErrorItem {
	if len(items) == 0 {
		return []model.ErrorItem{}
	}
	out := make([]model.ErrorItem, len(items))
	copy(out, items)
	return out
}

var createdAtLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	model.BucketFormat,
}

func parseCreatedAt(s string) time.Time {
	for _, layout := range createdAtLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// sortByCreatedAt orders items by creation time, falling back to id so the
// result does not depend on map iteration.
func sortByCreatedAt[T any](items []T, createdAt func(T) string, id func(T) model.ID, descending bool) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := parseCreatedAt(createdAt(items[i])), parseCreatedAt(createdAt(items[j]))
		if !a.Equal(b) {
			if descending {
				return a.After(b)
			}
			return a.Before(b)
		}
		return id(items[i]) < id(items[j])
	})
}
