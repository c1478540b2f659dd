package flux

import "sync"

type ListenerID uint64

// Subject holds change listeners. Stores compose one and call Notify after
// a callback branch mutated their state.
type Subject struct {
	mu        sync.Mutex
	nextID    ListenerID
	order     []ListenerID
	listeners map[ListenerID]func()
}

func (s *Subject) Subscribe(fn func()) ListenerID {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listeners == nil {
		s.listeners = make(map[ListenerID]func())
	}
	s.nextID++
	id := s.nextID
	s.listeners[id] = fn
	s.order = append(s.order, id)
	return id
}

func (s *Subject) Unsubscribe(id ListenerID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.listeners[id]; !ok {
		return false
	}
	delete(s.listeners, id)
	for i, existing := range s.order {
		if existing == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return true
}

// Notify calls every listener in subscription order. Listeners run outside
// the lock and may unsubscribe themselves.
func (s *Subject) Notify() {
	s.mu.Lock()
	fns := make([]func(), 0, len(s.order))
	for _, id := range s.order {
		fns = append(fns, s.listeners[id])
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

func (s *Subject) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.listeners)
}
