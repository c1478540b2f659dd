// Package hub fans store updates out to the connected viewers.
package hub

import (
	"sync"

	"dashboard-console/internal/model"
)

type Writer interface {
	Write(message []byte) error
	Close() error
}

// Connection is one live viewer of the session user.
type Connection struct {
	Viewer model.ID
	Writer Writer
}

type Hub struct {
	mu          sync.RWMutex
	connections map[model.ID]map[*Connection]struct{}
}

func New() *Hub {
	return &Hub{connections: make(map[model.ID]map[*Connection]struct{})}
}

func (h *Hub) Register(conn *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.connections[conn.Viewer] == nil {
		h.connections[conn.Viewer] = make(map[*Connection]struct{})
	}
	h.connections[conn.Viewer][conn] = struct{}{}
}

func (h *Hub) Unregister(conn *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set := h.connections[conn.Viewer]
	if set == nil {
		return
	}
	delete(set, conn)
	if len(set) == 0 {
		delete(h.connections, conn.Viewer)
	}
}

// Len reports the number of registered connections.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, set := range h.connections {
		n += len(set)
	}
	return n
}

// Broadcast writes message to every connection of viewer.
func (h *Hub) Broadcast(viewer model.ID, message []byte) {
	h.mu.RLock()
	set := h.connections[viewer]
	conns := make([]*Connection, 0, len(set))
	for c := range set {
		conns = append(conns, c)
	}
	h.mu.RUnlock()

	h.write(conns, message)
}

// Publish writes message to every connection.
func (h *Hub) Publish(message []byte) {
	h.mu.RLock()
	var conns []*Connection
	for _, set := range h.connections {
		for c := range set {
			conns = append(conns, c)
		}
	}
	h.mu.RUnlock()

	h.write(conns, message)
}

// write drops the connections that fail.
func (h *Hub) write(conns []*Connection, message []byte) {
	var failed []*Connection
	for _, c := range conns {
		if err := c.Writer.Write(message); err != nil {
			failed = append(failed, c)
		}
	}
	for _, c := range failed {
		_ = c.Writer.Close()
		h.Unregister(c)
	}
}
