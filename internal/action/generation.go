package action

import "sync"

type generations struct {
	mu     sync.Mutex
	perKey map[Type]uint64
}

func newGenerations() *generations {
	return &generations{perKey: make(map[Type]uint64)}
}

func (g *generations) next(t Type) uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.perKey[t]++
	return g.perKey[t]
}
