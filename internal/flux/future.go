package flux

import (
	"context"
	"sync"
)

// Future is the completion handle returned by asynchronous action creators.
// It settles once, after the resulting action has been dispatched.
type Future struct {
	once  sync.Once
	done  chan struct{}
	value any
	err   error
}

func NewFuture() *Future {
	return &Future{done: make(chan struct{})}
}

func (f *Future) Resolve(value any) {
	f.settle(value, nil)
}

func (f *Future) Reject(err error) {
	f.settle(nil, err)
}

func (f *Future) settle(value any, err error) {
	f.once.Do(func() {
		f.value = value
		f.err = err
		close(f.done)
	})
}

func (f *Future) Done() <-chan struct{} {
	return f.done
}

func (f *Future) Wait(ctx context.Context) (any, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
