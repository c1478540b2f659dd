package flux

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

var ErrQueueClosed = errors.New("flux: queue closed")

// Queue is the console's event loop. Work posted to it runs one item at a
// time on the goroutine that called Run, which makes it the only goroutine
// that ever drives a Dispatcher.
type Queue struct {
	work    chan func()
	stopped chan struct{}
	logger  *zap.Logger
}

func NewQueue(size int, logger *zap.Logger) *Queue {
	if size <= 0 {
		size = 64
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Queue{
		work:    make(chan func(), size),
		stopped: make(chan struct{}),
		logger:  logger,
	}
}

// Run executes posted work until ctx is cancelled. Work still buffered when
// ctx ends is dropped.
func (q *Queue) Run(ctx context.Context) error {
	defer close(q.stopped)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case fn := <-q.work:
			q.run(fn)
		}
	}
}

func (q *Queue) run(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			q.logger.Error("event loop: work panicked", zap.Any("panic", r))
		}
	}()
	fn()
}

func (q *Queue) Post(ctx context.Context, fn func()) error {
	select {
	case <-q.stopped:
		return ErrQueueClosed
	default:
	}

	select {
	case q.work <- fn:
		return nil
	case <-q.stopped:
		return ErrQueueClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Dispatch posts a dispatch of a to q and waits until every callback ran.
// ctx only bounds the wait for a slot on the queue; once posted, the
// dispatch is waited for so that callers never lose track of an action
// that will still be applied.
func Dispatch[A any](ctx context.Context, q *Queue, d *Dispatcher[A], a A) error {
	result := make(chan error, 1)
	err := q.Post(ctx, func() {
		result <- d.Dispatch(a)
	})
	if err != nil {
		return err
	}

	select {
	case err := <-result:
		return q.dispatched(err)
	case <-q.stopped:
		select {
		case err := <-result:
			return q.dispatched(err)
		default:
			return ErrQueueClosed
		}
	}
}

func (q *Queue) dispatched(err error) error {
	if err != nil {
		q.logger.Error("dispatch failed", zap.Error(err))
		return fmt.Errorf("dispatch: %w", err)
	}
	return nil
}
