// Package flux implements the synchronous single-writer event bus the console
// state is built on: an ordered dispatcher with waitFor, an observable subject
// for change notification, and the queue that serialises every dispatch.
package flux

import (
	"errors"
	"fmt"
	"sync"
)

var (
	ErrNestedDispatch     = errors.New("flux: cannot dispatch in the middle of a dispatch")
	ErrNotDispatching     = errors.New("flux: waitFor must be invoked while dispatching")
	ErrUnknownToken       = errors.New("flux: token does not map to a registered callback")
	ErrCircularWait       = errors.New("flux: circular dependency detected while waiting")
	ErrCircularDependency = errors.New("flux: circular dependency between registered callbacks")
)

// Token identifies a registered callback.
type Token string

type Callback[A any] func(A) error

type RegisterOption func(*registerOptions)

type registerOptions struct {
	after []Token
}

// WaitsFor declares that the callback being registered must run after the
// callbacks identified by tokens on every dispatch.
func WaitsFor(tokens ...Token) RegisterOption {
	return func(o *registerOptions) {
		o.after = append(o.after, tokens...)
	}
}

type registration[A any] struct {
	token    Token
	seq      int
	callback Callback[A]
	after    []Token
}

type cycle[A any] struct {
	action  A
	regs    map[Token]*registration[A]
	pending map[Token]bool
	handled map[Token]bool
}

// Dispatcher fans an action out to every registered callback. Dispatch is
// not reentrant and must be driven from a single goroutine (see Queue);
// Register, Unregister and IsDispatching are safe from any goroutine.
type Dispatcher[A any] struct {
	mu        sync.Mutex
	lastID    int
	callbacks map[Token]*registration[A]
	order     []Token
	resolved  bool
	current   *cycle[A]
}

func NewDispatcher[A any]() *Dispatcher[A] {
	return &Dispatcher[A]{callbacks: make(map[Token]*registration[A])}
}

func (d *Dispatcher[A]) Register(cb Callback[A], opts ...RegisterOption) Token {
	var o registerOptions
	for _, opt := range opts {
		opt(&o)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.lastID++
	tok := Token(fmt.Sprintf("ID_%d", d.lastID))
	d.callbacks[tok] = &registration[A]{
		token:    tok,
		seq:      d.lastID,
		callback: cb,
		after:    o.after,
	}
	d.resolved = false
	return tok
}

func (d *Dispatcher[A]) Unregister(tok Token) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.callbacks[tok]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownToken, tok)
	}
	delete(d.callbacks, tok)
	d.resolved = false
	return nil
}

func (d *Dispatcher[A]) IsDispatching() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.current != nil
}

// Dispatch invokes every registered callback exactly once with a. The first
// callback error aborts the cycle and is returned.
func (d *Dispatcher[A]) Dispatch(a A) error {
	d.mu.Lock()
	if d.current != nil {
		d.mu.Unlock()
		return ErrNestedDispatch
	}
	if !d.resolved {
		order, err := d.resolveLocked()
		if err != nil {
			d.mu.Unlock()
			return err
		}
		d.order = order
		d.resolved = true
	}

	c := &cycle[A]{
		action:  a,
		regs:    make(map[Token]*registration[A], len(d.callbacks)),
		pending: make(map[Token]bool, len(d.callbacks)),
		handled: make(map[Token]bool, len(d.callbacks)),
	}
	for tok, reg := range d.callbacks {
		c.regs[tok] = reg
	}
	order := d.order
	d.current = c
	d.mu.Unlock()

	defer func() {
		d.mu.Lock()
		d.current = nil
		d.mu.Unlock()
	}()

	for _, tok := range order {
		if c.pending[tok] {
			continue
		}
		if err := d.invoke(c, tok); err != nil {
			return err
		}
	}
	return nil
}

// WaitFor runs the callbacks identified by tokens for the current dispatch
// before returning, unless they already ran. It may only be called from
// inside a callback.
func (d *Dispatcher[A]) WaitFor(tokens ...Token) error {
	d.mu.Lock()
	c := d.current
	d.mu.Unlock()
	if c == nil {
		return ErrNotDispatching
	}

	for _, tok := range tokens {
		if c.pending[tok] {
			if !c.handled[tok] {
				return fmt.Errorf("%w: %s", ErrCircularWait, tok)
			}
			continue
		}
		if _, ok := c.regs[tok]; !ok {
			return fmt.Errorf("%w: %s", ErrUnknownToken, tok)
		}
		if err := d.invoke(c, tok); err != nil {
			return err
		}
	}
	return nil
}

func (d *Dispatcher[A]) invoke(c *cycle[A], tok Token) error {
	c.pending[tok] = true
	err := c.regs[tok].callback(c.action)
	c.handled[tok] = true
	if err != nil {
		return fmt.Errorf("flux: callback %s: %w", tok, err)
	}
	return nil
}

// resolveLocked orders registrations so that declared dependencies run
// first, otherwise keeping registration order.
func (d *Dispatcher[A]) resolveLocked() ([]Token, error) {
	indegree := make(map[Token]int, len(d.callbacks))
	dependents := make(map[Token][]Token, len(d.callbacks))
	for tok, reg := range d.callbacks {
		indegree[tok] += 0
		for _, dep := range reg.after {
			if _, ok := d.callbacks[dep]; !ok {
				return nil, fmt.Errorf("%w: %s (required by %s)", ErrUnknownToken, dep, tok)
			}
			indegree[tok]++
			dependents[dep] = append(dependents[dep], tok)
		}
	}

	order := make([]Token, 0, len(d.callbacks))
	for len(order) < len(d.callbacks) {
		var next *registration[A]
		for tok, deg := range indegree {
			if deg != 0 {
				continue
			}
			reg := d.callbacks[tok]
			if next == nil || reg.seq < next.seq {
				next = reg
			}
		}
		if next == nil {
			return nil, ErrCircularDependency
		}
		order = append(order, next.token)
		delete(indegree, next.token)
		for _, dep := range dependents[next.token] {
			indegree[dep]--
		}
	}
	return order, nil
}
