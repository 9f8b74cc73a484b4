package model

import (
	"context"
	"sync"
)

// cell is the shared mutable state behind every producer/consumer pair in
// this package: a mutex-guarded value plus a version counter and a
// notification channel that is closed and replaced on every mutation, so
// waiters can select on it and re-check state on wake. This is the
// primitive described in SPEC_FULL.md §9 ("Shared state and
// back-notifications").
type cell[T any] struct {
	mu     sync.Mutex
	val    T
	ver    int
	closed bool
	err    error
	notify chan struct{}
}

func newCell[T any](v T) *cell[T] {
	return &cell[T]{val: v, notify: make(chan struct{})}
}

// bump must be called with mu held; it wakes every current waiter.
func (c *cell[T]) bump() {
	close(c.notify)
	c.notify = make(chan struct{})
	c.ver++
}

// mutate applies fn to the value and wakes waiters, unless already closed.
// Returns false if the cell was already closed.
func (c *cell[T]) mutate(fn func(*T)) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	fn(&c.val)
	c.bump()
	return true
}

// close marks the cell terminal with err, idempotently. Returns true if
// this call performed the transition.
func (c *cell[T]) close(err error) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	c.closed = true
	c.err = err
	c.bump()
	return true
}

type snapshot[T any] struct {
	val    T
	ver    int
	closed bool
	err    error
}

func (c *cell[T]) snapshot() snapshot[T] {
	c.mu.Lock()
	defer c.mu.Unlock()
	return snapshot[T]{val: c.val, ver: c.ver, closed: c.closed, err: c.err}
}

// wait blocks until the cell's version differs from ver, it closes, or ctx
// is done. A caller re-snapshots after wait returns nil to find out what
// changed.
func (c *cell[T]) wait(ctx context.Context, ver int) error {
	c.mu.Lock()
	if c.ver != ver || c.closed {
		c.mu.Unlock()
		return nil
	}
	ch := c.notify
	c.mu.Unlock()

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// closedErr returns the stored closure reason, or nil if still open.
func (c *cell[T]) closedErr() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		return nil
	}
	return c.err
}
