// Package keylock provides non-blocking mutual exclusion keyed by entity id.
package keylock

import (
	"context"
	"sync"
)

// Set holds the keys currently locked. The zero value is ready to use.
type Set[K comparable] struct {
	mu   sync.Mutex
	held map[K]struct{}
}

// New returns an empty lock set.
func New[K comparable]() *Set[K] {
	return &Set[K]{held: map[K]struct{}{}}
}

// TryLock acquires key and returns its release func, or ok=false when the key is
// already held. Other keys are unaffected.
func (s *Set[K]) TryLock(key K) (release func(), ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.held == nil {
		s.held = map[K]struct{}{}
	}
	if _, busy := s.held[key]; busy {
		return nil, false
	}
	s.held[key] = struct{}{}
	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.held, key)
			s.mu.Unlock()
		})
	}, true
}

// Held reports whether key is currently locked.
func (s *Set[K]) Held(key K) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.held[key]
	return ok
}

// Flight deduplicates concurrent calls for the same key: the first caller runs
// fn, later callers wait for its result instead of running their own.
type Flight[K comparable, V any] struct {
	mu    sync.Mutex
	calls map[K]*call[V]
}

type call[V any] struct {
	done    chan struct{}
	val     V
	err     error
	waiters int
}

// Do runs fn once per key at a time. leader is false for callers that received
// the result of another caller's run. A waiting caller gives up with ctx.Err()
// when ctx ends; the leader's run is not affected.
func (f *Flight[K, V]) Do(ctx context.Context, key K, fn func() (V, error)) (val V, err error, leader bool) {
	f.mu.Lock()
	if f.calls == nil {
		f.calls = map[K]*call[V]{}
	}
	if c, ok := f.calls[key]; ok {
		c.waiters++
		f.mu.Unlock()
		select {
		case <-c.done:
			return c.val, c.err, false
		case <-ctx.Done():
			f.mu.Lock()
			c.waiters--
			f.mu.Unlock()
			var zero V
			return zero, ctx.Err(), false
		}
	}
	c := &call[V]{done: make(chan struct{})}
	f.calls[key] = c
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		delete(f.calls, key)
		f.mu.Unlock()
		close(c.done)
	}()
	c.val, c.err = fn()
	return c.val, c.err, true
}

// Waiting reports how many callers are blocked on the in-flight call for key.
func (f *Flight[K, V]) Waiting(key K) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c, ok := f.calls[key]; ok {
		return c.waiters
	}
	return 0
}
