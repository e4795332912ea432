// future.go: Future primitive for the Hermes worker pool
//
// Copyright (c) 2025 AGILira
// Series: an AGLIra fragment
// SPDX-License-Identifier: MPL-2.0

package worker

import "sync"

// Future is a write-once container resolved by a worker and awaited by
// the submitter. Cancellation of in-flight work is not supported; a
// caller can only await or abandon the future.
type Future[T any] struct {
	once sync.Once
	done chan struct{}
	val  T
}

// NewFuture returns an unresolved Future.
func NewFuture[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

// Resolve stores the value and wakes every waiter. Later calls are no-ops.
func (f *Future[T]) Resolve(v T) {
	f.once.Do(func() {
		f.val = v
		close(f.done)
	})
}

// Wait blocks until the future resolves and returns its value.
func (f *Future[T]) Wait() T {
	<-f.done
	return f.val
}

// Done returns a channel closed once the future has resolved.
func (f *Future[T]) Done() <-chan struct{} { return f.done }

// Go submits fn to the pool and returns a Future for its result. If fn
// panics, or the pool is already closed, the future resolves to the zero
// value rather than propagating the failure.
func Go[T any](p *Pool, fn func() T) *Future[T] {
	f := NewFuture[T]()
	submitted := p.Submit(func() {
		defer func() {
			if r := recover(); r != nil {
				var zero T
				f.Resolve(zero)
				panic(r) // re-raise for the pool's own suppression logging
			}
		}()
		f.Resolve(fn())
	})
	if !submitted {
		var zero T
		f.Resolve(zero)
	}
	return f
}
