// worker.go: Background worker pool for the Hermes KV service
//
// Copyright (c) 2025 AGILira
// Series: an AGLIra fragment
// SPDX-License-Identifier: MPL-2.0

// Package worker provides a fixed pool of background workers draining a
// shared FIFO task queue, plus a small future primitive for handing
// results back across the asynchronous boundary.
package worker

import (
	"sync"

	log "github.com/sirupsen/logrus"
)

// DefaultWorkers is the worker count used when Pool is built with a
// non-positive size.
const DefaultWorkers = 4

// Task is one unit of queued work.
type Task func()

// Pool runs a fixed set of workers over a FIFO queue. A panicking task is
// logged and suppressed; it never takes a worker down.
type Pool struct {
	mu     sync.Mutex
	cond   *sync.Cond
	queue  []Task
	closed bool
	wg     sync.WaitGroup
}

// NewPool starts n workers (DefaultWorkers when n <= 0).
func NewPool(n int) *Pool {
	if n <= 0 {
		n = DefaultWorkers
	}
	p := &Pool{}
	p.cond = sync.NewCond(&p.mu)
	p.wg.Add(n)
	for i := 0; i < n; i++ {
		go p.run()
	}
	return p
}

// Submit enqueues a task, waking one idle worker. It returns false after
// Close, in which case the task is not run.
func (p *Pool) Submit(t Task) bool {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return false
	}
	p.queue = append(p.queue, t)
	p.mu.Unlock()
	p.cond.Signal()
	return true
}

// Close stops accepting tasks, lets the queue drain, and waits for every
// worker to exit.
func (p *Pool) Close() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	p.cond.Broadcast()
	p.wg.Wait()
}

func (p *Pool) run() {
	defer p.wg.Done()
	for {
		p.mu.Lock()
		for len(p.queue) == 0 && !p.closed {
			p.cond.Wait()
		}
		if len(p.queue) == 0 {
			p.mu.Unlock()
			return
		}
		t := p.queue[0]
		p.queue = p.queue[1:]
		p.mu.Unlock()

		p.execute(t)
	}
}

// execute runs one task with panics suppressed.
func (p *Pool) execute(t Task) {
	defer func() {
		if r := recover(); r != nil {
			log.WithField("panic", r).Warn("worker task panicked")
		}
	}()
	t()
}
