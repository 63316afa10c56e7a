// © 2013 the CatBase Authors under the WTFPL. See AUTHORS for the list of authors.

// Package pool runs blocking calls on a bounded set of workers.
package pool

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"
)

var ErrClosed = errors.New("pool: closed")

// Pool runs at most Size calls at once. Callers wait for their own call.
type Pool struct {
	size  int
	slots *semaphore.Weighted

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// New returns a pool of size workers. A size below 1 means 1.
func New(size int) *Pool {
	if size < 1 {
		size = 1
	}
	return &Pool{size: size, slots: semaphore.NewWeighted(int64(size))}
}

// Size is the number of calls that can run at once.
func (p *Pool) Size() int {
	return p.size
}

// Run calls fn on a worker and waits for it. If ctx is done first Run returns
// ctx.Err(); fn keeps running to completion on its worker. A panic in fn is
// returned as an error.
func (p *Pool) Run(ctx context.Context, fn func() error) error {
	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		return ErrClosed
	}
	p.wg.Add(1)
	p.mu.RUnlock()

	if err := p.slots.Acquire(ctx, 1); err != nil {
		p.wg.Done()
		return err
	}

	done := make(chan error, 1)
	go func() {
		defer p.wg.Done()
		defer p.slots.Release(1)
		defer func() {
			if r := recover(); r != nil {
				log.Error().
					Interface("panic", r).
					Str("stack", string(debug.Stack())).
					Msg("worker panicked")
				done <- fmt.Errorf("panic: %v", r)
			}
		}()
		done <- fn()
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting work and waits for running calls or ctx.
func (p *Pool) Close(ctx context.Context) error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()

	finished := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(finished)
	}()
	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
