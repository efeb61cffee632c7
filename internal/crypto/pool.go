package crypto

import (
	"context"
	"runtime"

	"golang.org/x/sync/semaphore"
)

// Pool bounds how many hash or verify operations run at once. Argon2id
// allocates its full memory parameter per call.
type Pool struct {
	sem  *semaphore.Weighted
	size int
}

// NewPool creates a Pool admitting size concurrent operations, or one per CPU
// when size is not positive.
func NewPool(size int) *Pool {
	if size <= 0 {
		size = runtime.NumCPU()
	}
	return &Pool{sem: semaphore.NewWeighted(int64(size)), size: size}
}

// Size returns the number of concurrent slots.
func (p *Pool) Size() int {
	return p.size
}

// Do runs fn once a slot is free. Once admitted, fn always runs to completion.
func (p *Pool) Do(fn func() error) error {
	if p == nil {
		return fn()
	}
	if err := p.sem.Acquire(context.Background(), 1); err != nil {
		return err
	}
	defer p.sem.Release(1)
	return fn()
}
