// Package worker provides a small bounded pool for CPU-bound and slow
// collaborator work (embedding computation, dictionary enrichment) so it
// never runs on the conversational request path.
package worker

import (
	"context"
	"errors"
	"sync"

	"github.com/sirupsen/logrus"
)

// ErrPoolClosed is returned when a job is submitted after Close.
var ErrPoolClosed = errors.New("worker pool closed")

// Job is a unit of background work.
type Job func(ctx context.Context) error

// Pool runs jobs on a fixed number of goroutines.
type Pool struct {
	jobs    chan Job
	wg      sync.WaitGroup
	logger  *logrus.Logger
	workers int

	closeMu sync.Mutex
	closed  bool
}

// NewPool creates a pool with the given number of workers and queue capacity.
func NewPool(workers, queue int, logger *logrus.Logger) *Pool {
	if workers <= 0 {
		workers = 1
	}
	if queue <= 0 {
		queue = workers * 2
	}
	return &Pool{
		jobs:    make(chan Job, queue),
		logger:  logger,
		workers: workers,
	}
}

// Start launches the worker goroutines. They drain the queue until ctx is
// done or Close is called.
func (p *Pool) Start(ctx context.Context) {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case job, ok := <-p.jobs:
					if !ok {
						return
					}
					if err := job(ctx); err != nil {
						p.logger.WithError(err).Debug("background job failed")
					}
				}
			}
		}()
	}
}

// Submit enqueues a fire-and-forget job.
func (p *Pool) Submit(job Job) error {
	p.closeMu.Lock()
	defer p.closeMu.Unlock()
	if p.closed {
		return ErrPoolClosed
	}
	p.jobs <- job
	return nil
}

// Do runs the job on the pool and waits for it, so request handlers await a
// result instead of blocking a worker-bound computation inline.
func (p *Pool) Do(ctx context.Context, job Job) error {
	done := make(chan error, 1)
	wrapped := func(jobCtx context.Context) error {
		err := job(jobCtx)
		done <- err
		return err
	}
	if err := p.Submit(wrapped); err != nil {
		return err
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		return err
	}
}

// Close stops accepting jobs and waits for in-flight work to finish.
func (p *Pool) Close() {
	p.closeMu.Lock()
	if p.closed {
		p.closeMu.Unlock()
		return
	}
	p.closed = true
	close(p.jobs)
	p.closeMu.Unlock()
	p.wg.Wait()
}
