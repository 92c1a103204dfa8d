package services

import (
	"context"
	"sync"

	"rentledger-backend/logger"

	"github.com/rs/zerolog"
)

// DispatchQueue runs post-commit jobs on a single consumer goroutine. Jobs are
// processed in enqueue order; a failing job is logged and never retried.
type DispatchQueue struct {
	jobs    chan Job
	done    chan struct{}
	log     zerolog.Logger
	mu      sync.RWMutex
	closed  bool
	started bool
}

// NewDispatchQueue creates a queue with the given buffer size.
func NewDispatchQueue(bufSize int) *DispatchQueue {
	if bufSize < 1 {
		bufSize = 256
	}
	return &DispatchQueue{
		jobs: make(chan Job, bufSize),
		done: make(chan struct{}),
		log:  logger.WithComponent("dispatch"),
	}
}

// Enqueue is non-blocking. It returns false when the buffer is full or the
// queue is stopped, in which case the job is dropped.
func (q *DispatchQueue) Enqueue(job Job) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		q.log.Warn().Str("job", job.Name).Msg("queue stopped, dropping job")
		return false
	}
	select {
	case q.jobs <- job:
		return true
	default:
		q.log.Warn().Str("job", job.Name).Msg("buffer full, dropping job")
		return false
	}
}

// Start begins the consumer goroutine. It runs until Stop is called. Jobs
// see ctx's values but not its cancellation, so work drained by Stop after
// shutdown begins can still write its status rows.
func (q *DispatchQueue) Start(ctx context.Context) {
	ctx = context.WithoutCancel(ctx)
	q.mu.Lock()
	if q.started {
		q.mu.Unlock()
		return
	}
	q.started = true
	q.mu.Unlock()

	go func() {
		defer close(q.done)
		for job := range q.jobs {
			q.run(ctx, job)
		}
	}()
}

// Stop refuses new jobs, drains the buffer and waits for the consumer.
func (q *DispatchQueue) Stop() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	started := q.started
	close(q.jobs)
	q.mu.Unlock()

	if started {
		<-q.done
	}
}

func (q *DispatchQueue) run(ctx context.Context, job Job) {
	defer func() {
		if r := recover(); r != nil {
			q.log.Error().Str("job", job.Name).Interface("panic", r).Msg("job panicked")
		}
	}()
	if err := job.Run(ctx); err != nil {
		q.log.Error().Err(err).Str("job", job.Name).Msg("job failed")
	}
}
