package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDispatchQueueRunsJobsInOrder(t *testing.T) {
	q := NewDispatchQueue(8)

	var (
		mu  sync.Mutex
		ran []string
	)
	record := func(name string) Job {
		return Job{Name: name, Run: func(context.Context) error {
			mu.Lock()
			ran = append(ran, name)
			mu.Unlock()
			return nil
		}}
	}

	assert.True(t, q.Enqueue(record("a")))
	assert.True(t, q.Enqueue(Job{Name: "fails", Run: func(context.Context) error { return errors.New("boom") }}))
	assert.True(t, q.Enqueue(Job{Name: "panics", Run: func(context.Context) error { panic("bad job") }}))
	assert.True(t, q.Enqueue(record("b")))

	q.Start(context.Background())
	q.Stop()

	assert.Equal(t, []string{"a", "b"}, ran)
	assert.False(t, q.Enqueue(record("late")))
}

func TestDispatchQueueDropsWhenFull(t *testing.T) {
	q := NewDispatchQueue(1)
	noop := Job{Name: "noop", Run: func(context.Context) error { return nil }}

	assert.True(t, q.Enqueue(noop))
	assert.False(t, q.Enqueue(noop))

	q.Stop()
	q.Stop()
}

func TestAfterCommitFallsBackWhenQueueRejects(t *testing.T) {
	f := newFixture(t)
	q := NewDispatchQueue(1)
	q.Stop()
	f.ledger.queue = q

	ran := false
	f.ledger.afterCommit(context.Background(), Job{Name: "inline", Run: func(context.Context) error {
		ran = true
		return nil
	}})
	assert.True(t, ran)
}

func TestDrainedJobsOutliveShutdownContext(t *testing.T) {
	f := newFixture(t)
	lease := f.newLease(t, "1000", "0").Lease
	q := NewDispatchQueue(4)
	ctx, cancel := context.WithCancel(context.Background())

	release := make(chan struct{})
	started := make(chan struct{})
	assert.True(t, q.Enqueue(Job{Name: "blocked", Run: func(context.Context) error {
		close(started)
		<-release
		return nil
	}}))

	var drainErr error
	assert.True(t, q.Enqueue(Job{Name: "balance", Run: func(jobCtx context.Context) error {
		_, drainErr = f.ledger.CurrentBalance(jobCtx, lease.ID)
		return drainErr
	}}))

	q.Start(ctx)
	<-started
	cancel()
	close(release)
	q.Stop()

	assert.NoError(t, drainErr)
}
