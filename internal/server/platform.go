package server

import "context"

// platformPool is a fixed set of worker goroutines, the stand-in for a
// classic OS-thread pool. A worker is held for the full duration of a
// job, blocking included.
type platformPool struct {
	jobs chan platformJob
}

type platformJob struct {
	run  func(ctx context.Context) error
	ctx  context.Context
	done chan error
}

func newPlatformPool(n int) *platformPool {
	if n < 1 {
		n = 1
	}
	p := &platformPool{jobs: make(chan platformJob)}
	for i := 0; i < n; i++ {
		go p.worker()
	}
	return p
}

func (p *platformPool) worker() {
	for job := range p.jobs {
		job.done <- job.run(job.ctx)
	}
}

// Do runs fn on a pool worker and waits for it. Submission blocks until
// a worker is free or ctx is cancelled.
func (p *platformPool) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	job := platformJob{run: fn, ctx: ctx, done: make(chan error, 1)}
	select {
	case p.jobs <- job:
	case <-ctx.Done():
		return ctx.Err()
	}
	return <-job.done
}
