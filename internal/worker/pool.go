// Package worker runs book builds concurrently and throttles outbound
// summary requests.
package worker

import (
	"context"
	"sync"
)

// Job represents a unit of work to be executed
type Job interface {
	Execute(ctx context.Context) Result
}

// Result represents the result of a job execution
type Result interface {
	GetError() error
}

// Pool runs jobs on a fixed number of goroutines. Results are drained as
// they arrive, so any number of jobs may be submitted before Wait.
type Pool struct {
	workers   int
	jobs      chan Job
	results   chan Result
	collected *ResultCollector
	drained   chan struct{}

	wg      sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc
	started bool

	closeJobs    sync.Once
	closeResults sync.Once
}

// NewPool creates a pool with the given number of workers (at least one).
// Call Start before submitting.
func NewPool(workers int) *Pool {
	if workers <= 0 {
		workers = 1
	}
	return &Pool{
		workers:   workers,
		jobs:      make(chan Job, workers),
		results:   make(chan Result, workers),
		collected: NewResultCollector(),
		drained:   make(chan struct{}),
	}
}

// Start launches the workers. Jobs run under a context derived from ctx;
// cancelling ctx or calling Shutdown stops handing out jobs.
func (p *Pool) Start(ctx context.Context) {
	p.ctx, p.cancel = context.WithCancel(ctx)
	p.started = true

	go func() {
		defer close(p.drained)
		for r := range p.results {
			p.collected.Add(r)
		}
	}()

	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
}

func (p *Pool) worker() {
	defer p.wg.Done()

	for {
		select {
		case <-p.ctx.Done():
			return
		case job, ok := <-p.jobs:
			if !ok {
				return
			}
			p.results <- job.Execute(p.ctx)
		}
	}
}

// Submit queues a job, blocking while the queue is full. Once the pool is
// shut down or waited on it returns the context error instead.
func (p *Pool) Submit(job Job) error {
	if err := p.ctx.Err(); err != nil {
		return err
	}
	select {
	case <-p.ctx.Done():
		return p.ctx.Err()
	case p.jobs <- job:
		return nil
	}
}

// Wait stops accepting jobs, waits for the queued ones and returns every
// result in completion order
func (p *Pool) Wait() []Result {
	if !p.started {
		return nil
	}
	p.closeJobs.Do(func() { close(p.jobs) })
	p.wg.Wait()
	p.closeResults.Do(func() { close(p.results) })
	<-p.drained
	p.cancel()
	return p.collected.Results()
}

// Shutdown cancels outstanding work and waits for running jobs to return
func (p *Pool) Shutdown() []Result {
	if !p.started {
		return nil
	}
	p.cancel()
	return p.Wait()
}

// ResultCollector gathers results from concurrent producers
type ResultCollector struct {
	results []Result
	mu      sync.Mutex
}

// NewResultCollector creates a new result collector
func NewResultCollector() *ResultCollector {
	return &ResultCollector{
		results: make([]Result, 0),
	}
}

// Add adds a result to the collector (thread-safe)
func (c *ResultCollector) Add(result Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.results = append(c.results, result)
}

// Results returns a copy of the collected results
func (c *ResultCollector) Results() []Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Result, len(c.results))
	copy(out, c.results)
	return out
}
