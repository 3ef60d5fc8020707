// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package parallel provides a bounded-concurrency worker pool for per-row
// work whose results are collected by index.
package parallel

import (
	"context"
	"sort"
	"sync"
	"time"

	"docrecon/internal/observability"
)

// Job is one unit of row work. Execute must honor ctx cancellation.
type Job[T any] struct {
	Index   int
	Execute func(ctx context.Context) (T, error)
}

// Result pairs a job's outcome with its row index.
type Result[T any] struct {
	Index    int
	Value    T
	Err      error
	Duration time.Duration
}

// Pool fans row jobs out across a fixed number of workers. Order of
// processing is unspecified; callers key results by index.
type Pool[T any] struct {
	workers  int
	jobs     chan Job[T]
	results  chan Result[T]
	wg       sync.WaitGroup
	observer *observability.StandardObserver
}

// NewPool creates a pool with the given worker count (minimum 1).
func NewPool[T any](workers int, observer *observability.StandardObserver) *Pool[T] {
	if workers < 1 {
		workers = 1
	}
	return &Pool[T]{
		workers:  workers,
		jobs:     make(chan Job[T], workers*2),
		results:  make(chan Result[T], workers*2),
		observer: observer,
	}
}

// Run executes all jobs and returns results ordered by index. Jobs in
// flight when ctx is cancelled report ctx.Err(); queued jobs are drained
// without executing.
func (p *Pool[T]) Run(ctx context.Context, jobs []Job[T]) []Result[T] {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(ctx)
	}

	go func() {
		defer close(p.jobs)
		for _, job := range jobs {
			p.jobs <- job
		}
	}()

	collected := make([]Result[T], 0, len(jobs))
	for range jobs {
		collected = append(collected, <-p.results)
	}
	p.wg.Wait()

	sort.Slice(collected, func(i, j int) bool { return collected[i].Index < collected[j].Index })
	return collected
}

func (p *Pool[T]) worker(ctx context.Context) {
	defer p.wg.Done()

	for job := range p.jobs {
		// A cancelled context short-circuits remaining jobs so every
		// index still gets a result.
		if ctx.Err() != nil {
			p.results <- Result[T]{Index: job.Index, Err: ctx.Err()}
			continue
		}

		start := time.Now()
		value, err := job.Execute(ctx)
		duration := time.Since(start)

		if p.observer != nil {
			p.observer.LogOperation(observability.StandardObservabilityData{
				Component:  "worker_pool",
				Operation:  "row_job",
				DurationMs: duration.Milliseconds(),
				Success:    err == nil,
			})
		}

		p.results <- Result[T]{Index: job.Index, Value: value, Err: err, Duration: duration}
	}
}

// Map runs fn for each of n rows with bounded concurrency and returns
// results ordered by row index.
func Map[T any](ctx context.Context, workers, n int, observer *observability.StandardObserver, fn func(ctx context.Context, index int) (T, error)) []Result[T] {
	jobs := make([]Job[T], n)
	for i := 0; i < n; i++ {
		index := i
		jobs[i] = Job[T]{Index: index, Execute: func(ctx context.Context) (T, error) {
			return fn(ctx, index)
		}}
	}
	return NewPool[T](workers, observer).Run(ctx, jobs)
}
