// Package worker provides a bounded worker pool for GPU-bound jobs such as
// local transcription and local LLM inference.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"
)

// ErrStopped is returned by Submit once the pool is stopped.
var ErrStopped = errors.New("worker pool stopped")

// Job represents a task to be executed by a worker.
type Job struct {
	Name       string
	Run        func(ctx context.Context) error
	ResultChan chan error
	Context    context.Context
	queuedAt   time.Time
}

// WorkerPool manages a pool of workers and a queue of jobs.
type WorkerPool struct {
	JobQueue chan Job
	PoolSize int

	mu      sync.RWMutex
	stopped bool
	wg      sync.WaitGroup
}

// NewWorkerPool creates a worker pool. Call Start before submitting.
func NewWorkerPool(poolSize int, queueSize int) *WorkerPool {
	if poolSize < 1 {
		poolSize = 1
	}
	return &WorkerPool{
		JobQueue: make(chan Job, queueSize),
		PoolSize: poolSize,
	}
}

// Start initializes the worker pool and starts the worker goroutines.
func (wp *WorkerPool) Start() {
	for i := 0; i < wp.PoolSize; i++ {
		wp.wg.Add(1)
		go func(workerID int) {
			defer wp.wg.Done()
			log.Printf("Worker %d started", workerID)
			for job := range wp.JobQueue {
				if err := job.Context.Err(); err != nil {
					// The submitter gave up while the job was queued.
					job.ResultChan <- err
					continue
				}
				log.Printf("Worker %d processing job %s (queued %s)", workerID, job.Name, time.Since(job.queuedAt).Round(time.Millisecond))
				job.ResultChan <- runJob(job)
			}
			log.Printf("Worker %d stopped", workerID)
		}(i)
	}
}

// Submit queues fn and waits for it to finish. It returns early with the
// context error if ctx ends before a worker picks the job up.
func (wp *WorkerPool) Submit(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	job := Job{
		Name:       name,
		Run:        fn,
		ResultChan: make(chan error, 1),
		Context:    ctx,
		queuedAt:   time.Now(),
	}

	wp.mu.RLock()
	if wp.stopped {
		wp.mu.RUnlock()
		return ErrStopped
	}
	select {
	case wp.JobQueue <- job:
		wp.mu.RUnlock()
	case <-ctx.Done():
		wp.mu.RUnlock()
		return ctx.Err()
	}

	return <-job.ResultChan
}

// Stop gracefully shuts down the worker pool, letting queued jobs finish.
func (wp *WorkerPool) Stop() {
	wp.mu.Lock()
	if wp.stopped {
		wp.mu.Unlock()
		return
	}
	wp.stopped = true
	close(wp.JobQueue)
	wp.mu.Unlock()

	log.Println("Stopping worker pool...")
	wp.wg.Wait()
}

func runJob(job Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job %s panicked: %v", job.Name, r)
		}
	}()
	return job.Run(job.Context)
}
