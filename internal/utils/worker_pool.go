package utils

import (
	"runtime/debug"
	"sync"
)

// Job represents a task to be executed by a worker.
type Job struct {
	Task func()
}

// PanicHandler receives the value and stack of a job that panicked.
type PanicHandler func(recovered interface{}, stack []byte)

// PoolOption configures a WorkerPool.
type PoolOption func(*WorkerPool)

// WithPanicHandler reports recovered job panics to fn.
func WithPanicHandler(fn PanicHandler) PoolOption {
	return func(wp *WorkerPool) { wp.onPanic = fn }
}

// WorkerPool manages a pool of workers to execute jobs.
// A panicking job is recovered and does not stop its worker.
type WorkerPool struct {
	workers   int
	jobQueue  chan Job
	waitGroup sync.WaitGroup
	onPanic   PanicHandler

	mu     sync.RWMutex
	closed bool
}

// NewWorkerPool creates a new WorkerPool with the specified number of workers
// and a job queue of queueSize (at least one slot per worker).
func NewWorkerPool(workers, queueSize int, opts ...PoolOption) *WorkerPool {
	if workers < 1 {
		workers = 1
	}
	if queueSize < workers {
		queueSize = workers
	}
	pool := &WorkerPool{
		workers:  workers,
		jobQueue: make(chan Job, queueSize),
	}
	for _, opt := range opts {
		opt(pool)
	}

	pool.waitGroup.Add(workers)
	for i := 0; i < workers; i++ {
		go pool.worker()
	}

	return pool
}

// worker processes jobs from the jobQueue.
func (wp *WorkerPool) worker() {
	defer wp.waitGroup.Done()
	for job := range wp.jobQueue {
		wp.execute(job)
	}
}

func (wp *WorkerPool) execute(job Job) {
	defer func() {
		if r := recover(); r != nil && wp.onPanic != nil {
			wp.onPanic(r, debug.Stack())
		}
	}()
	job.Task()
}

// Submit queues a job, blocking while the queue is full.
// It returns false once the pool has been shut down.
func (wp *WorkerPool) Submit(task func()) bool {
	wp.mu.RLock()
	defer wp.mu.RUnlock()
	if wp.closed {
		return false
	}
	wp.jobQueue <- Job{Task: task}
	return true
}

// TrySubmit queues a job without blocking. It returns false when the queue
// is full or the pool has been shut down.
func (wp *WorkerPool) TrySubmit(task func()) bool {
	wp.mu.RLock()
	defer wp.mu.RUnlock()
	if wp.closed {
		return false
	}
	select {
	case wp.jobQueue <- Job{Task: task}:
		return true
	default:
		return false
	}
}

// Shutdown waits for queued jobs to finish and then closes the worker pool.
func (wp *WorkerPool) Shutdown() {
	wp.mu.Lock()
	if wp.closed {
		wp.mu.Unlock()
		return
	}
	wp.closed = true
	close(wp.jobQueue)
	wp.mu.Unlock()

	wp.waitGroup.Wait()
}
