package services

import (
	"context"
	"sync"
	"time"

	"silent-auction/pkg/logger"
)

// TaskRunner runs a task in the background. Run reports whether the task was
// accepted; callers must treat a false return as a dropped best-effort side
// effect, never as a failure of the triggering operation.
type TaskRunner interface {
	Run(name string, fn func(ctx context.Context) error) bool
}

type task struct {
	name string
	fn   func(ctx context.Context) error
}

// DispatchQueue is a bounded background task queue. Bid-time notification
// side effects are fired into it so a slow email provider can never add
// latency to bid placement. When the queue is full tasks are dropped with a
// warning rather than blocking the caller.
type DispatchQueue struct {
	tasks       chan task
	workers     int
	taskTimeout time.Duration
	wg          sync.WaitGroup
	cancel      context.CancelFunc
	mu          sync.RWMutex
	stopped     bool
	log         logger.Logger
}

func NewDispatchQueue(size, workers int, taskTimeout time.Duration, log logger.Logger) *DispatchQueue {
	if size <= 0 {
		size = 256
	}
	if workers <= 0 {
		workers = 4
	}
	if taskTimeout <= 0 {
		taskTimeout = 10 * time.Second
	}
	return &DispatchQueue{
		tasks:       make(chan task, size),
		workers:     workers,
		taskTimeout: taskTimeout,
		log:         log,
	}
}

func (q *DispatchQueue) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	q.cancel = cancel

	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker(ctx)
	}
	q.log.Info("Dispatch queue started", "workers", q.workers, "capacity", cap(q.tasks))
}

// Run stays safe during and after Stop: a task submitted once the queue is
// stopped is dropped, never a panic on the closed channel.
func (q *DispatchQueue) Run(name string, fn func(ctx context.Context) error) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.stopped {
		q.log.Warn("Dispatch queue stopped, dropping task", "task", name)
		return false
	}

	select {
	case q.tasks <- task{name: name, fn: fn}:
		return true
	default:
		q.log.Warn("Dispatch queue full, dropping task", "task", name)
		return false
	}
}

// Stop drains queued tasks and waits for the workers to finish. The write
// lock excludes in-flight Run calls, so the channel is only closed once no
// sender can touch it.
func (q *DispatchQueue) Stop() {
	q.mu.Lock()
	if q.stopped {
		q.mu.Unlock()
		return
	}
	q.stopped = true
	close(q.tasks)
	q.mu.Unlock()

	q.wg.Wait()
	if q.cancel != nil {
		q.cancel()
	}
	q.log.Info("Dispatch queue stopped")
}

func (q *DispatchQueue) worker(ctx context.Context) {
	defer q.wg.Done()

	for t := range q.tasks {
		taskCtx, cancel := context.WithTimeout(ctx, q.taskTimeout)
		if err := t.fn(taskCtx); err != nil {
			q.log.Error("Background task failed", "task", t.name, "error", err)
		}
		cancel()
	}
}
