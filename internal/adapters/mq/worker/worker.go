// Package worker runs the refresh pipeline: workers drain the task queue,
// recompute the affected leaderboard window, and hand it to the broadcaster.
// Everything here is downstream of a durably committed event, so failures
// are logged and counted, never propagated back to a caller.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"time"

	"github.com/gideonadeti/realtime-leaderboard/internal/adapters/mq/queue"
	"github.com/gideonadeti/realtime-leaderboard/internal/domain/board"
	"github.com/gideonadeti/realtime-leaderboard/pkg/logger"
	"github.com/gideonadeti/realtime-leaderboard/pkg/metrics"
)

// Default worker configuration constants.
const (
	defaultWorkerMultiplier = 2 // multiplier for runtime.NumCPU()
	workerShutdownTimeout   = 5 * time.Second
)

// Refresher recomputes and publishes one scope's leaderboard window.
type Refresher interface {
	Refresh(ctx context.Context, scope board.Scope) error
}

// Queue defines how workers receive tasks.
type Queue interface {
	Dequeue(ctx context.Context) <-chan queue.Task
}

// Worker drains refresh tasks until stopped.
type Worker struct {
	queue     Queue
	refresher Refresher
	name      string

	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// NewWorker creates a worker with configuration options.
func NewWorker(q Queue, r Refresher, opts ...Option) *Worker {
	w := &Worker{
		queue:     q,
		refresher: r,
		name:      "worker",
		shutdown:  make(chan struct{}),
		done:      make(chan struct{}),
		logger:    logger.Get().Named("worker"),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.name != "worker" {
		w.logger = w.logger.Named(w.name)
	}
	return w
}

// Run starts the worker loop until ctx is canceled or the queue closes.
func (w *Worker) Run(ctx context.Context) {
	defer close(w.done)

	tasks := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case t, ok := <-tasks:
			if !ok {
				return
			}
			w.process(ctx, t)
		}
	}
}

// process refreshes one scope. Failures are logged and counted, not
// returned: the store mutation that triggered the task already happened.
func (w *Worker) process(ctx context.Context, t queue.Task) {
	start := time.Now()
	err := w.refresher.Refresh(ctx, t.Scope)
	metrics.RecordRefreshLatency(float64(time.Since(start).Milliseconds()))
	if err != nil {
		metrics.RecordRefreshError()
		metrics.RecordErrorByComponent("worker", "refresh")
		w.logger.Error(ctx, "refresh failed",
			logger.String("scope", t.Scope.String()),
			logger.Error(err),
		)
	}
}

// Shutdown stops the worker and waits for it to drain.
func (w *Worker) Shutdown(ctx context.Context) error {
	close(w.shutdown)
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("worker shutdown: %w", ctx.Err())
	}
}

// Pool manages a fixed set of workers over one queue.
type Pool struct {
	workers []*Worker
	queue   Queue

	logger logger.Logger
}

// NewPool creates and wires workerCount workers.
func NewPool(workerCount int, q Queue, r Refresher) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU() * defaultWorkerMultiplier
	}

	p := &Pool{
		workers: make([]*Worker, workerCount),
		queue:   q,
		logger:  logger.Get().Named("worker-pool"),
	}
	for i := 0; i < workerCount; i++ {
		p.workers[i] = NewWorker(q, r, WithName("worker-"+strconv.Itoa(i)))
	}

	metrics.UpdateWorkerCount(workerCount)
	return p
}

// Start launches every worker.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// Stop signals every worker and waits briefly for each to finish.
func (p *Pool) Stop() {
	for _, w := range p.workers {
		close(w.shutdown)
	}
	for _, w := range p.workers {
		select {
		case <-w.done:
		case <-time.After(workerShutdownTimeout):
		}
	}
	metrics.UpdateWorkerCount(0)
}
