package server

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const persistTimeout = 5 * time.Second

type persistJob struct {
	what string
	run  func(ctx context.Context) error
}

// persistQueue runs storage writes on a single worker, in the order they
// were enqueued, off the hub's broadcast path.
type persistQueue struct {
	jobs      chan persistJob
	done      chan struct{}
	closeOnce sync.Once
	failures  prometheus.Counter
	log       *slog.Logger
}

func newPersistQueue(size int, failures prometheus.Counter, log *slog.Logger) *persistQueue {
	if size <= 0 {
		size = defaultPersistQueueSize
	}
	q := &persistQueue{
		jobs:     make(chan persistJob, size),
		done:     make(chan struct{}),
		failures: failures,
		log:      log,
	}
	go q.work()
	return q
}

// enqueue blocks only when the queue is full.
func (q *persistQueue) enqueue(what string, run func(ctx context.Context) error) {
	q.jobs <- persistJob{what: what, run: run}
}

func (q *persistQueue) work() {
	defer close(q.done)

	for job := range q.jobs {
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		err := job.run(ctx)
		cancel()

		if err != nil {
			q.failures.Inc()
			q.log.Error("persistence failed, in-memory state stays authoritative", "what", job.what, "error", err)
		}
	}
}

// close stops accepting jobs and waits until the queued ones have run.
func (q *persistQueue) close() {
	q.closeOnce.Do(func() {
		close(q.jobs)
	})
	<-q.done
}
