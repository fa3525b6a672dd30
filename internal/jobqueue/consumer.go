package jobqueue

import (
	"context"
	"sync"

	"github.com/dalanapp/dalan-go/internal/errors"
	obsmetrics "github.com/dalanapp/dalan-go/internal/observability/metrics"
)

// Handler processes one detection job.
type Handler interface {
	ProcessJob(ctx context.Context, job Job) error
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, job Job) error

func (f HandlerFunc) ProcessJob(ctx context.Context, job Job) error {
	return f(ctx, job)
}

// Consumer drains a Queue with a fixed number of workers.
type Consumer struct {
	queue   *Queue
	handler Handler
	workers int
	metrics *obsmetrics.JobQueueMetrics
	wg      sync.WaitGroup
}

// NewConsumer builds a consumer. Metrics may be nil.
func NewConsumer(queue *Queue, handler Handler, workers int, m *obsmetrics.JobQueueMetrics) *Consumer {
	if workers < 1 {
		workers = 1
	}
	return &Consumer{
		queue:   queue,
		handler: handler,
		workers: workers,
		metrics: m,
	}
}

// Start launches the workers. They run until ctx is cancelled.
func (c *Consumer) Start(ctx context.Context) {
	logger.Info("starting job queue consumer", "workers", c.workers)
	for i := 0; i < c.workers; i++ {
		c.wg.Add(1)
		go c.run(ctx)
	}
}

// Wait blocks until all workers have exited.
func (c *Consumer) Wait() {
	c.wg.Wait()
}

func (c *Consumer) run(ctx context.Context) {
	defer c.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case job := <-c.queue.jobs:
			c.process(ctx, job)
			if c.metrics != nil {
				c.metrics.SetQueueDepth(c.queue.Len())
			}
		}
	}
}

func (c *Consumer) process(ctx context.Context, job Job) {
	err := c.handler.ProcessJob(ctx, job)
	switch {
	case err == nil:
		if c.metrics != nil {
			c.metrics.RecordProcessed("success")
		}
		logger.Info("job processed", "entry_id", job.EntryID)
	case errors.Is(err, errors.ErrNotFound):
		// The entry was deleted while the job waited. Nothing to do.
		if c.metrics != nil {
			c.metrics.RecordProcessed("skipped")
		}
		logger.Info("job skipped, entry no longer exists", "entry_id", job.EntryID)
	default:
		if c.metrics != nil {
			c.metrics.RecordProcessed("error")
		}
		logger.Error("job failed",
			"entry_id", job.EntryID,
			"error", err)
	}
}
