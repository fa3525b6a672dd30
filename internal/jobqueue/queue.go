// Package jobqueue provides an in-process queue of detection jobs. Every new
// entry is enqueued as a safety net so detection still happens when the
// inline attempt during upload is skipped or interrupted.
package jobqueue

import (
	"log/slog"
	"path/filepath"

	"github.com/dalanapp/dalan-go/internal/errors"
	"github.com/dalanapp/dalan-go/internal/logging"
	"github.com/dalanapp/dalan-go/internal/observability/metrics"
)

var logger *slog.Logger

func init() {
	var err error
	logFilePath := filepath.Join("logs", "jobqueue.log")
	logger, _, err = logging.NewFileLogger(logFilePath, "jobqueue", slog.LevelInfo)
	if err != nil {
		logger = logging.ForService("jobqueue")
	}
}

// Job is a request to run detection for one entry.
type Job struct {
	EntryID  string `json:"entry_id"`
	ImageURL string `json:"image_url"`
	UserID   string `json:"user_id"`
}

// Queue is a bounded FIFO of detection jobs.
type Queue struct {
	jobs    chan Job
	metrics *metrics.JobQueueMetrics
}

// NewQueue creates a queue holding at most size jobs. Metrics may be nil.
func NewQueue(size int, m *metrics.JobQueueMetrics) *Queue {
	return &Queue{
		jobs:    make(chan Job, size),
		metrics: m,
	}
}

// Enqueue adds a job without blocking. A full queue is reported as an error
// so the caller can log it; the entry itself is already persisted and can be
// re-queued later.
func (q *Queue) Enqueue(job Job) error {
	select {
	case q.jobs <- job:
		if q.metrics != nil {
			q.metrics.RecordEnqueued()
			q.metrics.SetQueueDepth(len(q.jobs))
		}
		logger.Debug("job enqueued",
			"entry_id", job.EntryID,
			"queue_depth", len(q.jobs))
		return nil
	default:
		return errors.Newf("job queue is full").
			Component("jobqueue").
			Category(errors.CategoryJobQueue).
			Context("entry_id", job.EntryID).
			Context("capacity", cap(q.jobs)).
			Build()
	}
}

// Len reports the number of jobs waiting.
func (q *Queue) Len() int {
	return len(q.jobs)
}
