package bot

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/capitalize-ai/supportbot-workspace/internal/model"
	"github.com/capitalize-ai/supportbot-workspace/pkg/logger"
	"github.com/capitalize-ai/supportbot-workspace/pkg/metrics"
)

// ErrQueueClosed is returned when enqueueing after Stop.
var ErrQueueClosed = errors.New("reply queue closed")

// JobHandler processes one reply job.
type JobHandler func(ctx context.Context, job model.ReplyJob) error

// Queue accepts reply jobs for background processing.
type Queue interface {
	Enqueue(ctx context.Context, job model.ReplyJob) error
}

// MemoryQueue runs reply jobs on a fixed pool of goroutines. Jobs still
// buffered when the process exits are lost.
type MemoryQueue struct {
	jobs    chan model.ReplyJob
	workers int
	logger  *logger.Logger

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewMemoryQueue creates a queue with the given worker count and buffer.
func NewMemoryQueue(workers, buffer int, log *logger.Logger) *MemoryQueue {
	if workers <= 0 {
		workers = 1
	}
	if buffer < 0 {
		buffer = 0
	}
	return &MemoryQueue{
		jobs:    make(chan model.ReplyJob, buffer),
		workers: workers,
		logger:  log.Named("reply_queue"),
	}
}

// Start launches the workers. They run until Stop is called; ctx is passed
// to every job.
func (q *MemoryQueue) Start(ctx context.Context, handle JobHandler) {
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go func() {
			defer q.wg.Done()
			for job := range q.jobs {
				runJob(ctx, q.logger, handle, job)
			}
		}()
	}
}

// Enqueue implements Queue. It blocks while the buffer is full.
func (q *MemoryQueue) Enqueue(ctx context.Context, job model.ReplyJob) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrQueueClosed
	}
	select {
	case q.jobs <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop closes the queue and waits for buffered jobs to finish.
func (q *MemoryQueue) Stop() {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.jobs)
	}
	q.mu.Unlock()
	q.wg.Wait()
}

func runJob(ctx context.Context, log *logger.Logger, handle JobHandler, job model.ReplyJob) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("reply job panicked",
				zap.String("job_id", job.ID),
				zap.String("conversation_id", job.ConversationID),
				zap.Any("panic", r),
			)
			metrics.RecordReplyJob("panic")
		}
	}()
	if err := handle(ctx, job); err != nil {
		log.Error("reply job failed",
			zap.String("job_id", job.ID),
			zap.String("conversation_id", job.ConversationID),
			zap.Error(err),
		)
		metrics.RecordReplyJob("error")
		return
	}
	metrics.RecordReplyJob("done")
}
