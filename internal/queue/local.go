package queue

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"github.com/progreswwa/ekipa-strategow-back/internal/domain"
)

var ErrQueueFull = errors.New("local queue is full")

// DeadLetter is a message whose handler failed, with the failure text.
type DeadLetter struct {
	Message domain.DeployMessage
	Error   string
}

// LocalQueue is a fallback queue used when Redis is not configured.
type LocalQueue struct {
	ch     chan domain.DeployMessage
	logger zerolog.Logger

	dlqMu sync.Mutex
	dlq   []DeadLetter
}

func NewLocalQueue(bufferSize int, logger zerolog.Logger) *LocalQueue {
	if bufferSize <= 0 {
		bufferSize = 512
	}
	return &LocalQueue{
		ch:     make(chan domain.DeployMessage, bufferSize),
		logger: logger,
		dlq:    make([]DeadLetter, 0),
	}
}

// Enqueue never blocks: a full buffer is reported as ErrQueueFull.
func (q *LocalQueue) Enqueue(ctx context.Context, message domain.DeployMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case q.ch <- message:
		return nil
	default:
		return ErrQueueFull
	}
}

func (q *LocalQueue) Consume(ctx context.Context, handler Handler) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case message := <-q.ch:
			if err := handler(ctx, message); err != nil {
				q.dlqMu.Lock()
				q.dlq = append(q.dlq, DeadLetter{Message: message, Error: err.Error()})
				q.dlqMu.Unlock()
				q.logger.Error().Err(err).Str("job_id", message.JobID).Msg("local queue moved message to DLQ")
			}
		}
	}
}

func (q *LocalQueue) DLQSize() int {
	q.dlqMu.Lock()
	defer q.dlqMu.Unlock()
	return len(q.dlq)
}

func (q *LocalQueue) DeadLetters() []DeadLetter {
	q.dlqMu.Lock()
	defer q.dlqMu.Unlock()
	return append([]DeadLetter(nil), q.dlq...)
}
