package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/progreswwa/ekipa-strategow-back/internal/domain"
	"github.com/progreswwa/ekipa-strategow-back/internal/queue"
)

const DefaultConcurrency = 4

// ErrDraining is returned for messages that arrive after Wait was called.
var ErrDraining = errors.New("worker is draining")

// Runner executes the deployment pipeline for one message.
type Runner interface {
	Run(ctx context.Context, message domain.DeployMessage) (*domain.Job, error)
}

// Processor consumes deploy messages and runs each pipeline in its own
// goroutine, at most concurrency at a time.
type Processor struct {
	consumer queue.Consumer
	runner   Runner
	logger   zerolog.Logger

	slots chan struct{}

	// mu orders inflight.Add against the drain started by Wait.
	mu       sync.Mutex
	draining bool
	inflight sync.WaitGroup
}

func NewProcessor(consumer queue.Consumer, runner Runner, concurrency int, logger zerolog.Logger) *Processor {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &Processor{
		consumer: consumer,
		runner:   runner,
		logger:   logger,
		slots:    make(chan struct{}, concurrency),
	}
}

// Start blocks until ctx is cancelled, restarting the consume loop after
// transient errors.
func (p *Processor) Start(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}

		err := p.consumer.Consume(ctx, p.dispatch)
		if err == nil || ctx.Err() != nil {
			return
		}
		p.logger.Error().Err(err).Msg("worker consume loop error")

		timer := time.NewTimer(2 * time.Second)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

// Wait stops new pipelines from starting and blocks until in-flight ones
// finish or timeout elapses. It reports whether everything finished.
func (p *Processor) Wait(timeout time.Duration) bool {
	p.mu.Lock()
	p.draining = true
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.inflight.Wait()
		close(done)
	}()

	select {
	case <-done:
		return true
	case <-time.After(timeout):
		return false
	}
}

func (p *Processor) dispatch(ctx context.Context, message domain.DeployMessage) error {
	select {
	case p.slots <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}

	p.mu.Lock()
	if p.draining || ctx.Err() != nil {
		p.mu.Unlock()
		<-p.slots
		if err := ctx.Err(); err != nil {
			return err
		}
		return ErrDraining
	}
	p.inflight.Add(1)
	p.mu.Unlock()

	// Pipelines outlive the consume loop so shutdown can drain them.
	runCtx := context.WithoutCancel(ctx)
	go func() {
		defer p.inflight.Done()
		defer func() { <-p.slots }()
		defer func() {
			if recovered := recover(); recovered != nil {
				p.logger.Error().Str("job_id", message.JobID).Interface("panic", recovered).Msg("deployment pipeline panicked")
			}
		}()

		if _, err := p.runner.Run(runCtx, message); err != nil {
			p.logger.Error().Err(err).Str("job_id", message.JobID).Msg("deployment pipeline failed")
		}
	}()
	return nil
}
