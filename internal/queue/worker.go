package queue

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"devtrack/internal/event"
)

const (
	DefaultMaxAttempts = 5
	DefaultConcurrency = 2
	maxBackoff         = time.Minute
)

// Handler runs the side effect of one event.
type Handler interface {
	Handle(ctx context.Context, e event.Event) error
}

// WorkerConfig configures a Worker. Zero values pick the defaults.
type WorkerConfig struct {
	MaxAttempts int
	Concurrency int
	// Backoff returns the delay before retry number attempt (1-based).
	Backoff func(attempt int) time.Duration
}

// Worker drains a queue into a Handler. A message whose handler fails is
// put back on the queue after a backoff until MaxAttempts is reached,
// then dropped with an error log.
type Worker struct {
	queue   Queue
	handler Handler
	cfg     WorkerConfig
	logger  *slog.Logger
}

func NewWorker(q Queue, h Handler, cfg WorkerConfig, logger *slog.Logger) *Worker {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	if cfg.Backoff == nil {
		cfg.Backoff = ExponentialBackoff(time.Second)
	}
	return &Worker{queue: q, handler: h, cfg: cfg, logger: logger}
}

// ExponentialBackoff doubles base for every attempt, capped at one minute.
func ExponentialBackoff(base time.Duration) func(int) time.Duration {
	return func(attempt int) time.Duration {
		d := base
		for i := 1; i < attempt && d < maxBackoff; i++ {
			d *= 2
		}
		return min(d, maxBackoff)
	}
}

// Run processes messages until ctx is cancelled or the queue is closed.
func (w *Worker) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < w.cfg.Concurrency; i++ {
		g.Go(func() error { return w.loop(ctx) })
	}
	err := g.Wait()
	if errors.Is(err, context.Canceled) || errors.Is(err, ErrClosed) {
		return nil
	}
	return err
}

func (w *Worker) loop(ctx context.Context) error {
	for {
		msg, err := w.queue.Dequeue(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, ErrClosed) {
				return err
			}
			w.logger.ErrorContext(ctx, "failed to dequeue event", "error", err)
			if !sleep(ctx, time.Second) {
				return ctx.Err()
			}
			continue
		}
		w.Process(ctx, msg)
	}
}

// Process handles one message and schedules its retry on failure.
func (w *Worker) Process(ctx context.Context, msg Message) {
	msg.Attempt++
	log := w.logger.With("message_id", msg.ID, "event", msg.Name, "attempt", msg.Attempt)

	ev, err := event.Decode(msg.Name, msg.Data)
	if err != nil {
		log.ErrorContext(ctx, "dropping undecodable event", "error", err)
		return
	}

	err = w.handler.Handle(ctx, ev)
	if err == nil {
		log.DebugContext(ctx, "event handled")
		return
	}

	if msg.Attempt >= w.cfg.MaxAttempts {
		log.ErrorContext(ctx, "event failed, giving up", "error", err)
		return
	}

	delay := w.cfg.Backoff(msg.Attempt)
	log.WarnContext(ctx, "event failed, retrying", "error", err, "retry_in", delay)

	// Requeue even when shutdown interrupts the backoff, so a durable
	// queue keeps the message.
	sleep(ctx, delay)
	requeueCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := w.queue.Enqueue(requeueCtx, msg); err != nil {
		log.ErrorContext(ctx, "failed to requeue event", "error", err)
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
