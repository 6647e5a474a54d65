package queue

import (
	"context"
	"log/slog"

	"devtrack/internal/event"
)

// Publisher puts application events on a queue.
type Publisher struct {
	queue Queue
}

func NewPublisher(q Queue) *Publisher {
	return &Publisher{queue: q}
}

func (p *Publisher) Publish(ctx context.Context, e event.Event) error {
	env, err := event.Encode(e)
	if err != nil {
		return err
	}
	return p.queue.Enqueue(ctx, NewMessage(env.Name, env.Data))
}

// DisabledPublisher drops events. It stands in for Publisher when the
// event bus keys are not configured.
type DisabledPublisher struct {
	logger *slog.Logger
}

func NewDisabledPublisher(logger *slog.Logger) *DisabledPublisher {
	return &DisabledPublisher{logger: logger}
}

func (p *DisabledPublisher) Publish(ctx context.Context, e event.Event) error {
	p.logger.WarnContext(ctx, "event bus disabled, event dropped", "event", e.Name())
	return nil
}
