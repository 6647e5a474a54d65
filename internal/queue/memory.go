package queue

import (
	"context"
	"sync"
)

// Memory is a bounded in-process queue. Messages are lost on restart.
type Memory struct {
	ch        chan Message
	done      chan struct{}
	closeOnce sync.Once
}

func NewMemory(capacity int) *Memory {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Memory{
		ch:   make(chan Message, capacity),
		done: make(chan struct{}),
	}
}

func (q *Memory) Enqueue(ctx context.Context, msg Message) error {
	select {
	case <-q.done:
		return ErrClosed
	default:
	}

	select {
	case q.ch <- msg:
		return nil
	case <-q.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *Memory) Dequeue(ctx context.Context) (Message, error) {
	select {
	case msg := <-q.ch:
		return msg, nil
	case <-q.done:
		return Message{}, ErrClosed
	case <-ctx.Done():
		return Message{}, ctx.Err()
	}
}

func (q *Memory) Len(context.Context) (int, error) {
	return len(q.ch), nil
}

// Close stops the queue. Messages still buffered are dropped.
func (q *Memory) Close() error {
	q.closeOnce.Do(func() { close(q.done) })
	return nil
}
