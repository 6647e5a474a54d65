// Package queue carries application events from the request path to the
// background worker that runs their side effects.
package queue

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/oklog/ulid/v2"
)

// ErrClosed is returned by queue operations after Close.
var ErrClosed = errors.New("queue closed")

// DefaultCapacity bounds the in-memory queue.
const DefaultCapacity = 1024

// Message is one queued event delivery.
type Message struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Data       json.RawMessage `json:"data"`
	Attempt    int             `json:"attempt"`
	EnqueuedAt time.Time       `json:"enqueued_at"`
}

// NewMessage stamps an event payload with a fresh id.
func NewMessage(name string, data []byte) Message {
	return Message{
		ID:         ulid.Make().String(),
		Name:       name,
		Data:       data,
		EnqueuedAt: time.Now().UTC(),
	}
}

// Queue is a FIFO of messages shared by publishers and workers.
type Queue interface {
	// Enqueue blocks until the message is accepted or ctx is done.
	Enqueue(ctx context.Context, msg Message) error
	// Dequeue blocks until a message is available or ctx is done.
	Dequeue(ctx context.Context) (Message, error)
	Len(ctx context.Context) (int, error)
	Close() error
}

// BuildFromURL builds a queue from its URL. Supported schemes are
// memory:// and redis:// (or rediss://).
func BuildFromURL(ctx context.Context, rawURL string, capacity int) (Queue, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return NewMemory(capacity), nil
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid queue URL: %w", err)
	}

	switch strings.ToLower(parsed.Scheme) {
	case "memory", "mem", "inmem":
		return NewMemory(capacity), nil
	case "redis", "rediss":
		return DialRedis(ctx, rawURL)
	default:
		return nil, fmt.Errorf("unsupported queue scheme: %s", parsed.Scheme)
	}
}

func encode(msg Message) ([]byte, error) {
	b, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("failed to encode message %s: %w", msg.ID, err)
	}
	return b, nil
}

func decode(b []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(b, &msg); err != nil {
		return Message{}, fmt.Errorf("failed to decode message: %w", err)
	}
	return msg, nil
}
