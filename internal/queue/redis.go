package queue

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// DefaultRedisKey is the list holding queued messages.
const DefaultRedisKey = "devtrack:events"

const (
	redisPingTimeout = 2 * time.Second
	redisPollTimeout = time.Second
)

// Redis is a queue on a Redis list: LPUSH to enqueue, BRPOP to dequeue.
// Messages survive process restarts.
type Redis struct {
	client *goredis.Client
	key    string
}

// DialRedis connects to the Redis server in rawURL and checks it with a
// ping. A "key" query parameter overrides DefaultRedisKey.
func DialRedis(ctx context.Context, rawURL string) (*Redis, error) {
	key := DefaultRedisKey
	opts, err := goredis.ParseURL(stripKeyParam(rawURL, &key))
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}

	client := goredis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return NewRedis(client, key), nil
}

func NewRedis(client *goredis.Client, key string) *Redis {
	if key == "" {
		key = DefaultRedisKey
	}
	return &Redis{client: client, key: key}
}

func (q *Redis) Enqueue(ctx context.Context, msg Message) error {
	b, err := encode(msg)
	if err != nil {
		return err
	}
	if err := q.client.LPush(ctx, q.key, b).Err(); err != nil {
		return q.wrap("enqueue", err)
	}
	return nil
}

func (q *Redis) Dequeue(ctx context.Context) (Message, error) {
	for {
		if err := ctx.Err(); err != nil {
			return Message{}, err
		}

		res, err := q.client.BRPop(ctx, redisPollTimeout, q.key).Result()
		if errors.Is(err, goredis.Nil) {
			continue
		}
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return Message{}, ctxErr
			}
			return Message{}, q.wrap("dequeue", err)
		}

		// res is [key, value].
		return decode([]byte(res[1]))
	}
}

func (q *Redis) Len(ctx context.Context) (int, error) {
	n, err := q.client.LLen(ctx, q.key).Result()
	if err != nil {
		return 0, q.wrap("len", err)
	}
	return int(n), nil
}

func (q *Redis) Close() error {
	return q.client.Close()
}

func (q *Redis) wrap(op string, err error) error {
	if errors.Is(err, goredis.ErrClosed) {
		return ErrClosed
	}
	return fmt.Errorf("redis queue %s: %w", op, err)
}

// stripKeyParam removes the "key" query parameter, which go-redis would
// reject as unknown, and stores its value in key.
func stripKeyParam(rawURL string, key *string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	q := u.Query()
	if v := q.Get("key"); v != "" {
		*key = v
	}
	q.Del("key")
	u.RawQuery = q.Encode()
	return u.String()
}
