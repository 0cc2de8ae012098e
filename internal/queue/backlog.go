package queue

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// Backlog is the durable FIFO plus the checkpoint slot for in-flight run
// statistics. The Redis implementation backs production; tests use an
// in-memory one.
type Backlog interface {
	Push(ctx context.Context, payload []byte) error
	// Peek returns up to n payloads from the head, FIFO, without removing
	// them. A batch stays durable until Discard drops it.
	Peek(ctx context.Context, n int) ([][]byte, error)
	// Discard removes the first n payloads.
	Discard(ctx context.Context, n int) error
	Len(ctx context.Context) (int64, error)

	LoadCheckpoint(ctx context.Context) ([]byte, bool, error)
	SaveCheckpoint(ctx context.Context, payload []byte) error
	ClearCheckpoint(ctx context.Context) error
}

// Checkpoints outlive ticks but not abandoned runs.
const checkpointTTL = 24 * time.Hour

type redisBacklog struct {
	client   *redis.Client
	queueKey string
	statsKey string
}

func NewRedisBacklog(client *redis.Client, prefix string) Backlog {
	return &redisBacklog{
		client:   client,
		queueKey: prefix + "import_queue",
		statsKey: prefix + "import_stats",
	}
}

func (b *redisBacklog) Push(ctx context.Context, payload []byte) error {
	return b.client.RPush(ctx, b.queueKey, payload).Err()
}

func (b *redisBacklog) Peek(ctx context.Context, n int) ([][]byte, error) {
	values, err := b.client.LRange(ctx, b.queueKey, 0, int64(n-1)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	payloads := make([][]byte, 0, len(values))
	for _, v := range values {
		payloads = append(payloads, []byte(v))
	}
	return payloads, nil
}

func (b *redisBacklog) Discard(ctx context.Context, n int) error {
	return b.client.LTrim(ctx, b.queueKey, int64(n), -1).Err()
}

func (b *redisBacklog) Len(ctx context.Context) (int64, error) {
	return b.client.LLen(ctx, b.queueKey).Result()
}

func (b *redisBacklog) LoadCheckpoint(ctx context.Context) ([]byte, bool, error) {
	payload, err := b.client.Get(ctx, b.statsKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return payload, true, nil
}

func (b *redisBacklog) SaveCheckpoint(ctx context.Context, payload []byte) error {
	return b.client.Set(ctx, b.statsKey, payload, checkpointTTL).Err()
}

func (b *redisBacklog) ClearCheckpoint(ctx context.Context) error {
	return b.client.Del(ctx, b.statsKey).Err()
}
