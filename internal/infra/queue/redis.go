package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"qotw-bot/internal/domain"
	"qotw-bot/internal/infra/metrics"
)

// RedisPopulateQueue реализует очередь задач наполнения на базе Redis lists.
type RedisPopulateQueue struct {
	client  *redis.Client
	key     string
	timeout time.Duration
}

var _ domain.PopulateQueue = (*RedisPopulateQueue)(nil)

// NewRedisPopulateQueue создаёт очередь по указанному ключу.
func NewRedisPopulateQueue(client *redis.Client, key string) *RedisPopulateQueue {
	return &RedisPopulateQueue{client: client, key: key, timeout: time.Second}
}

// Enqueue публикует задачу в очередь.
func (q *RedisPopulateQueue) Enqueue(ctx context.Context, task domain.PopulateTask) error {
	payload, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("marshal task: %w", err)
	}
	start := time.Now()
	err = q.client.LPush(ctx, q.key, payload).Err()
	metrics.ObserveNetworkRequest("redis", "lpush", q.key, start, err)
	if err != nil {
		return fmt.Errorf("push task: %w", err)
	}
	return nil
}

// Pop блокирующе читает задачу из очереди.
func (q *RedisPopulateQueue) Pop(ctx context.Context) (domain.PopulateTask, error) {
	for {
		if err := ctx.Err(); err != nil {
			return domain.PopulateTask{}, err
		}

		res, err := q.client.BRPop(ctx, q.timeout, q.key).Result()
		if err != nil {
			if ctx.Err() != nil {
				return domain.PopulateTask{}, ctx.Err()
			}
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				continue
			}
			if errors.Is(err, redis.Nil) {
				continue
			}
			return domain.PopulateTask{}, err
		}
		if len(res) != 2 {
			return domain.PopulateTask{}, errors.New("redis queue: unexpected response")
		}
		var task domain.PopulateTask
		if err := json.Unmarshal([]byte(res[1]), &task); err != nil {
			return domain.PopulateTask{}, fmt.Errorf("decode task: %w", err)
		}
		return task, nil
	}
}
