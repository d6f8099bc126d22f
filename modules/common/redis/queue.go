package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Queue - JSON jobs on a Redis list (LPUSH in, BRPOP out)
type Queue struct {
	rdb  *redis.Client
	name string
}

func NewQueue(rdb *redis.Client, name string) *Queue {
	return &Queue{rdb: rdb, name: name}
}

// Name - list key
func (q *Queue) Name() string {
	return q.name
}

// Enqueue - push a job and return the queue length after the push
func (q *Queue) Enqueue(ctx context.Context, job interface{}) (int64, error) {
	payload, err := json.Marshal(job)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal job: %w", err)
	}

	length, err := q.rdb.LPush(ctx, q.name, payload).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to enqueue job: %w", err)
	}
	return length, nil
}

// Dequeue - block up to timeout for the next job; (nil, nil) on timeout
func (q *Queue) Dequeue(ctx context.Context, timeout time.Duration) ([]byte, error) {
	result, err := q.rdb.BRPop(ctx, timeout, q.name).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to dequeue from %s: %w", q.name, err)
	}
	// result[0] = key, result[1] = value
	return []byte(result[1]), nil
}
