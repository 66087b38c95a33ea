// SPDX-License-Identifier: MIT

package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/ManuGH/vidresolve/internal/domain/media"
)

// pollTimeout is the BRPOP block time; Redis resolves it in whole seconds.
const pollTimeout = time.Second

// ackScript deletes the marker only if it still belongs to the job.
var ackScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisQueue is a Queue on a Redis list with SET NX in-flight markers, so
// several daemons can share one queue.
type RedisQueue struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	logger zerolog.Logger
	now    func() time.Time
}

// NewRedisQueue wraps client. The client stays owned by the caller.
func NewRedisQueue(client *redis.Client, prefix string, markerTTL time.Duration, logger zerolog.Logger) *RedisQueue {
	if prefix == "" {
		prefix = "vidresolve:queue:"
	}
	if markerTTL <= 0 {
		markerTTL = DefaultMarkerTTL
	}
	return &RedisQueue{client: client, prefix: prefix, ttl: markerTTL, logger: logger, now: time.Now}
}

func (q *RedisQueue) listKey() string { return q.prefix + "jobs" }

func (q *RedisQueue) markerKey(key media.Key) string { return q.prefix + "inflight:" + string(key) }

// Enqueue implements Queue.
func (q *RedisQueue) Enqueue(ctx context.Context, req media.Request) (Job, bool, error) {
	job := NewJob(req, q.now())
	payload, err := json.Marshal(job)
	if err != nil {
		return Job{}, false, fmt.Errorf("marshal job: %w", err)
	}

	marker := q.markerKey(job.Key)
	for {
		ok, err := q.client.SetNX(ctx, marker, job.ID, q.ttl).Result()
		if err != nil {
			return Job{}, false, fmt.Errorf("set in-flight marker: %w", err)
		}
		if ok {
			break
		}
		// Report the job that holds the marker. It may expire or be acked
		// between SETNX and GET, in which case the marker is free again.
		holder, err := q.client.Get(ctx, marker).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return Job{}, false, fmt.Errorf("read in-flight marker: %w", err)
		}
		return Job{ID: holder, Request: req, Key: job.Key}, false, nil
	}

	if err := q.client.LPush(ctx, q.listKey(), payload).Err(); err != nil {
		if aerr := q.Ack(context.WithoutCancel(ctx), job); aerr != nil {
			q.logger.Warn().Err(aerr).Str("job_id", job.ID).Msg("failed to clear marker after enqueue error")
		}
		return Job{}, false, fmt.Errorf("enqueue job: %w", err)
	}
	return job, true, nil
}

// Dequeue implements Queue. It polls with BRPOP until a job arrives or ctx
// is done; undecodable payloads are dropped with a warning.
func (q *RedisQueue) Dequeue(ctx context.Context) (Job, error) {
	for {
		if err := ctx.Err(); err != nil {
			return Job{}, err
		}
		res, err := q.client.BRPop(ctx, pollTimeout, q.listKey()).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return Job{}, ctx.Err()
			}
			if errors.Is(err, redis.ErrClosed) {
				return Job{}, ErrClosed
			}
			return Job{}, fmt.Errorf("dequeue job: %w", err)
		}
		if len(res) != 2 {
			return Job{}, fmt.Errorf("unexpected BRPOP reply: %v", res)
		}

		var job Job
		if err := json.Unmarshal([]byte(res[1]), &job); err != nil || job.ID == "" {
			q.logger.Warn().Err(err).Msg("dropping undecodable queue payload")
			continue
		}
		return job, nil
	}
}

// Ack implements Queue.
func (q *RedisQueue) Ack(ctx context.Context, job Job) error {
	if err := ackScript.Run(ctx, q.client, []string{q.markerKey(job.Key)}, job.ID).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("ack job: %w", err)
	}
	return nil
}

// Pending implements Queue.
func (q *RedisQueue) Pending(ctx context.Context) (int64, error) {
	n, err := q.client.LLen(ctx, q.listKey()).Result()
	if err != nil {
		return 0, fmt.Errorf("queue length: %w", err)
	}
	return n, nil
}

// HealthCheck pings Redis.
func (q *RedisQueue) HealthCheck(ctx context.Context) error {
	return q.client.Ping(ctx).Err()
}

// Close implements Queue.
func (q *RedisQueue) Close() error { return nil }
