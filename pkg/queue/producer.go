package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

type Producer struct {
	rdb   *redis.Client
	queue string
	keys  keys
	owned bool
}

// NewProducer adds jobs through a shared client. Close does not close rdb.
func NewProducer(rdb *redis.Client, prefix, queue string) *Producer {
	return &Producer{rdb: rdb, queue: queue, keys: newKeys(prefix, queue)}
}

// Dial opens a dedicated single-connection client and checks the server
// answers within opts.DialTimeout. The returned producer owns the connection
// and must be closed.
func Dial(ctx context.Context, opts Options, queue string) (*Producer, error) {
	ro, err := redis.ParseURL(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	timeout := opts.DialTimeout
	if timeout <= 0 {
		timeout = time.Second
	}
	ro.DialTimeout = timeout
	ro.ReadTimeout = timeout
	ro.WriteTimeout = timeout
	ro.PoolSize = 1
	ro.MaxRetries = -1

	rdb := redis.NewClient(ro)

	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return &Producer{rdb: rdb, queue: queue, keys: newKeys(opts.Prefix, queue), owned: true}, nil
}

func (p *Producer) Close() error {
	if !p.owned {
		return nil
	}
	return p.rdb.Close()
}

// Add stores the job and pushes it onto the wait list atomically.
func (p *Producer) Add(ctx context.Context, name string, data any) (*Job, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("marshal job data: %w", err)
	}

	n, err := p.rdb.Incr(ctx, p.keys.id()).Result()
	if err != nil {
		return nil, fmt.Errorf("allocate job id: %w", err)
	}
	id := strconv.FormatInt(n, 10)
	now := time.Now().UTC()

	_, err = p.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, p.keys.job(id),
			fieldName, name,
			fieldData, string(payload),
			fieldStatus, string(StatusWaiting),
			fieldAttemptsMade, 0,
			fieldTimestamp, millis(now),
		)
		pipe.LPush(ctx, p.keys.wait(), id)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("add job: %w", err)
	}

	return &Job{
		ID:        id,
		Queue:     p.queue,
		Name:      name,
		Data:      payload,
		Status:    StatusWaiting,
		Timestamp: time.UnixMilli(now.UnixMilli()).UTC(),
	}, nil
}

// Enqueue dials, adds one job and closes the connection again. Any failure
// along the way, including an unreachable server, is reported as
// ErrUnavailable.
func Enqueue(ctx context.Context, opts Options, queue, name string, data any) (*Job, error) {
	p, err := Dial(ctx, opts, queue)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer p.Close()

	job, err := p.Add(ctx, name, data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return job, nil
}
