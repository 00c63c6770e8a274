package queue

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Counts holds the number of jobs per status.
type Counts struct {
	Waiting   int64 `json:"waiting"`
	Active    int64 `json:"active"`
	Delayed   int64 `json:"delayed"`
	Completed int64 `json:"completed"`
	Failed    int64 `json:"failed"`
}

// Inspector reads and manages the jobs of one queue.
type Inspector struct {
	rdb   *redis.Client
	queue string
	keys  keys
}

func NewInspector(rdb *redis.Client, prefix, queue string) *Inspector {
	return &Inspector{rdb: rdb, queue: queue, keys: newKeys(prefix, queue)}
}

func (i *Inspector) Queue() string { return i.queue }

func (i *Inspector) Counts(ctx context.Context) (Counts, error) {
	var wait, active, delayed, completed, failed *redis.IntCmd
	_, err := i.rdb.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		wait = pipe.LLen(ctx, i.keys.wait())
		active = pipe.LLen(ctx, i.keys.active())
		delayed = pipe.ZCard(ctx, i.keys.delayed())
		completed = pipe.LLen(ctx, i.keys.completed())
		failed = pipe.LLen(ctx, i.keys.failed())
		return nil
	})
	if err != nil {
		return Counts{}, fmt.Errorf("count jobs: %w", err)
	}
	return Counts{
		Waiting:   wait.Val(),
		Active:    active.Val(),
		Delayed:   delayed.Val(),
		Completed: completed.Val(),
		Failed:    failed.Val(),
	}, nil
}

// Jobs returns jobs with the given status in the inclusive index range
// [start, end]. List statuses are newest first; delayed jobs come in the
// order they are due.
func (i *Inspector) Jobs(ctx context.Context, status Status, start, end int64) ([]*Job, error) {
	var (
		ids []string
		err error
	)
	switch status {
	case StatusWaiting:
		ids, err = i.rdb.LRange(ctx, i.keys.wait(), start, end).Result()
	case StatusActive:
		ids, err = i.rdb.LRange(ctx, i.keys.active(), start, end).Result()
	case StatusCompleted:
		ids, err = i.rdb.LRange(ctx, i.keys.completed(), start, end).Result()
	case StatusFailed:
		ids, err = i.rdb.LRange(ctx, i.keys.failed(), start, end).Result()
	case StatusDelayed:
		ids, err = i.rdb.ZRange(ctx, i.keys.delayed(), start, end).Result()
	default:
		return nil, fmt.Errorf("unknown status %q", status)
	}
	if err != nil {
		return nil, fmt.Errorf("list %s jobs: %w", status, err)
	}
	if len(ids) == 0 {
		return []*Job{}, nil
	}

	cmds := make([]*redis.MapStringStringCmd, len(ids))
	_, err = i.rdb.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for n, id := range ids {
			cmds[n] = pipe.HGetAll(ctx, i.keys.job(id))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load %s jobs: %w", status, err)
	}

	jobs := make([]*Job, 0, len(ids))
	for n, id := range ids {
		if job := parseJob(i.queue, id, cmds[n].Val()); job != nil {
			jobs = append(jobs, job)
		}
	}
	return jobs, nil
}

// Job returns (nil, nil) when the id is unknown.
func (i *Inspector) Job(ctx context.Context, id string) (*Job, error) {
	fields, err := i.rdb.HGetAll(ctx, i.keys.job(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("get job %s: %w", id, err)
	}
	return parseJob(i.queue, id, fields), nil
}

// Retry moves a failed job back to the wait list with a fresh attempt count.
func (i *Inspector) Retry(ctx context.Context, id string) error {
	res, err := retryScript.Run(ctx, i.rdb,
		[]string{i.keys.failed(), i.keys.wait(), i.keys.job(id)},
		id, fieldStatus, string(StatusWaiting), fieldAttemptsMade, fieldFailedReason, fieldFinishedOn,
	).Int()
	if err != nil {
		return fmt.Errorf("retry job %s: %w", id, err)
	}
	switch res {
	case -1:
		return ErrJobNotFound
	case 0:
		return ErrJobNotFailed
	}
	return nil
}

// Remove deletes a job that no worker currently holds.
func (i *Inspector) Remove(ctx context.Context, id string) error {
	exists, err := i.rdb.Exists(ctx, i.keys.job(id)).Result()
	if err != nil {
		return fmt.Errorf("remove job %s: %w", id, err)
	}
	if exists == 0 {
		return ErrJobNotFound
	}
	locked, err := i.rdb.Exists(ctx, i.keys.lock(id)).Result()
	if err != nil {
		return fmt.Errorf("remove job %s: %w", id, err)
	}
	if locked > 0 {
		return ErrJobLocked
	}

	_, err = i.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LRem(ctx, i.keys.wait(), 0, id)
		pipe.LRem(ctx, i.keys.active(), 0, id)
		pipe.LRem(ctx, i.keys.completed(), 0, id)
		pipe.LRem(ctx, i.keys.failed(), 0, id)
		pipe.ZRem(ctx, i.keys.delayed(), id)
		pipe.SRem(ctx, i.keys.stalled(), id)
		pipe.Del(ctx, i.keys.job(id))
		return nil
	})
	if err != nil {
		return fmt.Errorf("remove job %s: %w", id, err)
	}
	return nil
}
