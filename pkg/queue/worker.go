package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/diagnosis/luxbus/pkg/logger"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

// Processor handles one job. The returned value is stored as the job's
// return value on success.
type Processor func(ctx context.Context, job *Job) (any, error)

type WorkerOptions struct {
	Concurrency     int
	Attempts        int
	Backoff         time.Duration
	MaxBackoff      time.Duration
	LockTTL         time.Duration
	StalledInterval time.Duration
	PromoteInterval time.Duration
	PollTimeout     time.Duration

	OnCompleted func(job *Job, result any)
	OnFailed    func(job *Job, err error)
}

func (o *WorkerOptions) setDefaults() {
	if o.Concurrency <= 0 {
		o.Concurrency = 1
	}
	if o.Attempts <= 0 {
		o.Attempts = 1
	}
	if o.Backoff <= 0 {
		o.Backoff = time.Second
	}
	if o.MaxBackoff <= 0 {
		o.MaxBackoff = 5 * time.Minute
	}
	if o.LockTTL <= 0 {
		o.LockTTL = 30 * time.Second
	}
	if o.StalledInterval <= 0 {
		o.StalledInterval = 30 * time.Second
	}
	if o.PromoteInterval <= 0 {
		o.PromoteInterval = time.Second
	}
	if o.PollTimeout < time.Second {
		o.PollTimeout = time.Second
	}
}

type Worker struct {
	rdb   *redis.Client
	queue string
	keys  keys
	proc  Processor
	opts  WorkerOptions
	token string
}

func NewWorker(rdb *redis.Client, prefix, queue string, proc Processor, opts WorkerOptions) *Worker {
	opts.setDefaults()
	return &Worker{
		rdb:   rdb,
		queue: queue,
		keys:  newKeys(prefix, queue),
		proc:  proc,
		opts:  opts,
		token: uuid.NewString(),
	}
}

// Run consumes jobs until ctx is canceled. Jobs already taken when ctx ends
// are processed to completion before Run returns.
func (w *Worker) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	for i := 0; i < w.opts.Concurrency; i++ {
		g.Go(func() error {
			w.consume(gctx)
			return nil
		})
	}
	g.Go(func() error {
		w.maintain(gctx)
		return nil
	})

	return g.Wait()
}

func (w *Worker) consume(ctx context.Context) {
	for ctx.Err() == nil {
		id, err := w.rdb.BRPopLPush(ctx, w.keys.wait(), w.keys.active(), w.opts.PollTimeout).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Warn("Queue poll failed", "queue", w.queue, "error", err)
			sleep(ctx, w.opts.Backoff)
			continue
		}
		w.handle(context.WithoutCancel(ctx), id)
	}
}

func (w *Worker) maintain(ctx context.Context) {
	promote := time.NewTicker(w.opts.PromoteInterval)
	defer promote.Stop()
	stalled := time.NewTicker(w.opts.StalledInterval)
	defer stalled.Stop()

	w.checkStalled(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-promote.C:
			if err := w.promoteDelayed(ctx); err != nil && ctx.Err() == nil {
				logger.Warn("Promote delayed jobs failed", "queue", w.queue, "error", err)
			}
		case <-stalled.C:
			w.checkStalled(ctx)
		}
	}
}

func (w *Worker) handle(ctx context.Context, id string) {
	if err := w.rdb.Set(ctx, w.keys.lock(id), w.token, w.opts.LockTTL).Err(); err != nil {
		logger.Error("Failed to lock job", "queue", w.queue, "job_id", id, "error", err)
	}

	fields, err := w.rdb.HGetAll(ctx, w.keys.job(id)).Result()
	if err != nil {
		logger.Error("Failed to load job", "queue", w.queue, "job_id", id, "error", err)
		return
	}
	job := parseJob(w.queue, id, fields)
	if job == nil {
		// Removed while waiting.
		w.rdb.LRem(ctx, w.keys.active(), 1, id)
		w.rdb.Del(ctx, w.keys.lock(id))
		return
	}

	now := time.Now().UTC()
	job.Status = StatusActive
	job.ProcessedOn = &now
	w.rdb.HSet(ctx, w.keys.job(id), fieldStatus, string(StatusActive), fieldProcessedOn, millis(now))

	stop := w.keepLock(ctx, id)
	jobCtx := logger.WithJob(ctx, w.queue, id)
	result, procErr := w.process(jobCtx, job)
	stop()

	if procErr != nil {
		w.fail(ctx, job, procErr)
		return
	}
	w.complete(ctx, job, result)
}

func (w *Worker) process(ctx context.Context, job *Job) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("processor panic: %v", r)
		}
	}()
	return w.proc(ctx, job)
}

func (w *Worker) keepLock(ctx context.Context, id string) func() {
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(w.opts.LockTTL / 2)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				w.rdb.PExpire(ctx, w.keys.lock(id), w.opts.LockTTL)
			}
		}
	}()
	return func() { close(done) }
}

func (w *Worker) complete(ctx context.Context, job *Job, result any) {
	var rv []byte
	if result != nil {
		b, err := json.Marshal(result)
		if err != nil {
			logger.Error("Failed to encode job result", "queue", w.queue, "job_id", job.ID, "error", err)
		} else {
			rv = b
		}
	}

	now := time.Now().UTC()
	job.AttemptsMade++
	job.Status = StatusCompleted
	job.FinishedOn = &now
	job.ReturnValue = rv

	_, err := w.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LRem(ctx, w.keys.active(), 1, job.ID)
		pipe.HSet(ctx, w.keys.job(job.ID),
			fieldStatus, string(StatusCompleted),
			fieldAttemptsMade, job.AttemptsMade,
			fieldReturnValue, string(rv),
			fieldFinishedOn, millis(now),
		)
		pipe.LPush(ctx, w.keys.completed(), job.ID)
		pipe.Del(ctx, w.keys.lock(job.ID))
		return nil
	})
	if err != nil {
		logger.Error("Failed to mark job completed", "queue", w.queue, "job_id", job.ID, "error", err)
	}

	if w.opts.OnCompleted != nil {
		w.opts.OnCompleted(job, result)
	}
}

func (w *Worker) fail(ctx context.Context, job *Job, procErr error) {
	now := time.Now().UTC()
	job.AttemptsMade++
	job.FailedReason = procErr.Error()

	terminal := IsUnrecoverable(procErr) || job.AttemptsMade >= w.opts.Attempts

	_, err := w.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LRem(ctx, w.keys.active(), 1, job.ID)
		if terminal {
			pipe.HSet(ctx, w.keys.job(job.ID),
				fieldStatus, string(StatusFailed),
				fieldAttemptsMade, job.AttemptsMade,
				fieldFailedReason, job.FailedReason,
				fieldFinishedOn, millis(now),
			)
			pipe.LPush(ctx, w.keys.failed(), job.ID)
		} else {
			runAt := now.Add(w.backoff(job.AttemptsMade))
			pipe.HSet(ctx, w.keys.job(job.ID),
				fieldStatus, string(StatusDelayed),
				fieldAttemptsMade, job.AttemptsMade,
				fieldFailedReason, job.FailedReason,
			)
			pipe.ZAdd(ctx, w.keys.delayed(), redis.Z{Score: float64(runAt.UnixMilli()), Member: job.ID})
		}
		pipe.Del(ctx, w.keys.lock(job.ID))
		return nil
	})
	if err != nil {
		logger.Error("Failed to record job failure", "queue", w.queue, "job_id", job.ID, "error", err)
	}

	if terminal {
		job.Status = StatusFailed
		job.FinishedOn = &now
	} else {
		job.Status = StatusDelayed
	}

	if w.opts.OnFailed != nil {
		w.opts.OnFailed(job, procErr)
	}
}

// backoff is exponential in the number of attempts already made.
func (w *Worker) backoff(attemptsMade int) time.Duration {
	d := w.opts.Backoff
	for i := 1; i < attemptsMade; i++ {
		d *= 2
		if d >= w.opts.MaxBackoff {
			return w.opts.MaxBackoff
		}
	}
	return d
}

func (w *Worker) promoteDelayed(ctx context.Context) error {
	now := strconv.FormatInt(time.Now().UnixMilli(), 10)
	ids, err := w.rdb.ZRangeByScore(ctx, w.keys.delayed(), &redis.ZRangeBy{
		Min:   "-inf",
		Max:   now,
		Count: 100,
	}).Result()
	if err != nil {
		return err
	}

	for _, id := range ids {
		// A zero result means another worker promoted it first.
		_, err := promoteScript.Run(ctx, w.rdb,
			[]string{w.keys.delayed(), w.keys.wait(), w.keys.job(id)},
			id, fieldStatus, string(StatusWaiting),
		).Int()
		if err != nil {
			return fmt.Errorf("promote job %s: %w", id, err)
		}
	}
	return nil
}

// checkStalled requeues jobs that were already marked on the previous pass
// and still have no lock, then marks every job currently active.
func (w *Worker) checkStalled(ctx context.Context) {
	candidates, err := w.rdb.SMembers(ctx, w.keys.stalled()).Result()
	if err != nil {
		if ctx.Err() == nil {
			logger.Warn("Stalled check failed", "queue", w.queue, "error", err)
		}
		return
	}

	for _, id := range candidates {
		moved, err := requeueStalledScript.Run(ctx, w.rdb,
			[]string{w.keys.active(), w.keys.wait(), w.keys.job(id), w.keys.lock(id)},
			id, fieldStatus, string(StatusWaiting), fieldStalledCount,
		).Int()
		if err != nil {
			logger.Error("Failed to requeue stalled job", "queue", w.queue, "job_id", id, "error", err)
			continue
		}
		if moved == 1 {
			logger.Warn("Requeued stalled job", "queue", w.queue, "job_id", id)
		}
	}

	active, err := w.rdb.LRange(ctx, w.keys.active(), 0, -1).Result()
	if err != nil {
		return
	}
	_, err = w.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, w.keys.stalled())
		if len(active) > 0 {
			members := make([]interface{}, len(active))
			for i, id := range active {
				members[i] = id
			}
			pipe.SAdd(ctx, w.keys.stalled(), members...)
		}
		return nil
	})
	if err != nil && ctx.Err() == nil {
		logger.Warn("Failed to mark active jobs", "queue", w.queue, "error", err)
	}
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
