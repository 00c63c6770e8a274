package queue

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// failScripts fails the next n script calls before they reach the server.
type failScripts struct {
	remaining atomic.Int32
}

func failNextScripts(rdb *redis.Client, n int32) *failScripts {
	f := &failScripts{}
	f.remaining.Store(n)
	rdb.AddHook(f)
	return f
}

func (f *failScripts) DialHook(next redis.DialHook) redis.DialHook { return next }

func (f *failScripts) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		name := cmd.Name()
		if (name == "evalsha" || name == "eval") && f.remaining.Add(-1) >= 0 {
			err := errors.New("transient network error")
			cmd.SetErr(err)
			return err
		}
		return next(ctx, cmd)
	}
}

func (f *failScripts) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return next
}

func TestPromoteKeepsJobWhenCallFails(t *testing.T) {
	_, rdb := setup(t)
	ctx := context.Background()
	p := NewProducer(rdb, "bq", "reservations")
	in := NewInspector(rdb, "bq", "reservations")
	w := NewWorker(rdb, "bq", "reservations", func(ctx context.Context, job *Job) (any, error) {
		return nil, errors.New("database down")
	}, WorkerOptions{Attempts: 3, Backoff: time.Millisecond})

	_, err := p.Add(ctx, "reserve", payload{})
	require.NoError(t, err)
	w.handle(ctx, take(t, w))
	time.Sleep(10 * time.Millisecond)

	failNextScripts(rdb, 1)
	assert.Error(t, w.promoteDelayed(ctx))

	counts, err := in.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, Counts{Delayed: 1}, counts)
	job, err := in.Job(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, StatusDelayed, job.Status)

	require.NoError(t, w.promoteDelayed(ctx))
	counts, err = in.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, Counts{Waiting: 1}, counts)
}

func TestStalledRequeueKeepsJobWhenCallFails(t *testing.T) {
	_, rdb := setup(t)
	ctx := context.Background()
	p := NewProducer(rdb, "bq", "reservations")
	in := NewInspector(rdb, "bq", "reservations")
	w := NewWorker(rdb, "bq", "reservations", nil, WorkerOptions{})

	_, err := p.Add(ctx, "reserve", payload{})
	require.NoError(t, err)
	take(t, w)

	w.checkStalled(ctx)

	failNextScripts(rdb, 1)
	w.checkStalled(ctx)
	counts, err := in.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, Counts{Active: 1}, counts)

	w.checkStalled(ctx)
	counts, err = in.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, Counts{Waiting: 1}, counts)

	job, err := in.Job(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, 1, job.StalledCount)
}

func TestRetryIsExclusive(t *testing.T) {
	_, rdb := setup(t)
	ctx := context.Background()
	p := NewProducer(rdb, "bq", "reservations")
	in := NewInspector(rdb, "bq", "reservations")
	w := NewWorker(rdb, "bq", "reservations", func(ctx context.Context, job *Job) (any, error) {
		return nil, Unrecoverable(errors.New("seat taken"))
	}, WorkerOptions{})

	_, err := p.Add(ctx, "reserve", payload{})
	require.NoError(t, err)
	w.handle(ctx, take(t, w))

	var (
		wg        sync.WaitGroup
		succeeded atomic.Int32
		notFailed atomic.Int32
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			switch err := in.Retry(ctx, "1"); {
			case err == nil:
				succeeded.Add(1)
			case errors.Is(err, ErrJobNotFailed):
				notFailed.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), succeeded.Load())
	assert.Equal(t, int32(9), notFailed.Load())
	assert.Equal(t, int64(1), rdb.LLen(ctx, w.keys.wait()).Val())
}

func TestEmptyPrefixSharesKeys(t *testing.T) {
	mr, rdb := setup(t)
	ctx := context.Background()

	_, err := Enqueue(ctx, Options{URL: "redis://" + mr.Addr()}, "reservations", "reserve", payload{})
	require.NoError(t, err)

	w := NewWorker(rdb, "", "reservations", nil, WorkerOptions{})
	assert.Equal(t, "bq:reservations:wait", w.keys.wait())

	counts, err := NewInspector(rdb, "", "reservations").Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts.Waiting)
}

func TestDelayedJobsListedByDueTime(t *testing.T) {
	_, rdb := setup(t)
	ctx := context.Background()
	p := NewProducer(rdb, "bq", "reservations")
	in := NewInspector(rdb, "bq", "reservations")
	k := newKeys("bq", "reservations")

	for i := 0; i < 2; i++ {
		_, err := p.Add(ctx, "reserve", payload{Seat: i + 1})
		require.NoError(t, err)
	}
	require.NoError(t, rdb.Del(ctx, k.wait()).Err())
	require.NoError(t, rdb.ZAdd(ctx, k.delayed(),
		redis.Z{Score: 200, Member: "1"},
		redis.Z{Score: 100, Member: "2"},
	).Err())

	jobs, err := in.Jobs(ctx, StatusDelayed, 0, -1)
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	assert.Equal(t, "2", jobs[0].ID)
	assert.Equal(t, "1", jobs[1].ID)
}
