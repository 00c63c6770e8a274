// Package queue is a small durable job queue on Redis.
//
// Jobs live in a hash keyed by id and move between a wait list, an active
// list, a delayed sorted set (retry backoff) and the completed/failed lists.
// A worker holds a short lock while processing; jobs found in the active list
// without a lock on two consecutive stall checks are returned to the wait list,
// which gives at-least-once delivery across worker crashes.
package queue

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

type Status string

const (
	StatusWaiting   Status = "waiting"
	StatusActive    Status = "active"
	StatusDelayed   Status = "delayed"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

func ParseStatus(s string) (Status, bool) {
	switch Status(s) {
	case StatusWaiting, StatusActive, StatusDelayed, StatusCompleted, StatusFailed:
		return Status(s), true
	default:
		return "", false
	}
}

var (
	ErrUnavailable  = errors.New("queue unavailable")
	ErrJobNotFound  = errors.New("job not found")
	ErrJobNotFailed = errors.New("job is not in failed state")
	ErrJobLocked    = errors.New("job is being processed")
)

type Job struct {
	ID           string          `json:"id"`
	Queue        string          `json:"queue"`
	Name         string          `json:"name"`
	Data         json.RawMessage `json:"data"`
	Status       Status          `json:"status"`
	AttemptsMade int             `json:"attemptsMade"`
	StalledCount int             `json:"stalledCount"`
	FailedReason string          `json:"failedReason,omitempty"`
	ReturnValue  json.RawMessage `json:"returnvalue,omitempty"`
	Timestamp    time.Time       `json:"timestamp"`
	ProcessedOn  *time.Time      `json:"processedOn,omitempty"`
	FinishedOn   *time.Time      `json:"finishedOn,omitempty"`
}

// Decode unmarshals the job payload into v.
func (j *Job) Decode(v any) error {
	if err := json.Unmarshal(j.Data, v); err != nil {
		return fmt.Errorf("decode job %s payload: %w", j.ID, err)
	}
	return nil
}

// Options describes how to reach the Redis server backing the queues.
type Options struct {
	URL         string
	Prefix      string
	DialTimeout time.Duration
}

// NewClient builds a long-lived Redis client for workers and inspectors.
func NewClient(opts Options) (*redis.Client, error) {
	ro, err := redis.ParseURL(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	if opts.DialTimeout > 0 {
		ro.DialTimeout = opts.DialTimeout
	}
	return redis.NewClient(ro), nil
}

type unrecoverableError struct {
	err error
}

func (e *unrecoverableError) Error() string { return e.err.Error() }
func (e *unrecoverableError) Unwrap() error { return e.err }

// Unrecoverable marks err as terminal: the worker fails the job immediately
// instead of scheduling another attempt.
func Unrecoverable(err error) error {
	if err == nil {
		return nil
	}
	return &unrecoverableError{err: err}
}

func IsUnrecoverable(err error) bool {
	var u *unrecoverableError
	return errors.As(err, &u)
}

// DefaultPrefix is used when no key prefix is configured.
const DefaultPrefix = "bq"

type keys struct {
	base string
}

func newKeys(prefix, queue string) keys {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return keys{base: prefix + ":" + queue}
}

func (k keys) id() string            { return k.base + ":id" }
func (k keys) wait() string          { return k.base + ":wait" }
func (k keys) active() string        { return k.base + ":active" }
func (k keys) delayed() string       { return k.base + ":delayed" }
func (k keys) completed() string     { return k.base + ":completed" }
func (k keys) failed() string        { return k.base + ":failed" }
func (k keys) stalled() string       { return k.base + ":stalled" }
func (k keys) job(id string) string  { return k.base + ":job:" + id }
func (k keys) lock(id string) string { return k.base + ":job:" + id + ":lock" }

const (
	fieldName         = "name"
	fieldData         = "data"
	fieldStatus       = "status"
	fieldAttemptsMade = "attempts_made"
	fieldStalledCount = "stalled_count"
	fieldFailedReason = "failed_reason"
	fieldReturnValue  = "returnvalue"
	fieldTimestamp    = "timestamp"
	fieldProcessedOn  = "processed_on"
	fieldFinishedOn   = "finished_on"
)

func parseJob(queue, id string, fields map[string]string) *Job {
	if len(fields) == 0 {
		return nil
	}
	job := &Job{
		ID:           id,
		Queue:        queue,
		Name:         fields[fieldName],
		Status:       Status(fields[fieldStatus]),
		FailedReason: fields[fieldFailedReason],
	}
	if data := fields[fieldData]; data != "" {
		job.Data = json.RawMessage(data)
	}
	if rv := fields[fieldReturnValue]; rv != "" {
		job.ReturnValue = json.RawMessage(rv)
	}
	job.AttemptsMade, _ = strconv.Atoi(fields[fieldAttemptsMade])
	job.StalledCount, _ = strconv.Atoi(fields[fieldStalledCount])
	if ts := parseMillis(fields[fieldTimestamp]); ts != nil {
		job.Timestamp = *ts
	}
	job.ProcessedOn = parseMillis(fields[fieldProcessedOn])
	job.FinishedOn = parseMillis(fields[fieldFinishedOn])
	return job
}

func parseMillis(s string) *time.Time {
	if s == "" {
		return nil
	}
	ms, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil
	}
	t := time.UnixMilli(ms).UTC()
	return &t
}

func millis(t time.Time) string {
	return strconv.FormatInt(t.UnixMilli(), 10)
}
