package service

import (
	"context"
	"fmt"

	"github.com/diagnosis/luxbus/pkg/queue"
	"github.com/diagnosis/luxbus/services/reservations/internal/domain"
)

const JobCreateReservation = "create-reservation"

// Enqueuer puts a booking on the deferred queue. Any failure means the queue
// is unavailable and wraps domain.ErrQueueUnavailable.
type Enqueuer interface {
	Enqueue(ctx context.Context, job domain.BookingJob) (string, error)
}

type queueEnqueuer struct {
	opts  queue.Options
	queue string
}

// NewQueueEnqueuer opens a fresh connection for every job and closes it
// before returning.
func NewQueueEnqueuer(opts queue.Options, queueName string) Enqueuer {
	return &queueEnqueuer{opts: opts, queue: queueName}
}

func (e *queueEnqueuer) Enqueue(ctx context.Context, job domain.BookingJob) (string, error) {
	j, err := queue.Enqueue(ctx, e.opts, e.queue, JobCreateReservation, job)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrQueueUnavailable, err)
	}
	return j.ID, nil
}
