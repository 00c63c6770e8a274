package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/diagnosis/luxbus/pkg/logger"
	"github.com/diagnosis/luxbus/pkg/queue"
	"github.com/diagnosis/luxbus/services/reservations/internal/domain"
)

// JobResult is stored as the return value of a completed booking job.
type JobResult struct {
	ReservationID int64 `json:"reservationId"`
}

// BookingProcessor consumes create-reservation jobs. A taken seat or a
// missing traveler or trip fails the job without retry; other errors are left
// to the queue's backoff.
type BookingProcessor struct {
	booker Booker
}

func NewBookingProcessor(booker Booker) *BookingProcessor {
	return &BookingProcessor{booker: booker}
}

func (p *BookingProcessor) Process(ctx context.Context, job *queue.Job) (any, error) {
	if job.Name != JobCreateReservation {
		return nil, queue.Unrecoverable(fmt.Errorf("unknown job %q", job.Name))
	}

	var bj domain.BookingJob
	if err := job.Decode(&bj); err != nil {
		return nil, queue.Unrecoverable(fmt.Errorf("%w: %v", domain.ErrInvalidInput, err))
	}
	if bj.TravelerID <= 0 || bj.TripID <= 0 || bj.Seat <= 0 {
		return nil, queue.Unrecoverable(domain.ErrInvalidInput)
	}

	res, err := p.booker.Reserve(ctx, bj.Request())
	if errors.Is(err, domain.ErrSeatTaken) {
		logger.InfoContext(ctx, "Seat already taken", "trip_id", bj.TripID, "seat", bj.Seat)
		return nil, queue.Unrecoverable(err)
	}
	if errors.Is(err, domain.ErrUnknownReference) {
		logger.WarnContext(ctx, "Booking references a missing row", "traveler_id", bj.TravelerID, "trip_id", bj.TripID)
		return nil, queue.Unrecoverable(err)
	}
	if err != nil {
		return nil, err
	}

	return JobResult{ReservationID: res.ID}, nil
}
