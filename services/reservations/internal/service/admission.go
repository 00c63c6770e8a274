package service

import (
	"context"
	"time"

	"github.com/diagnosis/luxbus/pkg/clock"
	"github.com/diagnosis/luxbus/pkg/logger"
	"github.com/diagnosis/luxbus/services/reservations/internal/domain"
	"github.com/diagnosis/luxbus/services/reservations/internal/repository"
)

// Admission validates a booking and hands it to the queue, or to the
// fallback executor when the queue is down.
type Admission interface {
	Admit(ctx context.Context, req domain.BookingRequest) (domain.Outcome, error)
}

type admission struct {
	trips          repository.TripRepository
	enqueuer       Enqueuer
	fallback       FallbackExecutor
	clock          clock.Clock
	enqueueTimeout time.Duration
}

func NewAdmission(
	trips repository.TripRepository,
	enqueuer Enqueuer,
	fallback FallbackExecutor,
	clk clock.Clock,
	enqueueTimeout time.Duration,
) Admission {
	if clk == nil {
		clk = clock.NewSystem()
	}
	if enqueueTimeout <= 0 {
		enqueueTimeout = 2 * time.Second
	}
	return &admission{
		trips:          trips,
		enqueuer:       enqueuer,
		fallback:       fallback,
		clock:          clk,
		enqueueTimeout: enqueueTimeout,
	}
}

func (a *admission) Admit(ctx context.Context, req domain.BookingRequest) (domain.Outcome, error) {
	if req.TravelerID <= 0 || req.TripID <= 0 {
		return domain.Outcome{}, domain.ErrInvalidInput
	}

	trip, err := a.trips.GetTripWithBus(ctx, req.TripID)
	if err != nil {
		return domain.Outcome{}, err
	}
	if trip == nil {
		return domain.Outcome{}, domain.ErrTripNotFound
	}
	if !trip.HasSeat(req.Seat) {
		return domain.Outcome{}, domain.ErrInvalidSeat
	}
	if trip.DepartedBy(a.clock.Now()) {
		return domain.Outcome{}, domain.ErrTripDeparted
	}

	enqCtx, cancel := context.WithTimeout(ctx, a.enqueueTimeout)
	jobID, err := a.enqueuer.Enqueue(enqCtx, req.Job())
	cancel()
	if err == nil {
		logger.InfoContext(ctx, "Reservation queued", "job_id", jobID, "trip_id", req.TripID, "seat", req.Seat)
		return domain.Queued(jobID), nil
	}

	logger.WarnContext(ctx, "Queue unavailable, booking synchronously", "error", err, "trip_id", req.TripID, "seat", req.Seat)
	return a.fallback.Execute(ctx, req)
}
