package service

import (
	"context"

	"github.com/diagnosis/luxbus/pkg/logger"
	"github.com/diagnosis/luxbus/services/reservations/internal/domain"
	"github.com/diagnosis/luxbus/services/reservations/internal/repository"
)

// FallbackExecutor books synchronously when the deferred queue cannot be
// reached. It never retries.
type FallbackExecutor interface {
	Execute(ctx context.Context, req domain.BookingRequest) (domain.Outcome, error)
}

type fallbackExecutor struct {
	trips  repository.TripRepository
	booker Booker
}

func NewFallbackExecutor(trips repository.TripRepository, booker Booker) FallbackExecutor {
	return &fallbackExecutor{trips: trips, booker: booker}
}

func (f *fallbackExecutor) Execute(ctx context.Context, req domain.BookingRequest) (domain.Outcome, error) {
	trip, err := f.trips.GetTripWithBus(ctx, req.TripID)
	if err != nil {
		return domain.Outcome{}, err
	}
	if trip == nil {
		return domain.Outcome{}, domain.ErrTripNotFound
	}
	if !trip.HasSeat(req.Seat) {
		return domain.Outcome{}, domain.ErrInvalidSeat
	}

	res, err := f.booker.Reserve(ctx, req)
	if err != nil {
		return domain.Outcome{}, err
	}

	logger.InfoContext(ctx, "Reservation booked without queue", "reservation_id", res.ID)
	return domain.Completed(res.ID), nil
}
