package service

import (
	"context"
	"time"

	"github.com/diagnosis/luxbus/pkg/logger"
	"github.com/diagnosis/luxbus/services/reservations/internal/domain"
	"github.com/diagnosis/luxbus/services/reservations/internal/repository"
)

// Booker performs the uniqueness-checked insert shared by the worker and the
// fallback path, then sends the confirmation.
type Booker interface {
	Reserve(ctx context.Context, req domain.BookingRequest) (*domain.Reservation, error)
}

type booker struct {
	reservations repository.ReservationRepository
	trips        repository.TripRepository
	users        repository.UserRepository
	notifier     Notifier
	loc          *time.Location
}

func NewBooker(
	reservations repository.ReservationRepository,
	trips repository.TripRepository,
	users repository.UserRepository,
	notifier Notifier,
	loc *time.Location,
) Booker {
	return &booker{
		reservations: reservations,
		trips:        trips,
		users:        users,
		notifier:     notifier,
		loc:          loc,
	}
}

func (b *booker) Reserve(ctx context.Context, req domain.BookingRequest) (*domain.Reservation, error) {
	exists, err := b.reservations.ExistsSeat(ctx, req.TripID, req.Seat)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, domain.ErrSeatTaken
	}

	// The unique index decides races the check above misses.
	res, err := b.reservations.Insert(ctx, req.TravelerID, req.TripID, req.Seat)
	if err != nil {
		return nil, err
	}

	logger.InfoContext(ctx, "Reservation created",
		"reservation_id", res.ID, "trip_id", res.TripID, "seat", res.Seat, "traveler_id", res.TravelerID)

	b.confirm(ctx, res)
	return res, nil
}

// confirm reads traveler and trip again so the message reflects the state
// at confirmation time. Failures are logged only.
func (b *booker) confirm(ctx context.Context, res *domain.Reservation) {
	user, err := b.users.FindByID(ctx, res.TravelerID)
	if err != nil || user == nil {
		logger.WarnContext(ctx, "Skipping confirmation, traveler lookup failed",
			"reservation_id", res.ID, "traveler_id", res.TravelerID, "error", err)
		return
	}
	trip, err := b.trips.GetTripWithBus(ctx, res.TripID)
	if err != nil || trip == nil {
		logger.WarnContext(ctx, "Skipping confirmation, trip lookup failed",
			"reservation_id", res.ID, "trip_id", res.TripID, "error", err)
		return
	}

	b.notifier.Submit(ctx, domain.BuildConfirmation(user, trip, res.Seat, res.ID, b.loc))
}
