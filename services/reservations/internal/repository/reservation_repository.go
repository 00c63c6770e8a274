package repository

import (
	"context"
	"errors"
	"time"

	"github.com/diagnosis/luxbus/services/reservations/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ReservationRepository interface {
	ExistsSeat(ctx context.Context, tripID int64, seat int) (bool, error)
	Insert(ctx context.Context, travelerID, tripID int64, seat int) (*domain.Reservation, error)
	GetByID(ctx context.Context, id int64) (*domain.Reservation, error)
	FindBySeat(ctx context.Context, tripID int64, seat int) (*domain.Reservation, error)
	ListByTraveler(ctx context.Context, travelerID int64) ([]domain.ReservationWithTrip, error)
	ReservedSeats(ctx context.Context, tripID int64) ([]int, error)
}

type reservationRepository struct {
	pool *pgxpool.Pool
}

func NewReservationRepository(pool *pgxpool.Pool) ReservationRepository {
	return &reservationRepository{pool: pool}
}

const reservationCols = `id, user_id, trip_id, seat, created_at`

func (r *reservationRepository) ExistsSeat(ctx context.Context, tripID int64, seat int) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM reservations WHERE trip_id=$1 AND seat=$2)`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var exists bool
	if err := r.pool.QueryRow(ctx, q, tripID, seat).Scan(&exists); err != nil {
		return false, storeErr("check seat", err)
	}
	return exists, nil
}

// Insert returns domain.ErrSeatTaken when the (trip, seat) pair is already
// reserved and domain.ErrUnknownReference when the traveler or trip is gone.
func (r *reservationRepository) Insert(ctx context.Context, travelerID, tripID int64, seat int) (*domain.Reservation, error) {
	const q = `INSERT INTO reservations (user_id, trip_id, seat) VALUES ($1,$2,$3) RETURNING ` + reservationCols
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var res domain.Reservation
	err := r.pool.QueryRow(ctx, q, travelerID, tripID, seat).Scan(
		&res.ID, &res.TravelerID, &res.TripID, &res.Seat, &res.CreatedAt,
	)
	if err != nil {
		return nil, insertErr("insert reservation", err)
	}
	return &res, nil
}

func (r *reservationRepository) GetByID(ctx context.Context, id int64) (*domain.Reservation, error) {
	const q = `SELECT ` + reservationCols + ` FROM reservations WHERE id=$1`
	return r.getOne(ctx, "get reservation", q, id)
}

func (r *reservationRepository) FindBySeat(ctx context.Context, tripID int64, seat int) (*domain.Reservation, error) {
	const q = `SELECT ` + reservationCols + ` FROM reservations WHERE trip_id=$1 AND seat=$2`
	return r.getOne(ctx, "find reservation", q, tripID, seat)
}

func (r *reservationRepository) getOne(ctx context.Context, op, q string, args ...any) (*domain.Reservation, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var res domain.Reservation
	err := r.pool.QueryRow(ctx, q, args...).Scan(
		&res.ID, &res.TravelerID, &res.TripID, &res.Seat, &res.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storeErr(op, err)
	}
	return &res, nil
}

func (r *reservationRepository) ListByTraveler(ctx context.Context, travelerID int64) ([]domain.ReservationWithTrip, error) {
	const q = `SELECT r.id, r.user_id, r.trip_id, r.seat, r.created_at,
		t.id, t.bus_id, t.origin, t.destination, t.depart_at, t.price::float8
	FROM reservations r
	JOIN trips t ON t.id = r.trip_id
	WHERE r.user_id=$1
	ORDER BY r.created_at DESC`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, q, travelerID)
	if err != nil {
		return nil, storeErr("list reservations", err)
	}
	defer rows.Close()

	out := []domain.ReservationWithTrip{}
	for rows.Next() {
		var rt domain.ReservationWithTrip
		if err := rows.Scan(
			&rt.ID, &rt.TravelerID, &rt.TripID, &rt.Seat, &rt.CreatedAt,
			&rt.Trip.ID, &rt.Trip.BusID, &rt.Trip.Origin, &rt.Trip.Destination, &rt.Trip.DepartAt, &rt.Trip.Price,
		); err != nil {
			return nil, storeErr("scan reservation", err)
		}
		out = append(out, rt)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("list reservations", err)
	}
	return out, nil
}

func (r *reservationRepository) ReservedSeats(ctx context.Context, tripID int64) ([]int, error) {
	const q = `SELECT seat FROM reservations WHERE trip_id=$1 ORDER BY seat`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, q, tripID)
	if err != nil {
		return nil, storeErr("reserved seats", err)
	}
	seats, err := pgx.CollectRows(rows, pgx.RowTo[int])
	if err != nil {
		return nil, storeErr("reserved seats", err)
	}
	if seats == nil {
		seats = []int{}
	}
	return seats, nil
}
