package repository

import (
	"context"
	"errors"
	"time"

	"github.com/diagnosis/luxbus/services/reservations/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type TripRepository interface {
	GetTripWithBus(ctx context.Context, id int64) (*domain.Trip, error)
	List(ctx context.Context) ([]domain.Trip, error)
	Create(ctx context.Context, in domain.TripInput) (*domain.Trip, error)
	Update(ctx context.Context, id int64, patch domain.TripPatch) (*domain.Trip, error)
	Delete(ctx context.Context, id int64) (bool, error)
}

type tripRepository struct {
	pool *pgxpool.Pool
}

func NewTripRepository(pool *pgxpool.Pool) TripRepository {
	return &tripRepository{pool: pool}
}

const tripWithBusSelect = `SELECT t.id, t.bus_id, t.origin, t.destination, t.depart_at, t.price::float8,
	b.id, b.plate, b.capacity
FROM trips t
JOIN buses b ON b.id = t.bus_id`

func scanTrip(row pgx.Row) (*domain.Trip, error) {
	var (
		t   domain.Trip
		bus domain.Bus
	)
	if err := row.Scan(
		&t.ID, &t.BusID, &t.Origin, &t.Destination, &t.DepartAt, &t.Price,
		&bus.ID, &bus.Plate, &bus.Capacity,
	); err != nil {
		return nil, err
	}
	t.Bus = &bus
	return &t, nil
}

// GetTripWithBus returns (nil, nil) when the trip does not exist.
func (r *tripRepository) GetTripWithBus(ctx context.Context, id int64) (*domain.Trip, error) {
	const q = tripWithBusSelect + ` WHERE t.id=$1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	t, err := scanTrip(r.pool.QueryRow(ctx, q, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storeErr("get trip", err)
	}
	return t, nil
}

func (r *tripRepository) List(ctx context.Context) ([]domain.Trip, error) {
	const q = tripWithBusSelect + ` ORDER BY t.depart_at`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, storeErr("list trips", err)
	}
	defer rows.Close()

	trips := []domain.Trip{}
	for rows.Next() {
		t, err := scanTrip(rows)
		if err != nil {
			return nil, storeErr("scan trip", err)
		}
		trips = append(trips, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("list trips", err)
	}
	return trips, nil
}

// Create fails with ErrBusNotFound when the bus does not exist.
func (r *tripRepository) Create(ctx context.Context, in domain.TripInput) (*domain.Trip, error) {
	const q = `INSERT INTO trips (bus_id, origin, destination, depart_at, price)
VALUES ($1, $2, $3, $4, $5)
RETURNING id`
	tctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var id int64
	err := r.pool.QueryRow(tctx, q, in.BusID, in.Origin, in.Destination, in.DepartAt, in.Price).Scan(&id)
	if err != nil {
		return nil, constraintErr("create trip", err, nil, domain.ErrBusNotFound)
	}
	return r.GetTripWithBus(ctx, id)
}

// Update returns (nil, nil) for an unknown id.
func (r *tripRepository) Update(ctx context.Context, id int64, patch domain.TripPatch) (*domain.Trip, error) {
	const q = `UPDATE trips SET
	bus_id = COALESCE($2::bigint, bus_id),
	origin = COALESCE($3::text, origin),
	destination = COALESCE($4::text, destination),
	depart_at = COALESCE($5::timestamptz, depart_at),
	price = COALESCE($6::numeric, price)
WHERE id=$1
RETURNING id`
	tctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	err := r.pool.QueryRow(tctx, q, id, patch.BusID, patch.Origin, patch.Destination, patch.DepartAt, patch.Price).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, constraintErr("update trip", err, nil, domain.ErrBusNotFound)
	}
	return r.GetTripWithBus(ctx, id)
}

// Delete fails with ErrInUse while reservations reference the trip.
func (r *tripRepository) Delete(ctx context.Context, id int64) (bool, error) {
	const q = `DELETE FROM trips WHERE id=$1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	tag, err := r.pool.Exec(ctx, q, id)
	if err != nil {
		return false, constraintErr("delete trip", err, nil, domain.ErrInUse)
	}
	return tag.RowsAffected() == 1, nil
}
