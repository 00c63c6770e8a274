package repository

import (
	"context"
	"errors"
	"time"

	"github.com/diagnosis/luxbus/services/reservations/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type BusRepository interface {
	List(ctx context.Context) ([]domain.Bus, error)
	Create(ctx context.Context, in domain.BusInput) (*domain.Bus, error)
	Update(ctx context.Context, id int64, patch domain.BusPatch) (*domain.Bus, error)
	Delete(ctx context.Context, id int64) (bool, error)
}

type busRepository struct {
	pool *pgxpool.Pool
}

func NewBusRepository(pool *pgxpool.Pool) BusRepository {
	return &busRepository{pool: pool}
}

func (r *busRepository) List(ctx context.Context) ([]domain.Bus, error) {
	const q = `SELECT id, plate, capacity FROM buses ORDER BY id`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, storeErr("list buses", err)
	}
	defer rows.Close()

	buses := []domain.Bus{}
	for rows.Next() {
		var b domain.Bus
		if err := rows.Scan(&b.ID, &b.Plate, &b.Capacity); err != nil {
			return nil, storeErr("scan bus", err)
		}
		buses = append(buses, b)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("list buses", err)
	}
	return buses, nil
}

// Create fails with ErrPlateTaken for a duplicate plate.
func (r *busRepository) Create(ctx context.Context, in domain.BusInput) (*domain.Bus, error) {
	const q = `INSERT INTO buses (plate, capacity) VALUES ($1, $2) RETURNING id, plate, capacity`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var b domain.Bus
	if err := r.pool.QueryRow(ctx, q, in.Plate, in.Capacity).Scan(&b.ID, &b.Plate, &b.Capacity); err != nil {
		return nil, constraintErr("create bus", err, domain.ErrPlateTaken, nil)
	}
	return &b, nil
}

// Update returns (nil, nil) for an unknown id.
func (r *busRepository) Update(ctx context.Context, id int64, patch domain.BusPatch) (*domain.Bus, error) {
	const q = `UPDATE buses SET plate = COALESCE($2::text, plate), capacity = COALESCE($3::int, capacity)
WHERE id=$1
RETURNING id, plate, capacity`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var b domain.Bus
	err := r.pool.QueryRow(ctx, q, id, patch.Plate, patch.Capacity).Scan(&b.ID, &b.Plate, &b.Capacity)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, constraintErr("update bus", err, domain.ErrPlateTaken, nil)
	}
	return &b, nil
}

// Delete fails with ErrInUse while trips still reference the bus.
func (r *busRepository) Delete(ctx context.Context, id int64) (bool, error) {
	const q = `DELETE FROM buses WHERE id=$1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	tag, err := r.pool.Exec(ctx, q, id)
	if err != nil {
		return false, constraintErr("delete bus", err, nil, domain.ErrInUse)
	}
	return tag.RowsAffected() == 1, nil
}
