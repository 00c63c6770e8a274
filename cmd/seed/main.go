// Command seed loads a small demo dataset: an admin account, two buses, two
// upcoming trips and one reservation. Running it again is a no-op apart from
// moving the trips' departure times forward.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/diagnosis/luxbus/migrations"
	"github.com/diagnosis/luxbus/pkg/auth"
	"github.com/diagnosis/luxbus/pkg/config"
	"github.com/diagnosis/luxbus/pkg/database"
	"github.com/diagnosis/luxbus/pkg/logger"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/pflag"
)

type options struct {
	AdminEmail    string
	AdminPassword string
	AdminName     string
}

type result struct {
	AdminID       int64
	BusIDs        []int64
	TripIDs       []int64
	ReservationID int64
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var opts options
	flagSet := pflag.NewFlagSet("seed", pflag.ContinueOnError)
	flagSet.StringVar(&opts.AdminEmail, "admin-email", "admin@example.com", "admin account email")
	flagSet.StringVar(&opts.AdminPassword, "admin-password", "Pass1234", "admin account password")
	flagSet.StringVar(&opts.AdminName, "admin-name", "Admin", "admin display name")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	cfg := config.Load()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := migrations.Apply(ctx, pool); err != nil {
		return err
	}

	res, err := seed(ctx, pool, opts, time.Now())
	if err != nil {
		return err
	}
	logger.Info("Seed complete",
		"admin_id", res.AdminID,
		"buses", res.BusIDs,
		"trips", res.TripIDs,
		"reservation_id", res.ReservationID,
	)
	return nil
}

func seed(ctx context.Context, pool *pgxpool.Pool, opts options, now time.Time) (*result, error) {
	hash, err := argon2id.CreateHash(opts.AdminPassword, argon2id.DefaultParams)
	if err != nil {
		return nil, fmt.Errorf("hash admin password: %w", err)
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	res := &result{}
	err = tx.QueryRow(ctx, `
		INSERT INTO users (email, password_hash, name, role)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (email) DO UPDATE
		SET password_hash = EXCLUDED.password_hash, name = EXCLUDED.name, role = EXCLUDED.role
		RETURNING id`,
		opts.AdminEmail, hash, opts.AdminName, auth.RoleAdmin,
	).Scan(&res.AdminID)
	if err != nil {
		return nil, fmt.Errorf("upsert admin: %w", err)
	}

	buses := []struct {
		plate    string
		capacity int
	}{
		{"BUS-100", 40},
		{"BUS-200", 30},
	}
	for _, b := range buses {
		var id int64
		err := tx.QueryRow(ctx, `
			INSERT INTO buses (plate, capacity) VALUES ($1, $2)
			ON CONFLICT (plate) DO UPDATE SET capacity = EXCLUDED.capacity
			RETURNING id`,
			b.plate, b.capacity,
		).Scan(&id)
		if err != nil {
			return nil, fmt.Errorf("upsert bus %s: %w", b.plate, err)
		}
		res.BusIDs = append(res.BusIDs, id)
	}

	trips := []struct {
		busID       int64
		origin      string
		destination string
		departAt    time.Time
		price       float64
	}{
		{res.BusIDs[0], "City A", "City B", now.Add(24 * time.Hour), 12.5},
		{res.BusIDs[1], "City B", "City C", now.Add(48 * time.Hour), 20},
	}
	for _, t := range trips {
		id, err := upsertTrip(ctx, tx, t.busID, t.origin, t.destination, t.departAt, t.price)
		if err != nil {
			return nil, err
		}
		res.TripIDs = append(res.TripIDs, id)
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO reservations (user_id, trip_id, seat) VALUES ($1, $2, 1)
		ON CONFLICT ON CONSTRAINT reservations_trip_seat_key DO UPDATE SET seat = EXCLUDED.seat
		RETURNING id`,
		res.AdminID, res.TripIDs[0],
	).Scan(&res.ReservationID)
	if err != nil {
		return nil, fmt.Errorf("upsert reservation: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return res, nil
}

// upsertTrip keys trips on bus and route, since the schema has no natural key.
func upsertTrip(ctx context.Context, tx pgx.Tx, busID int64, origin, destination string, departAt time.Time, price float64) (int64, error) {
	var id int64
	err := tx.QueryRow(ctx, `
		UPDATE trips SET depart_at = $4, price = $5
		WHERE bus_id = $1 AND origin = $2 AND destination = $3
		RETURNING id`,
		busID, origin, destination, departAt, price,
	).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("update trip %s -> %s: %w", origin, destination, err)
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO trips (bus_id, origin, destination, depart_at, price)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`,
		busID, origin, destination, departAt, price,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert trip %s -> %s: %w", origin, destination, err)
	}
	return id, nil
}
