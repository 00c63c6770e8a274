package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/diagnosis/luxbus/pkg/auth"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/pflag"
)

type reservationRow struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"userId"`
	TripID    int64     `json:"tripId"`
	Seat      int       `json:"seat"`
	CreatedAt time.Time `json:"createdAt"`
}

func runReservation(ctx context.Context, e *env, args []string) error {
	fs := pflag.NewFlagSet("reservation", pflag.ContinueOnError)
	trip := fs.Int64("trip", 0, "trip id")
	seat := fs.Int("seat", 0, "seat number")
	if err := parse(fs, args); err != nil {
		return ignoreHelp(err)
	}
	if *trip <= 0 || *seat <= 0 {
		return errors.New("--trip and --seat must be positive")
	}

	row, err := findReservation(ctx, e.pool, *trip, *seat)
	if err != nil {
		return err
	}
	if row == nil {
		return fmt.Errorf("no reservation for trip %d seat %d", *trip, *seat)
	}
	return printJSON(e.out, row)
}

func findReservation(ctx context.Context, pool *pgxpool.Pool, tripID int64, seat int) (*reservationRow, error) {
	var r reservationRow
	err := pool.QueryRow(ctx, `
		SELECT id, user_id, trip_id, seat, created_at
		FROM reservations
		WHERE trip_id = $1 AND seat = $2`,
		tripID, seat,
	).Scan(&r.ID, &r.UserID, &r.TripID, &r.Seat, &r.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find reservation: %w", err)
	}
	return &r, nil
}

type account struct {
	ID    int64
	Email string
	Role  string
	Hash  string
}

func runLogin(ctx context.Context, e *env, args []string) error {
	fs := pflag.NewFlagSet("login", pflag.ContinueOnError)
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password")
	if err := parse(fs, args); err != nil {
		return ignoreHelp(err)
	}
	if *email == "" || *password == "" {
		return errors.New("--email and --password are required")
	}

	acc, err := findAccount(ctx, e.pool, `email = $1`, *email)
	if err != nil {
		return err
	}
	if acc == nil {
		return fmt.Errorf("no user with email %s", *email)
	}

	ok, err := checkPassword(*password, acc.Hash)
	if err != nil {
		return err
	}
	return printJSON(e.out, map[string]any{"userId": acc.ID, "role": acc.Role, "passwordOk": ok})
}

func checkPassword(password, hash string) (bool, error) {
	ok, err := argon2id.ComparePasswordAndHash(password, hash)
	if err != nil {
		return false, fmt.Errorf("compare password: %w", err)
	}
	return ok, nil
}

func runToken(ctx context.Context, e *env, args []string) error {
	fs := pflag.NewFlagSet("token", pflag.ContinueOnError)
	user := fs.Int64("user", 0, "user id")
	ttl := fs.Duration("ttl", e.cfg.Auth.AccessTokenTTL, "token lifetime")
	if err := parse(fs, args); err != nil {
		return ignoreHelp(err)
	}
	if *user <= 0 {
		return errors.New("--user must be positive")
	}

	acc, err := findAccount(ctx, e.pool, `id = $1`, *user)
	if err != nil {
		return err
	}
	if acc == nil {
		return fmt.Errorf("no user with id %d", *user)
	}

	token, err := auth.NewAccessToken(acc.ID, acc.Email, acc.Role, e.cfg.Auth.JWTSecret, *ttl)
	if err != nil {
		return fmt.Errorf("sign token: %w", err)
	}
	_, err = fmt.Fprintln(e.out, token)
	return err
}

func runSetPassword(ctx context.Context, e *env, args []string) error {
	fs := pflag.NewFlagSet("set-password", pflag.ContinueOnError)
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "new password")
	if err := parse(fs, args); err != nil {
		return ignoreHelp(err)
	}
	if *email == "" || *password == "" {
		return errors.New("--email and --password are required")
	}

	hash, err := argon2id.CreateHash(*password, argon2id.DefaultParams)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	tag, err := e.pool.Exec(ctx, `UPDATE users SET password_hash = $2 WHERE lower(email) = lower($1)`, *email, hash)
	if err != nil {
		return fmt.Errorf("set password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("no user with email %s", *email)
	}
	_, err = fmt.Fprintf(e.out, "password updated for %s\n", *email)
	return err
}

func findAccount(ctx context.Context, pool *pgxpool.Pool, where string, arg any) (*account, error) {
	var a account
	err := pool.QueryRow(ctx,
		`SELECT id, email, role, password_hash FROM users WHERE `+where, arg,
	).Scan(&a.ID, &a.Email, &a.Role, &a.Hash)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &a, nil
}

func ignoreHelp(err error) error {
	if errors.Is(err, errHelp) {
		return nil
	}
	return err
}
