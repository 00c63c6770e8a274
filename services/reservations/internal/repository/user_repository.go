package repository

import (
	"context"
	"errors"
	"time"

	"github.com/diagnosis/luxbus/services/reservations/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type UserRepository interface {
	FindByID(ctx context.Context, id int64) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	List(ctx context.Context) ([]domain.User, error)
	Create(ctx context.Context, email, passwordHash, name, role string) (*domain.User, error)
	Update(ctx context.Context, id int64, name, role *string) (*domain.User, error)
	SetPasswordHash(ctx context.Context, id int64, hash string) (bool, error)
	Delete(ctx context.Context, id int64) (bool, error)
}

type userRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) UserRepository {
	return &userRepository{pool: pool}
}

const userCols = `id, email, password_hash, COALESCE(name, ''), role, created_at`

func (r *userRepository) FindByID(ctx context.Context, id int64) (*domain.User, error) {
	const q = `SELECT ` + userCols + ` FROM users WHERE id=$1`
	return r.findOne(ctx, q, id)
}

func (r *userRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	const q = `SELECT ` + userCols + ` FROM users WHERE lower(email)=lower($1)`
	return r.findOne(ctx, q, email)
}

func (r *userRepository) findOne(ctx context.Context, q string, arg any) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var u domain.User
	err := r.pool.QueryRow(ctx, q, arg).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Name, &u.Role, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storeErr("get user", err)
	}
	return &u, nil
}

func (r *userRepository) List(ctx context.Context) ([]domain.User, error) {
	const q = `SELECT ` + userCols + ` FROM users ORDER BY id`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, storeErr("list users", err)
	}
	defer rows.Close()

	users := []domain.User{}
	for rows.Next() {
		var u domain.User
		if err := rows.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Name, &u.Role, &u.CreatedAt); err != nil {
			return nil, storeErr("scan user", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("list users", err)
	}
	return users, nil
}

// Create fails with ErrEmailTaken when the email is already registered.
func (r *userRepository) Create(ctx context.Context, email, passwordHash, name, role string) (*domain.User, error) {
	const q = `INSERT INTO users (email, password_hash, name, role)
VALUES ($1, $2, NULLIF($3, ''), $4)
RETURNING ` + userCols
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var u domain.User
	err := r.pool.QueryRow(ctx, q, email, passwordHash, name, role).
		Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Name, &u.Role, &u.CreatedAt)
	if err != nil {
		return nil, constraintErr("create user", err, domain.ErrEmailTaken, nil)
	}
	return &u, nil
}

// Update changes the non-nil fields and returns (nil, nil) for an unknown id.
func (r *userRepository) Update(ctx context.Context, id int64, name, role *string) (*domain.User, error) {
	const q = `UPDATE users SET name = COALESCE($2::text, name), role = COALESCE($3::text, role)
WHERE id=$1
RETURNING ` + userCols
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var u domain.User
	err := r.pool.QueryRow(ctx, q, id, name, role).
		Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Name, &u.Role, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storeErr("update user", err)
	}
	return &u, nil
}

func (r *userRepository) SetPasswordHash(ctx context.Context, id int64, hash string) (bool, error) {
	const q = `UPDATE users SET password_hash=$2 WHERE id=$1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	tag, err := r.pool.Exec(ctx, q, id, hash)
	if err != nil {
		return false, storeErr("set password", err)
	}
	return tag.RowsAffected() == 1, nil
}

// Delete fails with ErrInUse while the user still holds reservations.
func (r *userRepository) Delete(ctx context.Context, id int64) (bool, error) {
	const q = `DELETE FROM users WHERE id=$1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	tag, err := r.pool.Exec(ctx, q, id)
	if err != nil {
		return false, constraintErr("delete user", err, nil, domain.ErrInUse)
	}
	return tag.RowsAffected() == 1, nil
}
