package service

import (
	"context"
	"fmt"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/diagnosis/luxbus/pkg/logger"
	"github.com/diagnosis/luxbus/pkg/queue"
	"github.com/diagnosis/luxbus/services/reservations/internal/domain"
	"github.com/diagnosis/luxbus/services/reservations/internal/repository"
)

// Admin manages the accounts and fleet behind the booking pipeline.
type Admin interface {
	ListUsers(ctx context.Context) ([]domain.User, error)
	CreateUser(ctx context.Context, in domain.NewUser) (*domain.User, error)
	UpdateUser(ctx context.Context, id int64, patch domain.UserPatch) (*domain.User, error)
	DeleteUser(ctx context.Context, id int64) error

	ListBuses(ctx context.Context) ([]domain.Bus, error)
	CreateBus(ctx context.Context, in domain.BusInput) (*domain.Bus, error)
	UpdateBus(ctx context.Context, id int64, patch domain.BusPatch) (*domain.Bus, error)
	DeleteBus(ctx context.Context, id int64) error

	ListTrips(ctx context.Context) ([]domain.Trip, error)
	CreateTrip(ctx context.Context, in domain.TripInput) (*domain.Trip, error)
	UpdateTrip(ctx context.Context, id int64, patch domain.TripPatch) (*domain.Trip, error)
	DeleteTrip(ctx context.Context, id int64) error
}

// AuditTrail records administrative changes. Record never reports failure.
type AuditTrail interface {
	Record(ctx context.Context, event string, data map[string]any)
}

type admin struct {
	users    repository.UserRepository
	buses    repository.BusRepository
	trips    repository.TripRepository
	notifier Notifier
	audit    AuditTrail
}

func NewAdmin(
	users repository.UserRepository,
	buses repository.BusRepository,
	trips repository.TripRepository,
	notifier Notifier,
	audit AuditTrail,
) Admin {
	return &admin{users: users, buses: buses, trips: trips, notifier: notifier, audit: audit}
}

func hashPassword(password string) (string, error) {
	hash, err := argon2id.CreateHash(password, argon2id.DefaultParams)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return hash, nil
}

func (a *admin) ListUsers(ctx context.Context) ([]domain.User, error) {
	return a.users.List(ctx)
}

// CreateUser stores the account and sends the welcome notice.
func (a *admin) CreateUser(ctx context.Context, in domain.NewUser) (*domain.User, error) {
	if err := in.Normalize(); err != nil {
		return nil, err
	}
	hash, err := hashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	u, err := a.users.Create(ctx, in.Email, hash, in.Name, in.Role)
	if err != nil {
		return nil, err
	}

	logger.InfoContext(ctx, "User created", "user_id", u.ID, "role", u.Role)
	a.notifier.Submit(ctx, domain.BuildWelcome(u))
	a.audit.Record(ctx, "user.created", map[string]any{"userId": u.ID})
	return u, nil
}

func (a *admin) UpdateUser(ctx context.Context, id int64, patch domain.UserPatch) (*domain.User, error) {
	if err := patch.Validate(); err != nil {
		return nil, err
	}
	if patch.Password != nil {
		hash, err := hashPassword(*patch.Password)
		if err != nil {
			return nil, err
		}
		ok, err := a.users.SetPasswordHash(ctx, id, hash)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, domain.ErrUserNotFound
		}
	}
	u, err := a.users.Update(ctx, id, patch.Name, patch.Role)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, domain.ErrUserNotFound
	}
	a.audit.Record(ctx, "user.updated", map[string]any{"userId": id})
	return u, nil
}

func (a *admin) DeleteUser(ctx context.Context, id int64) error {
	ok, err := a.users.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrUserNotFound
	}
	a.audit.Record(ctx, "user.deleted", map[string]any{"userId": id})
	return nil
}

func (a *admin) ListBuses(ctx context.Context) ([]domain.Bus, error) {
	return a.buses.List(ctx)
}

func (a *admin) CreateBus(ctx context.Context, in domain.BusInput) (*domain.Bus, error) {
	if err := in.Normalize(); err != nil {
		return nil, err
	}
	b, err := a.buses.Create(ctx, in)
	if err != nil {
		return nil, err
	}
	a.audit.Record(ctx, "bus.created", map[string]any{"busId": b.ID})
	return b, nil
}

func (a *admin) UpdateBus(ctx context.Context, id int64, patch domain.BusPatch) (*domain.Bus, error) {
	if err := patch.Validate(); err != nil {
		return nil, err
	}
	b, err := a.buses.Update(ctx, id, patch)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, domain.ErrBusNotFound
	}
	a.audit.Record(ctx, "bus.updated", map[string]any{"busId": id})
	return b, nil
}

func (a *admin) DeleteBus(ctx context.Context, id int64) error {
	ok, err := a.buses.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrBusNotFound
	}
	a.audit.Record(ctx, "bus.deleted", map[string]any{"busId": id})
	return nil
}

func (a *admin) ListTrips(ctx context.Context) ([]domain.Trip, error) {
	return a.trips.List(ctx)
}

func (a *admin) CreateTrip(ctx context.Context, in domain.TripInput) (*domain.Trip, error) {
	if err := in.Normalize(); err != nil {
		return nil, err
	}
	t, err := a.trips.Create(ctx, in)
	if err != nil {
		return nil, err
	}
	a.audit.Record(ctx, "trip.created", map[string]any{"tripId": t.ID})
	return t, nil
}

func (a *admin) UpdateTrip(ctx context.Context, id int64, patch domain.TripPatch) (*domain.Trip, error) {
	if err := patch.Validate(); err != nil {
		return nil, err
	}
	t, err := a.trips.Update(ctx, id, patch)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, domain.ErrTripNotFound
	}
	a.audit.Record(ctx, "trip.updated", map[string]any{"tripId": id})
	return t, nil
}

func (a *admin) DeleteTrip(ctx context.Context, id int64) error {
	ok, err := a.trips.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrTripNotFound
	}
	a.audit.Record(ctx, "trip.deleted", map[string]any{"tripId": id})
	return nil
}

type queueAudit struct {
	opts    queue.Options
	queue   string
	timeout time.Duration
}

// NewQueueAudit records each change as a job on the named queue, where the
// queue admin endpoints can inspect it.
func NewQueueAudit(opts queue.Options, queueName string, timeout time.Duration) AuditTrail {
	return &queueAudit{opts: opts, queue: queueName, timeout: timeout}
}

func (q *queueAudit) Record(ctx context.Context, event string, data map[string]any) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), q.timeout)
	defer cancel()

	if _, err := queue.Enqueue(ctx, q.opts, q.queue, event, data); err != nil {
		logger.WarnContext(ctx, "Failed to record admin change", "error", err, "event", event)
	}
}

// LogAdminChange completes an audit job by writing it to the log.
func LogAdminChange(ctx context.Context, job *queue.Job) (any, error) {
	var data map[string]any
	if err := job.Decode(&data); err != nil {
		return nil, queue.Unrecoverable(fmt.Errorf("decode admin change: %w", err))
	}
	logger.InfoContext(ctx, "Admin change", "event", job.Name, "job_id", job.ID, "data", data)
	return nil, nil
}
