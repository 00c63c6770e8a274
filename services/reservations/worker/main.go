// Command worker consumes the reservations queue and drains the admin audit queue.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/diagnosis/luxbus/pkg/config"
	"github.com/diagnosis/luxbus/pkg/database"
	"github.com/diagnosis/luxbus/pkg/events"
	"github.com/diagnosis/luxbus/pkg/logger"
	"github.com/diagnosis/luxbus/pkg/queue"
	"github.com/diagnosis/luxbus/services/reservations/internal/repository"
	"github.com/diagnosis/luxbus/services/reservations/internal/service"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	bus, err := events.NewNATSEventBus(cfg.NATS.URL, "reservations-worker")
	if err != nil {
		logger.Error("Failed to connect to NATS", "error", err)
		os.Exit(1)
	}
	defer bus.Close()

	rdb, err := queue.NewClient(queue.Options{URL: cfg.Redis.URL, DialTimeout: cfg.Redis.DialTimeout})
	if err != nil {
		logger.Error("Invalid Redis configuration", "error", err)
		os.Exit(1)
	}
	defer rdb.Close()

	reservations := repository.NewReservationRepository(pool)
	trips := repository.NewTripRepository(pool)
	users := repository.NewUserRepository(pool)
	notifier := service.NewEventNotifier(bus, cfg.NATS.NotifySubject)
	booker := service.NewBooker(reservations, trips, users, notifier, cfg.Booking.Location())
	processor := service.NewBookingProcessor(booker)

	worker := queue.NewWorker(rdb, cfg.Redis.Prefix, cfg.Queue.Reservations, processor.Process, queue.WorkerOptions{
		Concurrency:     cfg.Queue.Concurrency,
		Attempts:        cfg.Queue.Attempts,
		Backoff:         cfg.Queue.Backoff,
		LockTTL:         cfg.Queue.LockTTL,
		StalledInterval: cfg.Queue.StalledInterval,
		OnCompleted: func(job *queue.Job, _ any) {
			logger.Info("Job completed", "queue", job.Queue, "job_id", job.ID)
		},
		OnFailed: func(job *queue.Job, err error) {
			logger.Warn("Job failed", "queue", job.Queue, "job_id", job.ID,
				"status", job.Status, "attempts", job.AttemptsMade, "error", err)
		},
	})

	audit := queue.NewWorker(rdb, cfg.Redis.Prefix, cfg.Queue.AdminTasks, service.LogAdminChange, queue.WorkerOptions{
		Concurrency:     1,
		Attempts:        1,
		LockTTL:         cfg.Queue.LockTTL,
		StalledInterval: cfg.Queue.StalledInterval,
	})

	logger.Info("Starting reservations worker",
		"queue", cfg.Queue.Reservations, "concurrency", cfg.Queue.Concurrency)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return worker.Run(gctx) })
	g.Go(func() error { return audit.Run(gctx) })
	if err := g.Wait(); err != nil {
		logger.Error("Worker stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("Reservations worker stopped")
}
