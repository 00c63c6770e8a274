package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/diagnosis/luxbus/migrations"
	"github.com/diagnosis/luxbus/pkg/config"
	"github.com/diagnosis/luxbus/pkg/database"
	"github.com/diagnosis/luxbus/pkg/events"
	"github.com/diagnosis/luxbus/pkg/logger"
	mw "github.com/diagnosis/luxbus/pkg/middleware"
	"github.com/diagnosis/luxbus/pkg/queue"
	"github.com/diagnosis/luxbus/services/reservations/internal/handlers"
	"github.com/diagnosis/luxbus/services/reservations/internal/repository"
	"github.com/diagnosis/luxbus/services/reservations/internal/service"
	"github.com/go-chi/chi/v5"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()

	pool, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := migrations.Apply(ctx, pool); err != nil {
		logger.Error("Failed to apply migrations", "error", err)
		os.Exit(1)
	}

	// Publishes are buffered while NATS is down; bookings never wait on it.
	bus, err := events.NewNATSEventBus(cfg.NATS.URL, "reservations-api")
	if err != nil {
		logger.Error("Failed to connect to NATS", "error", err)
		os.Exit(1)
	}
	defer bus.Close()

	queueOpts := queue.Options{URL: cfg.Redis.URL, Prefix: cfg.Redis.Prefix, DialTimeout: cfg.Redis.DialTimeout}
	rdb, err := queue.NewClient(queueOpts)
	if err != nil {
		logger.Error("Invalid Redis configuration", "error", err)
		os.Exit(1)
	}
	defer rdb.Close()

	reservations := repository.NewReservationRepository(pool)
	trips := repository.NewTripRepository(pool)
	users := repository.NewUserRepository(pool)
	buses := repository.NewBusRepository(pool)

	notifier := service.NewEventNotifier(bus, cfg.NATS.NotifySubject)
	booker := service.NewBooker(reservations, trips, users, notifier, cfg.Booking.Location())
	fallback := service.NewFallbackExecutor(trips, booker)
	admission := service.NewAdmission(
		trips,
		service.NewQueueEnqueuer(queueOpts, cfg.Queue.Reservations),
		fallback,
		nil,
		cfg.Queue.EnqueueTimeout,
	)

	admin := service.NewAdmin(users, buses, trips, notifier,
		service.NewQueueAudit(queueOpts, cfg.Queue.AdminTasks, cfg.Queue.EnqueueTimeout),
	)

	h := handlers.New(admission, reservations, trips, admin, cfg.Auth.JWTSecret,
		queue.NewInspector(rdb, queueOpts.Prefix, cfg.Queue.Reservations),
		queue.NewInspector(rdb, queueOpts.Prefix, cfg.Queue.AdminTasks),
	)

	r := chi.NewRouter()
	r.Use(mw.RequestID)
	r.Use(mw.ServiceName("reservations"))
	r.Use(mw.Logging)
	r.Use(mw.CORS(cfg.Server.CORSOrigins))
	r.Use(mw.Health)
	h.Mount(r)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		logger.Info("Shutting down reservations service...")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Reservations service shutdown error", "error", err)
		}
	}()

	logger.Info("Starting reservations service", "port", cfg.Server.Port)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Reservations service error", "error", err)
		os.Exit(1)
	}
}
