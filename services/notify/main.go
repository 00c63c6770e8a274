package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/diagnosis/luxbus/pkg/config"
	"github.com/diagnosis/luxbus/pkg/events"
	"github.com/diagnosis/luxbus/pkg/logger"
	mw "github.com/diagnosis/luxbus/pkg/middleware"
	"github.com/diagnosis/luxbus/services/notify/internal/consumer"
	"github.com/diagnosis/luxbus/services/notify/internal/mailer"
	"github.com/go-chi/chi/v5"
)

func main() {
	cfg := config.Load()

	bus, err := events.NewNATSEventBus(cfg.NATS.URL, "notify")
	if err != nil {
		logger.Error("Failed to connect to NATS", "error", err)
		os.Exit(1)
	}
	defer bus.Close()

	c := consumer.New(mailer.New(cfg.Email))
	if err := c.Start(bus, cfg.NATS.NotifySubject, cfg.NATS.NotifyGroup); err != nil {
		logger.Error("Failed to subscribe to notifications", "error", err)
		os.Exit(1)
	}
	logger.Info("Listening for notifications",
		"subject", cfg.NATS.NotifySubject,
		"group", cfg.NATS.NotifyGroup,
		"dev_mode", cfg.Email.DevMode,
	)

	r := chi.NewRouter()
	r.Use(mw.RequestID)
	r.Use(mw.ServiceName("notify"))
	r.Use(mw.Health)

	srv := &http.Server{
		Addr:        ":" + cfg.Server.NotifyPort,
		Handler:     r,
		ReadTimeout: cfg.Server.ReadTimeout,
		IdleTimeout: cfg.Server.IdleTimeout,
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		logger.Info("Shutting down notify service...")

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Notify service shutdown error", "error", err)
		}
	}()

	logger.Info("Starting notify service", "port", cfg.Server.NotifyPort)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Notify service error", "error", err)
		os.Exit(1)
	}
}
