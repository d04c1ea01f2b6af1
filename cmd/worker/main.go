package main

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"

	"github.com/cx-tal-miterani/booking-ledger/internal/activities"
	"github.com/cx-tal-miterani/booking-ledger/internal/config"
	"github.com/cx-tal-miterani/booking-ledger/internal/database"
	"github.com/cx-tal-miterani/booking-ledger/internal/events"
	"github.com/cx-tal-miterani/booking-ledger/internal/logger"
	"github.com/cx-tal-miterani/booking-ledger/internal/workflows"
)

func main() {
	ctx := context.Background()
	cfg := config.Load()
	log := logger.New("worker", logger.ParseLevel(cfg.LogLevel))

	acts := &activities.Activities{Mailer: activities.NewLogMailer(log)}

	// Connect to database
	if cfg.Database.URL != "" {
		pool, err := pgxpool.New(ctx, cfg.Database.URL)
		if err != nil {
			log.Fatal("DATABASE", "failed to connect to database", "error", err)
		}
		defer pool.Close()

		repo := database.NewRepository(pool)
		if err := repo.Ping(ctx); err != nil {
			log.Fatal("DATABASE", "failed to ping database", "error", err)
		}
		acts.Bookings = repo
		log.LogDatabase("CONNECT", "postgres", "connected")
	} else {
		log.Warn("DATABASE", "DATABASE_URL not set, notices are built from event payloads")
	}

	// Connect to Temporal
	c, err := client.Dial(client.Options{
		HostPort:  cfg.Temporal.Host,
		Namespace: cfg.Temporal.Namespace,
		Logger:    log.Temporal(),
	})
	if err != nil {
		log.Fatal("TEMPORAL", "failed to connect to Temporal", "host", cfg.Temporal.Host, "error", err)
	}
	defer c.Close()
	log.Info("TEMPORAL", "connected", "host", cfg.Temporal.Host)

	// Create worker
	w := worker.New(c, cfg.Temporal.TaskQueue, worker.Options{})

	// Register workflows
	w.RegisterWorkflowWithOptions(workflows.BookingNotificationWorkflow, workflow.RegisterOptions{Name: events.NotificationWorkflowName})

	// Register activities
	w.RegisterActivityWithOptions(acts.LoadBookingSummary, activity.RegisterOptions{Name: activities.LoadBookingSummaryName})
	w.RegisterActivityWithOptions(acts.SendBookingNotice, activity.RegisterOptions{Name: activities.SendBookingNoticeName})

	// Start worker
	log.Info("TEMPORAL", "starting worker", "task_queue", cfg.Temporal.TaskQueue)
	if err := w.Run(worker.InterruptCh()); err != nil {
		log.Fatal("TEMPORAL", "worker failed", "error", err)
	}
}
