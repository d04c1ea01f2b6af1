package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.temporal.io/sdk/client"

	"github.com/cx-tal-miterani/booking-ledger/internal/catalog"
	"github.com/cx-tal-miterani/booking-ledger/internal/config"
	"github.com/cx-tal-miterani/booking-ledger/internal/database"
	"github.com/cx-tal-miterani/booking-ledger/internal/events"
	"github.com/cx-tal-miterani/booking-ledger/internal/handlers"
	"github.com/cx-tal-miterani/booking-ledger/internal/idempotency"
	"github.com/cx-tal-miterani/booking-ledger/internal/ledger"
	"github.com/cx-tal-miterani/booking-ledger/internal/logger"
	"github.com/cx-tal-miterani/booking-ledger/internal/metrics"
	"github.com/cx-tal-miterani/booking-ledger/internal/router"
	"github.com/cx-tal-miterani/booking-ledger/internal/service"
	"github.com/cx-tal-miterani/booking-ledger/internal/tracing"
	"github.com/cx-tal-miterani/booking-ledger/internal/websocket"
)

const serviceName = "booking-ledger"

func main() {
	cfg := config.Load()
	log := logger.New("api", logger.ParseLevel(cfg.LogLevel))
	if !cfg.EnvFileLoaded {
		log.Debug("CONFIG", "no .env file found, using environment")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Init(ctx, serviceName, cfg.OTLPEndpoint)
	if err != nil {
		log.Fatal("TRACING", "failed to initialise tracing", "error", err)
	}

	// Ledger storage
	var (
		store  ledger.Store
		source catalog.Source
	)
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
		if cfg.Database.Migrate {
			if err := repo.Migrate(ctx); err != nil {
				log.Fatal("DATABASE", "failed to migrate schema", "error", err)
			}
		}
		log.LogDatabase("CONNECT", "postgres", "connected")
		store, source = repo, repo
	} else {
		mem := database.NewMemoryStore()
		log.LogDatabase("CONNECT", "memory", "DATABASE_URL not set, using in-memory store")
		store, source = mem, mem
	}

	led := ledger.New(store, log)
	cat := catalog.New(source, log)

	if cfg.Database.SeedSample {
		seed, err := database.Seed(ctx, cat, led, time.Now())
		if err != nil {
			log.Fatal("DATABASE", "failed to seed sample data", "error", err)
		}
		log.Info("DATABASE", "sample data loaded",
			"admin_id", seed.Admin.ID, "customers", len(seed.Customers), "flights", len(seed.Flights))
	}

	// Idempotency keys
	var keys idempotency.Store
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Fatal("REDIS", "failed to connect to redis", "addr", cfg.Redis.Addr, "error", err)
		}
		keys = idempotency.NewRedisStore(rdb, cfg.Redis.IdempotencyTTL)
		log.Info("REDIS", "idempotency keys stored in redis", "addr", cfg.Redis.Addr)
	} else {
		keys = idempotency.NewMemoryStore(cfg.Redis.IdempotencyTTL)
	}

	// Event sinks
	hub := websocket.NewHub(log)
	go hub.Run(ctx)

	publisher := events.NewMulti(log, metrics.Publisher{}, hub)

	kafka, err := events.NewKafkaPublisher(cfg.Kafka.Brokers, !cfg.Kafka.Enabled, log)
	if err != nil {
		log.Fatal("KAFKA", "failed to create publisher", "error", err)
	}
	defer kafka.Close()
	publisher.Add(kafka)

	if cfg.Temporal.Enabled {
		tc, err := client.Dial(client.Options{
			HostPort:  cfg.Temporal.Host,
			Namespace: cfg.Temporal.Namespace,
			Logger:    log.Temporal(),
		})
		if err != nil {
			log.Fatal("TEMPORAL", "failed to create Temporal client", "host", cfg.Temporal.Host, "error", err)
		}
		defer tc.Close()
		publisher.Add(events.NewWorkflowPublisher(tc, cfg.Temporal.TaskQueue, log))
		log.Info("TEMPORAL", "connected", "host", cfg.Temporal.Host, "task_queue", cfg.Temporal.TaskQueue)
	}

	// HTTP
	bookingService := service.NewBookingService(led, cat, keys, publisher, log)
	h := handlers.NewHandler(bookingService, log)
	r := router.SetupRouter(h, hub, router.Options{
		Log:       log,
		RateLimit: cfg.RateLimit.RPS,
		Burst:     cfg.RateLimit.Burst,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("SERVER", "API server starting", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("SERVER", "server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("SERVER", "shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("SERVER", "server forced to shutdown", "error", err)
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Warn("TRACING", "failed to flush spans", "error", err)
	}

	log.Info("SERVER", "server stopped")
}
