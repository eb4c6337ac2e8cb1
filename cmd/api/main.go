package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/escrow-ledger/backend/internal/config"
	"github.com/escrow-ledger/backend/internal/db"
	"github.com/escrow-ledger/backend/internal/events"
	"github.com/escrow-ledger/backend/internal/gateway"
	apphttp "github.com/escrow-ledger/backend/internal/http"
	"github.com/escrow-ledger/backend/internal/http/dto"
	"github.com/escrow-ledger/backend/internal/http/handlers"
	"github.com/escrow-ledger/backend/internal/metrics"
	"github.com/escrow-ledger/backend/internal/repositories"
	"github.com/escrow-ledger/backend/internal/services"
	"github.com/escrow-ledger/backend/migrations"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()
	log := config.NewLogger(cfg.LogLevel)
	defer log.Sync()
	cfg.Validate(log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	escrowCfg, err := services.EscrowConfigFrom(cfg)
	if err != nil {
		log.Fatal("invalid escrow configuration", zap.Error(err))
	}

	// Redis is optional in memory mode.
	rdb, err := db.NewRedisClient(ctx, cfg.RedisURL, log)
	if err != nil {
		if cfg.StoreBackend != config.StoreBackendMemory {
			log.Fatal("failed to connect to redis", zap.Error(err))
		}
		log.Warn("redis unavailable, continuing without it", zap.Error(err))
		rdb = nil
	}
	if rdb != nil {
		defer rdb.Close()
	}

	// Metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	ledgerMetrics := metrics.NewLedger(reg)

	// Events
	var (
		publisher  events.Publisher
		subscriber events.Subscriber
	)
	if rdb != nil {
		publisher = events.NewRedisPublisher(rdb, log)
		subscriber = events.NewRedisSubscriber(rdb, log)
	} else {
		bus := events.NewBus()
		publisher, subscriber = bus, bus
	}

	// Store + gateway
	var (
		store repositories.EscrowStore
		gw    gateway.Gateway
		audit services.AuditLogger
	)
	switch cfg.StoreBackend {
	case config.StoreBackendMemory:
		seed, err := config.ParseBalances(cfg.MemorySeedBalances)
		if err != nil {
			log.Fatal("invalid MEMORY_SEED_BALANCES", zap.Error(err))
		}
		mem := gateway.NewMemoryGateway()
		mem.Seed(seed)
		log.Info("memory gateway seeded", zap.Int("accounts", len(seed)))

		store = repositories.NewMemoryEscrowRepo()
		gw = mem
		audit = repositories.NewMemoryAuditRepo()
	case config.StoreBackendPostgres:
		pool, err := db.NewPostgresPool(ctx, cfg.PostgresDSN, log)
		if err != nil {
			log.Fatal("failed to connect to postgres", zap.Error(err))
		}
		defer pool.Close()

		if err := db.RunMigrations(ctx, pool, migrations.FS, log); err != nil {
			log.Fatal("failed to run migrations", zap.Error(err))
		}

		store = repositories.NewEscrowRepo(pool)
		gw = repositories.NewAccountRepo(pool)
		audit = repositories.NewAuditRepo(pool)
	default:
		log.Fatal("unknown STORE_BACKEND", zap.String("backend", cfg.StoreBackend))
	}

	// Services
	escrowService := services.NewEscrowService(store, gw, audit, publisher, ledgerMetrics, escrowCfg, log)

	// Handlers
	escrowHandler := handlers.NewEscrowHandler(escrowService, log)
	accountHandler := handlers.NewAccountHandler(escrowService, log)
	wsHub := handlers.NewWSHub(cfg, subscriber, log)

	// Start WS hub
	wsHub.Start(ctx)

	// Fiber app
	app := fiber.New(fiber.Config{
		BodyLimit: cfg.MaxPayloadBytes*2 + 4096,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(dto.ErrorResponse{Error: err.Error()})
		},
	})

	apphttp.SetupRouter(app, cfg, log, rdb, reg, escrowHandler, accountHandler, wsHub)

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")
		cancel()
		_ = app.Shutdown()
	}()

	addr := fmt.Sprintf(":%s", cfg.APIPort)
	log.Info("starting API server",
		zap.String("addr", addr),
		zap.String("store", cfg.StoreBackend),
		zap.String("release_policy", escrowCfg.ReleasePolicy.Name()),
		zap.String("expire_policy", string(escrowCfg.ExpirePolicy)),
		zap.Bool("redis", rdb != nil),
	)
	if err := app.Listen(addr); err != nil {
		log.Fatal("server error", zap.Error(err))
	}
}
