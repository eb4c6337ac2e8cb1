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
	"github.com/escrow-ledger/backend/internal/janitor"
	"github.com/escrow-ledger/backend/internal/metrics"
	"github.com/escrow-ledger/backend/internal/repositories"
	"github.com/escrow-ledger/backend/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const leaseKey = "escrow:janitor:lease"

func main() {
	cfg := config.Load()
	log := config.NewLogger(cfg.LogLevel)
	defer log.Sync()
	cfg.Validate(log)

	if cfg.StoreBackend != config.StoreBackendPostgres {
		log.Fatal("worker requires STORE_BACKEND=postgres; the memory backend sweeps nothing shared")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	escrowCfg, err := services.EscrowConfigFrom(cfg)
	if err != nil {
		log.Fatal("invalid escrow configuration", zap.Error(err))
	}

	pool, err := db.NewPostgresPool(ctx, cfg.PostgresDSN, log)
	if err != nil {
		log.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer pool.Close()

	rdb, err := db.NewRedisClient(ctx, cfg.RedisURL, log)
	if err != nil {
		log.Fatal("failed to connect to redis", zap.Error(err))
	}

	var (
		publisher events.Publisher = events.NoopPublisher{}
		lease     janitor.Lease    = janitor.AlwaysLease{}
	)
	if rdb != nil {
		defer rdb.Close()
		publisher = events.NewRedisPublisher(rdb, log)
		lease = janitor.NewRedisLease(rdb, leaseKey, 2*cfg.JanitorInterval)
	} else {
		log.Warn("redis disabled: run a single worker replica")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	escrowService := services.NewEscrowService(
		repositories.NewEscrowRepo(pool),
		repositories.NewAccountRepo(pool),
		repositories.NewAuditRepo(pool),
		publisher,
		metrics.NewLedger(reg),
		escrowCfg,
		log,
	)

	j := janitor.New(escrowService, lease, cfg.JanitorInterval, cfg.JanitorBatchSize, log)

	metricsApp := fiber.New(fiber.Config{DisableStartupMessage: true})
	metricsApp.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))
	metricsApp.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	go func() {
		addr := fmt.Sprintf(":%s", cfg.MetricsPort)
		if err := metricsApp.Listen(addr); err != nil {
			log.Error("metrics server stopped", zap.String("addr", addr), zap.Error(err))
		}
	}()
	defer metricsApp.Shutdown()

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down worker")
		cancel()
	}()

	log.Info("worker started",
		zap.Duration("interval", cfg.JanitorInterval),
		zap.Int("batch", cfg.JanitorBatchSize),
		zap.String("expire_policy", string(escrowCfg.ExpirePolicy)),
	)
	j.Run(ctx)
}
