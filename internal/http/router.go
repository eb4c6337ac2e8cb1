package http

import (
	"time"

	"github.com/escrow-ledger/backend/internal/config"
	"github.com/escrow-ledger/backend/internal/http/handlers"
	"github.com/escrow-ledger/backend/internal/middleware"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const idempotencyTTL = 24 * time.Hour

func SetupRouter(
	app *fiber.App,
	cfg *config.Config,
	log *zap.Logger,
	rdb *redis.Client,
	gatherer prometheus.Gatherer,
	escrowHandler *handlers.EscrowHandler,
	accountHandler *handlers.AccountHandler,
	wsHub *handlers.WSHub,
) {
	// Global middleware
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Request-ID, Idempotency-Key",
	}))
	app.Use(middleware.RequestIDMiddleware())
	app.Use(middleware.LoggerMiddleware(log))

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	if gatherer != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	api := app.Group("/api/v1")
	api.Use(middleware.RateLimitMiddleware(rdb, cfg.RateLimitPerMinute, time.Minute))

	protected := api.Group("", middleware.AuthMiddleware(cfg, log))

	// Accounts
	protected.Get("/accounts/me", accountHandler.GetMe)
	protected.Get("/accounts/:id", accountHandler.GetAccount)
	protected.Put("/accounts/:id/blocked", accountHandler.SetBlocked)

	// Escrows
	protected.Post("/escrows", middleware.IdempotencyMiddleware(rdb, idempotencyTTL, log), escrowHandler.CreateEscrow)
	protected.Get("/escrows", escrowHandler.ListEscrows)
	protected.Get("/escrows/:id", escrowHandler.GetEscrow)
	protected.Get("/escrows/:id/time-remaining", escrowHandler.TimeRemaining)
	protected.Get("/escrows/:id/events", escrowHandler.GetEscrowEvents)
	protected.Get("/escrows/:id/audit", escrowHandler.GetEscrowAudit)
	protected.Post("/escrows/:id/confirm", escrowHandler.ConfirmEscrow)
	protected.Post("/escrows/:id/release", escrowHandler.ReleaseEscrow)
	protected.Post("/escrows/:id/refund", escrowHandler.RefundEscrow)
	protected.Post("/escrows/:id/expire", escrowHandler.ExpireEscrow)

	// WebSocket
	app.Use("/ws", handlers.WSUpgradeMiddleware())
	app.Get("/ws", websocket.New(wsHub.HandleWS))
}
