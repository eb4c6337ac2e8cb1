package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/escrow-ledger/backend/internal/config"
	"github.com/escrow-ledger/backend/internal/db"
	"github.com/escrow-ledger/backend/internal/events"
	"github.com/escrow-ledger/backend/internal/services"
	"go.uber.org/zap"
)

// Webhook bridge: subscribes to ledger events in redis and forwards each one
// to WEBHOOK_URL. Delivery is best effort; the escrow_events table is the
// record of truth.

func main() {
	cfg := config.Load()
	log := config.NewLogger(cfg.LogLevel)
	defer log.Sync()

	if cfg.WebhookURL == "" {
		log.Fatal("WEBHOOK_URL is required")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rdb, err := db.NewRedisClient(ctx, cfg.RedisURL, log)
	if err != nil || rdb == nil {
		log.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer rdb.Close()

	subscriber := events.NewRedisSubscriber(rdb, log)
	client := services.NewWebhookClient(cfg.WebhookURL, cfg.WebhookRPS, log)

	// One queue so the redis receive loops never block on the webhook.
	queue := make(chan events.Event, 1024)
	enqueue := func(event events.Event) {
		select {
		case queue <- event:
		default:
			log.Warn("webhook queue full, dropping event", zap.String("type", event.Type), zap.Int64("seq", event.Seq))
		}
	}

	for _, stream := range []string{events.StreamEscrow, events.StreamDeposit} {
		if err := subscriber.Subscribe(ctx, stream, enqueue); err != nil {
			log.Fatal("subscribe failed", zap.String("stream", stream), zap.Error(err))
		}
	}

	go func() {
		for {
			select {
			case event := <-queue:
				if err := client.Deliver(ctx, event); err != nil {
					log.Warn("failed to forward event",
						zap.String("type", event.Type),
						zap.Int64("seq", event.Seq),
						zap.Error(err),
					)
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	log.Info("webhook-bridge started", zap.String("url", cfg.WebhookURL), zap.Int("rps", cfg.WebhookRPS))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("shutting down webhook-bridge")
	cancel()
}
