package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/escrow-ledger/backend/internal/http/dto"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const IdempotencyHeader = "Idempotency-Key"

type storedResponse struct {
	Fingerprint string          `json:"fingerprint"`
	Status      int             `json:"status,omitempty"`
	Body        json.RawMessage `json:"body,omitempty"`
}

// IdempotencyMiddleware replays the first response produced for an
// Idempotency-Key. Keys are scoped to the caller and kept for ttl. A key
// reused with a different body is rejected, and a key whose first request is
// still running gets 409. Server errors are not remembered.
func IdempotencyMiddleware(rdb *redis.Client, ttl time.Duration, log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := c.Get(IdempotencyHeader)
		if key == "" || rdb == nil {
			return c.Next()
		}
		if len(key) > 128 {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
				Error: "idempotency key too long", Code: "invalid_input", RequestID: GetRequestID(c),
			})
		}

		ctx := context.Background()
		redisKey := "idem:" + GetAccountID(c) + ":" + key
		fingerprint := uuid.NewSHA1(uuid.NameSpaceOID, c.Body()).String()

		placeholder, _ := json.Marshal(storedResponse{Fingerprint: fingerprint})
		fresh, err := rdb.SetNX(ctx, redisKey, placeholder, ttl).Result()
		if err != nil {
			log.Warn("idempotency store unavailable", zap.Error(err))
			return c.Next() // fail open
		}

		if !fresh {
			return replay(c, rdb, redisKey, fingerprint)
		}

		if err := c.Next(); err != nil {
			rdb.Del(ctx, redisKey)
			return err
		}

		status := c.Response().StatusCode()
		if status >= fiber.StatusInternalServerError {
			rdb.Del(ctx, redisKey)
			return nil
		}

		stored, _ := json.Marshal(storedResponse{
			Fingerprint: fingerprint,
			Status:      status,
			Body:        append([]byte(nil), c.Response().Body()...),
		})
		if err := rdb.Set(ctx, redisKey, stored, ttl).Err(); err != nil {
			log.Warn("failed to store idempotent response", zap.String("key", key), zap.Error(err))
		}
		return nil
	}
}

func replay(c *fiber.Ctx, rdb *redis.Client, redisKey, fingerprint string) error {
	raw, err := rdb.Get(context.Background(), redisKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{
			Error: "idempotency key expired mid-request, retry", Code: "conflict", RequestID: GetRequestID(c),
		})
	}
	if err != nil {
		return err
	}

	var prev storedResponse
	if err := json.Unmarshal(raw, &prev); err != nil {
		return err
	}
	if prev.Fingerprint != fingerprint {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(dto.ErrorResponse{
			Error: "idempotency key reused with a different request", Code: "invalid_input", RequestID: GetRequestID(c),
		})
	}
	if prev.Status == 0 {
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{
			Error: "request with this idempotency key is in progress", Code: "conflict", RequestID: GetRequestID(c),
		})
	}

	c.Set("Idempotent-Replayed", "true")
	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return c.Status(prev.Status).Send(prev.Body)
}
