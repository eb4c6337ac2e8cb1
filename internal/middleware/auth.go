package middleware

import (
	"strings"

	"github.com/escrow-ledger/backend/internal/auth"
	"github.com/escrow-ledger/backend/internal/config"
	"github.com/escrow-ledger/backend/internal/http/dto"
	"github.com/escrow-ledger/backend/internal/services"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const (
	CtxAccountID = "account_id"
	CtxRoles     = "roles"
)

func AuthMiddleware(cfg *config.Config, log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return unauthorized(c, "missing authorization header")
		}

		tokenStr := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenStr == authHeader {
			return unauthorized(c, "invalid authorization format")
		}

		claims, err := auth.ParseJWT(cfg.JWTSecret, tokenStr)
		if err != nil {
			log.Debug("jwt parse error", zap.Error(err))
			return unauthorized(c, "invalid or expired token")
		}

		c.Locals(CtxAccountID, claims.AccountID)
		c.Locals(CtxRoles, claims.Roles)

		return c.Next()
	}
}

func unauthorized(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
		Error:     msg,
		Code:      "unauthenticated",
		RequestID: GetRequestID(c),
	})
}

func GetAccountID(c *fiber.Ctx) string {
	id, _ := c.Locals(CtxAccountID).(string)
	return id
}

// GetCaller returns the authenticated principal for ledger calls.
func GetCaller(c *fiber.Ctx) services.Caller {
	roles, _ := c.Locals(CtxRoles).([]string)
	return services.Caller{ID: GetAccountID(c), Roles: roles}
}
