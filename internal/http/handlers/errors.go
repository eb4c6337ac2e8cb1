package handlers

import (
	"strconv"

	"github.com/escrow-ledger/backend/internal/http/dto"
	"github.com/escrow-ledger/backend/internal/middleware"
	"github.com/escrow-ledger/backend/internal/models"
	"github.com/escrow-ledger/backend/internal/services"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

var kindStatus = map[services.Kind]int{
	services.KindInvalidInput:       fiber.StatusBadRequest,
	services.KindNotAuthorized:      fiber.StatusForbidden,
	services.KindInvalidState:       fiber.StatusConflict,
	services.KindDeadlinePassed:     fiber.StatusUnprocessableEntity,
	services.KindDeadlineNotReached: fiber.StatusUnprocessableEntity,
	services.KindTransferFailed:     fiber.StatusPaymentRequired,
	services.KindNotFound:           fiber.StatusNotFound,
}

// StatusFor maps a ledger error kind to an HTTP status; unknown errors are 500.
func StatusFor(kind services.Kind) int {
	if st, ok := kindStatus[kind]; ok {
		return st
	}
	return fiber.StatusInternalServerError
}

func respondError(c *fiber.Ctx, log *zap.Logger, err error) error {
	kind := services.KindOf(err)
	status := StatusFor(kind)
	reqID := middleware.GetRequestID(c)

	if status == fiber.StatusInternalServerError {
		log.Error("request failed", zap.String("request_id", reqID), zap.Error(err))
		return c.Status(status).JSON(dto.ErrorResponse{Error: "internal error", RequestID: reqID})
	}
	return c.Status(status).JSON(dto.ErrorResponse{Error: err.Error(), Code: string(kind), RequestID: reqID})
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
		Error:     msg,
		Code:      string(services.KindInvalidInput),
		RequestID: middleware.GetRequestID(c),
	})
}

func parseID(c *fiber.Ctx) (int64, bool) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	return id, err == nil && id > 0
}

func parseFilter(c *fiber.Ctx) models.EscrowFilter {
	f := models.EscrowFilter{Limit: 20}
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 200 {
			f.Limit = n
		}
	}
	if v := c.Query("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			f.Offset = n
		}
	}
	return f
}
