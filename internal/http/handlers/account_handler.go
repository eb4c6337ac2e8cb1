package handlers

import (
	"github.com/escrow-ledger/backend/internal/http/dto"
	"github.com/escrow-ledger/backend/internal/middleware"
	"github.com/escrow-ledger/backend/internal/services"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type AccountHandler struct {
	escrowService *services.EscrowService
	log           *zap.Logger
}

func NewAccountHandler(escrowService *services.EscrowService, log *zap.Logger) *AccountHandler {
	return &AccountHandler{escrowService: escrowService, log: log}
}

func (h *AccountHandler) GetMe(c *fiber.Ctx) error {
	return h.account(c, middleware.GetAccountID(c))
}

func (h *AccountHandler) GetAccount(c *fiber.Ctx) error {
	return h.account(c, c.Params("id"))
}

func (h *AccountHandler) account(c *fiber.Ctx, id string) error {
	a, err := h.escrowService.Account(c.Context(), middleware.GetCaller(c), id)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: dto.NewAccountResponse(a)})
}

// SetBlocked blocks or unblocks an account. Operators only.
func (h *AccountHandler) SetBlocked(c *fiber.Ctx) error {
	var req dto.SetBlockedRequest
	if err := c.BodyParser(&req); err != nil || req.Blocked == nil {
		return badRequest(c, "body must be {\"blocked\": true|false}")
	}

	a, err := h.escrowService.SetAccountBlocked(c.Context(), middleware.GetCaller(c), c.Params("id"), *req.Blocked)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: dto.NewAccountResponse(a)})
}
