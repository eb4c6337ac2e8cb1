package handlers

import (
	"context"
	"time"

	"github.com/escrow-ledger/backend/internal/http/dto"
	"github.com/escrow-ledger/backend/internal/middleware"
	"github.com/escrow-ledger/backend/internal/models"
	"github.com/escrow-ledger/backend/internal/services"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type EscrowHandler struct {
	escrowService *services.EscrowService
	log           *zap.Logger
}

func NewEscrowHandler(escrowService *services.EscrowService, log *zap.Logger) *EscrowHandler {
	return &EscrowHandler{escrowService: escrowService, log: log}
}

func (h *EscrowHandler) CreateEscrow(c *fiber.Ctx) error {
	var req dto.CreateEscrowRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request")
	}

	rec, err := h.escrowService.Create(c.Context(), middleware.GetCaller(c), services.CreateEscrowInput{
		Payee:          req.Payee,
		Amount:         req.Amount,
		DeadlineOffset: time.Duration(req.DeadlineSeconds) * time.Second,
		Payload:        req.Payload,
	})
	if err != nil {
		return respondError(c, h.log, err)
	}

	return c.Status(fiber.StatusCreated).JSON(dto.SuccessResponse{OK: true, Data: dto.NewEscrowResponse(rec)})
}

func (h *EscrowHandler) GetEscrow(c *fiber.Ctx) error {
	id, ok := parseID(c)
	if !ok {
		return badRequest(c, "invalid escrow id")
	}

	rec, err := h.escrowService.Get(c.Context(), middleware.GetCaller(c), id)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: dto.NewEscrowResponse(rec)})
}

type transitionCall func(ctx context.Context, caller services.Caller, id int64) (*models.EscrowRecord, error)

func (h *EscrowHandler) transition(call transitionCall) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := parseID(c)
		if !ok {
			return badRequest(c, "invalid escrow id")
		}

		rec, err := call(c.Context(), middleware.GetCaller(c), id)
		if err != nil {
			return respondError(c, h.log, err)
		}
		return c.JSON(dto.SuccessResponse{OK: true, Data: dto.NewEscrowResponse(rec)})
	}
}

func (h *EscrowHandler) ConfirmEscrow(c *fiber.Ctx) error {
	return h.transition(h.escrowService.Confirm)(c)
}

func (h *EscrowHandler) ReleaseEscrow(c *fiber.Ctx) error {
	return h.transition(h.escrowService.Release)(c)
}

func (h *EscrowHandler) RefundEscrow(c *fiber.Ctx) error {
	return h.transition(h.escrowService.Refund)(c)
}

func (h *EscrowHandler) ExpireEscrow(c *fiber.Ctx) error {
	return h.transition(h.escrowService.Expire)(c)
}

func (h *EscrowHandler) TimeRemaining(c *fiber.Ctx) error {
	id, ok := parseID(c)
	if !ok {
		return badRequest(c, "invalid escrow id")
	}

	caller := middleware.GetCaller(c)
	rec, err := h.escrowService.Get(c.Context(), caller, id)
	if err != nil {
		return respondError(c, h.log, err)
	}
	left, err := h.escrowService.TimeRemaining(c.Context(), caller, id)
	if err != nil {
		return respondError(c, h.log, err)
	}

	return c.JSON(dto.SuccessResponse{OK: true, Data: dto.TimeRemainingResponse{
		ID:               id,
		Deadline:         rec.Deadline,
		RemainingSeconds: int64(left / time.Second),
	}})
}

func (h *EscrowHandler) GetEscrowEvents(c *fiber.Ctx) error {
	id, ok := parseID(c)
	if !ok {
		return badRequest(c, "invalid escrow id")
	}

	evs, err := h.escrowService.Events(c.Context(), middleware.GetCaller(c), id)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: evs})
}

// GetEscrowAudit lists the audit trail of an escrow for arbiters and operators.
func (h *EscrowHandler) GetEscrowAudit(c *fiber.Ctx) error {
	id, ok := parseID(c)
	if !ok {
		return badRequest(c, "invalid escrow id")
	}

	f := parseFilter(c)
	entries, err := h.escrowService.AuditTrail(c.Context(), middleware.GetCaller(c), id, f)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: dto.PageResponse{Items: entries, Limit: f.Limit, Offset: f.Offset}})
}

// ListEscrows lists by payer (?role=payer, default) or payee (?role=payee).
// ?account= selects another account for callers allowed to view any escrow.
func (h *EscrowHandler) ListEscrows(c *fiber.Ctx) error {
	caller := middleware.GetCaller(c)
	account := c.Query("account", caller.ID)
	filter := parseFilter(c)

	var (
		recs []models.EscrowRecord
		err  error
	)
	switch c.Query("role", "payer") {
	case "payer":
		recs, err = h.escrowService.ListByPayer(c.Context(), caller, account, filter)
	case "payee":
		recs, err = h.escrowService.ListByPayee(c.Context(), caller, account, filter)
	default:
		return badRequest(c, "role must be payer or payee")
	}
	if err != nil {
		return respondError(c, h.log, err)
	}

	return c.JSON(dto.SuccessResponse{OK: true, Data: dto.PageResponse{
		Items:  dto.NewEscrowList(recs),
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}})
}
