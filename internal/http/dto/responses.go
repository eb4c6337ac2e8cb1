package dto

import (
	"time"

	"github.com/escrow-ledger/backend/internal/models"
)

type ErrorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

type SuccessResponse struct {
	OK   bool `json:"ok"`
	Data any  `json:"data,omitempty"`
}

type EscrowResponse struct {
	ID               int64      `json:"id"`
	Payer            string     `json:"payer"`
	Payee            string     `json:"payee"`
	Amount           int64      `json:"amount"`
	ProtocolFee      int64      `json:"protocol_fee"`
	FeeBPS           int        `json:"fee_bps"`
	Status           string     `json:"status"`
	Payload          []byte     `json:"payload,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	Deadline         time.Time  `json:"deadline"`
	ConfirmedAt      *time.Time `json:"confirmed_at,omitempty"`
	SettledAt        *time.Time `json:"settled_at,omitempty"`
	PayoutAmount     *int64     `json:"payout_amount,omitempty"`
	FeeRetained      *int64     `json:"fee_retained,omitempty"`
	ExpireSettlement *string    `json:"expire_settlement,omitempty"`
}

func NewEscrowResponse(rec *models.EscrowRecord) EscrowResponse {
	return EscrowResponse{
		ID:               rec.ID,
		Payer:            rec.Payer,
		Payee:            rec.Payee,
		Amount:           rec.Amount,
		ProtocolFee:      rec.ProtocolFee,
		FeeBPS:           rec.FeeBPS,
		Status:           rec.Status,
		Payload:          rec.Payload,
		CreatedAt:        rec.CreatedAt,
		Deadline:         rec.Deadline,
		ConfirmedAt:      rec.ConfirmedAt,
		SettledAt:        rec.SettledAt,
		PayoutAmount:     rec.PayoutAmount,
		FeeRetained:      rec.FeeRetained,
		ExpireSettlement: rec.ExpireSettlement,
	}
}

func NewEscrowList(recs []models.EscrowRecord) []EscrowResponse {
	out := make([]EscrowResponse, len(recs))
	for i := range recs {
		out[i] = NewEscrowResponse(&recs[i])
	}
	return out
}

type PageResponse struct {
	Items  any `json:"items"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

type TimeRemainingResponse struct {
	ID               int64     `json:"id"`
	Deadline         time.Time `json:"deadline"`
	RemainingSeconds int64     `json:"remaining_seconds"`
}

type AccountResponse struct {
	ID      string `json:"id"`
	Balance int64  `json:"balance"`
	Blocked bool   `json:"blocked"`
}

func NewAccountResponse(a *models.Account) AccountResponse {
	return AccountResponse{ID: a.ID, Balance: a.Balance, Blocked: a.Blocked}
}
